package validation

import (
	"testing"
	"time"
)

type signupReq struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=member admin"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name string
		req  signupReq
		want Violations
	}{
		{"valid", signupReq{Email: "a@b.co", Name: "A", Password: "secret123"}, Violations{}},
		{"missing all", signupReq{}, Violations{"email": "required", "name": "required", "password": "required"}},
		{"bad email short password", signupReq{Email: "nope", Name: "A", Password: "x"}, Violations{"email": "invalid_email", "password": "too_small"}},
		{"bad role", signupReq{Email: "a@b.co", Name: "A", Password: "secret123", Role: "owner"}, Violations{"role": "invalid_value"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Struct(tt.req)
			if len(got) != len(tt.want) {
				t.Fatalf("Struct() = %v, want %v", got, tt.want)
			}
			for k, code := range tt.want {
				if got[k] != code {
					t.Errorf("field %s = %q, want %q", k, got[k], code)
				}
			}
		})
	}
}

func TestDate(t *testing.T) {
	v := Violations{}
	d := Date("period_start", "2024-02-29", v)
	if !v.Empty() || !d.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("Date() = %v, violations %v", d, v)
	}

	Date("period_end", "29/02/2024", v)
	Date("issued_on", " ", v)
	if v["period_end"] != "invalid_date" || v["issued_on"] != "required" {
		t.Errorf("unexpected violations %v", v)
	}
}

func TestBasicValidators(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	NonNegative("rate_cents", -1, v)
	NonNegative("other", 0, v)
	if v["name"] != "required" || v["rate_cents"] != "must_not_be_negative" {
		t.Errorf("unexpected violations %v", v)
	}
	if _, ok := v["other"]; ok {
		t.Error("zero must be accepted")
	}
	if !Email("x@example.com") || Email("x@") {
		t.Error("Email() misclassified")
	}
}
