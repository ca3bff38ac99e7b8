package notify

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/diewo77/go-timesheets/internal/logger"
	"github.com/diewo77/go-timesheets/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     chan Email
}

func newRecordingMailer(failures int) *recordingMailer {
	return &recordingMailer{failures: failures, sent: make(chan Email, 10)}
}

func (m *recordingMailer) Send(_ context.Context, e Email) error {
	m.mu.Lock()
	m.calls++
	fail := m.calls <= m.failures
	m.mu.Unlock()
	if fail {
		return errors.New("smtp unavailable")
	}
	m.sent <- e
	return nil
}

type fakeSource struct{}

func (fakeSource) InvoiceDocument(_ context.Context, workspaceID, invoiceID uint) (*InvoiceDocument, error) {
	if invoiceID != 42 {
		return nil, errors.New("not found")
	}
	return &InvoiceDocument{
		Filename: "invoice-acme-20240101-20240131.pdf",
		Data: pdf.InvoiceData{
			InvoiceNumber: "0000002A-0042",
			IssuedOn:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			PeriodStart:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			PeriodEnd:     time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			Items:         []pdf.InvoiceItem{{Description: "Work", QtyHours: 1.5, RateCents: 5000, AmountCents: 7500}},
			TotalCents:    7500,
			Client:        pdf.ClientData{Name: "Acme"},
			Company:       pdf.CompanyData{Name: "Studio"},
		},
	}, nil
}

func startWorker(t *testing.T, mailer Mailer) *Dispatcher {
	t.Helper()
	log := logger.NewNop()
	bus := NewBus(log)
	t.Cleanup(func() { _ = bus.Close() })

	w := NewWorker(bus, mailer, fakeSource{}, WorkerConfig{Workers: 2, MaxRetries: 3, FromAddress: "billing@example.com"}, log)
	w.backoff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Subscribe(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return NewDispatcher(bus, log)
}

func receive(t *testing.T, ch <-chan Email) Email {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("no email delivered")
		return Email{}
	}
}

func TestInviteEmailDelivered(t *testing.T) {
	mailer := newRecordingMailer(0)
	d := startWorker(t, mailer)

	require.NoError(t, d.InviteCreated(InviteCreated{
		Email:         "new@example.com",
		Role:          "member",
		Token:         "01HXTOKEN",
		WorkspaceName: "Acme Team",
		InviterName:   "Ada",
		ExpiresAt:     time.Now().Add(7 * 24 * time.Hour),
	}))

	e := receive(t, mailer.sent)
	assert.Equal(t, "Ada invited you to join Acme Team on Timesheets", e.Subject)
	assert.Equal(t, []string{"new@example.com"}, e.To)
	assert.Equal(t, "billing@example.com", e.From)
	assert.Contains(t, e.Body, "01HXTOKEN")
}

func TestInvoiceEmailRetriedAndAttached(t *testing.T) {
	mailer := newRecordingMailer(2)
	d := startWorker(t, mailer)

	require.NoError(t, d.InvoiceSend(InvoiceSend{
		WorkspaceID: 1,
		InvoiceID:   42,
		Recipients:  []string{"ap@acme.test"},
		CC:          []string{"me@studio.test"},
		Message:     "Thanks!",
	}))

	e := receive(t, mailer.sent)
	assert.Equal(t, "You received a $75.00 invoice from Studio", e.Subject)
	assert.Equal(t, []string{"ap@acme.test"}, e.To)
	assert.Equal(t, []string{"me@studio.test"}, e.CC)
	assert.Contains(t, e.Body, "Thanks!")
	require.Len(t, e.Attachments, 1)
	assert.Equal(t, "invoice-acme-20240101-20240131.pdf", e.Attachments[0].Filename)
	assert.True(t, bytes.HasPrefix(e.Attachments[0].Data, []byte("%PDF")))

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	assert.Equal(t, 3, mailer.calls)
}

func TestFailedNotificationDoesNotBlockOthers(t *testing.T) {
	mailer := newRecordingMailer(0)
	d := startWorker(t, mailer)

	// unknown invoice: logged and dropped
	require.NoError(t, d.InvoiceSend(InvoiceSend{WorkspaceID: 1, InvoiceID: 7, Recipients: []string{"x@y.z"}}))
	require.NoError(t, d.InvoiceSend(InvoiceSend{WorkspaceID: 1, InvoiceID: 42, Recipients: []string{"x@y.z"}}))

	e := receive(t, mailer.sent)
	assert.Contains(t, e.Subject, "$75.00")
}

func TestLogMailer(t *testing.T) {
	m := NewLogMailer(logger.NewNop())
	assert.NoError(t, m.Send(context.Background(), Email{To: []string{"a@b.c"}, Subject: "hi"}))
}

func TestBusDropsMessagesPublishedBeforeSubscribe(t *testing.T) {
	log := logger.NewNop()
	bus := NewBus(log)
	t.Cleanup(func() { _ = bus.Close() })
	d := NewDispatcher(bus, log)
	invite := func(token string) InviteCreated {
		return InviteCreated{Email: "new@example.com", Role: "member", Token: token, WorkspaceName: "Acme", InviterName: "Ada"}
	}

	require.NoError(t, d.InviteCreated(invite("EARLY")))

	mailer := newRecordingMailer(0)
	w := NewWorker(bus, mailer, fakeSource{}, WorkerConfig{Workers: 1}, log)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Subscribe(ctx))

	// queued on the subscription until Run starts consuming
	require.NoError(t, d.InviteCreated(invite("QUEUED")))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	e := receive(t, mailer.sent)
	assert.Contains(t, e.Body, "QUEUED")
	select {
	case extra := <-mailer.sent:
		t.Fatalf("unexpected email: %s", extra.Body)
	case <-time.After(100 * time.Millisecond):
	}
}
