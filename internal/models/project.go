package models

import (
	"hash/fnv"
	"regexp"
	"time"
)

// Palette is the set of colors assigned to projects created without one.
var Palette = []string{
	"#cc241d", "#98971a", "#d79921", "#458588", "#b16286", "#689d6a", "#d65d0e",
	"#fb4934", "#b8bb26", "#fabd2f", "#83a598", "#d3869b", "#8ec07c", "#fe8019",
}

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Project groups time entries, optionally for a client.
type Project struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkspaceID uint    `gorm:"uniqueIndex:idx_projects_workspace_name;not null" json:"workspace_id"`
	ClientID    *uint   `gorm:"index" json:"client_id"`
	Client      *Client `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL" json:"client,omitempty"`

	Name            string `gorm:"uniqueIndex:idx_projects_workspace_name;size:255;not null" json:"name"`
	Color           string `gorm:"size:7;not null;default:'#b16286'" json:"color"`
	BillableDefault bool   `gorm:"not null;default:false" json:"billable_default"`
}

// DisplayName is "Client: Project" when the project has a loaded client.
func (p *Project) DisplayName() string {
	if p.Client != nil {
		return p.Client.Name + ": " + p.Name
	}
	return p.Name
}

// ValidColor reports whether c is a #RRGGBB hex color.
func ValidColor(c string) bool { return colorPattern.MatchString(c) }

// DefaultColor picks a stable palette color for a project name.
func DefaultColor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return Palette[int(h.Sum32()%uint32(len(Palette)))]
}
