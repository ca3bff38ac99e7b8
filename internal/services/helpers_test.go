package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/go-timesheets/internal/db"
	"github.com/diewo77/go-timesheets/internal/logger"
	"github.com/diewo77/go-timesheets/internal/models"
	"github.com/diewo77/go-timesheets/internal/notify"
	"github.com/diewo77/go-timesheets/internal/policy"
	"github.com/diewo77/go-timesheets/internal/tenant"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fixed clock: Friday 2024-03-15 12:00 UTC
var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(logger.NewNop(), false))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(d))
	sqlDB, err := d.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return d
}

// world is one workspace with an owner, an admin and a member, a client
// with a project, and a project without client.
type world struct {
	db          *gorm.DB
	gate        *policy.AuthGate
	ws          models.Workspace
	owner       models.User
	admin       models.User
	member      models.User
	client      models.Client
	project     models.Project
	internal    models.Project
	ownerScope  tenant.Scope
	adminScope  tenant.Scope
	memberScope tenant.Scope
}

func newWorld(t *testing.T, d *gorm.DB, name, tz string) *world {
	t.Helper()
	w := &world{db: d, gate: policy.NewAuthGate(d, time.Minute)}
	mk := func(role string) models.User {
		u := models.User{Email: fmt.Sprintf("%s@%s.test", role, name), Name: role + " " + name, PasswordHash: "x"}
		require.NoError(t, d.Create(&u).Error)
		return u
	}
	w.owner, w.admin, w.member = mk("owner"), mk("admin"), mk("member")
	w.ws = models.Workspace{Name: name, OwnerID: w.owner.ID, TimeZone: tz}
	require.NoError(t, d.Create(&w.ws).Error)

	scope := func(u models.User, role models.Role) tenant.Scope {
		m := models.Membership{WorkspaceID: w.ws.ID, UserID: u.ID, Role: role}
		require.NoError(t, d.Create(&m).Error)
		return tenant.New(&w.ws, &m)
	}
	w.ownerScope = scope(w.owner, models.RoleOwner)
	w.adminScope = scope(w.admin, models.RoleAdmin)
	w.memberScope = scope(w.member, models.RoleMember)

	w.client = models.Client{WorkspaceID: w.ws.ID, Name: "Acme " + name}
	require.NoError(t, d.Create(&w.client).Error)
	w.project = models.Project{WorkspaceID: w.ws.ID, ClientID: &w.client.ID, Name: "Website", Color: "#458588", BillableDefault: true}
	require.NoError(t, d.Create(&w.project).Error)
	w.internal = models.Project{WorkspaceID: w.ws.ID, Name: "Internal", Color: "#689d6a"}
	require.NoError(t, d.Create(&w.internal).Error)
	return w
}

// entry inserts a completed entry directly.
func (w *world) entry(t *testing.T, user models.User, project *models.Project, start time.Time, seconds int64, billable bool) models.TimeEntry {
	t.Helper()
	end := start.Add(time.Duration(seconds) * time.Second).UTC()
	e := models.TimeEntry{
		WorkspaceID:     w.ws.ID,
		UserID:          user.ID,
		Description:     fmt.Sprintf("work %ds", seconds),
		Billable:        billable,
		StartAt:         start.UTC(),
		EndAt:           &end,
		DurationSeconds: seconds,
	}
	if project != nil {
		e.ProjectID = &project.ID
	}
	require.NoError(t, w.db.Create(&e).Error)
	return e
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func countRows(t *testing.T, d *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, d.Model(model).Count(&n).Error)
	return n
}

type recordingNotifier struct {
	mu       sync.Mutex
	invoices []notify.InvoiceSend
	invites  []notify.InviteCreated
}

func (n *recordingNotifier) InvoiceSend(e notify.InvoiceSend) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invoices = append(n.invoices, e)
	return nil
}

func (n *recordingNotifier) InviteCreated(e notify.InviteCreated) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invites = append(n.invites, e)
	return nil
}
