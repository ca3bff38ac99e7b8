package main

import (
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/diewo77/go-timesheets/auth"
	"github.com/diewo77/go-timesheets/internal/config"
	"github.com/diewo77/go-timesheets/internal/handlers"
	"github.com/diewo77/go-timesheets/internal/logger"
	"github.com/diewo77/go-timesheets/internal/notify"
	"github.com/diewo77/go-timesheets/internal/policy"
	"github.com/diewo77/go-timesheets/internal/services"
	"gorm.io/gorm"
)

// RouterConfig holds the configured gate, handlers and background pieces
// of the application.
type RouterConfig struct {
	AuthGate *policy.AuthGate
	Tokens   *auth.Tokens
	Users    *services.UserService

	AuthHandler      *handlers.AuthHandler
	WorkspaceHandler *handlers.WorkspaceHandler
	InviteHandler    *handlers.InviteHandler
	CatalogHandler   *handlers.CatalogHandler
	TimeEntryHandler *handlers.TimeEntryHandler
	InvoiceHandler   *handlers.InvoiceHandler
	SettingsHandler  *handlers.SettingsHandler
	ReportHandler    *handlers.ReportHandler

	// Bus carries notifications from the services to Worker.
	Bus    *gochannel.GoChannel
	Worker *notify.Worker
}

// NewRouterConfig wires services, handlers and the notification worker.
// Mail goes to notify.LogMailer unless mailer is given.
func NewRouterConfig(db *gorm.DB, cfg *config.Config, log *logger.Logger, mailer notify.Mailer) *RouterConfig {
	authGate := policy.NewAuthGate(db, cfg.Cache.RoleTTL)
	tokens := auth.NewTokens(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)

	bus := notify.NewBus(log)
	dispatcher := notify.NewDispatcher(bus, log)
	if mailer == nil {
		mailer = notify.NewLogMailer(log)
	}

	users := services.NewUserService(db)
	invoices := services.NewInvoiceService(db, dispatcher)
	settings := services.NewSettingsService(db)

	worker := notify.NewWorker(bus, mailer, invoices, notify.WorkerConfig{
		Workers:     cfg.Notify.Workers,
		MaxRetries:  cfg.Notify.MaxRetries,
		FromAddress: cfg.Notify.FromAddress,
	}, log)

	return &RouterConfig{
		AuthGate: authGate,
		Tokens:   tokens,
		Users:    users,

		AuthHandler:      handlers.NewAuthHandler(users, tokens),
		WorkspaceHandler: handlers.NewWorkspaceHandler(services.NewWorkspaceService(db, authGate, authGate)),
		InviteHandler:    handlers.NewInviteHandler(services.NewInviteService(db, dispatcher, log)),
		CatalogHandler:   handlers.NewCatalogHandler(services.NewCatalogService(db)),
		TimeEntryHandler: handlers.NewTimeEntryHandler(services.NewTimeEntryService(db, authGate)),
		InvoiceHandler:   handlers.NewInvoiceHandler(services.NewInvoiceGenerator(db), invoices, settings),
		SettingsHandler:  handlers.NewSettingsHandler(settings),
		ReportHandler:    handlers.NewReportHandler(services.NewReportService(db)),

		Bus:    bus,
		Worker: worker,
	}
}
