package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/diewo77/go-timesheets/internal/logger"
	"github.com/diewo77/go-timesheets/internal/money"
	"github.com/diewo77/go-timesheets/pdf"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

// InvoiceSource loads an invoice for rendering, bypassing request scope.
type InvoiceSource interface {
	InvoiceDocument(ctx context.Context, workspaceID, invoiceID uint) (*InvoiceDocument, error)
}

// WorkerConfig tunes the worker.
type WorkerConfig struct {
	Workers     int
	MaxRetries  uint64
	FromAddress string
}

// Worker consumes notifications and hands emails to the Mailer, retrying
// failed deliveries with exponential backoff. The gochannel subscriber
// waits for an ack before delivering the next message, so a message is
// acked as soon as the bounded pool has taken it; failures are logged.
type Worker struct {
	sub     message.Subscriber
	mailer  Mailer
	source  InvoiceSource
	cfg     WorkerConfig
	log     *logger.Logger
	backoff func() backoff.BackOff
	subs    map[string]<-chan *message.Message
}

func NewWorker(sub message.Subscriber, mailer Mailer, source InvoiceSource, cfg WorkerConfig, log *logger.Logger) *Worker {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Worker{
		sub:    sub,
		mailer: mailer,
		source: source,
		cfg:    cfg,
		log:    log.Named("notify.worker"),
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

type handlerFunc func(ctx context.Context, payload []byte) error

// Subscribe opens the topic subscriptions. The bus does not keep
// messages nobody listens to, so call it before anything can publish.
// The subscriptions close when ctx is canceled.
func (w *Worker) Subscribe(ctx context.Context) error {
	if w.subs != nil {
		return nil
	}
	subs := make(map[string]<-chan *message.Message, 2)
	for _, topic := range []string{TopicInviteCreated, TopicInvoiceSend} {
		msgs, err := w.sub.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		subs[topic] = msgs
	}
	w.subs = subs
	return nil
}

// Run consumes until the subscriptions close, then waits for in-flight
// handlers. It subscribes with ctx when Subscribe was not called.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Subscribe(ctx); err != nil {
		return err
	}
	handlers := map[string]handlerFunc{
		TopicInviteCreated: w.handleInvite,
		TopicInvoiceSend:   w.handleInvoice,
	}
	p := pool.New().WithMaxGoroutines(w.cfg.Workers)

	var wg conc.WaitGroup
	for topic, msgs := range w.subs {
		handle := handlers[topic]
		wg.Go(func() {
			for msg := range msgs {
				// blocks while the pool is full
				p.Go(func() { w.process(ctx, topic, msg, handle) })
				msg.Ack()
			}
		})
	}
	w.log.Infow("notification worker started", "workers", w.cfg.Workers)
	wg.Wait()
	p.Wait()
	w.log.Infow("notification worker stopped")
	return nil
}

func (w *Worker) process(ctx context.Context, topic string, msg *message.Message, handle handlerFunc) {
	log := w.log.With("topic", topic, "message_id", msg.UUID)
	if err := handle(ctx, msg.Payload); err != nil {
		log.Errorw("notification dropped", "error", err)
		return
	}
	log.Debugw("notification handled")
}

func (w *Worker) handleInvite(ctx context.Context, payload []byte) error {
	var e InviteCreated
	if err := json.Unmarshal(payload, &e); err != nil {
		return err
	}
	return w.deliver(ctx, InviteEmail(e, w.cfg.FromAddress))
}

func (w *Worker) handleInvoice(ctx context.Context, payload []byte) error {
	var e InvoiceSend
	if err := json.Unmarshal(payload, &e); err != nil {
		return err
	}
	doc, err := w.source.InvoiceDocument(ctx, e.WorkspaceID, e.InvoiceID)
	if err != nil {
		return fmt.Errorf("load invoice %d: %w", e.InvoiceID, err)
	}
	body, err := pdf.InvoicePDF(doc.Data)
	if err != nil {
		return err
	}
	email := InvoiceEmail(e, doc, w.cfg.FromAddress)
	email.Attachments = []Attachment{{Filename: doc.Filename, ContentType: "application/pdf", Data: body}}
	return w.deliver(ctx, email)
}

func (w *Worker) deliver(ctx context.Context, e Email) error {
	attempt := 0
	op := func() error {
		attempt++
		return w.mailer.Send(ctx, e)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(w.backoff(), w.cfg.MaxRetries), ctx)
	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		w.log.Warnw("email delivery failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	})
}

// InviteEmail builds the invitation email.
func InviteEmail(e InviteCreated, from string) Email {
	var b strings.Builder
	fmt.Fprintf(&b, "%s invited you to join %s as %s.\n\n", e.InviterName, e.WorkspaceName, e.Role)
	fmt.Fprintf(&b, "Invitation token: %s\n", e.Token)
	fmt.Fprintf(&b, "This invitation expires on %s.\n", e.ExpiresAt.UTC().Format(pdf.DateLayout))
	return Email{
		From:    from,
		To:      []string{e.Email},
		Subject: fmt.Sprintf("%s invited you to join %s on %s", e.InviterName, e.WorkspaceName, AppName),
		Body:    b.String(),
	}
}

// InvoiceEmail builds the invoice email without its attachment.
func InvoiceEmail(e InvoiceSend, doc *InvoiceDocument, from string) Email {
	var b strings.Builder
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(msg)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Invoice %s\n", doc.Data.InvoiceNumber)
	fmt.Fprintf(&b, "Issued: %s\n", doc.Data.IssuedOn.Format(pdf.DateLayout))
	fmt.Fprintf(&b, "Amount due: %s\n", money.Format(doc.Data.TotalCents))
	return Email{
		From:    from,
		To:      e.Recipients,
		CC:      e.CC,
		Subject: fmt.Sprintf("You received a %s invoice from %s", money.Format(doc.Data.TotalCents), doc.Data.Company.Name),
		Body:    b.String(),
	}
}
