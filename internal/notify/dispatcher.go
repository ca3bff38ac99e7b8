package notify

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/diewo77/go-timesheets/internal/logger"
)

// Dispatcher publishes notifications without waiting for delivery.
type Dispatcher struct {
	pub message.Publisher
	log *logger.Logger
}

func NewDispatcher(pub message.Publisher, log *logger.Logger) *Dispatcher {
	return &Dispatcher{pub: pub, log: log.Named("notify")}
}

// InviteCreated queues an invitation email.
func (d *Dispatcher) InviteCreated(e InviteCreated) error {
	return d.publish(TopicInviteCreated, e)
}

// InvoiceSend queues an invoice email.
func (d *Dispatcher) InvoiceSend(e InvoiceSend) error {
	return d.publish(TopicInvoiceSend, e)
}

func (d *Dispatcher) publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), body)
	if err := d.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	d.log.Debugw("notification queued", "topic", topic, "message_id", msg.UUID)
	return nil
}
