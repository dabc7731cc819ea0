package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/textlane/textlane/internal/messaging/domain"
	"github.com/textlane/textlane/internal/platform/messagebroker"
)

// NATS subjects linking the webhook handlers to the consumer. The webhook
// acknowledges the provider immediately; processing happens here.
const (
	SubjectSMSIncoming = "sms.incoming"
	SubjectSMSStatus   = "sms.status"
	queueGroup         = "messaging-workers"
)

// InboundSMS is the payload published by the provider webhook.
type InboundSMS struct {
	From              string `json:"from"`
	To                string `json:"to"`
	Body              string `json:"body"`
	ProviderMessageID string `json:"provider_message_id"`
}

// StatusUpdate is the payload published by the delivery status webhook.
type StatusUpdate struct {
	ProviderMessageID string `json:"provider_message_id"`
	Status            string `json:"status"`
}

// InboundConsumer drains the webhook subjects and hands payloads to the
// gateway. Failures are logged and the message dropped; providers retry
// webhooks on their side and the dedup key absorbs the replay.
type InboundConsumer struct {
	broker  messagebroker.Broker
	gateway *Gateway
	logger  *slog.Logger
}

func NewInboundConsumer(broker messagebroker.Broker, gateway *Gateway, logger *slog.Logger) *InboundConsumer {
	return &InboundConsumer{
		broker:  broker,
		gateway: gateway,
		logger:  logger.With("service", "inbound-consumer"),
	}
}

// Start subscribes to both subjects. Subscriptions live until the broker
// connection is drained at shutdown.
func (c *InboundConsumer) Start(ctx context.Context) error {
	if _, err := c.broker.Subscribe(ctx, SubjectSMSIncoming, queueGroup, c.handleIncoming(ctx)); err != nil {
		return err
	}
	if _, err := c.broker.Subscribe(ctx, SubjectSMSStatus, queueGroup, c.handleStatus(ctx)); err != nil {
		return err
	}
	return nil
}

func (c *InboundConsumer) handleIncoming(ctx context.Context) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var payload InboundSMS
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.logger.ErrorContext(ctx, "undecodable inbound payload dropped", "error", err)
			return
		}
		if err := c.gateway.Inbound(ctx, payload.From, payload.To, payload.Body, payload.ProviderMessageID); err != nil {
			c.logger.ErrorContext(ctx, "inbound processing failed",
				"error", err, "provider_message_id", payload.ProviderMessageID)
		}
	}
}

func (c *InboundConsumer) handleStatus(ctx context.Context) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var payload StatusUpdate
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.logger.ErrorContext(ctx, "undecodable status payload dropped", "error", err)
			return
		}
		status, ok := mapProviderStatus(payload.Status)
		if !ok {
			return
		}
		if err := c.gateway.ApplyStatusCallback(ctx, payload.ProviderMessageID, status); err != nil {
			c.logger.ErrorContext(ctx, "status callback processing failed",
				"error", err, "provider_message_id", payload.ProviderMessageID)
		}
	}
}

// mapProviderStatus translates carrier status strings to our lifecycle.
// Intermediate carrier states (queued, sending, sent) carry no upgrade.
func mapProviderStatus(s string) (domain.MessageStatus, bool) {
	switch s {
	case "delivered":
		return domain.StatusDelivered, true
	case "read":
		return domain.StatusRead, true
	default:
		return "", false
	}
}
