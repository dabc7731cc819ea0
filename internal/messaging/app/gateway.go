package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	contactsdomain "github.com/textlane/textlane/internal/contacts/domain"
	contactsrepo "github.com/textlane/textlane/internal/contacts/repository"
	ledgerdomain "github.com/textlane/textlane/internal/ledger/domain"
	"github.com/textlane/textlane/internal/messaging/domain"
	"github.com/textlane/textlane/internal/messaging/repository"
	numberingdomain "github.com/textlane/textlane/internal/numbering/domain"
	numberingrepo "github.com/textlane/textlane/internal/numbering/repository"
	"github.com/textlane/textlane/internal/platform/database"
	"github.com/textlane/textlane/internal/realtime"
	"github.com/textlane/textlane/internal/scope"
	"github.com/textlane/textlane/internal/smsprovider"
)

// Biller is the slice of the ledger the gateway needs: each send debits the
// spender's wallet, and a failed provider call refunds it.
type Biller interface {
	Debit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, description, reference string) (*ledgerdomain.Transaction, error)
	Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, description, reference string) (*ledgerdomain.Transaction, error)
}

// SendAuthorizer decides whether an actor may send from a number.
type SendAuthorizer interface {
	AuthorizeSend(ctx context.Context, actor scope.Actor, number string) error
}

// Notifier pushes events to connected clients. Satisfied by *realtime.Hub.
type Notifier interface {
	Publish(tenantID uuid.UUID, event realtime.Event)
	PublishRoom(tenantID uuid.UUID, room string, event realtime.Event)
}

// Gateway runs the two messaging pipelines: outbound
// (authorize -> debit -> provider -> persist -> notify) and inbound
// (resolve owner -> upsert contact -> persist -> notify). Charging happens
// before the provider call so a send can never go out unpaid; a provider
// failure refunds the debit.
type Gateway struct {
	messageRepo repository.MessageRepository
	contactRepo contactsrepo.ContactRepository
	numberRepo  numberingrepo.NumberRepository
	authorizer  SendAuthorizer
	biller      Biller
	provider    smsprovider.Adapter
	notifier    Notifier
	db          database.Querier
	txr         database.TxRunner
	smsPrice    decimal.Decimal
	logger      *slog.Logger
}

func NewGateway(
	messageRepo repository.MessageRepository,
	contactRepo contactsrepo.ContactRepository,
	numberRepo numberingrepo.NumberRepository,
	authorizer SendAuthorizer,
	biller Biller,
	provider smsprovider.Adapter,
	notifier Notifier,
	db database.Querier,
	txr database.TxRunner,
	smsPrice decimal.Decimal,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		messageRepo: messageRepo,
		contactRepo: contactRepo,
		numberRepo:  numberRepo,
		authorizer:  authorizer,
		biller:      biller,
		provider:    provider,
		notifier:    notifier,
		db:          db,
		txr:         txr,
		smsPrice:    smsPrice,
		logger:      logger.With("service", "messaging"),
	}
}

// Send delivers one outbound message to a contact. Sub-account sends spend
// the sub-account's own wallet; the message lands in the shared tenant
// history either way.
func (g *Gateway) Send(ctx context.Context, actor scope.Actor, contactID uuid.UUID, content, fromNumber string) (*domain.Message, error) {
	start := time.Now()
	if content == "" {
		return nil, domain.ErrEmptyContent
	}

	contact, err := g.contactRepo.GetByID(ctx, g.db, actor.TenantID(), contactID)
	if err != nil {
		return nil, err
	}

	if err := g.authorizer.AuthorizeSend(ctx, actor, fromNumber); err != nil {
		messagesSentTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	messageID := uuid.New()
	reference := "sms:" + messageID.String()
	if _, err := g.biller.Debit(ctx, actor.WalletOwnerID(), g.smsPrice, "sms to "+contact.PhoneNumber, reference); err != nil {
		messagesSentTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	result, err := g.provider.Send(ctx, smsprovider.SendRequest{
		From: fromNumber,
		To:   contact.PhoneNumber,
		Body: content,
	})
	if err != nil {
		// Refund: the tenant must not pay for a message that never left.
		if _, refundErr := g.biller.Credit(ctx, actor.WalletOwnerID(), g.smsPrice, "refund for failed sms", reference); refundErr != nil {
			g.logger.ErrorContext(ctx, "refund after provider failure did not apply",
				"error", refundErr, "reference", reference)
		}
		messagesSentTotal.WithLabelValues("provider_error").Inc()
		return nil, fmt.Errorf("provider send: %w", err)
	}

	senderID := actor.ActorID()
	message := &domain.Message{
		ID:                messageID,
		UserID:            actor.TenantID(),
		ContactID:         contact.ID,
		SenderID:          &senderID,
		Content:           content,
		IsOutgoing:        true,
		FromNumber:        fromNumber,
		ToNumber:          contact.PhoneNumber,
		Status:            domain.StatusSent,
		ProviderMessageID: result.ProviderMessageID,
	}
	if err := g.messageRepo.Insert(ctx, g.db, message); err != nil {
		return nil, err
	}

	g.notifier.Publish(actor.TenantID(), realtime.Event{Type: realtime.EventMessageNew, Payload: message})
	g.notifier.PublishRoom(actor.TenantID(), contact.PhoneNumber, realtime.Event{Type: realtime.EventMessageNew, Payload: message})

	messagesSentTotal.WithLabelValues("sent").Inc()
	sendDuration.Observe(time.Since(start).Seconds())
	g.logger.InfoContext(ctx, "message sent",
		"user_id", actor.TenantID(), "sender_id", senderID, "contact_id", contact.ID)
	return message, nil
}

// Inbound records a message received on one of our numbers. Unknown or
// released destination numbers are acknowledged and dropped; replays of the
// same provider message id are acknowledged without a second write.
func (g *Gateway) Inbound(ctx context.Context, from, to, body, providerMessageID string) error {
	number, err := g.numberRepo.GetByNumber(ctx, g.db, to)
	if err != nil {
		if errors.Is(err, numberingdomain.ErrNumberNotFound) {
			messagesInboundTotal.WithLabelValues("unroutable").Inc()
			g.logger.WarnContext(ctx, "inbound for unknown number dropped", "to", to)
			return nil
		}
		return err
	}
	if number.Status != numberingdomain.NumberStatusActive {
		messagesInboundTotal.WithLabelValues("unroutable").Inc()
		g.logger.WarnContext(ctx, "inbound for released number dropped", "to", to)
		return nil
	}

	var contact *contactsdomain.Contact
	var message *domain.Message
	err = g.txr.InTx(ctx, func(q database.Querier) error {
		var txErr error
		contact, txErr = g.contactRepo.UpsertOnInbound(ctx, q, number.UserID, from)
		if txErr != nil {
			return txErr
		}

		message = &domain.Message{
			ID:                uuid.New(),
			UserID:            number.UserID,
			ContactID:         contact.ID,
			Content:           body,
			IsOutgoing:        false,
			FromNumber:        from,
			ToNumber:          to,
			Status:            domain.StatusDelivered,
			ProviderMessageID: providerMessageID,
		}
		if txErr := g.messageRepo.Insert(ctx, q, message); txErr != nil {
			return txErr
		}
		return g.contactRepo.IncrementUnread(ctx, q, contact.ID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateMessage) {
			messagesInboundTotal.WithLabelValues("duplicate").Inc()
			return nil
		}
		messagesInboundTotal.WithLabelValues("error").Inc()
		return err
	}

	contact.UnreadCount++
	g.notifier.Publish(number.UserID, realtime.Event{Type: realtime.EventMessageNew, Payload: message})
	g.notifier.Publish(number.UserID, realtime.Event{Type: realtime.EventContactsUpdated, Payload: contact})
	g.notifier.Publish(number.UserID, realtime.Event{Type: realtime.EventUnreadUpdated, Payload: unreadPayload{
		ContactID:   contact.ID,
		UnreadCount: contact.UnreadCount,
	}})
	g.notifier.PublishRoom(number.UserID, from, realtime.Event{Type: realtime.EventMessageNew, Payload: message})

	messagesInboundTotal.WithLabelValues("delivered").Inc()
	g.logger.InfoContext(ctx, "inbound message recorded",
		"user_id", number.UserID, "contact_id", contact.ID)
	return nil
}

// ApplyStatusCallback upgrades an outbound message per a carrier callback.
// Unknown provider ids and out-of-order downgrades are acknowledged without
// effect.
func (g *Gateway) ApplyStatusCallback(ctx context.Context, providerMessageID string, status domain.MessageStatus) error {
	message, err := g.messageRepo.UpdateStatusByProviderID(ctx, g.db, providerMessageID, status)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			return nil
		}
		return err
	}

	g.notifier.Publish(message.UserID, realtime.Event{Type: realtime.EventMessageStatus, Payload: message})
	g.notifier.PublishRoom(message.UserID, message.ToNumber, realtime.Event{Type: realtime.EventMessageStatus, Payload: message})
	return nil
}

// Conversation returns a page of one contact's thread, oldest first.
func (g *Gateway) Conversation(ctx context.Context, tenantID, contactID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if _, err := g.contactRepo.GetByID(ctx, g.db, tenantID, contactID); err != nil {
		return nil, err
	}
	return g.messageRepo.ListByContact(ctx, g.db, tenantID, contactID, limit, offset)
}

// MarkConversationRead upgrades inbound messages to read and zeroes the
// contact's unread badge in the same transaction.
func (g *Gateway) MarkConversationRead(ctx context.Context, tenantID, contactID uuid.UUID) error {
	err := g.txr.InTx(ctx, func(q database.Querier) error {
		if _, err := g.messageRepo.MarkConversationRead(ctx, q, tenantID, contactID); err != nil {
			return err
		}
		return g.contactRepo.ResetUnread(ctx, q, tenantID, contactID)
	})
	if err != nil {
		return err
	}

	contact, err := g.contactRepo.GetByID(ctx, g.db, tenantID, contactID)
	if err != nil {
		return err
	}
	g.notifier.Publish(tenantID, realtime.Event{Type: realtime.EventContactsUpdated, Payload: contact})
	g.notifier.Publish(tenantID, realtime.Event{Type: realtime.EventUnreadUpdated, Payload: unreadPayload{
		ContactID:   contact.ID,
		UnreadCount: 0,
	}})
	return nil
}

// unreadPayload is the body of unread:updated events.
type unreadPayload struct {
	ContactID   uuid.UUID `json:"contact_id"`
	UnreadCount int       `json:"unread_count"`
}
