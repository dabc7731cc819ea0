package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	messagingapp "github.com/textlane/textlane/internal/messaging/app"
	messagingdomain "github.com/textlane/textlane/internal/messaging/domain"
	"github.com/textlane/textlane/internal/platform/messagebroker"
)

type SMSHandler struct {
	gateway *messagingapp.Gateway
	broker  messagebroker.Broker
}

func NewSMSHandler(gateway *messagingapp.Gateway, broker messagebroker.Broker) *SMSHandler {
	return &SMSHandler{gateway: gateway, broker: broker}
}

func (h *SMSHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendSMSRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	contactID, err := uuid.Parse(req.ContactID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "contactId is not a uuid")
		return
	}

	actor, _ := ActorFromContext(r.Context())
	message, err := h.gateway.Send(r.Context(), actor, contactID, req.Content, req.FromNumber)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, message)
}

// Messages returns one conversation, oldest first.
func (h *SMSHandler) Messages(w http.ResponseWriter, r *http.Request) {
	contactID, err := uuid.Parse(chi.URLParam(r, "contactId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "contact id is not a uuid")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	actor, _ := ActorFromContext(r.Context())
	messages, err := h.gateway.Conversation(r.Context(), actor.TenantID(), contactID, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if messages == nil {
		messages = []messagingdomain.Message{}
	}
	respondJSON(w, http.StatusOK, messages)
}

// TwilioWebhook receives carrier callbacks: inbound SMS (From/To/Body) and
// delivery status updates (MessageStatus). The handler only publishes to
// the broker and always answers 200: the provider retries on non-2xx, and a
// retried webhook is worse than a dropped one because the dedup cost lands
// on us. Processing happens in the queue consumer.
func (h *SMSHandler) TwilioWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	messageSid := r.PostFormValue("MessageSid")
	if status := r.PostFormValue("MessageStatus"); status != "" {
		h.publish(r.Context(), messagingapp.SubjectSMSStatus, messagingapp.StatusUpdate{
			ProviderMessageID: messageSid,
			Status:            status,
		})
		w.WriteHeader(http.StatusOK)
		return
	}

	h.publish(r.Context(), messagingapp.SubjectSMSIncoming, messagingapp.InboundSMS{
		From:              r.PostFormValue("From"),
		To:                r.PostFormValue("To"),
		Body:              r.PostFormValue("Body"),
		ProviderMessageID: messageSid,
	})
	w.WriteHeader(http.StatusOK)
}

func (h *SMSHandler) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	// Publish failures are swallowed on purpose; see handler comment.
	_ = h.broker.Publish(ctx, subject, data)
}
