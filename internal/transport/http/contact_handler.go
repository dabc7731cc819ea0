package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	contactsapp "github.com/textlane/textlane/internal/contacts/app"
	contactsdomain "github.com/textlane/textlane/internal/contacts/domain"
	messagingapp "github.com/textlane/textlane/internal/messaging/app"
)

type ContactHandler struct {
	contacts *contactsapp.ContactService
	gateway  *messagingapp.Gateway
}

func NewContactHandler(contacts *contactsapp.ContactService, gateway *messagingapp.Gateway) *ContactHandler {
	return &ContactHandler{contacts: contacts, gateway: gateway}
}

func contactID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// List returns the tenant's contacts, optionally narrowed to one phone
// number via ?phoneNumber=.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	contacts, err := h.contacts.List(r.Context(), actor.TenantID())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if phoneNumber := r.URL.Query().Get("phoneNumber"); phoneNumber != "" {
		filtered := contacts[:0]
		for _, c := range contacts {
			if c.PhoneNumber == phoneNumber {
				filtered = append(filtered, c)
			}
		}
		contacts = filtered
	}
	if contacts == nil {
		contacts = []*contactsdomain.Contact{}
	}
	respondJSON(w, http.StatusOK, contacts)
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createContactRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	actor, _ := ActorFromContext(r.Context())
	contact, err := h.contacts.Create(r.Context(), actor.TenantID(), req.PhoneNumber, req.Name, req.Avatar)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, contact)
}

func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := contactID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "contact id is not a uuid")
		return
	}
	var req updateContactRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	actor, _ := ActorFromContext(r.Context())
	contact, err := h.contacts.Update(r.Context(), actor.TenantID(), id, req.Name, req.Avatar)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := contactID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "contact id is not a uuid")
		return
	}

	actor, _ := ActorFromContext(r.Context())
	if err := h.contacts.Delete(r.Context(), actor.TenantID(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// MarkRead zeroes the unread badge and upgrades inbound messages to read.
func (h *ContactHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := contactID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "contact id is not a uuid")
		return
	}

	actor, _ := ActorFromContext(r.Context())
	if err := h.gateway.MarkConversationRead(r.Context(), actor.TenantID(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
