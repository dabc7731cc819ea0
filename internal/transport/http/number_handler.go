package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	numberingapp "github.com/textlane/textlane/internal/numbering/app"
	numberingdomain "github.com/textlane/textlane/internal/numbering/domain"
	"github.com/textlane/textlane/internal/smsprovider"
)

type NumberHandler struct {
	numbers *numberingapp.NumberService
}

func NewNumberHandler(numbers *numberingapp.NumberService) *NumberHandler {
	return &NumberHandler{numbers: numbers}
}

func (h *NumberHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	numbers, err := h.numbers.List(r.Context(), actor.TenantID())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if numbers == nil {
		numbers = []*numberingdomain.PhoneNumber{}
	}
	respondJSON(w, http.StatusOK, numbers)
}

func (h *NumberHandler) SearchAvailable(w http.ResponseWriter, r *http.Request) {
	available, err := h.numbers.SearchAvailable(r.Context(), r.URL.Query().Get("areaCode"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if available == nil {
		available = []smsprovider.AvailableNumber{}
	}
	respondJSON(w, http.StatusOK, available)
}

func (h *NumberHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseNumberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	actor, _ := ActorFromContext(r.Context())
	number, err := h.numbers.Purchase(r.Context(), actor.ActorID(), req.PhoneNumber)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, number)
}

func (h *NumberHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "number id is not a uuid")
		return
	}

	actor, _ := ActorFromContext(r.Context())
	number, err := h.numbers.Activate(r.Context(), actor.ActorID(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, number)
}

func (h *NumberHandler) Release(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "number id is not a uuid")
		return
	}

	actor, _ := ActorFromContext(r.Context())
	if err := h.numbers.Release(r.Context(), actor.ActorID(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
