// Package http is the REST surface. Handlers translate between JSON and the
// app services; domain errors map to structured responses with a
// machine-readable code so clients branch without string matching.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	contactsdomain "github.com/textlane/textlane/internal/contacts/domain"
	identityapp "github.com/textlane/textlane/internal/identity/app"
	identitydomain "github.com/textlane/textlane/internal/identity/domain"
	ledgerdomain "github.com/textlane/textlane/internal/ledger/domain"
	messagingdomain "github.com/textlane/textlane/internal/messaging/domain"
	numberingdomain "github.com/textlane/textlane/internal/numbering/domain"
	"github.com/textlane/textlane/internal/payments"
	"github.com/textlane/textlane/internal/scope"
	"github.com/textlane/textlane/internal/smsprovider"
	subaccountsapp "github.com/textlane/textlane/internal/subaccounts/app"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorBody{Error: message, Code: code})
}

// errorMapping pairs a sentinel error with its HTTP translation.
type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{scope.ErrNoPhoneNumber, http.StatusForbidden, "NO_PHONE_NUMBER"},
	{scope.ErrInvalidNumber, http.StatusForbidden, "INVALID_NUMBER"},
	{scope.ErrNoAssignedNumber, http.StatusForbidden, "NO_ASSIGNED_NUMBER"},
	{scope.ErrServiceSuspended, http.StatusForbidden, "SERVICE_SUSPENDED"},

	{ledgerdomain.ErrInsufficientBalance, http.StatusBadRequest, "INSUFFICIENT_BALANCE"},
	{ledgerdomain.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{ledgerdomain.ErrWalletNotFound, http.StatusNotFound, "WALLET_NOT_FOUND"},
	{ledgerdomain.ErrUnauthorizedTransferTarget, http.StatusForbidden, "UNAUTHORIZED_TRANSFER_TARGET"},

	{identitydomain.ErrDuplicateEmail, http.StatusConflict, "DUPLICATE_EMAIL"},
	{identitydomain.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{identitydomain.ErrAccountInactive, http.StatusForbidden, "ACCOUNT_INACTIVE"},
	{identitydomain.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{identityapp.ErrTokenInvalid, http.StatusUnauthorized, "TOKEN_INVALID"},

	{contactsdomain.ErrContactNotFound, http.StatusNotFound, "CONTACT_NOT_FOUND"},
	{contactsdomain.ErrDuplicateContact, http.StatusConflict, "DUPLICATE_CONTACT"},

	{numberingdomain.ErrNumberNotFound, http.StatusNotFound, "NUMBER_NOT_FOUND"},
	{numberingdomain.ErrNotOwner, http.StatusForbidden, "NOT_OWNER"},
	{numberingdomain.ErrNumberInactive, http.StatusBadRequest, "NUMBER_INACTIVE"},
	{numberingdomain.ErrDuplicateNumber, http.StatusConflict, "DUPLICATE_NUMBER"},
	{numberingdomain.ErrActivationConflict, http.StatusConflict, "ACTIVATION_CONFLICT"},

	{messagingdomain.ErrEmptyContent, http.StatusBadRequest, "EMPTY_CONTENT"},
	{messagingdomain.ErrMessageNotFound, http.StatusNotFound, "MESSAGE_NOT_FOUND"},

	{subaccountsapp.ErrNotSubAccount, http.StatusNotFound, "SUB_ACCOUNT_NOT_FOUND"},

	{smsprovider.ErrSendFailed, http.StatusBadGateway, "PROVIDER_ERROR"},
	{payments.ErrChargeFailed, http.StatusBadGateway, "PAYMENT_FAILED"},
}

// respondDomainError maps a service error to its HTTP shape. Unknown errors
// become an opaque 500; the detail stays in the server log.
func respondDomainError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			respondError(w, m.status, m.code, m.err.Error())
			return
		}
	}
	respondError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
}
