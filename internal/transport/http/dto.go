package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// decodeAndValidate parses the JSON body into dst and runs struct
// validation. On failure it writes the 400 itself and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_JSON", "request body is not valid JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return false
	}
	return true
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name string `json:"name" validate:"required"`
}

type createContactRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,e164"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
}

type updateContactRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type sendSMSRequest struct {
	ContactID  string `json:"contactId" validate:"required,uuid"`
	Content    string `json:"content" validate:"required"`
	FromNumber string `json:"fromNumber" validate:"required,e164"`
}

type purchaseNumberRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,e164"`
}

type createSubAccountRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type assignNumberRequest struct {
	SubAccountID string `json:"subAccountId" validate:"required,uuid"`
	PhoneNumber  string `json:"phoneNumber" validate:"required,e164"`
}

type addFundsRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" validate:"required"`
}

type transferRequest struct {
	SubAccountID string          `json:"subAccountId" validate:"required,uuid"`
	Amount       decimal.Decimal `json:"amount"`
}

type monthlyLimitRequest struct {
	Limit decimal.Decimal `json:"limit"`
}

type paymentWebhookRequest struct {
	UserID      string          `json:"userId" validate:"required,uuid"`
	ProviderRef string          `json:"providerRef" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

type roomRequest struct {
	ConnectionID string `json:"connectionId" validate:"required,uuid"`
	PhoneNumber  string `json:"phoneNumber" validate:"required,e164"`
}

type authResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}
