package handler

import "github.com/signatech/account-service/internal/core/domain"

// errorResponse documents the envelope rendered by the API error handler.
type errorResponse struct {
	Error      string            `json:"error"`
	Code       string            `json:"code"`
	Fields     map[string]string `json:"fields,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"`
}

// --- Request / Response types ---

type registerRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Company  string `json:"company"  validate:"omitempty,max=100"`
	Phone    string `json:"phone"    validate:"omitempty,max=30"`
}

type registerResponse struct {
	Message  string `json:"message"`
	Email    string `json:"email"`
	TempData string `json:"tempData"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type verifyEmailRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Code     string `json:"code"     validate:"required,len=6,number"`
	TempData string `json:"tempData" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string          `json:"token"`
	User  *domain.Account `json:"user"`
}

type verifyResetCodeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Code  string `json:"code"  validate:"required,len=6,number"`
}

type resetPasswordRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Code     string `json:"code"     validate:"required,len=6,number"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type updateProfileRequest struct {
	Name               *string `json:"name"                validate:"omitempty,min=1,max=100"`
	Company            *string `json:"company"             validate:"omitempty,max=100"`
	Phone              *string `json:"phone"               validate:"omitempty,max=30"`
	EmailNotifications *bool   `json:"email_notifications"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8,max=72"`
}

type messageResponse struct {
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}

type verifyResetCodeResponse struct {
	Message string `json:"message"`
	Valid   bool   `json:"valid"`
}

type csrfTokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}
