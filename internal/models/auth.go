package models

// AuthReason is the numeric message code shown on the login, register and
// restore pages. Codes are per form, so 3 reads as bad credentials on login
// and as a confirmation mismatch on register and restore.
type AuthReason int

const (
	ReasonNone              AuthReason = 0
	ReasonEmptyUsername     AuthReason = 1
	ReasonEmptyPassword     AuthReason = 2
	ReasonBadCredentials    AuthReason = 3
	ReasonPasswordMismatch  AuthReason = 3
	ReasonEmptyConfirmation AuthReason = 4
	ReasonUsernameTaken     AuthReason = 5
	ReasonPasswordTooLong   AuthReason = 6
)

// LoginRequest holds the submitted login form.
type LoginRequest struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// RegisterRequest holds the submitted registration form.
type RegisterRequest struct {
	Username     string `form:"username"`
	Password     string `form:"password"`
	Confirmation string `form:"confirmation"`
}

// PasswordResetRequest holds the submitted restore form.
type PasswordResetRequest struct {
	Password     string `form:"password"`
	Confirmation string `form:"confirmation"`
}
