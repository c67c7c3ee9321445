package http

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid username or password"`
}

// SuccessResponse denotes a simple success flag with a message.
type SuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Password updated"`
}

// RegisterRequest carries account registration fields.
type RegisterRequest struct {
	Username        string `json:"username" example:"alice"`
	Email           string `json:"email" example:"alice@example.com"`
	Phone           string `json:"phone" example:"555-0100"`
	Address         string `json:"address" example:"1 Farm Lane"`
	Password        string `json:"password" example:"freshmilk1"`
	ConfirmPassword string `json:"confirm_password" example:"freshmilk1"`
}

// LoginRequest carries username login fields.
type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"freshmilk1"`
}

// ForgotPasswordRequest starts the phone-based reset flow.
type ForgotPasswordRequest struct {
	Phone string `json:"phone" example:"555-0100"`
}

// VerifyOTPRequest exchanges a delivered code for a reset token.
type VerifyOTPRequest struct {
	Phone string `json:"phone" example:"555-0100"`
	OTP   string `json:"otp" example:"123456"`
}

// ResetPasswordRequest completes the reset with the verified token.
type ResetPasswordRequest struct {
	ResetToken      string `json:"reset_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	NewPassword     string `json:"new_password" example:"newfreshmilk1"`
	ConfirmPassword string `json:"confirm_password" example:"newfreshmilk1"`
}
