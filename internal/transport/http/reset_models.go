package http

// ErrorResponse is the generic error payload.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid or expired reset code"`
}

// ResetRequestBody asks for a reset code to be mailed out.
type ResetRequestBody struct {
	Email string `json:"email" example:"ops@hellotrader.com"`
}

// ResetRequestResponse always carries the same generic message; user_id is
// present only when the email matched an account.
type ResetRequestResponse struct {
	Message string  `json:"message" example:"If the email exists, a reset code has been sent"`
	UserID  *string `json:"user_id,omitempty" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
}

// VerifyOTPBody submits the mailed code.
type VerifyOTPBody struct {
	UserID string `json:"user_id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	OTP    string `json:"otp" example:"007421"`
}

// VerifyOTPResponse hands back the reset token once the code checks out.
type VerifyOTPResponse struct {
	Message    string `json:"message" example:"Code verified"`
	ResetToken string `json:"reset_token" example:"4f1c...64 hex chars"`
}

// CommitResetBody submits the new transaction password with the reset token.
type CommitResetBody struct {
	UserID      string `json:"user_id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password" example:"abcdefgh"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message" example:"Transaction password updated"`
}
