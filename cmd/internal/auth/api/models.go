package api

import (
	"time"

	"rnbw/cmd/identity"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	DOB      string `json:"dob"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequestRequest struct {
	Email          string `json:"email"`
	RecaptchaToken string `json:"recaptchaToken"`
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

type resetCompleteRequest struct {
	Token          string `json:"token"`
	NewPassword    string `json:"newPassword"`
	RecaptchaToken string `json:"recaptchaToken"`
}

// userResponse is the safe projection of a user record. It never carries the
// password hash.
type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	DOB       string    `json:"dob"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		DOB:       u.DateOfBirth,
		CreatedAt: u.CreatedAt,
	}
}

type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type loginResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type verifyTokenResponse struct {
	Valid bool   `json:"valid"`
	Email string `json:"email"`
}
