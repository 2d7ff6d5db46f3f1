package authapi

import (
	"time"

	"chitter/cmd/identity"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resendRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`

	// DevVerificationCode is echoed outside production so local clients
	// can complete verification without an email channel.
	DevVerificationCode string `json:"devVerificationCode,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`

	DevVerificationCode string `json:"devVerificationCode,omitempty"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Verified  bool      `json:"verified"`
	Following []string  `json:"following"`
	CreatedAt time.Time `json:"createdAt"`
}

type tokenResponse struct {
	AccessToken string       `json:"accessToken"`
	User        userResponse `json:"user"`
}

func toUserResponse(u identity.User) userResponse {
	following := u.Following
	if following == nil {
		following = []string{}
	}
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Roles:     u.Roles,
		Verified:  u.Verified(),
		Following: following,
		CreatedAt: u.CreatedAt,
	}
}
