package user

import "time"

const (
	GenderMale   = "male"
	GenderFemale = "female"

	InterestMale   = "male"
	InterestFemale = "female"
	InterestBoth   = "both"
)

type User struct {
	ID           int        `json:"id"`
	Username     string     `json:"username"`
	Password     string     `json:"-"`
	Gender       string     `json:"gender"`
	InterestedIn string     `json:"interested_in"`
	Online       bool       `json:"online"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
}

type RegisterRequest struct {
	Username     string `json:"username" validate:"required,min=3,max=50"`
	Password     string `json:"password" validate:"required,min=8"`
	Gender       string `json:"gender" validate:"required,oneof=male female"`
	InterestedIn string `json:"interested_in" validate:"required,oneof=male female both"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ID          int    `json:"id"`
	Username    string `json:"username"`
}
