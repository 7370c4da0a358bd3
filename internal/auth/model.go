package auth

import "time"

type Credential struct {
	Username     string
	PasswordHash string
	UpdatedAt    time.Time
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
