package domain

import "time"

type AdminPreLoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminVerifyReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type AdminSessionRes struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type AdminLoginCode struct {
	ID        int64
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	UsedAt    *time.Time
	Attempts  int
	CreatedAt time.Time
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
