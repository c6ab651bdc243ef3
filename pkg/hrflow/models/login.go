package models

import "time"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	SessionID   string    `json:"sessionId"`
	Expires     time.Time `json:"expires"`
	DisplayName string    `json:"displayName"`
	CompanyID   string    `json:"companyId"`
}
