package models

import "time"

// CreateUserRequest provisions a user inside the caller's company.
// GenerateApiKey mints a machine credential returned once, on creation.
type CreateUserRequest struct {
	Username       string `json:"username"`
	DisplayName    string `json:"displayName"`
	Password       string `json:"password"`
	GenerateApiKey bool   `json:"generateApiKey,omitempty"`
}

type UserApiResponse struct {
	ID          int64      `json:"id"`
	CompanyID   string     `json:"companyId"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName"`
	ApiKey      string     `json:"apiKey,omitempty"`
	Enabled     bool       `json:"enabled"`
	Created     *time.Time `json:"created,omitempty"`
}
