package domain

import (
	"database/sql"
)

type User struct {
	ID            int64          `json:"id"`
	CompanyID     string         `json:"companyId"`
	Username      string         `json:"username"`
	DisplayName   string         `json:"displayName"`
	Password      string         `json:"-"`
	SessionID     sql.NullString `json:"sessionId"`
	ApiKey        sql.NullString `json:"apiKey"`
	SessionExpiry sql.NullTime   `json:"sessionExpiry"`
	Created       sql.NullTime   `json:"created"`
	Enabled       sql.NullBool   `json:"enabled"`
}
