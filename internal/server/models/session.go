package models

import "time"

// Session records an issued token. Sessions are revoked by setting Deleted,
// never removed.
type Session struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
	Deleted   bool
}
