package models

import "time"

// User is an account. Email and Login are stored lowercase; Password holds
// the encoded form produced by the password hasher.
type User struct {
	ID        string
	Email     string
	Login     string
	Password  string
	CreatedAt time.Time
	Activated bool
}
