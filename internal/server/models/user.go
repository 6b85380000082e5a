// Package models holds the server-side entities persisted by repositories.
package models

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ErrNoIdentifier is returned when a user would be created without an email
// and without a phone.
var ErrNoIdentifier = errors.New("email or phone is required")

// User is a single account. Email and Phone are each unique when present and
// at least one of them is always set. PasswordHash is null for accounts that
// were created through an external identity provider only.
type User struct {
	ID           string
	Email        sql.NullString
	Phone        sql.NullString
	PasswordHash sql.NullString
	ExternalID   sql.NullString
	DisplayName  sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewPasswordUser builds a user that signs in with a password.
func NewPasswordUser(id, email, phone, passwordHash string) (*User, error) {
	if !NullString(email).Valid && !NullString(phone).Valid {
		return nil, ErrNoIdentifier
	}
	if passwordHash == "" {
		return nil, errors.New("password hash is required")
	}
	return &User{
		ID:           id,
		Email:        NullString(email),
		Phone:        NullString(phone),
		PasswordHash: NullString(passwordHash),
	}, nil
}

// NewExternalUser builds a user linked to an external identity. It has no
// password hash and can only sign in through the external provider until a
// password is attached.
func NewExternalUser(id, email, externalID, displayName string) (*User, error) {
	if !NullString(email).Valid {
		return nil, ErrNoIdentifier
	}
	return &User{
		ID:          id,
		Email:       NullString(email),
		ExternalID:  NullString(externalID),
		DisplayName: NullString(displayName),
	}, nil
}

// HasPassword reports whether the password path is available for the user.
func (u *User) HasPassword() bool {
	return u.PasswordHash.Valid && u.PasswordHash.String != ""
}

// Identifier returns the email if present, the phone otherwise.
func (u *User) Identifier() string {
	if u.Email.Valid {
		return u.Email.String
	}
	return u.Phone.String
}

// NullString maps an empty (or blank) string to SQL NULL.
func NullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
