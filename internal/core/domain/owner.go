package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Owner is the holder of one or more accounts.
type Owner struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// HasContactAddress reports whether the owner can be targeted by notifications.
func (o Owner) HasContactAddress() bool {
	email := strings.TrimSpace(o.Email)
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}
