package domain

import (
	"fmt"
	"time"
)

// User represents an account that owns collections.
type User struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// APIKey represents a hashed API credential bound to one user.
type APIKey struct {
	ID        string
	UserID    string
	Name      string
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// IsRevoked reports whether the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// ValidateUser validates a User instance
func ValidateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if u.ID == "" {
		return fmt.Errorf("user ID is required")
	}
	if u.Name == "" {
		return fmt.Errorf("user Name is required")
	}
	return nil
}

// ValidateAPIKey validates an APIKey instance
func ValidateAPIKey(k *APIKey) error {
	if k == nil {
		return fmt.Errorf("api key cannot be nil")
	}
	if k.ID == "" {
		return fmt.Errorf("api key ID is required")
	}
	if k.UserID == "" {
		return fmt.Errorf("api key UserID is required")
	}
	if k.KeyHash == "" {
		return fmt.Errorf("api key KeyHash is required")
	}
	return nil
}
