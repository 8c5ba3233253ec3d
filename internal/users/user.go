// Package users serves CRUD endpoints for user accounts on top of rpq pipelines.
package users

import (
	"errors"
	"time"

	"golang.org/x/text/cases"

	"github.com/jeremywhuff/rpq"
)

// Collection is the store collection holding user documents.
const Collection = "users"

// User is the public view of a stored user. The password hash is never part of it.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	IsVerified bool      `json:"isVerified"`
	LastLogin  time.Time `json:"lastLogin"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CreateUserDTO struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// UpdateUserDTO is a partial update. Nil fields are left unchanged.
type UpdateUserDTO struct {
	Email      *string `json:"email,omitempty"`
	Name       *string `json:"name,omitempty"`
	Password   *string `json:"password,omitempty"`
	IsVerified *bool   `json:"isVerified,omitempty"`
}

// normalizeEmail case-folds an address so lookups are case-insensitive. A Caser keeps state, so each call
// gets its own.
func normalizeEmail(email string) string {
	return cases.Fold().String(email)
}

func decodeUser(doc rpq.Document, idField string) (User, error) {
	return rpq.Decode[User](rpq.NormalizeID(doc, idField))
}

// parseID converts the request's entity id into the store's native identifier. Point operations require one.
func parseID(store rpq.Store, entityID string) (any, error) {
	if entityID == "" {
		return nil, rpq.Validation("Missing user ID", rpq.Violation{Field: "id", Message: "is required"})
	}
	id, err := store.ParseID(entityID)
	if err != nil {
		return nil, rpq.Validation("Invalid user ID format", rpq.Violation{Field: "id", Message: err.Error()})
	}
	return id, nil
}

// classify turns store errors into typed failures. Errors that already carry a kind pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, rpq.ErrNoDocument) {
		return rpq.NotFound("User not found")
	}
	if rpq.KindOf(err) != rpq.KindUnknown {
		return err
	}
	return rpq.StoreFailure(err)
}
