package users

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jeremywhuff/rpq"
)

// Deps are the collaborators shared by the user use cases.
type Deps struct {
	Store rpq.Store

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	// Millisecond precision survives every store.
	return now().UTC().Truncate(time.Millisecond)
}

func (d Deps) hash(password string) (string, error) {
	cost := d.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EmailAvailable fails with a conflict when another user already has the email picked by Email.
// With ExcludeSelf, the user named by the request's entity id does not count.
type EmailAvailable[D any] struct {
	Deps
	Email       func(q rpq.Query[D]) string
	ExcludeSelf bool
}

func (uc EmailAvailable[D]) Execute(ctx context.Context, q rpq.Query[D]) (bool, error) {
	filters := []rpq.Filter{{Field: "email", Operator: rpq.OpEq, Value: normalizeEmail(uc.Email(q))}}
	if uc.ExcludeSelf {
		if _, err := parseID(uc.Store, q.EntityID); err != nil {
			return false, err
		}
		filters = append(filters, rpq.Filter{Field: "id", Operator: rpq.OpNe, Value: q.EntityID})
	}

	fq := rpq.FilterQuery{Filters: filters, Pagination: rpq.Pagination{Page: 1, Limit: 1}}
	res, err := rpq.Fetch[User](ctx, Collection, fq, uc.Store, uc.Store.IDField())
	if err != nil {
		return false, classify(err)
	}
	if len(res.Data) > 0 {
		return false, rpq.Conflict("User already exists")
	}
	return true, nil
}

type CreateUser struct {
	Deps
}

func (uc CreateUser) Execute(ctx context.Context, q rpq.Query[CreateUserDTO]) (User, error) {
	hashed, err := uc.hash(q.Data.Password)
	if err != nil {
		return User{}, err
	}

	now := uc.now()
	u := User{
		Email:      normalizeEmail(q.Data.Email),
		Name:       q.Data.Name,
		IsVerified: false,
		LastLogin:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	id, err := uc.Store.InsertOne(ctx, Collection, rpq.Document{
		"email":      u.Email,
		"name":       u.Name,
		"password":   hashed,
		"isVerified": u.IsVerified,
		"lastLogin":  u.LastLogin,
		"createdAt":  u.CreatedAt,
		"updatedAt":  u.UpdatedAt,
	})
	if err != nil {
		return User{}, classify(err)
	}

	u.ID = rpq.FormatID(id)
	return u, nil
}

type GetUser struct {
	Deps
}

func (uc GetUser) Execute(ctx context.Context, q rpq.Query[struct{}]) (User, error) {
	id, err := parseID(uc.Store, q.EntityID)
	if err != nil {
		return User{}, err
	}

	doc, err := uc.Store.FindOne(ctx, Collection, id)
	if err != nil {
		return User{}, classify(err)
	}
	return decodeUser(doc, uc.Store.IDField())
}

type UpdateUser struct {
	Deps
}

func (uc UpdateUser) Execute(ctx context.Context, q rpq.Query[UpdateUserDTO]) (User, error) {
	id, err := parseID(uc.Store, q.EntityID)
	if err != nil {
		return User{}, err
	}

	set := rpq.Document{"updatedAt": uc.now()}
	if q.Data.Email != nil {
		set["email"] = normalizeEmail(*q.Data.Email)
	}
	if q.Data.Name != nil {
		set["name"] = *q.Data.Name
	}
	if q.Data.IsVerified != nil {
		set["isVerified"] = *q.Data.IsVerified
	}
	if q.Data.Password != nil {
		hashed, err := uc.hash(*q.Data.Password)
		if err != nil {
			return User{}, err
		}
		set["password"] = hashed
	}

	doc, err := uc.Store.FindOneAndUpdate(ctx, Collection, id, set)
	if err != nil {
		return User{}, classify(err)
	}
	return decodeUser(doc, uc.Store.IDField())
}

type DeleteUser struct {
	Deps
}

func (uc DeleteUser) Execute(ctx context.Context, q rpq.Query[struct{}]) (bool, error) {
	id, err := parseID(uc.Store, q.EntityID)
	if err != nil {
		return false, err
	}

	deleted, err := uc.Store.DeleteOne(ctx, Collection, id)
	if err != nil {
		return false, classify(err)
	}
	if !deleted {
		return false, rpq.NotFound("User not found")
	}
	return true, nil
}

// ListUsers pages through users. A missing filter query lists the first page of everything.
type ListUsers struct {
	Deps
}

func (uc ListUsers) Execute(ctx context.Context, q rpq.Query[struct{}]) (rpq.PaginatedResult[User], error) {
	fq := q.FilterQueryOrDefault()
	if err := checkFilterFields(fq.Filters); err != nil {
		return rpq.PaginatedResult[User]{}, err
	}

	res, err := rpq.Fetch[User](ctx, Collection, fq, uc.Store, uc.Store.IDField())
	if err != nil {
		return rpq.PaginatedResult[User]{}, classify(err)
	}
	return res, nil
}

// filterableFields are the public User fields. Stored fields outside it, such as the password hash, cannot be
// filtered on.
var filterableFields = map[string]bool{
	"id":         true,
	"email":      true,
	"name":       true,
	"isVerified": true,
	"lastLogin":  true,
	"createdAt":  true,
	"updatedAt":  true,
}

func checkFilterFields(filters []rpq.Filter) error {
	var violations []rpq.Violation
	for _, f := range filters {
		if !filterableFields[f.Field] {
			violations = append(violations, rpq.Violation{Field: f.Field, Message: "field cannot be filtered on"})
		}
	}
	if len(violations) > 0 {
		return rpq.Validation("Invalid filter field", violations...)
	}
	return nil
}
