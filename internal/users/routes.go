package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeremywhuff/rpq"
)

// DefaultAllowedMethods is the method allow-list applied to every user route.
var DefaultAllowedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

var errorMapping = rpq.ErrorMapping{
	http.StatusBadRequest: {rpq.KindValidation},
	http.StatusNotFound:   {rpq.KindNotFound},
	http.StatusConflict:   {rpq.KindConflict},
}

type Options struct {
	Logger          rpq.Logger
	MaxResponseSize int // bytes, 0 for no limit
}

var entityID = rpq.MustPath("$['params']['id']")

func stageName(name string) string {
	return rpq.StageName(false, name, []string{Collection}, true)
}

// Routes declares the user endpoints:
//
//	POST   /users      create
//	GET    /users      list, ?filters=[...]&pagination={...}
//	GET    /users/:id  get
//	PUT    /users/:id  update (PATCH is accepted as well)
//	DELETE /users/:id  delete
func Routes(d Deps, o Options) []*rpq.Route {
	c := rpq.Constraints{MaxResponseSize: o.MaxResponseSize, AllowedMethods: DefaultAllowedMethods}

	create := rpq.Build(rpq.Pipeline[CreateUserDTO]{
		Reflector: rpq.Reflector{Data: rpq.Body()},
		Chain: rpq.First(
			rpq.Run[CreateUserDTO, bool](stageName("users.EmailAvailable"), EmailAvailable[CreateUserDTO]{
				Deps:  d,
				Email: func(q rpq.Query[CreateUserDTO]) string { return q.Data.Email },
			})).Then(
			rpq.Run[CreateUserDTO, User](stageName("users.Create"), CreateUser{d})),
		BodySchema:    createUserSchema,
		ErrorMapping:  errorMapping,
		SuccessStatus: http.StatusCreated,
		Logger:        o.Logger,
	}, c)

	get := rpq.Build(rpq.Pipeline[struct{}]{
		Reflector:    rpq.Reflector{EntityID: entityID},
		Chain:        rpq.First(rpq.Run[struct{}, User](stageName("users.Get"), GetUser{d})),
		ErrorMapping: errorMapping,
		Logger:       o.Logger,
	}, c)

	emailChanged := func(q rpq.Query[UpdateUserDTO], _ any) bool { return q.Data.Email != nil }
	update := rpq.Build(rpq.Pipeline[UpdateUserDTO]{
		Reflector: rpq.Reflector{EntityID: entityID, Data: rpq.Body()},
		Chain: rpq.First(
			rpq.If(emailChanged, rpq.First(
				rpq.Run[UpdateUserDTO, bool](stageName("users.EmailAvailable"), EmailAvailable[UpdateUserDTO]{
					Deps:        d,
					Email:       func(q rpq.Query[UpdateUserDTO]) string { return *q.Data.Email },
					ExcludeSelf: true,
				})), nil)).Then(
			rpq.Run[UpdateUserDTO, User](stageName("users.Update"), UpdateUser{d})),
		BodySchema:   updateUserSchema,
		ErrorMapping: errorMapping,
		Logger:       o.Logger,
	}, c)

	del := rpq.Build(rpq.Pipeline[struct{}]{
		Reflector:    rpq.Reflector{EntityID: entityID},
		Chain:        rpq.First(rpq.Run[struct{}, bool](stageName("users.Delete"), DeleteUser{d})),
		ErrorMapping: errorMapping,
		Logger:       o.Logger,
	}, c)

	list := rpq.Build(rpq.Pipeline[struct{}]{
		Reflector:    rpq.Reflector{FilterQuery: rpq.FilterQueryParams("filters", "pagination")},
		Chain:        rpq.First(rpq.Run[struct{}, rpq.PaginatedResult[User]](stageName("users.List"), ListUsers{d})),
		ErrorMapping: errorMapping,
		Logger:       o.Logger,
	}, c)

	return []*rpq.Route{
		{HttpMethod: http.MethodPost, RelativePath: "/users", Pipe: create},
		{HttpMethod: http.MethodGet, RelativePath: "/users", Pipe: list},
		{HttpMethod: http.MethodGet, RelativePath: "/users/:id", Pipe: get},
		{HttpMethod: http.MethodPut, RelativePath: "/users/:id", Pipe: update},
		{HttpMethod: http.MethodPatch, RelativePath: "/users/:id", Pipe: update},
		{HttpMethod: http.MethodDelete, RelativePath: "/users/:id", Pipe: del},
	}
}

// Register adds the user routes to r.
func Register(r gin.IRoutes, d Deps, o Options) {
	for _, route := range Routes(d, o) {
		rpq.AddRoute(r, route)
	}
}
