// Package rpq builds HTTP request pipelines for CRUD resources.
//
// rpq stands for "request pipeline query". A Reflector turns a transport Event into a typed Query, a Chain of
// Stages executes use cases against it, and an ErrorMapping turns typed failures into status codes. Build
// composes the three into a HandlerFunc, and GinHandler serves it through gin.
//
// List operations go through Fetch, which applies a FilterQuery to any Store and returns a PaginatedResult.
// Store implementations live in store/mongostore and store/sqlstore.
package rpq

type H map[string]any
