package rpq

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Route struct {
	HttpMethod   string
	RelativePath string
	Pipe         HandlerFunc
}

func AddRoute(r gin.IRoutes, route *Route) {
	r.Handle(route.HttpMethod, route.RelativePath, route.Handler())
}

func (r *Route) Handler() gin.HandlerFunc {
	return GinHandler(r.Pipe)
}

// GinHandler adapts h to gin. Errors returned by h are attached to the context with c.Error.
func GinHandler(h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ev, err := EventFromGin(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, H{"error": "unreadable request body", "kind": KindValidation.String()})
			return
		}

		if err := h(c.Request.Context(), ev, ginSink{c}); err != nil {
			_ = c.Error(err)
		}
	}
}

type ginSink struct {
	c *gin.Context
}

func (s ginSink) Header(key, value string) {
	s.c.Header(key, value)
}

func (s ginSink) Write(status int, body []byte) error {
	s.c.Status(status)
	_, err := s.c.Writer.Write(body)
	return err
}
