package rest

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

//Route models one route served by the REST server
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

//Routes is a table of many Route's
type Routes []Route

//SetRoutes adds the given routes to the server
func (s *Server) SetRoutes(routes Routes) {
	for _, route := range routes {
		log.Debug().
			Str("name", route.Name).
			Str("method", route.Method).
			Str("path", route.Pattern).
			Msg("registering route")

		s.Routes.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(route.HandlerFunc)
	}
}
