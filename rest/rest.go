// Package rest implements the HTTP front end of the volume orchestrator
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const stopTimeout = 10 * time.Second

//Server is the orchestrator's REST server
type Server struct {
	Routes *mux.Router

	srv *http.Server
}

//New returns a Server listening on addr once Listen is called
func New(addr string) *Server {
	s := &Server{Routes: mux.NewRouter()}
	s.srv = &http.Server{
		Addr:    addr,
		Handler: logRequests(s.Routes),
	}
	return s
}

//Listen serves requests until Stop is called
func (s *Server) Listen() error {
	log.Debug().Str("addr", s.srv.Addr).Msg("starting REST server")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("REST server failed")
		return err
	}
	return nil
}

//Stop shuts the server down, letting in-flight requests finish
func (s *Server) Stop() {
	log.Debug().Msg("stopping REST server")
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("REST server shutdown failed")
	}
	log.Info().Msg("stopped REST server")
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}
