// Package server exposes availability, pricing and advisory checks over HTTP for a storefront
// frontend. Every request is answered from the current catalog snapshot.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/beesaferoot/rental-booking/booking"
)

type Server struct {
	snapshots *booking.Snapshots
	log       logrus.FieldLogger
	handler   http.Handler
}

// New builds the router. An empty allowedOrigins list allows any origin.
func New(snapshots *booking.Snapshots, allowedOrigins []string, log logrus.FieldLogger) *Server {
	s := &Server{
		snapshots: snapshots,
		log:       log.WithField("component", "server"),
	}

	router := mux.NewRouter()
	router.Use(s.middlewareLogRequest)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middlewareContentTypeSet)
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api.HandleFunc("/availability/properties", s.availableProperties).Methods(http.MethodGet)
	api.HandleFunc("/availability/units", s.availableUnits).Methods(http.MethodGet)
	api.HandleFunc("/quotes", s.quote).Methods(http.MethodPost)
	api.HandleFunc("/bookings/check", s.check).Methods(http.MethodPost)
	router.NotFoundHandler = http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		returnJSONError(rw, "not found", http.StatusNotFound)
	})

	cors := []gorillaHandlers.CORSOption{
		gorillaHandlers.AllowedHeaders([]string{"X-Requested-With", "Authorization", "Content-Type"}),
		gorillaHandlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions}),
	}
	if len(allowedOrigins) > 0 {
		cors = append(cors, gorillaHandlers.AllowedOrigins(allowedOrigins))
	}
	s.handler = gorillaHandlers.CORS(cors...)(router)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func middlewareContentTypeSet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(rw, r)
	})
}

func (s *Server) middlewareLogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(rw, r)
		s.log.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"elapsed": time.Since(start),
		}).Debug("Request handled")
	})
}
