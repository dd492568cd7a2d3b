package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	handlers "github.com/de-tools/cloud-warden/pkg/handlers/compliance"
	wardenmiddleware "github.com/de-tools/cloud-warden/pkg/server/middleware"
	"github.com/de-tools/cloud-warden/pkg/services/catalog"
	"github.com/de-tools/cloud-warden/pkg/services/compliance"
	"github.com/de-tools/cloud-warden/pkg/services/engine"
)

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
}

type Dependencies struct {
	Compliance compliance.Service
	Catalog    catalog.Service
	Evaluator  *engine.Evaluator
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	handler := handlers.NewHandler(
		config.Dependencies.Compliance,
		config.Dependencies.Catalog,
		config.Dependencies.Evaluator,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(wardenmiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts/{account}", func(r chi.Router) {
			r.Post("/evaluations", handler.TriggerEvaluation)
			r.Get("/findings", handler.ListFindings)
			r.Get("/rules", handler.ListRules)
			r.Post("/profiles/{profile}/apply", handler.ApplyProfile)
			r.Get("/score-history", handler.ScoreHistory)
			r.Get("/resources/{resource}/history", handler.ResourceHistory)
		})
		r.Route("/findings/{finding}", func(r chi.Router) {
			r.Post("/acknowledge", handler.Acknowledge)
			r.Post("/unacknowledge", handler.Unacknowledge)
			r.Post("/notes", handler.AddNote)
			r.Get("/notes", handler.ListNotes)
		})
		r.Delete("/notes/{note}", handler.DeleteNote)
	})

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
	}
}

func (w *WebAPI) Router() http.Handler {
	return w.router
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
