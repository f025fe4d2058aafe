package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/offertory/internal/http/activity"
	"github.com/MrJamesThe3rd/offertory/internal/http/ledger"
	"github.com/MrJamesThe3rd/offertory/internal/http/receipt"
)

type Options struct {
	Timeout        time.Duration
	AllowedOrigins []string
	// Auth guards every /api/v1 route.
	Auth func(http.Handler) http.Handler
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Files serves signed receipt URLs under /files when set.
	Files http.Handler
}

func New(
	opts Options,
	activitiesV1 *activity.Handler,
	receiptsV1 *receipt.Handler,
	ledgerV1 *ledger.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	if opts.Files != nil {
		router.Method(http.MethodGet, "/files/*", http.StripPrefix("/files", opts.Files))
	}

	router.Route("/api/v1", func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}

		r.Route("/activities", activitiesV1.Routes)

		r.Route("/receipts", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			receiptsV1.Routes(r)
		})

		r.Route("/ledger", ledgerV1.Routes)
	})

	return router
}
