package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"bookshelf/internal/book"
	"bookshelf/internal/httpx"
	"bookshelf/internal/identity"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	books       *book.Service
	verifier    identity.Verifier
	store       pinger
	log         *slog.Logger
	authTimeout time.Duration
}

func newRouter(d routerDeps) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := d.store.Ping(ctx); err != nil {
			d.log.WarnContext(ctx, "readiness check failed", "err", err)
			httpx.JSONError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Store not ready", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	book.NewHTTPHandler(d.books, d.log).Register(router, httpx.AuthMiddleware(d.verifier, d.authTimeout))
	return router
}
