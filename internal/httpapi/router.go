// Package httpapi exposes the query API spec §6 names but does not
// specify wire-for-wire: a chi-routed, keyset-paginated listing over
// internal/store, grounded on the teacher's occasional use of chi for
// exercise HTTP servers (see orbas1-Synnergy's router layer for the
// richer idiom this follows).
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kismp123/bugchainindexer-go/internal/ratecache"
	"github.com/kismp123/bugchainindexer-go/internal/store"
)

// Store is the persistence surface the API needs.
type Store interface {
	QueryAddresses(ctx context.Context, f store.QueryFilter) (store.QueryResult, error)
	GetAddress(ctx context.Context, address, network string) (store.Address, bool, error)
	CountAddresses(ctx context.Context, network string) (int64, error)
}

// NewRouter builds the chi router for the address listing/detail
// endpoints. Totals go through cache, the Redis-backed per-network count
// cache (SPEC_FULL.md supplemented feature #3), rather than s directly, so
// a busy "total=true" listing doesn't issue a live COUNT(*) every call.
func NewRouter(s Store, cache *ratecache.Cache, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/v1/addresses", func(r chi.Router) {
		r.Get("/", listAddresses(s, cache, log))
		r.Get("/{network}/{address}", getAddress(s, log))
	})

	return r
}

func listAddresses(s Store, cache *ratecache.Cache, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		includeTotal := q.Get("total") == "true"
		f := store.QueryFilter{
			Network: q.Get("network"),
			Sort:    store.SortKey(q.Get("sort")),
		}
		if lim := q.Get("limit"); lim != "" {
			if n, err := strconv.Atoi(lim); err == nil {
				f.Limit = n
			}
		}
		if cursor := q.Get("cursor"); cursor != "" {
			var c store.Cursor
			if err := json.Unmarshal([]byte(cursor), &c); err == nil {
				f.After = &c
			}
		}

		res, err := s.QueryAddresses(r.Context(), f)
		if err != nil {
			log.Error("httpapi: query failed", zap.Error(err))
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		if includeTotal {
			total, err := cache.Count(r.Context(), f.Network, s)
			if err != nil {
				log.Error("httpapi: count failed", zap.Error(err))
				http.Error(w, "count failed", http.StatusInternalServerError)
				return
			}
			res.Total = &total
		}
		writeJSON(w, res)
	}
}

func getAddress(s Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		network := chi.URLParam(r, "network")
		address := chi.URLParam(r, "address")
		a, ok, err := s.GetAddress(r.Context(), address, network)
		if err != nil {
			log.Error("httpapi: get failed", zap.Error(err))
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, a)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
