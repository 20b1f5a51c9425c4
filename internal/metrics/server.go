package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edvin/fleetctl/internal/model"
)

// GrantLister exposes the grants currently held open by this process.
type GrantLister interface {
	Grants() []model.FleetAccessGrant
}

// NewServer creates an HTTP server serving /metrics (Prometheus), /healthz and
// /grants. gatherer may be nil to use the default registry.
func NewServer(addr string, gatherer prometheus.Gatherer, grants GrantLister) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: NewRouter(gatherer, grants),
	}
}

// NewRouter builds the status routes without binding a listener.
func NewRouter(gatherer prometheus.Gatherer, grants GrantLister) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/grants", func(w http.ResponseWriter, r *http.Request) {
		list := []model.FleetAccessGrant{}
		if grants != nil {
			list = append(list, grants.Grants()...)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items": list,
			"count": len(list),
		})
	})
	return r
}
