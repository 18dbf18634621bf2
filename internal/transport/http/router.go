// Package httptransport assembles the public router from the domain handlers.
// Transport concerns only; business logic stays in the service packages.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	parcelhandler "ardhi/internal/parcel/handler"
	transferhandler "ardhi/internal/transfer/handler"
	"ardhi/pkg/platform/middleware/metadata"
)

// NewRouter mounts the parcel and transfer APIs plus the operational
// endpoints. Client metadata is captured before any domain routing so access
// logs carry the originating IP even behind a proxy.
func NewRouter(parcels *parcelhandler.Handler, transfers *transferhandler.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)

	parcels.Register(r)
	transfers.Register(r)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
