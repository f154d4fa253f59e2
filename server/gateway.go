package server

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/n9te9/federation-gateway-bootstrap/gateway"
	"github.com/n9te9/federation-gateway-bootstrap/registry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	refreshPath = "/schema/refresh"
	healthPath  = "/health"
)

// newHandler routes the GraphQL endpoint, the schema refresh endpoint and the health
// check.
func newHandler(opt gateway.GatewayOption, gw *gateway.Gateway, reg *registry.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(opt.Endpoint, gw)
	mux.Handle(refreshPath, reg)
	mux.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if !gw.Ready() {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status}) //nolint:errcheck
	})

	var h http.Handler = withRequestID(mux)
	if opt.Opentelemetry.TracingSetting.Enable {
		h = otelhttp.NewHandler(h, opt.ServiceName)
	}
	return h
}
