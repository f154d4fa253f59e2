package registry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Applier is the gateway side of a refresh: it reports the SDLs it currently serves
// and accepts a new set.
type Applier interface {
	SDLs() map[string]string
	Apply(sdls map[string]string) error
}

// Fetcher returns the SDL of every subgraph keyed by subgraph name.
type Fetcher func(ctx context.Context) (map[string]string, error)

// Registry keeps the gateway's supergraph in step with its subgraphs by re-fetching
// their SDLs on demand or on a fixed interval.
type Registry struct {
	applier  Applier
	fetch    Fetcher
	interval time.Duration
	logger   *zap.Logger

	// mu serializes refreshes so two fetches never race to Apply.
	mu sync.Mutex
}

func NewRegistry(applier Applier, fetch Fetcher, interval time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		applier:  applier,
		fetch:    fetch,
		interval: interval,
		logger:   logger,
	}
}

// Refresh fetches the SDLs and applies them when any of them changed. It reports
// whether a new supergraph was applied.
func (r *Registry) Refresh(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sdls, err := r.fetch(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch subgraph SDLs: %w", err)
	}

	if maps.Equal(sdls, r.applier.SDLs()) {
		return false, nil
	}

	if err := r.applier.Apply(sdls); err != nil {
		return false, fmt.Errorf("apply supergraph: %w", err)
	}
	return true, nil
}

// Start polls the subgraphs until ctx is done. It returns immediately when the
// interval is zero.
func (r *Registry) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			applied, err := r.Refresh(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					r.logger.Warn("schema poll failed", zap.Error(err))
				}
				continue
			}
			if applied {
				r.logger.Info("schema poll applied a new supergraph")
			}
		}
	}
}

type refreshResponse struct {
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// ServeHTTP triggers a refresh. The previous supergraph keeps serving when the
// refresh fails.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	applied, err := r.Refresh(req.Context())

	w.Header().Set("Content-Type", "application/json")
	resp := refreshResponse{Applied: applied}
	if err != nil {
		r.logger.Error("schema refresh failed", zap.Error(err))
		resp.Error = err.Error()
		w.WriteHeader(http.StatusBadGateway)
	}
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}
