package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/TykTechnologies/graphql-go-tools/pkg/graphql"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/jensneuse/abstractlogger"
	"github.com/n9te9/federation-gateway-bootstrap/federation"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	codeBadRequest              = "BAD_REQUEST"
	codeNotReady                = "GATEWAY_NOT_READY"
	codeSubscriptionsDisabled   = "SUBSCRIPTIONS_DISABLED"
	graphqlWebsocketSubprotocol = "graphql-ws"
)

var ErrNotReady = errors.New("gateway has no composed schema yet")

// Gateway serves the composed supergraph. The execution engine is swapped atomically
// whenever Apply succeeds, so in-flight requests keep the engine they started with.
type Gateway struct {
	serviceName string
	subGraphs   federation.SubGraphs
	clients     engineClients
	engineCtx   context.Context
	logger      *zap.Logger
	engineLog   abstractlogger.Logger
	store       atomic.Pointer[schemaStore]
	upgrader    websocket.Upgrader

	enableHangOverRequestHeader bool
	enableSubscriptions         bool
	enableQueryBatching         bool
}

var _ http.Handler = (*Gateway)(nil)

// NewGateway prepares a gateway for the services in settings. No engine is built until
// Apply is called with their SDLs.
func NewGateway(ctx context.Context, settings GatewayOption, logger *zap.Logger) *Gateway {
	httpClient := &http.Client{
		Timeout: settings.Timeout(),
	}
	streamingClient := &http.Client{}

	if settings.Opentelemetry.TracingSetting.Enable {
		httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
		streamingClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	return &Gateway{
		serviceName: settings.ServiceName,
		subGraphs:   settings.SubGraphs(),
		clients: engineClients{
			http:      httpClient,
			streaming: streamingClient,
		},
		engineCtx: ctx,
		logger:    logger,
		engineLog: abstractlogger.NewZapLogger(logger, abstractLevel(logger)),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		enableHangOverRequestHeader: settings.EnableHangOverRequestHeader,
		enableSubscriptions:         settings.EnableSubscriptions,
		enableQueryBatching:         settings.EnableQueryBatching,
	}
}

// HTTPClient is the client used for subgraph fetches.
func (g *Gateway) HTTPClient() *http.Client {
	return g.clients.http
}

// Apply composes sdls into a new supergraph and makes it the one being served.
// On failure the previously applied supergraph stays in place.
func (g *Gateway) Apply(sdls map[string]string) error {
	engine, err := buildEngine(g.engineCtx, g.engineLog, g.subGraphs, sdls, g.clients, engineOptions{
		enableQueryBatching: g.enableQueryBatching,
	})
	if err != nil {
		return err
	}

	g.store.Store(&schemaStore{
		sdls:   copyMap(sdls),
		engine: engine,
	})
	g.logger.Info("supergraph applied",
		zap.String("service", g.serviceName),
		zap.Strings("subgraphs", g.subGraphs.Names()),
	)
	return nil
}

// SDLs returns a copy of the SDLs the current supergraph was composed from.
func (g *Gateway) SDLs() map[string]string {
	s := g.store.Load()
	if s == nil {
		return nil
	}
	return copyMap(s.sdls)
}

// Supergraph returns the schema currently served, or ErrNotReady.
func (g *Gateway) Supergraph() (*federation.Supergraph, error) {
	s := g.store.Load()
	if s == nil {
		return nil, ErrNotReady
	}
	return s.engine.supergraph, nil
}

func (g *Gateway) Ready() bool {
	return g.store.Load() != nil
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && websocket.IsWebSocketUpgrade(r) {
		g.serveWebsocket(w, r)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	store := g.store.Load()
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, ErrNotReady.Error(), codeNotReady)
		return
	}

	var req graphql.Request
	if err := graphql.UnmarshalRequest(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), codeBadRequest)
		return
	}

	if !g.enableSubscriptions {
		if opType, err := req.OperationType(); err == nil && opType == graphql.OperationTypeSubscription {
			writeError(w, http.StatusOK, "subscriptions are disabled on this gateway", codeSubscriptionsDisabled)
			return
		}
	}

	var opts []graphql.ExecutionOptionsV2
	if g.enableHangOverRequestHeader {
		opts = append(opts, graphql.WithHeaderModifier(hangOverHeaders(r.Header)))
	}

	resultWriter := graphql.NewEngineResultWriter()
	if err := store.engine.engine.Execute(r.Context(), &req, &resultWriter, opts...); err != nil {
		g.logger.Debug("execution failed", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		if _, werr := graphql.RequestErrorsFromError(err).WriteResponse(w); werr != nil {
			g.logger.Error("write error response", zap.Error(werr))
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resultWriter.Bytes()); err != nil {
		g.logger.Error("write response", zap.Error(err))
	}
}

// hopHeaders are never forwarded to subgraphs.
var hopHeaders = map[string]struct{}{
	"Connection":        {},
	"Content-Length":    {},
	"Content-Type":      {},
	"Accept-Encoding":   {},
	"Keep-Alive":        {},
	"Te":                {},
	"Trailer":           {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
}

// hangOverHeaders returns a modifier that copies the client's request headers onto
// every subgraph request.
func hangOverHeaders(incoming http.Header) func(header http.Header) {
	return func(header http.Header) {
		for k, values := range incoming {
			if _, skip := hopHeaders[http.CanonicalHeaderKey(k)]; skip {
				continue
			}
			header.Del(k)
			for _, v := range values {
				header.Add(k, v)
			}
		}
	}
}

type graphQLError struct {
	Message    string            `json:"message"`
	Extensions map[string]string `json:"extensions,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"errors": []graphQLError{
			{
				Message:    message,
				Extensions: map[string]string{"code": code},
			},
		},
	})
}

func abstractLevel(logger *zap.Logger) abstractlogger.Level {
	switch {
	case logger.Core().Enabled(zap.DebugLevel):
		return abstractlogger.DebugLevel
	case logger.Core().Enabled(zap.InfoLevel):
		return abstractlogger.InfoLevel
	case logger.Core().Enabled(zap.WarnLevel):
		return abstractlogger.WarnLevel
	default:
		return abstractlogger.ErrorLevel
	}
}
