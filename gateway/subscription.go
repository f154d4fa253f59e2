package gateway

import (
	"net/http"

	gqlhttp "github.com/TykTechnologies/graphql-go-tools/pkg/http"
	"github.com/TykTechnologies/graphql-go-tools/pkg/subscription"
	"go.uber.org/zap"
)

// serveWebsocket upgrades the connection and hands it to the engine's graphql-ws
// handler. It blocks until the subscription session ends.
func (g *Gateway) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	if !g.enableSubscriptions {
		writeError(w, http.StatusBadRequest, "subscriptions are disabled on this gateway", codeSubscriptionsDisabled)
		return
	}

	store := g.store.Load()
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, ErrNotReady.Error(), codeNotReady)
		return
	}

	header := make(http.Header)
	header.Set("Sec-WebSocket-Protocol", graphqlWebsocketSubprotocol)

	conn, err := g.upgrader.Upgrade(w, r, header)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	executorPool := subscription.NewExecutorV2Pool(store.engine.engine, subscription.NewInitialHttpRequestContext(r))

	done := make(chan bool)
	errChan := make(chan error)
	go gqlhttp.HandleWebsocket(done, errChan, conn.UnderlyingConn(), executorPool, g.engineLog)

	select {
	case err := <-errChan:
		g.logger.Error("could not start graphql websocket handler", zap.Error(err))
	case <-done:
	}
}
