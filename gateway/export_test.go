package gateway

import (
	"context"
	"net/http"

	"github.com/jensneuse/abstractlogger"
	"github.com/n9te9/federation-gateway-bootstrap/federation"
)

func FetchSDLForTest(host string, httpClient *http.Client, retry RetryOption) (string, error) {
	return fetchSDL(context.Background(), host, httpClient, retry)
}

func BuildEngineForTest(subGraphs federation.SubGraphs, sdls map[string]string, httpClient *http.Client) (*federation.Supergraph, error) {
	engine, err := buildEngine(context.Background(), abstractlogger.NoopLogger, subGraphs, sdls, engineClients{
		http:      httpClient,
		streaming: httpClient,
	}, engineOptions{enableQueryBatching: true})
	if err != nil {
		return nil, err
	}
	return engine.supergraph, nil
}

func CopyMapForTest(m map[string]string) map[string]string {
	return copyMap(m)
}

func HangOverHeadersForTest(incoming http.Header) func(http.Header) {
	return hangOverHeaders(incoming)
}
