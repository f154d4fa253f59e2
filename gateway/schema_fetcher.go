package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/n9te9/federation-gateway-bootstrap/federation"
	"golang.org/x/sync/errgroup"
)

// serviceDefinitionQuery is the request body sent to every subgraph to obtain its SDL.
const serviceDefinitionQuery = `{"query":"query __ApolloGetServiceDefinition__ { _service { sdl } }","operationName":"__ApolloGetServiceDefinition__","variables":{}}`

// serviceSDLResponse is the response body from a subgraph's GraphQL endpoint
// when queried with `{ _service { sdl } }`.
type serviceSDLResponse struct {
	Data struct {
		Service struct {
			SDL string `json:"sdl"`
		} `json:"_service"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

// RetryOption defines the retry configuration for SDL fetching.
type RetryOption struct {
	Attempts int    `yaml:"attempts"`
	Timeout  string `yaml:"timeout"`
	// Interval is the first backoff delay; it doubles after every failed attempt.
	Interval string `yaml:"interval,omitempty"`
}

func (r RetryOption) attempts() int {
	if r.Attempts <= 0 {
		return 1
	}
	return r.Attempts
}

func (r RetryOption) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = parseDurationOr(r.Interval, 100*time.Millisecond)
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.attempts()-1)), ctx)
}

// SDLFetcher returns the SDL of every subgraph keyed by subgraph name.
type SDLFetcher func(ctx context.Context) (map[string]string, error)

// Introspect fetches the SDL of every subgraph concurrently. The first failure cancels
// the remaining fetches.
func Introspect(ctx context.Context, subGraphs federation.SubGraphs, httpClient *http.Client, retry RetryOption) (map[string]string, error) {
	var mu sync.Mutex
	sdls := make(map[string]string, len(subGraphs))

	eg, ctx := errgroup.WithContext(ctx)
	for _, sg := range subGraphs {
		eg.Go(func() error {
			sdl, err := fetchSDL(ctx, sg.URL, httpClient, retry)
			if err != nil {
				return fmt.Errorf("subgraph %q: %w", sg.Name, err)
			}

			mu.Lock()
			sdls[sg.Name] = sdl
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return sdls, nil
}

// NewSDLFetcher picks the SDL source for the option: schema files when every service
// ships them, introspection otherwise.
func NewSDLFetcher(opt GatewayOption, httpClient *http.Client) SDLFetcher {
	if opt.IsStatic() {
		return func(context.Context) (map[string]string, error) {
			return readSchemaFiles(opt.Services)
		}
	}

	subGraphs := opt.SubGraphs()
	return func(ctx context.Context) (map[string]string, error) {
		return Introspect(ctx, subGraphs, httpClient, opt.Retry)
	}
}

func readSchemaFiles(services []GatewayService) (map[string]string, error) {
	sdls := make(map[string]string, len(services))
	for _, s := range services {
		var schema []byte
		for _, f := range s.SchemaFiles {
			src, err := os.ReadFile(f)
			if err != nil {
				return nil, err
			}
			schema = append(schema, src...)
			schema = append(schema, '\n')
		}
		sdls[s.Name] = string(schema)
	}
	return sdls, nil
}

// fetchSDL fetches the SDL by sending { _service { sdl } } to the subgraph's GraphQL
// endpoint (host). It retries up to the configured attempts, each with a per-attempt timeout.
func fetchSDL(ctx context.Context, host string, httpClient *http.Client, retry RetryOption) (string, error) {
	timeout := parseDurationOr(retry.Timeout, 5*time.Second)

	var sdl string
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var err error
		sdl, err = doFetchSDL(ctx, host, httpClient, timeout)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, retry.backOff(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to fetch SDL from %s after %d attempt(s): %w", host, attempt, err)
	}

	return sdl, nil
}

// doFetchSDL performs a single SDL fetch attempt with the given timeout.
func doFetchSDL(ctx context.Context, host string, httpClient *http.Client, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host, bytes.NewBufferString(serviceDefinitionQuery))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, host)
	}

	var svcResp serviceSDLResponse
	if err := json.NewDecoder(resp.Body).Decode(&svcResp); err != nil {
		return "", fmt.Errorf("failed to decode SDL response: %w", err)
	}

	if len(svcResp.Errors) > 0 {
		msgs := make([]string, 0, len(svcResp.Errors))
		for _, e := range svcResp.Errors {
			msgs = append(msgs, e.Message)
		}
		return "", fmt.Errorf("subgraph returned errors: %s", strings.Join(msgs, "; "))
	}

	if svcResp.Data.Service.SDL == "" {
		return "", fmt.Errorf("empty SDL returned from %s", host)
	}

	return svcResp.Data.Service.SDL, nil
}
