package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/n9te9/federation-gateway-bootstrap/gateway"
	"github.com/n9te9/federation-gateway-bootstrap/registry"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Settings carries the process-level dependencies of Run.
type Settings struct {
	// Out receives the "Server ready at <url>" line.
	Out    io.Writer
	Logger *zap.Logger
}

// Run composes the supergraph of the configured subgraphs, listens on the configured
// port and serves until ctx is done. Failures before the listener is bound are
// returned as is; nothing is retried beyond the SDL fetch policy.
func Run(ctx context.Context, opt gateway.GatewayOption, settings Settings) error {
	if err := opt.Validate(); err != nil {
		return fmt.Errorf("invalid gateway option: %w", err)
	}

	logger := settings.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := settings.Out
	if out == nil {
		out = io.Discard
	}

	shutdownTracing, err := setupTracing(ctx, opt.ServiceName, opt.Opentelemetry.TracingSetting.Enable)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gw := gateway.NewGateway(ctx, opt, logger)
	fetch := gateway.NewSDLFetcher(opt, gw.HTTPClient())

	sdls, err := fetch(ctx)
	if err != nil {
		return fmt.Errorf("obtain subgraph SDLs: %w", err)
	}
	if err := gw.Apply(sdls); err != nil {
		return fmt.Errorf("compose supergraph: %w", err)
	}

	reg := registry.NewRegistry(gw, registry.Fetcher(fetch), opt.PollEvery(), logger)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", opt.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", opt.Port, err)
	}

	srv := &http.Server{
		Handler:           newHandler(opt, gw, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	readyURL := ReadyURL(ln.Addr().String(), opt.Endpoint)
	fmt.Fprintf(out, "Server ready at %s\n", readyURL)
	logger.Info("server ready",
		zap.String("url", readyURL),
		zap.Bool("subscriptions", opt.EnableSubscriptions),
		zap.Bool("static_schema", opt.IsStatic()),
	)

	go reg.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ReadyURL renders the address the server is reachable at. An unspecified host is
// shown as localhost.
func ReadyURL(addr, endpoint string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, ""
	}

	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	}

	u := url.URL{
		Scheme: "http",
		Host:   host,
		Path:   endpoint,
	}
	return u.String()
}
