// Command mock-subgraph serves one of the fixture subgraphs service_a to service_d.
//
// Usage:
//
//	mock-subgraph --name service_a --addr :3000
//
// The GraphQL endpoint is /graphql; /health reports liveness.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/n9te9/federation-gateway-bootstrap/fixture"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var (
		name string
		addr string
	)

	cmd := &cobra.Command{
		Use:          "mock-subgraph",
		Short:        "Serve a fixture subgraph",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sg, err := fixture.NewSubgraph(name)
			if err != nil {
				return err
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			mux := http.NewServeMux()
			mux.Handle("/graphql", sg)
			mux.Handle("/health", sg)

			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, os.Interrupt)
			defer stop()

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx) //nolint:errcheck
			}()

			logger.Info("subgraph listening", zap.String("name", sg.Name()), zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", sg.Name(), err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "service_a", "fixture subgraph to serve")
	cmd.Flags().StringVar(&addr, "addr", ":3000", "listen address")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
