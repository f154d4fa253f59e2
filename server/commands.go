package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/n9te9/federation-gateway-bootstrap/federation"
	"github.com/n9te9/federation-gateway-bootstrap/gateway"
)

// DefaultConfigPath is the config file written by Init and read by the CLI when no
// --config flag is given and the file exists.
const DefaultConfigPath = "federation-gateway.yaml"

var ErrConfigExists = errors.New("config file already exists")

// Init writes the default gateway option to path. An existing file is left untouched.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	b, err := gateway.DefaultGatewayOption().Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Compose obtains the SDLs of every subgraph and returns the composed supergraph SDL
// without starting a server.
func Compose(ctx context.Context, opt gateway.GatewayOption) (string, error) {
	if err := opt.Validate(); err != nil {
		return "", fmt.Errorf("invalid gateway option: %w", err)
	}

	sdls, err := gateway.NewSDLFetcher(opt, &http.Client{Timeout: opt.Timeout()})(ctx)
	if err != nil {
		return "", fmt.Errorf("obtain subgraph SDLs: %w", err)
	}

	confs, err := federation.DataSourceConfigurations(opt.SubGraphs(), sdls)
	if err != nil {
		return "", err
	}
	supergraph, err := federation.Compose(confs)
	if err != nil {
		return "", err
	}
	return supergraph.SDL(), nil
}

// Check probes every subgraph with the service definition query and writes one line per
// subgraph to out. It fails when any subgraph did not answer with an SDL.
func Check(ctx context.Context, opt gateway.GatewayOption, out io.Writer) error {
	if err := opt.Validate(); err != nil {
		return fmt.Errorf("invalid gateway option: %w", err)
	}

	client := &http.Client{Timeout: opt.Timeout()}
	var failed []string
	for _, sg := range opt.SubGraphs() {
		_, err := gateway.Introspect(ctx, federation.SubGraphs{sg}, client, opt.Retry)
		if err != nil {
			failed = append(failed, sg.Name)
			fmt.Fprintf(out, "%-12s FAIL %s: %v\n", sg.Name, sg.URL, err)
			continue
		}
		fmt.Fprintf(out, "%-12s ok   %s\n", sg.Name, sg.URL)
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d subgraphs unreachable: %v", len(failed), len(opt.Services), failed)
	}
	return nil
}
