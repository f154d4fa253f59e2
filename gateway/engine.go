package gateway

import (
	"context"
	"fmt"
	"net/http"

	graphqlDataSource "github.com/TykTechnologies/graphql-go-tools/pkg/engine/datasource/graphql_datasource"
	"github.com/TykTechnologies/graphql-go-tools/pkg/graphql"
	"github.com/jensneuse/abstractlogger"
	"github.com/n9te9/federation-gateway-bootstrap/federation"
)

// executionEngine bundles all read-only components required to serve GraphQL requests.
type executionEngine struct {
	engine     *graphql.ExecutionEngineV2
	supergraph *federation.Supergraph
}

// schemaStore holds the current set of raw SDLs and the pre-built engine.
// It is stored in an atomic pointer, so every value must be read-only after it is constructed.
type schemaStore struct {
	sdls   map[string]string // subgraph name → SDL string
	engine *executionEngine
}

// engineClients are the upstream clients handed to the federation engine.
type engineClients struct {
	http      *http.Client
	streaming *http.Client
}

type engineOptions struct {
	enableQueryBatching bool
}

// buildEngine composes a new supergraph from the given SDLs, in subgraph list order,
// and wraps it in an execution engine.
func buildEngine(ctx context.Context, logger abstractlogger.Logger, subGraphs federation.SubGraphs, sdls map[string]string, clients engineClients, opts engineOptions) (*executionEngine, error) {
	confs, err := federation.DataSourceConfigurations(subGraphs, sdls)
	if err != nil {
		return nil, err
	}

	supergraph, err := federation.Compose(confs)
	if err != nil {
		return nil, err
	}

	factoryOpts := []graphql.FederationEngineConfigFactoryOption{
		graphql.WithFederationHttpClient(clients.http),
		graphql.WithFederationStreamingClient(clients.streaming),
	}

	var factory *graphql.FederationEngineConfigFactory
	if opts.enableQueryBatching {
		factory = graphql.NewFederationEngineConfigFactory(confs, graphqlDataSource.NewBatchFactory(), factoryOpts...)
	} else {
		factory = graphql.NewFederationEngineConfigFactory(confs, nil, factoryOpts...)
	}
	if err := factory.SetMergedSchemaFromString(supergraph.SDL()); err != nil {
		return nil, err
	}

	conf, err := factory.EngineV2Configuration()
	if err != nil {
		return nil, fmt.Errorf("engine configuration: %w", err)
	}
	conf.EnableSingleFlight(true)
	if opts.enableQueryBatching {
		conf.EnableDataLoader(true)
	}

	engine, err := graphql.NewExecutionEngineV2(ctx, logger, conf)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &executionEngine{
		engine:     engine,
		supergraph: supergraph,
	}, nil
}

// copyMap returns a shallow copy of a string map.
func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
