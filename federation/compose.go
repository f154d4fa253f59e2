package federation

import (
	"fmt"
	"net/http"

	graphqlDataSource "github.com/TykTechnologies/graphql-go-tools/pkg/engine/datasource/graphql_datasource"
	"github.com/TykTechnologies/graphql-go-tools/pkg/graphql"
)

// DataSourceConfigurations turns the subgraph list and their SDLs into one federation
// data source per subgraph, in list order. Entities declaring several @key directives
// are handed to the engine with a single key.
func DataSourceConfigurations(subGraphs SubGraphs, sdls map[string]string) ([]graphqlDataSource.Configuration, error) {
	for _, sg := range subGraphs {
		if sdls[sg.Name] == "" {
			return nil, fmt.Errorf("missing SDL for subgraph %q", sg.Name)
		}
	}

	engineSDLs, err := singleKeySDLs(subGraphs, sdls)
	if err != nil {
		return nil, err
	}

	confs := make([]graphqlDataSource.Configuration, 0, len(subGraphs))
	for _, sg := range subGraphs {
		confs = append(confs, graphqlDataSource.Configuration{
			Fetch: graphqlDataSource.FetchConfiguration{
				URL:    sg.URL,
				Method: http.MethodPost,
			},
			Subscription: graphqlDataSource.SubscriptionConfiguration{
				URL: sg.WebsocketURL(),
			},
			Federation: graphqlDataSource.FederationConfiguration{
				Enabled:    true,
				ServiceSDL: engineSDLs[sg.Name],
			},
		})
	}

	return confs, nil
}

// Supergraph is the schema composed from every subgraph SDL.
type Supergraph struct {
	Schema *graphql.Schema
}

func (s *Supergraph) SDL() string {
	return string(s.Schema.Document())
}

// Compose merges the subgraph SDLs of confs into one supergraph schema.
func Compose(confs []graphqlDataSource.Configuration) (*Supergraph, error) {
	if len(confs) == 0 {
		return nil, ErrNoSubGraphs
	}

	factory := graphql.NewFederationEngineConfigFactory(confs, nil)
	schema, err := factory.MergedSchema()
	if err != nil {
		return nil, fmt.Errorf("composition failed: %w", err)
	}

	return &Supergraph{Schema: schema}, nil
}
