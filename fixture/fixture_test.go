package fixture_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/n9te9/federation-gateway-bootstrap/federation"
	"github.com/n9te9/federation-gateway-bootstrap/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphqlResponse struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func query(t *testing.T, h http.Handler, body string) graphqlResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp graphqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestNewSubgraph(t *testing.T) {
	for _, name := range fixture.Names() {
		sg, err := fixture.NewSubgraph(name)
		require.NoError(t, err)
		assert.Equal(t, name, sg.Name())
		assert.NotEmpty(t, sg.SDL())
	}

	_, err := fixture.NewSubgraph("service_e")
	assert.ErrorIs(t, err, fixture.ErrUnknownSubgraph)
}

func TestNames_MatchDefaultSubGraphs(t *testing.T) {
	assert.Equal(t, federation.DefaultSubGraphs().Names(), fixture.Names())
}

func TestServiceSDL(t *testing.T) {
	sg, err := fixture.NewSubgraph("service_b")
	require.NoError(t, err)

	resp := query(t, sg, `{"query":"query { _service { sdl } }"}`)
	require.Empty(t, resp.Errors)

	service, ok := resp.Data["_service"].(map[string]any)
	require.True(t, ok)
	sdl, _ := service["sdl"].(string)
	assert.Contains(t, sdl, `type User @key(fields: "primaryEmail") @key(fields: "id")`)
	assert.Contains(t, sdl, `type FileNode @key(fields: "id")`)
}

func TestRootFields(t *testing.T) {
	sg, err := fixture.NewSubgraph("service_a")
	require.NoError(t, err)

	resp := query(t, sg, `{"query":"{goodbye}"}`)
	require.Empty(t, resp.Errors)
	assert.Equal(t, map[string]any{"goodbye": "See ya!"}, resp.Data)

	resp = query(t, sg, `{"query":"{ goodbye posts { id } }"}`)
	require.Empty(t, resp.Errors)
	posts, ok := resp.Data["posts"].([]any)
	require.True(t, ok)
	assert.Len(t, posts, 4)
}

func TestRootFields_Selection(t *testing.T) {
	sg, err := fixture.NewSubgraph("service_a")
	require.NoError(t, err)

	resp := query(t, sg, `{"query":"{ posts { author { __typename id } files { id } } }"}`)
	require.Empty(t, resp.Errors)

	want := []any{
		map[string]any{"author": nil, "files": []any{map[string]any{"id": float64(1)}}},
		map[string]any{"author": nil, "files": []any{map[string]any{"id": float64(2)}, map[string]any{"id": float64(3)}}},
		map[string]any{"author": nil, "files": nil},
		map[string]any{"author": map[string]any{"__typename": "User", "id": float64(1001)}, "files": []any{}},
	}
	assert.Equal(t, want, resp.Data["posts"])
}

func TestRootFields_Alias(t *testing.T) {
	sg, err := fixture.NewSubgraph("service_c")
	require.NoError(t, err)

	resp := query(t, sg, `{"query":"{ list: articles { articleId: id author { id } } }"}`)
	require.Empty(t, resp.Errors)
	assert.Equal(t, map[string]any{
		"list": []any{
			map[string]any{"articleId": float64(1), "author": map[string]any{"id": float64(5)}},
		},
	}, resp.Data)
}

func TestRootFields_Unknown(t *testing.T) {
	sg, err := fixture.NewSubgraph("service_a")
	require.NoError(t, err)

	assert.NotEmpty(t, query(t, sg, `{"query":"{ articles { id } }"}`).Errors)
	assert.NotEmpty(t, query(t, sg, `{"query":"{ goodbye"}`).Errors)
}

func TestMutation(t *testing.T) {
	sg, err := fixture.NewSubgraph("service_b")
	require.NoError(t, err)

	resp := query(t, sg, `{"query":"mutation { funnyMutation { result } }"}`)
	require.Empty(t, resp.Errors)
	assert.Equal(t, map[string]any{"result": "Funny"}, resp.Data["funnyMutation"])

	resp = query(t, sg, `{"query":"mutation { __typename funnyMutation { __typename } }"}`)
	require.Empty(t, resp.Errors)
	assert.Equal(t, "Mutation", resp.Data["__typename"])
	assert.Equal(t, map[string]any{"__typename": "FunnyMutationResult"}, resp.Data["funnyMutation"])

	a, err := fixture.NewSubgraph("service_a")
	require.NoError(t, err)
	assert.NotEmpty(t, query(t, a, `{"query":"mutation { funnyMutation { result } }"}`).Errors)
}

func TestEntities(t *testing.T) {
	tests := []struct {
		name    string
		service string
		body    string
		want    []any
	}{
		{
			name:    "user by id",
			service: "service_b",
			body:    `{"query":"query($representations: [_Any!]!) { _entities(representations: $representations) { ... on User { primaryEmail } } }","variables":{"representations":[{"__typename":"User","id":1001}]}}`,
			want: []any{
				map[string]any{"primaryEmail": "frank@frank.com"},
			},
		},
		{
			name:    "user by primary email",
			service: "service_b",
			body:    `{"query":"query($representations: [_Any!]!) { _entities(representations: $representations) { __typename ... on User { id } } }","variables":{"representations":[{"__typename":"User","primaryEmail":"name_5@gmail.com"}]}}`,
			want: []any{
				map[string]any{"__typename": "User", "id": float64(5)},
			},
		},
		{
			name:    "batched files with a miss",
			service: "service_b",
			body:    `{"query":"query($representations: [_Any!]!) { _entities(representations: $representations) { ... on FileNode { name } } }","variables":{"representations":[{"__typename":"FileNode","id":2},{"__typename":"FileNode","id":99}]}}`,
			want: []any{
				map[string]any{"name": "file_2"},
				nil,
			},
		},
		{
			name:    "requires primary email",
			service: "service_c",
			body:    `{"query":"query($representations: [_Any!]!) { _entities(representations: $representations) { ... on User { uppercaseEmail } } }","variables":{"representations":[{"__typename":"User","id":5,"primaryEmail":"name_5@gmail.com"}]}}`,
			want: []any{
				map[string]any{"uppercaseEmail": "NAME_5@GMAIL.COM"},
			},
		},
		{
			name:    "requires falls back to the known user",
			service: "service_c",
			body:    `{"query":"query($representations: [_Any!]!) { _entities(representations: $representations) { ... on User { __typename uppercaseEmail } } }","variables":{"representations":[{"__typename":"User","id":1001}]}}`,
			want: []any{
				map[string]any{"__typename": "User", "uppercaseEmail": "FRANK@FRANK.COM"},
			},
		},
		{
			name:    "fragment on another type selects nothing",
			service: "service_b",
			body:    `{"query":"query($representations: [_Any!]!) { _entities(representations: $representations) { ... on FileNode { name } } }","variables":{"representations":[{"__typename":"User","id":5}]}}`,
			want: []any{
				map[string]any{},
			},
		},
		{
			name:    "funny text color",
			service: "service_d",
			body:    `{"query":"query($representations: [_Any!]!) { _entities(representations: $representations) { ... on FunnyText { color } } }","variables":{"representations":[{"__typename":"FunnyText","id":1}]}}`,
			want: []any{
				map[string]any{"color": float64(3)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sg, err := fixture.NewSubgraph(tt.service)
			require.NoError(t, err)

			resp := query(t, sg, tt.body)
			require.Empty(t, resp.Errors)
			assert.Equal(t, tt.want, resp.Data["_entities"])
		})
	}
}

func TestEntities_UnknownType(t *testing.T) {
	sg, err := fixture.NewSubgraph("service_d")
	require.NoError(t, err)

	resp := query(t, sg, `{"query":"{ _entities(representations: $r) { __typename } }","variables":{"representations":[{"__typename":"User","id":5}]}}`)
	assert.NotEmpty(t, resp.Errors)
}

func TestHealth(t *testing.T) {
	sg, err := fixture.NewSubgraph("service_c")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	sg.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"service_c"}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	sg, err := fixture.NewSubgraph("service_a")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	sg.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSDLs_Compose(t *testing.T) {
	subGraphs := federation.DefaultSubGraphs()
	confs, err := federation.DataSourceConfigurations(subGraphs, fixture.SDLs())
	require.NoError(t, err)

	supergraph, err := federation.Compose(confs)
	require.NoError(t, err)

	sdl := supergraph.SDL()
	for _, field := range []string{"goodbye", "posts", "articles", "funnyMutation", "uppercaseEmail", "color"} {
		assert.Contains(t, sdl, field)
	}
}
