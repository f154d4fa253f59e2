// Package fixture provides in-process stand-ins for the four integration subgraphs
// service_a to service_d. Each one answers the federation introspection query,
// `_entities` lookups and its own root fields from canned data.
//
// The handlers do not execute GraphQL resolvers. They parse the operation and answer
// its selection set out of canned data.
package fixture

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/TykTechnologies/graphql-go-tools/pkg/ast"
	"github.com/TykTechnologies/graphql-go-tools/pkg/astparser"
	"github.com/goccy/go-json"
)

var ErrUnknownSubgraph = errors.New("unknown subgraph")

// entityResolver returns the entity for one `_entities` representation, or nil when
// the subgraph does not know it.
type entityResolver func(representation map[string]any) map[string]any

// Subgraph is a fixture subgraph server.
type Subgraph struct {
	name      string
	sdl       string
	query     map[string]any
	mutation  map[string]any
	resolvers map[string]entityResolver
}

var _ http.Handler = (*Subgraph)(nil)

// Names lists the fixture subgraphs in the order the gateway composes them.
func Names() []string {
	return []string{"service_a", "service_b", "service_c", "service_d"}
}

func NewSubgraph(name string) (*Subgraph, error) {
	switch name {
	case "service_a":
		return serviceA(), nil
	case "service_b":
		return serviceB(), nil
	case "service_c":
		return serviceC(), nil
	case "service_d":
		return serviceD(), nil
	default:
		return nil, fmt.Errorf("%w %q, want one of %s", ErrUnknownSubgraph, name, strings.Join(Names(), ", "))
	}
}

// SDLs returns the SDL of every fixture subgraph keyed by name.
func SDLs() map[string]string {
	out := make(map[string]string, len(Names()))
	for _, name := range Names() {
		sg, _ := NewSubgraph(name)
		out[name] = sg.SDL()
	}
	return out
}

func (s *Subgraph) Name() string {
	return s.name
}

func (s *Subgraph) SDL() string {
	return s.sdl
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type response struct {
	Data   any             `json:"data"`
	Errors []responseError `json:"errors,omitempty"`
}

type responseError struct {
	Message string `json:"message"`
}

func (s *Subgraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "service": s.name}) //nolint:errcheck
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "failed to decode request", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.resolve(req)) //nolint:errcheck
}

func (s *Subgraph) resolve(req request) response {
	doc, report := astparser.ParseGraphqlDocumentString(req.Query)
	if report.HasErrors() {
		return errorResponse(fmt.Sprintf("%s: parse query: %s", s.name, report.Error()))
	}
	if len(doc.OperationDefinitions) == 0 {
		return errorResponse(s.name + ": no operation in request")
	}

	op := doc.OperationDefinitions[0]
	root, typename := s.query, "Query"
	if op.OperationType == ast.OperationTypeMutation {
		root, typename = s.mutation, "Mutation"
	}

	data := make(map[string]any)
	for _, ref := range doc.SelectionSets[op.SelectionSet].SelectionRefs {
		sel := doc.Selections[ref]
		if sel.Kind != ast.SelectionKindField {
			continue
		}
		field := doc.Fields[sel.Ref]
		name := doc.FieldNameString(sel.Ref)

		var value any
		switch name {
		case "__typename":
			value = typename
		case "_service":
			value = map[string]any{"sdl": s.sdl}
		case "_entities":
			entities, err := s.entities(req.Variables)
			if err != nil {
				return errorResponse(err.Error())
			}
			value = entities
		default:
			v, ok := root[name]
			if !ok {
				return errorResponse(fmt.Sprintf("%s: cannot query field %q on %s", s.name, name, typename))
			}
			value = v
		}

		if field.HasSelections {
			value = project(&doc, field.SelectionSet, value)
		}
		data[responseKey(&doc, sel.Ref)] = value
	}

	return response{Data: data}
}

func (s *Subgraph) entities(variables map[string]any) ([]any, error) {
	reps, _ := variables["representations"].([]any)

	out := make([]any, 0, len(reps))
	for _, raw := range reps {
		rep, _ := raw.(map[string]any)
		typename, _ := rep["__typename"].(string)

		resolver, ok := s.resolvers[typename]
		if !ok {
			return nil, fmt.Errorf("%s does not resolve %q", s.name, typename)
		}

		entity := resolver(rep)
		if entity == nil {
			out = append(out, nil)
			continue
		}
		entity["__typename"] = typename
		out = append(out, entity)
	}

	return out, nil
}

// project keeps only the fields the selection set asks for. Lists are projected
// element by element; inline fragments apply when their type condition matches the
// object's __typename.
func project(doc *ast.Document, selectionSet int, value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any)
		selectFields(doc, selectionSet, v, out)
		return out
	case []map[string]any:
		if v == nil {
			return nil
		}
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, project(doc, selectionSet, item))
		}
		return out
	case []any:
		if v == nil {
			return nil
		}
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, project(doc, selectionSet, item))
		}
		return out
	default:
		return v
	}
}

func selectFields(doc *ast.Document, selectionSet int, object, out map[string]any) {
	for _, ref := range doc.SelectionSets[selectionSet].SelectionRefs {
		sel := doc.Selections[ref]
		switch sel.Kind {
		case ast.SelectionKindField:
			field := doc.Fields[sel.Ref]
			value := object[doc.FieldNameString(sel.Ref)]
			if field.HasSelections {
				value = project(doc, field.SelectionSet, value)
			}
			out[responseKey(doc, sel.Ref)] = value
		case ast.SelectionKindInlineFragment:
			fragment := doc.InlineFragments[sel.Ref]
			condition := doc.InlineFragmentTypeConditionNameString(sel.Ref)
			if !fragment.HasSelections || (condition != "" && condition != object["__typename"]) {
				continue
			}
			selectFields(doc, fragment.SelectionSet, object, out)
		}
	}
}

func responseKey(doc *ast.Document, field int) string {
	if doc.FieldAliasIsDefined(field) {
		return string(doc.FieldAliasBytes(field))
	}
	return doc.FieldNameString(field)
}

func errorResponse(message string) response {
	return response{Errors: []responseError{{Message: message}}}
}

// key renders a representation field so that ids decoded as float64 and ids written
// as int compare equal.
func key(rep map[string]any, field string) string {
	v, ok := rep[field]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// byKey builds a resolver over a table of entities indexed by the given key fields.
func byKey(table []map[string]any, fields ...string) entityResolver {
	return func(rep map[string]any) map[string]any {
		for _, field := range fields {
			want := key(rep, field)
			if want == "" {
				continue
			}
			idx := slices.IndexFunc(table, func(e map[string]any) bool {
				return key(e, field) == want
			})
			if idx >= 0 {
				return maps.Clone(table[idx])
			}
		}
		return nil
	}
}
