package federation

import (
	"fmt"
	"slices"

	"github.com/TykTechnologies/graphql-go-tools/pkg/ast"
	"github.com/TykTechnologies/graphql-go-tools/pkg/astparser"
	"github.com/TykTechnologies/graphql-go-tools/pkg/astprinter"
)

const keyDirectiveName = "key"

var fieldsArgumentName = []byte("fields")

// entityKeys is one object type (definition or extension) of one subgraph and the
// @key directives it declares.
type entityKeys struct {
	subgraph   string
	typeName   string
	definition *ast.ObjectTypeDefinition
	directives []int
	fields     []string
}

// singleKeySDLs rewrites SDLs in which an entity declares more than one @key so that
// each entity keeps a single key. The engine plans entity fetches over one key per
// type and rejects operations on types carrying several. The key other subgraphs
// reference the entity by is kept; without one, the first key is kept.
// SDLs that need no rewrite are returned unchanged.
func singleKeySDLs(subGraphs SubGraphs, sdls map[string]string) (map[string]string, error) {
	docs := make(map[string]*ast.Document, len(subGraphs))
	var entities []entityKeys

	for _, sg := range subGraphs {
		doc, report := astparser.ParseGraphqlDocumentString(sdls[sg.Name])
		if report.HasErrors() {
			return nil, fmt.Errorf("subgraph %q: parse SDL: %s", sg.Name, report.Error())
		}
		docs[sg.Name] = &doc
		entities = append(entities, collectEntityKeys(sg.Name, &doc)...)
	}

	out := make(map[string]string, len(sdls))
	for name, sdl := range sdls {
		out[name] = sdl
	}

	rewritten := make(map[string]struct{})
	for _, e := range entities {
		if len(e.fields) < 2 {
			continue
		}

		keep := 0
		if i := slices.IndexFunc(e.fields, func(fields string) bool {
			return referencedElsewhere(entities, e, fields)
		}); i >= 0 {
			keep = i
		}

		e.definition.Directives.Refs = slices.DeleteFunc(e.definition.Directives.Refs, func(ref int) bool {
			i := slices.Index(e.directives, ref)
			return i >= 0 && i != keep
		})
		e.definition.HasDirectives = len(e.definition.Directives.Refs) > 0
		rewritten[e.subgraph] = struct{}{}
	}

	for name := range rewritten {
		printed, err := astprinter.PrintString(docs[name], nil)
		if err != nil {
			return nil, fmt.Errorf("subgraph %q: print SDL: %w", name, err)
		}
		out[name] = printed
	}

	return out, nil
}

func collectEntityKeys(subgraph string, doc *ast.Document) []entityKeys {
	definitions := make([]*ast.ObjectTypeDefinition, 0, len(doc.ObjectTypeDefinitions)+len(doc.ObjectTypeExtensions))
	for i := range doc.ObjectTypeDefinitions {
		definitions = append(definitions, &doc.ObjectTypeDefinitions[i])
	}
	for i := range doc.ObjectTypeExtensions {
		definitions = append(definitions, &doc.ObjectTypeExtensions[i].ObjectTypeDefinition)
	}

	var out []entityKeys
	for _, def := range definitions {
		e := entityKeys{
			subgraph:   subgraph,
			typeName:   doc.Input.ByteSliceString(def.Name),
			definition: def,
		}
		for _, ref := range def.Directives.Refs {
			if fields, ok := keyFields(doc, ref); ok {
				e.directives = append(e.directives, ref)
				e.fields = append(e.fields, fields)
			}
		}
		if len(e.fields) > 0 {
			out = append(out, e)
		}
	}
	return out
}

func keyFields(doc *ast.Document, directiveRef int) (string, bool) {
	if doc.DirectiveNameString(directiveRef) != keyDirectiveName {
		return "", false
	}
	value, ok := doc.DirectiveArgumentValueByName(directiveRef, fieldsArgumentName)
	if !ok || value.Kind != ast.ValueKindString {
		return "", false
	}
	return doc.StringValueContentString(value.Ref), true
}

func referencedElsewhere(entities []entityKeys, self entityKeys, fields string) bool {
	return slices.ContainsFunc(entities, func(other entityKeys) bool {
		return other.subgraph != self.subgraph &&
			other.typeName == self.typeName &&
			slices.Contains(other.fields, fields)
	})
}
