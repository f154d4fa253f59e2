package federation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrNoSubGraphs   = errors.New("no subgraphs configured")
	ErrEmptyName     = errors.New("subgraph name is empty")
	ErrDuplicateName = errors.New("duplicate subgraph name")
	ErrInvalidURL    = errors.New("invalid subgraph url")
)

// SubGraph names one independently deployed GraphQL service and the endpoint the
// gateway sends its fetches to.
type SubGraph struct {
	Name string
	URL  string

	// SubscriptionURL overrides the websocket endpoint derived from URL.
	SubscriptionURL string
}

// SubGraphs is an ordered list of subgraph descriptors.
type SubGraphs []SubGraph

// DefaultSubGraphs returns the four subgraphs of the integration environment.
func DefaultSubGraphs() SubGraphs {
	return SubGraphs{
		{Name: "service_a", URL: "http://service_a:3000/graphql"},
		{Name: "service_b", URL: "http://service_b:3000/graphql"},
		{Name: "service_c", URL: "http://service_c:3000/graphql"},
		{Name: "service_d", URL: "http://service_d:3000/graphql"},
	}
}

func (s SubGraphs) Names() []string {
	names := make([]string, 0, len(s))
	for _, sg := range s {
		names = append(names, sg.Name)
	}
	return names
}

// Validate checks that names are unique and non-empty and that every url is an
// absolute http(s) endpoint.
func (s SubGraphs) Validate() error {
	if len(s) == 0 {
		return ErrNoSubGraphs
	}

	seen := make(map[string]struct{}, len(s))
	for i, sg := range s {
		if strings.TrimSpace(sg.Name) == "" {
			return fmt.Errorf("subgraph #%d: %w", i, ErrEmptyName)
		}
		if _, ok := seen[sg.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateName, sg.Name)
		}
		seen[sg.Name] = struct{}{}

		if err := validateURL(sg.URL, "http", "https"); err != nil {
			return fmt.Errorf("subgraph %q: %w", sg.Name, err)
		}
		if sg.SubscriptionURL != "" {
			if err := validateURL(sg.SubscriptionURL, "ws", "wss", "http", "https"); err != nil {
				return fmt.Errorf("subgraph %q subscription: %w", sg.Name, err)
			}
		}
	}

	return nil
}

// Decode parses a "name=url,name=url" list. It lets SubGraphs be read from a single
// environment variable.
func (s *SubGraphs) Decode(value string) error {
	var out SubGraphs
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		name, u, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("malformed subgraph entry %q, want name=url", pair)
		}
		out = append(out, SubGraph{
			Name: strings.TrimSpace(name),
			URL:  strings.TrimSpace(u),
		})
	}

	if len(out) == 0 {
		return ErrNoSubGraphs
	}

	*s = out
	return nil
}

// WebsocketURL returns the endpoint used for subscription fetches.
func (sg SubGraph) WebsocketURL() string {
	if sg.SubscriptionURL != "" {
		return sg.SubscriptionURL
	}

	u, err := url.Parse(sg.URL)
	if err != nil {
		return sg.URL
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	return u.String()
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	for _, scheme := range schemes {
		if u.Scheme == scheme {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
}
