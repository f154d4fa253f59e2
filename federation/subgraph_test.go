package federation_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/n9te9/federation-gateway-bootstrap/federation"
)

func TestDefaultSubGraphs(t *testing.T) {
	want := federation.SubGraphs{
		{Name: "service_a", URL: "http://service_a:3000/graphql"},
		{Name: "service_b", URL: "http://service_b:3000/graphql"},
		{Name: "service_c", URL: "http://service_c:3000/graphql"},
		{Name: "service_d", URL: "http://service_d:3000/graphql"},
	}

	got := federation.DefaultSubGraphs()
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("DefaultSubGraphs mismatch (-want +got):\n%s", d)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("default subgraphs must be valid: %v", err)
	}
}

func TestDefaultSubGraphs_ReturnsFreshCopy(t *testing.T) {
	a := federation.DefaultSubGraphs()
	a[0].URL = "http://changed:1/graphql"

	if b := federation.DefaultSubGraphs(); b[0].URL != "http://service_a:3000/graphql" {
		t.Errorf("mutation leaked into defaults: %q", b[0].URL)
	}
}

func TestSubGraphs_Validate(t *testing.T) {
	tests := []struct {
		name      string
		subGraphs federation.SubGraphs
		wantErr   error
	}{
		{
			name:      "empty list",
			subGraphs: nil,
			wantErr:   federation.ErrNoSubGraphs,
		},
		{
			name:      "empty name",
			subGraphs: federation.SubGraphs{{Name: " ", URL: "http://a/graphql"}},
			wantErr:   federation.ErrEmptyName,
		},
		{
			name: "duplicate name",
			subGraphs: federation.SubGraphs{
				{Name: "a", URL: "http://a/graphql"},
				{Name: "a", URL: "http://b/graphql"},
			},
			wantErr: federation.ErrDuplicateName,
		},
		{
			name:      "relative url",
			subGraphs: federation.SubGraphs{{Name: "a", URL: "/graphql"}},
			wantErr:   federation.ErrInvalidURL,
		},
		{
			name:      "unsupported scheme",
			subGraphs: federation.SubGraphs{{Name: "a", URL: "ftp://a/graphql"}},
			wantErr:   federation.ErrInvalidURL,
		},
		{
			name:      "bad subscription url",
			subGraphs: federation.SubGraphs{{Name: "a", URL: "http://a/graphql", SubscriptionURL: "mailto:x"}},
			wantErr:   federation.ErrInvalidURL,
		},
		{
			name: "valid",
			subGraphs: federation.SubGraphs{
				{Name: "a", URL: "http://a:3000/graphql"},
				{Name: "b", URL: "https://b/graphql", SubscriptionURL: "wss://b/graphql"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.subGraphs.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubGraphs_Decode(t *testing.T) {
	var got federation.SubGraphs
	err := got.Decode("service_a=http://127.0.0.1:3001/graphql, service_b = http://127.0.0.1:3002/graphql,")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := federation.SubGraphs{
		{Name: "service_a", URL: "http://127.0.0.1:3001/graphql"},
		{Name: "service_b", URL: "http://127.0.0.1:3002/graphql"},
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("Decode mismatch (-want +got):\n%s", d)
	}
}

func TestSubGraphs_DecodeErrors(t *testing.T) {
	for _, in := range []string{"", " , ", "service_a"} {
		var s federation.SubGraphs
		if err := s.Decode(in); err == nil {
			t.Errorf("Decode(%q): expected error", in)
		}
	}
}

func TestSubGraph_WebsocketURL(t *testing.T) {
	tests := []struct {
		in   federation.SubGraph
		want string
	}{
		{federation.SubGraph{URL: "http://service_a:3000/graphql"}, "ws://service_a:3000/graphql"},
		{federation.SubGraph{URL: "https://example.com/graphql"}, "wss://example.com/graphql"},
		{federation.SubGraph{URL: "http://a/graphql", SubscriptionURL: "ws://a/ws"}, "ws://a/ws"},
	}

	for _, tt := range tests {
		if got := tt.in.WebsocketURL(); got != tt.want {
			t.Errorf("WebsocketURL(%q) = %q, want %q", tt.in.URL, got, tt.want)
		}
	}
}

func TestSubGraphs_Names(t *testing.T) {
	want := []string{"service_a", "service_b", "service_c", "service_d"}
	if d := cmp.Diff(want, federation.DefaultSubGraphs().Names()); d != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", d)
	}
}
