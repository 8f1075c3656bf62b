package strategy

import (
	"strings"
	"testing"

	"sentitrade/internal/domain"
)

// stubGenerator is a minimal Generator implementation used in registry tests.
type stubGenerator struct {
	name string
}

func (s *stubGenerator) Name() string { return s.name }
func (s *stubGenerator) Generate(ticker string, _ domain.Sentiment, _ *domain.Snapshot) domain.Signal {
	return domain.Signal{Ticker: ticker, Action: domain.ActionHold}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	s := &stubGenerator{name: "test-generator"}

	r.Register(s)

	got, ok := r.Get("test-generator")
	if !ok {
		t.Fatal("Get returned false for registered generator")
	}
	if got.Name() != "test-generator" {
		t.Errorf("Get returned generator with Name() = %q, want %q", got.Name(), "test-generator")
	}
}

func TestRegistryGet_NotFound(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	if ok {
		t.Error("Get returned true for unregistered generator")
	}
}

func TestRegistrySelect(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubGenerator{name: "alpha"})

	if _, err := r.Select("alpha"); err != nil {
		t.Fatalf("Select(alpha): %v", err)
	}
	_, err := r.Select("beta")
	if err == nil {
		t.Fatal("Select returned no error for unknown generator")
	}
	if !strings.Contains(err.Error(), "alpha") {
		t.Errorf("Select error %q should list available generators", err)
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubGenerator{name: "beta"})
	r.Register(&stubGenerator{name: "alpha"})

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}
	// List returns sorted names.
	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
}
