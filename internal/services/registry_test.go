package services

import (
	"context"
	"errors"
	"testing"
)

func TestRegistryHealthCheckAll(t *testing.T) {
	r := NewRegistry()
	down := errors.New("connection refused")

	r.Register("storage", NewFuncProvider("memory", func(ctx context.Context) error { return nil }))
	r.Register("source", NewFuncProvider("drive", func(ctx context.Context) error { return down }))

	results := r.HealthCheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results["storage"] != nil {
		t.Errorf("expected storage healthy, got %v", results["storage"])
	}
	if !errors.Is(results["source"], down) {
		t.Errorf("expected source error, got %v", results["source"])
	}
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("b", NewFuncProvider("x", func(ctx context.Context) error { return nil }))
	r.Register("a", NewFuncProvider("y", func(ctx context.Context) error { return nil }))

	names := r.List()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected names %v", names)
	}

	// re-registering a name replaces the provider
	r.Register("a", NewFuncProvider("z", func(ctx context.Context) error { return nil }))
	if names := r.List(); len(names) != 2 {
		t.Errorf("expected replacement, got %v", names)
	}
}
