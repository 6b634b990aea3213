package fs

import (
	"context"
	"errors"
	"testing"
)

func fakeFactory(calls *int) Factory {
	return func(_ context.Context, rawURI string, stats *StatsRegistry) (Backend, error) {
		*calls++
		base, err := NewBase(rawURI, "test", true, 2049, stats)
		if err != nil {
			return nil, err
		}
		f := &fakeBackend{
			Base:    base,
			entries: make(map[string]*FileStatus),
			data:    make(map[string][]byte),
		}
		f.addDir("/")
		return f, nil
	}
}

func TestRegistryRegister(t *testing.T) {
	registry := NewRegistry(NewStatsRegistry())
	var calls int

	if err := registry.Register("test", fakeFactory(&calls)); err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}
	if err := registry.Register("test", fakeFactory(&calls)); err == nil {
		t.Error("Register() accepted a duplicate scheme")
	}
	if err := registry.Register("", fakeFactory(&calls)); err == nil {
		t.Error("Register() accepted an empty scheme")
	}
	if err := registry.Register("other", nil); err == nil {
		t.Error("Register() accepted a nil factory")
	}

	schemes := registry.Schemes()
	if len(schemes) != 1 || schemes[0] != "test" {
		t.Errorf("Schemes() = %v, want [test]", schemes)
	}
}

func TestRegistryResolveUnboundScheme(t *testing.T) {
	registry := NewRegistry(NewStatsRegistry())

	_, err := registry.Resolve(context.Background(), "mem:///data")
	if !HasCode(err, ErrUnsupportedBackend) {
		t.Errorf("Resolve() = %v, want ErrUnsupportedBackend", err)
	}
}

func TestRegistryResolveMalformedURI(t *testing.T) {
	registry := NewRegistry(NewStatsRegistry())

	_, err := registry.Resolve(context.Background(), "://nonsense")
	if !HasCode(err, ErrInvalidArgument) {
		t.Errorf("Resolve(malformed) = %v, want ErrInvalidArgument", err)
	}

	_, err = registry.Resolve(context.Background(), "/no/scheme")
	if !HasCode(err, ErrInvalidArgument) {
		t.Errorf("Resolve(schemeless) = %v, want ErrInvalidArgument", err)
	}
}

func TestRegistryResolveMemoizes(t *testing.T) {
	registry := NewRegistry(NewStatsRegistry())
	var calls int
	if err := registry.Register("test", fakeFactory(&calls)); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	ctx := context.Background()

	first, err := registry.Resolve(ctx, "test://node1/a")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	second, err := registry.Resolve(ctx, "test://node1/different/path")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if first != second {
		t.Error("same scheme and host resolved to distinct instances")
	}
	if calls != 1 {
		t.Errorf("factory invoked %d times, want 1", calls)
	}

	// A different host constructs a separate backend.
	third, err := registry.Resolve(ctx, "test://node2/a")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if third == first {
		t.Error("distinct hosts share one backend instance")
	}
	if calls != 2 {
		t.Errorf("factory invoked %d times, want 2", calls)
	}
}

func TestRegistryResolvePropagatesFactoryError(t *testing.T) {
	registry := NewRegistry(NewStatsRegistry())
	domainErr := Errorf(ErrInvalidArgument, "test://x", "bad options")
	if err := registry.Register("test", func(context.Context, string, *StatsRegistry) (Backend, error) {
		return nil, domainErr
	}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	_, err := registry.Resolve(context.Background(), "test://x/")
	if !errors.Is(err, domainErr) && !HasCode(err, ErrInvalidArgument) {
		t.Errorf("Resolve() = %v, want the factory's domain error", err)
	}

	plain := NewRegistry(NewStatsRegistry())
	if err := plain.Register("test", func(context.Context, string, *StatsRegistry) (Backend, error) {
		return nil, errors.New("dial failed")
	}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	_, err = plain.Resolve(context.Background(), "test://x/")
	if err == nil || HasCode(err, ErrInvalidArgument) {
		t.Errorf("Resolve() = %v, want wrapped construction error", err)
	}
}

func TestRegistryStatsShared(t *testing.T) {
	stats := NewStatsRegistry()
	registry := NewRegistry(stats)
	var calls int
	if err := registry.Register("test", fakeFactory(&calls)); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	b, err := registry.Resolve(context.Background(), "test://node1/")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	fb := b.(*fakeBackend)
	fb.Statistics().IncrementReadOps(7)

	snapshots := stats.SnapshotAll()
	if len(snapshots) != 1 {
		t.Fatalf("SnapshotAll() returned %d records, want 1", len(snapshots))
	}
	for _, snap := range snapshots {
		if snap.ReadOps != 7 {
			t.Errorf("ReadOps = %d, want 7", snap.ReadOps)
		}
	}
	if registry.Stats() != stats {
		t.Error("Stats() does not return the injected registry")
	}
}
