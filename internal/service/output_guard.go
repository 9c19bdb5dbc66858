package service

import (
	"context"
	"path/filepath"
	"sync"
)

// ExportedOutputGuard is an exported alias so _test packages can test the guard.
type ExportedOutputGuard = outputGuard

// ─────────────────────────────────────────────────────────────
// outputGuard: one export in flight per output file
// ─────────────────────────────────────────────────────────────

// outputGuard serializes exports that target the same CSV file. Paths are
// compared after resolving to absolute form, so "data.csv" and "./data.csv"
// are the same output. Exports to different files may overlap.
type outputGuard struct {
	mu      sync.Mutex
	writing map[string]struct{}
	wg      sync.WaitGroup
}

// outputKey resolves path to the identity the guard locks on.
func outputKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Acquire claims output. It returns ok=false when another export is already
// writing that file; otherwise release must be called once the export ends.
func (g *outputGuard) Acquire(output string) (release func(), ok bool) {
	key := outputKey(output)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writing == nil {
		g.writing = make(map[string]struct{})
	}
	if _, busy := g.writing[key]; busy {
		return nil, false
	}
	g.writing[key] = struct{}{}
	g.wg.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.writing, key)
			g.mu.Unlock()
			g.wg.Done()
		})
	}, true
}

// Writing reports whether an export currently holds output.
func (g *outputGuard) Writing(output string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.writing[outputKey(output)]
	return ok
}

// WaitAll blocks until all in-flight exports release their outputs or ctx is cancelled.
func (g *outputGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
