package ids

import (
	"sync"
	"testing"
	"time"
)

func TestGeneratorMonotonicWithinMillisecond(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(func() time.Time { return fixed })

	prev := g.New()
	for i := 0; i < 100; i++ {
		next := g.New()
		if next <= prev {
			t.Fatalf("expected %s > %s", next, prev)
		}
		prev = next
	}
}

func TestNewUniqueUnderConcurrency(t *testing.T) {
	const n = 500
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := New()
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Fatalf("expected %d unique ids, got %d", n, len(seen))
	}
}
