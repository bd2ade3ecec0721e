package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"
)

// TestMemoryBackendConcurrentSetAndGet hammers Set and Get from many goroutines.
// Run with -race to verify there are no data races.
func TestMemoryBackendConcurrentSetAndGet(t *testing.T) {
	const (
		keys         = 200
		writesPerKey = 50
		readers      = 20
	)

	b := NewMemory()
	bg := context.Background()

	var wg sync.WaitGroup
	wg.Add(keys)
	for i := 0; i < keys; i++ {
		key := fmt.Sprintf("session/%03d/cart", i)
		go func(k string) {
			defer wg.Done()
			for v := 1; v <= writesPerKey; v++ {
				_ = b.Set(bg, k, []byte(strconv.Itoa(v)))
				if v%7 == 0 {
					time.Sleep(time.Microsecond)
				}
			}
		}(key)
	}

	ctx, cancel := context.WithCancel(bg)
	defer cancel()
	var rg sync.WaitGroup
	rg.Add(readers)
	for r := 0; r < readers; r++ {
		go func() {
			defer rg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
					for i := 0; i < 10; i++ {
						_, _, _ = b.Get(bg, fmt.Sprintf("session/%03d/cart", i))
					}
				}
			}
		}()
	}

	wg.Wait()
	cancel()
	rg.Wait()

	// last writer wins for every key
	for i := 0; i < keys; i++ {
		key := fmt.Sprintf("session/%03d/cart", i)
		v, ok, err := b.Get(bg, key)
		if err != nil || !ok {
			t.Fatalf("expected %s to exist (err=%v)", key, err)
		}
		if string(v) != strconv.Itoa(writesPerKey) {
			t.Fatalf("%s: want %d, got %s", key, writesPerKey, v)
		}
	}
}

// TestMemoryBackendCopiesValues ensures callers cannot mutate stored documents.
func TestMemoryBackendCopiesValues(t *testing.T) {
	b := NewMemory()
	bg := context.Background()
	in := []byte(`[1]`)
	_ = b.Set(bg, "k", in)
	in[1] = '9'

	got, _, _ := b.Get(bg, "k")
	if string(got) != `[1]` {
		t.Fatalf("stored value changed through caller slice: %s", got)
	}
	got[1] = '8'
	again, _, _ := b.Get(bg, "k")
	if string(again) != `[1]` {
		t.Fatalf("stored value changed through returned slice: %s", again)
	}
}
