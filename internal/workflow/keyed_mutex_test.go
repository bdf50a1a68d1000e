package workflow

import (
	"sync"
	"testing"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.lock("item-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("lost increments: %d", counter)
	}
}

func TestKeyedMutex_EvictsReleasedEntries(t *testing.T) {
	km := newKeyedMutex()
	for _, key := range []string{"a", "b", "c"} {
		unlock := km.lock(key)
		unlock()
	}
	km.mu.Lock()
	n := len(km.locks)
	km.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected empty lock map after release, got %d entries", n)
	}
}

func TestKeyedMutex_KeepsEntryWhileWaiterQueued(t *testing.T) {
	km := newKeyedMutex()
	unlock := km.lock("busy")

	acquired := make(chan struct{})
	go func() {
		u := km.lock("busy")
		close(acquired)
		u()
	}()

	// The waiter has registered its reference; the entry must survive the
	// first unlock so both goroutines use the same mutex.
	for {
		km.mu.Lock()
		l := km.locks["busy"]
		km.mu.Unlock()
		if l != nil && refCount(km, "busy") == 2 {
			break
		}
	}
	unlock()
	<-acquired

	km.mu.Lock()
	n := len(km.locks)
	km.mu.Unlock()
	if n != 0 {
		t.Fatalf("entry leaked after all holders released: %d", n)
	}
}

func refCount(km *keyedMutex, key string) int {
	km.mu.Lock()
	defer km.mu.Unlock()
	if l, ok := km.locks[key]; ok {
		return l.refs
	}
	return 0
}
