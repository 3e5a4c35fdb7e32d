package memory

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("user-a")
			defer km.Unlock("user-a")
			counter++
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("loan-1")
	done := make(chan struct{})
	go func() {
		// A different key must not block.
		km.Lock("loan-2")
		km.Unlock("loan-2")
		close(done)
	}()
	<-done
	km.Unlock("loan-1")
}

func TestKeyedMutexUnlockUnknownKeyIsNoop(t *testing.T) {
	km := NewKeyedMutex()
	km.Unlock("never-locked")
}
