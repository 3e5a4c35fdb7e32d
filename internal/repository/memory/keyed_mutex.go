package memory

import "sync"

// KeyedMutex serializes work per key. Chat turns and ledger writes each
// hold one instance keyed by user or loan ID.
type KeyedMutex struct {
	mutexes sync.Map
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

func (k *KeyedMutex) Lock(key string) {
	mu, _ := k.mutexes.LoadOrStore(key, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
}

func (k *KeyedMutex) Unlock(key string) {
	mu, ok := k.mutexes.Load(key)
	if !ok {
		return
	}
	mu.(*sync.Mutex).Unlock()
}
