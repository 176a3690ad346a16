package locking

import (
	"context"
	"sync"
)

// KeyedMutex serializes work per lot id inside one process
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until lotID is free or ctx is done
func (k *KeyedMutex) Lock(ctx context.Context, lotID string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[lotID]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[lotID] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(lotID, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(lotID, l)
		})
	}, nil
}

func (k *KeyedMutex) release(lotID string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, lotID)
	}
}
