// Package store implements a simple key-value store for rows.
package store

import (
	"errors"
	"sync"
)

var (
	ErrKeyExists      = errors.New("store: key already exists")
	ErrKeyDoesntExist = errors.New("store: key does not exist")
)

type Store interface {
	Set(key string, value any) error
	Get(key string) (any, error)
	Delete(key string) error
	Update(key string, newValue any) error
}

// MemStore is a mutex-guarded in-memory Store. Each resource gets its own
// instance.
type MemStore struct {
	lock  sync.Mutex
	store map[string]any
}

func NewMemStore() *MemStore {
	return &MemStore{
		store: make(map[string]any),
	}
}

// Set stores a value under a new key. Storing an existing key fails with
// ErrKeyExists, which callers surface as an integrity conflict.
func (m *MemStore) Set(key string, value any) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.store[key]; ok {
		return ErrKeyExists
	}
	m.store[key] = value
	return nil
}

// Get returns the value stored under key.
func (m *MemStore) Get(key string) (any, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	value, ok := m.store[key]
	if !ok {
		return nil, ErrKeyDoesntExist
	}
	return value, nil
}

// Delete removes the specified key and value.
func (m *MemStore) Delete(key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.store[key]; !ok {
		return ErrKeyDoesntExist
	}
	delete(m.store, key)
	return nil
}

// Update replaces the value for an existing key.
func (m *MemStore) Update(key string, newValue any) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.store[key]; !ok {
		return ErrKeyDoesntExist
	}
	m.store[key] = newValue
	return nil
}
