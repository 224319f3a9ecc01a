package badger

import "github.com/poiesic/pathways/storage"

// NewMemoryCache creates a cache over an in-memory backend for testing.
// Caller must close the backend when done.
func NewMemoryCache() (storage.Cache, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}

	cache, err := NewCache(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return cache, backend, nil
}
