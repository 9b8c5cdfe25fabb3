package memory

import (
	"context"
	"log"
)

// NewStore selects the transcript backend from the configured URLs.
// Redis wins when both are set; with neither, turns live only in process memory.
func NewStore(ctx context.Context, databaseURL, redisURL string) (Store, error) {
	if redisURL != "" {
		store, err := NewRedisStore(ctx, redisURL)
		if err != nil {
			return nil, err
		}
		log.Printf("memory: using redis transcript store")
		return store, nil
	}

	if databaseURL != "" {
		store, err := NewPostgresStore(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		log.Printf("memory: using postgres transcript store")
		return store, nil
	}

	log.Printf("memory: using in-memory transcript store")
	return NewInMemoryStore(), nil
}
