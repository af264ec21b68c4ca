package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// TokenSequenceStore implements ports.TokenSequenceStore with Redis INCR,
// so every API instance agrees on which payment token is the latest.
type TokenSequenceStore struct {
	client *goredis.Client
	prefix string
}

// NewTokenSequenceStore creates a Redis-backed sequence store.
func NewTokenSequenceStore(client *goredis.Client) *TokenSequenceStore {
	return &TokenSequenceStore{
		client: client,
		prefix: keyPrefix + "token_seq:",
	}
}

// Next increments and returns the account's issuance counter.
func (s *TokenSequenceStore) Next(ctx context.Context, accountID string) (int64, error) {
	seq, err := s.client.Incr(ctx, s.prefix+accountID).Result()
	if err != nil {
		return 0, fmt.Errorf("redis token seq incr: %w", err)
	}
	return seq, nil
}

// Current returns the latest issued value, 0 if nothing was issued.
func (s *TokenSequenceStore) Current(ctx context.Context, accountID string) (int64, error) {
	seq, err := s.client.Get(ctx, s.prefix+accountID).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis token seq get: %w", err)
	}
	return seq, nil
}
