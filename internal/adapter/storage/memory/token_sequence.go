package memory

import (
	"context"
	"sync"
)

// TokenSequenceStore implements ports.TokenSequenceStore for a single process.
type TokenSequenceStore struct {
	mu   sync.Mutex
	seqs map[string]int64
}

// NewTokenSequenceStore creates an empty store.
func NewTokenSequenceStore() *TokenSequenceStore {
	return &TokenSequenceStore{seqs: make(map[string]int64)}
}

func (s *TokenSequenceStore) Next(_ context.Context, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[accountID]++
	return s.seqs[accountID], nil
}

func (s *TokenSequenceStore) Current(_ context.Context, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seqs[accountID], nil
}
