package banstore

import (
	"context"
	"strconv"
	"sync"
)

type MemBanStore struct {
	lk     sync.RWMutex
	banned map[string]bool
}

func NewMemBanStore() *MemBanStore {
	return &MemBanStore{
		banned: make(map[string]bool),
	}
}

func (s *MemBanStore) Contains(ctx context.Context, userID int64) (bool, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return s.banned[strconv.FormatInt(userID, 10)], nil
}

func (s *MemBanStore) Add(ctx context.Context, userID int64) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.banned[strconv.FormatInt(userID, 10)] = true
	return nil
}

func (s *MemBanStore) Remove(ctx context.Context, userID int64) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	delete(s.banned, strconv.FormatInt(userID, 10))
	return nil
}
