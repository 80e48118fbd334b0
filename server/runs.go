package server

import lru "github.com/hashicorp/golang-lru/v2"

// runStore keeps the most recent blog responses for GET /api/blog/runs/{id}.
type runStore struct {
	cache *lru.Cache[string, BlogResponse]
}

func newRunStore(size int) (*runStore, error) {
	if size <= 0 {
		size = 128
	}
	c, err := lru.New[string, BlogResponse](size)
	if err != nil {
		return nil, err
	}
	return &runStore{cache: c}, nil
}

func (s *runStore) set(resp BlogResponse) {
	if resp.ID == "" {
		return
	}
	s.cache.Add(resp.ID, resp)
}

func (s *runStore) get(id string) (BlogResponse, bool) {
	return s.cache.Get(id)
}
