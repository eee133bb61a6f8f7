package signup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an untouched flow is kept.
const DefaultTTL = 30 * time.Minute

// Store holds the live signup flows keyed by id.
type Store struct {
	flows map[string]*Flow
	auth  AuthService
	opts  Options
	ttl   time.Duration
	mu    sync.RWMutex
}

// NewStore creates an empty store. Flows it creates share auth and opts.
func NewStore(auth AuthService, opts Options, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		flows: make(map[string]*Flow),
		auth:  auth,
		opts:  opts.withDefaults(),
		ttl:   ttl,
	}
}

// Create starts a new flow on the form step.
func (s *Store) Create() *Flow {
	flow := NewFlow(uuid.New().String(), s.auth, s.opts)

	s.mu.Lock()
	s.flows[flow.ID()] = flow
	s.mu.Unlock()
	return flow
}

// Get returns the flow with id or ErrFlowNotFound.
func (s *Store) Get(id string) (*Flow, error) {
	s.mu.RLock()
	flow, ok := s.flows[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrFlowNotFound
	}
	return flow, nil
}

// Remove closes and forgets the flow with id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	flow, ok := s.flows[id]
	delete(s.flows, id)
	s.mu.Unlock()
	if !ok {
		return ErrFlowNotFound
	}
	flow.Close()
	return nil
}

// Len returns the number of live flows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flows)
}

// Sweep closes and removes flows idle for longer than the TTL and returns
// how many were removed.
func (s *Store) Sweep() int {
	cutoff := s.opts.Now().Add(-s.ttl)

	var expired []*Flow
	s.mu.Lock()
	for id, flow := range s.flows {
		if flow.UpdatedAt().Before(cutoff) {
			expired = append(expired, flow)
			delete(s.flows, id)
		}
	}
	s.mu.Unlock()

	for _, flow := range expired {
		flow.Close()
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes all flows.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store) closeAll() {
	s.mu.Lock()
	flows := s.flows
	s.flows = make(map[string]*Flow)
	s.mu.Unlock()

	for _, flow := range flows {
		flow.Close()
	}
}
