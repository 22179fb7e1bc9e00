package party

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps parties and addresses in memory for tests and
// single-shot runs. A single mutex makes each Apply atomic.
type MemoryStore struct {
	mu        sync.RWMutex
	parties   map[string]*Party
	addresses map[string][]Address
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		parties:   make(map[string]*Party),
		addresses: make(map[string][]Address),
	}
}

func (s *MemoryStore) Save(_ context.Context, p *Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clone(p)
	s.parties[cp.ID] = cp
	return nil
}

// AddAddress seeds an address entry; tests use it to set up pre-existing
// fiscal addresses.
func (s *MemoryStore) AddAddress(_ context.Context, partyID string, addr Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr.ID == "" {
		addr.ID = uuid.NewString()
	}
	s.addresses[partyID] = append(s.addresses[partyID], addr)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.parties[id]; ok {
		return clone(p), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListWithTaxID(_ context.Context) ([]*Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Party
	for _, p := range s.parties {
		if len(p.Identifiers) > 0 {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) Apply(_ context.Context, update Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.parties[update.PartyID]
	if !ok {
		return ErrNotFound
	}

	p.Name = update.Name
	p.Active = update.Active
	p.Condition = update.Condition
	p.PrimaryActivity = update.PrimaryActivity
	p.SecondaryActivity = update.SecondaryActivity
	p.StartActivityDate = update.StartActivityDate

	if update.FiscalAddress != nil {
		addrs := s.addresses[update.PartyID]
		for i := range addrs {
			if addrs[i].Fiscal && addrs[i].Active {
				addrs[i].Active = false
			}
		}
		fresh := *update.FiscalAddress
		if fresh.ID == "" {
			fresh.ID = uuid.NewString()
		}
		fresh.Fiscal = true
		fresh.Active = true
		s.addresses[update.PartyID] = append(addrs, fresh)
	}
	return nil
}

func (s *MemoryStore) Addresses(_ context.Context, partyID string) ([]Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addrs := s.addresses[partyID]
	out := make([]Address, len(addrs))
	copy(out, addrs)
	return out, nil
}

func clone(p *Party) *Party {
	cp := *p
	cp.Identifiers = make([]Identifier, len(p.Identifiers))
	copy(cp.Identifiers, p.Identifiers)
	return &cp
}
