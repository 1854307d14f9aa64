package tent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Broadcaster is notified with the full record after every persisted
// mutation, so connected participants see the change.
type Broadcaster interface {
	SessionChanged(t *Tent)
}

// Mailer delivers a trade invitation to a counterparty contact.
type Mailer interface {
	SendInvite(ctx context.Context, to string, t *Tent) error
}

// Service owns the tent lifecycle. Mutations of one id serialize on a
// per-id mutex so concurrent read-modify-write cycles cannot lose updates
// within this process.
type Service struct {
	store       Store
	broadcaster Broadcaster // optional
	mailer      Mailer      // optional
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*idLock
}

func NewService(store Store, broadcaster Broadcaster, mailer Mailer) *Service {
	return &Service{
		store:       store,
		broadcaster: broadcaster,
		mailer:      mailer,
		now:         time.Now,
		locks:       make(map[string]*idLock),
	}
}

type CreateParams struct {
	Initiator    string
	Counterparty string
	AssetRef     string
	Price        float64
	Metadata     map[string]string
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*Tent, error) {
	if p.Initiator == "" {
		return nil, fmt.Errorf("%w: initiator is required", ErrInvalidInput)
	}
	if p.Price < 0 {
		return nil, fmt.Errorf("%w: price must be non-negative", ErrInvalidInput)
	}

	now := s.now()
	t := &Tent{
		ID:           uuid.NewString(),
		Initiator:    p.Initiator,
		Counterparty: p.Counterparty,
		AssetRef:     p.AssetRef,
		Price:        p.Price,
		Status:       StatusAwaitingPartner,
		Metadata:     make(map[string]string, len(p.Metadata)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for k, v := range p.Metadata {
		t.Metadata[k] = v
	}
	if t.Counterparty != "" {
		t.Status = StatusActive
	}

	if err := s.store.Put(ctx, t); err != nil {
		return nil, err
	}

	// Best effort: delivery happens off the request path and an
	// undeliverable invite never fails the creation.
	if s.mailer != nil && strings.Contains(p.Counterparty, "@") {
		invited := t.Clone()
		go func() {
			// The request context dies with the handler; invites get
			// their own deadline.
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.mailer.SendInvite(ctx, invited.Counterparty, invited); err != nil {
				log.Printf("tent: invite to %s for tent %s failed: %v", invited.Counterparty, invited.ID, err)
			}
		}()
	}

	return t, nil
}

func (s *Service) Join(ctx context.Context, id, counterparty string) (*Tent, error) {
	if counterparty == "" {
		return nil, fmt.Errorf("%w: counterparty is required", ErrInvalidInput)
	}

	unlock := s.lockID(id)
	defer unlock()

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Counterparty = counterparty
	t.Status = StatusActive
	t.UpdatedAt = s.now()
	if err := s.store.Put(ctx, t); err != nil {
		return nil, err
	}
	s.notify(t)
	return t, nil
}

// Update applies status verbatim when non-empty and shallow-merges the
// metadata patch; existing keys absent from the patch are retained.
func (s *Service) Update(ctx context.Context, id, status string, metadataPatch map[string]string) (*Tent, error) {
	unlock := s.lockID(id)
	defer unlock()

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if status != "" {
		t.Status = status
	}
	for k, v := range metadataPatch {
		t.Metadata[k] = v
	}
	t.UpdatedAt = s.now()
	if err := s.store.Put(ctx, t); err != nil {
		return nil, err
	}
	s.notify(t)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Tent, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Tent, error) {
	return s.store.List(ctx)
}

func (s *Service) notify(t *Tent) {
	if s.broadcaster != nil {
		s.broadcaster.SessionChanged(t)
	}
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

// lockID serializes mutations of one id. Entries are refcounted and reaped
// on the last unlock so the map does not grow with every tent ever touched.
func (s *Service) lockID(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &idLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}
