package tent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeBroadcaster struct {
	mu    sync.Mutex
	tents []*Tent
}

func (f *fakeBroadcaster) SessionChanged(t *Tent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tents = append(f.tents, t)
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tents)
}

type fakeMailer struct {
	err  error
	sent chan string
}

func newFakeMailer(err error) *fakeMailer {
	return &fakeMailer{err: err, sent: make(chan string, 4)}
}

func (f *fakeMailer) SendInvite(ctx context.Context, to string, t *Tent) error {
	f.sent <- to
	return f.err
}

func (f *fakeMailer) waitInvite(t *testing.T) string {
	t.Helper()
	select {
	case to := <-f.sent:
		return to
	case <-time.After(2 * time.Second):
		t.Fatal("no invite was attempted")
		return ""
	}
}

func TestCreateWithoutCounterparty(t *testing.T) {
	s := NewService(NewMemoryStore(), nil, nil)

	created, err := s.Create(context.Background(), CreateParams{Initiator: "kaspa:abc", Price: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != StatusAwaitingPartner {
		t.Errorf("expected status %q, got %q", StatusAwaitingPartner, created.Status)
	}
	if created.ID == "" {
		t.Error("expected an assigned id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestCreateWithCounterpartySendsInvite(t *testing.T) {
	mailer := newFakeMailer(nil)
	s := NewService(NewMemoryStore(), nil, mailer)

	created, err := s.Create(context.Background(), CreateParams{
		Initiator:    "kaspa:abc",
		Counterparty: "buyer@x.com",
		AssetRef:     "nft-1",
		Price:        10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != StatusActive {
		t.Errorf("expected status %q, got %q", StatusActive, created.Status)
	}
	if created.Price != 10 {
		t.Errorf("expected price 10, got %g", created.Price)
	}
	if to := mailer.waitInvite(t); to != "buyer@x.com" {
		t.Errorf("expected invite to buyer@x.com, got %q", to)
	}
}

func TestCreateSurvivesMailerFailure(t *testing.T) {
	mailer := newFakeMailer(errors.New("smtp down"))
	store := NewMemoryStore()
	s := NewService(store, nil, mailer)

	created, err := s.Create(context.Background(), CreateParams{Initiator: "kaspa:abc", Counterparty: "buyer@x.com"})
	if err != nil {
		t.Fatalf("creation must not fail on invite failure: %v", err)
	}
	mailer.waitInvite(t)
	if _, err := store.Get(context.Background(), created.ID); err != nil {
		t.Errorf("tent should be persisted: %v", err)
	}
}

func TestCreateNoInviteForAddressCounterparty(t *testing.T) {
	mailer := newFakeMailer(nil)
	s := NewService(NewMemoryStore(), nil, mailer)

	if _, err := s.Create(context.Background(), CreateParams{Initiator: "kaspa:abc", Counterparty: "kaspa:def"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case to := <-mailer.sent:
		t.Errorf("expected no invite for a non-mail counterparty, got one to %q", to)
	case <-time.After(100 * time.Millisecond):
	}
}

type blockingMailer struct {
	release chan struct{}
	sent    chan string
}

func (m *blockingMailer) SendInvite(ctx context.Context, to string, t *Tent) error {
	<-m.release
	m.sent <- to
	return nil
}

func TestCreateDoesNotWaitForInviteDelivery(t *testing.T) {
	mailer := &blockingMailer{release: make(chan struct{}), sent: make(chan string, 1)}
	s := NewService(NewMemoryStore(), nil, mailer)

	created, err := s.Create(context.Background(), CreateParams{Initiator: "kaspa:abc", Counterparty: "buyer@x.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != StatusActive {
		t.Errorf("expected status %q, got %q", StatusActive, created.Status)
	}

	// Create returned while the mailer was still blocked; release it and
	// confirm the invite is still attempted.
	close(mailer.release)
	select {
	case to := <-mailer.sent:
		if to != "buyer@x.com" {
			t.Errorf("expected invite to buyer@x.com, got %q", to)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("invite was never attempted")
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	s := NewService(NewMemoryStore(), nil, nil)

	if _, err := s.Create(context.Background(), CreateParams{Price: 1}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty initiator, got %v", err)
	}
	if _, err := s.Create(context.Background(), CreateParams{Initiator: "kaspa:abc", Price: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for negative price, got %v", err)
	}
}

func TestJoinUnknownIDNeverMutates(t *testing.T) {
	store := NewMemoryStore()
	s := NewService(store, nil, nil)

	_, err := s.Join(context.Background(), "missing", "kaspa:def")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	tents, _ := store.List(context.Background())
	if len(tents) != 0 {
		t.Errorf("store mutated on failed join: %d tents", len(tents))
	}
}

func TestJoinActivatesAndBroadcasts(t *testing.T) {
	b := &fakeBroadcaster{}
	s := NewService(NewMemoryStore(), b, nil)

	created, _ := s.Create(context.Background(), CreateParams{Initiator: "kaspa:abc"})

	joined, err := s.Join(context.Background(), created.ID, "kaspa:def")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if joined.Status != StatusActive {
		t.Errorf("expected status %q, got %q", StatusActive, joined.Status)
	}
	if joined.Counterparty != "kaspa:def" {
		t.Errorf("expected counterparty set, got %q", joined.Counterparty)
	}
	if !joined.UpdatedAt.After(created.UpdatedAt) && !joined.UpdatedAt.Equal(created.UpdatedAt) {
		t.Error("expected updatedAt refreshed")
	}
	if b.count() != 1 {
		t.Errorf("expected one broadcast, got %d", b.count())
	}
	if b.tents[0].Counterparty != "kaspa:def" {
		t.Error("broadcast should carry the full updated record")
	}
}

func TestUpdateMergesMetadata(t *testing.T) {
	s := NewService(NewMemoryStore(), nil, nil)

	created, _ := s.Create(context.Background(), CreateParams{
		Initiator: "kaspa:abc",
		Metadata:  map[string]string{"color": "red", "size": "L"},
	})

	updated, err := s.Update(context.Background(), created.ID, "disputed", map[string]string{"size": "M", "note": "resized"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != "disputed" {
		t.Errorf("expected caller-supplied status applied verbatim, got %q", updated.Status)
	}
	want := map[string]string{"color": "red", "size": "M", "note": "resized"}
	if len(updated.Metadata) != len(want) {
		t.Fatalf("expected merged metadata %v, got %v", want, updated.Metadata)
	}
	for k, v := range want {
		if updated.Metadata[k] != v {
			t.Errorf("metadata[%q]: expected %q, got %q", k, v, updated.Metadata[k])
		}
	}
}

func TestUpdateKeepsStatusWhenEmpty(t *testing.T) {
	s := NewService(NewMemoryStore(), nil, nil)

	created, _ := s.Create(context.Background(), CreateParams{Initiator: "kaspa:abc"})
	updated, err := s.Update(context.Background(), created.ID, "", map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusAwaitingPartner {
		t.Errorf("empty status must not overwrite, got %q", updated.Status)
	}
}

func TestConcurrentUpdatesBothApply(t *testing.T) {
	s := NewService(NewMemoryStore(), nil, nil)
	created, _ := s.Create(context.Background(), CreateParams{Initiator: "kaspa:abc"})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			if _, err := s.Update(context.Background(), created.ID, "", map[string]string{key: "v"}); err != nil {
				t.Errorf("update %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	final, _ := s.Get(context.Background(), created.ID)
	if len(final.Metadata) != n {
		t.Errorf("expected all %d concurrent patches applied, got %d keys", n, len(final.Metadata))
	}
}

func TestIDLocksDoNotAccumulate(t *testing.T) {
	s := NewService(NewMemoryStore(), nil, nil)

	var ids []string
	for i := 0; i < 10; i++ {
		created, _ := s.Create(context.Background(), CreateParams{Initiator: "kaspa:abc"})
		ids = append(ids, created.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			s.Update(context.Background(), id, "", map[string]string{"k": "v"})
			s.Join(context.Background(), id, "kaspa:def")
		}(id)
	}
	wg.Wait()

	s.mu.Lock()
	remaining := len(s.locks)
	s.mu.Unlock()
	if remaining != 0 {
		t.Errorf("expected all id locks reaped after use, %d remain", remaining)
	}
}

func TestListCreationOrder(t *testing.T) {
	s := NewService(NewMemoryStore(), nil, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		created, _ := s.Create(context.Background(), CreateParams{Initiator: fmt.Sprintf("kaspa:addr%d", i)})
		ids = append(ids, created.ID)
	}

	tents, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tents) != 3 {
		t.Fatalf("expected 3 tents, got %d", len(tents))
	}
	for i, want := range ids {
		if tents[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, tents[i].ID)
		}
	}
}

func TestStoreCloneIsolation(t *testing.T) {
	store := NewMemoryStore()
	orig := &Tent{ID: "t1", Metadata: map[string]string{"k": "v"}}
	store.Put(context.Background(), orig)

	got, _ := store.Get(context.Background(), "t1")
	got.Metadata["k"] = "mutated"

	again, _ := store.Get(context.Background(), "t1")
	if again.Metadata["k"] != "v" {
		t.Error("store must not alias returned metadata")
	}
}
