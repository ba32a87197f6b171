package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"photobot/internal/domain"
	"photobot/internal/queue"
)

// withChiParam injects a chi URL parameter for handlers invoked outside a
// router.
func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type memRepo struct {
	mu   sync.Mutex
	gens map[string]*domain.Generation
}

func newMemRepo() *memRepo {
	return &memRepo{gens: make(map[string]*domain.Generation)}
}

func (r *memRepo) Create(ctx context.Context, gen *domain.Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *gen
	r.gens[gen.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gen, ok := r.gens[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *gen
	return &cp, nil
}

func (r *memRepo) mutate(id string, fn func(*domain.Generation)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	gen, ok := r.gens[id]
	if !ok {
		return domain.ErrNotFound
	}
	if gen.Status.Terminal() {
		return domain.ErrAlreadyFinal
	}
	fn(gen)
	return nil
}

func (r *memRepo) MarkProcessing(ctx context.Context, id string, costPaid int) error {
	return r.mutate(id, func(g *domain.Generation) {
		g.Status = domain.StatusProcessing
		g.CostPaid = costPaid
	})
}

func (r *memRepo) SetProviderRef(ctx context.Context, id, providerRef string) error {
	return r.mutate(id, func(g *domain.Generation) { g.ProviderRef = providerRef })
}

func (r *memRepo) MarkCompleted(ctx context.Context, id string, outputRefs []string) error {
	return r.mutate(id, func(g *domain.Generation) {
		g.Status = domain.StatusCompleted
		g.OutputRefs = outputRefs
	})
}

func (r *memRepo) MarkFailed(ctx context.Context, id, errMsg string) error {
	return r.mutate(id, func(g *domain.Generation) {
		g.Status = domain.StatusFailed
		g.ErrorMessage = errMsg
	})
}

type memLedger struct {
	mu       sync.Mutex
	balances map[int64]int
	credits  int
}

func newMemLedger(userID int64, balance int) *memLedger {
	return &memLedger{balances: map[int64]int{userID: balance}}
}

func (l *memLedger) Debit(ctx context.Context, userID int64, amount int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[userID] < amount {
		return 0, domain.ErrInsufficientBalance
	}
	l.balances[userID] -= amount
	return l.balances[userID], nil
}

func (l *memLedger) Credit(ctx context.Context, userID int64, amount int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += amount
	l.credits++
	return l.balances[userID], nil
}

func (l *memLedger) Remaining(ctx context.Context, userID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.balances[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return balance, nil
}

type busEvent struct {
	topic   string
	payload any
}

type busRecorder struct {
	mu     sync.Mutex
	events []busEvent
}

func (b *busRecorder) Publish(ctx context.Context, topic string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, busEvent{topic: topic, payload: payload})
	return nil
}

func (b *busRecorder) byTopic(topic string) []busEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []busEvent
	for _, ev := range b.events {
		if ev.topic == topic {
			out = append(out, ev)
		}
	}
	return out
}

// brokenEngine refuses every enqueue, simulating an unreachable queue store.
type brokenEngine struct{}

func (brokenEngine) Enqueue(ctx context.Context, queue string, payload []byte) (string, error) {
	return "", errors.New("queue store unreachable")
}

func (brokenEngine) Lease(ctx context.Context, q, workerID string) (*queue.Entry, error) {
	return nil, queue.ErrEmpty
}

func (brokenEngine) Ack(ctx context.Context, entryID, workerID string) error { return nil }
func (brokenEngine) Fail(ctx context.Context, entryID, workerID string, cause error) error {
	return nil
}

func (brokenEngine) RequeueExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func (brokenEngine) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	return 0, nil
}

func (brokenEngine) Close() error { return nil }
