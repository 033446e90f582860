package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"telegram-github-helper/internal/domain"
	"telegram-github-helper/internal/domain/model"
	"telegram-github-helper/internal/domain/ports/repository"
)

var _ repository.FlowSessionRepository = (*FlowSessionRepo)(nil)

type entry struct {
	data    []byte
	expires time.Time
}

// FlowSessionRepo stores sessions in process memory. Sessions are copied in
// and out as JSON so callers never share a pointer with the store. Idle
// entries are treated as missing and removed by Sweep.
type FlowSessionRepo struct {
	mu  sync.Mutex
	m   map[int64]entry
	ttl time.Duration
	now func() time.Time
}

func NewFlowSessionRepo(ttl time.Duration) *FlowSessionRepo {
	return &FlowSessionRepo{m: make(map[int64]entry), ttl: ttl, now: time.Now}
}

func (r *FlowSessionRepo) Get(ctx context.Context, tgID int64) (*model.FlowSession, error) {
	r.mu.Lock()
	e, ok := r.m[tgID]
	if ok && r.expired(e) {
		delete(r.m, tgID)
		ok = false
	}
	r.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	var s model.FlowSession
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, fmt.Errorf("decode flow session: %w", err)
	}
	return &s, nil
}

func (r *FlowSessionRepo) Save(ctx context.Context, s *model.FlowSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode flow session: %w", err)
	}
	e := entry{data: data}
	if r.ttl > 0 {
		e.expires = r.now().Add(r.ttl)
	}
	r.mu.Lock()
	r.m[s.TelegramID] = e
	r.mu.Unlock()
	return nil
}

func (r *FlowSessionRepo) Delete(ctx context.Context, tgID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.m[tgID]
	delete(r.m, tgID)
	return ok && !r.expired(e), nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (r *FlowSessionRepo) Sweep(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.m {
		if r.expired(e) {
			delete(r.m, id)
			n++
		}
	}
	return n, nil
}

func (r *FlowSessionRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

func (r *FlowSessionRepo) expired(e entry) bool {
	return !e.expires.IsZero() && !r.now().Before(e.expires)
}
