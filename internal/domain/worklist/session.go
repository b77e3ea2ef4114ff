package worklist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carelist/carelist/internal/platform/websocket"
)

// Topic is the hub topic worklist events broadcast on.
const Topic = "worklist"

// Event types published on Topic.
const (
	EventRefreshed     = "worklist.refreshed"
	EventRefreshFailed = "worklist.refresh_failed"
)

// Snapshot is the observable state of a session: the filter last applied
// and the page it produced. A failed refresh leaves Items empty and records
// the failure in Err.
type Snapshot struct {
	Filter    Filter        `json:"filter"`
	Items     []PatientItem `json:"items"`
	Total     int           `json:"total"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Err       string        `json:"error,omitempty"`
}

// Session holds the live worklist: one filter slot plus the latest page it
// produced. Update replaces the filter and refreshes in the background; a
// newer update cancels and supersedes any refresh still in flight, so the
// slot always converges on the most recent write. Every settled refresh is
// broadcast to Topic subscribers.
type Session struct {
	svc *Service
	pub websocket.EventPublisher
	log zerolog.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current Snapshot
}

// NewSession creates a session around svc. pub may be nil when nothing
// subscribes to refresh events.
func NewSession(svc *Service, pub websocket.EventPublisher, log zerolog.Logger) *Session {
	return &Session{
		svc:     svc,
		pub:     pub,
		log:     log,
		current: Snapshot{Items: []PatientItem{}},
	}
}

// Update validates and applies a new filter, then refreshes the slot
// asynchronously. The error return covers validation only; refresh failures
// surface through the snapshot and the event stream.
func (s *Session) Update(f Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.refresh(ctx, gen, f)
	return nil
}

// Snapshot returns the current state of the slot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Filter returns the filter of the most recent completed refresh.
func (s *Session) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Filter
}

// Close cancels any refresh still in flight. The slot keeps its last state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) refresh(ctx context.Context, gen uint64, f Filter) {
	items, total, err := s.svc.Search(ctx, f)
	if err != nil && ctx.Err() != nil {
		return // canceled; a newer update or shutdown owns the slot
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	snap := Snapshot{Filter: f, UpdatedAt: time.Now().UTC()}
	if err != nil {
		snap.Items = []PatientItem{}
		snap.Err = err.Error()
	} else {
		snap.Items = items
		snap.Total = total
	}
	s.current = snap
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Msg("worklist refresh failed")
		s.publish(ctx, EventRefreshFailed, snap)
		return
	}
	s.log.Debug().Int("total", total).Int("rows", len(items)).Msg("worklist refreshed")
	s.publish(ctx, EventRefreshed, snap)
}

func (s *Session) publish(ctx context.Context, eventType string, snap Snapshot) {
	if s.pub == nil {
		return
	}
	evt, err := websocket.NewEvent(eventType, Topic, snap)
	if err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("encode worklist event")
		return
	}
	if err := s.pub.Publish(ctx, evt); err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("publish worklist event")
	}
}
