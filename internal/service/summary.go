package service

import (
	"context"
	"sync"
	"time"

	"github.com/edirooss/tablemux/internal/reservation"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type SummaryOptions struct {
	// TTL controls how long the in-memory snapshot is served; default 250ms.
	TTL time.Duration
}

func (o *SummaryOptions) setDefaults() {
	if o.TTL <= 0 {
		o.TTL = 250 * time.Millisecond
	}
}

// FloorSummary is one consistent-enough view of the floor for dashboards.
// Stats, Tables and Waitlist are read in separate allocator calls.
type FloorSummary struct {
	Stats    reservation.Stats        `json:"stats"`
	Tables   []reservation.TableState `json:"tables"`
	Waitlist []reservation.WaitEntry  `json:"waitlist"`
}

// SummaryResult lets the handler set headers.
type SummaryResult struct {
	Data        FloorSummary
	CacheHit    bool
	GeneratedAt time.Time
}

// SummaryService caches FloorSummary snapshots for polling clients.
// Concurrent refreshes are coalesced.
type SummaryService struct {
	log   *zap.Logger
	alloc *reservation.Allocator

	mu      sync.RWMutex
	cache   *FloorSummary
	expires time.Time
	genAt   time.Time
	gen     uint64 // bumped by Invalidate; a refresh stores only if unchanged

	opts SummaryOptions
	now  func() time.Time

	sg singleflight.Group
}

func NewSummaryService(log *zap.Logger, alloc *reservation.Allocator, opts SummaryOptions) *SummaryService {
	if log == nil {
		log = zap.NewNop()
	}
	opts.setDefaults()

	return &SummaryService{
		log:   log.Named("summary"),
		alloc: alloc,
		opts:  opts,
		now:   time.Now,
	}
}

// Get returns the cached snapshot or refreshes it when expired.
func (s *SummaryService) Get(ctx context.Context) (SummaryResult, error) {
	if res, ok := s.fresh(); ok {
		return res, nil
	}

	v, err, _ := s.sg.Do("summary-refresh", func() (any, error) {
		// Double-check freshness after we won the flight
		if res, ok := s.fresh(); ok {
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.mu.RLock()
		gen := s.gen
		s.mu.RUnlock()

		start := s.now()
		data := FloorSummary{
			Stats:    s.alloc.Stats(),
			Tables:   s.alloc.Tables(),
			Waitlist: s.alloc.Waitlist(),
		}

		s.mu.Lock()
		stored := s.gen == gen
		if stored {
			s.cache = &data
			s.expires = start.Add(s.opts.TTL)
			s.genAt = start
		}
		s.mu.Unlock()

		if !stored {
			s.log.Debug("summary invalidated during refresh; not cached")
		}

		s.log.Debug("summary refreshed", zap.Duration("took", s.now().Sub(start)))
		return SummaryResult{Data: cloneSummary(data), CacheHit: false, GeneratedAt: start}, nil
	})
	if err != nil {
		return SummaryResult{}, err
	}
	return v.(SummaryResult), nil
}

func (s *SummaryService) fresh() (SummaryResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cache != nil && s.now().Before(s.expires) {
		return SummaryResult{Data: cloneSummary(*s.cache), CacheHit: true, GeneratedAt: s.genAt}, true
	}
	return SummaryResult{}, false
}

func (s *SummaryService) Invalidate() {
	s.mu.Lock()
	s.gen++
	s.cache = nil
	s.expires = time.Time{}
	s.genAt = time.Time{}
	s.mu.Unlock()
}

func cloneSummary(in FloorSummary) FloorSummary {
	out := FloorSummary{Stats: in.Stats}
	out.Tables = append([]reservation.TableState{}, in.Tables...)
	out.Waitlist = append([]reservation.WaitEntry{}, in.Waitlist...)
	return out
}
