package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edirooss/tablemux/internal/domain/customer"
	"github.com/edirooss/tablemux/internal/infrastructure/ringbuf"
	"github.com/edirooss/tablemux/internal/notify"
	"github.com/edirooss/tablemux/internal/reservation"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid input")
)

// ReservationService is the application side of the allocator: it owns the
// customer directory, drives the allocator, and notifies seated customers.
// Notifications are sent after the allocator call returns, never under its lock.
type ReservationService struct {
	log *zap.Logger

	dir     *customer.Directory
	alloc   *reservation.Allocator
	pub     notify.Publisher
	summary *SummaryService
	recent  *ringbuf.Ring[Activity] // recent floor activity, newest first on read

	now            func() time.Time
	publishTimeout time.Duration
}

type ReservationOptions struct {
	Publisher notify.Publisher // nil → notify.Nop
	Summary   SummaryOptions
	History   int // activity entries kept; default 500
}

// Activity is one entry of the floor activity log.
type Activity struct {
	At         time.Time `json:"at"`
	Kind       string    `json:"kind"`
	CustomerID int64     `json:"customer_id,omitempty"`
	TableID    int       `json:"table_id,omitempty"`
}

func NewReservationService(log *zap.Logger, dir *customer.Directory, alloc *reservation.Allocator, opts ReservationOptions) (*ReservationService, error) {
	if dir == nil || alloc == nil {
		return nil, errors.New("nil directory or allocator")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("reservation-service")

	pub := opts.Publisher
	if pub == nil {
		pub = notify.Nop{}
	}

	if opts.History <= 0 {
		opts.History = 500
	}

	return &ReservationService{
		log:            log,
		dir:            dir,
		alloc:          alloc,
		pub:            pub,
		summary:        NewSummaryService(log, alloc, opts.Summary),
		recent:         ringbuf.New[Activity](opts.History),
		now:            time.Now,
		publishTimeout: 2 * time.Second,
	}, nil
}

func (s *ReservationService) RegisterCustomer(name string) (*customer.Customer, error) {
	c, err := s.dir.Register(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return c, nil
}

// DiscardCustomer ends the customer's registration. A seated customer keeps
// its table until released; a waitlisted one is skipped when reached.
func (s *ReservationService) DiscardCustomer(id int64) error {
	if err := s.dir.Discard(id); err != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	s.summary.Invalidate()
	s.record("customer_discarded", id, 0)
	return nil
}

func (s *ReservationService) ListCustomers() []*customer.Customer {
	return s.dir.List()
}

// Reserve asks the allocator for a table on behalf of a registered customer.
func (s *ReservationService) Reserve(customerID int64) (reservation.Grant, error) {
	c, err := s.dir.Get(customerID)
	if err != nil {
		return reservation.Grant{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	g, err := s.alloc.Request(c)
	if err != nil {
		if errors.Is(err, reservation.ErrDuplicateCustomer) {
			return reservation.Grant{}, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return reservation.Grant{}, err
	}
	s.summary.Invalidate()
	s.record(g.Status.String(), c.ID, g.TableID)

	s.log.Info("reservation requested",
		zap.Int64("customer_id", c.ID),
		zap.Stringer("status", g.Status),
		zap.Int("table_id", g.TableID),
		zap.Int("position", g.Position))
	return g, nil
}

// CancelWaiting takes a customer off the waitlist.
func (s *ReservationService) CancelWaiting(customerID int64) error {
	if !s.alloc.Cancel(customerID) {
		return fmt.Errorf("%w: customer %d not on waitlist", ErrNotFound, customerID)
	}
	s.summary.Invalidate()
	s.record("cancelled", customerID, 0)
	return nil
}

// Release frees a table. When the waitlist head is seated as a result, a
// table_granted event is published; publish failures are logged only.
func (s *ReservationService) Release(ctx context.Context, tableID int) (reservation.ReleaseResult, error) {
	res, err := s.alloc.Release(tableID)
	if err != nil {
		if errors.Is(err, reservation.ErrUnknownTable) {
			return res, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return res, err
	}
	if res.Status == reservation.StatusAlreadyFree {
		return res, nil
	}
	s.summary.Invalidate()

	var holderID int64
	if res.Holder != nil {
		holderID = res.Holder.ID
	}
	s.record(res.Status.String(), holderID, tableID)

	if len(res.Dropped) > 0 {
		s.log.Info("stale waitlist entries dropped", zap.Int64s("customer_ids", res.Dropped))
		for _, id := range res.Dropped {
			s.record("stale_dropped", id, 0)
		}
	}

	if a := res.Reassigned; a != nil {
		s.record("reassigned", a.Customer.ID, a.TableID)

		ev := notify.NewTableGranted(a.Customer.ID, a.Customer.Name, a.TableID, s.now())

		ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()
		if err := s.pub.Publish(ctx, ev); err != nil {
			s.log.Warn("table_granted publish failed",
				zap.Int64("customer_id", a.Customer.ID),
				zap.Int("table_id", a.TableID),
				zap.Error(err))
		}
	}
	return res, nil
}

func (s *ReservationService) Tables() []reservation.TableState { return s.alloc.Tables() }

func (s *ReservationService) Waitlist() []reservation.WaitEntry { return s.alloc.Waitlist() }

func (s *ReservationService) ListWaiting() []string { return s.alloc.ListWaiting() }

func (s *ReservationService) PruneWaitlist() []int64 {
	pruned := s.alloc.PruneWaitlist()
	if len(pruned) > 0 {
		s.summary.Invalidate()
	}
	return pruned
}

// Activity returns up to n recent activity entries, newest first.
// n ≤ 0 means everything kept.
func (s *ReservationService) Activity(n int) []Activity {
	return s.recent.Read(n)
}

func (s *ReservationService) record(kind string, customerID int64, tableID int) {
	s.recent.Append(Activity{At: s.now(), Kind: kind, CustomerID: customerID, TableID: tableID})
}

func (s *ReservationService) Summary(ctx context.Context, force bool) (SummaryResult, error) {
	if force {
		s.summary.Invalidate()
	}
	return s.summary.Get(ctx)
}
