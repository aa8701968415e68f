package reservation

import (
	"errors"
	"fmt"

	"github.com/edirooss/tablemux/internal/domain/customer"
)

var (
	// ErrInvalidCapacity is returned by New for a negative capacity.
	ErrInvalidCapacity = errors.New("invalid capacity")
	// ErrUnknownTable means the table ID is outside the pool.
	ErrUnknownTable = errors.New("unknown table")
	// ErrNilCustomer means Request was called without a customer.
	ErrNilCustomer = errors.New("nil customer")
	// ErrDuplicateCustomer means the customer already holds a table or is waiting for one.
	ErrDuplicateCustomer = errors.New("customer already seated or waiting")
	// ErrNilLiveness means New was called without a liveness source.
	ErrNilLiveness = errors.New("nil liveness source")
)

// Status is the outcome of a Request or Release call.
// None of these are errors.
type Status int

const (
	StatusGranted Status = iota + 1
	StatusQueued
	StatusReleased
	StatusAlreadyFree
)

func (s Status) String() string {
	switch s {
	case StatusGranted:
		return "granted"
	case StatusQueued:
		return "queued"
	case StatusReleased:
		return "released"
	case StatusAlreadyFree:
		return "already_free"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Grant is the result of Request.
//   - Granted: TableID is the assigned table.
//   - Queued: Position is the 1-based place among live waitlist entries at
//     enqueue time, the same numbering Waitlist uses.
type Grant struct {
	Status   Status `json:"status"`
	TableID  int    `json:"table_id,omitempty"`
	Position int    `json:"position,omitempty"`
}

// Assignment records a waitlisted customer that was seated during a release.
type Assignment struct {
	Customer *customer.Customer `json:"customer"`
	TableID  int                `json:"table_id"`
}

// ReleaseResult is the result of Release.
type ReleaseResult struct {
	Status     Status             `json:"status"`
	TableID    int                `json:"table_id"`
	Holder     *customer.Customer `json:"holder,omitempty"`     // former holder; nil on AlreadyFree
	Reassigned *Assignment        `json:"reassigned,omitempty"` // set when the waitlist head was seated
	Dropped    []int64            `json:"dropped"`              // stale waitlist IDs discarded on this pass
}

// Policy selects how the waitlist is reprocessed after a release.
type Policy int

const (
	// PolicyHeadOnly looks at the waitlist head only. A stale head is
	// discarded and the pass ends, leaving the freed table unassigned.
	PolicyHeadOnly Policy = iota
	// PolicyScanForward discards stale entries until a live customer is
	// seated or the waitlist is exhausted.
	PolicyScanForward
)

func (p Policy) String() string {
	switch p {
	case PolicyHeadOnly:
		return "head_only"
	case PolicyScanForward:
		return "scan_forward"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a config string to a Policy. Empty means PolicyHeadOnly.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "head_only":
		return PolicyHeadOnly, nil
	case "scan_forward":
		return PolicyScanForward, nil
	default:
		return 0, fmt.Errorf("unknown waitlist policy %q", s)
	}
}

// TableState is a read-only view of one table and its holder.
type TableState struct {
	ID         int    `json:"id"`
	Occupied   bool   `json:"occupied"`
	HolderID   int64  `json:"holder_id,omitempty"`
	HolderName string `json:"holder_name,omitempty"`
}

// WaitEntry is a live waitlist entry.
type WaitEntry struct {
	Position   int    `json:"position"`
	CustomerID int64  `json:"customer_id"`
	Name       string `json:"name"`
}

// Stats is a point-in-time count snapshot.
// Waiting counts raw entries, stale ones included.
type Stats struct {
	Capacity int `json:"capacity"`
	Occupied int `json:"occupied"`
	Free     int `json:"free"`
	Waiting  int `json:"waiting"`
}
