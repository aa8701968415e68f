package customer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/edirooss/tablemux/internal/infrastructure/objectstore"
	"go.uber.org/zap"
)

var (
	// ErrNotFound means the customer ID is not (or no longer) registered.
	ErrNotFound = errors.New("customer not found")
	// ErrEmptyName means a customer was registered without a name.
	ErrEmptyName = errors.New("customer name must be non-empty")
)

// Customer is a party contending for a table.
// Customers are owned by the Directory that registered them; the
// reservation engine only borrows them.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Directory is the registry of live customers.
//
// Ownership:
//   - Register is the only way a Customer comes into existence.
//   - Discard ends the customer's life as far as lookups are concerned.
//     Components still holding the pointer keep a valid value, but any
//     component that only remembers the ID will find it gone.
//
// IDs are monotonic and never recycled, so a stale ID can never resolve
// to a different customer.
type Directory struct {
	log *zap.Logger

	mu   sync.Mutex // guards next
	next int64
	objs *objectstore.ObjectStore[*Customer]
	now  func() time.Time
}

func NewDirectory(log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("customer-directory")

	return &Directory{
		log:  log,
		objs: objectstore.NewObjectStore[*Customer](log),
		now:  time.Now,
	}
}

// Register creates a new live customer.
func (d *Directory) Register(name string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	d.mu.Lock()
	d.next++
	id := d.next
	d.mu.Unlock()

	c := &Customer{ID: id, Name: name, CreatedAt: d.now()}
	d.objs.Upsert(id, c)

	d.log.Debug("registered", zap.Int64("id", id), zap.String("name", name))
	return c, nil
}

// Discard removes the customer from the directory.
func (d *Directory) Discard(id int64) error {
	if !d.objs.Delete(id) {
		return fmt.Errorf("discard %d: %w", id, ErrNotFound)
	}
	d.log.Debug("discarded", zap.Int64("id", id))
	return nil
}

// Lookup resolves a customer ID to its live value.
// ok is false once the customer has been discarded.
func (d *Directory) Lookup(id int64) (*Customer, bool) {
	return d.objs.GetOne(id)
}

// Get is Lookup with an error for callers that need one.
func (d *Directory) Get(id int64) (*Customer, error) {
	c, ok := d.objs.GetOne(id)
	if !ok {
		return nil, fmt.Errorf("get %d: %w", id, ErrNotFound)
	}
	return c, nil
}

// List returns live customers in ascending ID order.
func (d *Directory) List() []*Customer {
	_, vals := d.objs.GetList()
	return vals
}
