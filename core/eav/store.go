// Package eav stores per-sheet member attributes as entity-attribute-value
// rows and projects them back into flat records. It builds the joins needed
// to filter and sort members on individual attributes, hydrates member rows
// with their values, and validates every write through the rule engine.
package eav

import (
	"context"
	"sync"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/asaidimu/go-memberdata/core/query"
	"github.com/asaidimu/go-memberdata/core/rules"
	"github.com/asaidimu/go-memberdata/core/schema"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a write targets a sheet or member that does not exist.
var ErrNotFound = errors.New("not found")

const timestampLayout = "2006-01-02 15:04:05"

// Store is the entry point to the attribute store. It is safe for
// concurrent use; per-request state lives in Request.
type Store struct {
	exec      query.Executor
	tables    Tables
	opts      Options
	validator *rules.Validator
	logger    *zap.Logger
	metrics   *Metrics
	now       func() time.Time

	bus           *events.TypedEventBus[Event]
	subscriptions map[string]subscription
	subMu         sync.Mutex
}

// NewStore creates a store running its statements on exec. metrics may be nil.
func NewStore(exec query.Executor, opts *Options, logger *zap.Logger, metrics *Metrics) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	o.normalize()

	bus, err := events.NewTypedEventBus[Event](events.DefaultConfig())
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize event bus")
	}

	s := &Store{
		exec:          exec,
		tables:        NewTables(o.Prefix),
		opts:          o,
		logger:        logger,
		metrics:       metrics,
		now:           time.Now,
		bus:           bus,
		subscriptions: make(map[string]subscription),
	}
	s.validator = rules.NewValidator(rules.NewRegistry(logger), s, logger)
	return s, nil
}

// Tables returns the table names used by the store.
func (s *Store) Tables() Tables {
	return s.tables
}

// Validator returns the validator applied to writes. Rules registered on its
// registry become available to attribute rule specs.
func (s *Store) Validator() *rules.Validator {
	return s.validator
}

func (s *Store) builder() *query.Builder {
	return query.New(s.exec, s.logger)
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// Exists implements rules.Resolver for the "sheet" and "member" models.
// Soft-deleted entities do not exist.
func (s *Store) Exists(ctx context.Context, model string, id int64) (bool, error) {
	var table string
	switch model {
	case "sheet":
		table = s.tables.Sheet
	case "member":
		table = s.tables.Member
	default:
		return false, errors.Newf("unknown model %q", model)
	}
	n, err := s.builder().From(table).Where("id", id).Where("softdeleted", nil).Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Request carries the state of one logical request: the acting user and the
// schemas read so far. A Request must not be shared between goroutines.
type Request struct {
	store   *Store
	actor   int64
	schemas map[int64]schema.Schema
}

// NewRequest starts a request on behalf of actor. Writes record actor as
// modifier or deletor.
func (s *Store) NewRequest(actor int64) *Request {
	return &Request{
		store:   s,
		actor:   actor,
		schemas: make(map[int64]schema.Schema),
	}
}
