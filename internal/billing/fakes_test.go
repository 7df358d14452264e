package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-memory collaborators standing in for the storage event source, the
// pricing ledger and the invoice store.

type memFileSource struct {
	mu    sync.Mutex
	files map[uuid.UUID][]FileRecord
}

func newMemFileSource() *memFileSource {
	return &memFileSource{files: make(map[uuid.UUID][]FileRecord)}
}

func (s *memFileSource) add(rec FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[rec.OwnerID] = append(s.files[rec.OwnerID], rec)
}

// ListFiles applies the same query-stage window filter the Postgres
// implementation does.
func (s *memFileSource) ListFiles(_ context.Context, userID uuid.UUID, windowStart, windowEnd time.Time) ([]FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []FileRecord
	for _, rec := range s.files[userID] {
		if !rec.CreatedAt.Before(windowEnd) {
			continue
		}
		if rec.DeletedAt != nil && !rec.DeletedAt.After(windowStart) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

type memPriceSource struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]PriceEntry
}

func newMemPriceSource() *memPriceSource {
	return &memPriceSource{entries: make(map[uuid.UUID][]PriceEntry)}
}

func (s *memPriceSource) add(entry PriceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.UserID] = append(s.entries[entry.UserID], entry)
}

func (s *memPriceSource) LatestPrice(_ context.Context, userID uuid.UUID, asOf time.Time) (*PriceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *PriceEntry
	for i := range s.entries[userID] {
		entry := s.entries[userID][i]
		if entry.EffectiveFrom.After(asOf) {
			continue
		}
		if latest == nil || entry.EffectiveFrom.After(latest.EffectiveFrom) {
			latest = &entry
		}
	}
	return latest, nil
}

type memInvoiceStore struct {
	mu       sync.Mutex
	invoices map[string]Invoice

	// failuresLeft makes the next N CreateIfAbsent calls fail with a
	// transient error, for retry tests.
	failuresLeft int
}

func newMemInvoiceStore() *memInvoiceStore {
	return &memInvoiceStore{invoices: make(map[string]Invoice)}
}

func invoiceKey(userID uuid.UUID, year, month int) string {
	return fmt.Sprintf("%s/%04d-%02d", userID, year, month)
}

func (s *memInvoiceStore) CreateIfAbsent(_ context.Context, inv Invoice) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failuresLeft > 0 {
		s.failuresLeft--
		return false, errors.New("store write failed")
	}

	key := invoiceKey(inv.UserID, inv.Year, inv.Month)
	if _, exists := s.invoices[key]; exists {
		return false, nil
	}
	s.invoices[key] = inv
	return true, nil
}

func (s *memInvoiceStore) ListByUser(_ context.Context, userID uuid.UUID) ([]Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Invoice
	for _, inv := range s.invoices {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (s *memInvoiceStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices)
}

func (s *memInvoiceStore) get(userID uuid.UUID, year, month int) (Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[invoiceKey(userID, year, month)]
	return inv, ok
}

type memUserSource struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (s *memUserSource) add(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
}

func (s *memUserSource) ListUserIDs(context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.ids...), nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) ReleaseLock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

// testEnv bundles the fakes most billing tests need.
type testEnv struct {
	users    *memUserSource
	files    *memFileSource
	prices   *memPriceSource
	invoices *memInvoiceStore
}

func newTestEnv() *testEnv {
	return &testEnv{
		users:    &memUserSource{},
		files:    newMemFileSource(),
		prices:   newMemPriceSource(),
		invoices: newMemInvoiceStore(),
	}
}

func (e *testEnv) stores() Stores {
	return Stores{
		Users:    e.users,
		Files:    e.files,
		Prices:   e.prices,
		Invoices: e.invoices,
	}
}
