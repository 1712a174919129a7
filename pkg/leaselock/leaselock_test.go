package leaselock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct {
	key string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.key
	return nil
}

// fakeDB keeps lock holders in memory and ignores expiry.
type fakeDB struct {
	mu      sync.Mutex
	holders map[string]string
}

func newFakeDB() *fakeDB {
	return &fakeDB{holders: make(map[string]string)}
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, token := args[0].(string), args[1].(string)
	holder, held := f.holders[key]
	switch sql {
	case tryAcquireSQL:
		if held && holder != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		f.holders[key] = token
		return fakeRow{key: key}
	case renewSQL:
		if !held || holder != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{key: key}
	}
	return fakeRow{err: errors.New("unexpected query")}
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sql == releaseSQL && f.holders[args[0].(string)] == args[1].(string) {
		delete(f.holders, args[0].(string))
	}
	return pgconn.CommandTag{}, nil
}

func TestAcquireBusyAndRelease(t *testing.T) {
	ctx := context.Background()
	c := New(newFakeDB())

	first, err := c.Acquire(ctx, PaperKey("PMC1"), Options{})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := c.Acquire(ctx, PaperKey("PMC1"), Options{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Acquire() error = %v, want ErrBusy", err)
	}
	if _, err := c.Acquire(ctx, PaperKey("PMC2"), Options{}); err != nil {
		t.Fatalf("Acquire(other paper) error = %v", err)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if first.Context.Err() == nil {
		t.Fatalf("lease context not cancelled after Release")
	}
	if _, err := c.Acquire(ctx, PaperKey("PMC1"), Options{}); err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
}

func TestWithLeaseReportsLostLease(t *testing.T) {
	db := newFakeDB()
	c := New(db)

	err := c.WithLease(context.Background(), "k", Options{TTL: 2 * time.Second, RenewEvery: 10 * time.Millisecond}, func(ctx context.Context) error {
		db.mu.Lock()
		db.holders["k"] = "someone-else"
		db.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrLost) {
		t.Fatalf("WithLease() error = %v, want ErrLost", err)
	}
}

func TestAcquireEmptyKey(t *testing.T) {
	if _, err := New(newFakeDB()).Acquire(context.Background(), "", Options{}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
