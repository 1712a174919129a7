package timing

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type fakeDB struct {
	args []any
}

func (f *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	f.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestRecord(t *testing.T) {
	db := &fakeDB{}
	r := NewRecorder(db)
	if err := r.Record(context.Background(), "PMC1", 3, 12, 1500*time.Millisecond); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(db.args) != 4 || db.args[0] != "PMC1" || db.args[1] != int32(3) || db.args[2] != int32(12) || db.args[3] != int64(1500) {
		t.Fatalf("Record() args = %#v", db.args)
	}
}
