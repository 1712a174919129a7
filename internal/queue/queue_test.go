package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/OFFIS-RIT/paperkg/pkg/artifact"
	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/pipeline"

	"github.com/rabbitmq/amqp091-go"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"paper_id": "PMC1", "phases": "1,2", "force": true}`, false},
		{"missing id", `{"phases": "all"}`, true},
		{"path in id", `{"paper_id": "../etc"}`, true},
		{"not json", `paper`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg PaperMsg
			err := Decode([]byte(tt.body), &msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name        string
		headers     amqp091.Table
		cause       error
		wantTarget  string
		wantRetries int
	}{
		{"first failure", nil, errors.New("boom"), "paper_queue_retry", 1},
		{"counts up", amqp091.Table{"x-retries": int32(4)}, errors.New("boom"), "paper_queue_retry", 5},
		{"exhausted", amqp091.Table{"x-retries": int32(10)}, errors.New("boom"), "paper_queue_dlq", 10},
		{"permanent", nil, errors.Join(ErrPermanent, errors.New("bad")), "paper_queue_dlq", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, headers := route(PaperQueue, tt.headers, tt.cause)
			if target != tt.wantTarget || retries(headers) != tt.wantRetries {
				t.Errorf("route() = (%s, %d), want (%s, %d)", target, retries(headers), tt.wantTarget, tt.wantRetries)
			}
		})
	}
}

type fakePublisher struct {
	keys []string
	err  error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, _, key string, _, _ bool, _ amqp091.Publishing) error {
	f.keys = append(f.keys, key)
	return f.err
}

type fakeAck struct {
	acked, nacked bool
}

func (f *fakeAck) Ack(bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(bool, bool) error {
	f.nacked = true
	return nil
}

func TestHandleProcessingError(t *testing.T) {
	pub := &fakePublisher{}
	ack := &fakeAck{}
	handleProcessingError(context.Background(), pub, ack, []byte("{}"), nil, PaperQueue, errors.New("boom"))
	if len(pub.keys) != 1 || pub.keys[0] != "paper_queue_retry" || !ack.acked {
		t.Fatalf("published %v, acked %v", pub.keys, ack.acked)
	}

	pub = &fakePublisher{err: errors.New("closed")}
	ack = &fakeAck{}
	handleProcessingError(context.Background(), pub, ack, []byte("{}"), nil, PaperQueue, errors.New("boom"))
	if !ack.nacked || ack.acked {
		t.Fatalf("expected nack when publishing fails")
	}
}

type fakeRunner struct {
	ids  []string
	opts []pipeline.RunOptions
	err  error
}

func (f *fakeRunner) Run(_ context.Context, id string, ro pipeline.RunOptions) error {
	f.ids = append(f.ids, id)
	f.opts = append(f.opts, ro)
	return f.err
}

type fakeSink struct {
	deleted []string
}

func (f *fakeSink) SaveGraph(context.Context, common.Graph) error { return nil }

func (f *fakeSink) DeleteGraph(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestHandlerProcessPaper(t *testing.T) {
	runner := &fakeRunner{}
	h := &Handler{Runner: runner, Store: artifact.NewFSStore(t.TempDir())}

	if err := h.Process(context.Background(), PaperQueue, []byte(`{"paper_id": "PMC1", "phases": "3,4"}`)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(runner.ids) != 1 || runner.ids[0] != "PMC1" || len(runner.opts[0].Phases) != 2 {
		t.Fatalf("runner calls = %v %v", runner.ids, runner.opts)
	}

	err := h.Process(context.Background(), PaperQueue, []byte(`{"paper_id": "PMC1", "phases": "9"}`))
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("Process() error = %v, want ErrPermanent", err)
	}

	runner.err = pipeline.ErrMissingSections
	err = h.Process(context.Background(), PaperQueue, []byte(`{"paper_id": "PMC2"}`))
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("Process() error = %v, want ErrPermanent", err)
	}
}

func TestHandlerProcessDelete(t *testing.T) {
	ctx := context.Background()
	st := artifact.NewFSStore(t.TempDir())
	p := artifact.Paths{PaperID: "PMC1"}
	for _, key := range []string{p.Content(), p.Sections(), p.Graph("graph_core.json")} {
		if err := st.Write(ctx, key, []byte("{}")); err != nil {
			t.Fatal(err)
		}
	}

	sink := &fakeSink{}
	h := &Handler{Runner: &fakeRunner{}, Store: st, Sink: sink}
	if err := h.Process(ctx, DeleteQueue, []byte(`{"paper_id": "PMC1"}`)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if ok, _ := st.Exists(ctx, p.Content()); !ok {
		t.Errorf("converter output was deleted")
	}
	if ok, _ := st.Exists(ctx, p.Sections()); ok {
		t.Errorf("phase output survived")
	}
	if len(sink.deleted) != 1 || sink.deleted[0] != "PMC1" {
		t.Errorf("sink deletes = %v", sink.deleted)
	}
}
