package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/paperkg/pkg/artifact"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	"github.com/OFFIS-RIT/paperkg/pkg/pipeline"
	"github.com/OFFIS-RIT/paperkg/pkg/store"
)

// ErrPermanent marks failures a retry cannot fix. Such messages go straight
// to the dead letter queue.
var ErrPermanent = errors.New("permanent failure")

type Runner interface {
	Run(ctx context.Context, paperID string, ro pipeline.RunOptions) error
}

// Handler processes queue messages.
type Handler struct {
	Runner Runner
	Store  artifact.Store
	// Sink is optional.
	Sink store.GraphSink
}

// Process dispatches body by queue name.
func (h *Handler) Process(ctx context.Context, queueName string, body []byte) error {
	switch queueName {
	case PaperQueue:
		return h.ProcessPaper(ctx, body)
	case DeleteQueue:
		return h.ProcessDelete(ctx, body)
	default:
		return fmt.Errorf("%w: unknown queue %s", ErrPermanent, queueName)
	}
}

func (h *Handler) ProcessPaper(ctx context.Context, body []byte) error {
	var msg PaperMsg
	if err := Decode(body, &msg); err != nil {
		return errors.Join(ErrPermanent, err)
	}
	phases, err := pipeline.ParsePhases(msg.Phases)
	if err != nil {
		return errors.Join(ErrPermanent, err)
	}

	logger.Info("[Queue] Processing paper", "paper_id", msg.PaperID, "phases", phases, "force", msg.Force)
	err = h.Runner.Run(ctx, msg.PaperID, pipeline.RunOptions{Phases: phases, Force: msg.Force})
	if errors.Is(err, pipeline.ErrMissingSections) || errors.Is(err, artifact.ErrNotFound) {
		return errors.Join(ErrPermanent, err)
	}
	return err
}

func (h *Handler) ProcessDelete(ctx context.Context, body []byte) error {
	var msg DeletePaperMsg
	if err := Decode(body, &msg); err != nil {
		return errors.Join(ErrPermanent, err)
	}

	logger.Info("[Queue] Deleting paper graph", "paper_id", msg.PaperID)
	if err := h.Store.Delete(ctx, msg.PaperID+"/graph/"); err != nil {
		return fmt.Errorf("failed to delete artifacts: %w", err)
	}
	if h.Sink != nil {
		if err := h.Sink.DeleteGraph(ctx, msg.PaperID); err != nil {
			return fmt.Errorf("failed to delete stored graph: %w", err)
		}
	}
	return nil
}
