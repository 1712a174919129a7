package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/OFFIS-RIT/paperkg/internal/config"
	"github.com/OFFIS-RIT/paperkg/pkg/artifact"
	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/leaselock"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	"github.com/OFFIS-RIT/paperkg/pkg/ner"
	"github.com/OFFIS-RIT/paperkg/pkg/sections"
	"github.com/OFFIS-RIT/paperkg/pkg/segment"
	"github.com/OFFIS-RIT/paperkg/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// AllPhases is the default phase selection.
var AllPhases = []int{1, 2, 3, 4, 5}

// Locker serializes runs of the same paper. *leaselock.Client implements it.
type Locker interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// PhaseRecorder receives the duration of every executed phase.
type PhaseRecorder interface {
	Record(ctx context.Context, paperID string, phase, amount int, d time.Duration) error
}

type RunOptions struct {
	Phases []int
	// Force reruns phases whose output already exists.
	Force bool
}

// Runner executes the phases of one paper over an artifact store. Each phase
// reads the output of its predecessor and fails when it is missing.
type Runner struct {
	store    artifact.Store
	deps     Deps
	opts     *config.Options
	locker   Locker
	lockOpts leaselock.Options
	sink     store.GraphSink
	recorder PhaseRecorder
}

type RunnerOption func(*Runner)

func WithLocker(l Locker, opts leaselock.Options) RunnerOption {
	return func(r *Runner) {
		r.locker = l
		r.lockOpts = opts
	}
}

// WithSink loads the phase 5 graph into an external database.
func WithSink(s store.GraphSink) RunnerOption {
	return func(r *Runner) {
		r.sink = s
	}
}

func WithRecorder(rec PhaseRecorder) RunnerOption {
	return func(r *Runner) {
		r.recorder = rec
	}
}

func NewRunner(st artifact.Store, deps Deps, opts *config.Options, options ...RunnerOption) *Runner {
	if opts == nil {
		opts = config.Default()
	}
	r := &Runner{store: st, deps: deps, opts: opts}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// ParsePhases parses "all" or a comma separated list such as "1,3,5".
// The result is sorted and free of duplicates.
func ParsePhases(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return slices.Clone(AllPhases), nil
	}
	var phases []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > 5 {
			return nil, fmt.Errorf("invalid phase %q", part)
		}
		phases = append(phases, n)
	}
	if len(phases) == 0 {
		return nil, fmt.Errorf("no phases selected in %q", s)
	}
	slices.Sort(phases)
	return slices.Compact(phases), nil
}

// Run executes the selected phases of paperID in order.
func (r *Runner) Run(ctx context.Context, paperID string, ro RunOptions) error {
	if paperID == "" {
		return errors.New("missing paper id")
	}
	if r.locker == nil {
		return r.run(ctx, paperID, ro)
	}
	return r.locker.WithLease(ctx, leaselock.PaperKey(paperID), r.lockOpts, func(ctx context.Context) error {
		return r.run(ctx, paperID, ro)
	})
}

func (r *Runner) run(ctx context.Context, paperID string, ro RunOptions) error {
	phases := ro.Phases
	if len(phases) == 0 {
		phases = AllPhases
	}
	runID, err := gonanoid.New()
	if err != nil {
		return err
	}
	p := artifact.Paths{PaperID: paperID}
	logger.Info("[Pipeline] Run started", "paper_id", paperID, "run_id", runID, "phases", phases, "force", ro.Force)

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := r.store.Exists(ctx, r.phaseOutput(p, phase))
		if err != nil {
			return err
		}
		if done && !ro.Force {
			logger.Info("[Pipeline] Phase output present, skipping", "paper_id", paperID, "phase", phase)
			continue
		}

		start := time.Now()
		amount, err := r.runPhase(ctx, p, phase)
		if err != nil {
			return fmt.Errorf("phase %d of %s: %w", phase, paperID, err)
		}
		elapsed := time.Since(start)
		logger.Info("[Pipeline] Phase done", "paper_id", paperID, "run_id", runID, "phase", phase, "items", amount, "took", elapsed)

		if r.recorder != nil {
			if err := r.recorder.Record(ctx, paperID, phase, amount, elapsed); err != nil {
				logger.Warn("[Pipeline] Failed to record phase timing", "paper_id", paperID, "phase", phase, "err", err)
			}
		}
	}
	return nil
}

func (r *Runner) phaseOutput(p artifact.Paths, phase int) string {
	switch phase {
	case 1:
		return p.Sections()
	case 2:
		return p.Sentences()
	case 3:
		return p.Entities()
	case 4:
		return p.Relations()
	default:
		return p.Graph(fileCore)
	}
}

func (r *Runner) runPhase(ctx context.Context, p artifact.Paths, phase int) (int, error) {
	switch phase {
	case 1:
		return r.phaseSections(ctx, p)
	case 2:
		return r.phaseSentences(ctx, p)
	case 3:
		return r.phaseEntities(ctx, p)
	case 4:
		return r.phaseRelations(ctx, p)
	case 5:
		return r.phaseGraph(ctx, p)
	default:
		return 0, fmt.Errorf("unknown phase %d", phase)
	}
}

func (r *Runner) phaseSections(ctx context.Context, p artifact.Paths) (int, error) {
	data, err := r.store.Read(ctx, p.Content())
	if err != nil {
		return 0, err
	}
	content, err := sections.ParseContent(data)
	if err != nil {
		return 0, err
	}
	secs, err := parseSections(r.deps, content)
	if err != nil {
		return 0, err
	}
	return len(secs), artifact.WriteJSON(ctx, r.store, p.Sections(), secs)
}

func (r *Runner) phaseSentences(ctx context.Context, p artifact.Paths) (int, error) {
	var secs []common.Section
	if err := artifact.ReadJSON(ctx, r.store, p.Sections(), &secs); err != nil {
		return 0, err
	}
	if secs == nil {
		secs = []common.Section{}
	}
	sentences, err := segment.Segment(ctx, r.deps.Segmenter, secs)
	if err != nil {
		return 0, err
	}
	return len(sentences), artifact.WriteJSONL(ctx, r.store, p.Sentences(), sentences)
}

func (r *Runner) phaseEntities(ctx context.Context, p artifact.Paths) (int, error) {
	sentences, err := artifact.ReadJSONL[common.Sentence](ctx, r.store, p.Sentences())
	if err != nil {
		return 0, err
	}
	mentions, err := extractEntities(ctx, r.deps, r.opts, sentences)
	if err != nil {
		return 0, err
	}
	if err := artifact.WriteJSONL(ctx, r.store, p.Entities(), mentions); err != nil {
		return 0, err
	}
	return len(mentions), artifact.WriteJSONL(ctx, r.store, p.NormalizedEntities(), ner.Normalize(mentions))
}

func (r *Runner) phaseRelations(ctx context.Context, p artifact.Paths) (int, error) {
	sentences, err := artifact.ReadJSONL[common.Sentence](ctx, r.store, p.Sentences())
	if err != nil {
		return 0, err
	}
	mentions, err := artifact.ReadJSONL[common.EntityMention](ctx, r.store, p.Entities())
	if err != nil {
		return 0, err
	}
	rels, err := extractRelations(ctx, r.deps, r.opts, sentences, mentions)
	if err != nil {
		return 0, err
	}
	return len(rels), artifact.WriteJSONL(ctx, r.store, p.Relations(), rels)
}
