package pipeline

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/OFFIS-RIT/paperkg/pkg/artifact"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one paper of a batch.
type BatchResult struct {
	PaperID string        `json:"paper_id"`
	Err     error         `json:"-"`
	Error   string        `json:"error,omitempty"`
	Took    time.Duration `json:"took"`
	Report  *Report       `json:"report,omitempty"`
}

// RunBatch runs every paper with at most parallel papers in flight. A failed
// paper does not stop the others; results keep the order of paperIDs.
func (r *Runner) RunBatch(ctx context.Context, paperIDs []string, ro RunOptions, parallel int) []BatchResult {
	if parallel <= 0 {
		parallel = 1
	}
	results := make([]BatchResult, len(paperIDs))
	defer logger.Timed("[Pipeline] Batch finished", "papers", len(paperIDs), "parallel", parallel)()

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, id := range paperIDs {
		g.Go(func() error {
			start := time.Now()
			res := BatchResult{PaperID: id}
			if err := r.Run(ctx, id, ro); err != nil {
				logger.Error("[Pipeline] Paper failed", "paper_id", id, "err", err)
				res.Err = err
				res.Error = err.Error()
			} else if rep, err := CollectReport(ctx, r.store, id); err == nil {
				res.Report = &rep
			}
			res.Took = time.Since(start)
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// DiscoverPapers lists the ids of all papers that have converter output,
// i.e. a <id>/summary_and_content/<id>.content.json key.
func DiscoverPapers(ctx context.Context, st artifact.Store) ([]string, error) {
	keys, err := st.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, k := range keys {
		parts := strings.Split(k, "/")
		if len(parts) != 3 || parts[1] != "summary_and_content" {
			continue
		}
		id := parts[0]
		if path.Base(k) == id+".content.json" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
