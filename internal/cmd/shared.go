package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/paperkg/internal/app"
	"github.com/OFFIS-RIT/paperkg/internal/config"
	"github.com/OFFIS-RIT/paperkg/internal/timing"
	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/artifact"
	"github.com/OFFIS-RIT/paperkg/pkg/leaselock"
	"github.com/OFFIS-RIT/paperkg/pkg/pipeline"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
)

// env bundles what the pipeline commands share. close releases everything.
type env struct {
	opts   *config.Options
	store  artifact.Store
	pool   *pgxpool.Pool
	runner *pipeline.Runner

	closers []func()
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func openStore(ctx context.Context) (artifact.Store, error) {
	return app.NewStore(ctx, viper.GetString(storeKey), viper.GetString(baseKey), viper.GetString(bucketKey))
}

// newEnv builds the runner. sinkKind selects an optional graph sink. When
// DATABASE_URL is set the runner also takes the paper lease lock and records
// phase timings.
func newEnv(ctx context.Context, sinkKind string) (*env, error) {
	e := &env{}
	ok := false
	defer func() {
		if !ok {
			e.close()
		}
	}()

	opts, err := config.Load(viper.GetString(configKey))
	if err != nil {
		return nil, err
	}
	e.opts = opts

	e.store, err = openStore(ctx)
	if err != nil {
		return nil, err
	}

	if util.GetEnv("DATABASE_URL") != "" {
		e.pool, err = app.NewPool(ctx)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, e.pool.Close)
	}

	sink, closeSink, err := app.NewSink(ctx, sinkKind, e.pool)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, closeSink)

	aiClient, err := app.NewAIClient(opts.NER.LLMBackend, opts.NER.LLMModel)
	if err != nil {
		return nil, err
	}
	deps, closeDeps, err := pipeline.NewDeps(ctx, opts, pipeline.DepsParams{
		LLM:   aiClient,
		Redis: app.RedisParams(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	e.closers = append(e.closers, closeDeps)

	runnerOpts := []pipeline.RunnerOption{pipeline.WithSink(sink)}
	if e.pool != nil {
		runnerOpts = append(runnerOpts,
			pipeline.WithLocker(leaselock.New(e.pool), leaselock.Options{
				TTL:         util.GetEnvDuration("LOCK_TTL", 2*time.Minute),
				TokenPrefix: "cli",
			}),
			pipeline.WithRecorder(timing.NewRecorder(e.pool)),
		)
	}
	e.runner = pipeline.NewRunner(e.store, deps, opts, runnerOpts...)

	ok = true
	return e, nil
}
