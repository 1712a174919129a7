// Package app wires the runtime clients shared by the worker and the CLI
// from environment variables.
package app

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/paperkg/internal/storage"
	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/ai"
	oai "github.com/OFFIS-RIT/paperkg/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/paperkg/pkg/ai/openai"
	"github.com/OFFIS-RIT/paperkg/pkg/artifact"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	"github.com/OFFIS-RIT/paperkg/pkg/logger/console"
	"github.com/OFFIS-RIT/paperkg/pkg/nlp"
	"github.com/OFFIS-RIT/paperkg/pkg/store"
	"github.com/OFFIS-RIT/paperkg/pkg/store/neo4j"
	pgsink "github.com/OFFIS-RIT/paperkg/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

func InitLogger(debug bool) {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	}))
}

// NewAIClient returns the chat client of backend, or nil when the openai
// backend has no key configured.
func NewAIClient(backend, model string) (ai.Client, error) {
	switch backend {
	case "ollama":
		client, err := oai.NewOllamaClient(oai.NewOllamaClientParams{
			Model:                 model,
			BaseURL:               util.GetEnv("AI_CHAT_URL"),
			ApiKey:                util.GetEnv("AI_CHAT_KEY"),
			MaxConcurrentRequests: int64(util.GetEnvInt("AI_MAX_CONCURRENT_REQUESTS", 1)),
		})
		if err != nil {
			return nil, fmt.Errorf("could not create Ollama client: %w", err)
		}
		return client, nil
	default:
		key := util.GetEnv("AI_CHAT_KEY")
		if key == "" {
			logger.Warn("AI_CHAT_KEY not set, llm provider disabled")
			return nil, nil
		}
		return gai.NewOpenAIClient(gai.NewOpenAIClientParams{
			Model:   model,
			ChatURL: util.GetEnv("AI_CHAT_URL"),
			ChatKey: key,
		}), nil
	}
}

// NewStore opens the artifact store. kind is "fs" (rooted at base) or "s3"
// (bucket with base as key prefix).
func NewStore(ctx context.Context, kind, base, bucket string) (artifact.Store, error) {
	switch kind {
	case "", "fs":
		return artifact.NewFSStore(base), nil
	case "s3":
		if bucket == "" {
			bucket = util.GetEnv("S3_BUCKET")
		}
		if bucket == "" {
			return nil, fmt.Errorf("s3 store needs a bucket")
		}
		client, err := storage.NewS3Client(ctx, storage.S3Params{
			Region:    util.GetEnvString("S3_REGION", "us-east-1"),
			Endpoint:  util.GetEnv("S3_ENDPOINT"),
			AccessKey: util.GetEnv("S3_ACCESS_KEY"),
			SecretKey: util.GetEnv("S3_SECRET_KEY"),
		})
		if err != nil {
			return nil, err
		}
		return artifact.NewS3Store(artifact.S3StoreParams{Client: client, Bucket: bucket, Prefix: base}), nil
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}

func NewPool(ctx context.Context) (*pgxpool.Pool, error) {
	url := util.GetEnv("DATABASE_URL")
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return pool, nil
}

func Neo4jParams() neo4j.Params {
	return neo4j.Params{
		URI:         util.GetEnv("NEO4J_URI"),
		User:        util.GetEnvString("NEO4J_USER", "neo4j"),
		Password:    util.GetEnv("NEO4J_PASSWORD"),
		Database:    util.GetEnv("NEO4J_DATABASE"),
		MaxPoolSize: util.GetEnvInt("NEO4J_MAX_POOL_SIZE", 50),
		Timeout:     util.GetEnvDuration("NEO4J_TIMEOUT", 0),
		BatchSize:   util.GetEnvInt("NEO4J_BATCH_SIZE", 1000),
	}
}

// NewSink returns the graph sink named kind. "" and "none" return a nil
// sink. The postgres sink needs pool.
func NewSink(ctx context.Context, kind string, pool *pgxpool.Pool) (store.GraphSink, func(), error) {
	noop := func() {}
	switch kind {
	case "", "none":
		return nil, noop, nil
	case "neo4j":
		sink, err := neo4j.NewSink(ctx, Neo4jParams())
		if err != nil {
			return nil, noop, err
		}
		return sink, func() { _ = sink.Close(context.Background()) }, nil
	case "postgres":
		if pool == nil {
			return nil, noop, fmt.Errorf("postgres sink needs DATABASE_URL")
		}
		return pgsink.NewSink(pool), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown sink %q", kind)
	}
}

func RedisParams() nlp.RedisCacheParams {
	return nlp.RedisCacheParams{
		Addr:     util.GetEnv("REDIS_ADDR"),
		Password: util.GetEnv("REDIS_PASSWORD"),
		DB:       util.GetEnvInt("REDIS_DB", 0),
		Prefix:   util.GetEnvString("REDIS_PREFIX", "paperkg:ner:"),
		TTL:      util.GetEnvDuration("REDIS_TTL", 0),
	}
}
