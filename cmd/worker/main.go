package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/paperkg/internal/app"
	"github.com/OFFIS-RIT/paperkg/internal/config"
	"github.com/OFFIS-RIT/paperkg/internal/queue"
	"github.com/OFFIS-RIT/paperkg/internal/timing"
	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/leaselock"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	"github.com/OFFIS-RIT/paperkg/pkg/pipeline"
	pgsink "github.com/OFFIS-RIT/paperkg/pkg/store/pgx"

	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.InitLogger(util.GetEnvBool("DEBUG", false))

	opts, err := config.Load(util.GetEnv("PAPERKG_CONFIG"))
	if err != nil {
		logger.Fatal("Could not load config", "err", err)
	}

	aiClient, err := app.NewAIClient(opts.NER.LLMBackend, opts.NER.LLMModel)
	if err != nil {
		logger.Fatal("Could not create AI client", "err", err)
	}

	st, err := app.NewStore(ctx, util.GetEnvString("STORE", "s3"), util.GetEnv("STORE_BASE"), util.GetEnv("S3_BUCKET"))
	if err != nil {
		logger.Fatal("Could not open artifact store", "err", err)
	}

	// Init pgx client
	if err := pgsink.Migrate(util.GetEnv("DATABASE_URL")); err != nil {
		logger.Fatal("Unable to migrate database", "err", err)
	}
	pgConn, err := app.NewPool(ctx)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	sink, closeSink, err := app.NewSink(ctx, util.GetEnvString("GRAPH_SINK", "postgres"), pgConn)
	if err != nil {
		logger.Fatal("Could not open graph sink", "err", err)
	}
	defer closeSink()

	deps, closeDeps, err := pipeline.NewDeps(ctx, opts, pipeline.DepsParams{
		LLM:   aiClient,
		Redis: app.RedisParams(),
	})
	if err != nil {
		logger.Fatal("Could not build pipeline", "err", err)
	}
	defer closeDeps()

	runner := pipeline.NewRunner(st, deps, opts,
		pipeline.WithLocker(leaselock.New(pgConn), leaselock.Options{
			TTL:         util.GetEnvDuration("LOCK_TTL", 2*time.Minute),
			Wait:        true,
			TokenPrefix: "worker",
		}),
		pipeline.WithSink(sink),
		pipeline.WithRecorder(timing.NewRecorder(pgConn)),
	)
	handler := &queue.Handler{Runner: runner, Store: st, Sink: sink}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	logger.Info("Listening for messages")

	// One consumer channel with prefetch=1 delivers a single message at a
	// time across all queues.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				processingErr := handler.Process(ctx, qm.queueName, qm.msg.Body)
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					queue.HandleProcessingError(ctx, consumerCh, qm.msg, qm.queueName, processingErr)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				if aiClient != nil {
					metrics := aiClient.GetMetrics()
					logger.Info(
						"AI Metrics",
						"input_tokens", metrics.InputTokens,
						"output_tokens", metrics.OutputTokens,
						"total_tokens", metrics.TotalTokens,
						"duration", logger.FormatDuration(time.Duration(metrics.DurationMs)*time.Millisecond),
					)
					aiClient.ResetMetrics()
				}

				logger.Info("Processing time", "duration", logger.FormatDuration(time.Since(startTime)))
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}
