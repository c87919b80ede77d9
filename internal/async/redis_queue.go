package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/joseph-ayodele/phototranslate/internal/common"
)

// TaskScanImage is the asynq task type carrying a Job payload.
const TaskScanImage = "scan:image"

// RedisQueueConfig configures the Redis backed queue.
type RedisQueueConfig struct {
	RedisURL       string
	QueueName      string
	Concurrency    int
	ProcessTimeout time.Duration
	MaxRetry       int
}

// RedisQueue distributes scan jobs across daemons through asynq.
type RedisQueue struct {
	client *asynq.Client
	server *asynq.Server
	cfg    RedisQueueConfig
	logger *slog.Logger
}

func NewRedisQueue(cfg RedisQueueConfig, logger *slog.Logger) (*RedisQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("%w: redis url is required", common.ErrInvalidInput)
	}
	if cfg.QueueName == "" {
		cfg.QueueName = "scans"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 3 * time.Minute
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 3
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			cfg.QueueName: 10,
			"default":     1,
		},
		RetryDelayFunc: retryDelay,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("queue.task.failed", "type", task.Type(), "payload", string(task.Payload()), "error", err)
		}),
		Logger: slogAdapter{logger},
	})

	return &RedisQueue{
		client: asynq.NewClient(redisOpt),
		server: server,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// retryDelay backs off 5s, 10s, 20s ... capped at one minute.
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n > 4 {
		return 60 * time.Second
	}
	delay := time.Duration(5*(1<<uint(n))) * time.Second
	if delay > 60*time.Second {
		delay = 60 * time.Second
	}
	return delay
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	task, err := newScanTask(job)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue(q.cfg.QueueName),
		asynq.MaxRetry(q.cfg.MaxRetry),
		asynq.Timeout(q.cfg.ProcessTimeout),
	)
	if err != nil {
		q.logger.Error("queue.enqueue.failed", "path", job.Path, "error", err)
		return fmt.Errorf("%w: enqueue: %v", common.ErrUnavailable, err)
	}
	q.logger.Info("queued file for processing", "path", job.Path, "task_id", info.ID, "queue", info.Queue)
	return nil
}

// Start runs handle for every scan task in background workers.
func (q *RedisQueue) Start(handle HandlerFunc) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskScanImage, scanTaskHandler(handle, q.logger))
	q.logger.Info("queue.redis.start", "queue", q.cfg.QueueName, "concurrency", q.cfg.Concurrency)
	return q.server.Start(mux)
}

func (q *RedisQueue) Shutdown(_ context.Context) {
	q.server.Shutdown()
	if err := q.client.Close(); err != nil {
		q.logger.Warn("queue.redis.client_close_error", "error", err)
	}
	q.logger.Info("queue.redis.stopped")
}

func newScanTask(job Job) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	return asynq.NewTask(TaskScanImage, payload), nil
}

// scanTaskHandler decodes the payload; undecodable payloads and missing files are not retried.
func scanTaskHandler(handle HandlerFunc, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var job Job
		if err := json.Unmarshal(task.Payload(), &job); err != nil {
			return fmt.Errorf("unmarshal job: %v: %w", err, asynq.SkipRetry)
		}
		start := time.Now()
		err := handle(ctx, job)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) || errors.Is(err, common.ErrInvalidInput) {
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}
		logger.Info("processed file successfully", "path", job.Path, "elapsed_ms", time.Since(start).Milliseconds())
		return nil
	}
}

// slogAdapter satisfies asynq.Logger.
type slogAdapter struct{ l *slog.Logger }

func (a slogAdapter) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a slogAdapter) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a slogAdapter) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a slogAdapter) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a slogAdapter) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
