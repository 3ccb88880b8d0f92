package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-crm/internal/jobs"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Expirer is implemented by signature.Workflow.
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

// QuoteExpiryJob expires quotes whose expiry date has passed.
type QuoteExpiryJob struct {
	Expirer Expirer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewQuoteExpiryJob wires dependencies for the sweep handler.
func NewQuoteExpiryJob(expirer Expirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *QuoteExpiryJob {
	return &QuoteExpiryJob{
		Expirer: expirer,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes quote expiry tasks. Per-quote failures that a retry cannot
// fix are logged and dropped; transport and backend failures fail the task so
// asynq retries it.
func (j *QuoteExpiryJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Expirer == nil {
		return errors.New("quote expiry: handler not configured")
	}
	var payload QuoteExpiryPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("quote expiry payload: %w", asynq.SkipRetry)
		}
	}
	asOf := j.now()
	if payload.AsOf != nil {
		asOf = payload.AsOf.UTC()
	}

	tracker := j.metrics().Track(TaskQuoteExpirySweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Time("as_of", asOf))
	start := time.Now()
	expired, err := j.Expirer.ExpireOverdue(ctx, asOf)
	j.metrics().AddExpired(expired)

	if err != nil {
		retryable, permanent := splitErrors(err)
		j.metrics().AddSweepErrors("retryable", len(retryable))
		j.metrics().AddSweepErrors("permanent", len(permanent))
		for _, perr := range permanent {
			logger.Warn("skip quote", slog.Any("error", perr))
		}
		if len(retryable) > 0 {
			resultErr = errors.Join(retryable...)
			logger.Error("quote expiry sweep incomplete", slog.Int("expired", expired), slog.Any("error", resultErr))
			return resultErr
		}
	}

	logger.Info("completed quote expiry sweep", slog.Int("expired", expired), slog.Duration("duration", time.Since(start)))
	return resultErr
}

// splitErrors unpacks an errors.Join result by retryability.
func splitErrors(err error) (retryable, permanent []error) {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, e := range errs {
		if shared.IsRetryable(e) || errors.Is(e, context.DeadlineExceeded) {
			retryable = append(retryable, e)
			continue
		}
		permanent = append(permanent, e)
	}
	return retryable, permanent
}

func (j *QuoteExpiryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskQuoteExpirySweep))
	}
	return slog.Default().With(slog.String("job", TaskQuoteExpirySweep))
}

func (j *QuoteExpiryJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *QuoteExpiryJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
