package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// RetryPolicy ограничения повторов для вызовов календаря
type RetryPolicy struct {
	Attempts uint64
	Base     time.Duration
	Timeout  time.Duration
}

// Retrying повторяет временные сбои календаря с экспоненциальной задержкой.
// Весь вызов вместе с повторами ограничен Timeout.
type Retrying struct {
	next   Bridge
	policy RetryPolicy
	logger *zap.Logger
}

func NewRetrying(next Bridge, policy RetryPolicy, logger *zap.Logger) *Retrying {
	if policy.Base <= 0 {
		policy.Base = 200 * time.Millisecond
	}
	return &Retrying{next: next, policy: policy, logger: logger}
}

func (r *Retrying) CreateEvent(ctx context.Context, appointment *model.Appointment) (Event, error) {
	var event Event
	err := r.do(ctx, "create_event", func(ctx context.Context) error {
		var err error
		event, err = r.next.CreateEvent(ctx, appointment)
		return err
	})
	return event, err
}

func (r *Retrying) CancelEvent(ctx context.Context, eventID string) error {
	return r.do(ctx, "cancel_event", func(ctx context.Context) error {
		return r.next.CancelEvent(ctx, eventID)
	})
}

func (r *Retrying) do(ctx context.Context, op string, call func(context.Context) error) error {
	if r.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
		defer cancel()
	}

	backoff := retry.WithMaxRetries(r.policy.Attempts, retry.NewExponential(r.policy.Base))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := call(ctx)
		if err == nil {
			return nil
		}
		if !isTemporary(err) {
			return err
		}
		r.logger.Warn("Calendar call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return retry.RetryableError(err)
	})
}

func isTemporary(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}
