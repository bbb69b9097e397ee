// Package retry re-runs an operation that failed with a transient error.
package retry

import (
	"context"
	"time"

	"github.com/nomadmarket/nomadledger/ulogger"
)

type Options struct {
	retryCount          int
	backoffMultiplier   int
	backoffDurationType time.Duration
	message             string
	retryable           func(error) bool
}

type Option func(*Options)

func WithRetryCount(retryCount int) Option {
	return func(o *Options) {
		o.retryCount = retryCount
	}
}

func WithBackoffMultiplier(multiplier int) Option {
	return func(o *Options) {
		o.backoffMultiplier = multiplier
	}
}

func WithBackoffDurationType(durationType time.Duration) Option {
	return func(o *Options) {
		o.backoffDurationType = durationType
	}
}

func WithMessage(message string) Option {
	return func(o *Options) {
		o.message = message
	}
}

// WithRetryable limits retries to errors for which fn returns true. Other
// errors are returned immediately.
func WithRetryable(fn func(error) bool) Option {
	return func(o *Options) {
		o.retryable = fn
	}
}

// Retry calls f up to retryCount times, sleeping between attempts as
// BackoffAndSleep does. The error of the last attempt is returned.
func Retry[T any](ctx context.Context, logger ulogger.Logger, f func() (T, error), opts ...Option) (T, error) {
	options := &Options{
		retryCount:          3,
		backoffMultiplier:   2,
		backoffDurationType: time.Second,
		message:             "retrying",
		retryable:           func(error) bool { return true },
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.retryCount < 1 {
		options.retryCount = 1
	}

	var (
		result T
		err    error
	)

	for i := 0; i < options.retryCount; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return result, err
			}

			return result, ctxErr
		}

		result, err = f()
		if err == nil || !options.retryable(err) {
			return result, err
		}

		if i == options.retryCount-1 {
			break
		}

		logger.Warnf("%s (attempt %d of %d): %v", options.message, i+1, options.retryCount, err)

		if sleepErr := BackoffAndSleep(ctx, i, options.backoffMultiplier, options.backoffDurationType); sleepErr != nil {
			return result, err
		}
	}

	return result, err
}
