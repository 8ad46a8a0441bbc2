package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is returned by Poll when every attempt ran without the
// operation reporting completion.
var ErrExhausted = errors.New("retry attempts exhausted")

var errNotDone = errors.New("operation not done")

// Policy bounds a poll loop.
type Policy struct {
	Attempts int
	Delay    time.Duration
	// Backoff multiplies Delay after every attempt. Values <= 1 keep the
	// delay constant.
	Backoff float64
	// WaitFirst sleeps Delay before the first attempt as well.
	WaitFirst bool
}

// Immediate returns a copy of p with every delay removed.
func (p Policy) Immediate() Policy {
	p.Delay = 0
	p.WaitFirst = false
	return p
}

// Budget is the longest the policy can spend sleeping.
func (p Policy) Budget() time.Duration {
	var total time.Duration
	if p.WaitFirst {
		total += p.Delay
	}
	b := p.BackOff()
	b.Reset()
	for d := b.NextBackOff(); d != backoff.Stop; d = b.NextBackOff() {
		total += d
	}
	return total
}

func (p Policy) attempts() int {
	if p.Attempts <= 0 {
		return 1
	}
	return p.Attempts
}

// BackOff returns the delays between attempts. It stops after
// Attempts-1 retries.
func (p Policy) BackOff() backoff.BackOff {
	retries := p.attempts() - 1
	if retries == 0 {
		return &backoff.StopBackOff{}
	}

	var b backoff.BackOff
	if p.Backoff > 1 {
		b = &backoff.ExponentialBackOff{
			InitialInterval:     p.Delay,
			RandomizationFactor: 0,
			Multiplier:          p.Backoff,
			MaxInterval:         time.Duration(math.MaxInt64),
			MaxElapsedTime:      0,
			Stop:                backoff.Stop,
			Clock:               backoff.SystemClock,
		}
	} else {
		b = backoff.NewConstantBackOff(p.Delay)
	}
	return backoff.WithMaxRetries(b, uint64(retries))
}

// Poll calls fn until it reports done, returns an error, the attempts run
// out or ctx ends. The last error from fn is returned as is.
func (p Policy) Poll(ctx context.Context, fn func(ctx context.Context, attempt int) (done bool, err error)) error {
	if p.WaitFirst {
		if err := sleep(ctx, p.Delay); err != nil {
			return err
		}
	}

	attempt := 0
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		done, err := fn(ctx, attempt)
		attempt++
		switch {
		case err != nil:
			return backoff.Permanent(err)
		case !done:
			return errNotDone
		}
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(p.BackOff(), ctx))
	if errors.Is(err, errNotDone) {
		return ErrExhausted
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
