package application

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/davarch/deploy-pilot/internal/domain"
	pkgerrors "github.com/pkg/errors"
)

var errNotReady = errors.New("result not valid yet")

// PollSettings configures the backoff of Poll. A nil Timer sleeps on the
// wall clock.
type PollSettings struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Timer        backoff.Timer
}

// Poll calls op until isValid accepts its result. The first call happens
// immediately. Delays double up to MaxDelay while the remaining budget is
// larger than the next delay; after that one last wait for whatever budget
// is left is followed by a final call. Errors returned by op abort the poll
// as they are.
func Poll[T any](
	ctx context.Context,
	s PollSettings,
	total time.Duration,
	op func(context.Context) (T, error),
	isValid func(T) bool,
	onBackoff func(time.Duration),
) (T, error) {
	attempt := func() (T, error) {
		res, err := op(ctx)
		if err != nil {
			return res, backoff.Permanent(err)
		}
		if !isValid(res) {
			return res, errNotReady
		}
		return res, nil
	}

	notify := func(_ error, d time.Duration) {
		if onBackoff != nil {
			onBackoff(d)
		}
	}

	b := backoff.WithContext(newBudgetBackOff(s.InitialDelay, s.MaxDelay, total), ctx)

	res, err := backoff.RetryNotifyWithTimerAndData(attempt, b, notify, s.Timer)
	if errors.Is(err, errNotReady) {
		return res, pkgerrors.Wrapf(domain.ErrDeploymentPollTimeout, "gave up after %s", total)
	}
	return res, err
}

// budgetBackOff hands out doubling delays from a fixed time budget.
type budgetBackOff struct {
	initial, max, total time.Duration

	current   time.Duration
	remaining time.Duration
}

func newBudgetBackOff(initial, maxDelay, total time.Duration) *budgetBackOff {
	if initial <= 0 {
		initial = time.Millisecond
	}
	b := &budgetBackOff{initial: initial, max: max(maxDelay, initial), total: total}
	b.Reset()
	return b
}

func (b *budgetBackOff) Reset() {
	b.current = b.initial
	b.remaining = b.total
}

func (b *budgetBackOff) NextBackOff() time.Duration {
	if b.remaining > b.current {
		d := b.current
		b.remaining -= d
		b.current = min(b.current*2, b.max)
		return d
	}

	if b.remaining > 0 {
		d := b.remaining
		b.remaining = 0
		return d
	}

	return backoff.Stop
}
