package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/matryer/is"
)

func TestDispatchedActionsRunInOrderBeforeStopReturns(t *testing.T) {
	is := is.New(t)

	d := New(2)
	is.NoErr(d.Start())

	completed := []int{}

	for i := range 5 {
		err := d.Dispatch(context.Background(), "count", func(ctx context.Context) error {
			completed = append(completed, i)
			return nil
		})
		is.NoErr(err)
	}

	is.NoErr(d.Stop())
	is.Equal(completed, []int{0, 1, 2, 3, 4}) // every action should have run, in order
}

func TestFailedActionDoesNotStopTheQueue(t *testing.T) {
	is := is.New(t)

	d := New(4)
	is.NoErr(d.Start())

	ran := false

	is.NoErr(d.Dispatch(context.Background(), "fail", func(ctx context.Context) error {
		return fmt.Errorf("service unavailable")
	}))
	is.NoErr(d.Dispatch(context.Background(), "succeed", func(ctx context.Context) error {
		ran = true
		return nil
	}))

	is.NoErr(d.Stop())
	is.True(ran) // the second action should run after the first one failed
}

func TestDispatchRequiresAStartedDispatcher(t *testing.T) {
	is := is.New(t)

	d := New(1)

	err := d.Dispatch(context.Background(), "noop", func(ctx context.Context) error { return nil })
	is.True(errors.Is(err, ErrNotStarted))

	is.NoErr(d.Start())
	is.True(d.Start() != nil) // starting twice is an error
	is.NoErr(d.Stop())

	err = d.Dispatch(context.Background(), "noop", func(ctx context.Context) error { return nil })
	is.True(errors.Is(err, ErrNotStarted)) // a stopped dispatcher should refuse new actions
}

func TestDispatcherCanBeRestarted(t *testing.T) {
	is := is.New(t)

	d := New(1)
	is.NoErr(d.Stop()) // stopping before start is a no-op

	is.NoErr(d.Start())
	is.NoErr(d.Stop())
	is.NoErr(d.Start())

	ran := false
	is.NoErr(d.Dispatch(context.Background(), "noop", func(ctx context.Context) error {
		ran = true
		return nil
	}))

	is.NoErr(d.Stop())
	is.True(ran)
}

func TestActionsDoNotInheritRequestCancellation(t *testing.T) {
	is := is.New(t)

	d := New(1)
	is.NoErr(d.Start())

	ctx, cancel := context.WithCancel(context.Background())

	var actionErr error
	is.NoErr(d.Dispatch(ctx, "check", func(ctx context.Context) error {
		actionErr = ctx.Err()
		return nil
	}))
	cancel()

	is.NoErr(d.Stop())
	is.NoErr(actionErr) // the action context should outlive the request
}
