package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
)

var ErrNotStarted = fmt.Errorf("dispatcher not started")

// Dispatcher runs fire-and-forget actions in the background, one at a time and
// in the order they were dispatched. Failed actions are logged, never retried.
type Dispatcher interface {
	Start() error
	Stop() error

	Dispatch(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

var tracer = otel.Tracer("notification-relay/dispatcher")

type action func()

type dispatcher struct {
	mu      sync.Mutex
	started bool
	size    int

	queue chan action
	done  chan struct{}
}

func New(size int) Dispatcher {
	if size < 1 {
		size = 1
	}

	return &dispatcher{
		size: size,
	}
}

func (d *dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("already started")
	}

	d.queue = make(chan action, d.size)
	d.done = make(chan struct{})
	d.started = true

	go d.run(d.queue, d.done)

	return nil
}

// Stop waits for every action dispatched so far to complete.
func (d *dispatcher) Stop() error {
	d.mu.Lock()

	if !d.started {
		d.mu.Unlock()
		return nil
	}

	d.started = false
	close(d.queue)
	done := d.done

	d.mu.Unlock()

	<-done

	return nil
}

func (d *dispatcher) Dispatch(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return ErrNotStarted
	}

	logger := logging.GetFromContext(ctx)

	// the action outlives the request, so only the trace headers are carried over
	actionCtx, span := tracer.Start(
		tracing.ExtractHeaders(context.Background(), tracing.InjectHeaders(ctx)),
		name,
	)
	actionCtx = logging.NewContextWithLogger(actionCtx, logger, "action", name)

	d.queue <- func() {
		var err error
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		err = fn(actionCtx)
		if err != nil {
			logger.Error("dispatched action failed", "action", name, "err", err.Error())
		}
	}

	return nil
}

func (d *dispatcher) run(queue chan action, done chan struct{}) {
	defer close(done)

	// repeat until the queue is closed
	for a := range queue {
		a()
	}
}
