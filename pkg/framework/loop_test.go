package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	lock  sync.Mutex
	trace []string
}

func (r *recorder) add(s string) {
	r.lock.Lock()
	r.trace = append(r.trace, s)
	r.lock.Unlock()
}

func (r *recorder) ctl(s string) Controller {
	return ControlFunc(func(ControlContext) error {
		r.add(s)
		return nil
	})
}

func TestLoopPriorityOrder(t *testing.T) {
	var rec recorder
	loop := NewLoop()
	loop.AddController(PrLvTelemetry, rec.ctl("telemetry"))
	loop.AddController(PrLvActuate, rec.ctl("actuate"))
	loop.AddController(PrLvSense, rec.ctl("sense"))
	loop.AddController(PrLvControl, rec.ctl("roll"), rec.ctl("pitch"))
	loop.RunOnce(context.Background())
	require.Equal(t, []string{"sense", "roll", "pitch", "actuate", "telemetry"}, rec.trace)
}

func TestLoopHooks(t *testing.T) {
	var rec recorder
	loop := NewLoop()
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		rec.add("ctl")
		if cc.Iteration() == 0 {
			cc.PostRun(ControlFunc(func(cc ControlContext) error {
				rec.add("post")
				// installed for the next iteration.
				cc.PostRun(rec.ctl("post-next"))
				return nil
			}))
			cc.PreRunAt(PrLvActuate, rec.ctl("pre-actuate"))
		}
		return nil
	}))
	ctx := context.Background()
	loop.RunOnce(ctx)
	loop.RunOnce(ctx)
	loop.RunOnce(ctx)
	require.Equal(t, []string{"ctl", "post", "pre-actuate", "ctl", "post-next", "ctl"}, rec.trace)
}

func TestLoopIterationContext(t *testing.T) {
	loop := &Loop{Interval: 5 * time.Millisecond}
	var seen []uint64
	loop.AddController(PrLvSense, ControlFunc(func(cc ControlContext) error {
		seen = append(seen, cc.Iteration())
		require.Equal(t, PrLvSense, cc.PriorityLevel())
		require.Equal(t, 5*time.Millisecond, cc.Timestep())
		require.False(t, cc.Time().IsZero())
		require.NotNil(t, LoopCtlFrom(cc.Context()))
		return nil
	}))
	for i := 0; i < 3; i++ {
		loop.RunOnce(context.Background())
	}
	require.Equal(t, []uint64{0, 1, 2}, seen)
	require.Equal(t, uint64(3), loop.Iterations())
	require.Equal(t, DefaultTimestep, NewLoop().Timestep())
	require.Equal(t, DefaultTimestep, (&Loop{}).Timestep())
}

func TestLoopControllerErrorsDontStop(t *testing.T) {
	var rec recorder
	loop := NewLoop()
	loop.AddController(PrLvSense, ControlFunc(func(ControlContext) error {
		return errors.New("sensor offline")
	}))
	loop.AddController(PrLvControl, rec.ctl("ctl"))
	loop.RunOnce(context.Background())
	loop.RunOnce(context.Background())
	require.Equal(t, []string{"ctl", "ctl"}, rec.trace)
}

type runnableController struct {
	started chan struct{}
}

func (c *runnableController) Control(ControlContext) error { return nil }

func (c *runnableController) Run(ctx context.Context) error {
	close(c.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestLoopRun(t *testing.T) {
	loop := NewLoop()
	rc := &runnableController{started: make(chan struct{})}
	loop.AddController(PrLvSense, rc)
	ticks := make(chan struct{}, 100)
	loop.AddController(PrLvControl, ControlFunc(func(ControlContext) error {
		select {
		case ticks <- struct{}{}:
		default:
		}
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	<-rc.started
	for i := 0; i < 5; i++ {
		<-ticks
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.GreaterOrEqual(t, loop.Iterations(), uint64(5))
}

func TestRunnerAggregatesErrors(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	r := NewRunner()
	r.Go(
		RunFunc(func(context.Context) error { return errA }),
		NamedRun("b", RunFunc(func(context.Context) error { return errB })),
		RunFunc(func(context.Context) error { return context.Canceled }),
		RunFunc(func(context.Context) error { return nil }),
	)
	err := r.Wait()
	require.Error(t, err)
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
	var agg *AggregatedError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errors, 2)

	require.NoError(t, NewRunner().Go(RunFunc(func(context.Context) error { return nil })).Wait())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, nil).Aggregate())
	errs.Add(errors.New("x"))
	require.Equal(t, "x", errs.Error())
	errs.Add(errors.New("y"))
	require.Equal(t, "multiple errors:\nx\ny", errs.Error())
}

type closer struct{ closed int }

func (c *closer) Close() error {
	c.closed++
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	c := &closer{}
	err := RunWithContextCloser(context.Background(), c, func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, c.closed)

	ctx, cancel := context.WithCancel(context.Background())
	unblock := make(chan struct{})
	c = &closer{}
	cancel()
	err = RunWithContextCloser(ctx, closerFunc(func() error {
		c.closed++
		close(unblock)
		return nil
	}), func() error {
		<-unblock
		return errors.New("closed")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, c.closed)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
