package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultTimestep is the default interval of the control loop.
const DefaultTimestep = time.Millisecond

// Loop runs controllers periodically by priority levels: sensors are read
// first, then controllers compute corrections, actuators apply them and
// telemetry runs last.
type Loop struct {
	Interval time.Duration

	controllers [PriorityLevels]controllerList
	runners     []Runnable

	lock      sync.Mutex
	iteration uint64
	overruns  uint64

	wakeUpCh chan struct{}
}

type loopIteration struct {
	*Loop
	ctx           context.Context
	time          time.Time
	iteration     uint64
	priorityLevel int
}

type controllerList struct {
	preHooks    []Controller
	controllers []Controller
	postHooks   []Controller
	lock        sync.Mutex
}

type loopCtxKey struct{}

// LoopCtlFrom gets LoopControl from the context passed to Runnables
// started by the loop.
func LoopCtlFrom(ctx context.Context) LoopControl {
	ctl, _ := ctx.Value(loopCtxKey{}).(LoopControl)
	return ctl
}

// NewLoop creates a Loop with DefaultTimestep.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultTimestep}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers to the loop. Controllers which are
// also Runnable are started when the loop runs.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	lst := &l.controllers[priorityLevel]
	lst.controllers = append(lst.controllers, ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementions.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Timestep returns the effective interval.
func (l *Loop) Timestep() time.Duration {
	if l.Interval <= 0 {
		return DefaultTimestep
	}
	return l.Interval
}

// Iterations returns the number of completed iterations.
func (l *Loop) Iterations() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.iteration
}

// Overruns returns the number of iterations which took longer than the
// timestep.
func (l *Loop) Overruns() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.overruns
}

// Run implements Runnable. It returns when ctx is done, after all
// Runnables registered with the loop stopped.
func (l *Loop) Run(ctx context.Context) error {
	l.lock.Lock()
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	l.lock.Unlock()

	runner := NewRunnerWith(context.WithValue(ctx, loopCtxKey{}, LoopControl(l)))
	runner.Go(l.runners...)
	defer func() {
		if err := runner.Wait(); err != nil {
			glog.Errorf("loop runner error: %v", err)
		}
	}()

	interval := l.Timestep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.runTimed(ctx, interval)
		case <-l.wakeUpCh:
			l.runTimed(ctx, interval)
		}
	}
}

// RunOnce runs a single iteration synchronously.
func (l *Loop) RunOnce(ctx context.Context) {
	l.runIteration(ctx, time.Now())
}

// PreRunAt implements LoopControl.
func (l *Loop) PreRunAt(priorityLevel int, hooks ...Controller) {
	lst := &l.controllers[priorityLevel]
	lst.lock.Lock()
	lst.preHooks = append(lst.preHooks, hooks...)
	lst.lock.Unlock()
}

// PostRunAt implements LoopControl.
func (l *Loop) PostRunAt(priorityLevel int, hooks ...Controller) {
	lst := &l.controllers[priorityLevel]
	lst.lock.Lock()
	lst.postHooks = append(lst.postHooks, hooks...)
	lst.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	l.lock.Lock()
	ch := l.wakeUpCh
	l.lock.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (l *Loop) runTimed(ctx context.Context, interval time.Duration) {
	start := time.Now()
	l.runIteration(ctx, start)
	if elapsed := time.Since(start); elapsed > interval {
		l.lock.Lock()
		l.overruns++
		l.lock.Unlock()
		glog.V(2).Infof("iteration overrun: %v > %v", elapsed, interval)
	}
}

func (l *Loop) runIteration(ctx context.Context, now time.Time) {
	l.lock.Lock()
	iter := &loopIteration{Loop: l, time: now, iteration: l.iteration}
	l.lock.Unlock()
	iter.ctx = context.WithValue(ctx, loopCtxKey{}, LoopControl(iter))
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		l.controllers[i].run(iter)
	}
	l.lock.Lock()
	l.iteration++
	l.lock.Unlock()
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) PriorityLevel() int {
	return t.priorityLevel
}

func (t *loopIteration) Iteration() uint64 {
	return t.iteration
}

func (t *loopIteration) PostRun(hooks ...Controller) {
	t.PostRunAt(t.priorityLevel, hooks...)
}

func (c *controllerList) run(iter *loopIteration) {
	c.lock.Lock()
	ctls := c.preHooks
	c.preHooks = nil
	c.lock.Unlock()
	runControllers(iter, ctls)
	runControllers(iter, c.controllers)
	c.lock.Lock()
	ctls, c.postHooks = c.postHooks, nil
	c.lock.Unlock()
	runControllers(iter, ctls)
}

// runControllers logs controller errors; they never stop the loop.
func runControllers(iter *loopIteration, ctls []Controller) {
	for _, ctl := range ctls {
		if err := ctl.Control(iter); err != nil {
			if named, ok := ctl.(Named); ok {
				glog.Errorf("controller %s error: %v", named.Name(), err)
			} else {
				glog.Errorf("controller error: %v", err)
			}
		}
	}
}
