package engine

import (
	"time"

	"github.com/hoshinonyaruko/snake-in-web/structs"
)

func interval(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// runLocked marks the game running and starts the timer goroutine.
func (e *Engine) runLocked() {
	e.phase = structs.PhaseRunning
	if e.stop != nil {
		return
	}
	stop := make(chan struct{})
	e.stop = stop
	go e.loop(e.gen, stop, interval(e.state.Speed()))
}

// stopLocked is idempotent.
func (e *Engine) stopLocked() {
	if e.stop == nil {
		return
	}
	close(e.stop)
	e.stop = nil
	e.gen++
}

// loop 每次刷新后按当前速度重新计时
func (e *Engine) loop(gen uint64, stop <-chan struct{}, next time.Duration) {
	timer := time.NewTimer(next)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			d, ok := e.timedTick(gen)
			if !ok {
				return
			}
			timer.Reset(d)
		}
	}
}

func (e *Engine) timedTick(gen uint64) (time.Duration, bool) {
	e.mu.Lock()
	if e.gen != gen || e.phase != structs.PhaseRunning {
		e.mu.Unlock()
		return 0, false
	}
	fx := e.stepLocked()
	next := interval(e.state.Speed())
	running := e.phase == structs.PhaseRunning
	e.publish(fx)
	return next, running
}
