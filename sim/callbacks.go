package sim

import "time"

// Phase names the lifecycle boundaries observable through callbacks.
type Phase int

const (
	PhaseInitialize Phase = iota
	PhaseOpen
	PhaseStart
	PhaseStep
	PhaseEnd
	PhaseReport
	PhaseClose
)

// PhaseFunc observes a lifecycle boundary. before is true on entry and
// false on completion. Callbacks run on the caller's goroutine and must
// not re-enter the engine; re-entrant lifecycle calls (Open, Start, Step,
// Stride, End, Report, Close) fail with the is-running code, while
// property reads and writes are not guarded. Panics are contained.
type PhaseFunc func(e *Engine, ph Phase, before bool)

// ProgressFunc receives a fractional completion in [0, 1].
type ProgressFunc func(progress float64)

// OnPhase registers the lifecycle callback.
func (e *Engine) OnPhase(fn PhaseFunc) { e.phaseFn = fn }

// OnProgress registers a progress callback, rate-limited to maxPerSec
// invocations per wall-clock second (≤0 keeps the default of 2).
func (e *Engine) OnProgress(fn ProgressFunc, maxPerSec float64) {
	e.progressFn = fn
	if maxPerSec > 0. {
		e.progressHz = maxPerSec
	}
}

func (e *Engine) firePhase(ph Phase, before bool) {
	if e.phaseFn == nil {
		return
	}
	e.inCallback = true
	defer func() {
		e.inCallback = false
		recover() // host exceptions stop at the engine boundary
	}()
	e.phaseFn(e, ph, before)
}

// emitProgress forwards the fraction to the progress callback, dropping
// calls that arrive faster than the configured rate. The terminal
// fraction is never dropped.
func (e *Engine) emitProgress(frac float64) {
	if e.progressFn == nil {
		return
	}
	now := time.Now().UnixNano()
	if frac < 1. {
		e.progressMu.Lock()
		minGap := int64(float64(time.Second) / e.progressHz)
		if now-e.progressAt < minGap {
			e.progressMu.Unlock()
			return
		}
		e.progressAt = now
		e.progressMu.Unlock()
	}
	e.inCallback = true
	defer func() {
		e.inCallback = false
		recover()
	}()
	e.progressFn(frac)
}
