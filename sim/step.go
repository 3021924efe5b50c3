package sim

import (
	"math"

	"github.com/maseology/udrr/dtime"
	"github.com/maseology/udrr/errs"
	"github.com/maseology/udrr/project"
)

// Step advances the simulation by one adaptive routing step and returns
// the elapsed time in decimal days. An elapsed time of exactly 0 means
// the horizon has been reached. Once the sticky error is set, Step
// short-circuits with that code until the lifecycle is torn down.
func (e *Engine) Step() (float64, error) {
	if e.inCallback {
		return 0., errs.New(errs.ErrAPIIsRunning)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step()
}

func (e *Engine) step() (float64, error) {
	if e.inCallback {
		return 0., errs.New(errs.ErrAPIIsRunning)
	}
	if e.em.Code() != 0 {
		return 0., errs.New(e.em.Code())
	}
	if e.state == Uninitialized || e.state == ClosedState {
		return 0., errs.New(e.em.Set(errs.ErrAPINotOpen))
	}
	if e.state != Started {
		return 0., errs.New(e.em.Set(errs.ErrAPINotStarted))
	}
	e.firePhase(PhaseStep, true)

	if e.newRoutingTime < e.routingDuration {
		e.execRouting()
	}
	if e.em.Code() == 0 {
		if e.saveResults {
			e.emitResults()
		}
		e.checkHotstartSaves()
	}

	if e.newRoutingTime < e.routingDuration {
		e.elapsedTime = e.newRoutingTime / dtime.MsecPerDay
	} else {
		e.elapsedTime = 0.
	}

	e.firePhase(PhaseStep, false)
	e.emitProgress(e.progressFrac())

	if e.em.Code() != 0 {
		return 0., errs.New(e.em.Code())
	}
	return e.elapsedTime, nil
}

func (e *Engine) progressFrac() float64 {
	if e.totalDuration <= 0. {
		return 1.
	}
	f := e.newRoutingTime / e.totalDuration
	if f > 1. {
		f = 1.
	}
	return f
}

// execRouting advances runoff up to the next routing instant, then
// routes flow across it.
func (e *Engine) execRouting() {
	p := e.prj
	e.totalStepCount++

	var routingStep float64
	if !e.doRouting {
		routingStep = math.Min(float64(p.Opt.WetStep), float64(p.Opt.ReportStep))
	} else {
		routingStep = e.kq.RoutingStep(p.Opt.RouteStep)
	}
	if routingStep <= 0. {
		e.em.Set(errs.ErrTimestep)
		return
	}

	nextRoutingTime := e.newRoutingTime + 1000.*routingStep
	if nextRoutingTime > e.routingDuration {
		routingStep = (e.routingDuration - e.newRoutingTime) / 1000.
		routingStep = math.Max(routingStep, 0.001)
		nextRoutingTime = e.routingDuration
	}

	if e.doRunoff {
		for e.newRunoffTime < nextRoutingTime {
			e.newRunoffTime = e.kr.Execute()
			if e.em.Code() != 0 {
				return
			}
		}
	} else {
		// keep evaporation current even without a hydrology pass
		e.kr.SetClimateState(e.currentDate())
	}

	e.oldRoutingTime = e.newRoutingTime
	if e.doRouting {
		e.kq.Execute(routingStep, e.currentDate())
	}
	e.newRoutingTime = nextRoutingTime
	e.wb.Update(routingStep)

	if e.numericFault() {
		e.em.Set(errs.ErrNumeric)
	}
}

func (e *Engine) currentDate() float64 {
	return e.prj.Opt.StartDateTime + e.newRoutingTime/dtime.MsecPerDay
}

// numericFault scans kernel outputs for quiet NaNs so floating-point
// faults surface as an error code instead of poisoned results.
func (e *Engine) numericFault() bool {
	s := 0.
	for i := range e.prj.Links {
		s += e.prj.Links[i].NewFlow
	}
	for i := range e.prj.Nodes {
		s += e.prj.Nodes[i].NewDepth
	}
	return math.IsNaN(s) || math.IsInf(s, 0)
}

// emitResults emits a results period whenever the routing clock has
// crossed the reporting deadline, honoring averaging mode.
func (e *Engine) emitResults() {
	if e.out == nil {
		return
	}
	p := e.prj
	f := 1.
	if e.newRoutingTime > e.oldRoutingTime {
		f = (e.reportTime - e.oldRoutingTime) / (e.newRoutingTime - e.oldRoutingTime)
		if f < 0. {
			f = 0.
		} else if f > 1. {
			f = 1.
		}
	}

	if e.newRoutingTime >= e.reportTime {
		reportDate := p.Opt.StartDateTime + e.reportTime/dtime.MsecPerDay
		skip := reportDate < p.Opt.ReportStart-1e-9

		if p.Rpt.Averages {
			if e.newRoutingTime == e.reportTime {
				e.out.UpdateAvg(f)
			}
			if !skip {
				e.writePeriod(f)
			}
			if e.newRoutingTime > e.reportTime {
				e.out.UpdateAvg(1.)
			}
		} else if !skip {
			e.writePeriod(f)
		}
		e.reportTime += 1000. * float64(p.Opt.ReportStep)
	} else if p.Rpt.Averages {
		e.out.UpdateAvg(1.)
	}
}

func (e *Engine) writePeriod(f float64) {
	if err := e.out.SaveResults(f); err != nil {
		e.em.Set(errs.CodeOf(err))
		return
	}
	e.reportStepCount++
}

// Stride advances the simulation by a fixed number of seconds by
// stepping repeatedly under a temporarily shortened horizon and routing
// step. Both are restored on exit; property reads of the routing step
// during a stride observe the transient value.
func (e *Engine) Stride(strideSec int, elapsed *float64) error {
	*elapsed = 0.
	if e.inCallback {
		return errs.New(errs.ErrAPIIsRunning)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.em.Code() != 0 {
		return errs.New(e.em.Code())
	}
	if e.state == Uninitialized || e.state == ClosedState {
		return errs.New(e.em.Set(errs.ErrAPINotOpen))
	}
	if e.state != Started {
		return errs.New(e.em.Set(errs.ErrAPINotStarted))
	}

	p := e.prj
	realRouteStep := p.Opt.RouteStep

	e.routingDuration = math.Min(e.totalDuration, e.newRoutingTime+1000.*float64(strideSec))
	if float64(strideSec) < p.Opt.RouteStep {
		p.Opt.RouteStep = float64(strideSec)
	}

	for {
		t, err := e.step()
		if err != nil || t <= 0. {
			break
		}
	}

	p.Opt.RouteStep = realRouteStep
	e.routingDuration = e.totalDuration

	if e.newRoutingTime < e.totalDuration {
		e.elapsedTime = e.newRoutingTime / dtime.MsecPerDay
	} else {
		e.elapsedTime = 0.
	}
	*elapsed = e.elapsedTime
	if e.em.Code() != 0 {
		return errs.New(e.em.Code())
	}
	return nil
}

// RoutingTimeMs exposes the routing clock for collaborators and tests.
func (e *Engine) RoutingTimeMs() float64 { return e.newRoutingTime }

// maxRouteStep evaluates the largest stable routing step the dynamic
// solver would accept right now.
func (e *Engine) maxRouteStep() float64 {
	p := e.prj
	if e.state != Started || p.Opt.RouteModel != project.DynWave || e.kq == nil {
		return p.Opt.RouteStep
	}
	saved := p.Opt.CourantFactor
	p.Opt.CourantFactor = 1.
	result := e.kq.RoutingStep(p.Opt.RouteStep)
	p.Opt.CourantFactor = saved
	return result
}
