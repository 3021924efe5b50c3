package sim

import (
	"path/filepath"

	"github.com/maseology/udrr/errs"
	"github.com/maseology/udrr/hotstart"
)

// UseHotStart validates a snapshot and arms it as the initial condition
// of the next Start. The file's version and topology are checked now so
// a bad file surfaces before the run begins.
func (e *Engine) UseHotStart(path string) error {
	if e.em.Code() != 0 {
		return errs.New(e.em.Code())
	}
	if e.state == Uninitialized || e.state == ClosedState {
		return errs.New(e.em.Set(errs.ErrAPINotOpen))
	}
	if e.state == Started {
		return errs.New(e.em.Set(errs.ErrAPINotEnded))
	}
	fp := e.absPath(path)
	if _, err := hotstart.Check(e.prj, fp); err != nil {
		return err // does not poison the run
	}
	e.hotstartUse = fp
	return nil
}

// SaveHotStart snapshots the routing state at the current simulation
// time.
func (e *Engine) SaveHotStart(path string) error {
	if e.em.Code() != 0 {
		return errs.New(e.em.Code())
	}
	if e.state == Uninitialized || e.state == ClosedState {
		return errs.New(e.em.Set(errs.ErrAPINotOpen))
	}
	if e.state != Started {
		return errs.New(e.em.Set(errs.ErrAPINotStarted))
	}
	return hotstart.Save(e.prj, e.absPath(path))
}

// SaveHotStartAt schedules a snapshot to be written when the routing
// clock first reaches elapsed seconds. Multiple schedules with distinct
// times and paths may coexist.
func (e *Engine) SaveHotStartAt(elapsedSec float64, path string) error {
	if e.state == Uninitialized || e.state == ClosedState {
		return errs.New(e.em.Set(errs.ErrAPINotOpen))
	}
	e.hotstartSaves = append(e.hotstartSaves, hotSave{timeMs: elapsedSec * 1000., path: e.absPath(path)})
	return nil
}

func (e *Engine) applyHotstart() error {
	return hotstart.Load(e.prj, e.hotstartUse)
}

// checkHotstartSaves writes any scheduled snapshot whose time has been
// reached. Runs after reporting inside each step.
func (e *Engine) checkHotstartSaves() {
	for i := range e.hotstartSaves {
		hs := &e.hotstartSaves[i]
		if !hs.done && e.newRoutingTime >= hs.timeMs {
			if err := hotstart.Save(e.prj, hs.path); err != nil {
				e.warnings++
			}
			hs.done = true
		}
	}
}

// absPath resolves a path relative to the input file's directory, the
// same rule every file named inside the input follows.
func (e *Engine) absPath(path string) string {
	if filepath.IsAbs(path) || e.prj == nil || e.prj.InpDir == "" {
		return path
	}
	return filepath.Join(e.prj.InpDir, path)
}
