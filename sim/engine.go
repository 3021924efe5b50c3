// Package sim is the simulation lifecycle controller: it owns the
// engine state machine (open, start, step, end, report, close), the
// adaptive routing loop, the typed property interface and the run
// facade. Physical computations are delegated to the runoff and
// routing kernels; results persist through the outfile writer.
package sim

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/maseology/udrr/dtime"
	"github.com/maseology/udrr/errs"
	"github.com/maseology/udrr/outfile"
	"github.com/maseology/udrr/project"
	"github.com/maseology/udrr/report"
	"github.com/maseology/udrr/routing"
	"github.com/maseology/udrr/runoff"
	"github.com/maseology/udrr/wbal"
)

// EngVersion is the engine version stamped into output files,
// formatted as x.y.zzz compressed into one integer.
const EngVersion = outfile.EngVersion

// Lifecycle states.
type State int

const (
	Uninitialized State = iota
	Opened
	Started
	Ended
	ClosedState
)

// one open project per process
var activeEngine int32

// Engine drives one simulation from open to close. All public methods
// are safe to call in any state: out-of-order calls fail with the
// matching lifecycle code and leave the state unchanged.
type Engine struct {
	mu    sync.Mutex
	state State
	owns  bool // holds the process-wide open-project slot

	prj *project.Project
	em  *errs.Manager

	warnings    int
	saveResults bool
	doRunoff    bool
	doRouting   bool

	// simulation clock (milliseconds unless noted)
	totalDuration   float64
	routingDuration float64
	oldRoutingTime  float64
	newRoutingTime  float64
	newRunoffTime   float64
	reportTime      float64
	elapsedTime     float64 // decimal days; 0 signals the horizon

	totalStepCount   int
	reportStepCount  int
	nonConvergeCount int

	out *outfile.Writer
	rpt *report.Writer
	kr  *runoff.Kernel
	kq  *routing.Kernel
	wb  *wbal.Budget

	hotstartUse   string    // snapshot applied at start, "" if none
	hotstartSaves []hotSave // pending timed saves

	savedReader *outfile.Handle // lazy post-run reader

	// callbacks
	phaseFn    PhaseFunc
	progressFn ProgressFunc
	progressMu sync.Mutex
	progressAt int64 // unix nanos of last emission
	progressHz float64
	inCallback bool
}

type hotSave struct {
	timeMs float64
	path   string
	done   bool
}

// NewEngine returns an engine in the uninitialized state.
func NewEngine() *Engine {
	return &Engine{em: errs.NewManager(errs.SolverMessage), progressHz: 2.}
}

// ErrorCode returns the sticky error code.
func (e *Engine) ErrorCode() int { return e.em.Code() }

// Error returns the sticky error code and its message.
func (e *Engine) Error() (int, string) { return e.em.Code(), e.em.Check() }

// Warnings returns the number of warnings issued since open.
func (e *Engine) Warnings() int { return e.warnings }

// StateOf returns the current lifecycle state.
func (e *Engine) StateOf() State { return e.state }

// Open parses the input file, validates the project and prepares the
// report file. Only one project may be open per process.
func (e *Engine) Open(inpFile, rptFile, outFile string) error {
	if e.inCallback {
		return errs.New(errs.ErrAPIIsRunning)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Uninitialized && e.state != ClosedState {
		return errs.New(e.em.Set(errs.ErrAPINotEnded))
	}
	if !atomic.CompareAndSwapInt32(&activeEngine, 0, 1) {
		return errs.New(errs.ErrAPIIsRunning)
	}
	e.owns = true

	e.firePhase(PhaseInitialize, true)
	e.em.Clear()
	e.warnings = 0
	e.hotstartUse = ""
	e.hotstartSaves = nil
	e.firePhase(PhaseInitialize, false)
	e.firePhase(PhaseOpen, true)

	if inpFile == rptFile || inpFile == outFile || (rptFile == outFile && rptFile != "") {
		return e.fail(errs.ErrIdenticalNames)
	}

	p := project.New()
	p.InpName, p.RptName, p.OutName = inpFile, rptFile, outFile
	if abs, err := filepath.Abs(inpFile); err == nil {
		p.InpDir = filepath.Dir(abs)
	}
	if err := p.Load(inpFile); err != nil {
		return e.fail(errs.CodeOf(err))
	}

	rw, err := report.Open(rptFile)
	if err != nil {
		return e.fail(errs.CodeOf(err))
	}
	e.rpt = rw
	e.rpt.Title(p)

	code, warnings := p.Validate()
	e.warnings += warnings
	if code != 0 {
		return e.fail(code)
	}

	e.prj = p
	e.state = Opened
	e.firePhase(PhaseOpen, false)
	return nil
}

// fail records a fatal code during open and releases the process slot.
func (e *Engine) fail(code int) error {
	e.em.Set(code)
	e.releaseSlot()
	return errs.New(code)
}

func (e *Engine) releaseSlot() {
	if e.owns {
		atomic.StoreInt32(&activeEngine, 0)
		e.owns = false
	}
}

// Start initializes every kernel in its fixed order and arms the
// simulation clock.
func (e *Engine) Start(saveResults bool) error {
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
	if e.state != Opened {
		return errs.New(e.em.Set(errs.ErrAPINotEnded))
	}
	e.firePhase(PhaseStart, true)

	p := e.prj
	if !p.Rpt.Disabled {
		e.rpt.Options(p)
	}
	e.saveResults = saveResults

	// clock
	e.elapsedTime = 0.
	e.totalDuration = p.Opt.TotalDuration
	e.routingDuration = e.totalDuration
	e.oldRoutingTime = 0.
	e.newRoutingTime = 0.
	e.newRunoffTime = 0.
	e.reportTime = 1000. * float64(p.Opt.ReportStep)
	e.totalStepCount = 0
	e.reportStepCount = 0
	e.nonConvergeCount = 0

	p.Init()

	e.doRunoff = len(p.Subcatch) > 0
	e.doRouting = len(p.Nodes) > 0 && !p.Opt.IgnoreRouting

	if saveResults {
		w, err := outfile.OpenWriter(p, p.OutName)
		if err != nil {
			e.em.Set(errs.CodeOf(err))
			return err
		}
		e.out = w
	}

	// the runoff kernel also carries the climate state, so it exists
	// even for networks without subcatchments
	e.kr = runoff.Open(p)

	if e.hotstartUse != "" {
		if err := e.applyHotstart(); err != nil {
			e.em.Set(errs.CodeOf(err))
			return err
		}
	}

	if e.doRouting {
		e.kq = routing.Open(p, p.Opt.RouteModel)
	}
	e.wb = wbal.Open(p)

	if !p.Rpt.Disabled && p.Rpt.Controls {
		e.rpt.ControlActionsHeading()
	}

	e.state = Started
	e.firePhase(PhaseStart, false)
	return nil
}

// End finalizes the output file, reports continuity and closes every
// kernel opened by Start. It is idempotent and still runs after a
// sticky error so resources are always released.
func (e *Engine) End() error {
	if e.inCallback {
		return errs.New(errs.ErrAPIIsRunning)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Uninitialized || e.state == ClosedState {
		return errs.New(e.em.Set(errs.ErrAPINotOpen))
	}
	if e.state != Started {
		if e.em.Code() != 0 {
			return errs.New(e.em.Code())
		}
		return nil
	}
	e.firePhase(PhaseEnd, true)

	if e.out != nil {
		e.out.End(e.em.Code())
	}
	if e.em.Code() == 0 && !e.prj.Rpt.Disabled {
		e.rpt.Continuity(e.wb)
	}
	if e.kr != nil {
		e.kr.Close()
		e.kr = nil
	}
	if e.kq != nil {
		e.kq.Close()
		e.kq = nil
	}
	e.state = Ended
	e.firePhase(PhaseEnd, false)
	if e.em.Code() != 0 {
		return errs.New(e.em.Code())
	}
	return nil
}

// Report writes the post-run text report. The simulation must have
// ended.
func (e *Engine) Report() error {
	if e.inCallback {
		return errs.New(errs.ErrAPIIsRunning)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Uninitialized || e.state == ClosedState {
		return errs.New(e.em.Set(errs.ErrAPINotOpen))
	}
	if e.state != Ended {
		return errs.New(e.em.Set(errs.ErrAPINotEnded))
	}
	if e.em.Code() != 0 {
		return errs.New(e.em.Code())
	}
	e.firePhase(PhaseReport, true)
	if e.out != nil {
		e.rpt.Line("  Results saved to binary output file.")
	}
	e.firePhase(PhaseReport, false)
	return nil
}

// WriteLine appends a line of text to the report file.
func (e *Engine) WriteLine(line string) {
	if e.state != Uninitialized && e.state != ClosedState && e.rpt != nil {
		e.rpt.Line(line)
	}
}

// Close releases every resource and retires the project. A new Open
// may follow.
func (e *Engine) Close() error {
	if e.inCallback {
		return errs.New(errs.ErrAPIIsRunning)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.firePhase(PhaseClose, true)
	if e.out != nil {
		e.out.Close()
		e.out = nil
	}
	if e.savedReader != nil {
		e.savedReader.Close()
		e.savedReader = nil
	}
	if e.rpt != nil {
		e.rpt.SysTime()
		e.rpt.Close()
		e.rpt = nil
	}
	e.kr, e.kq, e.wb = nil, nil, nil
	e.prj = nil
	e.releaseSlot()
	e.state = ClosedState
	e.firePhase(PhaseClose, false)
	return nil
}

// Version returns the engine version number.
func Version() int { return EngVersion }

// DecodeDate splits an encoded decimal-day date into calendar and clock
// parts plus the day of week (1 = Sunday).
func DecodeDate(date float64, year, month, day, hour, minute, second, dayOfWeek *int) {
	dtime.DecodeDateTime(date, year, month, day, hour, minute, second)
	*dayOfWeek = dtime.DayOfWeek(date)
}

// EncodeDate builds an encoded decimal-day date from calendar and clock
// parts.
func EncodeDate(year, month, day, hour, minute, second int) float64 {
	return dtime.EncodeDate(year, month, day) + dtime.EncodeTime(hour, minute, second)
}

// MassBalErr reports the continuity errors of the last run. Valid
// between End and Close.
func (e *Engine) MassBalErr() (runoffErr, flowErr, qualErr float64) {
	if e.state == Ended && e.wb != nil {
		return e.wb.RunoffError(), e.wb.FlowError(), 0.
	}
	return 0., 0., 0.
}

// Count returns the number of objects of a type.
func (e *Engine) Count(t project.ObjType) (int, error) {
	if e.state == Uninitialized || e.state == ClosedState {
		return 0, errs.New(errs.ErrAPINotOpen)
	}
	if !isCountable(t) {
		return 0, errs.New(errs.ErrAPIObjectType)
	}
	return e.prj.Count(t), nil
}

func isCountable(t project.ObjType) bool {
	switch t {
	case project.GAGE, project.SUBCATCH, project.NODE, project.LINK,
		project.POLLUT, project.LANDUSE, project.TIMEPATTERN, project.CURVE,
		project.TSERIES, project.TRANSECT, project.AQUIFER, project.UNITHYD,
		project.SNOWMELT:
		return true
	}
	return false
}

// Name returns the ID of object (t, index).
func (e *Engine) Name(t project.ObjType, index int) (string, error) {
	if e.state == Uninitialized || e.state == ClosedState {
		return "", errs.New(errs.ErrAPINotOpen)
	}
	if !isCountable(t) {
		return "", errs.New(errs.ErrAPIObjectType)
	}
	id := e.prj.ID(t, index)
	if id == "" {
		return "", errs.New(errs.ErrAPIObjectIndex)
	}
	return id, nil
}

// Index returns the position of a named object, or -1.
func (e *Engine) Index(t project.ObjType, name string) (int, error) {
	if e.state == Uninitialized || e.state == ClosedState {
		return -1, errs.New(errs.ErrAPINotOpen)
	}
	if !isCountable(t) {
		return -1, errs.New(errs.ErrAPIObjectType)
	}
	return e.prj.FindObject(t, name), nil
}

// Project exposes the live object graph to in-process collaborators;
// external mutation goes through the property interface.
func (e *Engine) Project() *project.Project { return e.prj }
