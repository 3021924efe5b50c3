package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maseology/udrr/errs"
	"github.com/maseology/udrr/outfile"
	"github.com/maseology/udrr/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emptyInp = `[TITLE]
empty network

[OPTIONS]
FLOW_UNITS        CFS
START_DATE        01/01/2023
START_TIME        00:00:00
END_DATE          01/01/2023
END_TIME          01:00:00
REPORT_START_DATE 01/01/2023
REPORT_START_TIME 00:00:00
REPORT_STEP       0:10:00
WET_STEP          0:05:00
ROUTING_STEP      10
`

const netInp = `[TITLE]
one-subcatchment network

[OPTIONS]
FLOW_UNITS        CFS
FLOW_ROUTING      KINWAVE
START_DATE        01/01/2023
START_TIME        00:00:00
END_DATE          01/01/2023
END_TIME          01:00:00
REPORT_START_DATE 01/01/2023
REPORT_START_TIME 00:00:00
ROUTING_STEP      10
REPORT_STEP       0:10:00
WET_STEP          0:05:00
DRY_STEP          0:05:00

[RAINGAGES]
RG1  INTENSITY  1:00  1.0  TIMESERIES  TS1

[SUBCATCHMENTS]
S1  RG1  J1  10  25  500  0.5

[JUNCTIONS]
J1  100  6  0  0  0

[OUTFALLS]
O1  95  FREE

[CONDUITS]
C1  J1  O1  400  0.01  0  0

[XSECTIONS]
C1  CIRCULAR  1.5

[TIMESERIES]
TS1  0:00  1.0
TS1  1:00  1.0
`

type paths struct{ inp, rpt, out string }

func writeInp(t *testing.T, contents string) paths {
	t.Helper()
	dir := t.TempDir()
	p := paths{
		inp: filepath.Join(dir, "m.inp"),
		rpt: filepath.Join(dir, "m.rpt"),
		out: filepath.Join(dir, "m.out"),
	}
	require.NoError(t, os.WriteFile(p.inp, []byte(contents), 0644))
	return p
}

func TestLifecycleOrderEnforced(t *testing.T) {
	e := NewEngine()
	_, err := e.Step()
	assert.Equal(t, errs.ErrAPINotOpen, errs.CodeOf(err))
	e.em.Clear()

	fp := writeInp(t, emptyInp)
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	assert.Equal(t, Opened, e.StateOf())

	_, err = e.Step()
	assert.Equal(t, errs.ErrAPINotStarted, errs.CodeOf(err))
	e.em.Clear()

	require.NoError(t, e.Start(true))
	assert.Equal(t, Started, e.StateOf())
	err = e.Start(true)
	assert.Equal(t, errs.ErrAPINotEnded, errs.CodeOf(err))
	e.em.Clear()

	require.NoError(t, e.End())
	assert.Equal(t, Ended, e.StateOf())
	require.NoError(t, e.End()) // idempotent
	require.NoError(t, e.Report())
	require.NoError(t, e.Close())
	assert.Equal(t, ClosedState, e.StateOf())
}

func TestOpenRejectsIdenticalNames(t *testing.T) {
	e := NewEngine()
	err := e.Open("a.inp", "a.inp", "a.out")
	assert.Equal(t, errs.ErrIdenticalNames, errs.CodeOf(err))
	e.Close()
}

func TestOpenMissingInput(t *testing.T) {
	e := NewEngine()
	err := e.Open("missing.inp", "m.rpt", "m.out")
	assert.Equal(t, errs.ErrInpOpen, errs.CodeOf(err))
	e.Close()
}

func TestSingleOpenProjectPerProcess(t *testing.T) {
	fp := writeInp(t, emptyInp)
	e1 := NewEngine()
	require.NoError(t, e1.Open(fp.inp, fp.rpt, fp.out))
	defer e1.Close()

	fp2 := writeInp(t, emptyInp)
	e2 := NewEngine()
	err := e2.Open(fp2.inp, fp2.rpt, fp2.out)
	assert.Equal(t, errs.ErrAPIIsRunning, errs.CodeOf(err))
}

func TestEmptyNetworkRun(t *testing.T) {
	fp := writeInp(t, emptyInp)
	e := NewEngine()
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	require.NoError(t, e.Start(true))

	steps := 0
	for {
		elapsed, err := e.Step()
		require.NoError(t, err)
		steps++
		if elapsed == 0. {
			break
		}
	}
	assert.Equal(t, 12, steps) // 3600 s at the 300 s no-routing step
	require.NoError(t, e.End())
	require.NoError(t, e.Report())
	require.NoError(t, e.Close())

	h := outfile.NewHandle()
	require.Equal(t, 0, h.Open(fp.out))
	defer h.Close()
	n, _ := h.Times(outfile.NumPeriodsQuery)
	assert.Equal(t, 6, n)
	sys, code := h.SysResult(5)
	require.Equal(t, 0, code)
	for _, v := range sys {
		assert.Equal(t, float32(0), v)
	}
}

func TestNetworkRunToCompletion(t *testing.T) {
	fp := writeInp(t, netInp)
	code := Run(fp.inp, fp.rpt, fp.out)
	require.Equal(t, 0, code)

	h := outfile.NewHandle()
	require.Equal(t, 0, h.Open(fp.out))
	defer h.Close()
	n, _ := h.Times(outfile.NumPeriodsQuery)
	assert.Equal(t, 6, n)

	// constant 1 in/hr rain must generate runoff visible in the file
	ro, code := h.SubcatchSeries(0, outfile.SubcatchRunoffRate, 0, n)
	require.Equal(t, 0, code)
	assert.Greater(t, float64(ro[n-1]), 0.)
}

func TestRunMatchesManualSequence(t *testing.T) {
	fp1 := writeInp(t, netInp)
	require.Equal(t, 0, Run(fp1.inp, fp1.rpt, fp1.out))

	fp2 := writeInp(t, netInp)
	e := NewEngine()
	require.NoError(t, e.Open(fp2.inp, fp2.rpt, fp2.out))
	require.NoError(t, e.Start(true))
	for {
		elapsed, err := e.Step()
		require.NoError(t, err)
		if elapsed == 0. {
			break
		}
	}
	require.NoError(t, e.End())
	require.NoError(t, e.Report())
	require.NoError(t, e.Close())

	b1, err := os.ReadFile(fp1.out)
	require.NoError(t, err)
	b2, err := os.ReadFile(fp2.out)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestStridePrecision(t *testing.T) {
	fp := writeInp(t, netInp)
	e := NewEngine()
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	require.NoError(t, e.Start(true))

	var elapsed float64
	for k := 1; k <= 6; k++ {
		require.NoError(t, e.Stride(60, &elapsed))
		assert.Equal(t, float64(k)*60000., e.RoutingTimeMs())
		assert.InDelta(t, float64(k)*60./86400., elapsed, 1e-12)
	}
	// transient routing step restored after each stride
	v, err := e.Get(SysRouteStep, 0)
	require.NoError(t, err)
	assert.Equal(t, 10., v)

	require.NoError(t, e.End())
	e.Close()
}

func TestStrideStopsAtHorizon(t *testing.T) {
	fp := writeInp(t, netInp)
	e := NewEngine()
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	require.NoError(t, e.Start(true))
	var elapsed float64
	require.NoError(t, e.Stride(10000, &elapsed)) // beyond the 3600 s horizon
	assert.Equal(t, 3600000., e.RoutingTimeMs())
	assert.Equal(t, 0., elapsed)
	e.End()
	e.Close()
}

func TestZeroDurationStepsImmediately(t *testing.T) {
	fp := writeInp(t, emptyInp)
	e := NewEngine()
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	start, err := e.Get(SysStartDate, 0)
	require.NoError(t, err)
	require.NoError(t, e.Set(SysEndDate, 0, start)) // end == start
	require.NoError(t, e.Start(false))
	elapsed, err := e.Step()
	require.NoError(t, err)
	assert.Equal(t, 0., elapsed)
	e.End()
	e.Close()
}

func TestStickyErrorShortCircuitsStep(t *testing.T) {
	fp := writeInp(t, netInp)
	e := NewEngine()
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	require.NoError(t, e.Start(true))
	_, err := e.Step()
	require.NoError(t, err)

	e.em.Set(errs.ErrNumeric)
	_, err = e.Step()
	assert.Equal(t, errs.ErrNumeric, errs.CodeOf(err))
	// cleanup still runs
	assert.Error(t, e.End())
	assert.Equal(t, Ended, e.StateOf())
	require.NoError(t, e.Close())
}

func TestRunWithCallbackProgress(t *testing.T) {
	fp := writeInp(t, netInp)
	var fracs []float64
	code := RunWithCallback(fp.inp, fp.rpt, fp.out, func(f float64) {
		fracs = append(fracs, f)
	})
	require.Equal(t, 0, code)
	require.NotEmpty(t, fracs)
	last := 0.
	for _, f := range fracs {
		assert.GreaterOrEqual(t, f, last)
		assert.LessOrEqual(t, f, 1.)
		last = f
	}
	assert.Equal(t, 1., fracs[len(fracs)-1])
}

func TestReentrantCallFailsInsideCallback(t *testing.T) {
	fp := writeInp(t, netInp)
	e := NewEngine()
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))

	var reentrant error
	fired := false
	e.OnPhase(func(en *Engine, ph Phase, before bool) {
		if ph == PhaseStep && before && !fired {
			fired = true
			_, reentrant = en.Step()
		}
	})
	require.NoError(t, e.Start(true))
	_, err := e.Step()
	require.NoError(t, err)
	require.True(t, fired)
	assert.Equal(t, errs.ErrAPIIsRunning, errs.CodeOf(reentrant))
	e.End()
	e.Close()
}

func TestPhaseCallbackPanicsContained(t *testing.T) {
	fp := writeInp(t, emptyInp)
	e := NewEngine()
	e.OnPhase(func(en *Engine, ph Phase, before bool) {
		panic("host failure")
	})
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	require.NoError(t, e.Start(false))
	e.End()
	e.Close()
}

func TestSavedValuesAfterEnd(t *testing.T) {
	fp := writeInp(t, netInp)
	e := NewEngine()
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	require.NoError(t, e.Start(true))
	for {
		elapsed, err := e.Step()
		require.NoError(t, err)
		if elapsed == 0. {
			break
		}
	}
	require.NoError(t, e.End())

	// dates follow start + p*step for 1-based period p
	start, err := e.Get(SysReportStart, 0)
	require.NoError(t, err)
	for p := 1; p <= 6; p++ {
		d, err := e.SavedValue(SysCurrentDate, 0, p)
		require.NoError(t, err)
		assert.InDelta(t, start+float64(p)*600./86400., d, 1e-9)
	}

	// saved link flow equals the reader's view
	v, err := e.SavedValue(LinkFlow, 0, 6)
	require.NoError(t, err)
	h := outfile.NewHandle()
	require.Equal(t, 0, h.Open(fp.out))
	arr, code := h.LinkAttribute(5, outfile.LinkFlow)
	require.Equal(t, 0, code)
	assert.InDelta(t, float64(arr[0]), v, 1e-6)
	h.Close()

	_, err = e.SavedValue(LinkFlow, 0, 7)
	assert.Equal(t, errs.ErrAPIPeriodRange, errs.CodeOf(err))
	require.NoError(t, e.Close())
}

func TestCountNameIndex(t *testing.T) {
	fp := writeInp(t, netInp)
	e := NewEngine()
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	defer e.Close()

	n, err := e.Count(project.NODE)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	name, err := e.Name(project.LINK, 0)
	require.NoError(t, err)
	assert.Equal(t, "C1", name)
	i, err := e.Index(project.NODE, "O1")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	_, err = e.Count(project.SYS)
	assert.Equal(t, errs.ErrAPIObjectType, errs.CodeOf(err))
}
