package sim

import (
	"path/filepath"
	"testing"

	"github.com/maseology/udrr/errs"
	"github.com/maseology/udrr/hotstart"
	"github.com/maseology/udrr/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHotStartRoundTrip(t *testing.T) {
	fp := writeInp(t, netInp)
	hsf := filepath.Join(t.TempDir(), "mid.hsf")

	// run to mid-horizon and snapshot the routing state
	e := NewEngine()
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	require.NoError(t, e.Start(true))
	var elapsed float64
	require.NoError(t, e.Stride(1800, &elapsed))
	require.NoError(t, e.SaveHotStart(hsf))
	midDepth, err := e.GetValue(project.NODE, NodeDepth, 0, -1)
	require.NoError(t, err)
	midFlow, err := e.GetValue(project.LINK, LinkFlow, 0, -1)
	require.NoError(t, err)
	require.NoError(t, e.End())
	require.NoError(t, e.Close())

	// a new run primed from the snapshot starts warm
	fp2 := writeInp(t, netInp)
	e2 := NewEngine()
	require.NoError(t, e2.Open(fp2.inp, fp2.rpt, fp2.out))
	require.NoError(t, e2.UseHotStart(hsf))
	require.NoError(t, e2.Start(true))

	d0, err := e2.GetValue(project.NODE, NodeDepth, 0, -1)
	require.NoError(t, err)
	assert.InDelta(t, midDepth, d0, 1e-9)
	q0, err := e2.GetValue(project.LINK, LinkFlow, 0, -1)
	require.NoError(t, err)
	assert.InDelta(t, midFlow, q0, 1e-9)

	for {
		el, err := e2.Step()
		require.NoError(t, err)
		if el == 0. {
			break
		}
	}
	require.NoError(t, e2.End())
	require.NoError(t, e2.Close())
}

func TestUseHotStartRejectsBadFile(t *testing.T) {
	fp := writeInp(t, netInp)
	e := NewEngine()
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	defer e.Close()
	err := e.UseHotStart(filepath.Join(t.TempDir(), "missing.hsf"))
	assert.Equal(t, errs.ErrHotstartOpen, errs.CodeOf(err))
	// a bad hot-start file does not poison the run
	assert.Equal(t, 0, e.ErrorCode())
	require.NoError(t, e.Start(false))
	e.End()
}

func TestScheduledHotStartSaves(t *testing.T) {
	fp := writeInp(t, netInp)
	hs1 := filepath.Join(t.TempDir(), "t600.hsf")
	hs2 := filepath.Join(t.TempDir(), "t1200.hsf")

	e := NewEngine()
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	require.NoError(t, e.SaveHotStartAt(600, hs1))
	require.NoError(t, e.SaveHotStartAt(1200, hs2))
	require.NoError(t, e.Start(true))
	for {
		el, err := e.Step()
		require.NoError(t, err)
		if el == 0. {
			break
		}
	}
	require.NoError(t, e.End())
	require.NoError(t, e.Close())

	// both snapshots landed and load against the same topology
	p := project.New()
	require.NoError(t, p.Load(fp.inp))
	code, _ := p.Validate()
	require.Equal(t, 0, code)
	p.Init()
	require.NoError(t, hotstart.Load(p, hs1))
	require.NoError(t, hotstart.Load(p, hs2))
}
