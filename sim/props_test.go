package sim

import (
	"testing"

	"github.com/maseology/udrr/errs"
	"github.com/maseology/udrr/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openNet(t *testing.T) (*Engine, paths) {
	t.Helper()
	fp := writeInp(t, netInp)
	e := NewEngine()
	require.NoError(t, e.Open(fp.inp, fp.rpt, fp.out))
	t.Cleanup(func() { e.Close() })
	return e, fp
}

func TestSystemPropertyReads(t *testing.T) {
	e, _ := openNet(t)
	v, err := e.Get(SysFlowUnits, 0)
	require.NoError(t, err)
	assert.Equal(t, float64(project.CFS), v)
	v, err = e.Get(SysReportStep, 0)
	require.NoError(t, err)
	assert.Equal(t, 600., v)
	v, err = e.Get(SysRouteStep, 0)
	require.NoError(t, err)
	assert.Equal(t, 10., v)
	start, _ := e.Get(SysStartDate, 0)
	end, _ := e.Get(SysEndDate, 0)
	assert.InDelta(t, 1./24., end-start, 1e-12)
}

func TestWriteGateMatrix(t *testing.T) {
	e, _ := openNet(t)

	// geometry writable before start
	require.NoError(t, e.SetValue(project.SUBCATCH, SubcatchWidth, 0, -1, 800.))
	require.NoError(t, e.SetValue(project.NODE, NodeMaxDepth, 0, -1, 12.))
	require.NoError(t, e.Start(false))

	// and frozen during the run
	err := e.SetValue(project.SUBCATCH, SubcatchWidth, 0, -1, 900.)
	assert.Equal(t, errs.ErrAPIIsRunning, errs.CodeOf(err))
	err = e.SetValue(project.NODE, NodeMaxDepth, 0, -1, 15.)
	assert.Equal(t, errs.ErrAPIIsRunning, errs.CodeOf(err))
	err = e.Set(SysReportStep, 0, 300)
	assert.Equal(t, errs.ErrAPIIsRunning, errs.CodeOf(err))

	// runtime-writable settings stay open
	require.NoError(t, e.SetValue(project.NODE, NodeLatFlow, 0, -1, 2.5))
	require.NoError(t, e.Set(SysRouteStep, 0, 5.))
	e.End()
}

func TestPropertyRoundTrip(t *testing.T) {
	e, _ := openNet(t)
	cases := []struct {
		obj  project.ObjType
		prop int
		val  float64
	}{
		{project.SUBCATCH, SubcatchWidth, 750.},
		{project.SUBCATCH, SubcatchCurbLength, 120.},
		{project.NODE, NodeElev, 101.5},
		{project.NODE, NodeInitialDepth, 0.25},
		{project.NODE, NodePondedArea, 5000.},
		{project.LINK, LinkOffset1, 0.4},
		{project.LINK, LinkFlowLimit, 12.},
		{project.LINK, LinkInletLoss, 0.3},
	}
	for _, c := range cases {
		require.NoError(t, e.SetValue(c.obj, c.prop, 0, -1, c.val))
		v, err := e.GetValue(c.obj, c.prop, 0, -1)
		require.NoError(t, err)
		assert.InDelta(t, c.val, v, 1e-9, "prop %d", c.prop)
	}
}

func TestInvalidWrites(t *testing.T) {
	e, _ := openNet(t)
	err := e.Set(SysRouteStep, 0, 0.)
	assert.Equal(t, errs.ErrAPIPropertyValue, errs.CodeOf(err))
	err = e.Set(SysRouteStep, 0, -5.)
	assert.Equal(t, errs.ErrAPIPropertyValue, errs.CodeOf(err))
	err = e.SetValue(project.SUBCATCH, SubcatchArea, 0, -1, -1.)
	assert.Equal(t, errs.ErrAPIPropertyValue, errs.CodeOf(err))
	err = e.SetValue(project.SUBCATCH, SubcatchArea, 9, -1, 5.)
	assert.Equal(t, errs.ErrAPIObjectIndex, errs.CodeOf(err))
	err = e.SetValue(project.NODE, 999, 0, -1, 5.)
	assert.Equal(t, errs.ErrAPIPropertyType, errs.CodeOf(err))
}

func TestGaugeOverrideReachesSubcatchment(t *testing.T) {
	e, _ := openNet(t)
	require.NoError(t, e.Start(true))
	_, err := e.Step()
	require.NoError(t, err)

	// override gauge 0 with 3.6 units of intensity; the hydrology
	// clock runs ahead of routing, so step past its next recompute
	require.NoError(t, e.Set(GaugeRainfall, 0, 3.6))
	for e.RoutingTimeMs() < 400000. {
		_, err = e.Step()
		require.NoError(t, err)
	}

	v, err := e.GetValue(project.SUBCATCH, SubcatchRainfall, 0, -1)
	require.NoError(t, err)
	assert.InDelta(t, 3.6, v, 1e-9)
	g, err := e.GetValue(project.GAGE, GaugeRainfall, 0, -1)
	require.NoError(t, err)
	assert.InDelta(t, 3.6, g, 1e-9)
	e.End()
}

func TestOutfallStageOverride(t *testing.T) {
	e, _ := openNet(t)
	require.NoError(t, e.Start(true))
	_, err := e.Step()
	require.NoError(t, err)

	outfall, err := e.Index(project.NODE, "O1")
	require.NoError(t, err)
	invert, err := e.GetValue(project.NODE, NodeElev, outfall, -1)
	require.NoError(t, err)

	const stage = 2.5
	require.NoError(t, e.SetValue(project.NODE, NodeHead, outfall, -1, stage))
	_, err = e.Step()
	require.NoError(t, err)

	head, err := e.GetValue(project.NODE, NodeHead, outfall, -1)
	require.NoError(t, err)
	assert.InDelta(t, stage+invert, head, 1e-6)

	// a junction cannot take a stage
	err = e.SetValue(project.NODE, NodeHead, 0, -1, stage)
	assert.Equal(t, errs.ErrAPIObjectType, errs.CodeOf(err))
	e.End()
}

func TestSubcatchRainfallOverrideRuntime(t *testing.T) {
	e, _ := openNet(t)
	require.NoError(t, e.Start(false))
	require.NoError(t, e.SetValue(project.SUBCATCH, SubcatchAPIRainfall, 0, -1, 2.4))
	v, err := e.GetValue(project.SUBCATCH, SubcatchAPIRainfall, 0, -1)
	require.NoError(t, err)
	assert.InDelta(t, 2.4, v, 1e-9)

	for e.RoutingTimeMs() < 400000. {
		_, err = e.Step()
		require.NoError(t, err)
	}
	r, err := e.GetValue(project.SUBCATCH, SubcatchRainfall, 0, -1)
	require.NoError(t, err)
	assert.InDelta(t, 2.4, r, 1e-9)
	e.End()
}

func TestGetValuePureBetweenSteps(t *testing.T) {
	e, _ := openNet(t)
	require.NoError(t, e.Start(false))
	_, err := e.Step()
	require.NoError(t, err)
	a, err := e.GetValue(project.NODE, NodeDepth, 0, -1)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		b, err := e.GetValue(project.NODE, NodeDepth, 0, -1)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
	e.End()
}

func TestLegacyDispatchByCodeRange(t *testing.T) {
	e, _ := openNet(t)
	// same property through both forms
	v1, err := e.Get(NodeElev, 0)
	require.NoError(t, err)
	v2, err := e.GetValue(project.NODE, NodeElev, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	_, err = e.Get(990, 0)
	assert.Equal(t, errs.ErrAPIPropertyType, errs.CodeOf(err))
}
