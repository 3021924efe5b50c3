package runoff

import (
	"testing"

	"github.com/maseology/udrr/dtime"
	"github.com/maseology/udrr/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shed(rain float64) *project.Project {
	p := project.New()
	p.Opt.StartDate = dtime.EncodeDate(2023, 6, 1)
	p.Opt.EndDate = p.Opt.StartDate + 1
	p.Opt.RecomputeDuration()
	p.Gauges = append(p.Gauges, project.Gauge{ID: "RG1", Tseries: -1, APIRainfall: rain})
	p.Subcatch = append(p.Subcatch, project.Subcatch{
		ID: "S1", Gage: 0, OutNode: -1,
		Area:        10. / 2.2956e-5, // 10 ac in ft2
		Width:       500.,
		DepStore:    0.05 / 12.,
		InfilRate:   0.1 / 43200.,
		APIRainfall: -1.,
		APISnowfall: -1.,
	})
	p.Init()
	return p
}

func TestDryShedProducesNoRunoff(t *testing.T) {
	p := shed(-1.)
	p.Gauges[0].APIRainfall = -1.
	k := Open(p)
	k.Execute()
	assert.Equal(t, 0., p.Subcatch[0].NewRunoff)
	assert.Equal(t, float64(p.Opt.DryStep)*1000., k.Time())
}

func TestWetShedRunsOff(t *testing.T) {
	p := shed(3.6) // in/hr through the gauge API override
	k := Open(p)
	// first step fills depression storage, later steps spill
	for i := 0; i < 5; i++ {
		k.Execute()
	}
	assert.Greater(t, p.Subcatch[0].NewRunoff, 0.)
	assert.Greater(t, p.Subcatch[0].Rainfall, 0.)
	assert.Equal(t, 5.*float64(p.Opt.WetStep)*1000., k.Time())
}

func TestSubcatchOverrideWinsOverGauge(t *testing.T) {
	p := shed(3.6)
	p.Subcatch[0].APIRainfall = 0. // force dry at the subcatchment
	k := Open(p)
	k.Execute()
	assert.Equal(t, 0., p.Subcatch[0].Rainfall)
}

func TestRunoffClockOutrunsRouting(t *testing.T) {
	p := shed(1.0)
	k := Open(p)
	next := 1000. * 60. // one minute of routing
	for k.Time() < next {
		k.Execute()
	}
	require.GreaterOrEqual(t, k.Time(), next)
}
