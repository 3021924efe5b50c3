package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInp = `[TITLE]
two-node test shed

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

[RAINGAGES]
RG1  INTENSITY  1:00  1.0  TIMESERIES  TS1

[SUBCATCHMENTS]
S1  RG1  J1  10  25  500  0.5

[JUNCTIONS]
J1  100  4  0  0  0

[OUTFALLS]
O1  95  FREE

[CONDUITS]
C1  J1  O1  400  0.01  0  0

[XSECTIONS]
C1  CIRCULAR  1.5

[TIMESERIES]
TS1  0:00  0.0
TS1  0:15  1.2
TS1  0:45  0.0
`

func loadSample(t *testing.T) *Project {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "test.inp")
	require.NoError(t, os.WriteFile(fp, []byte(sampleInp), 0644))
	p := New()
	require.NoError(t, p.Load(fp))
	code, _ := p.Validate()
	require.Equal(t, 0, code)
	return p
}

func TestLoadCountsAndIndices(t *testing.T) {
	p := loadSample(t)
	assert.Equal(t, 1, p.Count(GAGE))
	assert.Equal(t, 1, p.Count(SUBCATCH))
	assert.Equal(t, 2, p.Count(NODE))
	assert.Equal(t, 1, p.Count(LINK))
	assert.Equal(t, 0, p.FindObject(NODE, "J1"))
	assert.Equal(t, 1, p.FindObject(NODE, "O1"))
	assert.Equal(t, -1, p.FindObject(NODE, "nope"))
	assert.Equal(t, "C1", p.ID(LINK, 0))
}

func TestReferencesResolved(t *testing.T) {
	p := loadSample(t)
	s := p.Subcatch[0]
	assert.Equal(t, 0, s.Gage)
	assert.Equal(t, p.FindObject(NODE, "J1"), s.OutNode)
	l := p.Links[0]
	assert.Equal(t, p.FindObject(NODE, "J1"), l.Node1)
	assert.Equal(t, p.FindObject(NODE, "O1"), l.Node2)
	assert.Equal(t, OUTFALL, p.Nodes[1].Type)
}

func TestOptionsAndDuration(t *testing.T) {
	p := loadSample(t)
	assert.Equal(t, CFS, p.Opt.FlowUnits)
	assert.Equal(t, US, p.Opt.UnitSystem)
	assert.Equal(t, KinWave, p.Opt.RouteModel)
	assert.Equal(t, 600, p.Opt.ReportStep)
	assert.Equal(t, 10., p.Opt.RouteStep)
	assert.Equal(t, 3600.*1000., p.Opt.TotalDuration)
}

func TestConduitDerivedProperties(t *testing.T) {
	p := loadSample(t)
	c := p.Conduits[0]
	assert.InDelta(t, (100.-95.)/400., c.Slope, 1e-12)
	assert.Greater(t, p.Links[0].QFull, 0.)
	assert.InDelta(t, 1.5, p.Links[0].Xsect.YFull, 1e-12)
}

func TestTseriesStepLookup(t *testing.T) {
	p := loadSample(t)
	ti := p.FindObject(TSERIES, "TS1")
	require.GreaterOrEqual(t, ti, 0)
	require.True(t, p.Tseries[ti].Relative)
	d0 := p.Opt.StartDateTime
	assert.Equal(t, 0.0, p.TseriesValue(ti, d0))
	assert.Equal(t, 1.2, p.TseriesValue(ti, d0+20./1440.))
	assert.Equal(t, 0.0, p.TseriesValue(ti, d0+50./1440.))
}

func TestDuplicateIDRejected(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "dup.inp")
	bad := "[JUNCTIONS]\nJ1 100\nJ1 101\n"
	require.NoError(t, os.WriteFile(fp, []byte(bad), 0644))
	p := New()
	assert.Error(t, p.Load(fp))
}

func TestUndefinedNodeRejected(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "undef.inp")
	bad := "[JUNCTIONS]\nJ1 100\n[CONDUITS]\nC1 J1 MISSING 100 0.01 0 0\n[XSECTIONS]\nC1 CIRCULAR 1\n"
	require.NoError(t, os.WriteFile(fp, []byte(bad), 0644))
	p := New()
	require.NoError(t, p.Load(fp))
	code, _ := p.Validate()
	assert.NotEqual(t, 0, code)
}

func TestNodeVolumeStorageCurve(t *testing.T) {
	p := New()
	p.Nodes = append(p.Nodes, Node{ID: "ST", Type: STORAGE, SubIndex: 0, FullDepth: 10})
	p.Storages = append(p.Storages, Storage{Aconst: 100, Acoeff: 0, Aexpon: 0})
	assert.InDelta(t, 500., p.NodeVolume(0, 5.), 1e-9)
}
