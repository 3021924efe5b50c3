package outfile

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/maseology/udrr/dtime"
	"github.com/maseology/udrr/errs"
	"github.com/maseology/udrr/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProject() *project.Project {
	p := project.New()
	p.Opt.ReportStep = 600
	p.Opt.StartDate = dtime.EncodeDate(2023, 1, 1)
	p.Opt.EndDate = p.Opt.StartDate
	p.Opt.EndTime = dtime.EncodeTime(1, 0, 0)
	p.Opt.ReportStartDate = p.Opt.StartDate
	p.Opt.RecomputeDuration()

	p.Subcatch = append(p.Subcatch, project.Subcatch{ID: "S1", Area: 10., RptFlag: true})
	p.Nodes = append(p.Nodes, project.Node{ID: "J1", InvertElev: 100., FullDepth: 4., RptFlag: true})
	p.Nodes = append(p.Nodes, project.Node{ID: "O1", Type: project.OUTFALL, RptFlag: true})
	p.Links = append(p.Links, project.Link{ID: "C1", Node2: 1, RptFlag: true,
		Xsect: project.Xsect{Type: project.Circular, YFull: 1.5, AFull: 1.767, RFull: 0.375}})
	p.Conduits = append(p.Conduits, project.Conduit{Length: 400.})
	p.Links[0].SubIndex = 0
	p.Init()
	return p
}

func writeFile(t *testing.T, p *project.Project, periods int, errCode int) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "run.out")
	w, err := OpenWriter(p, fp)
	require.NoError(t, err)
	for k := 0; k < periods; k++ {
		p.Links[0].NewFlow = float64(k + 1)
		p.Nodes[0].NewDepth = 0.1 * float64(k)
		require.NoError(t, w.SaveResults(1.0))
	}
	require.NoError(t, w.End(errCode))
	w.Close()
	return fp
}

func TestRoundTripHeader(t *testing.T) {
	p := testProject()
	fp := writeFile(t, p, 6, 0)

	h := NewHandle()
	require.Equal(t, 0, h.Open(fp))
	defer h.Close()

	v, code := h.Version()
	assert.Equal(t, 0, code)
	assert.Equal(t, EngVersion, v)

	sizes, _ := h.ProjectSize()
	assert.Equal(t, []int{1, 2, 1, 1, 0}, sizes)

	n, _ := h.Times(NumPeriodsQuery)
	assert.Equal(t, 6, n)
	step, _ := h.Times(ReportStepQuery)
	assert.Equal(t, 600, step)

	fu, _ := h.FlowUnits()
	assert.Equal(t, project.CFS, fu)
}

func TestPeriodDates(t *testing.T) {
	p := testProject()
	fp := writeFile(t, p, 6, 0)
	h := NewHandle()
	require.Equal(t, 0, h.Open(fp))
	defer h.Close()

	start, _ := h.StartDate()
	for k := 0; k < 6; k++ {
		d, code := h.PeriodDate(k)
		require.Equal(t, 0, code)
		assert.InDelta(t, start+float64(k+1)*600./86400., d, 1e-9)
	}
	_, code := h.PeriodDate(6)
	assert.Equal(t, errs.ErrAPIPeriodRange, code)
}

func TestElementNames(t *testing.T) {
	p := testProject()
	fp := writeFile(t, p, 2, 0)
	h := NewHandle()
	require.Equal(t, 0, h.Open(fp))
	defer h.Close()

	name, code := h.ElementName(NodeElem, 1)
	assert.Equal(t, 0, code)
	assert.Equal(t, "O1", name)
	name, _ = h.ElementName(SubcatchElem, 0)
	assert.Equal(t, "S1", name)
	name, _ = h.ElementName(LinkElem, 0)
	assert.Equal(t, "C1", name)
	_, code = h.ElementName(LinkElem, 5)
	assert.Equal(t, errs.ErrAPIElementIndex, code)
}

func TestSeriesMatchesAttributeConcatenation(t *testing.T) {
	p := testProject()
	fp := writeFile(t, p, 6, 0)
	h := NewHandle()
	require.Equal(t, 0, h.Open(fp))
	defer h.Close()

	series, code := h.LinkSeries(0, LinkFlow, 0, 6)
	require.Equal(t, 0, code)
	require.Len(t, series, 6)
	for k := 0; k < 6; k++ {
		arr, code := h.LinkAttribute(k, LinkFlow)
		require.Equal(t, 0, code)
		assert.Equal(t, series[k], arr[0])
	}
	assert.InDelta(t, 1.0, float64(series[0]), 1e-6)
	assert.InDelta(t, 6.0, float64(series[5]), 1e-6)
}

func TestResultRowMatchesValues(t *testing.T) {
	p := testProject()
	fp := writeFile(t, p, 3, 0)
	h := NewHandle()
	require.Equal(t, 0, h.Open(fp))
	defer h.Close()

	row, code := h.NodeResult(2, 0)
	require.Equal(t, 0, code)
	require.Len(t, row, 6)
	depths, _ := h.NodeAttribute(2, NodeDepth)
	assert.Equal(t, depths[0], row[NodeDepth])

	sys, code := h.SysResult(2)
	require.Equal(t, 0, code)
	assert.Len(t, sys, nSysResults)
}

func TestWarningFileStillOpens(t *testing.T) {
	p := testProject()
	fp := writeFile(t, p, 2, errs.WarnRunIssues)
	h := NewHandle()
	assert.Equal(t, errs.WarnRunIssues, h.Open(fp))
	n, _ := h.Times(NumPeriodsQuery)
	assert.Equal(t, 2, n)
	h.Close()
}

func TestNoResultsRejected(t *testing.T) {
	p := testProject()
	fp := writeFile(t, p, 0, 0)
	h := NewHandle()
	assert.Equal(t, errs.ErrOutfileNoResults, h.Open(fp))
}

func TestCorruptMagicRejected(t *testing.T) {
	p := testProject()
	fp := writeFile(t, p, 2, 0)

	f, err := os.OpenFile(fp, os.O_RDWR, 0644)
	require.NoError(t, err)
	require.NoError(t, binary.Write(f, binary.LittleEndian, int32(12345)))
	f.Close()

	h := NewHandle()
	assert.Equal(t, errs.ErrOutfileMagic, h.Open(fp))
	code, msg := h.CheckError()
	assert.Equal(t, errs.ErrOutfileMagic, code)
	assert.Contains(t, msg, "435")
}

func TestBadAttributeCode(t *testing.T) {
	p := testProject()
	fp := writeFile(t, p, 2, 0)
	h := NewHandle()
	require.Equal(t, 0, h.Open(fp))
	defer h.Close()
	_, code := h.NodeSeries(0, 99, 0, 2)
	assert.Equal(t, errs.ErrAPIParameter, code)
	_, code = h.SubcatchSeries(0, SubcatchRainfall, 1, 1)
	assert.Equal(t, errs.ErrAPIPeriodRange, code)
}
