package outfile

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/maseology/udrr/errs"
	"github.com/maseology/udrr/project"
)

// Writer appends results to the binary output file during a run. It is
// owned by the lifecycle: Open at start, SaveResults once per reporting
// period, End to seal the epilogue, Close on project close.
type Writer struct {
	f   *os.File
	prj *project.Project

	idPos      int64
	objPropPos int64
	resultsPos int64

	nPeriods int32
	nPolluts int32

	subcatchVars int32
	nodeVars     int32
	linkVars     int32
	sysVars      int32

	subIdx  []int // project indices of reported subcatchments, in file order
	nodeIdx []int
	linkIdx []int

	// running-average accumulators, used when RptFlags.Averages
	avgSub  []float64
	avgNode []float64
	avgLink []float64
	avgSys  []float64
	avgN    int
}

// OpenWriter creates the output file and writes everything up to the
// first results record. Reported-element order is assigned here via
// each object's RptIdx.
func OpenWriter(p *project.Project, path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errs.New(errs.ErrOutOpen)
	}
	np := int32(len(p.Pollut))
	w := &Writer{
		f:            f,
		prj:          p,
		nPolluts:     np,
		subcatchVars: nSubcatchResults + np,
		nodeVars:     nNodeResults + np,
		linkVars:     nLinkResults + np,
		sysVars:      nSysResults,
	}
	for i := range p.Subcatch {
		if p.Subcatch[i].RptFlag {
			w.subIdx = append(w.subIdx, i)
			p.Subcatch[i].RptIdx = len(w.subIdx)
		}
	}
	for i := range p.Nodes {
		if p.Nodes[i].RptFlag {
			w.nodeIdx = append(w.nodeIdx, i)
			p.Nodes[i].RptIdx = len(w.nodeIdx)
		}
	}
	for i := range p.Links {
		if p.Links[i].RptFlag {
			w.linkIdx = append(w.linkIdx, i)
			p.Links[i].RptIdx = len(w.linkIdx)
		}
	}
	if err := w.writeHeader(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if p.Rpt.Averages {
		w.avgSub = make([]float64, len(w.subIdx)*int(w.subcatchVars))
		w.avgNode = make([]float64, len(w.nodeIdx)*int(w.nodeVars))
		w.avgLink = make([]float64, len(w.linkIdx)*int(w.linkVars))
		w.avgSys = make([]float64, w.sysVars)
	}
	return w, nil
}

func (w *Writer) put(v interface{}) error {
	if err := binary.Write(w.f, binary.LittleEndian, v); err != nil {
		return errs.New(errs.ErrOutWrite)
	}
	return nil
}

func (w *Writer) pos() int64 {
	p, _ := w.f.Seek(0, io.SeekCurrent)
	return p
}

func (w *Writer) writeHeader() error {
	p := w.prj
	head := []int32{
		Magic,
		EngVersion,
		int32(p.Opt.FlowUnits),
		int32(len(w.subIdx)),
		int32(len(w.nodeIdx)),
		int32(len(w.linkIdx)),
		w.nPolluts,
	}
	if err := w.put(head); err != nil {
		return err
	}

	// element names
	w.idPos = w.pos()
	writeName := func(id string) error {
		if err := w.put(int32(len(id))); err != nil {
			return err
		}
		return w.put([]byte(id))
	}
	for _, i := range w.subIdx {
		if err := writeName(p.Subcatch[i].ID); err != nil {
			return err
		}
	}
	for _, i := range w.nodeIdx {
		if err := writeName(p.Nodes[i].ID); err != nil {
			return err
		}
	}
	for _, i := range w.linkIdx {
		if err := writeName(p.Links[i].ID); err != nil {
			return err
		}
	}
	for i := range p.Pollut {
		if err := writeName(p.Pollut[i].ID); err != nil {
			return err
		}
	}

	// pollutant concentration unit codes precede the property block
	for i := range p.Pollut {
		if err := w.put(int32(p.Pollut[i].ConcUnits)); err != nil {
			return err
		}
	}

	// input properties: one subcatchment property (area), three node
	// properties (type, invert, max depth), five link properties
	// (type, upstream and downstream offsets, max depth, length)
	w.objPropPos = w.pos()
	if err := w.put([]int32{1, 0}); err != nil { // one property: area
		return err
	}
	for _, i := range w.subIdx {
		if err := w.put(float32(p.Subcatch[i].Area * p.UCF(project.LANDAREA))); err != nil {
			return err
		}
	}
	if err := w.put([]int32{3, 0, 1, 2}); err != nil {
		return err
	}
	for _, i := range w.nodeIdx {
		n := &p.Nodes[i]
		vals := []float32{
			float32(n.Type),
			float32(n.InvertElev * p.UCF(project.LENGTH)),
			float32(n.FullDepth * p.UCF(project.LENGTH)),
		}
		if err := w.put(vals); err != nil {
			return err
		}
	}
	if err := w.put([]int32{5, 0, 1, 2, 3, 4}); err != nil {
		return err
	}
	for _, i := range w.linkIdx {
		l := &p.Links[i]
		length := 0.
		if l.Type == project.CONDUIT {
			length = p.Conduits[l.SubIndex].Length
		}
		vals := []float32{
			float32(l.Type),
			float32(l.Offset1 * p.UCF(project.LENGTH)),
			float32(l.Offset2 * p.UCF(project.LENGTH)),
			float32(l.Xsect.YFull * p.UCF(project.LENGTH)),
			float32(length * p.UCF(project.LENGTH)),
		}
		if err := w.put(vals); err != nil {
			return err
		}
	}

	// computed-variable counts and codes
	if err := w.putVarCodes(w.subcatchVars, nSubcatchResults, SubcatchPollutConc); err != nil {
		return err
	}
	if err := w.putVarCodes(w.nodeVars, nNodeResults, NodePollutConc); err != nil {
		return err
	}
	if err := w.putVarCodes(w.linkVars, nLinkResults, LinkPollutConc); err != nil {
		return err
	}
	if err := w.putVarCodes(w.sysVars, nSysResults, 0); err != nil {
		return err
	}

	// reporting start date and step immediately precede the results
	if err := w.put(p.Opt.ReportStart); err != nil {
		return err
	}
	if err := w.put(int32(p.Opt.ReportStep)); err != nil {
		return err
	}
	w.resultsPos = w.pos()
	return nil
}

func (w *Writer) putVarCodes(nVars, nBase, pollutCode int32) error {
	if err := w.put(nVars); err != nil {
		return err
	}
	codes := make([]int32, nVars)
	for i := int32(0); i < nVars; i++ {
		if i < nBase {
			codes[i] = i
		} else {
			codes[i] = pollutCode
		}
	}
	return w.put(codes)
}

// Periods returns the number of result periods written so far.
func (w *Writer) Periods() int { return int(w.nPeriods) }

// UpdateAvg folds the current interpolated state into the running
// averages for the pending reporting period.
func (w *Writer) UpdateAvg(f float64) {
	if w.avgSub == nil {
		return
	}
	w.avgN++
	buf := make([]float32, w.subcatchVars)
	for k, i := range w.subIdx {
		w.subcatchResults(i, f, buf)
		for j, v := range buf {
			w.avgSub[k*int(w.subcatchVars)+j] += float64(v)
		}
	}
	buf = make([]float32, w.nodeVars)
	for k, i := range w.nodeIdx {
		w.nodeResults(i, f, buf)
		for j, v := range buf {
			w.avgNode[k*int(w.nodeVars)+j] += float64(v)
		}
	}
	buf = make([]float32, w.linkVars)
	for k, i := range w.linkIdx {
		w.linkResults(i, f, buf)
		for j, v := range buf {
			w.avgLink[k*int(w.linkVars)+j] += float64(v)
		}
	}
	buf = make([]float32, w.sysVars)
	w.sysResults(f, buf)
	for j, v := range buf {
		w.avgSys[j] += float64(v)
	}
}

// SaveResults appends one reporting period. f weights between each
// object's old and new state so the record lands exactly on the report
// time. When averaging is enabled the accumulated means are written and
// the accumulators reset.
func (w *Writer) SaveResults(f float64) error {
	p := w.prj
	date := p.Opt.ReportStart + float64(w.nPeriods+1)*float64(p.Opt.ReportStep)/86400.
	if err := w.put(date); err != nil {
		return err
	}

	if w.avgSub != nil && w.avgN > 0 {
		n := float64(w.avgN)
		if err := w.putAvg(w.avgSub, n); err != nil {
			return err
		}
		if err := w.putAvg(w.avgNode, n); err != nil {
			return err
		}
		if err := w.putAvg(w.avgLink, n); err != nil {
			return err
		}
		if err := w.putAvg(w.avgSys, n); err != nil {
			return err
		}
		w.resetAvg()
	} else {
		buf := make([]float32, w.subcatchVars)
		for _, i := range w.subIdx {
			w.subcatchResults(i, f, buf)
			if err := w.put(buf); err != nil {
				return err
			}
		}
		buf = make([]float32, w.nodeVars)
		for _, i := range w.nodeIdx {
			w.nodeResults(i, f, buf)
			if err := w.put(buf); err != nil {
				return err
			}
		}
		buf = make([]float32, w.linkVars)
		for _, i := range w.linkIdx {
			w.linkResults(i, f, buf)
			if err := w.put(buf); err != nil {
				return err
			}
		}
		buf = make([]float32, w.sysVars)
		w.sysResults(f, buf)
		if err := w.put(buf); err != nil {
			return err
		}
	}
	w.nPeriods++
	return nil
}

func (w *Writer) putAvg(acc []float64, n float64) error {
	out := make([]float32, len(acc))
	for i, v := range acc {
		out[i] = float32(v / n)
	}
	return w.put(out)
}

func (w *Writer) resetAvg() {
	w.avgN = 0
	for i := range w.avgSub {
		w.avgSub[i] = 0.
	}
	for i := range w.avgNode {
		w.avgNode[i] = 0.
	}
	for i := range w.avgLink {
		w.avgLink[i] = 0.
	}
	for i := range w.avgSys {
		w.avgSys[i] = 0.
	}
}

// End seals the file with its epilogue. Each call appends one epilogue;
// the lifecycle End, which is itself idempotent, calls it once.
func (w *Writer) End(errCode int) error {
	if w.f == nil {
		return nil
	}
	if _, err := w.f.Seek(0, io.SeekEnd); err != nil {
		return errs.New(errs.ErrOutWrite)
	}
	tail := []int32{
		int32(w.idPos),
		int32(w.objPropPos),
		int32(w.resultsPos),
		w.nPeriods,
		int32(errCode),
		Magic,
	}
	return w.put(tail)
}

// Close releases the file handle.
func (w *Writer) Close() {
	if w.f != nil {
		w.f.Close()
		w.f = nil
	}
}

func interp(old, new, f float64) float64 { return old + f*(new-old) }

func (w *Writer) subcatchResults(i int, f float64, buf []float32) {
	p := w.prj
	s := &p.Subcatch[i]
	buf[SubcatchRainfall] = float32(s.Rainfall * p.UCF(project.RAINFALL))
	buf[SubcatchSnowDepth] = 0.
	buf[SubcatchEvapLoss] = float32(s.EvapLoss * p.UCF(project.EVAPRATE))
	buf[SubcatchInfilLoss] = float32(s.InfilLoss * p.UCF(project.RAINFALL))
	buf[SubcatchRunoffRate] = float32(interp(s.OldRunoff, s.NewRunoff, f) * p.UCF(project.FLOW))
	buf[SubcatchGwOutflow] = 0.
	buf[SubcatchGwElev] = 0.
	buf[SubcatchSoilMoisture] = 0.
	for j := 0; j < int(w.nPolluts); j++ {
		buf[nSubcatchResults+j] = float32(s.NewQual[j])
	}
}

func (w *Writer) nodeResults(i int, f float64, buf []float32) {
	p := w.prj
	n := &p.Nodes[i]
	depth := interp(n.OldDepth, n.NewDepth, f)
	buf[NodeDepth] = float32(depth * p.UCF(project.LENGTH))
	buf[NodeHead] = float32((depth + n.InvertElev) * p.UCF(project.LENGTH))
	buf[NodeVolume] = float32(interp(n.OldVolume, n.NewVolume, f) * p.UCF(project.VOLUME))
	buf[NodeLatFlow] = float32(interp(n.OldLatFlow, n.NewLatFlow, f) * p.UCF(project.FLOW))
	buf[NodeInflow] = float32(n.Inflow * p.UCF(project.FLOW))
	buf[NodeOverflow] = float32(n.Overflow * p.UCF(project.FLOW))
	for j := 0; j < int(w.nPolluts); j++ {
		buf[nNodeResults+j] = float32(n.NewQual[j])
	}
}

func (w *Writer) linkResults(i int, f float64, buf []float32) {
	p := w.prj
	l := &p.Links[i]
	flow := interp(l.OldFlow, l.NewFlow, f)
	depth := interp(l.OldDepth, l.NewDepth, f)
	buf[LinkFlow] = float32(flow * p.UCF(project.FLOW))
	buf[LinkDepth] = float32(depth * p.UCF(project.LENGTH))
	vel, vol := 0., 0.
	if l.Type == project.CONDUIT {
		a := l.Xsect.AofY(depth)
		if a > 1e-6 {
			vel = math.Abs(flow) / a
		}
		vol = a * p.Conduits[l.SubIndex].Length
	}
	buf[LinkVelocity] = float32(vel * p.UCF(project.LENGTH))
	buf[LinkVolume] = float32(vol * p.UCF(project.VOLUME))
	setting := l.Setting
	if l.Type == project.CONDUIT && l.Xsect.YFull > 0. {
		setting = depth / l.Xsect.YFull
	}
	buf[LinkCapacity] = float32(setting)
	for j := 0; j < int(w.nPolluts); j++ {
		buf[nLinkResults+j] = float32(l.NewQual[j])
	}
}

func (w *Writer) sysResults(f float64, buf []float32) {
	p := w.prj
	var rain, runoff, latFlow, flooding, outflow, storage, infil, evap float64
	var area float64
	for i := range p.Subcatch {
		s := &p.Subcatch[i]
		rain += s.Rainfall * s.Area
		area += s.Area
		runoff += interp(s.OldRunoff, s.NewRunoff, f)
		infil += s.InfilLoss * s.Area
		evap += s.EvapLoss * s.Area
	}
	if area > 0. {
		rain /= area
		infil /= area
		evap /= area
	}
	for i := range p.Nodes {
		n := &p.Nodes[i]
		latFlow += interp(n.OldLatFlow, n.NewLatFlow, f)
		flooding += n.Overflow
		storage += interp(n.OldVolume, n.NewVolume, f)
		if n.Type == project.OUTFALL {
			outflow += n.Inflow
		}
	}
	buf[SysAirTemp] = 0.
	buf[SysRainfall] = float32(rain * p.UCF(project.RAINFALL))
	buf[SysSnowDepth] = 0.
	buf[SysInfilLoss] = float32(infil * p.UCF(project.RAINFALL))
	buf[SysRunoffFlow] = float32(runoff * p.UCF(project.FLOW))
	buf[SysDWFlow] = 0.
	buf[SysGWFlow] = 0.
	buf[SysRDIIFlow] = 0.
	buf[SysDirectInflow] = float32((latFlow - runoff) * p.UCF(project.FLOW))
	buf[SysLatInflow] = float32(latFlow * p.UCF(project.FLOW))
	buf[SysFlooding] = float32(flooding * p.UCF(project.FLOW))
	buf[SysOutflow] = float32(outflow * p.UCF(project.FLOW))
	buf[SysStorage] = float32(storage * p.UCF(project.VOLUME))
	buf[SysEvapRate] = float32(evap * p.UCF(project.EVAPRATE))
	buf[SysPET] = 0.
}
