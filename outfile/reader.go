package outfile

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/maseology/udrr/errs"
)

type idEntry struct {
	name string
}

// Handle is a random-access reader over a finalized output file. Each
// handle owns its file pointer, cached header fields and error context,
// so independent handles are safe to use from separate goroutines.
type Handle struct {
	name string
	f    *os.File
	em   *errs.Manager

	elementNames []idEntry // built lazily on first name query

	nPeriods  int32
	flowUnits int32
	nSubcatch int32
	nNodes    int32
	nLinks    int32
	nPolluts  int32

	subcatchVars int32
	nodeVars     int32
	linkVars     int32
	sysVars      int32

	startDate  float64
	reportStep int32

	idPos          int64
	objPropPos     int64
	resultsPos     int64
	bytesPerPeriod int64
}

// NewHandle initializes a reader context with the output-file message
// table attached.
func NewHandle() *Handle {
	return &Handle{em: errs.NewManager(errs.OutfileMessage)}
}

// Close releases the handle's resources. The handle may be reused with
// another Open afterward.
func (h *Handle) Close() {
	if h.f != nil {
		h.f.Close()
		h.f = nil
	}
	h.elementNames = nil
}

func (h *Handle) readInt32At(off int64) (int32, error) {
	if _, err := h.f.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	var v int32
	err := binary.Read(h.f, binary.LittleEndian, &v)
	return v, err
}

func (h *Handle) readInt32() (int32, error) {
	var v int32
	err := binary.Read(h.f, binary.LittleEndian, &v)
	return v, err
}

func (h *Handle) readFloat32At(off int64) (float32, error) {
	if _, err := h.f.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	var v float32
	err := binary.Read(h.f, binary.LittleEndian, &v)
	return v, err
}

func (h *Handle) readFloat64At(off int64) (float64, error) {
	if _, err := h.f.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	var v float64
	err := binary.Read(h.f, binary.LittleEndian, &v)
	return v, err
}

// Open reads the epilogue and header of an output file and caches the
// offsets every later query is computed from. It returns 0, or a fatal
// 4xx code, or the warning code 10 when the run that wrote the file
// issued warnings.
func (h *Handle) Open(path string) int {
	h.name = path
	f, err := os.Open(path)
	if err != nil {
		return h.em.Set(errs.ErrOutfileOpen)
	}
	h.f = f

	code := h.validate()
	if code >= 400 {
		h.em.Set(code)
		h.Close()
		return code
	}

	// counts
	if _, err := h.f.Seek(3*recordSize, io.SeekStart); err != nil {
		return h.fail()
	}
	for _, dst := range []*int32{&h.nSubcatch, &h.nNodes, &h.nLinks, &h.nPolluts} {
		if *dst, err = h.readInt32(); err != nil {
			return h.fail()
		}
	}

	// variable-count headers live beyond the fixed input properties
	offset := int64(h.nSubcatch+2)*recordSize +
		int64(3*h.nNodes+4)*recordSize +
		int64(5*h.nLinks+6)*recordSize +
		h.objPropPos
	if h.subcatchVars, err = h.readInt32At(offset); err != nil {
		return h.fail()
	}
	offset += int64(1+h.subcatchVars) * recordSize
	if h.nodeVars, err = h.readInt32At(offset); err != nil {
		return h.fail()
	}
	offset += int64(1+h.nodeVars) * recordSize
	if h.linkVars, err = h.readInt32At(offset); err != nil {
		return h.fail()
	}
	offset += int64(1+h.linkVars) * recordSize
	if h.sysVars, err = h.readInt32At(offset); err != nil {
		return h.fail()
	}

	// report clock data just before the results
	if h.startDate, err = h.readFloat64At(h.resultsPos - 3*recordSize); err != nil {
		return h.fail()
	}
	if h.reportStep, err = h.readInt32(); err != nil {
		return h.fail()
	}

	h.bytesPerPeriod = dateSize + recordSize*
		int64(h.nSubcatch*h.subcatchVars+
			h.nNodes*h.nodeVars+
			h.nLinks*h.linkVars+
			h.sysVars)

	return code // 0 or the warning code
}

func (h *Handle) fail() int {
	h.em.Set(errs.ErrOutfileOpen)
	h.Close()
	return errs.ErrOutfileOpen
}

// validate reads the epilogue, cross-checks the magic framing and
// classifies the file.
func (h *Handle) validate() int {
	if _, err := h.f.Seek(-6*recordSize, io.SeekEnd); err != nil {
		return errs.ErrOutfileOpen
	}
	var idPos, objPropPos, resultsPos, nPeriods, errCode, magic2 int32
	for _, dst := range []*int32{&idPos, &objPropPos, &resultsPos, &nPeriods, &errCode, &magic2} {
		if err := binary.Read(h.f, binary.LittleEndian, dst); err != nil {
			return errs.ErrOutfileOpen
		}
	}
	magic1, err := h.readInt32At(0)
	if err != nil {
		return errs.ErrOutfileOpen
	}
	h.idPos = int64(idPos)
	h.objPropPos = int64(objPropPos)
	h.resultsPos = int64(resultsPos)
	h.nPeriods = nPeriods

	if magic1 != magic2 {
		return errs.ErrOutfileMagic
	}
	if nPeriods <= 0 {
		return errs.ErrOutfileNoResults
	}
	if errCode != 0 {
		return errs.WarnRunIssues
	}
	return 0
}

// Version returns the engine version stamped in the header.
func (h *Handle) Version() (int, int) {
	v, err := h.readInt32At(1 * recordSize)
	if err != nil {
		return 0, h.em.Set(errs.ErrOutfileOpen)
	}
	return int(v), 0
}

// ProjectSize returns the element counts in the order subcatchments,
// nodes, links, systems, pollutants.
func (h *Handle) ProjectSize() ([]int, int) {
	return []int{int(h.nSubcatch), int(h.nNodes), int(h.nLinks), 1, int(h.nPolluts)}, 0
}

// FlowUnits returns the flow-units code of the run.
func (h *Handle) FlowUnits() (int, int) {
	v, err := h.readInt32At(2 * recordSize)
	if err != nil {
		return -1, h.em.Set(errs.ErrOutfileOpen)
	}
	return int(v), 0
}

// Units returns [unit system, flow units, pollutant units...].
func (h *Handle) Units() ([]int, int) {
	fu, code := h.FlowUnits()
	if code != 0 {
		return nil, code
	}
	us := UnitsUS
	if fu >= 3 {
		us = UnitsSI
	}
	out := []int{us, fu}
	pu, code := h.PollutantUnits()
	if code != 0 {
		return nil, code
	}
	return append(out, pu...), 0
}

// PollutantUnits returns the concentration-unit code per pollutant.
func (h *Handle) PollutantUnits() ([]int, int) {
	n := int(h.nPolluts)
	out := make([]int, n)
	if n == 0 {
		return out, 0
	}
	off := h.objPropPos - int64(h.nPolluts)*recordSize
	if _, err := h.f.Seek(off, io.SeekStart); err != nil {
		return nil, h.em.Set(errs.ErrOutfileOpen)
	}
	for i := 0; i < n; i++ {
		v, err := h.readInt32()
		if err != nil {
			return nil, h.em.Set(errs.ErrOutfileOpen)
		}
		out[i] = int(v)
	}
	return out, 0
}

// StartDate returns the reporting start date of the run.
func (h *Handle) StartDate() (float64, int) {
	if h.f == nil {
		return -1., h.em.Set(errs.ErrOutfileOpen)
	}
	return h.startDate, 0
}

// Times returns the report step (seconds) or the number of periods.
func (h *Handle) Times(code int) (int, int) {
	switch code {
	case ReportStepQuery:
		return int(h.reportStep), 0
	case NumPeriodsQuery:
		return int(h.nPeriods), 0
	}
	return -1, h.em.Set(errs.ErrAPIParameter)
}

func (h *Handle) initElementNames() int {
	n := int(h.nSubcatch + h.nNodes + h.nLinks + h.nPolluts)
	h.elementNames = make([]idEntry, 0, n)
	if _, err := h.f.Seek(h.idPos, io.SeekStart); err != nil {
		return errs.ErrOutfileOpen
	}
	for j := 0; j < n; j++ {
		ln, err := h.readInt32()
		if err != nil || ln < 0 {
			return errs.ErrOutfileOpen
		}
		buf := make([]byte, ln)
		if _, err := io.ReadFull(h.f, buf); err != nil {
			return errs.ErrOutfileOpen
		}
		h.elementNames = append(h.elementNames, idEntry{name: string(buf)})
	}
	return 0
}

// ElementName returns the ID of element index within a class.
func (h *Handle) ElementName(etype, index int) (string, int) {
	if h.f == nil {
		return "", h.em.Set(errs.ErrOutfileOpen)
	}
	if h.elementNames == nil {
		if code := h.initElementNames(); code != 0 {
			return "", h.em.Set(code)
		}
	}
	idx := -1
	switch etype {
	case SubcatchElem:
		if index >= 0 && index < int(h.nSubcatch) {
			idx = index
		}
	case NodeElem:
		if index >= 0 && index < int(h.nNodes) {
			idx = int(h.nSubcatch) + index
		}
	case LinkElem:
		if index >= 0 && index < int(h.nLinks) {
			idx = int(h.nSubcatch+h.nNodes) + index
		}
	case PollutElem:
		if index >= 0 && index < int(h.nPolluts) {
			idx = int(h.nSubcatch+h.nNodes+h.nLinks) + index
		}
	default:
		return "", h.em.Set(errs.ErrAPIParameter)
	}
	if idx < 0 {
		return "", h.em.Set(errs.ErrAPIElementIndex)
	}
	return h.elementNames[idx].name, 0
}

// period offset helpers; attribute layouts follow the writer exactly

func (h *Handle) periodOffset(period int) int64 {
	return h.resultsPos + int64(period)*h.bytesPerPeriod
}

// PeriodDate returns the datetime stamped on a reporting period.
func (h *Handle) PeriodDate(period int) (float64, int) {
	if period < 0 || period >= int(h.nPeriods) {
		return 0., h.em.Set(errs.ErrAPIPeriodRange)
	}
	v, err := h.readFloat64At(h.periodOffset(period))
	if err != nil {
		return 0., h.em.Set(errs.ErrOutfileOpen)
	}
	return v, 0
}

func (h *Handle) subcatchValue(period, index, attr int) (float32, error) {
	off := h.periodOffset(period) + dateSize +
		recordSize*int64(index*int(h.subcatchVars)+attr)
	return h.readFloat32At(off)
}

func (h *Handle) nodeValue(period, index, attr int) (float32, error) {
	off := h.periodOffset(period) + dateSize +
		recordSize*int64(int(h.nSubcatch)*int(h.subcatchVars)+index*int(h.nodeVars)+attr)
	return h.readFloat32At(off)
}

func (h *Handle) linkValue(period, index, attr int) (float32, error) {
	off := h.periodOffset(period) + dateSize +
		recordSize*int64(int(h.nSubcatch)*int(h.subcatchVars)+
			int(h.nNodes)*int(h.nodeVars)+index*int(h.linkVars)+attr)
	return h.readFloat32At(off)
}

func (h *Handle) sysValue(period, attr int) (float32, error) {
	off := h.periodOffset(period) + dateSize +
		recordSize*int64(int(h.nSubcatch)*int(h.subcatchVars)+
			int(h.nNodes)*int(h.nodeVars)+int(h.nLinks)*int(h.linkVars)+attr)
	return h.readFloat32At(off)
}

func (h *Handle) checkSeries(index, nElem, attr, nVars, start, end int) int {
	if index < 0 || index >= nElem {
		return errs.ErrAPIElementIndex
	}
	if attr < 0 || attr >= nVars {
		return errs.ErrAPIParameter
	}
	if start < 0 || start >= int(h.nPeriods) || end <= start || end > int(h.nPeriods) {
		return errs.ErrAPIPeriodRange
	}
	return 0
}

type valueFn func(period int) (float32, error)

func (h *Handle) series(start, end int, fn valueFn) ([]float32, int) {
	out := make([]float32, end-start)
	for k := range out {
		v, err := fn(start + k)
		if err != nil {
			return nil, h.em.Set(errs.ErrOutfileOpen)
		}
		out[k] = v
	}
	return out, 0
}

// SubcatchSeries returns one subcatchment attribute over periods
// [start, end).
func (h *Handle) SubcatchSeries(index, attr, start, end int) ([]float32, int) {
	if code := h.checkSeries(index, int(h.nSubcatch), attr, int(h.subcatchVars), start, end); code != 0 {
		return nil, h.em.Set(code)
	}
	return h.series(start, end, func(p int) (float32, error) { return h.subcatchValue(p, index, attr) })
}

// NodeSeries returns one node attribute over periods [start, end).
func (h *Handle) NodeSeries(index, attr, start, end int) ([]float32, int) {
	if code := h.checkSeries(index, int(h.nNodes), attr, int(h.nodeVars), start, end); code != 0 {
		return nil, h.em.Set(code)
	}
	return h.series(start, end, func(p int) (float32, error) { return h.nodeValue(p, index, attr) })
}

// LinkSeries returns one link attribute over periods [start, end).
func (h *Handle) LinkSeries(index, attr, start, end int) ([]float32, int) {
	if code := h.checkSeries(index, int(h.nLinks), attr, int(h.linkVars), start, end); code != 0 {
		return nil, h.em.Set(code)
	}
	return h.series(start, end, func(p int) (float32, error) { return h.linkValue(p, index, attr) })
}

// SysSeries returns one system attribute over periods [start, end).
func (h *Handle) SysSeries(attr, start, end int) ([]float32, int) {
	if code := h.checkSeries(0, 1, attr, int(h.sysVars), start, end); code != 0 {
		return nil, h.em.Set(code)
	}
	return h.series(start, end, func(p int) (float32, error) { return h.sysValue(p, attr) })
}

func (h *Handle) checkPeriod(period int) int {
	if period < 0 || period >= int(h.nPeriods) {
		return errs.ErrAPIPeriodRange
	}
	return 0
}

// SubcatchAttribute returns one attribute for every subcatchment at one
// period.
func (h *Handle) SubcatchAttribute(period, attr int) ([]float32, int) {
	if code := h.checkPeriod(period); code != 0 {
		return nil, h.em.Set(code)
	}
	if attr < 0 || attr >= int(h.subcatchVars) {
		return nil, h.em.Set(errs.ErrAPIParameter)
	}
	out := make([]float32, h.nSubcatch)
	for k := range out {
		v, err := h.subcatchValue(period, k, attr)
		if err != nil {
			return nil, h.em.Set(errs.ErrOutfileOpen)
		}
		out[k] = v
	}
	return out, 0
}

// NodeAttribute returns one attribute for every node at one period.
func (h *Handle) NodeAttribute(period, attr int) ([]float32, int) {
	if code := h.checkPeriod(period); code != 0 {
		return nil, h.em.Set(code)
	}
	if attr < 0 || attr >= int(h.nodeVars) {
		return nil, h.em.Set(errs.ErrAPIParameter)
	}
	out := make([]float32, h.nNodes)
	for k := range out {
		v, err := h.nodeValue(period, k, attr)
		if err != nil {
			return nil, h.em.Set(errs.ErrOutfileOpen)
		}
		out[k] = v
	}
	return out, 0
}

// LinkAttribute returns one attribute for every link at one period.
func (h *Handle) LinkAttribute(period, attr int) ([]float32, int) {
	if code := h.checkPeriod(period); code != 0 {
		return nil, h.em.Set(code)
	}
	if attr < 0 || attr >= int(h.linkVars) {
		return nil, h.em.Set(errs.ErrAPIParameter)
	}
	out := make([]float32, h.nLinks)
	for k := range out {
		v, err := h.linkValue(period, k, attr)
		if err != nil {
			return nil, h.em.Set(errs.ErrOutfileOpen)
		}
		out[k] = v
	}
	return out, 0
}

// SysAttribute returns one system attribute at one period.
func (h *Handle) SysAttribute(period, attr int) (float32, int) {
	if code := h.checkPeriod(period); code != 0 {
		return 0., h.em.Set(code)
	}
	if attr < 0 || attr >= int(h.sysVars) {
		return 0., h.em.Set(errs.ErrAPIParameter)
	}
	v, err := h.sysValue(period, attr)
	if err != nil {
		return 0., h.em.Set(errs.ErrOutfileOpen)
	}
	return v, 0
}

func (h *Handle) result(period, index, nElem, nVars int, fn func(p, i, a int) (float32, error)) ([]float32, int) {
	if code := h.checkPeriod(period); code != 0 {
		return nil, h.em.Set(code)
	}
	if index < 0 || index >= nElem {
		return nil, h.em.Set(errs.ErrAPIElementIndex)
	}
	out := make([]float32, nVars)
	for a := range out {
		v, err := fn(period, index, a)
		if err != nil {
			return nil, h.em.Set(errs.ErrOutfileOpen)
		}
		out[a] = v
	}
	return out, 0
}

// SubcatchResult returns every attribute of one subcatchment at one
// period.
func (h *Handle) SubcatchResult(period, index int) ([]float32, int) {
	return h.result(period, index, int(h.nSubcatch), int(h.subcatchVars), h.subcatchValue)
}

// NodeResult returns every attribute of one node at one period.
func (h *Handle) NodeResult(period, index int) ([]float32, int) {
	return h.result(period, index, int(h.nNodes), int(h.nodeVars), h.nodeValue)
}

// LinkResult returns every attribute of one link at one period.
func (h *Handle) LinkResult(period, index int) ([]float32, int) {
	return h.result(period, index, int(h.nLinks), int(h.linkVars), h.linkValue)
}

// SysResult returns every system attribute at one period.
func (h *Handle) SysResult(period int) ([]float32, int) {
	return h.result(period, 0, 1, int(h.sysVars), func(p, _, a int) (float32, error) { return h.sysValue(p, a) })
}

// CheckError reports the handle's sticky error code and message.
func (h *Handle) CheckError() (int, string) {
	return h.em.Code(), h.em.Check()
}

// ClearError resets the handle's error context.
func (h *Handle) ClearError() { h.em.Clear() }
