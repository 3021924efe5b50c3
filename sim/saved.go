package sim

import (
	"github.com/maseology/udrr/errs"
	"github.com/maseology/udrr/outfile"
)

// SavedValue reads a computed value back out of the binary output file
// at a reporting period (1-based), once the simulation has ended. The
// reader handle opens lazily on first use and lives until Close.
func (e *Engine) SavedValue(prop, index, period int) (float64, error) {
	if e.state == Uninitialized || e.state == ClosedState {
		return 0., errs.New(errs.ErrAPINotOpen)
	}
	if e.state == Started {
		return 0., errs.New(errs.ErrAPINotEnded)
	}
	if e.savedReader == nil {
		h := outfile.NewHandle()
		if code := h.Open(e.prj.OutName); code >= 400 {
			return 0., errs.New(code)
		}
		e.savedReader = h
	}
	h := e.savedReader
	n, _ := h.Times(outfile.NumPeriodsQuery)
	if period < 1 || period > n {
		return 0., errs.New(errs.ErrAPIPeriodRange)
	}
	pd := period - 1

	if prop == SysCurrentDate {
		v, code := h.PeriodDate(pd)
		if code != 0 {
			return 0., errs.New(code)
		}
		return v, nil
	}

	switch {
	case prop >= 200 && prop < 300:
		if index < 0 || index >= len(e.prj.Subcatch) {
			return 0., errs.New(errs.ErrAPIObjectIndex)
		}
		outIdx := e.prj.Subcatch[index].RptIdx - 1
		if outIdx < 0 {
			return 0., nil
		}
		attr := -1
		switch prop {
		case SubcatchRainfall:
			attr = outfile.SubcatchRainfall
		case SubcatchEvap:
			attr = outfile.SubcatchEvapLoss
		case SubcatchInfil:
			attr = outfile.SubcatchInfilLoss
		case SubcatchRunoff:
			attr = outfile.SubcatchRunoffRate
		}
		if attr < 0 {
			return 0., errs.New(errs.ErrAPIPropertyType)
		}
		row, code := h.SubcatchResult(pd, outIdx)
		if code != 0 {
			return 0., errs.New(code)
		}
		return float64(row[attr]), nil

	case prop >= 300 && prop < 400:
		if index < 0 || index >= len(e.prj.Nodes) {
			return 0., errs.New(errs.ErrAPIObjectIndex)
		}
		outIdx := e.prj.Nodes[index].RptIdx - 1
		if outIdx < 0 {
			return 0., nil
		}
		attr := -1
		switch prop {
		case NodeDepth:
			attr = outfile.NodeDepth
		case NodeHead:
			attr = outfile.NodeHead
		case NodeVolume:
			attr = outfile.NodeVolume
		case NodeLatFlow:
			attr = outfile.NodeLatFlow
		case NodeInflow:
			attr = outfile.NodeInflow
		case NodeOverflow:
			attr = outfile.NodeOverflow
		}
		if attr < 0 {
			return 0., errs.New(errs.ErrAPIPropertyType)
		}
		row, code := h.NodeResult(pd, outIdx)
		if code != 0 {
			return 0., errs.New(code)
		}
		return float64(row[attr]), nil

	case prop >= 400 && prop < 500:
		if index < 0 || index >= len(e.prj.Links) {
			return 0., errs.New(errs.ErrAPIObjectIndex)
		}
		outIdx := e.prj.Links[index].RptIdx - 1
		if outIdx < 0 {
			return 0., nil
		}
		attr := -1
		switch prop {
		case LinkFlow:
			attr = outfile.LinkFlow
		case LinkDepth:
			attr = outfile.LinkDepth
		case LinkVelocity:
			attr = outfile.LinkVelocity
		case LinkSetting:
			attr = outfile.LinkCapacity
		}
		if attr < 0 {
			return 0., errs.New(errs.ErrAPIPropertyType)
		}
		row, code := h.LinkResult(pd, outIdx)
		if code != 0 {
			return 0., errs.New(code)
		}
		return float64(row[attr]), nil
	}
	return 0., errs.New(errs.ErrAPIPropertyType)
}
