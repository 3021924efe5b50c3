package sim

import (
	"math"
	"runtime"

	"github.com/maseology/udrr/dtime"
	"github.com/maseology/udrr/errs"
	"github.com/maseology/udrr/project"
)

func (e *Engine) setSystemValue(prop int, value float64) error {
	p := e.prj
	var y, mo, d, h, mi, s int
	switch prop {
	case SysStartDate:
		dtime.DecodeDateTime(value, &y, &mo, &d, &h, &mi, &s)
		p.Opt.StartDate = dtime.EncodeDate(y, mo, d)
		p.Opt.StartTime = dtime.EncodeTime(h, mi, s)
		p.Opt.RecomputeDuration()
		return nil
	case SysEndDate:
		dtime.DecodeDateTime(value, &y, &mo, &d, &h, &mi, &s)
		p.Opt.EndDate = dtime.EncodeDate(y, mo, d)
		p.Opt.EndTime = dtime.EncodeTime(h, mi, s)
		p.Opt.RecomputeDuration()
		return nil
	case SysReportStart:
		dtime.DecodeDateTime(value, &y, &mo, &d, &h, &mi, &s)
		p.Opt.ReportStartDate = dtime.EncodeDate(y, mo, d)
		p.Opt.ReportStartTime = dtime.EncodeTime(h, mi, s)
		p.Opt.RecomputeDuration()
		return nil
	case SysRouteStep:
		return e.setRoutingStep(value)
	case SysReportStep:
		if value <= 0. {
			return errs.New(errs.ErrAPIPropertyValue)
		}
		p.Opt.ReportStep = int(value)
		return nil
	case SysRuleStep:
		if value <= 0. {
			return errs.New(errs.ErrAPIPropertyValue)
		}
		p.Opt.RuleStep = int(value)
		return nil
	case SysNoReport:
		p.Rpt.Disabled = value > 0.
		return nil
	case SysNumThreads:
		// trust the caller, but never beyond the machine
		p.Opt.NumThreads = int(math.Max(1, math.Min(value, float64(runtime.NumCPU()))))
		return nil
	case SysSurchargeMethod:
		if value >= float64(project.Extran) && value <= float64(project.Slot) {
			p.Opt.SurchargeMethod = int(value)
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	case SysAllowPonding:
		p.Opt.AllowPonding = value > 0.
		return nil
	case SysInertiaDamping:
		if value >= float64(project.NoDamping) && value <= float64(project.FullDamping) {
			p.Opt.InertDamping = int(value)
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	case SysNormalFlowLtd:
		if value >= float64(project.SlopeLtd) && value <= float64(project.NeitherLtd) {
			p.Opt.NormalFlowLtd = int(value)
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	case SysSkipSteadyState:
		p.Opt.SkipSteadyState = value > 0.
		return nil
	case SysIgnoreRainfall:
		p.Opt.IgnoreRainfall = value > 0.
		return nil
	case SysIgnoreRDII:
		p.Opt.IgnoreRDII = value > 0.
		return nil
	case SysIgnoreSnowmelt:
		p.Opt.IgnoreSnowmelt = value > 0.
		return nil
	case SysIgnoreGwater:
		p.Opt.IgnoreGwater = value > 0.
		return nil
	case SysIgnoreRouting:
		p.Opt.IgnoreRouting = value > 0.
		return nil
	case SysIgnoreQuality:
		p.Opt.IgnoreQuality = value > 0.
		return nil
	case SysSweepStart:
		if value >= 0. && value <= 365. {
			p.Opt.SweepStart = int(value)
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	case SysSweepEnd:
		if value >= 0. && value <= 365. {
			p.Opt.SweepEnd = int(value)
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	case SysMaxTrials:
		if value >= 2. {
			p.Opt.MaxTrials = int(value)
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	case SysMinRouteStep:
		if value > 0. {
			p.Opt.MinRouteStep = value
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	case SysLengtheningStep:
		if value > 0. {
			p.Opt.LengtheningStep = value
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	case SysStartDryDays:
		if value >= 0. {
			p.Opt.StartDryDays = value
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	case SysCourantFactor:
		if value > 0. && value <= 2. {
			p.Opt.CourantFactor = value
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	case SysMinSurfArea:
		if value >= 0. {
			p.Opt.MinSurfArea = value / p.UCF(project.LENGTH) / p.UCF(project.LENGTH)
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	case SysMinSlope:
		if value >= 0. && value < 100. {
			p.Opt.MinSlope = value
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	}
	return errs.New(errs.ErrAPIPropertyType)
}

// setRoutingStep pins the routing step and disables Courant adaptation
// so the solver honors the requested value on the next step.
func (e *Engine) setRoutingStep(value float64) error {
	p := e.prj
	if value <= 0. {
		return errs.New(errs.ErrAPIPropertyValue)
	}
	if value <= p.Opt.MinRouteStep {
		value = p.Opt.MinRouteStep
	}
	p.Opt.CourantFactor = 0.
	p.Opt.RouteStep = value
	return nil
}

func (e *Engine) setGaugeValue(prop, index int, value float64) error {
	p := e.prj
	if index < 0 || index >= len(p.Gauges) {
		return errs.New(errs.ErrAPIObjectIndex)
	}
	switch prop {
	case GaugeRainfall:
		if value >= 0. {
			p.Gauges[index].APIRainfall = value
			return nil
		}
		return errs.New(errs.ErrAPIPropertyValue)
	}
	return errs.New(errs.ErrAPIPropertyType)
}

func (e *Engine) setSubcatchValue(prop, index, subIndex int, value float64) error {
	p := e.prj
	if index < 0 || index >= len(p.Subcatch) {
		return errs.New(errs.ErrAPIObjectIndex)
	}
	s := &p.Subcatch[index]
	nonneg := func(dst *float64, scaled float64) error {
		if value < 0. {
			return errs.New(errs.ErrAPIPropertyValue)
		}
		*dst = scaled
		return nil
	}
	switch prop {
	case SubcatchArea:
		return nonneg(&s.Area, value/p.UCF(project.LANDAREA))
	case SubcatchWidth:
		return nonneg(&s.Width, value/p.UCF(project.LENGTH))
	case SubcatchSlope:
		return nonneg(&s.Slope, value)
	case SubcatchCurbLength:
		return nonneg(&s.CurbLength, value/p.UCF(project.LENGTH))
	case SubcatchAPIRainfall:
		return nonneg(&s.APIRainfall, value/p.UCF(project.RAINFALL))
	case SubcatchAPISnowfall:
		return nonneg(&s.APISnowfall, value/p.UCF(project.RAINFALL))
	case SubcatchRptFlag:
		s.RptFlag = value > 0.
		return nil
	case SubcatchExtPollutBuildup:
		if subIndex < 0 || subIndex >= len(p.Pollut) {
			return errs.New(errs.ErrAPIObjectIndex)
		}
		s.ExtBuildup[subIndex] = value
		return nil
	}
	return errs.New(errs.ErrAPIPropertyType)
}

func (e *Engine) setNodeValue(prop, index, subIndex int, value float64) error {
	p := e.prj
	if index < 0 || index >= len(p.Nodes) {
		return errs.New(errs.ErrAPIObjectIndex)
	}
	n := &p.Nodes[index]
	nonneg := func(dst *float64, scaled float64) error {
		if value < 0. {
			return errs.New(errs.ErrAPIPropertyValue)
		}
		*dst = scaled
		return nil
	}
	switch prop {
	case NodeElev:
		n.InvertElev = value / p.UCF(project.LENGTH)
		return nil
	case NodeMaxDepth:
		return nonneg(&n.FullDepth, value/p.UCF(project.LENGTH))
	case NodeSurchargeDepth:
		return nonneg(&n.SurDepth, value/p.UCF(project.LENGTH))
	case NodePondedArea:
		return nonneg(&n.PondedArea, value/p.UCF(project.LANDAREA))
	case NodeInitialDepth:
		return nonneg(&n.InitDepth, value/p.UCF(project.LENGTH))
	case NodeLatFlow:
		n.APIExtInflow = value / p.UCF(project.FLOW)
		return nil
	case NodeHead:
		return e.setOutfallStage(index, value)
	case NodeRptFlag:
		n.RptFlag = value > 0.
		return nil
	case NodePollutLatMassFlux:
		if subIndex < 0 || subIndex >= len(p.Pollut) {
			return errs.New(errs.ErrAPIObjectIndex)
		}
		n.APIExtQualMassFlux[subIndex] = value
		return nil
	}
	return errs.New(errs.ErrAPIPropertyType)
}

// setOutfallStage pins an outfall to a fixed stage; the node converts
// to a fixed-stage outfall.
func (e *Engine) setOutfallStage(index int, value float64) error {
	p := e.prj
	n := &p.Nodes[index]
	if n.Type != project.OUTFALL {
		return errs.New(errs.ErrAPIObjectType)
	}
	of := &p.Outfalls[n.SubIndex]
	of.FixedStage = value / p.UCF(project.LENGTH)
	of.Type = project.FixedOutfall
	return nil
}

func (e *Engine) setLinkValue(prop, index, subIndex int, value float64) error {
	p := e.prj
	if index < 0 || index >= len(p.Links) {
		return errs.New(errs.ErrAPIObjectIndex)
	}
	l := &p.Links[index]
	switch prop {
	case LinkSetting:
		return e.setLinkSetting(index, value)
	case LinkOffset1:
		l.Offset1 = value / p.UCF(project.LENGTH)
		return nil
	case LinkOffset2:
		l.Offset2 = value / p.UCF(project.LENGTH)
		return nil
	case LinkInitialFlow:
		l.Q0 = value / p.UCF(project.FLOW)
		return nil
	case LinkFlowLimit:
		l.QLimit = value / p.UCF(project.FLOW)
		return nil
	case LinkInletLoss:
		l.CLossInlet = value
		return nil
	case LinkOutletLoss:
		l.CLossOutlet = value
		return nil
	case LinkAvgLoss:
		l.CLossAvg = value
		return nil
	case LinkSeepageRate:
		if value < 0. {
			return errs.New(errs.ErrAPIPropertyValue)
		}
		l.SeepRate = value / p.UCF(project.RAINFALL)
		return nil
	case LinkHasFlapGate:
		l.HasFlapGate = value > 0.
		return nil
	case LinkRptFlag:
		l.RptFlag = value > 0.
		return nil
	case LinkPollutLatMassFlux:
		if subIndex < 0 || subIndex >= len(p.Pollut) {
			return errs.New(errs.ErrAPIObjectIndex)
		}
		l.APIExtQualMassFlux[subIndex] = value
		return nil
	}
	return errs.New(errs.ErrAPIPropertyType)
}

// setLinkSetting stores a target setting for a controllable link. The
// kernel applies it on the next step. A zero crossing stamps the
// open/close clock, and the change is logged to the report when
// controls reporting is on.
func (e *Engine) setLinkSetting(index int, value float64) error {
	p := e.prj
	l := &p.Links[index]
	if value < 0. || l.Type == project.CONDUIT {
		return errs.New(errs.ErrAPIObjectIndex)
	}
	if l.Type != project.PUMP && value > 1. {
		value = 1.
	}
	if l.TargetSetting == value {
		return nil
	}
	l.TargetSetting = value
	if l.TargetSetting*l.Setting == 0. {
		l.TimeLastSet = p.Opt.StartDateTime + e.elapsedTime
	}
	if p.Rpt.Controls {
		e.rpt.ControlAction(e.currentDate(), l.ID, value, "external override")
	}
	return nil
}
