// Package runoff generates subcatchment runoff between routing
// instants. Each subcatchment carries a depression-storage reservoir;
// rainfall fills it, infiltration and evaporation draw it down, and the
// overflow cascades to the subcatchment's outlet node as a flow rate.
package runoff

import (
	"math"

	"github.com/maseology/goHydro/hru"
	"github.com/maseology/goHydro/pet"
	"github.com/maseology/udrr/dtime"
	"github.com/maseology/udrr/project"
)

// Kernel advances the hydrology clock ahead of the routing clock.
type Kernel struct {
	prj *project.Project
	sto []hru.Res // per-subcatchment depression storage

	evapRate float64 // current potential evaporation (ft/s)
	timeMs   float64 // runoff clock (msec from simulation start)
}

// Open builds the storage reservoirs and zeroes the runoff clock.
func Open(p *project.Project) *Kernel {
	k := &Kernel{prj: p, sto: make([]hru.Res, len(p.Subcatch))}
	for i := range p.Subcatch {
		k.sto[i].Cap = p.Subcatch[i].DepStore
	}
	return k
}

// Time returns the runoff clock in milliseconds.
func (k *Kernel) Time() float64 { return k.timeMs }

// SetClimateState refreshes the evaporation rate for the given date.
// An explicit evaporation option wins; otherwise a radiation-driven
// estimate follows the season.
func (k *Kernel) SetClimateState(date float64) {
	p := k.prj
	if p.Opt.Evap > 0. {
		k.evapRate = p.Opt.Evap
		return
	}
	doy := float64(dtime.DayOfYear(date))
	kg := 140. + 100.*math.Sin(2.*math.Pi*(doy-80.)/365.25) // W/m2
	ta := 10. + 12.*math.Sin(2.*math.Pi*(doy-105.)/365.25)  // deg C
	k.evapRate = pet.Makkink(kg, ta, 101300., 0.61, 0.) / 0.3048
}

// rainfall resolves the intensity applied to a subcatchment, honoring
// API overrides on the subcatchment first, then on its gauge.
func (k *Kernel) rainfall(s *project.Subcatch, date float64) float64 {
	p := k.prj
	if p.Opt.IgnoreRainfall {
		return 0.
	}
	if s.APIRainfall >= 0. {
		return s.APIRainfall
	}
	if s.Gage < 0 {
		return 0.
	}
	g := &p.Gauges[s.Gage]
	if g.APIRainfall >= 0. {
		g.Rainfall = g.APIRainfall / p.UCF(project.RAINFALL)
		return g.Rainfall
	}
	if g.Tseries >= 0 {
		g.Rainfall = p.TseriesValue(g.Tseries, date) / p.UCF(project.RAINFALL)
		return g.Rainfall
	}
	return 0.
}

// wet reports whether any subcatchment is receiving rain or still
// draining stored water; it selects between the wet and dry steps.
func (k *Kernel) wet(date float64) bool {
	for i := range k.prj.Subcatch {
		if k.rainfall(&k.prj.Subcatch[i], date) > 0. || k.sto[i].Sto > 0. {
			return true
		}
	}
	return false
}

// Execute advances runoff by one wet or dry step and returns the new
// runoff clock (msec).
func (k *Kernel) Execute() float64 {
	p := k.prj
	date := p.Opt.StartDateTime + k.timeMs/dtime.MsecPerDay
	k.SetClimateState(date)

	step := float64(p.Opt.DryStep)
	if k.wet(date) {
		step = float64(p.Opt.WetStep)
	}

	for i := range p.Subcatch {
		s := &p.Subcatch[i]
		s.OldRunoff = s.NewRunoff

		ya := k.rainfall(s, date)
		s.Rainfall = ya
		depth := ya * step // applied depth over the step (ft)

		// infiltration on the pervious fraction, limited by supply
		fi := s.InfilRate * (1. - s.FracImperv) * step
		avail := depth + k.sto[i].Sto
		if fi > avail {
			fi = avail
		}
		s.InfilLoss = fi / step

		// evaporation from whatever remains ponded
		fe := k.evapRate * step
		if fe > avail-fi {
			fe = math.Max(0., avail-fi)
		}
		s.EvapLoss = fe / step

		ro := k.sto[i].Overflow(depth - fi - fe)
		if ro < 0. {
			ro = 0.
		}
		s.NewRunoff = ro / step * s.Area // cfs
	}
	k.timeMs += step * 1000.
	return k.timeMs
}

// Close releases the kernel. Reservoir state dies with it; restart
// comes from a hot-start file, not from here.
func (k *Kernel) Close() { k.sto = nil }
