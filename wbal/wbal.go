// Package wbal keeps the running water-balance and step statistics of a
// simulation: total inflow, outflow, losses and storage change, and the
// percent continuity errors reported when the run ends.
package wbal

import "github.com/maseology/udrr/project"

// Budget accumulates flow volumes (ft3) over the run.
type Budget struct {
	prj *project.Project

	RainVol    float64
	InfilVol   float64
	EvapVol    float64
	RunoffVol  float64
	LatVol     float64
	OutflowVol float64
	FloodVol   float64
	initStored float64

	// step statistics
	Steps       int
	SumStepSize float64
	MinStepSize float64
	MaxStepSize float64
}

// Open starts a budget from the network's initial storage.
func Open(p *project.Project) *Budget {
	b := &Budget{prj: p}
	b.initStored = b.stored()
	return b
}

func (b *Budget) stored() float64 {
	v := 0.
	for i := range b.prj.Nodes {
		v += b.prj.Nodes[i].NewVolume
	}
	return v
}

// Update folds one routing step of duration dt seconds into the totals.
func (b *Budget) Update(dt float64) {
	p := b.prj
	for i := range p.Subcatch {
		s := &p.Subcatch[i]
		b.RainVol += s.Rainfall * s.Area * dt
		b.InfilVol += s.InfilLoss * s.Area * dt
		b.EvapVol += s.EvapLoss * s.Area * dt
		b.RunoffVol += s.NewRunoff * dt
	}
	for i := range p.Nodes {
		n := &p.Nodes[i]
		b.LatVol += n.NewLatFlow * dt
		b.FloodVol += n.Overflow * dt
		if n.Type == project.OUTFALL {
			b.OutflowVol += n.Inflow * dt
		}
	}
	b.Steps++
	b.SumStepSize += dt
	if b.MinStepSize == 0. || dt < b.MinStepSize {
		b.MinStepSize = dt
	}
	if dt > b.MaxStepSize {
		b.MaxStepSize = dt
	}
}

// RunoffError returns the percent continuity error of the hydrology.
func (b *Budget) RunoffError() float64 {
	in := b.RainVol
	if in <= 0. {
		return 0.
	}
	out := b.RunoffVol + b.InfilVol + b.EvapVol
	return (in - out) / in * 100.
}

// FlowError returns the percent continuity error of the routing.
func (b *Budget) FlowError() float64 {
	in := b.LatVol + b.initStored
	if in <= 0. {
		return 0.
	}
	out := b.OutflowVol + b.FloodVol + b.stored()
	return (in - out) / in * 100.
}

// AvgStepSize returns the mean routing step in seconds.
func (b *Budget) AvgStepSize() float64 {
	if b.Steps == 0 {
		return 0.
	}
	return b.SumStepSize / float64(b.Steps)
}
