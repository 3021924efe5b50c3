// Package routing propagates flow through the node/link network one
// adaptive step at a time. Link flow updates are independent per step
// and fan out over a small worker pool when the project asks for more
// than one thread and there are at least two links per worker; results
// are collected before the step returns so
// callers see each step as atomic.
package routing

import (
	"math"
	"sync"

	"github.com/maseology/udrr/project"
)

const grav = 32.174 // ft/s2

// Kernel owns the routing state of one simulation.
type Kernel struct {
	prj   *project.Project
	model int
}

// Open prepares the kernel for the selected routing model.
func Open(p *project.Project, model int) *Kernel {
	return &Kernel{prj: p, model: model}
}

// Close releases the kernel.
func (k *Kernel) Close() {}

// RoutingStep returns the step (sec) the solver wants next. Steady and
// kinematic models keep the nominal step; the dynamic model is limited
// by the Courant condition over flowing conduits when a Courant factor
// is set, and never drops below the minimum routing step.
func (k *Kernel) RoutingStep(routeStep float64) float64 {
	p := k.prj
	if k.model != project.DynWave || p.Opt.CourantFactor <= 0. {
		return routeStep
	}
	dt := routeStep
	for i := range p.Links {
		l := &p.Links[i]
		if l.Type != project.CONDUIT || l.NewDepth <= 0. {
			continue
		}
		a := l.Xsect.AofY(l.NewDepth)
		if a <= 1e-6 {
			continue
		}
		v := math.Abs(l.NewFlow) / a
		c := math.Sqrt(grav * l.NewDepth)
		if v+c <= 0. {
			continue
		}
		t := p.Opt.CourantFactor * p.Conduits[l.SubIndex].Length / (v + c)
		if p.Opt.LengtheningStep > 0. && t < p.Opt.LengtheningStep {
			t = p.Opt.LengtheningStep
		}
		if t < dt {
			dt = t
		}
	}
	if dt < p.Opt.MinRouteStep {
		dt = p.Opt.MinRouteStep
	}
	return dt
}

// Execute advances the network by step seconds at the given date.
func (k *Kernel) Execute(step, date float64) {
	p := k.prj

	// age current state and apply pending settings
	for i := range p.Nodes {
		n := &p.Nodes[i]
		n.OldDepth, n.OldVolume, n.OldLatFlow = n.NewDepth, n.NewVolume, n.NewLatFlow
	}
	for i := range p.Links {
		l := &p.Links[i]
		l.OldFlow, l.OldDepth = l.NewFlow, l.NewDepth
		l.Setting = l.TargetSetting
	}

	k.setLateralInflows(date)
	k.computeLinkFlows(step)
	k.updateNodes(step)
}

// setLateralInflows gathers subcatchment runoff, API overrides and
// external inflow series onto each node.
func (k *Kernel) setLateralInflows(date float64) {
	p := k.prj
	for i := range p.Nodes {
		p.Nodes[i].NewLatFlow = 0.
	}
	for i := range p.Subcatch {
		s := &p.Subcatch[i]
		if s.OutNode >= 0 {
			p.Nodes[s.OutNode].NewLatFlow += s.NewRunoff
		}
	}
	for i := range p.Nodes {
		n := &p.Nodes[i]
		n.NewLatFlow += n.APIExtInflow
		if n.ExtInflowTseries >= 0 {
			n.NewLatFlow += p.TseriesValue(n.ExtInflowTseries, date) / p.UCF(project.FLOW)
		}
	}
}

func (k *Kernel) computeLinkFlows(step float64) {
	p := k.prj
	nl := len(p.Links)
	if nl == 0 {
		return
	}
	nth := p.Opt.NumThreads
	if nth <= 1 || nl < 2*nth {
		for i := 0; i < nl; i++ {
			k.linkFlow(i, step)
		}
		return
	}
	var wg sync.WaitGroup
	chunk := (nl + nth - 1) / nth
	for w := 0; w < nth; w++ {
		i0, i1 := w*chunk, (w+1)*chunk
		if i1 > nl {
			i1 = nl
		}
		if i0 >= i1 {
			break
		}
		wg.Add(1)
		go func(i0, i1 int) {
			for i := i0; i < i1; i++ {
				k.linkFlow(i, step)
			}
			wg.Done()
		}(i0, i1)
	}
	wg.Wait()
}

// linkFlow updates one link's flow and depth from its end-node states.
func (k *Kernel) linkFlow(i int, step float64) {
	p := k.prj
	l := &p.Links[i]
	n1 := &p.Nodes[l.Node1]
	n2 := &p.Nodes[l.Node2]

	h1 := n1.InvertElev + n1.OldDepth
	h2 := n2.InvertElev + n2.OldDepth
	if n2.Type == project.OUTFALL {
		of := &p.Outfalls[n2.SubIndex]
		if of.Type == project.FixedOutfall {
			// fixed stage is held above the outfall invert
			h2 = n2.InvertElev + of.FixedStage
		}
	}

	y1 := math.Max(0., h1-(n1.InvertElev+l.Offset1)) // depth over upstream end

	q := 0.
	switch l.Type {
	case project.CONDUIT:
		c := &p.Conduits[l.SubIndex]
		if y1 > 0. && l.Xsect.YFull > 0. {
			frac := math.Min(1., y1/l.Xsect.YFull)
			q = l.QFull * math.Pow(frac, 5./3.)
		}
		if k.model == project.DynWave && h2 > h1 {
			q = -q * 0.5 // crude backflow damping under adverse gradient
		}
		q = 0.5 * (l.OldFlow + q) // under-relax the explicit update
		// seepage drains along the barrel
		if l.SeepRate > 0. {
			q -= l.SeepRate * c.Length * l.Xsect.WofY(l.OldDepth)
		}
	case project.PUMP:
		pm := &p.Pumps[l.SubIndex]
		q = l.Setting * k.pumpFlow(pm, n1.OldDepth)
	case project.ORIFICE:
		if y1 > 0. {
			a := l.Xsect.AFull * math.Min(1., l.Setting)
			q = 0.65 * a * math.Sqrt(2.*grav*y1)
		}
	case project.WEIR:
		if y1 > 0. {
			length := math.Max(l.Xsect.WMax, 1.)
			q = 3.33 * length * math.Pow(y1, 1.5) * math.Min(1., l.Setting)
		}
	case project.OUTLET:
		q = l.Setting * k.outletFlow(l, y1)
	}

	if l.HasFlapGate && q < 0. {
		q = 0.
	}
	if l.QLimit > 0. && math.Abs(q) > l.QLimit {
		q = math.Copysign(l.QLimit, q)
	}
	// no water, no flow
	if q > 0. {
		avail := n1.OldVolume/step + n1.OldLatFlow
		if q > avail {
			q = math.Max(0., avail)
		}
	}

	l.NewFlow = q
	if l.Type == project.CONDUIT && l.QFull > 0. && l.Xsect.YFull > 0. {
		frac := math.Min(1., math.Abs(q)/l.QFull)
		l.NewDepth = l.Xsect.YFull * math.Pow(frac, 3./5.)
	} else {
		l.NewDepth = y1
	}
}

func (k *Kernel) pumpFlow(pm *project.Pump, depth float64) float64 {
	if pm.PumpCurve >= 0 {
		return k.prj.Curves[pm.PumpCurve].ValueAt(depth*k.prj.UCF(project.LENGTH)) / k.prj.UCF(project.FLOW)
	}
	// ideal pump moves whatever has arrived
	return depth * 10.
}

func (k *Kernel) outletFlow(l *project.Link, head float64) float64 {
	if head <= 0. {
		return 0.
	}
	return 0.5 * math.Pow(head, 1.5)
}

// updateNodes applies continuity over the step and resolves ponding,
// surcharge and flooding.
func (k *Kernel) updateNodes(step float64) {
	p := k.prj
	for i := range p.Nodes {
		n := &p.Nodes[i]
		inflow, outflow := n.NewLatFlow, 0.
		for j := range p.Links {
			l := &p.Links[j]
			if l.Node2 == i && l.NewFlow > 0. {
				inflow += l.NewFlow
			}
			if l.Node1 == i && l.NewFlow > 0. {
				outflow += l.NewFlow
			}
			if l.Node1 == i && l.NewFlow < 0. {
				inflow -= l.NewFlow
			}
			if l.Node2 == i && l.NewFlow < 0. {
				outflow -= l.NewFlow
			}
		}
		n.Inflow = inflow
		n.Overflow = 0.

		if n.Type == project.OUTFALL {
			// pass-through boundary
			n.NewVolume = 0.
			of := &p.Outfalls[n.SubIndex]
			if of.Type == project.FixedOutfall {
				n.NewDepth = of.FixedStage
			} else {
				n.NewDepth = 0.
			}
			continue
		}

		v := n.OldVolume + (inflow-outflow)*step
		if v < 0. {
			v = 0.
		}
		d := k.depthFromVolume(i, v)
		if n.FullDepth > 0. && d > n.FullDepth+n.SurDepth {
			full := p.NodeVolume(i, n.FullDepth+n.SurDepth)
			excess := (v - full) / step
			if p.Opt.AllowPonding && n.PondedArea > 0. {
				// keep the excess on the surface for later re-entry
				d = n.FullDepth + n.SurDepth + (v-full)/n.PondedArea
			} else {
				n.Overflow = excess
				v = full
				d = n.FullDepth + n.SurDepth
			}
		}
		n.NewVolume = v
		n.NewDepth = d
	}
}

func (k *Kernel) depthFromVolume(i int, v float64) float64 {
	p := k.prj
	n := &p.Nodes[i]
	if n.Type == project.STORAGE {
		s := &p.Storages[n.SubIndex]
		if s.Acoeff == 0. || s.Aexpon == 0. {
			a := s.Aconst + s.Acoeff
			if a <= 0. {
				a = p.Opt.MinSurfArea
			}
			return v / a
		}
		// invert the area curve by bisection over the depth range
		lo, hi := 0., math.Max(n.FullDepth+n.SurDepth, 1.)
		for p.NodeVolume(i, hi) < v && hi < 1e4 {
			hi *= 2.
		}
		for it := 0; it < 40; it++ {
			mid := 0.5 * (lo + hi)
			if p.NodeVolume(i, mid) < v {
				lo = mid
			} else {
				hi = mid
			}
		}
		return 0.5 * (lo + hi)
	}
	return v / p.Opt.MinSurfArea
}
