package project

import (
	"math"

	"github.com/maseology/udrr/errs"
)

// Validate resolves name references, computes derived link properties
// and checks topology. It returns the first fatal code and the number
// of warnings issued.
func (p *Project) Validate() (int, int) {
	warnings := 0

	for i := range p.Subcatch {
		s := &p.Subcatch[i]
		if s.gageName != "" && !isNone(s.gageName) {
			if s.Gage = p.FindObject(GAGE, s.gageName); s.Gage < 0 {
				return errs.ErrUndefinedRef, warnings
			}
		}
		if s.outName != "" && !isNone(s.outName) {
			if s.OutNode = p.FindObject(NODE, s.outName); s.OutNode < 0 {
				return errs.ErrUndefinedRef, warnings
			}
		}
		if s.Area <= 0. {
			warnings++
		}
	}

	for i := range p.Links {
		l := &p.Links[i]
		if l.Node1 = p.FindObject(NODE, l.node1Name); l.Node1 < 0 {
			return errs.ErrUndefinedRef, warnings
		}
		if l.Node2 = p.FindObject(NODE, l.node2Name); l.Node2 < 0 {
			return errs.ErrUndefinedRef, warnings
		}
		if l.Type == CONDUIT {
			c := &p.Conduits[l.SubIndex]
			if c.Length <= 0. {
				c.Length = 1.
				warnings++
			}
			z1 := p.Nodes[l.Node1].InvertElev + l.Offset1
			z2 := p.Nodes[l.Node2].InvertElev + l.Offset2
			c.Slope = (z1 - z2) / c.Length
			if c.Slope < p.Opt.MinSlope {
				c.Slope = p.Opt.MinSlope
			}
			if c.Slope <= 0. {
				c.Slope = 0.001
				warnings++
			}
			l.QFull = c.Beta * math.Sqrt(c.Slope)
		}
	}

	for i := range p.Pumps {
		pm := &p.Pumps[i]
		pm.PumpCurve = -1
		if pm.curveName != "" {
			if pm.PumpCurve = p.FindObject(CURVE, pm.curveName); pm.PumpCurve < 0 {
				return errs.ErrUndefinedRef, warnings
			}
		}
	}

	for i := range p.Nodes {
		n := &p.Nodes[i]
		if n.FullDepth <= 0. {
			// grow junctions to their highest connecting crown
			for j := range p.Links {
				l := &p.Links[j]
				if l.Node1 == i || l.Node2 == i {
					d := l.Offset1 + l.Xsect.YFull
					if d > n.FullDepth {
						n.FullDepth = d
					}
				}
			}
		}
	}

	// reporting defaults: everything marked reportable
	for i := range p.Subcatch {
		p.Subcatch[i].RptFlag = p.Rpt.Subcatchments
	}
	for i := range p.Nodes {
		p.Nodes[i].RptFlag = p.Rpt.Nodes
	}
	for i := range p.Links {
		p.Links[i].RptFlag = p.Rpt.Links
	}
	return 0, warnings
}

func isNone(s string) bool {
	return s == "*" || s == "-"
}
