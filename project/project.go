package project

import "math"

// Project owns every model object read from an input file. Object
// indices are stable for the project's lifetime and are the canonical
// references used throughout the engine.
type Project struct {
	Title []string

	Gauges    []Gauge
	Subcatch  []Subcatch
	Nodes     []Node
	Outfalls  []Outfall
	Storages  []Storage
	Links     []Link
	Conduits  []Conduit
	Pumps     []Pump
	Pollut    []Pollut
	Landuse   []struct{ ID string }
	Patterns  []Pattern
	Curves    []Curve
	Tseries   []Tseries
	Transects []Transect
	Aquifers  []Aquifer
	UnitHyds  []UnitHyd
	Snowmelts []Snowmelt

	Opt Options
	Rpt RptFlags

	InpDir  string // directory of the input file, for relative paths
	InpName string
	RptName string
	OutName string

	index map[ObjType]map[string]int
}

// New returns an empty project with default options.
func New() *Project {
	return &Project{
		Opt:   defaultOptions(),
		Rpt:   defaultRptFlags(),
		index: make(map[ObjType]map[string]int),
	}
}

// Count returns the number of objects of a type.
func (p *Project) Count(t ObjType) int {
	switch t {
	case GAGE:
		return len(p.Gauges)
	case SUBCATCH:
		return len(p.Subcatch)
	case NODE:
		return len(p.Nodes)
	case LINK:
		return len(p.Links)
	case POLLUT:
		return len(p.Pollut)
	case LANDUSE:
		return len(p.Landuse)
	case TIMEPATTERN:
		return len(p.Patterns)
	case CURVE:
		return len(p.Curves)
	case TSERIES:
		return len(p.Tseries)
	case TRANSECT:
		return len(p.Transects)
	case AQUIFER:
		return len(p.Aquifers)
	case UNITHYD:
		return len(p.UnitHyds)
	case SNOWMELT:
		return len(p.Snowmelts)
	}
	return 0
}

// ID returns the string ID of object (t, i), or "".
func (p *Project) ID(t ObjType, i int) string {
	if i < 0 || i >= p.Count(t) {
		return ""
	}
	switch t {
	case GAGE:
		return p.Gauges[i].ID
	case SUBCATCH:
		return p.Subcatch[i].ID
	case NODE:
		return p.Nodes[i].ID
	case LINK:
		return p.Links[i].ID
	case POLLUT:
		return p.Pollut[i].ID
	case TIMEPATTERN:
		return p.Patterns[i].ID
	case CURVE:
		return p.Curves[i].ID
	case TSERIES:
		return p.Tseries[i].ID
	case TRANSECT:
		return p.Transects[i].ID
	case AQUIFER:
		return p.Aquifers[i].ID
	case UNITHYD:
		return p.UnitHyds[i].ID
	case SNOWMELT:
		return p.Snowmelts[i].ID
	}
	return ""
}

// FindObject returns the index of the named object, or -1.
func (p *Project) FindObject(t ObjType, id string) int {
	if m, ok := p.index[t]; ok {
		if i, ok := m[id]; ok {
			return i
		}
	}
	return -1
}

func (p *Project) register(t ObjType, id string, i int) bool {
	m, ok := p.index[t]
	if !ok {
		m = make(map[string]int)
		p.index[t] = m
	}
	if _, dup := m[id]; dup {
		return false
	}
	m[id] = i
	return true
}

// Init resets the dynamic state of every object to its cold-start
// condition. Called by the lifecycle at the top of each start.
func (p *Project) Init() {
	np := len(p.Pollut)
	for i := range p.Gauges {
		g := &p.Gauges[i]
		g.Rainfall, g.Snowfall = 0., 0.
	}
	for i := range p.Subcatch {
		s := &p.Subcatch[i]
		s.Rainfall, s.EvapLoss, s.InfilLoss = 0., 0., 0.
		s.OldRunoff, s.NewRunoff = 0., 0.
		s.ExtBuildup = make([]float64, np)
		s.NewQual = make([]float64, np)
		s.TotalLoad = make([]float64, np)
	}
	for i := range p.Nodes {
		n := &p.Nodes[i]
		n.OldDepth, n.NewDepth = n.InitDepth, n.InitDepth
		n.OldVolume, n.NewVolume = p.NodeVolume(i, n.InitDepth), p.NodeVolume(i, n.InitDepth)
		n.OldLatFlow, n.NewLatFlow = 0., 0.
		n.Inflow, n.Overflow = 0., 0.
		n.NewQual = make([]float64, np)
		n.APIExtQualMassFlux = make([]float64, np)
	}
	for i := range p.Links {
		l := &p.Links[i]
		l.OldFlow, l.NewFlow = l.Q0, l.Q0
		l.OldDepth, l.NewDepth = 0., 0.
		l.Setting, l.TargetSetting = 1., 1.
		if l.Type == PUMP {
			l.Setting = p.Pumps[l.SubIndex].InitSetting
			l.TargetSetting = l.Setting
		}
		l.TimeLastSet = p.Opt.StartDateTime
		l.NewQual = make([]float64, np)
		l.APIExtQualMassFlux = make([]float64, np)
		l.TotalLoad = make([]float64, np)
	}
}

// NodeVolume returns stored volume at depth d for node i.
func (p *Project) NodeVolume(i int, d float64) float64 {
	n := &p.Nodes[i]
	if n.Type == STORAGE {
		s := &p.Storages[n.SubIndex]
		if s.Aexpon == 0. {
			return (s.Aconst + s.Acoeff) * d
		}
		return s.Aconst*d + s.Acoeff*math.Pow(d, s.Aexpon+1.)/(s.Aexpon+1.)
	}
	return p.Opt.MinSurfArea * d
}

// TopoCode condenses the object counts and routing model into a single
// comparable value; the hot-start manager uses it to reject snapshots
// from a different network.
func (p *Project) TopoCode() [4]int32 {
	return [4]int32{
		int32(len(p.Nodes)),
		int32(len(p.Links)),
		int32(len(p.Pollut)),
		int32(p.Opt.RouteModel),
	}
}
