// Package project holds the object graph of a drainage model: rain
// gauges, subcatchments, the node/link network, pollutants and the
// supporting reference objects, together with the analysis options read
// from the input file. Indices into the object arrays are the canonical
// references for the project's lifetime.
package project

import "math"

// ObjType identifies a class of model object.
type ObjType int

const (
	GAGE ObjType = iota
	SUBCATCH
	NODE
	LINK
	POLLUT
	LANDUSE
	TIMEPATTERN
	CURVE
	TSERIES
	TRANSECT
	AQUIFER
	UNITHYD
	SNOWMELT
	objTypeCount

	SYS ObjType = 100
)

// NodeType distinguishes the node sub-classes.
type NodeType int

const (
	JUNCTION NodeType = iota
	OUTFALL
	STORAGE
	DIVIDER
)

// LinkType distinguishes the link sub-classes.
type LinkType int

const (
	CONDUIT LinkType = iota
	PUMP
	ORIFICE
	WEIR
	OUTLET
)

// OutfallType is the boundary condition applied at an outfall node.
type OutfallType int

const (
	FreeOutfall OutfallType = iota
	NormalOutfall
	FixedOutfall
	TidalOutfall
	TseriesOutfall
)

// XsectType is the shape of a conduit cross section.
type XsectType int

const (
	DummyXsect XsectType = iota
	Circular
	Rectangular
	Trapezoidal
)

// Gauge is a rainfall source assigned to one or more subcatchments.
type Gauge struct {
	ID       string
	Tseries  int     // index into Project.Tseries, -1 if none
	Interval float64 // recording interval (sec)
	SnowCatch float64

	Rainfall    float64 // current rain intensity (ft/s)
	Snowfall    float64 // current snow intensity (ft/s)
	APIRainfall float64 // externally supplied intensity, <0 when unset
}

// Subcatch is a runoff-producing land area draining to a node.
type Subcatch struct {
	ID       string
	gageName string // resolved to Gage by Validate
	outName  string // resolved to OutNode by Validate

	Gage    int
	OutNode int
	Area       float64 // ft2
	Width      float64 // ft
	Slope      float64
	CurbLength float64 // ft
	FracImperv float64
	DepStore   float64 // depression storage depth (ft)
	InfilRate  float64 // max infiltration rate (ft/s)

	Rainfall    float64 // current applied intensity (ft/s)
	EvapLoss    float64 // ft/s
	InfilLoss   float64 // ft/s
	OldRunoff   float64 // cfs
	NewRunoff   float64 // cfs
	APIRainfall float64 // ft/s, <0 when unset
	APISnowfall float64 // ft/s, <0 when unset

	ExtBuildup []float64 // externally set buildup per pollutant (mass)
	NewQual    []float64 // runoff concentration per pollutant
	TotalLoad  []float64 // cumulative washoff load per pollutant

	RptFlag bool
	RptIdx  int // 1-based position in output file, 0 if not reported
}

// Node is a point in the drainage network.
type Node struct {
	ID       string
	Type     NodeType
	SubIndex int // index into the sub-class array

	InvertElev float64 // ft
	FullDepth  float64 // ft
	SurDepth   float64 // ft
	PondedArea float64 // ft2
	InitDepth  float64 // ft

	OldDepth   float64
	NewDepth   float64
	OldVolume  float64
	NewVolume  float64
	OldLatFlow float64
	NewLatFlow float64
	Inflow     float64 // total inflow (cfs)
	Overflow   float64 // flooding loss (cfs)

	APIExtInflow      float64   // lateral inflow override (cfs)
	ExtInflowTseries  int       // -1 if none
	NewQual           []float64 // concentration per pollutant
	APIExtQualMassFlux []float64

	RptFlag bool
	RptIdx  int
}

// Outfall is the sub-object of an OUTFALL node.
type Outfall struct {
	Type       OutfallType
	FixedStage float64 // ft
}

// Storage is the sub-object of a STORAGE node: area = Aconst +
// Acoeff*depth^Aexpon.
type Storage struct {
	Aconst, Acoeff, Aexpon float64
}

// Xsect describes a link cross section.
type Xsect struct {
	Type  XsectType
	YFull float64 // ft
	WMax  float64 // ft
	AFull float64 // ft2
	RFull float64 // hydraulic radius when full (ft)
}

// WofY returns the top width at depth y.
func (x *Xsect) WofY(y float64) float64 {
	switch x.Type {
	case Circular:
		if y <= 0 || y >= x.YFull {
			return 0.
		}
		r := x.YFull / 2.
		h := y - r
		return 2. * sqrtPos(r*r-h*h)
	case Rectangular, Trapezoidal:
		if y <= 0 || y > x.YFull {
			return 0.
		}
		return x.WMax
	default:
		return 0.
	}
}

// AofY returns the flow area at depth y.
func (x *Xsect) AofY(y float64) float64 {
	if y <= 0 {
		return 0.
	}
	if y >= x.YFull {
		return x.AFull
	}
	switch x.Type {
	case Rectangular:
		return x.WMax * y
	default:
		return x.AFull * y / x.YFull
	}
}

func sqrtPos(v float64) float64 {
	if v <= 0 {
		return 0.
	}
	return math.Sqrt(v)
}

// Link conveys flow between two nodes.
type Link struct {
	ID       string
	Type     LinkType
	SubIndex int

	node1Name, node2Name string // resolved by Validate

	Node1, Node2 int
	Offset1      float64 // ft
	Offset2      float64 // ft
	Q0           float64 // initial flow (cfs)
	QLimit       float64 // cfs, 0 = none
	CLossInlet   float64
	CLossOutlet  float64
	CLossAvg     float64
	SeepRate     float64 // ft/s
	HasFlapGate  bool
	Xsect        Xsect
	QFull        float64 // full-flow capacity (cfs)

	Setting       float64 // current setting
	TargetSetting float64 // pending setting applied next step
	TimeLastSet   float64 // datetime of last zero crossing

	OldFlow  float64
	NewFlow  float64
	OldDepth float64
	NewDepth float64

	NewQual            []float64
	APIExtQualMassFlux []float64
	TotalLoad          []float64

	RptFlag bool
	RptIdx  int
}

// Conduit is the sub-object of a CONDUIT link.
type Conduit struct {
	Length    float64 // ft
	Roughness float64
	Slope     float64
	Beta      float64 // Manning coefficient bundle for normal flow
}

// Pump is the sub-object of a PUMP link.
type Pump struct {
	curveName   string
	PumpCurve   int // index into Curves, -1 for ideal
	InitSetting float64
}

// Pollut is a water-quality constituent.
type Pollut struct {
	ID        string
	ConcUnits int // 0 mg/L, 1 ug/L, 2 count/L
	InitConc  float64
}

// Tseries is a (time, value) series with stepwise-forward lookup.
// Entries without calendar dates are relative: T holds elapsed days
// from the simulation start instead of datetimes.
type Tseries struct {
	ID       string
	Relative bool
	T        []float64 // datetimes, or elapsed days when Relative
	V        []float64
}

// ValueAt returns the series value in force at time t (last point at or
// before it), or 0 before the first point. Pass a datetime for absolute
// series and elapsed days for relative ones; TseriesValue does this.
func (ts *Tseries) ValueAt(t float64) float64 {
	v := 0.
	for i, ti := range ts.T {
		if ti > t {
			break
		}
		v = ts.V[i]
	}
	return v
}

// TseriesValue evaluates series i at the given datetime, translating to
// elapsed time for relative series.
func (p *Project) TseriesValue(i int, date float64) float64 {
	if i < 0 || i >= len(p.Tseries) {
		return 0.
	}
	ts := &p.Tseries[i]
	if ts.Relative {
		return ts.ValueAt(date - p.Opt.StartDateTime)
	}
	return ts.ValueAt(date)
}

// Curve is an (x, y) lookup table.
type Curve struct {
	ID string
	X  []float64
	Y  []float64
}

// ValueAt linearly interpolates the curve at x, clamping at the ends.
func (c *Curve) ValueAt(x float64) float64 {
	n := len(c.X)
	if n == 0 {
		return 0.
	}
	if x <= c.X[0] {
		return c.Y[0]
	}
	for i := 1; i < n; i++ {
		if x <= c.X[i] {
			f := (x - c.X[i-1]) / (c.X[i] - c.X[i-1])
			return c.Y[i-1] + f*(c.Y[i]-c.Y[i-1])
		}
	}
	return c.Y[n-1]
}

// Pattern is a periodic multiplier set.
type Pattern struct {
	ID      string
	Factors []float64
}

// Transect, Aquifer, UnitHyd and Snowmelt are referenced by ID only at
// this level; their physics live in the external kernels.
type Transect struct{ ID string }
type Aquifer struct{ ID string }
type UnitHyd struct{ ID string }
type Snowmelt struct{ ID string }
