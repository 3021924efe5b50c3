package project

// Unit systems.
const (
	US = 0
	SI = 1
)

// Flow units. Codes below CMS imply US units, the rest SI.
const (
	CFS = iota
	GPM
	MGD
	CMS
	LPS
	MLD
)

// Flow routing models.
const (
	SteadyFlow = iota
	KinWave
	DynWave
)

// Inertial damping options for dynamic-wave routing.
const (
	NoDamping = iota
	PartialDamping
	FullDamping
)

// Normal-flow limitation criteria.
const (
	SlopeLtd = iota
	FroudeLtd
	BothLtd
	NeitherLtd
)

// Surcharge methods.
const (
	Extran = iota
	Slot
)

// Options are the analysis options from the [OPTIONS] section plus the
// derived clock quantities.
type Options struct {
	UnitSystem int
	FlowUnits  int
	RouteModel int

	StartDate       float64 // encoded date part
	StartTime       float64 // encoded time fraction
	EndDate         float64
	EndTime         float64
	ReportStartDate float64
	ReportStartTime float64

	StartDateTime float64 // StartDate + StartTime
	EndDateTime   float64
	ReportStart   float64
	TotalDuration float64 // msec

	RouteStep       float64 // sec
	MinRouteStep    float64 // sec
	LengtheningStep float64 // sec
	CourantFactor   float64
	ReportStep      int // sec
	WetStep         int // sec
	DryStep         int // sec
	RuleStep        int // sec
	SweepStart      int // day of year
	SweepEnd        int
	StartDryDays    float64

	AllowPonding    bool
	SkipSteadyState bool
	IgnoreRainfall  bool
	IgnoreRDII      bool
	IgnoreSnowmelt  bool
	IgnoreGwater    bool
	IgnoreRouting   bool
	IgnoreQuality   bool

	InertDamping    int
	NormalFlowLtd   int
	SurchargeMethod int
	MaxTrials       int
	NumThreads      int

	Evap float64 // constant potential evaporation (ft/s), 0 = estimate

	HeadTol    float64 // ft
	SysFlowTol float64
	LatFlowTol float64
	MinSurfArea float64 // ft2
	MinSlope    float64
}

// RptFlags control what the text report and the binary file carry.
type RptFlags struct {
	Disabled bool
	Input    bool
	Controls bool
	Averages bool
	Subcatchments bool // report all subcatchments
	Nodes         bool
	Links         bool
}

func defaultOptions() Options {
	return Options{
		UnitSystem:      US,
		FlowUnits:       CFS,
		RouteModel:      KinWave,
		RouteStep:       20.,
		MinRouteStep:    0.5,
		LengtheningStep: 0.,
		CourantFactor:   0.,
		ReportStep:      900,
		WetStep:         300,
		DryStep:         3600,
		RuleStep:        0,
		SweepStart:      1,
		SweepEnd:        365,
		InertDamping:    PartialDamping,
		NormalFlowLtd:   BothLtd,
		SurchargeMethod: Extran,
		MaxTrials:       8,
		NumThreads:      1,
		HeadTol:         0.005,
		SysFlowTol:      0.05,
		LatFlowTol:      0.05,
		MinSurfArea:     12.566,
		MinSlope:        0.,
	}
}

func defaultRptFlags() RptFlags {
	return RptFlags{Subcatchments: true, Nodes: true, Links: true}
}

// RecomputeDuration refreshes the derived clock fields after a date
// option changes. Duration may come out non-positive; the lifecycle
// treats that as an already-reached horizon, not an error.
func (o *Options) RecomputeDuration() {
	o.StartDateTime = o.StartDate + o.StartTime
	o.EndDateTime = o.EndDate + o.EndTime
	o.ReportStart = o.ReportStartDate + o.ReportStartTime
	days := (o.EndDate - o.StartDate) + (o.EndTime - o.StartTime)
	o.TotalDuration = days * 86400. * 1000.
}
