// Package outfile writes the engine's binary results file during a
// simulation and reads it back afterward. The layout is little-endian
// with 4-byte records and 8-byte dates: a magic-framed header, element
// names and input properties located by byte offset, a fixed-width
// block per reporting period, and a six-record epilogue of
// back-pointers whose magic must match the header's.
package outfile

// File framing constants.
const (
	Magic      = 516114522
	EngVersion = 53000

	recordSize = 4
	dateSize   = 8
)

// Numbers of computed variables per element, before per-pollutant
// concentrations are appended.
const (
	nSubcatchResults = 8
	nNodeResults     = 6
	nLinkResults     = 5
	nSysResults      = 15
)

// Subcatchment result attributes.
const (
	SubcatchRainfall = iota
	SubcatchSnowDepth
	SubcatchEvapLoss
	SubcatchInfilLoss
	SubcatchRunoffRate
	SubcatchGwOutflow
	SubcatchGwElev
	SubcatchSoilMoisture
	SubcatchPollutConc
)

// Node result attributes.
const (
	NodeDepth = iota
	NodeHead
	NodeVolume
	NodeLatFlow
	NodeInflow
	NodeOverflow
	NodePollutConc
)

// Link result attributes.
const (
	LinkFlow = iota
	LinkDepth
	LinkVelocity
	LinkVolume
	LinkCapacity
	LinkPollutConc
)

// System result attributes.
const (
	SysAirTemp = iota
	SysRainfall
	SysSnowDepth
	SysInfilLoss
	SysRunoffFlow
	SysDWFlow
	SysGWFlow
	SysRDIIFlow
	SysDirectInflow
	SysLatInflow
	SysFlooding
	SysOutflow
	SysStorage
	SysEvapRate
	SysPET
)

// Element classes for name queries.
const (
	SubcatchElem = iota
	NodeElem
	LinkElem
	SysElem
	PollutElem
)

// Time query codes.
const (
	ReportStepQuery = iota
	NumPeriodsQuery
)

// Unit system flags stored in the file.
const (
	UnitsUS = iota
	UnitsSI
)
