package project

// Quantity classes for unit conversion. Values below FLOW index the Ucf
// table; FLOW indexes Qcf by the project's flow units.
const (
	RAINFALL = iota
	RAINDEPTH
	EVAPRATE
	LENGTH
	LANDAREA
	VOLUME
	WINDSPEED
	TEMPERATURE
	MASS
	GWFLOW
	FLOW
)

// Ucf converts internal (ft-second) units to user units, indexed by
// (quantity, unit system).
var Ucf = [10][2]float64{
	{43200.0, 1097280.0},    // RAINFALL (in/hr, mm/hr --> ft/sec)
	{12.0, 304.8},           // RAINDEPTH (in, mm --> ft)
	{1036800.0, 26334720.0}, // EVAPRATE (in/day, mm/day --> ft/sec)
	{1.0, 0.3048},           // LENGTH (ft, m --> ft)
	{2.2956e-5, 0.92903e-5}, // LANDAREA (ac, ha --> ft2)
	{1.0, 0.02832},          // VOLUME (ft3, m3 --> ft3)
	{1.0, 1.608},            // WINDSPEED (mph, km/hr --> mph)
	{1.0, 1.8},              // TEMPERATURE (deg F, deg C --> deg F)
	{2.203e-6, 1.0e-6},      // MASS (lb, kg --> mg)
	{43560.0, 3048.0},       // GWFLOW (cfs/ac, cms/ha --> ft/sec)
}

// Qcf converts cfs to each flow-units choice.
var Qcf = [6]float64{1.0, 448.831, 0.64632, 0.02832, 28.317, 2.4466}

// UCF returns the conversion factor from internal units to the user's
// units for quantity u.
func (p *Project) UCF(u int) float64 {
	if u < FLOW {
		return Ucf[u][p.Opt.UnitSystem]
	}
	return Qcf[p.Opt.FlowUnits]
}
