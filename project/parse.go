package project

import (
	"bufio"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/maseology/udrr/dtime"
	"github.com/maseology/udrr/errs"
	"github.com/pkg/errors"
)

// xsectLine defers cross-section assignment until every link exists.
type xsectLine struct {
	link  string
	shape string
	geom  [4]float64
}

// Load reads a drainage-model input file into the project. The grammar
// is the bracketed-section keyword format; sections not listed here are
// skipped so richer files still load.
func (p *Project) Load(fp string) error {
	f, err := os.Open(fp)
	if err != nil {
		return errs.New(errs.ErrInpOpen)
	}
	defer f.Close()

	var xsects []xsectLine

	section := ""
	scan := bufio.NewScanner(f)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		line := strings.TrimSpace(scan.Text())
		if i := strings.IndexAny(line, ";"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") {
			section = strings.ToUpper(strings.Trim(line, "[]"))
			continue
		}
		tok := strings.Fields(line)
		if err := p.parseLine(section, tok, &xsects); err != nil {
			return errors.Wrapf(err, "line %d", lineNo)
		}
	}
	if err := scan.Err(); err != nil {
		return errors.Wrap(err, "reading input file")
	}

	// cross sections resolve after all links exist
	for _, x := range xsects {
		li := p.FindObject(LINK, x.link)
		if li < 0 {
			return errs.New(errs.ErrUndefinedRef)
		}
		p.setXsect(&p.Links[li], x.shape, x.geom)
	}
	p.Opt.RecomputeDuration()
	return nil
}

func atof(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errs.New(errs.ErrNumber)
	}
	return v, nil
}

func parseDate(s string) (float64, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return 0, errs.New(errs.ErrNumber)
	}
	m, e1 := strconv.Atoi(parts[0])
	d, e2 := strconv.Atoi(parts[1])
	y, e3 := strconv.Atoi(parts[2])
	if e1 != nil || e2 != nil || e3 != nil {
		return 0, errs.New(errs.ErrNumber)
	}
	return dtime.EncodeDate(y, m, d), nil
}

func parseClock(s string) (float64, error) {
	parts := strings.Split(s, ":")
	hms := [3]int{}
	for i := 0; i < len(parts) && i < 3; i++ {
		v, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, errs.New(errs.ErrNumber)
		}
		hms[i] = v
	}
	return dtime.EncodeTime(hms[0], hms[1], hms[2]), nil
}

// parseClockSeconds accepts H:M:S or a bare number of seconds.
func parseClockSeconds(s string) (int, error) {
	if strings.Contains(s, ":") {
		frac, err := parseClock(s)
		if err != nil {
			return 0, err
		}
		return int(frac*dtime.SecPerDay + 0.5), nil
	}
	v, err := atof(s)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func yesno(s string) bool {
	switch strings.ToUpper(s) {
	case "YES", "TRUE", "ON", "1":
		return true
	}
	return false
}

func (p *Project) parseLine(section string, tok []string, xsects *[]xsectLine) error {
	switch section {
	case "TITLE":
		p.Title = append(p.Title, strings.Join(tok, " "))
		return nil
	case "OPTIONS":
		if len(tok) < 2 {
			return errs.New(errs.ErrKeyword)
		}
		return p.parseOption(strings.ToUpper(tok[0]), tok[1:])
	case "RAINGAGES":
		return p.parseGauge(tok)
	case "SUBCATCHMENTS":
		return p.parseSubcatch(tok)
	case "JUNCTIONS", "OUTFALLS", "STORAGE", "DIVIDERS":
		return p.parseNode(section, tok)
	case "CONDUITS", "PUMPS", "ORIFICES", "WEIRS", "OUTLETS":
		return p.parseLink(section, tok)
	case "XSECTIONS":
		if len(tok) < 3 {
			return errs.New(errs.ErrKeyword)
		}
		x := xsectLine{link: tok[0], shape: strings.ToUpper(tok[1])}
		for i := 0; i < 4 && i+2 < len(tok); i++ {
			v, err := atof(tok[i+2])
			if err != nil {
				return err
			}
			x.geom[i] = v
		}
		*xsects = append(*xsects, x)
		return nil
	case "POLLUTANTS":
		return p.parsePollut(tok)
	case "TIMESERIES":
		return p.parseTseries(tok)
	case "CURVES":
		return p.parseCurve(tok)
	case "PATTERNS":
		return p.parsePattern(tok)
	case "INFLOWS":
		return p.parseInflow(tok)
	case "EVAPORATION":
		if len(tok) >= 2 && strings.EqualFold(tok[0], "CONSTANT") {
			v, err := atof(tok[1])
			if err != nil {
				return err
			}
			p.Opt.Evap = v / p.UCF(EVAPRATE)
		}
		return nil
	case "REPORT":
		return p.parseReport(tok)
	}
	return nil // unknown sections are external collaborators' business
}

func (p *Project) parseOption(key string, val []string) error {
	var err error
	switch key {
	case "FLOW_UNITS":
		switch strings.ToUpper(val[0]) {
		case "CFS":
			p.Opt.FlowUnits = CFS
		case "GPM":
			p.Opt.FlowUnits = GPM
		case "MGD":
			p.Opt.FlowUnits = MGD
		case "CMS":
			p.Opt.FlowUnits = CMS
		case "LPS":
			p.Opt.FlowUnits = LPS
		case "MLD":
			p.Opt.FlowUnits = MLD
		default:
			return errs.New(errs.ErrKeyword)
		}
		if p.Opt.FlowUnits >= CMS {
			p.Opt.UnitSystem = SI
		} else {
			p.Opt.UnitSystem = US
		}
	case "FLOW_ROUTING":
		switch strings.ToUpper(val[0]) {
		case "STEADY":
			p.Opt.RouteModel = SteadyFlow
		case "KINWAVE", "KW":
			p.Opt.RouteModel = KinWave
		case "DYNWAVE", "DW":
			p.Opt.RouteModel = DynWave
		default:
			return errs.New(errs.ErrKeyword)
		}
	case "START_DATE":
		p.Opt.StartDate, err = parseDate(val[0])
	case "START_TIME":
		p.Opt.StartTime, err = parseClock(val[0])
	case "END_DATE":
		p.Opt.EndDate, err = parseDate(val[0])
	case "END_TIME":
		p.Opt.EndTime, err = parseClock(val[0])
	case "REPORT_START_DATE":
		p.Opt.ReportStartDate, err = parseDate(val[0])
	case "REPORT_START_TIME":
		p.Opt.ReportStartTime, err = parseClock(val[0])
	case "ROUTING_STEP":
		var s int
		if s, err = parseClockSeconds(val[0]); err == nil {
			p.Opt.RouteStep = float64(s)
		}
	case "MINIMUM_STEP", "MIN_ROUTING_STEP":
		p.Opt.MinRouteStep, err = atof(val[0])
	case "LENGTHENING_STEP":
		p.Opt.LengtheningStep, err = atof(val[0])
	case "VARIABLE_STEP":
		p.Opt.CourantFactor, err = atof(val[0])
	case "REPORT_STEP":
		p.Opt.ReportStep, err = parseClockSeconds(val[0])
	case "WET_STEP":
		p.Opt.WetStep, err = parseClockSeconds(val[0])
	case "DRY_STEP":
		p.Opt.DryStep, err = parseClockSeconds(val[0])
	case "RULE_STEP":
		p.Opt.RuleStep, err = parseClockSeconds(val[0])
	case "ALLOW_PONDING":
		p.Opt.AllowPonding = yesno(val[0])
	case "SKIP_STEADY_STATE":
		p.Opt.SkipSteadyState = yesno(val[0])
	case "IGNORE_RAINFALL":
		p.Opt.IgnoreRainfall = yesno(val[0])
	case "IGNORE_RDII":
		p.Opt.IgnoreRDII = yesno(val[0])
	case "IGNORE_SNOWMELT":
		p.Opt.IgnoreSnowmelt = yesno(val[0])
	case "IGNORE_GROUNDWATER":
		p.Opt.IgnoreGwater = yesno(val[0])
	case "IGNORE_ROUTING":
		p.Opt.IgnoreRouting = yesno(val[0])
	case "IGNORE_QUALITY":
		p.Opt.IgnoreQuality = yesno(val[0])
	case "INERTIAL_DAMPING":
		switch strings.ToUpper(val[0]) {
		case "NONE":
			p.Opt.InertDamping = NoDamping
		case "PARTIAL":
			p.Opt.InertDamping = PartialDamping
		case "FULL":
			p.Opt.InertDamping = FullDamping
		}
	case "SURCHARGE_METHOD":
		if strings.ToUpper(val[0]) == "SLOT" {
			p.Opt.SurchargeMethod = Slot
		} else {
			p.Opt.SurchargeMethod = Extran
		}
	case "MAX_TRIALS":
		var v float64
		if v, err = atof(val[0]); err == nil {
			p.Opt.MaxTrials = int(v)
		}
	case "THREADS":
		var v float64
		if v, err = atof(val[0]); err == nil {
			p.Opt.NumThreads = int(v)
		}
	case "HEAD_TOLERANCE":
		var v float64
		if v, err = atof(val[0]); err == nil {
			p.Opt.HeadTol = v / p.UCF(LENGTH)
		}
	case "MIN_SURFAREA":
		var v float64
		if v, err = atof(val[0]); err == nil && v > 0. {
			p.Opt.MinSurfArea = v / p.UCF(LENGTH) / p.UCF(LENGTH)
		}
	case "MIN_SLOPE":
		p.Opt.MinSlope, err = atof(val[0])
	case "DRY_DAYS":
		p.Opt.StartDryDays, err = atof(val[0])
	}
	return err
}

func (p *Project) parseGauge(tok []string) error {
	if len(tok) < 1 {
		return errs.New(errs.ErrKeyword)
	}
	g := Gauge{ID: tok[0], Tseries: -1, APIRainfall: -1., Interval: 3600.}
	// ID  format  interval  snowcatch  TIMESERIES name
	if len(tok) >= 3 {
		if s, err := parseClockSeconds(tok[2]); err == nil {
			g.Interval = float64(s)
		}
	}
	for i := 0; i < len(tok)-1; i++ {
		if strings.EqualFold(tok[i], "TIMESERIES") {
			g.Tseries = p.FindObject(TSERIES, tok[i+1])
			if g.Tseries < 0 {
				// series may appear later in the file; register an empty
				// placeholder under that name, which the [TIMESERIES]
				// lines fill when they arrive
				g.Tseries = p.deferTseries(tok[i+1])
			}
		}
	}
	if !p.register(GAGE, g.ID, len(p.Gauges)) {
		return errs.New(errs.ErrDupID)
	}
	p.Gauges = append(p.Gauges, g)
	return nil
}

// deferTseries creates an empty series so forward references resolve.
func (p *Project) deferTseries(id string) int {
	if i := p.FindObject(TSERIES, id); i >= 0 {
		return i
	}
	i := len(p.Tseries)
	p.register(TSERIES, id, i)
	p.Tseries = append(p.Tseries, Tseries{ID: id})
	return i
}

func (p *Project) parseSubcatch(tok []string) error {
	// ID  gauge  outlet  area  %imperv  width  slope  [curblen]
	if len(tok) < 7 {
		return errs.New(errs.ErrKeyword)
	}
	s := Subcatch{ID: tok[0], Gage: -1, OutNode: -1, APIRainfall: -1., APISnowfall: -1.}
	s.gageName, s.outName = tok[1], tok[2]
	var err error
	if s.Area, err = atof(tok[3]); err != nil {
		return err
	}
	s.Area /= p.UCF(LANDAREA)
	if s.FracImperv, err = atof(tok[4]); err != nil {
		return err
	}
	s.FracImperv /= 100.
	if s.Width, err = atof(tok[5]); err != nil {
		return err
	}
	s.Width /= p.UCF(LENGTH)
	if s.Slope, err = atof(tok[6]); err != nil {
		return err
	}
	s.Slope /= 100.
	if len(tok) > 7 {
		if s.CurbLength, err = atof(tok[7]); err != nil {
			return err
		}
		s.CurbLength /= p.UCF(LENGTH)
	}
	s.DepStore = 0.05 / 12.      // default 0.05 in
	s.InfilRate = 0.5 / 43200.   // default 0.5 in/hr
	if !p.register(SUBCATCH, s.ID, len(p.Subcatch)) {
		return errs.New(errs.ErrDupID)
	}
	p.Subcatch = append(p.Subcatch, s)
	return nil
}

func (p *Project) parseNode(section string, tok []string) error {
	if len(tok) < 2 {
		return errs.New(errs.ErrKeyword)
	}
	n := Node{ID: tok[0], ExtInflowTseries: -1}
	var err error
	if n.InvertElev, err = atof(tok[1]); err != nil {
		return err
	}
	n.InvertElev /= p.UCF(LENGTH)
	getf := func(i int) (float64, error) {
		if i < len(tok) {
			return atof(tok[i])
		}
		return 0., nil
	}
	switch section {
	case "JUNCTIONS":
		n.Type = JUNCTION
		// invert  maxdepth  initdepth  surdepth  pondedarea
		if n.FullDepth, err = getf(2); err != nil {
			return err
		}
		n.FullDepth /= p.UCF(LENGTH)
		if n.InitDepth, err = getf(3); err != nil {
			return err
		}
		n.InitDepth /= p.UCF(LENGTH)
		if n.SurDepth, err = getf(4); err != nil {
			return err
		}
		n.SurDepth /= p.UCF(LENGTH)
		if n.PondedArea, err = getf(5); err != nil {
			return err
		}
		n.PondedArea /= p.UCF(LENGTH) * p.UCF(LENGTH)
	case "OUTFALLS":
		n.Type = OUTFALL
		n.SubIndex = len(p.Outfalls)
		of := Outfall{Type: FreeOutfall}
		if len(tok) > 2 {
			switch strings.ToUpper(tok[2]) {
			case "NORMAL":
				of.Type = NormalOutfall
			case "FIXED":
				of.Type = FixedOutfall
				if of.FixedStage, err = getf(3); err != nil {
					return err
				}
				of.FixedStage /= p.UCF(LENGTH)
			}
		}
		p.Outfalls = append(p.Outfalls, of)
	case "STORAGE":
		n.Type = STORAGE
		n.SubIndex = len(p.Storages)
		// invert  maxdepth  initdepth  FUNCTIONAL  acoeff  aexpon  aconst
		if n.FullDepth, err = getf(2); err != nil {
			return err
		}
		n.FullDepth /= p.UCF(LENGTH)
		if n.InitDepth, err = getf(3); err != nil {
			return err
		}
		n.InitDepth /= p.UCF(LENGTH)
		st := Storage{}
		if st.Acoeff, err = getf(5); err != nil {
			return err
		}
		if st.Aexpon, err = getf(6); err != nil {
			return err
		}
		if st.Aconst, err = getf(7); err != nil {
			return err
		}
		p.Storages = append(p.Storages, st)
	case "DIVIDERS":
		n.Type = DIVIDER
		if n.FullDepth, err = getf(2); err != nil {
			return err
		}
		n.FullDepth /= p.UCF(LENGTH)
	}
	if !p.register(NODE, n.ID, len(p.Nodes)) {
		return errs.New(errs.ErrDupID)
	}
	p.Nodes = append(p.Nodes, n)
	return nil
}

func (p *Project) parseLink(section string, tok []string) error {
	if len(tok) < 3 {
		return errs.New(errs.ErrKeyword)
	}
	l := Link{ID: tok[0], node1Name: tok[1], node2Name: tok[2]}
	var err error
	getf := func(i int) (float64, error) {
		if i < len(tok) {
			return atof(tok[i])
		}
		return 0., nil
	}
	switch section {
	case "CONDUITS":
		l.Type = CONDUIT
		l.SubIndex = len(p.Conduits)
		// n1 n2 length roughness offset1 offset2 [q0] [qlimit]
		c := Conduit{}
		if c.Length, err = getf(3); err != nil {
			return err
		}
		c.Length /= p.UCF(LENGTH)
		if c.Roughness, err = getf(4); err != nil {
			return err
		}
		if l.Offset1, err = getf(5); err != nil {
			return err
		}
		l.Offset1 /= p.UCF(LENGTH)
		if l.Offset2, err = getf(6); err != nil {
			return err
		}
		l.Offset2 /= p.UCF(LENGTH)
		if l.Q0, err = getf(7); err != nil {
			return err
		}
		l.Q0 /= p.UCF(FLOW)
		if l.QLimit, err = getf(8); err != nil {
			return err
		}
		l.QLimit /= p.UCF(FLOW)
		p.Conduits = append(p.Conduits, c)
	case "PUMPS":
		l.Type = PUMP
		l.SubIndex = len(p.Pumps)
		pm := Pump{PumpCurve: -1, InitSetting: 1.}
		for i := 3; i < len(tok)-1; i++ {
			if strings.EqualFold(tok[i], "OFF") {
				pm.InitSetting = 0.
			}
		}
		if len(tok) > 3 && !strings.EqualFold(tok[3], "*") {
			pm.curveName = tok[3] // resolved by Validate
		}
		p.Pumps = append(p.Pumps, pm)
	case "ORIFICES":
		l.Type = ORIFICE
		if l.Offset1, err = getf(4); err != nil {
			return err
		}
		l.Offset1 /= p.UCF(LENGTH)
	case "WEIRS":
		l.Type = WEIR
		if l.Offset1, err = getf(4); err != nil {
			return err
		}
		l.Offset1 /= p.UCF(LENGTH)
	case "OUTLETS":
		l.Type = OUTLET
		if l.Offset1, err = getf(3); err != nil {
			return err
		}
		l.Offset1 /= p.UCF(LENGTH)
	}
	if !p.register(LINK, l.ID, len(p.Links)) {
		return errs.New(errs.ErrDupID)
	}
	p.Links = append(p.Links, l)
	return nil
}

func (p *Project) setXsect(l *Link, shape string, geom [4]float64) {
	ucfLen := p.UCF(LENGTH)
	x := &l.Xsect
	switch shape {
	case "CIRCULAR":
		x.Type = Circular
		x.YFull = geom[0] / ucfLen
		x.WMax = x.YFull
		x.AFull = 3.141592653589793 * x.YFull * x.YFull / 4.
		x.RFull = x.YFull / 4.
	case "RECT_OPEN", "RECT_CLOSED", "RECTANGULAR":
		x.Type = Rectangular
		x.YFull = geom[0] / ucfLen
		x.WMax = geom[1] / ucfLen
		x.AFull = x.YFull * x.WMax
		x.RFull = x.AFull / (2.*x.YFull + x.WMax)
	default:
		x.Type = DummyXsect
		x.YFull = geom[0] / ucfLen
	}
	if l.Type == CONDUIT {
		c := &p.Conduits[l.SubIndex]
		// Manning normal-flow capacity, evaluated when slope is known
		c.Beta = 1.49 / nonZero(c.Roughness) * x.AFull * powTwoThirds(x.RFull)
	}
}

func nonZero(v float64) float64 {
	if v <= 0. {
		return 0.01
	}
	return v
}

func powTwoThirds(v float64) float64 {
	if v <= 0. {
		return 0.
	}
	return math.Pow(v, 2./3.)
}

func (p *Project) parsePollut(tok []string) error {
	if len(tok) < 2 {
		return errs.New(errs.ErrKeyword)
	}
	po := Pollut{ID: tok[0]}
	switch strings.ToUpper(tok[1]) {
	case "MG/L":
		po.ConcUnits = 0
	case "UG/L":
		po.ConcUnits = 1
	case "#/L", "COUNT/L":
		po.ConcUnits = 2
	default:
		po.ConcUnits = 0
	}
	if len(tok) > 2 {
		v, err := atof(tok[2])
		if err != nil {
			return err
		}
		po.InitConc = v
	}
	if !p.register(POLLUT, po.ID, len(p.Pollut)) {
		return errs.New(errs.ErrDupID)
	}
	p.Pollut = append(p.Pollut, po)
	return nil
}

func (p *Project) parseTseries(tok []string) error {
	// name  date  time  value  [date time value ...]   or   name time value
	if len(tok) < 3 {
		return errs.New(errs.ErrKeyword)
	}
	i := p.deferTseries(tok[0])
	ts := &p.Tseries[i]
	if len(ts.T) == 0 {
		ts.Relative = true // until a calendar date appears
	}
	k := 1
	var lastDate float64
	if len(ts.T) > 0 && !ts.Relative {
		lastDate = float64(int(ts.T[len(ts.T)-1]))
	}
	for k < len(tok)-1 {
		var date float64
		if strings.ContainsAny(tok[k], "/") {
			d, err := parseDate(tok[k])
			if err != nil {
				return err
			}
			date = d
			lastDate = d
			ts.Relative = false
			k++
		} else {
			date = lastDate
		}
		frac, err := parseClock(tok[k])
		if err != nil {
			return err
		}
		v, err := atof(tok[k+1])
		if err != nil {
			return err
		}
		ts.T = append(ts.T, date+frac)
		ts.V = append(ts.V, v)
		k += 2
	}
	return nil
}

func (p *Project) parseCurve(tok []string) error {
	if len(tok) < 3 {
		return errs.New(errs.ErrKeyword)
	}
	i := p.FindObject(CURVE, tok[0])
	if i < 0 {
		i = len(p.Curves)
		if !p.register(CURVE, tok[0], i) {
			return errs.New(errs.ErrDupID)
		}
		p.Curves = append(p.Curves, Curve{ID: tok[0]})
	}
	c := &p.Curves[i]
	k := 1
	// optional curve-type keyword on the first line
	if _, err := strconv.ParseFloat(tok[1], 64); err != nil {
		k = 2
	}
	for k+1 < len(tok) {
		x, err := atof(tok[k])
		if err != nil {
			return err
		}
		y, err := atof(tok[k+1])
		if err != nil {
			return err
		}
		c.X = append(c.X, x)
		c.Y = append(c.Y, y)
		k += 2
	}
	return nil
}

func (p *Project) parsePattern(tok []string) error {
	if len(tok) < 2 {
		return errs.New(errs.ErrKeyword)
	}
	i := p.FindObject(TIMEPATTERN, tok[0])
	if i < 0 {
		i = len(p.Patterns)
		p.register(TIMEPATTERN, tok[0], i)
		p.Patterns = append(p.Patterns, Pattern{ID: tok[0]})
	}
	pt := &p.Patterns[i]
	for k := 1; k < len(tok); k++ {
		if v, err := strconv.ParseFloat(tok[k], 64); err == nil {
			pt.Factors = append(pt.Factors, v)
		}
	}
	return nil
}

func (p *Project) parseInflow(tok []string) error {
	// node  FLOW  tseries
	if len(tok) < 3 {
		return errs.New(errs.ErrKeyword)
	}
	ni := p.FindObject(NODE, tok[0])
	if ni < 0 {
		return errs.New(errs.ErrUndefinedRef)
	}
	p.Nodes[ni].ExtInflowTseries = p.deferTseries(tok[2])
	return nil
}

func (p *Project) parseReport(tok []string) error {
	if len(tok) < 2 {
		return errs.New(errs.ErrKeyword)
	}
	switch strings.ToUpper(tok[0]) {
	case "INPUT":
		p.Rpt.Input = yesno(tok[1])
	case "CONTROLS":
		p.Rpt.Controls = yesno(tok[1])
	case "AVERAGES":
		p.Rpt.Averages = yesno(tok[1])
	case "DISABLED":
		p.Rpt.Disabled = yesno(tok[1])
	case "SUBCATCHMENTS":
		p.Rpt.Subcatchments = strings.EqualFold(tok[1], "ALL")
	case "NODES":
		p.Rpt.Nodes = strings.EqualFold(tok[1], "ALL")
	case "LINKS":
		p.Rpt.Links = strings.EqualFold(tok[1], "ALL")
	}
	return nil
}
