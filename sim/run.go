package sim

// Run executes a complete batch simulation: open, start with results
// saved, step to the horizon, end, report, close. The returned value is
// the engine's final error code (0 success, 10 warnings issued).
func Run(inpFile, rptFile, outFile string) int {
	e := NewEngine()
	if err := e.Open(inpFile, rptFile, outFile); err == nil {
		if err := e.Start(true); err == nil {
			for {
				elapsed, err := e.Step()
				if err != nil || elapsed <= 0. {
					break
				}
			}
		}
		e.End()
	}
	if e.ErrorCode() == 0 {
		e.Report()
	}
	e.Close()

	if code := e.ErrorCode(); code != 0 {
		return code
	}
	if e.Warnings() > 0 {
		return 10
	}
	return 0
}

// RunWithCallback runs the same loop but reports fractional completion
// after every successful step. The fraction is clamped to [0, 1]; the
// callback runs on the stepping goroutine and must not re-enter the
// engine.
func RunWithCallback(inpFile, rptFile, outFile string, cb func(progress float64)) int {
	e := NewEngine()
	if err := e.Open(inpFile, rptFile, outFile); err == nil {
		if err := e.Start(true); err == nil {
			for {
				elapsed, err := e.Step()
				if err != nil {
					break
				}
				if cb != nil {
					e.inCallback = true
					cb(e.progressFrac())
					e.inCallback = false
				}
				if elapsed <= 0. {
					break
				}
			}
		}
		e.End()
	}
	if e.ErrorCode() == 0 {
		e.Report()
	}
	e.Close()

	if code := e.ErrorCode(); code != 0 {
		return code
	}
	if e.Warnings() > 0 {
		return 10
	}
	return 0
}
