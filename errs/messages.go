package errs

import "fmt"

var solverMsgs = map[int]string{
	WarnRunIssues: "WARNING: simulation issued warnings",

	ErrInput:        "ERROR 100: one or more errors in input file",
	ErrKeyword:      "ERROR 111: invalid keyword in input file",
	ErrNumber:       "ERROR 113: invalid numeric value in input file",
	ErrDupID:        "ERROR 114: duplicate object ID in input file",
	ErrUndefinedRef: "ERROR 115: reference to undefined object in input file",

	ErrTimestep: "ERROR 201: routing time step is too small",
	ErrNumeric:  "ERROR 203: numerical fault during routing",

	ErrIdenticalNames: "ERROR 301: identical file names supplied",
	ErrInpOpen:        "ERROR 303: cannot open input file",
	ErrRptOpen:        "ERROR 304: cannot open report file",
	ErrOutOpen:        "ERROR 305: cannot open binary output file",
	ErrOutWrite:       "ERROR 306: error writing to binary output file",
	ErrHotstartFormat: "ERROR 330: hot start file has invalid format",
	ErrHotstartOpen:   "ERROR 331: cannot open hot start file",
	ErrHotstartTopo:   "ERROR 332: hot start file is incompatible with current project",

	ErrAPINotOpen:    "API Error 401: project not open",
	ErrAPINotStarted: "API Error 402: simulation not started",
	ErrAPINotEnded:   "API Error 403: simulation not ended",
	ErrAPIIsRunning:  "API Error 404: operation not allowed while simulation is running",

	ErrAPIMemory:        "API Error 411: memory allocation failure",
	ErrAPIObjectType:    "API Error 413: invalid object type",
	ErrAPIObjectIndex:   "API Error 414: object index out of range",
	ErrAPIPropertyType:  "API Error 415: invalid property code",
	ErrAPIPropertyValue: "API Error 416: invalid property value",
	ErrAPIParameter:     "API Error 421: invalid parameter code",
	ErrAPIPeriodRange:   "API Error 422: reporting period index out of range",
	ErrAPIElementIndex:  "API Error 423: element index out of range",

	ErrOutfileOpen:      "File Error 434: unable to open binary output file",
	ErrOutfileMagic:     "File Error 435: invalid file - header and epilogue do not match",
	ErrOutfileNoResults: "File Error 436: invalid file - contains no results",
}

// SolverMessage is the engine's message table.
func SolverMessage(code int) string {
	if msg, ok := solverMsgs[code]; ok {
		return msg
	}
	return fmt.Sprintf("ERROR %d: an unspecified error has occurred", code)
}

var outfileMsgs = map[int]string{
	WarnRunIssues:       "Warning: model run issued warnings",
	ErrAPIMemory:        "Error 411: memory allocation failure",
	ErrAPIParameter:     "Input Error 421: invalid parameter code",
	ErrAPIPeriodRange:   "Input Error 422: reporting period index out of range",
	ErrAPIElementIndex:  "Input Error 423: element index out of range",
	ErrOutfileOpen:      "File Error 434: unable to open binary output file",
	ErrOutfileMagic:     "File Error 435: invalid file - not created by the engine",
	ErrOutfileNoResults: "File Error 436: invalid file - contains no results",
}

// OutfileMessage is the output-reader's message table. It deliberately
// differs from the solver table so a reader handle can ship without the
// full engine register.
func OutfileMessage(code int) string {
	if msg, ok := outfileMsgs[code]; ok {
		return msg
	}
	return fmt.Sprintf("ERROR %d: an unspecified error has occurred", code)
}
