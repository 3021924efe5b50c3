// Package report writes the human-readable text report that accompanies
// a run: title, analysis options, control actions taken during the
// simulation, and the closing continuity summaries.
package report

import (
	"fmt"
	"time"

	"github.com/maseology/mmio"
	"github.com/maseology/udrr/dtime"
	"github.com/maseology/udrr/errs"
	"github.com/maseology/udrr/project"
	"github.com/maseology/udrr/wbal"
)

// Writer appends to the report file for the lifetime of one project.
type Writer struct {
	tw   *mmio.TXTwriter
	path string
}

// Open creates the report file and stamps the logo block.
func Open(path string) (*Writer, error) {
	tw, err := mmio.NewTXTwriter(path)
	if err != nil {
		return nil, errs.New(errs.ErrRptOpen)
	}
	w := &Writer{tw: tw, path: path}
	w.Line("  udrr - urban drainage rainfall-runoff-routing engine")
	w.Line("  " + time.Now().Format("2006-01-02 15:04:05"))
	w.Line("")
	return w, nil
}

// Line appends one line of text.
func (w *Writer) Line(s string) {
	if w != nil && w.tw != nil {
		w.tw.WriteLine(s)
	}
}

// Close flushes and releases the file.
func (w *Writer) Close() {
	if w != nil && w.tw != nil {
		w.tw.Close()
		w.tw = nil
	}
}

// Title echoes the project title block.
func (w *Writer) Title(p *project.Project) {
	for _, t := range p.Title {
		w.Line("  " + t)
	}
	w.Line("")
}

// Options summarizes the analysis options the run used.
func (w *Writer) Options(p *project.Project) {
	w.Line("  *********************")
	w.Line("  Analysis Options")
	w.Line("  *********************")
	units := "CFS"
	switch p.Opt.FlowUnits {
	case project.GPM:
		units = "GPM"
	case project.MGD:
		units = "MGD"
	case project.CMS:
		units = "CMS"
	case project.LPS:
		units = "LPS"
	case project.MLD:
		units = "MLD"
	}
	model := "KINWAVE"
	switch p.Opt.RouteModel {
	case project.SteadyFlow:
		model = "STEADY"
	case project.DynWave:
		model = "DYNWAVE"
	}
	w.Line(fmt.Sprintf("  Flow Units ............... %s", units))
	w.Line(fmt.Sprintf("  Flow Routing Method ...... %s", model))
	w.Line(fmt.Sprintf("  Routing Time Step ........ %.2f sec", p.Opt.RouteStep))
	w.Line(fmt.Sprintf("  Report Time Step ......... %d sec", p.Opt.ReportStep))
	w.Line(fmt.Sprintf("  Number of Subcatchments .. %d", len(p.Subcatch)))
	w.Line(fmt.Sprintf("  Number of Nodes .......... %d", len(p.Nodes)))
	w.Line(fmt.Sprintf("  Number of Links .......... %d", len(p.Links)))
	w.Line("")
}

// ControlActionsHeading opens the control-actions listing.
func (w *Writer) ControlActionsHeading() {
	w.Line("  Control Actions Taken")
	w.Line("  ---------------------")
}

// ControlAction records one setting change against its cause.
func (w *Writer) ControlAction(date float64, linkID string, setting float64, reason string) {
	var y, mo, d, h, mi, s int
	dtime.DecodeDateTime(date, &y, &mo, &d, &h, &mi, &s)
	w.Line(fmt.Sprintf("  %04d-%02d-%02d %02d:%02d:%02d  link %s setting = %.2f  by %s",
		y, mo, d, h, mi, s, linkID, setting, reason))
}

// Continuity writes the closing mass-balance and statistics summary.
func (w *Writer) Continuity(b *wbal.Budget) {
	w.Line("  **************************")
	w.Line("  Continuity and Statistics")
	w.Line("  **************************")
	w.Line(fmt.Sprintf("  Runoff continuity error .. %8.3f %%", b.RunoffError()))
	w.Line(fmt.Sprintf("  Flow continuity error .... %8.3f %%", b.FlowError()))
	w.Line(fmt.Sprintf("  Routing steps taken ...... %d", b.Steps))
	w.Line(fmt.Sprintf("  Average step (sec) ....... %.2f", b.AvgStepSize()))
	w.Line(fmt.Sprintf("  Minimum step (sec) ....... %.2f", b.MinStepSize))
	w.Line(fmt.Sprintf("  Maximum step (sec) ....... %.2f", b.MaxStepSize))
	w.Line("")
}

// SysTime stamps the wall-clock end of the analysis.
func (w *Writer) SysTime() {
	w.Line("  Analysis ended " + time.Now().Format("2006-01-02 15:04:05"))
}
