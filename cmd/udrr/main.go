// udrr runs a drainage-model simulation from the command line:
//
//	udrr run model.inp model.rpt model.out
//
// The exit code is the engine's error code: 0 success, 10 the run
// issued warnings, hundreds-range validation and file errors, 4xx API
// errors.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uiprogress"
	"github.com/maseology/mmio"
	"github.com/maseology/udrr/sim"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	root := &cobra.Command{
		Use:          "udrr",
		Short:        "urban drainage rainfall-runoff-routing engine",
		SilenceUsage: true,
	}
	root.AddCommand(runCmd(), versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the engine version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(sim.Version())
		},
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <inp> <rpt> <out>",
		Short: "run a simulation to completion",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := run(args[0], args[1], args[2])
			os.Exit(code)
			return nil
		},
	}
	cmd.Flags().Int("threads", 0, "worker threads for the routing kernel")
	cmd.Flags().Float64("route-step", 0., "override the nominal routing step (sec)")
	cmd.Flags().Bool("averages", false, "report period-averaged results")
	viper.SetEnvPrefix("UDRR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlags(cmd.Flags())
	return cmd
}

func run(inp, rpt, out string) int {
	tt := mmio.NewTimer()

	e := sim.NewEngine()
	fmt.Println(" o  retrieving project data")
	if err := e.Open(inp, rpt, out); err != nil {
		return fail(e)
	}

	// config and environment overrides layered over the input file
	if n := viper.GetInt("threads"); n > 0 {
		e.Set(sim.SysNumThreads, 0, float64(n))
	}
	if rs := viper.GetFloat64("route-step"); rs > 0. {
		e.Set(sim.SysRouteStep, 0, rs)
	}
	if viper.GetBool("averages") {
		e.Project().Rpt.Averages = true
	}

	if err := e.Start(true); err != nil {
		e.End()
		e.Close()
		return fail(e)
	}

	uiprogress.Start()
	bar := uiprogress.AddBar(100).AppendCompleted().PrependElapsed()
	e.OnProgress(func(frac float64) {
		bar.Set(int(frac * 100.))
	}, 4.)

	fmt.Println(" o  simulating")
	for {
		elapsed, err := e.Step()
		if err != nil || elapsed <= 0. {
			break
		}
	}
	uiprogress.Stop()

	e.End()
	if e.ErrorCode() == 0 {
		fmt.Println(" o  writing output report")
		e.Report()
	}
	e.Close()
	tt.Lap("simulation complete")

	if code := e.ErrorCode(); code != 0 {
		return fail(e)
	}
	if w := e.Warnings(); w > 0 {
		color.Yellow(" completed with %d warning(s)", w)
		return 10
	}
	color.Green(" ok")
	return 0
}

func fail(e *sim.Engine) int {
	code, msg := e.Error()
	if msg == "" {
		msg = "unknown failure"
	}
	color.Red(" %s", msg)
	return code
}
