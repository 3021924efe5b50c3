package routing

import (
	"math"
	"testing"

	"github.com/maseology/udrr/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two junctions feeding an outfall through circular conduits
func net() *project.Project {
	p := project.New()
	p.Opt.RecomputeDuration()
	p.Nodes = append(p.Nodes,
		project.Node{ID: "J1", InvertElev: 100., FullDepth: 6.},
		project.Node{ID: "J2", InvertElev: 98., FullDepth: 6.},
		project.Node{ID: "O1", Type: project.OUTFALL, InvertElev: 95.})
	p.Outfalls = append(p.Outfalls, project.Outfall{Type: project.FreeOutfall})
	p.Nodes[2].SubIndex = 0
	x := project.Xsect{Type: project.Circular, YFull: 2., WMax: 2., AFull: math.Pi, RFull: 0.5}
	p.Links = append(p.Links,
		project.Link{ID: "C1", Node1: 0, Node2: 1, SubIndex: 0, Xsect: x, QFull: 20.},
		project.Link{ID: "C2", Node1: 1, Node2: 2, SubIndex: 1, Xsect: x, QFull: 20.})
	p.Conduits = append(p.Conduits,
		project.Conduit{Length: 400., Slope: 0.005},
		project.Conduit{Length: 400., Slope: 0.0075})
	p.Init()
	return p
}

func TestFixedStepForKinematicWave(t *testing.T) {
	p := net()
	k := Open(p, project.KinWave)
	assert.Equal(t, 15., k.RoutingStep(15.))
}

func TestCourantLimitedStep(t *testing.T) {
	p := net()
	p.Opt.CourantFactor = 1.0
	p.Opt.MinRouteStep = 0.5
	p.Links[0].NewDepth = 1.5
	p.Links[0].NewFlow = 30.
	k := Open(p, project.DynWave)
	dt := k.RoutingStep(30.)
	assert.Less(t, dt, 30.)
	assert.GreaterOrEqual(t, dt, p.Opt.MinRouteStep)
}

func TestInflowDrainsDownstream(t *testing.T) {
	p := net()
	k := Open(p, project.KinWave)
	p.Nodes[0].APIExtInflow = 5. // cfs at the head node

	var sumQ, maxIn float64
	const n = 500
	for i := 0; i < n; i++ {
		k.Execute(10., p.Opt.StartDateTime)
		sumQ += p.Links[0].NewFlow
		maxIn = math.Max(maxIn, p.Nodes[2].Inflow)
	}
	// the steady inflow passes through to the outfall on average
	assert.InDelta(t, 5., sumQ/n, 0.5)
	assert.Greater(t, maxIn, 0.)
	// outfall passes everything through
	assert.Equal(t, 0., p.Nodes[2].NewVolume)
}

func TestFlapGateBlocksReverseFlow(t *testing.T) {
	p := net()
	p.Opt.RouteModel = project.DynWave
	p.Links[1].HasFlapGate = true
	p.Nodes[2].NewDepth = 0.
	p.Nodes[1].NewDepth = 1. // water upstream, so the conduit carries flow
	k := Open(p, project.DynWave)
	// adverse gradient: downstream head far above upstream
	p.Nodes[1].InvertElev = 90.
	k.Execute(10., p.Opt.StartDateTime)
	assert.GreaterOrEqual(t, p.Links[1].NewFlow, 0.)
}

func TestFlowLimitRespected(t *testing.T) {
	p := net()
	p.Links[0].QLimit = 1.
	p.Nodes[0].NewDepth = 5.
	p.Nodes[0].NewVolume = p.NodeVolume(0, 5.)
	k := Open(p, project.KinWave)
	k.Execute(10., p.Opt.StartDateTime)
	assert.LessOrEqual(t, math.Abs(p.Links[0].NewFlow), 1.)
}

func TestFloodingWhenNodeOvertops(t *testing.T) {
	p := net()
	p.Opt.AllowPonding = false
	k := Open(p, project.KinWave)
	p.Nodes[1].APIExtInflow = 500.
	for i := 0; i < 50; i++ {
		k.Execute(10., p.Opt.StartDateTime)
	}
	n := &p.Nodes[1]
	require.Greater(t, n.Overflow, 0.)
	assert.InDelta(t, n.FullDepth, n.NewDepth, 1e-9)
}

func TestSettingAppliedNextStep(t *testing.T) {
	p := net()
	p.Links[0].TargetSetting = 0.
	k := Open(p, project.KinWave)
	k.Execute(10., p.Opt.StartDateTime)
	assert.Equal(t, 0., p.Links[0].Setting)
}

func TestParallelMatchesSerial(t *testing.T) {
	run := func(threads int) []float64 {
		p := net()
		// six more J1->J2 conduits so four workers really fan out
		// (the kernel fans out only with at least two links per worker)
		for j := 0; j < 6; j++ {
			p.Links = append(p.Links, p.Links[0])
		}
		p.Init()
		p.Opt.NumThreads = threads
		p.Nodes[0].APIExtInflow = 5.
		k := Open(p, project.KinWave)
		for i := 0; i < 100; i++ {
			k.Execute(10., p.Opt.StartDateTime)
		}
		return []float64{p.Links[0].NewFlow, p.Links[1].NewFlow, p.Nodes[1].NewDepth}
	}
	assert.Equal(t, run(1), run(4))
}
