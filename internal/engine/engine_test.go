package engine_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/convsim/internal/circuit"
	"github.com/san-kum/convsim/internal/config"
	"github.com/san-kum/convsim/internal/dynamo"
	"github.com/san-kum/convsim/internal/engine"
	"github.com/san-kum/convsim/internal/metrics"
	"github.com/san-kum/convsim/internal/models"
	"github.com/san-kum/convsim/internal/results"
	"github.com/san-kum/convsim/internal/sim"
)

func buckCircuit(skip circuit.ComponentType) *circuit.Circuit {
	c := circuit.New("buck")
	parts := []*circuit.Component{
		circuit.MustComponent(circuit.VoltageSource, "Vin", map[string]float64{circuit.ParamVoltage: 24}),
		circuit.MustComponent(circuit.MOSFET, "Q1", nil),
		circuit.MustComponent(circuit.Diode, "D1", nil),
		circuit.MustComponent(circuit.Inductor, "L1", map[string]float64{circuit.ParamInductance: 100e-6}),
		circuit.MustComponent(circuit.Capacitor, "C1", map[string]float64{circuit.ParamCapacitance: 470e-6}),
		circuit.MustComponent(circuit.Resistor, "Rload", map[string]float64{circuit.ParamResistance: 10}),
		circuit.MustComponent(circuit.PWMSource, "Gate", map[string]float64{
			circuit.ParamFrequency: 100e3,
			circuit.ParamDutyCycle: 0.5,
		}),
	}
	for _, p := range parts {
		if p.Type != skip {
			c.Add(p)
		}
	}
	return c
}

func steadyMean(r *results.Result, name string) float64 {
	v, ok := r.Get(name)
	Expect(ok).To(BeTrue(), "missing variable %s", name)
	start := metrics.SteadyState(r.Time, 0.5)
	return metrics.MeanOf(v[start:])
}

var _ = Describe("Engine", func() {
	var (
		eng *engine.Engine
		ctx context.Context
	)

	BeforeEach(func() {
		eng = engine.New()
		ctx = context.Background()
	})

	Describe("buck converter", func() {
		var res *results.Result

		BeforeEach(func() {
			var err error
			res, err = eng.Simulate(ctx, buckCircuit(""), engine.Params{EndTime: 5e-3, StepSize: 0.1e-6})
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports the buck topology", func() {
			Expect(res.Topology).To(Equal("buck"))
			Expect(res.CircuitID).NotTo(BeEmpty())
		})

		It("samples a strictly increasing grid starting at zero", func() {
			Expect(res.Time[0]).To(Equal(0.0))
			Expect(res.Len()).To(BeNumerically("~", 50001, 1))
			for k := 1; k < res.Len(); k++ {
				Expect(res.Time[k]).To(BeNumerically(">", res.Time[k-1]))
			}
		})

		It("keeps every variable aligned with the time points", func() {
			for _, name := range res.Names() {
				v, _ := res.Get(name)
				Expect(v).To(HaveLen(res.Len()), name)
			}
		})

		It("settles near D*Vin", func() {
			Expect(steadyMean(res, models.VarCapacitorVoltage)).To(BeNumerically("~", 12.0, 1.2))
		})

		It("has a positive, finite voltage ripple", func() {
			v, _ := res.Get(models.VarCapacitorVoltage)
			ripple := metrics.RippleOf(v[metrics.SteadyState(res.Time, 0.5):])
			Expect(ripple).To(BeNumerically(">", 0))
			Expect(math.IsInf(ripple, 0) || math.IsNaN(ripple)).To(BeFalse())
		})

		It("switches at the PWM frequency", func() {
			gate, _ := res.Get(models.VarSwitchState)
			Expect(metrics.MeanOf(gate)).To(BeNumerically("~", 0.5, 0.01))
		})
	})

	It("is deterministic", func() {
		c := buckCircuit("")
		p := engine.Params{EndTime: 1e-3, StepSize: 1e-6}

		a, err := eng.Simulate(ctx, c, p)
		Expect(err).NotTo(HaveOccurred())
		b, err := eng.Simulate(ctx, c, p)
		Expect(err).NotTo(HaveOccurred())

		Expect(b.Time).To(Equal(a.Time))
		Expect(b.Variables).To(Equal(a.Variables))
	})

	DescribeTable("rejects impossible time parameters before integrating",
		func(p engine.Params) {
			_, err := eng.Simulate(ctx, buckCircuit(""), p)
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
		},
		Entry("step larger than end time", engine.Params{EndTime: 1e-3, StepSize: 2e-3}),
		Entry("zero end time", engine.Params{EndTime: 0, StepSize: 1e-6}),
		Entry("negative step", engine.Params{EndTime: 1e-3, StepSize: -1e-6}),
	)

	It("rejects a zero load resistance", func() {
		c := buckCircuit("")
		engine.SetParam(c, circuit.Resistor, circuit.ParamResistance, 0)

		_, err := eng.Simulate(ctx, c, engine.Params{EndTime: 1e-3, StepSize: 1e-6})
		Expect(err).To(MatchError(dynamo.ErrConfiguration))
	})

	It("rejects connections to missing components", func() {
		c := buckCircuit("")
		c.Connections = append(c.Connections, circuit.Connection{
			A: circuit.Endpoint{ComponentID: "ghost", Terminal: "t1"},
			B: circuit.Endpoint{ComponentID: "ghost2", Terminal: "t1"},
		})

		_, err := eng.Simulate(ctx, c, engine.Params{EndTime: 1e-3, StepSize: 1e-6})
		Expect(err).To(MatchError(dynamo.ErrConfiguration))
	})

	It("falls back to the generic model when the inductor is missing", func() {
		res, err := eng.Simulate(ctx, buckCircuit(circuit.Inductor), engine.Params{EndTime: 1e-4, StepSize: 1e-6})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Topology).To(Equal("generic"))

		var states []string
		for _, name := range res.Names() {
			if name[:2] == "v_" || name[:2] == "i_" {
				states = append(states, name)
			}
		}
		Expect(states).To(HaveLen(1))
	})

	It("matches exponential decay for the rc preset", func() {
		p := config.GetPreset("rc")
		e := engine.New(engine.WithOptions(sim.Options{
			RelTol: 1e-8, AbsTol: 1e-10, MaxSteps: 1_000_000, Method: sim.MethodRK45,
		}))

		res, err := e.Simulate(ctx, p.Circuit(), engine.Params{EndTime: p.EndTime, StepSize: p.StepSize})
		Expect(err).NotTo(HaveOccurred())

		var v []float64
		for _, name := range res.Names() {
			if name[:2] == "v_" {
				v, _ = res.Get(name)
			}
		}
		Expect(v).To(HaveLen(res.Len()))

		tau := models.ReferenceResistance * 1e-6
		for k, ts := range res.Time {
			Expect(v[k]).To(BeNumerically("~", 5*math.Exp(-ts/tau), 1e-4))
		}
	})

	It("steps the boost preset up to Vin/(1-D)", func() {
		p := config.GetPreset("boost")
		res, err := eng.Simulate(ctx, p.Circuit(), engine.Params{EndTime: p.EndTime, StepSize: p.StepSize})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Topology).To(Equal("boost"))
		Expect(steadyMean(res, models.VarCapacitorVoltage)).To(BeNumerically("~", 24.0, 24*0.15))
	})

	It("completes a buck run with the default settings", func() {
		defaults := config.DefaultConfig().Simulation
		res, err := eng.Simulate(ctx, config.GetPreset("buck").Circuit(), engine.Params{
			EndTime:  defaults.EndTime,
			StepSize: defaults.StepSize,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Len()).To(Equal(1_000_001))
		Expect(res.Time[res.Len()-1]).To(BeNumerically("~", defaults.EndTime, 1e-12))
	})

	It("rejects a grid finer than the step limit without allocating it", func() {
		_, err := eng.Simulate(ctx, config.GetPreset("buck").Circuit(), engine.Params{EndTime: 1, StepSize: 1e-16})
		Expect(err).To(MatchError(dynamo.ErrConfiguration))
	})

	It("aborts when the context is canceled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := eng.Simulate(cctx, buckCircuit(""), engine.Params{EndTime: 1e-3, StepSize: 1e-6})
		Expect(err).To(MatchError(dynamo.ErrCanceled))
	})

	Describe("SimulateAll", func() {
		It("returns one outcome per job in order", func() {
			jobs := []engine.Job{
				{Circuit: config.GetPreset("buck").Circuit(), Params: engine.Params{EndTime: 1e-4, StepSize: 1e-6}},
				{Circuit: buckCircuit(""), Params: engine.Params{EndTime: 0, StepSize: 1e-6}},
				{Circuit: config.GetPreset("rc").Circuit(), Params: engine.Params{EndTime: 1e-4, StepSize: 1e-6}},
			}

			out := eng.SimulateAll(ctx, jobs)
			Expect(out).To(HaveLen(3))
			Expect(out[0].Err).NotTo(HaveOccurred())
			Expect(out[0].Result.Topology).To(Equal("buck"))
			Expect(out[1].Err).To(MatchError(dynamo.ErrConfiguration))
			Expect(out[2].Err).NotTo(HaveOccurred())
			Expect(out[2].Result.Topology).To(Equal("generic"))
		})
	})

	It("applies parameter overrides to the switching policy", func() {
		p := engine.Params{EndTime: 1e-4, StepSize: 1e-6}
		withDuty := func(d float64) []float64 {
			c := buckCircuit("")
			engine.SetParam(c, circuit.PWMSource, circuit.ParamDutyCycle, d)
			res, err := eng.Simulate(ctx, c, p)
			Expect(err).NotTo(HaveOccurred())
			gate, _ := res.Get(models.VarSwitchState)
			return gate
		}

		Expect(metrics.MeanOf(withDuty(0.8))).To(BeNumerically(">", metrics.MeanOf(withDuty(0.2))))
	})
})
