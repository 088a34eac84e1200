package experiment_test

import (
	"encoding/json"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vlab/internal/clock"
	"github.com/san-kum/vlab/internal/experiment"
	"github.com/san-kum/vlab/internal/formula"
	"github.com/san-kum/vlab/internal/lab"
	"github.com/san-kum/vlab/internal/oscillator"
	"github.com/san-kum/vlab/internal/titration"
)

var _ = Describe("Controller", func() {
	var (
		manual *clock.Manual
		ctl    *experiment.Controller
		events []lab.Event
	)

	BeforeEach(func() {
		n := 0
		manual = clock.NewManual()
		ctl = experiment.NewController(
			experiment.WithClock(manual),
			experiment.WithRunIDs(func() string { n++; return fmt.Sprintf("run-%d", n) }),
		)
		events = nil
		ctl.Subscribe(func(ev lab.Event) { events = append(events, ev) })
	})

	kinds := func(kind lab.EventKind) int {
		count := 0
		for _, ev := range events {
			if ev.Kind == kind {
				count++
			}
		}
		return count
	}

	Context("before an experiment is selected", func() {
		It("rejects every operation", func() {
			Expect(ctl.Start()).To(MatchError(lab.ErrNoExperiment))
			Expect(ctl.Stop()).To(MatchError(lab.ErrNoExperiment))
			Expect(ctl.Reset()).To(MatchError(lab.ErrNoExperiment))
			Expect(ctl.SetParam("length", 1)).To(MatchError(lab.ErrNoExperiment))
			_, err := ctl.Snapshot()
			Expect(err).To(MatchError(lab.ErrNoExperiment))
		})

		It("rejects unknown experiments", func() {
			Expect(ctl.Select("electrolysis")).To(MatchError(lab.ErrUnknownExperiment))
			Expect(ctl.Kind()).To(BeEmpty())
		})
	})

	Context("acid-base titration", func() {
		BeforeEach(func() {
			Expect(ctl.Select(lab.KindTitration)).To(Succeed())
		})

		It("starts in setup with a full burette", func() {
			snap, err := ctl.Snapshot()
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Status).To(Equal(lab.StatusSetup))
			Expect(snap.Burette.CurrentVolume).To(Equal(50.0))
			Expect(snap.Flask.ColorPhase).To(Equal(lab.PhaseClear))
			Expect(manual.Interval()).To(BeZero())
		})

		It("auto-stops when the burette is empty", func() {
			Expect(ctl.Start()).To(Succeed())
			Expect(manual.Interval()).To(Equal(clock.TitrationInterval))

			manual.RunUntilStopped(10000)

			snap, _ := ctl.Snapshot()
			Expect(snap.Status).To(Equal(lab.StatusCompleted))
			Expect(snap.Burette.IsFlowing).To(BeFalse())
			Expect(snap.Burette.CurrentVolume).To(BeZero())
			Expect(snap.Elapsed).To(BeNumerically("~", 100, 1e-9))
			Expect(manual.Running()).To(BeFalse())
			Expect(kinds(lab.EventEndpointReached)).To(Equal(1))
			Expect(kinds(lab.EventTick)).To(Equal(500))

			r, err := ctl.Report()
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Measured).To(Equal(50.0))
			Expect(r.Accuracy).To(Equal(formula.NeedsImprovement))
		})

		It("captures the student's endpoint on manual stop", func() {
			ctl.Subscribe(func(ev lab.Event) {
				if ev.Kind == lab.EventEndpointReached {
					Expect(ctl.Stop()).To(Succeed())
				}
			})
			Expect(ctl.Start()).To(Succeed())
			manual.RunUntilStopped(10000)

			Expect(ctl.Status()).To(Equal(lab.StatusCompleted))
			Expect(manual.Running()).To(BeFalse())

			r, err := ctl.Report()
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Measured).To(Equal(25.0))
			Expect(r.PercentError).To(BeZero())
			Expect(r.Accuracy).To(Equal(formula.Excellent))
		})

		It("rejects invalid transitions without changing state", func() {
			Expect(ctl.Stop()).To(MatchError(lab.ErrInvalidTransition))
			_, err := ctl.Report()
			Expect(err).To(MatchError(lab.ErrInvalidTransition))

			Expect(ctl.Start()).To(Succeed())
			manual.Advance(10 * clock.TitrationInterval)
			before, _ := ctl.Snapshot()

			Expect(ctl.Start()).To(MatchError(lab.ErrInvalidTransition))
			Expect(ctl.SetParam(titration.ParamInitialVolume, 20)).To(MatchError(lab.ErrInvalidTransition))

			after, _ := ctl.Snapshot()
			Expect(after).To(Equal(before))
		})

		It("reports no data when stopped before the first drop", func() {
			Expect(ctl.Start()).To(Succeed())
			Expect(ctl.Stop()).To(Succeed())

			r, err := ctl.Report()
			Expect(err).To(MatchError(lab.ErrDegenerateMeasurement))
			Expect(r.NoData).To(BeTrue())
			Expect(r.Accuracy).To(Equal(lab.NoDataLabel))
		})

		It("is idempotent under repeated reset", func() {
			Expect(ctl.Start()).To(Succeed())
			manual.Advance(30 * clock.TitrationInterval)
			Expect(ctl.Stop()).To(Succeed())

			Expect(ctl.Reset()).To(Succeed())
			once, _ := ctl.Snapshot()
			Expect(ctl.Reset()).To(Succeed())
			twice, _ := ctl.Snapshot()

			Expect(twice).To(Equal(once))
			Expect(once.Status).To(Equal(lab.StatusSetup))
			Expect(once.RunID).To(BeEmpty())
			Expect(once.Burette.CurrentVolume).To(Equal(50.0))
		})

		It("stamps events with the run id", func() {
			Expect(ctl.Start()).To(Succeed())
			manual.Step()

			last := events[len(events)-1]
			Expect(last.Kind).To(Equal(lab.EventTick))
			Expect(last.RunID).To(Equal("run-1"))
			Expect(last.Snapshot.Status).To(Equal(lab.StatusRunning))

			Expect(ctl.Reset()).To(Succeed())
			Expect(ctl.Start()).To(Succeed())
			snap, _ := ctl.Snapshot()
			Expect(snap.RunID).To(Equal("run-2"))
		})

		It("exposes a serializable assistant state", func() {
			Expect(ctl.Start()).To(Succeed())
			manual.Advance(5 * clock.TitrationInterval)

			data, err := json.Marshal(ctl.AssistantState())
			Expect(err).NotTo(HaveOccurred())

			var decoded map[string]any
			Expect(json.Unmarshal(data, &decoded)).To(Succeed())
			Expect(decoded).To(HaveKeyWithValue("status", "running"))
			Expect(decoded).To(HaveKeyWithValue("experiment", "titration"))
			Expect(decoded["measurements"]).To(HaveKeyWithValue(titration.MeasureVolumeAdded, BeNumerically("~", 0.5, 1e-9)))
			Expect(ctl.Hint()).To(ContainSubstring("first sign of color change"))
		})
	})

	Context("pendulum", func() {
		BeforeEach(func() {
			Expect(ctl.Select(lab.KindPendulum)).To(Succeed())
		})

		It("completes after ten cycles", func() {
			Expect(ctl.ApplyParams(map[string]float64{
				oscillator.ParamAngle:   15,
				oscillator.ParamLength:  1.0,
				oscillator.ParamGravity: 9.8,
			})).To(Succeed())
			Expect(ctl.Start()).To(Succeed())
			Expect(manual.Interval()).To(Equal(clock.FrameInterval))

			manual.RunUntilStopped(1e6)

			snap, _ := ctl.Snapshot()
			Expect(snap.Status).To(Equal(lab.StatusCompleted))
			Expect(snap.Oscillator.CycleCount).To(Equal(10))
			Expect(kinds(lab.EventCycleCompleted)).To(Equal(10))

			r, err := ctl.Report()
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Theoretical).To(Equal(formula.PendulumPeriod(1.0, 9.8)))
			Expect(r.Accuracy).To(Equal(formula.Excellent))
		})

		It("locks parameters while running", func() {
			Expect(ctl.Start()).To(Succeed())
			manual.Advance(clock.FrameInterval * 30)

			Expect(ctl.SetParam(oscillator.ParamLength, 2.0)).To(MatchError(lab.ErrInvalidTransition))
			params, _ := ctl.Params()
			Expect(params).To(HaveKeyWithValue(oscillator.ParamLength, 1.0))

			manual.RunUntilStopped(1e6)
			snap, _ := ctl.Snapshot()
			Expect(snap.Oscillator.TheoreticalPeriod).To(Equal(formula.PendulumPeriod(1.0, 9.8)))
			Expect(snap.Oscillator.PeriodEstimate).To(BeNumerically("~", snap.Oscillator.TheoreticalPeriod, 0.02))
		})

		It("rejects out-of-domain parameters", func() {
			Expect(ctl.SetParam(oscillator.ParamGravity, 0)).To(MatchError(lab.ErrInvalidParameter))
			Expect(ctl.SetParam(oscillator.ParamMass, 1)).To(MatchError(lab.ErrUnknownParameter))
		})

		It("reports no data before two cycles", func() {
			Expect(ctl.Start()).To(Succeed())
			manual.Advance(clock.FrameInterval * 10)
			Expect(ctl.Stop()).To(Succeed())

			r, err := ctl.Report()
			Expect(err).To(MatchError(lab.ErrDegenerateMeasurement))
			Expect(r.NoData).To(BeTrue())
		})
	})

	Context("switching experiments", func() {
		It("abandons a running experiment", func() {
			Expect(ctl.Select(lab.KindSpring)).To(Succeed())
			Expect(ctl.Start()).To(Succeed())
			manual.Advance(clock.FrameInterval * 10)

			Expect(ctl.Select(lab.KindPermanganometry)).To(Succeed())
			Expect(manual.Running()).To(BeFalse())
			Expect(ctl.Status()).To(Equal(lab.StatusSetup))

			snap, _ := ctl.Snapshot()
			Expect(snap.Kind).To(Equal(lab.KindPermanganometry))
			Expect(snap.Flask.SolutionLabel).To(ContainSubstring("Fe²⁺"))
		})
	})

	Context("subscriptions", func() {
		It("stops delivering after unsubscribe", func() {
			var seen int
			unsubscribe := ctl.Subscribe(func(lab.Event) { seen++ })

			Expect(ctl.Select(lab.KindSpring)).To(Succeed())
			Expect(seen).To(Equal(1))

			unsubscribe()
			unsubscribe()
			Expect(ctl.Start()).To(Succeed())
			manual.Advance(clock.FrameInterval * 5)
			Expect(seen).To(Equal(1))
		})
	})
})
