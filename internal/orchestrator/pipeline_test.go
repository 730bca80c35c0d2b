package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jmcortes/newswire/internal/config"
	"github.com/jmcortes/newswire/internal/errors"
	"github.com/jmcortes/newswire/internal/event"
	"github.com/jmcortes/newswire/internal/logging"
	"github.com/jmcortes/newswire/internal/registry"
	"github.com/jmcortes/newswire/internal/worker"
)

// stubWorker is a scripted pipeline stage.
type stubWorker struct {
	name   string
	invoke func(in worker.Input) (string, error)
	inputs []worker.Input
}

func (s *stubWorker) Name() string { return s.name }

func (s *stubWorker) Invoke(ctx context.Context, in worker.Input) (string, error) {
	s.inputs = append(s.inputs, in)
	return s.invoke(in)
}

func fixedOutput(name, out string) *stubWorker {
	return &stubWorker{name: name, invoke: func(worker.Input) (string, error) {
		return out, nil
	}}
}

type fixture struct {
	registry   *registry.Registry
	bus        *event.Bus
	researcher *stubWorker
	validator  *stubWorker
	composer   *stubWorker
	pipeline   *Pipeline
	sessionID  string
	events     <-chan event.Event
}

func newFixture(t *testing.T, researcher, validator, composer *stubWorker) *fixture {
	t.Helper()

	reg := registry.New()
	sess, err := reg.Create("ai in medicine")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	bus := event.NewBus(256, nil)
	ch, cancel := bus.Subscribe(sess.ID)
	t.Cleanup(cancel)

	cfg := config.Default().Pipeline
	return &fixture{
		registry:   reg,
		bus:        bus,
		researcher: researcher,
		validator:  validator,
		composer:   composer,
		pipeline:   New(reg, bus, researcher, validator, composer, cfg, nil),
		sessionID:  sess.ID,
		events:     ch,
	}
}

func (f *fixture) eventTypes() []string {
	var types []string
	for {
		select {
		case ev, ok := <-f.events:
			if !ok {
				return types
			}
			types = append(types, ev.Type)
		case <-time.After(time.Second):
			return types
		}
	}
}

func TestRunApprovedFirstCycle(t *testing.T) {
	f := newFixture(t,
		fixedOutput(worker.StageResearcher, "sourced report"),
		fixedOutput(worker.StageValidator, "VERDICT: APPROVED\nall checks pass"),
		fixedOutput(worker.StageComposer, "# Headline\n\n**Lead.**"),
	)

	res, err := f.pipeline.Run(context.Background(), f.sessionID)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", res.Iterations)
	}
	if !strings.HasPrefix(res.Article, "# Headline") {
		t.Errorf("Article = %q", res.Article)
	}
	if len(res.Cycles) != 1 || res.Cycles[0].Verdict != "approved" {
		t.Errorf("Cycles = %+v", res.Cycles)
	}

	sess, err := f.registry.Get(f.sessionID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if sess.Status != registry.StatusCompleted {
		t.Errorf("Status = %q, want completed", sess.Status)
	}
	if sess.Result == "" || sess.Error != "" {
		t.Errorf("completed session has Result=%q Error=%q", sess.Result, sess.Error)
	}

	want := []string{
		event.TypeSessionStart,
		event.TypeStageStart, event.TypeStageFinish,
		event.TypeStageStart, event.TypeStageFinish,
		event.TypeStageStart, event.TypeStageFinish,
		event.TypeSessionFinish,
	}
	got := f.eventTypes()
	if len(got) != len(want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunBacktracksThenApproves(t *testing.T) {
	verdicts := []string{
		"VEREDICTO: RECHAZADO, falta fuente oficial para un tema global",
		"VEREDICTO: RECHAZADO, cifras inconsistentes entre fuentes",
		"VEREDICTO: APROBADO",
	}
	call := 0
	validator := &stubWorker{name: worker.StageValidator, invoke: func(worker.Input) (string, error) {
		out := verdicts[call]
		call++
		return out, nil
	}}

	f := newFixture(t,
		fixedOutput(worker.StageResearcher, "sourced report"),
		validator,
		fixedOutput(worker.StageComposer, "# Headline"),
	)

	res, err := f.pipeline.Run(context.Background(), f.sessionID)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Iterations != 3 {
		t.Errorf("Iterations = %d, want 3", res.Iterations)
	}
	if len(res.Cycles) != 3 {
		t.Fatalf("Cycles = %+v", res.Cycles)
	}
	if res.Cycles[0].Verdict != "rejected" || res.Cycles[2].Verdict != "approved" {
		t.Errorf("cycle verdicts = %q, %q, %q",
			res.Cycles[0].Verdict, res.Cycles[1].Verdict, res.Cycles[2].Verdict)
	}

	// The rejected audits thread back to research as feedback while the
	// topic stays untouched.
	second := f.researcher.inputs[1]
	if !strings.Contains(second.Feedback, "falta fuente oficial") {
		t.Errorf("second research feedback = %q", second.Feedback)
	}
	if second.Topic != "ai in medicine" {
		t.Errorf("topic mutated to %q", second.Topic)
	}
	third := f.researcher.inputs[2]
	if !strings.Contains(third.Feedback, "cifras inconsistentes") {
		t.Errorf("third research feedback = %q", third.Feedback)
	}

	types := f.eventTypes()
	backtracks := 0
	for _, typ := range types {
		if typ == event.TypePipelineBacktrack {
			backtracks++
		}
	}
	if backtracks != 2 {
		t.Errorf("backtrack events = %d, want 2; all events: %v", backtracks, types)
	}
	if types[len(types)-1] != event.TypeSessionFinish {
		t.Errorf("last event = %q, want session.finish", types[len(types)-1])
	}
}

func TestRunExhaustsIterations(t *testing.T) {
	f := newFixture(t,
		fixedOutput(worker.StageResearcher, "sourced report"),
		fixedOutput(worker.StageValidator, "VERDICT: REJECTED, unsupported claims"),
		fixedOutput(worker.StageComposer, "never reached"),
	)

	_, err := f.pipeline.Run(context.Background(), f.sessionID)
	if !errors.Is(err, errors.ErrIterationsExhausted) {
		t.Fatalf("error = %v, want ErrIterationsExhausted", err)
	}

	sess, _ := f.registry.Get(f.sessionID)
	if sess.Status != registry.StatusFailed {
		t.Errorf("Status = %q, want failed", sess.Status)
	}
	if sess.Result != "" || sess.Error == "" {
		t.Errorf("failed session has Result=%q Error=%q", sess.Result, sess.Error)
	}
	if len(f.composer.inputs) != 0 {
		t.Error("composer invoked despite rejection")
	}

	types := f.eventTypes()
	if types[len(types)-1] != event.TypeSessionError {
		t.Errorf("last event = %q, want session.error", types[len(types)-1])
	}
}

func TestRunAmbiguousVerdictBacktracks(t *testing.T) {
	call := 0
	validator := &stubWorker{name: worker.StageValidator, invoke: func(worker.Input) (string, error) {
		call++
		if call == 1 {
			return "the report seems mostly fine, some concerns remain", nil
		}
		return "VERDICT: APPROVED", nil
	}}

	f := newFixture(t,
		fixedOutput(worker.StageResearcher, "sourced report"),
		validator,
		fixedOutput(worker.StageComposer, "# Headline"),
	)

	res, err := f.pipeline.Run(context.Background(), f.sessionID)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", res.Iterations)
	}
	if res.Cycles[0].Verdict != "ambiguous" {
		t.Errorf("first cycle verdict = %q, want ambiguous", res.Cycles[0].Verdict)
	}

	found := false
	for {
		select {
		case ev, ok := <-f.events:
			if !ok {
				if !found {
					t.Error("no backtrack event published")
				}
				return
			}
			if ev.Type == event.TypePipelineBacktrack {
				found = true
				if ev.Data["verdict"] != "ambiguous" {
					t.Errorf("backtrack verdict = %v, want ambiguous", ev.Data["verdict"])
				}
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
}

func TestRunWorkerFailure(t *testing.T) {
	boom := errors.NewPipelineError("research generation failed", errors.New("upstream down"))
	researcher := &stubWorker{name: worker.StageResearcher, invoke: func(worker.Input) (string, error) {
		return "", boom
	}}

	f := newFixture(t, researcher,
		fixedOutput(worker.StageValidator, "unreached"),
		fixedOutput(worker.StageComposer, "unreached"),
	)

	_, err := f.pipeline.Run(context.Background(), f.sessionID)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want the stage failure", err)
	}

	sess, _ := f.registry.Get(f.sessionID)
	if sess.Status != registry.StatusFailed {
		t.Errorf("Status = %q, want failed", sess.Status)
	}
	if len(f.validator.inputs) != 0 {
		t.Error("validator invoked after researcher failure")
	}
}

func TestRunUnknownSession(t *testing.T) {
	f := newFixture(t,
		fixedOutput(worker.StageResearcher, "r"),
		fixedOutput(worker.StageValidator, "VERDICT: APPROVED"),
		fixedOutput(worker.StageComposer, "a"),
	)

	_, err := f.pipeline.Run(context.Background(), "no-such-session")
	if !errors.IsNotFound(err) {
		t.Errorf("error = %v, want not-found", err)
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name  string
		audit string
		want  Verdict
	}{
		{"spanish approval", "VEREDICTO: APROBADO", VerdictApproved},
		{"spanish rejection", "VEREDICTO: RECHAZADO, falta fuente oficial", VerdictRejected},
		{"english approval", "verdict: approved\nno critical issues", VerdictApproved},
		{"english rejection", "Verdict: REJECTED for missing triangulation", VerdictRejected},
		{"rejection wins over approval", "not APPROVED, REJECTED for bias", VerdictRejected},
		{"lowercase mixed", "el reporte fue aprobado sin observaciones", VerdictApproved},
		{"no token", "the report seems mostly fine", VerdictAmbiguous},
		{"empty", "", VerdictAmbiguous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseVerdict(tt.audit); got != tt.want {
				t.Errorf("ParseVerdict(%q) = %v, want %v", tt.audit, got, tt.want)
			}
		})
	}
}

func TestVerdictString(t *testing.T) {
	if VerdictApproved.String() != "approved" || !VerdictApproved.Approved() {
		t.Error("approved verdict misreported")
	}
	if VerdictRejected.String() != "rejected" || VerdictRejected.Approved() {
		t.Error("rejected verdict misreported")
	}
	if VerdictAmbiguous.String() != "ambiguous" {
		t.Error("ambiguous verdict misreported")
	}
}

func TestFormatArticleFallsBackToRaw(t *testing.T) {
	log := logging.NopLogger()
	if got := formatArticle("", log); got != "" {
		t.Errorf("formatArticle(\"\") = %q", got)
	}
	raw := "# Title\n\nBody text."
	if got := formatArticle(raw, log); !strings.Contains(got, "Body text.") {
		t.Errorf("formatArticle lost content: %q", got)
	}
}
