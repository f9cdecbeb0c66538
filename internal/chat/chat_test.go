package chat

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"cityops/internal/scenario"
	"cityops/internal/schedule"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestClassifyDistrictFirstMatch(t *testing.T) {
	cases := map[string]string{
		"compare north and central":         scenario.DistrictCentral,
		"Northern district vs CENTRAL":      scenario.DistrictCentral,
		"how is the north doing":            scenario.DistrictNorthern,
		"show the northern district":        scenario.DistrictNorthern,
		"eastern substations":               scenario.DistrictEastern,
		"downtown traffic":                  scenario.DistrictCentral,
		"the waterfront and the south side": scenario.DistrictSouthern,
	}
	for in, want := range cases {
		got, ok := Classify(DistrictKeywords, in)
		if !ok || got != want {
			t.Errorf("Classify(%q)=%q,%v want %q", in, got, ok, want)
		}
	}
	if _, ok := Classify(DistrictKeywords, "citywide totals"); ok {
		t.Errorf("expected no district match")
	}
}

func TestDistrictTableOrder(t *testing.T) {
	pos := map[string]int{}
	for i, kw := range DistrictKeywords {
		pos[kw.Match] = i
	}
	if !(pos["central"] < pos["northern"] && pos["northern"] < pos["north"]) {
		t.Fatalf("central must precede northern which must precede north: %v", pos)
	}
}

func TestClassifyIntent(t *testing.T) {
	cases := map[string]string{
		"please refine this":          IntentRefine,
		"Exclude the outliers":        IntentExclude,
		"clear the filter":            IntentClear,
		"show all districts":          IntentClear,
		"remove and then recalculate": IntentExclude,
	}
	for in, want := range cases {
		if got, _ := Classify(IntentKeywords, in); got != want {
			t.Errorf("Classify(%q)=%q want %q", in, got, want)
		}
	}
}

func newResponder(sections ...Section) *Responder {
	return NewResponder(Options{
		Scripts: map[string]Script{
			AreaInsights: {Area: AreaInsights, Sections: sections},
			AreaUpload:   DefaultScripts()[AreaUpload],
		},
		RefineDelay: 10 * time.Millisecond,
	})
}

func TestTurnSaturation(t *testing.T) {
	r := newResponder(Section{Name: "summary", Responses: []string{"one", "two", "three"}})
	s, err := r.NewSession(AreaInsights, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer s.Close()

	want := []string{"one", "two", "three", "three", "three"}
	for i, w := range want {
		rep := r.Reply(s, "tell me more")
		if rep.Text != w {
			t.Fatalf("turn %d: got %q want %q", i+1, rep.Text, w)
		}
	}
	if st := s.State(); st.Turns != 5 || len(st.Transcript) != 10 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestTurnsArePerSection(t *testing.T) {
	r := newResponder(
		Section{Name: "a", Responses: []string{"a1", "a2"}},
		Section{Name: "b", Responses: []string{"b1", "b2"}},
	)
	s, _ := r.NewSession(AreaInsights, nil)
	defer s.Close()

	r.Reply(s, "hello")
	if err := s.SelectSection("b"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := r.Reply(s, "hello").Text; got != "b1" {
		t.Fatalf("got %q want b1", got)
	}
	_ = s.SelectSection("a")
	if got := r.Reply(s, "hello").Text; got != "a2" {
		t.Fatalf("got %q want a2", got)
	}
	if err := s.SelectSection("missing"); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("expected ErrUnknownSection, got %v", err)
	}
}

func TestExcludeFlips(t *testing.T) {
	r := newResponder(Section{Name: "summary", Responses: []string{"x"}})
	s, _ := r.NewSession(AreaInsights, nil)
	defer s.Close()

	if !r.Reply(s, "exclude outliers").State.Excluded {
		t.Fatalf("expected excluded")
	}
	if r.Reply(s, "exclude outliers").State.Excluded {
		t.Fatalf("expected included again")
	}
}

func TestRefineCompletesAfterDelay(t *testing.T) {
	r := newResponder(Section{Name: "summary", Responses: []string{"x"}})
	s, _ := r.NewSession(AreaInsights, nil)
	defer s.Close()

	rep := r.Reply(s, "refine the analysis")
	if !rep.State.Refining || rep.State.Refined {
		t.Fatalf("expected refining, got %+v", rep.State)
	}
	if again := r.Reply(s, "refine"); again.Text != refineBusyReply {
		t.Fatalf("expected busy reply, got %q", again.Text)
	}
	deadline := time.Now().Add(time.Second)
	for !s.State().Refined {
		if time.Now().After(deadline) {
			t.Fatalf("refinement never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	st := s.State()
	if st.Refining {
		t.Fatalf("refining flag should be cleared")
	}
	if last := st.Transcript[len(st.Transcript)-1]; last.Text != refineDoneReply {
		t.Fatalf("expected completion message, got %q", last.Text)
	}
}

func TestCloseCancelsRefine(t *testing.T) {
	r := NewResponder(Options{RefineDelay: 20 * time.Millisecond})
	sched := schedule.New()
	defer sched.Close()
	s, err := r.NewSession(AreaInsights, sched)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	r.Reply(s, "refine")
	if sched.Pending() != 1 {
		t.Fatalf("expected a pending refine task")
	}
	s.Close()
	if sched.Pending() != 0 {
		t.Fatalf("close should cancel the refine task")
	}
	time.Sleep(40 * time.Millisecond)
	if st := s.State(); st.Refined || st.Refining {
		t.Fatalf("state changed after close: %+v", st)
	}
}

func TestUploadDistrictFilter(t *testing.T) {
	r := NewResponder(Options{})
	s, _ := r.NewSession(AreaUpload, nil)
	defer s.Close()

	rep := r.Reply(s, "Only show me the central and north data")
	if rep.District != scenario.DistrictCentral || rep.State.DistrictFilter != scenario.DistrictCentral {
		t.Fatalf("unexpected filter %+v", rep)
	}
	if rep.RevealAfter != 0 {
		t.Fatalf("zero response delay expected, got %v", rep.RevealAfter)
	}
	rep = r.Reply(s, "clear")
	if rep.State.DistrictFilter != "" || rep.Intent != IntentClear {
		t.Fatalf("filter not cleared: %+v", rep)
	}
	rep = r.Reply(s, "what is in this file?")
	if rep.Text == "" {
		t.Fatalf("expected canned guidance")
	}
}

func TestUnknownArea(t *testing.T) {
	r := NewResponder(Options{})
	if _, err := r.NewSession("billing", nil); !errors.Is(err, ErrUnknownArea) {
		t.Fatalf("expected ErrUnknownArea, got %v", err)
	}
}

func TestScriptsHaveResponses(t *testing.T) {
	for area, sc := range DefaultScripts() {
		if sc.Area != area || len(sc.Sections) == 0 {
			t.Fatalf("bad script for %s", area)
		}
		for _, sec := range sc.Sections {
			if len(sec.Responses) == 0 {
				t.Errorf("%s/%s has no responses", area, sec.Name)
			}
		}
	}
}
