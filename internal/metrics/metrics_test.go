package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.HTTPRequestsTotal == nil || r.ChatTurns == nil || r.MapErrors == nil {
		t.Fatal("collectors not initialized")
	}
	if r.Prometheus() == nil {
		t.Fatal("Prometheus registry not initialized")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()
	r.RecordHTTPRequest("GET", "/api/scenarios", "200", 10*time.Millisecond)
	r.RecordHTTPRequest("GET", "/api/scenarios", "200", 20*time.Millisecond)
	r.RecordHTTPRequest("GET", "/api/scenarios/{key}", "404", time.Millisecond)

	if got := testutil.ToFloat64(r.HTTPRequestsTotal.WithLabelValues("GET", "/api/scenarios", "200")); got != 2 {
		t.Errorf("requests=%v, want 2", got)
	}
	if got := testutil.CollectAndCount(r.HTTPRequestDuration); got != 2 {
		t.Errorf("histogram series=%d, want 2", got)
	}
}

func TestRecordChatTurn(t *testing.T) {
	r := NewRegistry()
	r.RecordChatTurn("insights", "refine")
	r.RecordChatTurn("insights", "")
	r.RecordChatTurn("insights", "")
	if got := testutil.ToFloat64(r.ChatTurns.WithLabelValues("insights", "none")); got != 2 {
		t.Errorf("none turns=%v, want 2", got)
	}
	if got := testutil.ToFloat64(r.ChatTurns.WithLabelValues("insights", "refine")); got != 1 {
		t.Errorf("refine turns=%v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.ScenarioSelections.WithLabelValues("mobility").Inc()
	r.SessionsActive.Set(3)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`cityops_scenario_selections_total{scenario="mobility"} 1`,
		"cityops_sessions_active 3",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
