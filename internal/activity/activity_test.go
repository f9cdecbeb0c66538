package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
)

type collectWriter struct{ rows []Row }

func (c *collectWriter) Write(r Row) error {
	c.rows = append(c.rows, r)
	return nil
}

type failWriter struct{}

func (failWriter) Write(Row) error { return errors.New("boom") }

type mockGreptimeClient struct {
	tables []*table.Table
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	m.tables = append(m.tables, tables...)
	return &gpb.GreptimeResponse{}, nil
}

func sampleRows() []Row {
	return []Row{
		{SessionID: "s1", Kind: KindScenarioSelected, Scenario: "mobility", Timestamp: time.Unix(0, 0).UTC()},
		{SessionID: "s1", Kind: KindFocusChanged, Scenario: "mobility", Focus: 80, Timestamp: time.Unix(2, 0).UTC()},
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)
	if err := w.WriteBatch(sampleRows()); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var row Row
	if err := json.Unmarshal([]byte(lines[1]), &row); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if row.Kind != KindFocusChanged || row.Focus != 80 {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestColorWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewColorWriter(&buf)
	row := Row{SessionID: "0123456789abcdef", Kind: KindFocusChanged, Scenario: "energy-grid", Focus: 42, Timestamp: time.Now()}
	if err := w.Write(row); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"01234567", "energy-grid", "focus=42"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "89abcdef") {
		t.Fatalf("session id should be shortened: %q", out)
	}
}

func TestFileWriterAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.jsonl")
	fw, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("new file writer: %v", err)
	}
	if err := fw.WriteBatch(sampleRows()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	cw := &collectWriter{}
	if err := ReplayLogFile(path, cw, 0); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(cw.rows) != 2 || cw.rows[1].Focus != 80 {
		t.Fatalf("unexpected replay %+v", cw.rows)
	}
	if err := ReplayLogFile(filepath.Join(t.TempDir(), "missing"), cw, 0); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}

func TestReplayLogSpeed(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range sampleRows() {
		_ = enc.Encode(r)
	}
	cw := &collectWriter{}
	start := time.Now()
	// 2s gap at 100x speed sleeps about 20ms.
	if err := ReplayLog(&buf, cw, 100); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if el := time.Since(start); el < 15*time.Millisecond || el > time.Second {
		t.Fatalf("unexpected replay duration %v", el)
	}
	if err := ReplayLog(strings.NewReader("{bad"), cw, 0); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestMultiWriter(t *testing.T) {
	a, b := &collectWriter{}, &collectWriter{}
	mw := NewMultiWriter(a, nil, b)
	if err := mw.WriteBatch(sampleRows()); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if err := mw.Write(sampleRows()[0]); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(a.rows) != 3 || len(b.rows) != 3 {
		t.Fatalf("fan-out mismatch: %d %d", len(a.rows), len(b.rows))
	}
	if err := NewMultiWriter(failWriter{}).Write(Row{}); err == nil {
		t.Fatalf("expected error from failing writer")
	}
}

func TestGreptimeWriter(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, table: "activity", timeout: time.Second}
	if err := w.WriteBatch(sampleRows()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(m.tables) != 1 {
		t.Fatalf("expected one table, got %d", len(m.tables))
	}
	rows := m.tables[0].GetRows()
	if len(rows.Schema) != 6 {
		t.Fatalf("unexpected schema length %d", len(rows.Schema))
	}
	if rows.Schema[0].SemanticType != gpb.SemanticType_TAG || rows.Schema[5].SemanticType != gpb.SemanticType_TIMESTAMP {
		t.Fatalf("unexpected semantic types %v %v", rows.Schema[0].SemanticType, rows.Schema[5].SemanticType)
	}
	if len(rows.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows.Rows))
	}
	if got := rows.Rows[1].Values[1].GetStringValue(); got != KindFocusChanged {
		t.Fatalf("kind=%s", got)
	}
	if got := rows.Rows[1].Values[4].GetF64Value(); got != 80 {
		t.Fatalf("focus=%v", got)
	}
	if err := w.WriteBatch(nil); err != nil || len(m.tables) != 1 {
		t.Fatalf("empty batch should be a no-op")
	}
}

func TestTableName(t *testing.T) {
	t.Setenv("ACTIVITY_TABLE", "")
	if got := tableFor(""); got != DefaultTable {
		t.Fatalf("got %s", got)
	}
	t.Setenv("ACTIVITY_TABLE", "from_env")
	if got := tableFor(""); got != "from_env" {
		t.Fatalf("got %s", got)
	}
	if got := tableFor("explicit"); got != "explicit" {
		t.Fatalf("got %s", got)
	}
}

func TestSplitEndpoint(t *testing.T) {
	host, port, err := splitEndpoint("db.local:4002")
	if err != nil || host != "db.local" || port != 4002 {
		t.Fatalf("got %s %d %v", host, port, err)
	}
	host, port, err = splitEndpoint("db.local")
	if err != nil || host != "db.local" || port != defaultGreptimePort {
		t.Fatalf("got %s %d %v", host, port, err)
	}
	if _, _, err := splitEndpoint("db.local:x"); err == nil {
		t.Fatalf("expected bad port error")
	}
	if _, _, err := splitEndpoint(""); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}

func TestBuffered(t *testing.T) {
	cw := &collectWriter{}
	b := NewBuffered(cw, 3)
	for _, r := range sampleRows() {
		_ = b.Write(r)
	}
	if len(cw.rows) != 0 || b.Len() != 2 {
		t.Fatalf("rows flushed too early")
	}
	_ = b.Write(Row{Kind: KindChatTurn})
	if len(cw.rows) != 3 || b.Len() != 0 {
		t.Fatalf("expected flush at max, got %d", len(cw.rows))
	}

	_ = b.Write(Row{Kind: KindWizardStep})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done
	if len(cw.rows) != 4 {
		t.Fatalf("Run should flush on exit, got %d", len(cw.rows))
	}
}
