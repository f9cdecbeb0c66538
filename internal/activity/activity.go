// Package activity records dashboard interactions as rows and fans them out
// to stdout, JSONL files and GreptimeDB.
package activity

import "time"

// Row kinds.
const (
	KindSessionCreated   = "session_created"
	KindSessionClosed    = "session_closed"
	KindScenarioSelected = "scenario_selected"
	KindFocusChanged     = "focus_changed"
	KindChatTurn         = "chat_turn"
	KindWizardStep       = "wizard_step"
	KindMapError         = "map_error"
)

// Row is one interaction event.
type Row struct {
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Scenario  string    `json:"scenario,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Focus     float64   `json:"focus"`
	Timestamp time.Time `json:"ts"`
}

// Writer consumes activity rows.
type Writer interface {
	Write(row Row) error
}

type batchWriter interface {
	WriteBatch(rows []Row) error
}

// WriteBatch writes rows to w, in one call when w supports batches.
func WriteBatch(w Writer, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if bw, ok := w.(batchWriter); ok {
		return bw.WriteBatch(rows)
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops every row.
type Discard struct{}

func (Discard) Write(Row) error { return nil }
