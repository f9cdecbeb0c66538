package activity

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// JSONWriter prints rows as JSON lines.
type JSONWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONWriter writes to out, or os.Stdout when out is nil.
func NewJSONWriter(out io.Writer) *JSONWriter {
	if out == nil {
		out = os.Stdout
	}
	return &JSONWriter{out: out}
}

// Write outputs a row in JSON format.
func (w *JSONWriter) Write(row Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteBatch outputs multiple rows.
func (w *JSONWriter) WriteBatch(rows []Row) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

var (
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	kindStyles  = map[string]lipgloss.Style{
		KindSessionCreated:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		KindSessionClosed:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		KindScenarioSelected: lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		KindFocusChanged:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		KindChatTurn:         lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		KindWizardStep:       lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		KindMapError:         lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

// ColorWriter prints rows as colored, human readable lines.
type ColorWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewColorWriter writes to out, or os.Stdout when out is nil.
func NewColorWriter(out io.Writer) *ColorWriter {
	if out == nil {
		out = os.Stdout
	}
	return &ColorWriter{out: out}
}

// Write prints one row.
func (w *ColorWriter) Write(row Row) error {
	st, ok := kindStyles[row.Kind]
	if !ok {
		st = detailStyle
	}
	sid := row.SessionID
	if len(sid) > 8 {
		sid = sid[:8]
	}
	line := fmt.Sprintf("%s %-8s %s", timeStyle.Render(row.Timestamp.Format("15:04:05")), sid, st.Render(fmt.Sprintf("%-18s", row.Kind)))
	if row.Scenario != "" {
		line += " " + row.Scenario
	}
	if row.Kind == KindFocusChanged {
		line += fmt.Sprintf(" focus=%.0f", row.Focus)
	}
	if row.Detail != "" {
		line += " " + detailStyle.Render(row.Detail)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintln(w.out, line)
	return err
}
