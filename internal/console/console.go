// Package console is a terminal command center: scenario table, focus
// control, KPI panel and the scripted copilot, driven against a dashboard
// session.
package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"cityops/internal/activity"
	"cityops/internal/chat"
	"cityops/internal/scenario"
	"cityops/internal/session"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// activityMsg carries an activity row for the activity pane.
type activityMsg struct{ row activity.Row }

// setRecorderMsg installs the writer the model records its own actions to.
type setRecorderMsg struct{ w activity.Writer }

// Options configures a console.
type Options struct {
	Registry  *scenario.Registry
	Session   *session.Session
	Area      string
	FocusStep float64
	AltScreen bool
}

// Console runs the terminal command center. It is also an activity.Writer
// so the rows it produces show up in its own activity pane.
type Console struct {
	program teaProgram
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// New starts the bubbletea program. It stops when ctx is cancelled, the
// user quits or Close is called.
func New(ctx context.Context, opts Options) *Console {
	var progOpts []tea.ProgramOption
	progOpts = append(progOpts, tea.WithContext(ctx))
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	p := tea.NewProgram(newModel(opts), progOpts...)
	c := &Console{program: p, done: make(chan struct{})}
	go func() {
		_, err := p.Run()
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	}()
	return c
}

// SetRecorder sets the writer that receives the console's activity rows.
func (c *Console) SetRecorder(w activity.Writer) {
	c.program.Send(setRecorderMsg{w: w})
}

// Write implements activity.Writer.
func (c *Console) Write(row activity.Row) error {
	c.program.Send(activityMsg{row: row})
	return nil
}

// WriteBatch implements the batch form of activity.Writer.
func (c *Console) WriteBatch(rows []activity.Row) error {
	for _, r := range rows {
		_ = c.Write(r)
	}
	return nil
}

// Done is closed when the program has exited.
func (c *Console) Done() <-chan struct{} { return c.done }

// Wait blocks until the program exits and returns its error. A cancelled
// context is not an error.
func (c *Console) Wait() error {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil || isContextErr(c.err) {
		return nil
	}
	return fmt.Errorf("console: %w", c.err)
}

// Close quits the program and waits for it.
func (c *Console) Close() error {
	if c.program != nil {
		c.program.Send(tea.Quit())
	}
	if c.done != nil {
		return c.Wait()
	}
	return nil
}

func isContextErr(err error) bool {
	return errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled)
}

// defaultArea is the copilot area the console talks to.
const defaultArea = chat.AreaInsights
