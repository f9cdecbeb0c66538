package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"cityops/internal/activity"
	"cityops/internal/chat"
	"cityops/internal/geo"
	"cityops/internal/insights"
	"cityops/internal/mapsync"
	"cityops/internal/scenario"
	"cityops/internal/session"
)

// record writes an activity row. Failures are counted and logged but never
// fail the request.
func (s *Server) record(row activity.Row) {
	if row.Timestamp.IsZero() {
		row.Timestamp = s.now()
	}
	if err := s.activity.Write(row); err != nil {
		s.metrics.ActivityWriteFails.Inc()
		s.log.Warn("activity write failed", "kind", row.Kind, "err", err)
	}
}

type layerSummary struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Legend string `json:"legend,omitempty"`
	Kind   string `json:"kind"`
}

type scenarioSummary struct {
	Key      string         `json:"key"`
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle,omitempty"`
	Layers   []layerSummary `json:"layers"`
	KPIs     []scenario.KPI `json:"kpis"`
}

func summarize(d *scenario.Definition) scenarioSummary {
	out := scenarioSummary{Key: d.Key, Title: d.Title, Subtitle: d.Subtitle, KPIs: d.KPIs}
	for _, l := range d.Layers {
		out.Layers = append(out.Layers, layerSummary{ID: l.ID, Label: l.Label, Legend: l.Legend, Kind: l.Kind})
	}
	return out
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	all := s.registry.All()
	out := make([]scenarioSummary, 0, len(all))
	for _, d := range all {
		out = append(out, summarize(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": out, "default": s.registry.Default().Key})
}

type scenarioResponse struct {
	Scenario *scenario.Definition `json:"scenario"`
	Bounds   *geo.Bounds          `json:"bounds"`
	Viewport geo.Viewport         `json:"viewport"`
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	def, err := s.registry.Get(chi.URLParam(r, "key"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	b := geo.FeatureCollectionBounds(def.Collections()...)
	writeJSON(w, http.StatusOK, scenarioResponse{Scenario: def, Bounds: b, Viewport: geo.Frame(b, s.frame)})
}

// handleBounds accepts a FeatureCollection, a Feature or a bare geometry.
func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 8*maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "could not read body", nil)
		return
	}
	b, err := geo.ParseBounds(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_geojson", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bounds": b, "viewport": geo.Frame(b, s.frame)})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	f, ok := s.insightFilter(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"insights":  s.insights.Browse(f),
		"themes":    s.insights.Themes(),
		"districts": s.insights.Districts(),
	})
}

func (s *Server) insightFilter(w http.ResponseWriter, r *http.Request) (insights.Filter, bool) {
	q := r.URL.Query()
	f := insights.Filter{Theme: q.Get("theme"), District: q.Get("district"), Query: q.Get("q")}
	if v := q.Get("sdg"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "sdg must be a number", nil)
			return f, false
		}
		f.SDG = n
	}
	if err := s.validate.Struct(f); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error(), nil)
		return f, false
	}
	return f, true
}

type mapErrorResponse struct {
	Kind    mapsync.Kind `json:"kind"`
	Message string       `json:"message"`
}

func (s *Server) handleMapError(w http.ResponseWriter, r *http.Request) {
	var rep struct {
		mapsync.ClientReport
		SessionID string `json:"session_id" validate:"omitempty,uuid"`
	}
	if !s.decode(w, r, &rep) {
		return
	}
	err := rep.Err()
	kind := mapsync.Classify(err)
	s.metrics.MapErrors.WithLabelValues(string(kind)).Inc()
	s.log.Warn("map widget error", "kind", kind, "session", rep.SessionID, "err", err)
	s.record(activity.Row{SessionID: rep.SessionID, Kind: activity.KindMapError, Detail: string(kind) + ": " + rep.Message})
	writeJSON(w, http.StatusOK, mapErrorResponse{Kind: kind, Message: mapsync.UserMessage(kind)})
}

func (s *Server) handleBasemapStyle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mapsync.BasemapStyle(s.basemap))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

type sessionResponse struct {
	Session session.State `json:"session"`
	Ops     []mapsync.Op  `json:"ops"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.metrics.SessionsActive.Set(float64(s.sessions.Len()))
	st := sess.State()
	s.record(activity.Row{SessionID: sess.ID, Kind: activity.KindSessionCreated, Scenario: st.Scenario, Focus: st.Focus})
	writeJSON(w, http.StatusCreated, sessionResponse{Session: st, Ops: sess.Ops(true)})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.metrics.SessionsActive.Set(float64(s.sessions.Len()))
	s.record(activity.Row{SessionID: id, Kind: activity.KindSessionClosed})
	w.WriteHeader(http.StatusNoContent)
}

type selectScenarioRequest struct {
	Key string `json:"key" validate:"required,max=64"`
}

type selectScenarioResponse struct {
	Session  session.State   `json:"session"`
	Scenario scenarioSummary `json:"scenario"`
	Viewport geo.Viewport    `json:"viewport"`
	Ops      []mapsync.Op    `json:"ops"`
}

func (s *Server) handleSelectScenario(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req selectScenarioRequest
	if !s.decode(w, r, &req) {
		return
	}
	def, v, err := sess.SelectScenario(req.Key)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	st := sess.State()
	s.metrics.ScenarioSelections.WithLabelValues(def.Key).Inc()
	s.record(activity.Row{SessionID: sess.ID, Kind: activity.KindScenarioSelected, Scenario: def.Key, Focus: st.Focus})
	writeJSON(w, http.StatusOK, selectScenarioResponse{Session: st, Scenario: summarize(def), Viewport: v, Ops: sess.Ops(false)})
}

type focusRequest struct {
	Focus *float64 `json:"focus" validate:"required"`
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req focusRequest
	if !s.decode(w, r, &req) {
		return
	}
	focus, err := sess.SetFocus(*req.Focus)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.metrics.FocusUpdates.Inc()
	s.record(activity.Row{SessionID: sess.ID, Kind: activity.KindFocusChanged, Scenario: sess.State().Scenario, Focus: focus})
	writeJSON(w, http.StatusOK, map[string]any{"focus": focus, "ops": sess.Ops(false)})
}

func (s *Server) handleOps(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	full := r.URL.Query().Get("full") != ""
	writeJSON(w, http.StatusOK, map[string]any{"ops": sess.Ops(full)})
}

type chatRequest struct {
	Message string `json:"message" validate:"required,max=500"`
	Section string `json:"section" validate:"omitempty,max=64"`
}

type chatResponse struct {
	chat.Reply
	RevealAfterMS int64 `json:"reveal_after_ms"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}
	area := chi.URLParam(r, "area")
	rep, err := sess.Chat(area, req.Section, strings.TrimSpace(req.Message))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.metrics.RecordChatTurn(area, rep.Intent)
	s.record(activity.Row{SessionID: sess.ID, Kind: activity.KindChatTurn, Scenario: sess.State().Scenario, Detail: area + "/" + rep.Section + " " + rep.Intent})
	writeJSON(w, http.StatusOK, chatResponse{Reply: rep, RevealAfterMS: rep.RevealAfter.Milliseconds()})
}

func (s *Server) handleChatState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st, err := sess.ChatState(chi.URLParam(r, "area"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleWizard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Wizard().Report())
}

type wizardRequest struct {
	Action string            `json:"action" validate:"required,oneof=submit back"`
	Step   string            `json:"step" validate:"required_if=Action submit,max=64"`
	Fields map[string]string `json:"fields" validate:"omitempty,max=20,dive,keys,max=64,endkeys,max=1000"`
}

func (s *Server) handleWizardAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req wizardRequest
	if !s.decode(w, r, &req) {
		return
	}
	run := sess.Wizard()
	var err error
	switch req.Action {
	case "submit":
		_, err = run.Submit(req.Step, req.Fields)
	case "back":
		_, err = run.Back()
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	rep := run.Report()
	s.metrics.WizardSteps.WithLabelValues(rep.Step).Inc()
	s.record(activity.Row{SessionID: sess.ID, Kind: activity.KindWizardStep, Detail: req.Action + " -> " + rep.Step + " (" + rep.Status + ")"})
	writeJSON(w, http.StatusOK, rep)
}
