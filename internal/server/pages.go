package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sort"
	"strconv"

	"cityops/internal/chat"
	"cityops/internal/insights"
	"cityops/internal/wizard"
)

// Page names, also the template file names without extension.
const (
	PageLanding       = "landing"
	PageCommandCenter = "command-center"
	PageCopilot       = "copilot"
	PageInsights      = "insights"
	PageVLR           = "vlr"
)

var pageTitles = map[string]string{
	PageLanding:       "CityOps",
	PageCommandCenter: "Command Center",
	PageCopilot:       "Copilot",
	PageInsights:      "Policy Insights",
	PageVLR:           "Create VLR",
}

//go:embed templates/*.html
var templateFS embed.FS

type pageSet map[string]*template.Template

var funcs = template.FuncMap{
	"pct": func(v float64) string { return strconv.FormatFloat(v*100, 'f', 0, 64) + "%" },
	"num": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
}

// mustParsePages parses the layout together with each page template.
func mustParsePages() pageSet {
	ps := pageSet{}
	for name := range pageTitles {
		ps[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return ps
}

type chatArea struct {
	Name     string
	Sections []string
}

type pageData struct {
	Page     string
	Title    string
	BasePath string
	Static   bool

	Scenarios []scenarioSummary
	Default   string

	Highlights []insights.Insight
	Insights   []insights.Insight
	Filter     insights.Filter
	Themes     []string
	Districts  []string

	Areas []chatArea
	Steps []wizard.Step
}

func (s *Server) pageData(page string) pageData {
	d := pageData{
		Page:     page,
		Title:    pageTitles[page],
		BasePath: s.basePath,
		Default:  s.registry.Default().Key,
	}
	for _, def := range s.registry.All() {
		d.Scenarios = append(d.Scenarios, summarize(def))
	}
	switch page {
	case PageLanding:
		d.Highlights = s.insights.Highlights(3)
	case PageInsights:
		d.Themes = s.insights.Themes()
		d.Districts = s.insights.Districts()
	case PageCopilot:
		scripts := chat.DefaultScripts()
		names := make([]string, 0, len(scripts))
		for name := range scripts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			a := chatArea{Name: name}
			for _, sec := range scripts[name].Sections {
				a.Sections = append(a.Sections, sec.Name)
			}
			d.Areas = append(d.Areas, a)
		}
	case PageVLR:
		d.Steps = wizard.DefaultFlow().Steps
	}
	return d
}

// RenderPage writes a page without request context. Static pages have no
// live API behind them.
func (s *Server) RenderPage(w io.Writer, page string, static bool) error {
	d := s.pageData(page)
	d.Static = static
	if page == PageInsights {
		d.Insights = s.insights.Browse(insights.Filter{})
	}
	return s.render(w, d)
}

func (s *Server) render(w io.Writer, d pageData) error {
	t, ok := s.pages[d.Page]
	if !ok {
		return fmt.Errorf("unknown page %q", d.Page)
	}
	return t.ExecuteTemplate(w, "layout.html", d)
}

func (s *Server) handlePage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := s.pageData(page)
		if page == PageInsights {
			f, ok := s.insightFilter(w, r)
			if !ok {
				return
			}
			d.Filter = f
			d.Insights = s.insights.Browse(f)
		}
		var buf bytes.Buffer
		if err := s.render(&buf, d); err != nil {
			s.log.Error("render page", "page", page, "err", err)
			writeError(w, http.StatusInternalServerError, "internal", "page could not be rendered", nil)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	}
}
