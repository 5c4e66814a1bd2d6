package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"

	"github.com/comigor/convoview/internal/logger"
	"github.com/comigor/convoview/internal/view"
)

//go:embed templates static
var assets embed.FS

var templateFuncs = template.FuncMap{
	"renderMarkdown": renderMarkdown,
	"ago":            ago,
}

const (
	pageList   = "list.html"
	pageDetail = "detail.html"
)

func parseTemplates() (map[string]*template.Template, error) {
	pages := []string{pageList, pageDetail}
	out := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(assets,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name,
		)
		if err != nil {
			return nil, err
		}
		out[name] = tmpl
	}
	return out, nil
}

func staticFS() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// renderMarkdown converts message text to HTML. goldmark drops raw HTML by
// default, so backend text cannot inject markup.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// ago renders an epoch timestamp relative to now, e.g. "3 days ago".
func ago(secs int64) string {
	if secs == 0 {
		return ""
	}
	return humanize.Time(time.Unix(secs, 0))
}

// pageData is what every template receives.
type pageData struct {
	Title string
	// Page is the instance id forms post back to.
	Page string
	// Refresh, when set, reloads the page instance while it is loading.
	Refresh string
	List    *view.ListModel
	Detail  *view.DetailModel

	SaveSuccessMessage  string
	NotFoundMessage     string
	NoTranscriptMessage string
	DeletePrompt        string
	SuccessTTLMillis    int64
}

func (s *Server) render(w http.ResponseWriter, name string, status int, data pageData) {
	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	data.SaveSuccessMessage = view.SaveSuccessMessage
	data.NotFoundMessage = view.NotFoundMessage
	data.NoTranscriptMessage = view.NoTranscriptMessage
	data.DeletePrompt = view.DeletePrompt
	data.SuccessTTLMillis = s.successTTL.Milliseconds()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.L.Error("template error", "template", name, "error", err)
		http.Error(w, "template rendering error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
