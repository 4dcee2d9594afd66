package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/identity"
)

//go:embed templates/*
var templateFiles embed.FS

const layoutTemplate = "layout.html"

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	"hasString": func(list []string, v string) bool {
		return slices.Contains(list, v)
	},
	"formatTime": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2 Jan 2006 15:04")
	},
	"formatDate": func(t time.Time) string {
		return t.Format("2 Jan 2006")
	},
	"formatDuration": func(d time.Duration) string {
		if d < time.Hour {
			return fmt.Sprintf("%d min", int(d.Round(time.Minute).Minutes()))
		}
		return fmt.Sprintf("%.1f hrs", d.Hours())
	},
}

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a page together with the shared layout and any fragments the page
// includes. Pages define "content" and optionally "title".
func ParseTemplate(names ...string) (*template.Template, error) {
	return template.New(layoutTemplate).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), append([]string{layoutTemplate}, names...)...)
}

// ParseFragment parses an htmx fragment and the fragments it includes.
func ParseFragment(name string, includes ...string) (*template.Template, error) {
	return template.New(name).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), append([]string{name}, includes...)...)
}

// mustParse panics on a broken template; templates are embedded so this only fails on a
// bad build.
func mustParse(t *template.Template, err error) *template.Template {
	if err != nil {
		panic("Failed to parse template: " + err.Error())
	}
	return t
}

// pageData is what the layout needs from every page.
type pageData struct {
	AppName string
	User    *identity.User
	Error   string
	Message string
}

func (s *Server) page(user *identity.User) pageData {
	return pageData{AppName: s.config.GetAppName(), User: user}
}

type messageData struct {
	Kind string
	Text string
}

// render executes into a buffer first so a template error never leaves a half written page.
func render(w http.ResponseWriter, tmpl *template.Template, status int, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
