package main

import (
	"bytes"
	"fmt"
	"github.com/planificaia/aliada/internal/chat"
	"github.com/planificaia/aliada/internal/contexthelpers"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/ssr"
	"github.com/planificaia/aliada/ui"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"time"
)

type BaseTemplateData struct {
	CurrentPath string
	Flash       string
}

func (app *application) newBaseTemplateData(r *http.Request) BaseTemplateData {
	ctx := r.Context()
	return BaseTemplateData{
		CurrentPath: contexthelpers.CurrentPath(ctx),
		Flash:       app.sessionManager.PopString(ctx, string(flashSessionKey)),
	}
}

// transcriptData feeds the "transcript" partial shared by the chat screens.
type transcriptData struct {
	Messages  []chat.Message
	Pending   bool
	StreamURL string
	Notice    string
}

func newTranscriptData(simulator *chat.Simulator, streamURL string) transcriptData {
	_, pending := simulator.Pending()
	return transcriptData{
		Messages:  simulator.Messages(),
		Pending:   pending,
		StreamURL: streamURL,
		Notice:    "",
	}
}

var staticFuncs = template.FuncMap{
	"markdown": ssr.Markdown,
	"clock": func(t time.Time) string {
		return t.Format("15:04")
	},
	"inc": func(i int) int {
		return i + 1
	},
	"contains": func(values []string, v string) bool {
		return slices.Contains(values, v)
	},
}

// parseTemplates parses the embedded templates matching patterns together with the partials.
func parseTemplates(name string, patterns ...string) (*template.Template, error) {
	// We need to initialize the FuncMap before parsing the files. These will be overridden in bindRequest.
	t := template.New(name).Funcs(staticFuncs).Funcs(template.FuncMap{
		"nonce": func() template.HTMLAttr {
			panic("not implemented")
		},
		"csrf": func() template.HTML {
			panic("not implemented")
		},
	})
	patterns = append([]string{"templates/partials/*.gohtml"}, patterns...)
	t, err := t.ParseFS(ui.Files, patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "parse templates", slog.String("name", name))
	}
	return t, nil
}

// pageTemplate returns a template for the given page name.
//
// pageName corresponds to directory inside ui/templates/pages folder. It has to include templates named "title" and
// "page".
func pageTemplate(pageName string) (*template.Template, error) {
	return parseTemplates(pageName, "templates/base.gohtml", fmt.Sprintf("templates/pages/%s/*.gohtml", pageName))
}

// bindRequest binds the per-request nonce and CSRF token.
func bindRequest(t *template.Template, r *http.Request) {
	ctx := r.Context()
	nonce := fmt.Sprintf("nonce=\"%s\"", contexthelpers.CSPNonce(ctx))
	csrf := fmt.Sprintf("<input type=\"hidden\" name=\"csrf_token\" value=\"%s\"/>", contexthelpers.CSRFToken(ctx))
	t.Funcs(template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(nonce) //nolint:gosec // we trust the nonce since it's not provided by user.
		},
		"csrf": func() template.HTML {
			return template.HTML(csrf) //nolint:gosec // we trust the csrf since it's not provided by user.
		},
	})
}

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var (
		err error
		t   *template.Template
	)

	if t, err = pageTemplate(page); err != nil {
		app.serverError(w, r, errors.Wrap(err, "parse template", slog.String("template", page)))
		return
	}
	bindRequest(t, r)

	buf := new(bytes.Buffer)
	if err = t.ExecuteTemplate(buf, "base", data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("template", page)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}

// renderFragment renders one partial, e.g. the transcript answering an htmx request.
func (app *application) renderFragment(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var (
		err error
		t   *template.Template
	)

	if t, err = parseTemplates(name); err != nil {
		app.serverError(w, r, err)
		return
	}
	bindRequest(t, r)

	buf := new(bytes.Buffer)
	if err = t.ExecuteTemplate(buf, name, data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute fragment", slog.String("fragment", name)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}
