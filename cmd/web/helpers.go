package main

import (
	"github.com/planificaia/aliada/internal/contexthelpers"
	"github.com/planificaia/aliada/internal/errors"
	"log/slog"
	"net/http"
)

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status),
		slog.String("method", method), slog.String("uri", uri))
	http.Error(w, http.StatusText(status), status)
}

type notFoundTemplateData struct {
	BaseTemplateData
}

// notFound renders the not-found page. Leaving for an unknown page tears down the active screen like any other
// navigation.
func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.leaveScreen(r)
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, "page not found", slog.String("uri", r.URL.RequestURI()))
	app.render(w, r, http.StatusNotFound, "notfound", notFoundTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
	})
}

// leaveScreen closes the visitor's active screen, e.g. cancelling the pending replies of a chat.
func (app *application) leaveScreen(r *http.Request) {
	if visitorID := contexthelpers.VisitorID(r.Context()); visitorID != "" {
		app.screens.Leave(visitorID)
	}
}

// flash stores a notice shown once on the next rendered page.
func (app *application) flash(r *http.Request, message string) {
	app.sessionManager.Put(r.Context(), string(flashSessionKey), message)
}

func redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}
