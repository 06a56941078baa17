package main

import (
	"fmt"
	"io"
	"github.com/justinas/nosurf"
	"github.com/planificaia/aliada/internal/contexthelpers"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/logging"
	"github.com/planificaia/aliada/internal/random"
	"log/slog"
	"net/http"
)

const (
	cspNonceLength  = 24
	visitorIDLength = 32
)

func (app *application) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce, err := random.Letters(cspNonceLength)
		if err != nil {
			app.serverError(w, r, errors.Wrap(err, "generate CSP nonce"))
			return
		}

		w.Header().Set("Content-Security-Policy",
			fmt.Sprintf(`script-src 'nonce-%s' 'strict-dynamic' https: http:; object-src 'none'; base-uri 'none';`,
				nonce))
		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-XSS-Protection", "0")

		next.ServeHTTP(w, contexthelpers.SetCSPNonce(r, nonce))
	})
}

// cacheHeaders lets browsers reuse the static assets for an hour. They are not fingerprinted.
func cacheHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")

		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			proto  = r.Proto
			method = r.Method
			uri    = r.URL.RequestURI()
		)

		ctx := logging.WithAttrs(r.Context(), slog.String("path", r.URL.Path))
		app.logger.LogAttrs(ctx, slog.LevelDebug, "received request",
			slog.String("proto", proto), slog.String("method", method), slog.String("uri", uri))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, r, errors.New("recovered panic", slog.Any("panic", err)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// visitor identifies the browser with an id kept in the session. Screens are registered under it.
func (app *application) visitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		visitorID := app.sessionManager.GetString(ctx, string(visitorIDSessionKey))
		if visitorID == "" {
			var err error
			if visitorID, err = random.Letters(visitorIDLength); err != nil {
				app.serverError(w, r, errors.Wrap(err, "generate visitor id"))
				return
			}
			app.sessionManager.Put(ctx, string(visitorIDSessionKey), visitorID)
		}

		r = contexthelpers.SetVisitorID(r, visitorID)
		r = r.WithContext(logging.WithAttrs(r.Context(), slog.String("visitor", visitorID)))
		next.ServeHTTP(w, r)
	})
}

// htmxRequest flags requests sent by the page script. It reads the headers parsed by htmxmw.MiddleWare, which has
// to run first.
func (app *application) htmxRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := app.htmx.NewHandler(w, r)
		next.ServeHTTP(w, contexthelpers.SetIsHxRequest(r, h.Request().HxRequest))
	})
}

// limitBody caps request bodies at n bytes. Bodies declaring a larger Content-Length fail on the first read so that
// nothing is buffered. The read error surfaces as a failed CSRF check, see app.noSurf.
func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := n
			if r.ContentLength > n {
				limit = 0
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// bodyTooLarge reports whether reading the body hit the limit set by limitBody. The limit error is sticky, so it is
// returned again after the form parser gave up.
func bodyTooLarge(r *http.Request) bool {
	var maxBytesErr *http.MaxBytesError
	_, err := io.Copy(io.Discard, r.Body)
	return errors.As(err, &maxBytesErr)
}

// serverSentEventMiddleware makes our session library scs work with Server Sent Events (SSE).
// Use this instead of app.sessionManager.LoadAndSave.
// See https://github.com/alexedwards/scs/issues/141#issuecomment-1807075358
func (app *application) serverSentEventMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		cookie, err := r.Cookie(app.sessionManager.Cookie.Name)
		if err == nil {
			token = cookie.Value
		}
		ctx, err := app.sessionManager.Load(r.Context(), token)
		if err != nil {
			app.serverError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func commonContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = contexthelpers.SetCurrentPath(r, r.URL.Path)
		r = contexthelpers.SetCSRFToken(r, nosurf.Token(r))
		next.ServeHTTP(w, r)
	})
}

// noSurf implements CSRF protection using https://github.com/justinas/nosurf
//
// An oversized upload never reaches its CSRF field, so it fails the check. tooLarge renders the page for those and
// may be nil on routes without uploads.
func (app *application) noSurf(tooLarge http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		csrfHandler := nosurf.New(next)
		csrfHandler.SetBaseCookie(http.Cookie{
			HttpOnly: true,
			Path:     "/",
			Secure:   true,
		})
		csrfHandler.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tooLarge != nil && bodyTooLarge(r) {
				commonContext(tooLarge).ServeHTTP(w, r)
				return
			}
			app.logger.LogAttrs(r.Context(), slog.LevelDebug, "CSRF check failed",
				errors.SlogError(nosurf.Reason(r)))
			app.clientError(w, r, http.StatusBadRequest)
		}))

		return csrfHandler
	}
}
