package main

import (
	htmxmw "github.com/donseba/go-htmx/middleware"
	"github.com/justinas/alice"
	"github.com/planificaia/aliada/internal/chat"
	"github.com/planificaia/aliada/ui"
	"io/fs"
	"net/http"
)

// uploadOverhead leaves room for the multipart framing and the CSRF field around the largest accepted file.
const uploadOverhead = 1 << 20

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	static, err := fs.Sub(ui.Files, "static")
	if err != nil {
		panic(err) // The directory is embedded at build time.
	}
	mux.Handle("GET /static/", cacheHeaders(http.StripPrefix("/static", http.FileServerFS(static))))

	mux.HandleFunc("GET /api/healthy", app.healthy)
	mux.HandleFunc("GET /api/locations", app.apiLocations)

	timeout := func(h http.Handler) http.Handler {
		return timeoutHandler(h, defaultTimeout)
	}
	dynamic := alice.New(timeout, app.sessionManager.LoadAndSave, app.visitor, app.noSurf(nil), commonContext,
		htmxmw.MiddleWare, app.htmxRequest)
	// The upload limit has to apply before the CSRF check reads the multipart body. tooLarge renders the page when
	// the limit was hit.
	upload := func(tooLarge http.HandlerFunc) alice.Chain {
		return alice.New(timeout, limitBody(chat.MaxUploadSize+uploadOverhead), app.sessionManager.LoadAndSave,
			app.visitor, app.noSurf(tooLarge), commonContext, htmxmw.MiddleWare, app.htmxRequest)
	}
	// Streams neither buffer nor time out.
	stream := alice.New(app.serverSentEventMiddleware, app.visitor)

	mux.Handle("GET /{$}", dynamic.ThenFunc(app.login))
	mux.Handle("GET /login", dynamic.ThenFunc(app.login))
	mux.Handle("POST /login", dynamic.ThenFunc(app.loginPost))
	mux.Handle("GET /register", dynamic.ThenFunc(app.register))
	mux.Handle("POST /register", dynamic.ThenFunc(app.registerPost))

	mux.Handle("GET /onboarding", dynamic.ThenFunc(app.onboarding))
	mux.Handle("POST /onboarding", dynamic.ThenFunc(app.onboardingPost))

	mux.Handle("GET /conversational-onboarding", dynamic.ThenFunc(app.conversationalOnboarding))
	mux.Handle("POST /conversational-onboarding", dynamic.ThenFunc(app.conversationalOnboardingPost))
	mux.Handle("GET /conversational-onboarding/stream", stream.ThenFunc(app.conversationalOnboardingStream))

	mux.Handle("GET /audio-introduction", dynamic.ThenFunc(app.audioIntroduction))
	mux.Handle("POST /audio-introduction", upload(app.audioIntroductionTooLarge).ThenFunc(app.audioIntroductionPost))

	mux.Handle("GET /main-chat", dynamic.ThenFunc(app.mainChat))
	mux.Handle("POST /main-chat/messages", dynamic.ThenFunc(app.mainChatMessage))
	mux.Handle("POST /main-chat/upload", upload(app.mainChatUploadTooLarge).ThenFunc(app.mainChatUpload))
	mux.Handle("GET /main-chat/stream", stream.ThenFunc(app.mainChatStream))
	mux.Handle("GET /main-chat/report", dynamic.ThenFunc(app.mainChatReport))

	mux.Handle("GET /dashboard", dynamic.ThenFunc(app.dashboard))

	mux.Handle("GET /ai-session/{classID}", dynamic.ThenFunc(app.aiSession))
	mux.Handle("POST /ai-session/{classID}/messages", dynamic.ThenFunc(app.aiSessionMessage))
	mux.Handle("GET /ai-session/{classID}/stream", stream.ThenFunc(app.aiSessionStream))

	mux.Handle("/", dynamic.ThenFunc(app.notFound))

	return alice.New(app.recoverPanic, app.logRequest, app.secureHeaders).Then(mux)
}
