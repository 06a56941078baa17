package main

import (
	"github.com/planificaia/aliada/internal/chat"
	"github.com/planificaia/aliada/internal/errors"
	"log/slog"
	"net/http"
)

type audioIntroductionTemplateData struct {
	BaseTemplateData
	Error string
}

// audioIntroduction invites the visitor to introduce themselves with a voice recording. Microphone failures are
// handled in the browser, which shows a notice with a retry button.
func (app *application) audioIntroduction(w http.ResponseWriter, r *http.Request) {
	app.leaveScreen(r)
	app.render(w, r, http.StatusOK, "audiointroduction", audioIntroductionTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Error:            "",
	})
}

// audioIntroductionPost accepts the recording or the skip. The audio itself is discarded.
func (app *application) audioIntroductionPost(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("action") == "skip" {
		app.flash(r, "Puedes grabar tu presentación más adelante.")
		redirect(w, r, "/main-chat")
		return
	}

	file, err := uploadedFile(r)
	if err == nil {
		err = file.Validate()
	}
	if err == nil && !file.IsAudio() {
		err = chat.ErrUnsupportedFile
	}
	if status, notice, rejected := uploadRejection(err); rejected {
		app.render(w, r, status, "audiointroduction", audioIntroductionTemplateData{
			BaseTemplateData: app.newBaseTemplateData(r),
			Error:            notice,
		})
		return
	}
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "read introduction"))
		return
	}

	app.logger.LogAttrs(r.Context(), slog.LevelInfo, "audio introduction received",
		slog.String("name", file.BaseName()), slog.Int64("size", file.Size))
	app.flash(r, "¡Gracias! Recibimos tu presentación.")
	redirect(w, r, "/main-chat")
}

// audioIntroductionTooLarge answers recordings cut off by the body limit before the CSRF check could read them.
func (app *application) audioIntroductionTooLarge(w http.ResponseWriter, r *http.Request) {
	status, notice, _ := uploadRejection(&http.MaxBytesError{Limit: chat.MaxUploadSize})
	app.render(w, r, status, "audiointroduction", audioIntroductionTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Error:            notice,
	})
}
