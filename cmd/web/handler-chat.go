package main

import (
	"fmt"
	"github.com/planificaia/aliada/internal/chat"
	"github.com/planificaia/aliada/internal/contexthelpers"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/models"
	"github.com/planificaia/aliada/internal/screens"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

const (
	mainChatScreenKey = "main-chat"
	mainChatStreamURL = "/main-chat/stream"
	recentClassCount  = 3
)

// newSimulator creates the reply simulator of a chat screen. Its pending replies end with the server.
func (app *application) newSimulator(responder chat.Responder) *chat.Simulator {
	return chat.NewSimulator(app.ctx, chat.Config{
		ReplyDelay:    app.cfg.ReplyDelay,
		AnalysisDelay: app.cfg.AnalysisDelay,
		ReportLink: func(f chat.FileDescriptor) string {
			return "/main-chat/report?file=" + url.QueryEscape(f.BaseName())
		},
	}, responder, app.broker, app.logger)
}

// newChat creates a chat screen seeded with the given messages.
func (app *application) newChat(responder chat.Responder, seed ...chat.Message) (*screens.Chat, error) {
	simulator := app.newSimulator(responder)
	c, err := screens.NewChat(simulator, seed...)
	if err != nil {
		simulator.Close()
		return nil, errors.Wrap(err, "seed chat")
	}
	return c, nil
}

func (app *application) mainChatGreeting(r *http.Request) string {
	name := app.visitorName(r)
	if name == "" {
		return "¡Hola! Soy Aliada, tu asistente educativa. Pregúntame lo que necesites sobre tus clases o sube la " +
			"grabación de una clase para recibir retroalimentación."
	}
	return fmt.Sprintf("¡Hola, %s! Soy Aliada, tu asistente educativa. Pregúntame lo que necesites sobre tus "+
		"clases o sube la grabación de una clase para recibir retroalimentación.", name)
}

type mainChatTemplateData struct {
	BaseTemplateData
	Transcript     transcriptData
	MessagesAction string
	Recent         []models.ClassRecord
}

func (app *application) renderMainChat(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	screen *screens.Chat,
	notice string,
) {
	records, err := app.classRecords.List(r.Context())
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "list class records"))
		return
	}
	if len(records) > recentClassCount {
		records = records[:recentClassCount]
	}
	transcript := newTranscriptData(screen.Simulator, mainChatStreamURL)
	transcript.Notice = notice
	app.render(w, r, status, "mainchat", mainChatTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Transcript:       transcript,
		MessagesAction:   "/main-chat/messages",
		Recent:           records,
	})
}

func (app *application) mainChat(w http.ResponseWriter, r *http.Request) {
	visitorID := contexthelpers.VisitorID(r.Context())
	screen, err := screens.Enter(app.screens, visitorID, mainChatScreenKey, func() (*screens.Chat, error) {
		return app.newChat(chat.NewCannedResponder(), chat.Message{
			Origin: chat.OriginAssistant,
			Text:   app.mainChatGreeting(r),
		})
	})
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "enter main chat"))
		return
	}
	app.renderMainChat(w, r, http.StatusOK, screen, "")
}

func (app *application) activeChat(r *http.Request, key string) (*screens.Chat, bool) {
	return screens.Active[*screens.Chat](app.screens, contexthelpers.VisitorID(r.Context()), key)
}

func (app *application) mainChatMessage(w http.ResponseWriter, r *http.Request) {
	screen, ok := app.activeChat(r, mainChatScreenKey)
	if !ok {
		app.flash(r, screenExpiredNotice)
		redirect(w, r, "/main-chat")
		return
	}
	app.sendMessage(w, r, screen, "/main-chat", mainChatStreamURL)
}

// sendMessage posts the composer's message. htmx requests get the transcript fragment back, with a 409 while a
// reply is pending; plain form posts are redirected with a flash notice.
func (app *application) sendMessage(
	w http.ResponseWriter,
	r *http.Request,
	screen *screens.Chat,
	pageURL string,
	streamURL string,
) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	var (
		notice string
		status = http.StatusOK
	)
	_, err := screen.Send(r.PostForm.Get("message"))
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		notice, status = "Escribe un mensaje antes de enviarlo.", http.StatusUnprocessableEntity
	case errors.Is(err, chat.ErrBusy):
		notice, status = "Espera a que Aliada termine de responder.", http.StatusConflict
	case errors.Is(err, chat.ErrClosed):
		redirect(w, r, pageURL)
		return
	case err != nil:
		app.serverError(w, r, errors.Wrap(err, "send message"))
		return
	}

	if contexthelpers.IsHxRequest(r.Context()) {
		transcript := newTranscriptData(screen.Simulator, streamURL)
		transcript.Notice = notice
		app.renderFragment(w, r, status, "transcript", transcript)
		return
	}
	if notice != "" {
		app.flash(r, notice)
	}
	redirect(w, r, pageURL)
}

// uploadedFile describes the file posted in the "file" field. Its contents are discarded.
func uploadedFile(r *http.Request) (chat.FileDescriptor, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return chat.FileDescriptor{}, errors.Wrap(err, "form file")
	}
	_ = file.Close()
	return chat.FileDescriptor{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     header.Size,
	}, nil
}

// uploadRejection maps upload errors to a status and a notice for the visitor.
func uploadRejection(err error) (int, string, bool) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr), errors.Is(err, chat.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "El archivo supera el tamaño máximo de 50 MB.", true
	case errors.Is(err, http.ErrNotMultipart):
		return http.StatusBadRequest, "Sube el archivo con el formulario.", true
	case errors.Is(err, http.ErrMissingFile):
		return http.StatusUnprocessableEntity, "Selecciona un archivo para subir.", true
	case errors.Is(err, chat.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType,
			"Formato no soportado. Sube un audio (MP3, WAV, M4A) o un documento (PDF, Word, texto).", true
	case errors.Is(err, chat.ErrEmptyFile):
		return http.StatusUnprocessableEntity, "El archivo está vacío.", true
	case errors.Is(err, chat.ErrBusy):
		return http.StatusConflict, "Espera a que Aliada termine de responder.", true
	default:
		return 0, "", false
	}
}

func (app *application) mainChatUpload(w http.ResponseWriter, r *http.Request) {
	screen, ok := app.activeChat(r, mainChatScreenKey)
	if !ok {
		app.flash(r, screenExpiredNotice)
		redirect(w, r, "/main-chat")
		return
	}

	file, err := uploadedFile(r)
	if err == nil {
		_, err = screen.Upload(file)
	}
	if status, notice, rejected := uploadRejection(err); rejected {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "upload rejected",
			slog.String("name", file.Name), slog.String("mimeType", file.MIMEType), slog.Int64("size", file.Size))
		app.renderMainChat(w, r, status, screen, notice)
		return
	}
	switch {
	case errors.Is(err, chat.ErrClosed):
	case err != nil:
		app.serverError(w, r, errors.Wrap(err, "upload file"))
		return
	}
	redirect(w, r, "/main-chat")
}

// mainChatUploadTooLarge answers uploads cut off by the body limit before the CSRF check could read them.
func (app *application) mainChatUploadTooLarge(w http.ResponseWriter, r *http.Request) {
	status, notice, _ := uploadRejection(&http.MaxBytesError{Limit: chat.MaxUploadSize})
	screen, ok := app.activeChat(r, mainChatScreenKey)
	if !ok {
		app.flash(r, notice)
		redirect(w, r, "/main-chat")
		return
	}
	app.renderMainChat(w, r, status, screen, notice)
}

// mainChatReport downloads the feedback report of an analysed upload.
func (app *application) mainChatReport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	if strings.TrimSpace(name) == "" {
		app.notFound(w, r)
		return
	}
	name = chat.FileDescriptor{Name: name, MIMEType: "", Size: 0}.BaseName()
	report := chat.FeedbackReport(name, time.Now())

	fileName := "retroalimentacion-" + strings.TrimSuffix(name, filepath.Ext(name)) + ".md"
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	_, _ = io.WriteString(w, report)
}

func (app *application) mainChatStream(w http.ResponseWriter, r *http.Request) {
	screen, ok := app.activeChat(r, mainChatScreenKey)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	app.streamReplies(w, r, screen.Simulator)
}
