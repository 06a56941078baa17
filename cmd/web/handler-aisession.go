package main

import (
	"fmt"
	"github.com/planificaia/aliada/internal/chat"
	"github.com/planificaia/aliada/internal/contexthelpers"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/models"
	"github.com/planificaia/aliada/internal/repositories"
	"github.com/planificaia/aliada/internal/screens"
	"log/slog"
	"net/http"
	"strconv"
)

func aiSessionScreenKey(classID int64) string {
	return fmt.Sprintf("ai-session/%d", classID)
}

func aiSessionURL(classID int64) string {
	return fmt.Sprintf("/ai-session/%d", classID)
}

// classFromPath loads the class named by the {classID} path value. Unknown or malformed ids render the not-found
// page.
func (app *application) classFromPath(w http.ResponseWriter, r *http.Request) (*models.ClassRecord, bool) {
	classID, err := strconv.ParseInt(r.PathValue("classID"), 10, 64)
	if err != nil {
		app.notFound(w, r)
		return nil, false
	}
	record, err := app.classRecords.Get(r.Context(), classID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		app.notFound(w, r)
		return nil, false
	case err != nil:
		app.serverError(w, r, errors.Wrap(err, "get class record", slog.Int64("classID", classID)))
		return nil, false
	}
	return record, true
}

// sessionSeed replays the recorded review conversation of a class, or greets the visitor when there is none.
func (app *application) sessionSeed(r *http.Request, record *models.ClassRecord) ([]chat.Message, error) {
	turns, err := app.classRecords.Turns(r.Context(), record.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list session turns")
	}
	if len(turns) == 0 {
		return []chat.Message{{
			Origin: chat.OriginAssistant,
			Text: fmt.Sprintf("¡Hola! Revisemos juntas tu clase **%s**. ¿Qué aspecto te gustaría mejorar?",
				record.Name),
		}}, nil
	}
	seed := make([]chat.Message, 0, len(turns))
	for _, turn := range turns {
		seed = append(seed, chat.Message{Origin: chat.Origin(turn.Origin), Text: turn.Text})
	}
	return seed, nil
}

type aiSessionTemplateData struct {
	BaseTemplateData
	Class          *models.ClassRecord
	Date           string
	RatingText     string
	Transcript     transcriptData
	MessagesAction string
}

// aiSession is the feedback conversation about one recorded class.
func (app *application) aiSession(w http.ResponseWriter, r *http.Request) {
	record, ok := app.classFromPath(w, r)
	if !ok {
		return
	}
	visitorID := contexthelpers.VisitorID(r.Context())
	screen, err := screens.Enter(app.screens, visitorID, aiSessionScreenKey(record.ID), func() (*screens.Chat, error) {
		seed, seedErr := app.sessionSeed(r, record)
		if seedErr != nil {
			return nil, seedErr
		}
		return app.newChat(chat.NewCannedResponder(chat.SessionReplies...), seed...)
	})
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "enter session", slog.Int64("classID", record.ID)))
		return
	}

	app.render(w, r, http.StatusOK, "aisession", aiSessionTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Class:            record,
		Date:             formatDate(record),
		RatingText:       formatRating(record.Rating),
		Transcript:       newTranscriptData(screen.Simulator, aiSessionURL(record.ID)+"/stream"),
		MessagesAction:   aiSessionURL(record.ID) + "/messages",
	})
}

func (app *application) aiSessionMessage(w http.ResponseWriter, r *http.Request) {
	record, ok := app.classFromPath(w, r)
	if !ok {
		return
	}
	screen, ok := app.activeChat(r, aiSessionScreenKey(record.ID))
	if !ok {
		app.flash(r, screenExpiredNotice)
		redirect(w, r, aiSessionURL(record.ID))
		return
	}
	app.sendMessage(w, r, screen, aiSessionURL(record.ID), aiSessionURL(record.ID)+"/stream")
}

func (app *application) aiSessionStream(w http.ResponseWriter, r *http.Request) {
	classID, err := strconv.ParseInt(r.PathValue("classID"), 10, 64)
	if err != nil {
		app.clientError(w, r, http.StatusNotFound)
		return
	}
	screen, ok := app.activeChat(r, aiSessionScreenKey(classID))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	app.streamReplies(w, r, screen.Simulator)
}
