package main

import (
	"github.com/planificaia/aliada/internal/chat"
	"github.com/planificaia/aliada/internal/contexthelpers"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/onboarding"
	"github.com/planificaia/aliada/internal/screens"
	"net/http"
	"net/url"
)

const (
	onboardingScreenKey     = "onboarding"
	conversationScreenKey   = "conversational-onboarding"
	conversationStreamURL   = "/conversational-onboarding/stream"
	screenExpiredNotice     = "La pantalla se reinició. Empecemos de nuevo."
	onboardingCompleteFlash = "¡Listo! Tu perfil está completo."
)

// stepInput feeds the "stepinput" partial.
type stepInput struct {
	Step     onboarding.StepDescriptor
	Options  []onboarding.Option
	Answer   onboarding.Value
	Answered bool
}

// NoOptions is set when a select step has nothing to choose from. The continue control is disabled then.
func (s stepInput) NoOptions() bool {
	return s.Step.Kind.IsSelect() && len(s.Options) == 0
}

// inputFromForm reads the "value" fields. Single inputs land in Text and checkboxes in Choices.
func inputFromForm(values url.Values) onboarding.Input {
	return onboarding.Input{
		Text:    values.Get("value"),
		Choices: values["value"],
	}
}

type onboardingTemplateData struct {
	BaseTemplateData
	View  screens.WizardView
	Input stepInput
	Error string
	Name  string
}

func (app *application) enterWizard(r *http.Request) (*screens.Wizard, error) {
	visitorID := contexthelpers.VisitorID(r.Context())
	return screens.Enter(app.screens, visitorID, onboardingScreenKey, func() (*screens.Wizard, error) {
		return screens.NewWizard(visitorID, app.table, app.profiles), nil
	})
}

func (app *application) renderWizard(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	wizard *screens.Wizard,
	reason string,
) {
	view := wizard.View()
	app.render(w, r, status, "onboarding", onboardingTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		View:             view,
		Input: stepInput{
			Step:     view.Step,
			Options:  view.Options,
			Answer:   view.Answer,
			Answered: view.Answered,
		},
		Error: reason,
		Name:  wizard.Answers()["name"].Text,
	})
}

// onboarding is the form wizard: one question per page.
func (app *application) onboarding(w http.ResponseWriter, r *http.Request) {
	wizard, err := app.enterWizard(r)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "enter wizard"))
		return
	}
	app.renderWizard(w, r, http.StatusOK, wizard, "")
}

func (app *application) onboardingPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	wizard, ok := screens.Active[*screens.Wizard](app.screens, contexthelpers.VisitorID(ctx), onboardingScreenKey)
	if !ok {
		app.flash(r, screenExpiredNotice)
		redirect(w, r, "/onboarding")
		return
	}

	if r.PostForm.Get("action") == "back" {
		wizard.Back()
		redirect(w, r, "/onboarding")
		return
	}

	res, err := wizard.Submit(ctx, r.PostForm.Get("key"), inputFromForm(r.PostForm))
	var validationErr *onboarding.ValidationError
	switch {
	case errors.As(err, &validationErr):
		app.renderWizard(w, r, http.StatusUnprocessableEntity, wizard, validationErr.Reason)
		return
	case errors.Is(err, onboarding.ErrStaleStep), errors.Is(err, onboarding.ErrComplete):
		// A repeated post, e.g. a double click. The current step is shown again.
		redirect(w, r, "/onboarding")
		return
	case err != nil:
		app.serverError(w, r, errors.Wrap(err, "submit step"))
		return
	}

	if res.Complete {
		app.flash(r, onboardingCompleteFlash)
		redirect(w, r, "/dashboard")
		return
	}
	redirect(w, r, "/onboarding")
}

type conversationTemplateData struct {
	BaseTemplateData
	View       screens.ConversationView
	Input      stepInput
	Transcript transcriptData
	Error      string
}

func (app *application) enterConversation(r *http.Request) (*screens.Conversation, error) {
	visitorID := contexthelpers.VisitorID(r.Context())
	return screens.Enter(app.screens, visitorID, conversationScreenKey, func() (*screens.Conversation, error) {
		simulator := app.newSimulator(chat.NewCannedResponder())
		conversation, err := screens.NewConversation(visitorID, app.table, simulator, app.profiles)
		if err != nil {
			simulator.Close()
			return nil, err
		}
		return conversation, nil
	})
}

func (app *application) conversationData(
	r *http.Request,
	conversation *screens.Conversation,
	reason string,
) conversationTemplateData {
	view := conversation.View()
	return conversationTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		View:             view,
		Input: stepInput{
			Step:     view.Step,
			Options:  view.Options,
			Answer:   view.Answer,
			Answered: view.Answered,
		},
		Transcript: transcriptData{
			Messages:  view.Messages,
			Pending:   view.Pending,
			StreamURL: conversationStreamURL,
			Notice:    "",
		},
		Error: reason,
	}
}

// conversationalOnboarding asks the onboarding questions as chat messages.
func (app *application) conversationalOnboarding(w http.ResponseWriter, r *http.Request) {
	conversation, err := app.enterConversation(r)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "enter conversation"))
		return
	}
	app.render(w, r, http.StatusOK, "conversationalonboarding", app.conversationData(r, conversation, ""))
}

func (app *application) conversationalOnboardingPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	conversation, ok := screens.Active[*screens.Conversation](app.screens, contexthelpers.VisitorID(ctx),
		conversationScreenKey)
	if !ok {
		app.flash(r, screenExpiredNotice)
		redirect(w, r, "/conversational-onboarding")
		return
	}

	var err error
	if r.PostForm.Get("action") == "back" {
		_, err = conversation.Back()
	} else {
		_, err = conversation.Answer(ctx, r.PostForm.Get("key"), inputFromForm(r.PostForm))
	}

	var validationErr *onboarding.ValidationError
	switch {
	case errors.As(err, &validationErr):
		app.render(w, r, http.StatusUnprocessableEntity, "conversationalonboarding",
			app.conversationData(r, conversation, validationErr.Reason))
		return
	case errors.Is(err, chat.ErrBusy):
		app.flash(r, "Espera a que Aliada termine de escribir.")
	case errors.Is(err, onboarding.ErrStaleStep), errors.Is(err, onboarding.ErrComplete), errors.Is(err, chat.ErrClosed):
	case err != nil:
		app.serverError(w, r, errors.Wrap(err, "answer conversation"))
		return
	}
	redirect(w, r, "/conversational-onboarding")
}

func (app *application) conversationalOnboardingStream(w http.ResponseWriter, r *http.Request) {
	conversation, ok := screens.Active[*screens.Conversation](app.screens, contexthelpers.VisitorID(r.Context()),
		conversationScreenKey)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	app.streamReplies(w, r, conversation.Simulator())
}
