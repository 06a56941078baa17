package main

import (
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/forms"
	"github.com/planificaia/aliada/internal/onboarding"
	"net/http"
)

type loginTemplateData struct {
	BaseTemplateData
	Form   forms.Login
	Errors forms.Errors
}

// login shows the sign-in form. There are no accounts: any well-formed credentials continue to the chat.
func (app *application) login(w http.ResponseWriter, r *http.Request) {
	app.leaveScreen(r)
	app.render(w, r, http.StatusOK, "login", loginTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Form:             forms.Login{},
		Errors:           nil,
	})
}

func (app *application) loginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	form := forms.LoginFromValues(r.PostForm)
	fieldErrors, err := app.validator.Check(form)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "check login form"))
		return
	}
	if fieldErrors != nil {
		form.Password = ""
		app.render(w, r, http.StatusUnprocessableEntity, "login", loginTemplateData{
			BaseTemplateData: app.newBaseTemplateData(r),
			Form:             form,
			Errors:           fieldErrors,
		})
		return
	}

	if err = app.sessionManager.RenewToken(r.Context()); err != nil {
		app.serverError(w, r, errors.Wrap(err, "renew session token"))
		return
	}
	app.flash(r, "¡Bienvenida de nuevo!")
	redirect(w, r, "/main-chat")
}

type registerTemplateData struct {
	BaseTemplateData
	Form             forms.Register
	Errors           forms.Errors
	EducationLevels  []onboarding.Option
	InstitutionTypes []onboarding.Option
}

var (
	educationLevels = []onboarding.Option{
		{Value: "inicial", Label: "Educación inicial"},
		{Value: "primaria", Label: "Primaria"},
		{Value: "secundaria", Label: "Secundaria"},
		{Value: "superior", Label: "Educación superior"},
		{Value: "especial", Label: "Educación especial"},
	}
	institutionTypes = []onboarding.Option{
		{Value: "publico", Label: "Público"},
		{Value: "privado", Label: "Privado"},
		{Value: "concertado", Label: "Concertado"},
		{Value: "online", Label: "En línea"},
	}
)

func (app *application) renderRegister(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	form forms.Register,
	fieldErrors forms.Errors,
) {
	app.render(w, r, status, "register", registerTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Form:             form,
		Errors:           fieldErrors,
		EducationLevels:  educationLevels,
		InstitutionTypes: institutionTypes,
	})
}

func (app *application) register(w http.ResponseWriter, r *http.Request) {
	app.leaveScreen(r)
	app.renderRegister(w, r, http.StatusOK, forms.Register{}, nil)
}

// registerPost validates the account form and continues to the onboarding. Nothing is stored except the first
// name, which greets the visitor until the onboarding asks for it.
func (app *application) registerPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	form := forms.RegisterFromValues(r.PostForm)
	fieldErrors, err := app.validator.Check(form)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "check register form"))
		return
	}
	if fieldErrors != nil {
		form.Password, form.ConfirmPassword = "", ""
		app.renderRegister(w, r, http.StatusUnprocessableEntity, form, fieldErrors)
		return
	}

	ctx := r.Context()
	if err = app.sessionManager.RenewToken(ctx); err != nil {
		app.serverError(w, r, errors.Wrap(err, "renew session token"))
		return
	}
	app.sessionManager.Put(ctx, string(firstNameSessionKey), form.FirstName)
	app.flash(r, "¡Cuenta creada! Completemos tu perfil.")
	redirect(w, r, "/onboarding")
}
