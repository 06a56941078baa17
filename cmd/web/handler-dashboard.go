package main

import (
	"fmt"
	"github.com/planificaia/aliada/internal/contexthelpers"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/models"
	"net/http"
	"strings"
)

var dashboardTips = []string{
	"Empieza la clase con una pregunta que despierte la curiosidad de tus estudiantes.",
	"Alterna explicaciones breves con actividades prácticas cada 10 a 15 minutos.",
	"Cierra con una síntesis en la que tus estudiantes expliquen lo aprendido con sus palabras.",
	"Graba tus clases con regularidad para ver tu progreso en el tiempo.",
}

type classView struct {
	models.ClassRecord
	Date       string
	RatingText string
}

type dashboardStats struct {
	Total         int
	Evaluated     int
	AverageRating string
	Hours         string
}

type dashboardTemplateData struct {
	BaseTemplateData
	Name    string
	Profile string
	Stats   dashboardStats
	Classes []classView
	Tips    []string
}

func formatDate(record *models.ClassRecord) string {
	date := record.UploadedDate()
	if date.IsZero() {
		return record.UploadedOn
	}
	return date.Format("02/01/2006")
}

func formatRating(rating *float64) string {
	if rating == nil {
		return "—"
	}
	return fmt.Sprintf("%.1f", *rating)
}

func summarize(records []models.ClassRecord) dashboardStats {
	var (
		evaluated, rated, minutes int
		ratingSum                 float64
	)
	for _, record := range records {
		if record.Status == models.ClassStatusEvaluated {
			evaluated++
		}
		if record.Rating != nil {
			rated++
			ratingSum += *record.Rating
		}
		minutes += record.DurationMinutes
	}
	average := "—"
	if rated > 0 {
		average = fmt.Sprintf("%.1f", ratingSum/float64(rated))
	}
	return dashboardStats{
		Total:         len(records),
		Evaluated:     evaluated,
		AverageRating: average,
		Hours:         fmt.Sprintf("%.1f", float64(minutes)/60), //nolint:mnd // minutes per hour
	}
}

// visitorName is the name answered in the onboarding, or the first name given at registration.
func (app *application) visitorName(r *http.Request) string {
	ctx := r.Context()
	if profile, ok := app.profiles.Get(contexthelpers.VisitorID(ctx)); ok && profile.Name() != "" {
		return profile.Name()
	}
	return app.sessionManager.GetString(ctx, string(firstNameSessionKey))
}

// profileSummary describes the teaching context from the completed onboarding, e.g.
// "Primaria · 3° de primaria · 30 estudiantes · Lima (Lima, Perú)".
func (app *application) profileSummary(r *http.Request) string {
	profile, ok := app.profiles.Get(contexthelpers.VisitorID(r.Context()))
	if !ok {
		return ""
	}
	var parts []string
	for _, key := range []string{"level", "grade", "studentCount", "location"} {
		v, answered := profile.Answers[key]
		if !answered {
			continue
		}
		text := app.table.Describe(key, v, profile.Answers)
		if key == "studentCount" {
			text += " estudiantes"
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " · ")
}

func (app *application) dashboard(w http.ResponseWriter, r *http.Request) {
	app.leaveScreen(r)

	records, err := app.classRecords.List(r.Context())
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "list class records"))
		return
	}
	classes := make([]classView, 0, len(records))
	for i := range records {
		classes = append(classes, classView{
			ClassRecord: records[i],
			Date:        formatDate(&records[i]),
			RatingText:  formatRating(records[i].Rating),
		})
	}

	name := app.visitorName(r)
	if name == "" {
		name = "docente"
	}
	app.render(w, r, http.StatusOK, "dashboard", dashboardTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Name:             name,
		Profile:          app.profileSummary(r),
		Stats:            summarize(records),
		Classes:          classes,
		Tips:             dashboardTips,
	})
}
