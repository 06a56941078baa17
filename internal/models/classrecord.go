package models

import "time"

// ClassStatus is the analysis state of an uploaded class.
type ClassStatus string

const (
	ClassStatusAnalyzing ClassStatus = "analyzing"
	ClassStatusEvaluated ClassStatus = "evaluated"
	ClassStatusReceived  ClassStatus = "received"
	ClassStatusWarning   ClassStatus = "warning"
)

// Label is the Spanish badge text shown on the dashboard.
func (s ClassStatus) Label() string {
	switch s {
	case ClassStatusAnalyzing:
		return "Analizando"
	case ClassStatusEvaluated:
		return "Evaluada"
	case ClassStatusReceived:
		return "Recibida"
	case ClassStatusWarning:
		return "Requiere atención"
	default:
		return string(s)
	}
}

// ClassRecord is a recorded class the teacher uploaded for review.
type ClassRecord struct {
	ID              int64       `db:"id"`
	Name            string      `db:"name"`
	Subject         string      `db:"subject"`
	DurationMinutes int         `db:"duration_minutes"`
	UploadedOn      string      `db:"uploaded_on"`
	Status          ClassStatus `db:"status"`
	Rating          *float64    `db:"rating"`
	Feedback        string      `db:"feedback"`
	Grade           string      `db:"grade"`
	StudentCount    int         `db:"student_count"`
	Objectives      string      `db:"objectives"`
}

// UploadedDate parses UploadedOn. The zero time is returned for malformed dates.
func (c ClassRecord) UploadedDate() time.Time {
	t, err := time.Parse(time.DateOnly, c.UploadedOn)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SessionTurn is one recorded line of the review conversation about a class.
type SessionTurn struct {
	ID            int64  `db:"id"`
	ClassRecordID int64  `db:"class_record_id"`
	Order         int    `db:"order"`
	Origin        string `db:"origin"`
	Text          string `db:"text"`
	SpokenAt      string `db:"spoken_at"`
}
