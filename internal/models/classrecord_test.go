package models_test

import (
	"github.com/planificaia/aliada/internal/models"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestClassStatus_Label(t *testing.T) {
	require.Equal(t, "Evaluada", models.ClassStatusEvaluated.Label())
	require.Equal(t, "Analizando", models.ClassStatusAnalyzing.Label())
	require.Equal(t, "unknown", models.ClassStatus("unknown").Label())
}

func TestClassRecord_UploadedDate(t *testing.T) {
	record := models.ClassRecord{UploadedOn: "2024-01-15"}
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), record.UploadedDate())
	require.True(t, models.ClassRecord{UploadedOn: "15/01/2024"}.UploadedDate().IsZero())
}
