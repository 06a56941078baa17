package main

import (
	"context"
	"github.com/PuerkitoBio/goquery"
	"github.com/planificaia/aliada/internal/e2etest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

type answer struct {
	key    string
	values []string
}

// anaAnswers completes the onboarding of a primary school teacher from Lima.
var anaAnswers = []answer{
	{key: "name", values: []string{"Ana"}},
	{key: "level", values: []string{"primaria"}},
	{key: "grade", values: []string{"3° de primaria"}},
	{key: "studentCount", values: []string{"30"}},
	{key: "location", values: []string{"Lima"}},
	{key: "resources", values: []string{"Internet"}},
	{key: "avgClassSize", values: []string{"25"}},
}

func stepValues(action, key string, values ...string) url.Values {
	return url.Values{
		"action": {action},
		"key":    {key},
		"value":  values,
	}
}

func currentStepKey(doc *goquery.Document) string {
	return doc.Find("input[name='key']").AttrOr("value", "")
}

func TestOnboarding(t *testing.T) {
	t.Parallel()
	server := startServer(t, nil)
	client := server.Client()

	doc := getDoc(t, client, "/onboarding")
	require.Equal(t, "name", currentStepKey(doc))
	assert.True(t, doc.Find("button[value='back']").Is("[disabled]"), "no step before the first one")

	t.Run("blank answer does not advance", func(t *testing.T) {
		doc, _ := submit(t, client, "/onboarding", "/onboarding", stepValues("next", "name", "  "),
			http.StatusUnprocessableEntity)
		assert.Equal(t, "name", currentStepKey(doc))
		assert.Equal(t, "Este campo es obligatorio", strings.TrimSpace(doc.Find(".field-error").Text()))
	})

	for i, a := range anaAnswers {
		doc, path := submit(t, client, "/onboarding", "/onboarding", stepValues("next", a.key, a.values...),
			http.StatusOK)
		if i == len(anaAnswers)-1 {
			require.Equal(t, "/dashboard", path)
			assert.Equal(t, "¡Listo! Tu perfil está completo.", doc.Find(".flash").Text())
			assert.Equal(t, "¡Hola, Ana!", doc.Find("h1").Text())
			assert.Equal(t, "Primaria · 3° de primaria · 30 estudiantes · Lima (Lima, Perú)",
				doc.Find(".dashboard .lead").Text())
			continue
		}
		require.Equal(t, "/onboarding", path)
		require.Equal(t, anaAnswers[i+1].key, currentStepKey(doc), "after answering %s", a.key)
	}
}

func TestOnboarding_gradeDependsOnLevel(t *testing.T) {
	t.Parallel()
	server := startServer(t, nil)
	client := server.Client()

	for _, a := range anaAnswers[:2] {
		submit(t, client, "/onboarding", "/onboarding", stepValues("next", a.key, a.values...), http.StatusOK)
	}
	doc := getDoc(t, client, "/onboarding")
	require.Equal(t, "grade", currentStepKey(doc))
	assert.Equal(t, 7, doc.Find("select[name='value'] option").Length(), "placeholder and six grades")

	t.Run("repeated post is ignored", func(t *testing.T) {
		doc, _ := submit(t, client, "/onboarding", "/onboarding", stepValues("next", "level", "secundaria"),
			http.StatusOK)
		assert.Equal(t, "grade", currentStepKey(doc))
	})

	t.Run("back keeps the answer", func(t *testing.T) {
		doc, _ := submit(t, client, "/onboarding", "/onboarding", stepValues("back", "grade"), http.StatusOK)
		require.Equal(t, "level", currentStepKey(doc))
		assert.Equal(t, "primaria", doc.Find("select[name='value'] option[selected]").AttrOr("value", ""))
	})

	t.Run("changing the level offers its grades", func(t *testing.T) {
		doc, _ := submit(t, client, "/onboarding", "/onboarding", stepValues("next", "level", "secundaria"),
			http.StatusOK)
		require.Equal(t, "grade", currentStepKey(doc))
		assert.Equal(t, 4, doc.Find("select[name='value'] option").Length(), "placeholder and three grades")
		assert.Equal(t, 0, doc.Find("select[name='value'] option[selected]").Length(), "the old grade was dropped")
	})
}

func TestOnboarding_leavingResets(t *testing.T) {
	t.Parallel()
	server := startServer(t, nil)
	client := server.Client()

	submit(t, client, "/onboarding", "/onboarding", stepValues("next", "name", "Ana"), http.StatusOK)
	getDoc(t, client, "/dashboard")

	doc := getDoc(t, client, "/onboarding")
	assert.Equal(t, "name", currentStepKey(doc))
	assert.Equal(t, "", doc.Find("#value").AttrOr("value", ""))
}

// waitForTurn reads the reply stream until the pending turn is over.
func waitForTurn(t *testing.T, client *e2etest.Client, streamURL string) []e2etest.Event {
	t.Helper()
	events, err := client.ReadEvents(context.Background(), streamURL)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	require.Equal(t, "done", events[len(events)-1].Name)
	return events
}

func TestConversationalOnboarding(t *testing.T) {
	t.Parallel()
	server := startServer(t, nil)
	client := server.Client()

	doc := getDoc(t, client, "/conversational-onboarding")
	texts := messages(doc)
	require.Len(t, texts, 2, "greeting and first question")
	assert.Contains(t, texts[0], "Soy Aliada")
	assert.Equal(t, "¿Cómo te llamas?", texts[1])

	t.Run("blank answer leaves the transcript untouched", func(t *testing.T) {
		doc, _ := submit(t, client, "/conversational-onboarding", "/conversational-onboarding",
			stepValues("next", "name", ""), http.StatusUnprocessableEntity)
		assert.Len(t, messages(doc), 2)
		assert.Equal(t, "Este campo es obligatorio", strings.TrimSpace(doc.Find(".field-error").Text()))
	})

	for i, a := range anaAnswers {
		doc, _ := submit(t, client, "/conversational-onboarding", "/conversational-onboarding",
			stepValues("next", a.key, a.values...), http.StatusOK)
		texts := messages(doc)
		require.Len(t, texts, 3+2*i, "answer %s is echoed right away", a.key)

		events := waitForTurn(t, client, "/conversational-onboarding/stream")
		for _, e := range events[:len(events)-1] {
			assert.Equal(t, "message", e.Name)
			assert.Contains(t, e.Data, "message-assistant")
		}
	}

	doc = getDoc(t, client, "/conversational-onboarding")
	texts = messages(doc)
	require.Len(t, texts, 2+2*len(anaAnswers))
	assert.Equal(t, "Ana", texts[2])
	assert.Contains(t, texts[3], "¡Encantada de conocerte, Ana!")
	assert.Equal(t, "Primaria", texts[4])
	assert.Equal(t, "Internet", texts[12])
	assert.Contains(t, texts[len(texts)-1], "¡Perfecto, Ana!")
	assert.Equal(t, 1, doc.Find("a[href='/audio-introduction']").Length())
	assert.Equal(t, 0, doc.Find("form[action='/conversational-onboarding'] input[name='key']").Length())

	// The conversational profile greets the visitor on the dashboard as well.
	doc = getDoc(t, client, "/dashboard")
	assert.Equal(t, "¡Hola, Ana!", doc.Find("h1").Text())
}

func TestConversationalOnboarding_busy(t *testing.T) {
	t.Parallel()
	server := startServer(t, map[string]string{"ALIADA_REPLY_DELAY": "10s"})
	client := server.Client()

	submit(t, client, "/conversational-onboarding", "/conversational-onboarding",
		stepValues("next", "name", "Ana"), http.StatusOK)
	doc, _ := submit(t, client, "/conversational-onboarding", "/conversational-onboarding",
		stepValues("back", "level"), http.StatusOK)
	assert.Equal(t, "Espera a que Aliada termine de escribir.", doc.Find(".flash").Text())
	assert.Len(t, messages(doc), 3, "the next question is still pending")
	assert.Equal(t, 1, doc.Find("#typing").Length())
	assert.NotEmpty(t, doc.Find("#conversation").AttrOr("data-stream", ""))
}
