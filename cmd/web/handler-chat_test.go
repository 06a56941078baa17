package main

import (
	"context"
	"github.com/PuerkitoBio/goquery"
	"github.com/planificaia/aliada/internal/chat"
	"github.com/planificaia/aliada/internal/e2etest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func postMessage(t *testing.T, client *e2etest.Client, pagePath, text string) *goquery.Document {
	t.Helper()
	doc, path := submit(t, client, pagePath, pagePath+"/messages", url.Values{"message": {text}}, http.StatusOK)
	require.Equal(t, pagePath, path)
	return doc
}

func upload(
	t *testing.T,
	client *e2etest.Client,
	pagePath, actionPath, fileName, contentType string,
	content []byte,
	wantStatus int,
) *goquery.Document {
	t.Helper()
	resp, err := client.UploadFile(context.Background(), pagePath, actionPath, fileName, contentType, content)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, wantStatus, resp.StatusCode)
	require.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

var smallAudio = []byte("ID3 not really audio")

// oversized does not fit the request body limit of the upload routes.
func oversized() []byte {
	return make([]byte, chat.MaxUploadSize+uploadOverhead+1)
}

func TestMainChat(t *testing.T) {
	t.Parallel()
	server := startServer(t, nil)
	client := server.Client()

	doc := getDoc(t, client, "/main-chat")
	texts := messages(doc)
	require.Len(t, texts, 1)
	assert.True(t, strings.HasPrefix(texts[0], "¡Hola! Soy Aliada"), texts[0])
	assert.Equal(t, recentClassCount, doc.Find(".recent a[href^='/ai-session/']").Length())
	assert.Empty(t, doc.Find("#conversation").AttrOr("data-stream", ""), "nothing is pending yet")

	doc = postMessage(t, client, "/main-chat", "¿Cómo motivo a mis estudiantes?")
	texts = messages(doc)
	require.Len(t, texts, 2)
	assert.Equal(t, "¿Cómo motivo a mis estudiantes?", texts[1])
	assert.Equal(t, mainChatStreamURL, doc.Find("#conversation").AttrOr("data-stream", ""))
	assert.True(t, doc.Find(".composer button").Is("[disabled]"))

	events := waitForTurn(t, client, mainChatStreamURL)
	if len(events) == 2 {
		assert.Equal(t, "message", events[0].Name)
		assert.NotEmpty(t, events[0].ID)
		assert.Contains(t, events[0].Data, `id="msg-`+events[0].ID+`"`)
		assert.Contains(t, events[0].Data, "message-assistant")
	}

	doc = getDoc(t, client, "/main-chat")
	require.Len(t, messages(doc), 3)
	assert.Equal(t, 2, doc.Find("#transcript li.message-assistant").Length(), "greeting and reply")
	assert.Equal(t, 0, doc.Find("#typing").Length())

	t.Run("empty message", func(t *testing.T) {
		doc := postMessage(t, client, "/main-chat", "   ")
		assert.Equal(t, "Escribe un mensaje antes de enviarlo.", doc.Find(".flash").Text())
		assert.Len(t, messages(doc), 3)
	})
}

func TestMainChat_busy(t *testing.T) {
	t.Parallel()
	server := startServer(t, map[string]string{"ALIADA_REPLY_DELAY": "10s"})
	client := server.Client()

	postMessage(t, client, "/main-chat", "Hola")

	t.Run("form post", func(t *testing.T) {
		doc := postMessage(t, client, "/main-chat", "¿Sigues ahí?")
		assert.Equal(t, "Espera a que Aliada termine de responder.", doc.Find(".flash").Text())
		assert.Len(t, messages(doc), 2)
	})

	t.Run("htmx request", func(t *testing.T) {
		ctx := context.Background()
		doc := getDoc(t, client, "/main-chat")
		token, err := e2etest.ExtractCSRFToken(doc, "/main-chat/messages")
		require.NoError(t, err)

		body := url.Values{"csrf_token": {token}, "message": {"¿Sigues ahí?"}}
		req, err := client.NewRequest(ctx, http.MethodPost, "/main-chat/messages", strings.NewReader(body.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("HX-Request", "true")
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer func() {
			_ = resp.Body.Close()
		}()
		require.Equal(t, http.StatusConflict, resp.StatusCode)

		fragment, err := goquery.NewDocumentFromReader(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, 0, fragment.Find("header.topbar").Length(), "only the transcript is rendered")
		assert.Equal(t, 1, fragment.Find("#conversation").Length())
		assert.Equal(t, "Espera a que Aliada termine de responder.", fragment.Find(".notice").Text())
		assert.Len(t, messages(fragment), 2)
	})

	t.Run("leaving discards the pending reply", func(t *testing.T) {
		getDoc(t, client, "/dashboard")
		doc := getDoc(t, client, "/main-chat")
		assert.Len(t, messages(doc), 1, "a fresh chat with the greeting only")
		assert.Equal(t, 0, doc.Find("#typing").Length())
	})
}

func TestMainChat_upload(t *testing.T) {
	t.Parallel()
	server := startServer(t, nil)
	client := server.Client()
	getDoc(t, client, "/main-chat")

	t.Run("unsupported format", func(t *testing.T) {
		doc := upload(t, client, "/main-chat", "/main-chat/upload", "foto.png", "image/png", smallAudio,
			http.StatusUnsupportedMediaType)
		assert.Contains(t, doc.Find("#conversation .notice").Text(), "Formato no soportado")
		assert.Len(t, messages(doc), 1)
	})

	t.Run("too large", func(t *testing.T) {
		doc := upload(t, client, "/main-chat", "/main-chat/upload", "clase.mp3", "audio/mpeg", oversized(),
			http.StatusRequestEntityTooLarge)
		assert.Contains(t, doc.Find("#conversation .notice").Text(), "supera el tamaño máximo")
		assert.Len(t, messages(doc), 1)
		assert.Equal(t, 1, doc.Find("form[action='/main-chat/upload']").Length(), "the chat page is rendered")
	})

	doc := upload(t, client, "/main-chat", "/main-chat/upload", "clase.mp3", "audio/mpeg", smallAudio,
		http.StatusOK)
	texts := messages(doc)
	require.Len(t, texts, 2)
	assert.Equal(t, "📎 Audio subido: clase.mp3", texts[1])

	events := waitForTurn(t, client, mainChatStreamURL)
	assert.LessOrEqual(t, len(events), 3, "receipt, analysis and done")

	doc = getDoc(t, client, "/main-chat")
	texts = messages(doc)
	require.Len(t, texts, 4)
	assert.Contains(t, texts[2], `"clase.mp3"`)
	assert.Contains(t, texts[3], "¡Análisis completado!")

	href, ok := doc.Find("#transcript a[href^='/main-chat/report']").Attr("href")
	require.True(t, ok, "the analysis links the report")

	resp, err := client.Get(context.Background(), href)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/markdown; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename=retroalimentacion-clase.md`, resp.Header.Get("Content-Disposition"))
	report, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(report), "# Retroalimentación pedagógica"))
	assert.Contains(t, string(report), "clase.mp3")
}

func TestStream_withoutScreen(t *testing.T) {
	t.Parallel()
	server := startServer(t, nil)

	for _, urlPath := range []string{mainChatStreamURL, conversationStreamURL, "/ai-session/1/stream"} {
		resp, err := server.Client().Get(context.Background(), urlPath)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode, urlPath)
	}
}

func TestAISession(t *testing.T) {
	t.Parallel()
	server := startServer(t, nil)
	client := server.Client()

	t.Run("recorded conversation", func(t *testing.T) {
		doc := getDoc(t, client, "/ai-session/1")
		assert.Equal(t, "Matemáticas - Fracciones", doc.Find(".class-summary h2").Text())
		assert.Contains(t, doc.Find(".class-summary").Text(), "15/01/2024")
		assert.Contains(t, doc.Find(".class-summary").Text(), "4.5")
		texts := messages(doc)
		require.Len(t, texts, 3)
		assert.Contains(t, texts[0], "fracciones")
		assert.Equal(t, 1, doc.Find("#transcript li.message-user").Length())
	})

	t.Run("greeting without recorded turns", func(t *testing.T) {
		doc := getDoc(t, client, "/ai-session/2")
		texts := messages(doc)
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "Historia - Revolución Industrial")
		assert.Equal(t, "Historia - Revolución Industrial", doc.Find("#transcript strong").Text())
		assert.Contains(t, doc.Find(".class-summary").Text(), "—")
	})

	t.Run("conversation", func(t *testing.T) {
		doc := postMessage(t, client, "/ai-session/2", "¿Cómo mejoro el cierre?")
		require.Len(t, messages(doc), 2)
		waitForTurn(t, client, "/ai-session/2/stream")
		doc = getDoc(t, client, "/ai-session/2")
		require.Len(t, messages(doc), 3)
	})

	t.Run("switching sessions starts over", func(t *testing.T) {
		getDoc(t, client, "/ai-session/1")
		doc := getDoc(t, client, "/ai-session/2")
		assert.Len(t, messages(doc), 1)
	})
}

func TestAudioIntroduction(t *testing.T) {
	t.Parallel()
	server := startServer(t, nil)
	client := server.Client()

	doc := getDoc(t, client, "/audio-introduction")
	assert.Equal(t, 1, doc.Find("[data-recorder] [data-retry]").Length())

	t.Run("skip", func(t *testing.T) {
		doc, path := submit(t, client, "/audio-introduction", "/audio-introduction",
			url.Values{"action": {"skip"}}, http.StatusOK)
		assert.Equal(t, "/main-chat", path)
		assert.Equal(t, "Puedes grabar tu presentación más adelante.", doc.Find(".flash").Text())
	})

	t.Run("not audio", func(t *testing.T) {
		doc := upload(t, client, "/audio-introduction", "/audio-introduction", "plan.pdf", "application/pdf",
			smallAudio, http.StatusUnsupportedMediaType)
		assert.Contains(t, doc.Find(".field-error").Text(), "Formato no soportado")
	})

	t.Run("too large", func(t *testing.T) {
		doc := upload(t, client, "/audio-introduction", "/audio-introduction", "presentacion.webm", "audio/webm",
			oversized(), http.StatusRequestEntityTooLarge)
		assert.Contains(t, doc.Find(".field-error").Text(), "supera el tamaño máximo")
	})

	t.Run("recording", func(t *testing.T) {
		doc := upload(t, client, "/audio-introduction", "/audio-introduction", "presentacion.webm", "audio/webm",
			smallAudio, http.StatusOK)
		assert.Equal(t, "¡Gracias! Recibimos tu presentación.", doc.Find(".flash").Text())
		assert.Equal(t, "Aliada", doc.Find(".chat-header h1").Text())
	})
}
