package main

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDashboard(t *testing.T) {
	t.Parallel()
	server := startServer(t, nil)
	client := server.Client()

	doc := getDoc(t, client, "/dashboard")
	assert.Equal(t, "¡Hola, docente!", doc.Find("h1").Text())
	assert.Equal(t, 5, doc.Find("table.classes tbody tr").Length())
	assert.Equal(t, "Ver sesión", doc.Find("tr#class-1 a[href='/ai-session/1']").Text())

	t.Run("upload entry point", func(t *testing.T) {
		upload := doc.Find(".upload-card")
		require.Equal(t, 1, upload.Length())
		assert.Equal(t, "Subir nueva clase", upload.Find("h2").Text())
		href, ok := upload.Find("a").Attr("href")
		require.True(t, ok)
		assert.Equal(t, "/main-chat#upload", href)

		chat := getDoc(t, client, "/main-chat")
		assert.Equal(t, "/main-chat/upload", chat.Find("form#upload").AttrOr("action", ""))
	})
}
