package ssr_test

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/planificaia/aliada/internal/ssr"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name   string
		source string
		check  func(t *testing.T, doc *goquery.Document)
	}{
		{
			name:   "bold and lists",
			source: "✅ **¡Análisis completado!**\n\n- Análisis de contenido\n- Plan de acción",
			check: func(t *testing.T, doc *goquery.Document) {
				require.Equal(t, "¡Análisis completado!", doc.Find("strong").Text())
				require.Equal(t, 2, doc.Find("ul.md-list li").Length())
			},
		},
		{
			name:   "relative link stays in tab",
			source: "[Descargar retroalimentación](/main-chat/report?file=clase.mp3)",
			check: func(t *testing.T, doc *goquery.Document) {
				a := doc.Find("a.md-link")
				require.Equal(t, 1, a.Length())
				href, _ := a.Attr("href")
				require.Equal(t, "/main-chat/report?file=clase.mp3", href)
				_, hasTarget := a.Attr("target")
				require.False(t, hasTarget)
			},
		},
		{
			name:   "external link opens new tab",
			source: "Mira [esta guía](https://example.com/guia).",
			check: func(t *testing.T, doc *goquery.Document) {
				a := doc.Find("a")
				target, _ := a.Attr("target")
				rel, _ := a.Attr("rel")
				require.Equal(t, "_blank", target)
				require.Equal(t, "noopener noreferrer", rel)
			},
		},
		{
			name:   "headings",
			source: "# Retroalimentación pedagógica\n\n## Plan de acción",
			check: func(t *testing.T, doc *goquery.Document) {
				require.Equal(t, 1, doc.Find("h1.md-heading-1").Length())
				require.Equal(t, 1, doc.Find("h2.md-heading-2").Length())
			},
		},
		{
			name:   "raw html is omitted",
			source: `Hola <script>alert("x")</script>`,
			check: func(t *testing.T, doc *goquery.Document) {
				require.Equal(t, 0, doc.Find("script").Length())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered, err := ssr.Markdown(tt.source)
			require.NoError(t, err)
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(rendered)))
			require.NoError(t, err)
			tt.check(t, doc)
		})
	}
}

func TestDecorate(t *testing.T) {
	var out strings.Builder
	err := ssr.Decorate(&out, strings.NewReader(`<p>uno</p><blockquote>dos</blockquote>`))
	require.NoError(t, err)
	require.Equal(t, `<p>uno</p><blockquote class="md-quote">dos</blockquote>`, out.String())
}
