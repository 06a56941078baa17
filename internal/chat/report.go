package chat

import (
	"fmt"
	"strings"
	"time"
)

// FeedbackReport renders the downloadable feedback for an analysed class as markdown.
func FeedbackReport(fileName string, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("# Retroalimentación pedagógica\n\n")
	fmt.Fprintf(&sb, "- **Archivo analizado:** %s\n", fileName)
	fmt.Fprintf(&sb, "- **Fecha de análisis:** %s\n", now.Format("02/01/2006"))
	fmt.Fprintf(&sb, "- **Hora:** %s\n\n", now.Format("15:04"))
	sb.WriteString("## Resumen ejecutivo\n\n")
	sb.WriteString("Se ha realizado un análisis completo de la clase proporcionada utilizando " +
		"inteligencia artificial especializada en educación.\n\n")
	section(&sb, "Aspectos destacados", "-",
		"Claridad en la explicación de conceptos",
		"Uso adecuado del tiempo",
		"Interacción con estudiantes",
		"Recursos didácticos empleados")
	section(&sb, "Sugerencias de mejora", "-",
		"Implementar más preguntas abiertas para fomentar la participación",
		"Incluir ejemplos prácticos adicionales",
		"Considerar diferentes estilos de aprendizaje",
		"Reforzar conceptos clave al final de la sesión")
	section(&sb, "Plan de acción", "1.",
		"Revisar los conceptos que requieren mayor clarificación",
		"Preparar actividades complementarias",
		"Diseñar evaluaciones formativas",
		"Planificar la siguiente sesión basada en este análisis")
	section(&sb, "Recursos recomendados", "-",
		"Técnicas de enseñanza activa",
		"Herramientas de evaluación formativa",
		"Estrategias de motivación estudiantil",
		"Métodos de retroalimentación efectiva")
	sb.WriteString("---\n\nGenerado por Aliada, tu asistente educativa.\n")
	return sb.String()
}

func section(sb *strings.Builder, title, bullet string, items ...string) {
	fmt.Fprintf(sb, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "%s %s\n", bullet, item)
	}
	sb.WriteString("\n")
}
