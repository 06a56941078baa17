package chat

import (
	"context"
	"sync"
)

// Responder produces the assistant's reply to a user message.
type Responder interface {
	Respond(ctx context.Context, text string) (string, error)
}

// CannedResponder cycles through a fixed set of replies in order, ignoring the question. It stands in for a real
// assistant backend.
type CannedResponder struct {
	mu      sync.Mutex
	replies []string
	next    int
}

func NewCannedResponder(replies ...string) *CannedResponder {
	if len(replies) == 0 {
		replies = DefaultReplies
	}
	return &CannedResponder{
		mu:      sync.Mutex{},
		replies: replies,
		next:    0,
	}
}

func (c *CannedResponder) Respond(_ context.Context, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reply := c.replies[c.next]
	c.next = (c.next + 1) % len(c.replies)
	return reply, nil
}

// DefaultReplies are the replies of the main assistant chat.
var DefaultReplies = []string{
	"Entiendo tu consulta. Como tu asistente pedagógica, estoy aquí para ayudarte. " +
		"¿Podrías contarme más detalles sobre lo que necesitas?",
	"Excelente pregunta. En mi experiencia analizando clases, he notado que esto es muy común. " +
		"Te puedo sugerir algunas **estrategias efectivas**.",
	"Me parece una situación interesante. ¿Has intentado aplicar *metodologías activas* en este caso? " +
		"Te puedo compartir algunas ideas específicas.",
}

// SessionReplies are the replies of the class feedback session.
var SessionReplies = []string{
	"Entiendo tu consulta. Déjame analizar ese aspecto específico de tu clase y te daré recomendaciones concretas.",
	"Buena observación. Revisando la grabación, te sugiero alternar la explicación con **preguntas abiertas** " +
		"cada 10 a 15 minutos.",
}
