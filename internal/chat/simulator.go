package chat

import (
	"context"
	"fmt"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/id"
	"log/slog"
	"strings"
	"sync"
	"time"
)

var (
	// ErrBusy is returned while a reply is still pending.
	ErrBusy = errors.NewSentinel("reply pending")
	// ErrClosed is returned after the owning screen was torn down.
	ErrClosed = errors.NewSentinel("chat closed")
	// ErrEmptyMessage rejects blank user messages.
	ErrEmptyMessage = errors.NewSentinel("empty message")
)

// State of a chat screen.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	if s == StateAwaitingResponse {
		return "awaiting-response"
	}
	return "idle"
}

// Publisher hands the replies of a pending turn to whoever streams them to the browser.
// broker.ChannelBroker satisfies it.
type Publisher interface {
	Publish(id int64, channel chan Message)
	Unpublish(id int64)
}

type Config struct {
	// ReplyDelay is how long the assistant "thinks" before replying.
	ReplyDelay time.Duration
	// AnalysisDelay is how long the analysis of an uploaded class takes after it was received.
	AnalysisDelay time.Duration
	// ReportLink returns the download link of the feedback report for an uploaded file. Optional.
	ReportLink func(FileDescriptor) string
}

// step is one deferred assistant message of a turn.
type step struct {
	delay time.Duration
	text  func(ctx context.Context) (string, error)
}

// Simulator emulates an assistant answering asynchronously.
//
// Replies are appended to the transcript after fixed delays. The simulator is bound to the context of the screen
// that owns it: once Close is called or the context is cancelled, pending replies are discarded and no message is
// appended anymore. While a reply is pending the simulator is in StateAwaitingResponse and rejects new turns with
// ErrBusy.
type Simulator struct {
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	state      State
	pendingID  int64
	transcript Transcript
	responder  Responder
	publisher  Publisher
	cfg        Config
	logger     *slog.Logger
	wg         sync.WaitGroup
	now        func() time.Time
}

// NewSimulator creates a simulator bound to ctx. publisher may be nil.
func NewSimulator(
	ctx context.Context,
	cfg Config,
	responder Responder,
	publisher Publisher,
	logger *slog.Logger,
) *Simulator {
	ctx, cancel := context.WithCancel(ctx)
	s := &Simulator{ //nolint:exhaustruct // zero values are ready to use
		ctx:       ctx,
		cancel:    cancel,
		state:     StateIdle,
		responder: responder,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With("source", "chat.Simulator"),
		now:       time.Now,
	}
	// Propagate parent cancellation through the lock so that it is ordered with appends.
	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return s
}

// Messages returns a snapshot of the transcript.
func (s *Simulator) Messages() []Message {
	return s.transcript.Messages()
}

// Transcript exposes the transcript for counting and snapshots.
func (s *Simulator) Transcript() *Transcript {
	return &s.transcript
}

// State returns the current state.
func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the stream id of the pending turn.
func (s *Simulator) Pending() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingID, s.state == StateAwaitingResponse
}

// Done is closed when the simulator is torn down.
func (s *Simulator) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Append adds a message immediately, e.g. a greeting or the user's answer.
func (s *Simulator) Append(origin Origin, text string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return Message{}, ErrClosed
	}
	msg := s.newMessage(origin, text)
	s.transcript.append(msg)
	return msg, nil
}

// Send appends the user's message and schedules the responder's reply. It returns the stream id of the turn.
func (s *Simulator) Send(text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrEmptyMessage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdle(); err != nil {
		return 0, err
	}
	s.transcript.append(s.newMessage(OriginUser, text))
	return s.start(s.replyTo(text)), nil
}

// RespondTo schedules the responder's reply to text without recording text itself.
func (s *Simulator) RespondTo(text string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdle(); err != nil {
		return 0, err
	}
	return s.start(s.replyTo(text)), nil
}

// Deliver schedules fixed assistant messages, each one ReplyDelay after the previous.
func (s *Simulator) Deliver(texts ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdle(); err != nil {
		return 0, err
	}
	steps := make([]step, 0, len(texts))
	for _, text := range texts {
		steps = append(steps, step{delay: s.cfg.ReplyDelay, text: constant(text)})
	}
	return s.start(steps...), nil
}

// Upload records the uploaded file and schedules the two stage analysis: a receipt after ReplyDelay and the
// completed analysis after a further AnalysisDelay.
func (s *Simulator) Upload(file FileDescriptor) (int64, error) {
	if err := file.Validate(); err != nil {
		return 0, err
	}
	name := file.BaseName()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIdle(); err != nil {
		return 0, err
	}
	label := "Archivo subido"
	if file.IsAudio() {
		label = "Audio subido"
	}
	s.transcript.append(s.newMessage(OriginUser, fmt.Sprintf("📎 %s: %s", label, name)))

	receipt := fmt.Sprintf("¡Perfecto! He recibido tu archivo \"%s\". "+
		"Estoy analizando la clase y generando tu retroalimentación...", name)
	completed := "✅ **¡Análisis completado!** He generado tu retroalimentación detallada.\n\n" +
		"📋 El reporte incluye:\n\n" +
		"- Análisis de contenido\n- Sugerencias metodológicas\n- Recomendaciones de mejora\n- Plan de acción\n\n"
	if s.cfg.ReportLink != nil {
		completed += fmt.Sprintf("[Descargar retroalimentación](%s)\n\n", s.cfg.ReportLink(file))
	}
	completed += "¿Te gustaría que profundice en algún aspecto específico?"

	return s.start(
		step{delay: s.cfg.ReplyDelay, text: constant(receipt)},
		step{delay: s.cfg.AnalysisDelay, text: constant(completed)},
	), nil
}

// Close tears the simulator down. Pending replies are discarded and nothing is appended after Close returns.
// Close is idempotent.
func (s *Simulator) Close() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
}

// Wait blocks until the goroutines of pending turns have exited.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

func (s *Simulator) checkIdle() error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	if s.state == StateAwaitingResponse {
		return ErrBusy
	}
	return nil
}

func (s *Simulator) newMessage(origin Origin, text string) Message {
	return Message{
		ID:        id.New(),
		Origin:    origin,
		Text:      text,
		Timestamp: s.now(),
	}
}

func (s *Simulator) replyTo(text string) step {
	return step{
		delay: s.cfg.ReplyDelay,
		text: func(ctx context.Context) (string, error) {
			return s.responder.Respond(ctx, text)
		},
	}
}

func constant(text string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		return text, nil
	}
}

// start runs the steps of a turn in a goroutine. Must be called with s.mu held.
func (s *Simulator) start(steps ...step) int64 {
	streamID := id.New()
	s.state = StateAwaitingResponse
	s.pendingID = streamID

	// Buffered so that the turn never waits for a slow or missing subscriber.
	channel := make(chan Message, len(steps))
	if s.publisher != nil {
		s.publisher.Publish(streamID, channel)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			close(channel)
			if s.publisher != nil {
				s.publisher.Unpublish(streamID)
			}
		}()
		defer s.finish(streamID)

		for _, st := range steps {
			timer := time.NewTimer(st.delay)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				s.logger.LogAttrs(s.ctx, slog.LevelDebug, "pending reply discarded", slog.Int64("streamID", streamID))
				return
			case <-timer.C:
			}
			text, err := st.text(s.ctx)
			if err != nil {
				err = errors.Wrap(err, "produce reply")
				s.logger.LogAttrs(s.ctx, slog.LevelError, "failed to produce reply", errors.SlogError(err))
				text = "Lo siento, no pude procesar tu mensaje. Inténtalo de nuevo."
			}
			msg, ok := s.appendIfLive(text)
			if !ok {
				return
			}
			channel <- msg
		}
	}()
	return streamID
}

// appendIfLive appends an assistant message unless the simulator was closed. The check and the append happen under
// the same lock as Close.
func (s *Simulator) appendIfLive(text string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return Message{}, false
	}
	msg := s.newMessage(OriginAssistant, text)
	s.transcript.append(msg)
	return msg, true
}

func (s *Simulator) finish(streamID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingID == streamID {
		s.state = StateIdle
	}
}
