package chat_test

import (
	"context"
	"github.com/planificaia/aliada/internal/broker"
	"github.com/planificaia/aliada/internal/chat"
	"github.com/planificaia/aliada/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"strings"
	"testing"
	"time"
)

const delay = 20 * time.Millisecond

func newSimulator(t *testing.T, publisher chat.Publisher) *chat.Simulator {
	t.Helper()
	s := chat.NewSimulator(context.Background(), chat.Config{
		ReplyDelay:    delay,
		AnalysisDelay: delay,
		ReportLink: func(f chat.FileDescriptor) string {
			return "/main-chat/report?file=" + f.BaseName()
		},
	}, chat.NewCannedResponder("uno", "dos"), publisher, testhelpers.NewLogger(io.Discard))
	t.Cleanup(s.Close)
	return s
}

func TestSimulator_RespondTo(t *testing.T) {
	t.Parallel()
	s := newSimulator(t, nil)

	_, err := s.RespondTo("hola")
	require.NoError(t, err)
	require.Equal(t, chat.StateAwaitingResponse, s.State())
	require.Equal(t, 0, s.Transcript().Len(), "reply must be deferred")

	require.Eventually(t, func() bool { return s.State() == chat.StateIdle }, time.Second, time.Millisecond)
	s.Wait()
	messages := s.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, chat.OriginAssistant, messages[0].Origin)
	require.Equal(t, "uno", messages[0].Text)

	// Staying idle does not produce more messages.
	time.Sleep(2 * delay)
	require.Equal(t, 1, s.Transcript().Len())
}

func TestSimulator_closeBeforeDelay(t *testing.T) {
	t.Parallel()
	s := newSimulator(t, nil)

	_, err := s.RespondTo("hola")
	require.NoError(t, err)
	s.Close()
	s.Wait()
	time.Sleep(2 * delay)

	require.Equal(t, 0, s.Transcript().Len())
	_, err = s.Send("¿sigues ahí?")
	require.ErrorIs(t, err, chat.ErrClosed)
	_, err = s.Append(chat.OriginAssistant, "tarde")
	require.ErrorIs(t, err, chat.ErrClosed)
}

func TestSimulator_parentContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	s := chat.NewSimulator(ctx, chat.Config{ReplyDelay: delay}, chat.NewCannedResponder(), nil,
		testhelpers.NewLogger(io.Discard))

	_, err := s.Send("hola")
	require.NoError(t, err)
	cancel()
	<-s.Done()
	s.Wait()
	time.Sleep(2 * delay)
	require.Equal(t, 0, s.Transcript().CountFrom(chat.OriginAssistant))
}

func TestSimulator_Send(t *testing.T) {
	t.Parallel()
	s := newSimulator(t, nil)

	_, err := s.Send("   ")
	require.ErrorIs(t, err, chat.ErrEmptyMessage)

	_, err = s.Send("¿Cómo motivo a mis estudiantes?")
	require.NoError(t, err)
	_, err = s.Send("¿Hola?")
	require.ErrorIs(t, err, chat.ErrBusy)

	require.Eventually(t, func() bool { return s.State() == chat.StateIdle }, time.Second, time.Millisecond)
	_, err = s.Send("Gracias")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.State() == chat.StateIdle }, time.Second, time.Millisecond)
	s.Wait()

	messages := s.Messages()
	require.Len(t, messages, 4)
	texts := make([]string, 0, len(messages))
	for _, m := range messages {
		texts = append(texts, string(m.Origin)+":"+m.Text)
	}
	require.Equal(t, []string{
		"user:¿Cómo motivo a mis estudiantes?",
		"assistant:uno",
		"user:Gracias",
		"assistant:dos",
	}, texts)
	for i := 1; i < len(messages); i++ {
		assert.Greater(t, messages[i].ID, messages[i-1].ID)
	}
}

func TestSimulator_Upload(t *testing.T) {
	t.Parallel()
	s := newSimulator(t, nil)

	_, err := s.Upload(chat.FileDescriptor{Name: "foto.png", MIMEType: "image/png", Size: 10})
	require.ErrorIs(t, err, chat.ErrUnsupportedFile)
	require.Equal(t, 0, s.Transcript().Len())

	_, err = s.Upload(chat.FileDescriptor{Name: "clase.mp3", MIMEType: "audio/mpeg", Size: 1024})
	require.NoError(t, err)
	require.Equal(t, "📎 Audio subido: clase.mp3", s.Messages()[0].Text)

	require.Eventually(t, func() bool { return s.Transcript().Len() == 2 }, time.Second, time.Millisecond)
	require.Equal(t, chat.StateAwaitingResponse, s.State(), "analysis still running after the receipt")
	require.Contains(t, s.Messages()[1].Text, `"clase.mp3"`)

	require.Eventually(t, func() bool { return s.State() == chat.StateIdle }, time.Second, time.Millisecond)
	s.Wait()
	messages := s.Messages()
	require.Len(t, messages, 3)
	require.Contains(t, messages[2].Text, "¡Análisis completado!")
	require.Contains(t, messages[2].Text, "(/main-chat/report?file=clase.mp3)")
}

func TestSimulator_Deliver(t *testing.T) {
	t.Parallel()
	s := newSimulator(t, nil)

	_, err := s.Append(chat.OriginAssistant, "¡Hola!")
	require.NoError(t, err)
	_, err = s.Deliver("¿Qué nivel educativo impartes?")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.State() == chat.StateIdle }, time.Second, time.Millisecond)
	require.Equal(t, 2, s.Transcript().CountFrom(chat.OriginAssistant))
}

func TestSimulator_publishesReplies(t *testing.T) {
	t.Parallel()
	b := broker.NewChannelBroker[int64, chat.Message]()
	go b.Start()
	t.Cleanup(b.Stop)
	s := newSimulator(t, b)

	streamID, err := s.Send("hola")
	require.NoError(t, err)
	pending, ok := s.Pending()
	require.True(t, ok)
	require.Equal(t, streamID, pending)

	channel, ok := <-b.Subscribe(streamID)
	require.True(t, ok, "turn should be published")
	var received []string
	for msg := range channel {
		received = append(received, msg.Text)
	}
	require.Equal(t, []string{"uno"}, received)

	// Once the turn is over the subscription closes right away.
	require.Eventually(t, func() bool {
		_, ok := <-b.Subscribe(streamID)
		return !ok
	}, time.Second, time.Millisecond)
}

func TestCannedResponder(t *testing.T) {
	r := chat.NewCannedResponder()
	seen := map[string]bool{}
	for range len(chat.DefaultReplies) * 2 {
		reply, err := r.Respond(context.Background(), "hola")
		require.NoError(t, err)
		seen[reply] = true
	}
	require.Len(t, seen, len(chat.DefaultReplies))
}

func TestFileDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		file    chat.FileDescriptor
		wantErr error
	}{
		{name: "mp3", file: chat.FileDescriptor{Name: "a.mp3", MIMEType: "audio/mpeg", Size: 1}},
		{name: "wav by extension", file: chat.FileDescriptor{Name: "a.WAV", MIMEType: "application/octet-stream", Size: 1}},
		{name: "pdf", file: chat.FileDescriptor{Name: "plan.pdf", MIMEType: "application/pdf", Size: 1}},
		{name: "text with charset", file: chat.FileDescriptor{Name: "n.txt", MIMEType: "text/plain; charset=utf-8", Size: 1}},
		{name: "image", file: chat.FileDescriptor{Name: "a.png", MIMEType: "image/png", Size: 1}, wantErr: chat.ErrUnsupportedFile},
		{name: "unknown extension", file: chat.FileDescriptor{Name: "a.bin", Size: 1}, wantErr: chat.ErrUnsupportedFile},
		{name: "empty", file: chat.FileDescriptor{Name: "a.mp3", MIMEType: "audio/mpeg", Size: 0}, wantErr: chat.ErrEmptyFile},
		{name: "too large", file: chat.FileDescriptor{Name: "a.mp3", MIMEType: "audio/mpeg", Size: chat.MaxUploadSize + 1}, wantErr: chat.ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.file.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	require.Equal(t, "clase.mp3", chat.FileDescriptor{Name: `C:\fakepath\clase.mp3`}.BaseName())
}

func TestFeedbackReport(t *testing.T) {
	report := chat.FeedbackReport("clase.mp3", time.Date(2025, 8, 14, 9, 30, 0, 0, time.UTC))
	require.True(t, strings.HasPrefix(report, "# Retroalimentación pedagógica"))
	require.Contains(t, report, "clase.mp3")
	require.Contains(t, report, "14/08/2025")
	require.Contains(t, report, "09:30")
	require.Contains(t, report, "## Plan de acción")
}
