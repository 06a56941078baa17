package main

import (
	"bytes"
	"fmt"
	"github.com/planificaia/aliada/internal/chat"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/id"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

func setSSEHeaders(w http.ResponseWriter) {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
}

// sseWrite writes one event. Multi-line data is split into several data fields.
func sseWrite(w io.Writer, eventID, event, data string) error {
	var b strings.Builder
	if eventID != "" {
		_, _ = fmt.Fprintf(&b, "id: %s\n", eventID)
	}
	_, _ = fmt.Fprintf(&b, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Wrap(err, "write event", slog.String("event", event))
	}
	return nil
}

// streamReplies forwards the replies of the pending turn as "message" events carrying the rendered message. A final
// "done" event tells the page to reload, which also happens right away when no turn is pending or another stream
// already follows it.
func (app *application) streamReplies(w http.ResponseWriter, r *http.Request, simulator *chat.Simulator) {
	ctx := r.Context()
	rc := http.NewResponseController(w)

	// A turn may take longer than the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		app.serverError(w, r, errors.Wrap(err, "clear write deadline"))
		return
	}

	t, err := parseTemplates("message")
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	bindRequest(t, r)

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err = rc.Flush(); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "failed to flush stream", errors.SlogError(err))
		return
	}

	if streamID, pending := simulator.Pending(); pending {
		if err = app.forwardTurn(w, r, rc, t, streamID); err != nil {
			app.logger.LogAttrs(ctx, slog.LevelDebug, "stream ended early", errors.SlogError(err))
			return
		}
	}

	if err = sseWrite(w, "", "done", "done"); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "stream ended early", errors.SlogError(err))
		return
	}
	_ = rc.Flush()
}

// forwardTurn writes the replies published under streamID until the turn is over.
func (app *application) forwardTurn(
	w http.ResponseWriter,
	r *http.Request,
	rc *http.ResponseController,
	t *template.Template,
	streamID int64,
) error {
	ctx := r.Context()

	var (
		channel chan chat.Message
		ok      bool
	)
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for subscription")
	case channel, ok = <-app.broker.Subscribe(streamID):
	}
	if !ok {
		// The turn is over or another stream follows it.
		return nil
	}

	buf := new(bytes.Buffer)
	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "forward replies")
		case msg, open := <-channel:
			if !open {
				return nil
			}
			buf.Reset()
			if err := t.ExecuteTemplate(buf, "message", msg); err != nil {
				return errors.Wrap(err, "render message")
			}
			if err := sseWrite(w, id.String(msg.ID), "message", buf.String()); err != nil {
				return err
			}
			if err := rc.Flush(); err != nil {
				return errors.Wrap(err, "flush")
			}
		}
	}
}
