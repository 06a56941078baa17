package screens

import (
	"context"
	"github.com/planificaia/aliada/internal/chat"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/onboarding"
	"sync"
)

// Conversation is the chat-styled onboarding: the assistant asks each step as a message and the visitor answers in
// the composer below the transcript.
type Conversation struct {
	mu        sync.Mutex
	visitorID string
	seq       *onboarding.Sequencer
	sim       *chat.Simulator
	sink      onboarding.ProfileSink
}

// NewConversation greets the visitor and asks the first question right away.
func NewConversation(
	visitorID string,
	table *onboarding.Table,
	simulator *chat.Simulator,
	sink onboarding.ProfileSink,
) (*Conversation, error) {
	c := &Conversation{
		mu:        sync.Mutex{},
		visitorID: visitorID,
		seq:       onboarding.NewSequencer(table),
		sim:       simulator,
		sink:      sink,
	}
	first := c.seq.Current()
	for _, text := range []string{table.Greeting, first.RenderPrompt(nil)} {
		if text == "" {
			continue
		}
		if _, err := simulator.Append(chat.OriginAssistant, text); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ConversationView is a consistent snapshot for rendering.
type ConversationView struct {
	Messages []chat.Message
	Step     onboarding.StepDescriptor
	Options  []onboarding.Option
	// Answer is the committed answer of Step, set after going back.
	Answer   onboarding.Value
	Answered bool
	Index    int
	Total    int
	Complete bool
	// Pending is set while the assistant is typing. The composer is hidden until the question is in the transcript.
	Pending  bool
	StreamID int64
}

// NoOptions is set when a select step has nothing to choose from.
func (v ConversationView) NoOptions() bool {
	return v.Step.Kind.IsSelect() && len(v.Options) == 0
}

func (c *Conversation) View() ConversationView {
	c.mu.Lock()
	defer c.mu.Unlock()
	streamID, pending := c.sim.Pending()
	step := c.seq.Current()
	answer, answered := c.seq.Answer(step.Key)
	return ConversationView{
		Messages: c.sim.Messages(),
		Step:     step,
		Options:  c.seq.CurrentOptions(),
		Answer:   answer,
		Answered: answered,
		Index:    c.seq.Index(),
		Total:    c.seq.Table().Len(),
		Complete: c.seq.Complete(),
		Pending:  pending,
		StreamID: streamID,
	}
}

// Simulator exposes the transcript producer for streaming.
func (c *Conversation) Simulator() *chat.Simulator {
	return c.sim
}

// Answer submits the visitor's answer for the step named key. On success the answer is echoed in the visitor's
// words and the next question, or the closing line, follows after the reply delay. A rejected answer leaves the
// transcript untouched.
func (c *Conversation) Answer(ctx context.Context, key string, in onboarding.Input) (onboarding.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, pending := c.sim.Pending(); pending {
		return onboarding.Result{}, chat.ErrBusy
	}
	res, err := c.seq.SubmitStep(key, in)
	if err != nil {
		return res, err
	}

	answers := c.seq.Answers()
	table := c.seq.Table()
	if _, err = c.sim.Append(chat.OriginUser, table.Describe(key, answers[key], answers)); err != nil {
		return res, err
	}

	if res.Complete {
		record, _ := c.seq.Record()
		if err = c.sink.Save(ctx, c.visitorID, record); err != nil {
			return res, errors.Wrap(err, "save profile")
		}
		_, err = c.sim.Deliver(table.RenderClosing(answers))
		return res, err
	}
	_, err = c.sim.Deliver(c.seq.Current().RenderPrompt(answers))
	return res, err
}

// Back reopens the previous question.
func (c *Conversation) Back() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, pending := c.sim.Pending(); pending {
		return false, chat.ErrBusy
	}
	if !c.seq.GoToPreviousStep() {
		return false, nil
	}
	if _, err := c.sim.Append(chat.OriginAssistant, c.seq.Current().RenderPrompt(c.seq.Answers())); err != nil {
		return true, err
	}
	return true, nil
}

func (c *Conversation) Close() {
	c.sim.Close()
}
