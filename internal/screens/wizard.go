package screens

import (
	"context"
	"github.com/planificaia/aliada/internal/errors"
	"github.com/planificaia/aliada/internal/onboarding"
	"sync"
)

// WizardView is a consistent snapshot of a wizard for rendering.
type WizardView struct {
	Step     onboarding.StepDescriptor
	Prompt   string
	Index    int
	Total    int
	Options  []onboarding.Option
	Answer   onboarding.Value
	Answered bool
	Complete bool
}

// NoOptions is set when a select step has nothing to choose from, e.g. grade before level.
func (v WizardView) NoOptions() bool {
	return v.Step.Kind.IsSelect() && len(v.Options) == 0
}

// Wizard is the form-based onboarding screen: one step per page.
type Wizard struct {
	mu        sync.Mutex
	visitorID string
	seq       *onboarding.Sequencer
	sink      onboarding.ProfileSink
}

func NewWizard(visitorID string, table *onboarding.Table, sink onboarding.ProfileSink) *Wizard {
	return &Wizard{
		mu:        sync.Mutex{},
		visitorID: visitorID,
		seq:       onboarding.NewSequencer(table),
		sink:      sink,
	}
}

// View returns the current step with its effective options and any committed answer to prefill.
func (w *Wizard) View() WizardView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view()
}

func (w *Wizard) view() WizardView {
	step := w.seq.Current()
	answers := w.seq.Answers()
	answer, answered := answers[step.Key]
	return WizardView{
		Step:     step,
		Prompt:   step.RenderPrompt(answers),
		Index:    w.seq.Index(),
		Total:    w.seq.Table().Len(),
		Options:  w.seq.CurrentOptions(),
		Answer:   answer,
		Answered: answered,
		Complete: w.seq.Complete(),
	}
}

// Answers returns a copy of the answers committed so far.
func (w *Wizard) Answers() onboarding.AnswerRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq.Answers()
}

// Submit answers the step the form was rendered for. The finished record is handed to the profile sink once the
// last step is answered.
func (w *Wizard) Submit(ctx context.Context, key string, in onboarding.Input) (onboarding.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	res, err := w.seq.SubmitStep(key, in)
	if err != nil {
		return res, err
	}
	if res.Complete {
		record, _ := w.seq.Record()
		if err = w.sink.Save(ctx, w.visitorID, record); err != nil {
			return res, errors.Wrap(err, "save profile")
		}
	}
	return res, nil
}

// Back returns to the previous step.
func (w *Wizard) Back() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq.GoToPreviousStep()
}

// Close is a no-op. The wizard holds no goroutines.
func (w *Wizard) Close() {}
