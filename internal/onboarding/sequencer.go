package onboarding

import (
	"fmt"
	"github.com/planificaia/aliada/internal/errors"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.NewSentinel("invalid answer")
	// ErrStaleStep is returned when a submission targets a step other than the current one, e.g. a form
	// submitted twice. Nothing changes.
	ErrStaleStep = errors.NewSentinel("stale step")
	// ErrComplete is returned for submissions after the last step was answered.
	ErrComplete = errors.NewSentinel("onboarding already complete")
)

// ValidationError explains why an answer was rejected. Reason is shown to the user as is.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid answer for step %s: %s", e.Key, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Result describes a successful submission.
type Result struct {
	// Complete is set when the last step was answered.
	Complete bool
	// Dropped lists the answers discarded because a step they depend on changed.
	Dropped []string
}

// Sequencer drives the linear onboarding wizard.
//
// It holds the index of the current step and the answers committed so far. The answer record only ever contains
// keys of steps that have been reached. A Sequencer is not safe for concurrent use; the owning screen serializes
// access.
type Sequencer struct {
	table    *Table
	index    int
	answers  AnswerRecord
	complete bool
}

func NewSequencer(table *Table) *Sequencer {
	return &Sequencer{
		table:    table,
		index:    0,
		answers:  AnswerRecord{},
		complete: false,
	}
}

// Table returns the step table the sequencer walks.
func (s *Sequencer) Table() *Table {
	return s.table
}

// Index is the zero-based position of the current step.
func (s *Sequencer) Index() int {
	return s.index
}

// Current returns the step awaiting an answer. After completion it stays at the last step.
func (s *Sequencer) Current() StepDescriptor {
	return s.table.Steps[s.index]
}

// Complete reports whether every step has been answered.
func (s *Sequencer) Complete() bool {
	return s.complete
}

// Answers returns a copy of the answers committed so far.
func (s *Sequencer) Answers() AnswerRecord {
	return s.answers.Clone()
}

// Answer returns the committed answer of a step.
func (s *Sequencer) Answer(key string) (Value, bool) {
	v, ok := s.answers[key]
	return v, ok
}

// CurrentOptions is OptionsFor the current step given the current answers.
func (s *Sequencer) CurrentOptions() []Option {
	return s.table.OptionsFor(s.Current().Key, s.answers)
}

// SubmitStep submits input for the step named key. Submitting a key that is not the current step returns
// ErrStaleStep without changing anything, which makes repeated form posts harmless.
func (s *Sequencer) SubmitStep(key string, in Input) (Result, error) {
	if s.complete || key != s.Current().Key {
		return Result{}, ErrStaleStep
	}
	return s.SubmitCurrentStep(in)
}

// SubmitCurrentStep validates input against the current step and commits it.
//
// On a *ValidationError the index and the answers are unchanged. On success the answer is stored, answers of steps
// depending on a changed answer are dropped, and the sequencer moves to the next step or completes.
func (s *Sequencer) SubmitCurrentStep(in Input) (Result, error) {
	if s.complete {
		return Result{}, ErrComplete
	}
	step := s.Current()
	value, err := s.parse(step, in)
	if err != nil {
		return Result{}, err
	}

	var dropped []string
	if previous, ok := s.answers[step.Key]; ok && !previous.Equal(value) {
		dropped = s.dropDependents(step.Key)
	}
	s.answers[step.Key] = value

	if s.index == len(s.table.Steps)-1 {
		s.complete = true
		return Result{Complete: true, Dropped: dropped}, nil
	}
	s.index++
	return Result{Complete: false, Dropped: dropped}, nil
}

// GoToPreviousStep moves back one step. It reports false and does nothing at the first step.
func (s *Sequencer) GoToPreviousStep() bool {
	if s.complete {
		s.complete = false
		return true
	}
	if s.index == 0 {
		return false
	}
	s.index--
	return true
}

// Record returns the finished answers. ok is false until the sequencer is complete.
func (s *Sequencer) Record() (AnswerRecord, bool) {
	if !s.complete {
		return nil, false
	}
	return s.answers.Clone(), true
}

// dropDependents removes the answers of every step that transitively depends on key.
func (s *Sequencer) dropDependents(key string) []string {
	var dropped []string
	changed := []string{key}
	for _, step := range s.table.Steps {
		if step.DependsOn == "" || !slices.Contains(changed, step.DependsOn) {
			continue
		}
		changed = append(changed, step.Key)
		if _, ok := s.answers[step.Key]; ok {
			delete(s.answers, step.Key)
			dropped = append(dropped, step.Key)
		}
	}
	return dropped
}

func (s *Sequencer) parse(step StepDescriptor, in Input) (Value, error) {
	invalid := func(reason string) (Value, error) {
		return Value{}, &ValidationError{Key: step.Key, Reason: reason}
	}
	text := strings.TrimSpace(in.Text)

	switch step.Kind {
	case KindText:
		if text == "" {
			return invalid("Este campo es obligatorio")
		}
		if step.MaxLength > 0 && utf8.RuneCountInString(text) > step.MaxLength {
			return invalid(fmt.Sprintf("Usa como máximo %d caracteres", step.MaxLength))
		}
		return Value{Kind: KindText, Text: text, Number: 0, Choices: nil}, nil

	case KindNumber:
		if text == "" {
			return invalid("Este campo es obligatorio")
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return invalid("Escribe un número entero")
		}
		if step.Max == 0 && n < step.Min {
			return invalid(fmt.Sprintf("Escribe un número mayor o igual a %d", step.Min))
		}
		if step.Max != 0 && (n < step.Min || n > step.Max) {
			return invalid(fmt.Sprintf("Escribe un número entre %d y %d", step.Min, step.Max))
		}
		return Value{Kind: KindNumber, Text: "", Number: n, Choices: nil}, nil

	case KindSingleSelect:
		options := s.table.OptionsFor(step.Key, s.answers)
		if len(options) == 0 {
			return invalid("No hay opciones disponibles")
		}
		if text == "" {
			return invalid("Selecciona una opción")
		}
		if !containsValue(options, text) {
			return invalid("Selecciona una de las opciones disponibles")
		}
		return Value{Kind: KindSingleSelect, Text: text, Number: 0, Choices: nil}, nil

	case KindMultiSelect:
		options := s.table.OptionsFor(step.Key, s.answers)
		choices := make([]string, 0, len(in.Choices))
		for _, c := range in.Choices {
			c = strings.TrimSpace(c)
			if c == "" || slices.Contains(choices, c) {
				continue
			}
			if !containsValue(options, c) {
				return invalid("Selecciona una de las opciones disponibles")
			}
			choices = append(choices, c)
		}
		if len(choices) == 0 && !step.Optional {
			return invalid("Selecciona al menos una opción")
		}
		return Value{Kind: KindMultiSelect, Text: "", Number: 0, Choices: choices}, nil
	}
	return invalid("Tipo de paso desconocido")
}

func containsValue(options []Option, value string) bool {
	return slices.ContainsFunc(options, func(o Option) bool { return o.Value == value })
}
