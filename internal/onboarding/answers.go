package onboarding

import (
	"slices"
	"strconv"
	"strings"
)

// Value is one committed answer. Text holds free text and single-select values, Number holds numeric answers and
// Choices holds multi-select values in the order they were submitted.
type Value struct {
	Kind    Kind
	Text    string
	Number  int
	Choices []string
}

// Values lists the selected option values of a select answer.
func (v Value) Values() []string {
	switch v.Kind {
	case KindMultiSelect:
		return v.Choices
	case KindSingleSelect:
		return []string{v.Text}
	default:
		return nil
	}
}

// Equal compares answers by kind and content.
func (v Value) Equal(other Value) bool {
	return v.Kind == other.Kind && v.Text == other.Text && v.Number == other.Number &&
		slices.Equal(v.Choices, other.Choices)
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.Itoa(v.Number)
	case KindMultiSelect:
		return strings.Join(v.Choices, ", ")
	default:
		return v.Text
	}
}

// AnswerRecord maps step keys to committed answers.
type AnswerRecord map[string]Value

// Clone returns a deep copy.
func (a AnswerRecord) Clone() AnswerRecord {
	c := make(AnswerRecord, len(a))
	for k, v := range a {
		v.Choices = slices.Clone(v.Choices)
		c[k] = v
	}
	return c
}

// Equal reports whether both records hold the same answers.
func (a AnswerRecord) Equal(other AnswerRecord) bool {
	if len(a) != len(other) {
		return false
	}
	for k, v := range a {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Input is the raw submission for a step. Text carries text, number and single-select input; Choices carries the
// checked boxes of a multi-select step.
type Input struct {
	Text    string
	Choices []string
}

// TextInput is a shorthand for text, number and single-select submissions.
func TextInput(s string) Input {
	return Input{Text: s, Choices: nil}
}

// ChoicesInput is a shorthand for multi-select submissions.
func ChoicesInput(choices ...string) Input {
	return Input{Text: "", Choices: choices}
}
