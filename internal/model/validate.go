package model

import (
	"encoding/json"
	"fmt"
)

// InvalidExamError describes why an exam definition was rejected. Nothing
// downstream runs on a malformed exam; validation failures stop at the
// boundary.
type InvalidExamError struct {
	Reason string
}

func (e *InvalidExamError) Error() string {
	return "invalid exam: " + e.Reason
}

// Validate checks the structural invariants of an exam definition: a name,
// at least one question, exactly four options per question, and a correct
// index inside the option range.
func (e *Exam) Validate() error {
	if e.Exam == "" {
		return &InvalidExamError{Reason: "missing exam name"}
	}
	if len(e.Questions) == 0 {
		return &InvalidExamError{Reason: "questions list is empty"}
	}
	for i, q := range e.Questions {
		if q.Question == "" {
			return &InvalidExamError{Reason: fmt.Sprintf("question %d: empty prompt", i+1)}
		}
		if len(q.Options) != OptionCount {
			return &InvalidExamError{Reason: fmt.Sprintf("question %d: expected %d options, got %d", i+1, OptionCount, len(q.Options))}
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return &InvalidExamError{Reason: fmt.Sprintf("question %d: correctIndex %d outside [0,%d]", i+1, q.CorrectIndex, len(q.Options)-1)}
		}
	}
	return nil
}

// ParseExam parses an externally authored exam JSON document and validates
// it against the schema. Documents missing the exam name or the questions
// list, or with malformed questions, are rejected with *InvalidExamError.
func ParseExam(data []byte) (*Exam, error) {
	var probe struct {
		Exam      string          `json:"exam"`
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &InvalidExamError{Reason: "not valid JSON: " + err.Error()}
	}
	if probe.Exam == "" {
		return nil, &InvalidExamError{Reason: "missing exam name"}
	}
	if len(probe.Questions) == 0 {
		return nil, &InvalidExamError{Reason: "missing questions"}
	}
	var qs []json.RawMessage
	if err := json.Unmarshal(probe.Questions, &qs); err != nil {
		return nil, &InvalidExamError{Reason: "questions is not a list"}
	}

	var exam Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		return nil, &InvalidExamError{Reason: "malformed exam document: " + err.Error()}
	}
	if err := exam.Validate(); err != nil {
		return nil, err
	}
	return &exam, nil
}

// SampleExam returns the built-in demo exam offered on the setup screen.
func SampleExam() *Exam {
	return &Exam{
		Exam:             "Sample ACE Test",
		TimeLimitMinutes: 10,
		Marking:          Marking{Correct: 3, Wrong: -1},
		Questions: []Question{
			{
				ID:           1,
				Question:     "What is the capital of France?",
				Options:      []string{"London", "Berlin", "Paris", "Madrid"},
				CorrectIndex: 2,
				Explanation:  "Paris is the capital and largest city of France.",
			},
			{
				ID:           2,
				Question:     "Which planet is known as the Red Planet?",
				Options:      []string{"Venus", "Mars", "Jupiter", "Saturn"},
				CorrectIndex: 1,
				Explanation:  "Mars appears red due to iron oxide on its surface.",
			},
		},
	}
}
