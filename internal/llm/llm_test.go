package llm

import (
	"errors"
	"strings"
	"testing"
)

const validBatch = `[
	{"id": 1, "question": "What is the capital of France?", "options": ["London", "Berlin", "Paris", "Madrid"], "correctIndex": 2, "explanation": "Paris is the capital of France."},
	{"id": 2, "question": "Which planet is known as the Red Planet?", "options": ["Venus", "Mars", "Jupiter", "Saturn"], "correctIndex": 1, "explanation": "Mars appears red due to iron oxide."}
]`

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `[{"id": 1}]`, `[{"id": 1}]`},
		{"json fence", "```json\n[1, 2]\n```", "[1, 2]"},
		{"bare fence", "```\n[1, 2]\n```", "[1, 2]"},
		{"surrounding whitespace", "  \n```json\n[]\n```\n  ", "[]"},
		{"trailing fence only", "[]\n```", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFences(tt.in); got != tt.want {
				t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseQuestionsValid(t *testing.T) {
	questions, err := parseQuestions(validBatch)
	if err != nil {
		t.Fatalf("parseQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].CorrectIndex != 2 {
		t.Errorf("correctIndex = %d, want 2", questions[0].CorrectIndex)
	}
	if questions[1].ID != 2 {
		t.Errorf("ids should be renumbered sequentially, got %d", questions[1].ID)
	}
}

func TestParseQuestionsFenced(t *testing.T) {
	questions, err := parseQuestions("```json\n" + validBatch + "\n```")
	if err != nil {
		t.Fatalf("parseQuestions with fences: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
}

func TestParseQuestionsRejects(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantMsg string
	}{
		{"empty string", "", "not a JSON array"},
		{"prose", "Here are your questions!", "not a JSON array"},
		{"object not array", `{"questions": []}`, "not a JSON array"},
		{"empty array", `[]`, "no questions"},
		{"three options", `[{"id": 1, "question": "Q?", "options": ["a", "b", "c"], "correctIndex": 0}]`, "expected 4 options"},
		{"five options", `[{"id": 1, "question": "Q?", "options": ["a", "b", "c", "d", "e"], "correctIndex": 0}]`, "expected 4 options"},
		{"correctIndex out of range", `[{"id": 1, "question": "Q?", "options": ["a", "b", "c", "d"], "correctIndex": 4}]`, "correctIndex 4"},
		{"negative correctIndex", `[{"id": 1, "question": "Q?", "options": ["a", "b", "c", "d"], "correctIndex": -1}]`, "correctIndex -1"},
		{"empty question text", `[{"id": 1, "question": "  ", "options": ["a", "b", "c", "d"], "correctIndex": 0}]`, "empty question text"},
		{"empty option", `[{"id": 1, "question": "Q?", "options": ["a", "", "c", "d"], "correctIndex": 0}]`, "option 2 is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseQuestions(tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("expected *GenerationError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseQuestionsAllOrNothing(t *testing.T) {
	// One bad question poisons the whole batch.
	mixed := `[
		{"id": 1, "question": "Good?", "options": ["a", "b", "c", "d"], "correctIndex": 0},
		{"id": 2, "question": "Bad?", "options": ["a", "b"], "correctIndex": 0}
	]`
	questions, err := parseQuestions(mixed)
	if err == nil {
		t.Fatal("expected error for mixed batch")
	}
	if questions != nil {
		t.Errorf("expected no partial result, got %d questions", len(questions))
	}
}
