package prompts

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/acemcq/acemcq/internal/model"
)

var systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)

// Difficulty selects how demanding generated questions should be.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var validDifficulties = map[Difficulty]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

// IsValidDifficulty checks if a difficulty name is valid.
func IsValidDifficulty(d string) bool {
	return validDifficulties[Difficulty(d)]
}

// NormalizeDifficulty lowercases the input and falls back to medium for
// anything unrecognized.
func NormalizeDifficulty(d string) Difficulty {
	dd := Difficulty(strings.ToLower(strings.TrimSpace(d)))
	if validDifficulties[dd] {
		return dd
	}
	return DifficultyMedium
}

var difficultyGuidance = map[Difficulty]string{
	DifficultyEasy:   "Questions should test basic recall and definitions. A beginner who read an introductory text should answer most of them.",
	DifficultyMedium: "Questions should test applied understanding. Mix recall with scenarios that require connecting two or more ideas.",
	DifficultyHard:   "Questions should test deep understanding and edge cases. Distractors must be plausible to someone with partial knowledge.",
}

// BuildGeneratePrompt builds the system prompt for question generation.
// The response contract is a bare JSON array so the parser can reject
// anything else.
func BuildGeneratePrompt(topic string, count int, difficulty Difficulty) string {
	var sb strings.Builder
	sb.WriteString("You are a question author for a multiple-choice exam application.\n\n")
	sb.WriteString(fmt.Sprintf("Write exactly %d multiple-choice questions about the following topic:\n\n", count))
	sb.WriteString("TOPIC: " + SanitizeTopic(topic) + "\n\n")
	sb.WriteString("DIFFICULTY: " + string(difficulty) + ". " + difficultyGuidance[difficulty] + "\n\n")
	sb.WriteString("RULES:\n")
	sb.WriteString(fmt.Sprintf("- Each question has exactly %d options and ONE correct answer.\n", model.OptionCount))
	sb.WriteString("- correctIndex is the 0-based position of the correct option.\n")
	sb.WriteString("- Vary the position of the correct answer across questions.\n")
	sb.WriteString("- Each question includes a one or two sentence explanation of the correct answer.\n")
	sb.WriteString("\nRespond ONLY with a JSON array, no prose and no markdown fences:\n")
	sb.WriteString(`[{"id": 1, "question": "...", "options": ["...", "...", "...", "..."], "correctIndex": 0, "explanation": "..."}]`)
	sb.WriteString("\n")
	return sb.String()
}

// BuildHintPrompt builds the prompt for a tutoring hint. The hint must
// guide without revealing the answer.
func BuildHintPrompt(q model.Question) string {
	var sb strings.Builder
	sb.WriteString("You are a patient tutor. A student is stuck on this multiple-choice question:\n\n")
	sb.WriteString("QUESTION: " + q.Question + "\n\n")
	sb.WriteString("OPTIONS:\n")
	for i, opt := range q.Options {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, opt))
	}
	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("- Give a 2-3 sentence hint that points the student toward the right reasoning.\n")
	sb.WriteString("- Do NOT name or number the correct option.\n")
	sb.WriteString("- Do NOT say which options are wrong.\n")
	sb.WriteString("\nRespond with the hint text only, no preamble.\n")
	return sb.String()
}

// BuildAnalysisPrompt builds the prompt for a post-exam weak-area analysis
// over the questions the student got wrong.
func BuildAnalysisPrompt(exam *model.Exam, wrong []int) string {
	var sb strings.Builder
	sb.WriteString("You are an exam coach. A student just finished the exam ")
	sb.WriteString(fmt.Sprintf("%q and answered %d of %d questions incorrectly.\n\n", exam.Exam, len(wrong), len(exam.Questions)))
	sb.WriteString("QUESTIONS THE STUDENT GOT WRONG:\n\n")
	for _, pos := range wrong {
		if pos < 0 || pos >= len(exam.Questions) {
			continue
		}
		q := exam.Questions[pos]
		sb.WriteString("- " + q.Question + "\n")
		// Questions arrive from the client here, so the index may be garbage.
		if q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options) {
			sb.WriteString("  Correct answer: " + q.Options[q.CorrectIndex] + "\n")
		}
	}
	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("- Identify the common themes or knowledge gaps behind these mistakes.\n")
	sb.WriteString("- Suggest what to study next.\n")
	sb.WriteString("- Keep the whole analysis under 150 words.\n")
	sb.WriteString("\nRespond with the analysis text only.\n")
	return sb.String()
}

// SanitizeTopic strips instruction-injection markup from a user-supplied
// topic and caps its length.
func SanitizeTopic(topic string) string {
	topic = systemInstructionsRegex.ReplaceAllString(topic, "")
	topic = strings.TrimSpace(topic)

	if topic == "" {
		return "[No topic provided]"
	}

	if utf8.RuneCountInString(topic) > 200 {
		runes := []rune(topic)
		topic = string(runes[:200])
	}

	return topic
}
