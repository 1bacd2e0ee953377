package model

import "time"

// Mode selects the attempt flavor: timed exam or untimed practice.
type Mode string

const (
	ModeExam     Mode = "exam"
	ModePractice Mode = "practice"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeExam || m == ModePractice
}

// OptionCount is the number of choices every question must carry.
const OptionCount = 4

// Unanswered is the sentinel for a question with no selection yet.
const Unanswered = -1

// Question is a single multiple-choice question. Immutable once an exam
// is loaded.
type Question struct {
	ID           int      `json:"id"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Marking holds the per-question point deltas. Wrong is typically negative;
// unanswered questions always score zero.
type Marking struct {
	Correct float64 `json:"correct"`
	Wrong   float64 `json:"wrong"`
}

// Exam is a complete exam definition. The JSON field names form the
// import/export schema: externally authored documents of this shape are
// accepted as an alternative to generated content.
type Exam struct {
	Exam             string     `json:"exam"`
	TimeLimitMinutes int        `json:"timeLimitMinutes"`
	Marking          Marking    `json:"marking"`
	Questions        []Question `json:"questions"`
}

// Response records the state of a single question within an attempt,
// positional with Exam.Questions. Overwritten, never removed.
type Response struct {
	SelectedIndex int  `json:"selectedIndex"`
	IsCorrect     bool `json:"isCorrect"`
	TimeSpentSec  int  `json:"timeSpentSec,omitempty"`
}

// Answered reports whether an option has been selected.
func (r Response) Answered() bool {
	return r.SelectedIndex != Unanswered
}

// ResultSummary is derived from an exam plus its responses. Computed on
// demand, never stored as mutable state.
type ResultSummary struct {
	TotalScore      float64 `json:"totalScore"`
	CorrectCount    int     `json:"correctCount"`
	IncorrectCount  int     `json:"incorrectCount"`
	UnansweredCount int     `json:"unansweredCount"`
	Accuracy        float64 `json:"accuracy"`
	TimeTakenSec    int     `json:"timeTakenSec"`
}

// PracticeRecord is one completed attempt in the persisted history.
type PracticeRecord struct {
	ID             string  `json:"id"`
	ExamName       string  `json:"examName"`
	Date           string  `json:"date"`
	Score          float64 `json:"score"`
	Total          int     `json:"total"`
	Percentage     int     `json:"percentage"`
	Mode           Mode    `json:"mode"`
	DurationSec    int     `json:"duration"`
	WrongQuestions []int   `json:"wrongQuestions"`
}

// SavedExam is a stored exam definition, keyed by display name for upsert.
type SavedExam struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Exam    Exam   `json:"exam"`
	SavedAt string `json:"savedAt"`
}

// UserStats is the singleton aggregate record, updated once per completed
// attempt.
type UserStats struct {
	TestsAttempted    int    `json:"testsAttempted"`
	QuestionsAnswered int    `json:"questionsAnswered"`
	CorrectAnswers    int    `json:"correctAnswers"`
	TimeSpentSec      int    `json:"timeSpentSec"`
	CurrentStreak     int    `json:"currentStreak"`
	LastActiveDate    string `json:"lastActiveDate"` // ISO date, day granularity
}

// DateLayout is the calendar-day format used for streak comparisons.
const DateLayout = "2006-01-02"

// DaysBetween returns the whole-day difference between two ISO dates.
// A malformed date counts as arbitrarily old so the streak resets.
func DaysBetween(from, to string) int {
	a, err := time.Parse(DateLayout, from)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	b, err := time.Parse(DateLayout, to)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return int(b.Sub(a).Hours() / 24)
}
