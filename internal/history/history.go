// Package history persists completed attempts, saved exam definitions, and
// aggregate user statistics on top of a key-value store. Reads tolerate
// missing or corrupt storage by degrading to empty values; corruption is
// logged and never surfaced to the caller.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/acemcq/acemcq/internal/model"
)

// Storage keys. Both lists keep the newest record first.
const (
	historyKey    = "ace_practice_history"
	savedExamsKey = "ace_saved_exams"
	statsKey      = "ace_user_stats"
)

// Caps on the persisted lists; the oldest entries are evicted.
const (
	maxHistory    = 50
	maxSavedExams = 20
)

// KV is the storage contract the repository needs. Get returns the empty
// string for a missing key.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// SessionInput carries everything a completed attempt contributes to the
// history and the aggregate stats.
type SessionInput struct {
	ExamName       string
	Mode           model.Mode
	Summary        model.ResultSummary
	Percentage     int
	WrongQuestions []int
}

// Repository stores attempt history, saved exams, and user stats.
type Repository struct {
	kv  KV
	now func() time.Time
}

// New creates a repository over the given key-value store.
func New(kv KV) *Repository {
	return &Repository{kv: kv, now: time.Now}
}

// ListHistory returns persisted attempts, newest first. Absent or corrupt
// storage yields an empty list.
func (r *Repository) ListHistory() []model.PracticeRecord {
	var records []model.PracticeRecord
	if !r.load(historyKey, &records) {
		return nil
	}
	return records
}

// RecordSession appends a completed attempt to the front of the history,
// evicts beyond the cap, and folds the attempt into the aggregate stats.
// Call it exactly once per completed attempt.
func (r *Repository) RecordSession(in SessionInput) error {
	now := r.now()
	rec := model.PracticeRecord{
		ID:             fmt.Sprintf("session_%d", now.UnixMilli()),
		ExamName:       in.ExamName,
		Date:           now.Format(time.RFC3339),
		Score:          in.Summary.TotalScore,
		Total:          in.Summary.CorrectCount + in.Summary.IncorrectCount + in.Summary.UnansweredCount,
		Percentage:     in.Percentage,
		Mode:           in.Mode,
		DurationSec:    in.Summary.TimeTakenSec,
		WrongQuestions: in.WrongQuestions,
	}

	records := append([]model.PracticeRecord{rec}, r.ListHistory()...)
	if len(records) > maxHistory {
		records = records[:maxHistory]
	}
	if err := r.save(historyKey, records); err != nil {
		return fmt.Errorf("save history: %w", err)
	}

	if err := r.updateStats(in.Summary); err != nil {
		return fmt.Errorf("update stats: %w", err)
	}
	return nil
}

// ClearHistory removes all recorded attempts.
func (r *Repository) ClearHistory() error {
	return r.kv.Delete(historyKey)
}

// ListSavedExams returns stored exam definitions, newest first.
func (r *Repository) ListSavedExams() []model.SavedExam {
	var exams []model.SavedExam
	if !r.load(savedExamsKey, &exams) {
		return nil
	}
	return exams
}

// SaveExam stores an exam definition under a display name. A name collision
// replaces the existing record in place; new names go to the front and the
// list is capped.
func (r *Repository) SaveExam(name string, exam model.Exam) error {
	now := r.now()
	rec := model.SavedExam{
		ID:      fmt.Sprintf("exam_%d", now.UnixMilli()),
		Name:    name,
		Exam:    exam,
		SavedAt: now.Format(time.RFC3339),
	}

	exams := r.ListSavedExams()
	replaced := false
	for i := range exams {
		if exams[i].Name == name {
			exams[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		exams = append([]model.SavedExam{rec}, exams...)
	}
	if len(exams) > maxSavedExams {
		exams = exams[:maxSavedExams]
	}
	return r.save(savedExamsKey, exams)
}

// GetSavedExam returns the stored exam with the given id, or nil.
func (r *Repository) GetSavedExam(id string) *model.SavedExam {
	for _, e := range r.ListSavedExams() {
		if e.ID == id {
			return &e
		}
	}
	return nil
}

// DeleteSavedExam removes the saved exam with the given id. Unknown ids are
// a no-op.
func (r *Repository) DeleteSavedExam(id string) error {
	exams := r.ListSavedExams()
	kept := exams[:0]
	for _, e := range exams {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return r.save(savedExamsKey, kept)
}

// ClearSavedExams removes all saved exam definitions.
func (r *Repository) ClearSavedExams() error {
	return r.kv.Delete(savedExamsKey)
}

// Stats returns the aggregate user statistics, zero-valued on first run or
// corruption.
func (r *Repository) Stats() model.UserStats {
	var stats model.UserStats
	if !r.load(statsKey, &stats) {
		return model.UserStats{}
	}
	return stats
}

// updateStats folds one completed attempt into the aggregate record and
// advances the daily streak. Evaluated once per RecordSession call.
func (r *Repository) updateStats(sum model.ResultSummary) error {
	stats := r.Stats()

	stats.TestsAttempted++
	stats.QuestionsAnswered += sum.CorrectCount + sum.IncorrectCount
	stats.CorrectAnswers += sum.CorrectCount
	stats.TimeSpentSec += sum.TimeTakenSec

	today := r.now().Format(model.DateLayout)
	switch {
	case stats.LastActiveDate == "":
		stats.CurrentStreak = 1
	case stats.LastActiveDate == today:
		// Same calendar day, streak unchanged.
	case model.DaysBetween(stats.LastActiveDate, today) == 1:
		stats.CurrentStreak++
	default:
		stats.CurrentStreak = 1
	}
	stats.LastActiveDate = today

	return r.save(statsKey, stats)
}

// load decodes the stored value into dst. Returns false when the record is
// unreadable or corrupt; dst may then hold a partial decode and must be
// discarded in favor of the zero value.
func (r *Repository) load(key string, dst any) bool {
	raw, err := r.kv.Get(key)
	if err != nil {
		slog.Warn("storage read failed, using default", "key", key, "error", err)
		return false
	}
	if raw == "" {
		return true
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		slog.Warn("corrupt record in storage, using default", "key", key, "error", err)
		return false
	}
	return true
}

func (r *Repository) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.kv.Set(key, string(data))
}
