package session

import (
	"errors"
	"testing"
	"time"

	"github.com/acemcq/acemcq/internal/model"
)

func testExam(n int) *model.Exam {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:           i + 1,
			Question:     "Q?",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 1,
		}
	}
	return &model.Exam{
		Exam:             "Engine Test",
		TimeLimitMinutes: 1,
		Marking:          model.Marking{Correct: 3, Wrong: -1},
		Questions:        qs,
	}
}

// newTestEngine disables the background countdown so tests drive Tick
// directly.
func newTestEngine(t *testing.T, onSubmit SubmitFunc) *Engine {
	t.Helper()
	e := New(onSubmit)
	t.Cleanup(e.Close)
	return e
}

func mustStart(t *testing.T, e *Engine, exam *model.Exam, mode model.Mode) {
	t.Helper()
	if err := e.Start(exam, mode); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Stop the background countdown; tests call Tick explicitly.
	e.mu.Lock()
	e.stopTimerLocked()
	e.mu.Unlock()
}

func TestStartInitialState(t *testing.T) {
	e := newTestEngine(t, nil)
	mustStart(t, e, testExam(4), model.ModeExam)

	st, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if st.Pointer != 0 {
		t.Errorf("Pointer = %d, want 0", st.Pointer)
	}
	if st.Submitted {
		t.Error("fresh session should not be submitted")
	}
	if st.RemainingSec != 60 {
		t.Errorf("RemainingSec = %d, want 60", st.RemainingSec)
	}
	if len(st.Responses) != 4 {
		t.Fatalf("expected 4 responses, got %d", len(st.Responses))
	}
	for i, r := range st.Responses {
		if r.Answered() {
			t.Errorf("response %d should start unanswered", i)
		}
	}
}

func TestStartRejectsInvalidExam(t *testing.T) {
	e := newTestEngine(t, nil)

	var ive *model.InvalidExamError
	err := e.Start(&model.Exam{Exam: "empty"}, model.ModeExam)
	if !errors.As(err, &ive) {
		t.Fatalf("expected *model.InvalidExamError, got %v", err)
	}

	// No session was created.
	if _, err := e.Snapshot(); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestSelectOption(t *testing.T) {
	e := newTestEngine(t, nil)
	mustStart(t, e, testExam(3), model.ModePractice)

	e.SelectOption(0)
	st, _ := e.Snapshot()
	if st.Responses[0].SelectedIndex != 0 || st.Responses[0].IsCorrect {
		t.Errorf("after wrong pick: %+v", st.Responses[0])
	}

	// Last write wins and correctness is recomputed.
	e.SelectOption(1)
	st, _ = e.Snapshot()
	if st.Responses[0].SelectedIndex != 1 || !st.Responses[0].IsCorrect {
		t.Errorf("after correct pick: %+v", st.Responses[0])
	}

	// Selection does not advance the pointer.
	if st.Pointer != 0 {
		t.Errorf("Pointer = %d, want 0", st.Pointer)
	}

	// Out-of-range indices are defensive no-ops.
	e.SelectOption(4)
	e.SelectOption(-1)
	st, _ = e.Snapshot()
	if st.Responses[0].SelectedIndex != 1 {
		t.Errorf("out-of-range select changed state: %+v", st.Responses[0])
	}
}

func TestNavigationClamps(t *testing.T) {
	e := newTestEngine(t, nil)
	mustStart(t, e, testExam(3), model.ModePractice)

	e.Previous()
	e.Previous()
	st, _ := e.Snapshot()
	if st.Pointer != 0 {
		t.Errorf("Previous at start moved pointer to %d", st.Pointer)
	}

	for i := 0; i < 10; i++ {
		e.Next()
	}
	st, _ = e.Snapshot()
	if st.Pointer != 2 {
		t.Errorf("Next clamped at %d, want 2", st.Pointer)
	}

	e.Previous()
	st, _ = e.Snapshot()
	if st.Pointer != 1 {
		t.Errorf("Pointer = %d, want 1", st.Pointer)
	}
}

func TestSubmitIdempotentAndRecordsOnce(t *testing.T) {
	var calls int
	e := newTestEngine(t, func(exam *model.Exam, mode model.Mode, sum model.ResultSummary, wrong []int) {
		calls++
	})
	mustStart(t, e, testExam(2), model.ModeExam)

	e.SelectOption(1)
	e.Submit()
	e.Submit()

	st, _ := e.Snapshot()
	if !st.Submitted {
		t.Error("expected submitted state")
	}
	if calls != 1 {
		t.Errorf("submit hook fired %d times, want 1", calls)
	}

	// Mutating intents after submission are no-ops.
	e.SelectOption(0)
	e.Next()
	after, _ := e.Snapshot()
	if after.Responses[0].SelectedIndex != 1 || after.Pointer != st.Pointer {
		t.Error("state changed after submission")
	}
}

func TestSubmitSummary(t *testing.T) {
	var got model.ResultSummary
	var gotWrong []int
	e := newTestEngine(t, func(exam *model.Exam, mode model.Mode, sum model.ResultSummary, wrong []int) {
		got = sum
		gotWrong = wrong
	})
	mustStart(t, e, testExam(4), model.ModeExam)

	e.SelectOption(1) // correct
	e.Next()
	e.SelectOption(1) // correct
	e.Next()
	e.SelectOption(0) // wrong
	e.Submit()        // question 4 left unanswered

	if got.TotalScore != 5 || got.CorrectCount != 2 || got.IncorrectCount != 1 || got.UnansweredCount != 1 {
		t.Errorf("summary = %+v", got)
	}
	if got.Accuracy != 50 {
		t.Errorf("Accuracy = %v, want 50", got.Accuracy)
	}
	if len(gotWrong) != 1 || gotWrong[0] != 2 {
		t.Errorf("wrong positions = %v, want [2]", gotWrong)
	}

	sum, err := e.Results()
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if sum.TotalScore != got.TotalScore {
		t.Errorf("Results disagrees with hook: %v vs %v", sum.TotalScore, got.TotalScore)
	}
}

func TestResultsBeforeSubmit(t *testing.T) {
	e := newTestEngine(t, nil)
	mustStart(t, e, testExam(2), model.ModeExam)

	if _, err := e.Results(); !errors.Is(err, ErrNotSubmitted) {
		t.Errorf("expected ErrNotSubmitted, got %v", err)
	}
}

func TestTickCountdownAndAutoSubmit(t *testing.T) {
	var calls int
	e := newTestEngine(t, func(*model.Exam, model.Mode, model.ResultSummary, []int) { calls++ })

	exam := testExam(2)
	exam.TimeLimitMinutes = 0 // no background timer
	mustStart(t, e, exam, model.ModeExam)

	// Force a tiny clock for the test.
	e.mu.Lock()
	e.remaining = 3
	e.mu.Unlock()

	for i := 3; i > 0; i-- {
		st, _ := e.Snapshot()
		if st.RemainingSec != i {
			t.Fatalf("RemainingSec = %d, want %d", st.RemainingSec, i)
		}
		e.Tick()
	}

	st, _ := e.Snapshot()
	if st.RemainingSec != 0 {
		t.Errorf("RemainingSec = %d, want 0", st.RemainingSec)
	}
	if !st.Submitted {
		t.Error("expected auto-submit at zero")
	}
	if calls != 1 {
		t.Errorf("submit hook fired %d times, want 1", calls)
	}

	// Further ticks change nothing.
	e.Tick()
	if calls != 1 {
		t.Errorf("tick after timeout re-fired hook (%d)", calls)
	}
}

func TestTickNoOpInPracticeMode(t *testing.T) {
	e := newTestEngine(t, nil)
	mustStart(t, e, testExam(2), model.ModePractice)

	before, _ := e.Snapshot()
	e.Tick()
	after, _ := e.Snapshot()
	if before.RemainingSec != after.RemainingSec {
		t.Errorf("practice tick changed clock: %d -> %d", before.RemainingSec, after.RemainingSec)
	}
	if after.Submitted {
		t.Error("practice tick must never submit")
	}
}

func TestRestart(t *testing.T) {
	var calls int
	e := newTestEngine(t, func(*model.Exam, model.Mode, model.ResultSummary, []int) { calls++ })
	mustStart(t, e, testExam(2), model.ModeExam)

	e.SelectOption(1)
	e.Next()
	e.Submit()

	if err := e.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	e.mu.Lock()
	e.stopTimerLocked()
	e.mu.Unlock()

	st, _ := e.Snapshot()
	if st.Submitted || st.Pointer != 0 {
		t.Errorf("restart state: %+v", st)
	}
	if st.RemainingSec != 60 {
		t.Errorf("timer not reset: %d", st.RemainingSec)
	}
	for i, r := range st.Responses {
		if r.Answered() {
			t.Errorf("response %d not reset", i)
		}
	}

	// The new attempt submits independently.
	e.Submit()
	if calls != 2 {
		t.Errorf("submit hook calls = %d, want 2", calls)
	}
}

func TestTokenBumpsOnStartAndRestart(t *testing.T) {
	e := newTestEngine(t, nil)
	mustStart(t, e, testExam(2), model.ModeExam)
	t1 := e.Token()

	if err := e.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	t2 := e.Token()
	if t2 <= t1 {
		t.Errorf("token did not advance: %d -> %d", t1, t2)
	}

	mustStart(t, e, testExam(3), model.ModePractice)
	if e.Token() <= t2 {
		t.Error("token did not advance on new start")
	}
}

func TestExpiredTickSkipsReplacedAttempt(t *testing.T) {
	calls := 0
	e := newTestEngine(t, func(*model.Exam, model.Mode, model.ResultSummary, []int) {
		calls++
	})
	mustStart(t, e, testExam(2), model.ModeExam)
	stale := e.Token()

	// A restart lands between the final tick observing zero and the
	// timer's submit. The pending submit carries the old token and must
	// not submit the fresh attempt.
	if err := e.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	e.mu.Lock()
	e.stopTimerLocked()
	e.mu.Unlock()

	e.submitToken(stale)

	st, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if st.Submitted {
		t.Error("stale timer submit landed on the replacement attempt")
	}
	if calls != 0 {
		t.Errorf("submit hook fired %d times, want 0", calls)
	}

	// The replacement attempt still submits normally.
	e.Submit()
	if calls != 1 {
		t.Errorf("submit hook fired %d times after manual submit, want 1", calls)
	}
}

func TestRetakeMistakes(t *testing.T) {
	e := newTestEngine(t, nil)
	mustStart(t, e, testExam(3), model.ModeExam)

	e.SelectOption(0) // wrong
	e.Next()
	e.SelectOption(1) // correct
	e.Next()
	e.SelectOption(2) // wrong
	e.Submit()

	if err := e.RetakeMistakes(); err != nil {
		t.Fatalf("RetakeMistakes: %v", err)
	}

	exam := e.Exam()
	if len(exam.Questions) != 2 {
		t.Fatalf("expected 2 retake questions, got %d", len(exam.Questions))
	}
	st, _ := e.Snapshot()
	if st.Mode != model.ModePractice {
		t.Errorf("retake mode = %q, want practice", st.Mode)
	}
	if st.Submitted {
		t.Error("retake should be a fresh active attempt")
	}
}

func TestRetakeMistakesPerfectScore(t *testing.T) {
	e := newTestEngine(t, nil)
	mustStart(t, e, testExam(2), model.ModePractice)

	e.SelectOption(1)
	e.Next()
	e.SelectOption(1)
	e.Submit()

	if err := e.RetakeMistakes(); !errors.Is(err, ErrNoMistakes) {
		t.Errorf("expected ErrNoMistakes, got %v", err)
	}
}

func TestConcurrentTimerAndManualSubmit(t *testing.T) {
	var calls int
	e := newTestEngine(t, func(*model.Exam, model.Mode, model.ResultSummary, []int) {
		calls++
	})
	mustStart(t, e, testExam(2), model.ModeExam)

	e.mu.Lock()
	e.remaining = 1
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.Tick() // drives remaining to 0, auto-submit
		close(done)
	}()
	e.Submit()
	<-done

	if calls != 1 {
		t.Errorf("double submit recorded %d times, want 1", calls)
	}

	time.Sleep(10 * time.Millisecond)
	st, _ := e.Snapshot()
	if !st.Submitted {
		t.Error("expected submitted")
	}
}
