// Package session owns the single active exam attempt: question pointer,
// per-question responses, countdown, and submission. All transitions go
// through the engine's operations; the presentation layer only reads
// snapshots.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/acemcq/acemcq/internal/model"
	"github.com/acemcq/acemcq/internal/scoring"
)

var (
	// ErrNoSession is returned when an operation needs a started attempt.
	ErrNoSession = errors.New("no active session")
	// ErrNotSubmitted is returned when results are requested before submission.
	ErrNotSubmitted = errors.New("session not submitted yet")
	// ErrNoMistakes is returned by RetakeMistakes when every answer was correct.
	ErrNoMistakes = errors.New("no mistakes to retake")
)

// SubmitFunc is invoked exactly once per completed attempt, after the
// transition to the submitted state. A double submit (timer plus manual)
// fires it once.
type SubmitFunc func(exam *model.Exam, mode model.Mode, sum model.ResultSummary, wrong []int)

// State is a read-only snapshot of the attempt.
type State struct {
	Mode         model.Mode       `json:"mode"`
	Pointer      int              `json:"currentQuestionIndex"`
	Responses    []model.Response `json:"responses"`
	StartedAt    time.Time        `json:"startedAt"`
	RemainingSec int              `json:"timeRemaining"`
	Submitted    bool             `json:"isSubmitted"`
	Token        uint64           `json:"token"`
}

// Engine is the exam session state machine. One attempt is live at a time;
// Start and Restart replace it. Methods are safe for the timer goroutine
// racing user intents.
type Engine struct {
	mu         sync.Mutex
	exam       *model.Exam
	mode       model.Mode
	pointer    int
	responses  []model.Response
	startedAt  time.Time
	finishedAt time.Time
	remaining  int
	submitted  bool
	token      uint64

	onSubmit SubmitFunc
	now      func() time.Time
	stop     chan struct{} // countdown stop signal, nil when idle
}

// New creates an engine. The submit hook may be nil.
func New(onSubmit SubmitFunc) *Engine {
	return &Engine{onSubmit: onSubmit, now: time.Now}
}

// Start begins a fresh attempt over the given exam. The previous attempt,
// if any, is discarded and its countdown stopped. A malformed exam is
// rejected with *model.InvalidExamError and no session is created.
func (e *Engine) Start(exam *model.Exam, mode model.Mode) error {
	if err := exam.Validate(); err != nil {
		return err
	}
	if !mode.IsValid() {
		mode = model.ModeExam
	}

	e.mu.Lock()
	e.stopTimerLocked()
	e.exam = exam
	e.mode = mode
	e.pointer = 0
	e.responses = freshResponses(len(exam.Questions))
	e.startedAt = e.now()
	e.remaining = exam.TimeLimitMinutes * 60
	e.submitted = false
	e.token++
	if mode == model.ModeExam && e.remaining > 0 {
		e.startTimerLocked()
	}
	e.mu.Unlock()
	return nil
}

// Restart re-enters the active state with the same exam: fresh responses,
// new start time, timer reset to the full limit.
func (e *Engine) Restart() error {
	e.mu.Lock()
	exam, mode := e.exam, e.mode
	e.mu.Unlock()
	if exam == nil {
		return ErrNoSession
	}
	return e.Start(exam, mode)
}

// RetakeMistakes replaces the attempt with a practice run over only the
// questions answered incorrectly.
func (e *Engine) RetakeMistakes() error {
	e.mu.Lock()
	var retake *model.Exam
	if e.exam != nil {
		retake = scoring.MistakesExam(e.exam, e.responses)
	}
	exam := e.exam
	e.mu.Unlock()

	if exam == nil {
		return ErrNoSession
	}
	if retake == nil {
		return ErrNoMistakes
	}
	return e.Start(retake, model.ModePractice)
}

// SelectOption records a selection for the current question, overwriting
// any previous one and recomputing correctness. It does not advance the
// pointer. Out-of-range indices and calls after submission are defensive
// no-ops.
func (e *Engine) SelectOption(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exam == nil || e.submitted {
		return
	}
	q := e.exam.Questions[e.pointer]
	if index < 0 || index >= len(q.Options) {
		return
	}
	e.responses[e.pointer] = model.Response{
		SelectedIndex: index,
		IsCorrect:     index == q.CorrectIndex,
		TimeSpentSec:  e.responses[e.pointer].TimeSpentSec,
	}
}

// Next moves the pointer forward, clamped at the last question.
func (e *Engine) Next() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exam == nil || e.submitted {
		return
	}
	if e.pointer < len(e.exam.Questions)-1 {
		e.pointer++
	}
}

// Previous moves the pointer back, clamped at the first question.
func (e *Engine) Previous() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exam == nil || e.submitted {
		return
	}
	if e.pointer > 0 {
		e.pointer--
	}
}

// Tick advances the countdown by one second. When the clock reaches zero
// the attempt auto-submits exactly once. No-op in practice mode and after
// submission.
func (e *Engine) Tick() {
	e.mu.Lock()
	if e.exam == nil || e.submitted || e.mode != model.ModeExam || e.remaining <= 0 {
		e.mu.Unlock()
		return
	}
	e.remaining--
	timedOut := e.remaining == 0
	token := e.token
	e.mu.Unlock()

	if timedOut {
		e.submitToken(token)
	}
}

// Submit transitions to the submitted state. Unanswered questions stay
// unanswered and score zero. Idempotent: a second call, whether from the
// user or the expiring timer, changes nothing and does not re-fire the
// submit hook.
func (e *Engine) Submit() {
	e.mu.Lock()
	token := e.token
	e.mu.Unlock()
	e.submitToken(token)
}

// submitToken submits the attempt identified by token. The timer's expiry
// path runs outside the lock, so a Restart can slip in between the final
// tick and the submit; the token check drops the late submit instead of
// landing it on the replacement attempt.
func (e *Engine) submitToken(token uint64) {
	e.mu.Lock()
	if e.exam == nil || e.submitted || e.token != token {
		e.mu.Unlock()
		return
	}
	e.submitted = true
	e.finishedAt = e.now()
	e.stopTimerLocked()

	exam, mode := e.exam, e.mode
	sum := scoring.Compute(exam, e.responses)
	sum.TimeTakenSec = int(e.finishedAt.Sub(e.startedAt).Seconds())
	wrong := scoring.WrongPositions(exam, e.responses)
	hook := e.onSubmit
	e.mu.Unlock()

	if hook != nil {
		hook(exam, mode, sum, wrong)
	}
}

// Snapshot returns a copy of the attempt state.
func (e *Engine) Snapshot() (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exam == nil {
		return State{}, ErrNoSession
	}
	responses := make([]model.Response, len(e.responses))
	copy(responses, e.responses)
	return State{
		Mode:         e.mode,
		Pointer:      e.pointer,
		Responses:    responses,
		StartedAt:    e.startedAt,
		RemainingSec: e.remaining,
		Submitted:    e.submitted,
		Token:        e.token,
	}, nil
}

// Exam returns the definition of the live attempt, or nil.
func (e *Engine) Exam() *model.Exam {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exam
}

// Results computes the summary of a submitted attempt.
func (e *Engine) Results() (model.ResultSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exam == nil {
		return model.ResultSummary{}, ErrNoSession
	}
	if !e.submitted {
		return model.ResultSummary{}, ErrNotSubmitted
	}
	sum := scoring.Compute(e.exam, e.responses)
	sum.TimeTakenSec = int(e.finishedAt.Sub(e.startedAt).Seconds())
	return sum, nil
}

// Token identifies the current attempt. Start and Restart bump it, so a
// slow enrichment response carrying an old token can be recognized as
// stale and discarded.
func (e *Engine) Token() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token
}

// Close stops the countdown goroutine. The attempt state is left as is.
func (e *Engine) Close() {
	e.mu.Lock()
	e.stopTimerLocked()
	e.mu.Unlock()
}

// startTimerLocked launches the countdown goroutine. Callers hold e.mu.
func (e *Engine) startTimerLocked() {
	stop := make(chan struct{})
	e.stop = stop
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.Tick()
			}
		}
	}()
}

// stopTimerLocked cancels the countdown goroutine if one is running.
func (e *Engine) stopTimerLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

func freshResponses(n int) []model.Response {
	responses := make([]model.Response, n)
	for i := range responses {
		responses[i].SelectedIndex = model.Unanswered
	}
	return responses
}
