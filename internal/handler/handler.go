package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/acemcq/acemcq/internal/history"
	"github.com/acemcq/acemcq/internal/i18n"
	"github.com/acemcq/acemcq/internal/llm/prompts"
	"github.com/acemcq/acemcq/internal/model"
	"github.com/acemcq/acemcq/internal/session"
)

const (
	defaultGenerateCount  = 10
	generatedTimeLimitMin = 10
	generatedMarkCorrect  = 4.0
	generatedMarkWrong    = -1.0
	maxImportBody         = 1 << 20
)

// Enricher is the LLM surface the handlers call. All calls are
// best-effort: the exam flow never blocks on them.
type Enricher interface {
	GenerateQuestions(ctx context.Context, topic string, difficulty prompts.Difficulty, count int) ([]model.Question, error)
	Hint(ctx context.Context, question model.Question) (string, error)
	AnalyzeMistakes(ctx context.Context, exam *model.Exam, wrong []int) (string, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	engine  *session.Engine
	history *history.Repository
	llm     Enricher
}

// New creates a new Handler. llm may be nil; enrichment endpoints then
// serve their fallbacks.
func New(engine *session.Engine, hist *history.Repository, enricher Enricher) *Handler {
	return &Handler{engine: engine, history: hist, llm: enricher}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", h.handleGenerate)
		r.Post("/hint", h.handleHint)
		r.Post("/analyze", h.handleAnalyze)

		r.Post("/exam/import", h.handleImportExam)
		r.Get("/exam/sample", h.handleSampleExam)

		r.Post("/session/start", h.handleStartSession)
		r.Get("/session", h.handleGetSession)
		r.Post("/session/answer", h.handleAnswer)
		r.Post("/session/next", h.handleNext)
		r.Post("/session/previous", h.handlePrevious)
		r.Post("/session/submit", h.handleSubmit)
		r.Post("/session/restart", h.handleRestart)
		r.Post("/session/retake-mistakes", h.handleRetakeMistakes)
		r.Get("/session/results", h.handleResults)

		r.Get("/history", h.handleListHistory)
		r.Delete("/history", h.handleClearHistory)
		r.Get("/history/export", h.handleExportHistory)

		r.Get("/exams", h.handleListExams)
		r.Post("/exams", h.handleSaveExam)
		r.Get("/exams/{id}", h.handleGetExam)
		r.Delete("/exams/{id}", h.handleDeleteExam)
		r.Delete("/exams", h.handleClearExams)

		r.Get("/stats", h.handleStats)
	})
}

type generateRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

type generateResponse struct {
	Exam      *model.Exam      `json:"exam"`
	Questions []model.Question `json:"questions"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	if h.llm == nil {
		writeError(w, http.StatusBadGateway, "question generation is not configured")
		return
	}

	count := req.Count
	if count <= 0 {
		count = defaultGenerateCount
	}
	if d := strings.ToLower(strings.TrimSpace(req.Difficulty)); d != "" && !prompts.IsValidDifficulty(d) {
		writeError(w, http.StatusBadRequest, "difficulty must be easy, medium, or hard")
		return
	}
	difficulty := prompts.NormalizeDifficulty(req.Difficulty)

	questions, err := h.llm.GenerateQuestions(r.Context(), req.Topic, difficulty, count)
	if err != nil {
		slog.Error("question generation failed", "topic", req.Topic, "error", err)
		writeError(w, http.StatusBadGateway, "question generation failed")
		return
	}

	exam := &model.Exam{
		Exam:             i18n.Td(r.Context(), "GeneratedExamName", map[string]any{"Topic": prompts.SanitizeTopic(req.Topic)}),
		TimeLimitMinutes: generatedTimeLimitMin,
		Marking:          model.Marking{Correct: generatedMarkCorrect, Wrong: generatedMarkWrong},
		Questions:        questions,
	}

	writeJSON(w, http.StatusOK, generateResponse{Exam: exam, Questions: questions})
}

type hintRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type hintResponse struct {
	Hint string `json:"hint"`
}

func (h *Handler) handleHint(w http.ResponseWriter, r *http.Request) {
	var req hintRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	token := h.engine.Token()

	hint := ""
	if h.llm != nil {
		var err error
		hint, err = h.llm.Hint(r.Context(), model.Question{Question: req.Question, Options: req.Options})
		if err != nil {
			slog.Warn("hint generation failed", "error", err)
			hint = ""
		}
	}
	if hint == "" {
		hint = i18n.T(r.Context(), "HintFallback")
	}

	// The attempt changed while we waited on the LLM; the hint belongs
	// to a question that is no longer on screen.
	if h.engine.Token() != token {
		writeError(w, http.StatusConflict, "session changed")
		return
	}

	writeJSON(w, http.StatusOK, hintResponse{Hint: hint})
}

type analyzeRequest struct {
	ExamName     string           `json:"exam"`
	Questions    []model.Question `json:"questions"`
	WrongIndices []int            `json:"wrongIndices"`
}

type analyzeResponse struct {
	Analysis string `json:"analysis"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Questions) == 0 {
		writeError(w, http.StatusBadRequest, "questions are required")
		return
	}

	// A clean sheet needs no analysis, and no LLM round-trip.
	if len(req.WrongIndices) == 0 {
		writeJSON(w, http.StatusOK, analyzeResponse{Analysis: i18n.T(r.Context(), "PerfectScoreAnalysis")})
		return
	}

	token := h.engine.Token()

	analysis := ""
	if h.llm != nil {
		exam := &model.Exam{Exam: req.ExamName, Questions: req.Questions}
		var err error
		analysis, err = h.llm.AnalyzeMistakes(r.Context(), exam, req.WrongIndices)
		if err != nil {
			slog.Warn("mistake analysis failed", "error", err)
			analysis = ""
		}
	}
	if analysis == "" {
		analysis = i18n.T(r.Context(), "AnalysisFallback")
	}

	if h.engine.Token() != token {
		writeError(w, http.StatusConflict, "session changed")
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{Analysis: analysis})
}

func (h *Handler) handleImportExam(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	exam, err := model.ParseExam(data)
	if err != nil {
		var ive *model.InvalidExamError
		if errors.As(err, &ive) {
			writeError(w, http.StatusBadRequest, ive.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid exam document")
		return
	}

	writeJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleSampleExam(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.SampleExam())
}
