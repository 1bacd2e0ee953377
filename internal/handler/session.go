package handler

import (
	"errors"
	"net/http"

	"github.com/acemcq/acemcq/internal/model"
	"github.com/acemcq/acemcq/internal/scoring"
	"github.com/acemcq/acemcq/internal/session"
)

type startSessionRequest struct {
	Exam model.Exam `json:"exam"`
	Mode string     `json:"mode"`
}

type sessionResponse struct {
	Exam    *model.Exam          `json:"exam"`
	State   session.State        `json:"state"`
	Summary *model.ResultSummary `json:"summary,omitempty"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	mode := model.Mode(req.Mode)
	if req.Mode != "" && !mode.IsValid() {
		writeError(w, http.StatusBadRequest, "mode must be exam or practice")
		return
	}
	if req.Mode == "" {
		mode = model.ModeExam
	}

	if err := h.engine.Start(&req.Exam, mode); err != nil {
		var ive *model.InvalidExamError
		if errors.As(err, &ive) {
			writeError(w, http.StatusBadRequest, ive.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeSession(w)
}

// handleGetSession returns the live attempt. In practice mode the response
// carries a running summary so the client can show feedback per answer.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h.writeSession(w)
}

type answerRequest struct {
	Index int `json:"index"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	h.engine.SelectOption(req.Index)
	h.writeSession(w)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	h.engine.Next()
	h.writeSession(w)
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	h.engine.Previous()
	h.writeSession(w)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.engine.Submit()
	h.writeSession(w)
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Restart(); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			writeError(w, http.StatusNotFound, "no active session")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeSession(w)
}

func (h *Handler) handleRetakeMistakes(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RetakeMistakes(); err != nil {
		switch {
		case errors.Is(err, session.ErrNoSession):
			writeError(w, http.StatusNotFound, "no active session")
		case errors.Is(err, session.ErrNoMistakes):
			writeError(w, http.StatusBadRequest, "nothing to retake, all answers were correct")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	h.writeSession(w)
}

type resultsResponse struct {
	Summary        model.ResultSummary `json:"summary"`
	Percentage     int                 `json:"percentage"`
	WrongQuestions []int               `json:"wrongQuestions"`
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	sum, err := h.engine.Results()
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoSession):
			writeError(w, http.StatusNotFound, "no active session")
		case errors.Is(err, session.ErrNotSubmitted):
			writeError(w, http.StatusForbidden, "results are not available before submission")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	exam := h.engine.Exam()
	st, _ := h.engine.Snapshot()

	writeJSON(w, http.StatusOK, resultsResponse{
		Summary:        sum,
		Percentage:     scoring.Percentage(exam, sum),
		WrongQuestions: scoring.WrongPositions(exam, st.Responses),
	})
}

func (h *Handler) writeSession(w http.ResponseWriter) {
	st, err := h.engine.Snapshot()
	if err != nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}

	resp := sessionResponse{Exam: h.engine.Exam(), State: st}
	if st.Mode == model.ModePractice {
		sum := scoring.Compute(resp.Exam, st.Responses)
		resp.Summary = &sum
	}
	writeJSON(w, http.StatusOK, resp)
}
