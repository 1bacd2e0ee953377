package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acemcq/acemcq/internal/model"
)

func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	records := h.history.ListHistory()
	if records == nil {
		records = []model.PracticeRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.ClearHistory(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	export := model.HistoryExport{
		GeneratedAt: time.Now().UTC(),
		Stats:       h.history.Stats(),
		Records:     h.history.ListHistory(),
	}

	w.Header().Set("Content-Disposition", `attachment; filename="practice-history.json"`)
	writeJSON(w, http.StatusOK, export)
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams := h.history.ListSavedExams()
	if exams == nil {
		exams = []model.SavedExam{}
	}
	writeJSON(w, http.StatusOK, exams)
}

type saveExamRequest struct {
	Name string     `json:"name"`
	Exam model.Exam `json:"exam"`
}

func (h *Handler) handleSaveExam(w http.ResponseWriter, r *http.Request) {
	var req saveExamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		req.Name = req.Exam.Exam
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := req.Exam.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.history.SaveExam(req.Name, req.Exam); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.history.ListSavedExams())
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	saved := h.history.GetSavedExam(id)
	if saved == nil {
		writeError(w, http.StatusNotFound, "saved exam not found")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.history.DeleteSavedExam(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearExams(w http.ResponseWriter, r *http.Request) {
	if err := h.history.ClearSavedExams(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.history.Stats())
}
