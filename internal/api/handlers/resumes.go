package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/resumeprocessor/internal/document"
	"github.com/nikhilbhutani/resumeprocessor/internal/models"
	"github.com/nikhilbhutani/resumeprocessor/internal/store"
)

const (
	defaultListLimit = store.DefaultQueryLimit
	maxListLimit     = 1000
	// multipartOverhead covers form boundaries and headers around the file.
	multipartOverhead = 1 << 20
)

type ResumeService interface {
	Submit(ctx context.Context, filename, contentType string, data []byte) (*models.ResumeDocument, error)
	Get(ctx context.Context, id string) (*models.ResumeDocument, error)
	List(ctx context.Context, status models.Status, limit int) ([]*models.ResumeDocument, error)
	Reprocess(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type ResumeHandler struct {
	svc      ResumeService
	maxBytes int64
}

func NewResumeHandler(svc ResumeService, maxBytes int64) *ResumeHandler {
	return &ResumeHandler{svc: svc, maxBytes: maxBytes}
}

type uploadResponse struct {
	ID       string        `json:"id"`
	Filename string        `json:"filename"`
	Status   models.Status `json:"status"`
	Message  string        `json:"message"`
}

func (h *ResumeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	doc, err := h.svc.Submit(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, document.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		case document.IsClientError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("failed to upload resume", "filename", header.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to upload resume")
		}
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		ID:       doc.ID,
		Filename: doc.Filename,
		Status:   doc.Status,
		Message:  "Resume uploaded successfully and queued for processing",
	})
}

func (h *ResumeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := models.Status(q.Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	limit := defaultListLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxListLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	docs, err := h.svc.List(r.Context(), status, limit)
	if err != nil {
		slog.Error("failed to list resumes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list resumes")
		return
	}
	if docs == nil {
		docs = []*models.ResumeDocument{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"resumes": docs, "total": len(docs)})
}

func (h *ResumeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, id, "fetch", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *ResumeHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Reprocess(r.Context(), id); err != nil {
		h.writeLookupError(w, id, "process", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Processing started", "resume_id": id})
}

func (h *ResumeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeLookupError(w, id, "delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Resume deleted successfully", "resume_id": id})
}

func (h *ResumeHandler) writeLookupError(w http.ResponseWriter, id, op string, err error) {
	if errors.Is(err, document.ErrNotFound) {
		writeError(w, http.StatusNotFound, "resume not found")
		return
	}
	slog.Error("resume request failed", "op", op, "resume_id", id, "error", err)
	writeError(w, http.StatusInternalServerError, "failed to "+op+" resume")
}
