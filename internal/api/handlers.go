package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/faqs/internal/apperr"
	"github.com/starford/faqs/internal/faqservice"
	"github.com/starford/faqs/internal/faqstore"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *faqservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *faqservice.Service) *Handler {
	return &Handler{svc: svc}
}

// faqID extracts the {id} URL parameter. Only positive integers are valid.
func faqID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListFaqs handles GET /api/Faqs.
//
//	@Summary		List all FAQs in stored order
//	@Tags			faqs
//	@Produce		json
//	@Success		200	{array}		Faq
//	@Failure		500	{object}	errResponse
//	@Router			/Faqs [get]
func (h *Handler) ListFaqs(w http.ResponseWriter, r *http.Request) {
	faqs, err := h.svc.ListAll(r.Context())
	if err != nil {
		slog.Error("list faqs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, faqs)
}

// GetFaq handles GET /api/Faqs/{id}.
//
//	@Summary		Get a single FAQ by id
//	@Tags			faqs
//	@Produce		json
//	@Param			id	path		int	true	"FAQ id"
//	@Success		200	{object}	Faq
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Router			/Faqs/{id} [get]
func (h *Handler) GetFaq(w http.ResponseWriter, r *http.Request) {
	id, ok := faqID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be a positive integer"))
		return
	}
	faq, err := h.svc.GetOne(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get faq failed", slog.Int("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, faq)
}

// CreateFaq handles POST /api/Faqs.
//
//	@Summary		Create a new FAQ; the id is assigned by the server
//	@Tags			faqs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateFaqRequest	true	"FAQ to create"
//	@Success		201		{object}	Faq
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		413		{object}	errResponse
//	@Router			/Faqs [post]
func (h *Handler) CreateFaq(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateFaqRequest
	if err := decodeBody(r.Body, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	faq, err := h.svc.Create(r.Context(), faqservice.CreateInput{
		ID:       req.ID,
		Question: req.Question,
		Answer:   req.Answer,
		Tags:     req.Tags,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, validationBody(err))
		case errors.Is(err, faqstore.ErrIDSpaceExhausted):
			writeJSON(w, http.StatusConflict, errorBody("id space exhausted"))
		case errors.Is(err, apperr.ErrIDConflict):
			writeJSON(w, http.StatusConflict, errorBody("id already exists"))
		default:
			slog.Error("create faq failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.Header().Set("Location", "/api/Faqs/"+strconv.Itoa(faq.ID))
	writeJSON(w, http.StatusCreated, faq)
}

// DeleteFaq handles DELETE /api/Faqs/{id}.
//
//	@Summary		Delete a FAQ
//	@Tags			faqs
//	@Param			id	path	int	true	"FAQ id"
//	@Success		204	"FAQ deleted"
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Router			/Faqs/{id} [delete]
func (h *Handler) DeleteFaq(w http.ResponseWriter, r *http.Request) {
	id, ok := faqID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be a positive integer"))
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete faq failed", slog.Int("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ready handles GET /health/ready: the backing file must load.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		slog.Warn("readiness check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("storage unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
