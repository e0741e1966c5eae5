package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/faqs/internal/faqservice"
)

// NewRouter creates a chi router with all API routes. It is meant to be
// mounted under /api. sseHandler, if non-nil, is served at GET /events.
//
// Besides the canonical REST paths the router answers the action-style
// aliases (GetAll, GetById, Create, DeleteById) used by the web client.
func NewRouter(svc *faqservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	faqs := chi.NewRouter()
	faqs.Get("/", h.ListFaqs)
	faqs.Get("/GetAll", h.ListFaqs)
	faqs.Post("/", h.CreateFaq)
	faqs.Post("/Create", h.CreateFaq)
	faqs.Get("/GetById/{id}", h.GetFaq)
	faqs.Get("/{id}", h.GetFaq)
	faqs.Delete("/DeleteById/{id}", h.DeleteFaq)
	faqs.Delete("/{id}", h.DeleteFaq)

	r := chi.NewRouter()
	r.Mount("/Faqs", faqs)
	r.Mount("/faqs", faqs)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
