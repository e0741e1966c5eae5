package api

import "github.com/starford/faqs/internal/models"

// CreateFaqRequest is the request body for creating a FAQ.
// ID is optional; a value that collides with a stored record is rejected.
type CreateFaqRequest struct {
	ID       int      `json:"id,omitempty" example:"0"`
	Question string   `json:"question" example:"What is X?" validate:"required"`
	Answer   string   `json:"answer" example:"X is Y" validate:"required"`
	Tags     []string `json:"tags,omitempty" example:"general"`
}

// Faq is the record response type (aliased from the domain layer).
type Faq = models.Faq
