package faqstore

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/faqs/internal/apperr"
)

// Draft is the input for Insert. ID is optional: when non-zero it is only
// checked for collisions, the stored id is always assigned by the store.
type Draft struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Tags     []string `json:"tags"`
}

var notBlank = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
})

// Validate rejects blank question/answer, blank tags and negative ids.
// The returned error wraps both apperr.ErrInvalidInput and the
// validation.Errors describing each field.
func (d Draft) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.ID, validation.Min(0)),
		validation.Field(&d.Question, notBlank),
		validation.Field(&d.Answer, notBlank),
		validation.Field(&d.Tags, validation.Each(notBlank)),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}
	return nil
}
