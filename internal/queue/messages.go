package queue

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator"
)

var validate = validator.New()

// PaperMsg asks the worker to build the graph of one paper.
type PaperMsg struct {
	PaperID string `json:"paper_id" validate:"required,excludesall=/\\"`
	// Phases uses the CLI syntax, "all" or "1,3,5". Empty means all.
	Phases string `json:"phases,omitempty"`
	Force  bool   `json:"force,omitempty"`
}

// DeletePaperMsg removes the derived artifacts and stored graph of a paper.
type DeletePaperMsg struct {
	PaperID string `json:"paper_id" validate:"required,excludesall=/\\"`
}

// Decode unmarshals body into v and validates it.
func Decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	return nil
}
