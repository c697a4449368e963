package task

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Type identifies a processing task variant.
type Type string

const (
	// TypeWatermarkRemoval removes baked-in watermarks from a video.
	TypeWatermarkRemoval Type = "minimax_remove"
	// TypeObjectRemoval removes a described object from a video.
	TypeObjectRemoval Type = "video-object-removal"
)

var validate = validator.New()

// Params is the per-variant parameter set of a task. Each variant validates
// its own fields before submission; the untyped field bag only materializes
// at the wire boundary.
type Params interface {
	Type() Type
	Validate() error
	// Fields returns the wire representation sent as the submission's params
	// object.
	Fields() map[string]interface{}
}

// WatermarkRemovalParams ...
type WatermarkRemovalParams struct{}

// Type ...
func (p WatermarkRemovalParams) Type() Type {
	return TypeWatermarkRemoval
}

// Validate ...
func (p WatermarkRemovalParams) Validate() error {
	return nil
}

// Fields ...
func (p WatermarkRemovalParams) Fields() map[string]interface{} {
	return map[string]interface{}{}
}

// ObjectRemovalParams ...
type ObjectRemovalParams struct {
	// RemoveText describes the object to remove, e.g. "person" or "car".
	RemoveText string `validate:"required"`
}

// Type ...
func (p ObjectRemovalParams) Type() Type {
	return TypeObjectRemoval
}

// Validate ...
func (p ObjectRemovalParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("object removal requires a remove target: %w", err)
	}
	return nil
}

// Fields ...
func (p ObjectRemovalParams) Fields() map[string]interface{} {
	return map[string]interface{}{
		"remove_text": p.RemoveText,
	}
}

// ParamsForType returns the zero-value params for a task type name, for
// callers that select the variant dynamically (CLI flags, form input).
func ParamsForType(taskType string, removeText string) (Params, error) {
	switch Type(taskType) {
	case TypeWatermarkRemoval:
		return WatermarkRemovalParams{}, nil
	case TypeObjectRemoval:
		return ObjectRemovalParams{RemoveText: removeText}, nil
	default:
		return nil, fmt.Errorf("unknown task type: %s", taskType)
	}
}
