// File: api/schemas/interfaces.go
package schemas

import (
	"context"
	"image"
)

// -- LLM Client Schemas & Interface --

// ModelTier allows for selecting a large language model based on a preference
// for speed versus advanced capabilities.
type ModelTier string

const (
	TierFast     ModelTier = "fast"     // Prefers a faster, potentially less capable model.
	TierPowerful ModelTier = "powerful" // Prefers a more capable, potentially slower model.
)

// GenerationOptions provides parameters to control the text generation process of the LLM.
type GenerationOptions struct {
	Temperature float64 `json:"temperature"` // Controls randomness. Lower is more deterministic.
	MaxTokens   int     `json:"max_tokens"`  // Upper bound on completion tokens; 0 means provider default.
}

// GenerationRequest encapsulates a complete request to the LLM, including the
// system and user prompts, the desired model tier, and generation options.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"` // Instructions for the model's persona and task.
	UserPrompt   string            `json:"user_prompt"`   // The specific query or input from the user.
	Tier         ModelTier         `json:"tier"`          // The desired model tier (fast or powerful).
	Options      GenerationOptions `json:"options"`       // Advanced generation parameters.
}

// LLMClient defines a standard interface for interacting with a chat-style Large
// Language Model, abstracting the specifics of the underlying provider.
type LLMClient interface {
	// Generate produces a text completion based on the provided request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close cleans up any resources held by the client.
	Close() error
}

// -- Grounding Model Interface --

// GroundingModel is the vision-language model boundary: an RGB screenshot plus a
// prompt go in, the decoded generation comes out with its special tokens intact.
type GroundingModel interface {
	Infer(ctx context.Context, img image.Image, prompt string) (string, error)
	Close() error
}

// -- Display Interface --

// MouseButton names a pointer button.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// Display is the screen-capture and pointer-injection boundary. Implementations
// drive the one shared pointer; callers never invoke it concurrently.
type Display interface {
	// Capture grabs the current screen contents.
	Capture(ctx context.Context) (image.Image, error)
	// Size reports the current screen size in pixels. It is queried at use, never cached.
	Size(ctx context.Context) (width, height int, err error)
	// CursorPosition reports the pointer location in pixels.
	CursorPosition(ctx context.Context) (x, y int, err error)
	// MoveTo places the pointer at the given pixel.
	MoveTo(ctx context.Context, x, y int) error
	// Click presses and releases a button at the given pixel.
	Click(ctx context.Context, x, y int, button MouseButton) error
	Close() error
}
