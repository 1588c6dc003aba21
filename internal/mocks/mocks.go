// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"image"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
)

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

// Generate provides a mock function for LLM calls.
func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// -- Grounding Model Mock --

// MockGroundingModel mocks the schemas.GroundingModel interface.
type MockGroundingModel struct {
	mock.Mock
}

func (m *MockGroundingModel) Infer(ctx context.Context, img image.Image, prompt string) (string, error) {
	args := m.Called(ctx, img, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockGroundingModel) Close() error {
	return m.Called().Error(0)
}

// -- Display Mock --

// MockDisplay mocks the schemas.Display interface.
type MockDisplay struct {
	mock.Mock
}

func (m *MockDisplay) Capture(ctx context.Context) (image.Image, error) {
	args := m.Called(ctx)
	var img image.Image
	if v := args.Get(0); v != nil {
		img = v.(image.Image)
	}
	return img, args.Error(1)
}

func (m *MockDisplay) Size(ctx context.Context) (int, int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockDisplay) CursorPosition(ctx context.Context) (int, int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockDisplay) MoveTo(ctx context.Context, x, y int) error {
	return m.Called(ctx, x, y).Error(0)
}

func (m *MockDisplay) Click(ctx context.Context, x, y int, button schemas.MouseButton) error {
	return m.Called(ctx, x, y, button).Error(0)
}

func (m *MockDisplay) Close() error {
	return m.Called().Error(0)
}

// -- Fake Display --

// FakeDisplay is an in-memory screen of fixed size that records pointer
// activity. It suits tests that care about the sequence of events rather
// than individual expectations.
type FakeDisplay struct {
	mu       sync.Mutex
	Width    int
	Height   int
	Frame    image.Image
	cursor   image.Point
	Moves    []image.Point
	Clicks   []image.Point
	Captures int
	Closed   bool
}

// NewFakeDisplay creates a black screen of the given size.
func NewFakeDisplay(width, height int) *FakeDisplay {
	return &FakeDisplay{
		Width:  width,
		Height: height,
		Frame:  image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

func (f *FakeDisplay) Capture(ctx context.Context) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Captures++
	return f.Frame, nil
}

func (f *FakeDisplay) Size(ctx context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Width, f.Height, nil
}

func (f *FakeDisplay) CursorPosition(ctx context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor.X, f.cursor.Y, nil
}

func (f *FakeDisplay) MoveTo(ctx context.Context, x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = image.Pt(x, y)
	f.Moves = append(f.Moves, f.cursor)
	return nil
}

func (f *FakeDisplay) Click(ctx context.Context, x, y int, button schemas.MouseButton) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = image.Pt(x, y)
	f.Clicks = append(f.Clicks, f.cursor)
	return nil
}

func (f *FakeDisplay) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// ClickCount returns the number of clicks recorded so far.
func (f *FakeDisplay) ClickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Clicks)
}

var (
	_ schemas.LLMClient      = (*MockLLMClient)(nil)
	_ schemas.GroundingModel = (*MockGroundingModel)(nil)
	_ schemas.Display        = (*MockDisplay)(nil)
	_ schemas.Display        = (*FakeDisplay)(nil)
)
