// internal/llmclient/throttle.go
package llmclient

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/LexiestLeszek/LocalComputerUse/api/schemas"
)

// ThrottledClient caps the request rate of an underlying client.
type ThrottledClient struct {
	next    schemas.LLMClient
	limiter *rate.Limiter
}

// NewThrottledClient allows requestsPerMinute calls per minute with a burst of one.
func NewThrottledClient(next schemas.LLMClient, requestsPerMinute float64) *ThrottledClient {
	return &ThrottledClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), 1),
	}
}

func (t *ThrottledClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait aborted: %w", err)
	}
	return t.next.Generate(ctx, req)
}

func (t *ThrottledClient) Close() error { return t.next.Close() }
