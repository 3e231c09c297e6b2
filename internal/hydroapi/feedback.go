package hydroapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/hydrowatch/internal/models"
)

// SubmitFeedback delivers operator feedback to the retraining endpoint once.
// Feedback is best-effort: on failure it is dropped, never queued.
func (c *Client) SubmitFeedback(ctx context.Context, fb models.Feedback) models.Outcome[struct{}] {
	start := time.Now()

	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	if fb.SubmittedAt.IsZero() {
		fb.SubmittedAt = c.now().UTC()
	}

	_, err := attempt(OpFeedback, func() (struct{}, error) {
		if err := fb.Validate(); err != nil {
			return struct{}{}, malformed(OpFeedback, fmt.Errorf("invalid feedback %s: %w", fb.ID, err))
		}
		return struct{}{}, c.doJSON(ctx, OpFeedback, http.MethodPost, "/api/ml/retrain", nil, fb, nil, c.timeouts.Feedback)
	})
	if err == nil {
		return settle(OpFeedback, struct{}{}, models.SourceRemote, nil, start)
	}
	recordFailure(OpFeedback, err)

	return settle(OpFeedback, struct{}{}, models.SourceDropped, err, start)
}

// SubmitFeedbackAsync submits fb in the background and returns immediately.
// Use Wait to drain pending submissions before exit.
func (c *Client) SubmitFeedbackAsync(fb models.Feedback) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		c.SubmitFeedback(context.Background(), fb)
	}()
}

// Wait blocks until every asynchronous submission has completed. Each one
// is bounded by the feedback timeout.
func (c *Client) Wait() {
	c.pending.Wait()
}
