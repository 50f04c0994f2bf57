package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ReviewClient talks to the review aggregation service, which owns the
// running averages. This core only reports individual ratings.
type ReviewClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewReviewClient(baseURL string) *ReviewClient {
	return &ReviewClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type ratingPayload struct {
	TargetID   string `json:"target_id"`
	TargetKind string `json:"target_kind"`
	Rating     int    `json:"rating"`
	Review     string `json:"review,omitempty"`
}

func (c *ReviewClient) SubmitRating(ctx context.Context, targetID, targetKind string, rating int, review string) error {
	if c.baseURL == "" {
		return fmt.Errorf("review service not configured")
	}

	body, _ := json.Marshal(ratingPayload{
		TargetID:   targetID,
		TargetKind: targetKind,
		Rating:     rating,
		Review:     review,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/reviews/ratings", c.baseURL), bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("review service %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
