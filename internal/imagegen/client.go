// Package imagegen calls the hosted image-to-image model.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/inspireokc/internal/models"
)

// ErrNoImage is returned when the model answers without an output URL.
var ErrNoImage = errors.New("model returned no image")

type transformRequest struct {
	Image          string `json:"image"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Style          string `json:"style"`
}

type transformResponse struct {
	ImageURL string   `json:"imageUrl"`
	Output   []string `json:"output"`
	Error    string   `json:"error"`
}

// Client is an HTTP client for the transformation endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client. timeout bounds each call.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Transform sends the source photo URL with the style prompts and returns
// the URL of the generated image.
func (c *Client) Transform(ctx context.Context, imageURL string, style models.Style) (string, error) {
	payload, err := json.Marshal(transformRequest{
		Image:          imageURL,
		Prompt:         style.Prompt,
		NegativePrompt: style.NegativePrompt,
		Style:          style.ID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image model request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read model response: %w", err)
	}

	var out transformResponse
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && out.Error != "" {
			msg = out.Error
		}
		return "", fmt.Errorf("image model returned %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode model response: %w", decodeErr)
	}

	url := out.ImageURL
	if url == "" && len(out.Output) > 0 {
		url = out.Output[0]
	}
	if url == "" {
		return "", ErrNoImage
	}

	c.logger.Info("image generated",
		slog.String("style", style.ID),
		slog.Duration("duration", time.Since(start)))

	return url, nil
}
