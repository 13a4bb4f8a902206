// Package analyze is a thin client for the downstream frame-analysis
// service. The sampling engine treats it as opaque: frames in, text out.
package analyze

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/framesift/framesift-sampling-service/internal/domain/port"
)

type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type framePayload struct {
	Name string `json:"name"`
	Data string `json:"data"` // base64-encoded image bytes
}

type describeRequest struct {
	Frames []framePayload `json:"frames"`
}

type describeResponse struct {
	Text string `json:"text"`
}

// Describe implements port.Analyzer.
func (c *Client) Describe(ctx context.Context, framePaths []string) (string, error) {
	req := describeRequest{Frames: make([]framePayload, 0, len(framePaths))}
	for _, p := range framePaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("read frame %s: %w", p, err)
		}
		req.Frames = append(req.Frames, framePayload{
			Name: filepath.Base(p),
			Data: base64.StdEncoding.EncodeToString(data),
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal analyze request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call analyzer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}

	var out describeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode analyzer response: %w", err)
	}
	return out.Text, nil
}

var _ port.Analyzer = (*Client)(nil)
