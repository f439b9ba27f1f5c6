package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// HealthClient probes the collaborator's root endpoint. Any 2xx answer
// counts as healthy; everything else, including a timeout, does not.
type HealthClient struct {
	client *Client
}

func NewHealthClient(baseURL string, logger *slog.Logger) *HealthClient {
	return &HealthClient{client: NewClient("health-probe", baseURL, logger)}
}

func (c *HealthClient) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.client.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := c.client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health probe returned %d", resp.StatusCode)
	}
	return nil
}
