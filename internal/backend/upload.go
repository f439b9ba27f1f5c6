package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/example/refurnish/internal/seller"
)

// MaxImageSize caps a single listing photo at 5MB, enforced before any
// bytes leave the process.
const MaxImageSize = 5 << 20

var (
	ErrUnsupportedImageType = errors.New("image must be JPEG, PNG, or WebP")
	ErrImageTooLarge        = errors.New("image exceeds the 5MB limit")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UploadClient pushes listing photos to the image host. The host answers
// {secure_url} for each accepted file.
type UploadClient struct {
	client *Client
}

func NewUploadClient(baseURL string, logger *slog.Logger) *UploadClient {
	return &UploadClient{client: NewClient("image-host", baseURL, logger)}
}

func (c *UploadClient) Upload(ctx context.Context, token string, img seller.ImageUpload) (string, error) {
	if !allowedImageTypes[img.ContentType] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImageType, img.ContentType)
	}
	if len(img.Data) > MaxImageSize {
		return "", fmt.Errorf("%w: %s is %d bytes", ErrImageTooLarge, img.Filename, len(img.Data))
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", img.Filename)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart request: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.client.baseURL+"/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp struct {
		SecureURL string `json:"secure_url"`
	}
	if err := c.client.send(req, token, &resp); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", img.Filename, err)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("image host returned no URL for %s", img.Filename)
	}
	return resp.SecureURL, nil
}
