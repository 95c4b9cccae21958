// Package storage uploads session artifacts to a Supabase style object
// store over its plain HTTP surface, and issues the public URLs used by the
// receipt QR code.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultBucket holds session folders unless overridden.
	DefaultBucket = "sessions"

	uploadTimeout = 30 * time.Second
	removeTimeout = 15 * time.Second
)

var (
	// ErrNoCredentials is returned when the base URL or service key is
	// missing.
	ErrNoCredentials = errors.New("storage credentials not configured")
	// ErrUploadFailed is returned on a non-2xx upload response.
	ErrUploadFailed = errors.New("upload failed")
)

// Client talks to one bucket of the object store.  The zero value is not
// usable, construct it with New.
type Client struct {
	baseURL string
	key     string
	bucket  string
	cl      *http.Client
}

// Option is the Client option setter.
type Option func(*Client)

// WithBucket sets the bucket name.
func WithBucket(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.bucket = name
		}
	}
}

// WithHTTPClient sets the underlying http client.
func WithHTTPClient(cl *http.Client) Option {
	return func(c *Client) {
		if cl != nil {
			c.cl = cl
		}
	}
}

// New creates a Client for the store at baseURL authorised by the service
// role key.
func New(baseURL, serviceKey string, opt ...Option) (*Client, error) {
	if baseURL == "" || serviceKey == "" {
		return nil, ErrNoCredentials
	}
	c := &Client{
		baseURL: NormalizeBaseURL(baseURL),
		key:     serviceKey,
		bucket:  DefaultBucket,
		cl:      &http.Client{Timeout: uploadTimeout},
	}
	for _, fn := range opt {
		fn(c)
	}
	return c, nil
}

// NormalizeBaseURL trims whitespace and the trailing slash, and defaults the
// scheme to https.
func NormalizeBaseURL(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}
	return strings.TrimRight(s, "/")
}

// Upload stores data at objectPath within the bucket, overwriting any
// existing object, and returns its public URL.  An empty contentType is
// guessed from the object path extension.
func (c *Client) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = ContentTypeFor(objectPath)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL(objectPath), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true") // overwrite the same path

	resp, err := c.cl.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", objectPath, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: %s (%d): %s",
			ErrUploadFailed, objectPath, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	slog.Debug("object uploaded", "path", objectPath, "bucket", c.bucket, "size", len(data))
	return c.PublicURL(objectPath), nil
}

// UploadFile uploads the local file at path to objectPath.
func (c *Client) UploadFile(ctx context.Context, localPath, objectPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	return c.Upload(ctx, objectPath, data, ContentTypeFor(localPath))
}

// Remove deletes the object at objectPath.  Removing a missing object is
// not an error.
func (c *Client) Remove(ctx context.Context, objectPath string) error {
	ctx, cancel := context.WithTimeout(ctx, removeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.uploadURL(objectPath), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cl.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("removing %s: unexpected status %d", objectPath, resp.StatusCode)
	}
}

// PublicURL returns the browser-accessible URL of an object.  The bucket
// must carry a public read policy for the URL to work.
func (c *Client) PublicURL(objectPath string) string {
	return c.baseURL + "/storage/v1/object/public/" + c.bucket + "/" + encodeObjectPath(objectPath)
}

func (c *Client) uploadURL(objectPath string) string {
	return c.baseURL + "/storage/v1/object/" + c.bucket + "/" + encodeObjectPath(objectPath)
}

// encodeObjectPath strips the leading slash and escapes each segment,
// keeping the separators.
func encodeObjectPath(objectPath string) string {
	segments := strings.Split(strings.TrimLeft(objectPath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// ContentTypeFor guesses the content type from the file extension.
func ContentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml"
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
