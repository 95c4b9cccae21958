package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
)

// SessionMeta is the manifest consumed by the public session view page.
type SessionMeta struct {
	Photos       []string `json:"photos"`
	InstagramURL string   `json:"instagram_url"`
	LogoURL      string   `json:"logo_url"`
}

// Publisher uploads a session's photos and manifest, and builds the session
// page URL that the receipt QR code points at.
type Publisher struct {
	Client       *Client
	ViewBaseURL  string // static view page, e.g. https://example.github.io/view.html
	InstagramURL string
	LogoURL      string
}

// PublishSession uploads the captured frames as photo_NN.png under the
// session folder, writes the meta.json manifest next to them and returns
// the public session page URL.
func (p *Publisher) PublishSession(ctx context.Context, sessionID string, photos []image.Image) (string, error) {
	meta := SessionMeta{
		Photos:       make([]string, 0, len(photos)),
		InstagramURL: p.InstagramURL,
		LogoURL:      p.LogoURL,
	}
	for i, photo := range photos {
		var buf bytes.Buffer
		if err := png.Encode(&buf, photo); err != nil {
			return "", fmt.Errorf("encoding photo %d: %w", i+1, err)
		}
		name := fmt.Sprintf("%s/photo_%02d.png", sessionID, i+1)
		url, err := p.Client.Upload(ctx, name, buf.Bytes(), "image/png")
		if err != nil {
			return "", err
		}
		meta.Photos = append(meta.Photos, url)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if _, err := p.Client.Upload(ctx, sessionID+"/meta.json", data, "application/json"); err != nil {
		return "", err
	}
	return p.SessionURL(sessionID), nil
}

// SessionURL returns the public view page URL for a session.
func (p *Publisher) SessionURL(sessionID string) string {
	return NormalizeBaseURL(p.ViewBaseURL) + "?sid=" + sessionID
}
