package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dealposter/internal/config"
)

const discordContentLimit = 2000

type discordMessage struct {
	Content  string `json:"content,omitempty"`
	Username string `json:"username,omitempty"`
}

// DiscordSender posts to Discord webhooks. Addresses are webhook URLs.
type DiscordSender struct {
	username  string
	rateLimit time.Duration
	lastSend  time.Time
	mu        sync.Mutex
	client    *http.Client
}

func NewDiscordSender(cfg config.DiscordConfig) *DiscordSender {
	return &DiscordSender{
		username:  cfg.Username,
		rateLimit: time.Duration(cfg.RateLimitMs) * time.Millisecond,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *DiscordSender) SendText(ctx context.Context, webhookURL, text string) error {
	body, err := json.Marshal(discordMessage{Content: truncate(text, discordContentLimit), Username: s.username})
	if err != nil {
		return err
	}
	return s.post(ctx, webhookURL, "application/json", bytes.NewReader(body))
}

// SendImage uploads the file as a multipart attachment with the caption as content.
func (s *DiscordSender) SendImage(ctx context.Context, webhookURL, imagePath, caption string) error {
	f, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	payload, err := json.Marshal(discordMessage{Content: truncate(caption, discordContentLimit), Username: s.username})
	if err != nil {
		return err
	}
	if err := w.WriteField("payload_json", string(payload)); err != nil {
		return err
	}
	part, err := w.CreateFormFile("files[0]", filepath.Base(imagePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	return s.post(ctx, webhookURL, w.FormDataContentType(), &buf)
}

func (s *DiscordSender) post(ctx context.Context, webhookURL, contentType string, body io.Reader) error {
	s.wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", maskWebhook(webhookURL), err)
	}
	defer resp.Body.Close()

	s.mu.Lock()
	s.lastSend = time.Now()
	s.mu.Unlock()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Discord API error %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

func (s *DiscordSender) wait() {
	s.mu.Lock()
	elapsed := time.Since(s.lastSend)
	s.mu.Unlock()
	if elapsed < s.rateLimit {
		time.Sleep(s.rateLimit - elapsed)
	}
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-3]) + "..."
}

func maskWebhook(url string) string {
	if len(url) < 30 {
		return "***"
	}
	return url[:30] + "***"
}
