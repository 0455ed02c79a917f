package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dealposter/internal/config"
)

var ErrInvalidAddress = errors.New("invalid group address")

// OneBotSender talks to a OneBot v11 HTTP endpoint (go-cqhttp, NapCat,
// Lagrange). Addresses look like "aiocqhttp:group:123456"; the group id is
// the last segment.
type OneBotSender struct {
	baseURL     string
	accessToken string
	rateLimit   time.Duration
	lastSend    time.Time
	mu          sync.Mutex
	client      *http.Client
}

func NewOneBotSender(cfg config.OneBotConfig) *OneBotSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OneBotSender{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		rateLimit:   time.Duration(cfg.RateLimitMs) * time.Millisecond,
		client:      &http.Client{Timeout: timeout},
	}
}

type sendGroupMsgRequest struct {
	GroupID int64  `json:"group_id"`
	Message string `json:"message"`
}

type oneBotResponse struct {
	Status  string `json:"status"`
	RetCode int    `json:"retcode"`
	Message string `json:"message"`
	Wording string `json:"wording"`
}

func (s *OneBotSender) SendText(ctx context.Context, address, text string) error {
	groupID, err := parseGroupID(address)
	if err != nil {
		return err
	}
	return s.sendGroupMsg(ctx, groupID, escapeCQ(text))
}

// SendImage sends the caption followed by the image inlined as base64.
func (s *OneBotSender) SendImage(ctx context.Context, address, imagePath, caption string) error {
	groupID, err := parseGroupID(address)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	var msg strings.Builder
	if caption != "" {
		msg.WriteString(escapeCQ(caption))
		msg.WriteString("\n")
	}
	msg.WriteString("[CQ:image,file=base64://")
	msg.WriteString(base64.StdEncoding.EncodeToString(data))
	msg.WriteString("]")

	return s.sendGroupMsg(ctx, groupID, msg.String())
}

func (s *OneBotSender) sendGroupMsg(ctx context.Context, groupID int64, message string) error {
	s.wait()

	body, err := json.Marshal(sendGroupMsgRequest{GroupID: groupID, Message: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/send_group_msg", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("onebot request failed: %w", err)
	}
	defer resp.Body.Close()

	s.mu.Lock()
	s.lastSend = time.Now()
	s.mu.Unlock()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("onebot error %d: %s", resp.StatusCode, string(raw))
	}

	var result oneBotResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("invalid onebot response: %w", err)
	}
	if result.RetCode != 0 || (result.Status != "ok" && result.Status != "async") {
		detail := result.Wording
		if detail == "" {
			detail = result.Message
		}
		return fmt.Errorf("onebot send_group_msg failed (retcode %d): %s", result.RetCode, detail)
	}
	return nil
}

func (s *OneBotSender) wait() {
	s.mu.Lock()
	elapsed := time.Since(s.lastSend)
	s.mu.Unlock()
	if elapsed < s.rateLimit {
		time.Sleep(s.rateLimit - elapsed)
	}
}

func parseGroupID(address string) (int64, error) {
	id := address
	if i := strings.LastIndex(address, ":"); i >= 0 {
		id = address[i+1:]
	}
	groupID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || groupID <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return groupID, nil
}

var cqEscaper = strings.NewReplacer("&", "&amp;", "[", "&#91;", "]", "&#93;")

// escapeCQ escapes plain text so it is not parsed as CQ codes.
func escapeCQ(s string) string {
	return cqEscaper.Replace(s)
}
