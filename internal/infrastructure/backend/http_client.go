package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"liveclass/internal/core/domain"
	"liveclass/internal/core/ports"

	"go.uber.org/zap"
)

// Client talks to the backend REST API that persists chat history, stream
// stats and stream metadata. Implements ports.BackendAPI.
type Client struct {
	baseURL   string
	authToken string
	http      *http.Client
	logger    *zap.SugaredLogger
}

func NewClient(baseURL, authToken string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		authToken: authToken,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type postChatRequest struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	IsCreator bool   `json:"is_creator"`
}

func (c *Client) PostChatMessage(ctx context.Context, room domain.RoomID, msg domain.ChatMessage) error {
	body := postChatRequest{
		ID:        msg.ID,
		UserID:    string(msg.UserID),
		Username:  msg.Username,
		Message:   msg.Message,
		Timestamp: msg.Timestamp.UnixMilli(),
		IsCreator: msg.IsCreator,
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/rooms/%s/chat", room), body, nil)
}

type chatHistoryResponse struct {
	Messages []ports.ChatHistoryEntry `json:"messages"`
}

func (c *Client) ChatHistory(ctx context.Context, room domain.RoomID) ([]ports.ChatHistoryEntry, error) {
	var resp chatHistoryResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rooms/%s/chat", room), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

type statsRequest struct {
	ViewerCount int `json:"viewer_count"`
}

func (c *Client) UpdateViewerCount(ctx context.Context, room domain.RoomID, count int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/rooms/%s/stats", room), statsRequest{ViewerCount: count}, nil)
}

type stopStreamRequest struct {
	ReplayKey string `json:"replay_key,omitempty"`
}

func (c *Client) StopStream(ctx context.Context, room domain.RoomID, replayKey string) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/rooms/%s/stop", room), stopStreamRequest{ReplayKey: replayKey}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend request %s %s returned %d: %s", method, path, resp.StatusCode, snippet)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode backend response: %w", err)
		}
	}
	return nil
}
