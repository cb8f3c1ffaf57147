package recording

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

// Client talks to the external cloud-recording service. Implements
// ports.RecordingService. The API is resource-oriented: acquire yields a
// resource id, start binds it to a session (sid), stop returns the file
// manifest.
type Client struct {
	baseURL string
	appID   string
	http    *http.Client
	logger  *zap.SugaredLogger
}

func NewClient(baseURL, appID string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		appID:   appID,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type acquireRequest struct {
	Cname          string `json:"cname"`
	UID            string `json:"uid"`
	ResourceExpiry int    `json:"resource_expiry_hours"`
}

type acquireResponse struct {
	ResourceID string `json:"resource_id"`
}

func (c *Client) Acquire(ctx context.Context, channelName, recorderUID string, lease ports.AcquireLease) (string, error) {
	req := acquireRequest{
		Cname:          channelName,
		UID:            recorderUID,
		ResourceExpiry: int(lease.ResourceExpiry.Hours()),
	}
	var resp acquireResponse
	path := fmt.Sprintf("/apps/%s/cloud_recording/acquire", c.appID)
	if err := c.do(ctx, path, req, &resp); err != nil {
		return "", err
	}
	if resp.ResourceID == "" {
		return "", fmt.Errorf("acquire returned an empty resource id")
	}
	return resp.ResourceID, nil
}

type startRequest struct {
	Cname         string        `json:"cname"`
	UID           string        `json:"uid"`
	Token         string        `json:"token"`
	StorageConfig storageConfig `json:"storage_config"`
}

type storageConfig struct {
	Bucket       string `json:"bucket"`
	Region       string `json:"region"`
	PathPrefix   string `json:"path_prefix"`
	RetentionTag string `json:"retention_tag"`
}

type startResponse struct {
	SID string `json:"sid"`
}

func (c *Client) Start(ctx context.Context, req ports.StartRecordingRequest) (string, error) {
	body := startRequest{
		Cname: req.ChannelName,
		UID:   req.RecorderUID,
		Token: req.Credential,
		StorageConfig: storageConfig{
			Bucket:       req.Storage.Bucket,
			Region:       req.Storage.Region,
			PathPrefix:   req.Storage.PathPrefix,
			RetentionTag: req.Storage.RetentionTag,
		},
	}
	var resp startResponse
	path := fmt.Sprintf("/apps/%s/cloud_recording/resourceid/%s/start", c.appID, req.ResourceID)
	if err := c.do(ctx, path, body, &resp); err != nil {
		return "", err
	}
	if resp.SID == "" {
		return "", fmt.Errorf("start returned an empty sid")
	}
	return resp.SID, nil
}

type stopRequest struct {
	Cname string `json:"cname"`
	UID   string `json:"uid"`
}

type stopResponse struct {
	ServerResponse struct {
		FileList domain.FileManifest `json:"file_list"`
	} `json:"server_response"`
}

func (c *Client) Stop(ctx context.Context, req ports.StopRecordingRequest) (domain.FileManifest, error) {
	body := stopRequest{Cname: req.ChannelName, UID: req.RecorderUID}
	var resp stopResponse
	path := fmt.Sprintf("/apps/%s/cloud_recording/resourceid/%s/sid/%s/stop", c.appID, req.ResourceID, req.SID)
	if err := c.do(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	return resp.ServerResponse.FileList, nil
}

func (c *Client) do(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("recording request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("recording request %s returned %d: %s", path, resp.StatusCode, snippet)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode recording response: %w", err)
		}
	}
	return nil
}
