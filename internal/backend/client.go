package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to the layer backend over HTTP.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	events    *http.Client
	userAgent string
	log       *zap.Logger

	reconnectMin time.Duration
	reconnectMax time.Duration
}

// Options tune the HTTP transport.
type Options struct {
	// Timeout bounds each command request. Zero means no timeout; the
	// orchestrator itself never times out a backend call.
	Timeout time.Duration
	Logger  *zap.Logger
}

const (
	defaultBackendAddr = "127.0.0.1:7433"
	defaultUserAgent   = "layerscope/0.1"
	eventBufferSize    = 64
)

// NewClient builds a Client for the backend listening on addr (host:port or URL).
func NewClient(addr string, opts Options) (*Client, error) {
	base, err := parseBaseURL(addr)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:      base,
		http:         &http.Client{Timeout: opts.Timeout},
		events:       &http.Client{Timeout: 0},
		userAgent:    defaultUserAgent,
		log:          logger.Named("backend"),
		reconnectMin: 250 * time.Millisecond,
		reconnectMax: 5 * time.Second,
	}, nil
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	req, err := c.newRequest(ctx, http.MethodGet, &url.URL{Path: "/api/health"}, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// ListImages returns the images available for inspection.
func (c *Client) ListImages(ctx context.Context) ([]ImageSummary, error) {
	var images []ImageSummary
	if err := c.call(ctx, CommandListImages, nil, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// RetagImage tags imageID as the backend's working image. It must
// complete before ExportImageLayers.
func (c *Client) RetagImage(ctx context.Context, imageID string) (string, error) {
	var confirmation string
	args := map[string]string{"imageId": imageID}
	if err := c.call(ctx, CommandRetagImage, args, &confirmation); err != nil {
		return "", err
	}
	return confirmation, nil
}

// ExportImageLayers exports the most recently retagged image.
func (c *Client) ExportImageLayers(ctx context.Context) (*Image, error) {
	var img Image
	if err := c.call(ctx, CommandExportImageLayers, nil, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// ExportSingleLayer exports one layer and returns its first scan of entries.
func (c *Client) ExportSingleLayer(ctx context.Context, layerID string) ([]Entry, error) {
	var entries []Entry
	args := map[string]string{"layerId": layerID}
	if err := c.call(ctx, CommandExportSingleLayer, args, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetLayerFiles resolves the top-level entries of an exported layer.
func (c *Client) GetLayerFiles(ctx context.Context, layerID string) ([]Entry, error) {
	var entries []Entry
	args := map[string]string{"layerId": layerID}
	if err := c.call(ctx, CommandGetLayerFiles, args, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ExtractDirectory materializes one directory of the layer and returns
// every entry under it.
func (c *Client) ExtractDirectory(ctx context.Context, path, layerID string) ([]Entry, error) {
	var entries []Entry
	args := map[string]string{"dirPath": path, "layerId": layerID}
	if err := c.call(ctx, CommandExtractDirectory, args, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadLayerFile returns a file's text content. Binary or oversized files
// fail with an error for which IsUnreadable is true.
func (c *Client) ReadLayerFile(ctx context.Context, path string) (string, error) {
	var content string
	args := map[string]string{"filePath": path}
	if err := c.call(ctx, CommandReadLayerFile, args, &content); err != nil {
		return "", err
	}
	return content, nil
}

// CompareLayers diffs the filesystems of two layers.
func (c *Client) CompareLayers(ctx context.Context, layer1ID, layer2ID string) (*LayerDiff, error) {
	var diff LayerDiff
	args := map[string]string{"layer1Id": layer1ID, "layer2Id": layer2ID}
	if err := c.call(ctx, CommandCompareLayers, args, &diff); err != nil {
		return nil, err
	}
	return &diff, nil
}

// CleanupImages removes the working image tag created by RetagImage.
func (c *Client) CleanupImages(ctx context.Context) (string, error) {
	var confirmation string
	if err := c.call(ctx, CommandCleanupImages, nil, &confirmation); err != nil {
		return "", err
	}
	return confirmation, nil
}

type errorPayload struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (c *Client) call(ctx context.Context, command string, args any, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	var body io.Reader
	if args != nil {
		encoded, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encode %s arguments: %w", command, err)
		}
		body = bytes.NewReader(encoded)
	}

	rel := &url.URL{Path: "/api/commands/" + command}
	req, err := c.newRequest(ctx, http.MethodPost, rel, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s: %w", command, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("command finished",
		zap.String("command", command),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(started)),
	)

	if resp.StatusCode >= 400 {
		return decodeCommandError(command, resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", command, err)
	}
	return nil
}

func decodeCommandError(command string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return &CommandError{Command: command, Kind: payload.Kind, Message: payload.Error}
	}
	message := strings.TrimSpace(string(raw))
	if message == "" {
		message = fmt.Sprintf("api %s returned status %d", command, resp.StatusCode)
	}
	return &CommandError{Command: command, Message: message}
}

func (c *Client) newRequest(ctx context.Context, method string, rel *url.URL, body io.Reader) (*http.Request, error) {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func parseBaseURL(addr string) (*url.URL, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		trimmed = defaultBackendAddr
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend address %q: %w", addr, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
