package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.mux.com"
	assetsPath                  = "video/v1/assets"
	responseBodyReadLimit int64 = 1024
)

var errCredentialsRequired = errors.New("video platform credentials are required")

// Asset is the subset of the hosted asset the catalog stores.
type Asset struct {
	ID              string
	PlaybackID      string
	Status          enums.VideoStatus
	DurationSeconds int
}

// Platform is the surface the catalog depends on.
type Platform interface {
	CreateAssetFromURL(ctx context.Context, sourceURL string) (*Asset, error)
	GetAsset(ctx context.Context, assetID string) (*Asset, error)
}

// Client talks to a Mux-compatible video hosting API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	tokenID     string
	tokenSecret string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the video client from configuration.
func NewClient(cfg config.VideoConfig, opts ...Option) (*Client, error) {
	tokenID := strings.TrimSpace(cfg.TokenID)
	tokenSecret := strings.TrimSpace(cfg.TokenSecret)
	if tokenID == "" || tokenSecret == "" {
		return nil, errCredentialsRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		tokenID:     tokenID,
		tokenSecret: tokenSecret,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type assetEnvelope struct {
	Data struct {
		ID          string  `json:"id"`
		Status      string  `json:"status"`
		Duration    float64 `json:"duration"`
		PlaybackIDs []struct {
			ID     string `json:"id"`
			Policy string `json:"policy"`
		} `json:"playback_ids"`
	} `json:"data"`
}

// CreateAssetFromURL asks the platform to ingest the video at sourceURL.
func (c *Client) CreateAssetFromURL(ctx context.Context, sourceURL string) (*Asset, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "video client not configured")
	}
	trimmed := strings.TrimSpace(sourceURL)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source url is required")
	}
	if parsed, err := url.Parse(trimmed); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source url must be absolute")
	}

	payload, err := json.Marshal(map[string]any{
		"input":           []map[string]string{{"url": trimmed}},
		"playback_policy": []string{"public"},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal create asset request")
	}

	var env assetEnvelope
	if err := c.do(ctx, http.MethodPost, c.buildURL(assetsPath), payload, http.StatusCreated, &env); err != nil {
		return nil, err
	}
	return toAsset(env), nil
}

// GetAsset reads the current state of an asset.
func (c *Client) GetAsset(ctx context.Context, assetID string) (*Asset, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "video client not configured")
	}
	trimmed := strings.TrimSpace(assetID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset id is required")
	}

	var env assetEnvelope
	if err := c.do(ctx, http.MethodGet, c.buildURL(assetsPath, url.PathEscape(trimmed)), nil, http.StatusOK, &env); err != nil {
		return nil, err
	}
	return toAsset(env), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build video request")
	}
	req.SetBasicAuth(c.tokenID, c.tokenSecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute video request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "video asset not found")
	}
	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "video request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode video response")
	}
	return nil
}

func toAsset(env assetEnvelope) *Asset {
	asset := &Asset{
		ID:              env.Data.ID,
		DurationSeconds: int(math.Round(env.Data.Duration)),
	}
	asset.Status, _ = enums.ParseVideoStatus(env.Data.Status)
	for _, playback := range env.Data.PlaybackIDs {
		if playback.Policy == "public" || asset.PlaybackID == "" {
			asset.PlaybackID = playback.ID
		}
	}
	return asset
}

func (c *Client) buildURL(parts ...string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	clean := make([]string, 0, len(parts)+1)
	clean = append(clean, trimmed)
	for _, part := range parts {
		clean = append(clean, strings.Trim(part, "/"))
	}
	return strings.Join(clean, "/")
}
