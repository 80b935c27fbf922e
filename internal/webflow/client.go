// Package webflow talks to the Webflow v2 Data API: asset folder resolution
// and the two-step asset upload flow (asset metadata registration, then a
// presigned S3 form post).
package webflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clipship/pkg/httputil"
)

const (
	defaultAPIBase      = "https://api.webflow.com/v2"
	defaultPollAttempts = 20
	defaultPollInterval = 5 * time.Second
	maxErrorBodyLen     = 512
)

// Asset is an uploaded file as the API reports it.
type Asset struct {
	ID        string `json:"id"`
	HostedURL string `json:"hostedUrl"`
	// OriginalURL is set before the CDN variant is ready.
	OriginalURL string `json:"originalUrl"`
}

// URL returns the best publicly resolvable URL the API has produced so far.
func (a Asset) URL() string {
	if a.HostedURL != "" {
		return a.HostedURL
	}
	return a.OriginalURL
}

// AssetHost is the remote side of the pipeline. Satisfied by *Client and by
// in-memory fakes in tests.
type AssetHost interface {
	ResolveFolder(ctx context.Context, name string) (string, error)
	Upload(ctx context.Context, filePath, folderID string) (*Asset, error)
}

// APIError reports a non-success response from the Webflow API or the
// presigned upload target.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > maxErrorBodyLen {
		body = body[:maxErrorBodyLen] + "..."
	}
	if body == "" {
		return fmt.Sprintf("webflow %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("webflow %s: status %d: %s", e.Op, e.Status, body)
}

type Client struct {
	apiBase       string
	token         string
	siteID        string
	api           *httputil.RetryClient
	uploadClient  *http.Client
	pollAttempts  int
	pollInterval  time.Duration
	uploadRetries int
}

type ClientOptions struct {
	APIBase       string
	Token         string
	SiteID        string
	HTTPTimeout   time.Duration
	UploadTimeout time.Duration
	PollAttempts  int
	PollInterval  time.Duration
	// UploadRetries bounds re-attempts of the S3 form post after a
	// transient failure.
	UploadRetries int
}

func NewClient(opts ClientOptions) *Client {
	if opts.APIBase == "" {
		opts.APIBase = defaultAPIBase
	}
	if opts.PollAttempts == 0 {
		opts.PollAttempts = defaultPollAttempts
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = defaultPollInterval
	}

	api := httputil.NewRetryClient(&http.Client{Timeout: opts.HTTPTimeout}, httputil.DefaultRetryConfig())

	return &Client{
		apiBase:       opts.APIBase,
		token:         opts.Token,
		siteID:        opts.SiteID,
		api:           api,
		uploadClient:  &http.Client{Timeout: opts.UploadTimeout},
		pollAttempts:  opts.PollAttempts,
		pollInterval:  opts.PollInterval,
		uploadRetries: opts.UploadRetries,
	}
}

type assetFolder struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type listFoldersResponse struct {
	AssetFolders []assetFolder `json:"assetFolders"`
}

// ResolveFolder returns the id of the site asset folder with the exact
// display name, creating it if no such folder exists. Two concurrent first
// runs can race and create duplicate folders; the API does not enforce
// unique names and this client does not try to compensate.
func (c *Client) ResolveFolder(ctx context.Context, name string) (string, error) {
	var listing listFoldersResponse
	url := fmt.Sprintf("%s/sites/%s/asset_folders", c.apiBase, c.siteID)
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &listing, "list asset folders"); err != nil {
		return "", err
	}

	for _, folder := range listing.AssetFolders {
		if folder.DisplayName == name {
			return folder.ID, nil
		}
	}

	var created assetFolder
	body := map[string]string{"displayName": name}
	if err := c.doJSON(ctx, http.MethodPost, url, body, &created, "create asset folder"); err != nil {
		return "", err
	}

	return created.ID, nil
}

type listAssetsResponse struct {
	Assets []Asset `json:"assets"`
}

// awaitAsset polls the asset listing until the uploaded asset shows a
// hosted URL. Webflow processes uploads asynchronously, so right after the
// S3 post the asset may be missing from the listing entirely.
func (c *Client) awaitAsset(ctx context.Context, assetID string) (*Asset, error) {
	url := fmt.Sprintf("%s/sites/%s/assets", c.apiBase, c.siteID)

	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		var listing listAssetsResponse
		if err := c.doJSON(ctx, http.MethodGet, url, nil, &listing, "list assets"); err != nil {
			return nil, err
		}

		for _, asset := range listing.Assets {
			if asset.ID == assetID && asset.URL() != "" {
				return &asset, nil
			}
		}

		if attempt < c.pollAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pollInterval):
			}
		}
	}

	return nil, fmt.Errorf("asset %s not served after %d polls", assetID, c.pollAttempts)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out any, op string) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("webflow %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, Status: resp.StatusCode, Body: string(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse %s response: %w", op, err)
		}
	}

	return nil
}
