package webflow

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"time"
)

type createAssetRequest struct {
	FileName     string `json:"fileName"`
	FileHash     string `json:"fileHash"`
	ParentFolder string `json:"parentFolder,omitempty"`
}

type createAssetResponse struct {
	ID            string        `json:"id"`
	UploadURL     string        `json:"uploadUrl"`
	UploadDetails uploadDetails `json:"uploadDetails"`
}

// uploadDetails are the presigned S3 POST policy fields Webflow hands back.
// They are replayed verbatim as form fields, with the file part last.
type uploadDetails struct {
	ACL                 string `json:"acl"`
	Bucket              string `json:"bucket"`
	AmzAlgorithm        string `json:"X-Amz-Algorithm"`
	AmzCredential       string `json:"X-Amz-Credential"`
	AmzDate             string `json:"X-Amz-Date"`
	Key                 string `json:"key"`
	Policy              string `json:"Policy"`
	AmzSignature        string `json:"X-Amz-Signature"`
	SuccessActionStatus string `json:"success_action_status"`
	ContentType         string `json:"content-type"`
	CacheControl        string `json:"Cache-Control"`
}

type formField struct {
	name  string
	value string
}

func (d uploadDetails) formFields() []formField {
	return []formField{
		{"acl", d.ACL},
		{"bucket", d.Bucket},
		{"X-Amz-Algorithm", d.AmzAlgorithm},
		{"X-Amz-Credential", d.AmzCredential},
		{"X-Amz-Date", d.AmzDate},
		{"key", d.Key},
		{"Policy", d.Policy},
		{"X-Amz-Signature", d.AmzSignature},
		{"success_action_status", d.SuccessActionStatus},
		{"Content-Type", d.ContentType},
		{"Cache-Control", d.CacheControl},
	}
}

// Upload registers the file as a site asset, posts its bytes to the
// presigned S3 URL and waits until the API serves a public URL for it.
// The file is streamed from disk, never held in memory whole.
func (c *Client) Upload(ctx context.Context, filePath, folderID string) (*Asset, error) {
	hash, err := fileMD5(filePath)
	if err != nil {
		return nil, err
	}

	meta, err := c.createAsset(ctx, filePath, hash, folderID)
	if err != nil {
		return nil, err
	}

	if err := c.postFile(ctx, filePath, meta); err != nil {
		return nil, err
	}

	return c.awaitAsset(ctx, meta.ID)
}

func (c *Client) createAsset(ctx context.Context, filePath, hash, folderID string) (*createAssetResponse, error) {
	body := createAssetRequest{
		FileName:     filepath.Base(filePath),
		FileHash:     hash,
		ParentFolder: folderID,
	}

	var meta createAssetResponse
	url := fmt.Sprintf("%s/sites/%s/assets", c.apiBase, c.siteID)
	if err := c.doJSON(ctx, http.MethodPost, url, body, &meta, "create asset"); err != nil {
		return nil, err
	}
	if meta.UploadURL == "" {
		return nil, fmt.Errorf("create asset: response carried no upload URL")
	}

	return &meta, nil
}

// postFile sends the multipart form to S3, retrying transient failures with
// increasing backoff. Each attempt rebuilds the stream from disk.
func (c *Client) postFile(ctx context.Context, filePath string, meta *createAssetResponse) error {
	var err error
	delay := time.Second

	for attempt := 0; attempt <= c.uploadRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("Retrying upload", "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		err = c.postFileOnce(ctx, filePath, meta)
		if err == nil || !transientUploadError(ctx, err) {
			return err
		}
	}

	return err
}

func (c *Client) postFileOnce(ctx context.Context, filePath string, meta *createAssetResponse) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = file.Close() }()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := writeUploadForm(writer, file, filepath.Base(filePath), meta.UploadDetails)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, meta.UploadURL, pr)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return fmt.Errorf("post file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return &APIError{Op: "post file", Status: resp.StatusCode, Body: string(data)}
	}

	return nil
}

func writeUploadForm(writer *multipart.Writer, file io.Reader, fileName string, details uploadDetails) error {
	for _, field := range details.formFields() {
		if field.value == "" {
			continue
		}
		if err := writer.WriteField(field.name, field.value); err != nil {
			return fmt.Errorf("write form field %s: %w", field.name, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	if details.ContentType != "" {
		header.Set("Content-Type", details.ContentType)
	}

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("stream file: %w", err)
	}

	return nil
}

func transientUploadError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	// Transport-level failure (connection reset, broken pipe).
	return true
}

func fileMD5(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = file.Close() }()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("hash artifact: %w", err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
