package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/swdepot/depot-engine/internal/config"
	"github.com/swdepot/depot-engine/internal/logging"
	"github.com/swdepot/depot-engine/internal/models"
	"github.com/swdepot/depot-engine/internal/sanitize"
	"github.com/swdepot/depot-engine/internal/version"
)

// retryLogger adapts the engine logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(string, ...interface{})  {}
func (l *retryLogger) Debug(string, ...interface{}) {}

// Client is the Depot portal API client.
type Client struct {
	httpClient *nethttp.Client
	baseURL    string
	apiKey     string
	logger     *logging.Logger
}

// NewClient creates a new API client from the engine config. The transport
// retry budget comes from config and defaults to 0: the engine never retries
// on its own, it only surfaces transport errors.
func NewClient(cfg *config.Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("API base URL is empty")
	}

	logger := logging.NewLogger("api")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.TransportRetries
	retryClient.Logger = &retryLogger{logger: logger}
	// Surface the final response instead of a synthetic "giving up" error;
	// conflict detection needs the raw server body even on 5xx.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		httpClient: retryClient.StandardClient(),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger,
	}, nil
}

// doRequest performs a JSON HTTP request with authentication.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*nethttp.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Str("method", method).Str("path", path).Err(err).Msg("API call failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// doMultipart performs a multipart/form-data POST with the given fields and
// one file part.
func (c *Client) doMultipart(ctx context.Context, path string, fields map[string]string, filePart, fileName string, file io.Reader) (*nethttp.Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}
	if file != nil {
		part, err := w.CreateFormFile(filePart, fileName)
		if err != nil {
			return nil, fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			return nil, fmt.Errorf("failed to write file part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Str("path", path).Err(err).Msg("API call failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// errorFromResponse drains resp and builds a status-tagged error.
func errorFromResponse(op string, resp *nethttp.Response) error {
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == nethttp.StatusNotFound {
		return fmt.Errorf("%s failed: %w: %s", op, ErrNotFound, string(body))
	}
	return fmt.Errorf("%s failed: status %d: %s", op, resp.StatusCode, string(body))
}

// ListSoftware lists the software catalog (with pagination).
func (c *Client) ListSoftware(ctx context.Context) ([]models.Software, error) {
	var all []models.Software
	nextURL := "/api/v1/software/"

	for nextURL != "" {
		resp, err := c.doRequest(ctx, nethttp.MethodGet, nextURL, nil)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != nethttp.StatusOK {
			err := errorFromResponse("list software", resp)
			resp.Body.Close()
			return nil, err
		}

		var result struct {
			Next    *string           `json:"next"`
			Results []models.Software `json:"results"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to decode software list: %w", err)
		}
		resp.Body.Close()

		all = append(all, result.Results...)
		if result.Next != nil && *result.Next != "" {
			nextURL = strings.TrimPrefix(*result.Next, c.baseURL)
		} else {
			nextURL = ""
		}
	}

	return all, nil
}

// ListVersions lists the versions of one software product.
func (c *Client) ListVersions(ctx context.Context, softwareID int) ([]models.Version, error) {
	path := fmt.Sprintf("/api/v1/software/%d/versions/", softwareID)

	resp, err := c.doRequest(ctx, nethttp.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, errorFromResponse("list versions", resp)
	}

	var result struct {
		Results []models.Version `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode version list: %w", err)
	}
	return result.Results, nil
}

// ItemPayload carries the metadata of a single-shot create or edit call.
// URL-mode payloads set URL; file payloads go through CreateItemFile or the
// chunk endpoint instead.
type ItemPayload struct {
	SoftwareID           int
	Title                string
	Description          string
	Version              models.VersionReference
	URL                  string
	CompatibleVersionIDs []int
}

// MarshalJSON flattens the payload, emitting exactly one version field.
// Title and description are sanitized on the way out; pasted rich text
// carries invisible characters that break server-side name matching.
func (p ItemPayload) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"softwareId":  p.SoftwareID,
		"title":       sanitize.Title(p.Title),
		"description": sanitize.Field(p.Description),
	}
	if p.URL != "" {
		m["url"] = p.URL
		m["isExternalLink"] = true
	}
	if len(p.CompatibleVersionIDs) > 0 {
		m["compatibleVersionIds"] = p.CompatibleVersionIDs
	}

	if typed, ok := p.Version.TypedVersionString(); ok {
		m["typedVersionString"] = typed
	} else if id, ok := p.Version.VersionID(); ok {
		m["versionId"] = id
	} else {
		return nil, models.ErrEmptyVersionReference
	}
	return json.Marshal(m)
}

// fields flattens the payload into multipart form fields. Compatibility ids
// are serialized as a single comma-joined string field, matching what the
// chunk endpoint expects.
func (p ItemPayload) fields() (map[string]string, error) {
	m := map[string]string{
		"softwareId":  strconv.Itoa(p.SoftwareID),
		"title":       sanitize.Title(p.Title),
		"description": sanitize.Field(p.Description),
	}
	if p.URL != "" {
		m["url"] = p.URL
		m["isExternalLink"] = "true"
	}
	if len(p.CompatibleVersionIDs) > 0 {
		m["compatibleVersionIds"] = joinIDs(p.CompatibleVersionIDs)
	}
	if err := p.Version.Fields(m); err != nil {
		return nil, err
	}
	return m, nil
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// CreateItem creates an item via the URL-mode JSON payload.
func (c *Client) CreateItem(ctx context.Context, kind models.ItemKind, payload ItemPayload) (*models.ContentItem, error) {
	path := fmt.Sprintf("/api/v1/%s/", kind.Path())
	resp, err := c.doRequest(ctx, nethttp.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeItemResponse("create item", resp)
}

// UpdateItem edits an existing item.
func (c *Client) UpdateItem(ctx context.Context, kind models.ItemKind, id int, payload ItemPayload) (*models.ContentItem, error) {
	path := fmt.Sprintf("/api/v1/%s/%d/", kind.Path(), id)
	resp, err := c.doRequest(ctx, nethttp.MethodPut, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeItemResponse("update item", resp)
}

// CreateItemFile creates an item from a small file in one multipart call.
// Large files go through the chunk endpoint instead.
func (c *Client) CreateItemFile(ctx context.Context, kind models.ItemKind, payload ItemPayload, fileName string, file io.Reader) (*models.ContentItem, error) {
	fields, err := payload.fields()
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/api/v1/%s/", kind.Path())
	resp, err := c.doMultipart(ctx, path, fields, "file", fileName, file)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeItemResponse("create item", resp)
}

func decodeItemResponse(op string, resp *nethttp.Response) (*models.ContentItem, error) {
	if resp.StatusCode == nethttp.StatusOK || resp.StatusCode == nethttp.StatusCreated {
		var item models.ContentItem
		if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
			return nil, fmt.Errorf("failed to decode item response: %w", err)
		}
		return &item, nil
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	// Uniqueness-constraint failures come back unstructured here.
	if resp.StatusCode == nethttp.StatusConflict || resp.StatusCode == nethttp.StatusBadRequest {
		bodyLower := strings.ToLower(bodyStr)
		if strings.Contains(bodyLower, "already exists") ||
			strings.Contains(bodyLower, "duplicate") ||
			strings.Contains(bodyLower, "unique") {
			return nil, fmt.Errorf("%w: %s", ErrNameConflict, bodyStr)
		}
	}

	return nil, fmt.Errorf("%s failed: status %d: %s", op, resp.StatusCode, bodyStr)
}

// ChunkRequest carries one chunk of a resumable upload.
type ChunkRequest struct {
	Kind        models.ItemKind
	ChunkIndex  int
	TotalChunks int
	Payload     ItemPayload
	FileName    string
	Data        []byte
}

// UploadChunk transmits one chunk. The server answers 202 for every chunk
// except the last; the final chunk returns the fully materialized item,
// identical in shape to a single-shot create.
func (c *Client) UploadChunk(ctx context.Context, req ChunkRequest) (*models.ContentItem, error) {
	fields, err := req.Payload.fields()
	if err != nil {
		return nil, err
	}
	fields["chunkIndex"] = strconv.Itoa(req.ChunkIndex)
	fields["totalChunks"] = strconv.Itoa(req.TotalChunks)

	path := fmt.Sprintf("/api/v1/%s/chunks/", req.Kind.Path())
	resp, err := c.doMultipart(ctx, path, fields, "fileChunk", req.FileName, bytes.NewReader(req.Data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case nethttp.StatusAccepted:
		// Intermediate chunk acknowledged.
		return nil, nil
	case nethttp.StatusOK, nethttp.StatusCreated:
		var item models.ContentItem
		if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
			return nil, fmt.Errorf("failed to decode chunk response: %w", err)
		}
		return &item, nil
	default:
		return nil, errorFromResponse(fmt.Sprintf("upload chunk %d/%d", req.ChunkIndex+1, req.TotalChunks), resp)
	}
}

// BulkDelete deletes the selected items in one request and returns the
// server-reported delete count.
func (c *Client) BulkDelete(ctx context.Context, kind models.ItemKind, ids []int) (int, error) {
	path := fmt.Sprintf("/api/v1/%s/bulk-delete/", kind.Path())
	body := map[string]interface{}{"ids": ids}

	resp, err := c.doRequest(ctx, nethttp.MethodPost, path, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return 0, errorFromResponse("bulk delete", resp)
	}

	var result struct {
		DeletedCount int `json:"deletedCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode bulk delete response: %w", err)
	}
	return result.DeletedCount, nil
}

// BulkMove moves the selected items to the target version in one request.
// Full success comes back as 200; partial success as 207 with the rejected
// subset enumerated in conflictedItems.
func (c *Client) BulkMove(ctx context.Context, kind models.ItemKind, ids []int, targetVersionID int) (*models.BulkOperationResult, error) {
	path := fmt.Sprintf("/api/v1/%s/bulk-move/", kind.Path())
	body := map[string]interface{}{
		"ids":             ids,
		"targetVersionId": targetVersionID,
	}

	resp, err := c.doRequest(ctx, nethttp.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case nethttp.StatusOK, nethttp.StatusMultiStatus:
		var result struct {
			MovedCount      int                     `json:"movedCount"`
			ConflictedItems []models.ConflictedItem `json:"conflictedItems"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode bulk move response: %w", err)
		}
		return &models.BulkOperationResult{
			SuccessCount:   result.MovedCount,
			Conflicted:     result.ConflictedItems,
			FailedEntirely: result.MovedCount == 0 && len(result.ConflictedItems) > 0,
		}, nil
	default:
		raw, _ := io.ReadAll(resp.Body)
		bodyStr := string(raw)
		bodyLower := strings.ToLower(bodyStr)
		if strings.Contains(bodyLower, "unique") || strings.Contains(bodyLower, "already exists") {
			return nil, fmt.Errorf("%w: %s", ErrNameConflict, bodyStr)
		}
		return nil, fmt.Errorf("bulk move failed: status %d: %s", resp.StatusCode, bodyStr)
	}
}

// BulkDownload requests an archive of the given items. The caller owns the
// returned stream and must close it; nothing is persisted in between.
func (c *Client) BulkDownload(ctx context.Context, kind models.ItemKind, ids []int) (io.ReadCloser, error) {
	path := fmt.Sprintf("/api/v1/%s/bulk-download/", kind.Path())
	body := map[string]interface{}{"ids": ids}

	resp, err := c.doRequest(ctx, nethttp.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != nethttp.StatusOK {
		err := errorFromResponse("bulk download", resp)
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// AddFavorite favorites an item and returns the server-assigned favorite id.
func (c *Client) AddFavorite(ctx context.Context, itemID int, kind models.ItemKind) (int, error) {
	body := map[string]interface{}{
		"itemId":   itemID,
		"itemKind": kind,
	}

	resp, err := c.doRequest(ctx, nethttp.MethodPost, "/api/v1/favorites/", body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusCreated && resp.StatusCode != nethttp.StatusOK {
		return 0, errorFromResponse("add favorite", resp)
	}

	var result struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode favorite response: %w", err)
	}
	return result.ID, nil
}

// RemoveFavorite removes a favorite by its id.
func (c *Client) RemoveFavorite(ctx context.Context, favoriteID int) error {
	path := fmt.Sprintf("/api/v1/favorites/%d/", favoriteID)

	resp, err := c.doRequest(ctx, nethttp.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusNoContent && resp.StatusCode != nethttp.StatusOK {
		return errorFromResponse("remove favorite", resp)
	}
	return nil
}
