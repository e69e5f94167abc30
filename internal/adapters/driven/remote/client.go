// Package remote implements the RemoteStore port against the notes
// backend's HTTP API. JSON for document and metadata calls, multipart
// for uploads, with a proactive request throttle so a burst of
// background cache fills cannot starve interactive calls.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/amanami-takumi/aquarius/internal/core/domain"
	"github.com/amanami-takumi/aquarius/internal/core/ports/driven"
)

const (
	// DefaultBackendURL is used when no backend is configured.
	DefaultBackendURL = "http://localhost:25010"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// ProactiveRate is the proactive throttle rate in requests per second.
	ProactiveRate = 10

	// ProactiveBurst allows short bursts above the sustained rate.
	ProactiveBurst = 5
)

// Ensure Client implements the interface.
var _ driven.RemoteStore = (*Client)(nil)

// Client talks to the notes backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a backend client for the given base URL. An empty
// baseURL falls back to DefaultBackendURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBackendURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(ProactiveRate), ProactiveBurst),
	}
}

// ==================== Wire types ====================

type documentPayload struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type documentsResponse struct {
	Documents []documentPayload `json:"documents"`
}

type archivedDocument struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	UpdatedAt  time.Time `json:"updatedAt"`
	ArchivedAt time.Time `json:"archivedAt"`
}

type archivedDocumentsResponse struct {
	Documents []archivedDocument `json:"documents"`
}

type archiveResponse struct {
	Document struct {
		ID         string    `json:"id"`
		ArchivedAt time.Time `json:"archivedAt"`
	} `json:"document"`
}

type deleteResponse struct {
	Document struct {
		ID                 string `json:"id"`
		RemovedAttachments int    `json:"removedAttachments"`
	} `json:"document"`
}

type attachmentVariantResponse struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	DownloadURL string `json:"downloadUrl"`
}

type attachmentResponse struct {
	ID          string                      `json:"id"`
	DocumentID  string                      `json:"documentId"`
	Filename    string                      `json:"filename"`
	ContentType string                      `json:"contentType"`
	Size        int64                       `json:"size"`
	CreatedAt   time.Time                   `json:"createdAt"`
	DownloadURL string                      `json:"downloadUrl"`
	Variants    []attachmentVariantResponse `json:"variants,omitempty"`
}

type attachmentsResponse struct {
	Attachments []attachmentResponse `json:"attachments"`
}

type uploadResponse struct {
	Attachment attachmentResponse `json:"attachment"`
}

type exportResponse struct {
	URL string `json:"url"`
}

func (a attachmentResponse) toRecord() domain.AttachmentCacheRecord {
	record := domain.AttachmentCacheRecord{
		ID:          a.ID,
		DocumentID:  a.DocumentID,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Size:        a.Size,
		CreatedAt:   a.CreatedAt,
		DownloadURL: a.DownloadURL,
	}
	for _, v := range a.Variants {
		record.Variants = append(record.Variants, domain.AttachmentVariant{
			Name:        v.Name,
			ContentType: v.ContentType,
			Size:        v.Size,
			Width:       v.Width,
			Height:      v.Height,
			DownloadURL: v.DownloadURL,
		})
	}
	return record
}

// ==================== Documents ====================

// UpsertDocument pushes the full current state of a document.
func (c *Client) UpsertDocument(ctx context.Context, payload driven.DocumentPayload) error {
	body := documentPayload{
		ID:        payload.ID,
		Title:     payload.Title,
		Content:   payload.Content,
		UpdatedAt: payload.UpdatedAt,
	}
	return c.doJSON(ctx, http.MethodPost, "/documents", body, nil)
}

// ListDocuments returns the full active document set.
func (c *Client) ListDocuments(ctx context.Context) ([]driven.DocumentPayload, error) {
	var result documentsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/documents", nil, &result); err != nil {
		return nil, err
	}

	payloads := make([]driven.DocumentPayload, 0, len(result.Documents))
	for _, doc := range result.Documents {
		payloads = append(payloads, driven.DocumentPayload{
			ID:        doc.ID,
			Title:     doc.Title,
			Content:   doc.Content,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return payloads, nil
}

// ListArchivedDocuments returns the archived document set.
func (c *Client) ListArchivedDocuments(ctx context.Context) ([]domain.ArchivedDocumentEntry, error) {
	var result archivedDocumentsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/documents/archived", nil, &result); err != nil {
		return nil, err
	}

	entries := make([]domain.ArchivedDocumentEntry, 0, len(result.Documents))
	for _, doc := range result.Documents {
		entries = append(entries, domain.ArchivedDocumentEntry{
			ID:         doc.ID,
			Title:      doc.Title,
			UpdatedAt:  doc.UpdatedAt,
			ArchivedAt: doc.ArchivedAt,
		})
	}
	return entries, nil
}

// ArchiveDocument moves a document into the archive and returns the
// server-side archive timestamp.
func (c *Client) ArchiveDocument(ctx context.Context, id string) (time.Time, error) {
	var result archiveResponse
	path := fmt.Sprintf("/documents/%s/archive", id)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &result); err != nil {
		return time.Time{}, err
	}
	return result.Document.ArchivedAt, nil
}

// RestoreDocument moves an archived document back into the active set.
func (c *Client) RestoreDocument(ctx context.Context, id string) error {
	path := fmt.Sprintf("/documents/%s/restore", id)
	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// DeleteDocument permanently removes an archived document and returns
// the number of attachments removed with it.
func (c *Client) DeleteDocument(ctx context.Context, id string) (int, error) {
	var result deleteResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/documents/"+id, nil, &result); err != nil {
		return 0, err
	}
	return result.Document.RemovedAttachments, nil
}

// ==================== Attachments ====================

// ListAttachments returns attachment metadata for a document.
func (c *Client) ListAttachments(ctx context.Context, documentID string) ([]domain.AttachmentCacheRecord, error) {
	var result attachmentsResponse
	path := fmt.Sprintf("/documents/%s/attachments", documentID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}

	records := make([]domain.AttachmentCacheRecord, 0, len(result.Attachments))
	for _, att := range result.Attachments {
		records = append(records, att.toRecord())
	}
	return records, nil
}

// UploadAttachment uploads one file as multipart form data and returns
// the resulting metadata.
func (c *Client) UploadAttachment(
	ctx context.Context, documentID, filename, contentType string, body io.Reader,
) (*domain.AttachmentCacheRecord, error) {
	path := fmt.Sprintf("/documents/%s/attachments", documentID)

	var result uploadResponse
	if err := c.doMultipart(ctx, path, filename, contentType, body, &result); err != nil {
		return nil, err
	}

	record := result.Attachment.toRecord()
	return &record, nil
}

// DeleteAttachment removes one attachment.
func (c *Client) DeleteAttachment(ctx context.Context, documentID, attachmentID string) error {
	path := fmt.Sprintf("/documents/%s/attachments/%s", documentID, attachmentID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// Download fetches raw bytes from a variant download URL. Relative URLs
// are resolved against the backend base URL.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "/") {
		url = c.baseURL + url
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return data, nil
}

// ==================== Backup ====================

// ExportDocuments asks the backend to build a backup archive and
// returns its download URL.
func (c *Client) ExportDocuments(ctx context.Context) (string, error) {
	var result exportResponse
	if err := c.doJSON(ctx, http.MethodGet, "/documents/export", nil, &result); err != nil {
		return "", err
	}
	if strings.HasPrefix(result.URL, "/") {
		return c.baseURL + result.URL, nil
	}
	return result.URL, nil
}

// ImportArchive uploads a previously exported backup archive.
func (c *Client) ImportArchive(ctx context.Context, filename string, body io.Reader) error {
	return c.doMultipart(ctx, "/documents/import", filename, "application/zip", body, nil)
}

// ==================== Transport ====================

// doJSON performs a JSON request and decodes the response into out when
// out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// doMultipart uploads one file under a "file" form field.
func (c *Client) doMultipart(
	ctx context.Context, path, filename, contentType string, body io.Reader, out any,
) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := createFormFile(writer, "file", filename, contentType)
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return fmt.Errorf("copying form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalising form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}
