package remote

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/amanami-takumi/aquarius/internal/core/domain"
)

// APIError represents a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Detail     string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: API error %d: %s (URL: %s)", e.StatusCode, e.Detail, e.URL)
}

// Is lets callers match on the domain sentinels without unwrapping the
// status code themselves.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case domain.ErrRemoteUnavailable:
		return e.StatusCode >= 500
	}
	return false
}

// IsNotFound checks if the error indicates a missing resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return errors.Is(err, domain.ErrNotFound)
}

// checkStatus converts a non-2xx response into an APIError, draining at
// most a short detail string from the body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail := "unknown error"
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 512)); err == nil && len(data) > 0 {
		detail = strings.TrimSpace(string(data))
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Detail:     detail,
		URL:        resp.Request.URL.String(),
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// createFormFile is mime/multipart's CreateFormFile with an explicit
// content type instead of the hardcoded application/octet-stream.
func createFormFile(w *multipart.Writer, fieldname, filename, contentType string) (io.Writer, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(fieldname), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}
