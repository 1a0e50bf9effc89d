package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/aryan0dhankhar/droplog/internal/domain"
	"github.com/aryan0dhankhar/droplog/internal/security/capability"
	"github.com/aryan0dhankhar/droplog/internal/service"
)

// RecordResponse is the wire form of a log record
type RecordResponse struct {
	ID      int64  `json:"id"`
	Created string `json:"created"`
	Content string `json:"content"`
}

// ContentResponse wraps a namespace listing
type ContentResponse struct {
	Content []RecordResponse `json:"content"`
}

// BearerResponse carries a freshly issued token
type BearerResponse struct {
	Bearer string `json:"bearer"`
}

// NamespaceHandler exposes the gateway operations over HTTP
type NamespaceHandler struct {
	namespaces   *service.NamespaceService
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewNamespaceHandler creates a new namespace handler
func NewNamespaceHandler(namespaces *service.NamespaceService, logger *slog.Logger, maxBodyBytes int64) *NamespaceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NamespaceHandler{
		namespaces:   namespaces,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

func toRecordResponse(rec domain.Record) RecordResponse {
	return RecordResponse{
		ID:      rec.ID,
		Created: rec.Created.UTC().Format("2006-01-02T15:04:05.000Z"),
		Content: rec.Content,
	}
}

func bearerFrom(r *http.Request) string {
	return capability.ExtractToken(r.Header.Get("Authorization"))
}

// Status handles GET /{id}/status
func (h *NamespaceHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.namespaces.Status(r.Context(), r.PathValue("id"), bearerFrom(r))
	if err != nil {
		writeGatewayError(w, h.logger, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// IssueBearer handles POST /{id}/bearer
func (h *NamespaceHandler) IssueBearer(w http.ResponseWriter, r *http.Request) {
	token, err := h.namespaces.IssueBearer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeGatewayError(w, h.logger, "issue_bearer", err)
		return
	}
	writeJSON(w, http.StatusOK, BearerResponse{Bearer: token})
}

// Append handles POST /{id}. If the response is a 500 the record may still
// have been written; clients that retry can end up with a duplicate.
func (h *NamespaceHandler) Append(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !domain.IsNamespaceID(id) {
		writeGatewayError(w, h.logger, "append", domain.ErrInvalidFormat)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.logger.Warn("failed to read request body", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	content, err := normalizeContent(r.Header.Get("Content-Type"), body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, err := h.namespaces.Append(r.Context(), id, bearerFrom(r), content)
	if err != nil {
		writeGatewayError(w, h.logger, "append", err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(*rec))
}

// List handles GET /{id}/content
func (h *NamespaceHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.namespaces.List(r.Context(), r.PathValue("id"))
	if err != nil {
		writeGatewayError(w, h.logger, "list", err)
		return
	}

	out := make([]RecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordResponse(rec))
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, ContentResponse{Content: out})
}

// Destroy handles DELETE /{id}
func (h *NamespaceHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	if err := h.namespaces.Destroy(r.Context(), r.PathValue("id"), bearerFrom(r)); err != nil {
		writeGatewayError(w, h.logger, "destroy", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RedirectToFresh handles GET / by sending the client to a new namespace
func RedirectToFresh(newID func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/"+newID(), http.StatusMovedPermanently)
	}
}

// normalizeContent stores JSON bodies in compact textual form and everything
// else verbatim
func normalizeContent(contentType string, body []byte) (string, error) {
	if !isJSONMediaType(contentType) {
		return string(body), nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func isJSONMediaType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
