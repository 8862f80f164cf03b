package api

import (
	"errors"
	"net"
	"net/http"

	"altiora-site/pkg/contact"
	"altiora-site/pkg/logging"
	"altiora-site/pkg/metrics"
	"altiora-site/pkg/storage"
	"altiora-site/pkg/validation"

	"github.com/goccy/go-json"
)

const maxContactBody = 1 << 20

type contactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var sub contact.Submission
	if !decodeBody(w, r, maxContactBody, &sub) {
		return
	}

	res, err := s.deps.Contact.Submit(r.Context(), sub, contact.Meta{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.First().Message, Fields: verr.Fields})
		case errors.Is(err, contact.ErrSubmissionLost):
			writeError(w, http.StatusInternalServerError, "We could not process your message. Please try again or email us directly.")
		default:
			logging.Ctx(r.Context()).Error().Err(err).Msg("contact submission failed")
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, contactResponse{
		Success: true,
		Message: "Thank you for your message. We'll get back to you soon.",
		ID:      res.ID,
	})
}

type uploadRequest struct {
	FileName   string `json:"fileName" validate:"required,max=255"`
	FileSize   int64  `json:"fileSize"`
	MimeType   string `json:"mimeType" validate:"required"`
	SenderName string `json:"senderName" validate:"max=100"`
}

type uploadResponse struct {
	Success bool `json:"success"`
	*storage.PresignedUpload
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !decodeBody(w, r, 64<<10, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		metrics.UploadRejections.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.First().Message, Fields: verr.Fields})
		return
	}
	if err := storage.CheckUpload(req.FileName, req.MimeType, req.FileSize); err != nil {
		metrics.UploadRejections.WithLabelValues(rejectionReason(err)).Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.Presigner == nil {
		writeError(w, http.StatusServiceUnavailable, "File uploads are not available")
		return
	}

	key := s.deps.Keys.AttachmentKey(req.SenderName, req.FileName)
	up, err := s.deps.Presigner.PresignPut(r.Context(), key, req.MimeType, req.FileSize)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("key", key).Msg("failed to presign upload")
		writeError(w, http.StatusInternalServerError, "Could not prepare the upload")
		return
	}

	metrics.UploadTokensIssued.Inc()
	writeJSON(w, http.StatusOK, uploadResponse{Success: true, PresignedUpload: up})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, storage.ErrEmptyFile):
		return "empty"
	case errors.Is(err, storage.ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, storage.ErrUnsupportedMIMEType):
		return "mime_type"
	case errors.Is(err, storage.ErrExtensionMismatch):
		return "extension"
	default:
		return "other"
	}
}

// decodeBody reads a size-limited JSON body into v, writing the error
// response itself when it fails.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
