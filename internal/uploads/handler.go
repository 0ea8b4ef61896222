package uploads

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rosterhub/roster/internal/pkg/ctxlog"
	"github.com/rosterhub/roster/internal/pkg/httputil"
)

// Handler handles file upload requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new uploads handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes registers upload routes. Uploading requires
// authentication; the stored files themselves are served publicly.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/upload", h.Upload)
}

// UploadResponse is the response body for a stored file.
type UploadResponse struct {
	FilePath string `json:"filePath"`
}

// Upload handles POST /upload. Expects a multipart form with a single
// "file" part.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.service.MaxSizeBytes())

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		httputil.Error(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	name, err := h.service.Save(header.Filename, file)
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("store upload", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httputil.Success(w, http.StatusOK, UploadResponse{
		FilePath: "/uploads/" + name,
	})
}

// FileServer returns a handler serving stored files. Mounted at
// /uploads/ by the router.
func (h *Handler) FileServer() http.Handler {
	return http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.service.Dir())))
}
