package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/biolens/auth-api/internal/application/face"
	"github.com/biolens/auth-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// 10 MiB cap per capture.
const maxFaceUploadBytes = 10 << 20

// FaceHandler handles biometric face-capture endpoints.
type FaceHandler struct {
	svc face.Service
}

func NewFaceHandler(svc face.Service) *FaceHandler { return &FaceHandler{svc: svc} }

func (h *FaceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFaceUploadBytes)
	if err := r.ParseMultipartForm(maxFaceUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	f, err := h.svc.Upload(r.Context(), face.UploadInput{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		FaceType:    r.FormValue("face_type"),
		UserID:      userID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FaceUploadResponse{
		Success:  true,
		FaceID:   f.FaceID,
		FaceType: f.FaceType,
		Object:   f.Object,
	})
}

func (h *FaceHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	body, f, err := h.svc.Download(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer body.Close()

	contentType := f.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("face download interrupted", "face_id", f.FaceID, "error", err)
	}
}

func (h *FaceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	faces, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, faces)
}
