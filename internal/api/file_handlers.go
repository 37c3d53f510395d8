package api

import (
	"cloud-doc/internal/namespace"
	"cloud-doc/internal/storage"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	ownURLTTL    = 15 * time.Minute
	sharedURLTTL = 1440 * time.Minute

	modifiedLayout  = "2006-01-02 15:04:05"
	maxMemoryUpload = 32 << 20
)

type UploadResponse struct {
	Message  string `json:"message" example:"File uploaded successfully as report(1).pdf"`
	Filename string `json:"filename" example:"report(1).pdf"`
}

type FileEntry struct {
	Name     string  `json:"name" example:"report.pdf"`
	Owner    string  `json:"owner" example:"alice@example.com"`
	Shared   bool    `json:"shared" example:"false"`
	Size     float64 `json:"size" example:"12.34"`
	Modified string  `json:"modified" example:"2025-05-21 14:03:11"`
	URL      string  `json:"url"`
}

type FileListResponse struct {
	Files []FileEntry `json:"files"`
}

// fileParam returns the named path parameter, unescaped when the router
// matched against the raw path.
func fileParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}

// @Summary      Upload a file
// @Description  Stores the file in the caller's folder. The name is sanitized and suffixed with (n) when it is already taken.
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "File to upload"
// @Success      200   {object}  UploadResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /upload [post]
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if limit := s.config.Server.MaxUploadBytes; limit > 0 {
		if r.ContentLength > limit {
			writeError(w, http.StatusBadRequest, "File too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	if err := r.ParseMultipartForm(maxMemoryUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		// a part without a filename is parsed as a plain value
		if _, ok := r.MultipartForm.Value["file"]; ok {
			writeError(w, http.StatusBadRequest, "No selected file")
			return
		}
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No selected file")
		return
	}

	filename := storage.SecureFilename(header.Filename)
	if filename == "" {
		writeError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	prefix := namespace.Prefix(user.Email)
	finalName, err := storage.UniqueName(r.Context(), s.storage.Exists, prefix, filename)
	if err != nil {
		s.internalError(w, r, "Failed to upload file", err)
		return
	}

	if err := s.storage.Upload(r.Context(), prefix+finalName, file); err != nil {
		s.internalError(w, r, "Failed to upload file", err)
		return
	}
	uploadsTotal.Inc()

	writeJSON(w, http.StatusOK, UploadResponse{
		Message:  fmt.Sprintf("File uploaded successfully as %s", finalName),
		Filename: finalName,
	})
}

// @Summary      Preview link for a file
// @Description  Returns a 15 minute signed URL. PDFs and PNG, JPEG and WebP images open inline, everything else downloads.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        filename  path      string  true  "File name inside the caller's folder"
// @Success      200       {object}  URLResponse
// @Failure      401       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Failure      500       {object}  ErrorResponse
// @Router       /preview/{filename} [get]
func (s *Server) PreviewFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	filename := fileParam(r, "*")

	object, ok := s.requireObject(w, r, user.Email, filename, "Failed to generate preview link")
	if !ok {
		return
	}

	signedURL, err := s.storage.SignedURL(r.Context(), object, storage.SignOptions{
		Method:             http.MethodGet,
		TTL:                ownURLTTL,
		ContentDisposition: storage.PreviewDisposition(filename),
		ContentType:        storage.ContentType(filename),
	})
	if err != nil {
		s.internalError(w, r, "Failed to generate preview link", err)
		return
	}
	signedURLs.WithLabelValues("preview").Inc()

	writeJSON(w, http.StatusOK, URLResponse{URL: signedURL})
}

// @Summary      Download link for a file
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        filename  path      string  true  "File name inside the caller's folder"
// @Success      200       {object}  URLResponse
// @Failure      401       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Failure      500       {object}  ErrorResponse
// @Router       /download/{filename} [get]
func (s *Server) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	filename := fileParam(r, "filename")

	object, ok := s.requireObject(w, r, user.Email, filename, "Failed to generate download link")
	if !ok {
		return
	}

	signedURL, err := s.storage.SignedURL(r.Context(), object, storage.GetURL(ownURLTTL))
	if err != nil {
		s.internalError(w, r, "Failed to generate download link", err)
		return
	}
	signedURLs.WithLabelValues("download").Inc()

	writeJSON(w, http.StatusOK, URLResponse{URL: signedURL})
}

// @Summary      List files
// @Description  Lists the caller's files followed by the files of every user sharing their folder with the caller. Each entry carries a signed GET URL.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  FileListResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /files [get]
func (s *Server) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	files, err := s.listFolder(r.Context(), user.Email, false, ownURLTTL)
	if err != nil {
		s.internalError(w, r, "Failed to list files", err)
		return
	}

	owners, err := s.store.ListOwnersSharingWith(r.Context(), user.Email)
	if err != nil {
		s.internalError(w, r, "Failed to list files", err)
		return
	}

	for _, owner := range owners {
		shared, err := s.listFolder(r.Context(), owner, true, sharedURLTTL)
		if err != nil {
			s.internalError(w, r, "Failed to list files", err)
			return
		}
		files = append(files, shared...)
	}

	writeJSON(w, http.StatusOK, FileListResponse{Files: files})
}

func (s *Server) listFolder(ctx context.Context, owner string, shared bool, ttl time.Duration) ([]FileEntry, error) {
	prefix := namespace.Prefix(owner)

	objects, err := s.storage.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", owner, err)
	}

	kind := "list_own"
	if shared {
		kind = "list_shared"
	}

	entries := make([]FileEntry, 0, len(objects))
	for _, obj := range objects {
		signedURL, err := s.storage.SignedURL(ctx, obj.Name, storage.GetURL(ttl))
		if err != nil {
			return nil, fmt.Errorf("sign %s: %w", obj.Name, err)
		}
		signedURLs.WithLabelValues(kind).Inc()

		entries = append(entries, FileEntry{
			Name:     namespace.Relative(prefix, obj.Name),
			Owner:    owner,
			Shared:   shared,
			Size:     sizeKB(obj.Size),
			Modified: obj.Updated.UTC().Format(modifiedLayout),
			URL:      signedURL,
		})
	}

	return entries, nil
}

func sizeKB(bytes int64) float64 {
	return math.Round(float64(bytes)/1024*100) / 100
}

// @Summary      Delete a file
// @Description  Deletes a file from the caller's own folder. Shared files cannot be deleted by viewers.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        filename  path      string  true  "File name inside the caller's folder"
// @Success      200       {object}  MessageResponse
// @Failure      401       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Failure      500       {object}  ErrorResponse
// @Router       /files/{filename} [delete]
func (s *Server) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	filename := fileParam(r, "filename")

	object, ok := s.requireObject(w, r, user.Email, filename, "Failed to delete file")
	if !ok {
		return
	}

	if err := s.storage.Delete(r.Context(), object); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		s.internalError(w, r, "Failed to delete file", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("File %s deleted successfully", filename),
	})
}

// requireObject resolves filename inside the caller's folder and answers 404
// when it does not exist.
func (s *Server) requireObject(w http.ResponseWriter, r *http.Request, email, filename, failure string) (string, bool) {
	if filename == "" {
		writeError(w, http.StatusNotFound, "File not found")
		return "", false
	}

	object := namespace.Object(email, filename)
	exists, err := s.storage.Exists(r.Context(), object)
	if err != nil {
		s.internalError(w, r, failure, err)
		return "", false
	}
	if !exists {
		writeError(w, http.StatusNotFound, "File not found")
		return "", false
	}

	return object, true
}
