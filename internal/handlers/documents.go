package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/types"
	"go.uber.org/zap"
)

const (
	formFieldFile = "file"
	formFieldName = "name"

	maxMultipartMemory = 8 << 20
	multipartOverhead  = 1 << 20
)

// DocumentHandler serves uploaded club documents.
type DocumentHandler struct {
	documentService *services.DocumentService
	logger          *zap.Logger
}

func NewDocumentHandler(documentService *services.DocumentService, logger *zap.Logger) *DocumentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentHandler{documentService: documentService, logger: logger}
}

// DocumentRouter registers the document API. It is mounted at both
// /api/files and /api/upload.
func DocumentRouter(r chi.Router, documentService *services.DocumentService, gate *Gate, logger *zap.Logger) {
	handler := NewDocumentHandler(documentService, logger)

	staff := gate.RequireAdminOrCommittee()

	r.With(staff).Post("/", handler.Upload)
	r.With(staff).Post("/upload", handler.Upload)
	r.With(gate.RequireAuth()).Get("/list", handler.List)
	r.With(staff).Delete("/{filename}", handler.Delete)
}

// DownloadRouter registers the public download path.
func DownloadRouter(r chi.Router, documentService *services.DocumentService, logger *zap.Logger) {
	handler := NewDocumentHandler(documentService, logger)
	r.Get("/{filename}", handler.Download)
}

// Upload stores one multipart "file", optionally renamed by the "name" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxDocumentSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			badRequest(w, errors.New("file too large"))
			return
		}
		badRequest(w, errors.New("invalid multipart form"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	files := r.MultipartForm.File[formFieldFile]
	if len(files) == 0 {
		badRequest(w, errors.New("no file uploaded"))
		return
	}
	header := files[0]
	if header.Size > services.MaxDocumentSize {
		badRequest(w, errors.New("file too large"))
		return
	}

	file, err := header.Open()
	if err != nil {
		badRequest(w, errors.New("failed to read uploaded file"))
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, services.MaxDocumentSize+1))
	_ = file.Close()
	if err != nil {
		badRequest(w, errors.New("failed to read uploaded file"))
		return
	}

	doc, err := h.documentService.Upload(r.Context(), services.Upload{
		OriginalName: header.Filename,
		DisplayName:  r.FormValue(formFieldName),
		ContentType:  header.Header.Get("Content-Type"),
		Data:         data,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	doc.URL = absoluteURL(r, doc.Path)
	h.logger.Info("document uploaded", zap.String("filename", doc.Filename), zap.Int64("size", doc.Size))
	writeJSON(w, http.StatusOK, UploadResponse{Message: "upload success", Document: doc})
}

// List returns documents newest first.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documentService.List(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	for i := range docs {
		docs[i].URL = absoluteURL(r, docs[i].Path)
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Files: docs})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil {
		badRequest(w, errors.New("invalid filename"))
		return
	}

	deleted, err := h.documentService.Delete(r.Context(), name)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteDocumentResponse{Message: "delete success", Filename: deleted})
}

// Download streams a stored document.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil {
		badRequest(w, errors.New("invalid filename"))
		return
	}

	body, doc, err := h.documentService.Open(r.Context(), name)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	if doc.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	}
	if !doc.ModTime.IsZero() {
		w.Header().Set("Last-Modified", doc.ModTime.UTC().Format(http.TimeFormat))
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("document download interrupted", zap.String("filename", doc.Filename), zap.Error(err))
	}
}

func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	if r.Host == "" {
		return ""
	}
	return scheme + "://" + r.Host + path
}

type UploadResponse struct {
	Message string `json:"message"`
	types.Document
}

type DocumentListResponse struct {
	Files []types.Document `json:"files"`
}

type DeleteDocumentResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}
