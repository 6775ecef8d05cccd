package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/musicclub/apiserver/internal/storage"
	"github.com/musicclub/apiserver/internal/store"
	"github.com/musicclub/apiserver/types"
	"github.com/segmentio/ksuid"
)

const (
	// MaxDocumentSize is the largest accepted upload.
	MaxDocumentSize = 5 << 20

	documentPrefix = "uploads/"
	// DocumentPathPrefix is the public path documents are served from.
	DocumentPathPrefix = "/uploads/"

	maxUniqueAttempts = 100
)

var (
	allowedDocumentExts = map[string]string{
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".gif":  "image/gif",
		".webp": "image/webp",
		".svg":  "image/svg+xml",
		".pdf":  "application/pdf",
	}

	unsafeNameChars = regexp.MustCompile(`[/\\?%*:|"<>]`)
	spaceRuns       = regexp.MustCompile(`\s+`)
)

// ObjectStore is the slice of object storage documents need.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (storage.ObjectInfo, error)
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// Upload is one file submitted for storage.
type Upload struct {
	// OriginalName is the client-side file name; only its extension is kept.
	OriginalName string
	// DisplayName optionally renames the stored file.
	DisplayName string
	ContentType string
	Data        []byte
}

// DocumentService stores club documents (images and PDFs) in object storage.
type DocumentService struct {
	objects ObjectStore
}

func NewDocumentService(objects ObjectStore) *DocumentService {
	return &DocumentService{objects: objects}
}

// Upload validates and stores the file, returning its stored name.
// Without a display name the file gets a random sortable name.
func (s *DocumentService) Upload(ctx context.Context, up Upload) (types.Document, error) {
	if len(up.Data) == 0 {
		return types.Document{}, invalidInput("no file uploaded")
	}
	if len(up.Data) > MaxDocumentSize {
		return types.Document{}, invalidInput("file exceeds %d bytes", MaxDocumentSize)
	}

	ext := strings.ToLower(path.Ext(up.OriginalName))
	canonical, ok := allowedDocumentExts[ext]
	if !ok {
		return types.Document{}, invalidInput("only images or PDF are allowed (jpg, png, gif, webp, svg, pdf)")
	}
	contentType := documentContentType(up.ContentType, up.Data, canonical)
	if !strings.HasPrefix(contentType, "image/") && contentType != "application/pdf" {
		return types.Document{}, invalidInput("only images or PDF are allowed")
	}

	filename, err := s.pickName(ctx, SanitizeDocumentName(up.DisplayName), ext)
	if err != nil {
		return types.Document{}, err
	}

	if err := s.objects.Put(ctx, documentPrefix+filename, bytes.NewReader(up.Data), int64(len(up.Data)), contentType); err != nil {
		return types.Document{}, fmt.Errorf("store %s: %w", filename, err)
	}

	info, err := s.objects.Stat(ctx, documentPrefix+filename)
	if err != nil {
		return types.Document{}, fmt.Errorf("stat %s: %w", filename, err)
	}
	if info.ContentType == "" {
		info.ContentType = contentType
	}
	return toDocument(filename, info), nil
}

// List returns every document, most recently modified first.
func (s *DocumentService) List(ctx context.Context) ([]types.Document, error) {
	objects, err := s.objects.List(ctx, documentPrefix)
	if err != nil {
		return nil, err
	}

	docs := make([]types.Document, 0, len(objects))
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, documentPrefix)
		if name == "" || strings.HasPrefix(name, ".") || strings.Contains(name, "/") {
			continue
		}
		if obj.ContentType == "" {
			obj.ContentType = typeFromExt(name)
		}
		docs = append(docs, toDocument(name, obj))
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].ModTime.After(docs[j].ModTime)
	})
	return docs, nil
}

// Open returns the stored file and its metadata. The caller closes the reader.
func (s *DocumentService) Open(ctx context.Context, filename string) (io.ReadCloser, types.Document, error) {
	name, err := documentName(filename)
	if err != nil {
		return nil, types.Document{}, err
	}
	info, err := s.objects.Stat(ctx, documentPrefix+name)
	if err != nil {
		return nil, types.Document{}, documentError(name, err)
	}
	body, err := s.objects.Get(ctx, documentPrefix+name)
	if err != nil {
		return nil, types.Document{}, documentError(name, err)
	}
	if info.ContentType == "" {
		info.ContentType = typeFromExt(name)
	}
	return body, toDocument(name, info), nil
}

// Delete removes a stored file.
func (s *DocumentService) Delete(ctx context.Context, filename string) (string, error) {
	name, err := documentName(filename)
	if err != nil {
		return "", err
	}
	if _, err := s.objects.Stat(ctx, documentPrefix+name); err != nil {
		return "", documentError(name, err)
	}
	if err := s.objects.Delete(ctx, documentPrefix+name); err != nil {
		return "", err
	}
	return name, nil
}

// SanitizeDocumentName strips characters that are unsafe in file names,
// collapses whitespace and drops trailing dots.
func SanitizeDocumentName(name string) string {
	name = strings.TrimSpace(name)
	name = unsafeNameChars.ReplaceAllString(name, "-")
	name = spaceRuns.ReplaceAllString(name, " ")
	name = strings.TrimRight(name, ".")
	return strings.TrimSpace(name)
}

func (s *DocumentService) pickName(ctx context.Context, base, ext string) (string, error) {
	if base == "" {
		return ksuid.New().String() + ext, nil
	}
	candidate := base + ext
	for i := 1; i <= maxUniqueAttempts; i++ {
		_, err := s.objects.Stat(ctx, documentPrefix+candidate)
		if errors.Is(err, storage.ErrObjectNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	return "", conflict("too many files named %q", base+ext)
}

func documentName(raw string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", invalidInput("invalid filename")
	}
	return name, nil
}

func documentError(name string, err error) error {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("file %s: %w", name, store.ErrNotFound)
	}
	return err
}

func documentContentType(declared string, data []byte, fallback string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if sniffed := http.DetectContentType(data); sniffed != "application/octet-stream" && !strings.HasPrefix(sniffed, "text/") {
		if i := strings.Index(sniffed, ";"); i >= 0 {
			sniffed = sniffed[:i]
		}
		return sniffed
	}
	return fallback
}

func typeFromExt(name string) string {
	if t, ok := allowedDocumentExts[strings.ToLower(path.Ext(name))]; ok {
		return t
	}
	return "application/octet-stream"
}

func toDocument(name string, info storage.ObjectInfo) types.Document {
	return types.Document{
		Filename:    name,
		Path:        DocumentPathPrefix + name,
		ContentType: info.ContentType,
		Size:        info.Size,
		ModTime:     info.LastModified,
	}
}
