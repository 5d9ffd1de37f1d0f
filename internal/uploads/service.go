package uploads

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxFileSize is the largest accepted document.
const MaxFileSize int64 = 10 << 20

var (
	ErrFileTooLarge    = errors.New("file exceeds the 10MB limit")
	ErrUnsupportedType = errors.New("only PDF, JPG and PNG files are accepted")
	ErrEmptyFile       = errors.New("file is empty")
)

var allowedTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// UploadService validates documents and writes them through a StorageDriver.
type UploadService struct {
	Driver StorageDriver
}

func NewUploadService(driver StorageDriver) *UploadService {
	return &UploadService{Driver: driver}
}

// Upload sniffs and validates the content, saves it under a fresh key and
// returns where it went. The declared mime type is only a fallback.
func (s *UploadService) Upload(ctx context.Context, filename string, reader io.Reader, declaredMime string) (*StoredFile, error) {
	buffered := bufio.NewReaderSize(reader, 512)
	head, err := buffered.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrEmptyFile
	}

	mime := detectMime(head, declaredMime)
	if !allowedTypes[mime] {
		return nil, fmt.Errorf("%w (got %s)", ErrUnsupportedType, mime)
	}

	id := uuid.New()
	key := id.String() + strings.ToLower(filepath.Ext(filename))

	counter := &countingReader{r: io.LimitReader(buffered, MaxFileSize+1)}
	if err := s.Driver.Save(ctx, key, counter, mime); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}
	if counter.n > MaxFileSize {
		s.cleanup(ctx, key)
		return nil, ErrFileTooLarge
	}

	url, err := s.Driver.GenerateURL(ctx, key, 0)
	if err != nil {
		s.cleanup(ctx, key)
		return nil, fmt.Errorf("failed to generate URL: %w", err)
	}

	stored := &StoredFile{
		ID:       id,
		Name:     filepath.Base(filename),
		Key:      key,
		URL:      url,
		Size:     counter.n,
		MimeType: mime,
	}

	slog.InfoContext(ctx, "file uploaded successfully", "id", id, "key", key, "size", counter.n)
	return stored, nil
}

// Download retrieves the file content and its MIME type
func (s *UploadService) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.Driver.Get(ctx, key)
}

// Delete removes a stored file.
func (s *UploadService) Delete(ctx context.Context, key string) error {
	return s.Driver.Delete(ctx, key)
}

func (s *UploadService) cleanup(ctx context.Context, key string) {
	if err := s.Driver.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to cleanup orphaned file", "key", key, "error", err)
	}
}

func detectMime(head []byte, declared string) string {
	sniffed := http.DetectContentType(head)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	if sniffed != "application/octet-stream" {
		return sniffed
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "" {
		return sniffed
	}
	return declared
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
