package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockDriver implements StorageDriver for testing
type MockDriver struct {
	SavedKey       string
	SavedBody      []byte
	SavedType      string
	GenerateURLErr error
	GetErr         error
	DeleteCalled   bool
	DeleteKey      string
}

func (m *MockDriver) Save(ctx context.Context, key string, body io.Reader, contentType string) error {
	m.SavedKey = key
	m.SavedType = contentType
	content, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.SavedBody = content
	return nil
}

func (m *MockDriver) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if m.GetErr != nil {
		return nil, "", m.GetErr
	}
	return io.NopCloser(bytes.NewReader(m.SavedBody)), "application/pdf", nil
}

func (m *MockDriver) Delete(ctx context.Context, key string) error {
	m.DeleteCalled = true
	m.DeleteKey = key
	return nil
}

func (m *MockDriver) GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if m.GenerateURLErr != nil {
		return "", m.GenerateURLErr
	}
	return "/test/" + key, nil
}

var pdfContent = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

func TestUploadService(t *testing.T) {
	mock := &MockDriver{}
	service := NewUploadService(mock)

	stored, err := service.Upload(context.Background(), "Passport.PDF", bytes.NewReader(pdfContent), "")
	require.NoError(t, err)

	assert.Equal(t, "Passport.PDF", stored.Name)
	assert.Equal(t, "application/pdf", stored.MimeType)
	assert.Equal(t, "application/pdf", mock.SavedType)
	assert.Equal(t, int64(len(pdfContent)), stored.Size)
	assert.Equal(t, pdfContent, mock.SavedBody)
	assert.True(t, strings.HasSuffix(stored.Key, ".pdf"))
	assert.Equal(t, "/test/"+mock.SavedKey, stored.URL)
}

func TestUploadService_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		mime    string
		wantErr error
	}{
		{"empty", nil, "application/pdf", ErrEmptyFile},
		{"plain text", []byte("just some notes"), "text/plain", ErrUnsupportedType},
		{"text declared as pdf", []byte("just some notes"), "application/pdf", ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockDriver{}
			_, err := NewUploadService(mock).Upload(context.Background(), "f", bytes.NewReader(tt.content), tt.mime)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Empty(t, mock.SavedKey)
		})
	}
}

func TestUploadService_TooLarge(t *testing.T) {
	mock := &MockDriver{}
	big := append(append([]byte{}, pdfContent...), bytes.Repeat([]byte("a"), int(MaxFileSize))...)

	_, err := NewUploadService(mock).Upload(context.Background(), "big.pdf", bytes.NewReader(big), "")
	assert.True(t, errors.Is(err, ErrFileTooLarge))
	assert.True(t, mock.DeleteCalled)
	assert.Equal(t, mock.SavedKey, mock.DeleteKey)
}

func TestUploadService_GenerateURLFailure(t *testing.T) {
	mock := &MockDriver{GenerateURLErr: io.ErrUnexpectedEOF}

	_, err := NewUploadService(mock).Upload(context.Background(), "scan.pdf", bytes.NewReader(pdfContent), "")
	require.Error(t, err)
	assert.True(t, mock.DeleteCalled, "expected orphaned file cleanup")
	assert.Equal(t, mock.SavedKey, mock.DeleteKey)
}

func TestHTTPHandler_Download(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mock := &MockDriver{SavedBody: pdfContent}
	r := gin.New()
	r.GET("/api/documents/:key", NewHTTPHandler(NewUploadService(mock)).Download)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents/abc.pdf", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, pdfContent, w.Body.Bytes())

	mock.GetErr = ErrNotFound
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents/missing.pdf", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
