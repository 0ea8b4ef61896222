package uploads

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	service, err := NewService(Config{
		Dir:          t.TempDir(),
		MaxSizeBytes: 1 << 20,
	})
	require.NoError(t, err)
	return service
}

func TestSave_StoresFileWithUniqueName(t *testing.T) {
	// Arrange
	service := newTestService(t)

	// Act
	name, err := service.Save("portrait.JPG", strings.NewReader("image-bytes"))

	// Assert
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "file-"))
	assert.True(t, strings.HasSuffix(name, ".jpg"), "extension is kept, lowercased: %s", name)

	data, err := os.ReadFile(filepath.Join(service.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestSave_NamesNeverCollide(t *testing.T) {
	// Arrange
	service := newTestService(t)

	// Act
	first, err := service.Save("sig.png", strings.NewReader("a"))
	require.NoError(t, err)
	second, err := service.Save("sig.png", strings.NewReader("b"))
	require.NoError(t, err)

	// Assert — same original name, two distinct stored files
	assert.NotEqual(t, first, second)
}

func TestSave_DiscardsOriginalBaseName(t *testing.T) {
	// Arrange — hostile names must not escape the storage directory.
	service := newTestService(t)

	// Act
	name, err := service.Save("../../etc/passwd", strings.NewReader("x"))

	// Assert
	require.NoError(t, err)
	assert.NotContains(t, name, "..")
	assert.NotContains(t, name, "/")
	assert.FileExists(t, filepath.Join(service.Dir(), name))
}

func multipartBody(t *testing.T, fieldName, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func newTestRouter(service *Service) chi.Router {
	handler := NewHandler(service)

	r := chi.NewRouter()
	handler.RegisterProtectedRoutes(r)
	r.Mount("/uploads/", handler.FileServer())
	return r
}

func TestUpload_ReturnsServableFilePath(t *testing.T) {
	// Arrange
	service := newTestService(t)
	router := newTestRouter(service)

	body, contentType := multipartBody(t, "file", "portrait.jpg", "image-bytes")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"filePath":"/uploads/file-`)

	// The returned path is immediately fetchable.
	var envelope struct {
		Data UploadResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	getReq := httptest.NewRequest(http.MethodGet, envelope.Data.FilePath, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)

	assert.Equal(t, http.StatusOK, getRec.Code)
	assert.Equal(t, "image-bytes", getRec.Body.String())
}

func TestUpload_MissingFilePart(t *testing.T) {
	// Arrange
	router := newTestRouter(newTestService(t))

	body, contentType := multipartBody(t, "wrong-field", "portrait.jpg", "x")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file uploaded")
}

func TestUpload_RejectsOversizedFile(t *testing.T) {
	// Arrange — limit far below the payload
	service, err := NewService(Config{Dir: t.TempDir(), MaxSizeBytes: 128})
	require.NoError(t, err)
	router := newTestRouter(service)

	body, contentType := multipartBody(t, "file", "huge.bin", strings.Repeat("x", 4096))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	// Act
	router.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
