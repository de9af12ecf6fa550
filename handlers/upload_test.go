package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"
)

func multipartUploadBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("source", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	h := newTestHandlers(t)
	router := httprouter.New()
	router.POST("/upload", h.Upload())

	body, contentType := multipartUploadBody(t, "clip.txt", []byte("not a video"))
	req, _ := http.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestUploadRejectsOversizedSource(t *testing.T) {
	h := newTestHandlers(t)
	h.Config.MaxSourceSizeBytes = 4
	router := httprouter.New()
	router.POST("/upload", h.Upload())

	body, contentType := multipartUploadBody(t, "clip.mp4", []byte("way more than four bytes"))
	req, _ := http.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestUploadRejectsMissingFormFile(t *testing.T) {
	h := newTestHandlers(t)
	router := httprouter.New()
	router.POST("/upload", h.Upload())

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())

	req, _ := http.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}
