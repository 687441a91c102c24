package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musa/api"
	"musa/globals"
	"musa/models"
)

var admin = models.Session{ID: "a", AdminToken: "admin-tok", Role: "admin"}

func pngBytes(t *testing.T, w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.NRGBA{R: 250, G: 220, B: 40, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type received struct {
	filename    string
	contentType string
	width       int
	auth        string
}

func upstream(t *testing.T) (*api.Client, *received) {
	got := &received{}
	router := httprouter.New()
	router.POST("/gallery/upload", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		got.auth = r.Header.Get("Authorization")
		if f, fh, err := r.FormFile("galleryImage"); err == nil {
			got.filename = fh.Filename
			got.contentType = fh.Header.Get("Content-Type")
			data, _ := io.ReadAll(f)
			if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
				got.width = img.Bounds().Dx()
			}
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "image": map[string]any{"id": 12, "image_url": "/uploads/gallery/12.jpg"}})
	})
	router.GET("/gallery", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "images": []map[string]any{
			{"id": 12, "image_url": "/uploads/gallery/12.jpg"},
			{"id": 13, "image_url": "/uploads/gallery/13.jpg"},
		}})
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	c, err := api.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)
	return c, got
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/gallery", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(context.WithValue(req.Context(), globals.SessionKey, admin))
}

func TestUploadNormalizesAndThumbnails(t *testing.T) {
	c, got := upstream(t)
	h := &Handler{API: c, Dir: t.TempDir()}

	rec := httptest.NewRecorder()
	UploadGallery(h)(rec, uploadRequest(t, "galleryImage", "harvest.png", pngBytes(t, 2400, 1200)), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, "Bearer admin-tok", got.auth)
	assert.Equal(t, "harvest.jpg", got.filename)
	assert.Equal(t, "image/jpeg", got.contentType)
	assert.Equal(t, maxWidth, got.width)

	thumb, err := imaging.Open(filepath.Join(h.Dir, "12.jpg"))
	require.NoError(t, err)
	assert.Equal(t, thumbWidth, thumb.Bounds().Dx())
	assert.Contains(t, rec.Body.String(), `"thumbnail":"/static/gallery/12.jpg"`)
}

func TestUploadKeepsSmallImages(t *testing.T) {
	c, got := upstream(t)
	h := &Handler{API: c, Dir: t.TempDir()}

	rec := httptest.NewRecorder()
	UploadGallery(h)(rec, uploadRequest(t, "galleryImage", "crate.png", pngBytes(t, 640, 480)), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 640, got.width)
}

func TestUploadRejectsBadInput(t *testing.T) {
	c, _ := upstream(t)
	h := &Handler{API: c, Dir: t.TempDir()}

	rec := httptest.NewRecorder()
	UploadGallery(h)(rec, uploadRequest(t, "galleryImage", "notes.txt", []byte("not an image")), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	UploadGallery(h)(rec, uploadRequest(t, "photo", "crate.png", pngBytes(t, 10, 10)), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetGalleryAttachesLocalThumbnails(t *testing.T) {
	c, _ := upstream(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "12.jpg"), []byte("x"), 0o644))
	h := &Handler{API: c, Dir: dir}

	req := httptest.NewRequest(http.MethodGet, "/api/gallery", nil)
	rec := httptest.NewRecorder()
	GetGallery(h)(rec, req, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Images []models.GalleryImage `json:"images"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Images, 2)
	assert.Equal(t, "/static/gallery/12.jpg", body.Images[0].Thumbnail)
	assert.Empty(t, body.Images[1].Thumbnail)
}
