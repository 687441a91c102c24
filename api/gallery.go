package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"musa/models"
)

func (c *Client) FetchGallery(ctx context.Context, caller Caller) ([]models.GalleryImage, error) {
	var resp struct {
		Envelope
		Images []models.GalleryImage `json:"images"`
	}
	err := c.getJSON(ctx, caller, Public, "/gallery", &resp)
	return resp.Images, err
}

// UploadGallery posts one image under the galleryImage form field.
func (c *Client) UploadGallery(ctx context.Context, caller Caller, img Upload) (models.GalleryImage, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := writeFile(w, "galleryImage", img); err != nil {
		return models.GalleryImage{}, fmt.Errorf("encode gallery upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return models.GalleryImage{}, fmt.Errorf("encode gallery upload: %w", err)
	}
	var resp struct {
		Envelope
		Image *models.GalleryImage `json:"image"`
	}
	err := c.send(ctx, caller, request{
		capability:  Admin,
		method:      http.MethodPost,
		path:        "/gallery/upload",
		body:        buf,
		contentType: w.FormDataContentType(),
	}, &resp)
	if err != nil || resp.Image == nil {
		return models.GalleryImage{}, err
	}
	return *resp.Image, nil
}
