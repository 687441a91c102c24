// Package gallery lists the public photo gallery and takes admin uploads.
// Uploads are normalized to a bounded JPEG before they are forwarded, and
// a thumbnail is kept on local disk.
package gallery

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"musa/api"
	"musa/session"
	"musa/utils"
)

const (
	maxUploadBytes = 20 << 20
	formField      = "galleryImage"
	// URLPrefix is where Dir is served.
	URLPrefix = "/static/gallery/"
)

type Handler struct {
	API *api.Client
	Dir string
}

func thumbName(id int) string {
	return strconv.Itoa(id) + ".jpg"
}

// thumbnailURL is set only when a thumbnail for id exists on disk.
func (h *Handler) thumbnailURL(id int) string {
	if id <= 0 || h.Dir == "" {
		return ""
	}
	if _, err := os.Stat(filepath.Join(h.Dir, thumbName(id))); err != nil {
		return ""
	}
	return URLPrefix + thumbName(id)
}

func GetGallery(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sess := session.FromContext(r.Context())
		images, err := h.API.FetchGallery(r.Context(), session.Caller(sess))
		if err != nil {
			utils.RespondWithAPIError(w, err, "Failed to load gallery")
			return
		}
		for i := range images {
			if images[i].Thumbnail == "" {
				images[i].Thumbnail = h.thumbnailURL(images[i].ID)
			}
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "images": images})
	}
}

func UploadGallery(h *Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid upload")
			return
		}
		file, fh, err := r.FormFile(formField)
		if errors.Is(err, http.ErrMissingFile) {
			utils.RespondWithError(w, http.StatusBadRequest, "Please choose an image")
			return
		} else if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid upload")
			return
		}
		defer file.Close()

		img, err := normalize(file)
		if err != nil {
			log.Printf("gallery upload %q: %v", fh.Filename, err)
			utils.RespondWithError(w, http.StatusBadRequest, "File is not a supported image")
			return
		}
		data, err := encodeJPEG(img)
		if err != nil {
			log.Printf("gallery upload %q: %v", fh.Filename, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to process image")
			return
		}

		name := strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename)) + ".jpg"
		sess := session.FromContext(r.Context())
		uploaded, err := h.API.UploadGallery(r.Context(), session.Caller(sess), api.Upload{
			Filename:    name,
			ContentType: "image/jpeg",
			Data:        data,
		})
		if err != nil {
			utils.RespondWithAPIError(w, err, "Upload failed")
			return
		}

		if uploaded.ID > 0 && h.Dir != "" {
			if err := saveThumbnail(img, h.Dir, thumbName(uploaded.ID)); err != nil {
				log.Printf("gallery thumbnail: %v", err)
			} else {
				uploaded.Thumbnail = URLPrefix + thumbName(uploaded.ID)
			}
		}
		utils.RespondWithJSON(w, http.StatusCreated, utils.M{
			"success": true,
			"message": "Image uploaded successfully!",
			"image":   uploaded,
		})
	}
}
