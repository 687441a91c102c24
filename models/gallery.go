package models

type GalleryImage struct {
	ID        int    `json:"id"`
	ImageURL  string `json:"image_url"`
	Thumbnail string `json:"thumbnail,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}
