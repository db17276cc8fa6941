package models

import "time"

// MaxUploadBytes bounds photo uploads to 10 MiB.
const MaxUploadBytes = 10 << 20

// AllowedImageTypes is the upload content-type allow-list.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// Upload is the metadata row recorded for every stored photo.
type Upload struct {
	ID          string
	FileURL     string
	FileSize    int64
	ContentType string
	Fingerprint string
	UserID      *string
	CreatedAt   time.Time
}
