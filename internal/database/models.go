package database

import "time"

// Asset is one persisted image: two storage keys, the stored original's
// dimensions and size, caller-supplied descriptive fields, and whatever
// camera metadata extraction yielded.
//
// Width and Height always describe the stored original derivative, not
// the caller's source image. Tags keep caller order and may contain
// duplicates; the order matters for display only.
type Asset struct {
	ID               int64     `json:"id"`
	OriginalKey      string    `json:"originalKey"`
	ThumbnailKey     string    `json:"thumbnailKey"`
	ContentType      string    `json:"contentType"`
	ByteSize         int64     `json:"byteSize"`
	Width            int       `json:"width"`
	Height           int       `json:"height"`
	Folder           string    `json:"folder"`
	Description      string    `json:"description,omitempty"`
	AltText          string    `json:"altText,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	OwnerPrincipalID string    `json:"ownerPrincipalId"`
	AlbumID          *int64    `json:"albumId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`

	// Camera fields, each independently nullable: extraction may yield
	// a partial set or nothing at all.
	ISO             *int     `json:"iso,omitempty"`
	ExposureSeconds *float64 `json:"exposureSeconds,omitempty"`
	FNumber         *float64 `json:"fNumber,omitempty"`
	FocalLengthMm   *float64 `json:"focalLengthMm,omitempty"`
	DeviceLabel     *string  `json:"deviceLabel,omitempty"`
	LocationLabel   *string  `json:"locationLabel,omitempty"`
}

// AssetListing is one page of assets.
type AssetListing struct {
	Items      []Asset `json:"items"`
	TotalItems int     `json:"totalItems"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
}
