package seller

import (
	"errors"
	"time"
)

// ProductStatus is a listing's moderation/sale state.
type ProductStatus string

const (
	StatusPending  ProductStatus = "pending"
	StatusApproved ProductStatus = "approved"
	StatusSold     ProductStatus = "sold"
	StatusRejected ProductStatus = "rejected"
)

var (
	ErrNotAuthenticated = errors.New("authentication required")
	ErrProductNotFound  = errors.New("product not found")
	ErrEmptyName        = errors.New("product name is required")
	ErrInvalidPrice     = errors.New("product price must be positive")
)

// Product is one of the seller's listings, mirrored from the product
// backend.
type Product struct {
	ID          string        `json:"id"`
	SellerID    string        `json:"seller_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Price       int64         `json:"price"`
	Category    string        `json:"category,omitempty"`
	Status      ProductStatus `json:"status"`
	ImageURLs   []string      `json:"image_urls,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ImageUpload is one listing photo to push to the image host before the
// product payload references its URL.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ListingDraft is the seller's create/update form. Images are new files to
// upload; KeepImageURLs are already-hosted photos the listing keeps.
type ListingDraft struct {
	Name          string
	Description   string
	Price         int64
	Category      string
	Images        []ImageUpload
	KeepImageURLs []string
}

func (d ListingDraft) validate() error {
	if d.Name == "" {
		return ErrEmptyName
	}
	if d.Price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// sameListing reports whether applying the draft would change nothing,
// so the update call can be skipped entirely.
func sameListing(p Product, d ListingDraft) bool {
	if len(d.Images) > 0 {
		return false
	}
	if p.Name != d.Name || p.Description != d.Description ||
		p.Price != d.Price || p.Category != d.Category {
		return false
	}
	if len(p.ImageURLs) != len(d.KeepImageURLs) {
		return false
	}
	for i := range p.ImageURLs {
		if p.ImageURLs[i] != d.KeepImageURLs[i] {
			return false
		}
	}
	return true
}

// Stats summarizes the seller's listings for the dashboard header.
type Stats struct {
	Total   int   `json:"total"`
	Active  int   `json:"active"`
	Sold    int   `json:"sold"`
	Pending int   `json:"pending"`
	Revenue int64 `json:"revenue"`
}

func statsFor(products []Product) Stats {
	var s Stats
	s.Total = len(products)
	for _, p := range products {
		switch p.Status {
		case StatusApproved:
			s.Active++
		case StatusSold:
			s.Sold++
			s.Revenue += p.Price
		case StatusPending:
			s.Pending++
		}
	}
	return s
}
