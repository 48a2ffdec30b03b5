package model

import "github.com/google/uuid"

// Service is a catalog entry (cleaning, gardening, plumbing, ...). The
// catalog is pre-seeded and read-only from the application's perspective;
// providers pick which entries they offer.
type Service struct {
	ID          uuid.UUID `json:"id"          db:"id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category"    db:"category"`
}

// ServiceRef is the id+title pair embedded in profiles and publications.
type ServiceRef struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}
