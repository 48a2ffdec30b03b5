package model

import (
	"time"

	"github.com/google/uuid"
)

// PriceType classifies how a publication is priced.
type PriceType string

const (
	PriceFixed      PriceType = "FIXED"
	PriceHourly     PriceType = "HOURLY"
	PriceNegotiable PriceType = "NEGOTIABLE"
)

// Valid reports whether the price type is one of the accepted values.
func (p PriceType) Valid() bool {
	return p == PriceFixed || p == PriceHourly || p == PriceNegotiable
}

// Publication is a provider's advertised instance of a catalog service.
// Price is nil only for NEGOTIABLE publications. Deactivation and deletion
// are soft flags so listings can be filtered without losing history.
type Publication struct {
	ID          uuid.UUID        `json:"id"           db:"id"`
	ProviderID  uuid.UUID        `json:"provider_id"  db:"provider_id"`
	ServiceID   uuid.UUID        `json:"service_id"   db:"service_id"`
	Title       string           `json:"title"        db:"title"`
	Description string           `json:"description"  db:"description"`
	Price       *float64         `json:"price"        db:"price"`
	PriceType   PriceType        `json:"price_type"   db:"price_type"`
	Images      []string         `json:"images"       db:"images"`
	IsActive    bool             `json:"is_active"    db:"is_active"`
	IsDeleted   bool             `json:"is_deleted"   db:"is_deleted"`
	CreatedAt   time.Time        `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"   db:"updated_at"`
	Service     *ServiceRef      `json:"service,omitempty"`
	Provider    *ProviderSummary `json:"provider,omitempty"`
}
