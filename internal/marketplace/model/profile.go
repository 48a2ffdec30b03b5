package model

import (
	"time"

	"github.com/google/uuid"
)

// Role classifies a marketplace participant. It is fixed at profile creation:
// nothing in the edit flow may change it.
type Role string

const (
	RoleProvider Role = "PROVIDER"
	RoleClient   Role = "CLIENT"
)

// Valid reports whether the role is one of the two accepted values.
func (r Role) Valid() bool {
	return r == RoleProvider || r == RoleClient
}

// Profile is the application-level record describing a marketplace
// participant, keyed one-to-one by the authenticated account.
//
// A profile is either fully formed or absent: it is created by a single
// insert at the end of onboarding, never in pieces. Which media fields are
// required depends on the role — providers must carry both identity-document
// images, clients only the profile photo.
type Profile struct {
	ID           uuid.UUID    `json:"id"            db:"id"`
	AuthUserID   uuid.UUID    `json:"auth_user_id"  db:"auth_user_id"`
	Email        string       `json:"email"         db:"email"`
	Role         Role         `json:"role"          db:"role"`
	FullName     string       `json:"full_name"     db:"full_name"`
	BirthDate    time.Time    `json:"birth_date"    db:"birth_date"`
	PhoneNumber  string       `json:"phone_number"  db:"phone_number"`
	Location     string       `json:"location"      db:"location"`
	Bio          string       `json:"bio,omitempty" db:"bio"`
	ProfileImage string       `json:"profile_image" db:"profile_image"`
	IDFront      string       `json:"id_front,omitempty" db:"id_front"`
	IDBack       string       `json:"id_back,omitempty"  db:"id_back"`
	Gallery      []string     `json:"gallery"       db:"gallery"`
	Services     []ServiceRef `json:"services_offered"`
	CreatedAt    time.Time    `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"    db:"updated_at"`
}

// ProviderSummary is the slimmed-down provider view embedded in publication
// listings.
type ProviderSummary struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	ProfileImage string    `json:"profile_image"`
	Location     string    `json:"location"`
	Email        string    `json:"email"`
}
