package properties

import (
	"time"

	"github.com/google/uuid"

	"github.com/D-keii/NextNation-RentSafe/internal/documents"
)

// LegacyStatus is the flat status column that predates the verification record.
type LegacyStatus string

const (
	LegacyUnverified LegacyStatus = "unverified"
	LegacyVerified   LegacyStatus = "verified"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

type HousingType string

const (
	HousingCondo     HousingType = "condo"
	HousingApartment HousingType = "apartment"
	HousingStudio    HousingType = "studio"
	HousingHouse     HousingType = "house"
)

func (h HousingType) Valid() bool {
	switch h {
	case HousingCondo, HousingApartment, HousingStudio, HousingHouse:
		return true
	}
	return false
}

// Property is a rental listing owned by a landlord.
type Property struct {
	ID            uuid.UUID     `json:"id"`
	LandlordID    string        `json:"landlord_id"`
	LandlordName  string        `json:"landlord_name"`
	LandlordEmail string        `json:"-"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Address       string        `json:"address"`
	Postcode      string        `json:"postcode,omitempty"`
	City          string        `json:"city"`
	State         string        `json:"state"`
	HousingType   HousingType   `json:"housing_type,omitempty"`
	Price         float64       `json:"price"`
	Bedrooms      int           `json:"bedrooms"`
	Bathrooms     int           `json:"bathrooms"`
	Size          float64       `json:"size"`
	Amenities     []string      `json:"amenities"`
	Photos        []string      `json:"photos"`
	Available     bool          `json:"available"`
	Status        LegacyStatus  `json:"status"`
	Verification  *Verification `json:"verification,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Verification is the ownership review attached to a property.
type Verification struct {
	Status          VerificationStatus       `json:"status"`
	RejectionReason string                   `json:"rejection_reason,omitempty"`
	Documents       map[documents.Key]string `json:"documents,omitempty"`
	SubmittedAt     *time.Time               `json:"submitted_at,omitempty"`
	ReviewedAt      *time.Time               `json:"reviewed_at,omitempty"`
}

// Thumbnail returns the first photo, or "" when there are none.
func (p *Property) Thumbnail() string {
	if len(p.Photos) == 0 {
		return ""
	}
	return p.Photos[0]
}

// Landlord identifies the caller acting on a property.
type Landlord struct {
	ID    string
	Name  string
	Email string
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Filter narrows ListProperties. Display is "verified", "unverified" or "all".
type Filter struct {
	LandlordID string
	Display    string
	Available  *bool
}
