package applications

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/D-keii/NextNation-RentSafe/internal/properties"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var (
	ErrNotFound   = errors.New("application not found")
	ErrForbidden  = errors.New("not allowed to access this application")
	ErrNotListed  = errors.New("property is not open for applications")
	ErrDuplicate  = errors.New("an application for this property is already pending")
	ErrNotPending = errors.New("application has already been decided")
	ErrOwnListing = errors.New("landlords cannot apply to their own listing")
)

// Application is a tenant's request to rent a listing.
type Application struct {
	ID          uuid.UUID  `json:"id"`
	PropertyID  uuid.UUID  `json:"property_id"`
	LandlordID  string     `json:"landlord_id"`
	TenantID    string     `json:"tenant_id"`
	TenantName  string     `json:"tenant_name"`
	TenantEmail string     `json:"-"`
	Message     string     `json:"message,omitempty"`
	Status      Status     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	AppliedAt   time.Time  `json:"applied_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

// Tenant is the applicant, taken from the caller identity.
type Tenant struct {
	ID    string
	Name  string
	Email string
}

// Counts tallies applications by status.
type Counts struct {
	All      int `json:"all"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

func (c *Counts) add(s Status) {
	c.All++
	switch s {
	case StatusPending:
		c.Pending++
	case StatusApproved:
		c.Approved++
	case StatusRejected:
		c.Rejected++
	}
}

// Dashboard is the landlord overview of listings and the applications they
// have received.
type Dashboard struct {
	Properties   []properties.ListingView         `json:"my_properties"`
	ByStatus     map[properties.DisplayStatus]int `json:"by_status"`
	Applications Counts                           `json:"applications"`
	Pending      []*Application                   `json:"pending_applications"`
}
