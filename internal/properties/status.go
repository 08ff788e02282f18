package properties

// DisplayStatus is computed from a property on every read and never stored.
type DisplayStatus string

const (
	DisplayVerified            DisplayStatus = "verified"
	DisplayRejected            DisplayStatus = "rejected"
	DisplayVerificationPending DisplayStatus = "verification_pending"
	DisplayUnverified          DisplayStatus = "unverified"
)

// DeriveDisplayStatus maps a property to its display status. The verification
// record is consulted first; the legacy status column is only a fallback for
// records created before verification existed.
func DeriveDisplayStatus(p *Property) DisplayStatus {
	if p == nil {
		return DisplayUnverified
	}
	if v := p.Verification; v != nil {
		switch v.Status {
		case VerificationApproved:
			return DisplayVerified
		case VerificationRejected:
			return DisplayRejected
		case VerificationPending:
			return DisplayVerificationPending
		}
	}
	if p.Status == LegacyVerified {
		return DisplayVerified
	}
	return DisplayUnverified
}

// Affordances are the landlord actions enabled for a display status.
type Affordances struct {
	Edit                 bool `json:"edit"`
	Delete               bool `json:"delete"`
	ResubmitDocuments    bool `json:"resubmit_documents"`
	CompleteVerification bool `json:"complete_verification"`
}

func AffordancesFor(status DisplayStatus) Affordances {
	switch status {
	case DisplayVerified:
		return Affordances{Edit: true, Delete: true}
	case DisplayRejected:
		return Affordances{ResubmitDocuments: true}
	case DisplayVerificationPending:
		return Affordances{}
	default:
		return Affordances{CompleteVerification: true}
	}
}

// ListingView is the card shown in listing grids, saved lists and dashboards.
type ListingView struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Address         string        `json:"address"`
	City            string        `json:"city"`
	State           string        `json:"state"`
	HousingType     HousingType   `json:"housing_type,omitempty"`
	Price           float64       `json:"price"`
	Bedrooms        int           `json:"bedrooms"`
	Bathrooms       int           `json:"bathrooms"`
	Size            float64       `json:"size"`
	Thumbnail       string        `json:"thumbnail,omitempty"`
	PhotoCount      int           `json:"photo_count"`
	Amenities       []string      `json:"amenities"`
	Available       bool          `json:"available"`
	LandlordName    string        `json:"landlord_name"`
	DisplayStatus   DisplayStatus `json:"display_status"`
	Affordances     Affordances   `json:"affordances"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
}

func NewListingView(p *Property) ListingView {
	status := DeriveDisplayStatus(p)
	view := ListingView{
		ID:            p.ID.String(),
		Title:         p.Title,
		Address:       p.Address,
		City:          p.City,
		State:         p.State,
		HousingType:   p.HousingType,
		Price:         p.Price,
		Bedrooms:      p.Bedrooms,
		Bathrooms:     p.Bathrooms,
		Size:          p.Size,
		Thumbnail:     p.Thumbnail(),
		PhotoCount:    len(p.Photos),
		Amenities:     p.Amenities,
		Available:     p.Available,
		LandlordName:  p.LandlordName,
		DisplayStatus: status,
		Affordances:   AffordancesFor(status),
	}
	if status == DisplayRejected {
		view.RejectionReason = p.Verification.RejectionReason
	}
	return view
}
