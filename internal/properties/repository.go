package properties

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/D-keii/NextNation-RentSafe/internal/documents"
)

type Repository interface {
	Create(ctx context.Context, p *Property) error
	GetByID(ctx context.Context, id uuid.UUID) (*Property, error)
	List(ctx context.Context, filter Filter) ([]*Property, error)
	Update(ctx context.Context, p *Property) error
	UpdateVerification(ctx context.Context, id uuid.UUID, v *Verification, status LegacyStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// propertyRecord is the table row. Verification columns are nullable so that
// rows written before verification existed read back with no record.
type propertyRecord struct {
	ID                 uuid.UUID                                    `gorm:"type:uuid;primaryKey"`
	LandlordID         string                                       `gorm:"index;not null"`
	LandlordName       string                                       `gorm:"not null"`
	LandlordEmail      string
	Title              string                                       `gorm:"not null"`
	Description        string                                       `gorm:"not null"`
	Address            string                                       `gorm:"not null"`
	Postcode           string
	City               string
	State              string
	HousingType        string
	Price              float64                                      `gorm:"not null"`
	Bedrooms           int                                          `gorm:"not null"`
	Bathrooms          int                                          `gorm:"not null"`
	Size               float64                                      `gorm:"not null"`
	Amenities          datatypes.JSONSlice[string]                  `gorm:"type:jsonb"`
	Photos             datatypes.JSONSlice[string]                  `gorm:"type:jsonb"`
	Available          bool                                         `gorm:"not null"`
	Status             string                                       `gorm:"not null;default:'unverified'"`
	VerificationStatus *string                                      `gorm:"index"`
	RejectionReason    string
	Documents          datatypes.JSONType[map[documents.Key]string] `gorm:"type:jsonb;not null;default:'{}'"`
	SubmittedAt        *time.Time
	ReviewedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt                               `gorm:"index"`
}

func (propertyRecord) TableName() string { return "properties" }

func toRecord(p *Property) *propertyRecord {
	r := &propertyRecord{
		ID:            p.ID,
		LandlordID:    p.LandlordID,
		LandlordName:  p.LandlordName,
		LandlordEmail: p.LandlordEmail,
		Title:         p.Title,
		Description:   p.Description,
		Address:       p.Address,
		Postcode:      p.Postcode,
		City:          p.City,
		State:         p.State,
		HousingType:   string(p.HousingType),
		Price:         p.Price,
		Bedrooms:      p.Bedrooms,
		Bathrooms:     p.Bathrooms,
		Size:          p.Size,
		Amenities:     datatypes.JSONSlice[string](p.Amenities),
		Photos:        datatypes.JSONSlice[string](p.Photos),
		Available:     p.Available,
		Status:        string(p.Status),
		Documents:     datatypes.NewJSONType(map[documents.Key]string{}),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if v := p.Verification; v != nil {
		status := string(v.Status)
		r.VerificationStatus = &status
		r.RejectionReason = v.RejectionReason
		r.SubmittedAt = v.SubmittedAt
		r.ReviewedAt = v.ReviewedAt
		if v.Documents != nil {
			r.Documents = datatypes.NewJSONType(v.Documents)
		}
	}
	return r
}

func (r *propertyRecord) toProperty() *Property {
	p := &Property{
		ID:            r.ID,
		LandlordID:    r.LandlordID,
		LandlordName:  r.LandlordName,
		LandlordEmail: r.LandlordEmail,
		Title:         r.Title,
		Description:   r.Description,
		Address:       r.Address,
		Postcode:      r.Postcode,
		City:          r.City,
		State:         r.State,
		HousingType:   HousingType(r.HousingType),
		Price:         r.Price,
		Bedrooms:      r.Bedrooms,
		Bathrooms:     r.Bathrooms,
		Size:          r.Size,
		Amenities:     []string(r.Amenities),
		Photos:        []string(r.Photos),
		Available:     r.Available,
		Status:        LegacyStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.VerificationStatus != nil {
		docs := r.Documents.Data()
		if len(docs) == 0 {
			docs = nil
		}
		p.Verification = &Verification{
			Status:          VerificationStatus(*r.VerificationStatus),
			RejectionReason: r.RejectionReason,
			Documents:       docs,
			SubmittedAt:     r.SubmittedAt,
			ReviewedAt:      r.ReviewedAt,
		}
	}
	return p
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// AutoMigrate creates or updates the properties table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&propertyRecord{})
}

func (r *gormRepository) Create(ctx context.Context, p *Property) error {
	return r.db.WithContext(ctx).Create(toRecord(p)).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Property, error) {
	var rec propertyRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toProperty(), nil
}

func (r *gormRepository) List(ctx context.Context, filter Filter) ([]*Property, error) {
	q := r.db.WithContext(ctx).Model(&propertyRecord{})
	if filter.LandlordID != "" {
		q = q.Where("landlord_id = ?", filter.LandlordID)
	}
	if filter.Available != nil {
		q = q.Where("available = ?", *filter.Available)
	}

	var recs []propertyRecord
	if err := q.Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, err
	}

	out := make([]*Property, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toProperty())
	}
	return out, nil
}

// Update writes the listing fields. Verification columns are left untouched.
func (r *gormRepository) Update(ctx context.Context, p *Property) error {
	res := r.db.WithContext(ctx).Model(&propertyRecord{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"title":        p.Title,
		"description":  p.Description,
		"address":      p.Address,
		"postcode":     p.Postcode,
		"city":         p.City,
		"state":        p.State,
		"housing_type": string(p.HousingType),
		"price":        p.Price,
		"bedrooms":     p.Bedrooms,
		"bathrooms":    p.Bathrooms,
		"size":         p.Size,
		"amenities":    datatypes.JSONSlice[string](p.Amenities),
		"photos":       datatypes.JSONSlice[string](p.Photos),
		"available":    p.Available,
		"updated_at":   p.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateVerification replaces the verification record and legacy status in a
// single statement.
func (r *gormRepository) UpdateVerification(ctx context.Context, id uuid.UUID, v *Verification, status LegacyStatus) error {
	docs := v.Documents
	if docs == nil {
		docs = map[documents.Key]string{}
	}
	res := r.db.WithContext(ctx).Model(&propertyRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":              string(status),
		"verification_status": string(v.Status),
		"rejection_reason":    v.RejectionReason,
		"documents":           datatypes.NewJSONType(docs),
		"submitted_at":        v.SubmittedAt,
		"reviewed_at":         v.ReviewedAt,
		"updated_at":          time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&propertyRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
