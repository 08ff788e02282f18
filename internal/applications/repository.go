package applications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, a *Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*Application, error)
	HasPending(ctx context.Context, propertyID uuid.UUID, tenantID string) (bool, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*Application, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*Application, error)
	ListByLandlord(ctx context.Context, landlordID string) ([]*Application, error)
	Decide(ctx context.Context, id uuid.UUID, status Status, reason string, at time.Time) error
}

type applicationRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PropertyID  uuid.UUID `gorm:"type:uuid;index;not null"`
	LandlordID  string    `gorm:"index;not null"`
	TenantID    string    `gorm:"index;not null"`
	TenantName  string    `gorm:"not null"`
	TenantEmail string
	Message     string
	Status      string `gorm:"index;not null"`
	Reason      string
	AppliedAt   time.Time `gorm:"not null"`
	DecidedAt   *time.Time
}

func (applicationRecord) TableName() string { return "applications" }

func toRecord(a *Application) *applicationRecord {
	return &applicationRecord{
		ID:          a.ID,
		PropertyID:  a.PropertyID,
		LandlordID:  a.LandlordID,
		TenantID:    a.TenantID,
		TenantName:  a.TenantName,
		TenantEmail: a.TenantEmail,
		Message:     a.Message,
		Status:      string(a.Status),
		Reason:      a.Reason,
		AppliedAt:   a.AppliedAt,
		DecidedAt:   a.DecidedAt,
	}
}

func (r *applicationRecord) toApplication() *Application {
	return &Application{
		ID:          r.ID,
		PropertyID:  r.PropertyID,
		LandlordID:  r.LandlordID,
		TenantID:    r.TenantID,
		TenantName:  r.TenantName,
		TenantEmail: r.TenantEmail,
		Message:     r.Message,
		Status:      Status(r.Status),
		Reason:      r.Reason,
		AppliedAt:   r.AppliedAt,
		DecidedAt:   r.DecidedAt,
	}
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// AutoMigrate creates or updates the applications table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&applicationRecord{})
}

func (r *gormRepository) Create(ctx context.Context, a *Application) error {
	return r.db.WithContext(ctx).Create(toRecord(a)).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Application, error) {
	var rec applicationRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toApplication(), nil
}

func (r *gormRepository) HasPending(ctx context.Context, propertyID uuid.UUID, tenantID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&applicationRecord{}).
		Where("property_id = ? AND tenant_id = ? AND status = ?", propertyID, tenantID, string(StatusPending)).
		Count(&n).Error
	return n > 0, err
}

func (r *gormRepository) list(ctx context.Context, query string, arg interface{}) ([]*Application, error) {
	var recs []applicationRecord
	if err := r.db.WithContext(ctx).Where(query, arg).Order("applied_at DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*Application, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toApplication())
	}
	return out, nil
}

func (r *gormRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*Application, error) {
	return r.list(ctx, "property_id = ?", propertyID)
}

func (r *gormRepository) ListByTenant(ctx context.Context, tenantID string) ([]*Application, error) {
	return r.list(ctx, "tenant_id = ?", tenantID)
}

func (r *gormRepository) ListByLandlord(ctx context.Context, landlordID string) ([]*Application, error) {
	return r.list(ctx, "landlord_id = ?", landlordID)
}

// Decide moves a pending application to status. A row that is no longer
// pending is left alone and reported as ErrNotPending.
func (r *gormRepository) Decide(ctx context.Context, id uuid.UUID, status Status, reason string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&applicationRecord{}).
		Where("id = ? AND status = ?", id, string(StatusPending)).
		Updates(map[string]interface{}{
			"status":     string(status),
			"reason":     reason,
			"decided_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}
