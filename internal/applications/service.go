package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/D-keii/NextNation-RentSafe/internal/notifications"
	"github.com/D-keii/NextNation-RentSafe/internal/properties"
)

// Listings is the part of the property service applications read from.
type Listings interface {
	GetProperty(ctx context.Context, id uuid.UUID) (*properties.Property, error)
	ListProperties(ctx context.Context, filter properties.Filter) ([]*properties.Property, error)
}

type Service interface {
	Apply(ctx context.Context, tenant Tenant, propertyID uuid.UUID, message string) (*Application, error)
	ListForProperty(ctx context.Context, landlordID string, propertyID uuid.UUID) ([]*Application, error)
	ListForTenant(ctx context.Context, tenantID string) ([]*Application, error)
	Get(ctx context.Context, callerID string, id uuid.UUID) (*Application, error)
	Decide(ctx context.Context, landlordID string, id uuid.UUID, decision properties.Decision, reason string) (*Application, error)
	Dashboard(ctx context.Context, landlordID string) (*Dashboard, error)
}

type applicationService struct {
	repo     Repository
	listings Listings
	notifier notifications.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, listings Listings, notifier notifications.Notifier, logger *zap.Logger) Service {
	return &applicationService{
		repo:     repo,
		listings: listings,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Apply files an application. Only verified listings that are marked
// available take applications, and a tenant holds at most one pending
// application per listing.
func (s *applicationService) Apply(ctx context.Context, tenant Tenant, propertyID uuid.UUID, message string) (*Application, error) {
	p, err := s.listings.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if p.LandlordID == tenant.ID {
		return nil, ErrOwnListing
	}
	if properties.DeriveDisplayStatus(p) != properties.DisplayVerified || !p.Available {
		return nil, ErrNotListed
	}

	pending, err := s.repo.HasPending(ctx, propertyID, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("check pending applications: %w", err)
	}
	if pending {
		return nil, ErrDuplicate
	}

	a := &Application{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		LandlordID:  p.LandlordID,
		TenantID:    tenant.ID,
		TenantName:  tenant.Name,
		TenantEmail: tenant.Email,
		Message:     strings.TrimSpace(message),
		Status:      StatusPending,
		AppliedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	s.logger.Info("Application submitted",
		zap.String("application_id", a.ID.String()),
		zap.String("property_id", propertyID.String()),
		zap.String("tenant_id", tenant.ID))
	return a, nil
}

func (s *applicationService) ListForProperty(ctx context.Context, landlordID string, propertyID uuid.UUID) ([]*Application, error) {
	p, err := s.listings.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if p.LandlordID != landlordID {
		return nil, properties.ErrForbidden
	}
	return s.repo.ListByProperty(ctx, propertyID)
}

func (s *applicationService) ListForTenant(ctx context.Context, tenantID string) ([]*Application, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

// Get returns an application to its tenant or to the listing's landlord.
func (s *applicationService) Get(ctx context.Context, callerID string, id uuid.UUID) (*Application, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.TenantID != callerID && a.LandlordID != callerID {
		return nil, ErrForbidden
	}
	return a, nil
}

func (s *applicationService) Decide(ctx context.Context, landlordID string, id uuid.UUID, decision properties.Decision, reason string) (*Application, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.LandlordID != landlordID {
		return nil, ErrForbidden
	}
	if a.Status != StatusPending {
		return nil, ErrNotPending
	}

	var status Status
	switch decision {
	case properties.DecisionApprove:
		status = StatusApproved
	case properties.DecisionReject:
		status = StatusRejected
	default:
		return nil, &properties.ValidationError{Fields: map[string]string{"decision": "must be approve or reject"}}
	}

	at := s.now()
	reason = strings.TrimSpace(reason)
	if err := s.repo.Decide(ctx, id, status, reason, at); err != nil {
		if errors.Is(err, ErrNotPending) {
			return nil, err
		}
		return nil, fmt.Errorf("decide application: %w", err)
	}
	a.Status = status
	a.Reason = reason
	a.DecidedAt = &at

	s.logger.Info("Application decided",
		zap.String("application_id", id.String()),
		zap.String("status", string(status)))
	s.notifyTenant(ctx, a)
	return a, nil
}

func (s *applicationService) notifyTenant(ctx context.Context, a *Application) {
	msg := notifications.Message{To: a.TenantEmail}
	if a.Status == StatusApproved {
		msg.Subject = "Your rental application was approved"
		msg.Body = fmt.Sprintf("Hi %s,\n\nThe landlord approved your application. They will be in touch about next steps.", a.TenantName)
	} else {
		msg.Subject = "Update on your rental application"
		msg.Body = fmt.Sprintf("Hi %s,\n\nThe landlord did not accept your application.", a.TenantName)
		if a.Reason != "" {
			msg.Body += "\n\nReason: " + a.Reason
		}
	}

	if err := s.notifier.Send(ctx, msg); err != nil {
		level := s.logger.Error
		if errors.Is(err, notifications.ErrNoRecipient) {
			level = s.logger.Debug
		}
		level("Failed to notify tenant", zap.String("application_id", a.ID.String()), zap.Error(err))
	}
}

func (s *applicationService) Dashboard(ctx context.Context, landlordID string) (*Dashboard, error) {
	list, err := s.listings.ListProperties(ctx, properties.Filter{LandlordID: landlordID})
	if err != nil {
		return nil, err
	}
	apps, err := s.repo.ListByLandlord(ctx, landlordID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	d := &Dashboard{
		Properties: make([]properties.ListingView, 0, len(list)),
		ByStatus:   make(map[properties.DisplayStatus]int),
		Pending:    []*Application{},
	}
	for _, p := range list {
		view := properties.NewListingView(p)
		d.Properties = append(d.Properties, view)
		d.ByStatus[view.DisplayStatus]++
	}
	for _, a := range apps {
		d.Applications.add(a.Status)
		if a.Status == StatusPending {
			d.Pending = append(d.Pending, a)
		}
	}
	return d, nil
}
