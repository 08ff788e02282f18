package properties

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/D-keii/NextNation-RentSafe/internal/documents"
	"github.com/D-keii/NextNation-RentSafe/internal/notifications"
)

type Service interface {
	CreateProperty(ctx context.Context, landlord Landlord, draft *Draft) (*Property, error)
	GetProperty(ctx context.Context, id uuid.UUID) (*Property, error)
	ListProperties(ctx context.Context, filter Filter) ([]*Property, error)
	UpdateProperty(ctx context.Context, landlord Landlord, id uuid.UUID, draft *Draft) (*Property, error)
	DeleteProperty(ctx context.Context, landlord Landlord, id uuid.UUID) error

	UploadDocument(ctx context.Context, landlord Landlord, id uuid.UUID, key documents.Key, file documents.File) (*documents.Upload, error)
	DocumentURL(ctx context.Context, caller string, reviewer bool, id uuid.UUID, key documents.Key) (string, error)
	SubmitVerification(ctx context.Context, landlord Landlord, id uuid.UUID, docs map[documents.Key]string) (*Property, error)
	ReviewVerification(ctx context.Context, reviewer string, id uuid.UUID, decision Decision, reason string) (*Property, error)
}

// DocumentStore is the ownership document storage used by the service.
type DocumentStore interface {
	Upload(ctx context.Context, propertyID uuid.UUID, key documents.Key, f documents.File) (*documents.Upload, error)
	Commit(ctx context.Context, refs []string) error
	Release(ctx context.Context, refs []string) error
	PresignedURL(ctx context.Context, ref string, expiration time.Duration) (string, error)
}

const documentURLExpiry = 15 * time.Minute

type propertyService struct {
	repo     Repository
	docs     DocumentStore
	notifier notifications.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, docs DocumentStore, notifier notifications.Notifier, logger *zap.Logger) Service {
	return &propertyService{
		repo:     repo,
		docs:     docs,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *propertyService) CreateProperty(ctx context.Context, landlord Landlord, draft *Draft) (*Property, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	p := &Property{
		ID:            uuid.New(),
		LandlordID:    landlord.ID,
		LandlordName:  landlord.Name,
		LandlordEmail: landlord.Email,
		Status:        LegacyUnverified,
		Verification:  &Verification{Status: VerificationPending},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	draft.apply(p)

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}

	s.logger.Info("Property created",
		zap.String("property_id", p.ID.String()),
		zap.String("landlord_id", landlord.ID))
	return p, nil
}

func (s *propertyService) GetProperty(ctx context.Context, id uuid.UUID) (*Property, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *propertyService) ListProperties(ctx context.Context, filter Filter) ([]*Property, error) {
	all, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	switch filter.Display {
	case "", "all":
		return all, nil
	case "verified", "unverified":
	default:
		return nil, &ValidationError{Fields: map[string]string{"status": "must be verified, unverified or all"}}
	}

	wantVerified := filter.Display == "verified"
	out := make([]*Property, 0, len(all))
	for _, p := range all {
		if (DeriveDisplayStatus(p) == DisplayVerified) == wantVerified {
			out = append(out, p)
		}
	}
	return out, nil
}

// owned loads a property and checks that landlord owns it.
func (s *propertyService) owned(ctx context.Context, landlord Landlord, id uuid.UUID) (*Property, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.LandlordID != landlord.ID {
		return nil, ErrForbidden
	}
	return p, nil
}

// UpdateProperty edits a verified listing. The verification record is kept as
// is; edits do not reopen ownership review.
func (s *propertyService) UpdateProperty(ctx context.Context, landlord Landlord, id uuid.UUID, draft *Draft) (*Property, error) {
	p, err := s.owned(ctx, landlord, id)
	if err != nil {
		return nil, err
	}
	if !AffordancesFor(DeriveDisplayStatus(p)).Edit {
		return nil, ErrVerificationRequired
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	draft.apply(p)
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update property: %w", err)
	}

	s.logger.Info("Property updated", zap.String("property_id", p.ID.String()))
	return p, nil
}

func (s *propertyService) DeleteProperty(ctx context.Context, landlord Landlord, id uuid.UUID) error {
	p, err := s.owned(ctx, landlord, id)
	if err != nil {
		return err
	}
	if !AffordancesFor(DeriveDisplayStatus(p)).Delete {
		return ErrVerificationRequired
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete property: %w", err)
	}

	s.logger.Info("Property deleted", zap.String("property_id", id.String()))
	return nil
}

// canSubmitDocuments reports whether a property accepts a verification submission.
func canSubmitDocuments(status DisplayStatus) bool {
	return status != DisplayVerified
}

func (s *propertyService) UploadDocument(ctx context.Context, landlord Landlord, id uuid.UUID, key documents.Key, file documents.File) (*documents.Upload, error) {
	p, err := s.owned(ctx, landlord, id)
	if err != nil {
		return nil, err
	}
	if !canSubmitDocuments(DeriveDisplayStatus(p)) {
		return nil, ErrInvalidState
	}
	return s.docs.Upload(ctx, id, key, file)
}

func (s *propertyService) DocumentURL(ctx context.Context, caller string, reviewer bool, id uuid.UUID, key documents.Key) (string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !reviewer && p.LandlordID != caller {
		return "", ErrForbidden
	}
	if p.Verification == nil || p.Verification.Documents[key] == "" {
		return "", ErrNotFound
	}
	return s.docs.PresignedURL(ctx, p.Verification.Documents[key], documentURLExpiry)
}

// SubmitVerification stores all five document references at once and puts the
// property back into review. The documents are claimed before the record is
// written. A failed claim leaves the property untouched.
func (s *propertyService) SubmitVerification(ctx context.Context, landlord Landlord, id uuid.UUID, docs map[documents.Key]string) (*Property, error) {
	p, err := s.owned(ctx, landlord, id)
	if err != nil {
		return nil, err
	}
	if !canSubmitDocuments(DeriveDisplayStatus(p)) {
		return nil, ErrInvalidState
	}

	refs := make(map[documents.Key]string, len(documents.Keys()))
	commit := make([]string, 0, len(documents.Keys()))
	for _, key := range documents.Keys() {
		ref := docs[key]
		if ref == "" {
			return nil, ErrDocumentsRequired
		}
		if !documents.OwnsReference(id, key, ref) {
			return nil, fmt.Errorf("%s: %w", key, documents.ErrReference)
		}
		refs[key] = ref
		commit = append(commit, ref)
	}
	for key := range docs {
		if !key.Valid() {
			return nil, fmt.Errorf("%s: %w", key, documents.ErrUnknownKey)
		}
	}

	submittedAt := s.now()
	v := &Verification{
		Status:      VerificationPending,
		Documents:   refs,
		SubmittedAt: &submittedAt,
	}
	if err := s.docs.Commit(ctx, commit); err != nil {
		return nil, fmt.Errorf("commit documents: %w", err)
	}
	if err := s.repo.UpdateVerification(ctx, id, v, p.Status); err != nil {
		if rerr := s.docs.Release(ctx, unclaimed(p.Verification, commit)); rerr != nil {
			s.logger.Error("Failed to release committed documents",
				zap.String("property_id", id.String()),
				zap.Error(rerr))
		}
		return nil, fmt.Errorf("submit verification: %w", err)
	}

	p.Verification = v
	s.logger.Info("Verification submitted", zap.String("property_id", id.String()))
	return p, nil
}

// unclaimed drops references the current verification record already holds.
func unclaimed(v *Verification, refs []string) []string {
	if v == nil {
		return refs
	}
	held := make(map[string]bool, len(v.Documents))
	for _, ref := range v.Documents {
		held[ref] = true
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if !held[ref] {
			out = append(out, ref)
		}
	}
	return out
}

// ReviewVerification records a reviewer decision on a pending submission.
func (s *propertyService) ReviewVerification(ctx context.Context, reviewer string, id uuid.UUID, decision Decision, reason string) (*Property, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := p.Verification
	if v == nil || v.Status != VerificationPending || len(v.Documents) < len(documents.Keys()) {
		return nil, ErrInvalidState
	}

	reviewedAt := s.now()
	next := &Verification{
		Documents:   v.Documents,
		SubmittedAt: v.SubmittedAt,
		ReviewedAt:  &reviewedAt,
	}
	status := p.Status
	switch decision {
	case DecisionApprove:
		next.Status = VerificationApproved
		status = LegacyVerified
	case DecisionReject:
		if reason == "" {
			return nil, &ValidationError{Fields: map[string]string{"reason": "is required when rejecting"}}
		}
		next.Status = VerificationRejected
		next.RejectionReason = reason
	default:
		return nil, &ValidationError{Fields: map[string]string{"decision": "must be approve or reject"}}
	}

	if err := s.repo.UpdateVerification(ctx, id, next, status); err != nil {
		return nil, fmt.Errorf("review verification: %w", err)
	}
	p.Verification = next
	p.Status = status

	s.logger.Info("Verification reviewed",
		zap.String("property_id", id.String()),
		zap.String("reviewer", reviewer),
		zap.String("decision", string(decision)))

	s.notifyReview(ctx, p)
	return p, nil
}

func (s *propertyService) notifyReview(ctx context.Context, p *Property) {
	msg := notifications.Message{To: p.LandlordEmail}
	if p.Verification.Status == VerificationApproved {
		msg.Subject = "Your listing is verified"
		msg.Body = fmt.Sprintf("Hi %s,\n\nOwnership of %q has been verified. Your listing is now live.", p.LandlordName, p.Title)
	} else {
		msg.Subject = "Your listing needs attention"
		msg.Body = fmt.Sprintf("Hi %s,\n\nOwnership verification for %q was rejected: %s\n\nPlease resubmit your documents.",
			p.LandlordName, p.Title, p.Verification.RejectionReason)
	}

	if err := s.notifier.Send(ctx, msg); err != nil {
		level := s.logger.Error
		if errors.Is(err, notifications.ErrNoRecipient) {
			level = s.logger.Debug
		}
		level("Failed to notify landlord", zap.String("property_id", p.ID.String()), zap.Error(err))
	}
}
