package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/D-keii/NextNation-RentSafe/internal/client"
	"github.com/D-keii/NextNation-RentSafe/internal/properties"
	"github.com/D-keii/NextNation-RentSafe/pkg/workflows"
)

// Outcome is the result of a successful step-one submission.
type Outcome struct {
	Next       Route
	PropertyID string
	HandOff    *HandOff
}

// Details is step one: the property form and its photo list.
type Details struct {
	Lifecycle

	api      API
	session  client.Session
	existing *properties.Property

	mu          sync.Mutex
	photos      []string
	fieldErrors map[string]string
}

// NewDetails opens step one. existing is nil when creating a listing.
func NewDetails(api API, session client.Session, existing *properties.Property) *Details {
	d := &Details{api: api, session: session, existing: existing}
	if existing != nil {
		d.photos = append([]string(nil), existing.Photos...)
	}
	return d
}

func (d *Details) Editing() bool { return d.existing != nil }

// Locked reports whether the form is read-only. Listings that are not
// verified can only be changed through the verification flow.
func (d *Details) Locked() bool {
	return d.State() == workflows.StateEditingLocked
}

func (d *Details) State() workflows.State {
	return StateFor(d.existing, d.Editing())
}

// Form returns the initial form values.
func (d *Details) Form() properties.DraftForm {
	if d.existing == nil {
		return properties.DraftForm{Available: true}
	}
	return properties.FormFrom(d.existing)
}

func (d *Details) Photos() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.photos...)
}

// AddPhotos appends refs after the existing photos.
func (d *Details) AddPhotos(refs ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.photos = append(d.photos, refs...)
}

// RemovePhoto deletes exactly index i.
func (d *Details) RemovePhoto(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.photos) {
		return fmt.Errorf("%w: %d", ErrPhotoIndex, i)
	}
	d.photos = append(d.photos[:i:i], d.photos[i+1:]...)
	return nil
}

// FieldErrors returns the inline errors from the last submission.
func (d *Details) FieldErrors() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.fieldErrors))
	for k, v := range d.fieldErrors {
		out[k] = v
	}
	return out
}

// Submit validates the form and creates or updates the listing. Nothing is
// sent when the form is locked or invalid.
func (d *Details) Submit(ctx context.Context, form properties.DraftForm) (Outcome, error) {
	if !d.Alive() {
		return Outcome{}, ErrUnmounted
	}
	if d.Locked() {
		return Outcome{}, properties.ErrVerificationRequired
	}
	if d.existing != nil && d.existing.LandlordID != "" && d.existing.LandlordID != d.session.UserID {
		return Outcome{}, properties.ErrForbidden
	}

	draft, err := properties.ValidateDraft(form, d.Photos())
	d.mu.Lock()
	d.fieldErrors = nil
	var verr *properties.ValidationError
	if errors.As(err, &verr) {
		d.fieldErrors = verr.Fields
	}
	d.mu.Unlock()
	if err != nil {
		return Outcome{}, err
	}

	if d.existing != nil {
		return d.update(ctx, draft)
	}
	return d.create(ctx, draft)
}

func (d *Details) create(ctx context.Context, draft *properties.Draft) (Outcome, error) {
	if !machine.CanTransition(d.State(), workflows.StateAwaitingVerification) {
		return Outcome{}, properties.ErrInvalidState
	}

	p, err := d.api.CreateProperty(ctx, draft)
	if !d.Alive() {
		return Outcome{}, ErrUnmounted
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("create property: %w", err)
	}
	if p.Verification == nil {
		p.Verification = &properties.Verification{Status: properties.VerificationPending}
	}

	id := p.ID.String()
	return Outcome{
		Next:       RouteVerification,
		PropertyID: id,
		HandOff:    &HandOff{FromDetails: true, PropertyID: id, Draft: p},
	}, nil
}

func (d *Details) update(ctx context.Context, draft *properties.Draft) (Outcome, error) {
	if !machine.CanTransition(d.State(), workflows.StateVerified) {
		return Outcome{}, properties.ErrInvalidState
	}

	id := d.existing.ID.String()
	p, err := d.api.UpdateProperty(ctx, id, draft)
	if !d.Alive() {
		return Outcome{}, ErrUnmounted
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("update property: %w", err)
	}
	d.existing = p
	return Outcome{Next: RouteProperties, PropertyID: id}, nil
}
