package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/D-keii/NextNation-RentSafe/internal/client"
	"github.com/D-keii/NextNation-RentSafe/internal/documents"
	"github.com/D-keii/NextNation-RentSafe/internal/properties"
	"github.com/D-keii/NextNation-RentSafe/pkg/workflows"
)

type SlotState string

const (
	SlotEmpty     SlotState = "empty"
	SlotUploading SlotState = "uploading"
	SlotUploaded  SlotState = "uploaded"
	SlotInvalid   SlotState = "invalid"
)

// Slot is one required document target.
type Slot struct {
	Key       documents.Key
	Label     string
	State     SlotState
	FileName  string
	Progress  int
	Reference string
	Error     string

	generation uint64
}

// Verification is step two: five document slots and the final submission.
type Verification struct {
	Lifecycle

	api API

	mu         sync.Mutex
	property   *properties.Property
	slots      map[documents.Key]*Slot
	submitting bool
}

func NewVerification(api API) *Verification {
	v := &Verification{api: api, slots: make(map[documents.Key]*Slot)}
	for _, key := range documents.Keys() {
		v.slots[key] = &Slot{Key: key, Label: key.Label(), State: SlotEmpty}
	}
	return v
}

// Load resolves the property for this step. A hand-off from step one is used
// as is; otherwise the property is fetched by routeID.
func (v *Verification) Load(ctx context.Context, h *HandOff, routeID string) error {
	if !v.Alive() {
		return ErrUnmounted
	}
	if h.usable() {
		v.mu.Lock()
		v.property = h.Draft
		v.mu.Unlock()
		return nil
	}

	id := routeID
	if id == "" && h != nil {
		id = h.PropertyID
	}
	if id == "" {
		return ErrPropertyNotFound
	}

	p, err := v.api.GetProperty(ctx, id)
	if !v.Alive() {
		return ErrUnmounted
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPropertyNotFound, err)
	}

	v.mu.Lock()
	v.property = p
	v.mu.Unlock()
	return nil
}

func (v *Verification) Property() *properties.Property {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.property
}

// RejectionReason is the reviewer's note from a previous rejection, or "".
func (v *Verification) RejectionReason() string {
	p := v.Property()
	if properties.DeriveDisplayStatus(p) != properties.DisplayRejected {
		return ""
	}
	return p.Verification.RejectionReason
}

func (v *Verification) State() workflows.State {
	return StateFor(v.Property(), false)
}

// Slots returns a snapshot of every slot in display order.
func (v *Verification) Slots() []Slot {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Slot, 0, len(v.slots))
	for _, key := range documents.Keys() {
		out = append(out, *v.slots[key])
	}
	return out
}

func (v *Verification) Slot(key documents.Key) (Slot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.slots[key]
	if !ok {
		return Slot{}, false
	}
	return *s, true
}

// Select checks f against the slot rules and uploads it. A failed check marks
// only this slot invalid. If the slot is cleared or reselected while the
// upload is in flight, the late result is dropped and ErrSuperseded returned.
func (v *Verification) Select(ctx context.Context, key documents.Key, f documents.File) error {
	if !v.Alive() {
		return ErrUnmounted
	}

	v.mu.Lock()
	slot, ok := v.slots[key]
	if !ok {
		v.mu.Unlock()
		return fmt.Errorf("%w: %q", documents.ErrUnknownKey, key)
	}
	if v.property == nil {
		v.mu.Unlock()
		return ErrNotLoaded
	}
	propertyID := v.property.ID.String()

	slot.generation++
	gen := slot.generation
	if err := documents.CheckFile(f.Name, f.ContentType, f.Size); err != nil {
		resetSlot(slot, SlotInvalid)
		slot.Error = err.Error()
		v.mu.Unlock()
		return err
	}
	resetSlot(slot, SlotUploading)
	slot.FileName = f.Name
	v.mu.Unlock()

	ref, err := v.api.UploadDocument(ctx, propertyID, key, f, func(sent, total int64) {
		v.progress(key, gen, sent, total)
	})

	if !v.Alive() {
		return ErrUnmounted
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if slot.generation != gen {
		return ErrSuperseded
	}
	if err != nil {
		resetSlot(slot, SlotInvalid)
		slot.Error = uploadMessage(err)
		return fmt.Errorf("upload %s: %w", key, err)
	}
	slot.State = SlotUploaded
	slot.Progress = 100
	slot.Reference = ref
	return nil
}

func (v *Verification) progress(key documents.Key, gen uint64, sent, total int64) {
	if !v.Alive() || total <= 0 {
		return
	}
	pct := int(sent * 100 / total)
	if pct > 99 {
		// 100 is reserved for a confirmed upload.
		pct = 99
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if s := v.slots[key]; s.generation == gen && s.State == SlotUploading {
		s.Progress = pct
	}
}

// Clear resets the slot to empty, discarding any selected file.
func (v *Verification) Clear(key documents.Key) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.slots[key]; ok {
		s.generation++
		resetSlot(s, SlotEmpty)
	}
}

func resetSlot(s *Slot, state SlotState) {
	s.State = state
	s.FileName = ""
	s.Progress = 0
	s.Reference = ""
	s.Error = ""
}

// CanSubmit is true only when all five slots are uploaded.
func (v *Verification) CanSubmit() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ready()
}

func (v *Verification) ready() bool {
	if v.property == nil || v.submitting {
		return false
	}
	for _, s := range v.slots {
		if s.State != SlotUploaded {
			return false
		}
	}
	return true
}

// Submit sends all five references in one call.
func (v *Verification) Submit(ctx context.Context) (Route, error) {
	if !v.Alive() {
		return "", ErrUnmounted
	}

	v.mu.Lock()
	if !v.ready() {
		v.mu.Unlock()
		return "", properties.ErrDocumentsRequired
	}
	if StateFor(v.property, false) == workflows.StateVerified {
		v.mu.Unlock()
		return "", properties.ErrInvalidState
	}
	refs := make(map[documents.Key]string, len(v.slots))
	for key, s := range v.slots {
		refs[key] = s.Reference
	}
	propertyID := v.property.ID.String()
	v.submitting = true
	v.mu.Unlock()

	p, err := v.api.SubmitVerification(ctx, propertyID, refs)
	if !v.Alive() {
		return "", ErrUnmounted
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitting = false
	if err != nil {
		return "", fmt.Errorf("submit verification: %w", err)
	}
	v.property = p
	return RouteProperties, nil
}

func uploadMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Upload failed. Please try again."
}
