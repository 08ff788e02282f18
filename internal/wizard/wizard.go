// Package wizard drives the two-step listing flow: property details, then
// ownership verification. Steps talk to the backend through API and hand
// in-memory data to each other through HandOff.
package wizard

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/D-keii/NextNation-RentSafe/internal/client"
	"github.com/D-keii/NextNation-RentSafe/internal/documents"
	"github.com/D-keii/NextNation-RentSafe/internal/properties"
	"github.com/D-keii/NextNation-RentSafe/pkg/workflows"
)

// API is the subset of the REST client the wizard needs.
type API interface {
	CreateProperty(ctx context.Context, draft *properties.Draft) (*properties.Property, error)
	UpdateProperty(ctx context.Context, id string, draft *properties.Draft) (*properties.Property, error)
	GetProperty(ctx context.Context, id string) (*properties.Property, error)
	UploadDocument(ctx context.Context, propertyID string, key documents.Key, f documents.File, progress client.ProgressFunc) (string, error)
	SubmitVerification(ctx context.Context, id string, docs map[documents.Key]string) (*properties.Property, error)
}

var _ API = (*client.Client)(nil)

// Route is where the surrounding navigation should go next.
type Route string

const (
	RouteProperties   Route = "/properties"
	RouteVerification Route = "/properties/verification"
)

var (
	// ErrUnmounted is returned when a step finished an async call after it
	// was unmounted. The result has been discarded.
	ErrUnmounted        = errors.New("wizard step is no longer mounted")
	ErrPhotoIndex       = errors.New("photo index out of range")
	ErrPropertyNotFound = errors.New("Property not found")
	ErrNotLoaded        = errors.New("property not loaded")
	ErrSuperseded       = errors.New("upload superseded")
)

// HandOff is the transient state step one attaches to its navigation.
type HandOff struct {
	FromDetails bool                 `json:"fromAddProperty"`
	PropertyID  string               `json:"propertyId"`
	Draft       *properties.Property `json:"propertyDraft,omitempty"`
}

func (h *HandOff) usable() bool {
	return h != nil && h.Draft != nil
}

// Lifecycle tracks whether a step is still mounted.
type Lifecycle struct {
	unmounted atomic.Bool
}

func (l *Lifecycle) Alive() bool { return !l.unmounted.Load() }

// Unmount marks the step disposed. Results of calls still in flight are
// dropped when they return.
func (l *Lifecycle) Unmount() { l.unmounted.Store(true) }

// StateFor places a property in the wizard state machine. A nil property is a
// brand-new listing.
func StateFor(p *properties.Property, editing bool) workflows.State {
	if p == nil {
		return workflows.StateEditingUnlocked
	}
	status := properties.DeriveDisplayStatus(p)
	if editing {
		if status == properties.DisplayVerified {
			return workflows.StateEditingUnlocked
		}
		return workflows.StateEditingLocked
	}
	switch status {
	case properties.DisplayVerified:
		return workflows.StateVerified
	case properties.DisplayRejected:
		return workflows.StateRejected
	case properties.DisplayVerificationPending:
		return workflows.StateAwaitingVerification
	default:
		return workflows.StateEditingLocked
	}
}

var machine = workflows.NewStateMachine()
