package wizard

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/D-keii/NextNation-RentSafe/internal/client"
	"github.com/D-keii/NextNation-RentSafe/internal/documents"
	"github.com/D-keii/NextNation-RentSafe/internal/properties"
	"github.com/D-keii/NextNation-RentSafe/pkg/workflows"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) CreateProperty(ctx context.Context, draft *properties.Draft) (*properties.Property, error) {
	args := m.Called(ctx, draft)
	if fn, ok := args.Get(0).(func(context.Context, *properties.Draft) *properties.Property); ok {
		return fn(ctx, draft), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*properties.Property), args.Error(1)
}

func (m *MockAPI) UpdateProperty(ctx context.Context, id string, draft *properties.Draft) (*properties.Property, error) {
	args := m.Called(ctx, id, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*properties.Property), args.Error(1)
}

func (m *MockAPI) GetProperty(ctx context.Context, id string) (*properties.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*properties.Property), args.Error(1)
}

func (m *MockAPI) UploadDocument(ctx context.Context, propertyID string, key documents.Key, f documents.File, progress client.ProgressFunc) (string, error) {
	args := m.Called(ctx, propertyID, key, f.Name, progress)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) SubmitVerification(ctx context.Context, id string, docs map[documents.Key]string) (*properties.Property, error) {
	args := m.Called(ctx, id, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*properties.Property), args.Error(1)
}

var landlord = client.Session{Token: "tok", UserID: "landlord-1", Name: "Aisyah"}

func studioForm() properties.DraftForm {
	return properties.DraftForm{
		Title:       "Studio KLCC",
		Description: "Cosy studio near the towers",
		Address:     "1 Jalan Ampang",
		City:        "Kuala Lumpur",
		State:       "Wilayah Persekutuan",
		Price:       "2500",
		Bedrooms:    "1",
		Bathrooms:   "1",
		Size:        "450",
		Available:   true,
	}
}

func pdf(name string) documents.File {
	body := []byte("%PDF-1.4 test")
	return documents.File{Name: name, ContentType: "application/pdf", Size: int64(len(body)), Body: bytes.NewReader(body)}
}

func existing(status *properties.Verification, legacy properties.LegacyStatus) *properties.Property {
	return &properties.Property{
		ID:           uuid.New(),
		LandlordID:   landlord.UserID,
		Title:        "Old title",
		Description:  "desc",
		Address:      "addr",
		City:         "KL",
		State:        "WP",
		Price:        1800,
		Bedrooms:     2,
		Bathrooms:    1,
		Size:         700,
		Photos:       []string{"a", "b", "c"},
		Status:       legacy,
		Verification: status,
	}
}

func TestStateFor(t *testing.T) {
	tests := []struct {
		name    string
		p       *properties.Property
		editing bool
		want    workflows.State
	}{
		{"new listing", nil, false, workflows.StateEditingUnlocked},
		{"edit verified", existing(&properties.Verification{Status: properties.VerificationApproved}, properties.LegacyVerified), true, workflows.StateEditingUnlocked},
		{"edit legacy verified", existing(nil, properties.LegacyVerified), true, workflows.StateEditingUnlocked},
		{"edit pending", existing(&properties.Verification{Status: properties.VerificationPending}, properties.LegacyUnverified), true, workflows.StateEditingLocked},
		{"edit rejected", existing(&properties.Verification{Status: properties.VerificationRejected}, properties.LegacyUnverified), true, workflows.StateEditingLocked},
		{"view pending", existing(&properties.Verification{Status: properties.VerificationPending}, properties.LegacyUnverified), false, workflows.StateAwaitingVerification},
		{"view rejected", existing(&properties.Verification{Status: properties.VerificationRejected}, properties.LegacyUnverified), false, workflows.StateRejected},
		{"view verified", existing(&properties.Verification{Status: properties.VerificationApproved}, properties.LegacyVerified), false, workflows.StateVerified},
		{"view unverified", existing(nil, properties.LegacyUnverified), false, workflows.StateEditingLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateFor(tt.p, tt.editing))
		})
	}
}

func TestDetails_Photos(t *testing.T) {
	d := NewDetails(new(MockAPI), landlord, nil)

	d.AddPhotos("a", "b")
	d.AddPhotos("c", "d")
	assert.Equal(t, []string{"a", "b", "c", "d"}, d.Photos())

	require.NoError(t, d.RemovePhoto(1))
	assert.Equal(t, []string{"a", "c", "d"}, d.Photos())

	assert.ErrorIs(t, d.RemovePhoto(3), ErrPhotoIndex)
	assert.ErrorIs(t, d.RemovePhoto(-1), ErrPhotoIndex)
	assert.Equal(t, []string{"a", "c", "d"}, d.Photos())
}

func TestDetails_SubmitNeedsThreePhotos(t *testing.T) {
	api := new(MockAPI)
	d := NewDetails(api, landlord, nil)
	d.AddPhotos("a", "b")

	form := properties.DraftForm{
		Title: "Test", Description: "Test desc", Address: "1 Jalan Test", City: "KL", State: "WP",
		Price: "2000", Bedrooms: "2", Bathrooms: "1", Size: "800",
	}
	_, err := d.Submit(context.Background(), form)

	require.Error(t, err)
	assert.ErrorIs(t, err, properties.ErrValidation)
	assert.Contains(t, err.Error(), "at least 3 photos")
	assert.Contains(t, d.FieldErrors(), "photos")
	api.AssertNotCalled(t, "CreateProperty", mock.Anything, mock.Anything)
}

func TestDetails_LockedWhenNotVerified(t *testing.T) {
	for _, v := range []*properties.Verification{
		{Status: properties.VerificationPending},
		{Status: properties.VerificationRejected, RejectionReason: "blurry"},
		nil,
	} {
		api := new(MockAPI)
		p := existing(v, properties.LegacyUnverified)
		d := NewDetails(api, landlord, p)

		assert.True(t, d.Locked())
		_, err := d.Submit(context.Background(), properties.FormFrom(p))
		assert.ErrorIs(t, err, properties.ErrVerificationRequired)
		api.AssertNotCalled(t, "UpdateProperty", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestDetails_EditVerified(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	p := existing(&properties.Verification{Status: properties.VerificationApproved}, properties.LegacyVerified)
	d := NewDetails(api, landlord, p)
	require.False(t, d.Locked())
	assert.Equal(t, []string{"a", "b", "c"}, d.Photos())

	form := d.Form()
	form.Title = "New title"

	updated := *p
	updated.Title = "New title"
	api.On("UpdateProperty", ctx, p.ID.String(), mock.MatchedBy(func(dr *properties.Draft) bool {
		return dr.Title == "New title" && len(dr.Photos) == 3
	})).Return(&updated, nil).Once()

	out, err := d.Submit(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, RouteProperties, out.Next)
	assert.Nil(t, out.HandOff)
	api.AssertExpectations(t)
}

func TestDetails_EditOtherLandlord(t *testing.T) {
	api := new(MockAPI)
	p := existing(&properties.Verification{Status: properties.VerificationApproved}, properties.LegacyVerified)
	p.LandlordID = "someone-else"
	d := NewDetails(api, landlord, p)

	_, err := d.Submit(context.Background(), d.Form())
	assert.ErrorIs(t, err, properties.ErrForbidden)
	api.AssertNotCalled(t, "UpdateProperty", mock.Anything, mock.Anything, mock.Anything)
}

func TestDetails_CreateBackendError(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	boom := errors.New("connection refused")
	api.On("CreateProperty", ctx, mock.Anything).Return(nil, boom).Once()

	d := NewDetails(api, landlord, nil)
	d.AddPhotos("a", "b", "c")
	out, err := d.Submit(ctx, studioForm())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Outcome{}, out)
}

// Step one creates the listing and hands the result to step two, which
// renders it without fetching.
func TestHandOff_RoundTrip(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	id := uuid.New()

	api.On("CreateProperty", ctx, mock.Anything).Return(func(_ context.Context, dr *properties.Draft) *properties.Property {
		return &properties.Property{
			ID:           id,
			LandlordID:   landlord.UserID,
			Title:        dr.Title,
			Price:        dr.Price,
			Bedrooms:     dr.Bedrooms,
			Bathrooms:    dr.Bathrooms,
			Size:         dr.Size,
			Photos:       dr.Photos,
			Status:       properties.LegacyUnverified,
			Verification: &properties.Verification{Status: properties.VerificationPending},
		}
	}, nil).Once()

	d := NewDetails(api, landlord, nil)
	d.AddPhotos("a", "b", "c")
	out, err := d.Submit(ctx, studioForm())
	require.NoError(t, err)
	assert.Equal(t, RouteVerification, out.Next)
	require.NotNil(t, out.HandOff)
	assert.True(t, out.HandOff.FromDetails)
	assert.Equal(t, id.String(), out.HandOff.PropertyID)

	v := NewVerification(api)
	require.NoError(t, v.Load(ctx, out.HandOff, id.String()))
	api.AssertNotCalled(t, "GetProperty", mock.Anything, mock.Anything)

	p := v.Property()
	assert.Equal(t, "Studio KLCC", p.Title)
	assert.Equal(t, 2500.0, p.Price)
	assert.Equal(t, 1, p.Bedrooms)
	assert.Equal(t, 1, p.Bathrooms)
	assert.Equal(t, 450.0, p.Size)
	assert.Equal(t, []string{"a", "b", "c"}, p.Photos)
	assert.Contains(t,
		[]properties.DisplayStatus{properties.DisplayUnverified, properties.DisplayVerificationPending},
		properties.DeriveDisplayStatus(p))
	assert.Equal(t, workflows.StateAwaitingVerification, v.State())
}

func TestVerification_LoadFetchesWithoutHandOff(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	p := existing(&properties.Verification{Status: properties.VerificationRejected, RejectionReason: "Title deed is unreadable"}, properties.LegacyUnverified)
	api.On("GetProperty", ctx, p.ID.String()).Return(p, nil).Once()

	v := NewVerification(api)
	require.NoError(t, v.Load(ctx, nil, p.ID.String()))
	assert.Equal(t, p, v.Property())
	assert.Equal(t, "Title deed is unreadable", v.RejectionReason())
	api.AssertExpectations(t)

	// A hand-off without a draft counts as absent.
	api.On("GetProperty", ctx, p.ID.String()).Return(p, nil).Once()
	v = NewVerification(api)
	require.NoError(t, v.Load(ctx, &HandOff{FromDetails: true, PropertyID: p.ID.String()}, ""))
	api.AssertExpectations(t)
}

func TestVerification_LoadNotFound(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	api.On("GetProperty", ctx, "missing").Return(nil, errors.New("404")).Once()

	v := NewVerification(api)
	assert.ErrorIs(t, v.Load(ctx, nil, "missing"), ErrPropertyNotFound)
	assert.Nil(t, v.Property())
	assert.ErrorIs(t, NewVerification(api).Load(ctx, nil, ""), ErrPropertyNotFound)
}

func loaded(t *testing.T, api *MockAPI) (*Verification, *properties.Property) {
	t.Helper()
	p := existing(&properties.Verification{Status: properties.VerificationPending}, properties.LegacyUnverified)
	v := NewVerification(api)
	require.NoError(t, v.Load(context.Background(), &HandOff{FromDetails: true, PropertyID: p.ID.String(), Draft: p}, ""))
	return v, p
}

func TestVerification_SlotsAreIndependent(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	v, p := loaded(t, api)
	api.On("UploadDocument", ctx, p.ID.String(), documents.KeyTitleDeed, "deed.pdf", mock.Anything).Return("ref-deed", nil).Once()

	require.NoError(t, v.Select(ctx, documents.KeyTitleDeed, pdf("deed.pdf")))

	docx := documents.File{Name: "rent.docx", ContentType: "application/pdf", Size: 10, Body: bytes.NewReader(make([]byte, 10))}
	err := v.Select(ctx, documents.KeyQuitRent, docx)
	assert.ErrorIs(t, err, documents.ErrFileType)

	big := documents.File{Name: "bill.png", ContentType: "image/png", Size: 10<<20 + 1, Body: bytes.NewReader(nil)}
	assert.ErrorIs(t, v.Select(ctx, documents.KeyUtilityBill, big), documents.ErrFileSize)

	deed, _ := v.Slot(documents.KeyTitleDeed)
	assert.Equal(t, SlotUploaded, deed.State)
	assert.Equal(t, "ref-deed", deed.Reference)
	assert.Equal(t, 100, deed.Progress)

	quit, _ := v.Slot(documents.KeyQuitRent)
	assert.Equal(t, SlotInvalid, quit.State)
	assert.Equal(t, "Only PDF, JPG, or PNG files are allowed.", quit.Error)

	bill, _ := v.Slot(documents.KeyUtilityBill)
	assert.Equal(t, SlotInvalid, bill.State)
	assert.Equal(t, "File size must be 10MB or less.", bill.Error)

	spa, _ := v.Slot(documents.KeySPAAgreement)
	assert.Equal(t, SlotEmpty, spa.State)

	api.AssertNumberOfCalls(t, "UploadDocument", 1)
}

func TestVerification_ProgressAndClear(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	v, p := loaded(t, api)

	api.On("UploadDocument", ctx, p.ID.String(), documents.KeySPAAgreement, "spa.pdf", mock.Anything).
		Run(func(args mock.Arguments) {
			progress := args.Get(4).(client.ProgressFunc)
			progress(50, 100)
			s, _ := v.Slot(documents.KeySPAAgreement)
			assert.Equal(t, SlotUploading, s.State)
			assert.Equal(t, 50, s.Progress)
			progress(100, 100)
			s, _ = v.Slot(documents.KeySPAAgreement)
			assert.Equal(t, 99, s.Progress)
		}).Return("ref-spa", nil).Once()

	require.NoError(t, v.Select(ctx, documents.KeySPAAgreement, pdf("spa.pdf")))
	v.Clear(documents.KeySPAAgreement)

	s, _ := v.Slot(documents.KeySPAAgreement)
	assert.Equal(t, SlotEmpty, s.State)
	assert.Empty(t, s.Reference)
	assert.Empty(t, s.FileName)
}

func TestVerification_ClearDuringUploadDiscardsResult(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	v, p := loaded(t, api)

	api.On("UploadDocument", ctx, p.ID.String(), documents.KeyTitleDeed, "deed.pdf", mock.Anything).
		Run(func(mock.Arguments) { v.Clear(documents.KeyTitleDeed) }).
		Return("late-ref", nil).Once()

	assert.ErrorIs(t, v.Select(ctx, documents.KeyTitleDeed, pdf("deed.pdf")), ErrSuperseded)
	s, _ := v.Slot(documents.KeyTitleDeed)
	assert.Equal(t, SlotEmpty, s.State)
	assert.Empty(t, s.Reference)
}

func TestVerification_UploadFailureMarksSlot(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	v, _ := loaded(t, api)
	apiErr := &client.APIError{Status: 400, Code: "file_type", Message: "Only PDF, JPG, or PNG files are allowed."}
	api.On("UploadDocument", ctx, mock.Anything, documents.KeyTitleDeed, "deed.pdf", mock.Anything).Return("", apiErr).Once()

	err := v.Select(ctx, documents.KeyTitleDeed, pdf("deed.pdf"))
	assert.ErrorIs(t, err, documents.ErrFileType)
	s, _ := v.Slot(documents.KeyTitleDeed)
	assert.Equal(t, SlotInvalid, s.State)
	assert.Equal(t, apiErr.Message, s.Error)
}

func uploadAll(t *testing.T, ctx context.Context, api *MockAPI, v *Verification, keys ...documents.Key) map[documents.Key]string {
	t.Helper()
	refs := make(map[documents.Key]string)
	for _, key := range keys {
		name := string(key) + ".pdf"
		refs[key] = "ref-" + string(key)
		api.On("UploadDocument", ctx, mock.Anything, key, name, mock.Anything).Return(refs[key], nil).Once()
		require.NoError(t, v.Select(ctx, key, pdf(name)))
	}
	return refs
}

func TestVerification_SubmitRequiresAllFive(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	v, _ := loaded(t, api)
	uploadAll(t, ctx, api, v, documents.Keys()[:4]...)

	assert.False(t, v.CanSubmit())
	_, err := v.Submit(ctx)
	assert.ErrorIs(t, err, properties.ErrDocumentsRequired)
	assert.Equal(t, "documents required", err.Error())
	api.AssertNotCalled(t, "SubmitVerification", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerification_Submit(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	v, p := loaded(t, api)
	refs := uploadAll(t, ctx, api, v, documents.Keys()...)
	require.True(t, v.CanSubmit())

	submitted := *p
	submitted.Verification = &properties.Verification{Status: properties.VerificationPending, Documents: refs}
	api.On("SubmitVerification", ctx, p.ID.String(), refs).Return(&submitted, nil).Once()

	route, err := v.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, RouteProperties, route)
	assert.Equal(t, refs, v.Property().Verification.Documents)
	api.AssertExpectations(t)
}

func TestVerification_SubmitFailureKeepsSlots(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	v, p := loaded(t, api)
	refs := uploadAll(t, ctx, api, v, documents.Keys()...)
	api.On("SubmitVerification", ctx, p.ID.String(), refs).Return(nil, errors.New("timeout")).Once()

	_, err := v.Submit(ctx)
	require.Error(t, err)
	assert.True(t, v.CanSubmit())
	assert.Equal(t, p, v.Property())
}

func TestLifecycle_LateResultsDiscarded(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	p := existing(&properties.Verification{Status: properties.VerificationPending}, properties.LegacyUnverified)

	v := NewVerification(api)
	api.On("GetProperty", ctx, p.ID.String()).Run(func(mock.Arguments) { v.Unmount() }).Return(p, nil).Once()

	assert.ErrorIs(t, v.Load(ctx, nil, p.ID.String()), ErrUnmounted)
	assert.Nil(t, v.Property())

	// Nothing runs once unmounted.
	assert.ErrorIs(t, v.Select(ctx, documents.KeyTitleDeed, pdf("deed.pdf")), ErrUnmounted)
	_, err := v.Submit(ctx)
	assert.ErrorIs(t, err, ErrUnmounted)

	d := NewDetails(api, landlord, nil)
	d.AddPhotos("a", "b", "c")
	api.On("CreateProperty", ctx, mock.Anything).Run(func(mock.Arguments) { d.Unmount() }).Return(p, nil).Once()
	out, err := d.Submit(ctx, studioForm())
	assert.ErrorIs(t, err, ErrUnmounted)
	assert.Nil(t, out.HandOff)
}
