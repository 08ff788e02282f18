package properties

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/D-keii/NextNation-RentSafe/internal/documents"
)

func newMockRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewRepository(gdb), mock
}

var recordColumns = []string{
	"id", "landlord_id", "landlord_name", "title", "price", "bedrooms", "bathrooms", "size",
	"photos", "amenities", "available", "status", "verification_status", "rejection_reason", "documents",
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	ref := "properties/" + id.String() + "/verification/titleDeed/x.pdf"

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "properties" WHERE id = $1 AND "properties"."deleted_at" IS NULL`)).
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(
			id.String(), "ic-900101", "Aisyah", "Studio KLCC", 2500.0, 1, 1, 450.0,
			[]byte(`["a","b","c"]`), []byte(`["gym"]`), true, "unverified", "rejected", "Blurry deed",
			[]byte(`{"titleDeed":"`+ref+`"}`),
		))

	p, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, p.ID)
	assert.Equal(t, []string{"a", "b", "c"}, p.Photos)
	assert.Equal(t, "a", p.Thumbnail())
	require.NotNil(t, p.Verification)
	assert.Equal(t, VerificationRejected, p.Verification.Status)
	assert.Equal(t, "Blurry deed", p.Verification.RejectionReason)
	assert.Equal(t, ref, p.Verification.Documents[documents.KeyTitleDeed])
	assert.Equal(t, DisplayRejected, DeriveDisplayStatus(p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_LegacyRow(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "properties"`).
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(
			id.String(), "ic-1", "Old Landlord", "Legacy flat", 900.0, 2, 1, 700.0,
			[]byte(`[]`), []byte(`[]`), true, "verified", nil, "", []byte(`{}`),
		))

	p, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, p.Verification)
	assert.Equal(t, DisplayVerified, DeriveDisplayStatus(p))
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT \* FROM "properties"`).WillReturnRows(sqlmock.NewRows(recordColumns))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_List(t *testing.T) {
	repo, mock := newMockRepository(t)
	available := true

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "properties" WHERE landlord_id = $1 AND available = $2 AND "properties"."deleted_at" IS NULL ORDER BY created_at DESC`)).
		WithArgs("ic-900101", true).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(uuid.NewString(), "ic-900101", "Aisyah", "A", 1.0, 1, 1, 1.0, []byte(`["a"]`), []byte(`[]`), true, "unverified", "pending", "", []byte(`{}`)).
			AddRow(uuid.NewString(), "ic-900101", "Aisyah", "B", 1.0, 1, 1, 1.0, []byte(`["b"]`), []byte(`[]`), true, "verified", "approved", "", []byte(`{}`)))

	list, err := repo.List(context.Background(), Filter{LandlordID: "ic-900101", Available: &available})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, DisplayVerificationPending, DeriveDisplayStatus(list[0]))
	assert.Equal(t, DisplayVerified, DeriveDisplayStatus(list[1]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateVerification(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "properties" SET .*"verification_status"=.* WHERE id = \$\d+ AND "properties"."deleted_at" IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateVerification(context.Background(), id, &Verification{
		Status:      VerificationPending,
		Documents:   map[documents.Key]string{documents.KeyTitleDeed: "ref"},
		SubmittedAt: &now,
	}, LegacyUnverified)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateVerification_Missing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "properties"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateVerification(context.Background(), uuid.New(), &Verification{Status: VerificationPending}, LegacyUnverified)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Delete_IsSoft(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "properties" SET "deleted_at"=$1 WHERE id = $2 AND "properties"."deleted_at" IS NULL`)).
		WithArgs(sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}
