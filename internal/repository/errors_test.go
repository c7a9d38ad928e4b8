package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"clanhub/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(ErrStale), ErrStale)

	notFound := models.NewNotFoundError("Clan", 1)
	assert.Same(t, notFound, translate(notFound))

	assert.True(t, models.HasCode(translate(&pgconn.PgError{Code: pgUniqueViolation}), models.CodeConflict))
	assert.True(t, models.HasCode(translate(gorm.ErrDuplicatedKey), models.CodeConflict))
	assert.True(t, models.HasCode(translate(errors.New("UNIQUE constraint failed: clans.name")), models.CodeConflict))

	unavailable := translate(errors.New("dial tcp: connection refused"))
	assert.True(t, models.HasCode(unavailable, models.CodeStoreUnavailable))
	assert.True(t, models.HasCode(notFoundOr(gorm.ErrRecordNotFound, "Clan", 1), models.CodeNotFound))
}

func TestClanRepository_StoreUnavailable(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClanRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "clans"`)).
		WillReturnError(errors.New("server closed the connection unexpectedly"))

	_, err := repo.GetByID(context.Background(), 7)
	assert.True(t, models.HasCode(err, models.CodeStoreUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClanRepository_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewClanRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "clans"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 7)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinRequestRepository_UniqueViolationIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewJoinRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "clan_join_requests"`)).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "idx_join_requests_one_active"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.ClanJoinRequest{UserID: 1, ClanID: 2, Status: models.JoinRequestStatusSubmitted, AllowAnotherApplication: true})
	assert.True(t, models.HasCode(err, models.CodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinRequestRepository_TransitionGuard(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewJoinRequestRepository(db)
	review := JoinRequestReview{ReviewerID: 3, AllowAnotherApplication: true, At: time.Now()}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "clan_join_requests" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	err := repo.Transition(context.Background(), 9, models.JoinRequestStatusSubmitted, models.JoinRequestStatusAccepted, review)
	assert.ErrorIs(t, err, ErrStale)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "clan_join_requests" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err = repo.Transition(context.Background(), 9, models.JoinRequestStatusSubmitted, models.JoinRequestStatusAccepted, review)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
