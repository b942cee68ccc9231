package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campusmetrics/clo-api/internal/models"
)

func TestBatchRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec(`INSERT INTO import_batches`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	batch := &models.ImportBatch{
		InstitutionShortName: "nvcc",
		ActorID:              "usr-1",
		AdapterID:            "clo-bundle",
		FileName:             "spring.zip",
		Strategy:             models.StrategyMerge,
	}
	require.NoError(t, repo.Create(context.Background(), batch))
	require.NotEmpty(t, batch.ID)
	require.Equal(t, models.BatchReceived, batch.State)
	require.False(t, batch.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	rows := sqlmock.NewRows([]string{"id", "institution_short_name", "actor_id", "adapter_id", "file_name", "strategy", "dry_run", "state",
		"records_processed", "created", "updated", "skipped", "conflicts_detected", "breakdown", "errors", "created_at", "completed_at"}).
		AddRow("batch-1", "nvcc", "usr-1", "clo-bundle", "spring.zip", "merge", false, "COMPLETED",
			9, 9, 0, 0, 0, []byte(`{}`), []byte(`[]`), time.Now(), time.Now())
	mock.ExpectQuery(`SELECT .+ FROM import_batches WHERE id = \$1`).
		WithArgs("batch-1").
		WillReturnRows(rows)

	batch, err := repo.FindByID(context.Background(), "batch-1")
	require.NoError(t, err)
	require.NotNil(t, batch)
	require.Equal(t, models.BatchCompleted, batch.State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepositoryResolveReviewAlreadyResolved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBatchRepository(db)

	mock.ExpectExec(`UPDATE pending_reviews SET status = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ResolveReview(context.Background(), "rev-1", "usr-1", models.StrategyUseTheirs)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
