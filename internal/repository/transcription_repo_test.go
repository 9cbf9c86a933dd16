package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/transcriptflow/server/internal/testutil"
)

func TestTranscriptionRepository_CountSince(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTranscriptionRepository(db)
	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)

	now := time.Now()
	start := now.Add(-24 * time.Hour)
	testutil.TestTranscription(t, db, user.ID, testutil.WithTranscriptionCreatedAt(now.Add(-48*time.Hour)))
	testutil.TestTranscription(t, db, user.ID, testutil.WithTranscriptionCreatedAt(now.Add(-time.Hour)))
	testutil.TestTranscription(t, db, user.ID)
	testutil.TestTranscription(t, db, other.ID)

	count, err := repo.CountSince(user.ID, start)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestTranscriptionRepository_GetByIDForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTranscriptionRepository(db)
	owner := testutil.TestUser(t, db)
	stranger := testutil.TestUser(t, db)
	tr := testutil.TestTranscription(t, db, owner.ID)

	found, err := repo.GetByIDForUser(tr.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", found.Text)

	_, err = repo.GetByIDForUser(tr.ID, stranger.ID)
	assert.Error(t, err)
}

func TestTranscriptionRepository_ListByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTranscriptionRepository(db)
	user := testutil.TestUser(t, db)

	now := time.Now()
	for i := 0; i < 5; i++ {
		testutil.TestTranscription(t, db, user.ID,
			testutil.WithTranscriptionCreatedAt(now.Add(time.Duration(i)*time.Minute)))
	}

	list, total, err := repo.ListByUser(user.ID, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, list, 3)
	assert.True(t, !list[0].CreatedAt.Before(list[1].CreatedAt))
	// 列表不返回全文
	assert.Empty(t, list[0].Text)
}

func TestTranscriptionRepository_ObjectRefs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTranscriptionRepository(db)
	user := testutil.TestUser(t, db)
	a := testutil.TestTranscription(t, db, user.ID)
	b := testutil.TestTranscription(t, db, user.ID)

	require.NoError(t, repo.UpdateObjectRef(a.ID, "local://transcriptions/1/a.txt"))
	require.NoError(t, repo.UpdateObjectRef(b.ID, "minio://transcriptions/1/b.txt"))

	list, err := repo.ListByObjectRefPrefix("local://", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestTranscriptionRepository_DeleteForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTranscriptionRepository(db)
	owner := testutil.TestUser(t, db)
	stranger := testutil.TestUser(t, db)
	tr := testutil.TestTranscription(t, db, owner.ID)

	deleted, err := repo.DeleteForUser(tr.ID, stranger.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repo.DeleteForUser(tr.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.GetByIDForUser(tr.ID, owner.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 软删除的记录仍计入周期用量
	count, err := repo.CountSince(owner.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	deleted, err = repo.DeleteForUser(tr.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
