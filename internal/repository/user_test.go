package repository

import (
	"context"
	"regexp"
	"testing"

	"blogicum/internal/cache"
	"blogicum/internal/models"
	"blogicum/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		wantUsername string
		wantCode     string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email", "password"}).
					AddRow(1, "testuser", "test@example.com", "$2a$hash")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			wantUsername: "testuser",
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			wantCode: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, models.ErrorCode(err))
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.wantUsername, user.Username)
				assert.Empty(t, user.Password, "cached lookups never expose the hash")
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CreateMapsUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		wantField  string
	}{
		{"username taken", "idx_users_username", "username"},
		{"email taken", "idx_users_email", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewUserRepository(db)

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})
			mock.ExpectRollback()

			err := repo.Create(context.Background(), &models.User{Username: "dup", Email: "dup@example.com", Password: "x"})
			require.Error(t, err)
			assert.Equal(t, models.CodeConflict, models.ErrorCode(err))

			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Contains(t, appErr.Fields, tt.wantField)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_SQLiteBehaviour(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, u))

	dup := &models.User{Username: "alice", Email: "other@example.com", Password: "hash"}
	err := repo.Create(ctx, dup)
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.Password)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.True(t, models.IsNotFound(err))

	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "new-hash"))
	creds, err := repo.GetCredentials(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", creds.Password)

	u.FirstName = "Alice"
	u.Email = "alice@new.example.com"
	require.NoError(t, repo.UpdateProfile(ctx, u))
	fresh, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", fresh.FirstName)
	assert.Equal(t, "alice@new.example.com", fresh.Email)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserRepository_CacheInvalidatedOnProfileChange(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = cache.Close() })

	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "cached")
	first, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "cached", first.Username)
	assert.True(t, mr.Exists(cache.UserKey(u.ID)))
	assert.NotContains(t, mustGet(t, mr, cache.UserKey(u.ID)), "not-a-real-hash")

	u.Username = "renamed"
	require.NoError(t, repo.UpdateProfile(ctx, u))
	assert.False(t, mr.Exists(cache.UserKey(u.ID)))

	second, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", second.Username)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author")
	reader := testutil.CreateUser(t, db, "reader")
	post := testutil.CreatePost(t, db, author, "by author")
	testutil.CreateComment(t, db, reader, post, "reader on author")
	readersPost := testutil.CreatePost(t, db, reader, "by reader")
	testutil.CreateComment(t, db, author, readersPost, "author on reader")

	require.NoError(t, repo.Delete(ctx, author.ID))

	var posts, comments int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Equal(t, int64(1), posts, "only the reader's post survives")
	assert.Equal(t, int64(0), comments, "comments on the author's post and by the author are gone")

	assert.True(t, models.IsNotFound(repo.Delete(ctx, author.ID)))
}
