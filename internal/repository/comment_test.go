package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"blogicum/internal/models"
	"blogicum/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	comment := &models.Comment{Text: "Nice post", AuthorID: 2, PostID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "comments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), comment))
	assert.Equal(t, uint(1), comment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ListByPost(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments" WHERE post_id = $1 ORDER BY created_at ASC, id ASC`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "author_id", "post_id"}).
			AddRow(1, "Comment 1", 101, 1).
			AddRow(2, "Comment 2", 102, 1))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" IN ($1,$2)`)).
		WithArgs(101, 102).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).
			AddRow(101, "user101").
			AddRow(102, "user102"))

	comments, err := repo.ListByPost(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "Comment 1", comments[0].Text)
	assert.Equal(t, "user102", comments[1].Author.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_Lifecycle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author")
	reader := testutil.CreateUser(t, db, "reader")
	post := testutil.CreatePost(t, db, author, "thread")
	other := testutil.CreatePost(t, db, author, "elsewhere")

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	for i, text := range []string{"first", "second", "third"} {
		c := &models.Comment{Text: text, AuthorID: reader.ID, PostID: post.ID, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx, c))
	}
	// Same instant as "first"; the id breaks the tie.
	require.NoError(t, repo.Create(ctx, &models.Comment{Text: "tied", AuthorID: author.ID, PostID: post.ID, CreatedAt: base}))
	testutil.CreateComment(t, db, reader, other, "noise")

	comments, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	var texts []string
	for _, c := range comments {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"first", "tied", "second", "third"}, texts)
	require.NotNil(t, comments[1].Author)
	assert.Equal(t, "author", comments[1].Author.Username)

	target := comments[0]
	require.NoError(t, repo.UpdateText(ctx, target.ID, "first, edited"))
	got, err := repo.GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "first, edited", got.Text)
	assert.Equal(t, post.ID, got.PostID)
	assert.True(t, got.CreatedAt.Equal(target.CreatedAt), "editing keeps the original timestamp")

	require.NoError(t, repo.Delete(ctx, target.ID))
	_, err = repo.GetByID(ctx, target.ID)
	assert.True(t, models.IsNotFound(err))
	assert.True(t, models.IsNotFound(repo.Delete(ctx, target.ID)))
	assert.True(t, models.IsNotFound(repo.UpdateText(ctx, target.ID, "gone")))
}
