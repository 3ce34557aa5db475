package server

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"blogicum/internal/models"
	"blogicum/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.CreateUser(t, env.db, "author")
	reader := testutil.CreateUser(t, env.db, "reader")
	post := testutil.CreatePost(t, env.db, author, "Open entry")
	draft := testutil.CreatePost(t, env.db, author, "Closed entry", testutil.Unpublished())
	commentURL := fmt.Sprintf("/posts/%d/comment/", post.ID)

	t.Run("anonymous is sent to login", func(t *testing.T) {
		resp := env.postForm(commentURL, url.Values{"text": {"hi"}}, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Location"), "/auth/login/")
	})

	t.Run("reader comments", func(t *testing.T) {
		resp := env.postForm(commentURL, url.Values{"text": {"  Lovely photos  "}}, reader)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), resp.Header.Get("Location"))

		var c models.Comment
		require.NoError(t, env.db.Where("post_id = ?", post.ID).First(&c).Error)
		assert.Equal(t, "Lovely photos", c.Text)
		assert.Equal(t, reader.ID, c.AuthorID)
	})

	t.Run("empty text", func(t *testing.T) {
		resp := env.postForm(commentURL, url.Values{"text": {"   "}}, reader)
		body := readBody(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "This field is required.")
	})

	t.Run("hidden post", func(t *testing.T) {
		resp := env.postForm(fmt.Sprintf("/posts/%d/comment/", draft.ID), url.Values{"text": {"peek"}}, reader)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp = env.postForm(fmt.Sprintf("/posts/%d/comment/", draft.ID), url.Values{"text": {"note to self"}}, author)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
	})
}

func TestEditComment(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.CreateUser(t, env.db, "author")
	reader := testutil.CreateUser(t, env.db, "reader")
	post := testutil.CreatePost(t, env.db, author, "Entry")
	otherPost := testutil.CreatePost(t, env.db, author, "Another entry")
	comment := testutil.CreateComment(t, env.db, reader, post, "Original")
	editURL := fmt.Sprintf("/posts/%d/edit_comment/%d/", post.ID, comment.ID)

	t.Run("owner sees the form", func(t *testing.T) {
		resp := env.get(editURL, reader)
		body := readBody(t, resp)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Original")
	})

	t.Run("post author may not edit", func(t *testing.T) {
		resp := env.postForm(editURL, url.Values{"text": {"Censored"}}, author)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), resp.Header.Get("Location"))
	})

	t.Run("comment under another post", func(t *testing.T) {
		resp := env.get(fmt.Sprintf("/posts/%d/edit_comment/%d/", otherPost.ID, comment.ID), reader)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("empty text", func(t *testing.T) {
		resp := env.postForm(editURL, url.Values{"text": {""}}, reader)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("owner saves", func(t *testing.T) {
		resp := env.postForm(editURL, url.Values{"text": {"Edited"}}, reader)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
	})

	var stored models.Comment
	require.NoError(t, env.db.First(&stored, comment.ID).Error)
	assert.Equal(t, "Edited", stored.Text)
}

func TestDeleteComment(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.CreateUser(t, env.db, "author")
	reader := testutil.CreateUser(t, env.db, "reader")
	admin := testutil.CreateUser(t, env.db, "boss")
	require.NoError(t, env.db.Model(admin).Update("is_superuser", true).Error)

	post := testutil.CreatePost(t, env.db, author, "Entry")
	mine := testutil.CreateComment(t, env.db, reader, post, "mine")
	spam := testutil.CreateComment(t, env.db, reader, post, "spam")
	deleteURL := func(c *models.Comment) string {
		return fmt.Sprintf("/posts/%d/delete_comment/%d/", post.ID, c.ID)
	}

	resp := env.get(deleteURL(mine), reader)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Delete comment")

	// The post author is not a moderator of its thread.
	resp = env.postForm(deleteURL(mine), url.Values{}, author)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	require.NoError(t, env.db.First(&models.Comment{}, mine.ID).Error)

	resp = env.postForm(deleteURL(mine), url.Values{}, reader)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.ErrorIs(t, env.db.First(&models.Comment{}, mine.ID).Error, gorm.ErrRecordNotFound)

	resp = env.postForm(deleteURL(spam), url.Values{}, admin)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.ErrorIs(t, env.db.First(&models.Comment{}, spam.ID).Error, gorm.ErrRecordNotFound)
}
