package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"danceforchange/errs"
	"danceforchange/models"
	"danceforchange/websocket"
)

// Mock structs
type mockStore struct {
	CreatePostFunc  func(ctx context.Context, authorID primitive.ObjectID, text, category string, anonymous bool) (*models.Post, error)
	GetAllPostsFunc func(ctx context.Context) ([]models.Post, error)
	GetPostFunc     func(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	DeletePostFunc  func(ctx context.Context, id primitive.ObjectID) error
	ReactFunc       func(ctx context.Context, postID, userID primitive.ObjectID, rtype string) (*models.Post, error)
	CommentFunc     func(ctx context.Context, postID, userID primitive.ObjectID, text string) (*models.Post, error)
}

func (m *mockStore) CreatePost(ctx context.Context, authorID primitive.ObjectID, text, category string, anonymous bool) (*models.Post, error) {
	if m.CreatePostFunc != nil {
		return m.CreatePostFunc(ctx, authorID, text, category, anonymous)
	}
	return &models.Post{ID: primitive.NewObjectID(), Text: text, Category: category, Anonymous: anonymous, AuthorID: authorID}, nil
}

func (m *mockStore) GetAllPosts(ctx context.Context) ([]models.Post, error) {
	if m.GetAllPostsFunc != nil {
		return m.GetAllPostsFunc(ctx)
	}
	return []models.Post{}, nil
}

func (m *mockStore) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	if m.GetPostFunc != nil {
		return m.GetPostFunc(ctx, id)
	}
	return &models.Post{ID: id}, nil
}

func (m *mockStore) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	if m.DeletePostFunc != nil {
		return m.DeletePostFunc(ctx, id)
	}
	return nil
}

func (m *mockStore) React(ctx context.Context, postID, userID primitive.ObjectID, rtype string) (*models.Post, error) {
	if m.ReactFunc != nil {
		return m.ReactFunc(ctx, postID, userID, rtype)
	}
	return &models.Post{ID: postID}, nil
}

func (m *mockStore) Comment(ctx context.Context, postID, userID primitive.ObjectID, text string) (*models.Post, error) {
	if m.CommentFunc != nil {
		return m.CommentFunc(ctx, postID, userID, text)
	}
	return &models.Post{ID: postID}, nil
}

type published struct {
	room    string
	event   string
	payload interface{}
}

type recordingHub struct {
	events []published
}

func (r *recordingHub) Publish(room, event string, payload interface{}) {
	r.events = append(r.events, published{room, event, payload})
}

func newTestRouter(t *testing.T, store PostStore, hub Broadcaster, userID primitive.ObjectID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h, err := NewMindTalk(store, hub, nil)
	require.NoError(t, err)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", userID.Hex())
	})
	r.GET("/api/mindtalk", h.GetAllPosts)
	r.POST("/api/mindtalk", h.CreatePost)
	r.POST("/api/mindtalk/:id/reactions", h.AddReaction)
	r.POST("/api/mindtalk/:id/comments", h.AddComment)
	r.DELETE("/api/mindtalk/:id", h.DeletePost)
	return r
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestNewMindTalkRequiresCollaborators(t *testing.T) {
	var notInit *errs.NotInitializedError

	_, err := NewMindTalk(nil, &recordingHub{}, nil)
	assert.ErrorAs(t, err, &notInit)

	_, err = NewMindTalk(&mockStore{}, nil, nil)
	assert.ErrorAs(t, err, &notInit)

	h, err := NewMindTalk(&mockStore{}, &recordingHub{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestGetAllPostsRedactsAnonymousAuthors(t *testing.T) {
	authorID := primitive.NewObjectID()
	store := &mockStore{
		GetAllPostsFunc: func(ctx context.Context) ([]models.Post, error) {
			return []models.Post{
				{
					ID:        primitive.NewObjectID(),
					Text:      "anon post",
					Anonymous: true,
					AuthorID:  authorID,
					Author:    &models.UserRef{ID: authorID, Name: "Sarah Johnson"},
				},
				{
					ID:        primitive.NewObjectID(),
					Text:      "named post",
					Anonymous: false,
					AuthorID:  authorID,
					Author:    &models.UserRef{ID: authorID, Name: "Sarah Johnson"},
				},
			}, nil
		},
	}
	router := newTestRouter(t, store, &recordingHub{}, primitive.NewObjectID())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/mindtalk", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])

	posts := body["posts"].([]interface{})
	require.Len(t, posts, 2)

	anon := posts[0].(map[string]interface{})
	assert.Nil(t, anon["author"])
	_, hasAuthorID := anon["authorId"]
	assert.False(t, hasAuthorID)

	named := posts[1].(map[string]interface{})
	require.NotNil(t, named["author"])
	assert.Equal(t, "Sarah Johnson", named["author"].(map[string]interface{})["name"])
}

func TestCreatePostBroadcastsSanitizedPost(t *testing.T) {
	userID := primitive.NewObjectID()
	var gotAnonymous bool
	var gotCategory string

	store := &mockStore{
		CreatePostFunc: func(ctx context.Context, authorID primitive.ObjectID, text, category string, anonymous bool) (*models.Post, error) {
			gotAnonymous = anonymous
			gotCategory = category
			return &models.Post{
				ID:        primitive.NewObjectID(),
				Text:      text,
				Category:  models.CategoryStress,
				Anonymous: anonymous,
				AuthorID:  authorID,
				Author:    &models.UserRef{ID: authorID, Name: "Sarah Johnson"},
			}, nil
		},
	}
	hub := &recordingHub{}
	router := newTestRouter(t, store, hub, userID)

	payload := []byte(`{"text":"hello","category":"stress"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/mindtalk", bytes.NewBuffer(payload)))

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.True(t, gotAnonymous, "anonymous defaults to true when omitted")
	assert.Equal(t, "stress", gotCategory)

	body := decodeBody(t, rr)
	post := body["post"].(map[string]interface{})
	assert.Equal(t, "stress", post["category"])
	assert.Nil(t, post["author"], "anonymous post must not expose its author")

	require.Len(t, hub.events, 1)
	assert.Equal(t, websocket.RoomMindTalk, hub.events[0].room)
	assert.Equal(t, websocket.EventNewPost, hub.events[0].event)

	broadcast := hub.events[0].payload.(models.Post)
	assert.Nil(t, broadcast.Author, "broadcast path must be visibility-filtered too")
	assert.Equal(t, primitive.NilObjectID, broadcast.AuthorID)
}

func TestCreatePostValidationFailureDoesNotBroadcast(t *testing.T) {
	store := &mockStore{
		CreatePostFunc: func(ctx context.Context, authorID primitive.ObjectID, text, category string, anonymous bool) (*models.Post, error) {
			return nil, &errs.ValidationError{Message: "Post text is required"}
		},
	}
	hub := &recordingHub{}
	router := newTestRouter(t, store, hub, primitive.NewObjectID())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/mindtalk", strings.NewReader(`{"text":""}`)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Post text is required", body["message"])
	assert.Empty(t, hub.events, "failed mutations must not fan out")
}

func TestAddReactionBroadcastsUpdate(t *testing.T) {
	userID := primitive.NewObjectID()
	postID := primitive.NewObjectID()

	store := &mockStore{
		ReactFunc: func(ctx context.Context, gotPost, gotUser primitive.ObjectID, rtype string) (*models.Post, error) {
			assert.Equal(t, postID, gotPost)
			assert.Equal(t, userID, gotUser)
			return &models.Post{
				ID:        postID,
				Anonymous: true,
				Reactions: []models.Reaction{{UserID: gotUser, Type: rtype}},
			}, nil
		},
	}
	hub := &recordingHub{}
	router := newTestRouter(t, store, hub, userID)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/mindtalk/"+postID.Hex()+"/reactions", strings.NewReader(`{"type":"love"}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, hub.events, 1)
	assert.Equal(t, websocket.EventPostUpdated, hub.events[0].event)
}

func TestAddReactionUnknownPost(t *testing.T) {
	store := &mockStore{
		ReactFunc: func(ctx context.Context, postID, userID primitive.ObjectID, rtype string) (*models.Post, error) {
			return nil, &errs.NotFoundError{Resource: "Post"}
		},
	}
	hub := &recordingHub{}
	router := newTestRouter(t, store, hub, primitive.NewObjectID())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/mindtalk/"+primitive.NewObjectID().Hex()+"/reactions", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, hub.events)
}

func TestAddReactionMalformedID(t *testing.T) {
	router := newTestRouter(t, &mockStore{}, &recordingHub{}, primitive.NewObjectID())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/mindtalk/not-an-id/reactions", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddCommentBroadcastsUpdate(t *testing.T) {
	userID := primitive.NewObjectID()
	postID := primitive.NewObjectID()

	store := &mockStore{
		CommentFunc: func(ctx context.Context, gotPost, gotUser primitive.ObjectID, text string) (*models.Post, error) {
			return &models.Post{
				ID:       postID,
				Comments: []models.Comment{{UserID: gotUser, Text: text}},
			}, nil
		},
	}
	hub := &recordingHub{}
	router := newTestRouter(t, store, hub, userID)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/mindtalk/"+postID.Hex()+"/comments", strings.NewReader(`{"text":"stay strong"}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	post := body["post"].(map[string]interface{})
	comments := post["comments"].([]interface{})
	require.Len(t, comments, 1)

	require.Len(t, hub.events, 1)
	assert.Equal(t, websocket.EventPostUpdated, hub.events[0].event)
}

func TestAddCommentValidationFailure(t *testing.T) {
	store := &mockStore{
		CommentFunc: func(ctx context.Context, postID, userID primitive.ObjectID, text string) (*models.Post, error) {
			return nil, &errs.ValidationError{Message: "Comment text exceeds 500 characters"}
		},
	}
	hub := &recordingHub{}
	router := newTestRouter(t, store, hub, primitive.NewObjectID())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/mindtalk/"+primitive.NewObjectID().Hex()+"/comments", strings.NewReader(`{"text":"x"}`)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, hub.events)
}

func TestDeletePostBroadcastsID(t *testing.T) {
	postID := primitive.NewObjectID()
	hub := &recordingHub{}
	router := newTestRouter(t, &mockStore{}, hub, primitive.NewObjectID())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/mindtalk/"+postID.Hex(), nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, hub.events, 1)
	assert.Equal(t, websocket.EventPostDeleted, hub.events[0].event)

	payload := hub.events[0].payload.(gin.H)
	assert.Equal(t, postID.Hex(), payload["id"])
}

func TestStoreFailureHidesDetails(t *testing.T) {
	store := &mockStore{
		GetAllPostsFunc: func(ctx context.Context) ([]models.Post, error) {
			return nil, &errs.StoreError{Op: "find posts", Err: assert.AnError}
		},
	}
	router := newTestRouter(t, store, &recordingHub{}, primitive.NewObjectID())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/mindtalk", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Error retrieving posts", body["message"])
}
