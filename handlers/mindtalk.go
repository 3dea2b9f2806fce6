package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"danceforchange/errs"
	"danceforchange/models"
	"danceforchange/websocket"
)

// PostStore is the persistence boundary the MindTalk controller
// mutates through. Implemented by store.PostStore.
type PostStore interface {
	CreatePost(ctx context.Context, authorID primitive.ObjectID, text, category string, anonymous bool) (*models.Post, error)
	GetAllPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	DeletePost(ctx context.Context, id primitive.ObjectID) error
	React(ctx context.Context, postID, userID primitive.ObjectID, rtype string) (*models.Post, error)
	Comment(ctx context.Context, postID, userID primitive.ObjectID, text string) (*models.Post, error)
}

// Broadcaster fans post-change events out to live subscribers.
// Implemented by websocket.Hub. Fan-out is best-effort notification,
// never the system of record: it runs after the store write and its
// outcome never changes the REST response.
type Broadcaster interface {
	Publish(room, event string, payload interface{})
}

// MindTalk is the post-interaction controller. Collaborators are
// injected at construction; there is no package-level state.
type MindTalk struct {
	store PostStore
	hub   Broadcaster
	push  *PushNotifier
}

// NewMindTalk wires the controller. push is optional; store and hub
// are not.
func NewMindTalk(store PostStore, hub Broadcaster, push *PushNotifier) (*MindTalk, error) {
	if store == nil {
		return nil, &errs.NotInitializedError{Component: "post store"}
	}
	if hub == nil {
		return nil, &errs.NotInitializedError{Component: "broadcast hub"}
	}
	return &MindTalk{store: store, hub: hub, push: push}, nil
}

type createPostRequest struct {
	Text      string `json:"text"`
	Category  string `json:"category"`
	Anonymous *bool  `json:"anonymous"`
}

type reactionRequest struct {
	Type string `json:"type"`
}

type commentRequest struct {
	Text string `json:"text"`
}

// GetAllPosts returns the full feed, newest first. Public: anonymous
// posts carry author: null.
func (h *MindTalk) GetAllPosts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	posts, err := h.store.GetAllPosts(ctx)
	if err != nil {
		sendError(c, err, "Error retrieving posts")
		return
	}

	out := make([]models.Post, len(posts))
	for i, p := range posts {
		out[i] = p.Sanitized()
	}

	sendSuccess(c, http.StatusOK, "Posts retrieved successfully", gin.H{"posts": out})
}

// CreatePost persists a new post and fans it out to the room.
func (h *MindTalk) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, &errs.ValidationError{Message: "Invalid request body"}, "")
		return
	}

	authorID, ok := requestUserID(c)
	if !ok {
		return
	}

	anonymous := true
	if req.Anonymous != nil {
		anonymous = *req.Anonymous
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	post, err := h.store.CreatePost(ctx, authorID, req.Text, req.Category, anonymous)
	if err != nil {
		sendError(c, err, "Error creating post")
		return
	}

	sanitized := post.Sanitized()
	h.hub.Publish(websocket.RoomMindTalk, websocket.EventNewPost, sanitized)
	if h.push != nil {
		go h.push.NotifyNewPost(sanitized)
	}

	sendSuccess(c, http.StatusCreated, "Post created successfully", gin.H{"post": sanitized})
}

// AddReaction applies last-reaction-wins semantics for the caller and
// broadcasts the updated post.
func (h *MindTalk) AddReaction(c *gin.Context) {
	postID, ok := pathPostID(c)
	if !ok {
		return
	}
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		sendError(c, &errs.ValidationError{Message: "Invalid request body"}, "")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	post, err := h.store.React(ctx, postID, userID, req.Type)
	if err != nil {
		sendError(c, err, "Error adding reaction")
		return
	}

	sanitized := post.Sanitized()
	h.hub.Publish(websocket.RoomMindTalk, websocket.EventPostUpdated, sanitized)

	sendSuccess(c, http.StatusOK, "Reaction added successfully", gin.H{"post": sanitized})
}

// AddComment appends a comment and broadcasts the updated post.
func (h *MindTalk) AddComment(c *gin.Context) {
	postID, ok := pathPostID(c)
	if !ok {
		return
	}
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, &errs.ValidationError{Message: "Invalid request body"}, "")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	post, err := h.store.Comment(ctx, postID, userID, req.Text)
	if err != nil {
		sendError(c, err, "Error adding comment")
		return
	}

	sanitized := post.Sanitized()
	h.hub.Publish(websocket.RoomMindTalk, websocket.EventPostUpdated, sanitized)

	sendSuccess(c, http.StatusOK, "Comment added successfully", gin.H{"post": sanitized})
}

// DeletePost removes a post (admin only, enforced by middleware) and
// broadcasts the deletion by id.
func (h *MindTalk) DeletePost(c *gin.Context) {
	postID, ok := pathPostID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.store.DeletePost(ctx, postID); err != nil {
		sendError(c, err, "Error deleting post")
		return
	}

	h.hub.Publish(websocket.RoomMindTalk, websocket.EventPostDeleted, gin.H{"id": postID.Hex()})

	sendSuccess(c, http.StatusOK, "Post deleted successfully", nil)
}

func pathPostID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		sendError(c, &errs.NotFoundError{Resource: "Post"}, "")
		return primitive.NilObjectID, false
	}
	return id, true
}

func requestUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString("userId"))
	if err != nil {
		sendError(c, &errs.AuthorizationError{Message: "Invalid user ID"}, "")
		return primitive.NilObjectID, false
	}
	return id, true
}
