package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"danceforchange/errs"
	"danceforchange/models"
)

// PostStore is the sole writer of MindTalk post documents. Every
// mutation is a complete load→mutate→store cycle against a single
// document; mutations for the same post are serialized through a
// per-post lock so that two read-modify-write cycles never interleave.
type PostStore struct {
	posts *mongo.Collection
	users *mongo.Collection
	locks *keyedMutex
}

func NewPostStore(posts, users *mongo.Collection) *PostStore {
	return &PostStore{
		posts: posts,
		users: users,
		locks: newKeyedMutex(),
	}
}

// CreatePost validates and persists a new post. Unknown categories
// silently coerce to general.
func (s *PostStore) CreatePost(ctx context.Context, authorID primitive.ObjectID, text, category string, anonymous bool) (*models.Post, error) {
	if err := models.ValidatePostText(text); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	post := models.Post{
		ID:        primitive.NewObjectID(),
		Text:      text,
		Category:  models.NormalizeCategory(category),
		Anonymous: anonymous,
		AuthorID:  authorID,
		Reactions: []models.Reaction{},
		Comments:  []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.posts.InsertOne(ctx, post); err != nil {
		return nil, &errs.StoreError{Op: "create post", Err: err}
	}

	return s.GetPost(ctx, post.ID)
}

// GetAllPosts returns the full materialized feed, newest first, with
// author and comment-user display data attached.
func (s *PostStore) GetAllPosts(ctx context.Context) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, &errs.StoreError{Op: "find posts", Err: err}
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, &errs.StoreError{Op: "decode posts", Err: err}
	}

	if err := s.attachUsers(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost returns a single post with display data attached.
func (s *PostStore) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, &errs.NotFoundError{Resource: "Post"}
	}
	if err != nil {
		return nil, &errs.StoreError{Op: "find post", Err: err}
	}

	batch := []models.Post{post}
	if err := s.attachUsers(ctx, batch); err != nil {
		return nil, err
	}
	return &batch[0], nil
}

// DeletePost removes a post. The authorization decision is made by the
// caller before this point.
func (s *PostStore) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return &errs.StoreError{Op: "delete post", Err: err}
	}
	if res.DeletedCount == 0 {
		return &errs.NotFoundError{Resource: "Post"}
	}
	return nil
}

// React applies last-reaction-wins semantics: any existing reaction by
// the same user is dropped before the new one is appended, so a user
// holds at most one reaction per post. The per-post lock closes the
// same-user double-reaction race.
func (s *PostStore) React(ctx context.Context, postID, userID primitive.ObjectID, rtype string) (*models.Post, error) {
	rtype, err := models.NormalizeReactionType(rtype)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(postID.Hex())

	var post models.Post
	findErr := s.posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post)
	if findErr == mongo.ErrNoDocuments {
		unlock()
		return nil, &errs.NotFoundError{Resource: "Post"}
	}
	if findErr != nil {
		unlock()
		return nil, &errs.StoreError{Op: "find post", Err: findErr}
	}

	reactions := models.ReplaceReaction(post.Reactions, userID, rtype)
	update := bson.M{"$set": bson.M{
		"reactions": reactions,
		"updatedAt": time.Now().Unix(),
	}}
	if _, err := s.posts.UpdateOne(ctx, bson.M{"_id": postID}, update); err != nil {
		unlock()
		return nil, &errs.StoreError{Op: "update reactions", Err: err}
	}
	unlock()

	return s.GetPost(ctx, postID)
}

// Comment appends to the post's comment list. Comments are never
// edited, deleted or reordered.
func (s *PostStore) Comment(ctx context.Context, postID, userID primitive.ObjectID, text string) (*models.Post, error) {
	if err := models.ValidateCommentText(text); err != nil {
		return nil, err
	}

	comment := models.Comment{
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().Unix(),
	}

	unlock := s.locks.Lock(postID.Hex())
	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": comment.CreatedAt},
	}
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": postID}, update)
	unlock()
	if err != nil {
		return nil, &errs.StoreError{Op: "append comment", Err: err}
	}
	if res.MatchedCount == 0 {
		return nil, &errs.NotFoundError{Resource: "Post"}
	}

	return s.GetPost(ctx, postID)
}

// attachUsers resolves author and comment-user display data for a
// batch of posts in one users query. Missing users stay nil.
func (s *PostStore) attachUsers(ctx context.Context, posts []models.Post) error {
	idSet := make(map[primitive.ObjectID]struct{})
	for i := range posts {
		idSet[posts[i].AuthorID] = struct{}{}
		for j := range posts[i].Comments {
			idSet[posts[i].Comments[j].UserID] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return &errs.StoreError{Op: "find users", Err: err}
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return &errs.StoreError{Op: "decode users", Err: err}
	}

	refs := make(map[primitive.ObjectID]*models.UserRef, len(users))
	for i := range users {
		refs[users[i].ID] = users[i].Ref()
	}

	for i := range posts {
		posts[i].Author = refs[posts[i].AuthorID]
		for j := range posts[i].Comments {
			posts[i].Comments[j].User = refs[posts[i].Comments[j].UserID]
		}
	}
	return nil
}
