package models

import (
	"fmt"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"danceforchange/errs"
)

const (
	MaxPostTextLen    = 2000
	MaxCommentTextLen = 500
)

const (
	CategoryGeneral    = "general"
	CategoryAnxiety    = "anxiety"
	CategoryDepression = "depression"
	CategoryStress     = "stress"
	CategoryMotivation = "motivation"
	CategoryGratitude  = "gratitude"
)

const (
	ReactionLike    = "like"
	ReactionSupport = "support"
	ReactionLove    = "love"
)

// Reaction is a per-user sentiment marker on a post. Identity is
// (post, userId): at most one live reaction per user.
type Reaction struct {
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	Type   string             `bson:"type" json:"type"`
}

// Comment is immutable once appended. Ordering is append order.
type Comment struct {
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt int64              `bson:"createdAt" json:"createdAt"`
	User      *UserRef           `bson:"-" json:"user,omitempty"` // Populated in response only
}

// Post is a single MindTalk submission. AuthorID is persisted for
// moderation/ownership checks but never serialized; outbound author
// identity travels only through Author, which Sanitized nulls for
// anonymous posts.
type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Text      string             `bson:"text" json:"text"`
	Category  string             `bson:"category" json:"category"`
	Anonymous bool               `bson:"anonymous" json:"anonymous"`
	AuthorID  primitive.ObjectID `bson:"authorId" json:"-"`
	Reactions []Reaction         `bson:"reactions" json:"reactions"`
	Comments  []Comment          `bson:"comments" json:"comments"`
	CreatedAt int64              `bson:"createdAt" json:"createdAt"`
	UpdatedAt int64              `bson:"updatedAt" json:"updatedAt"`
	Author    *UserRef           `bson:"-" json:"author"` // Populated in response only
}

// Sanitized returns the outbound representation of the post. For an
// anonymous post the author identity is redacted; the stored authorId
// is untouched. Every read path and every broadcast path must go
// through this before the post leaves the process.
func (p Post) Sanitized() Post {
	if p.Anonymous {
		p.Author = nil
		p.AuthorID = primitive.NilObjectID
	}
	return p
}

// ReplaceReaction drops any existing reaction by userID and appends
// the new one, preserving the order of everyone else's reactions. The
// result holds at most one reaction per user, most recent last.
func ReplaceReaction(reactions []Reaction, userID primitive.ObjectID, rtype string) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	for _, r := range reactions {
		if r.UserID != userID {
			out = append(out, r)
		}
	}
	return append(out, Reaction{UserID: userID, Type: rtype})
}

// NormalizeCategory coerces unknown categories to general instead of
// rejecting them. Quirk preserved from the original product behavior.
func NormalizeCategory(category string) string {
	switch category {
	case CategoryGeneral, CategoryAnxiety, CategoryDepression,
		CategoryStress, CategoryMotivation, CategoryGratitude:
		return category
	default:
		return CategoryGeneral
	}
}

// NormalizeReactionType defaults an omitted type to like and rejects
// anything outside the enum.
func NormalizeReactionType(rtype string) (string, error) {
	switch rtype {
	case "":
		return ReactionLike, nil
	case ReactionLike, ReactionSupport, ReactionLove:
		return rtype, nil
	default:
		return "", &errs.ValidationError{Message: fmt.Sprintf("invalid reaction type %q", rtype)}
	}
}

// ValidatePostText enforces the 1..2000 character bound. The limit
// counts characters, not bytes.
func ValidatePostText(text string) error {
	if text == "" {
		return &errs.ValidationError{Message: "Post text is required"}
	}
	if utf8.RuneCountInString(text) > MaxPostTextLen {
		return &errs.ValidationError{Message: fmt.Sprintf("Post text exceeds %d characters", MaxPostTextLen)}
	}
	return nil
}

// ValidateCommentText enforces the 1..500 character bound.
func ValidateCommentText(text string) error {
	if text == "" {
		return &errs.ValidationError{Message: "Comment text is required"}
	}
	if utf8.RuneCountInString(text) > MaxCommentTextLen {
		return &errs.ValidationError{Message: fmt.Sprintf("Comment text exceeds %d characters", MaxCommentTextLen)}
	}
	return nil
}
