package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"danceforchange/errs"
)

func TestSanitizedRedactsAnonymousAuthor(t *testing.T) {
	author := primitive.NewObjectID()
	post := Post{
		ID:        primitive.NewObjectID(),
		Text:      "hello",
		Anonymous: true,
		AuthorID:  author,
		Author:    &UserRef{ID: author, Name: "Sarah Johnson"},
	}

	out := post.Sanitized()

	assert.Nil(t, out.Author)
	assert.Equal(t, primitive.NilObjectID, out.AuthorID)
	// stored representation untouched
	assert.Equal(t, author, post.AuthorID)
	assert.NotNil(t, post.Author)
}

func TestSanitizedKeepsNamedAuthor(t *testing.T) {
	author := primitive.NewObjectID()
	post := Post{
		Anonymous: false,
		AuthorID:  author,
		Author:    &UserRef{ID: author, Name: "Michael Chen"},
	}

	out := post.Sanitized()

	require.NotNil(t, out.Author)
	assert.Equal(t, "Michael Chen", out.Author.Name)
	assert.Equal(t, author, out.AuthorID)
}

func TestPostJSONNeverExposesAuthorID(t *testing.T) {
	post := Post{
		ID:        primitive.NewObjectID(),
		Text:      "hello",
		Anonymous: true,
		AuthorID:  primitive.NewObjectID(),
	}

	data, err := json.Marshal(post.Sanitized())
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	_, hasAuthorID := raw["authorId"]
	assert.False(t, hasAuthorID)
	assert.Nil(t, raw["author"])
}

func TestNormalizeCategory(t *testing.T) {
	for _, c := range []string{
		CategoryGeneral, CategoryAnxiety, CategoryDepression,
		CategoryStress, CategoryMotivation, CategoryGratitude,
	} {
		assert.Equal(t, c, NormalizeCategory(c))
	}

	// Unknown categories coerce silently instead of failing.
	assert.Equal(t, CategoryGeneral, NormalizeCategory("dancing"))
	assert.Equal(t, CategoryGeneral, NormalizeCategory(""))
}

func TestNormalizeReactionType(t *testing.T) {
	rtype, err := NormalizeReactionType("")
	require.NoError(t, err)
	assert.Equal(t, ReactionLike, rtype)

	for _, r := range []string{ReactionLike, ReactionSupport, ReactionLove} {
		got, err := NormalizeReactionType(r)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err = NormalizeReactionType("angry")
	var verr *errs.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestValidatePostTextBoundaries(t *testing.T) {
	assert.NoError(t, ValidatePostText("a"))
	assert.NoError(t, ValidatePostText(strings.Repeat("a", MaxPostTextLen)))

	// The bound is characters, not bytes: 2000 two-byte runes are fine.
	assert.NoError(t, ValidatePostText(strings.Repeat("é", MaxPostTextLen)))

	var verr *errs.ValidationError
	assert.ErrorAs(t, ValidatePostText(""), &verr)
	assert.ErrorAs(t, ValidatePostText(strings.Repeat("a", MaxPostTextLen+1)), &verr)
	assert.ErrorAs(t, ValidatePostText(strings.Repeat("é", MaxPostTextLen+1)), &verr)
}

func TestValidateCommentTextBoundaries(t *testing.T) {
	assert.NoError(t, ValidateCommentText("a"))
	assert.NoError(t, ValidateCommentText(strings.Repeat("a", MaxCommentTextLen)))

	assert.NoError(t, ValidateCommentText(strings.Repeat("é", MaxCommentTextLen)))

	var verr *errs.ValidationError
	assert.ErrorAs(t, ValidateCommentText(""), &verr)
	assert.ErrorAs(t, ValidateCommentText(strings.Repeat("a", MaxCommentTextLen+1)), &verr)
	assert.ErrorAs(t, ValidateCommentText(strings.Repeat("é", MaxCommentTextLen+1)), &verr)
}

func TestReplaceReactionLastWins(t *testing.T) {
	user := primitive.NewObjectID()
	other := primitive.NewObjectID()

	reactions := []Reaction{{UserID: other, Type: ReactionLike}}

	reactions = ReplaceReaction(reactions, user, ReactionLike)
	reactions = ReplaceReaction(reactions, user, ReactionLove)

	require.Len(t, reactions, 2)
	assert.Equal(t, other, reactions[0].UserID)
	assert.Equal(t, user, reactions[1].UserID)
	assert.Equal(t, ReactionLove, reactions[1].Type)
}

func TestReplaceReactionInvariantAfterManyCalls(t *testing.T) {
	user := primitive.NewObjectID()
	var reactions []Reaction

	types := []string{ReactionLike, ReactionSupport, ReactionLove}
	for i := 0; i < 50; i++ {
		reactions = ReplaceReaction(reactions, user, types[i%len(types)])
	}

	// At most one entry per distinct user, no matter how many times
	// the same user reacts.
	require.Len(t, reactions, 1)
	assert.Equal(t, ReactionSupport, reactions[0].Type) // 50th call, index 49
}
