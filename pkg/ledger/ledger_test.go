package ledger

import (
	"testing"

	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityResolver stands in for the registry when no mapping exists yet.
type identityResolver struct{}

func (identityResolver) Resolve(id string) string { return id }

func TestValidateReaction(t *testing.T) {
	assert.NoError(t, ValidateReaction("👍"))
	assert.NoError(t, ValidateReaction("🎉"))
	assert.ErrorIs(t, ValidateReaction("thumbs up"), ErrInvalidReaction)
	assert.ErrorIs(t, ValidateReaction("👍👍"), ErrInvalidReaction)
	assert.ErrorIs(t, ValidateReaction("👍!"), ErrInvalidReaction)
	assert.ErrorIs(t, ValidateReaction(""), ErrInvalidReaction)
}

func TestToggleFlipsMembership(t *testing.T) {
	l := New(identityResolver{})

	result, err := l.Toggle("100", "👍", "u1")
	require.NoError(t, err)
	assert.Equal(t, ToggleAdded, result)
	assert.True(t, l.HasUserReacted("100", "👍", "u1"))

	result, err = l.Toggle("100", "👍", "u1")
	require.NoError(t, err)
	assert.Equal(t, ToggleRemoved, result)
	assert.False(t, l.HasUserReacted("100", "👍", "u1"))
	assert.Empty(t, l.CountsByEmoji("100"))
}

func TestToggleRejectsProvisionalTargets(t *testing.T) {
	l := New(identityResolver{})

	_, err := l.Toggle("tmp_123_abc", "👍", "u1")
	assert.ErrorIs(t, err, ErrProvisionalTarget)
	_, err = l.Toggle("100", "not an emoji", "u1")
	assert.ErrorIs(t, err, ErrInvalidReaction)
	assert.Empty(t, l.ListByMessage("tmp_123_abc"))
}

func TestApplyAbsorbsDuplicates(t *testing.T) {
	l := New(identityResolver{})
	add := models.Event{
		Action:   models.EventReactionAdd,
		Reaction: &models.Reaction{MessageID: "100", Emoji: "👍", UserID: "u2"},
	}

	assert.True(t, l.Apply(add))
	assert.False(t, l.Apply(add))
	assert.Equal(t, map[string]int{"👍": 1}, l.CountsByEmoji("100"))

	remove := add
	remove.Action = models.EventReactionRemove
	assert.True(t, l.Apply(remove))
	assert.False(t, l.Apply(remove))
	assert.Empty(t, l.CountsByEmoji("100"))
}

func TestCountsAreDerivedPerUser(t *testing.T) {
	l := New(identityResolver{})
	_, err := l.Toggle("100", "👍", "u1")
	require.NoError(t, err)
	_, err = l.Toggle("100", "👍", "u2")
	require.NoError(t, err)
	_, err = l.Toggle("100", "🎉", "u1")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"👍": 2, "🎉": 1}, l.CountsByEmoji("100"))
	assert.Len(t, l.ListByMessage("100"), 3)
	assert.Empty(t, l.CountsByEmoji("200"))
}

func TestRewriteMessageID(t *testing.T) {
	l := New(identityResolver{})
	l.Apply(models.Event{
		Action:   models.EventReactionAdd,
		Reaction: &models.Reaction{MessageID: "tmp_1", Emoji: "👍", UserID: "u2"},
	})

	assert.Equal(t, 1, l.RewriteMessageID("tmp_1", "100"))
	assert.Equal(t, map[string]int{"👍": 1}, l.CountsByEmoji("100"))
	assert.Empty(t, l.ListByMessage("tmp_1"))
}

func TestRemoveMessageDropsEntries(t *testing.T) {
	l := New(identityResolver{})
	l.Apply(models.Event{
		Action:   models.EventReactionAdd,
		Reaction: &models.Reaction{MessageID: "100", Emoji: "👍", UserID: "u1"},
	})
	l.Apply(models.Event{
		Action:   models.EventReactionAdd,
		Reaction: &models.Reaction{MessageID: "200", Emoji: "👍", UserID: "u1"},
	})

	assert.Equal(t, 1, l.RemoveMessage("100"))
	assert.Empty(t, l.CountsByEmoji("100"))
	assert.Equal(t, map[string]int{"👍": 1}, l.CountsByEmoji("200"))
}
