package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionSetToggle(t *testing.T) {
	r := ReactionSet{}

	added := r.Toggle("🔥", "u1")
	assert.True(t, added)
	assert.True(t, r.Has("🔥", "u1"))

	added = r.Toggle("🔥", "u2")
	assert.True(t, added)
	assert.Equal(t, []string{"u1", "u2"}, r["🔥"])

	removed := r.Toggle("🔥", "u1")
	assert.False(t, removed)
	assert.False(t, r.Has("🔥", "u1"))
	assert.True(t, r.Has("🔥", "u2"))
}

func TestReactionSetToggleTwiceRestoresState(t *testing.T) {
	r := ReactionSet{"👍": {"u1"}}

	r.Toggle("👍", "u2")
	r.Toggle("👍", "u2")

	assert.Equal(t, ReactionSet{"👍": {"u1"}}, r)
}

func TestReactionSetEmptyBucketRemoved(t *testing.T) {
	r := ReactionSet{}
	r.Toggle("🎉", "u1")
	r.Toggle("🎉", "u1")

	_, exists := r["🎉"]
	assert.False(t, exists)
}

func TestReactionSetIndependentEmojis(t *testing.T) {
	r := ReactionSet{}
	r.Toggle("🔥", "u1")
	r.Toggle("👍", "u1")

	r.Toggle("🔥", "u1")

	assert.False(t, r.Has("🔥", "u1"))
	assert.True(t, r.Has("👍", "u1"))
}

func TestReactionSetUsersSorted(t *testing.T) {
	r := ReactionSet{}
	r.Toggle("👍", "zz")
	r.Toggle("👍", "aa")
	r.Toggle("👍", "mm")

	assert.Equal(t, []string{"aa", "mm", "zz"}, r["👍"])
}

func TestReactionSetClone(t *testing.T) {
	r := ReactionSet{"👍": {"u1"}}
	cp := r.Clone()

	cp.Toggle("👍", "u2")

	require.Equal(t, []string{"u1"}, r["👍"])
	assert.Equal(t, []string{"u1", "u2"}, cp["👍"])
}

func TestValidKind(t *testing.T) {
	assert.True(t, ValidKind(KindText))
	assert.True(t, ValidKind(KindSystem))
	assert.True(t, ValidKind(KindMedia))
	assert.False(t, ValidKind(MessageKind("sticker")))
	assert.False(t, ValidKind(MessageKind("")))
}
