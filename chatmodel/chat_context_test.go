package chatmodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatContext_Basics(t *testing.T) {
	t.Parallel()
	c := NewChatContext("cid")
	require.NotNil(t, c)
	assert.Equal(t, "cid", c.GetChatID())
	assert.NotEmpty(t, c.RunID())

	val, ok := c.GetMetadata("not-found")
	assert.Nil(t, val)
	assert.False(t, ok)
	c.SetMetadata("foo", 1)
	v, ok := c.GetMetadata("foo")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestNewChatContext_DefaultIDs(t *testing.T) {
	t.Parallel()
	c := NewChatContext("")
	require.NotNil(t, c)
	assert.NotEmpty(t, c.GetChatID())
	assert.NotEqual(t, c.GetChatID(), c.RunID())
}

func TestContextPlumbing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert.Nil(t, GetChatContext(ctx))
	assert.Empty(t, GetChatID(ctx))
	_, err := MustChatID(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidChatContext)

	c := NewChatContext("x")
	ctx = WithChatContext(ctx, c)
	assert.Equal(t, c, GetChatContext(ctx))
	id, err := MustChatID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", id)

	same, got := EnsureChatContext(ctx)
	assert.Equal(t, c, got)
	assert.Equal(t, ctx, same)

	fresh, created := EnsureChatContext(context.Background())
	require.NotNil(t, created)
	assert.Equal(t, created.GetChatID(), GetChatID(fresh))
}

func TestNewChatID_Unique(t *testing.T) {
	id1 := NewChatID()
	id2 := NewChatID()
	assert.NotEqual(t, id1, id2)
}
