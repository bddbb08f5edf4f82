package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemDirectoryBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	d := NewMemDirectory(100, []int64{101, 102}, []int64{101})

	// main admin is always a moderator, even if omitted from the list
	ok, err := d.IsModerator(ctx, 100)
	assert.NoError(err)
	assert.True(ok)
	assert.True(d.IsMainAdmin(100))
	assert.False(d.IsMainAdmin(101))

	ok, err = d.IsModerator(ctx, 999)
	assert.NoError(err)
	assert.False(ok)

	priv, err := d.IsPrivileged(ctx, 101)
	assert.NoError(err)
	assert.True(priv)
	priv, err = d.IsPrivileged(ctx, 102)
	assert.NoError(err)
	assert.False(priv)

	mods, err := d.Moderators(ctx)
	assert.NoError(err)
	assert.ElementsMatch([]int64{100, 101, 102}, mods)
}

func TestMemDirectoryRosterMutation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	d := NewMemDirectory(100, []int64{101}, nil)

	assert.True(d.AddModerator(103))
	assert.False(d.AddModerator(103))
	ok, err := d.IsModerator(ctx, 103)
	assert.NoError(err)
	assert.True(ok)

	// privilege requires an existing moderator role
	granted, err := d.GrantPrivilege(999)
	assert.ErrorIs(err, ErrNotModerator)
	assert.False(granted)

	granted, err = d.GrantPrivilege(103)
	assert.NoError(err)
	assert.True(granted)
	granted, err = d.GrantPrivilege(103)
	assert.NoError(err)
	assert.False(granted)

	revoked, err := d.RevokePrivilege(103)
	assert.NoError(err)
	assert.True(revoked)
	revoked, err = d.RevokePrivilege(103)
	assert.NoError(err)
	assert.False(revoked)

	// the main admin cannot strip their own privilege
	_, err = d.GrantPrivilege(100)
	assert.NoError(err)
	_, err = d.RevokePrivilege(100)
	assert.ErrorIs(err, ErrMainAdmin)
}
