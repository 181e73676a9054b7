package bot

import (
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/presencewatch/internal/bot/commands"
	"github.com/stretchr/testify/assert"
)

func TestRequiresManageGuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		command string
		want    bool
	}{
		{commands.AddPlayerCommand, true},
		{commands.RemovePlayerCommand, true},
		{commands.SetChannelCommand, true},
		{commands.SetRoleCommand, true},
		{commands.ListTrackedCommand, false},
		{commands.StatusCommand, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, requiresManageGuild(tt.command), tt.command)
	}
}

func TestCanManageGuild(t *testing.T) {
	t.Parallel()

	assert.False(t, canManageGuild(nil))
	assert.False(t, canManageGuild(&discord.ResolvedMember{Permissions: discord.PermissionSendMessages}))
	assert.True(t, canManageGuild(&discord.ResolvedMember{Permissions: discord.PermissionManageGuild}))
	assert.True(t, canManageGuild(&discord.ResolvedMember{
		Permissions: discord.PermissionAdministrator | discord.PermissionSendMessages,
	}))
}
