package tracker_test

import (
	"testing"

	"github.com/robalyx/presencewatch/internal/database/types/enum"
	"github.com/robalyx/presencewatch/internal/tracker"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	const (
		unknown = enum.PlayerStatusUnknown
		offline = enum.PlayerStatusOffline
		online  = enum.PlayerStatusOnline
		edge    = enum.NotifyModeEdge
		live    = enum.NotifyModeLive
	)

	tests := []struct {
		name string
		prev enum.PlayerStatus
		next enum.PlayerStatus
		mode enum.NotifyMode
		want tracker.Action
	}{
		{"offline to online edge", offline, online, edge, tracker.ActionOnline},
		{"offline to online live", offline, online, live, tracker.ActionOnline},
		{"online to offline edge", online, offline, edge, tracker.ActionClear},
		{"online to offline live", online, offline, live, tracker.ActionOffline},
		{"stay online edge", online, online, edge, tracker.ActionNone},
		{"stay online live", online, online, live, tracker.ActionRefresh},
		{"stay offline edge", offline, offline, edge, tracker.ActionNone},
		{"stay offline live", offline, offline, live, tracker.ActionNone},
		{"unknown reading", online, unknown, live, tracker.ActionNone},
		{"stored unknown counts as offline", unknown, online, edge, tracker.ActionOnline},
		{"stored unknown stays offline", unknown, offline, edge, tracker.ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tracker.Decide(tt.prev, tt.next, tt.mode)
			assert.Equal(t, tt.want, got, "got %s", got)
		})
	}
}

func TestActionDispatches(t *testing.T) {
	t.Parallel()

	assert.True(t, tracker.ActionOnline.Dispatches())
	assert.True(t, tracker.ActionOffline.Dispatches())
	assert.True(t, tracker.ActionRefresh.Dispatches())
	assert.False(t, tracker.ActionNone.Dispatches())
	assert.False(t, tracker.ActionClear.Dispatches())
}
