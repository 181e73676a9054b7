package enum_test

import (
	"testing"

	"github.com/robalyx/presencewatch/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerStatusRoundTrip(t *testing.T) {
	t.Parallel()

	for _, status := range enum.PlayerStatusValues() {
		parsed, err := enum.PlayerStatusString(status.String())
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
	}

	_, err := enum.PlayerStatusString("away")
	require.Error(t, err)
	assert.Equal(t, "PlayerStatus(9)", enum.PlayerStatus(9).String())
	assert.False(t, enum.PlayerStatus(9).IsAPlayerStatus())
}

func TestParseModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    enum.NotifyMode
		wantErr bool
	}{
		{input: "edge", want: enum.NotifyModeEdge},
		{input: "Live", want: enum.NotifyModeLive},
		{input: "LIVE", want: enum.NotifyModeLive},
		{input: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		mode, err := enum.NotifyModeString(tt.input)
		if tt.wantErr {
			require.Error(t, err, tt.input)
			continue
		}

		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, mode, tt.input)
	}

	policy, err := enum.UnknownPolicyString("offline")
	require.NoError(t, err)
	assert.Equal(t, enum.UnknownPolicyOffline, policy)
	assert.Equal(t, "Keep", enum.UnknownPolicyKeep.String())

	_, err = enum.UnknownPolicyString("")
	require.Error(t, err)
}
