package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalName(t *testing.T) {
	require.Equal(t, "sessiontoken", CanonicalName("  Session Token\n"))
	require.Equal(t, "tt_session", CanonicalName("TT_Session"))
	require.Equal(t, "", CanonicalName("  \t "))
}

func TestMatchName(t *testing.T) {
	fragments := []string{"auth", "sess", "member", "token"}

	require.True(t, MatchName("tt_session", fragments))
	require.True(t, MatchName("Auth Token", fragments))
	require.True(t, MatchName("MEMBER_ID", fragments))
	require.False(t, MatchName("locale", fragments))
	require.False(t, MatchName("_ga", fragments))
	require.False(t, MatchName("", fragments))
}
