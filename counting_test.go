package main

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCountingStore(t *testing.T) {
	t.Helper()
	old := storeDir
	SetStoreDir(t.TempDir())
	t.Cleanup(func() {
		SetStoreDir(old)
		timeNow = time.Now
	})
}

func TestEvaluateCountAcceptsNextNumber(t *testing.T) {
	s := CountingState{ChannelID: 500, Count: 4, LastUser: 1}

	verdict, next := evaluateCount(s, 500, 2, "5")
	assert.Equal(t, countAccept, verdict)
	assert.Equal(t, 5, next.Count)
	assert.Equal(t, snowflake.ID(2), next.LastUser)

	// Whitespace around the number is fine.
	verdict, next = evaluateCount(next, 500, 3, "  6 ")
	assert.Equal(t, countAccept, verdict)
	assert.Equal(t, 6, next.Count)
}

func TestEvaluateCountRejectsWrongNumber(t *testing.T) {
	s := CountingState{ChannelID: 500, Count: 4}

	for _, content := range []string{"4", "6", "0", "five", "5a", ""} {
		verdict, next := evaluateCount(s, 500, 2, content)
		assert.Equal(t, countReject, verdict, "content %q", content)
		assert.Equal(t, 4, next.Count, "state must not advance on %q", content)
	}
}

func TestEvaluateCountRejectsSameAuthorTwice(t *testing.T) {
	s := CountingState{ChannelID: 500, Count: 4, LastUser: 2}

	verdict, _ := evaluateCount(s, 500, 2, "5")
	assert.Equal(t, countReject, verdict)

	// The very first count has no previous author.
	fresh := CountingState{ChannelID: 500}
	verdict, next := evaluateCount(fresh, 500, 2, "1")
	assert.Equal(t, countAccept, verdict)
	assert.Equal(t, 1, next.Count)
}

func TestEvaluateCountIgnoresOtherChannels(t *testing.T) {
	s := CountingState{ChannelID: 500, Count: 4}

	verdict, _ := evaluateCount(s, 501, 2, "5")
	assert.Equal(t, countIgnore, verdict)

	unconfigured := CountingState{}
	verdict, _ = evaluateCount(unconfigured, 500, 2, "1")
	assert.Equal(t, countIgnore, verdict)
}

func TestCountingStatePersistence(t *testing.T) {
	setupCountingStore(t)

	require.NoError(t, SaveCountingState(1000, CountingState{ChannelID: 500, Count: 7, LastUser: 2}))

	s, err := LoadCountingState(1000)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(500), s.ChannelID)
	assert.Equal(t, 7, s.Count)
	assert.Equal(t, snowflake.ID(2), s.LastUser)

	other, err := LoadCountingState(2000)
	require.NoError(t, err)
	assert.Equal(t, CountingState{}, other)
}
