package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbedSession() *EmbedSession {
	return &EmbedSession{
		ID:        "test-session",
		Author:    42,
		GuildID:   1000,
		ChannelID: 500,
	}
}

func TestParseEmbedColor(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"#ff0000", 0xFF0000, false},
		{"#00FF00", 0x00FF00, false},
		{"16711680", 16711680, false},
		{"0", 0, false},
		{"red", 0, true},
		{"#zzz", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseEmbedColor(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestApplyEmbedValue(t *testing.T) {
	s := newTestEmbedSession()

	require.NoError(t, applyEmbedValue(s, "title", "Hello"))
	require.NoError(t, applyEmbedValue(s, "description", "World"))
	require.NoError(t, applyEmbedValue(s, "color", "#336699"))
	require.NoError(t, applyEmbedValue(s, "footer", "small print"))
	require.NoError(t, applyEmbedValue(s, "content", "above the embed"))

	assert.Equal(t, "Hello", s.Title)
	assert.Equal(t, "World", s.Description)
	assert.True(t, s.HasColor)
	assert.Equal(t, 0x336699, s.Color)
	assert.Equal(t, "above the embed", s.Content)

	assert.Error(t, applyEmbedValue(s, "color", "not-a-color"))
	assert.True(t, s.HasColor, "failed edit must not clear the color")
}

func TestApplyEmbedValueClearToken(t *testing.T) {
	s := newTestEmbedSession()
	require.NoError(t, applyEmbedValue(s, "title", "Hello"))
	require.NoError(t, applyEmbedValue(s, "color", "#336699"))

	require.NoError(t, applyEmbedValue(s, "title", EmbedClearToken))
	require.NoError(t, applyEmbedValue(s, "color", EmbedClearToken))

	assert.Equal(t, "", s.Title)
	assert.False(t, s.HasColor)
}

func TestAddEmbedFieldLimit(t *testing.T) {
	s := newTestEmbedSession()

	for i := 0; i < EmbedMaxFields; i++ {
		require.NoError(t, addEmbedField(s, fmt.Sprintf("f%d", i), "v", false))
	}
	assert.Error(t, addEmbedField(s, "one too many", "v", false))
	assert.Len(t, s.Fields, EmbedMaxFields)

	// The clear token skips the append silently.
	s2 := newTestEmbedSession()
	require.NoError(t, addEmbedField(s2, EmbedClearToken, "v", false))
	assert.Empty(t, s2.Fields)
}

func TestEmbedSessionEmpty(t *testing.T) {
	s := newTestEmbedSession()
	assert.True(t, embedSessionEmpty(s))

	require.NoError(t, applyEmbedValue(s, "content", "only content"))
	assert.True(t, embedSessionEmpty(s), "content alone does not make an embed")

	require.NoError(t, applyEmbedValue(s, "title", "Hello"))
	assert.False(t, embedSessionEmpty(s))
}

func TestBuildSessionEmbed(t *testing.T) {
	s := newTestEmbedSession()
	require.NoError(t, applyEmbedValue(s, "title", "Hello"))
	require.NoError(t, applyEmbedValue(s, "color", "#010203"))
	require.NoError(t, addEmbedField(s, "a", "b", true))

	embed := buildSessionEmbed(s)
	assert.Equal(t, "Hello", embed.Title)
	assert.Equal(t, 0x010203, embed.Color)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "a", embed.Fields[0].Name)
}

func TestEmbedSessionRegistry(t *testing.T) {
	s := newTestEmbedSession()
	putEmbedSession(s)
	t.Cleanup(func() { dropEmbedSession(s.ID) })

	got := getEmbedSession(s.ID)
	require.NotNil(t, got)
	assert.Equal(t, snowflake.ID(42), got.Author)

	dropEmbedSession(s.ID)
	assert.Nil(t, getEmbedSession(s.ID))
}

func TestEmbedSessionExpiry(t *testing.T) {
	base := time.Now()
	timeNow = func() time.Time { return base }
	t.Cleanup(func() { timeNow = time.Now })

	stale := newTestEmbedSession()
	putEmbedSession(stale)
	t.Cleanup(func() { dropEmbedSession(stale.ID) })
	assert.Equal(t, base, stale.CreatedAt)

	timeNow = func() time.Time { return base.Add(embedSessionTTL + time.Minute) }
	assert.Nil(t, getEmbedSession(stale.ID))

	// Registering a fresh session sweeps whatever else has gone stale.
	putEmbedSession(stale)
	fresh := &EmbedSession{ID: "fresh-session", Author: 7}
	timeNow = func() time.Time { return base.Add(2 * (embedSessionTTL + time.Minute)) }
	putEmbedSession(fresh)
	t.Cleanup(func() { dropEmbedSession(fresh.ID) })

	embedSessionsMu.Lock()
	_, staleKept := embedSessions[stale.ID]
	embedSessionsMu.Unlock()
	assert.False(t, staleKept)
	require.NotNil(t, getEmbedSession(fresh.ID))
}
