package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLevelStore(t *testing.T) {
	t.Helper()
	old := storeDir
	SetStoreDir(t.TempDir())
	t.Cleanup(func() {
		SetStoreDir(old)
		timeNow = time.Now
	})
}

func setupLevelDatabase(t *testing.T) context.Context {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, InitDatabase(ctx, filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(CloseDatabase)
	return ctx
}

func TestXPNeededForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{0, 100},
		{1, 155},
		{2, 220},
		{5, 475},
		{10, 1100},
		{50, 15100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, XPNeededForLevel(tt.level), "level %d", tt.level)
	}
}

func TestApplyXPNoLevelUp(t *testing.T) {
	r := &LevelRow{Level: 0, XP: 0}
	gained := applyXP(r, 99)

	assert.Equal(t, 0, gained)
	assert.Equal(t, 0, r.Level)
	assert.Equal(t, 99, r.XP)
}

func TestApplyXPSingleLevelUp(t *testing.T) {
	r := &LevelRow{Level: 0, XP: 0}
	gained := applyXP(r, 100)

	assert.Equal(t, 1, gained)
	assert.Equal(t, 1, r.Level)
	assert.Equal(t, 0, r.XP)
}

func TestApplyXPMultiLevelUp(t *testing.T) {
	// 100 to clear level 0, 155 to clear level 1, 5 left over.
	r := &LevelRow{Level: 0, XP: 0}
	gained := applyXP(r, 260)

	assert.Equal(t, 2, gained)
	assert.Equal(t, 2, r.Level)
	assert.Equal(t, 5, r.XP)
}

func TestApplyXPCarriesExistingXP(t *testing.T) {
	r := &LevelRow{Level: 1, XP: 150}
	gained := applyXP(r, 10)

	assert.Equal(t, 1, gained)
	assert.Equal(t, 2, r.Level)
	assert.Equal(t, 5, r.XP)
}

func TestLevelXPMultiplier(t *testing.T) {
	s := LevelSettings{MultiplierRoles: map[string]float64{
		"100": 1.5,
		"200": 2.0,
	}}

	assert.Equal(t, 1.0, levelXPMultiplier(s, nil))
	assert.Equal(t, 1.0, levelXPMultiplier(s, []snowflake.ID{999}))
	assert.Equal(t, 1.5, levelXPMultiplier(s, []snowflake.ID{100}))
	assert.Equal(t, 2.0, levelXPMultiplier(s, []snowflake.ID{100, 200}))
}

func TestLevelExcluded(t *testing.T) {
	s := LevelSettings{
		ExcludedChannels: []snowflake.ID{500},
		ExcludedRoles:    []snowflake.ID{600},
	}

	assert.True(t, levelExcluded(s, 500, nil))
	assert.True(t, levelExcluded(s, 501, []snowflake.ID{600}))
	assert.False(t, levelExcluded(s, 501, []snowflake.ID{601}))
	assert.False(t, levelExcluded(s, 501, nil))
}

func TestTextXPCooldown(t *testing.T) {
	setupLevelStore(t)
	textXPCooldownsMu.Lock()
	textXPCooldowns = map[string]time.Time{}
	textXPCooldownsMu.Unlock()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return base }

	assert.False(t, textXPOnCooldown(1, 2, 60*time.Second))
	assert.True(t, textXPOnCooldown(1, 2, 60*time.Second))

	// Different user is tracked separately.
	assert.False(t, textXPOnCooldown(1, 3, 60*time.Second))

	timeNow = func() time.Time { return base.Add(61 * time.Second) }
	assert.False(t, textXPOnCooldown(1, 2, 60*time.Second))
}

func TestLoadLevelSettingsDefaults(t *testing.T) {
	setupLevelStore(t)

	s := LoadLevelSettings(1000)
	assert.Equal(t, 5, s.TextXPMin)
	assert.Equal(t, 15, s.TextXPMax)
	assert.Equal(t, 60, s.TextCooldownSeconds)
	assert.Equal(t, 2, s.VoiceXPMin)
	assert.Equal(t, 5, s.VoiceXPMax)
}

func TestLoadLevelSettingsClampsPartial(t *testing.T) {
	setupLevelStore(t)

	require.NoError(t, SaveLevelSettings(1000, LevelSettings{
		TextXPMin:       10,
		TextXPMax:       3, // below min, must be raised
		AnnounceChannel: 42,
	}))

	s := LoadLevelSettings(1000)
	assert.Equal(t, 10, s.TextXPMin)
	assert.Equal(t, 15, s.TextXPMax)
	assert.Equal(t, 60, s.TextCooldownSeconds)
	assert.Equal(t, snowflake.ID(42), s.AnnounceChannel)

	// Other guilds are unaffected.
	other := LoadLevelSettings(2000)
	assert.Equal(t, snowflake.ID(0), other.AnnounceChannel)
}

func TestGrantXPPersists(t *testing.T) {
	ctx := setupLevelDatabase(t)

	row, gained, err := GrantXP(ctx, 1000, 42, 120, true)
	require.NoError(t, err)
	assert.Equal(t, 1, gained)
	assert.Equal(t, 1, row.Level)
	assert.Equal(t, 20, row.XP)
	assert.Equal(t, 1, row.Messages)

	// Messages only count when asked.
	row, gained, err = GrantXP(ctx, 1000, 42, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 0, gained)
	assert.Equal(t, 30, row.XP)
	assert.Equal(t, 1, row.Messages)

	stored, err := GetLevelRow(ctx, 1000, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Level)
	assert.Equal(t, 30, stored.XP)
}

func TestLevelLeaderboardOrdering(t *testing.T) {
	ctx := setupLevelDatabase(t)

	rows := []*LevelRow{
		{GuildID: 1000, UserID: 1, Level: 2, XP: 50},
		{GuildID: 1000, UserID: 2, Level: 5, XP: 10},
		{GuildID: 1000, UserID: 3, Level: 5, XP: 400},
		{GuildID: 2000, UserID: 4, Level: 9, XP: 0},
	}
	for _, r := range rows {
		require.NoError(t, SaveLevelRow(ctx, r))
	}

	board, err := GetLevelLeaderboard(ctx, 1000, 10, 0)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, snowflake.ID(3), board[0].UserID)
	assert.Equal(t, snowflake.ID(2), board[1].UserID)
	assert.Equal(t, snowflake.ID(1), board[2].UserID)

	rank, err := GetLevelRank(ctx, 1000, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	count, err := CountLevelRows(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
