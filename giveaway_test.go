package main

import (
	"os"
	"testing"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGiveawayStore(t *testing.T) {
	t.Helper()
	old := storeDir
	SetStoreDir(t.TempDir())
	t.Cleanup(func() {
		SetStoreDir(old)
		timeNow = time.Now
	})
}

func newTestGiveaway(t *testing.T, id snowflake.ID, entrants []snowflake.ID, winners int) *Giveaway {
	t.Helper()
	now := timeNow().UTC()
	g := &Giveaway{
		GuildID:       1000,
		ChannelID:     2000,
		MessageID:     id,
		Prize:         "Nitro",
		DurationText:  "1m",
		ExpireEpoch:   now.Unix() + 60,
		NumberWinners: winners,
		Host:          3000,
		CreatedBy:     3000,
		CreatedAt:     now.Format(time.RFC3339),
		Status:        GiveawayStatusActive,
		Entrants:      entrants,
		Winners:       []snowflake.ID{},
	}
	require.NoError(t, SaveGiveaway(g))
	return g
}

func TestParseGiveawayDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1d2h30m", 95400, false},
		{"90s", 90, false},
		{"45", 45, false},
		{"1m30", 90, false},
		{"2H", 7200, false},
		{"1D", 86400, false},
		{"", 0, true},
		{"1x2h", 0, true},
		{"abc", 0, true},
		{"0s", 0, true},
		{"0", 0, true},
		{"m", 0, true},
		{"1d-2h", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseGiveawayDuration(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
		} else {
			require.NoError(t, err, "input %q", tt.in)
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestRenderGiveawayTemplate(t *testing.T) {
	g := &Giveaway{
		Prize:        "Nitro",
		DurationText: "1d",
		ExpireEpoch:  1700000000,
		Host:         42,
	}

	out := RenderGiveawayTemplate("{prize} / {duration} / {expire} / {host} / {winner}", g, "<@7>")
	assert.Equal(t, "Nitro / 1d / <t:1700000000:R> / <@42> / <@7>", out)

	// Missing winner renders empty, unknown placeholders stay verbatim.
	out = RenderGiveawayTemplate("{prize} {winner} {unknown}", g, "")
	assert.Equal(t, "Nitro  {unknown}", out)
}

func TestLoadGiveawayTemplatesMergesDefaults(t *testing.T) {
	setupGiveawayStore(t)

	require.NoError(t, WriteJSONFile(StorePath("giveaway_templates.json"), map[string]any{
		"title": "custom {prize}",
	}))

	tpls := LoadGiveawayTemplates()
	def := defaultGiveawayTemplates()
	assert.Equal(t, "custom {prize}", tpls.Title)
	assert.Equal(t, def.Description, tpls.Description)
	assert.Equal(t, def.WinnerMessage, tpls.WinnerMessage)
	assert.Equal(t, def.Color, tpls.Color)
}

func TestCreateGiveawayFromDuration(t *testing.T) {
	setupGiveawayStore(t)

	base := time.Now()
	timeNow = func() time.Time { return base }

	g, err := CreateGiveaway(bot.Client{}, 1000, 2000, "Nitro", "2h", 0, 2, 3000, 3000)
	require.NoError(t, err)
	assert.Equal(t, base.Unix()+7200, g.ExpireEpoch)
	assert.Equal(t, "2h", g.DurationText)

	_, err = CreateGiveaway(bot.Client{}, 1000, 2000, "Nitro", "", 0, 1, 3000, 3000)
	assert.ErrorIs(t, err, ErrGiveawayDuration)
}

func TestCreateGiveawayExplicitExpire(t *testing.T) {
	setupGiveawayStore(t)

	base := time.Now()
	timeNow = func() time.Time { return base }

	g, err := CreateGiveaway(bot.Client{}, 1000, 2000, "Nitro", "", base.Unix()+3600, 1, 3000, 3000)
	require.NoError(t, err)
	assert.Equal(t, base.Unix()+3600, g.ExpireEpoch)
	assert.Empty(t, g.DurationText)

	// A timestamp create has no duration text to show.
	out := RenderGiveawayTemplate("[{duration}]", g, "")
	assert.Equal(t, "[]", out)
}

func TestCreateGiveawayExpireOverridesDuration(t *testing.T) {
	setupGiveawayStore(t)

	base := time.Now()
	timeNow = func() time.Time { return base }

	g, err := CreateGiveaway(bot.Client{}, 1000, 2000, "Nitro", "1d", base.Unix()+120, 1, 3000, 3000)
	require.NoError(t, err)
	assert.Equal(t, base.Unix()+120, g.ExpireEpoch)
	assert.Empty(t, g.DurationText)
}

func TestDrawGiveawayWinners(t *testing.T) {
	pool := []snowflake.ID{1, 2, 3, 4, 5}

	for n := 0; n <= 7; n++ {
		drawn := DrawGiveawayWinners(pool, n)
		assert.Len(t, drawn, min(n, len(pool)))

		seen := map[snowflake.ID]bool{}
		for _, id := range drawn {
			assert.False(t, seen[id], "duplicate winner %s", id)
			seen[id] = true
			assert.Contains(t, pool, id)
		}
	}
}

func TestEligibleEntrantsFiltersBlacklist(t *testing.T) {
	setupGiveawayStore(t)

	guildID := snowflake.ID(1000)
	_, err := AddGiveawayBlacklist(guildID, 2)
	require.NoError(t, err)

	pool := EligibleEntrants(guildID, []snowflake.ID{1, 2, 3}, []snowflake.ID{3})
	assert.Equal(t, []snowflake.ID{1}, pool)

	// Blacklist edits apply on the next call without restart.
	_, err = RemoveGiveawayBlacklist(guildID, 2)
	require.NoError(t, err)
	pool = EligibleEntrants(guildID, []snowflake.ID{1, 2, 3}, nil)
	assert.Equal(t, []snowflake.ID{1, 2, 3}, pool)
}

func TestToggleMembershipInvolution(t *testing.T) {
	setupGiveawayStore(t)
	g := newTestGiveaway(t, 500, []snowflake.ID{10}, 1)

	joined, err := ToggleGiveawayMembership(bot.Client{}, g.MessageID, 20)
	require.NoError(t, err)
	assert.True(t, joined)
	assert.Equal(t, []snowflake.ID{10, 20}, LoadGiveaway(g.MessageID).Entrants)

	joined, err = ToggleGiveawayMembership(bot.Client{}, g.MessageID, 20)
	require.NoError(t, err)
	assert.False(t, joined)
	assert.Equal(t, []snowflake.ID{10}, LoadGiveaway(g.MessageID).Entrants)
}

func TestToggleMembershipBlacklisted(t *testing.T) {
	setupGiveawayStore(t)
	g := newTestGiveaway(t, 501, []snowflake.ID{10}, 1)

	_, err := AddGiveawayBlacklist(g.GuildID, 66)
	require.NoError(t, err)

	_, err = ToggleGiveawayMembership(bot.Client{}, g.MessageID, 66)
	assert.ErrorIs(t, err, ErrGiveawayBlacklisted)
	assert.Equal(t, []snowflake.ID{10}, LoadGiveaway(g.MessageID).Entrants)
}

func TestToggleMembershipNotFoundAndEnded(t *testing.T) {
	setupGiveawayStore(t)

	_, err := ToggleGiveawayMembership(bot.Client{}, 999, 1)
	assert.ErrorIs(t, err, ErrGiveawayNotFound)

	g := newTestGiveaway(t, 502, []snowflake.ID{10}, 1)
	g.Status = GiveawayStatusEnded
	require.NoError(t, SaveGiveaway(g))

	_, err = ToggleGiveawayMembership(bot.Client{}, g.MessageID, 20)
	assert.ErrorIs(t, err, ErrGiveawayOver)
	assert.Equal(t, []snowflake.ID{10}, LoadGiveaway(g.MessageID).Entrants)
}

func TestEndGiveawayIdempotent(t *testing.T) {
	setupGiveawayStore(t)
	g := newTestGiveaway(t, 503, []snowflake.ID{1, 2, 3}, 2)

	first, err := EndGiveaway(bot.Client{}, g.MessageID)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	stored := LoadGiveaway(g.MessageID)
	assert.Equal(t, GiveawayStatusEnded, stored.Status)
	winnersAfterFirst := stored.Winners

	second, err := EndGiveaway(bot.Client{}, g.MessageID)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, winnersAfterFirst, LoadGiveaway(g.MessageID).Winners)
}

func TestEndGiveawayFewerEntrantsThanWinners(t *testing.T) {
	setupGiveawayStore(t)
	g := newTestGiveaway(t, 504, []snowflake.ID{77}, 3)

	winners, err := EndGiveaway(bot.Client{}, g.MessageID)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{77}, winners)
}

func TestExpiryScanEndsOverdueGiveaways(t *testing.T) {
	setupGiveawayStore(t)

	base := time.Now()
	timeNow = func() time.Time { return base }

	g := newTestGiveaway(t, 505, []snowflake.ID{9}, 1)

	// Not yet due.
	assert.Equal(t, 0, ScanExpiredGiveaways(bot.Client{}))
	assert.Equal(t, GiveawayStatusActive, LoadGiveaway(g.MessageID).Status)

	// Advance the clock past the deadline.
	timeNow = func() time.Time { return base.Add(61 * time.Second) }
	assert.Equal(t, 1, ScanExpiredGiveaways(bot.Client{}))

	stored := LoadGiveaway(g.MessageID)
	assert.Equal(t, GiveawayStatusEnded, stored.Status)
	assert.Equal(t, []snowflake.ID{9}, stored.Winners)

	// A second scan finds nothing to do.
	assert.Equal(t, 0, ScanExpiredGiveaways(bot.Client{}))
}

func TestExpiryScanSkipsCorruptRecords(t *testing.T) {
	setupGiveawayStore(t)

	base := time.Now()
	timeNow = func() time.Time { return base }
	g := newTestGiveaway(t, 506, []snowflake.ID{9}, 1)

	require.NoError(t, os.MkdirAll(StorePath("giveaways"), 0755))
	require.NoError(t, os.WriteFile(StorePath("giveaways", "junk.json"), []byte("{not json"), 0644))

	timeNow = func() time.Time { return base.Add(2 * time.Minute) }
	assert.Equal(t, 1, ScanExpiredGiveaways(bot.Client{}))
	assert.Equal(t, GiveawayStatusEnded, LoadGiveaway(g.MessageID).Status)
}

func TestRerollExcludesExistingWinners(t *testing.T) {
	setupGiveawayStore(t)
	g := newTestGiveaway(t, 507, []snowflake.ID{1, 2, 3, 4, 5}, 1)
	g.Winners = []snowflake.ID{1}
	g.Status = GiveawayStatusEnded
	require.NoError(t, SaveGiveaway(g))

	drawn, err := RerollGiveaway(bot.Client{}, g.MessageID, 2)
	require.NoError(t, err)
	assert.Len(t, drawn, 2)
	assert.NotContains(t, drawn, snowflake.ID(1))

	stored := LoadGiveaway(g.MessageID)
	assert.Len(t, stored.Winners, 3)

	seen := map[snowflake.ID]bool{}
	for _, id := range stored.Winners {
		assert.False(t, seen[id], "duplicate winner %s", id)
		seen[id] = true
	}
}

func TestRerollEmptyPool(t *testing.T) {
	setupGiveawayStore(t)
	g := newTestGiveaway(t, 508, []snowflake.ID{1}, 1)
	g.Winners = []snowflake.ID{1}
	require.NoError(t, SaveGiveaway(g))

	_, err := RerollGiveaway(bot.Client{}, g.MessageID, 1)
	assert.ErrorIs(t, err, ErrGiveawayEmptyPool)

	_, err = RerollGiveaway(bot.Client{}, 999, 1)
	assert.ErrorIs(t, err, ErrGiveawayNotFound)
}

func TestRemoveGiveawayParticipant(t *testing.T) {
	setupGiveawayStore(t)
	g := newTestGiveaway(t, 509, []snowflake.ID{1, 2}, 1)
	g.Winners = []snowflake.ID{2}
	require.NoError(t, SaveGiveaway(g))

	changed, err := RemoveGiveawayParticipant(g.MessageID, 2)
	require.NoError(t, err)
	assert.True(t, changed)

	stored := LoadGiveaway(g.MessageID)
	assert.Equal(t, []snowflake.ID{1}, stored.Entrants)
	assert.Empty(t, stored.Winners)

	changed, err = RemoveGiveawayParticipant(g.MessageID, 42)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestBlacklistedEntrantNeverWins(t *testing.T) {
	setupGiveawayStore(t)
	g := newTestGiveaway(t, 510, []snowflake.ID{1, 2}, 2)

	// Blacklisted after joining: excluded at draw time.
	_, err := AddGiveawayBlacklist(g.GuildID, 2)
	require.NoError(t, err)

	winners, err := EndGiveaway(bot.Client{}, g.MessageID)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{1}, winners)
}
