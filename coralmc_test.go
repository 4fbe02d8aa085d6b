package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCoralClient(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)

	coralClientOnce.Do(func() {})
	coralClient = NewCoralClient(srv.URL)
	ClearCoralCache()

	t.Cleanup(func() {
		srv.Close()
		coralClient = nil
		coralClientOnce = sync.Once{}
		coralCacheMu.Lock()
		coralCacheTTL = 0
		coralCacheMu.Unlock()
		ClearCoralCache()
		timeNow = time.Now
	})
	return srv
}

const coralStatsBody = `{
	"bedwars": {
		"level": 42, "exp": 1234, "coins": 900,
		"kills": 100, "deaths": 50,
		"final_kills": 30, "final_deaths": 10,
		"wins": 20, "played": 35,
		"winstreak": 3, "h_winstreak": 9
	},
	"kitpvp": {
		"balance": 5000, "kills": 77, "deaths": 33,
		"bounty": 250, "topBounty": 1000,
		"streak": 4, "topstreak": 12
	}
}`

func TestFormatCoralRank(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"&6[VIP]", "VIP"},
		{"§c§lLEGEND", "LEGEND"},
		{"player", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCoralRank(tt.in), "input %q", tt.in)
	}
}

func TestGetPlayerStatsMapsFields(t *testing.T) {
	setupCoralClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/Steve", r.URL.Path)
		_, _ = w.Write([]byte(coralStatsBody))
	}))

	stats, err := coralClient.GetPlayerStats(context.Background(), "Steve")
	require.NoError(t, err)

	assert.Equal(t, 42, stats.Bedwars.Level)
	assert.Equal(t, 1234, stats.Bedwars.Experience)
	assert.Equal(t, 20, stats.Bedwars.Wins)
	assert.Equal(t, 15, stats.Bedwars.Losses, "losses must be played minus wins")
	assert.Equal(t, 9, stats.Bedwars.HighestWinstreak)
	assert.Equal(t, 5000, stats.Kitpvp.Balance)
	assert.Equal(t, 1000, stats.Kitpvp.HighestBounty)
	assert.Equal(t, 12, stats.Kitpvp.HighestStreak)
}

func TestGetPlayerStatsRejectsInvalidUsername(t *testing.T) {
	hits := 0
	setupCoralClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))

	for _, name := range []string{"ab", "this_name_is_way_too_long", "bad name", "héllo", ""} {
		_, err := coralClient.GetPlayerStats(context.Background(), name)
		assert.ErrorIs(t, err, ErrCoralInvalidUsername, "username %q", name)
	}
	assert.Equal(t, 0, hits, "invalid usernames must never reach the API")
}

func TestGetPlayerInfoFormatsRanks(t *testing.T) {
	setupCoralClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/Steve/infos", r.URL.Path)
		_, _ = w.Write([]byte(`{"username":"Steve","isBanned":true,"globalRank":"&6[VIP]","vipBedwars":"§cLEGEND","vipKitpvp":""}`))
	}))

	info, err := coralClient.GetPlayerInfo(context.Background(), "Steve")
	require.NoError(t, err)

	assert.Equal(t, "Steve", info.Username)
	assert.True(t, info.IsBanned)
	assert.Equal(t, "VIP", info.GlobalRank)
	assert.Equal(t, "LEGEND", info.BedwarsRank)
	assert.Equal(t, "", info.KitpvpRank)
	assert.Equal(t, "&6[VIP]", info.RawGlobal)
}

func TestGetPlayerInfoMissingUsernameIsNotFound(t *testing.T) {
	setupCoralClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := coralClient.GetPlayerInfo(context.Background(), "Nobody")
	assert.ErrorIs(t, err, ErrCoralNotFound)
}

func TestGetPlayerStatsNotFoundStatus(t *testing.T) {
	setupCoralClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := coralClient.GetPlayerStats(context.Background(), "Nobody")
	assert.ErrorIs(t, err, ErrCoralNotFound)
}

func TestCachedPlayerStats(t *testing.T) {
	hits := 0
	setupCoralClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(coralStatsBody))
	}))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return base }

	_, fromCache, err := CachedPlayerStats(context.Background(), "Steve")
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 1, hits)

	// Within TTL, even with a different case, the cache answers.
	_, fromCache, err = CachedPlayerStats(context.Background(), "STEVE")
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, 1, hits)

	// Past the TTL the entry is stale.
	timeNow = func() time.Time { return base.Add(301 * time.Second) }
	_, fromCache, err = CachedPlayerStats(context.Background(), "Steve")
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 2, hits)
}

func TestClearCoralCacheForcesRefetch(t *testing.T) {
	hits := 0
	setupCoralClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(coralStatsBody))
	}))

	_, _, err := CachedPlayerStats(context.Background(), "Steve")
	require.NoError(t, err)
	assert.Equal(t, 1, ClearCoralCache())

	_, fromCache, err := CachedPlayerStats(context.Background(), "Steve")
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 2, hits)
}

func TestSetCoralCacheTTL(t *testing.T) {
	assert.ErrorIs(t, SetCoralCacheTTL(29), ErrCoralTTLRange)
	assert.ErrorIs(t, SetCoralCacheTTL(3601), ErrCoralTTLRange)

	require.NoError(t, SetCoralCacheTTL(60))
	assert.Equal(t, 60*time.Second, getCoralCacheTTL())

	coralCacheMu.Lock()
	coralCacheTTL = 0
	coralCacheMu.Unlock()
}
