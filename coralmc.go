package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"golang.org/x/time/rate"
)

// ============================================================================
// CoralMC Stats
// ============================================================================

const (
	MsgCoralCacheCleared = "✅ Cleared %d cached CoralMC entries."
	MsgCoralTTLSet       = "✅ CoralMC cache TTL set to %ds."
	MsgCoralFooter       = "Source: %s | TTL %ds"
	MsgCoralStatsTitle   = "Statistics for %s"
	MsgCoralInfoTitle    = "Info for %s"
	MsgCoralNone         = "None"

	ErrCoralInvalidUsernameMsg = "❌ Invalid username. Use 3-16 letters, digits or underscores."
	ErrCoralNotFoundMsg        = "❌ Player not found or the CoralMC API returned an error."
	ErrCoralNoPermission       = "❌ You need the Manage Server permission to do that."
	ErrCoralTTLRangeMsg        = "❌ TTL out of range (30-3600 seconds)."
)

var (
	ErrCoralInvalidUsername = errors.New("invalid coralmc username")
	ErrCoralNotFound        = errors.New("coralmc player not found")
	ErrCoralTTLRange        = errors.New("coralmc cache ttl out of range")
)

var coralUsernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,16}$`)

// FormatCoralRank strips everything but upper-case letters from a raw rank
// string, which is how CoralMC encodes display colors into rank names.
func FormatCoralRank(raw string) string {
	var sb strings.Builder
	for _, r := range raw {
		if r >= 'A' && r <= 'Z' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ===========================
// API Types
// ===========================

type CoralBedwarsStats struct {
	Level            int
	Experience       int
	Coins            int
	Kills            int
	Deaths           int
	FinalKills       int
	FinalDeaths      int
	Wins             int
	Losses           int
	Winstreak        int
	HighestWinstreak int
}

type CoralKitpvpStats struct {
	Balance       int
	Kills         int
	Deaths        int
	Bounty        int
	HighestBounty int
	Streak        int
	HighestStreak int
}

type CoralPlayerStats struct {
	Bedwars CoralBedwarsStats
	Kitpvp  CoralKitpvpStats
}

type CoralPlayerInfo struct {
	Username    string
	IsBanned    bool
	GlobalRank  string
	BedwarsRank string
	KitpvpRank  string
	RawGlobal   string
	RawBedwars  string
	RawKitpvp   string
}

type coralStatsResponse struct {
	Bedwars struct {
		Level            int `json:"level"`
		Exp              int `json:"exp"`
		Coins            int `json:"coins"`
		Kills            int `json:"kills"`
		Deaths           int `json:"deaths"`
		FinalKills       int `json:"final_kills"`
		FinalDeaths      int `json:"final_deaths"`
		Wins             int `json:"wins"`
		Played           int `json:"played"`
		Winstreak        int `json:"winstreak"`
		HighestWinstreak int `json:"h_winstreak"`
	} `json:"bedwars"`
	Kitpvp struct {
		Balance       int `json:"balance"`
		Kills         int `json:"kills"`
		Deaths        int `json:"deaths"`
		Bounty        int `json:"bounty"`
		HighestBounty int `json:"topBounty"`
		Streak        int `json:"streak"`
		HighestStreak int `json:"topstreak"`
	} `json:"kitpvp"`
}

type coralInfoResponse struct {
	Username   string `json:"username"`
	IsBanned   bool   `json:"isBanned"`
	GlobalRank string `json:"globalRank"`
	VipBedwars string `json:"vipBedwars"`
	VipKitpvp  string `json:"vipKitpvp"`
}

// ===========================
// Client
// ===========================

type CoralClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func NewCoralClient(baseURL string) *CoralClient {
	return &CoralClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    HttpClient,
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

func (c *CoralClient) getJSON(ctx context.Context, path string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrCoralNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coralmc api returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// GetPlayerStats fetches bedwars and kitpvp statistics for a player.
func (c *CoralClient) GetPlayerStats(ctx context.Context, username string) (*CoralPlayerStats, error) {
	if !coralUsernameRe.MatchString(username) {
		return nil, ErrCoralInvalidUsername
	}

	var raw coralStatsResponse
	if err := c.getJSON(ctx, "/user/"+username, &raw); err != nil {
		return nil, err
	}

	return &CoralPlayerStats{
		Bedwars: CoralBedwarsStats{
			Level:            raw.Bedwars.Level,
			Experience:       raw.Bedwars.Exp,
			Coins:            raw.Bedwars.Coins,
			Kills:            raw.Bedwars.Kills,
			Deaths:           raw.Bedwars.Deaths,
			FinalKills:       raw.Bedwars.FinalKills,
			FinalDeaths:      raw.Bedwars.FinalDeaths,
			Wins:             raw.Bedwars.Wins,
			Losses:           raw.Bedwars.Played - raw.Bedwars.Wins,
			Winstreak:        raw.Bedwars.Winstreak,
			HighestWinstreak: raw.Bedwars.HighestWinstreak,
		},
		Kitpvp: CoralKitpvpStats{
			Balance:       raw.Kitpvp.Balance,
			Kills:         raw.Kitpvp.Kills,
			Deaths:        raw.Kitpvp.Deaths,
			Bounty:        raw.Kitpvp.Bounty,
			HighestBounty: raw.Kitpvp.HighestBounty,
			Streak:        raw.Kitpvp.Streak,
			HighestStreak: raw.Kitpvp.HighestStreak,
		},
	}, nil
}

// GetPlayerInfo fetches username, ban state and formatted ranks.
func (c *CoralClient) GetPlayerInfo(ctx context.Context, username string) (*CoralPlayerInfo, error) {
	if !coralUsernameRe.MatchString(username) {
		return nil, ErrCoralInvalidUsername
	}

	var raw coralInfoResponse
	if err := c.getJSON(ctx, "/user/"+username+"/infos", &raw); err != nil {
		return nil, err
	}
	if raw.Username == "" {
		return nil, ErrCoralNotFound
	}

	return &CoralPlayerInfo{
		Username:    raw.Username,
		IsBanned:    raw.IsBanned,
		GlobalRank:  FormatCoralRank(raw.GlobalRank),
		BedwarsRank: FormatCoralRank(raw.VipBedwars),
		KitpvpRank:  FormatCoralRank(raw.VipKitpvp),
		RawGlobal:   raw.GlobalRank,
		RawBedwars:  raw.VipBedwars,
		RawKitpvp:   raw.VipKitpvp,
	}, nil
}

// ===========================
// Cache
// ===========================

type coralCacheEntry struct {
	at    time.Time
	stats *CoralPlayerStats
	info  *CoralPlayerInfo
}

var (
	coralClient     *CoralClient
	coralClientOnce sync.Once

	coralCacheMu    sync.Mutex
	coralStatsCache = map[string]coralCacheEntry{}
	coralInfoCache  = map[string]coralCacheEntry{}
	coralCacheTTL   = 0
)

func getCoralClient() *CoralClient {
	coralClientOnce.Do(func() {
		base := "https://api.coralmc.it/api"
		if GlobalConfig != nil && GlobalConfig.CoralBaseURL != "" {
			base = GlobalConfig.CoralBaseURL
		}
		coralClient = NewCoralClient(base)
	})
	return coralClient
}

func getCoralCacheTTL() time.Duration {
	coralCacheMu.Lock()
	defer coralCacheMu.Unlock()
	if coralCacheTTL > 0 {
		return time.Duration(coralCacheTTL) * time.Second
	}
	if GlobalConfig != nil && GlobalConfig.CoralCacheTTL > 0 {
		return time.Duration(GlobalConfig.CoralCacheTTL) * time.Second
	}
	return 300 * time.Second
}

// SetCoralCacheTTL overrides the cache TTL at runtime, clamped to 30-3600s.
func SetCoralCacheTTL(seconds int) error {
	if seconds < 30 || seconds > 3600 {
		return ErrCoralTTLRange
	}
	coralCacheMu.Lock()
	defer coralCacheMu.Unlock()
	coralCacheTTL = seconds
	return nil
}

// ClearCoralCache drops every cached response and reports how many there were.
func ClearCoralCache() int {
	coralCacheMu.Lock()
	defer coralCacheMu.Unlock()
	n := len(coralStatsCache) + len(coralInfoCache)
	coralStatsCache = map[string]coralCacheEntry{}
	coralInfoCache = map[string]coralCacheEntry{}
	return n
}

// CachedPlayerStats serves stats from the cache when fresh, fetching and
// storing otherwise. The second return reports whether the cache answered.
func CachedPlayerStats(ctx context.Context, username string) (*CoralPlayerStats, bool, error) {
	key := strings.ToLower(username)
	ttl := getCoralCacheTTL()

	coralCacheMu.Lock()
	if e, ok := coralStatsCache[key]; ok && timeNow().Sub(e.at) < ttl {
		coralCacheMu.Unlock()
		return e.stats, true, nil
	}
	coralCacheMu.Unlock()

	stats, err := getCoralClient().GetPlayerStats(ctx, username)
	if err != nil {
		return nil, false, err
	}

	coralCacheMu.Lock()
	coralStatsCache[key] = coralCacheEntry{at: timeNow(), stats: stats}
	coralCacheMu.Unlock()
	return stats, false, nil
}

// CachedPlayerInfo is the info-endpoint counterpart of CachedPlayerStats.
func CachedPlayerInfo(ctx context.Context, username string) (*CoralPlayerInfo, bool, error) {
	key := strings.ToLower(username)
	ttl := getCoralCacheTTL()

	coralCacheMu.Lock()
	if e, ok := coralInfoCache[key]; ok && timeNow().Sub(e.at) < ttl {
		coralCacheMu.Unlock()
		return e.info, true, nil
	}
	coralCacheMu.Unlock()

	info, err := getCoralClient().GetPlayerInfo(ctx, username)
	if err != nil {
		return nil, false, err
	}

	coralCacheMu.Lock()
	coralInfoCache[key] = coralCacheEntry{at: timeNow(), info: info}
	coralCacheMu.Unlock()
	return info, false, nil
}

func coralCacheSource(fromCache bool) string {
	if fromCache {
		return "CACHE"
	}
	return "LIVE"
}

// ===========================
// Command Registration
// ===========================

func init() {
	RegisterCommand(discord.SlashCommandCreate{
		Name:        "coralmc",
		Description: "CoralMC player lookups",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "stats",
				Description: "Show a player's Bedwars / KitPvP statistics",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "username",
						Description: "Minecraft username",
						Required:    true,
					},
					discord.ApplicationCommandOptionBool{
						Name:        "public",
						Description: "Show the response to everyone",
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "info",
				Description: "Show a player's ranks and ban state",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "username",
						Description: "Minecraft username",
						Required:    true,
					},
					discord.ApplicationCommandOptionBool{
						Name:        "public",
						Description: "Show the response to everyone",
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "clearcache",
				Description: "Clear the CoralMC response cache",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "setttl",
				Description: "Set the CoralMC cache TTL in seconds",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "seconds",
						Description: "Seconds (30-3600)",
						Required:    true,
						MinValue:    intPtr(30),
						MaxValue:    intPtr(3600),
					},
				},
			},
		},
	}, handleCoral)
}

// ===========================
// Command Handlers
// ===========================

func coralRespond(event *events.ApplicationCommandInteractionCreate, content string) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
	if err != nil {
		LogCoral("Failed to respond: %v", err)
	}
}

func coralCanManage(event *events.ApplicationCommandInteractionCreate) bool {
	member := event.Member()
	return member != nil && member.Permissions.Has(discord.PermissionManageGuild)
}

func handleCoral(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()

	subCmd := data.SubCommandName
	if subCmd == nil {
		return
	}

	switch *subCmd {
	case "stats":
		handleCoralStats(event, data)
	case "info":
		handleCoralInfo(event, data)
	case "clearcache":
		handleCoralClearCache(event)
	case "setttl":
		handleCoralSetTTL(event, data)
	}
}

func coralFollowup(event *events.ApplicationCommandInteractionCreate, content string) {
	_, err := event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), discord.NewMessageUpdateBuilder().
		SetContent(content).
		Build())
	if err != nil {
		LogCoral("Failed to respond: %v", err)
	}
}

func coralFollowupEmbed(event *events.ApplicationCommandInteractionCreate, embed discord.Embed) {
	_, err := event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		Build())
	if err != nil {
		LogCoral("Failed to respond: %v", err)
	}
}

func coralLookupError(err error) string {
	switch {
	case errors.Is(err, ErrCoralInvalidUsername):
		return ErrCoralInvalidUsernameMsg
	case errors.Is(err, ErrCoralNotFound):
		return ErrCoralNotFoundMsg
	default:
		return ErrCoralNotFoundMsg
	}
}

func handleCoralStats(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	username := data.String("username")
	public, _ := data.OptBool("public")

	if !coralUsernameRe.MatchString(username) {
		coralRespond(event, ErrCoralInvalidUsernameMsg)
		return
	}

	_ = event.DeferCreateMessage(!public)

	go func() {
		stats, fromCache, err := CachedPlayerStats(AppContext, username)
		if err != nil {
			LogCoral("Stats lookup for %s failed: %v", username, err)
			coralFollowup(event, coralLookupError(err))
			return
		}

		bed := stats.Bedwars
		kit := stats.Kitpvp
		embed := discord.NewEmbedBuilder().
			SetTitle(fmt.Sprintf(MsgCoralStatsTitle, username)).
			SetColor(0x1ABC9C).
			AddField("Bedwars", fmt.Sprintf(
				"Level: %d\nExp: %d\nCoins: %d\nKills: %d / Deaths: %d\nFinal K: %d / Final D: %d\nWins: %d / Losses: %d\nWinstreak: %d (High %d)",
				bed.Level, bed.Experience, bed.Coins, bed.Kills, bed.Deaths,
				bed.FinalKills, bed.FinalDeaths, bed.Wins, bed.Losses,
				bed.Winstreak, bed.HighestWinstreak), false).
			AddField("KitPvP", fmt.Sprintf(
				"Balance: %d\nKills: %d / Deaths: %d\nBounty: %d (High %d)\nStreak: %d (High %d)",
				kit.Balance, kit.Kills, kit.Deaths, kit.Bounty,
				kit.HighestBounty, kit.Streak, kit.HighestStreak), false).
			SetFooter(fmt.Sprintf(MsgCoralFooter, coralCacheSource(fromCache), int(getCoralCacheTTL().Seconds())), "").
			Build()

		coralFollowupEmbed(event, embed)
	}()
}

func handleCoralInfo(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	username := data.String("username")
	public, _ := data.OptBool("public")

	if !coralUsernameRe.MatchString(username) {
		coralRespond(event, ErrCoralInvalidUsernameMsg)
		return
	}

	_ = event.DeferCreateMessage(!public)

	go func() {
		info, fromCache, err := CachedPlayerInfo(AppContext, username)
		if err != nil {
			LogCoral("Info lookup for %s failed: %v", username, err)
			coralFollowup(event, coralLookupError(err))
			return
		}

		banned := "❌ No"
		if info.IsBanned {
			banned = "✅ Yes"
		}
		orNone := func(s string) string {
			if s == "" {
				return MsgCoralNone
			}
			return s
		}

		embed := discord.NewEmbedBuilder().
			SetTitle(fmt.Sprintf(MsgCoralInfoTitle, info.Username)).
			SetColor(0x3498DB).
			AddField("Banned", banned, true).
			AddField("Rank Global", orNone(info.GlobalRank), true).
			AddField("Rank Bedwars", orNone(info.BedwarsRank), true).
			AddField("Rank KitPvP", orNone(info.KitpvpRank), true).
			AddField("Raw Global", orNone(info.RawGlobal), true).
			AddField("Raw Bedwars", orNone(info.RawBedwars), true).
			AddField("Raw KitPvP", orNone(info.RawKitpvp), true).
			SetFooter(fmt.Sprintf(MsgCoralFooter, coralCacheSource(fromCache), int(getCoralCacheTTL().Seconds())), "").
			Build()

		coralFollowupEmbed(event, embed)
	}()
}

func handleCoralClearCache(event *events.ApplicationCommandInteractionCreate) {
	if !coralCanManage(event) {
		coralRespond(event, ErrCoralNoPermission)
		return
	}
	coralRespond(event, fmt.Sprintf(MsgCoralCacheCleared, ClearCoralCache()))
}

func handleCoralSetTTL(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !coralCanManage(event) {
		coralRespond(event, ErrCoralNoPermission)
		return
	}

	seconds := data.Int("seconds")
	if err := SetCoralCacheTTL(seconds); err != nil {
		coralRespond(event, ErrCoralTTLRangeMsg)
		return
	}
	coralRespond(event, fmt.Sprintf(MsgCoralTTLSet, seconds))
}
