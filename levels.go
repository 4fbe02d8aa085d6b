package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
)

// ============================================================================
// Levels
// ============================================================================

const (
	MsgLevelUp              = "🎉 <@%s> reached **level %d**!"
	MsgLevelRankFail        = "Failed to render your rank card: %v"
	MsgLevelNoData          = "<@%s> has no XP yet."
	MsgLevelGaveXP          = "Gave **%d XP** to <@%s>. They are now level %d."
	MsgLevelSetXP           = "Set <@%s> to level %d with %d XP."
	MsgLevelChannelSet      = "Level-up announcements will go to <#%s>."
	MsgLevelStats           = "**Leveling stats**\nTracked members: %d\nYour rank: #%d"
	MsgLevelLeaderboardHead = "🏆 **Leaderboard** (page %d)\n"
	MsgLevelLeaderboardRow  = "**%d.** <@%s>: level %d (%d XP)\n"
	MsgLevelLeaderboardNone = "Nobody has earned XP yet."
	MsgLevelVoiceTickFail   = "Voice XP tick failed: %v"
	MsgLevelGrantFail       = "Failed to grant XP: %v"

	ErrLevelAdminOnly = "You need administrator permission to do that."

	LevelLeaderboardPageSize = 10
)

// ===========================
// Settings
// ===========================

type LevelSettings struct {
	TextXPMin           int                `json:"text_xp_min"`
	TextXPMax           int                `json:"text_xp_max"`
	TextCooldownSeconds int                `json:"text_cooldown_seconds"`
	VoiceXPMin          int                `json:"voice_xp_min"`
	VoiceXPMax          int                `json:"voice_xp_max"`
	AnnounceChannel     snowflake.ID       `json:"announce_channel,omitempty"`
	ExcludedChannels    []snowflake.ID     `json:"excluded_channels,omitempty"`
	ExcludedRoles       []snowflake.ID     `json:"excluded_roles,omitempty"`
	MultiplierRoles     map[string]float64 `json:"multiplier_roles,omitempty"`
}

func defaultLevelSettings() LevelSettings {
	return LevelSettings{
		TextXPMin:           5,
		TextXPMax:           15,
		TextCooldownSeconds: 60,
		VoiceXPMin:          2,
		VoiceXPMax:          5,
	}
}

func levelSettingsPath() string {
	return StorePath("levels_config.json")
}

// LoadLevelSettings reads the per-guild settings document fresh from disk,
// falling back to defaults for missing guilds and zero fields.
func LoadLevelSettings(guildID snowflake.ID) LevelSettings {
	all := map[string]LevelSettings{}
	if _, err := ReadJSONFile(levelSettingsPath(), &all); err != nil {
		LogLevels("Failed to read level settings: %v", err)
	}

	s, ok := all[guildID.String()]
	if !ok {
		return defaultLevelSettings()
	}

	def := defaultLevelSettings()
	if s.TextXPMin <= 0 {
		s.TextXPMin = def.TextXPMin
	}
	if s.TextXPMax < s.TextXPMin {
		s.TextXPMax = max(def.TextXPMax, s.TextXPMin)
	}
	if s.TextCooldownSeconds <= 0 {
		s.TextCooldownSeconds = def.TextCooldownSeconds
	}
	if s.VoiceXPMin <= 0 {
		s.VoiceXPMin = def.VoiceXPMin
	}
	if s.VoiceXPMax < s.VoiceXPMin {
		s.VoiceXPMax = max(def.VoiceXPMax, s.VoiceXPMin)
	}
	return s
}

func SaveLevelSettings(guildID snowflake.ID, s LevelSettings) error {
	all := map[string]LevelSettings{}
	if _, err := ReadJSONFile(levelSettingsPath(), &all); err != nil {
		return err
	}
	all[guildID.String()] = s
	return WriteJSONFile(levelSettingsPath(), all)
}

// ===========================
// XP Curve
// ===========================

// XPNeededForLevel returns the XP required to advance from the given level
// to the next one.
func XPNeededForLevel(level int) int {
	return 5*level*level + 50*level + 100
}

// applyXP adds XP to a row and advances its level while the per-level
// threshold is crossed. Returns how many levels were gained.
func applyXP(r *LevelRow, amount int) int {
	r.XP += amount
	gained := 0
	for r.XP >= XPNeededForLevel(r.Level) {
		r.XP -= XPNeededForLevel(r.Level)
		r.Level++
		gained++
	}
	return gained
}

// GrantXP persists an XP award and reports level-ups.
func GrantXP(ctx context.Context, guildID, userID snowflake.ID, amount int, countMessage bool) (*LevelRow, int, error) {
	row, err := GetLevelRow(ctx, guildID, userID)
	if err != nil {
		return nil, 0, err
	}

	gained := applyXP(row, amount)
	if countMessage {
		row.Messages++
	}

	if err := SaveLevelRow(ctx, row); err != nil {
		return nil, 0, err
	}
	return row, gained, nil
}

// ===========================
// Text XP
// ===========================

var (
	textXPCooldowns   = map[string]time.Time{}
	textXPCooldownsMu sync.Mutex
)

func textXPOnCooldown(guildID, userID snowflake.ID, cooldown time.Duration) bool {
	textXPCooldownsMu.Lock()
	defer textXPCooldownsMu.Unlock()

	key := guildID.String() + ":" + userID.String()
	now := timeNow()
	if last, ok := textXPCooldowns[key]; ok && now.Sub(last) < cooldown {
		return true
	}
	textXPCooldowns[key] = now
	return false
}

func levelXPMultiplier(s LevelSettings, roleIDs []snowflake.ID) float64 {
	mult := 1.0
	for _, rid := range roleIDs {
		if m, ok := s.MultiplierRoles[rid.String()]; ok && m > mult {
			mult = m
		}
	}
	return mult
}

func levelExcluded(s LevelSettings, channelID snowflake.ID, roleIDs []snowflake.ID) bool {
	for _, cid := range s.ExcludedChannels {
		if cid == channelID {
			return true
		}
	}
	for _, rid := range roleIDs {
		for _, ex := range s.ExcludedRoles {
			if ex == rid {
				return true
			}
		}
	}
	return false
}

func onLevelMessage(event *events.MessageCreate) {
	if event.Message.Author.Bot || event.GuildID == nil {
		return
	}

	guildID := *event.GuildID
	userID := event.Message.Author.ID
	s := LoadLevelSettings(guildID)

	var roleIDs []snowflake.ID
	if event.Message.Member != nil {
		roleIDs = event.Message.Member.RoleIDs
	}

	if levelExcluded(s, event.ChannelID, roleIDs) {
		return
	}
	if textXPOnCooldown(guildID, userID, time.Duration(s.TextCooldownSeconds)*time.Second) {
		return
	}

	amount := int(float64(RandomIntRange(s.TextXPMin, s.TextXPMax)) * levelXPMultiplier(s, roleIDs))
	row, gained, err := GrantXP(AppContext, guildID, userID, amount, true)
	if err != nil {
		LogLevels(MsgLevelGrantFail, err)
		return
	}

	if gained > 0 {
		announceLevelUp(*event.Client(), s, event.ChannelID, userID, row.Level)
	}
}

func announceLevelUp(client bot.Client, s LevelSettings, fallback snowflake.ID, userID snowflake.ID, level int) {
	channelID := s.AnnounceChannel
	if channelID == 0 {
		channelID = fallback
	}
	_, err := client.Rest.CreateMessage(channelID, discord.NewMessageCreateBuilder().
		SetContent(fmt.Sprintf(MsgLevelUp, userID, level)).
		Build())
	if err != nil {
		LogLevels("Failed to announce level up: %v", err)
	}
}

// ===========================
// Voice XP
// ===========================

type voicePresence struct {
	ChannelID snowflake.ID
	Silenced  bool
}

var (
	voiceSessions   = map[snowflake.ID]map[snowflake.ID]voicePresence{}
	voiceSessionsMu sync.Mutex
	voiceTickerOn   bool
)

func onLevelVoiceState(event *events.GuildVoiceStateUpdate) {
	if event.Member.User.Bot {
		return
	}

	state := event.VoiceState
	voiceSessionsMu.Lock()
	defer voiceSessionsMu.Unlock()

	guild := voiceSessions[state.GuildID]
	if guild == nil {
		guild = map[snowflake.ID]voicePresence{}
		voiceSessions[state.GuildID] = guild
	}

	if state.ChannelID == nil {
		delete(guild, state.UserID)
		return
	}

	guild[state.UserID] = voicePresence{
		ChannelID: *state.ChannelID,
		Silenced:  state.SelfMute || state.SelfDeaf || state.GuildMute || state.GuildDeaf,
	}
}

func voiceXPTick(ctx context.Context, client bot.Client) {
	voiceSessionsMu.Lock()
	type grant struct {
		guildID snowflake.ID
		userID  snowflake.ID
	}
	var grants []grant
	for guildID, members := range voiceSessions {
		s := LoadLevelSettings(guildID)
		for userID, p := range members {
			if p.Silenced {
				continue
			}
			if levelExcluded(s, p.ChannelID, nil) {
				continue
			}
			grants = append(grants, grant{guildID, userID})
		}
	}
	voiceSessionsMu.Unlock()

	for _, gr := range grants {
		s := LoadLevelSettings(gr.guildID)
		amount := RandomIntRange(s.VoiceXPMin, s.VoiceXPMax)
		row, gained, err := GrantXP(ctx, gr.guildID, gr.userID, amount, false)
		if err != nil {
			LogLevels(MsgLevelVoiceTickFail, err)
			continue
		}
		if gained > 0 && s.AnnounceChannel != 0 {
			announceLevelUp(client, s, s.AnnounceChannel, gr.userID, row.Level)
		}
	}
}

// StartVoiceXPTicker grants voice XP once per minute to tracked members.
func StartVoiceXPTicker(ctx context.Context, client bot.Client) (bool, func(), func()) {
	if voiceTickerOn {
		return false, nil, nil
	}
	voiceTickerOn = true

	return true, func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					voiceXPTick(ctx, client)
				case <-ctx.Done():
					return
				}
			}
		}, func() {
			LogLevels("Shutting down Voice XP Ticker...")
		}
}

// ===========================
// Command Registration
// ===========================

func init() {
	RegisterCommand(discord.SlashCommandCreate{
		Name:        "level",
		Description: "Leveling and XP",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "rank",
				Description: "Show a rank card",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "User to look up (defaults to you)",
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "leaderboard",
				Description: "Show the XP leaderboard",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "page",
						Description: "Page number",
						MinValue:    intPtr(1),
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "stats",
				Description: "Leveling statistics for this server",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "givexp",
				Description: "Give XP to a user (admin)",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "Recipient",
						Required:    true,
					},
					discord.ApplicationCommandOptionInt{
						Name:        "amount",
						Description: "XP to give",
						Required:    true,
						MinValue:    intPtr(1),
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "setxp",
				Description: "Set a user's level and XP (admin)",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "User to modify",
						Required:    true,
					},
					discord.ApplicationCommandOptionInt{
						Name:        "level",
						Description: "New level",
						Required:    true,
						MinValue:    intPtr(0),
					},
					discord.ApplicationCommandOptionInt{
						Name:        "xp",
						Description: "XP within the level",
						MinValue:    intPtr(0),
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "setchannel",
				Description: "Set the level-up announcement channel (admin)",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionChannel{
						Name:        "channel",
						Description: "Announcement channel",
						Required:    true,
					},
				},
			},
		},
	}, handleLevel)

	RegisterMessageCreateHandler(onLevelMessage)
	RegisterVoiceStateUpdateHandler(onLevelVoiceState)

	OnClientReady(func(ctx context.Context, client bot.Client) {
		RegisterDaemon(LogLevels, func(ctx context.Context) (bool, func(), func()) {
			return StartVoiceXPTicker(ctx, client)
		})
	})
}

// ===========================
// Command Handlers
// ===========================

func levelRespond(event *events.ApplicationCommandInteractionCreate, content string) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
	if err != nil {
		LogLevels("Failed to respond: %v", err)
	}
}

func levelIsAdmin(event *events.ApplicationCommandInteractionCreate) bool {
	member := event.Member()
	return member != nil && member.Permissions.Has(discord.PermissionAdministrator)
}

func handleLevel(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()

	if event.GuildID() == nil {
		levelRespond(event, ErrGiveawayGuildOnly)
		return
	}

	subCmd := data.SubCommandName
	if subCmd == nil {
		return
	}

	switch *subCmd {
	case "rank":
		handleLevelRank(event, data)
	case "leaderboard":
		handleLevelLeaderboard(event, data)
	case "stats":
		handleLevelStats(event)
	case "givexp":
		handleLevelGiveXP(event, data)
	case "setxp":
		handleLevelSetXP(event, data)
	case "setchannel":
		handleLevelSetChannel(event, data)
	}
}

func handleLevelRank(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	guildID := *event.GuildID()

	target := event.User()
	if u, ok := data.OptUser("user"); ok {
		target = u
	}

	row, err := GetLevelRow(AppContext, guildID, target.ID)
	if err != nil {
		levelRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	if row.XP == 0 && row.Level == 0 {
		levelRespond(event, fmt.Sprintf(MsgLevelNoData, target.ID))
		return
	}

	rank, err := GetLevelRank(AppContext, guildID, target.ID)
	if err != nil {
		levelRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}

	card, err := RenderRankCard(RankCardData{
		Username: target.Username,
		Avatar:   fetchAvatar(target),
		Level:    row.Level,
		XP:       row.XP,
		Needed:   XPNeededForLevel(row.Level),
		Rank:     rank,
	})
	if err != nil {
		LogLevels(MsgLevelRankFail, err)
		levelRespond(event, fmt.Sprintf(MsgLevelRankFail, err))
		return
	}

	err = event.CreateMessage(discord.NewMessageCreateBuilder().
		AddFiles(discord.NewFile("rank.png", "Rank card", card)).
		Build())
	if err != nil {
		LogLevels("Failed to send rank card: %v", err)
	}
}

func handleLevelLeaderboard(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	guildID := *event.GuildID()

	page := 1
	if p, ok := data.OptInt("page"); ok {
		page = p
	}

	rows, err := GetLevelLeaderboard(AppContext, guildID, LevelLeaderboardPageSize, (page-1)*LevelLeaderboardPageSize)
	if err != nil {
		levelRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	if len(rows) == 0 {
		levelRespond(event, MsgLevelLeaderboardNone)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(MsgLevelLeaderboardHead, page))
	for i, r := range rows {
		sb.WriteString(fmt.Sprintf(MsgLevelLeaderboardRow, (page-1)*LevelLeaderboardPageSize+i+1, r.UserID, r.Level, r.XP))
	}

	err = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(sb.String()).
		Build())
	if err != nil {
		LogLevels("Failed to respond: %v", err)
	}
}

func handleLevelStats(event *events.ApplicationCommandInteractionCreate) {
	guildID := *event.GuildID()

	count, err := CountLevelRows(AppContext, guildID)
	if err != nil {
		levelRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	rank, err := GetLevelRank(AppContext, guildID, event.User().ID)
	if err != nil {
		levelRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}

	levelRespond(event, fmt.Sprintf(MsgLevelStats, count, rank))
}

func handleLevelGiveXP(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !levelIsAdmin(event) {
		levelRespond(event, ErrLevelAdminOnly)
		return
	}

	guildID := *event.GuildID()
	userID := data.Snowflake("user")
	amount := data.Int("amount")

	row, _, err := GrantXP(AppContext, guildID, userID, amount, false)
	if err != nil {
		levelRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	levelRespond(event, fmt.Sprintf(MsgLevelGaveXP, amount, userID, row.Level))
}

func handleLevelSetXP(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !levelIsAdmin(event) {
		levelRespond(event, ErrLevelAdminOnly)
		return
	}

	guildID := *event.GuildID()
	userID := data.Snowflake("user")
	level := data.Int("level")
	xp := 0
	if x, ok := data.OptInt("xp"); ok {
		xp = x
	}

	row, err := GetLevelRow(AppContext, guildID, userID)
	if err != nil {
		levelRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	row.Level = level
	row.XP = xp
	if err := SaveLevelRow(AppContext, row); err != nil {
		levelRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	levelRespond(event, fmt.Sprintf(MsgLevelSetXP, userID, level, xp))
}

func handleLevelSetChannel(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !levelIsAdmin(event) {
		levelRespond(event, ErrLevelAdminOnly)
		return
	}

	guildID := *event.GuildID()
	channelID := data.Snowflake("channel")

	s := LoadLevelSettings(guildID)
	s.AnnounceChannel = channelID
	if err := SaveLevelSettings(guildID, s); err != nil {
		levelRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	levelRespond(event, fmt.Sprintf(MsgLevelChannelSet, channelID))
}
