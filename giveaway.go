package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"
)

// ============================================================================
// Giveaways
// ============================================================================

const (
	MsgGiveawayCreated         = "Giveaway for **%s** created! Ends %s."
	MsgGiveawayJoined          = "You joined the giveaway! 🎉"
	MsgGiveawayLeft            = "You left the giveaway."
	MsgGiveawayEndedNow        = "Giveaway ended. Winners: %s"
	MsgGiveawayNoWinners       = "Giveaway ended with no eligible entrants."
	MsgGiveawayRerolled        = "🎉 Rerolled! New winner(s): %s"
	MsgGiveawayRemovedUser     = "Removed <@%s> from the giveaway."
	MsgGiveawayUserNotIn       = "<@%s> is not an entrant or winner of that giveaway."
	MsgGiveawayBlacklistAdd    = "<@%s> is now blacklisted from giveaways."
	MsgGiveawayBlacklistRemove = "<@%s> was removed from the giveaway blacklist."
	MsgGiveawayBlacklistEmpty  = "No users are blacklisted in this guild."
	MsgGiveawayBlacklistList   = "**Blacklisted users:**\n%s"
	MsgGiveawayEntrantsHeader  = "**Entrants (%d):**\n%s"
	MsgGiveawayEntrantsNone    = "Nobody has joined yet."
	MsgGiveawayEndLogged       = "Ended giveaway %s (%d winner(s))"
	MsgGiveawayScanFail        = "Expiry scan failed for %s: %v"
	MsgGiveawayCatchUp         = "Catch-up scan found %d expired giveaway(s)"
	MsgGiveawaySaveFail        = "Failed to save giveaway %s: %v"
	MsgGiveawayAnnounceFail    = "Failed to update announcement for %s: %v"

	ErrGiveawayBadDuration    = "Invalid duration. Use forms like `1d2h30m`, `90s` or `45`."
	ErrGiveawayNoExpiryMsg    = "Provide a `duration` or an `expire` UNIX timestamp."
	ErrGiveawayBadWinners     = "Winner count must be at least 1."
	ErrGiveawayNotFoundMsg    = "No giveaway found for that message ID."
	ErrGiveawayEndedMsg       = "That giveaway has already ended."
	ErrGiveawayBlacklistedMsg = "You are blacklisted from giveaways in this server."
	ErrGiveawayNoPoolMsg      = "No eligible entrants left to draw from."
	ErrGiveawayGuildOnly      = "This command can only be used in a server."
	ErrGiveawayGenericFail    = "Something went wrong: %v"

	GiveawayStatusActive = "active"
	GiveawayStatusEnded  = "ended"
)

var (
	ErrGiveawayNotFound    = errors.New("giveaway not found")
	ErrGiveawayOver        = errors.New("giveaway already ended")
	ErrGiveawayBlacklisted = errors.New("user is blacklisted")
	ErrGiveawayEmptyPool   = errors.New("no eligible entrants")
	ErrGiveawayDuration    = errors.New("invalid duration")
)

// timeNow is swapped out in tests.
var timeNow = time.Now

// ===========================
// Data Model
// ===========================

type Giveaway struct {
	GuildID       snowflake.ID   `json:"guild_id"`
	ChannelID     snowflake.ID   `json:"channel_id"`
	MessageID     snowflake.ID   `json:"message_id"`
	Prize         string         `json:"prize"`
	DurationText  string         `json:"duration_text,omitempty"`
	ExpireEpoch   int64          `json:"expire_epoch"`
	NumberWinners int            `json:"number_winners"`
	Host          snowflake.ID   `json:"host"`
	CreatedBy     snowflake.ID   `json:"created_by"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
	Status        string         `json:"status"`
	Entrants      []snowflake.ID `json:"entrants"`
	Winners       []snowflake.ID `json:"winners"`
	EndTemplate   string         `json:"end_message_template"`
}

func giveawayPath(messageID snowflake.ID) string {
	return StorePath("giveaways", messageID.String()+".json")
}

// LoadGiveaway reads one record from disk. A missing or malformed file is
// treated as record absent.
func LoadGiveaway(messageID snowflake.ID) *Giveaway {
	g := &Giveaway{}
	found, err := ReadJSONFile(giveawayPath(messageID), g)
	if err != nil || !found {
		return nil
	}
	return g
}

func SaveGiveaway(g *Giveaway) error {
	g.UpdatedAt = timeNow().UTC().Format(time.RFC3339)
	return WriteJSONFile(giveawayPath(g.MessageID), g)
}

// LoadAllGiveaways returns every parseable record. Corrupt files are skipped.
func LoadAllGiveaways() []*Giveaway {
	paths, err := ListJSONFiles(StorePath("giveaways"))
	if err != nil {
		LogGiveaway("Failed to list giveaways: %v", err)
		return nil
	}

	var out []*Giveaway
	for _, p := range paths {
		g := &Giveaway{}
		if found, err := ReadJSONFile(p, g); err != nil || !found {
			continue
		}
		out = append(out, g)
	}
	return out
}

// ===========================
// Blacklist
// ===========================

func giveawayBlacklistPath() string {
	return StorePath("giveaway_blacklist.json")
}

// LoadGiveawayBlacklist reads the blacklist fresh from disk so admin edits
// apply on the next draw without a restart.
func LoadGiveawayBlacklist() map[string][]snowflake.ID {
	bl := map[string][]snowflake.ID{}
	if _, err := ReadJSONFile(giveawayBlacklistPath(), &bl); err != nil {
		LogGiveaway("Failed to read blacklist: %v", err)
	}
	return bl
}

func IsGiveawayBlacklisted(guildID, userID snowflake.ID) bool {
	bl := LoadGiveawayBlacklist()
	for _, id := range bl[guildID.String()] {
		if id == userID {
			return true
		}
	}
	return false
}

func AddGiveawayBlacklist(guildID, userID snowflake.ID) (bool, error) {
	bl := LoadGiveawayBlacklist()
	key := guildID.String()
	for _, id := range bl[key] {
		if id == userID {
			return false, nil
		}
	}
	bl[key] = append(bl[key], userID)
	return true, WriteJSONFile(giveawayBlacklistPath(), bl)
}

func RemoveGiveawayBlacklist(guildID, userID snowflake.ID) (bool, error) {
	bl := LoadGiveawayBlacklist()
	key := guildID.String()
	kept := bl[key][:0]
	removed := false
	for _, id := range bl[key] {
		if id == userID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	if !removed {
		return false, nil
	}
	bl[key] = kept
	return true, WriteJSONFile(giveawayBlacklistPath(), bl)
}

// ===========================
// Templates
// ===========================

type GiveawayTemplates struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	EndTitle       string `json:"end_title"`
	EndDescription string `json:"end_description"`
	WinnerMessage  string `json:"winner_message"`
	Color          int    `json:"color"`
}

func defaultGiveawayTemplates() GiveawayTemplates {
	return GiveawayTemplates{
		Title:          "🎉 Giveaway: {prize}",
		Description:    "Press the button below to enter!\n\n**Prize:** {prize}\n**Duration:** {duration}\n**Ends:** {expire}\n**Hosted by:** {host}",
		EndTitle:       "🎉 Giveaway Ended: {prize}",
		EndDescription: "This giveaway has ended.\n\n**Prize:** {prize}\n**Hosted by:** {host}",
		WinnerMessage:  "Congratulations {winner}! You won **{prize}**!",
		Color:          0xF1C40F,
	}
}

// LoadGiveawayTemplates merges the on-disk template document field by field
// over the defaults so missing keys never break rendering.
func LoadGiveawayTemplates() GiveawayTemplates {
	t := GiveawayTemplates{}
	if _, err := ReadJSONFile(StorePath("giveaway_templates.json"), &t); err != nil {
		LogGiveaway("Failed to read templates: %v", err)
	}

	def := defaultGiveawayTemplates()
	if t.Title == "" {
		t.Title = def.Title
	}
	if t.Description == "" {
		t.Description = def.Description
	}
	if t.EndTitle == "" {
		t.EndTitle = def.EndTitle
	}
	if t.EndDescription == "" {
		t.EndDescription = def.EndDescription
	}
	if t.WinnerMessage == "" {
		t.WinnerMessage = def.WinnerMessage
	}
	if t.Color == 0 {
		t.Color = def.Color
	}
	return t
}

// ===========================
// Duration Parser
// ===========================

// ParseGiveawayDuration converts strings like "1d2h30m" into total seconds.
// A trailing bare number counts as seconds. The total must be positive.
func ParseGiveawayDuration(s string) (int64, error) {
	if s == "" {
		return 0, ErrGiveawayDuration
	}

	var total, current int64
	haveDigit := false

	for _, r := range strings.ToLower(s) {
		switch {
		case r >= '0' && r <= '9':
			current = current*10 + int64(r-'0')
			haveDigit = true
		case r == 'd' || r == 'h' || r == 'm' || r == 's':
			if !haveDigit {
				return 0, ErrGiveawayDuration
			}
			switch r {
			case 'd':
				total += current * 86400
			case 'h':
				total += current * 3600
			case 'm':
				total += current * 60
			case 's':
				total += current
			}
			current = 0
			haveDigit = false
		default:
			return 0, ErrGiveawayDuration
		}
	}

	if haveDigit {
		total += current
	}

	if total <= 0 {
		return 0, ErrGiveawayDuration
	}
	return total, nil
}

// FormatDiscordRelative renders an epoch as Discord relative-time markup.
func FormatDiscordRelative(epoch int64) string {
	return fmt.Sprintf("<t:%d:R>", epoch)
}

// ===========================
// Template Renderer
// ===========================

// RenderGiveawayTemplate substitutes the known placeholders by plain string
// replacement. Unrecognized placeholders are left verbatim.
func RenderGiveawayTemplate(tpl string, g *Giveaway, winner string) string {
	r := strings.NewReplacer(
		"{prize}", g.Prize,
		"{duration}", g.DurationText,
		"{expire}", FormatDiscordRelative(g.ExpireEpoch),
		"{host}", fmt.Sprintf("<@%s>", g.Host),
		"{winner}", winner,
	)
	return r.Replace(tpl)
}

// ===========================
// Entrant/Winner Selector
// ===========================

// EligibleEntrants filters the guild blacklist and any explicit exclusions
// out of the entrant pool. The blacklist is loaded fresh per call.
func EligibleEntrants(guildID snowflake.ID, entrants []snowflake.ID, exclude []snowflake.ID) []snowflake.ID {
	bl := LoadGiveawayBlacklist()
	blocked := map[snowflake.ID]bool{}
	for _, id := range bl[guildID.String()] {
		blocked[id] = true
	}
	for _, id := range exclude {
		blocked[id] = true
	}

	var pool []snowflake.ID
	for _, id := range entrants {
		if !blocked[id] {
			pool = append(pool, id)
		}
	}
	return pool
}

// DrawGiveawayWinners samples min(n, len(pool)) entrants uniformly at random
// without replacement.
func DrawGiveawayWinners(pool []snowflake.ID, n int) []snowflake.ID {
	if n <= 0 || len(pool) == 0 {
		return nil
	}

	shuffled := make([]snowflake.ID, len(pool))
	copy(shuffled, pool)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

func unionWinners(existing, drawn []snowflake.ID) []snowflake.ID {
	seen := map[snowflake.ID]bool{}
	out := make([]snowflake.ID, 0, len(existing)+len(drawn))
	for _, id := range existing {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range drawn {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ===========================
// Lifecycle Controller
// ===========================

// CreateGiveaway persists the record, posts the announcement, then re-saves
// the record under the real message id (two-phase create). An explicit
// expire timestamp wins over the duration text.
func CreateGiveaway(client bot.Client, guildID, channelID snowflake.ID, prize, durationText string, expireEpoch int64, numberWinners int, host, createdBy snowflake.ID) (*Giveaway, error) {
	now := timeNow().UTC()

	if expireEpoch > 0 {
		durationText = ""
	} else {
		seconds, err := ParseGiveawayDuration(durationText)
		if err != nil {
			return nil, err
		}
		expireEpoch = now.Unix() + seconds
	}

	tpls := LoadGiveawayTemplates()

	g := &Giveaway{
		GuildID:       guildID,
		ChannelID:     channelID,
		Prize:         prize,
		DurationText:  durationText,
		ExpireEpoch:   expireEpoch,
		NumberWinners: numberWinners,
		Host:          host,
		CreatedBy:     createdBy,
		CreatedAt:     now.Format(time.RFC3339),
		Status:        GiveawayStatusActive,
		Entrants:      []snowflake.ID{},
		Winners:       []snowflake.ID{},
		EndTemplate:   tpls.WinnerMessage,
	}

	// Phase 1: persist before the announcement exists (message_id 0).
	if err := SaveGiveaway(g); err != nil {
		return nil, err
	}

	if client.Rest != nil {
		msg, err := client.Rest.CreateMessage(channelID, buildGiveawayMessage(g, tpls))
		if err != nil {
			return nil, err
		}
		_ = RemoveJSONFile(giveawayPath(0))
		g.MessageID = msg.ID
	}

	// Phase 2: re-save under the announcement message id.
	if err := SaveGiveaway(g); err != nil {
		return nil, err
	}

	return g, nil
}

// ToggleGiveawayMembership flips the user's entrant state. Returns true if
// the user joined, false if they left.
func ToggleGiveawayMembership(client bot.Client, messageID, userID snowflake.ID) (bool, error) {
	g := LoadGiveaway(messageID)
	if g == nil {
		return false, ErrGiveawayNotFound
	}
	if g.Status != GiveawayStatusActive {
		return false, ErrGiveawayOver
	}
	if IsGiveawayBlacklisted(g.GuildID, userID) {
		return false, ErrGiveawayBlacklisted
	}

	joined := true
	kept := g.Entrants[:0]
	for _, id := range g.Entrants {
		if id == userID {
			joined = false
			continue
		}
		kept = append(kept, id)
	}
	g.Entrants = kept
	if joined {
		g.Entrants = append(g.Entrants, userID)
	}

	if err := SaveGiveaway(g); err != nil {
		return joined, err
	}

	// Best-effort refresh of the participant counter on the announcement.
	updateGiveawayAnnouncement(client, g)

	return joined, nil
}

// EndGiveaway draws winners and transitions the record to ended. It is
// idempotent: an already ended or missing record returns no new winners.
func EndGiveaway(client bot.Client, messageID snowflake.ID) ([]snowflake.ID, error) {
	g := LoadGiveaway(messageID)
	if g == nil || g.Status != GiveawayStatusActive {
		return nil, nil
	}

	pool := EligibleEntrants(g.GuildID, g.Entrants, nil)
	drawn := DrawGiveawayWinners(pool, g.NumberWinners)
	g.Winners = unionWinners(g.Winners, drawn)
	g.Status = GiveawayStatusEnded

	if err := SaveGiveaway(g); err != nil {
		LogGiveaway(MsgGiveawaySaveFail, g.MessageID, err)
		return drawn, err
	}

	LogGiveaway(MsgGiveawayEndLogged, g.MessageID, len(drawn))

	// Best-effort announcement edits; state is the source of truth.
	finishGiveawayAnnouncement(client, g, drawn)

	return drawn, nil
}

// ScanExpiredGiveaways ends every active record whose deadline has passed.
// Corrupt records are skipped.
func ScanExpiredGiveaways(client bot.Client) int {
	now := timeNow().Unix()
	ended := 0
	for _, g := range LoadAllGiveaways() {
		if g.Status != GiveawayStatusActive || g.ExpireEpoch > now {
			continue
		}
		if _, err := EndGiveaway(client, g.MessageID); err != nil {
			LogGiveaway(MsgGiveawayScanFail, g.MessageID, err)
			continue
		}
		ended++
	}
	return ended
}

// RerollGiveaway draws additional winners, excluding anyone who already won.
// Only the incremental winners are returned.
func RerollGiveaway(client bot.Client, messageID snowflake.ID, count int) ([]snowflake.ID, error) {
	g := LoadGiveaway(messageID)
	if g == nil {
		return nil, ErrGiveawayNotFound
	}

	pool := EligibleEntrants(g.GuildID, g.Entrants, g.Winners)
	if len(pool) == 0 {
		return nil, ErrGiveawayEmptyPool
	}

	drawn := DrawGiveawayWinners(pool, count)
	g.Winners = unionWinners(g.Winners, drawn)

	if err := SaveGiveaway(g); err != nil {
		return drawn, err
	}

	if client.Rest != nil && len(drawn) > 0 {
		content := fmt.Sprintf(MsgGiveawayRerolled, mentionList(drawn))
		_, _ = client.Rest.CreateMessage(g.ChannelID, discord.NewMessageCreateBuilder().SetContent(content).Build())
	}

	return drawn, nil
}

// RemoveGiveawayParticipant drops the user from both entrants and winners.
// Reports whether anything changed.
func RemoveGiveawayParticipant(messageID, userID snowflake.ID) (bool, error) {
	g := LoadGiveaway(messageID)
	if g == nil {
		return false, ErrGiveawayNotFound
	}

	changed := false
	kept := g.Entrants[:0]
	for _, id := range g.Entrants {
		if id == userID {
			changed = true
			continue
		}
		kept = append(kept, id)
	}
	g.Entrants = kept

	keptW := g.Winners[:0]
	for _, id := range g.Winners {
		if id == userID {
			changed = true
			continue
		}
		keptW = append(keptW, id)
	}
	g.Winners = keptW

	if !changed {
		return false, nil
	}
	return true, SaveGiveaway(g)
}

// ===========================
// Presentation
// ===========================

func buildGiveawayMessage(g *Giveaway, tpls GiveawayTemplates) discord.MessageCreate {
	embed := discord.NewEmbedBuilder().
		SetTitle(RenderGiveawayTemplate(tpls.Title, g, "")).
		SetDescription(RenderGiveawayTemplate(tpls.Description, g, "")).
		SetColor(tpls.Color).
		SetFooterText(fmt.Sprintf("%d winner(s)", g.NumberWinners)).
		SetTimestamp(time.Unix(g.ExpireEpoch, 0)).
		Build()

	return discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		AddActionRow(giveawayButtons(g, false)...).
		Build()
}

func giveawayButtons(g *Giveaway, disabled bool) []discord.InteractiveComponent {
	join := discord.NewButton(discord.ButtonStylePrimary, "🎉 Join", fmt.Sprintf("giveaway:join:%s", g.MessageID), "", 0)
	list := discord.NewButton(discord.ButtonStyleSecondary, fmt.Sprintf("Entrants: %d", len(g.Entrants)), fmt.Sprintf("giveaway:entrants:%s", g.MessageID), "", 0)
	if disabled {
		join = join.WithDisabled(true)
		list = list.WithDisabled(true)
	}
	return []discord.InteractiveComponent{join, list}
}

func updateGiveawayAnnouncement(client bot.Client, g *Giveaway) {
	if client.Rest == nil || g.MessageID == 0 {
		return
	}

	tpls := LoadGiveawayTemplates()
	embed := discord.NewEmbedBuilder().
		SetTitle(RenderGiveawayTemplate(tpls.Title, g, "")).
		SetDescription(RenderGiveawayTemplate(tpls.Description, g, "")).
		SetColor(tpls.Color).
		SetFooterText(fmt.Sprintf("%d winner(s)", g.NumberWinners)).
		SetTimestamp(time.Unix(g.ExpireEpoch, 0)).
		Build()

	_, err := client.Rest.UpdateMessage(g.ChannelID, g.MessageID, discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		SetComponents(discord.NewActionRow(giveawayButtons(g, false)...)).
		Build())
	if err != nil {
		LogGiveaway(MsgGiveawayAnnounceFail, g.MessageID, err)
	}
}

func finishGiveawayAnnouncement(client bot.Client, g *Giveaway, drawn []snowflake.ID) {
	if client.Rest == nil || g.MessageID == 0 {
		return
	}

	tpls := LoadGiveawayTemplates()
	embed := discord.NewEmbedBuilder().
		SetTitle(RenderGiveawayTemplate(tpls.EndTitle, g, "")).
		SetDescription(RenderGiveawayTemplate(tpls.EndDescription, g, "")).
		SetColor(0x95A5A6).
		SetFooterText(fmt.Sprintf("Ended • %d entrant(s)", len(g.Entrants))).
		SetTimestamp(timeNow()).
		Build()

	_, err := client.Rest.UpdateMessage(g.ChannelID, g.MessageID, discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		SetComponents(discord.NewActionRow(giveawayButtons(g, true)...)).
		Build())
	if err != nil {
		LogGiveaway(MsgGiveawayAnnounceFail, g.MessageID, err)
	}

	tpl := g.EndTemplate
	if tpl == "" {
		tpl = tpls.WinnerMessage
	}

	content := MsgGiveawayNoWinners
	if len(drawn) > 0 {
		content = RenderGiveawayTemplate(tpl, g, mentionList(drawn))
	}
	_, _ = client.Rest.CreateMessage(g.ChannelID, discord.NewMessageCreateBuilder().SetContent(content).Build())
}

func mentionList(ids []snowflake.ID) string {
	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, fmt.Sprintf("<@%s>", id))
	}
	return strings.Join(mentions, ", ")
}

// ===========================
// Command Registration
// ===========================

func init() {
	adminPerm := discord.PermissionAdministrator
	RegisterCommand(discord.SlashCommandCreate{
		Name:                     "giveaway",
		Description:              "Manage giveaways",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "create",
				Description: "Start a new giveaway",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "prize",
						Description: "What is being given away",
						Required:    true,
					},
					discord.ApplicationCommandOptionInt{
						Name:        "winners",
						Description: "Number of winners",
						Required:    true,
						MinValue:    intPtr(1),
					},
					discord.ApplicationCommandOptionString{
						Name:        "duration",
						Description: "How long it runs (e.g. 1d2h30m)",
					},
					discord.ApplicationCommandOptionInt{
						Name:        "expire",
						Description: "Exact end time as a UNIX timestamp (overrides duration)",
						MinValue:    intPtr(1),
					},
					discord.ApplicationCommandOptionUser{
						Name:        "host",
						Description: "Host shown on the announcement (defaults to you)",
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "end",
				Description: "End a giveaway early",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "message_id",
						Description: "Announcement message ID",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "reroll",
				Description: "Draw additional winners",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "message_id",
						Description: "Announcement message ID",
						Required:    true,
					},
					discord.ApplicationCommandOptionInt{
						Name:        "count",
						Description: "How many new winners to draw",
						MinValue:    intPtr(1),
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "remove",
				Description: "Remove a user from a giveaway",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "message_id",
						Description: "Announcement message ID",
						Required:    true,
					},
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "User to remove",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommandGroup{
				Name:        "blacklist",
				Description: "Manage the giveaway blacklist",
				Options: []discord.ApplicationCommandOptionSubCommand{
					{
						Name:        "add",
						Description: "Blacklist a user from giveaways",
						Options: []discord.ApplicationCommandOption{
							discord.ApplicationCommandOptionUser{
								Name:        "user",
								Description: "User to blacklist",
								Required:    true,
							},
						},
					},
					{
						Name:        "remove",
						Description: "Remove a user from the blacklist",
						Options: []discord.ApplicationCommandOption{
							discord.ApplicationCommandOptionUser{
								Name:        "user",
								Description: "User to unblacklist",
								Required:    true,
							},
						},
					},
					{
						Name:        "list",
						Description: "List blacklisted users",
					},
				},
			},
		},
	}, handleGiveaway)

	RegisterComponentHandler("giveaway:", handleGiveawayComponent)

	OnClientReady(func(ctx context.Context, client bot.Client) {
		RegisterDaemon(LogGiveaway, func(ctx context.Context) (bool, func(), func()) {
			return StartGiveawayScanner(ctx, client)
		})
	})
}

// ===========================
// Command Handlers
// ===========================

func giveawayRespond(event *events.ApplicationCommandInteractionCreate, content string) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
	if err != nil {
		LogGiveaway("Failed to respond: %v", err)
	}
}

func handleGiveaway(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()

	if event.GuildID() == nil {
		giveawayRespond(event, ErrGiveawayGuildOnly)
		return
	}

	if group := data.SubCommandGroupName; group != nil && *group == "blacklist" {
		handleGiveawayBlacklist(event, data)
		return
	}

	subCmd := data.SubCommandName
	if subCmd == nil {
		return
	}

	switch *subCmd {
	case "create":
		handleGiveawayCreate(event, data)
	case "end":
		handleGiveawayEnd(event, data)
	case "reroll":
		handleGiveawayReroll(event, data)
	case "remove":
		handleGiveawayRemove(event, data)
	}
}

func handleGiveawayCreate(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	prize := data.String("prize")
	numberWinners := data.Int("winners")
	durationText, _ := data.OptString("duration")

	var expireEpoch int64
	if e, ok := data.OptInt("expire"); ok {
		expireEpoch = int64(e)
	}

	host := event.User().ID
	if h, ok := data.OptSnowflake("host"); ok {
		host = h
	}

	if numberWinners < 1 {
		giveawayRespond(event, ErrGiveawayBadWinners)
		return
	}
	if durationText == "" && expireEpoch <= 0 {
		giveawayRespond(event, ErrGiveawayNoExpiryMsg)
		return
	}

	client := *event.Client()
	g, err := CreateGiveaway(client, *event.GuildID(), event.Channel().ID(), prize, durationText, expireEpoch, numberWinners, host, event.User().ID)
	if err != nil {
		if errors.Is(err, ErrGiveawayDuration) {
			giveawayRespond(event, ErrGiveawayBadDuration)
			return
		}
		LogGiveaway("Failed to create giveaway: %v", err)
		giveawayRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}

	giveawayRespond(event, fmt.Sprintf(MsgGiveawayCreated, g.Prize, FormatDiscordRelative(g.ExpireEpoch)))
}

func handleGiveawayEnd(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	messageID, err := snowflake.Parse(data.String("message_id"))
	if err != nil {
		giveawayRespond(event, ErrGiveawayNotFoundMsg)
		return
	}

	g := LoadGiveaway(messageID)
	if g == nil {
		giveawayRespond(event, ErrGiveawayNotFoundMsg)
		return
	}
	if g.Status != GiveawayStatusActive {
		giveawayRespond(event, ErrGiveawayEndedMsg)
		return
	}

	winners, err := EndGiveaway(*event.Client(), messageID)
	if err != nil {
		giveawayRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}

	if len(winners) == 0 {
		giveawayRespond(event, MsgGiveawayNoWinners)
		return
	}
	giveawayRespond(event, fmt.Sprintf(MsgGiveawayEndedNow, mentionList(winners)))
}

func handleGiveawayReroll(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	messageID, err := snowflake.Parse(data.String("message_id"))
	if err != nil {
		giveawayRespond(event, ErrGiveawayNotFoundMsg)
		return
	}

	count := 1
	if c, ok := data.OptInt("count"); ok {
		count = c
	}

	winners, err := RerollGiveaway(*event.Client(), messageID, count)
	switch {
	case errors.Is(err, ErrGiveawayNotFound):
		giveawayRespond(event, ErrGiveawayNotFoundMsg)
		return
	case errors.Is(err, ErrGiveawayEmptyPool):
		giveawayRespond(event, ErrGiveawayNoPoolMsg)
		return
	case err != nil:
		giveawayRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}

	giveawayRespond(event, fmt.Sprintf(MsgGiveawayRerolled, mentionList(winners)))
}

func handleGiveawayRemove(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	messageID, err := snowflake.Parse(data.String("message_id"))
	if err != nil {
		giveawayRespond(event, ErrGiveawayNotFoundMsg)
		return
	}
	userID := data.Snowflake("user")

	changed, err := RemoveGiveawayParticipant(messageID, userID)
	if errors.Is(err, ErrGiveawayNotFound) {
		giveawayRespond(event, ErrGiveawayNotFoundMsg)
		return
	}
	if err != nil {
		giveawayRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}

	if !changed {
		giveawayRespond(event, fmt.Sprintf(MsgGiveawayUserNotIn, userID))
		return
	}
	giveawayRespond(event, fmt.Sprintf(MsgGiveawayRemovedUser, userID))
}

func handleGiveawayBlacklist(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	subCmd := data.SubCommandName
	if subCmd == nil {
		return
	}
	guildID := *event.GuildID()

	switch *subCmd {
	case "add":
		userID := data.Snowflake("user")
		if _, err := AddGiveawayBlacklist(guildID, userID); err != nil {
			giveawayRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
			return
		}
		giveawayRespond(event, fmt.Sprintf(MsgGiveawayBlacklistAdd, userID))
	case "remove":
		userID := data.Snowflake("user")
		removed, err := RemoveGiveawayBlacklist(guildID, userID)
		if err != nil {
			giveawayRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
			return
		}
		if !removed {
			giveawayRespond(event, MsgGiveawayBlacklistEmpty)
			return
		}
		giveawayRespond(event, fmt.Sprintf(MsgGiveawayBlacklistRemove, userID))
	case "list":
		bl := LoadGiveawayBlacklist()
		ids := bl[guildID.String()]
		if len(ids) == 0 {
			giveawayRespond(event, MsgGiveawayBlacklistEmpty)
			return
		}
		giveawayRespond(event, fmt.Sprintf(MsgGiveawayBlacklistList, mentionList(ids)))
	}
}

// ===========================
// Component Handlers
// ===========================

func handleGiveawayComponent(event *events.ComponentInteractionCreate) {
	parts := strings.Split(event.Data.CustomID(), ":")
	if len(parts) != 3 {
		return
	}

	messageID, err := snowflake.Parse(parts[2])
	if err != nil {
		return
	}

	respond := func(content string) {
		_ = event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent(content).
			SetEphemeral(true).
			Build())
	}

	switch parts[1] {
	case "join":
		joined, err := ToggleGiveawayMembership(*event.Client(), messageID, event.User().ID)
		switch {
		case errors.Is(err, ErrGiveawayNotFound):
			respond(ErrGiveawayNotFoundMsg)
		case errors.Is(err, ErrGiveawayOver):
			respond(ErrGiveawayEndedMsg)
		case errors.Is(err, ErrGiveawayBlacklisted):
			respond(ErrGiveawayBlacklistedMsg)
		case err != nil:
			respond(fmt.Sprintf(ErrGiveawayGenericFail, err))
		case joined:
			respond(MsgGiveawayJoined)
		default:
			respond(MsgGiveawayLeft)
		}
	case "entrants":
		g := LoadGiveaway(messageID)
		if g == nil {
			respond(ErrGiveawayNotFoundMsg)
			return
		}
		if len(g.Entrants) == 0 {
			respond(MsgGiveawayEntrantsNone)
			return
		}
		respond(fmt.Sprintf(MsgGiveawayEntrantsHeader, len(g.Entrants), Truncate(mentionList(g.Entrants), 1800)))
	}
}

// ===========================
// Expiry Daemon
// ===========================

// StartGiveawayScanner runs the catch-up pass for giveaways that expired
// while the process was down, then scans on a fixed interval.
func StartGiveawayScanner(ctx context.Context, client bot.Client) (bool, func(), func()) {
	interval := 30 * time.Second
	if GlobalConfig != nil && GlobalConfig.GiveawayScanSeconds > 0 {
		interval = time.Duration(GlobalConfig.GiveawayScanSeconds) * time.Second
	}

	return true, func() {
			if n := ScanExpiredGiveaways(client); n > 0 {
				LogGiveaway(MsgGiveawayCatchUp, n)
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					ScanExpiredGiveaways(client)
				case <-ctx.Done():
					return
				}
			}
		}, func() {
			LogGiveaway("Shutting down Giveaway Scanner...")
		}
}
