package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
)

// ============================================================================
// Counting Game
// ============================================================================

const (
	MsgCountingChannelSet = "✅ Counting channel set to <#%s>. Counter reset."
	MsgCountingStatus     = "📊 Counting in <#%s>. Current count: %d. Next number: %d."
	MsgCountingNoChannel  = "📊 No counting channel configured."
	MsgCountingReset      = "🔄 Counter reset to %d."

	ErrCountingAdminOnly = "❌ Only admins can do that."

	CountingReaction = "✅"
)

type CountingState struct {
	ChannelID snowflake.ID `json:"channel_id"`
	Count     int          `json:"count"`
	LastUser  snowflake.ID `json:"last_user,omitempty"`
}

func countingPath() string {
	return StorePath("counting.json")
}

func LoadCountingState(guildID snowflake.ID) (CountingState, error) {
	all := map[string]CountingState{}
	if _, err := ReadJSONFile(countingPath(), &all); err != nil {
		return CountingState{}, err
	}
	return all[guildID.String()], nil
}

func SaveCountingState(guildID snowflake.ID, s CountingState) error {
	all := map[string]CountingState{}
	if _, err := ReadJSONFile(countingPath(), &all); err != nil {
		return err
	}
	all[guildID.String()] = s
	return WriteJSONFile(countingPath(), all)
}

type countVerdict int

const (
	countIgnore countVerdict = iota
	countAccept
	countReject
)

// evaluateCount applies the game rules to one message: it must be posted in
// the configured channel, be exactly the next integer and come from a
// different author than the previous count. On accept the returned state
// carries the new count and author.
func evaluateCount(s CountingState, channelID, author snowflake.ID, content string) (countVerdict, CountingState) {
	if s.ChannelID == 0 || channelID != s.ChannelID {
		return countIgnore, s
	}

	number, err := strconv.Atoi(strings.TrimSpace(content))
	if err != nil {
		return countReject, s
	}
	if number != s.Count+1 {
		return countReject, s
	}
	if s.LastUser != 0 && author == s.LastUser {
		return countReject, s
	}

	s.Count = number
	s.LastUser = author
	return countAccept, s
}

func onCountingMessage(event *events.MessageCreate) {
	if event.Message.Author.Bot || event.GuildID == nil {
		return
	}

	guildID := *event.GuildID
	state, err := LoadCountingState(guildID)
	if err != nil {
		LogCounting("Failed to load state: %v", err)
		return
	}

	verdict, next := evaluateCount(state, event.ChannelID, event.Message.Author.ID, event.Message.Content)
	client := *event.Client()

	switch verdict {
	case countAccept:
		if err := SaveCountingState(guildID, next); err != nil {
			LogCounting("Failed to save state: %v", err)
			return
		}
		if err := client.Rest.AddReaction(event.ChannelID, event.MessageID, CountingReaction); err != nil {
			LogCounting("Failed to react: %v", err)
		}
	case countReject:
		if err := client.Rest.DeleteMessage(event.ChannelID, event.MessageID); err != nil {
			LogCounting("Failed to delete message: %v", err)
		}
	}
}

// ===========================
// Command Registration
// ===========================

func init() {
	RegisterCommand(discord.SlashCommandCreate{
		Name:        "counting",
		Description: "Counting game",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "set",
				Description: "Set the counting channel (admin)",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionChannel{
						Name:        "channel",
						Description: "Channel for the game",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "status",
				Description: "Show the current count",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "reset",
				Description: "Reset the counter (admin)",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "value",
						Description: "Value to reset to (default 0)",
						MinValue:    intPtr(0),
					},
				},
			},
		},
	}, handleCounting)

	RegisterMessageCreateHandler(onCountingMessage)
}

// ===========================
// Command Handlers
// ===========================

func countingRespond(event *events.ApplicationCommandInteractionCreate, content string) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
	if err != nil {
		LogCounting("Failed to respond: %v", err)
	}
}

func countingIsAdmin(event *events.ApplicationCommandInteractionCreate) bool {
	member := event.Member()
	return member != nil && member.Permissions.Has(discord.PermissionAdministrator)
}

func handleCounting(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()

	if event.GuildID() == nil {
		countingRespond(event, ErrGiveawayGuildOnly)
		return
	}
	guildID := *event.GuildID()

	subCmd := data.SubCommandName
	if subCmd == nil {
		return
	}

	switch *subCmd {
	case "set":
		if !countingIsAdmin(event) {
			countingRespond(event, ErrCountingAdminOnly)
			return
		}
		channelID := data.Snowflake("channel")
		if err := SaveCountingState(guildID, CountingState{ChannelID: channelID}); err != nil {
			countingRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
			return
		}
		countingRespond(event, fmt.Sprintf(MsgCountingChannelSet, channelID))

	case "status":
		state, err := LoadCountingState(guildID)
		if err != nil {
			countingRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
			return
		}
		if state.ChannelID == 0 {
			countingRespond(event, MsgCountingNoChannel)
			return
		}
		countingRespond(event, fmt.Sprintf(MsgCountingStatus, state.ChannelID, state.Count, state.Count+1))

	case "reset":
		if !countingIsAdmin(event) {
			countingRespond(event, ErrCountingAdminOnly)
			return
		}
		value := 0
		if v, ok := data.OptInt("value"); ok {
			value = v
		}
		state, err := LoadCountingState(guildID)
		if err != nil {
			countingRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
			return
		}
		state.Count = value
		state.LastUser = 0
		if err := SaveCountingState(guildID, state); err != nil {
			countingRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
			return
		}
		countingRespond(event, fmt.Sprintf(MsgCountingReset, value))
	}
}
