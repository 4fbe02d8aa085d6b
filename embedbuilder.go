package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// ============================================================================
// Embed Builder
// ============================================================================

const (
	MsgEmbedSent       = "✅ Embed sent to <#%s>."
	MsgEmbedCancelled  = "❌ Embed creation cancelled."
	MsgEmbedChannelSet = "✅ Target channel set to <#%s>."
	MsgEmbedMenuPrompt = "Pick what to edit"

	ErrEmbedNotYours      = "❌ Only the author of this builder can use it."
	ErrEmbedSessionGone   = "❌ This builder session has expired. Run /embed again."
	ErrEmbedBadColor      = "❌ Invalid color. Use #rrggbb or a decimal number."
	ErrEmbedBadChannel    = "❌ Invalid channel id."
	ErrEmbedTooManyFields = "❌ An embed can hold at most 25 fields."
	ErrEmbedSendFail      = "❌ Failed to send the embed: %v"
	ErrEmbedEmpty         = "❌ The embed is still empty."

	EmbedClearToken = "//"
	EmbedMaxFields  = 25
)

type EmbedSessionField struct {
	Name   string
	Value  string
	Inline bool
}

type EmbedSession struct {
	ID            string
	Author        snowflake.ID
	GuildID       snowflake.ID
	ChannelID     snowflake.ID
	Title         string
	Description   string
	Color         int
	HasColor      bool
	Thumbnail     string
	Image         string
	Footer        string
	Content       string
	Fields        []EmbedSessionField
	TargetChannel snowflake.ID
	CreatedAt     time.Time
}

// Abandoned sessions expire so the registry does not grow without bound.
const embedSessionTTL = 30 * time.Minute

var (
	embedSessions   = map[string]*EmbedSession{}
	embedSessionsMu sync.Mutex
)

func embedSessionExpired(s *EmbedSession) bool {
	return timeNow().Sub(s.CreatedAt) > embedSessionTTL
}

func getEmbedSession(id string) *EmbedSession {
	embedSessionsMu.Lock()
	defer embedSessionsMu.Unlock()
	s := embedSessions[id]
	if s != nil && embedSessionExpired(s) {
		delete(embedSessions, id)
		return nil
	}
	return s
}

func putEmbedSession(s *EmbedSession) {
	embedSessionsMu.Lock()
	defer embedSessionsMu.Unlock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = timeNow()
	}
	for id, old := range embedSessions {
		if embedSessionExpired(old) {
			delete(embedSessions, id)
		}
	}
	embedSessions[s.ID] = s
}

func dropEmbedSession(id string) {
	embedSessionsMu.Lock()
	defer embedSessionsMu.Unlock()
	delete(embedSessions, id)
}

// parseEmbedColor accepts "#rrggbb", "rrggbb"-style hex with the leading
// hash only, or a plain decimal number.
func parseEmbedColor(value string) (int, error) {
	if hex, ok := strings.CutPrefix(value, "#"); ok {
		n, err := strconv.ParseInt(hex, 16, 32)
		if err != nil {
			return 0, err
		}
		return int(n), nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// applyEmbedValue writes one edited value into the session. The clear token
// "//" resets the target to its zero state.
func applyEmbedValue(s *EmbedSession, kind, value string) error {
	if value == EmbedClearToken {
		value = ""
	}

	switch kind {
	case "title":
		s.Title = value
	case "description":
		s.Description = value
	case "color":
		if value == "" {
			s.Color = 0
			s.HasColor = false
			return nil
		}
		c, err := parseEmbedColor(value)
		if err != nil {
			return err
		}
		s.Color = c
		s.HasColor = true
	case "thumbnail":
		s.Thumbnail = value
	case "image":
		s.Image = value
	case "footer":
		s.Footer = value
	case "content":
		s.Content = value
	}
	return nil
}

func addEmbedField(s *EmbedSession, name, value string, inline bool) error {
	if name == EmbedClearToken || value == EmbedClearToken {
		return nil
	}
	if len(s.Fields) >= EmbedMaxFields {
		return fmt.Errorf("too many fields")
	}
	s.Fields = append(s.Fields, EmbedSessionField{Name: name, Value: value, Inline: inline})
	return nil
}

func embedSessionEmpty(s *EmbedSession) bool {
	return s.Title == "" && s.Description == "" && s.Thumbnail == "" &&
		s.Image == "" && s.Footer == "" && len(s.Fields) == 0
}

func buildSessionEmbed(s *EmbedSession) discord.Embed {
	eb := discord.NewEmbedBuilder()
	if s.Title != "" {
		eb.SetTitle(s.Title)
	}
	if s.Description != "" {
		eb.SetDescription(s.Description)
	}
	if s.HasColor {
		eb.SetColor(s.Color)
	}
	if s.Thumbnail != "" {
		eb.SetThumbnail(s.Thumbnail)
	}
	if s.Image != "" {
		eb.SetImage(s.Image)
	}
	if s.Footer != "" {
		eb.SetFooter(s.Footer, "")
	}
	for _, f := range s.Fields {
		eb.AddField(f.Name, f.Value, f.Inline)
	}
	return eb.Build()
}

func embedBuilderMenu(sessionID string) discord.StringSelectMenuComponent {
	return discord.NewStringSelectMenu("embed:menu:"+sessionID, MsgEmbedMenuPrompt,
		discord.NewStringSelectMenuOption("Title", "title"),
		discord.NewStringSelectMenuOption("Description", "description"),
		discord.NewStringSelectMenuOption("Color", "color"),
		discord.NewStringSelectMenuOption("Thumbnail", "thumbnail"),
		discord.NewStringSelectMenuOption("Image", "image"),
		discord.NewStringSelectMenuOption("Footer", "footer"),
		discord.NewStringSelectMenuOption("Add field", "field"),
		discord.NewStringSelectMenuOption("Message outside the embed", "content"),
		discord.NewStringSelectMenuOption("Target channel", "channel"),
		discord.NewStringSelectMenuOption("Send", "send"),
		discord.NewStringSelectMenuOption("Cancel", "cancel"),
	)
}

func embedBuilderPreview(s *EmbedSession) discord.MessageUpdate {
	builder := discord.NewMessageUpdateBuilder().
		SetContent(s.Content).
		SetComponents(discord.NewActionRow(embedBuilderMenu(s.ID)))
	if embedSessionEmpty(s) {
		builder.SetEmbeds()
	} else {
		builder.SetEmbeds(buildSessionEmbed(s))
	}
	return builder.Build()
}

// ===========================
// Command Registration
// ===========================

func init() {
	RegisterCommand(discord.SlashCommandCreate{
		Name:        "embed",
		Description: "Interactively build and send an embed",
	}, handleEmbedCommand)

	RegisterComponentHandler("embed:", handleEmbedComponent)
	RegisterModalHandler("embed:", handleEmbedModal)
}

// ===========================
// Handlers
// ===========================

func handleEmbedCommand(event *events.ApplicationCommandInteractionCreate) {
	if event.GuildID() == nil {
		err := event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent(ErrGiveawayGuildOnly).
			SetEphemeral(true).
			Build())
		if err != nil {
			LogEmbedBuilder("Failed to respond: %v", err)
		}
		return
	}

	s := &EmbedSession{
		ID:        uuid.NewString(),
		Author:    event.User().ID,
		GuildID:   *event.GuildID(),
		ChannelID: event.Channel().ID(),
	}
	putEmbedSession(s)

	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent("🛠️ Embed builder. Pick an option below to start editing.").
		AddActionRow(embedBuilderMenu(s.ID)).
		SetEphemeral(true).
		Build())
	if err != nil {
		LogEmbedBuilder("Failed to open builder: %v", err)
	}
}

func handleEmbedComponent(event *events.ComponentInteractionCreate) {
	sessionID, ok := strings.CutPrefix(event.Data.CustomID(), "embed:menu:")
	if !ok {
		return
	}

	s := getEmbedSession(sessionID)
	if s == nil {
		err := event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent(ErrEmbedSessionGone).
			SetEphemeral(true).
			Build())
		if err != nil {
			LogEmbedBuilder("Failed to respond: %v", err)
		}
		return
	}
	if event.User().ID != s.Author {
		err := event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent(ErrEmbedNotYours).
			SetEphemeral(true).
			Build())
		if err != nil {
			LogEmbedBuilder("Failed to respond: %v", err)
		}
		return
	}

	values := event.StringSelectMenuInteractionData().Values
	if len(values) == 0 {
		return
	}
	choice := values[0]

	switch choice {
	case "send":
		handleEmbedSend(event, s)
	case "cancel":
		dropEmbedSession(s.ID)
		err := event.UpdateMessage(discord.NewMessageUpdateBuilder().
			SetContent(MsgEmbedCancelled).
			SetEmbeds().
			SetComponents().
			Build())
		if err != nil {
			LogEmbedBuilder("Failed to respond: %v", err)
		}
	case "field":
		err := event.Modal(discord.ModalCreate{
			CustomID: "embed:modal:" + s.ID + ":field",
			Title:    "Add field",
			Components: []discord.LayoutComponent{
				discord.NewActionRow(discord.NewShortTextInput("name", "Field name").WithRequired(true)),
				discord.NewActionRow(discord.NewParagraphTextInput("value", "Field value").WithRequired(true)),
				discord.NewActionRow(discord.NewShortTextInput("inline", "Inline (true/false)").WithRequired(false)),
			},
		})
		if err != nil {
			LogEmbedBuilder("Failed to open modal: %v", err)
		}
	default:
		err := event.Modal(discord.ModalCreate{
			CustomID: "embed:modal:" + s.ID + ":" + choice,
			Title:    "Edit " + choice,
			Components: []discord.LayoutComponent{
				discord.NewActionRow(
					discord.NewParagraphTextInput("value", "New value").
						WithPlaceholder("Enter " + EmbedClearToken + " to clear").
						WithRequired(true)),
			},
		})
		if err != nil {
			LogEmbedBuilder("Failed to open modal: %v", err)
		}
	}
}

func handleEmbedSend(event *events.ComponentInteractionCreate, s *EmbedSession) {
	if embedSessionEmpty(s) && s.Content == "" {
		err := event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent(ErrEmbedEmpty).
			SetEphemeral(true).
			Build())
		if err != nil {
			LogEmbedBuilder("Failed to respond: %v", err)
		}
		return
	}

	target := s.TargetChannel
	if target == 0 {
		target = s.ChannelID
	}

	builder := discord.NewMessageCreateBuilder().SetContent(s.Content)
	if !embedSessionEmpty(s) {
		builder.SetEmbeds(buildSessionEmbed(s))
	}

	client := *event.Client()
	_, err := client.Rest.CreateMessage(target, builder.Build())
	if err != nil {
		updateErr := event.UpdateMessage(discord.NewMessageUpdateBuilder().
			SetContent(fmt.Sprintf(ErrEmbedSendFail, err)).
			Build())
		if updateErr != nil {
			LogEmbedBuilder("Failed to respond: %v", updateErr)
		}
		return
	}

	dropEmbedSession(s.ID)
	LogEmbedBuilder("Sent embed %s to channel %s", s.ID, target)

	err = event.UpdateMessage(discord.NewMessageUpdateBuilder().
		SetContent(fmt.Sprintf(MsgEmbedSent, target)).
		SetEmbeds().
		SetComponents().
		Build())
	if err != nil {
		LogEmbedBuilder("Failed to respond: %v", err)
	}
}

func handleEmbedModal(event *events.ModalSubmitInteractionCreate) {
	rest, ok := strings.CutPrefix(event.Data.CustomID, "embed:modal:")
	if !ok {
		return
	}
	sessionID, kind, ok := strings.Cut(rest, ":")
	if !ok {
		return
	}

	s := getEmbedSession(sessionID)
	if s == nil {
		err := event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent(ErrEmbedSessionGone).
			SetEphemeral(true).
			Build())
		if err != nil {
			LogEmbedBuilder("Failed to respond: %v", err)
		}
		return
	}
	if event.User().ID != s.Author {
		return
	}

	switch kind {
	case "field":
		name := strings.TrimSpace(event.Data.Text("name"))
		value := strings.TrimSpace(event.Data.Text("value"))
		inline := strings.EqualFold(strings.TrimSpace(event.Data.Text("inline")), "true")
		if err := addEmbedField(s, name, value, inline); err != nil {
			respondErr := event.CreateMessage(discord.NewMessageCreateBuilder().
				SetContent(ErrEmbedTooManyFields).
				SetEphemeral(true).
				Build())
			if respondErr != nil {
				LogEmbedBuilder("Failed to respond: %v", respondErr)
			}
			return
		}

	case "channel":
		value := strings.TrimSpace(event.Data.Text("value"))
		channelID, err := snowflake.Parse(value)
		if err != nil {
			respondErr := event.CreateMessage(discord.NewMessageCreateBuilder().
				SetContent(ErrEmbedBadChannel).
				SetEphemeral(true).
				Build())
			if respondErr != nil {
				LogEmbedBuilder("Failed to respond: %v", respondErr)
			}
			return
		}
		s.TargetChannel = channelID

	default:
		value := strings.TrimSpace(event.Data.Text("value"))
		if err := applyEmbedValue(s, kind, value); err != nil {
			respondErr := event.CreateMessage(discord.NewMessageCreateBuilder().
				SetContent(ErrEmbedBadColor).
				SetEphemeral(true).
				Build())
			if respondErr != nil {
				LogEmbedBuilder("Failed to respond: %v", respondErr)
			}
			return
		}
	}

	putEmbedSession(s)

	if err := event.UpdateMessage(embedBuilderPreview(s)); err != nil {
		LogEmbedBuilder("Failed to refresh preview: %v", err)
	}
}
