package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
)

// ============================================================================
// Tickets
// ============================================================================

const (
	MsgTicketCreated       = "✅ Ticket created: <#%s>"
	MsgTicketClosed        = "🔒 The ticket was closed by <@%s>. The channel stays visible but new messages are disabled."
	MsgTicketReopened      = "🔓 The ticket was reopened by <@%s>."
	MsgTicketMemberAdded   = "✅ <@%s> was added to the ticket."
	MsgTicketMemberRemoved = "✅ <@%s> was removed from the ticket."
	MsgTicketPanelPosted   = "✅ Ticket panel posted."
	MsgTicketListHead      = "**Your open tickets (%d)**\n"
	MsgTicketListRow       = "**%s**: <#%s> (opened %s)\n"
	MsgTicketWelcomeFooter = "Use /ticket close to close this ticket"
	MsgTicketOpenedBy      = "Ticket opened by <@%s>"

	ErrTicketNotTicketChannel = "❌ This is not a ticket channel."
	ErrTicketNotAuthor        = "❌ Only the ticket author, staff or an admin can do that."
	ErrTicketAlreadyMember    = "❌ That user is already in the ticket."
	ErrTicketNotMember        = "❌ That user is not in the ticket."
	ErrTicketAlreadyClosed    = "❌ This ticket is already closed."
	ErrTicketNotClosed        = "❌ This ticket is not closed."
	ErrTicketNoPanels         = "❌ No ticket panels are configured."
	ErrTicketPanelNotFound    = "❌ Unknown ticket panel."
	ErrTicketNoOpenTickets    = "❌ You have no open tickets."
	ErrTicketCreateFail       = "❌ Failed to create the ticket: %v"
	ErrTicketAdminOnly        = "❌ Only admins can do that."

	TicketsCategoryName = "Tickets"
)

type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// ===========================
// Records
// ===========================

type Ticket struct {
	ChannelID snowflake.ID   `json:"channel_id"`
	GuildID   snowflake.ID   `json:"guild_id"`
	Author    snowflake.ID   `json:"author"`
	Topic     string         `json:"topic"`
	Panel     string         `json:"panel,omitempty"`
	CreatedAt string         `json:"created_at"`
	Members   []snowflake.ID `json:"members"`
	Status    TicketStatus   `json:"status"`
}

type TicketField struct {
	Name        string `json:"name"`
	Placeholder string `json:"placeholder,omitempty"`
}

type TicketPanel struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Emoji       string        `json:"emoji,omitempty"`
	Color       int           `json:"color,omitempty"`
	Image       string        `json:"image,omitempty"`
	Fields      []TicketField `json:"fields,omitempty"`
}

type TicketConfig struct {
	StaffRole    snowflake.ID  `json:"staff_role,omitempty"`
	Panels       []TicketPanel `json:"panels,omitempty"`
	PanelChannel snowflake.ID  `json:"panel_channel,omitempty"`
	PanelMessage snowflake.ID  `json:"panel_message,omitempty"`
}

func ticketsPath() string {
	return StorePath("tickets.json")
}

func ticketConfigPath() string {
	return StorePath("ticket_config.json")
}

func LoadTickets() (map[string]*Ticket, error) {
	all := map[string]*Ticket{}
	if _, err := ReadJSONFile(ticketsPath(), &all); err != nil {
		return nil, err
	}
	return all, nil
}

func SaveTickets(all map[string]*Ticket) error {
	return WriteJSONFile(ticketsPath(), all)
}

// LoadTicket reads the ticket bound to a channel, nil when there is none.
func LoadTicket(channelID snowflake.ID) (*Ticket, error) {
	all, err := LoadTickets()
	if err != nil {
		return nil, err
	}
	return all[channelID.String()], nil
}

func SaveTicket(t *Ticket) error {
	all, err := LoadTickets()
	if err != nil {
		return err
	}
	all[t.ChannelID.String()] = t
	return SaveTickets(all)
}

func LoadTicketConfig(guildID snowflake.ID) (TicketConfig, error) {
	all := map[string]TicketConfig{}
	if _, err := ReadJSONFile(ticketConfigPath(), &all); err != nil {
		return TicketConfig{}, err
	}
	return all[guildID.String()], nil
}

func SaveTicketConfig(guildID snowflake.ID, cfg TicketConfig) error {
	all := map[string]TicketConfig{}
	if _, err := ReadJSONFile(ticketConfigPath(), &all); err != nil {
		return err
	}
	all[guildID.String()] = cfg
	return WriteJSONFile(ticketConfigPath(), all)
}

// ===========================
// Record Operations
// ===========================

// AddTicketMember reports whether the user was newly added.
func AddTicketMember(t *Ticket, userID snowflake.ID) bool {
	for _, m := range t.Members {
		if m == userID {
			return false
		}
	}
	t.Members = append(t.Members, userID)
	return true
}

// RemoveTicketMember reports whether the user was present.
func RemoveTicketMember(t *Ticket, userID snowflake.ID) bool {
	for i, m := range t.Members {
		if m == userID {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return true
		}
	}
	return false
}

// CloseTicketRecord reports whether the ticket was open.
func CloseTicketRecord(t *Ticket) bool {
	if t.Status != TicketStatusOpen {
		return false
	}
	t.Status = TicketStatusClosed
	return true
}

// ReopenTicketRecord reports whether the ticket was closed.
func ReopenTicketRecord(t *Ticket) bool {
	if t.Status != TicketStatusClosed {
		return false
	}
	t.Status = TicketStatusOpen
	return true
}

func ticketChannelName(username string, seq int) string {
	name := strings.ToLower(username)
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return -1
	}, name)
	if name == "" {
		name = "user"
	}
	return fmt.Sprintf("ticket-%s-%d", name, seq)
}

func panelSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

func findTicketPanel(cfg TicketConfig, slug string) *TicketPanel {
	for i := range cfg.Panels {
		if panelSlug(cfg.Panels[i].Name) == slug {
			return &cfg.Panels[i]
		}
	}
	return nil
}

// ticketOverwrites builds the channel permission set: everyone hidden, the
// bot, staff role and every member visible. Members lose send on closed
// tickets, staff and the bot keep it.
func ticketOverwrites(guildID, botID snowflake.ID, t *Ticket, staffRole snowflake.ID) []discord.PermissionOverwrite {
	memberAllow := discord.PermissionViewChannel | discord.PermissionSendMessages
	var memberDeny discord.Permissions
	if t.Status == TicketStatusClosed {
		memberAllow = discord.PermissionViewChannel
		memberDeny = discord.PermissionSendMessages
	}

	ows := []discord.PermissionOverwrite{
		discord.RolePermissionOverwrite{
			RoleID: guildID, // @everyone
			Deny:   discord.PermissionViewChannel,
		},
		discord.MemberPermissionOverwrite{
			UserID: botID,
			Allow:  discord.PermissionViewChannel | discord.PermissionSendMessages,
		},
	}
	if staffRole != 0 {
		ows = append(ows, discord.RolePermissionOverwrite{
			RoleID: staffRole,
			Allow:  discord.PermissionViewChannel | discord.PermissionSendMessages,
		})
	}

	seen := map[snowflake.ID]bool{}
	for _, m := range append([]snowflake.ID{t.Author}, t.Members...) {
		if seen[m] {
			continue
		}
		seen[m] = true
		ows = append(ows, discord.MemberPermissionOverwrite{
			UserID: m,
			Allow:  memberAllow,
			Deny:   memberDeny,
		})
	}
	return ows
}

// ===========================
// Discord Plumbing
// ===========================

func ensureTicketsCategory(client bot.Client, guildID snowflake.ID) (snowflake.ID, error) {
	channels, err := client.Rest.GetGuildChannels(guildID)
	if err != nil {
		return 0, err
	}
	for _, ch := range channels {
		if ch.Type() == discord.ChannelTypeGuildCategory && ch.Name() == TicketsCategoryName {
			return ch.ID(), nil
		}
	}

	created, err := client.Rest.CreateGuildChannel(guildID, discord.GuildCategoryChannelCreate{
		Name: TicketsCategoryName,
	})
	if err != nil {
		return 0, err
	}
	return created.ID(), nil
}

func createTicketChannel(client bot.Client, guildID snowflake.ID, author discord.User, topic, panel string, extraFields []discord.EmbedField) (*Ticket, error) {
	cfg, err := LoadTicketConfig(guildID)
	if err != nil {
		return nil, err
	}
	categoryID, err := ensureTicketsCategory(client, guildID)
	if err != nil {
		return nil, err
	}

	all, err := LoadTickets()
	if err != nil {
		return nil, err
	}

	t := &Ticket{
		GuildID:   guildID,
		Author:    author.ID,
		Topic:     topic,
		Panel:     panel,
		CreatedAt: timeNow().UTC().Format(time.RFC3339),
		Members:   []snowflake.ID{author.ID},
		Status:    TicketStatusOpen,
	}

	ch, err := client.Rest.CreateGuildChannel(guildID, discord.GuildTextChannelCreate{
		Name:                 ticketChannelName(author.Username, len(all)+1),
		ParentID:             categoryID,
		PermissionOverwrites: ticketOverwrites(guildID, client.ApplicationID, t, cfg.StaffRole),
	})
	if err != nil {
		return nil, err
	}

	t.ChannelID = ch.ID()
	all[t.ChannelID.String()] = t
	if err := SaveTickets(all); err != nil {
		return nil, err
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("🎟️ Ticket: "+topic).
		SetDescription(fmt.Sprintf(MsgTicketOpenedBy, author.ID)).
		SetColor(0x2ECC71).
		AddField("Ticket ID", t.ChannelID.String(), false).
		SetFooter(MsgTicketWelcomeFooter, "")
	for _, f := range extraFields {
		embed.AddField(f.Name, f.Value, false)
	}

	_, err = client.Rest.CreateMessage(t.ChannelID, discord.NewMessageCreateBuilder().
		SetEmbeds(embed.Build()).
		Build())
	if err != nil {
		LogTickets("Failed to send ticket welcome message: %v", err)
	}

	LogTickets("Opened ticket %s for %s (%s)", t.ChannelID, author.Username, topic)
	return t, nil
}

func syncTicketPermissions(client bot.Client, t *Ticket) {
	cfg, err := LoadTicketConfig(t.GuildID)
	if err != nil {
		LogTickets("Failed to load ticket config: %v", err)
		return
	}
	ows := ticketOverwrites(t.GuildID, client.ApplicationID, t, cfg.StaffRole)
	_, err = client.Rest.UpdateChannel(t.ChannelID, discord.GuildTextChannelUpdate{
		PermissionOverwrites: &ows,
	})
	if err != nil {
		LogTickets("Failed to update ticket permissions: %v", err)
	}
}

// ===========================
// Command Registration
// ===========================

func init() {
	RegisterCommand(discord.SlashCommandCreate{
		Name:        "ticket",
		Description: "Support tickets",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "create",
				Description: "Open a new ticket",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "topic",
						Description: "What the ticket is about",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "close",
				Description: "Close the ticket in this channel",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "reopen",
				Description: "Reopen a closed ticket (staff)",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "add",
				Description: "Add a user to the ticket",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "User to add",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "remove",
				Description: "Remove a user from the ticket",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "User to remove",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "panel",
				Description: "Post the ticket panel in this channel (admin)",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "list",
				Description: "List your open tickets",
			},
		},
	}, handleTicket)

	RegisterComponentHandler("ticket:", handleTicketComponent)
	RegisterModalHandler("ticket:", handleTicketModal)
}

// ===========================
// Command Handlers
// ===========================

func ticketFollowup(event *events.ApplicationCommandInteractionCreate, content string) {
	_, err := event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), discord.NewMessageUpdateBuilder().
		SetContent(content).
		Build())
	if err != nil {
		LogTickets("Failed to respond: %v", err)
	}
}

func ticketRespond(event *events.ApplicationCommandInteractionCreate, content string) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
	if err != nil {
		LogTickets("Failed to respond: %v", err)
	}
}

func ticketIsStaff(event *events.ApplicationCommandInteractionCreate, cfg TicketConfig) bool {
	member := event.Member()
	if member == nil {
		return false
	}
	if member.Permissions.Has(discord.PermissionAdministrator) {
		return true
	}
	for _, r := range member.RoleIDs {
		if cfg.StaffRole != 0 && r == cfg.StaffRole {
			return true
		}
	}
	return false
}

func handleTicket(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()

	if event.GuildID() == nil {
		ticketRespond(event, ErrGiveawayGuildOnly)
		return
	}

	subCmd := data.SubCommandName
	if subCmd == nil {
		return
	}

	switch *subCmd {
	case "create":
		handleTicketCreate(event, data)
	case "close":
		handleTicketClose(event)
	case "reopen":
		handleTicketReopen(event)
	case "add":
		handleTicketMember(event, data, true)
	case "remove":
		handleTicketMember(event, data, false)
	case "panel":
		handleTicketPanel(event)
	case "list":
		handleTicketList(event)
	}
}

func handleTicketCreate(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	guildID := *event.GuildID()
	topic := data.String("topic")

	_ = event.DeferCreateMessage(true)

	go func() {
		client := *event.Client()
		t, err := createTicketChannel(client, guildID, event.User(), topic, "", nil)
		if err != nil {
			ticketFollowup(event, fmt.Sprintf(ErrTicketCreateFail, err))
			return
		}
		ticketFollowup(event, fmt.Sprintf(MsgTicketCreated, t.ChannelID))
	}()
}

func handleTicketClose(event *events.ApplicationCommandInteractionCreate) {
	t, err := LoadTicket(event.Channel().ID())
	if err != nil || t == nil {
		ticketRespond(event, ErrTicketNotTicketChannel)
		return
	}

	cfg, _ := LoadTicketConfig(t.GuildID)
	if event.User().ID != t.Author && !ticketIsStaff(event, cfg) {
		ticketRespond(event, ErrTicketNotAuthor)
		return
	}
	if !CloseTicketRecord(t) {
		ticketRespond(event, ErrTicketAlreadyClosed)
		return
	}
	if err := SaveTicket(t); err != nil {
		ticketRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}

	syncTicketPermissions(*event.Client(), t)

	err = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(fmt.Sprintf(MsgTicketClosed, event.User().ID)).
		Build())
	if err != nil {
		LogTickets("Failed to respond: %v", err)
	}
}

func handleTicketReopen(event *events.ApplicationCommandInteractionCreate) {
	t, err := LoadTicket(event.Channel().ID())
	if err != nil || t == nil {
		ticketRespond(event, ErrTicketNotTicketChannel)
		return
	}

	cfg, _ := LoadTicketConfig(t.GuildID)
	if !ticketIsStaff(event, cfg) {
		ticketRespond(event, ErrTicketNotAuthor)
		return
	}
	if !ReopenTicketRecord(t) {
		ticketRespond(event, ErrTicketNotClosed)
		return
	}
	if err := SaveTicket(t); err != nil {
		ticketRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}

	syncTicketPermissions(*event.Client(), t)

	err = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(fmt.Sprintf(MsgTicketReopened, event.User().ID)).
		Build())
	if err != nil {
		LogTickets("Failed to respond: %v", err)
	}
}

func handleTicketMember(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData, add bool) {
	t, err := LoadTicket(event.Channel().ID())
	if err != nil || t == nil {
		ticketRespond(event, ErrTicketNotTicketChannel)
		return
	}

	cfg, _ := LoadTicketConfig(t.GuildID)
	if event.User().ID != t.Author && !ticketIsStaff(event, cfg) {
		ticketRespond(event, ErrTicketNotAuthor)
		return
	}

	userID := data.Snowflake("user")
	if add {
		if !AddTicketMember(t, userID) {
			ticketRespond(event, ErrTicketAlreadyMember)
			return
		}
	} else {
		if !RemoveTicketMember(t, userID) {
			ticketRespond(event, ErrTicketNotMember)
			return
		}
	}
	if err := SaveTicket(t); err != nil {
		ticketRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}

	syncTicketPermissions(*event.Client(), t)

	msg := MsgTicketMemberAdded
	if !add {
		msg = MsgTicketMemberRemoved
	}
	ticketRespond(event, fmt.Sprintf(msg, userID))
}

func handleTicketPanel(event *events.ApplicationCommandInteractionCreate) {
	member := event.Member()
	if member == nil || !member.Permissions.Has(discord.PermissionAdministrator) {
		ticketRespond(event, ErrTicketAdminOnly)
		return
	}

	guildID := *event.GuildID()
	cfg, err := LoadTicketConfig(guildID)
	if err != nil {
		ticketRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	if len(cfg.Panels) == 0 {
		ticketRespond(event, ErrTicketNoPanels)
		return
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("🎟️ Ticket Panels").
		SetDescription("Press a button below to open a ticket:").
		SetColor(0x3498DB)
	var buttons []discord.InteractiveComponent
	for _, p := range cfg.Panels {
		emoji := p.Emoji
		if emoji == "" {
			emoji = "📝"
		}
		embed.AddField(emoji+" "+p.Name, p.Description, false)
		buttons = append(buttons, discord.NewButton(discord.ButtonStylePrimary, p.Name, "ticket:panel:"+panelSlug(p.Name), "", 0))
	}

	client := *event.Client()
	msg, err := client.Rest.CreateMessage(event.Channel().ID(), discord.NewMessageCreateBuilder().
		SetEmbeds(embed.Build()).
		AddActionRow(buttons...).
		Build())
	if err != nil {
		ticketRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}

	cfg.PanelChannel = event.Channel().ID()
	cfg.PanelMessage = msg.ID
	if err := SaveTicketConfig(guildID, cfg); err != nil {
		LogTickets("Failed to save panel location: %v", err)
	}

	ticketRespond(event, MsgTicketPanelPosted)
}

func handleTicketList(event *events.ApplicationCommandInteractionCreate) {
	guildID := *event.GuildID()

	all, err := LoadTickets()
	if err != nil {
		ticketRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}

	var mine []*Ticket
	for _, t := range all {
		if t.GuildID == guildID && t.Author == event.User().ID && t.Status == TicketStatusOpen {
			mine = append(mine, t)
		}
	}
	if len(mine) == 0 {
		ticketRespond(event, ErrTicketNoOpenTickets)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(MsgTicketListHead, len(mine)))
	for _, t := range mine {
		sb.WriteString(fmt.Sprintf(MsgTicketListRow, t.Topic, t.ChannelID, t.CreatedAt))
	}
	ticketRespond(event, sb.String())
}

// ===========================
// Component / Modal Handlers
// ===========================

func handleTicketComponent(event *events.ComponentInteractionCreate) {
	slug, ok := strings.CutPrefix(event.Data.CustomID(), "ticket:panel:")
	if !ok || event.GuildID() == nil {
		return
	}

	cfg, err := LoadTicketConfig(*event.GuildID())
	if err != nil {
		LogTickets("Failed to load ticket config: %v", err)
		return
	}
	panel := findTicketPanel(cfg, slug)
	if panel == nil {
		err = event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent(ErrTicketPanelNotFound).
			SetEphemeral(true).
			Build())
		if err != nil {
			LogTickets("Failed to respond: %v", err)
		}
		return
	}

	// Panels without form fields skip the modal round trip.
	if len(panel.Fields) == 0 {
		_ = event.DeferCreateMessage(true)
		guildID := *event.GuildID()
		go func() {
			client := *event.Client()
			t, err := createTicketChannel(client, guildID, event.User(), panel.Name, panel.Name, nil)
			if err != nil {
				_, _ = client.Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), discord.NewMessageUpdateBuilder().
					SetContent(fmt.Sprintf(ErrTicketCreateFail, err)).
					Build())
				return
			}
			_, _ = client.Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), discord.NewMessageUpdateBuilder().
				SetContent(fmt.Sprintf(MsgTicketCreated, t.ChannelID)).
				Build())
		}()
		return
	}

	var rows []discord.LayoutComponent
	for i, f := range panel.Fields {
		if i >= 5 { // modal hard limit
			break
		}
		id := fmt.Sprintf("field:%d", i)
		var input discord.TextInputComponent
		if len(f.Name) > 20 {
			input = discord.NewParagraphTextInput(id, f.Name)
		} else {
			input = discord.NewShortTextInput(id, f.Name)
		}
		input = input.WithPlaceholder(f.Placeholder).WithRequired(true)
		rows = append(rows, discord.NewActionRow(input))
	}

	err = event.Modal(discord.ModalCreate{
		CustomID:   "ticket:modal:" + slug,
		Title:      "Ticket - " + panel.Name,
		Components: rows,
	})
	if err != nil {
		LogTickets("Failed to open ticket modal: %v", err)
	}
}

func handleTicketModal(event *events.ModalSubmitInteractionCreate) {
	slug, ok := strings.CutPrefix(event.Data.CustomID, "ticket:modal:")
	if !ok || event.GuildID() == nil {
		return
	}

	cfg, err := LoadTicketConfig(*event.GuildID())
	if err != nil {
		LogTickets("Failed to load ticket config: %v", err)
		return
	}
	panel := findTicketPanel(cfg, slug)
	if panel == nil {
		return
	}

	var fields []discord.EmbedField
	for i, f := range panel.Fields {
		if i >= 5 {
			break
		}
		value := event.Data.Text(fmt.Sprintf("field:%d", i))
		if value == "" {
			continue
		}
		fields = append(fields, discord.EmbedField{Name: f.Name, Value: value, Inline: boolPtr(false)})
	}

	_ = event.DeferCreateMessage(true)
	guildID := *event.GuildID()

	go func() {
		client := *event.Client()
		t, err := createTicketChannel(client, guildID, event.User(), panel.Name, panel.Name, fields)
		if err != nil {
			_, _ = client.Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), discord.NewMessageUpdateBuilder().
				SetContent(fmt.Sprintf(ErrTicketCreateFail, err)).
				Build())
			return
		}
		_, _ = client.Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), discord.NewMessageUpdateBuilder().
			SetContent(fmt.Sprintf(MsgTicketCreated, t.ChannelID)).
			Build())
	}()
}
