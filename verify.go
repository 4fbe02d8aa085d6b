package main

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
)

// ============================================================================
// Verification
// ============================================================================

const (
	MsgVerifyDone        = "✅ Verification complete! You now have access to the server."
	MsgVerifyForced      = "✅ <@%s> verified."
	MsgVerifyRemoved     = "✅ Removed the verification role from <@%s>."
	MsgVerifyChannelSet  = "✅ Verification channel set to <#%s>."
	MsgVerifyRoleSet     = "✅ Verification role set: <@&%s>."
	MsgVerifyPanelSent   = "✅ Verification panel posted."
	MsgVerifyAutoResend  = "✅ Auto resend set to %t."
	MsgVerifyDefaultText = "Press the button to verify yourself!"
	MsgVerifyConfig      = "Channel: %s\nRole: %s\nPanel message: %s\nAuto resend: %t\nPanel text: %s"

	ErrVerifyBots         = "Bots cannot be verified."
	ErrVerifyRoleFail     = "❌ Failed to grant the verification role."
	ErrVerifyNoChannel    = "❌ No verification channel configured. Use /verify set-channel."
	ErrVerifyRoleNotFound = "❌ Verification role not found."
	ErrVerifyNoPermission = "❌ You need the Manage Roles permission to do that."
	ErrVerifyAdminOnly    = "❌ Only admins can do that."

	VerifyDefaultRoleName = "Verified"
	VerifyButtonID        = "verify:button"
)

type VerifyConfig struct {
	ChannelID  snowflake.ID `json:"channel_id,omitempty"`
	RoleID     snowflake.ID `json:"role_id,omitempty"`
	RoleName   string       `json:"role_name,omitempty"`
	MessageID  snowflake.ID `json:"message_id,omitempty"`
	PanelText  string       `json:"panel_text,omitempty"`
	AutoResend bool         `json:"auto_resend,omitempty"`
}

func verifyConfigPath() string {
	return StorePath("verify_config.json")
}

func LoadVerifyConfig(guildID snowflake.ID) (VerifyConfig, error) {
	all := map[string]VerifyConfig{}
	if _, err := ReadJSONFile(verifyConfigPath(), &all); err != nil {
		return VerifyConfig{}, err
	}
	return all[guildID.String()], nil
}

func SaveVerifyConfig(guildID snowflake.ID, cfg VerifyConfig) error {
	all := map[string]VerifyConfig{}
	if _, err := ReadJSONFile(verifyConfigPath(), &all); err != nil {
		return err
	}
	all[guildID.String()] = cfg
	return WriteJSONFile(verifyConfigPath(), all)
}

func verifyRoleName(cfg VerifyConfig) string {
	if cfg.RoleName != "" {
		return cfg.RoleName
	}
	return VerifyDefaultRoleName
}

func verifyPanelText(cfg VerifyConfig) string {
	if cfg.PanelText != "" {
		return cfg.PanelText
	}
	return MsgVerifyDefaultText
}

// resolveVerifyRole finds the verification role by id, then by name, and
// creates it when neither matches. The config is re-saved when a role is
// created so later lookups hit by id.
func resolveVerifyRole(client bot.Client, guildID snowflake.ID, createMissing bool) (snowflake.ID, error) {
	cfg, err := LoadVerifyConfig(guildID)
	if err != nil {
		return 0, err
	}

	roles, err := client.Rest.GetRoles(guildID)
	if err != nil {
		return 0, err
	}

	if cfg.RoleID != 0 {
		for _, r := range roles {
			if r.ID == cfg.RoleID {
				return r.ID, nil
			}
		}
	}

	name := verifyRoleName(cfg)
	for _, r := range roles {
		if r.Name == name {
			return r.ID, nil
		}
	}

	if !createMissing {
		return 0, nil
	}

	created, err := client.Rest.CreateRole(guildID, discord.RoleCreate{Name: name})
	if err != nil {
		return 0, err
	}
	cfg.RoleID = created.ID
	if err := SaveVerifyConfig(guildID, cfg); err != nil {
		LogVerify("Failed to save created role id: %v", err)
	}
	return created.ID, nil
}

func verifyPanelMessage(cfg VerifyConfig) discord.MessageCreate {
	return discord.NewMessageCreateBuilder().
		SetContent(verifyPanelText(cfg)).
		AddActionRow(discord.NewButton(discord.ButtonStyleSuccess, "Verify", VerifyButtonID, "", 0)).
		Build()
}

func postVerifyPanel(client bot.Client, guildID snowflake.ID, replace bool) error {
	cfg, err := LoadVerifyConfig(guildID)
	if err != nil {
		return err
	}
	if cfg.ChannelID == 0 {
		return fmt.Errorf("no verification channel configured")
	}

	if replace && cfg.MessageID != 0 {
		// best effort, the old panel may already be gone
		_ = client.Rest.DeleteMessage(cfg.ChannelID, cfg.MessageID)
	}

	msg, err := client.Rest.CreateMessage(cfg.ChannelID, verifyPanelMessage(cfg))
	if err != nil {
		return err
	}

	cfg.MessageID = msg.ID
	return SaveVerifyConfig(guildID, cfg)
}

// ===========================
// Command Registration
// ===========================

func init() {
	RegisterCommand(discord.SlashCommandCreate{
		Name:        "verify",
		Description: "Member verification",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "panel",
				Description: "Post or replace the verification panel (admin)",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionBool{
						Name:        "replace",
						Description: "Delete the previous panel first",
					},
					discord.ApplicationCommandOptionString{
						Name:        "text",
						Description: "Text shown above the button",
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "set-channel",
				Description: "Set the verification channel (admin)",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionChannel{
						Name:        "channel",
						Description: "Channel for the panel",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "set-role",
				Description: "Set the role granted on verification",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionRole{
						Name:        "role",
						Description: "Role to grant",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "force",
				Description: "Force-verify a member",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "Member to verify",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "remove",
				Description: "Remove the verification role from a member",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionUser{
						Name:        "user",
						Description: "Member to unverify",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "config",
				Description: "Show the current verification configuration",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "autoresend",
				Description: "Toggle panel resend on startup (admin)",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionBool{
						Name:        "enabled",
						Description: "Resend the panel after every restart",
						Required:    true,
					},
				},
			},
		},
	}, handleVerify)

	RegisterComponentHandler(VerifyButtonID, handleVerifyButton)

	OnClientReady(func(ctx context.Context, client bot.Client) {
		resendVerifyPanels(client)
	})
}

// resendVerifyPanels reposts panels for guilds with auto_resend enabled.
func resendVerifyPanels(client bot.Client) {
	all := map[string]VerifyConfig{}
	if _, err := ReadJSONFile(verifyConfigPath(), &all); err != nil {
		LogVerify("Failed to read verify config: %v", err)
		return
	}

	for gid, cfg := range all {
		if !cfg.AutoResend || cfg.ChannelID == 0 {
			continue
		}
		guildID, err := snowflake.Parse(gid)
		if err != nil {
			continue
		}
		if err := postVerifyPanel(client, guildID, false); err != nil {
			LogVerify("Failed to resend panel for guild %s: %v", gid, err)
		}
	}
}

// ===========================
// Command Handlers
// ===========================

func verifyRespond(event *events.ApplicationCommandInteractionCreate, content string) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
	if err != nil {
		LogVerify("Failed to respond: %v", err)
	}
}

func verifyCanManageRoles(event *events.ApplicationCommandInteractionCreate) bool {
	member := event.Member()
	return member != nil && member.Permissions.Has(discord.PermissionManageRoles)
}

func verifyIsAdmin(event *events.ApplicationCommandInteractionCreate) bool {
	member := event.Member()
	return member != nil && member.Permissions.Has(discord.PermissionAdministrator)
}

func handleVerify(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()

	if event.GuildID() == nil {
		verifyRespond(event, ErrGiveawayGuildOnly)
		return
	}

	subCmd := data.SubCommandName
	if subCmd == nil {
		return
	}

	switch *subCmd {
	case "panel":
		handleVerifyPanel(event, data)
	case "set-channel":
		handleVerifySetChannel(event, data)
	case "set-role":
		handleVerifySetRole(event, data)
	case "force":
		handleVerifyForce(event, data)
	case "remove":
		handleVerifyRemove(event, data)
	case "config":
		handleVerifyConfig(event)
	case "autoresend":
		handleVerifyAutoResend(event, data)
	}
}

func handleVerifyPanel(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !verifyIsAdmin(event) {
		verifyRespond(event, ErrVerifyAdminOnly)
		return
	}

	guildID := *event.GuildID()
	replace, _ := data.OptBool("replace")

	cfg, err := LoadVerifyConfig(guildID)
	if err != nil {
		verifyRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	if cfg.ChannelID == 0 {
		verifyRespond(event, ErrVerifyNoChannel)
		return
	}
	if text, ok := data.OptString("text"); ok {
		cfg.PanelText = text
		if err := SaveVerifyConfig(guildID, cfg); err != nil {
			verifyRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
			return
		}
	}

	if err := postVerifyPanel(*event.Client(), guildID, replace); err != nil {
		verifyRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	verifyRespond(event, MsgVerifyPanelSent)
}

func handleVerifySetChannel(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !verifyIsAdmin(event) {
		verifyRespond(event, ErrVerifyAdminOnly)
		return
	}

	guildID := *event.GuildID()
	channelID := data.Snowflake("channel")

	cfg, err := LoadVerifyConfig(guildID)
	if err != nil {
		verifyRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	cfg.ChannelID = channelID
	if err := SaveVerifyConfig(guildID, cfg); err != nil {
		verifyRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	verifyRespond(event, fmt.Sprintf(MsgVerifyChannelSet, channelID))
}

func handleVerifySetRole(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !verifyCanManageRoles(event) {
		verifyRespond(event, ErrVerifyNoPermission)
		return
	}

	guildID := *event.GuildID()
	role := data.Role("role")

	cfg, err := LoadVerifyConfig(guildID)
	if err != nil {
		verifyRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	cfg.RoleID = role.ID
	cfg.RoleName = role.Name
	if err := SaveVerifyConfig(guildID, cfg); err != nil {
		verifyRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	verifyRespond(event, fmt.Sprintf(MsgVerifyRoleSet, role.ID))
}

func handleVerifyForce(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !verifyCanManageRoles(event) {
		verifyRespond(event, ErrVerifyNoPermission)
		return
	}

	guildID := *event.GuildID()
	userID := data.Snowflake("user")
	client := *event.Client()

	roleID, err := resolveVerifyRole(client, guildID, true)
	if err != nil || roleID == 0 {
		verifyRespond(event, ErrVerifyRoleFail)
		return
	}
	if err := client.Rest.AddMemberRole(guildID, userID, roleID); err != nil {
		verifyRespond(event, ErrVerifyRoleFail)
		return
	}
	verifyRespond(event, fmt.Sprintf(MsgVerifyForced, userID))
}

func handleVerifyRemove(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !verifyCanManageRoles(event) {
		verifyRespond(event, ErrVerifyNoPermission)
		return
	}

	guildID := *event.GuildID()
	userID := data.Snowflake("user")
	client := *event.Client()

	roleID, err := resolveVerifyRole(client, guildID, false)
	if err != nil {
		verifyRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	if roleID == 0 {
		verifyRespond(event, ErrVerifyRoleNotFound)
		return
	}
	if err := client.Rest.RemoveMemberRole(guildID, userID, roleID); err != nil {
		verifyRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	verifyRespond(event, fmt.Sprintf(MsgVerifyRemoved, userID))
}

func handleVerifyConfig(event *events.ApplicationCommandInteractionCreate) {
	cfg, err := LoadVerifyConfig(*event.GuildID())
	if err != nil {
		verifyRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}

	channel := "not set"
	if cfg.ChannelID != 0 {
		channel = fmt.Sprintf("<#%s>", cfg.ChannelID)
	}
	role := "not set"
	if cfg.RoleID != 0 {
		role = fmt.Sprintf("<@&%s>", cfg.RoleID)
	}
	message := "n/a"
	if cfg.MessageID != 0 {
		message = cfg.MessageID.String()
	}

	verifyRespond(event, fmt.Sprintf(MsgVerifyConfig,
		channel, role, message, cfg.AutoResend, Truncate(verifyPanelText(cfg), 80)))
}

func handleVerifyAutoResend(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !verifyIsAdmin(event) {
		verifyRespond(event, ErrVerifyAdminOnly)
		return
	}

	guildID := *event.GuildID()
	enabled := data.Bool("enabled")

	cfg, err := LoadVerifyConfig(guildID)
	if err != nil {
		verifyRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	cfg.AutoResend = enabled
	if err := SaveVerifyConfig(guildID, cfg); err != nil {
		verifyRespond(event, fmt.Sprintf(ErrGiveawayGenericFail, err))
		return
	}
	verifyRespond(event, fmt.Sprintf(MsgVerifyAutoResend, enabled))
}

// ===========================
// Button Handler
// ===========================

func handleVerifyButton(event *events.ComponentInteractionCreate) {
	if event.GuildID() == nil {
		return
	}
	if event.User().Bot {
		err := event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent(ErrVerifyBots).
			SetEphemeral(true).
			Build())
		if err != nil {
			LogVerify("Failed to respond: %v", err)
		}
		return
	}

	guildID := *event.GuildID()
	client := *event.Client()

	roleID, err := resolveVerifyRole(client, guildID, true)
	if err != nil || roleID == 0 {
		err = event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent(ErrVerifyRoleFail).
			SetEphemeral(true).
			Build())
		if err != nil {
			LogVerify("Failed to respond: %v", err)
		}
		return
	}

	if err := client.Rest.AddMemberRole(guildID, event.User().ID, roleID); err != nil {
		LogVerify("Failed to grant role to %s: %v", event.User().ID, err)
		err = event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent(ErrVerifyRoleFail).
			SetEphemeral(true).
			Build())
		if err != nil {
			LogVerify("Failed to respond: %v", err)
		}
		return
	}

	LogVerify("Verified %s in guild %s", event.User().ID, guildID)
	err = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(MsgVerifyDone).
		SetEphemeral(true).
		Build())
	if err != nil {
		LogVerify("Failed to respond: %v", err)
	}
}
