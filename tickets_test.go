package main

import (
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTicketStore(t *testing.T) {
	t.Helper()
	old := storeDir
	SetStoreDir(t.TempDir())
	t.Cleanup(func() {
		SetStoreDir(old)
		timeNow = time.Now
	})
}

func newTestTicket() *Ticket {
	return &Ticket{
		ChannelID: 500,
		GuildID:   1000,
		Author:    42,
		Topic:     "help",
		CreatedAt: "2026-03-01T12:00:00Z",
		Members:   []snowflake.ID{42},
		Status:    TicketStatusOpen,
	}
}

func TestTicketMemberAddRemove(t *testing.T) {
	tk := newTestTicket()

	assert.True(t, AddTicketMember(tk, 77))
	assert.False(t, AddTicketMember(tk, 77), "adding twice must report no change")
	assert.Equal(t, []snowflake.ID{42, 77}, tk.Members)

	assert.True(t, RemoveTicketMember(tk, 77))
	assert.False(t, RemoveTicketMember(tk, 77), "removing twice must report no change")
	assert.Equal(t, []snowflake.ID{42}, tk.Members)
}

func TestTicketStatusTransitions(t *testing.T) {
	tk := newTestTicket()

	assert.False(t, ReopenTicketRecord(tk), "open ticket cannot be reopened")
	assert.True(t, CloseTicketRecord(tk))
	assert.Equal(t, TicketStatusClosed, tk.Status)
	assert.False(t, CloseTicketRecord(tk), "closing twice must report no change")

	assert.True(t, ReopenTicketRecord(tk))
	assert.Equal(t, TicketStatusOpen, tk.Status)
}

func TestTicketChannelName(t *testing.T) {
	assert.Equal(t, "ticket-steve-1", ticketChannelName("Steve", 1))
	assert.Equal(t, "ticket-a_b-12", ticketChannelName("A_B!?", 12))
	assert.Equal(t, "ticket-user-3", ticketChannelName("!!!", 3))
}

func TestFindTicketPanel(t *testing.T) {
	cfg := TicketConfig{Panels: []TicketPanel{
		{Name: "Discord Support"},
		{Name: "Join Clan"},
	}}

	p := findTicketPanel(cfg, "discord-support")
	require.NotNil(t, p)
	assert.Equal(t, "Discord Support", p.Name)

	assert.Nil(t, findTicketPanel(cfg, "missing"))
}

func TestTicketOverwrites(t *testing.T) {
	tk := newTestTicket()
	tk.Members = []snowflake.ID{42, 77}

	ows := ticketOverwrites(1000, 999, tk, 333)
	// everyone + bot + staff + two members
	require.Len(t, ows, 5)

	everyone, ok := ows[0].(discord.RolePermissionOverwrite)
	require.True(t, ok)
	assert.Equal(t, snowflake.ID(1000), everyone.RoleID)
	assert.True(t, everyone.Deny.Has(discord.PermissionViewChannel))

	member, ok := ows[3].(discord.MemberPermissionOverwrite)
	require.True(t, ok)
	assert.Equal(t, snowflake.ID(42), member.UserID)
	assert.True(t, member.Allow.Has(discord.PermissionSendMessages))

	// Closed tickets keep visibility but drop send for members.
	tk.Status = TicketStatusClosed
	ows = ticketOverwrites(1000, 999, tk, 333)
	member, ok = ows[3].(discord.MemberPermissionOverwrite)
	require.True(t, ok)
	assert.True(t, member.Allow.Has(discord.PermissionViewChannel))
	assert.True(t, member.Deny.Has(discord.PermissionSendMessages))

	staff, ok := ows[2].(discord.RolePermissionOverwrite)
	require.True(t, ok)
	assert.True(t, staff.Allow.Has(discord.PermissionSendMessages))
}

func TestTicketPersistence(t *testing.T) {
	setupTicketStore(t)

	tk := newTestTicket()
	require.NoError(t, SaveTicket(tk))

	loaded, err := LoadTicket(500)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "help", loaded.Topic)

	missing, err := LoadTicket(501)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTicketConfigPersistence(t *testing.T) {
	setupTicketStore(t)

	cfg := TicketConfig{StaffRole: 333, Panels: []TicketPanel{{Name: "Support"}}}
	require.NoError(t, SaveTicketConfig(1000, cfg))

	loaded, err := LoadTicketConfig(1000)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(333), loaded.StaffRole)
	require.Len(t, loaded.Panels, 1)

	empty, err := LoadTicketConfig(2000)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(0), empty.StaffRole)
}
