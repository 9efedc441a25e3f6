package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

// fakeSession is a restSession backed by in-memory maps.
type fakeSession struct {
	mu       sync.Mutex
	channels map[string]*discordgo.Channel
	messages map[string]*discordgo.Message
	// history is ordered newest first, like the REST endpoint.
	history []*discordgo.Message

	sent    []*discordgo.MessageSend
	edits   []string
	deleted []string
	threads []*discordgo.ThreadStart
	lookups int
	pages   []int
	nextID  int

	sendErr error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		channels: map[string]*discordgo.Channel{},
		messages: map[string]*discordgo.Message{},
	}
}

func (f *fakeSession) Channel(id string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	ch, ok := f.channels[id]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", id)
	}
	return ch, nil
}

func (f *fakeSession) ChannelMessage(_, id string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("unknown message %s", id)
	}
	return m, nil
}

func (f *fakeSession) ChannelMessages(_ string, limit int, beforeID, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, limit)
	start := 0
	if beforeID != "" {
		for i, m := range f.history {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(f.history))
	return append([]*discordgo.Message(nil), f.history[start:end]...), nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, data)
	f.nextID++
	return &discordgo.Message{ID: fmt.Sprintf("m-%d", f.nextID), ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageEdit(_, messageID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, messageID+":"+content)
	return &discordgo.Message{ID: messageID}, nil
}

func (f *fakeSession) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeSession) MessageThreadStartComplex(channelID, _ string, data *discordgo.ThreadStart, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads = append(f.threads, data)
	return &discordgo.Channel{ID: "thread-1", ParentID: channelID, Type: data.Type, OwnerID: "bot-1"}, nil
}

func (f *fakeSession) ChannelTyping(string, ...discordgo.RequestOption) error { return nil }

func (f *fakeSession) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func newTestChannel(f *fakeSession) *Channel {
	return newChannel(f, nil, testLogger())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		typ  discordgo.ChannelType
		want domain.ChannelKind
	}{
		{discordgo.ChannelTypeGuildText, domain.KindChannel},
		{discordgo.ChannelTypeDM, domain.KindDirectMessage},
		{discordgo.ChannelTypeGuildPublicThread, domain.KindThread},
		{discordgo.ChannelTypeGuildPrivateThread, domain.KindThread},
		{discordgo.ChannelTypeGuildVoice, domain.KindUnsupported},
		{discordgo.ChannelTypeGroupDM, domain.KindUnsupported},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, kindOf(&discordgo.Channel{Type: tt.typ}), "type %d", tt.typ)
	}
	assert.Equal(t, domain.KindUnsupported, kindOf(nil))
}

func TestDisplayName(t *testing.T) {
	u := &discordgo.User{ID: "1", Username: "alice99", GlobalName: "Alice"}
	assert.Equal(t, "Alice", displayName(u, nil))
	assert.Equal(t, "Ally", displayName(u, &discordgo.Member{Nick: "Ally"}))
	assert.Equal(t, "bob", displayName(&discordgo.User{Username: "bob"}, &discordgo.Member{}))
	assert.Empty(t, displayName(nil, nil))
}

func TestToInbound_Thread(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := &discordgo.Message{
		ID:        "m1",
		ChannelID: "th1",
		GuildID:   "g1",
		Content:   "hey <@42> look",
		Timestamp: ts,
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
		Member:    &discordgo.Member{Nick: "Alice"},
		Mentions:  []*discordgo.User{{ID: "42", Username: "gork"}},
		Attachments: []*discordgo.MessageAttachment{
			{ID: "a1", URL: "https://cdn/x.png", ContentType: "image/png", Filename: "x.png", Size: 10},
		},
		Embeds: []*discordgo.MessageEmbed{{
			URL:      "https://youtu.be/abc",
			Title:    "Video",
			Provider: &discordgo.MessageEmbedProvider{Name: "YouTube"},
			Author:   &discordgo.MessageEmbedAuthor{Name: "Chan"},
		}},
		MessageReference: &discordgo.MessageReference{MessageID: "m0"},
	}
	ch := &discordgo.Channel{ID: "th1", Type: discordgo.ChannelTypeGuildPublicThread, ParentID: "c1", OwnerID: "42"}

	msg := toInbound(m, ch)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "th1", msg.ChannelID)
	assert.Equal(t, domain.KindThread, msg.Kind)
	assert.Equal(t, "c1", msg.ParentChannelID)
	assert.Equal(t, "42", msg.ThreadOwnerID)
	assert.Equal(t, "m0", msg.ReplyToID)
	assert.Equal(t, domain.Author{ID: "u1", DisplayName: "Alice"}, msg.Author)
	assert.Equal(t, map[string]string{"42": "gork"}, msg.Mentions)
	assert.True(t, msg.Mentioned("42"))
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, int64(10), msg.Attachments[0].Size)
	require.Len(t, msg.Embeds, 1)
	assert.Equal(t, domain.Embed{Provider: "YouTube", Author: "Chan", Title: "Video", URL: "https://youtu.be/abc"}, msg.Embeds[0])
	assert.Equal(t, ts, msg.Timestamp)
}

func TestToInbound_ChannelHasNoThreadFields(t *testing.T) {
	m := &discordgo.Message{ID: "m1", ChannelID: "c1", Author: &discordgo.User{ID: "u1", Username: "a", Bot: true}}
	msg := toInbound(m, &discordgo.Channel{Type: discordgo.ChannelTypeGuildText, OwnerID: "x"})
	assert.Equal(t, domain.KindChannel, msg.Kind)
	assert.Empty(t, msg.ThreadOwnerID)
	assert.True(t, msg.Author.Bot)
	assert.Nil(t, msg.Mentions)
}

func TestStatus_NotStarted(t *testing.T) {
	c := newTestChannel(newFakeSession())
	assert.Equal(t, "discord", c.ID())
	st := c.Status()
	assert.Equal(t, "discord", st.ChannelID)
	assert.False(t, st.Connected)
	assert.False(t, st.Running)
	assert.Empty(t, c.BotID())
}

func TestStart_WithoutSession(t *testing.T) {
	c := newTestChannel(newFakeSession())
	assert.ErrorIs(t, c.Start(context.Background()), ErrNotConnected)
	assert.ErrorIs(t, c.SetPresence("hi"), ErrNotConnected)
}

func TestOnMessageCreate(t *testing.T) {
	f := newFakeSession()
	f.channels["dm1"] = &discordgo.Channel{ID: "dm1", Type: discordgo.ChannelTypeDM}
	c := newTestChannel(f)

	var got []domain.InboundMessage
	c.OnMessage(func(msg domain.InboundMessage) { got = append(got, msg) })

	create := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "m1", ChannelID: "dm1", Content: "hi", Author: &discordgo.User{ID: "u1", Username: "alice"},
	}}
	c.onMessageCreate(context.Background(), create)
	c.onMessageCreate(context.Background(), create)

	require.Len(t, got, 2)
	assert.Equal(t, domain.KindDirectMessage, got[0].Kind)
	assert.Equal(t, "alice", got[0].Author.DisplayName)
	assert.Equal(t, 1, f.lookups, "channel metadata is cached")
}

func TestOnMessageCreate_UnknownChannelIsUnsupported(t *testing.T) {
	c := newTestChannel(newFakeSession())
	var got domain.InboundMessage
	c.OnMessage(func(msg domain.InboundMessage) { got = msg })

	c.onMessageCreate(context.Background(), &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "m1", ChannelID: "gone", Author: &discordgo.User{ID: "u1"},
	}})
	assert.Equal(t, domain.KindUnsupported, got.Kind)
}

func TestFetchHistory_OldestFirst(t *testing.T) {
	f := newFakeSession()
	f.channels["th1"] = &discordgo.Channel{ID: "th1", Type: discordgo.ChannelTypeGuildPublicThread}
	for i := 5; i >= 1; i-- {
		f.history = append(f.history, &discordgo.Message{ID: fmt.Sprintf("h%d", i), Author: &discordgo.User{ID: "u"}})
	}
	c := newTestChannel(f)

	msgs, err := c.FetchHistory(context.Background(), "th1", 3, "h5")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"h2", "h3", "h4"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	assert.Equal(t, "th1", msgs[0].ChannelID)
	assert.Equal(t, domain.KindThread, msgs[0].Kind)
}

func TestFetchHistory_Pages(t *testing.T) {
	f := newFakeSession()
	f.channels["c1"] = &discordgo.Channel{ID: "c1", Type: discordgo.ChannelTypeDM}
	for i := 150; i >= 1; i-- {
		f.history = append(f.history, &discordgo.Message{ID: fmt.Sprintf("h%d", i)})
	}
	c := newTestChannel(f)

	msgs, err := c.FetchHistory(context.Background(), "c1", 120, "")
	require.NoError(t, err)
	require.Len(t, msgs, 120)
	assert.Equal(t, []int{100, 20}, f.pages)
	assert.Equal(t, "h31", msgs[0].ID)
	assert.Equal(t, "h150", msgs[119].ID)

	none, err := c.FetchHistory(context.Background(), "c1", 0, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFetchMessage(t *testing.T) {
	f := newFakeSession()
	f.channels["c1"] = &discordgo.Channel{ID: "c1", Type: discordgo.ChannelTypeGuildText}
	f.messages["m9"] = &discordgo.Message{ID: "m9", Content: "earlier", Author: &discordgo.User{ID: "u2", Username: "bob"}}
	c := newTestChannel(f)

	msg, err := c.FetchMessage(context.Background(), "c1", "m9")
	require.NoError(t, err)
	assert.Equal(t, "earlier", msg.Body)
	assert.Equal(t, "c1", msg.ChannelID)
	assert.Equal(t, domain.KindChannel, msg.Kind)

	_, err = c.FetchMessage(context.Background(), "c1", "missing")
	assert.Error(t, err)
}

func TestSendAndReply(t *testing.T) {
	f := newFakeSession()
	c := newTestChannel(f)

	id, err := c.Send(context.Background(), "c1", strings.Repeat("é", domain.MaxMessageLength+5))
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)

	id, err = c.Reply(context.Background(), "c1", "m0", "hello")
	require.NoError(t, err)
	assert.Equal(t, "m-2", id)

	require.Len(t, f.sent, 2)
	assert.Len(t, []rune(f.sent[0].Content), domain.MaxMessageLength)
	assert.Nil(t, f.sent[0].Reference)
	require.NotNil(t, f.sent[1].Reference)
	assert.Equal(t, "m0", f.sent[1].Reference.MessageID)
	require.NotNil(t, f.sent[1].Reference.FailIfNotExists)
	assert.False(t, *f.sent[1].Reference.FailIfNotExists)
}

func TestSend_Error(t *testing.T) {
	f := newFakeSession()
	f.sendErr = errors.New("HTTP 403 Forbidden")
	c := newTestChannel(f)

	_, err := c.Send(context.Background(), "c1", "hi")
	assert.ErrorContains(t, err, "403")
}

func TestEdit(t *testing.T) {
	f := newFakeSession()
	c := newTestChannel(f)
	require.NoError(t, c.Edit(context.Background(), "c1", "m1", "Hello!"))
	assert.Equal(t, []string{"m1:Hello!"}, f.edits)
}

func TestCreateThread(t *testing.T) {
	f := newFakeSession()
	c := newTestChannel(f)

	name := "Follow-up Discussion with " + strings.Repeat("x", 120)
	id, err := c.CreateThread(context.Background(), "c1", "m1", name, domain.ThreadArchiveMinutes)
	require.NoError(t, err)
	assert.Equal(t, "thread-1", id)

	require.Len(t, f.threads, 1)
	assert.Len(t, f.threads[0].Name, 100)
	assert.Equal(t, 60, f.threads[0].AutoArchiveDuration)
	assert.Equal(t, discordgo.ChannelTypeGuildPublicThread, f.threads[0].Type)

	ch, err := c.channels.get(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "c1", ch.ParentID)
	assert.Zero(t, f.lookups, "created threads are cached")
}

func TestSendEphemeral_DeletesAfterTTL(t *testing.T) {
	f := newFakeSession()
	c := newTestChannel(f)

	require.NoError(t, c.SendEphemeral(context.Background(), "c1", "m1", "Slow down", 20*time.Millisecond))
	require.Len(t, f.sent, 1)
	assert.Equal(t, discordgo.MessageFlagsSuppressNotifications, f.sent[0].Flags)
	assert.Equal(t, "m1", f.sent[0].Reference.MessageID)

	require.Eventually(t, func() bool {
		return len(f.Deleted()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"m-1"}, f.Deleted())
	assert.Zero(t, c.pending.len())
}

func TestStop_FlushesPendingNotices(t *testing.T) {
	f := newFakeSession()
	c := newTestChannel(f)

	require.NoError(t, c.SendEphemeral(context.Background(), "c1", "", "notice", time.Hour))
	assert.Nil(t, f.sent[0].Reference)
	assert.Equal(t, 1, c.pending.len())

	require.NoError(t, c.Stop(context.Background()))
	assert.Equal(t, []string{"m-1"}, f.Deleted())
	assert.Zero(t, c.pending.len())
}
