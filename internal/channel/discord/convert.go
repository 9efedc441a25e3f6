package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/soyeahso/gork/internal/domain"
)

// kindOf maps a Discord channel type onto the channel kinds the router
// understands. Anything else is unsupported.
func kindOf(ch *discordgo.Channel) domain.ChannelKind {
	if ch == nil {
		return domain.KindUnsupported
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText:
		return domain.KindChannel
	case discordgo.ChannelTypeDM:
		return domain.KindDirectMessage
	case discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread:
		return domain.KindThread
	default:
		return domain.KindUnsupported
	}
}

func displayName(u *discordgo.User, member *discordgo.Member) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// toInbound converts a gateway or REST message. ch describes the channel
// the message was posted in and may be nil when it could not be resolved.
func toInbound(m *discordgo.Message, ch *discordgo.Channel) domain.InboundMessage {
	msg := domain.InboundMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Body:      m.Content,
		Kind:      kindOf(ch),
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		msg.Author = domain.Author{
			ID:          m.Author.ID,
			DisplayName: displayName(m.Author, m.Member),
			Bot:         m.Author.Bot,
		}
	}
	if ch != nil && msg.Kind == domain.KindThread {
		msg.ParentChannelID = ch.ParentID
		msg.ThreadOwnerID = ch.OwnerID
	}
	if m.MessageReference != nil {
		msg.ReplyToID = m.MessageReference.MessageID
	}

	if len(m.Mentions) > 0 {
		msg.Mentions = make(map[string]string, len(m.Mentions))
		for _, u := range m.Mentions {
			if u == nil {
				continue
			}
			msg.Mentions[u.ID] = displayName(u, nil)
		}
	}

	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, domain.Attachment{
			ID:          a.ID,
			URL:         a.URL,
			ContentType: a.ContentType,
			Filename:    a.Filename,
			Size:        int64(a.Size),
		})
	}

	for _, e := range m.Embeds {
		if e == nil {
			continue
		}
		embed := domain.Embed{
			Title:       e.Title,
			Description: e.Description,
			URL:         e.URL,
		}
		if e.Provider != nil {
			embed.Provider = e.Provider.Name
		}
		if e.Author != nil {
			embed.Author = e.Author.Name
		}
		msg.Embeds = append(msg.Embeds, embed)
	}
	return msg
}
