package server

import (
	"fmt"
	"strings"

	"github.com/ircserv/ircserv/irc"
	"github.com/ircserv/ircserv/logging"
	"github.com/ircserv/ircserv/store"
)

// Channel is a named group. Flags are channel-wide; Modes are keyed by
// nickname and deliberately survive a part, so bans and ops persist
// across rejoins. Members is the live joined set and is never
// persisted.
//
// All methods assume the caller holds the server lock.
type Channel struct {
	Name  string
	Topic string

	// Flags holds the channel-wide flag characters in the order they
	// were first set.
	Flags []rune

	// Modes maps nicknames to their per-member mode characters.
	Modes map[string][]rune

	// Members is the live joined set.
	Members []*Client

	srv *Server
}

func newChannel(s *Server, name string) *Channel {
	return &Channel{
		Name:  name,
		Modes: make(map[string][]rune),
		srv:   s,
	}
}

func channelFromRecord(s *Server, rec store.ChannelRecord) *Channel {
	ch := newChannel(s, rec.Name)
	ch.Topic = rec.Topic
	ch.Flags = []rune(rec.Flags)
	for nick, modes := range rec.Modes {
		ch.Modes[nick] = []rune(modes)
	}
	return ch
}

func (ch *Channel) record() store.ChannelRecord {
	rec := store.ChannelRecord{
		Name:  ch.Name,
		Topic: ch.Topic,
		Flags: string(ch.Flags),
		Modes: make(map[string]string, len(ch.Modes)),
	}
	for nick, modes := range ch.Modes {
		rec.Modes[nick] = string(modes)
	}
	return rec
}

// ValidName checks the channel naming rules.
func (ch *Channel) ValidName() bool {
	return irc.ValidChannelName(ch.Name)
}

// HasMember reports whether the user is currently joined.
func (ch *Channel) HasMember(c *Client) bool {
	for _, u := range ch.Members {
		if u == c {
			return true
		}
	}
	return false
}

// HasFlag reports whether a channel-wide flag is set.
func (ch *Channel) HasFlag(flag rune) bool {
	for _, f := range ch.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// HasMode reports whether the nickname holds a per-member mode.
func (ch *Channel) HasMode(flag rune, nick string) bool {
	for _, m := range ch.Modes[nick] {
		if m == flag {
			return true
		}
	}
	return false
}

func setterPrefix(by *Client) string {
	if by == nil {
		return "Serv"
	}
	return by.Prefix()
}

func setterLogPrefix(by *Client) string {
	if by == nil {
		return "Serv"
	}
	return by.LogPrefix()
}

// AddFlag sets a channel-wide flag and announces it.
func (ch *Channel) AddFlag(flag rune, by *Client) {
	if !ch.HasFlag(flag) {
		ch.Flags = append(ch.Flags, flag)
	}
	ch.Send(fmt.Sprintf(":%s MODE %s +%c", setterPrefix(by), ch.Name, flag))
	ch.srv.events.ChannelMode.Run(&ModeEvent{Channel: ch, Mode: flag, By: by, Added: true})
	logging.Logf("%s sets +%c on %s", setterLogPrefix(by), flag, ch.Name)
}

// RemoveFlag clears a channel-wide flag and announces it.
func (ch *Channel) RemoveFlag(flag rune, by *Client) {
	for i, f := range ch.Flags {
		if f == flag {
			ch.Flags = append(ch.Flags[:i], ch.Flags[i+1:]...)
			break
		}
	}
	ch.Send(fmt.Sprintf(":%s MODE %s -%c", setterPrefix(by), ch.Name, flag))
	ch.srv.events.ChannelMode.Run(&ModeEvent{Channel: ch, Mode: flag, By: by, Added: false})
	logging.Logf("%s sets -%c on %s", setterLogPrefix(by), flag, ch.Name)
}

// AddMode grants a per-member mode to a nickname and announces it.
func (ch *Channel) AddMode(flag rune, nick string, by *Client) {
	if !ch.HasMode(flag, nick) {
		ch.Modes[nick] = append(ch.Modes[nick], flag)
	}
	ch.Send(fmt.Sprintf(":%s MODE %s +%c %s", setterPrefix(by), ch.Name, flag, nick))
	ch.srv.events.ChannelMode.Run(&ModeEvent{Channel: ch, Mode: flag, Target: nick, By: by, Added: true})
	logging.Logf("%s sets +%c on %s, %s", setterLogPrefix(by), flag, ch.Name, nick)
}

// RemoveMode revokes a per-member mode from a nickname and announces
// it.
func (ch *Channel) RemoveMode(flag rune, nick string, by *Client) {
	modes := ch.Modes[nick]
	for i, m := range modes {
		if m == flag {
			ch.Modes[nick] = append(modes[:i], modes[i+1:]...)
			break
		}
	}
	ch.Send(fmt.Sprintf(":%s MODE %s -%c %s", setterPrefix(by), ch.Name, flag, nick))
	ch.srv.events.ChannelMode.Run(&ModeEvent{Channel: ch, Mode: flag, Target: nick, By: by, Added: false})
	logging.Logf("%s sets -%c on %s, %s", setterLogPrefix(by), flag, ch.Name, nick)
}

// Join adds the user, announces the join to the whole channel and
// replays names, topic, channel flags and the joiner's own modes.
func (ch *Channel) Join(user *Client) {
	ch.Members = append(ch.Members, user)

	joinName := user.Username
	if joinName == "" {
		joinName = user.Nickname
	}
	ch.Send(fmt.Sprintf(":%s JOIN %s %s :%s", user.Prefix(), ch.Name, joinName, user.Realname))

	symbol := "="
	if ch.HasMode('o', user.Nickname) {
		symbol = "@"
	} else if ch.HasMode('v', user.Nickname) {
		symbol = "+"
	}
	names := make([]string, 0, len(ch.Members))
	for _, u := range ch.Members {
		prefix := ""
		if ch.HasMode('o', u.Nickname) {
			prefix = "@"
		} else if ch.HasMode('v', u.Nickname) {
			prefix = "+"
		}
		names = append(names, prefix+u.Nickname)
	}
	user.Sendf(":Serv %03d %s %s %s %s", irc.RPL_NAMREPLY, user.Nickname, symbol, ch.Name, strings.Join(names, " "))
	user.Sendf(":Serv %03d %s %s :End of /NAMES list.", irc.RPL_ENDOFNAMES, user.Nickname, ch.Name)

	if ch.Topic == "" {
		user.Sendf(":Serv %03d %s %s :No topic is set.", irc.RPL_NOTOPIC, user.Nickname, ch.Name)
	} else {
		user.Sendf(":Serv %03d %s %s :%s", irc.RPL_TOPIC, user.Nickname, ch.Name, ch.Topic)
	}

	ch.srv.events.UserJoined.Run(&JoinEvent{User: user, Channel: ch})

	for _, flag := range ch.Flags {
		ch.Send(fmt.Sprintf(":Serv MODE %s +%c", ch.Name, flag))
	}
	for _, mode := range ch.Modes[user.Nickname] {
		ch.Send(fmt.Sprintf(":Serv MODE %s +%c %s", ch.Name, mode, user.Nickname))
	}
}

// Part announces the departure to the whole channel (the departing
// user included) and removes the user from the member set. The
// per-member mode map is left untouched.
func (ch *Channel) Part(user *Client, reason string) {
	line := fmt.Sprintf(":%s PART %s", user.Prefix(), ch.Name)
	if reason != "" {
		line += " :" + reason
	}
	ch.Send(line)

	for i, u := range ch.Members {
		if u == user {
			ch.Members = append(ch.Members[:i], ch.Members[i+1:]...)
			break
		}
	}
	ch.srv.events.UserParted.Run(&PartEvent{User: user, Channel: ch, Reason: reason})
}

// SetTopic replaces the topic and announces it to the channel, with
// each recipient addressed by their own nickname.
func (ch *Channel) SetTopic(topic string) {
	ch.Topic = topic
	if topic == "" {
		ch.Send(fmt.Sprintf(":Serv %03d %s %s :No topic is set.", irc.RPL_NOTOPIC, nicknameToken, ch.Name))
	} else {
		ch.Send(fmt.Sprintf(":Serv %03d %s %s :%s", irc.RPL_TOPIC, nicknameToken, ch.Name, topic))
	}
}

// Send delivers a line to every authorized member, substituting the
// nickname placeholder per recipient.
func (ch *Channel) Send(line string) {
	for _, u := range ch.Members {
		if u.Authorized {
			u.Send(strings.ReplaceAll(line, nicknameToken, u.Nickname))
		}
	}
}

// Broadcast delivers a line to every authorized, addressable member
// except the named nickname and the line's own originator (matched by
// full prefix).
func (ch *Channel) Broadcast(line, except string) {
	for _, u := range ch.Members {
		if u.Nickname == "" || !u.Authorized || u.Nickname == except {
			continue
		}
		if strings.HasPrefix(line, ":"+u.Prefix()+" ") {
			continue
		}
		u.Send(strings.ReplaceAll(line, nicknameToken, u.Nickname))
	}
}

// BroadcastMessage relays a PRIVMSG to every member except the sender.
func (ch *Channel) BroadcastMessage(from *Client, text string) {
	ch.relay(from, "PRIVMSG", text, false)
}

// SendMessage relays a PRIVMSG to every member, the sender included.
// Used when the delivered text differs from what the sender typed.
func (ch *Channel) SendMessage(from *Client, text string) {
	ch.relay(from, "PRIVMSG", text, true)
}

// BroadcastNotice relays a NOTICE to every member except the sender.
func (ch *Channel) BroadcastNotice(from *Client, text string) {
	ch.relay(from, "NOTICE", text, false)
}

func (ch *Channel) relay(from *Client, verb, text string, includeSender bool) {
	for _, u := range ch.Members {
		if u.Nickname == "" || !u.Authorized {
			continue
		}
		if !includeSender && from.Prefix() == u.Prefix() {
			continue
		}
		u.SendMessageFrom(from, verb, ch.Name, text)
	}
}
