package server

import "github.com/ircserv/ircserv/hooks"

// JoinEvent fires after a user has joined a channel.
type JoinEvent struct {
	User    *Client
	Channel *Channel
}

// PartEvent fires after a user has left a channel, whatever the cause.
type PartEvent struct {
	User    *Client
	Channel *Channel
	Reason  string
}

// MessageEvent fires before a PRIVMSG is delivered. Setting Cancel
// suppresses the delivery. Exactly one of Channel and User is set.
type MessageEvent struct {
	From    *Client
	Channel *Channel
	User    *Client
	Text    string
	Cancel  bool
}

// ModeEvent fires after a channel flag or per-member mode changed.
// Target is empty for channel-wide flags.
type ModeEvent struct {
	Channel *Channel
	Mode    rune
	Target  string
	By      *Client // nil when set by the server
	Added   bool
}

// CommandEvent fires for every command received from a registered,
// authorized identity.
type CommandEvent struct {
	User    *Client
	Command string
	Args    []string
}

// Events holds the fixed set of observer registration points. All
// observers run synchronously on the connection's goroutine, after the
// corresponding state transition completes (before delivery for
// MessageEvent).
type Events struct {
	UserConnected    *hooks.Registry[*Client]
	UserDisconnected *hooks.Registry[*Client]
	UserJoined       *hooks.Registry[*JoinEvent]
	UserParted       *hooks.Registry[*PartEvent]
	UserSentMessage  *hooks.Registry[*MessageEvent]
	ChannelMode      *hooks.Registry[*ModeEvent]
	RawCommand       *hooks.Registry[*CommandEvent]
}

func newEvents() *Events {
	return &Events{
		UserConnected:    hooks.NewRegistry[*Client](),
		UserDisconnected: hooks.NewRegistry[*Client](),
		UserJoined:       hooks.NewRegistry[*JoinEvent](),
		UserParted:       hooks.NewRegistry[*PartEvent](),
		UserSentMessage:  hooks.NewRegistry[*MessageEvent](),
		ChannelMode:      hooks.NewRegistry[*ModeEvent](),
		RawCommand:       hooks.NewRegistry[*CommandEvent](),
	}
}
