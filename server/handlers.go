package server

import (
	"strings"

	"github.com/ircserv/ircserv/irc"
	"github.com/ircserv/ircserv/logging"
)

// dispatch processes one inbound line on the client's reader
// goroutine. It holds the server write lock for the whole command, so
// handlers never lock.
func (s *Server) dispatch(c *Client, line string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logf("Panic handling %q from %s: %v", line, c.LogPrefix(), r)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, args := irc.SplitLine(line)
	if cmd == "" {
		return
	}

	// PASS before registration stores the password for the USER
	// handshake.
	if cmd == "PASS" && c.Username == "" {
		if len(args) >= 1 {
			c.pass = irc.Trailing(args, 0)
		}
		return
	}

	if cmd == "PONG" {
		if len(args) < 1 {
			return
		}
		c.ponged = true
		// Liveness is not enforced; fall through like any other
		// command.
	}

	if cmd == "NICK" {
		if c.Nickname != "" {
			return
		}
		if len(args) == 0 {
			c.Send(":Serv 431 No nickname given")
			return
		}
		nick := strings.TrimSpace(args[0])
		if s.nickInUseLocked(nick) {
			c.Sendf(":Serv %03d %s %s :Nickname is already in use", irc.ERR_NICKNAMEINUSE, c.Nickname, nick)
			return
		}
		c.Nickname = nick
		c.Sendf(":%s NICK %s", c.Prefix(), c.Nickname)
	} else if cmd == "USER" {
		if c.Username != "" && c.Hostname != "" && c.Servername != "" && c.Realname != "" {
			return
		}
		if len(args) < 4 {
			c.Sendf(":Serv %03d USER :Not enough parameters", irc.ERR_NEEDMOREPARAMS)
			return
		}
		c.Username = args[0]
		c.Hostname = args[1]
		c.Servername = args[2]
		c.Realname = irc.Trailing(args, 3)

		if c.Nickname == "" {
			c.Nickname = c.Username
			c.Sendf(":%s NICK %s", c.Prefix(), c.Nickname)
		}

		c.Sendf(":Serv %03d %s : Start of MOTD", irc.RPL_WELCOME, c.Nickname)
		for _, motdLine := range strings.Split(s.config.MOTD, "\n") {
			c.Sendf(":Serv %03d %s : %s", irc.RPL_MOTD, c.Nickname, motdLine)
		}
		c.Sendf(":Serv %03d %s : End of MOTD", irc.RPL_ENDOFMOTD, c.Nickname)
		c.Sendf(":Serv MODE %s +w", c.Nickname)
		logging.Logf("%s connected", c.LogPrefix())

		if s.config.EnableAuthServ && c.pass != "" {
			s.registerOrVerify(c, c.pass, true)
			return
		}
		if !s.config.EnableAuthServ {
			c.Authorized = true
			s.userConnected(c)
		}
	}

	if s.config.EnableAuthServ {
		if !c.Authorized {
			s.authGate(c, cmd, args)
			return
		}
	} else {
		c.Authorized = true
	}

	if c.Nickname == "" || c.Username == "" || c.Realname == "" {
		return
	}

	s.events.RawCommand.Run(&CommandEvent{User: c, Command: cmd, Args: args})
	metricCommandsTotal.WithLabelValues(cmd).Inc()

	if handler, ok := s.handlers[cmd]; ok {
		handler(c, args)
	}
	// Unknown commands are ignored.
}

// userConnected runs the connect observers and replays the identity's
// auto-join channels.
func (s *Server) userConnected(c *Client) {
	s.events.UserConnected.Run(c)

	if p, ok := s.profiles[c.Nickname]; ok {
		s.joinChannels(c, p.AutoJoinChannels)
	}
	if s.config.AutoJoinChannel != "" {
		ch := s.findChannelLocked(s.config.AutoJoinChannel)
		if ch != nil && !ch.HasMember(c) {
			s.joinChannels(c, []string{ch.Name})
		}
	}
}

func (s *Server) handleJoinCmd(c *Client, args []string) {
	if len(args) < 1 {
		c.Sendf(":Serv %03d JOIN :Not enough parameters", irc.ERR_NEEDMOREPARAMS)
		return
	}
	s.joinChannels(c, strings.Split(args[0], ","))
	s.saveChannelsLocked()
}

func (s *Server) joinChannels(c *Client, names []string) {
	for _, name := range names {
		ch := s.findChannelLocked(name)
		if ch != nil {
			if (ch.HasFlag('p') || ch.HasFlag('i')) && !ch.HasMode('i', c.Nickname) {
				c.Sendf(":Serv %03d %s : You're not invited to %s", irc.ERR_INVITEONLYCHAN, c.Nickname, name)
				return
			}
			if ch.HasMode('b', c.Nickname) {
				c.Sendf(":Serv %03d %s : You're banned from %s", irc.ERR_BANNEDFROMCHAN, c.Nickname, name)
				return
			}
			if ch.HasMember(c) {
				return
			}
			ch.Join(c)

			p := s.profileLocked(c.Nickname)
			if !containsString(p.AutoJoinChannels, name) {
				p.AutoJoinChannels = append(p.AutoJoinChannels, name)
			}
			s.saveProfilesLocked()
			logging.Logf("%s joined %s", c.LogPrefix(), name)
		} else {
			ch = newChannel(s, name)
			if !ch.ValidName() {
				c.Sendf(":Serv %03d JOIN :Bad parameter", irc.ERR_NEEDMOREPARAMS)
				return
			}
			ch.Join(c)
			ch.AddMode('o', c.Nickname, nil)
			s.channels = append(s.channels, ch)
			logging.Logf("%s created and joined %s", c.LogPrefix(), name)
		}
	}
}

// trailing extracts the message body, honoring the extra tokens legacy
// clients put before it.
func (s *Server) trailing(c *Client, args []string) string {
	if c.Legacy {
		return irc.Trailing(args, 3)
	}
	return irc.Trailing(args, 1)
}

func (s *Server) handlePrivmsg(c *Client, args []string) {
	if len(args) < 2 {
		c.Sendf(":Serv %03d PRIVMSG :Not enough parameters", irc.ERR_NEEDMOREPARAMS)
		return
	}
	target := args[0]
	original := s.trailing(c, args)
	text := irc.RewriteColors(original)

	if irc.IsChannelName(target) {
		ch := s.findChannelLocked(target)
		if ch == nil {
			c.Sendf(":Serv %03d PRIVMSG %s :No such channel", irc.ERR_NOSUCHCHANNEL, target)
			return
		}
		if !ch.HasMember(c) {
			c.Sendf(":Serv %03d %s %s :You're not on that channel", irc.ERR_NOTONCHANNEL, c.Nickname, target)
			return
		}
		if (ch.HasFlag('m') && !ch.HasMode('o', c.Nickname) && !ch.HasMode('v', c.Nickname)) || ch.HasMode('q', c.Nickname) {
			c.ServerNotice(target, "You don't have permission to send messages here")
			return
		}
		ev := &MessageEvent{From: c, Channel: ch, Text: text}
		s.events.UserSentMessage.Run(ev)
		if ev.Cancel {
			return
		}
		if text == original {
			ch.BroadcastMessage(c, text)
		} else {
			// Color rewriting changed the text, so the sender gets
			// the rewritten copy too.
			ch.SendMessage(c, text)
		}
		metricMessagesTotal.Inc()
		if s.config.LogChannelMessages {
			logging.Logf("%s -> %s :: %s", c.LogPrefix(), target, original)
		}
		return
	}

	user := s.findUserLocked(target)
	if user == nil {
		c.Sendf(":Serv %03d PRIVMSG %s :No such channel", irc.ERR_NOSUCHCHANNEL, target)
		return
	}
	ev := &MessageEvent{From: c, User: user, Text: text}
	s.events.UserSentMessage.Run(ev)
	if ev.Cancel {
		return
	}
	user.SendMessageFrom(c, "PRIVMSG", target, text)
	if text != original {
		c.Sendf(":%s PRIVMSG %s :%s", c.Prefix(), target, text)
	}
	metricMessagesTotal.Inc()
	if s.config.LogDirectMessages {
		logging.Logf("%s -> %s :: %s", c.LogPrefix(), target, original)
	}
}

func (s *Server) handleNotice(c *Client, args []string) {
	if len(args) < 2 {
		c.Sendf(":Serv %03d NOTICE :Not enough parameters", irc.ERR_NEEDMOREPARAMS)
		return
	}
	target := args[0]
	text := s.trailing(c, args)

	if irc.IsChannelName(target) {
		ch := s.findChannelLocked(target)
		if ch == nil {
			c.Sendf(":Serv %03d NOTICE %s :No such channel", irc.ERR_NOSUCHCHANNEL, target)
			return
		}
		if !ch.HasMember(c) {
			c.Sendf(":Serv %03d %s %s :You're not on that channel", irc.ERR_NOTONCHANNEL, c.Nickname, target)
			return
		}
		if (ch.HasFlag('m') && !ch.HasMode('o', c.Nickname) && !ch.HasMode('v', c.Nickname)) || ch.HasMode('q', c.Nickname) {
			c.ServerNotice(target, "You don't have permission to send messages here")
			return
		}
		ch.BroadcastNotice(c, text)
		metricMessagesTotal.Inc()
		if s.config.LogChannelMessages {
			logging.Logf("[!] %s -> %s :: %s", c.LogPrefix(), target, text)
		}
		return
	}

	user := s.findUserLocked(target)
	if user == nil {
		c.Sendf(":Serv %03d NOTICE %s :No such channel", irc.ERR_NOSUCHCHANNEL, target)
		return
	}
	user.SendMessageFrom(c, "NOTICE", target, text)
	metricMessagesTotal.Inc()
	if s.config.LogDirectMessages {
		logging.Logf("[!] %s -> %s :: %s", c.LogPrefix(), target, text)
	}
}

func (s *Server) handleTopic(c *Client, args []string) {
	if len(args) < 2 {
		c.Sendf(":Serv %03d TOPIC :Not enough parameters", irc.ERR_NEEDMOREPARAMS)
		return
	}
	target := args[0]
	topic := s.trailing(c, args)

	if !irc.IsChannelName(target) {
		c.Sendf(":Serv %03d TOPIC %s :No such channel", irc.ERR_NOSUCHCHANNEL, target)
		return
	}
	ch := s.findChannelLocked(target)
	if ch == nil {
		c.Sendf(":Serv %03d TOPIC %s :No such channel", irc.ERR_NOSUCHCHANNEL, target)
		return
	}
	if !ch.HasMode('o', c.Nickname) {
		c.Sendf(":Serv %03d %s %s :You're not channel operator", irc.ERR_CHANOPRIVSNEEDED, c.Nickname, target)
		return
	}
	ch.SetTopic(topic)
	logging.Logf("%s changes topic for %s :: %s", c.LogPrefix(), target, topic)
}

func (s *Server) handleMode(c *Client, args []string) {
	if len(args) < 1 {
		c.Sendf(":Serv %03d MODE :Not enough parameters", irc.ERR_NEEDMOREPARAMS)
		return
	}
	target := args[0]
	ch := s.findChannelLocked(target)
	if ch == nil {
		c.Sendf(":Serv %03d MODE %s :No such channel", irc.ERR_NOSUCHCHANNEL, target)
		return
	}
	if !ch.HasMember(c) {
		c.Sendf(":Serv %03d %s %s :You're not on that channel", irc.ERR_NOTONCHANNEL, c.Nickname, target)
		return
	}
	if len(args) < 2 {
		flags := make([]string, 0, len(ch.Flags))
		for _, f := range ch.Flags {
			flags = append(flags, string(f))
		}
		c.Sendf(":Serv %03d %s %s %s", irc.RPL_CHANNELMODEIS, c.Nickname, target, strings.Join(flags, " "))
		return
	}
	if !ch.HasMode('o', c.Nickname) {
		c.Sendf(":Serv %03d %s %s :You're not channel operator", irc.ERR_CHANOPRIVSNEEDED, c.Nickname, target)
		return
	}

	adding := args[1][0] == '+'
	modes := args[1][1:]
	if len(args) >= 3 {
		nick := args[2]
		for _, mode := range modes {
			if adding {
				ch.AddMode(mode, nick, c)
			} else {
				ch.RemoveMode(mode, nick, c)
			}
		}
		if adding && strings.ContainsRune(modes, 'b') {
			banned := s.findUserLocked(nick)
			if banned != nil && ch.HasMember(banned) {
				ch.Part(banned, "Banned")
				banned.Sendf(":Serv NOTICE %s :You're banned from %s", banned.Nickname, target)
				ch.RemoveMode('i', nick, c)
			}
		}
	} else {
		for _, mode := range modes {
			if adding {
				ch.AddFlag(mode, c)
			} else {
				ch.RemoveFlag(mode, c)
			}
		}
	}
	s.saveChannelsLocked()
}

func (s *Server) handlePart(c *Client, args []string) {
	if len(args) < 1 {
		c.Sendf(":Serv %03d PART :Not enough parameters", irc.ERR_NEEDMOREPARAMS)
		return
	}
	target := args[0]
	ch := s.findChannelLocked(target)
	if ch == nil {
		c.Sendf(":Serv %03d PART %s :No such channel", irc.ERR_NOSUCHCHANNEL, target)
		return
	}
	if !ch.HasMember(c) {
		c.Sendf(":Serv %03d %s %s :You're not on that channel", irc.ERR_NOTONCHANNEL, c.Nickname, target)
		return
	}
	ch.Part(c, "Parting")
	logging.Logf("%s parts channel %s", c.LogPrefix(), target)

	if p, ok := s.profiles[c.Nickname]; ok {
		p.AutoJoinChannels = removeString(p.AutoJoinChannels, target)
		s.saveProfilesLocked()
	}
	s.saveChannelsLocked()
}

func (s *Server) handleKick(c *Client, args []string) {
	if len(args) < 2 {
		c.Sendf(":Serv %03d KICK :Not enough parameters", irc.ERR_NEEDMOREPARAMS)
		return
	}
	target := args[0]
	ch := s.findChannelLocked(target)
	if ch == nil {
		c.Sendf(":Serv %03d KICK %s :No such channel", irc.ERR_NOSUCHCHANNEL, target)
		return
	}
	victim := s.findUserLocked(args[1])
	reason := "Not set"
	if len(args) > 2 {
		reason = irc.Trailing(args, 2)
	}

	if !ch.HasMember(c) {
		c.Sendf(":Serv %03d %s %s :You're not on that channel", irc.ERR_NOTONCHANNEL, c.Nickname, target)
		return
	}
	if victim == nil || !ch.HasMember(victim) {
		c.Sendf(":Serv %03d %s %s :No such user", irc.ERR_NOTONCHANNEL, c.Nickname, target)
		return
	}
	if !ch.HasMode('o', c.Nickname) {
		c.Sendf(":Serv %03d %s %s :You're not channel operator", irc.ERR_CHANOPRIVSNEEDED, c.Nickname, target)
		return
	}

	ch.Part(victim, "Kicked by "+c.Prefix()+": "+reason)
	victim.Sendf(":Serv NOTICE %s :You were kicked from %s. Reason: %s", victim.Nickname, target, reason)
	logging.Logf("%s kicked %s from %s", c.LogPrefix(), victim.LogPrefix(), target)
	s.saveChannelsLocked()
}

func (s *Server) handlePing(c *Client, args []string) {
	if len(args) == 1 {
		c.Sendf("PONG %s", args[0])
	} else {
		c.Send("PONG")
	}
}

func (s *Server) handleQuit(c *Client, args []string) {
	c.closeConn()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
