package server

import (
	"strings"

	"github.com/ircserv/ircserv/irc"
	"github.com/ircserv/ircserv/logging"
)

// AuthServ is the pseudo-service gating the command set. Until an
// identity is authorized it may only use PASS and talk to AuthServ;
// everything else is rejected with a fixed notice.

// registerOrVerify runs the shared register-or-authenticate logic for
// PASS-supplied passwords. closeOnBad closes the connection when the
// password fails the length rules, which the USER handshake path does
// and the post-registration PASS path does not.
func (s *Server) registerOrVerify(c *Client, pwd string, closeOnBad bool) {
	if stored, ok := s.passwords[c.Nickname]; ok {
		if stored != pwd {
			c.Sendf(":AuthServ 300 %s :Passwords didn't match!", c.Nickname)
		} else {
			c.Sendf(":AuthServ 300 %s :You have authorized successfully!", c.Nickname)
			c.Authorized = true
			s.userConnected(c)
		}
		return
	}
	if len(pwd) < 3 || len(pwd) > 20 {
		c.Sendf(":AuthServ 300 %s :Your password is too short or long! Please choose another.", c.Nickname)
		if closeOnBad {
			c.closeConn()
		}
		return
	}
	s.passwords[c.Nickname] = pwd
	s.savePasswordsLocked()
	c.Sendf(":AuthServ 300 %s :Nickname successfully registered!", c.Nickname)
	c.Authorized = true
	s.userConnected(c)
}

// authGate handles every command from an unauthorized identity.
func (s *Server) authGate(c *Client, cmd string, args []string) {
	switch cmd {
	case "PASS":
		if len(args) < 1 {
			c.Sendf(":Serv %03d PASS :Not enough parameters", irc.ERR_NEEDMOREPARAMS)
			return
		}
		s.registerOrVerify(c, strings.Join(args, " "), false)
		return
	case "PRIVMSG":
		if len(args) < 2 {
			c.Sendf(":Serv %03d PRIVMSG :Not enough parameters", irc.ERR_NEEDMOREPARAMS)
			return
		}
		if args[0] == "AuthServ" {
			s.authServCommand(c, strings.Fields(s.trailing(c, args)))
			return
		}
	}
	c.Sendf(":AuthServ NOTICE %s :You are not authorized! Type \"/MSG AuthServ help\" to get help for authorization.", c.Nickname)
}

func (s *Server) authServCommand(c *Client, words []string) {
	switch {
	case len(words) == 1 && words[0] == "help":
		c.Sendf(":AuthServ NOTICE %s :AuthServ allows you protect your nickname", c.Nickname)
		c.Sendf(":AuthServ NOTICE %s :And prevent others from using it.", c.Nickname)
		c.Sendf(":AuthServ NOTICE %s :/MSG AuthServ register <password> - protect your nickname with a password", c.Nickname)
		c.Sendf(":AuthServ NOTICE %s :/MSG AuthServ auth <password> - authorize your connection", c.Nickname)
		c.Sendf(":AuthServ NOTICE %s :/PASS <password> - register if your nickname isn't protected, otherwise authorizes connection", c.Nickname)

	case len(words) == 2 && words[0] == "register":
		pwd := words[1]
		if _, ok := s.passwords[c.Nickname]; ok {
			c.Sendf(":AuthServ NOTICE %s :Your nickname is already registered! If you forgot your password,", c.Nickname)
			c.Sendf(":AuthServ NOTICE %s :please reconnect with another nickname OR contact admins!", c.Nickname)
			return
		}
		if len(pwd) < 3 || len(pwd) > 20 {
			c.Sendf(":AuthServ NOTICE %s :Your password is too short or long! Please choose another.", c.Nickname)
			return
		}
		s.passwords[c.Nickname] = pwd
		s.savePasswordsLocked()
		c.Sendf(":AuthServ NOTICE %s :Nickname successfully registered!", c.Nickname)
		c.Authorized = true
		logging.Logf("%s registered their nickname", c.LogPrefix())
		s.userConnected(c)

	case len(words) == 2 && words[0] == "auth":
		pwd := words[1]
		stored, ok := s.passwords[c.Nickname]
		if !ok {
			c.Sendf(":AuthServ NOTICE %s :Your nickname is not registered! Register with \"/MSG AuthServ register <password>\"", c.Nickname)
			return
		}
		if stored != pwd {
			c.Sendf(":AuthServ NOTICE %s :Passwords didn't match!", c.Nickname)
			return
		}
		c.Sendf(":AuthServ NOTICE %s :You have authorized successfully!", c.Nickname)
		c.Authorized = true
		logging.Logf("%s authorized", c.LogPrefix())
		s.userConnected(c)
	}
}
