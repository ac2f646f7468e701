// Package irc implements the wire-level pieces of the protocol
// dialect: line splitting, numeric reply codes, hostmask formatting
// and the inline color markup.
package irc

import (
	"fmt"
	"strings"
)

// SplitLine splits a raw input line into its command token and
// argument vector. Arguments are split on single spaces with empty
// tokens dropped; the command is the first token verbatim.
func SplitLine(line string) (cmd string, args []string) {
	fields := strings.Split(line, " ")
	cmd = fields[0]
	for _, f := range fields[1:] {
		if f != "" {
			args = append(args, f)
		}
	}
	return cmd, args
}

// Trailing joins args[from:] back into a single trailing parameter,
// stripping the leading colon when present. Returns "" when from is
// out of range.
func Trailing(args []string, from int) string {
	if from >= len(args) {
		return ""
	}
	return strings.TrimPrefix(strings.Join(args[from:], " "), ":")
}

// ParseHostmask parses a nick!user@host prefix. Missing portions are
// returned empty.
func ParseHostmask(hostmask string) (nick, user, host string) {
	nickParts := strings.SplitN(hostmask, "!", 2)
	if len(nickParts) < 2 {
		nick = hostmask
		return
	}
	nick = nickParts[0]

	userHostParts := strings.SplitN(nickParts[1], "@", 2)
	if len(userHostParts) < 2 {
		user = nickParts[1]
		return
	}
	user = userHostParts[0]
	host = userHostParts[1]
	return
}

// FormatHostmask formats a nick!user@host prefix.
func FormatHostmask(nick, user, host string) string {
	return fmt.Sprintf("%s!%s@%s", nick, user, host)
}

// IsChannelName reports whether target names a channel rather than a
// user.
func IsChannelName(target string) bool {
	return strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&")
}

// ValidChannelName checks the channel naming rules: 2-20 characters,
// leading '#' or '&', and no space, comma or bell character.
func ValidChannelName(name string) bool {
	if len(name) < 2 || len(name) > 20 {
		return false
	}
	if name[0] != '#' && name[0] != '&' {
		return false
	}
	return !strings.ContainsAny(name, " ,\x07")
}
