package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLine(t *testing.T) {
	cmd, args := SplitLine("PRIVMSG #test :hello world")
	assert.Equal(t, "PRIVMSG", cmd)
	assert.Equal(t, []string{"#test", ":hello", "world"}, args)

	cmd, args = SplitLine("JOIN  #a,#b")
	assert.Equal(t, "JOIN", cmd)
	assert.Equal(t, []string{"#a,#b"}, args, "empty tokens are dropped from the arguments")

	cmd, args = SplitLine("QUIT")
	assert.Equal(t, "QUIT", cmd)
	assert.Empty(t, args)
}

func TestTrailing(t *testing.T) {
	_, args := SplitLine("USER joe host serv :Joe A Smith")
	assert.Equal(t, "Joe A Smith", Trailing(args, 3))
	assert.Equal(t, "", Trailing(args, 10))

	_, args = SplitLine("TOPIC #test no colon here")
	assert.Equal(t, "no colon here", Trailing(args, 1))
}

func TestParseHostmask(t *testing.T) {
	nick, user, host := ParseHostmask("alice!al@example.org")
	assert.Equal(t, "alice", nick)
	assert.Equal(t, "al", user)
	assert.Equal(t, "example.org", host)

	nick, user, host = ParseHostmask("alice")
	assert.Equal(t, "alice", nick)
	assert.Empty(t, user)
	assert.Empty(t, host)

	assert.Equal(t, "alice!al@h", FormatHostmask("alice", "al", "h"))
}

func TestValidChannelName(t *testing.T) {
	cases := map[string]bool{
		"#test":                 true,
		"&local":                true,
		"#a":                    true,
		"#":                     false,
		"test":                  false,
		"#with space":           false,
		"#with,comma":           false,
		"#with\x07bell":         false,
		"#aaaaaaaaaaaaaaaaaaaa": false, // 21 chars
		"#aaaaaaaaaaaaaaaaaaa":  true,  // 20 chars
	}
	for name, want := range cases {
		assert.Equal(t, want, ValidChannelName(name), "name %q", name)
	}
}
