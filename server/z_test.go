package server

import (
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/ircserv/ircserv/config"
	"github.com/ircserv/ircserv/store"
)

type testConn struct {
	t    *testing.T
	conn net.Conn
	tp   *textproto.Conn
}

func dialTest(t *testing.T, addr string) *testConn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testConn{t: t, conn: conn, tp: textproto.NewConn(conn)}
}

func (c *testConn) send(line string) {
	c.t.Helper()
	require.NoError(c.t, c.tp.PrintfLine("%s", line))
}

// expect reads lines until one contains substr or the timeout passes.
func (c *testConn) expect(substr string, timeout time.Duration) string {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		c.conn.SetReadDeadline(deadline)
		line, err := c.tp.ReadLine()
		if err != nil {
			break
		}
		if strings.Contains(line, substr) {
			return line
		}
	}
	c.t.Fatalf("did not receive a line containing %q within %s", substr, timeout)
	return ""
}

func startIntegrationServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	cfg.Listen = "127.0.0.1:0"
	cfg.LogToFile = false
	s, err := New(cfg, store.New(afero.NewMemMapFs(), "."))
	require.NoError(t, err)
	s.flushEvery = 10 * time.Millisecond
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Stop() })
	return s
}

func TestServerIntegration(t *testing.T) {
	cfg := config.Default()
	cfg.EnableAuthServ = false
	s := startIntegrationServer(t, cfg)
	addr := s.Addr().String()

	alice := dialTest(t, addr)
	alice.send("NICK alice")
	alice.send("USER alice host serv :Alice A")
	alice.expect("001 alice : Start of MOTD", time.Second)
	alice.expect("002 alice : End of MOTD", time.Second)

	imposter := dialTest(t, addr)
	imposter.send("NICK alice")
	imposter.expect("433", time.Second)
	imposter.send("NICK bob")
	imposter.send("USER bob host serv :Bob B")
	imposter.expect("002 bob : End of MOTD", time.Second)
	bob := imposter

	alice.send("JOIN #lobby")
	alice.expect("JOIN #lobby", time.Second)
	bob.send("JOIN #lobby")
	bob.expect("JOIN #lobby", time.Second)
	alice.expect("JOIN #lobby", time.Second)

	bob.send("PRIVMSG #lobby :hi")
	line := alice.expect("PRIVMSG #lobby :hi", time.Second)
	require.True(t, strings.HasPrefix(line, ":bob!bob@"), "message carries the sender prefix: %s", line)

	// Direct message.
	alice.send("PRIVMSG bob :psst")
	bob.expect("PRIVMSG bob :psst", time.Second)

	// alice created #lobby, so she can kick.
	alice.send("KICK #lobby bob :testing")
	bob.expect("You were kicked from #lobby. Reason: testing", time.Second)

	alice.send("PING abc")
	alice.expect("PONG abc", time.Second)

	alice.send("QUIT")
	bob.send("JOIN #lobby")
	bob.expect("JOIN #lobby", time.Second)
}

func TestServerIntegrationAuthGate(t *testing.T) {
	cfg := config.Default()
	s := startIntegrationServer(t, cfg)
	addr := s.Addr().String()

	c := dialTest(t, addr)
	c.send("NICK alice")
	c.send("USER alice host serv :Alice A")
	c.expect("002 alice : End of MOTD", time.Second)

	c.send("JOIN #lobby")
	c.expect("You are not authorized!", time.Second)

	c.send("PRIVMSG AuthServ register hunter2")
	c.expect("Nickname successfully registered!", time.Second)

	c.send("JOIN #lobby")
	c.expect("JOIN #lobby", time.Second)
}

func TestServerIntegrationAutoJoinReplay(t *testing.T) {
	st := store.New(afero.NewMemMapFs(), ".")
	require.NoError(t, st.SavePasswords(map[string]string{"alice": "hunter2"}))
	require.NoError(t, st.SaveProfiles(map[string]*store.Profile{
		"alice": {AutoJoinChannels: []string{"#home"}},
	}))

	cfg := config.Default()
	cfg.Listen = "127.0.0.1:0"
	cfg.LogToFile = false
	s, err := New(cfg, st)
	require.NoError(t, err)
	s.flushEvery = 10 * time.Millisecond
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Stop() })

	c := dialTest(t, s.Addr().String())
	c.send("PASS hunter2")
	c.send("NICK alice")
	c.send("USER alice host serv :Alice A")
	c.expect("You have authorized successfully!", time.Second)
	c.expect("JOIN #home", time.Second)
}
