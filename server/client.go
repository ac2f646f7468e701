package server

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Client is one connected identity. Identity fields are only mutated
// by the dispatcher while it holds the server lock; the outbound queue
// has its own lock so the flusher never contends with command
// handling.
type Client struct {
	ID string

	Nickname   string
	Username   string
	Hostname   string
	Servername string
	Realname   string

	// Authorized is set once the identity passed the auth gate (or
	// immediately when the gate is disabled).
	Authorized bool

	// Legacy marks clients that expect the extended message wire
	// format with the sender nickname/username tokens inserted.
	Legacy bool

	server *Server
	conn   net.Conn

	// pass holds a password supplied via PASS before registration.
	pass   string
	ponged bool
	gone   bool

	maskedHost string

	qmu   sync.Mutex
	queue []string

	closing   atomic.Bool
	closeOnce sync.Once
}

func newClient(s *Server, conn net.Conn) *Client {
	return &Client{
		ID:         uuid.New().String(),
		server:     s,
		conn:       conn,
		maskedHost: newMaskedHost(),
	}
}

// newMaskedHost builds the opaque per-connection token shown instead
// of the real address when hide_ips is on.
func newMaskedHost() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return base64.RawURLEncoding.EncodeToString([]byte(raw[:10]))
}

// Registered reports whether nickname, username and real name are all
// set.
func (c *Client) Registered() bool {
	return c.Nickname != "" && c.Username != "" && c.Realname != ""
}

// Prefix returns the nick!user@host prefix with the address masked
// according to configuration.
func (c *Client) Prefix() string {
	return c.prefix(true)
}

// LogPrefix returns the prefix with the real remote address, for log
// lines only.
func (c *Client) LogPrefix() string {
	return c.prefix(false)
}

func (c *Client) prefix(mask bool) string {
	var b strings.Builder
	if c.Nickname != "" && c.Username != "" {
		b.WriteString(c.Nickname)
		b.WriteString("!")
		b.WriteString(c.Username)
		b.WriteString("@")
	}
	if mask && c.server.config.HideIPs {
		b.WriteString(c.maskedHost)
	} else if c.conn != nil {
		b.WriteString(c.conn.RemoteAddr().String())
	} else {
		b.WriteString(c.maskedHost)
	}
	return b.String()
}

// Send queues one outbound line. The line reaches the socket on the
// next flush.
func (c *Client) Send(line string) {
	c.qmu.Lock()
	c.queue = append(c.queue, line)
	c.qmu.Unlock()
}

// Sendf formats and queues one outbound line.
func (c *Client) Sendf(format string, args ...interface{}) {
	c.Send(fmt.Sprintf(format, args...))
}

// Flush writes all queued lines to the socket, CRLF-terminated, and
// clears the queue.
func (c *Client) Flush() error {
	c.qmu.Lock()
	pending := c.queue
	c.queue = nil
	c.qmu.Unlock()

	if len(pending) == 0 || c.conn == nil {
		return nil
	}
	_, err := c.conn.Write([]byte(strings.Join(pending, "\r\n") + "\r\n"))
	return err
}

// SendMessageFrom queues a PRIVMSG/NOTICE line from another identity,
// using the extended format for legacy clients.
func (c *Client) SendMessageFrom(from *Client, verb, target, text string) {
	if c.Legacy {
		c.Sendf(":%s %s %s %s :%s :%s", from.Prefix(), verb, target, from.Nickname, from.Username, text)
	} else {
		c.Sendf(":%s %s %s :%s", from.Prefix(), verb, target, text)
	}
}

// ServerNotice queues a notice from the server pseudo-sender.
func (c *Client) ServerNotice(target, text string) {
	if c.Legacy {
		c.Sendf(":Serv NOTICE %s Serv :Serv :%s", target, text)
	} else {
		c.Sendf(":Serv NOTICE %s :%s", target, text)
	}
}

// readLoop blocks on the socket and feeds complete lines to the
// dispatcher. On read failure or EOF it runs the disconnect path
// exactly once and releases the socket.
func (c *Client) readLoop() {
	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		c.server.dispatch(c, line)
		if c.closing.Load() {
			// Stop consuming lines buffered behind a QUIT.
			break
		}
	}
	c.server.disconnect(c)
	c.closeOnce.Do(c.closeSocket)
}

// closeConn closes the socket, unblocking the reader. Idempotent; the
// reader then drives channel cleanup and registry removal.
func (c *Client) closeConn() {
	c.closing.Store(true)
	c.closeOnce.Do(c.closeSocket)
}

func (c *Client) closeSocket() {
	if c.conn == nil {
		return
	}
	c.conn.SetReadDeadline(time.Now())
	c.conn.Close()
}
