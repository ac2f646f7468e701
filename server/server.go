package server

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/tomb.v2"

	"github.com/ircserv/ircserv/config"
	"github.com/ircserv/ircserv/logging"
	"github.com/ircserv/ircserv/store"
)

// nicknameToken is the placeholder substituted with each recipient's
// own nickname when a single line is fanned out to a channel. The
// random infix keeps user-supplied text from colliding with it.
var nicknameToken = "....NICKNAME" + uuid.New().String() + "...."

// Server owns every registry. A single RWMutex serializes all state
// mutation: the dispatcher takes the write lock for the whole command,
// while the flush and keepalive loops only take the read lock to
// snapshot the client list.
type Server struct {
	config *config.Config
	store  *store.Store

	mu        sync.RWMutex
	users     []*Client
	channels  []*Channel
	passwords map[string]string
	profiles  map[string]*store.Profile

	events   *Events
	handlers map[string]func(*Client, []string)

	listener net.Listener
	admin    *AdminAPI
	t        tomb.Tomb

	startTime time.Time

	// Shortened by tests.
	flushEvery time.Duration
	pingEvery  time.Duration
}

// New builds a server and loads the state snapshots from the store.
func New(cfg *config.Config, st *store.Store) (*Server, error) {
	s := &Server{
		config:     cfg,
		store:      st,
		events:     newEvents(),
		startTime:  time.Now(),
		flushEvery: time.Second,
		pingEvery:  10 * time.Second,
	}
	s.handlers = map[string]func(*Client, []string){
		"JOIN":    s.handleJoinCmd,
		"PRIVMSG": s.handlePrivmsg,
		"NOTICE":  s.handleNotice,
		"TOPIC":   s.handleTopic,
		"MODE":    s.handleMode,
		"PART":    s.handlePart,
		"KICK":    s.handleKick,
		"PING":    s.handlePing,
		"QUIT":    s.handleQuit,
	}

	passwords, err := st.LoadPasswords()
	if err != nil {
		return nil, err
	}
	profiles, err := st.LoadProfiles()
	if err != nil {
		return nil, err
	}
	records, err := st.LoadChannels()
	if err != nil {
		return nil, err
	}
	s.passwords = passwords
	s.profiles = profiles
	for _, rec := range records {
		s.channels = append(s.channels, channelFromRecord(s, rec))
	}
	metricChannels.Set(float64(len(s.channels)))
	return s, nil
}

// Events returns the observer registration points.
func (s *Server) Events() *Events {
	return s.events
}

// Start binds the listen address and launches the accept, flush and
// keepalive loops. It does not block.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Listen, err)
	}
	s.listener = ln
	logging.Logf("Listening on %s", ln.Addr())

	if s.config.Admin.Enabled {
		s.admin = newAdminAPI(s)
		if err := s.admin.Start(s.config.Admin.Listen); err != nil {
			ln.Close()
			return err
		}
	}

	s.t.Go(s.acceptLoop)
	s.t.Go(s.flushLoop)
	s.t.Go(s.pingLoop)
	return nil
}

// Addr returns the bound client listen address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop shuts the server down: stops accepting, closes every client
// socket and waits for the background loops.
func (s *Server) Stop() error {
	s.t.Kill(nil)
	if s.listener != nil {
		s.listener.Close()
	}
	if s.admin != nil {
		s.admin.Stop()
	}

	s.mu.RLock()
	clients := make([]*Client, len(s.users))
	copy(clients, s.users)
	s.mu.RUnlock()
	for _, c := range clients {
		c.closeConn()
	}

	return s.t.Wait()
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.t.Dying():
				return nil
			default:
			}
			logging.Logf("Accept error: %v", err)
			continue
		}

		c := newClient(s, conn)
		s.mu.Lock()
		s.users = append(s.users, c)
		s.mu.Unlock()

		metricConnectionsTotal.Inc()
		metricConnectedClients.Inc()
		logging.Logf("Accepted connection from %s", conn.RemoteAddr())
		go c.readLoop()
	}
}

// flushLoop drains every client's outbound queue on an interval. A
// write failure closes the socket; cleanup then runs on that client's
// reader goroutine.
func (s *Server) flushLoop() error {
	ticker := time.NewTicker(s.flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.t.Dying():
			return nil
		case <-ticker.C:
		}

		s.mu.RLock()
		clients := make([]*Client, len(s.users))
		copy(clients, s.users)
		s.mu.RUnlock()

		for _, c := range clients {
			if err := c.Flush(); err != nil {
				c.closeConn()
			}
		}
	}
}

// pingLoop probes every client on an interval. The reply is not
// tracked for liveness; a dead peer is detected by the write failing.
func (s *Server) pingLoop() error {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.t.Dying():
			return nil
		case <-ticker.C:
		}

		s.mu.RLock()
		clients := make([]*Client, len(s.users))
		copy(clients, s.users)
		s.mu.RUnlock()

		for _, c := range clients {
			c.Send("PING :Serv")
		}
	}
}

// disconnect removes a client from every channel and the user
// registry. Runs on the client's reader goroutine, exactly once.
func (s *Server) disconnect(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.gone {
		return
	}
	c.gone = true

	for _, ch := range s.channels {
		if ch.HasMember(c) {
			ch.Part(c, "Disconnected")
		}
	}
	for i, u := range s.users {
		if u == c {
			s.users = append(s.users[:i], s.users[i+1:]...)
			break
		}
	}
	metricConnectedClients.Dec()
	logging.Logf("%s disconnected", c.LogPrefix())
	s.events.UserDisconnected.Run(c)
}

func (s *Server) findUserLocked(nick string) *Client {
	for _, u := range s.users {
		if u.Nickname == nick {
			return u
		}
	}
	return nil
}

func (s *Server) nickInUseLocked(nick string) bool {
	for _, u := range s.users {
		if strings.EqualFold(u.Nickname, nick) {
			return true
		}
	}
	return false
}

func (s *Server) findChannelLocked(name string) *Channel {
	for _, ch := range s.channels {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

func (s *Server) profileLocked(nick string) *store.Profile {
	p, ok := s.profiles[nick]
	if !ok {
		p = &store.Profile{}
		s.profiles[nick] = p
	}
	return p
}

// Snapshot writers log failures instead of failing the command; the
// in-memory state stays authoritative.

func (s *Server) saveChannelsLocked() {
	records := make([]store.ChannelRecord, 0, len(s.channels))
	for _, ch := range s.channels {
		records = append(records, ch.record())
	}
	if err := s.store.SaveChannels(records); err != nil {
		logging.Logf("Saving channels: %v", err)
	}
	metricChannels.Set(float64(len(s.channels)))
}

func (s *Server) savePasswordsLocked() {
	if err := s.store.SavePasswords(s.passwords); err != nil {
		logging.Logf("Saving passwords: %v", err)
	}
}

func (s *Server) saveProfilesLocked() {
	if err := s.store.SaveProfiles(s.profiles); err != nil {
		logging.Logf("Saving profiles: %v", err)
	}
}

// Stats is the admin API status payload.
type Stats struct {
	Uptime     string `json:"uptime"`
	Clients    int    `json:"clients"`
	Channels   int    `json:"channels"`
	Registered int    `json:"registered_nicknames"`
}

// Stats returns a point-in-time view of the registries.
func (s *Server) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		Clients:    len(s.users),
		Channels:   len(s.channels),
		Registered: len(s.passwords),
	}
}

// ChannelInfo is one channel in the admin API listing.
type ChannelInfo struct {
	Name    string   `json:"name"`
	Topic   string   `json:"topic"`
	Flags   string   `json:"flags"`
	Members []string `json:"members"`
}

// ChannelList returns a point-in-time view of every channel.
func (s *Server) ChannelList() []ChannelInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChannelInfo, 0, len(s.channels))
	for _, ch := range s.channels {
		members := make([]string, 0, len(ch.Members))
		for _, u := range ch.Members {
			members = append(members, u.Nickname)
		}
		out = append(out, ChannelInfo{
			Name:    ch.Name,
			Topic:   ch.Topic,
			Flags:   string(ch.Flags),
			Members: members,
		})
	}
	return out
}
