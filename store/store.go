// Package store persists server state snapshots as JSON files:
// credentials (passwd.json), auto-join profiles (profile.json) and
// channel state (chan.json). Live channel membership is never
// persisted.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	passwordsFile = "passwd.json"
	profilesFile  = "profile.json"
	channelsFile  = "chan.json"
)

// Profile is one user's auto-join channel list, ordered by first join.
type Profile struct {
	AutoJoinChannels []string `json:"auto_join_channels"`
}

// ChannelRecord is the persisted form of a channel. Flags holds the
// channel-wide flag characters in the order they were set; Modes maps
// nicknames to their per-member mode characters.
type ChannelRecord struct {
	Name  string            `json:"name"`
	Topic string            `json:"topic"`
	Flags string            `json:"flags"`
	Modes map[string]string `json:"modes"`
}

// Store reads and writes state snapshots under a single directory.
type Store struct {
	fs  afero.Fs
	dir string
}

// New creates a Store over the given filesystem and directory.
func New(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// NewOS creates a Store over the real filesystem.
func NewOS(dir string) *Store {
	return New(afero.NewOsFs(), dir)
}

// LoadPasswords returns the nickname-to-password map, empty when no
// snapshot exists yet.
func (s *Store) LoadPasswords() (map[string]string, error) {
	out := make(map[string]string)
	if err := s.load(passwordsFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SavePasswords writes the credential snapshot.
func (s *Store) SavePasswords(passwords map[string]string) error {
	return s.save(passwordsFile, passwords)
}

// LoadProfiles returns the nickname-to-profile map, empty when no
// snapshot exists yet.
func (s *Store) LoadProfiles() (map[string]*Profile, error) {
	out := make(map[string]*Profile)
	if err := s.load(profilesFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveProfiles writes the profile snapshot.
func (s *Store) SaveProfiles(profiles map[string]*Profile) error {
	return s.save(profilesFile, profiles)
}

// LoadChannels returns the persisted channel records in snapshot
// order, empty when no snapshot exists yet.
func (s *Store) LoadChannels() ([]ChannelRecord, error) {
	var out []ChannelRecord
	if err := s.load(channelsFile, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Modes == nil {
			out[i].Modes = make(map[string]string)
		}
	}
	return out, nil
}

// SaveChannels writes the channel snapshot.
func (s *Store) SaveChannels(channels []ChannelRecord) error {
	if channels == nil {
		channels = []ChannelRecord{}
	}
	return s.save(channelsFile, channels)
}

func (s *Store) load(name string, v interface{}) error {
	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

// save rewrites the whole snapshot file. Not crash-atomic: a crash
// mid-write can leave a truncated file.
func (s *Store) save(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := afero.WriteFile(s.fs, filepath.Join(s.dir, name), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
