package store

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return New(afero.NewMemMapFs(), "data")
}

func TestLoadMissingFilesReturnsEmpty(t *testing.T) {
	s := newTestStore()

	passwords, err := s.LoadPasswords()
	require.NoError(t, err)
	assert.Empty(t, passwords)

	profiles, err := s.LoadProfiles()
	require.NoError(t, err)
	assert.Empty(t, profiles)

	channels, err := s.LoadChannels()
	require.NoError(t, err)
	assert.Empty(t, channels)
}

func TestPasswordRoundTrip(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.SavePasswords(map[string]string{"alice": "sekrit", "Bob": "hunter2"}))

	got, err := s.LoadPasswords()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "sekrit", "Bob": "hunter2"}, got)
}

func TestProfileRoundTrip(t *testing.T) {
	s := newTestStore()
	in := map[string]*Profile{
		"alice": {AutoJoinChannels: []string{"#lobby", "#dev"}},
	}
	require.NoError(t, s.SaveProfiles(in))

	got, err := s.LoadProfiles()
	require.NoError(t, err)
	require.Contains(t, got, "alice")
	assert.Equal(t, []string{"#lobby", "#dev"}, got["alice"].AutoJoinChannels)
}

func TestChannelRoundTrip(t *testing.T) {
	s := newTestStore()
	in := []ChannelRecord{
		{
			Name:  "#test",
			Topic: "hello there",
			Flags: "mi",
			Modes: map[string]string{"alice": "o", "mallory": "bq"},
		},
		{Name: "&local", Modes: map[string]string{}},
	}
	require.NoError(t, s.SaveChannels(in))

	got, err := s.LoadChannels()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "#test", got[0].Name)
	assert.Equal(t, "hello there", got[0].Topic)
	assert.Equal(t, "mi", got[0].Flags)
	assert.Equal(t, map[string]string{"alice": "o", "mallory": "bq"}, got[0].Modes)
	assert.Equal(t, "&local", got[1].Name)
	assert.NotNil(t, got[1].Modes)
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.SaveChannels([]ChannelRecord{{Name: "#a"}, {Name: "#b"}}))
	require.NoError(t, s.SaveChannels([]ChannelRecord{{Name: "#a", Topic: "t"}}))

	got, err := s.LoadChannels()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t", got[0].Topic)
}
