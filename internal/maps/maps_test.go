package maps

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const desertManifest = `uid: desert
title: Desert Strike
author: tester
player_count: 2
selectable: true
bounds: {width: 64, height: 48}
spawn_points:
  - {x: 4, y: 4}
  - {x: 60, y: 44}
players:
  multi0: {allow_bots: true}
  multi1: {lock_race: true, lock_color: true}
`

func writeManifest(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAndLookup(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "desert.yaml", desertManifest)
	writeManifest(t, dir, "notes.txt", "ignored")

	c, err := Load(dir)
	require.NoError(t, err)

	m, err := c.Lookup("desert")
	require.NoError(t, err)
	assert.Equal(t, "Desert Strike", m.Title)
	assert.Equal(t, "64x48", m.Size())
	assert.Len(t, m.SpawnPoints, 2)
	assert.True(t, m.Player("multi0").AllowBots)
	assert.True(t, m.Player("multi1").LockRace)

	_, err = c.Lookup("missing")
	assert.ErrorIs(t, err, ErrUnknownMap)
}

func TestLoadRejectsManifestWithoutUid(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "bad.yaml", "title: nothing\n")
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestChoicesOrderAndInitial(t *testing.T) {
	c := NewCatalog(
		Map{Uid: "b", Title: "Bravo", PlayerCount: 4, Selectable: true},
		Map{Uid: "a", Title: "Alpha", PlayerCount: 4, Selectable: true},
		Map{Uid: "s", Title: "Small", PlayerCount: 2, Selectable: true},
		Map{Uid: "h", Title: "Hidden", PlayerCount: 1},
	)
	var uids []string
	for _, m := range c.Choices() {
		uids = append(uids, m.Uid)
	}
	assert.Equal(t, []string{"s", "a", "b"}, uids)

	m, err := c.Initial("b")
	require.NoError(t, err)
	assert.Equal(t, "b", m.Uid)

	m, err = c.Initial("gone")
	require.NoError(t, err)
	assert.Equal(t, "s", m.Uid)

	_, err = NewCatalog().Initial("")
	assert.ErrorIs(t, err, ErrNoSelectableMap)
}

func TestSlots(t *testing.T) {
	m := Map{Players: map[string]Player{"multi1": {}, "multi0": {}}}
	slots := Slots(m, 1)
	require.Len(t, slots, 3)
	assert.Equal(t, "multi0", slots[0].MapPlayer)
	assert.Equal(t, "multi1", slots[1].MapPlayer)
	assert.True(t, slots[2].Spectator)
	assert.Equal(t, 2, slots[2].Index)
}

func TestInstallerReloadsOnPostedCallback(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	require.NoError(t, err)

	src := writeManifest(t, t.TempDir(), "desert.yaml", desertManifest)

	posted := make(chan func(), 1)
	in := Installer{Catalog: c, Post: func(fn func()) { posted <- fn }}

	var result error = os.ErrInvalid
	in.Install(src, func(err error) { result = err })

	select {
	case fn := <-posted:
		// Nothing touches the catalog until the posted closure runs.
		_, lookupErr := c.Lookup("desert")
		assert.ErrorIs(t, lookupErr, ErrUnknownMap)
		fn()
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for install completion")
	}

	require.NoError(t, result)
	_, err = c.Lookup("desert")
	assert.NoError(t, err)
}

func TestInstallerWithoutDir(t *testing.T) {
	in := Installer{Catalog: NewCatalog(), Post: func(fn func()) { fn() }}
	var got error
	in.Install("whatever.yaml", func(err error) { got = err })
	assert.ErrorIs(t, got, ErrNoInstallDir)
}
