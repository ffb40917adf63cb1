// Package maps holds the map metadata the lobby needs: titles, spawn points
// and per-player constraints. The map contents themselves are never parsed.
package maps

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

var ErrUnknownMap = errors.New("unknown map")
var ErrNoSelectableMap = errors.New("no selectable map")

type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type Bounds struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Player holds the constraints a map places on whoever sits in its slot.
type Player struct {
	LockRace  bool `yaml:"lock_race"`
	LockColor bool `yaml:"lock_color"`
	AllowBots bool `yaml:"allow_bots"`
}

type Map struct {
	Uid         string            `yaml:"uid"`
	Title       string            `yaml:"title"`
	Author      string            `yaml:"author"`
	Description string            `yaml:"description"`
	Type        string            `yaml:"type"`
	Tileset     string            `yaml:"tileset"`
	Bounds      Bounds            `yaml:"bounds"`
	PlayerCount int               `yaml:"player_count"`
	SpawnPoints []Point           `yaml:"spawn_points"`
	Players     map[string]Player `yaml:"players"`
	Selectable  bool              `yaml:"selectable"`
}

// Player returns the constraints for mapPlayer. Unknown players (spectator
// slots among them) are unconstrained except that bots are not allowed.
func (m Map) Player(mapPlayer string) Player {
	return m.Players[mapPlayer]
}

// Size renders the bounds as "WxH".
func (m Map) Size() string {
	return fmt.Sprintf("%dx%d", m.Bounds.Width, m.Bounds.Height)
}

// Slots builds the slot list for m: one per map player in key order, then
// the requested number of spectator slots.
func Slots(m Map, spectators int) []session.Slot {
	keys := make([]string, 0, len(m.Players))
	for k := range m.Players {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	slots := make([]session.Slot, 0, len(keys)+spectators)
	for i, k := range keys {
		slots = append(slots, session.Slot{Index: i, MapPlayer: k})
	}
	for i := range spectators {
		slots = append(slots, session.Slot{Index: len(keys) + i, Spectator: true})
	}
	return slots
}

// Lookup resolves a map uid.
type Lookup interface {
	Lookup(uid string) (Map, error)
}

// Catalog is the set of maps available locally, keyed by uid.
type Catalog struct {
	mu   sync.RWMutex
	dir  string
	maps map[string]Map
}

// NewCatalog builds an in-memory catalog that cannot be reloaded.
func NewCatalog(ms ...Map) *Catalog {
	c := &Catalog{maps: make(map[string]Map, len(ms))}
	for _, m := range ms {
		c.maps[m.Uid] = m
	}
	return c
}

// Load reads every *.yaml manifest in dir.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{dir: dir}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Dir() string { return c.dir }

// Reload rescans the catalog directory. Catalogs built with NewCatalog keep
// their contents.
func (c *Catalog) Reload() error {
	if c.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read map dir: %w", err)
	}
	found := make(map[string]Map)
	for _, e := range entries {
		if e.IsDir() || !isManifest(e.Name()) {
			continue
		}
		m, err := readManifest(filepath.Join(c.dir, e.Name()))
		if err != nil {
			return err
		}
		found[m.Uid] = m
	}

	c.mu.Lock()
	c.maps = found
	c.mu.Unlock()
	return nil
}

func isManifest(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func readManifest(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Map{}, fmt.Errorf("read map manifest: %w", err)
	}
	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Map{}, fmt.Errorf("parse map manifest %s: %w", filepath.Base(path), err)
	}
	if m.Uid == "" {
		return Map{}, fmt.Errorf("map manifest %s: uid is required", filepath.Base(path))
	}
	if m.PlayerCount == 0 {
		m.PlayerCount = len(m.Players)
	}
	return m, nil
}

func (c *Catalog) Lookup(uid string) (Map, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.maps[uid]
	if !ok {
		return Map{}, fmt.Errorf("%w: %q", ErrUnknownMap, uid)
	}
	return m, nil
}

// Choices lists the selectable maps ordered by player count, then title.
func (c *Catalog) Choices() []Map {
	c.mu.RLock()
	out := make([]Map, 0, len(c.maps))
	for _, m := range c.maps {
		if m.Selectable {
			out = append(out, m)
		}
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b Map) int {
		return cmp.Or(cmp.Compare(a.PlayerCount, b.PlayerCount), cmp.Compare(a.Title, b.Title))
	})
	return out
}

// Initial returns the map a chooser should start on: uid when it exists,
// otherwise the first selectable choice.
func (c *Catalog) Initial(uid string) (Map, error) {
	if uid != "" {
		if m, err := c.Lookup(uid); err == nil {
			return m, nil
		}
	}
	choices := c.Choices()
	if len(choices) == 0 {
		return Map{}, ErrNoSelectableMap
	}
	return choices[0], nil
}
