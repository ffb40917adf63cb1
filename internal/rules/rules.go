// Package rules holds the immutable per-session configuration the lobby reads
// from the game rules: faction display names and the bot catalog.
package rules

import (
	"fmt"
	"os"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

type Faction struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Rules is loaded once per session and never modified afterwards.
type Rules struct {
	factions []Faction
	bots     []string
}

type file struct {
	Factions []Faction `yaml:"factions"`
	Bots     []string  `yaml:"bots"`
}

// titleCase builds a fresh Caser per call; Casers hold state.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// New builds rules from the given factions and bots. Factions without a
// display name get their id in title case. The "random" pseudo-faction is
// always offered last.
func New(factions []Faction, bots []string) Rules {
	fs := make([]Faction, 0, len(factions)+1)
	for _, f := range factions {
		if f.ID == "" || f.ID == session.RandomCountry {
			continue
		}
		if f.Name == "" {
			f.Name = titleCase(f.ID)
		}
		fs = append(fs, f)
	}
	fs = append(fs, Faction{ID: session.RandomCountry, Name: titleCase(session.RandomCountry)})
	return Rules{factions: fs, bots: slices.Clone(bots)}
}

// Default is used when no rules file is configured.
func Default() Rules {
	return New([]Faction{{ID: "gdi", Name: "GDI"}, {ID: "nod", Name: "Nod"}}, []string{"Easy AI", "Hard AI"})
}

func Load(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	return New(f.Factions, f.Bots), nil
}

func (r Rules) Factions() []Faction { return slices.Clone(r.factions) }

func (r Rules) Bots() []string { return slices.Clone(r.bots) }

// FactionName returns the display name for id, falling back to the id in
// title case for factions the rules do not know.
func (r Rules) FactionName(id string) string {
	for _, f := range r.factions {
		if f.ID == id {
			return f.Name
		}
	}
	return titleCase(id)
}
