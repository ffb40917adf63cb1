package config

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

// Preferences remembers the player's name, color and last map in the
// config file. Write failures are logged and otherwise ignored.
type Preferences struct {
	path   string
	player PlayerConfig
	log    *zap.Logger
}

func NewPreferences(path string, player PlayerConfig, log *zap.Logger) *Preferences {
	if log == nil {
		log = zap.NewNop()
	}
	return &Preferences{path: path, player: player, log: log}
}

func (p *Preferences) Player() PlayerConfig { return p.player }

// Color returns the remembered ramp, if there is a valid one.
func (p *Preferences) Color() (session.ColorRamp, bool) {
	c, err := session.ParseColorRamp(p.player.Color)
	return c, err == nil
}

func (p *Preferences) RememberName(name string) {
	p.player.Name = name
	p.save()
}

func (p *Preferences) RememberColor(c session.ColorRamp) {
	p.player.Color = c.String()
	p.save()
}

func (p *Preferences) RememberMap(uid string) {
	p.player.LastMap = uid
	p.save()
}

func (p *Preferences) save() {
	if err := SavePlayer(p.path, p.player); err != nil {
		p.log.Warn("saving preferences", zap.String("path", p.path), zap.Error(err))
	}
}
