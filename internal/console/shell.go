package console

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/skirmish-lobby/internal/chat"
	"github.com/DoyleJ11/skirmish-lobby/internal/lobbylogic"
	"github.com/DoyleJ11/skirmish-lobby/internal/maps"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
)

var ErrUnknownCommand = errors.New("unknown command")
var ErrUsage = errors.New("usage")

type Options struct {
	Out io.Writer
	// Maps feeds /maps. Installer, when set, enables /install.
	Maps      *maps.Catalog
	Installer *maps.Installer
	// LastMap returns the map picked in an earlier session. The chooser
	// starts there and a bare /map selects it.
	LastMap func() string
	Rand    *rand.Rand
	Logger  *zap.Logger
	// Quit is called for /quit and when a prompt is aborted.
	Quit func()
}

// Shell is the presenter. Every method must run on the event loop; the
// lobbylogic callbacks are wired to Bind, Unbind, Prompt, ViewChanged, Chat
// and Started.
type Shell struct {
	opts Options
	log  *zap.Logger

	lobby  *lobbylogic.Lobby
	prompt *lobbylogic.Prompt
}

func New(opts Options) *Shell {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Shell{opts: opts, log: opts.Logger}
}

func (s *Shell) Bind(l *lobbylogic.Lobby) {
	s.lobby = l
	s.prompt = nil
	s.ViewChanged(l.View())
}

func (s *Shell) Unbind() { s.lobby = nil }

func (s *Shell) Prompt(p lobbylogic.Prompt) {
	s.prompt = &p
	s.println(RenderPrompt(p))
}

func (s *Shell) ViewChanged(v lobbylogic.View) { s.println(RenderView(v)) }

func (s *Shell) Chat(l chat.Line) { s.println(RenderChat(l)) }

func (s *Shell) Started() { s.println(readyStyle.Render("Game starting.")) }

func (s *Shell) println(text string) {
	fmt.Fprintln(s.opts.Out, text)
}

// Handle runs one typed line. Lines not starting with "/" are chat.
func (s *Shell) Handle(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if err := s.handle(line); err != nil {
		s.println(warnStyle.Render(err.Error()))
	}
}

func (s *Shell) handle(line string) error {
	name, arg := line, ""
	if strings.HasPrefix(line, "/") {
		name, arg, _ = strings.Cut(line[1:], " ")
		arg = strings.TrimSpace(arg)
	} else {
		name, arg = "say", line
	}

	switch name {
	case "help":
		s.println(helpText)
		return nil
	case "quit":
		if s.opts.Quit != nil {
			s.opts.Quit()
		}
		return nil
	case "retry", "abort":
		return s.answer(name)
	case "maps":
		s.listMaps()
		return nil
	case "install":
		return s.install(arg)
	}

	if s.lobby == nil {
		return errors.New("not connected")
	}
	d := s.lobby.Dispatcher()

	switch name {
	case "say":
		return refused(d.SendChat(arg))
	case "tab":
		d.ToggleTeamChat()
		s.println(labelStyle.Render("chat target: ") + s.lobby.View().ChatLabel)
		return nil
	case "name":
		shown := d.SetName(arg)
		s.println(labelStyle.Render("name: ") + shown)
		return nil
	case "ready":
		return refused(d.ToggleReady())
	case "start":
		return refused(d.StartGame())
	case "lockteams":
		return refused(d.ToggleLockTeams())
	case "allowcheats":
		return refused(d.ToggleAllowCheats())
	case "race":
		return refused(d.SetRace(arg))
	case "map":
		if arg == "" {
			m, err := s.initialMap()
			if err != nil {
				return err
			}
			arg = m.Uid
		}
		return refused(d.SetMap(arg))
	case "color":
		c, err := s.parseColor(arg)
		if err != nil {
			return err
		}
		return refused(d.SetColor(c))
	case "bot":
		slot, bot, _ := strings.Cut(arg, " ")
		n, err := intArg("bot", slot)
		if err != nil {
			return err
		}
		return refused(d.AssignBot(n, strings.TrimSpace(bot)))
	}

	intCmds := map[string]func(int) bool{
		"spawn": d.ClaimSpawn,
		"slot":  d.JoinSlot,
		"open":  d.OpenSlot,
		"close": d.CloseSlot,
		"kick":  d.Kick,
		"team":  d.SetTeam,
	}
	if fn, ok := intCmds[name]; ok {
		n, err := intArg(name, arg)
		if err != nil {
			return err
		}
		return refused(fn(n))
	}
	return fmt.Errorf("%w: /%s (try /help)", ErrUnknownCommand, name)
}

func (s *Shell) answer(choice string) error {
	if s.prompt == nil {
		return errors.New("nothing to " + choice)
	}
	p := *s.prompt
	s.prompt = nil
	if choice == "retry" {
		s.println(labelStyle.Render(fmt.Sprintf("reconnecting to %s:%d...", p.Host, p.Port)))
		p.Retry()
		return nil
	}
	p.Abort()
	return nil
}

func (s *Shell) listMaps() {
	if s.opts.Maps == nil {
		s.println(mutedStyle.Render("no map catalog"))
		return
	}
	initial, _ := s.initialMap()
	for _, m := range s.opts.Maps.Choices() {
		mark := " "
		if m.Uid == initial.Uid {
			mark = "*"
		}
		s.println(fmt.Sprintf("%s %-20s %-24s %d players  %s", mark, m.Uid, m.Title, m.PlayerCount, labelStyle.Render(m.Size())))
	}
}

// initialMap is where the chooser starts: the remembered map when it is
// still installed, otherwise the first choice.
func (s *Shell) initialMap() (maps.Map, error) {
	if s.opts.Maps == nil {
		return maps.Map{}, errors.New("no map catalog")
	}
	last := ""
	if s.opts.LastMap != nil {
		last = s.opts.LastMap()
	}
	return s.opts.Maps.Initial(last)
}

func (s *Shell) install(path string) error {
	if s.opts.Installer == nil {
		return errors.New("map installs are not available")
	}
	if path == "" {
		return fmt.Errorf("%w: /install <manifest path>", ErrUsage)
	}
	s.opts.Installer.Install(path, func(err error) {
		if err != nil {
			s.log.Warn("map install failed", zap.String("path", path), zap.Error(err))
			s.println(warnStyle.Render("install failed: " + err.Error()))
			return
		}
		s.println(labelStyle.Render("installed ") + path)
	})
	return nil
}

// parseColor accepts "random", "H,S,L[,R]" or three slider offsets in [0,1]
// separated by spaces.
func (s *Shell) parseColor(arg string) (session.ColorRamp, error) {
	if arg == "random" {
		return session.RandomColorRamp(s.opts.Rand), nil
	}
	if fields := strings.Fields(arg); len(fields) == 3 {
		var v [3]float64
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil || x < 0 || x > 1 {
				return session.ColorRamp{}, fmt.Errorf("%w: /color h s l with offsets in [0,1]", ErrUsage)
			}
			v[i] = x
		}
		return session.RampFromOffsets(v[0], v[1], v[2]), nil
	}
	if strings.Count(arg, ",") == 2 {
		arg += "," + strconv.Itoa(session.DefaultRampRadius)
	}
	c, err := session.ParseColorRamp(arg)
	if err != nil {
		return session.ColorRamp{}, fmt.Errorf("%w: /color random | H,S,L[,R] | h s l", ErrUsage)
	}
	return c, nil
}

func intArg(name, arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: /%s <number>", ErrUsage, name)
	}
	return n, nil
}

// refused turns a dispatcher refusal into a short notice. The host may
// still reject accepted commands; that shows up as no change.
func refused(emitted bool) error {
	if emitted {
		return nil
	}
	return errors.New("not allowed right now")
}

const helpText = `commands:
  text          chat (/tab switches team chat)
  /name x       /ready       /slot n      /spawn n
  /team n       /race id     /color random | H,S,L[,R] | h s l
  /map [uid]    /maps        /install path
  /open n       /close n     /bot n name  /kick n
  /lockteams    /allowcheats /start
  /retry        /abort       /quit`
