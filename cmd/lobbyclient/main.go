package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/DoyleJ11/skirmish-lobby/internal/chat"
	"github.com/DoyleJ11/skirmish-lobby/internal/config"
	"github.com/DoyleJ11/skirmish-lobby/internal/console"
	"github.com/DoyleJ11/skirmish-lobby/internal/eventloop"
	"github.com/DoyleJ11/skirmish-lobby/internal/lobbylogic"
	"github.com/DoyleJ11/skirmish-lobby/internal/logging"
	"github.com/DoyleJ11/skirmish-lobby/internal/maps"
	"github.com/DoyleJ11/skirmish-lobby/internal/rules"
	"github.com/DoyleJ11/skirmish-lobby/internal/transport/wsclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	flag.StringVar(&cfg.Client.Host, "host", cfg.Client.Host, "lobby host address")
	flag.IntVar(&cfg.Client.Port, "port", cfg.Client.Port, "lobby host port")
	flag.StringVar(&cfg.Client.Code, "code", cfg.Client.Code, "lobby code to join")
	flag.StringVar(&cfg.Player.Name, "name", cfg.Player.Name, "player name")
	flag.Parse()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if cfg.Client.Code == "" {
		return fmt.Errorf("no lobby code: pass -code or set client.code")
	}

	if err := os.MkdirAll(cfg.Client.MapsDir, 0o755); err != nil {
		return err
	}
	catalog, err := maps.Load(cfg.Client.MapsDir)
	if err != nil {
		return err
	}
	rs := rules.Default()
	if cfg.Client.RulesPath != "" {
		if rs, err = rules.Load(cfg.Client.RulesPath); err != nil {
			return err
		}
	}
	prefs := config.NewPreferences(config.Path(), cfg.Player, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := eventloop.New()
	post := func(fn func()) { loop.Post(fn) }

	shell := console.New(console.Options{
		Out:       os.Stdout,
		Maps:      catalog,
		Installer: &maps.Installer{Catalog: catalog, Post: post},
		LastMap:   func() string { return prefs.Player().LastMap },
		Logger:    logger,
		Quit:      loop.Stop,
	})

	dialer := wsclient.Connector{Options: wsclient.Options{
		Post:   loop.Post,
		Name:   cfg.Player.Name,
		Code:   cfg.Client.Code,
		Logger: logger,
	}}

	recolored := false
	conn := lobbylogic.NewConnection(lobbylogic.ConnectionOptions{
		Dialer:      dialer,
		Post:        loop.Post,
		DialTimeout: cfg.Client.DialTimeout,
		Lobby: lobbylogic.Options{
			Maps:          catalog,
			Rules:         rs,
			Prefs:         prefs,
			Chat:          chat.NewLog(cfg.Client.ChatLines, cfg.Client.ChatWidth),
			Logger:        logger,
			OnViewChanged: shell.ViewChanged,
			OnChat:        shell.Chat,
			OnStart:       shell.Started,
		},
		OnBind: func(l *lobbylogic.Lobby) {
			shell.Bind(l)
			// Apply the remembered color the first time we are seated.
			if c, ok := prefs.Color(); ok && !recolored {
				recolored = true
				l.Dispatcher().SetColor(c)
			}
		},
		OnTeardown: shell.Unbind,
		OnPrompt:   shell.Prompt,
		OnExit:     loop.Stop,
		Logger:     logger,
	})

	dctx, cancel := context.WithTimeout(ctx, cfg.Client.DialTimeout)
	t, err := dialer.Dial(dctx, cfg.Client.Host, cfg.Client.Port)
	cancel()
	if err != nil {
		return err
	}
	loop.Post(func() { conn.Bind(t) })

	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			line := sc.Text()
			if !loop.Post(func() { shell.Handle(line) }) {
				return
			}
		}
		loop.Stop()
	}()

	err = loop.Run(ctx)
	conn.Close()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
