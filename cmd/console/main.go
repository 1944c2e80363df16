package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/talk-engine/internal/config"
	"github.com/jwebster45206/talk-engine/internal/gamedata"
	"github.com/jwebster45206/talk-engine/internal/logger"
	"github.com/jwebster45206/talk-engine/pkg/state"
)

type ConsoleConfig struct {
	DataDir    string
	AvatarName string
	Runes      bool // render runic text as runes
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.SetupFile(cfg)

	library, err := gamedata.LoadLibrary(cfg.DataDir, gamedata.Options{
		CacheSize:  cfg.ScriptCacheSize,
		CacheTTL:   cfg.ScriptCacheTTL,
		Language:   cfg.Language,
		LocalesDir: cfg.LocalesDir,
	}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not load game data from %s: %v\nSet DATA_DIR to the directory holding DATA.OVL and the .TLK files.\n", cfg.DataDir, err)
		os.Exit(1)
	}

	consoleCfg := &ConsoleConfig{
		DataDir:    cfg.DataDir,
		AvatarName: cfg.AvatarName,
		Runes:      os.Getenv("CONSOLE_RUNES") != "false",
	}
	game := state.NewGameState(consoleCfg.AvatarName)

	p := tea.NewProgram(NewConsoleUI(consoleCfg, library, game, log),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
