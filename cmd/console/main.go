package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/combat-engine/internal/config"
	"github.com/jwebster45206/combat-engine/internal/storage"
	"github.com/jwebster45206/combat-engine/pkg/actor"
)

type ConsoleConfig struct {
	DataDir    string
	TuningFile string
	Tick       time.Duration
	Seed       uint64
}

func main() {
	cfg := &ConsoleConfig{
		DataDir:    getEnv("DATA_DIR", "./data"),
		TuningFile: os.Getenv("TUNING_FILE"),
		Tick:       time.Second,
		Seed:       uint64(time.Now().UnixNano()),
	}
	if d, err := time.ParseDuration(os.Getenv("CONSOLE_TICK")); err == nil && d > 0 {
		cfg.Tick = d
	}
	if s, err := strconv.ParseUint(os.Getenv("RNG_SEED"), 10, 64); err == nil && s != 0 {
		cfg.Seed = s
	}

	ctx := context.Background()
	fighters := storage.NewFighterDir(cfg.DataDir)
	names, err := fighters.ListFighters(ctx)
	if err != nil || len(names) == 0 {
		fmt.Fprintf(os.Stderr, "Failed to list fighters in %s: %v\n", cfg.DataDir, err)
		os.Exit(1)
	}

	fmt.Println("Available Fighters:")
	for i, name := range names {
		fmt.Printf("  %d - %s\n", i+1, titleName(name))
	}
	you := choose(ctx, fighters, names, "\nSelect your fighter by number: ")
	rival := choose(ctx, fighters, names, "Select your rival by number: ")

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load tuning: %v\n", err)
		os.Exit(1)
	}
	templates, err := storage.LoadTemplateDir(filepath.Join(cfg.DataDir, "templates"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load templates: %v\n", err)
		os.Exit(1)
	}

	arena, err := NewArena(tuning.Settings(), cfg.Seed, you, rival, templates)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up the fight: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, arena),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func choose(ctx context.Context, fighters *storage.FighterDir, names []string, prompt string) *actor.FighterSpec {
	fmt.Print(prompt)
	var choice int
	if _, err := fmt.Scanf("%d\n", &choice); err != nil || choice < 1 || choice > len(names) {
		fmt.Fprintf(os.Stderr, "Invalid selection\n")
		os.Exit(1)
	}
	spec, err := fighters.GetFighterSpec(ctx, names[choice-1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load fighter: %v\n", err)
		os.Exit(1)
	}
	return spec
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
