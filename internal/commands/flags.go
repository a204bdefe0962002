package commands

import (
	"os"
	"path/filepath"

	"github.com/hay-kot/msgscope/internal/apiclient"
	"github.com/hay-kot/msgscope/internal/core/config"
	"github.com/hay-kot/msgscope/internal/core/history"
	"github.com/hay-kot/msgscope/internal/msgscope"
	"github.com/hay-kot/msgscope/internal/store/jsonfile"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Slot is the durable slot file backing the history store
	Slot *jsonfile.SlotStore

	// History is the initialized SIM number history
	History *history.Store

	// Client is the loghub API client
	Client *apiclient.Client

	// Notifier routes API failures to the printer or, while it runs, the TUI
	Notifier *apiclient.Relay

	// Service runs queries and records history
	Service *msgscope.Service
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "msgscope", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "msgscope")
}
