// Package logging wraps zerolog around the one piece of structure an apply
// run actually has: a single site, broken into a fixed, known set of
// components (config, engine, modules, render, secretsync, gittrack,
// apply). Unlike a logger for a fleet of interchangeable nodes, there is no
// open set of dynamic IDs to tag here — only the current site and which of
// these seven components is logging — so Component is a closed, typed enum
// rather than a free-form string.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. Init must run before any package-level
// helper is called; until then Logger is zerolog's default no-op-ish writer.
var Logger zerolog.Logger

// Level names accepted on the CLI.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init installs the global logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// Component names one of the fixed subsystems that log during an apply
// run. Closed on purpose: every caller in this module is one of these.
type Component string

const (
	ComponentConfig     Component = "config"
	ComponentEngine     Component = "engine"
	ComponentModules    Component = "modules"
	ComponentRender     Component = "render"
	ComponentSecretSync Component = "secretsync"
	ComponentGitTrack   Component = "gittrack"
	ComponentApply      Component = "apply"
)

// UseSite stamps every logger built by With (for the remainder of the
// process) with the site identifier. Called once, right after config.Load
// resolves it, so every line logged during the rest of the apply run — no
// matter which component emits it — is attributable to its site without
// each call site having to thread the site ID through.
func UseSite(siteID string) {
	Logger = Logger.With().Str("site_id", siteID).Logger()
}

// With returns a child logger tagged with c.
func With(c Component) zerolog.Logger {
	return Logger.With().Str("component", string(c)).Logger()
}

func Info(msg string)  { Logger.Info().Msg(msg) }
func Debug(msg string) { Logger.Debug().Msg(msg) }
func Warn(msg string)  { Logger.Warn().Msg(msg) }
func Error(msg string) { Logger.Error().Msg(msg) }

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}
