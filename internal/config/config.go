package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultFormat = "{artist} – {title}"

// Config is the merged program configuration. It is built once by Load and
// never mutated afterwards.
type Config struct {
	// Format is the status line template
	Format string
	// MarkupEscape escapes <>&' " in rendered values for Pango markup
	MarkupEscape bool
	// StatusIcons maps a PlaybackStatus string to a display glyph
	StatusIcons map[string]string
	// MouseButtons maps a one-character stdin trigger to an MPRIS
	// transport method name
	MouseButtons map[string]string
	// Dedupe suppresses re-emission of an identical status line
	Dedupe bool
	// Once disables the reconnect loop; a connection failure is terminal
	Once bool
}

// Defaults returns the built-in configuration. Map keys are lowercase:
// viper lowercases keys read from a file, so keeping the defaults in the
// same form makes a file override land on the default's key instead of
// sitting next to it.
func Defaults() *Config {
	return &Config{
		Format:       defaultFormat,
		MarkupEscape: false,
		StatusIcons: map[string]string{
			"playing": "",
			"paused":  "",
			"stopped": "",
		},
		MouseButtons: map[string]string{
			"1": "PlayPause",
		},
		Dedupe: true,
	}
}

// Load merges the defaults with an optional JSON config file and CLI flags,
// in that order. Scalar fields replace; the icon and button maps merge
// key by key so a file can override one glyph without restating the rest.
// A flag only overrides when it was given on the command line.
func Load(args []string, logger *zap.Logger) (*Config, error) {
	cfg := Defaults()

	fs := pflag.NewFlagSet("spotblock", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "path to a JSON config file")
	formatFlag := fs.StringP("format", "f", "", "status line template")
	fs.Bool("markup-escape", false, "escape markup in rendered values")
	fs.Bool("no-markup-escape", false, "do not escape markup in rendered values")
	fs.Bool("dedupe", false, "suppress repeated identical lines")
	fs.Bool("no-dedupe", false, "print every line, repeated or not")
	once := fs.Bool("once", false, "exit when the first bus session ends")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.Changed("markup-escape") && fs.Changed("no-markup-escape") {
		return nil, fmt.Errorf("--markup-escape and --no-markup-escape are mutually exclusive")
	}
	if fs.Changed("dedupe") && fs.Changed("no-dedupe") {
		return nil, fmt.Errorf("--dedupe and --no-dedupe are mutually exclusive")
	}

	if *configPath != "" {
		if err := applyFile(cfg, *configPath); err != nil {
			return nil, err
		}
	}

	if fs.Changed("format") {
		cfg.Format = *formatFlag
	}
	if fs.Changed("markup-escape") {
		cfg.MarkupEscape = true
	}
	if fs.Changed("no-markup-escape") {
		cfg.MarkupEscape = false
	}
	if fs.Changed("dedupe") {
		cfg.Dedupe = true
	}
	if fs.Changed("no-dedupe") {
		cfg.Dedupe = false
	}
	cfg.Once = *once

	logger.Info("configuration loaded",
		zap.String("format", cfg.Format),
		zap.Bool("markupEscape", cfg.MarkupEscape),
		zap.Bool("dedupe", cfg.Dedupe),
		zap.Bool("once", cfg.Once))

	return cfg, nil
}

// applyFile overlays a JSON config file onto cfg.
func applyFile(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if v.IsSet("format") {
		cfg.Format = v.GetString("format")
	}
	if v.IsSet("markup_escape") {
		cfg.MarkupEscape = v.GetBool("markup_escape")
	}
	if v.IsSet("dedupe") {
		cfg.Dedupe = v.GetBool("dedupe")
	}
	// viper already lowercases file keys; lowering again here keeps the
	// overlay landing on the defaults' keys no matter the source
	for status, glyph := range v.GetStringMapString("status_icons") {
		cfg.StatusIcons[strings.ToLower(status)] = glyph
	}
	for trigger, method := range v.GetStringMapString("mouse_buttons") {
		cfg.MouseButtons[strings.ToLower(trigger)] = method
	}
	return nil
}
