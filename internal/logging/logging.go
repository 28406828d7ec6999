package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	LevelKey   = "log.level"
	FormatKey  = "log.format"
	NoColorKey = "log.no_color"

	FormatJSON    = "json"
	FormatConsole = "console"
)

// InitDefault sets up a console logger at info level, used until flags are parsed.
func InitDefault() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = newLogger(os.Stderr, FormatConsole, !isatty.IsTerminal(os.Stderr.Fd()))
	zerolog.DefaultContextLogger = &log.Logger
}

// Init configures the global logger from the log.* viper keys. out defaults to stderr.
func Init(out io.Writer) {
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString(LevelKey)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	noColor := viper.GetBool(NoColorKey)
	if f, ok := out.(*os.File); ok && !isatty.IsTerminal(f.Fd()) {
		noColor = true
	}

	log.Logger = newLogger(out, viper.GetString(FormatKey), noColor)
	zerolog.DefaultContextLogger = &log.Logger

	if err != nil {
		log.Warn().Str("level", viper.GetString(LevelKey)).Msg("unknown log level, using info")
	}
}

func newLogger(out io.Writer, format string, noColor bool) zerolog.Logger {
	if strings.EqualFold(format, FormatJSON) {
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: time.Kitchen,
	}).With().Timestamp().Logger()
}
