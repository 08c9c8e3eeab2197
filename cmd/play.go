package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/broar/playbin-cli/pkg/console"
	"github.com/broar/playbin-cli/pkg/dashboard"
	"github.com/broar/playbin-cli/pkg/engine"
	"github.com/broar/playbin-cli/pkg/engine/audio"
	"github.com/broar/playbin-cli/pkg/engine/mpv"
	"github.com/broar/playbin-cli/pkg/log"
	"github.com/broar/playbin-cli/pkg/resolve"
	"github.com/broar/playbin-cli/pkg/session"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

const (
	defaultTimeout = 1 * time.Minute

	keyEngine          = "engine"
	keySubtitleURI     = "subtitle.uri"
	keySubtitleFont    = "subtitle.font"
	keyTracks          = "tracks"
	keyConnectionSpeed = "connection-speed"
	keyDigits          = "digits"
	keyAudioFiles      = "audio-files"
	keySeekAfter       = "seek.after"
	keySeekTo          = "seek.to"
	keyPollTimeout     = "poll-timeout"
	keyResolve         = "resolve"
	keyPlain           = "plain"
	keyMPVBinary       = "mpv.binary"
	keyLogsWrite       = "logs.write"
	keyLogsDir         = "logs.dir"
	keyLogsJSON        = "logs.json"
	keyLogsLevel       = "logs.level"
)

// ErrUnknownEngine is returned when the configured engine does not exist
var ErrUnknownEngine = errors.New("unknown engine")

var playCmd = &cobra.Command{
	Use:   "play uri",
	Short: "Play a media URI or local file",
	Long: `Play a media URI or local file until it ends or is stopped.

While playing, digits select the audio (or subtitle, see --digits) stream with that index.
Press Escape or Ctrl+C to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return play(cmd.Context(), viper.GetViper(), args[0])
	},
	Args: cobra.ExactArgs(1),
}

func init() {
	rootCmd.AddCommand(playCmd)

	flags := playCmd.Flags()
	flags.String("engine", mpv.Name, fmt.Sprintf("Playback engine. Allowed engines: [%s, %s]", mpv.Name, audio.Name))
	flags.String("suburi", "", "External subtitle file added as a subtitle stream")
	flags.String("subtitle-font", "", `Subtitle font description, e.g. "Sans, 18"`)
	flags.StringSlice("tracks", []string{"video", "audio", "text"}, "Stream kinds to render")
	flags.Uint64("connection-speed", 0, "Available network bandwidth in kbit/s, 0 when unknown")
	flags.String("digits", engine.TrackAudio.String(), "Stream kind selected by the digit keys. Allowed kinds: [audio, text]")
	flags.StringSlice("audio-file", nil, "External file added as an alternate audio stream. May be repeated")
	flags.Duration("seek-after", 0, "Position after which playback jumps once to --seek-to")
	flags.Duration("seek-to", 0, "Position jumped to once --seek-after has passed")
	flags.Duration("poll-timeout", session.DefaultPollTimeout, "Bound on each wait for an engine event")
	flags.Bool("resolve", false, "Look up the media embedded in an http(s) page before playing")
	flags.Bool("plain", false, "Write plain lines instead of drawing a dashboard")
	flags.String("mpv-binary", mpv.DefaultBinary, "mpv executable used by the mpv engine")

	bindings := map[string]string{
		keyEngine:          "engine",
		keySubtitleURI:     "suburi",
		keySubtitleFont:    "subtitle-font",
		keyTracks:          "tracks",
		keyConnectionSpeed: "connection-speed",
		keyDigits:          "digits",
		keyAudioFiles:      "audio-file",
		keySeekAfter:       "seek-after",
		keySeekTo:          "seek-to",
		keyPollTimeout:     "poll-timeout",
		keyResolve:         "resolve",
		keyPlain:           "plain",
		keyMPVBinary:       "mpv-binary",
	}

	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetDefault(keyLogsDir, filepath.Join("~", ".playbin", "logs"))
	viper.SetDefault(keyLogsLevel, logrus.InfoLevel.String())
}

func play(ctx context.Context, v *viper.Viper, uri string) error {
	cfg, err := buildConfig(v, uri)
	if err != nil {
		return &ExitError{Code: exitStartup, Err: err}
	}

	logger, closer, err := setupLogger(v)
	if err != nil {
		return &ExitError{Code: exitStartup, Err: err}
	}

	defer closer.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if v.GetBool(keyResolve) {
		resolved, err := resolveURI(ctx, cfg.Engine.URI)
		if err != nil {
			return &ExitError{Code: exitStartup, Err: err}
		}

		logger.WithFields(logrus.Fields{"page": cfg.Engine.URI, "media": resolved}).Info("resolved media page")
		cfg.Engine.URI = resolved
	}

	open, err := opener(v, logger)
	if err != nil {
		return &ExitError{Code: exitStartup, Err: err}
	}

	reporter := console.NewReporter(os.Stdout, os.Stderr)
	deps := session.Dependencies{
		Open:     open,
		Reporter: reporter,
		Logger:   logger,
	}

	if !v.GetBool(keyPlain) && isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		db, err := dashboard.NewTerminalDashboard(
			dashboard.WithTitle(fmt.Sprintf("Playing %s", cfg.Engine.URI)),
			dashboard.WithFallback(reporter),
		)
		if err != nil {
			return &ExitError{Code: exitStartup, Err: fmt.Errorf("failed to create terminal dashboard: %w", err)}
		}

		deps.Reporter = db
		deps.Terminal = db
	}

	result, err := session.Run(ctx, cfg, deps)
	if err != nil {
		return &ExitError{Code: exitStartup, Err: err}
	}

	return resultError(result)
}

// buildConfig reads the session configuration of uri from v
func buildConfig(v *viper.Viper, uri string) (session.Config, error) {
	uri, err := mediaURI(uri)
	if err != nil {
		return session.Config{}, err
	}

	cfg := session.DefaultConfig(uri)

	if names := v.GetStringSlice(keyTracks); len(names) > 0 {
		if cfg.Engine.Tracks, err = engine.ParseTrackKinds(names); err != nil {
			return session.Config{}, fmt.Errorf("invalid tracks: %w", err)
		}
	}

	if digits := v.GetString(keyDigits); digits != "" {
		if cfg.DigitTarget, err = engine.ParseTrackKind(digits); err != nil {
			return session.Config{}, fmt.Errorf("invalid digits: %w", err)
		}
	}

	if subtitle := v.GetString(keySubtitleURI); subtitle != "" {
		if subtitle, err = mediaURI(subtitle); err != nil {
			return session.Config{}, err
		}

		cfg.Engine.SubtitleURI = mo.Some(subtitle)
	}

	if font := v.GetString(keySubtitleFont); font != "" {
		cfg.Engine.SubtitleFont = mo.Some(font)
	}

	if speed := v.GetUint64(keyConnectionSpeed); speed > 0 {
		cfg.Engine.ConnectionSpeed = mo.Some(speed)
	}

	for _, file := range v.GetStringSlice(keyAudioFiles) {
		file, err = mediaURI(file)
		if err != nil {
			return session.Config{}, err
		}

		cfg.Engine.AudioFiles = append(cfg.Engine.AudioFiles, file)
	}

	if v.IsSet(keySeekTo) {
		cfg.Seek = session.SeekPolicy{
			Enabled: true,
			After:   v.GetDuration(keySeekAfter),
			To:      v.GetDuration(keySeekTo),
		}
	}

	if timeout := v.GetDuration(keyPollTimeout); timeout != 0 {
		cfg.PollTimeout = timeout
	}

	return cfg, cfg.Validate()
}

// mediaURI turns a local path into a file URI. Anything with a scheme is returned unchanged
func mediaURI(location string) (string, error) {
	if strings.Contains(location, "://") {
		return location, nil
	}

	path, err := homedir.Expand(location)
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", location, err)
	}

	path, err = filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to find absolute path of %q: %w", location, err)
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(), nil
}

func setupLogger(v *viper.Viper) (*logrus.Logger, io.Closer, error) {
	dir, err := homedir.Expand(v.GetString(keyLogsDir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to expand log directory: %w", err)
	}

	return log.Setup(fs, log.Options{
		Write: v.GetBool(keyLogsWrite),
		Dir:   dir,
		JSON:  v.GetBool(keyLogsJSON),
		Level: v.GetString(keyLogsLevel),
	})
}

func resolveURI(ctx context.Context, uri string) (string, error) {
	resolver, err := resolve.NewResolver(resolve.WithHTTPClient(&http.Client{Timeout: defaultTimeout}))
	if err != nil {
		return "", err
	}

	resolved, err := resolver.Resolve(ctx, uri)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", uri, err)
	}

	return resolved, nil
}

func opener(v *viper.Viper, logger logrus.FieldLogger) (engine.Opener, error) {
	switch name := v.GetString(keyEngine); name {
	case mpv.Name:
		return mpv.Opener(mpv.WithBinary(v.GetString(keyMPVBinary)), mpv.WithLogger(logger)), nil
	case audio.Name:
		return audio.Opener(audio.WithFs(fs)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// resultError returns the error a finished session exits with, or nil when it stopped cleanly. The failure of a
// session is carried so it is printed once the dashboard has been torn down
func resultError(result session.Result) error {
	code := exitCode(result)
	if code == exitOK {
		return nil
	}

	if result.Phase == session.PhaseFailed && result.Err != nil {
		return &ExitError{Code: code, Err: result.Err}
	}

	return &ExitError{Code: code}
}

// exitCode maps the end of a session to the process exit code
func exitCode(result session.Result) int {
	if result.Phase == session.PhaseFailed || result.Teardown != nil {
		return exitFailed
	}

	return exitOK
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
