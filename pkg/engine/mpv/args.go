package mpv

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/broar/playbin-cli/pkg/engine"
)

// ErrInvalidTarget is returned when a media or subtitle URI cannot be passed to mpv safely
var ErrInvalidTarget = errors.New("invalid media target")

// Font is a subtitle font parsed from a Pango style description such as "Sans, 18" or "DejaVu Sans Bold 14"
type Font struct {
	Family string
	Size   int
}

// ParseFont splits a font description into its family and a trailing point size. The size is zero when absent
func ParseFont(description string) Font {
	description = strings.TrimSpace(description)
	i := strings.LastIndexAny(description, " ,")
	if i < 0 {
		return Font{Family: description}
	}

	size, err := strconv.Atoi(description[i+1:])
	if err != nil || size <= 0 {
		return Font{Family: strings.TrimRight(description, ", ")}
	}

	return Font{Family: strings.TrimRight(description[:i], ", "), Size: size}
}

// sanitizeTarget checks that a URI is not mistaken for a flag by mpv
func sanitizeTarget(target string) (string, error) {
	t := strings.TrimSpace(target)
	if t == "" {
		return "", fmt.Errorf("%w: empty URI", ErrInvalidTarget)
	}

	if strings.ContainsAny(t, "\x00\n\r") {
		return "", fmt.Errorf("%w: control characters in %q", ErrInvalidTarget, t)
	}

	if strings.HasPrefix(t, "-") {
		return "", fmt.Errorf("%w: %q looks like a flag", ErrInvalidTarget, t)
	}

	if strings.Contains(t, "://") {
		if _, err := url.Parse(t); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
		}
	}

	return t, nil
}

// buildArgs returns the mpv command line for cfg. mpv starts paused and idles after the media ends so the process
// outlives the media until it is told to quit
func buildArgs(cfg engine.Config, socketPath string) ([]string, error) {
	target, err := sanitizeTarget(cfg.URI)
	if err != nil {
		return nil, err
	}

	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--pause",
		"--force-window=" + yesNo(cfg.Tracks.Has(engine.TrackVideo)),
		fmt.Sprintf("--input-ipc-server=%s", socketPath),
	}

	for _, kind := range cfg.Tracks.Disabled().Kinds() {
		args = append(args, "--"+trackProperty(kind)+"=no")
	}

	if uri, ok := cfg.SubtitleURI.Get(); ok {
		subtitle, err := sanitizeTarget(uri)
		if err != nil {
			return nil, fmt.Errorf("subtitle: %w", err)
		}

		args = append(args, "--sub-file="+subtitle)
	}

	if description, ok := cfg.SubtitleFont.Get(); ok {
		font := ParseFont(description)
		if font.Family != "" {
			args = append(args, "--sub-font="+font.Family)
		}

		if font.Size > 0 {
			args = append(args, fmt.Sprintf("--sub-font-size=%d", font.Size))
		}
	}

	if speed, ok := cfg.ConnectionSpeed.Get(); ok {
		args = append(args, fmt.Sprintf("--hls-bitrate=%d", speed*1000))
	}

	for _, file := range cfg.AudioFiles {
		audio, err := sanitizeTarget(file)
		if err != nil {
			return nil, fmt.Errorf("audio file: %w", err)
		}

		args = append(args, "--audio-file="+audio)
	}

	return append(args, "--", target), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}
