package audio

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/broar/playbin-cli/pkg/engine"
	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
	"github.com/spf13/afero"
)

// ErrUnknownFileFormat is an error returned when a file extension cannot be decoded by beep
var ErrUnknownFileFormat = errors.New("unknown file format")

type decoder func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]struct {
	codec  string
	decode decoder
}{
	".mp3":  {"MPEG-1 Layer 3 (MP3)", mp3.Decode},
	".wav":  {"WAV", func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(rc) }},
	".flac": {"FLAC", func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) { return flac.Decode(rc) }},
	".ogg":  {"Vorbis", vorbis.Decode},
}

// track is one decoded audio file
type track struct {
	path   string
	codec  string
	stream beep.StreamSeekCloser
	format beep.Format
}

// filePath turns a file:// URI or a plain path into a path on the filesystem
func filePath(uri string) (string, error) {
	if !strings.Contains(uri, "://") {
		return uri, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid media URI %q: %w", uri, err)
	}

	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: %s URIs are not local files", ErrUnknownFileFormat, u.Scheme)
	}

	return u.Path, nil
}

func openTrack(fs afero.Fs, uri string) (*track, error) {
	path, err := filePath(uri)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	d, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFileFormat, ext)
	}

	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	stream, format, err := d.decode(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return &track{path: path, codec: d.codec, stream: stream, format: format}, nil
}

func (t *track) position() time.Duration {
	return t.format.SampleRate.D(t.stream.Position())
}

func (t *track) length() time.Duration {
	return t.format.SampleRate.D(t.stream.Len())
}

// seek moves the track to position. Seeking directly to the length of the track returns an EOF error so the position
// is clamped to the last sample
func (t *track) seek(position time.Duration) error {
	n := t.format.SampleRate.N(position)
	if n >= t.stream.Len() {
		n = t.stream.Len() - 1
	}

	if n < 0 {
		n = 0
	}

	if err := t.stream.Seek(n); err != nil {
		return fmt.Errorf("%w: failed to seek %s to %s: %v", engine.ErrEngine, t.path, position, err)
	}

	return nil
}

func (t *track) tags() engine.Tags {
	tags := engine.Tags{Codec: t.codec}
	if t.codec == "WAV" {
		tags.Bitrate = uint(t.format.SampleRate) * uint(t.format.NumChannels) * uint(t.format.Precision) * 8
	}

	return tags
}
