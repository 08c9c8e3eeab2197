package session

import (
	"fmt"
	"time"

	"github.com/broar/playbin-cli/pkg/engine"
	"github.com/samber/mo"
)

// Reporter receives the human readable output of a session. Implementations must be safe for concurrent use
type Reporter interface {

	// Progress reports the current position of a playing session
	Progress(progress Progress)

	// StreamsAnalyzed reports the streams found once playback started
	StreamsAnalyzed(report StreamReport)

	// Info reports a notable but expected occurrence
	Info(text string)

	// Error reports a failure
	Error(text string)
}

type nopReporter struct{}

func (nopReporter) Progress(Progress)            {}
func (nopReporter) StreamsAnalyzed(StreamReport) {}
func (nopReporter) Info(string)                  {}
func (nopReporter) Error(string)                 {}

// Progress is a position within media of a possibly unknown duration
type Progress struct {
	Position time.Duration
	Duration mo.Option[time.Duration]
}

func (p Progress) String() string {
	return fmt.Sprintf("Position %s / %s", FormatTime(p.Position), FormatOptionalTime(p.Duration))
}

// FormatTime formats a duration as a stopwatch time rounded to the nearest second, e.g. 1:05
func FormatTime(duration time.Duration) string {
	seconds := int(duration.Round(time.Second).Seconds())
	return fmt.Sprintf("%01d:%02d", seconds/60, seconds%60)
}

// FormatOptionalTime formats a duration like FormatTime or as --:-- when it is unknown
func FormatOptionalTime(duration mo.Option[time.Duration]) string {
	d, ok := duration.Get()
	if !ok {
		return "--:--"
	}

	return FormatTime(d)
}

// StreamInfo describes one stream found during stream analysis
type StreamInfo struct {
	Index int
	Tags  mo.Option[engine.Tags]
}

// StreamReport is the result of the analysis performed when a session starts playing
type StreamReport struct {
	Video []StreamInfo
	Audio []StreamInfo
	Text  []StreamInfo

	// Current holds the stream index the engine is playing for each kind
	Current TrackSelection

	// DigitTarget is the track kind selected with the digit keys
	DigitTarget engine.TrackKind

	// Interactive is set when keys are read during the session. The digit key hint is only rendered then
	Interactive bool
}

// Lines renders the report as console lines
func (r StreamReport) Lines() []string {
	lines := []string{
		fmt.Sprintf("%d video stream(s), %d audio stream(s), %d subtitle stream(s)", len(r.Video), len(r.Audio), len(r.Text)),
	}

	for _, stream := range r.Video {
		if tags, ok := stream.Tags.Get(); ok {
			lines = append(lines, fmt.Sprintf("video stream %d:", stream.Index))
			lines = appendTag(lines, "codec", tags.Codec)
		}
	}

	for _, stream := range r.Audio {
		if tags, ok := stream.Tags.Get(); ok {
			lines = append(lines, fmt.Sprintf("audio stream %d:", stream.Index))
			lines = appendTag(lines, "codec", tags.Codec)
			lines = appendTag(lines, "language", tags.Language)
			if tags.Bitrate > 0 {
				lines = appendTag(lines, "bitrate", fmt.Sprint(tags.Bitrate))
			}
		}
	}

	for _, stream := range r.Text {
		tags, ok := stream.Tags.Get()
		if !ok {
			lines = append(lines, fmt.Sprintf("no tags found for subtitle stream %d", stream.Index))
			continue
		}

		lines = append(lines, fmt.Sprintf("subtitle stream %d:", stream.Index))
		lines = appendTag(lines, "language", tags.Language)
	}

	lines = append(lines,
		fmt.Sprintf("Currently playing video stream %d, audio stream %d, subtitle stream %d", r.Current.Video, r.Current.Audio, r.Current.Text),
	)

	if !r.Interactive {
		return lines
	}

	return append(lines, fmt.Sprintf("Type any number to select a different %s stream", r.DigitTarget.Label()))
}

func appendTag(lines []string, name, value string) []string {
	if value == "" {
		return lines
	}

	return append(lines, fmt.Sprintf("    %s: %s", name, value))
}
