package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Verify interface implementations at compile time.
var (
	_ Prober          = (*FFmpeg)(nil)
	_ SilenceDetector = (*FFmpeg)(nil)
	_ Clipper         = (*FFmpeg)(nil)
	_ MixEngine       = (*FFmpeg)(nil)
)

// FFmpeg implements the audio interfaces by driving the ffmpeg CLI.
type FFmpeg struct {
	ffmpegPath string
}

// NewFFmpeg creates a new FFmpeg toolbox.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpeg(ffmpegPath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath}
}

// durationRe matches the "Duration: HH:MM:SS.ms" line ffmpeg prints to stderr.
var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// Probe returns the duration of the audio at path in seconds.
func (f *FFmpeg) Probe(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return 0, fmt.Errorf("input file does not exist: %s", path)
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-i", path,
		"-hide_banner",
		"-f", "null", "-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// ffmpeg writes duration info to stderr and exits non-zero for null
	// output; the parse below decides success.
	_ = cmd.Run()

	return parseDuration(stderr.String())
}

// parseDuration extracts the duration from ffmpeg stderr output.
func parseDuration(output string) (float64, error) {
	matches := durationRe.FindStringSubmatch(output)
	if len(matches) < 5 {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output: %s", output)
	}

	hours, _ := strconv.ParseFloat(matches[1], 64)
	minutes, _ := strconv.ParseFloat(matches[2], 64)
	seconds, _ := strconv.ParseFloat(matches[3], 64)
	ms, _ := strconv.ParseFloat(matches[4], 64)

	// Handle varying fractional precision
	msDivisor := 1.0
	for i := 0; i < len(matches[4]); i++ {
		msDivisor *= 10
	}

	return hours*3600 + minutes*60 + seconds + ms/msDivisor, nil
}

// DetectSilences uses ffmpeg silencedetect to find silence intervals.
func (f *FFmpeg) DetectSilences(ctx context.Context, path string, opts SilenceOpts) ([]SilenceInterval, error) {
	filter := fmt.Sprintf("silencedetect=noise=%ddB:d=%f",
		int(opts.ThresholdDB),
		float64(opts.MinSilenceMs)/1000.0,
	)

	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-i", path,
		"-af", filter,
		"-f", "null",
		"-hide_banner",
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// silencedetect output also goes to stderr
	_ = cmd.Run()

	return parseSilenceOutput(stderr.String())
}

// parseSilenceOutput parses ffmpeg silencedetect output.
func parseSilenceOutput(output string) ([]SilenceInterval, error) {
	var intervals []SilenceInterval

	startRe := regexp.MustCompile(`silence_start:\s*([\d.]+)`)
	endRe := regexp.MustCompile(`silence_end:\s*([\d.]+)`)

	lines := strings.Split(output, "\n")
	var currentStart float64
	hasStart := false

	for _, line := range lines {
		if startMatch := startRe.FindStringSubmatch(line); len(startMatch) > 1 {
			val, err := strconv.ParseFloat(startMatch[1], 64)
			if err != nil {
				continue
			}
			currentStart = val
			hasStart = true
		}

		if endMatch := endRe.FindStringSubmatch(line); len(endMatch) > 1 && hasStart {
			val, err := strconv.ParseFloat(endMatch[1], 64)
			if err != nil {
				continue
			}
			intervals = append(intervals, SilenceInterval{
				Start: currentStart,
				End:   val,
			})
			hasStart = false
		}
	}

	return intervals, nil
}

// ExtractClip writes the [start, start+duration) range of src to dst as MP3.
func (f *FFmpeg) ExtractClip(ctx context.Context, src, dst string, start, duration float64) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", src,
		"-vn",
		"-codec:a", "libmp3lame",
		"-q:a", "4",
		dst,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// Mixdown folds the selected source segments and optional narration over a
// silent base of the full duration and encodes the result as MP3.
func (f *FFmpeg) Mixdown(ctx context.Context, in MixdownInput, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	duration := in.Duration
	if duration <= 0 {
		duration = 1
	}
	master := clamp01(in.MasterVolume)

	// Input 0: silent base of the full duration
	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=44100:cl=stereo:d=%.3f", duration),
	}

	sourceIdx := -1
	if in.SourcePath != "" {
		args = append(args, "-i", in.SourcePath)
		sourceIdx = 1
	}

	narrationIdx := -1
	if in.NarrationPath != "" {
		args = append(args, "-i", in.NarrationPath)
		narrationIdx = sourceIdx + 1
		if sourceIdx == -1 {
			narrationIdx = 1
		}
	}

	var filterParts []string
	mixInputs := []string{"[0]"}

	if sourceIdx >= 0 {
		for i, track := range in.Tracks {
			// Per-track and master volume combine multiplicatively,
			// so raising either never lowers the track level.
			level := clamp01(track.Volume) * master
			delayMs := int(track.Start * 1000)
			label := fmt.Sprintf("v%d", i+1)
			filterParts = append(filterParts, fmt.Sprintf(
				"[%d:a]atrim=start=%.3f:end=%.3f,asetpts=PTS-STARTPTS,volume=%.4f,adelay=%d|%d[%s]",
				sourceIdx, track.Start, track.End, level, delayMs, delayMs, label,
			))
			mixInputs = append(mixInputs, "["+label+"]")
		}
	}

	if narrationIdx >= 0 {
		filterParts = append(filterParts, fmt.Sprintf(
			"[%d:a]volume=%.4f[nar]", narrationIdx, master,
		))
		mixInputs = append(mixInputs, "[nar]")
	}

	amix := fmt.Sprintf("amix=inputs=%d:duration=longest:dropout_transition=0:normalize=0", len(mixInputs))
	filter := strings.Join(mixInputs, "") + amix
	if len(filterParts) > 0 {
		filter = strings.Join(filterParts, ";") + ";" + filter
	}

	args = append(args,
		"-filter_complex", filter,
		"-c:a", "libmp3lame",
		"-q:a", "2",
		outputPath,
	)

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg mix error: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
