package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/framesift/framesift-sampling-service/internal/sampling"
	"go.uber.org/zap"
)

// Metadata is what the probes discover about a video source. Duration is
// authoritative input to the timestamp planner once probed.
type Metadata struct {
	Duration float64
	Width    int
	Height   int
}

// Probe discovers the video duration and its native geometry. The fast csv
// probe is attempted first; when it yields no parseable duration or no
// geometry a slower full JSON probe runs as fallback. Both failing is fatal
// for the run (sampling.ErrInvalidDuration).
func (s *BatchSampler) Probe(ctx context.Context, videoPath string) (Metadata, error) {
	out, err := s.runner.Output(ctx, s.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "csv=p=0",
		videoPath,
	)
	if err == nil {
		if meta, perr := parseFastProbe(out); perr == nil {
			return meta, nil
		}
	}

	s.logger.Debug("fast probe incomplete, falling back to full probe",
		zap.String("video", videoPath))

	out, err = s.runner.Output(ctx, s.ffprobePath,
		"-v", "error",
		"-of", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: full probe: %v", sampling.ErrInvalidDuration, err)
	}
	return parseFullProbe(out)
}

// parseFastProbe reads the csv probe output: a "width,height" line for the
// selected video stream followed by the container duration. The fast probe
// only counts when both the duration and the geometry are present; anything
// less forces the full JSON probe so FrameRecords never carry guessed
// dimensions.
func parseFastProbe(out []byte) (Metadata, error) {
	var meta Metadata
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if wRaw, hRaw, found := strings.Cut(line, ","); found {
			w, werr := strconv.Atoi(strings.TrimSpace(wRaw))
			h, herr := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(hRaw, ",")))
			if werr == nil && herr == nil {
				meta.Width, meta.Height = w, h
			}
			continue
		}
		if d, err := strconv.ParseFloat(line, 64); err == nil {
			meta.Duration = d
		}
	}
	if meta.Duration <= 0 || math.IsInf(meta.Duration, 0) || math.IsNaN(meta.Duration) {
		return Metadata{}, fmt.Errorf("no parseable duration in %q", string(out))
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return Metadata{}, fmt.Errorf("no stream geometry in %q", string(out))
	}
	return meta, nil
}

func parseFullProbe(out []byte) (Metadata, error) {
	type streamMeta struct {
		CodecType string  `json:"codec_type"`
		Duration  float64 `json:"duration,omitempty,string"`
		Width     int     `json:"width,omitempty"`
		Height    int     `json:"height,omitempty"`
	}
	probe := &struct {
		Streams []streamMeta `json:"streams"`
		Format  struct {
			Duration float64 `json:"duration,omitempty,string"`
		} `json:"format"`
	}{}

	if err := json.Unmarshal(out, probe); err != nil {
		return Metadata{}, fmt.Errorf("%w: unmarshal probe output: %v", sampling.ErrInvalidDuration, err)
	}

	meta := Metadata{Duration: probe.Format.Duration}
	for _, st := range probe.Streams {
		if st.CodecType != "video" {
			continue
		}
		meta.Width = st.Width
		meta.Height = st.Height
		// Some containers (mkv) carry duration on the stream, not the
		// format object.
		meta.Duration = math.Max(meta.Duration, st.Duration)
		break
	}

	if meta.Duration <= 0 {
		return Metadata{}, fmt.Errorf("%w: no parseable duration in probe output", sampling.ErrInvalidDuration)
	}
	return meta, nil
}
