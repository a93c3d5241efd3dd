package media

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

type probeStream struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

var errNoVideoStream = errors.New("no video stream")

// parseProbe reads `ffprobe -of json` output for the first video stream. The frame
// count comes from nb_frames when the container records it, otherwise from duration*fps.
func parseProbe(data []byte) (VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return VideoInfo{}, err
	}
	if len(out.Streams) == 0 {
		return VideoInfo{}, errNoVideoStream
	}
	stream := out.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return VideoInfo{}, errNoVideoStream
	}

	fps := parseRate(stream.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(stream.RFrameRate)
	}

	frameCount, err := strconv.Atoi(strings.TrimSpace(stream.NbFrames))
	if err != nil || frameCount <= 0 {
		frameCount = 0
		duration := parseSeconds(stream.Duration)
		if duration <= 0 {
			duration = parseSeconds(out.Format.Duration)
		}
		if duration > 0 && fps > 0 {
			frameCount = int(math.Round(duration * fps))
		}
	}

	return NewVideoInfo(fps, stream.Width, stream.Height, frameCount), nil
}

// parseRate parses "num/den" or a plain number; invalid or zero-denominator rates give 0.
func parseRate(rate string) float64 {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return 0
	}
	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseSeconds(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
