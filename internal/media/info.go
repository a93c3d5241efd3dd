package media

import (
	"fmt"
	"math"
)

type VideoInfo struct {
	FPS        float64 `json:"fps"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FrameCount int     `json:"frame_count"`
	Duration   float64 `json:"duration"`
}

// NewVideoInfo derives Duration from the frame count. An fps that is not a positive
// number yields a zero duration instead of a division by zero.
func NewVideoInfo(fps float64, width, height, frameCount int) VideoInfo {
	if frameCount < 0 {
		frameCount = 0
	}
	info := VideoInfo{FPS: fps, Width: width, Height: height, FrameCount: frameCount}
	if fps > 0 && !math.IsInf(fps, 0) {
		info.Duration = float64(frameCount) / fps
	} else {
		info.FPS = 0
	}
	return info
}

// FrameAt maps a timestamp in seconds to floor(ts*fps).
func (v VideoInfo) FrameAt(ts float64) (int, bool) {
	if v.FPS <= 0 {
		return 0, false
	}
	return int(math.Floor(ts * v.FPS)), true
}

// TimestampOf is the presentation time of a frame index, 0 when the rate is unknown.
func (v VideoInfo) TimestampOf(index int) float64 {
	if v.FPS <= 0 {
		return 0
	}
	return float64(index) / v.FPS
}

func (v VideoInfo) Contains(index int) bool {
	return index >= 0 && index < v.FrameCount
}

func (v VideoInfo) Resolution() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}
