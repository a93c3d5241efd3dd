package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	testCases := []struct {
		name      string
		output    string
		wantFPS   float64
		wantCount int
		wantErr   bool
	}{
		{
			name:      "nb_frames present",
			output:    `{"streams":[{"width":1280,"height":720,"r_frame_rate":"30/1","avg_frame_rate":"30000/1001","nb_frames":"300","duration":"10.01"}],"format":{"duration":"10.01"}}`,
			wantFPS:   30000.0 / 1001.0,
			wantCount: 300,
		},
		{
			name:      "count from stream duration",
			output:    `{"streams":[{"width":640,"height":360,"r_frame_rate":"25/1","avg_frame_rate":"0/0","duration":"4.0"}],"format":{}}`,
			wantFPS:   25,
			wantCount: 100,
		},
		{
			name:      "count from format duration",
			output:    `{"streams":[{"width":640,"height":360,"r_frame_rate":"24/1","avg_frame_rate":"24/1","nb_frames":"N/A"}],"format":{"duration":"2.5"}}`,
			wantFPS:   24,
			wantCount: 60,
		},
		{
			name:      "unknown rate",
			output:    `{"streams":[{"width":640,"height":360,"r_frame_rate":"0/0","avg_frame_rate":"0/0"}],"format":{"duration":"2.5"}}`,
			wantFPS:   0,
			wantCount: 0,
		},
		{name: "no video stream", output: `{"streams":[],"format":{}}`, wantErr: true},
		{name: "garbage", output: `not json`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info, err := parseProbe([]byte(tc.output))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.wantFPS, info.FPS, 1e-9)
			assert.Equal(t, tc.wantCount, info.FrameCount)
			assert.GreaterOrEqual(t, info.Duration, 0.0)
		})
	}
}

func TestParseRate(t *testing.T) {
	assert.Equal(t, 30.0, parseRate("30/1"))
	assert.Equal(t, 12.5, parseRate("12.5"))
	assert.Equal(t, 0.0, parseRate("1/0"))
	assert.Equal(t, 0.0, parseRate("abc"))
	assert.Equal(t, 0.0, parseRate(""))
}

func TestFFmpegArgs(t *testing.T) {
	args := DecodeFrameArgs("/videos/a.mp4", 1.5)
	assert.Subset(t, args, []string{"-ss", "1.500000", "-i", "/videos/a.mp4", "-frames:v", "1", "rawvideo", "bgr24", "pipe:"})
	assert.Less(t, indexOf(args, "-ss"), indexOf(args, "-i"), "seek must be an input option")
	assert.Equal(t, "pipe:", args[len(args)-1])

	stream := DecodeStreamArgs("/videos/a.mp4", 0)
	assert.NotContains(t, stream, "-ss")
	assert.Contains(t, stream, "passthrough")

	enc := EncodeArgs("/out/seg.mp4", 320, 240, 29.97)
	assert.Subset(t, enc, []string{"-s", "320x240", "-r", "29.97", "-i", "pipe:", "mpeg4", "yuv420p", "/out/seg.mp4", "-y"})
	assert.Less(t, indexOf(enc, "-i"), indexOf(enc, "/out/seg.mp4"))

	probe := ProbeArgs("/videos/a.mp4")
	assert.Equal(t, "/videos/a.mp4", probe[len(probe)-1])
	assert.Contains(t, probe, "json")
}

func indexOf(args []string, value string) int {
	for i, a := range args {
		if a == value {
			return i
		}
	}
	return -1
}
