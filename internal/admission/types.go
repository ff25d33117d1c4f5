package admission

import "strings"

// OutputFormat is the container or streaming format of the transcoded output.
type OutputFormat string

const (
	FormatMP4  OutputFormat = "mp4"
	FormatWebM OutputFormat = "webm"
	FormatMOV  OutputFormat = "mov"
	FormatAVI  OutputFormat = "avi"
	FormatMKV  OutputFormat = "mkv"
	FormatHLS  OutputFormat = "hls"
	FormatDASH OutputFormat = "dash"
)

// VideoCodec names the video encoder family, or copy for stream passthrough.
type VideoCodec string

const (
	VideoH264 VideoCodec = "h264"
	VideoH265 VideoCodec = "h265"
	VideoVP8  VideoCodec = "vp8"
	VideoVP9  VideoCodec = "vp9"
	VideoAV1  VideoCodec = "av1"
	VideoCopy VideoCodec = "copy"
)

// AudioCodec names the audio encoder, or copy for stream passthrough.
type AudioCodec string

const (
	AudioAAC    AudioCodec = "aac"
	AudioMP3    AudioCodec = "mp3"
	AudioOpus   AudioCodec = "opus"
	AudioVorbis AudioCodec = "vorbis"
	AudioCopy   AudioCodec = "copy"
)

// AudioFormat is the container used when audio is extracted to its own file.
type AudioFormat string

const (
	AudioFormatMP3  AudioFormat = "mp3"
	AudioFormatAAC  AudioFormat = "aac"
	AudioFormatWAV  AudioFormat = "wav"
	AudioFormatOpus AudioFormat = "opus"
	AudioFormatNone AudioFormat = "none"
)

var (
	outputFormats = []OutputFormat{FormatMP4, FormatWebM, FormatMOV, FormatAVI, FormatMKV, FormatHLS, FormatDASH}
	videoCodecs   = []VideoCodec{VideoH264, VideoH265, VideoVP8, VideoVP9, VideoAV1, VideoCopy}
	audioCodecs   = []AudioCodec{AudioAAC, AudioMP3, AudioOpus, AudioVorbis, AudioCopy}
	audioFormats  = []AudioFormat{AudioFormatMP3, AudioFormatAAC, AudioFormatWAV, AudioFormatOpus, AudioFormatNone}

	presets = []string{
		"ultrafast", "superfast", "veryfast", "faster", "fast",
		"medium", "slow", "slower", "veryslow",
	}
	profiles     = []string{"baseline", "main", "high"}
	pixelFormats = []string{
		"yuv420p", "yuv422p", "yuv444p",
		"yuv420p10le", "yuv422p10le", "yuv444p10le",
	}
	tunes = []string{"film", "animation", "grain", "stillimage", "fastdecode", "zerolatency"}
)

const (
	crfMin = 0
	crfMax = 51

	tenBitSuffix = "10le"
)

// Resolution is one output rendition size.
type Resolution struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Label  string `json:"label"`
}

// OutputOptions carries every encoding knob a client may set. Empty strings
// and nil pointers mean "not set".
type OutputOptions struct {
	Resolutions  []Resolution `json:"resolutions,omitempty"`
	VideoBitrate string       `json:"videoBitrate,omitempty"`
	AudioBitrate string       `json:"audioBitrate,omitempty"`
	VideoCodec   VideoCodec   `json:"videoCodec,omitempty"`
	AudioCodec   AudioCodec   `json:"audioCodec,omitempty"`
	FPS          *int         `json:"fps,omitempty"`
	ExtractAudio bool         `json:"extractAudio"`
	AudioFormat  AudioFormat  `json:"audioFormat,omitempty"`
	CRF          *int         `json:"crf,omitempty"`
	Preset       string       `json:"preset,omitempty"`
	Profile      string       `json:"profile,omitempty"`
	Level        string       `json:"level,omitempty"`
	PixelFormat  string       `json:"pixelFormat,omitempty"`
	TwoPass      bool         `json:"twoPass"`
	Tune         string       `json:"tune,omitempty"`
}

// JobRequest is the admission payload handed over by the API layer.
type JobRequest struct {
	InputURL      string         `json:"inputUrl,omitempty"`
	InputFileName string         `json:"inputFileName,omitempty"`
	OutputFormat  OutputFormat   `json:"outputFormat,omitempty"`
	OutputOptions *OutputOptions `json:"outputOptions"`
}

// HasCRF reports whether a constant rate factor was requested.
func (o OutputOptions) HasCRF() bool { return o.CRF != nil }

// IsTenBit reports whether the requested pixel format carries 10-bit samples.
func (o OutputOptions) IsTenBit() bool {
	return strings.HasSuffix(strings.TrimSpace(o.PixelFormat), tenBitSuffix)
}

// WithDefaults returns a copy with documented defaults applied to unset fields.
func (o OutputOptions) WithDefaults() OutputOptions {
	if o.AudioFormat == "" {
		o.AudioFormat = AudioFormatNone
	}
	return o
}

func contains[T ~string](values []T, candidate T) bool {
	for _, v := range values {
		if v == candidate {
			return true
		}
	}
	return false
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
