package admission

// Rule is one cross-field compatibility constraint. Violated must be a pure
// function of the options; it is only called after schema validation passed.
type Rule struct {
	Code     string
	Field    string
	Message  string
	Violated func(OutputOptions) bool
}

const (
	CodeCRFTwoPass        = "crf_two_pass"
	CodeProfileLevelCodec = "profile_level_codec"
	CodeTenBitCodec       = "ten_bit_codec"
	CodeCopyVideoEncoding = "copy_video_encoding"
	CodeCopyAudioBitrate  = "copy_audio_bitrate"
)

const (
	MessageCRFTwoPass        = "CRF and two-pass encoding cannot be used together."
	MessageProfileLevelCodec = "Profile and level settings only apply to H.264/H.265 codecs."
	MessageTenBitCodec       = "10-bit pixel formats require H.265, VP9, or AV1 codec."
	MessageCopyVideoEncoding = "Video encoding options cannot be applied when the video stream is copied."
	MessageCopyAudioBitrate  = "Audio bitrate cannot be applied when the audio stream is copied."
)

// DefaultRules returns the built-in rule table in evaluation order. The slice
// is freshly allocated on every call.
func DefaultRules() []Rule {
	return []Rule{
		{
			Code:    CodeCRFTwoPass,
			Field:   "outputOptions.twoPass",
			Message: MessageCRFTwoPass,
			Violated: func(o OutputOptions) bool {
				return o.HasCRF() && o.TwoPass
			},
		},
		{
			Code:    CodeProfileLevelCodec,
			Field:   "outputOptions.profile",
			Message: MessageProfileLevelCodec,
			Violated: func(o OutputOptions) bool {
				switch o.VideoCodec {
				case VideoVP8, VideoVP9, VideoAV1:
					return o.Profile != "" || o.Level != ""
				}
				return false
			},
		},
		{
			Code:    CodeTenBitCodec,
			Field:   "outputOptions.pixelFormat",
			Message: MessageTenBitCodec,
			Violated: func(o OutputOptions) bool {
				return o.IsTenBit() && o.VideoCodec == VideoH264
			},
		},
	}
}

// StreamCopyRules returns stricter checks for stream-copy outputs. They are
// not part of DefaultRules; register them with NewValidator or With when the
// worker should refuse encoder settings that a copied stream would ignore.
func StreamCopyRules() []Rule {
	return []Rule{
		{
			Code:    CodeCopyVideoEncoding,
			Field:   "outputOptions.videoCodec",
			Message: MessageCopyVideoEncoding,
			Violated: func(o OutputOptions) bool {
				if o.VideoCodec != VideoCopy {
					return false
				}
				return o.HasCRF() || o.TwoPass || o.Preset != "" || o.Profile != "" ||
					o.Level != "" || o.PixelFormat != "" || o.Tune != ""
			},
		},
		{
			Code:    CodeCopyAudioBitrate,
			Field:   "outputOptions.audioBitrate",
			Message: MessageCopyAudioBitrate,
			Violated: func(o OutputOptions) bool {
				return o.AudioCodec == AudioCopy && o.AudioBitrate != ""
			},
		},
	}
}
