package admission

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var levelPattern = regexp.MustCompile(`^\d\.\d$`)

// checkSchema walks the request in declared field order and returns the first
// field that falls outside its domain.
func checkSchema(req JobRequest) *Rejection {
	if rejection := checkInput(req); rejection != nil {
		return rejection
	}
	if req.OutputFormat != "" && !contains(outputFormats, req.OutputFormat) {
		return schemaRejection("outputFormat",
			fmt.Sprintf("outputFormat must be one of: %s", joinValues(outputFormats)))
	}
	if req.OutputOptions == nil {
		return schemaRejection("outputOptions", "outputOptions is required")
	}
	return checkOptions(*req.OutputOptions)
}

func checkInput(req JobRequest) *Rejection {
	if raw := strings.TrimSpace(req.InputURL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || !parsed.IsAbs() || (parsed.Host == "" && parsed.Path == "") {
			return schemaRejection("inputUrl", "inputUrl must be an absolute URI")
		}
	}
	return nil
}

func checkOptions(o OutputOptions) *Rejection {
	for i, res := range o.Resolutions {
		prefix := fmt.Sprintf("outputOptions.resolutions[%d]", i)
		if res.Width <= 0 {
			return schemaRejection(prefix+".width", prefix+".width must be positive")
		}
		if res.Height <= 0 {
			return schemaRejection(prefix+".height", prefix+".height must be positive")
		}
	}
	if o.VideoCodec != "" && !contains(videoCodecs, o.VideoCodec) {
		return schemaRejection("outputOptions.videoCodec",
			fmt.Sprintf("outputOptions.videoCodec must be one of: %s", joinValues(videoCodecs)))
	}
	if o.AudioCodec != "" && !contains(audioCodecs, o.AudioCodec) {
		return schemaRejection("outputOptions.audioCodec",
			fmt.Sprintf("outputOptions.audioCodec must be one of: %s", joinValues(audioCodecs)))
	}
	if o.AudioFormat != "" && !contains(audioFormats, o.AudioFormat) {
		return schemaRejection("outputOptions.audioFormat",
			fmt.Sprintf("outputOptions.audioFormat must be one of: %s", joinValues(audioFormats)))
	}
	if o.CRF != nil && (*o.CRF < crfMin || *o.CRF > crfMax) {
		return schemaRejection("outputOptions.crf",
			fmt.Sprintf("outputOptions.crf must be between %d and %d", crfMin, crfMax))
	}
	if o.Preset != "" && !contains(presets, o.Preset) {
		return schemaRejection("outputOptions.preset",
			fmt.Sprintf("outputOptions.preset must be one of: %s", joinValues(presets)))
	}
	if o.Profile != "" && !contains(profiles, o.Profile) {
		return schemaRejection("outputOptions.profile",
			fmt.Sprintf("outputOptions.profile must be one of: %s", joinValues(profiles)))
	}
	if o.Level != "" && !levelPattern.MatchString(o.Level) {
		return schemaRejection("outputOptions.level",
			`outputOptions.level must look like "4.1"`)
	}
	if o.PixelFormat != "" && !contains(pixelFormats, o.PixelFormat) {
		return schemaRejection("outputOptions.pixelFormat",
			fmt.Sprintf("outputOptions.pixelFormat must be one of: %s", joinValues(pixelFormats)))
	}
	if o.Tune != "" && !contains(tunes, o.Tune) {
		return schemaRejection("outputOptions.tune",
			fmt.Sprintf("outputOptions.tune must be one of: %s", joinValues(tunes)))
	}
	return nil
}
