package domain

import "strings"

// Profile is one fixed output profile for the transcoder. Each profile maps
// to a deterministic ffmpeg argument set.
type Profile struct {
	// Key is the stable cache token for this profile; cache entries live at
	// {cacheDir}/{derivedKey}.{Key}.
	Key string
	// Ext is the download file extension, including the dot.
	Ext string
	// MIME is the response content type.
	MIME string
	// Container is the output container's canonical name, used by the
	// transcoder bypass check ("mp3", "flac", "wav", "aiff", "m4a").
	Container string
	// BitDepth is the PCM bit depth for lossless profiles, 0 for lossy.
	BitDepth int
	// Lossless profiles are written to a temporary file instead of a stdout
	// pipe so the encoder can backpatch the container's duration header.
	Lossless bool
	// CodecArgs is the ffmpeg codec/format argument tail.
	CodecArgs []string
}

var profiles = map[string]Profile{
	"mp3": {
		Key: "mp3", Ext: ".mp3", MIME: "audio/mpeg", Container: "mp3",
		CodecArgs: []string{"-acodec", "libmp3lame", "-b:a", "320k", "-f", "mp3"},
	},
	"mp3-128": {
		Key: "mp3_128", Ext: ".mp3", MIME: "audio/mpeg", Container: "mp3",
		CodecArgs: []string{"-acodec", "libmp3lame", "-b:a", "128k", "-f", "mp3"},
	},
	"flac": {
		Key: "flac", Ext: ".flac", MIME: "audio/flac", Container: "flac", BitDepth: 16, Lossless: true,
		CodecArgs: []string{"-acodec", "flac", "-sample_fmt", "s16", "-f", "flac"},
	},
	"flac-24": {
		Key: "flac24", Ext: ".flac", MIME: "audio/flac", Container: "flac", BitDepth: 24, Lossless: true,
		CodecArgs: []string{"-acodec", "flac", "-sample_fmt", "s32", "-f", "flac"},
	},
	"wav": {
		Key: "wav", Ext: ".wav", MIME: "audio/wav", Container: "wav", BitDepth: 16, Lossless: true,
		CodecArgs: []string{"-acodec", "pcm_s16le", "-f", "wav"},
	},
	"wav-24": {
		Key: "wav24", Ext: ".wav", MIME: "audio/wav", Container: "wav", BitDepth: 24, Lossless: true,
		CodecArgs: []string{"-acodec", "pcm_s24le", "-f", "wav"},
	},
	"aiff": {
		Key: "aiff", Ext: ".aiff", MIME: "audio/aiff", Container: "aiff", BitDepth: 16, Lossless: true,
		CodecArgs: []string{"-acodec", "pcm_s16be", "-f", "aiff"},
	},
	"aiff-24": {
		Key: "aiff24", Ext: ".aiff", MIME: "audio/aiff", Container: "aiff", BitDepth: 24, Lossless: true,
		CodecArgs: []string{"-acodec", "pcm_s24be", "-f", "aiff"},
	},
	"alac": {
		Key: "alac", Ext: ".m4a", MIME: "audio/mp4", Container: "m4a", BitDepth: 16, Lossless: true,
		CodecArgs: []string{"-acodec", "alac", "-f", "ipod"},
	},
}

// aliases accepted on the download format query parameter.
var profileAliases = map[string]string{
	"mp3_128": "mp3-128",
	"mp3_320": "mp3",
	"mp3-320": "mp3",
	"flac-16": "flac",
	"wav-16":  "wav",
	"aiff-16": "aiff",
}

// DefaultProfile is the streaming profile: mp3 at 320 kbit/s.
func DefaultProfile() Profile {
	return profiles["mp3"]
}

// ParseProfile resolves a format name to a Profile. Unknown names fall back
// to the default mp3 profile, matching the lenient download endpoint.
func ParseProfile(name string) (Profile, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return DefaultProfile(), false
	}
	if alias, ok := profileAliases[n]; ok {
		n = alias
	}
	p, ok := profiles[n]
	if !ok {
		return DefaultProfile(), false
	}
	return p, true
}
