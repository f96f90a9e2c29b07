// Package config loads bounce settings from environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds render settings. Command line flags override these values.
type Config struct {
	BufferSize int
	SampleRate int

	// Output encoding.
	BitDepth int
	BitRate  int // mp3 kbps
	Quality  int // lame quality, 0 is best

	TailCeiling time.Duration
	// VST2 scan paths in addition to platform defaults.
	ScanPaths []string
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		BufferSize:  envInt("BOUNCE_BUFFER_SIZE", 256),
		SampleRate:  envInt("BOUNCE_SAMPLE_RATE", 48000),
		BitDepth:    envInt("BOUNCE_BIT_DEPTH", 16),
		BitRate:     envInt("BOUNCE_BIT_RATE", 192),
		Quality:     envInt("BOUNCE_MP3_QUALITY", 2),
		TailCeiling: time.Duration(envFloat("BOUNCE_TAIL_CEILING", 5) * float64(time.Second)),
		ScanPaths:   envList("VST_PATH"),
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envList splits the value with OS path list separator.
func envList(key string) []string {
	var list []string
	for _, v := range filepath.SplitList(os.Getenv(key)) {
		if v != "" {
			list = append(list, v)
		}
	}
	return list
}
