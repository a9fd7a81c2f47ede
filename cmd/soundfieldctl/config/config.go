// Package config loads soundfieldctl's viper configuration, matching the
// split cmd/config/config.go draws between viper (at the cmd/ edge) and the
// plain-struct Config the engine package itself accepts.
package config

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/spf13/viper"
)

func setViperDefaults() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")

	viper.SetDefault("backends", []string{"software_mixer"})

	viper.SetDefault("num_normal_voices", 28)
	viper.SetDefault("num_streaming_voices", 4)
	viper.SetDefault("master_gain", 1.0)
	viper.SetDefault("default_attenuation", "inverse_rolloff")
	viper.SetDefault("default_rolloff", 0.03)
	viper.SetDefault("default_fade_distance", 1000.0)
	viper.SetDefault("stream_buffer_bytes", 131072)
	viper.SetDefault("num_stream_buffers", 2)
	viper.SetDefault("max_clip_bytes", 268435456)
	viper.SetDefault("file_chunk_bytes", 1048576)
}

// LoadConfig sets defaults, then reads configFilePath if present. A missing
// file is not an error (every option already has a default); any other
// read failure panics, matching cmd/config.LoadConfig's severity.
func LoadConfig(configFilePath string) {
	setViperDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || errors.Is(err, fs.ErrNotExist) {
			slog.Info("no config file found, using defaults", "configFilePath", configFilePath)
		} else {
			slog.Error("error during config read", "err", err)
			panic(err)
		}
	}
}
