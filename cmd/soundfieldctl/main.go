// Command soundfieldctl is an example CLI driving the engine package:
// loads a sound, places it in 3D space, plays it, and reports playback
// state until interrupted.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/backend/native3d"
	"github.com/fieldaudio/soundfield/backend/null"
	"github.com/fieldaudio/soundfield/backend/softwaremixer"
	"github.com/fieldaudio/soundfield/cmd/soundfieldctl/config"
	"github.com/fieldaudio/soundfield/engine"
	"github.com/fieldaudio/soundfield/geometry"
	"github.com/fieldaudio/soundfield/internal/utils"
	"github.com/spf13/viper"
)

func attenuationFromString(s string) geometry.Attenuation {
	switch s {
	case "linear":
		return geometry.AttenuationLinear
	case "none":
		return geometry.AttenuationNone
	default:
		return geometry.AttenuationInverseRolloff
	}
}

// backendsFromNames maps viper's "backends" priority list to concrete
// backend.Backend instances, in the order they should be tried by
// backend.Select. Unknown names are skipped with a warning.
func backendsFromNames(names []string, logger *slog.Logger) []backend.Backend {
	list := make([]backend.Backend, 0, len(names))
	for _, name := range names {
		switch name {
		case "native3d":
			be := native3d.New()
			be.Logger = logger
			list = append(list, be)
		case "software_mixer":
			be := softwaremixer.New()
			be.Logger = logger
			list = append(list, be)
		case "null":
			list = append(list, null.New())
		default:
			logger.Warn("unknown backend name in config, skipping", "name", name)
		}
	}
	return list
}

func engineConfigFromViper() engine.Config {
	return engine.Config{
		NumNormalVoices:     viper.GetInt("num_normal_voices"),
		NumStreamingVoices:  viper.GetInt("num_streaming_voices"),
		MasterGain:          float32(viper.GetFloat64("master_gain")),
		DefaultAttenuation:  attenuationFromString(viper.GetString("default_attenuation")),
		DefaultRolloff:      float32(viper.GetFloat64("default_rolloff")),
		DefaultFadeDistance: float32(viper.GetFloat64("default_fade_distance")),
		StreamBufferBytes:   viper.GetInt("stream_buffer_bytes"),
		NumStreamBuffers:    viper.GetInt("num_stream_buffers"),
		MaxClipBytes:        viper.GetInt("max_clip_bytes"),
		FileChunkBytes:      viper.GetInt("file_chunk_bytes"),
	}
}

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	soundFile := flag.String("file", "", "Sound file to quick-play on startup.")
	sourceName := flag.String("name", "cli-source", "Source name for the quick-played sound.")
	loop := flag.Bool("loop", false, "Loop the quick-played sound.")
	streaming := flag.Bool("streaming", false, "Use a streaming voice for the quick-played sound.")
	flag.Parse()

	config.LoadConfig(*configFilePath)
	logFilePointer, err := utils.ConfigureDefaultLogger(
		viper.GetString("loglevel"),
		viper.GetString("logfile"),
		slog.HandlerOptions{},
	)
	if err != nil {
		slog.Error("error while configuring default logger", "err", err)
		panic(err)
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	// --------------------------------------------------------------------------------

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	signalCtx, signalCancel := context.WithCancel(context.Background())
	go func() {
		<-sigs
		signal.Reset()
		signalCancel()
	}()

	// --------------------------------------------------------------------------------

	priorityList := backendsFromNames(viper.GetStringSlice("backends"), slog.Default())
	e, err := engine.New(engineConfigFromViper(), priorityList, null.New(), slog.Default())
	if err != nil {
		slog.Error("failed to start engine", "err", err)
		panic(err)
	}
	defer e.Shutdown()

	if *soundFile != "" {
		if err := e.QuickPlay(*sourceName, engine.SourceOpts{
			File:      *soundFile,
			Streaming: *streaming,
			Looping:   *loop,
		}); err != nil {
			slog.Error("quick_play rejected", "err", err)
		}
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-signalCtx.Done():
			slog.Info("shutting down")
			return
		case <-ticker.C:
			slog.Info("status", "sources", e.ListSources(), "playing", *soundFile != "" && e.Playing(*sourceName))
		}
	}
}
