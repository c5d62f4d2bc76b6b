// Overlay stabilization diagnostic CLI: runs the engine against a live
// camera or a video file and logs the compensation offsets it produces.
package main

import (
	"flag"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"overlay-stabilization/internal/capture"
	"overlay-stabilization/internal/stabilize"
)

func main() {
	deviceID := flag.Int("device", 0, "Capture device index")
	filePath := flag.String("file", "", "Video file to stabilize instead of a device")
	maxFrames := flag.Int("frames", 0, "Stop after this many frames (0 = run until the stream ends)")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	flag.Parse()

	logger := initLogger(*debugMode)
	sessionID := uuid.New().String()
	log := logger.WithField("session_id", sessionID)

	source, err := openSource(*deviceID, *filePath)
	if err != nil {
		log.WithError(err).Fatal("Failed to open frame source")
	}
	defer source.Close()

	cfg := stabilize.DefaultConfig()
	engine, err := stabilize.New(cfg,
		stabilize.WithLogger(log),
		stabilize.WithResetHandler(func(reason stabilize.ResetReason) {
			log.WithField("reason", reason.String()).Info("Tracking reinitialized")
		}),
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to build stabilizer")
	}

	log.WithFields(logrus.Fields{
		"source":     source.Label(),
		"downsample": cfg.DownsampleFactor,
		"features":   cfg.MaxFeatures,
	}).Info("Starting stabilization")

	processed := 0
	for *maxFrames == 0 || processed < *maxFrames {
		frame, err := source.Read()
		if err != nil {
			log.WithError(err).Info("Stream ended")
			break
		}

		offset, err := engine.Process(frame, nil)
		if err != nil {
			log.WithError(err).Error("Frame rejected")
			continue
		}
		processed++

		if processed%30 == 0 {
			status := engine.Status()
			log.WithFields(logrus.Fields{
				"frame":    processed,
				"dx":       offset.DX,
				"dy":       offset.DY,
				"features": status.FeatureCount,
			}).Info("Compensation offset")
		}
	}

	status := engine.Status()
	log.WithFields(logrus.Fields{
		"frames":   processed,
		"dx":       status.CumulativeDX,
		"dy":       status.CumulativeDY,
		"features": status.FeatureCount,
	}).Info("Stabilization finished")
}

func openSource(deviceID int, filePath string) (*capture.Source, error) {
	if filePath != "" {
		return capture.File(filePath)
	}
	return capture.Device(deviceID)
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
