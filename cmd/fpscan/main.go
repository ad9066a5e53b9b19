// Command fpscan opens a swipe sensor and dumps each captured image to a
// PGM file in the current directory, grounded on cmd/ublk-mem/main.go's
// flag-parse-then-call-library shape: parse a couple of flags, open the
// library's main resource, log progress, and wait for a shutdown signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/swipesensor/fpdrv"
	"github.com/swipesensor/fpdrv/internal/logging"
	"github.com/swipesensor/fpdrv/internal/reassembly"
	"github.com/swipesensor/fpdrv/sink"
)

func main() {
	var (
		familyName = flag.String("family", "aes1660", "sensor family: aes1660 or aes2550")
		outDir     = flag.String("out", ".", "directory to write captured .pgm images to")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	family, err := parseFamily(*familyName)
	if err != nil {
		logger.Error("invalid family", "error", err)
		os.Exit(1)
	}

	imgSink := &fileSink{dir: *outDir, logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := fpdrv.Open(ctx, fpdrv.Params{
		Family: family,
		Sink:   imgSink,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to open session", "error", err)
		os.Exit(1)
	}
	defer func() {
		closed := make(chan struct{})
		session.Close(func(err error) {
			if err != nil {
				logger.Error("failed to close session", "error", err)
			}
			close(closed)
		})
		<-closed
	}()

	logger.Info("session opened, swipe a finger to capture", "family", *familyName)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	if err := session.Run(ctx); err != nil {
		logger.Error("session ended with error", "error", err)
		os.Exit(1)
	}
	logger.Info("session ended cleanly")
}

func parseFamily(name string) (fpdrv.DeviceFamily, error) {
	switch name {
	case "aes1660":
		return fpdrv.FamilyAES1660, nil
	case "aes2550":
		return fpdrv.FamilyAES2550, nil
	default:
		return 0, fmt.Errorf("unknown family %q (want aes1660 or aes2550)", name)
	}
}

// fileSink is a sink.Sink that writes each captured image to a PGM file
// and logs every other callback, standing in for the backend/mem.go-style
// "dumb consumer behind the interface" role this demo needs.
type fileSink struct {
	dir    string
	logger *logging.Logger
	count  int
}

func (s *fileSink) OnActivateComplete(err error) {
	if err != nil {
		s.logger.Error("activation failed", "error", err)
		return
	}
	s.logger.Info("activation complete")
}

func (s *fileSink) OnFingerStatus(present bool) {
	s.logger.Debug("finger status changed", "present", present)
}

func (s *fileSink) OnImageCaptured(img reassembly.Image) {
	s.count++
	path := fmt.Sprintf("%s/capture-%03d.pgm", s.dir, s.count)
	if err := writePGM(path, img); err != nil {
		s.logger.Error("failed to write image", "path", path, "error", err)
		return
	}
	s.logger.Info("captured image", "path", path, "width", img.Width, "height", img.Height)
}

func (s *fileSink) OnSessionError(err error) {
	s.logger.Error("session error", "error", err)
}

func writePGM(path string, img reassembly.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "P5\n%d %d\n255\n", img.Width, img.Height); err != nil {
		return err
	}

	pixels := img.Pixels
	if img.ColorsInverted {
		inverted := make([]byte, len(pixels))
		for i, p := range pixels {
			inverted[i] = 255 - p
		}
		pixels = inverted
	}

	_, err = f.Write(pixels)
	return err
}

var _ sink.Sink = (*fileSink)(nil)
