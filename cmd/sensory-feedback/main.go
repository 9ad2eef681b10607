package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/GideonRubin/sensory-feedback/command"
	"github.com/GideonRubin/sensory-feedback/device"
	"github.com/GideonRubin/sensory-feedback/link"
	"github.com/GideonRubin/sensory-feedback/sensor"
	"github.com/GideonRubin/sensory-feedback/settings"
	"github.com/GideonRubin/sensory-feedback/sink"
	"github.com/GideonRubin/sensory-feedback/stream"
	"github.com/GideonRubin/sensory-feedback/synth"
	"github.com/GideonRubin/sensory-feedback/telemetry"
)

// controlHz is the fixed cadence of the Control loop: sensor sampling,
// command handling and telemetry all run on this tick.
const controlHz = 30

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	songPath := flag.String("song", "song.wav", "song file (fixed-format stereo 16-bit PCM)")
	settingsPath := flag.String("settings", "settings.json", "persisted settings file")
	linkDev := flag.String("link", "", "control link serial device (empty = loopback, no remote)")
	linkBaud := flag.Int("link-baud", 115200, "control link baud rate")
	sensors := flag.String("sensors", "demo", `sensor source: "demo" or "serial:<device>"`)
	sensorBaud := flag.Int("sensor-baud", 115200, "sensor bridge baud rate")
	debug := flag.Bool("debug", false, "enable debug logging (adds source location)")
	flag.Parse()

	initLogger(*debug)
	logger.Info("sensory-feedback starting",
		"song", *songPath,
		"settings", *settingsPath,
		"link", *linkDev,
		"sensors", *sensors,
		"sample_rate", synth.SampleRate,
		"block_frames", synth.BlockFrames,
		"control_hz", controlHz,
	)

	persisted, err := settings.Load(*settingsPath)
	if err != nil {
		logger.Error("settings load failed", "err", err)
		os.Exit(1)
	}

	state := device.NewState()
	state.SetMode(persisted.Mode)
	if persisted.Mode == device.ModeSong {
		state.RequestStreamOpen()
	}

	reader, err := openSensorSource(*sensors, *sensorBaud)
	if err != nil {
		logger.Error("sensor source init failed", "err", err)
		os.Exit(1)
	}

	var ctrlLink link.Link
	if *linkDev == "" {
		logger.Warn("no control link device, running with loopback link")
		ctrlLink = link.NewLoopback()
	} else {
		ctrlLink, err = link.OpenSerial(*linkDev, *linkBaud, logger)
		if err != nil {
			logger.Error("control link init failed", "err", err)
			os.Exit(1)
		}
	}
	defer ctrlLink.Close()

	// The audio and prefetch buffers are fixed allocations; failing here is
	// fatal rather than running degraded.
	out, err := sink.New(synth.SampleRate, synth.BlockFrames)
	if err != nil {
		logger.Error("audio sink init failed", "err", err)
		os.Exit(1)
	}
	defer out.Close()

	engine := synth.NewEngine(state)
	openSong := func() (synth.SongStream, error) {
		return stream.Open(*songPath, synth.BlockBytes)
	}
	producer := synth.NewProducer(engine, state, out, openSong, logger)

	calibrator := sensor.NewCalibrator(reader, state)
	processor := command.NewProcessor(state)
	processor.OnModeChange(func(m device.Mode) {
		s := settings.Settings{Mode: m}
		if err := s.Save(*settingsPath); err != nil {
			logger.Warn("settings save failed", "err", err)
		}
	})
	publisher := telemetry.NewPublisher(ctrlLink)
	memMon := device.NewMemoryMonitor(state)

	done := make(chan struct{})
	producerIdle := make(chan struct{})
	go func() {
		defer close(producerIdle)
		producer.Run(done)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / controlHz)
	defer ticker.Stop()

	logger.Info("running")
	for {
		select {
		case <-sig:
			logger.Info("shutting down")
			close(done)
			<-producerIdle
			return
		case now := <-ticker.C:
			controlCycle(state, calibrator, processor, ctrlLink, publisher, memMon, now)
		}
	}
}

// controlCycle is one Control-context tick at the fixed cadence.
func controlCycle(
	state *device.State,
	calibrator *sensor.Calibrator,
	processor *command.Processor,
	ctrlLink link.Link,
	publisher *telemetry.Publisher,
	memMon *device.MemoryMonitor,
	now time.Time,
) {
	if err := calibrator.Step(); err != nil {
		logger.Warn("sensor sample failed", "err", err)
	}

	for {
		frame, ok := ctrlLink.Receive()
		if !ok {
			break
		}
		if !processor.Handle(frame) {
			logger.Debug("command dropped", "frame", string(frame))
		}
	}

	if state.Power() {
		var raw [device.NumChannels]int
		for i := range raw {
			raw[i] = state.Channel(i).Raw()
		}
		publisher.Produce(raw)
	}
	if err := publisher.Publish(); err != nil {
		logger.Warn("telemetry send failed", "err", err)
	}

	memMon.Tick(now)
}

func openSensorSource(source string, baud int) (sensor.Reader, error) {
	switch {
	case source == "demo":
		return sensor.NewDemoReader(controlHz), nil
	case strings.HasPrefix(source, "serial:"):
		return sensor.OpenSerialReader(strings.TrimPrefix(source, "serial:"), baud)
	}
	return nil, fmt.Errorf("unknown sensor source %q", source)
}
