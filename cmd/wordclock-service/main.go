package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wordclock-service/internal/core"
	"wordclock-service/internal/display"
	"wordclock-service/internal/hardware"
	"wordclock-service/internal/logger"
	"wordclock-service/internal/messaging"
)

const (
	tickFastInterval   = 10 * time.Millisecond
	tickMediumInterval = 100 * time.Millisecond
	tickSlowInterval   = 250 * time.Millisecond
)

func main() {
	// Service log level
	var serviceLogLevel int
	var redisHost string
	var redisPort int
	var noMatrix bool
	flag.IntVar(&serviceLogLevel, "log", 3, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")
	flag.StringVar(&redisHost, "redis-host", "127.0.0.1", "Redis host")
	flag.IntVar(&redisPort, "redis-port", 6379, "Redis port")
	flag.BoolVar(&noMatrix, "no-matrix", false, "Run without the LED matrix attached")

	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	// Create leveled logger
	l := logger.NewLogger(stdLogger, logger.LogLevel(serviceLogLevel))

	l.Infof("Starting wordclock service...")

	var writer display.FrameWriter = display.NullFrameWriter{}
	var deviceWriter *display.DeviceFrameWriter
	if !noMatrix {
		deviceWriter = display.NewDeviceFrameWriter(l)
		if err := deviceWriter.Open(); err != nil {
			l.Warnf("LED matrix unavailable, frames will be dropped: %v", err)
			deviceWriter = nil
		} else {
			writer = deviceWriter
		}
	}

	disp := display.NewWordDisplay(l, writer)
	color := display.NewRgbEngine(l)

	brightness := hardware.NewPwmBrightness(l)
	if err := brightness.Init(); err != nil {
		l.Warnf("PWM brightness unavailable: %v", err)
	}

	accessories := hardware.NewAccessoryLines(l)
	if err := accessories.Initialize(); err != nil {
		l.Warnf("Accessory outputs unavailable: %v", err)
	}

	client := messaging.NewRedisClient(redisHost, redisPort, l)
	cfgStore := messaging.NewConfigStore(client, l)

	clock := hardware.NewSystemClock(l, func() error {
		return client.SendCommand("timesource", "resync")
	})

	system := core.NewClockSystem(disp, brightness, color, clock, cfgStore, accessories, client, l)

	if err := client.Connect(); err != nil {
		l.Fatalf("Failed to connect to Redis: %v", err)
	}
	if err := cfgStore.Load(); err != nil {
		l.Warnf("Failed to load saved configuration, using defaults: %v", err)
	}

	if err := system.Start(); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	l.Infof("System started successfully")

	stopTicks := make(chan struct{})
	go runTicker(tickFastInterval, stopTicks, system.TickFast)
	go runTicker(tickMediumInterval, stopTicks, system.TickMedium)
	go runTicker(tickSlowInterval, stopTicks, system.TickSlow)
	go runTicker(time.Second, stopTicks, system.TickSecond)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)

	close(stopTicks)
	system.Shutdown()
	accessories.Cleanup()
	brightness.Cleanup()
	if deviceWriter != nil {
		deviceWriter.Close()
	}
	l.Infof("Shutdown complete")
}

func runTicker(interval time.Duration, stop <-chan struct{}, tick func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			tick()
		}
	}
}
