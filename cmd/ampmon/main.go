package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/config"
	"github.com/dougsko/ampd/pkg/logging"
	"github.com/dougsko/ampd/pkg/panel"
	"github.com/dougsko/ampd/pkg/storage"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configFile = flag.String("config", "", "Configuration file path (amplifier section is used)")
	host       = flag.String("host", "", "Amplifier host (overrides config)")
	port       = flag.Int("port", 0, "Amplifier port (overrides config)")
	password   = flag.String("password", "", "Amplifier password (overrides config)")
	logFile    = flag.String("log", "", "Write diagnostics to this file")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *host != "" {
		cfg.Amplifier.Host = *host
	}
	if *port != 0 {
		cfg.Amplifier.Port = *port
	}
	if *password != "" {
		cfg.Amplifier.Password = *password
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// The screen belongs to the UI; diagnostics go to a file or nowhere
	var out io.Writer = io.Discard
	if *logFile != "" {
		rotating := &lumberjack.Logger{Filename: *logFile, MaxSize: 10, MaxBackups: 2}
		defer rotating.Close()
		out = rotating
	}
	logging.SetGlobalLogger(logging.NewWriterLogger(out, logging.ParseLogLevel(cfg.Logging.Level), cfg.Logging.Structured))

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "ampmon: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logStore, err := storage.NewLogStore(logPaneLines)
	if err != nil {
		return fmt.Errorf("failed to create log buffer: %w", err)
	}
	defer logStore.Close()

	front := panel.New()
	dispatcher := amp.NewDispatcher()
	dispatcher.Subscribe("panel", front)
	dispatcher.Subscribe("log", logStore)

	session := amp.NewSession(cfg.AmplifierOptions(), dispatcher)
	defer session.Close()

	h, p, pw := cfg.AmplifierAddress()
	monitor := newMonitor(session, front, logStore, h, p, pw)
	dispatcher.Subscribe("monitor", monitor)

	logging.Info("ampmon", "monitor starting", map[string]interface{}{"host": h, "port": p})
	err = monitor.Run()

	// Leave the amplifier with an orderly goodbye
	session.Disconnect()
	return err
}
