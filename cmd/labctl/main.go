// Command labctl is an interactive console for a lab instrument station.
//
// It loads a station configuration, connects the declared instruments
// (simulated or real), and offers a command prompt for reading and
// writing parameters, taking snapshots, and browsing the network for
// LXI instruments.
//
// Usage:
//
//	labctl [flags]
//
// Flags:
//
//	-station string   Station configuration file (YAML)
//	-log string       Instrument event log output file (CBOR)
//	-c string         Run one command and exit
//
// Examples:
//
//	# Open a station interactively
//	labctl -station station.yaml
//
//	# One-shot parameter read
//	labctl -station station.yaml -c "get smu source_voltage"
//
//	# Record all instrument traffic while working
//	labctl -station station.yaml -log session.cborlog
//
// Interactive Commands:
//
//	list [instrument]        - List instruments, or an instrument's parameters
//	get <inst> <param>       - Read a parameter
//	set <inst> <param> <val> - Write a parameter
//	read <inst>              - Trigger a measurement on a source-measure unit
//	idn <inst>               - Query instrument identification
//	discover                 - Browse the network for LXI instruments
//	snapshot <file>          - Save the station parameter snapshot
//	log <file>               - Print a recorded event log
//	quit                     - Exit
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/qutech-lab/labdrivers-go/cmd/labctl/interactive"
	"github.com/qutech-lab/labdrivers-go/pkg/log"
	"github.com/qutech-lab/labdrivers-go/pkg/station"
)

// Config holds the labctl configuration.
type Config struct {
	StationFile string
	LogFile     string
	Command     string
}

var config Config

func init() {
	flag.StringVar(&config.StationFile, "station", "", "Station configuration file (YAML)")
	flag.StringVar(&config.LogFile, "log", "", "Instrument event log output file (CBOR)")
	flag.StringVar(&config.Command, "c", "", "Run one command and exit")
}

func main() {
	flag.Parse()

	if config.StationFile == "" {
		stdlog.Fatal("a station configuration is required (-station)")
	}

	cfg, err := station.LoadConfig(config.StationFile)
	if err != nil {
		stdlog.Fatalf("Failed to load station config: %v", err)
	}

	// Event logging: the -log flag wins over the config file setting.
	logFile := config.LogFile
	if logFile == "" {
		logFile = cfg.Station.LogFile
	}

	var opts []station.Option
	if logFile != "" {
		fileLogger, err := log.NewFileLogger(logFile)
		if err != nil {
			stdlog.Fatalf("Failed to open event log: %v", err)
		}
		defer fileLogger.Close()
		opts = append(opts, station.WithLogger(fileLogger))
	}

	st, err := station.Open(cfg, opts...)
	if err != nil {
		stdlog.Fatalf("Failed to open station: %v", err)
	}
	defer st.Close()

	if config.Command != "" {
		// One-shot mode.
		if err := interactive.RunCommand(st, config.Command, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	console, err := interactive.New(st)
	if err != nil {
		stdlog.Fatalf("Failed to create console: %v", err)
	}
	// Redirect log output through readline to avoid interfering with input
	stdlog.SetOutput(console.Stdout())

	stdlog.Printf("Station %q: %d instrument(s)", st.Name(), len(st.Names()))
	go console.Run(ctx, cancel)

	// Wait for shutdown signal or the quit command.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		stdlog.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	stdlog.Println("Closing instruments...")
	if err := st.Close(); err != nil {
		stdlog.Printf("Error closing station: %v", err)
	}
}
