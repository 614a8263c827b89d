package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/nccc-portal-client/internal/cli"
	"github.com/jrsteele09/nccc-portal-client/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultConfigFile = "ncccctl.yaml"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			exitCode = 2
		}
	}()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
	}

	configFile := os.Getenv("NCCC_CONFIG")
	if configFile == "" {
		configFile = defaultConfigFile
	}
	c, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	setupLogging(c)

	if len(args) == 0 {
		displayAppname(c.GetAppName())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		waitForStopSignal()
		cancel()
	}()

	store, err := cli.OpenStore(ctx, c)
	if err != nil {
		log.Err(err).Str("backend", c.GetStoreBackend()).Msg("Failed to open credential store")
		return 1
	}
	app, err := cli.New(c, store, os.Stdout, os.Stderr)
	if err != nil {
		_ = store.Close()
		log.Err(err).Msg("Failed to start")
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close credential store")
		}
	}()

	if err := app.Run(ctx, args); err != nil {
		if !errors.Is(err, cli.ErrUsage) || len(args) > 0 {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func setupLogging(c config.ClientConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
