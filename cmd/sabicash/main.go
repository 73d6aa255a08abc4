package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/sabicash/sabicash/cmd/sabicash/cmds"
	"github.com/spf13/viper"
)

var (
	opt struct {
		config string
		debug  bool
	}

	version = "0.0.1-src"
	commit  = versioninfo.Short()
)

func main() {
	flag.StringVar(&opt.config, "config", "", "config file path")
	flag.BoolVar(&opt.debug, "debug", false, "debug mode")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	v := initViper()
	logger := initLogger()

	app, cleanup, err := setupApp(v, logger)
	if err != nil {
		logger.Error("setup failed", "err", err)
		cancel()
		os.Exit(1)
	}

	logger.Debug("sabicash launched", "version", version, "commit", commit)

	err = app.cmd.Run(ctx, flag.Args())
	cleanup()
	cancel()

	if err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

type app struct {
	cmd    *cmds.Cmd
	logger *slog.Logger
}

func initLogger() *slog.Logger {
	level := slog.LevelWarn
	if opt.debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func initViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("sabicash")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opt.config != "" {
		v.SetConfigFile(opt.config)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			log.Panicln(err)
		}
	}

	return v
}
