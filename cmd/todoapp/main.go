package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"todoapp/internal/app"
	"todoapp/internal/config"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// opener builds the application for one command invocation.
type opener func() (*app.App, error)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "todoapp",
		Short:         "todoapp - a personal task manager with reminders",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (environment variables override it)")

	open := func() (*app.App, error) {
		return openApp(configPath)
	}

	rootCmd.AddCommand(addCmd(open))
	rootCmd.AddCommand(editCmd(open))
	rootCmd.AddCommand(showCmd(open))
	rootCmd.AddCommand(listCmd(open))
	rootCmd.AddCommand(searchCmd(open))
	rootCmd.AddCommand(doneCmd(open))
	rootCmd.AddCommand(favCmd(open))
	rootCmd.AddCommand(rmCmd(open))
	rootCmd.AddCommand(purgeCmd(open))
	rootCmd.AddCommand(categoriesCmd(open))
	rootCmd.AddCommand(exportCmd(open))
	rootCmd.AddCommand(importCmd(open))
	rootCmd.AddCommand(settingsCmd(open))
	rootCmd.AddCommand(digestCmd(open))
	rootCmd.AddCommand(watchCmd(open))
	rootCmd.AddCommand(serveCmd(open))

	return rootCmd
}

func openApp(configPath string) (*app.App, error) {
	load := config.Load
	if configPath != "" {
		load = func() (config.Config, error) { return config.LoadFile(configPath) }
	}
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return app.New(cfg)
}

// withApp opens the application, runs fn and closes it again.
func withApp(open opener, fn func(*app.App) error) error {
	a, err := open()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
