package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/mcdev12/boxoffice/go/internal/config"
	"github.com/mcdev12/boxoffice/go/internal/tui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

type options struct {
	configPath string
	profile    string
	logFile    string
	eventID    string
	login      string
	password   string
	logout     bool
	listEvents bool
	category   string
	myTickets  bool
	pay        string
}

func parseFlags() options {
	var o options
	pflag.StringVar(&o.configPath, "config", os.Getenv("BOXOFFICE_CONFIG"), "path to the YAML config file")
	pflag.StringVar(&o.profile, "profile", "", "profile file holding the session and reservation state")
	pflag.StringVar(&o.logFile, "log-file", "", "log file (default: next to the profile)")
	pflag.StringVarP(&o.eventID, "event", "e", "", "book tickets for this event id")
	pflag.StringVar(&o.login, "login", "", "log in with this email or phone before starting")
	pflag.StringVar(&o.password, "password", os.Getenv("BOXOFFICE_PASSWORD"), "password for --login")
	pflag.BoolVar(&o.logout, "logout", false, "log out and exit")
	pflag.BoolVar(&o.listEvents, "events", false, "list events and exit")
	pflag.StringVar(&o.category, "category", "", "category filter for --events")
	pflag.BoolVar(&o.myTickets, "my-tickets", false, "list order history and exit")
	pflag.StringVar(&o.pay, "pay", "", "retry payment for this pending order id and print the payment link")
	pflag.Parse()
	return o
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	profile := resolveProfile(opts.profile, cfg.Profile.Path)
	logFile, err := setupLogging(opts.logFile, profile, cfg.Level())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, profile, opts); err != nil {
		log.Error().Err(err).Msg("boxoffice failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, profile string, opts options) error {
	services, err := setupServices(ctx, cfg, profile)
	if err != nil {
		return err
	}
	defer services.Close()

	switch {
	case opts.logout:
		if err := services.Session.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	case opts.login != "":
		if err := login(ctx, services, opts.login, opts.password); err != nil {
			return err
		}
	}

	switch {
	case opts.listEvents:
		return listEvents(ctx, os.Stdout, services.Client, opts.category)
	case opts.myTickets:
		return listTickets(ctx, os.Stdout, services.Client)
	case opts.pay != "":
		return payOrder(ctx, os.Stdout, services.Client, opts.pay)
	case opts.eventID == "" && opts.login != "":
		fmt.Println("Logged in.")
		return nil
	case opts.eventID == "":
		return fmt.Errorf("--event is required to start booking")
	}

	if _, err := services.Session.RequireUser(); err != nil {
		return fmt.Errorf("log in first with --login: %w", err)
	}

	sub := services.Bus.Subscribe("")
	model := tui.NewModel(ctx, services.Checkout, opts.eventID, sub, tui.DefaultTheme())
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

func resolveProfile(flagValue, configured string) string {
	if flagValue != "" {
		return flagValue
	}
	if configured != "" {
		return configured
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "boxoffice", "profile.json")
}

// setupLogging sends logs to a file; the terminal belongs to the UI
func setupLogging(path, profile string, level zerolog.Level) (*os.File, error) {
	if path == "" {
		path = filepath.Join(filepath.Dir(profile), "boxoffice.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: f, NoColor: true})
	zerolog.SetGlobalLevel(level)
	return f, nil
}
