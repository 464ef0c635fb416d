package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/agalitsyn/flagutils"
	"github.com/agalitsyn/secret"

	"github.com/agalitsyn/taskboard/version"
)

const EnvPrefix = "TASKBOARD"

type Config struct {
	Debug bool

	Log struct {
		Level string
	}

	DBPath   string
	HTTPAddr string

	Workspace struct {
		ID    string
		Title string
	}

	Telegram struct {
		Token         secret.String
		ChatID        int64
		UpdateTimeout int
	}

	DigestTime string
}

func (c Config) String() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stdout, err)
		os.Exit(0)
	}
	return string(b)
}

func ParseFlags() Config {
	var cfg Config

	printVersion := flag.Bool("version", false, "Show version.")
	logLevel := flag.String("log-level", "info", "Log level (debug | info | warn | error).")
	dbPath := flag.String("db-path", "taskboard.db", "Path to sqlite database file.")
	httpAddr := flag.String("http-addr", ":8080", "HTTP listen address.")
	workspaceID := flag.String("workspace-id", "default", "Workspace served by this daemon.")
	workspaceTitle := flag.String("workspace-title", "Taskboard", "Workspace title used on first start.")
	token := flag.String("tg-token", "", "Telegram bot token. Empty disables the bot.")
	chatID := flag.Int64("tg-chat-id", 0, "Telegram workspace chat id.")
	updateTimeout := flag.Int("tg-update-timeout", 60, "Telegram long poll timeout, seconds.")
	digestTime := flag.String("digest-time", "", "Daily overdue digest time, HH:MM. Empty disables the digest.")

	flagutils.Prefix = EnvPrefix
	flagutils.Parse()
	flag.Parse()

	cfg.Log.Level = *logLevel
	if *logLevel == "debug" {
		cfg.Debug = true
	}

	cfg.DBPath = *dbPath
	cfg.HTTPAddr = *httpAddr
	cfg.Workspace.ID = *workspaceID
	cfg.Workspace.Title = *workspaceTitle
	cfg.Telegram.Token = secret.NewString(*token)
	cfg.Telegram.ChatID = *chatID
	cfg.Telegram.UpdateTimeout = *updateTimeout
	cfg.DigestTime = *digestTime

	if *printVersion {
		fmt.Fprintln(os.Stdout, version.String())
		os.Exit(0)
	}

	return cfg
}
