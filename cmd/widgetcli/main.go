package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumenweb/webchat-core/internal/chatapi"
	"github.com/lumenweb/webchat-core/internal/config"
	"github.com/lumenweb/webchat-core/internal/convlog"
	"github.com/lumenweb/webchat-core/internal/observability/metrics"
	"github.com/lumenweb/webchat-core/internal/session"
	"github.com/lumenweb/webchat-core/internal/widget"
	"github.com/lumenweb/webchat-core/pkg/logging"
)

// widgetcli drives the chat widget core from a terminal. It is the
// manual-testing counterpart of the embedded widget: same session
// identity, handoff, reveal and polling behavior, with stdin as the
// input box.
func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	store, err := session.NewStore(session.Config{
		Driver:   cfg.StateDriver,
		FilePath: cfg.StateFilePath,
		Redis: session.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			TLS:      cfg.RedisTLS,
		},
	})
	if err != nil {
		logger.Error("failed to open state store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	api := chatapi.NewClient(cfg.BackendBaseURL, &http.Client{Timeout: cfg.RequestTimeout}, logger)
	m := metrics.NewWidgetMetrics(prometheus.NewRegistry())

	w := widget.New(widget.Config{
		Lang:             cfg.Lang,
		Page:             cfg.Page,
		PollOpenEvery:    cfg.PollOpenEvery,
		PollClosedEvery:  cfg.PollClosedEvery,
		RevealFramePace:  cfg.RevealFramePace,
		RevealChunkRunes: cfg.RevealChunkRunes,
	}, api, store, logger, m)
	defer w.Dispose()
	w.SetOpen(true)

	w.OnAppend(func(msg convlog.Message) {
		if msg.Role == convlog.RoleUser || msg.Text == "" {
			return
		}
		printMessage(msg)
	})

	fmt.Println("webchat terminal widget. Commands: /operator [off], /reset, /open, /close, /quit")
	for _, msg := range w.Messages() {
		printMessage(msg)
	}

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/reset":
			w.HardReset(ctx)
			fmt.Println("session reset, new session:", w.SessionID())
		case line == "/operator":
			w.ToggleOperator(ctx, true)
		case line == "/operator off":
			w.ToggleOperator(ctx, false)
		case line == "/open":
			w.SetOpen(true)
		case line == "/close":
			w.SetOpen(false)
		default:
			if err := w.Send(ctx, line, widget.SendOptions{}); err != nil {
				fmt.Println("send failed:", err)
				continue
			}
			msgs := w.Messages()
			if len(msgs) > 0 && msgs[len(msgs)-1].Role == convlog.RoleAI {
				printMessage(msgs[len(msgs)-1])
			}
		}
	}
}

func printMessage(msg convlog.Message) {
	label := string(msg.Role)
	if msg.Source == convlog.SourceAdmin {
		label = "operator"
	}
	if msg.Kind == convlog.KindSystem || msg.Kind == convlog.KindWelcome {
		label = "system"
	}
	fmt.Printf("[%s] %s\n", label, msg.Text)
}
