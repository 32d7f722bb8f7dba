package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/lumenweb/webchat-core/internal/admin"
	"github.com/lumenweb/webchat-core/internal/chatapi"
	"github.com/lumenweb/webchat-core/internal/config"
	"github.com/lumenweb/webchat-core/internal/stubserver"
	"github.com/lumenweb/webchat-core/pkg/logging"
)

// admincli is a terminal operator console: list conversations, read a
// thread, reply as the operator and toggle handoff. It talks to the
// same admin API the panel uses.
func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	token := cfg.AdminToken
	if token == "" && cfg.AdminJWTSecret != "" {
		minted, err := stubserver.MintToken(cfg.AdminJWTSecret, "admincli", 12*time.Hour)
		if err != nil {
			logger.Error("failed to mint admin token", "error", err)
			os.Exit(1)
		}
		token = minted
	}
	if token == "" {
		logger.Error("ADMIN_TOKEN or ADMIN_JWT_SECRET is required")
		os.Exit(1)
	}

	api := chatapi.NewAdminClient(cfg.BackendBaseURL, token, &http.Client{Timeout: cfg.RequestTimeout}, logger)
	console := admin.NewConsole(api, cfg.AdminPollEvery, logger, nil)
	console.Start()
	defer console.Stop()

	ctx := context.Background()
	if err := console.Refresh(ctx, true); err != nil {
		logger.Error("failed to reach admin API", "error", err)
		os.Exit(1)
	}

	fmt.Println("webchat operator console. Commands: list, open <id>, reply <id> <text>, handoff <id> on|off, quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		if banner := console.Banner(); banner != "" {
			fmt.Println("!", banner)
		}
		fmt.Print("admin> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit":
			return
		case "list":
			if err := console.Refresh(ctx, true); err != nil {
				continue
			}
			for _, conv := range console.Conversations() {
				state := "ai"
				if conv.Handoff {
					state = "operator"
				}
				fmt.Printf("%s  [%s]  last=%s\n", conv.ID, state, time.UnixMilli(conv.LastMessageAt).Format(time.RFC3339))
			}
		case "open":
			if len(fields) != 2 {
				fmt.Println("usage: open <id>")
				continue
			}
			msgs, err := console.Open(ctx, fields[1])
			if err != nil {
				continue
			}
			for _, m := range msgs {
				fmt.Printf("[%s] %s\n", m.Role, m.Content)
			}
		case "reply":
			if len(fields) < 3 {
				fmt.Println("usage: reply <id> <text>")
				continue
			}
			console.Reply(ctx, fields[1], strings.Join(fields[2:], " "))
		case "handoff":
			if len(fields) != 3 || (fields[2] != "on" && fields[2] != "off") {
				fmt.Println("usage: handoff <id> on|off")
				continue
			}
			console.SetHandoff(ctx, fields[1], fields[2] == "on")
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
