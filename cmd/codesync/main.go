package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codesync/codesync/internal/adapters/httpapi"
	"github.com/codesync/codesync/internal/adapters/ws"
	"github.com/codesync/codesync/internal/app"
	"github.com/codesync/codesync/internal/config"
	"github.com/codesync/codesync/internal/guard"
	"github.com/codesync/codesync/internal/session"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	redirect, err := guard.NewFile(cfg.StateDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init redirect guard")
	}

	notifier := app.ConsoleNotifier{}
	navigator := &app.RouteNavigator{}
	conn := ws.New(cfg.WSURL)
	machine := session.NewMachine(conn, redirect, navigator,
		session.WithJoinTimeout(cfg.JoinTimeout),
		session.WithNotifier(notifier),
	)
	machine.Bind()
	conn.Connect()

	api := httpapi.New(cfg.APIBaseURL, cfg.HTTPTimeout)
	shell := app.NewShell(machine, api, cfg.EditorBaseURL)

	if roomID := os.Getenv("CODESYNC_ROOM"); roomID != "" {
		if shell.ApplyInitialRoomID(roomID) {
			notifier.Info("Enter your username")
		}
	}

	runPrompt(shell, machine, notifier)
}

// runPrompt is the shell's direct-manipulation surface: one command per line,
// mirroring the login / signup / room-form steps of the web client.
func runPrompt(shell *app.Shell, machine *session.Machine, notifier app.ConsoleNotifier) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("codesync shell — commands: login <email> <password> | signup <name> <email> <password> <confirm> |")
	fmt.Println("  room <id> | name <username> | newroom | join | share | share-email <email> | status | quit")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "login":
			if len(fields) != 3 {
				notifier.Error("usage: login <email> <password>")
				continue
			}
			if err := shell.Login(ctx, fields[1], fields[2]); err != nil {
				notifier.Error(err.Error())
				continue
			}
			notifier.Info("Login successful")
		case "signup":
			if len(fields) != 5 {
				notifier.Error("usage: signup <name> <email> <password> <confirm>")
				continue
			}
			if err := shell.Signup(ctx, fields[1], fields[2], fields[3], fields[4]); err != nil {
				notifier.Error(err.Error())
				continue
			}
			notifier.Info("Registration successful")
		case "room":
			if len(fields) != 2 {
				notifier.Error("usage: room <id>")
				continue
			}
			shell.SetRoomID(fields[1])
		case "name":
			if len(fields) != 2 {
				notifier.Error("usage: name <username>")
				continue
			}
			shell.SetUsername(fields[1])
		case "newroom":
			notifier.Info("Created a new room id: " + shell.CreateRoomID())
		case "join":
			if err := shell.JoinRoom(); err != nil {
				notifier.Error(err.Error())
				continue
			}
			notifier.Info("Joining room...")
		case "share":
			link, err := shell.GenerateShareLink()
			if err != nil {
				notifier.Error(err.Error())
				continue
			}
			notifier.Info("Shareable link: " + link)
		case "share-email":
			if len(fields) != 2 {
				notifier.Error("usage: share-email <email>")
				continue
			}
			link, err := shell.GenerateEmailLink(ctx, fields[1])
			if err != nil {
				notifier.Error(err.Error())
				continue
			}
			notifier.Info("Shareable link: " + link)
		case "status":
			notifier.Info("session: " + machine.Status().String())
		case "quit", "exit":
			return
		default:
			notifier.Error("unknown command: " + fields[0])
		}
	}
}
