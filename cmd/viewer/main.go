package main

import (
	"fmt"
	"log"
	"os"

	"chat-relay/domain"
	"chat-relay/logs"
	"chat-relay/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	Room           string `envconfig:"VIEWER_ROOM" required:"true"`
	Colours        bool   `envconfig:"VIEWER_COLOURS" default:"true"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"warn"`
}

// viewer dumps a room's persisted history straight from the message log,
// without going through the relay.
func main() {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while the relay holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := repositories.NewMessageRepository(db, logs.GetLoggerFromString(config.LogLevel), nil)
	messages, err := repo.GetMessages(domain.RoomID(config.Room))
	if err != nil {
		log.Fatalf("Failed to read history: %v", err)
	}

	header := fmt.Sprintf("  ====== room %s (%d messages) ======", config.Room, len(messages))
	if config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Sender", "Type", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, msg := range messages {
		table.Append([]string{
			msg.At.Format("2006-01-02 15:04:05"),
			msg.Sender,
			string(msg.Type),
			msg.Content,
		})
	}
	table.Render()
}
