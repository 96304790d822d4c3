// Command viewer dumps a stored conversation to the terminal, newest last.
// It opens the badger store in read-only mode so it can run next to a live
// gateway process.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"chat-gateway/repositories"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
}

func main() {
	userA := flag.String("a", "", "first participant user ID")
	userB := flag.String("b", "", "second participant user ID")
	flag.Parse()
	if *userA == "" || *userB == "" {
		log.Fatal("both -a and -b participant IDs are required")
	}

	// 1. Load config
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening if another process (the gateway) holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Fetch and render
	repository := repositories.NewMessageRepository(db, discardLogger(), nil)
	messages, _, err := repository.Conversation(*userA, *userB, nil)
	if err != nil {
		log.Fatalf("Conversation query failed: %v", err)
	}

	color.Cyan.Printf("Conversation %s <-> %s (%d messages)\n", *userA, *userB, len(messages))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "From", "Status", "Read", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	// Conversation returns newest first; render oldest first.
	for _, m := range lo.Reverse(messages) {
		from := color.Green.Sprint(m.SenderID)
		if m.SenderID == *userB {
			from = color.Yellow.Sprint(m.SenderID)
		}
		table.Append([]string{
			m.CreatedAt.Format("15:04:05"),
			from,
			string(m.Status),
			fmt.Sprintf("%t", m.IsRead),
			m.Content,
		})
	}
	table.Render()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
