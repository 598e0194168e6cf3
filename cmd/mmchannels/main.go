// mmchannels dumps every channel of the authenticated user, read or not,
// in a table. Debugging aid for ignore patterns and unread counts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"mmtools/client"
	"mmtools/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Remote client & services
	remote := client.New(log, client.Options{
		Server:             config.Server,
		Port:               config.Port,
		Username:           config.Username,
		Password:           config.Password,
		Team:               config.Team,
		InsecureSkipVerify: config.InsecureSkipVerify,
	})
	users := services.NewUserCache(log, remote)
	channels := services.NewChannelService(log, remote, users)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Fetch everything, including fully read channels
	ses, err := remote.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	snap, err := channels.RefreshAll(ctx, ses)
	if err != nil {
		return fmt.Errorf("fetching channels: %w", err)
	}

	// 4. Render
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Type", "Unread", "Mentions", "Total"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	unread := 0
	for _, c := range snap.Channels {
		if c.Unread() > 0 {
			unread++
		}
		table.Append([]string{
			c.Label(),
			c.Type.String(),
			strconv.Itoa(c.Unread()),
			strconv.Itoa(c.MentionCount),
			strconv.Itoa(c.TotalMsgCount),
		})
	}
	table.Render()

	summary := fmt.Sprintf("%d channels, %d with unread messages (user %s)",
		len(snap.Channels), unread, ses.Username)
	fmt.Println(color.New(color.FgGreen).Render(summary))

	return nil
}
