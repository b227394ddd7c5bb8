// Command receipt fetches a ticket receipt without starting the TUI.
// It prints the receipt fields to stdout and can save the PDF. Name
// flags cover the anonymous-access path for tickets the current
// session does not own.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"opora/internal/api"
	"opora/internal/config"
	"opora/internal/session"
)

func main() {
	firstName := flag.String("first-name", "", "First name for anonymous receipt access")
	lastName := flag.String("last-name", "", "Last name for anonymous receipt access")
	pdfPath := flag.String("pdf", "", "Also download the PDF receipt to this path")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: receipt [flags] <ticket-number-or-uid>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	ticket := flag.Arg(0)

	if err := run(ticket, *firstName, *lastName, *pdfPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ticket, firstName, lastName, pdfPath string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := session.Open(cfg.DataFile, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client := api.New(ctx, api.Config{
		BaseURL: cfg.ServerURL,
		Tokens:  store,
		Logger:  logger,
	})

	receipt, err := client.Receipt(ctx, ticket, firstName, lastName)
	if errors.Is(err, api.ErrNeedNames) {
		return fmt.Errorf("this ticket requires name verification, pass -first-name and -last-name")
	}
	if err != nil {
		return err
	}

	fmt.Printf("Ticket #%d\n", receipt.TicketNumber)
	fmt.Printf("Name: %s %s\n", receipt.FirstName, receipt.LastName)
	fmt.Printf("Issue: %s\n", receipt.Title)
	fmt.Printf("Description: %s\n", receipt.Description)
	fmt.Printf("Created: %s\n", receipt.CreatedAt)

	if pdfPath != "" {
		data, err := client.ReceiptPDF(ctx, ticket, firstName, lastName)
		if err != nil {
			return err
		}
		if err := os.WriteFile(pdfPath, data, 0644); err != nil {
			return err
		}
		fmt.Printf("PDF saved to %s\n", pdfPath)
	}

	return nil
}
