package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"nightlife-storefront/internal/backend"
	"nightlife-storefront/internal/config"
	"nightlife-storefront/internal/models"
	"nightlife-storefront/internal/validation"
	"nightlife-storefront/web/templates/components"
)

func main() {
	clubID := flag.String("club", "", "club id to show availability for")
	date := flag.String("date", time.Now().Format(validation.DateLayout), "date (YYYY-MM-DD)")
	query := flag.String("q", "", "search query")
	city := flag.String("city", "", "city filter")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("Failed to load config:", err)
	}
	if !validation.IsISODate(*date) {
		fail("Invalid date:", *date)
	}

	client, err := backend.NewClient(backend.Config{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.Backend.Timeout}, nil)
	if err != nil {
		fail("Failed to create backend client:", err)
	}
	api := client.WithCredentials(backend.NewCredentials("check-clubs"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Println("Checking Clubs")

	clubs, err := api.FilterClubs(ctx, models.ClubFilter{Query: *query, City: *city})
	if err != nil {
		fail("Failed to list clubs:", backend.UserMessage(err))
	}
	fmt.Printf("Total Clubs: %d\n", len(clubs))
	for _, c := range clubs {
		fmt.Printf("  %-24s %-30s %s\n", c.ID, c.Name, c.City)
	}

	if *clubID == "" {
		return
	}

	fmt.Printf("\nAvailability for %s on %s\n", *clubID, *date)
	tickets, err := api.AvailableTickets(ctx, *clubID, *date)
	if err != nil {
		fail("Failed to load availability:", backend.UserMessage(err))
	}
	if tickets.HasEvent() {
		fmt.Printf("Event: %s\n", tickets.Event.Name)
	}
	if tickets.IsEmpty() {
		fmt.Println("Nothing on sale")
		return
	}
	for _, group := range []struct {
		name    string
		tickets []models.Ticket
	}{
		{"Event", tickets.EventTickets},
		{"General", tickets.GeneralTickets},
		{"Free", tickets.FreeTickets},
	} {
		for _, t := range group.tickets {
			fmt.Printf("  %-8s %-30s %12s  available: %d\n", group.name, t.Name, components.Money(t.EffectivePrice()), t.Available)
		}
	}
}

func fail(args ...any) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}
