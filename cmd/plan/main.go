// Command plan runs one trip through the planner in the terminal and then
// answers follow-up questions about the accepted itinerary.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samber/lo"

	"github.com/bizmatters/agent-builder/travel-planner/internal/chat"
	"github.com/bizmatters/agent-builder/travel-planner/internal/config"
	"github.com/bizmatters/agent-builder/travel-planner/internal/llm"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
	"github.com/bizmatters/agent-builder/travel-planner/internal/planner"
	"github.com/bizmatters/agent-builder/travel-planner/internal/search"
)

func main() {
	origin := flag.String("origin", models.DefaultOrigin, "Departure city")
	destination := flag.String("destination", "", "Destination city (required unless -suggest is set)")
	dates := flag.String("dates", "", "Travel dates, free text (required)")
	amount := flag.Int("budget", 1000, "Total budget amount (min 100)")
	currency := flag.String("currency", "USD", "Budget currency: "+strings.Join(models.SupportedCurrencies, ", "))
	interests := flag.String("interests", "", "Comma-separated interests, e.g. Food,History")
	theme := flag.String("suggest", "", "Let the planner pick a destination for a theme, e.g. \"cheap beach vacation in Asia\"")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := validateFlags(*destination, *theme, *dates, *amount, *currency); err != nil {
		log.Fatalf("Validation error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := llm.New(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize language model: %v", err)
	}
	tool, err := search.New(cfg.Search)
	if err != nil {
		log.Fatalf("Failed to initialize search tool: %v", err)
	}

	if *theme != "" {
		suggestions, err := planner.NewSuggester(gen, cfg.LLM.Temperature).SuggestDestinations(ctx, *theme)
		if err != nil {
			log.Fatalf("Failed to suggest destinations: %v", err)
		}
		if len(suggestions) == 0 {
			log.Fatalf("No destinations suggested for %q", *theme)
		}
		fmt.Printf("Suggested destinations: %s\n", strings.Join(suggestions, "; "))
		*destination = suggestions[0]
	}

	req := models.TripRequest{
		Origin:      *origin,
		Destination: *destination,
		Dates:       *dates,
		Budget:      models.FormatBudget(*amount, *currency),
		Interests:   splitInterests(*interests),
	}
	fmt.Println(req.Summary())

	itinerary, err := plan(ctx, planner.New(gen, tool, cfg), req)
	if err != nil {
		log.Fatalf("Planning failed: %v", err)
	}
	if itinerary == "" {
		return
	}

	assistant := chat.NewAssistant(gen, tool, cfg.LLM.ChatTemperature, cfg.Session.HistoryLimit)
	if err := converse(ctx, assistant, itinerary); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Chat failed: %v", err)
	}
}

// plan prints progress for each stage and returns the accepted itinerary,
// or "" when the run stopped without one.
func plan(ctx context.Context, controller *planner.Controller, req models.TripRequest) (string, error) {
	fmt.Println("Initializing agent...")
	for event, err := range controller.Run(ctx, req) {
		if err != nil {
			return "", err
		}
		switch event.Stage {
		case models.StagePlanning:
			fmt.Println("📅 Planning: generating search queries...")
		case models.StageResearching:
			fmt.Println("🔎 Researching: checking real-time availability...")
		case models.StageDrafting:
			fmt.Println("✍️  Drafting: writing itinerary...")
		case models.StageValidating:
			switch outcome := event.Outcome.(type) {
			case planner.Accepted:
				fmt.Print("✅ Validated: itinerary approved!\n\n")
				fmt.Println(outcome.Itinerary)
				return outcome.Itinerary, nil
			case planner.Infeasible:
				fmt.Print("❌ Budget Check Failed\n\n")
				fmt.Println(outcome.Message)
			case planner.Continuing:
				fmt.Printf("🤔 Refining: %s\n", outcome.Critique)
			}
		}
		if event.Stop == models.StopExhausted {
			fmt.Printf("Gave up after %d revisions without an approved itinerary.\n", event.Revision)
		}
	}
	return "", nil
}

func converse(ctx context.Context, assistant *chat.Assistant, itinerary string) error {
	fmt.Print("\n💬 Ask about your trip (e.g. \"What's the weather?\"). Empty line to quit.\n")
	var history []models.ChatTurn
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			return nil
		}

		history = append(history, models.ChatTurn{Role: models.ChatRoleUser, Content: question})
		answer, err := assistant.Reply(ctx, history, itinerary)
		if err != nil {
			history = history[:len(history)-1]
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Printf("An error occurred: %v\n", err)
			continue
		}
		history = append(history, models.ChatTurn{Role: models.ChatRoleAssistant, Content: answer})
		fmt.Println(answer)
	}
}

func validateFlags(destination, theme, dates string, amount int, currency string) error {
	if strings.TrimSpace(destination) == "" && strings.TrimSpace(theme) == "" {
		return errors.New("either -destination or -suggest is required")
	}
	if strings.TrimSpace(dates) == "" {
		return errors.New("-dates is required")
	}
	if amount < 100 {
		return fmt.Errorf("budget must be at least 100, got %d", amount)
	}
	if !lo.Contains(models.SupportedCurrencies, strings.ToUpper(currency)) {
		return fmt.Errorf("unsupported currency %q", currency)
	}
	return nil
}

func splitInterests(raw string) []string {
	return lo.Compact(lo.Map(strings.Split(raw, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}
