// Package main is a terminal client for the support assistant: a running
// conversation with the option to hand off into case creation.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/novera/support-assistant/internal/assistant"
	"github.com/novera/support-assistant/internal/chat"
	"github.com/novera/support-assistant/internal/deployments"
	"github.com/novera/support-assistant/internal/model"
	"github.com/novera/support-assistant/pkg/logger"
)

var (
	flagAPI     string
	flagToken   string
	flagProject string
	flagRegion  string
	flagTier    string
	flagMessage string
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "novera-chat",
		Short: "Chat with the Novera support assistant",
		Long: `Starts an interactive support conversation. Type your problem and the
assistant replies; enter /case at any point to hand the conversation off
into a pre-filled support case.`,
		RunE: run,
	}

	root.Flags().StringVar(&flagAPI, "api", envOr("NOVERA_API_URL", "http://localhost:8080"), "API base URL")
	root.Flags().StringVar(&flagToken, "token", os.Getenv("NOVERA_API_TOKEN"), "bearer token")
	root.Flags().StringVar(&flagProject, "project", os.Getenv("NOVERA_PROJECT_ID"), "active project id")
	root.Flags().StringVar(&flagRegion, "region", envOr("SUPPORT_REGION", "us-east"), "support region")
	root.Flags().StringVar(&flagTier, "tier", envOr("SUPPORT_TIER", "standard"), "support tier")
	root.Flags().StringVarP(&flagMessage, "message", "m", "", "initial message to send")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log, err := logger.New("warn")
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()

	client := assistant.NewClient(assistant.Config{
		BaseURL:   flagAPI,
		AuthToken: flagToken,
		Region:    flagRegion,
		Tier:      flagTier,
	})

	// Environment context loads in the background while the user types.
	deployClient := deployments.NewClient(deployments.ClientConfig{
		BaseURL:   flagAPI,
		AuthToken: flagToken,
	})
	aggregator := deployments.NewAggregator(deployClient, log)
	go startAggregator(ctx, aggregator, deployClient, log)

	session := chat.NewSession(chat.Config{
		ProjectID: flagProject,
		Region:    flagRegion,
		Tier:      flagTier,
	}, client, client, aggregator, &terminalNavigator{}, log)

	fmt.Println("Novera support assistant. /case opens a support case, /quit exits.")

	if flagMessage != "" {
		if err := sendAndPrint(ctx, session, flagMessage); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/case":
			if err := handoff(ctx, session); err != nil {
				return err
			}
			return nil
		default:
			if err := sendAndPrint(ctx, session, line); err != nil {
				fmt.Println("! message failed to send; try again or enter /case to open a case directly")
			}
		}
	}
}

func startAggregator(ctx context.Context, aggregator *deployments.Aggregator, client *deployments.Client, log *logger.Logger) {
	listCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	deps, err := client.ListDeployments(listCtx, flagProject)
	cancel()
	if err != nil {
		// Chat still works without environment context.
		log.Warn("failed to list deployments", zap.Error(err))
		deps = nil
	}
	aggregator.Start(ctx, deps)
}

func sendAndPrint(ctx context.Context, session *chat.Session, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if err := session.Send(ctx, text); err != nil {
		return err
	}

	turns := session.Turns()
	if len(turns) == 0 {
		return nil
	}
	last := turns[len(turns)-1]
	fmt.Println(last.Text)
	if last.OffersCaseCreation {
		fmt.Println("  (the assistant suggests opening a support case, enter /case to start one)")
	}
	return nil
}

func handoff(ctx context.Context, session *chat.Session) error {
	fmt.Println("preparing your case...")

	err := session.RequestHandoff(ctx)
	if errors.Is(err, chat.ErrNoProject) {
		fmt.Println("no active project; returning to the portal home")
		return nil
	}
	return err
}

// terminalNavigator renders the hand-off destinations in the terminal.
type terminalNavigator struct{}

func (n *terminalNavigator) OpenCaseForm(state model.HandoffState) {
	fmt.Println()
	fmt.Println("=== New support case ===")
	if c := state.Classification; c != nil {
		fmt.Printf("Issue type:  %s\n", c.IssueType)
		fmt.Printf("Severity:    %s\n", c.SeverityLevel)
		if c.CaseInfo.Subject != "" {
			fmt.Printf("Subject:     %s\n", c.CaseInfo.Subject)
		}
		fmt.Printf("Product:     %s %s\n", c.CaseInfo.ProductName, c.CaseInfo.ProductVersion)
		fmt.Printf("Environment: %s\n", c.CaseInfo.Environment)
		fmt.Printf("Description: %s\n", c.CaseInfo.Description)
	} else {
		fmt.Println("(no classification available; fill the case fields manually)")
	}
	fmt.Printf("Attached conversation: %d messages\n", len(state.Turns))
}

func (n *terminalNavigator) OpenHome() {
	fmt.Println("returning to the portal home")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
