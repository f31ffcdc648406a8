package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexus-app/nexus/internal/agent/runner"
	"github.com/nexus-app/nexus/internal/config"
	modellogic "github.com/nexus-app/nexus/internal/logic/model"
	statslogic "github.com/nexus-app/nexus/internal/logic/stats"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

// ChatCmd creates the chat command
func ChatCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Ask a question about your machines",
		Long: `Send a message to the model and stream its answer. The model may run
commands on enabled remote machines to answer.

Examples:
  nexus chat "check disk space on SIGMA"
  nexus chat --interactive`,
		Run: func(cmd *cobra.Command, args []string) {
			runChat(args, interactive)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "start interactive chat session")
	return cmd
}

func runChat(args []string, interactive bool) {
	svcCtx := openServiceContext()
	defer svcCtx.Close()

	if !svcCtx.Runner.Ready() {
		fmt.Fprintf(os.Stderr, "\033[31mError: %v\033[0m\n", config.ErrMissingCredential)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if interactive || len(args) == 0 {
		runInteractive(ctx, svcCtx)
		return
	}
	if err := runOnce(ctx, svcCtx, strings.Join(args, " ")); err != nil {
		os.Exit(1)
	}
}

// runOnce runs a single prompt
func runOnce(ctx context.Context, svcCtx *svc.ServiceContext, prompt string) error {
	_, err := svcCtx.Runner.Run(ctx, prompt, runner.SinkFunc(handleEvent))
	fmt.Println()
	return err
}

// runInteractive runs an interactive chat session
func runInteractive(ctx context.Context, svcCtx *svc.ServiceContext) {
	fmt.Println("\033[1mNexus Interactive Mode\033[0m")
	fmt.Println("Type your message and press Enter. Use /help for commands, Ctrl+C to exit.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for ctx.Err() == nil {
		fmt.Print("\033[36m> \033[0m")

		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if handleCommand(ctx, line, svcCtx) {
				continue
			}
		}

		fmt.Print("\033[32m")
		_, err = svcCtx.Runner.Run(ctx, line, runner.SinkFunc(handleEvent))
		fmt.Print("\033[0m\n\n")
		if errors.Is(err, context.Canceled) {
			return
		}
	}
}

func handleCommand(ctx context.Context, cmd string, svcCtx *svc.ServiceContext) bool {
	fields := strings.Fields(cmd)
	switch fields[0] {
	case "/help":
		fmt.Println(`Commands:
  /help          - Show this help
  /clear         - Clear the conversation (cost is kept)
  /stats         - Show token usage and estimated cost
  /reset-cost    - Zero the token counters
  /model [id]    - Show or switch the model
  /quit          - Exit`)
		return true

	case "/clear":
		svcCtx.Session.Clear()
		fmt.Println("Conversation cleared.")
		return true

	case "/stats":
		printStats(statslogic.StatsResponse(svcCtx.Session.Stats(), svcCtx.Session.Model()))
		return true

	case "/reset-cost":
		svcCtx.Session.ResetCost()
		fmt.Println("Token counters reset.")
		return true

	case "/model":
		if len(fields) < 2 {
			fmt.Println("Current model:", svcCtx.Session.Model())
			return true
		}
		resp, err := modellogic.NewSetModelLogic(ctx, svcCtx).SetModel(&types.SetModelRequest{Model: fields[1]})
		if err != nil {
			fmt.Printf("\033[31mError: %v\033[0m\n", err)
			return true
		}
		fmt.Println("Model set to", resp.Model.DisplayName)
		return true

	case "/quit", "/exit":
		os.Exit(0)
		return true
	}

	return false
}

// handleEvent prints one turn event
func handleEvent(event runner.Event) {
	switch event.Type {
	case runner.EventStreamDelta:
		fmt.Print(event.Text)

	case runner.EventToolExecuting:
		fmt.Printf("\n\033[33m[%s] $ %s\033[0m\n", event.Machine, event.Command)

	case runner.EventToolCompleted:
		if event.Success {
			fmt.Printf("\033[90m[%s] done\033[0m\n", event.Machine)
		} else {
			fmt.Printf("\033[31m[%s] failed\033[0m\n", event.Machine)
		}

	case runner.EventStreamToolContinue:
		fmt.Println()

	case runner.EventStreamError:
		fmt.Printf("\n\033[31mError: %s\033[0m\n", event.Error)

	case runner.EventStreamEnd:
		if verbose && event.Stats != nil {
			fmt.Printf("\n\033[90m[tokens in=%d out=%d]\033[0m", event.Stats.LastInput, event.Stats.LastOutput)
		}
	}
}

func printStats(s *types.TokenStatsResponse) {
	fmt.Printf("Model:          %s\n", s.Model)
	fmt.Printf("Requests:       %d\n", s.RequestCount)
	fmt.Printf("Last call:      %d in / %d out\n", s.LastInput, s.LastOutput)
	fmt.Printf("Total:          %d in / %d out\n", s.TotalInput, s.TotalOutput)
	fmt.Printf("Context:        %.1f%% of %d\n", s.ContextPercent, s.ContextWindow)
	fmt.Printf("Estimated cost: $%.4f\n", s.EstimatedCostUSD)
}
