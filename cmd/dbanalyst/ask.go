package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dogukank/dbanalyst/internal/analyst"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Run one analysis from the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, cleanup, err := setup(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var answer string
		for ev := range a.Run(ctx, args[0]) {
			switch ev.Type {
			case analyst.EventPlan:
				fmt.Println("Analysis plan:")
				if steps, ok := ev.Content.([]string); ok {
					for i, step := range steps {
						fmt.Printf("  %d. %s\n", i+1, step)
					}
				}
			case analyst.EventStepStart:
				fmt.Printf("-> %v\n", ev.Content)
			case analyst.EventSQLQuery:
				fmt.Printf("   sql: %v\n", ev.Content)
			case analyst.EventToolError:
				fmt.Printf("   retrying after: %v\n", ev.Content)
			case analyst.EventError:
				fmt.Printf("   error: %v\n", ev.Content)
			case analyst.EventFinalResult:
				answer = fmt.Sprintf("%v", ev.Content)
			}
		}

		if answer == "" {
			return fmt.Errorf("analysis ended without a final answer")
		}
		fmt.Println("\n" + strings.Repeat("=", 60))
		fmt.Println(answer)
		fmt.Println(strings.Repeat("=", 60))
		return nil
	},
}
