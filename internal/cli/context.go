package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-recall/internal/builder"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [query...]",
		Short: "Assemble a context bundle from stored memories",
		Long:  "Recall memories for a session, greedily pack them into a token budget, and print the bundle. A query widens the recall.",
		Run:   runContext,
	}

	cmd.Flags().IntP("budget", "b", 0, "Total token budget (default from config)")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	budget, _ := cmd.Flags().GetInt("budget")
	if budget == 0 {
		budget = loadConfig().BudgetTotal
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	b, err := builder.New(s, slog.Default())
	if err != nil {
		exitErr("context", err)
	}

	opts := builder.DefaultOptions()
	opts.Budget = builder.AllocateBudget(budget)
	opts.QueryHint = strings.Join(args, " ")

	result, err := b.Build(cmd.Context(), sessionFlag, nil, nil, opts)
	if err != nil {
		exitErr("context", err)
	}

	if formatFlag == "prompt" {
		fmt.Println(builder.FormatForPrompt(result))
		return
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}
