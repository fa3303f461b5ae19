package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "List stored memories",
		Run:   runMemories,
	}

	cmd.Flags().StringP("type", "t", "", "Filter by memory type")
	cmd.Flags().Float64P("min-confidence", "m", 0, "Minimum confidence")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("all", false, "Include superseded and forgotten memories")

	RootCmd.AddCommand(cmd)
}

func runMemories(cmd *cobra.Command, args []string) {
	memType, _ := cmd.Flags().GetString("type")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
	limit, _ := cmd.Flags().GetInt("limit")
	all, _ := cmd.Flags().GetBool("all")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := s.Query(cmd.Context(), sessionFlag, store.QueryParams{
		Type:              model.MemoryType(memType),
		MinConfidence:     minConfidence,
		Limit:             limit,
		IncludeSuperseded: all,
	})
	if err != nil {
		exitErr("memories", err)
	}

	if formatFlag == "text" {
		for _, m := range memories {
			fmt.Printf("%s  [%s]  %.2f  %s\n", m.ID, m.Type, m.Confidence, m.Content)
		}
		return
	}
	b, _ := json.MarshalIndent(memories, "", "  ")
	fmt.Println(string(b))
}
