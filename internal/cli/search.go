package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search memories by similarity",
		Long:  "Rank a session's active memories against a free-text query using TF-IDF cosine similarity.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", 10, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ranked, err := s.Search(cmd.Context(), sessionFlag, strings.Join(args, " "), limit)
	if err != nil {
		exitErr("search", err)
	}

	if formatFlag == "text" {
		for _, r := range ranked {
			fmt.Printf("%.3f  %s  %s\n", r.Score, r.Item.ID, r.Item.Content)
		}
		return
	}
	b, _ := json.MarshalIndent(ranked, "", "  ")
	fmt.Println(string(b))
}
