package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-recall/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory store statistics",
		Long:  "Show database size and memory counts, broken down per session. The --session flag filters the breakdown.",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	// --session is "default" unless set; only filter when the flag was given
	if cmd.InheritedFlags().Changed("session") {
		var kept []store.SessionStats
		for _, ss := range stats.Sessions {
			if ss.SessionID == sessionFlag {
				kept = append(kept, ss)
			}
		}
		stats.Sessions = kept
	}

	if formatFlag == "text" {
		fmt.Print(formatStatsText(stats))
		return
	}
	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}

func formatStatsText(st *store.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "db: %s (%d bytes)\n", st.DBPath, st.DBSizeBytes)
	fmt.Fprintf(&sb, "memories: %d total, %d active, %d superseded, %d forgotten\n",
		st.TotalMemories, st.ActiveMemories, st.SupersededCount, st.ForgottenCount)
	fmt.Fprintf(&sb, "links: %d\n", st.TotalLinks)
	for _, ss := range st.Sessions {
		fmt.Fprintf(&sb, "  %s: %d active / %d total\n", ss.SessionID, ss.Active, ss.Count)
	}
	return sb.String()
}
