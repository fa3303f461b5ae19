package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-recall/internal/model"
	"github.com/rcliao/agent-recall/internal/promotion"
	"github.com/rcliao/agent-recall/internal/scoring"
	"github.com/rcliao/agent-recall/internal/shortterm"
)

// stagedItem is the JSON input shape for one promotion candidate.
type stagedItem struct {
	Content    string   `json:"content"`
	Type       string   `json:"memory_type"`
	Confidence float64  `json:"confidence"`
	Importance float64  `json:"importance"`
	Rationale  string   `json:"rationale,omitempty"`
	Evidence   []string `json:"evidence,omitempty"`
	Agent      bool     `json:"agent_decision,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "promote [file]",
		Short: "Run a promotion pass over staged candidates",
		Long:  "Read staged candidates (JSON array) from a file or stdin, score them, and persist the ones above the threshold.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runPromote,
	}

	cmd.Flags().Float64("threshold", -1, "Importance threshold override (default from config)")

	RootCmd.AddCommand(cmd)
}

func runPromote(cmd *cobra.Command, args []string) {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	cfg := loadConfig()

	var data []byte
	var err error
	if len(args) > 0 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read candidates", err)
	}

	var staged []stagedItem
	if err := json.Unmarshal(data, &staged); err != nil {
		exitErr("parse candidates", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	scorer, err := scoring.New(cfg.Weights, cfg.FrequencyCap)
	if err != nil {
		exitErr("promote", err)
	}
	engine, err := promotion.NewEngine(s, scorer, promotion.Options{
		Threshold: cfg.Promotion.Threshold,
		MaxPerRun: cfg.Promotion.MaxPerRun,
		Logger:    slog.Default(),
	})
	if err != nil {
		exitErr("promote", err)
	}

	pending := shortterm.NewPendingMemories(len(staged) + 1)
	for _, it := range staged {
		origin := shortterm.OriginImplicit
		if it.Agent {
			origin = shortterm.OriginAgent
		}
		pending.Add(shortterm.PendingItem{
			Content:         it.Content,
			Type:            model.MemoryType(it.Type),
			Confidence:      it.Confidence,
			ImportanceScore: it.Importance,
			Rationale:       it.Rationale,
			Evidence:        it.Evidence,
			SuggestedBy:     origin,
		})
	}

	result := engine.Run(cmd.Context(), sessionFlag, promotion.Containers{Pending: pending}, threshold)

	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(b))
}
