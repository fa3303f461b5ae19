package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-recall/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Persist a memory immediately",
		Long:  "Persist an agent-decision memory, bypassing scoring. Content can be a positional arg or piped via stdin.",
		Run:   runRemember,
	}

	cmd.Flags().StringP("type", "t", string(model.TypeFact), "Memory type")
	cmd.Flags().Float64P("confidence", "C", 0.9, "Confidence in [0,1]")
	cmd.Flags().String("source", string(model.SourceAgent), "Source: user, agent, tool, external_document")
	cmd.Flags().StringP("rationale", "r", "", "Why this is worth keeping")
	cmd.Flags().StringSliceP("evidence", "e", nil, "Supporting references")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	memType, _ := cmd.Flags().GetString("type")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	source, _ := cmd.Flags().GetString("source")
	rationale, _ := cmd.Flags().GetString("rationale")
	evidence, _ := cmd.Flags().GetStringSlice("evidence")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	if strings.TrimSpace(content) == "" {
		exitErr("remember", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	id, err := s.Persist(cmd.Context(), model.MemoryInput{
		Content:    strings.TrimSpace(content),
		Type:       model.MemoryType(memType),
		Confidence: confidence,
		Source:     model.SourceType(source),
		SessionID:  sessionFlag,
		Rationale:  rationale,
		Evidence:   evidence,
	})
	if err != nil {
		exitErr("remember", err)
	}

	mem, err := s.Get(cmd.Context(), sessionFlag, id)
	if err != nil {
		exitErr("remember", err)
	}
	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}
