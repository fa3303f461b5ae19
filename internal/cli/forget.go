package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "forget <id>",
		Short: "Forget a memory",
		Long:  "Logically delete a memory, or mark it replaced by a successor.",
		Args:  cobra.ExactArgs(1),
		Run:   runForget,
	}

	cmd.Flags().String("superseded-by", "", "Successor memory id (marks replacement instead of deletion)")

	RootCmd.AddCommand(cmd)
}

func runForget(cmd *cobra.Command, args []string) {
	successor, _ := cmd.Flags().GetString("superseded-by")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if successor != "" {
		if err := s.Supersede(cmd.Context(), sessionFlag, args[0], successor); err != nil {
			exitErr("forget", err)
		}
		fmt.Printf("superseded %s by %s\n", args[0], successor)
		return
	}

	if err := s.Forget(cmd.Context(), sessionFlag, args[0]); err != nil {
		exitErr("forget", err)
	}
	fmt.Printf("forgot %s\n", args[0])
}
