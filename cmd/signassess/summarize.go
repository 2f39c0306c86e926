package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/signassess/internal/summary"
)

func newSummarizeCmd() *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "summarize [file]",
		Short: "Rank the signs of a recorded detection stream",
		Long: `Reads a JSON array of frame detections ({"label": ..., "confidence": ...})
from file, or from stdin when no file is given, and prints the top signs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return summarize(in, cmd.OutOrStdout(), topN)
		},
	}
	cmd.Flags().IntVarP(&topN, "top", "n", summary.DefaultTopN, "number of signs to keep")
	return cmd
}

func summarize(in io.Reader, out io.Writer, topN int) error {
	var frames []summary.FrameDetection
	if err := json.NewDecoder(in).Decode(&frames); err != nil {
		return fmt.Errorf("invalid detection stream: %w", err)
	}

	sum, err := summary.Summarize(frames, topN)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}
