package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/artiefy/course-actions/pkg/logger"
)

var eventFile string

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Handle one invocation event read from a file or stdin and print the envelope",
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if eventFile != "" && eventFile != "-" {
			f, err := os.Open(eventFile)
			if err != nil {
				return fmt.Errorf("open event: %w", err)
			}
			defer f.Close()
			in = f
		}

		payload, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}

		ad, err := newAdapter(cfg)
		if err != nil {
			return err
		}

		ctx := logger.ContextWithTraceID(cmd.Context(), uuid.New().String()[:16])
		env := ad.Handle(ctx, payload)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	},
}

func init() {
	invokeCmd.Flags().StringVarP(&eventFile, "file", "f", "", "event JSON file (default stdin)")
}
