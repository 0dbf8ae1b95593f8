package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planea-app/planea-go/internal/entity"
)

// statusOutput is the JSON shape of the status command.
type statusOutput struct {
	Counts     map[string]int    `json:"counts"`
	Dirty      map[string]int    `json:"dirty"`
	Watermarks map[string]string `json:"watermarks"`
	LastError  string            `json:"last_error,omitempty"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show local entity counts, dirty rows, and watermarks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			status, err := a.engine.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := statusOutput{
				Counts:     make(map[string]int),
				Dirty:      make(map[string]int),
				Watermarks: make(map[string]string),
			}

			for _, kind := range entity.Kinds() {
				out.Counts[string(kind)] = a.store.Count(kind)
				out.Dirty[string(kind)] = status.DirtyCounts[kind]
				out.Watermarks[string(kind)] = status.Watermarks[kind]
			}

			if status.LastError != nil {
				out.LastError = status.LastError.Error()
			}

			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(out)
			}

			for _, kind := range entity.Kinds() {
				watermark := out.Watermarks[string(kind)]
				if watermark == "" {
					watermark = "-"
				}

				fmt.Printf("%-10s %5d rows %5d dirty  watermark %s\n",
					kind, out.Counts[string(kind)], out.Dirty[string(kind)], watermark)
			}

			if out.LastError != "" {
				fmt.Printf("last error: %s\n", out.LastError)
			}

			return nil
		},
	}
}
