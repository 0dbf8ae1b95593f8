package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/planea-app/planea-go/internal/remote"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Save the bearer token for the remote row store",
		Long: `Store the API token used to authenticate against the remote row store.
The token is written to the configured token file with owner-only
permissions. With no argument, the token is read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var token string

			if len(args) == 1 {
				token = args[0]
			} else {
				fmt.Fprint(os.Stderr, "Token: ")

				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading token from stdin: %w", err)
				}

				token = strings.TrimSpace(line)
			}

			if token == "" {
				return fmt.Errorf("token must not be empty")
			}

			if err := remote.SaveToken(resolvedCfg.TokenFile, token); err != nil {
				return err
			}

			statusf("token saved to %s\n", resolvedCfg.TokenFile)

			return nil
		},
	}
}
