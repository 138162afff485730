package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mqttdesk/internal/auth"
)

func newHashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Hash an API key for security.api_key_hash",
		Long: `Hash an API key with Argon2id for use as security.api_key_hash.
When no key is given a random one is generated and printed once.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				generated, err := auth.GenerateKey()
				if err != nil {
					return err
				}
				key = generated
				fmt.Fprintf(out, "api key: %s\n", key)
			}
			if key == "" {
				return fmt.Errorf("key must not be empty")
			}

			hash, err := auth.HashKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "api_key_hash: %s\n", hash)
			return nil
		},
	}
}
