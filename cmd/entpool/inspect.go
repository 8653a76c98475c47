package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l1jgo/entpool/internal/chunk"
	"github.com/l1jgo/entpool/internal/persist"
)

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the chunk envelopes of a save file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			raws, err := chunk.Split(f)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-4s %-8s %-6s %-7s %-9s %s\n", "#", "kind", "magic", "version", "length", "blake2b")
			for i, raw := range raws {
				fmt.Fprintf(w, "%-4d %-8s 0x%04x %-7d %-9d %s\n",
					i, raw.Kind(), raw.Header.Magic, raw.Header.Version, raw.Header.Length,
					shortDigest(persist.Digest(raw.Payload)))
			}
			return nil
		},
	}
}
