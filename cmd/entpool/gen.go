package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l1jgo/entpool/internal/persist"
	"github.com/l1jgo/entpool/internal/scripting"
)

func (a *app) genCmd() *cobra.Command {
	var script, out string
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Run a Lua scenario and write the resulting save file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.newHost()
			if err != nil {
				return err
			}
			e := scripting.NewEngine(h, a.log)
			defer e.Close()
			if err := e.RunFile(script); err != nil {
				return err
			}
			if err := h.S.CheckLists(); err != nil {
				return fmt.Errorf("scenario left broken lists: %w", err)
			}

			var buf bytes.Buffer
			if err := h.S.SaveAll(&buf); err != nil {
				return fmt.Errorf("save: %w", err)
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSection(w, "場景")
			printStats(w, h.S.Stats())
			printStat(w, "bytes", buf.Len())
			printStat(w, "blake2b", shortDigest(persist.Digest(buf.Bytes())))
			printOK(w, "wrote "+out)
			return nil
		},
	}
	cmd.Flags().StringVar(&script, "script", "", "scenario script (lua)")
	cmd.Flags().StringVar(&out, "out", "save.bin", "output file")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}
