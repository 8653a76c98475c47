package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/l1jgo/entpool/internal/hostsim"
	"github.com/l1jgo/entpool/internal/persist"
	"github.com/l1jgo/entpool/internal/saveerr"
	"github.com/l1jgo/entpool/internal/session"
)

var errResaveDiffers = errors.New("re-saved file differs from the input")

type verifyReport struct {
	Stats    session.Stats `json:"stats"`
	Blake2b  string        `json:"blake2b"`
	Digest   [32]byte      `json:"-"`
	Resaved  [32]byte      `json:"-"`
	Reason   string        `json:"reason"`
	Error    string        `json:"error,omitempty"`
	Matching bool          `json:"matching"`
}

// loader reads a whole save file into s.
type loader func(s *session.Session, r io.Reader) error

func loadAll(s *session.Session, r io.Reader) error { return s.LoadAll(r) }

// chunkLoader loads chunk by chunk through the host entry points, the way
// the game does, for a game state of the given save version.
func chunkLoader(version uint8) loader {
	return func(s *session.Session, r io.Reader) error {
		for _, kind := range []session.Kind{session.KindSprites, session.KindUnits, session.KindBullets} {
			if !s.LoadChunk(kind, r, version) {
				return fmt.Errorf("%s chunk rejected", kind)
			}
		}
		return nil
	}
}

// verifySave loads data into h's session, checks every list and saves it
// again. A file this tool wrote re-saves to the same bytes.
func verifySave(h *hostsim.Host, data []byte, load loader, log *zap.Logger) (verifyReport, error) {
	rep := verifyReport{Digest: persist.Digest(data)}
	rep.Blake2b = hex.EncodeToString(rep.Digest[:])
	err := func() error {
		if err := load(h.S, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("load: %w", err)
		}
		if err := h.S.CheckLists(); err != nil {
			return fmt.Errorf("lists: %w", err)
		}
		var buf bytes.Buffer
		if err := h.S.SaveAll(&buf); err != nil {
			return fmt.Errorf("re-save: %w", err)
		}
		rep.Resaved = persist.Digest(buf.Bytes())
		rep.Matching = rep.Resaved == rep.Digest
		if !rep.Matching {
			return errResaveDiffers
		}
		return nil
	}()
	rep.Stats = h.S.Stats()
	rep.Reason = saveerr.Reason(err)
	if err != nil {
		rep.Error = err.Error()
		log.Warn("存檔驗證失敗", zap.String("reason", rep.Reason), zap.Error(err))
	}
	return rep, err
}

func (a *app) verifyCmd() *cobra.Command {
	var chunked bool
	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Load a save into a fresh session, check it and re-save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			h, err := a.newHost()
			if err != nil {
				return err
			}
			load := loader(loadAll)
			if chunked {
				load = chunkLoader(a.cfg.Host.SaveVersion)
			}
			rep, err := verifySave(h, data, load, a.log)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSection(w, "驗證")
			printStats(w, rep.Stats)
			printStat(w, "blake2b", shortDigest(rep.Digest))
			printOK(w, "re-save matches")
			return nil
		},
	}
	cmd.Flags().BoolVar(&chunked, "chunked", false, "load through the per-chunk host entry points using host.save_version")
	return cmd
}
