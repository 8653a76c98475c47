package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/l1jgo/entpool/internal/session"
)

// displayWidth counts CJK runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(w io.Writer, title string) {
	lineLen := max(46-displayWidth(title)-1, 3)
	fmt.Fprintf(w, "── %s %s\n", title, strings.Repeat("─", lineLen))
}

func printStat(w io.Writer, label string, value any) {
	val := fmt.Sprint(value)
	dots := max(42-displayWidth(label)-len(val), 3)
	fmt.Fprintf(w, "  %s %s %s\n", label, strings.Repeat("·", dots), val)
}

func printOK(w io.Writer, msg string) {
	fmt.Fprintf(w, "  ✓ %s\n", msg)
}

func shortDigest(sum [32]byte) string {
	return hex.EncodeToString(sum[:8])
}

func printStats(w io.Writer, st session.Stats) {
	printStat(w, "sprites", fmt.Sprintf("%d/%d", st.Sprites, st.SpriteCap))
	printStat(w, "images", fmt.Sprintf("%d/%d", st.Images, st.ImageCap))
	printStat(w, "units", fmt.Sprintf("%d/%d", st.ActiveUnits, st.Units))
	printStat(w, "bullets", st.Bullets)
	printStat(w, "lone sprites", st.Lone)
	printStat(w, "fog sprites", st.Fow)
}
