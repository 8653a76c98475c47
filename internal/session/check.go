package session

import (
	"errors"
	"fmt"

	"github.com/l1jgo/entpool/internal/core/linked"
	"github.com/l1jgo/entpool/internal/entity"
)

// CheckLists verifies every list the session owns: each terminates, agrees
// on prev/next and ends at its recorded last node. All failures are
// reported together.
func (s *Session) CheckLists() error {
	var errs []error
	check := func(name string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	spriteLimit := s.sprites.Len() + 1
	imageLimit := s.images.Len() + 1
	loneLimit := s.lone.Len() + 1
	unitLimit := s.units.Len() + 1

	check("free sprites", spriteLinks.Verify(s.G.FreeSprites.First, s.G.FreeSprites.Last, spriteLimit))
	for i, row := range s.G.SpriteLines {
		check(fmt.Sprintf("sprite line %d", i), spriteLinks.Verify(row.Begin, row.End, spriteLimit))
	}
	check("free images", imageLinks.Verify(s.G.FreeImages.First, s.G.FreeImages.Last, imageLimit))
	check("lone sprites", loneLinks.Verify(s.G.ActiveLone.First, s.G.ActiveLone.Last, loneLimit))
	check("fow sprites", loneLinks.Verify(s.G.ActiveFow.First, s.G.ActiveFow.Last, loneLimit))
	check("bullets", bulletLinks.Verify(s.G.ActiveBullets.First, s.G.ActiveBullets.Last, s.bullets.Len()+1))
	for name, h := range map[string]linked.Heads[entity.Unit]{
		"active units":   s.G.ActiveUnits,
		"hidden units":   s.G.HiddenUnits,
		"dying units":    s.G.DyingUnits,
		"revealer units": s.G.Revealers,
		"free units":     s.G.FreeUnits,
	} {
		check(name, unitLinks.Verify(h.First, h.Last, unitLimit))
	}
	for sp := range s.sprites.All() {
		if sp.FirstOverlay == nil {
			continue
		}
		if err := imageLinks.Verify(sp.FirstOverlay, sp.LastOverlay, imageLimit); err != nil {
			i, _ := s.sprites.IndexOf(sp)
			check(fmt.Sprintf("sprite %d overlays", i), err)
		}
	}
	return errors.Join(errs...)
}
