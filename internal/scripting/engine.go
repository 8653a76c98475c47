package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/entpool/internal/entity"
	"github.com/l1jgo/entpool/internal/hostsim"
)

// Engine wraps a single gopher-lua VM that builds session state from
// scenario scripts. Single-goroutine access only.
type Engine struct {
	vm   *lua.LState
	host *hostsim.Host
	log  *zap.Logger
}

const (
	spriteType = "sprite"
	unitType   = "unit"
	loneType   = "lone_sprite"
	bulletType = "bullet"
)

// NewEngine creates a Lua VM whose globals create entities in h.
func NewEngine(h *hostsim.Host, log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, host: h, log: log}
	for _, name := range []string{spriteType, unitType, loneType, bulletType} {
		mt := vm.NewTypeMetatable(name)
		vm.SetField(mt, "__tostring", vm.NewFunction(e.toString))
		vm.SetField(mt, "__index", vm.NewFunction(e.index))
	}
	for name, fn := range map[string]lua.LGFunction{
		"create_sprite": e.createSprite,
		"create_bullet": e.createBullet,
		"create_lone":   e.createLone,
		"create_fow":    e.createFow,
		"spawn_unit":    e.spawnUnit,
		"link_unit":     e.linkUnit,
		"set_cursor":    e.setCursor,
		"stats":         e.stats,
	} {
		vm.SetGlobal(name, vm.NewFunction(fn))
	}
	return e
}

// RunFile executes one scenario file.
func (e *Engine) RunFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("run %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// RunString executes scenario source held in memory.
func (e *Engine) RunString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("run scenario: %w", err)
	}
	return nil
}

// RunDir executes every .lua file in dir in name order. A missing
// directory is not an error.
func (e *Engine) RunDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.RunFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}

func (e *Engine) wrap(typ string, v any) lua.LValue {
	ud := e.vm.NewUserData()
	ud.Value = v
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(typ))
	return ud
}

// create_sprite{id=, player=, x=, y=, images={...}}
func (e *Engine) createSprite(L *lua.LState) int {
	t := L.CheckTable(1)
	var images []uint16
	if it, ok := t.RawGetString("images").(*lua.LTable); ok {
		it.ForEach(func(_, v lua.LValue) {
			images = append(images, uint16(lua.LVAsNumber(v)))
		})
	}
	sp := e.host.Sprite(uint16(lInt(t, "id")), uint8(lInt(t, "player")),
		int16(lInt(t, "x")), int16(lInt(t, "y")), images...)
	if sp == nil {
		L.Push(lua.LNil)
		return 1
	}
	if elev, ok := t.RawGetString("elevation").(lua.LNumber); ok {
		sp.Elevation = uint8(elev)
	}
	L.Push(e.wrap(spriteType, sp))
	return 1
}

// spawn_unit{id=, player=, x=, y=, sprite=, building=, amount=}
func (e *Engine) spawnUnit(L *lua.LState) int {
	t := L.CheckTable(1)
	sp, _ := optField[*entity.Sprite](L, t, "sprite")
	spawn := e.host.Unit
	if lua.LVAsBool(t.RawGetString("building")) {
		spawn = e.host.Building
	}
	u, err := spawn(uint16(lInt(t, "id")), uint8(lInt(t, "player")),
		int16(lInt(t, "x")), int16(lInt(t, "y")), sp)
	if err != nil {
		L.RaiseError("spawn_unit: %v", err)
		return 0
	}
	if amount := lInt(t, "amount"); amount != 0 {
		res, ok := u.Specific2.(*entity.ResourceState)
		if !ok {
			L.RaiseError("spawn_unit: unit 0x%x holds no resources", u.UnitID)
			return 0
		}
		res.Amount = uint16(amount)
	}
	L.Push(e.wrap(unitType, u))
	return 1
}

// create_bullet{weapon=, parent=, sprite=, target=}
func (e *Engine) createBullet(L *lua.LState) int {
	t := L.CheckTable(1)
	parent, _ := optField[*entity.Unit](L, t, "parent")
	sp, _ := optField[*entity.Sprite](L, t, "sprite")
	b := e.host.Bullet(uint8(lInt(t, "weapon")), parent, sp)
	if b == nil {
		L.Push(lua.LNil)
		return 1
	}
	if target, ok := optField[*entity.Unit](L, t, "target"); ok {
		b.Target = target
	}
	L.Push(e.wrap(bulletType, b))
	return 1
}

func (e *Engine) createLone(L *lua.LState) int { return e.pushLone(L, e.host.LoneSprite) }
func (e *Engine) createFow(L *lua.LState) int  { return e.pushLone(L, e.host.FowSprite) }

// create_lone{sprite=, value=} and create_fow{sprite=, value=}
func (e *Engine) pushLone(L *lua.LState, create func(*entity.Sprite, uint32) *entity.LoneSprite) int {
	t := L.CheckTable(1)
	sp, _ := optField[*entity.Sprite](L, t, "sprite")
	ls := create(sp, uint32(lInt(t, "value")))
	if ls == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(e.wrap(loneType, ls))
	return 1
}

func (e *Engine) setCursor(L *lua.LState) int {
	if L.Get(1) == lua.LNil {
		e.host.S.G.CursorMarker = nil
		return 0
	}
	e.host.S.G.CursorMarker = check[*entity.LoneSprite](L, 1, loneType)
	return 0
}

// link_unit(relation, from, to) sets one pointer relationship between
// entities. The relation must fit the unions the units were spawned with.
func (e *Engine) linkUnit(L *lua.LState) int {
	rel := L.CheckString(1)
	from := check[*entity.Unit](L, 2, unitType)
	if err := link(L, rel, from); err != nil {
		L.RaiseError("link_unit %s: %v", rel, err)
	}
	return 0
}

func link(L *lua.LState, rel string, from *entity.Unit) error {
	switch rel {
	case "target":
		from.Target = check[*entity.Unit](L, 3, unitType)
	case "harvest":
		res := check[*entity.Unit](L, 3, unitType)
		w, ok := from.Specific.(*entity.WorkerState)
		h, ok2 := from.Specific2.(*entity.HarvestState)
		r, ok3 := res.Specific2.(*entity.ResourceState)
		if !ok || !ok2 || !ok3 {
			return fmt.Errorf("unit 0x%x cannot harvest unit 0x%x", from.UnitID, res.UnitID)
		}
		w.HarvestTarget = res
		h.Target = res
		if r.FirstAwaitingWorker == nil {
			r.FirstAwaitingWorker = from
		}
	case "hangar":
		child := check[*entity.Unit](L, 3, unitType)
		hs, ok := from.Specific.(*entity.HangarState)
		cs, ok2 := child.Specific.(*entity.ChildState)
		if !ok || !ok2 {
			return fmt.Errorf("unit 0x%x cannot carry unit 0x%x", from.UnitID, child.UnitID)
		}
		cs.Parent = from
		cs.Next = hs.InChild
		if hs.InChild != nil {
			if next, ok := hs.InChild.Specific.(*entity.ChildState); ok {
				next.Prev = child
			}
		}
		hs.InChild = child
		hs.InCount++
	case "rally":
		rp, ok := from.Rally.(*entity.RallyPoint)
		if !ok {
			return fmt.Errorf("unit 0x%x has no rally point", from.UnitID)
		}
		rp.Unit = check[*entity.Unit](L, 3, unitType)
	case "aura":
		ps, ok := from.Specific2.(*entity.PylonState)
		if !ok {
			return fmt.Errorf("unit 0x%x is not a pylon", from.UnitID)
		}
		ps.Aura = check[*entity.Sprite](L, 3, spriteType)
	case "nuke":
		gs, ok := from.Specific2.(*entity.GhostState)
		if !ok {
			return fmt.Errorf("unit 0x%x is not a ghost", from.UnitID)
		}
		gs.NukeDot = check[*entity.LoneSprite](L, 3, loneType)
	default:
		return fmt.Errorf("unknown relation %q", rel)
	}
	return nil
}

// stats() returns the session's pool usage.
func (e *Engine) stats(L *lua.LState) int {
	st := e.host.S.Stats()
	t := L.NewTable()
	t.RawSetString("sprites", lua.LNumber(st.Sprites))
	t.RawSetString("images", lua.LNumber(st.Images))
	t.RawSetString("units", lua.LNumber(st.ActiveUnits))
	t.RawSetString("bullets", lua.LNumber(st.Bullets))
	t.RawSetString("lone", lua.LNumber(st.Lone))
	t.RawSetString("fow", lua.LNumber(st.Fow))
	L.Push(t)
	return 1
}

func (e *Engine) toString(L *lua.LState) int {
	ud := L.CheckUserData(1)
	var s string
	switch v := ud.Value.(type) {
	case *entity.Sprite:
		s = fmt.Sprintf("sprite(0x%x @%d,%d)", v.SpriteID, v.Position.X, v.Position.Y)
	case *entity.Unit:
		s = fmt.Sprintf("unit(0x%x p%d)", v.UnitID, v.Player)
	case *entity.LoneSprite:
		s = fmt.Sprintf("lone_sprite(%d)", v.Value)
	case *entity.Bullet:
		s = fmt.Sprintf("bullet(weapon %d)", v.WeaponID)
	}
	L.Push(lua.LString(s))
	return 1
}

// index exposes a few read-only fields to scripts.
func (e *Engine) index(L *lua.LState) int {
	ud := L.CheckUserData(1)
	key := L.CheckString(2)
	var v lua.LValue = lua.LNil
	switch x := ud.Value.(type) {
	case *entity.Sprite:
		switch key {
		case "id":
			v = lua.LNumber(x.SpriteID)
		case "spawn_order":
			v = lua.LNumber(x.SpawnOrder)
		}
	case *entity.Unit:
		switch key {
		case "id":
			v = lua.LNumber(x.UnitID)
		case "player":
			v = lua.LNumber(x.Player)
		case "kind":
			if x.Specific != nil {
				v = lua.LString(x.Specific.SpecificKind().String())
			}
		}
	case *entity.LoneSprite:
		if key == "value" {
			v = lua.LNumber(x.Value)
		}
	case *entity.Bullet:
		if key == "weapon" {
			v = lua.LNumber(x.WeaponID)
		}
	}
	L.Push(v)
	return 1
}

// check returns argument n as a T or raises a Lua argument error.
func check[T any](L *lua.LState, n int, typ string) T {
	ud := L.CheckUserData(n)
	v, ok := ud.Value.(T)
	if !ok {
		L.ArgError(n, typ+" expected")
	}
	return v
}

// optField reads an optional userdata field of t.
func optField[T any](L *lua.LState, t *lua.LTable, key string) (T, bool) {
	var zero T
	lv := t.RawGetString(key)
	if lv == lua.LNil {
		return zero, false
	}
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		L.RaiseError("field %s: userdata expected, got %s", key, lv.Type())
		return zero, false
	}
	v, ok := ud.Value.(T)
	if !ok {
		L.RaiseError("field %s: wrong entity type", key)
		return zero, false
	}
	return v, true
}

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}
