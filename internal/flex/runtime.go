package flex

import (
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wegman-software/osmpresets-go/internal/presets"
)

// Runtime runs a user Lua script against parsed presets. A script defines
//
//	function osmpresets.process_preset(preset) ... end
//
// and returns false to drop the preset from the catalog. Any other return
// value, including none, keeps it. Presets are handed to Lua as copies, so
// a script can never alter a record.
type Runtime struct {
	L             *lua.LState
	log           *zap.Logger
	processPreset lua.LValue
	mu            sync.Mutex
}

// NewRuntime creates a new Lua runtime with the osmpresets API
func NewRuntime(log *zap.Logger) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runtime{
		L:   lua.NewState(),
		log: log,
	}
	r.registerAPI()
	return r
}

// Close releases Lua resources
func (r *Runtime) Close() {
	r.L.Close()
}

func (r *Runtime) registerAPI() {
	api := r.L.NewTable()
	api.RawSetString("version", lua.LString("1.0.0"))
	r.L.SetField(api, "has_tag", r.L.NewFunction(luaHasTag))
	r.L.SetGlobal("osmpresets", api)

	r.L.SetGlobal("print", r.L.NewFunction(r.luaPrint))
}

// LoadFile loads and executes a Lua script
func (r *Runtime) LoadFile(path string) error {
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to load Lua file: %w", err)
	}
	r.extractCallbacks()
	return nil
}

// LoadString loads and executes Lua code from a string
func (r *Runtime) LoadString(code string) error {
	if err := r.L.DoString(code); err != nil {
		return fmt.Errorf("failed to load Lua code: %w", err)
	}
	r.extractCallbacks()
	return nil
}

func (r *Runtime) extractCallbacks() {
	if api, ok := r.L.GetGlobal("osmpresets").(*lua.LTable); ok {
		r.processPreset = api.RawGetString("process_preset")
	}
}

// HasProcessPreset returns true if the script defines process_preset
func (r *Runtime) HasProcessPreset() bool {
	return r.processPreset != nil && r.processPreset.Type() == lua.LTFunction
}

// Keep calls process_preset and reports whether the preset stays
func (r *Runtime) Keep(f *presets.Feature) (bool, error) {
	if !r.HasProcessPreset() {
		return true, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.L.CallByParam(lua.P{
		Fn:      r.processPreset,
		NRet:    1,
		Protect: true,
	}, r.presetToLua(f)); err != nil {
		return false, fmt.Errorf("lua process_preset(%s): %w", f.ID(), err)
	}
	ret := r.L.Get(-1)
	r.L.Pop(1)

	if b, ok := ret.(lua.LBool); ok && !bool(b) {
		return false, nil
	}
	return true, nil
}

// presetToLua converts a Feature to a fresh Lua table
func (r *Runtime) presetToLua(f *presets.Feature) *lua.LTable {
	L := r.L
	tbl := L.NewTable()
	tbl.RawSetString("id", lua.LString(f.ID()))
	tbl.RawSetString("name", lua.LString(f.Name()))
	tbl.RawSetString("icon", lua.LString(f.Icon()))
	tbl.RawSetString("image_url", lua.LString(f.ImageURL()))
	tbl.RawSetString("searchable", lua.LBool(f.Searchable()))
	tbl.RawSetString("suggestion", lua.LBool(f.Suggestion()))
	tbl.RawSetString("match_score", lua.LNumber(f.MatchScore()))
	tbl.RawSetString("tags", mapToLua(L, f.Tags()))
	tbl.RawSetString("add_tags", mapToLua(L, f.AddTags()))
	tbl.RawSetString("remove_tags", mapToLua(L, f.RemoveTags()))
	tbl.RawSetString("terms", listToLua(L, f.Terms()))
	tbl.RawSetString("include_countries", listToLua(L, f.IncludeCountryCodes()))
	tbl.RawSetString("exclude_countries", listToLua(L, f.ExcludeCountryCodes()))

	geoms := f.Geometries()
	names := make([]string, len(geoms))
	for i, g := range geoms {
		names[i] = strings.ToLower(g.String())
	}
	tbl.RawSetString("geometry", listToLua(L, names))

	tbl.RawSetString("available_in", L.NewFunction(func(L *lua.LState) int {
		// Accept both preset.available_in("DE") and preset:available_in("DE")
		cc := L.CheckString(L.GetTop())
		L.Push(lua.LBool(f.IsAvailableIn(cc)))
		return 1
	}))
	return tbl
}

func mapToLua(L *lua.LState, m map[string]string) *lua.LTable {
	tbl := L.CreateTable(0, len(m))
	for k, v := range m {
		tbl.RawSetString(k, lua.LString(v))
	}
	return tbl
}

func listToLua(L *lua.LState, items []string) *lua.LTable {
	tbl := L.CreateTable(len(items), 0)
	for _, s := range items {
		tbl.Append(lua.LString(s))
	}
	return tbl
}

// luaHasTag implements osmpresets.has_tag(tags, key [, value])
func luaHasTag(L *lua.LState) int {
	tags := L.CheckTable(1)
	key := L.CheckString(2)
	v := tags.RawGetString(key)
	if v.Type() != lua.LTString {
		L.Push(lua.LFalse)
		return 1
	}
	if L.GetTop() >= 3 {
		L.Push(lua.LBool(string(v.(lua.LString)) == L.CheckString(3)))
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}

// luaPrint routes script output to the debug log
func (r *Runtime) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	r.log.Debug("lua", zap.String("message", strings.Join(parts, "\t")))
	return 0
}
