// modules.go — the VTModule value and its snapshot representation.
//
// A module is an ordinary program whose exported bindings are snapshotted
// into a map-like value paired with the lexical environment it executed in:
//
//	type Module struct {
//	  Name string     // canonical identity or caller-provided label
//	  Map  *MapObject // ordered export surface with per-key annotations
//	  Env  *Env       // lexical environment where the module executed
//	}
//
// The engine's only module constructor left wired into the runtime is the
// `__make_module` primitive (interpreter_ops.go), which calls buildModuleMap
// to snapshot a freshly-evaluated env into this shape. The marshal subsystem
// has no encoding for VTModule values: marshaling one fails with
// no_encoding. The filesystem/HTTP module loader that used to back
// `import`/`importCode` lived here too; it had no caller left once those
// builtins were retired (see DESIGN.md) and was removed rather than kept
// unreachable.
package mindscript

// Module is the payload carried by a VTModule value.
type Module struct {
	Name string
	Map  *MapObject
	Env  *Env
}

// get returns an exported binding by key. The VM uses this for property/index reads.
func (m *Module) get(key string) (Value, bool) {
	v, ok := m.Map.Entries[key]
	return v, ok
}

type moduleState int

const (
	modUnloaded moduleState = iota
	modLoading
	modLoaded
)

// moduleRec tracks in-progress/loaded module state by canonical identity,
// guarding against import cycles in __make_module.
type moduleRec struct {
	spec  string
	mod   *Module
	state moduleState
	err   error
}

// buildModuleMap snapshots an environment's own bindings into an ordered
// MapObject: exported keys sorted lexicographically, with any value
// annotation mirrored into KeyAnn.
func buildModuleMap(env *Env) *MapObject {
	keys := make([]string, 0, len(env.table))
	for k := range env.table {
		keys = append(keys, k)
	}
	sortStrings(keys)

	entries := make(map[string]Value, len(keys))
	keyAnn := map[string]string{}
	for _, k := range keys {
		v, err := env.Get(k)
		if err != nil {
			continue
		}
		if tv, ok := v.Data.(*TypeValue); ok && tv.Env == nil {
			v = TypeValIn(tv.Ast, env)
		}
		entries[k] = v
		if v.Annot != "" {
			keyAnn[k] = v.Annot
		}
	}
	return &MapObject{Entries: entries, Keys: keys, KeyAnn: keyAnn}
}

// sortStrings is a tiny indirection so buildModuleMap doesn't pull in sort
// just for this one call site's use.
func sortStrings(xs []string) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
