package reactivity

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/notegraph/pkg/core"
)

// triggerPrefix names the synthetic trigger of a button without a declared variable.
const triggerPrefix = "__trigger_"

// ExtractBindings derives the names a block defines and uses.
// It is total: unknown or malformed blocks yield an empty binding plus a
// warning, never an error.
func ExtractBindings(block core.Block) core.Binding {
	return ExtractBindingsWithOptions(block, Options{})
}

// ExtractBindingsWithOptions is ExtractBindings with explicit options.
// Only IgnoreNames is consulted.
func ExtractBindingsWithOptions(block core.Block, opts Options) core.Binding {
	typ := block.Type.Normalize()
	s := newBindingSet(block.ID, typ)

	switch {
	case typ == core.BlockCode:
		extractCode(s, block)
	case typ == core.BlockSQL:
		extractSQL(s, block)
	case typ == core.BlockNotebookFunction:
		extractFunction(s, block)
	case typ == core.BlockVisualization:
		s.use(block.MetaString(core.MetaVariableName))
		s.use(contentNames(block.Content)...)
	case typ == core.BlockBigNumber:
		s.use(block.MetaString(core.MetaBigNumberValue))
		s.use(block.MetaString(core.MetaBigNumberComparisonValue))
		s.use(contentNames(block.Content)...)
	case typ == core.BlockButton:
		s.trigger(TriggerName(block))
	case typ.IsInput():
		if name, ok := inputVariable(block); ok {
			s.define(name)
		}
	case typ.IsInert():
		// documents only
	default:
		err := &UnsupportedBlockTypeError{BlockID: block.ID, Type: typ}
		s.warn(core.WarningUnsupportedType, err.Error())
	}

	return s.build(opts.ignored())
}

// TriggerName returns the synthetic name a button block defines.
// Blocks that reference it get a control edge from the button.
func TriggerName(block core.Block) string {
	if name := block.MetaString(core.MetaVariableName); name != "" {
		return core.SanitizeVariableName(name)
	}
	return triggerPrefix + core.SanitizeVariableName(block.ID)
}

// inputVariable returns the sanitized variable of an input widget.
// A widget without a declared variable, or with a blank one, defines nothing.
func inputVariable(block core.Block) (string, bool) {
	if block.Metadata == nil {
		return "", false
	}
	raw, ok := block.Metadata[core.MetaVariableName].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return "", false
	}
	return core.SanitizeVariableName(raw), true
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// contentNames reads a plain list of data references ("df, totals" or one
// per line). Content that is anything else (a chart spec, say) yields nothing.
func contentNames(content string) []string {
	fields := strings.FieldsFunc(content, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
	for _, f := range fields {
		if !identifier.MatchString(f) {
			return nil
		}
	}
	return fields
}

// bindingSet accumulates names for one block before they are sorted.
type bindingSet struct {
	id       string
	typ      core.BlockType
	defines  map[string]struct{}
	uses     map[string]struct{}
	optional map[string]struct{}
	imports  map[string]struct{}
	triggers map[string]struct{}
	warnings []core.Warning
}

func newBindingSet(id string, typ core.BlockType) *bindingSet {
	return &bindingSet{
		id:       id,
		typ:      typ,
		defines:  make(map[string]struct{}),
		uses:     make(map[string]struct{}),
		optional: make(map[string]struct{}),
		imports:  make(map[string]struct{}),
		triggers: make(map[string]struct{}),
	}
}

func (s *bindingSet) define(names ...string)   { addNames(s.defines, names) }
func (s *bindingSet) use(names ...string)      { addNames(s.uses, names) }
func (s *bindingSet) maybe(names ...string)    { addNames(s.optional, names) }
func (s *bindingSet) imported(names ...string) { addNames(s.imports, names) }

func (s *bindingSet) trigger(name string) {
	addNames(s.defines, []string{name})
	addNames(s.triggers, []string{name})
}

func (s *bindingSet) warn(kind core.WarningKind, msg string) {
	s.warnings = append(s.warnings, core.Warning{BlockID: s.id, Kind: kind, Message: msg})
}

func (s *bindingSet) build(ignore map[string]struct{}) core.Binding {
	for name := range ignore {
		delete(s.uses, name)
		delete(s.optional, name)
	}
	// a hard use wins over an optional one
	for name := range s.uses {
		delete(s.optional, name)
	}

	return core.Binding{
		BlockID:  s.id,
		Type:     s.typ,
		Defines:  core.SortedKeys(s.defines),
		Uses:     core.SortedKeys(s.uses),
		Optional: core.SortedKeys(s.optional),
		Imports:  core.SortedKeys(s.imports),
		Triggers: core.SortedKeys(s.triggers),
		Warnings: s.warnings,
	}
}

func addNames(set map[string]struct{}, names []string) {
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			set[n] = struct{}{}
		}
	}
}
