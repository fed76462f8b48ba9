// Package merge combines manifests along extends and dependencies references.
//
// Mappings merge deeply with the overlay winning at matching keys, parent key
// order preserved and new keys appended. Sequences are replaced unless the
// overlay key carries the append suffix, as in "children+", in which case the
// overlay items are appended to the inherited sequence.
package merge

import (
	"strings"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/utils"
)

// AppendSuffix marks a key whose sequence value extends the inherited one
const AppendSuffix = "+"

// Merger merges documents without mutating them
type Merger struct {
	logger *utils.Logger
}

// Options contains options for creating a Merger
type Options struct {
	Logger *utils.Logger
}

// NewMerger creates a new Merger
func NewMerger(opts Options) *Merger {
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return &Merger{logger: opts.Logger.WithComponent("merge")}
}

// Merge overlays child onto parent. Either may be nil. The result carries the
// child's source id, no extends or dependencies, and the combined lineage.
func (m *Merger) Merge(parent, child *domain.Document) *domain.Document {
	return m.MergeAll(parent, child)
}

// MergeAll folds docs left to right, later documents overriding earlier ones.
// Nil entries are skipped; it returns nil when nothing is left.
func (m *Merger) MergeAll(docs ...*domain.Document) *domain.Document {
	var last *domain.Document
	tree := domain.NewMap()
	var lineage []string
	seen := make(map[string]bool)

	for _, d := range docs {
		if d == nil {
			continue
		}
		overlayDocument(tree, d.Tree)
		for _, id := range lineageOf(d) {
			if !seen[id] {
				seen[id] = true
				lineage = append(lineage, id)
			}
		}
		last = d
	}
	if last == nil {
		return nil
	}

	stripReferences(tree)
	m.logger.Trace().
		Str("source", last.SourceID).
		Strs("lineage", lineage).
		Msg("merged")

	return &domain.Document{
		SourceID: last.SourceID,
		Hash:     last.Hash,
		Tree:     tree,
		Status:   domain.StatusResolving,
		Lineage:  lineage,
	}
}

// Resolve merges one graph node: parent ⊕ dependencies in listed order ⊕ child.
// parent and deps are expected to be resolved already.
func (m *Merger) Resolve(parent *domain.Document, deps []*domain.Document, child *domain.Document) *domain.Document {
	docs := make([]*domain.Document, 0, len(deps)+2)
	docs = append(docs, parent)
	docs = append(docs, deps...)
	docs = append(docs, child)
	return m.MergeAll(docs...)
}

// Trees deep-merges overlay onto base and returns a new tree
func Trees(base, overlay *domain.Map) *domain.Map {
	out := domain.NewMap()
	apply(out, base)
	apply(out, overlay)
	return out
}

func lineageOf(d *domain.Document) []string {
	if len(d.Lineage) > 0 {
		return d.Lineage
	}
	if d.SourceID == "" {
		return nil
	}
	return []string{d.SourceID}
}

// overlayDocument applies a document tree, honouring template slots declared
// by earlier documents and the structure override marker
func overlayDocument(dst, src *domain.Map) {
	src = fillSlots(dst, src)

	structure, ok := src.Get(string(domain.SectionStructure))
	if sm, isMap := structure.(*domain.Map); ok && isMap && isOverride(sm) {
		rest := src.Clone()
		rest.Delete(string(domain.SectionStructure))
		apply(dst, rest)
		dst.Set(string(domain.SectionStructure), fresh(sm))
		return
	}
	apply(dst, src)
}

// fillSlots replaces {slot: name} elements of the accumulated structure in
// dst with src's structure entry called name, when dst declares
// template_slots. It returns src without the consumed entries; src itself is
// not modified.
func fillSlots(dst, src *domain.Map) *domain.Map {
	if !declaresSlots(dst) {
		return src
	}
	target, ok := dst.Get(string(domain.SectionStructure))
	if !ok {
		return src
	}
	provided, ok := src.GetMap(string(domain.SectionStructure))
	if !ok || provided.Len() == 0 {
		return src
	}

	used := make(map[string]bool)
	dst.Set(string(domain.SectionStructure), replaceSlots(target, provided, used))
	if len(used) == 0 {
		return src
	}

	rest := provided.Clone()
	for name := range used {
		rest.Delete(name)
	}
	out := src.Clone()
	if rest.Len() == 0 {
		out.Delete(string(domain.SectionStructure))
	} else {
		out.Set(string(domain.SectionStructure), rest)
	}
	return out
}

func declaresSlots(tree *domain.Map) bool {
	switch t, _ := tree.Get(domain.KeyTemplateSlots); slots := t.(type) {
	case *domain.Map:
		return slots.Len() > 0
	case []any:
		return len(slots) > 0
	default:
		return false
	}
}

// replaceSlots walks v. v is owned by the merge result and is rewritten in
// place; replacements are fresh copies of provided entries.
func replaceSlots(v any, provided *domain.Map, used map[string]bool) any {
	switch t := v.(type) {
	case *domain.Map:
		if name, ok := slotName(t); ok {
			if content, ok := provided.Get(name); ok {
				used[name] = true
				return fresh(content)
			}
			return t
		}
		t.Range(func(k string, val any) bool {
			t.Set(k, replaceSlots(val, provided, used))
			return true
		})
		return t
	case []any:
		for i, item := range t {
			t[i] = replaceSlots(item, provided, used)
		}
		return t
	default:
		return v
	}
}

func slotName(m *domain.Map) (string, bool) {
	v, ok := m.Get(domain.KeySlot)
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok && name != ""
}

func isOverride(m *domain.Map) bool {
	v, _ := m.Get(domain.OverrideMarker)
	b, _ := v.(bool)
	return b
}

// stripReferences drops the keys that only matter before merging
func stripReferences(tree *domain.Map) {
	tree.Delete(string(domain.SectionExtends))
	tree.Delete(string(domain.SectionDependencies))
	if meta, ok := tree.GetMap(string(domain.SectionMetadata)); ok {
		meta.Delete(string(domain.SectionExtends))
	}
	if structure, ok := tree.GetMap(string(domain.SectionStructure)); ok {
		structure.Delete(domain.OverrideMarker)
	}
}

func splitAppend(key string) (string, bool) {
	if len(key) > len(AppendSuffix) && strings.HasSuffix(key, AppendSuffix) {
		return strings.TrimSuffix(key, AppendSuffix), true
	}
	return key, false
}

// apply merges src into dst in place. Every value written into dst is a fresh
// copy, so dst never shares structure with src.
func apply(dst, src *domain.Map) {
	src.Range(func(key string, v any) bool {
		name, appendMode := splitAppend(key)
		cur, _ := dst.Get(name)
		if appendMode {
			curSeq, curOK := cur.([]any)
			seq, seqOK := v.([]any)
			if curOK && seqOK {
				dst.Set(name, append(curSeq, fresh(seq).([]any)...))
				return true
			}
		}
		dst.Set(name, overlay(cur, v))
		return true
	})
}

func overlay(cur, v any) any {
	vm, ok := v.(*domain.Map)
	if !ok {
		return fresh(v)
	}
	if cm, ok := cur.(*domain.Map); ok {
		apply(cm, vm)
		return cm
	}
	return fresh(vm)
}

// fresh deep-copies v, folding append-suffixed keys into plain ones
func fresh(v any) any {
	switch t := v.(type) {
	case *domain.Map:
		out := domain.NewMap()
		apply(out, t)
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = fresh(item)
		}
		return out
	default:
		return v
	}
}
