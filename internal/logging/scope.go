package logging

import (
	"log/slog"
	"slices"
)

// scopedAttr is an attribute bound to the groups open when it was added.
type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

// scope is the state slog handlers accumulate through WithAttrs and
// WithGroup. It is immutable; the with methods return copies.
type scope struct {
	attrs  []scopedAttr
	groups []string
}

func (s scope) withAttrs(attrs []slog.Attr) scope {
	out := scope{attrs: slices.Clip(s.attrs), groups: s.groups}
	for _, a := range attrs {
		out.attrs = append(out.attrs, scopedAttr{groups: s.groups, attr: a})
	}
	return out
}

func (s scope) withGroup(name string) scope {
	if name == "" {
		return s
	}
	return scope{attrs: s.attrs, groups: append(slices.Clip(s.groups), name)}
}

// each calls fn for every leaf attribute of the scope followed by the
// record's own. path is the group chain ending in the attribute key.
func (s scope) each(r slog.Record, fn func(path []string, v slog.Value)) {
	for _, sa := range s.attrs {
		walkAttr(sa.groups, sa.attr, fn)
	}
	r.Attrs(func(a slog.Attr) bool {
		walkAttr(s.groups, a, fn)
		return true
	})
}

func walkAttr(groups []string, a slog.Attr, fn func(path []string, v slog.Value)) {
	v := a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if v.Kind() == slog.KindGroup {
		// Inline groups (empty key) splice into the parent
		nested := groups
		if a.Key != "" {
			nested = append(slices.Clip(groups), a.Key)
		}
		for _, ga := range v.Group() {
			walkAttr(nested, ga, fn)
		}
		return
	}
	fn(append(slices.Clip(groups), a.Key), v)
}

// isModuleAttr reports whether path is the top-level module attribute
// GetLogger attaches.
func isModuleAttr(path []string) bool {
	return len(path) == 1 && path[0] == "module"
}
