package catalog

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/quailyquaily/spoolkeeper/internal/jsonutil"
	"github.com/quailyquaily/spoolkeeper/internal/strutil"
)

type Kind string

const (
	KindBrand     Kind = "brand"
	KindColor     Kind = "color"
	KindMaterial  Kind = "material"
	KindAttribute Kind = "attribute"
)

// Kinds lists every catalog kind in file-loading order.
var Kinds = []Kind{KindBrand, KindColor, KindMaterial, KindAttribute}

// FileName is the catalog file read from the registry directory, e.g. brand_mapping.json.
func (k Kind) FileName() string {
	return string(k) + "_mapping.json"
}

// Catalog maps a category code to its display label.
type Catalog map[string]string

// Label resolves a code by exact match.
func (c Catalog) Label(code string) (string, bool) {
	label, ok := c[code]
	return label, ok
}

// CodeFor is the reverse lookup used to mint barcodes. Labels are compared
// after whitespace collapsing and case folding; on duplicate labels the
// lowest code wins so the result is stable.
func (c Catalog) CodeFor(label string) (string, bool) {
	want := strutil.FoldKey(label)
	for _, code := range c.Codes() {
		if strutil.FoldKey(c[code]) == want {
			return code, true
		}
	}
	return "", false
}

// MatchLabel returns the catalog's own spelling of label, if present.
func (c Catalog) MatchLabel(label string) (string, bool) {
	code, ok := c.CodeFor(label)
	if !ok {
		return "", false
	}
	return c[code], true
}

// Codes returns the codes ordered numerically first, then lexically.
func (c Catalog) Codes() []string {
	codes := make([]string, 0, len(c))
	for code := range c {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		return codeLess(codes[i], codes[j])
	})
	return codes
}

// Labels returns the labels in Codes order.
func (c Catalog) Labels() []string {
	out := make([]string, 0, len(c))
	for _, code := range c.Codes() {
		out = append(out, c[code])
	}
	return out
}

func codeLess(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

// Registry loads catalog files lazily from Dir and caches them for the life
// of the process. Invalidate forces the next access to re-read the files.
type Registry struct {
	Dir    string
	Logger *slog.Logger

	mu          sync.RWMutex
	catalogs    map[Kind]Catalog
	colorGroups map[string]Catalog
}

func NewRegistry(dir string, log *slog.Logger) *Registry {
	return &Registry{Dir: strings.TrimSpace(dir), Logger: log}
}

// Catalog returns the cached catalog for kind, loading it on first use.
// A missing file yields an empty catalog; a malformed one is an error and is
// not cached.
func (r *Registry) Catalog(kind Kind) (Catalog, error) {
	if r == nil {
		return Catalog{}, nil
	}
	r.mu.RLock()
	c, ok := r.catalogs[kind]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.catalogs[kind]; ok {
		return c, nil
	}
	flat, groups, err := r.loadLocked(kind)
	if err != nil {
		return nil, err
	}
	if r.catalogs == nil {
		r.catalogs = make(map[Kind]Catalog, len(Kinds))
	}
	r.catalogs[kind] = flat
	if kind == KindColor {
		r.colorGroups = groups
	}
	return flat, nil
}

// Lookup is the non-failing variant of Catalog: load errors are logged and
// an empty catalog is returned.
func (r *Registry) Lookup(kind Kind) Catalog {
	c, err := r.Catalog(kind)
	if err != nil {
		r.logger().Warn("catalog_load_error", "kind", string(kind), "error", err.Error())
		return Catalog{}
	}
	return c
}

// ColorGroups returns the colour catalog before flattening: category -> code -> label.
func (r *Registry) ColorGroups() map[string]Catalog {
	if r == nil {
		return map[string]Catalog{}
	}
	_ = r.Lookup(KindColor)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Catalog, len(r.colorGroups))
	for name, group := range r.colorGroups {
		out[name] = group
	}
	return out
}

// Invalidate drops every cached catalog.
func (r *Registry) Invalidate() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.catalogs = nil
	r.colorGroups = nil
	r.mu.Unlock()
	r.logger().Debug("catalog_cache_invalidated", "dir", r.Dir)
}

func (r *Registry) loadLocked(kind Kind) (Catalog, map[string]Catalog, error) {
	path := filepath.Join(r.Dir, kind.FileName())
	var raw map[string]any
	ok, err := jsonutil.ReadFile(path, &raw)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return Catalog{}, map[string]Catalog{}, nil
	}
	if kind == KindColor {
		flat, groups := flattenColors(raw)
		return flat, groups, nil
	}
	flat := make(Catalog, len(raw))
	for code, v := range raw {
		if label, isString := v.(string); isString {
			flat[strings.TrimSpace(code)] = label
		}
	}
	return flat, nil, nil
}

// flattenColors merges every category into one code -> label map. Categories
// are applied in name order; a top-level string entry is kept as-is.
func flattenColors(raw map[string]any) (Catalog, map[string]Catalog) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	flat := Catalog{}
	groups := map[string]Catalog{}
	for _, name := range names {
		switch v := raw[name].(type) {
		case map[string]any:
			group := make(Catalog, len(v))
			for code, label := range v {
				s, isString := label.(string)
				if !isString {
					continue
				}
				code = strings.TrimSpace(code)
				group[code] = s
				flat[code] = s
			}
			groups[name] = group
		case string:
			flat[strings.TrimSpace(name)] = v
		}
	}
	return flat, groups
}

func (r *Registry) logger() *slog.Logger {
	if r != nil && r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
