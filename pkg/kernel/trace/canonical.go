package trace

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ormasoftchile/mapgen/pkg/kernel/schema"
)

// Set is an unordered collection. It canonicalizes to an array sorted by the
// stable string form of each member.
type Set[T comparable] map[T]struct{}

// NewSet returns a set holding items.
func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s Set[T]) Add(v T)      { s[v] = struct{}{} }
func (s Set[T]) Has(v T) bool { _, ok := s[v]; return ok }
func (s Set[T]) Len() int     { return len(s) }

func (s Set[T]) members() []any {
	out := make([]any, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}

type setLike interface{ members() []any }

// Canonicalize rewrites v so that logically equal values have identical
// structure regardless of construction order:
//   - string-keyed maps become objects (serialized with sorted keys);
//   - other maps become [key, value] pairs sorted by the collated string key;
//   - sets become arrays sorted by each member's stable string;
//   - structs are converted through their JSON encoding;
//   - slices and arrays are canonicalized element-wise, in order.
func Canonicalize(v any) (any, error) {
	return canonicalize(v, collate.New(language.Und))
}

func canonicalize(v any, col *collate.Collator) (any, error) {
	if v == nil {
		return nil, nil
	}
	if set, ok := v.(setLike); ok {
		return canonicalSet(set.members(), col)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return canonicalize(rv.Elem().Interface(), col)

	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				item, err := canonicalize(iter.Value().Interface(), col)
				if err != nil {
					return nil, err
				}
				out[iter.Key().String()] = item
			}
			return out, nil
		}
		return canonicalPairs(rv, col)

	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			item, err := canonicalize(rv.Index(i).Interface(), col)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil

	case reflect.Struct:
		value, err := schema.ToValue(v)
		if err != nil {
			return nil, err
		}
		return canonicalize(value, col)
	}
	return v, nil
}

func canonicalPairs(rv reflect.Value, col *collate.Collator) (any, error) {
	type pair struct {
		key   string
		value any
	}
	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		item, err := canonicalize(iter.Value().Interface(), col)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair{key: fmt.Sprint(iter.Key().Interface()), value: item})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if c := col.CompareString(pairs[i].key, pairs[j].key); c != 0 {
			return c < 0
		}
		return pairs[i].key < pairs[j].key
	})
	out := make([]any, len(pairs))
	for i, p := range pairs {
		out[i] = []any{p.key, p.value}
	}
	return out, nil
}

func canonicalSet(members []any, col *collate.Collator) (any, error) {
	type member struct {
		key   string
		value any
	}
	ms := make([]member, len(members))
	for i, m := range members {
		value, err := canonicalize(m, col)
		if err != nil {
			return nil, err
		}
		key, err := encode(value)
		if err != nil {
			return nil, err
		}
		ms[i] = member{key: key, value: value}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].key < ms[j].key })
	out := make([]any, len(ms))
	for i, m := range ms {
		out[i] = m.value
	}
	return out, nil
}

// StableStringify serializes the canonical form of v as compact JSON.
func StableStringify(v any) (string, error) {
	c, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return encode(c)
}

func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("stable stringify: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Sha256Hex returns the lower-case hex SHA-256 digest of the UTF-8 bytes of s.
func Sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Fingerprint is the SHA-256 of the stable string form of v.
func Fingerprint(v any) (string, error) {
	s, err := StableStringify(v)
	if err != nil {
		return "", err
	}
	return Sha256Hex(s), nil
}
