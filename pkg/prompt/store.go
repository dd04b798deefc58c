package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

//go:embed templates/*.tmpl
var embedded embed.FS

var ErrTemplateNotFound = errors.New("template not found")

// Store resolves named prompt templates. Templates ship embedded in the
// binary; overrides registered at runtime (by the prompt optimizer)
// shadow the embedded source under their identifier.
type Store struct {
	fsys fs.FS

	mu        sync.RWMutex
	overrides map[string]string
}

// NewStore builds a store over the given filesystem. Passing nil uses
// the embedded templates directory.
func NewStore(fsys fs.FS) *Store {
	if fsys == nil {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			panic(err)
		}
		fsys = sub
	}
	return &Store{
		fsys:      fsys,
		overrides: make(map[string]string),
	}
}

// SaveOverride registers template source under the given identifier,
// shadowing any embedded template with the same name.
func (s *Store) SaveOverride(id, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[id] = source
}

// Source returns the raw template text for an identifier.
func (s *Store) Source(id string) (string, error) {
	s.mu.RLock()
	override, ok := s.overrides[id]
	s.mu.RUnlock()
	if ok {
		return override, nil
	}

	raw, err := fs.ReadFile(s.fsys, id+".tmpl")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return string(raw), nil
}

// Render resolves a template and substitutes variables, conditional
// blocks and repeated blocks.
func (s *Store) Render(id string, vars map[string]any) (string, error) {
	src, err := s.Source(id)
	if err != nil {
		return "", err
	}
	return render(src, vars), nil
}

func render(src string, vars map[string]any) string {
	var sb strings.Builder

	for {
		open := strings.Index(src, "{{#")
		if open < 0 {
			sb.WriteString(substituteVars(src, vars))
			return sb.String()
		}

		sb.WriteString(substituteVars(src[:open], vars))
		src = src[open:]

		tag, arg, headLen, ok := parseBlockHead(src)
		if !ok {
			// Malformed block marker, emit it verbatim.
			sb.WriteString(src[:3])
			src = src[3:]
			continue
		}

		body, rest, ok := splitBlock(src[headLen:], tag)
		if !ok {
			sb.WriteString(substituteVars(src, vars))
			return sb.String()
		}

		switch tag {
		case "if":
			if truthy(vars[arg]) {
				sb.WriteString(render(body, vars))
			}
		case "each":
			renderEach(&sb, body, vars, vars[arg])
		}
		src = rest
	}
}

// parseBlockHead reads "{{#if x}}" or "{{#each xs}}" and returns the
// tag, its argument and the consumed length.
func parseBlockHead(src string) (tag, arg string, length int, ok bool) {
	end := strings.Index(src, "}}")
	if end < 0 {
		return "", "", 0, false
	}

	head := src[len("{{#"):end]
	fields := strings.Fields(head)
	if len(fields) != 2 {
		return "", "", 0, false
	}
	if fields[0] != "if" && fields[0] != "each" {
		return "", "", 0, false
	}
	return fields[0], fields[1], end + len("}}"), true
}

// splitBlock finds the matching close marker for a tag, honoring
// nested blocks of the same kind.
func splitBlock(src, tag string) (body, rest string, ok bool) {
	openMarker := "{{#" + tag
	closeMarker := "{{/" + tag + "}}"

	depth := 1
	pos := 0
	for {
		nextOpen := strings.Index(src[pos:], openMarker)
		nextClose := strings.Index(src[pos:], closeMarker)
		if nextClose < 0 {
			return "", "", false
		}

		if nextOpen >= 0 && nextOpen < nextClose {
			depth++
			pos += nextOpen + len(openMarker)
			continue
		}

		depth--
		if depth == 0 {
			closeAt := pos + nextClose
			return src[:closeAt], src[closeAt+len(closeMarker):], true
		}
		pos += nextClose + len(closeMarker)
	}
}

func renderEach(sb *strings.Builder, body string, vars map[string]any, items any) {
	if items == nil {
		return
	}

	v := reflect.ValueOf(items)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return
	}

	for i := 0; i < v.Len(); i++ {
		itemVars := make(map[string]any, len(vars)+2)
		for k, val := range vars {
			itemVars[k] = val
		}
		itemVars["@index"] = i

		item := v.Index(i).Interface()
		if m, ok := item.(map[string]any); ok {
			for k, val := range m {
				itemVars[k] = val
			}
		} else {
			itemVars["this"] = item
		}

		sb.WriteString(render(body, itemVars))
	}
}

func substituteVars(src string, vars map[string]any) string {
	var sb strings.Builder
	for {
		open := strings.Index(src, "{{")
		if open < 0 {
			sb.WriteString(src)
			return sb.String()
		}

		end := strings.Index(src[open:], "}}")
		if end < 0 {
			sb.WriteString(src)
			return sb.String()
		}

		name := strings.TrimSpace(src[open+2 : open+end])
		sb.WriteString(src[:open])

		if val, ok := vars[name]; ok {
			sb.WriteString(stringify(val))
		}
		src = src[open+end+2:]
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array || rv.Kind() == reflect.Map {
		return rv.Len() > 0
	}
	return true
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
