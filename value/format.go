package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Display renders v as the cmd/vaca driver echoes its final value:
// NaN/Infinity spelled out, strings quoted and re-escaped, keywords and
// symbols reassembled from namespace/name. The `format`, `print` and
// `println` builtins use DisplayRaw, which differs only for a top-level
// string.
func Display(v Value) string {
	var b strings.Builder
	writeDisplay(&b, v)
	return b.String()
}

func writeDisplay(b *strings.Builder, v Value) {
	switch t := v.(type) {
	case Nil:
		b.WriteString("nil")
	case Bool:
		b.WriteString(strconv.FormatBool(bool(t)))
	case Int:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case Float:
		writeFloat(b, float64(t))
	case Char:
		b.WriteByte('\\')
		b.WriteRune(rune(t))
	case Str:
		b.WriteByte('"')
		b.WriteString(escapeString(string(t)))
		b.WriteByte('"')
	case Keyword:
		b.WriteByte(':')
		writeQualified(b, t.Namespace, t.Name)
	case Symbol:
		writeQualified(b, t.Namespace, t.Name)
	case *List:
		b.WriteByte('(')
		writeJoined(b, t.Items)
		b.WriteByte(')')
	case *Vector:
		b.WriteByte('[')
		writeJoined(b, t.Items)
		b.WriteByte(']')
	case *MapVal:
		b.WriteByte('{')
		for i, e := range t.entries {
			if i != 0 {
				b.WriteByte(' ')
			}
			writeDisplay(b, e.Key)
			b.WriteByte(' ')
			writeDisplay(b, e.Val)
		}
		b.WriteByte('}')
	case *SetVal:
		b.WriteString("#{")
		writeJoined(b, t.items)
		b.WriteByte('}')
	case *Builtin:
		fmt.Fprintf(b, "#<builtin %s>", t.Name)
	case *Lambda:
		fmt.Fprintf(b, "#<fn (%s)>", strings.Join(t.Params, " "))
	case *Macro:
		fmt.Fprintf(b, "#<macro (%s)>", strings.Join(t.Params, " "))
	case Recur:
		b.WriteString("#<recur>")
	default:
		fmt.Fprintf(b, "#<%s>", v.TypeName())
	}
}

// DisplayRaw renders v the way `format`/`print`/`println` render an
// individual argument for human-facing output: strings come out
// unquoted and unescaped, everything else matches Display.
func DisplayRaw(v Value) string {
	if s, ok := v.(Str); ok {
		return string(s)
	}
	return Display(v)
}

func writeQualified(b *strings.Builder, namespace, name string) {
	if namespace != "" {
		b.WriteString(namespace)
		b.WriteByte('/')
	}
	b.WriteString(name)
}

func writeJoined(b *strings.Builder, items []Value) {
	for i, item := range items {
		if i != 0 {
			b.WriteByte(' ')
		}
		writeDisplay(b, item)
	}
}

func writeFloat(b *strings.Builder, f float64) {
	switch {
	case math.IsNaN(f):
		b.WriteString("NaN")
	case math.IsInf(f, 1):
		b.WriteString("Infinity")
	case math.IsInf(f, -1):
		b.WriteString("-Infinity")
	default:
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}

func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		switch ch {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}
