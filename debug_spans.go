// debug_spans.go — verifies the parser's post-order span instrumentation.
//
// VerifySpanIndexPostOrder walks an AST in post-order and checks that the
// given SourceRef's SpanIndex binds exactly one span per node in that same
// order; this is the invariant caret positioning (interpreter_exec.go) relies
// on. dbgPath, used below for the optional preview, is defined alongside the
// rest of the position-mapping debug output in interpreter_exec.go.
package mindscript

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// VerifySpanIndexPostOrder walks ast in post-order and checks that sr's
// SpanIndex has exactly one span per node in that order. If previewN > 0 it
// also prints a summary and up to previewN (path, span) examples to w
// (os.Stderr when w is nil).
func VerifySpanIndexPostOrder(ast S, sr *SourceRef, previewN int, w io.Writer) error {
	if sr == nil || sr.Spans == nil {
		return fmt.Errorf("no spans on SourceRef")
	}
	if w == nil {
		w = os.Stderr
	}

	var want []NodePath
	var walk func(n S, path NodePath)
	walk = func(n S, path NodePath) {
		for ci := 1; ci < len(n); ci++ {
			if c, ok := n[ci].(S); ok {
				walk(c, append(path, ci-1))
			}
		}
		want = append(want, append(NodePath(nil), path...))
	}
	walk(ast, nil)

	got, missing := 0, 0
	for _, p := range want {
		if _, ok := sr.Spans.Get(p); ok {
			got++
		} else {
			missing++
		}
	}

	if previewN > 0 {
		if previewN > len(want) {
			previewN = len(want)
		}
		fmt.Fprintln(w, "[spans] =====================")
		fmt.Fprintf(w, "[spans] name=%q nodes=%d spans=%d missing=%d\n",
			sr.Name, len(want), got, missing)
		for i := 0; i < previewN; i++ {
			p := want[i]
			if sp, ok := sr.Spans.Get(p); ok {
				fmt.Fprintf(w, "[spans]   %s  [%d,%d)  %q\n",
					dbgPath(p), sp.StartByte, sp.EndByte, safeSlice(sr.Src, sp))
			} else {
				fmt.Fprintf(w, "[spans]   %s  <missing>\n", dbgPath(p))
			}
		}
	}

	if missing > 0 {
		return fmt.Errorf("span index missing %d/%d nodes", missing, len(want))
	}
	return nil
}

// safeSlice shows a compact, printable view of the span slice, clamped to
// valid byte bounds with newlines/tabs rendered as visible glyphs.
func safeSlice(src string, sp Span) string {
	sb, eb := sp.StartByte, sp.EndByte
	if sb < 0 {
		sb = 0
	}
	if eb < sb {
		eb = sb
	}
	if eb > len(src) {
		eb = len(src)
	}
	s := src[sb:eb]
	for !utf8.ValidString(s) && eb > sb {
		eb--
		s = src[sb:eb]
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\n':
			out = append(out, '↵')
		case '\t':
			out = append(out, '⇥')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
