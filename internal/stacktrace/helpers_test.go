package stacktrace

import "testing"

// wantFrame is the comparable subset of a Frame. Zero values stand for nil.
type wantFrame struct {
	method string
	file   string
	line   int
	column int
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func assertFrames(t *testing.T, got []Frame, want []wantFrame) {
	t.Helper()
	if len(got) != len(want) {
		for i, f := range got {
			t.Logf("frame %d: %s %s:%d:%d", i, str(f.Method), str(f.FileFullPath), num(f.Line), num(f.Column))
		}
		t.Fatalf("expected %d frames, got %d", len(want), len(got))
	}
	for i, w := range want {
		g := wantFrame{str(got[i].Method), str(got[i].FileFullPath), num(got[i].Line), num(got[i].Column)}
		if g != w {
			t.Errorf("frame %d: expected %+v, got %+v", i, w, g)
		}
	}
}

func mustParse(t *testing.T, p Parser, raw string) *ParsedStackTrace {
	t.Helper()
	info, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("%s parse failed: %v", p.Language(), err)
	}
	return info
}
