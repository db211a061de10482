package markdown

import (
	"strings"
	"testing"
)

type panicRenderer struct{}

func (panicRenderer) Render(string) (string, error) {
	panic("boom")
}

func TestSafeRender_RecoversFromRendererPanic(t *testing.T) {
	const renderWidth = 20

	rendererMu.Lock()
	prev, hadPrev := renderers[renderWidth]
	renderers[renderWidth] = panicRenderer{}
	rendererMu.Unlock()

	defer func() {
		rendererMu.Lock()
		if hadPrev {
			renderers[renderWidth] = prev
		} else {
			delete(renderers, renderWidth)
		}
		rendererMu.Unlock()
	}()

	out := SafeRender(renderWidth, 0, []byte("hello\n"))
	if string(out) != "hello" {
		t.Fatalf("expected fallback to original markdown, got %q", string(out))
	}
}

func TestRender_Empty(t *testing.T) {
	if out := Render(40, 0, []byte("  \n\n")); out != nil {
		t.Fatalf("expected nil for blank input, got %q", out)
	}
}

func TestRender_Indents(t *testing.T) {
	out := string(Render(40, 2, []byte("# Buy milk\n\nDue tomorrow.")))
	for _, line := range strings.Split(out, "\n") {
		if line != "" && !strings.HasPrefix(line, "  ") {
			t.Fatalf("expected every line indented, got %q", out)
		}
	}
	if !strings.Contains(out, "Buy milk") || !strings.Contains(out, "Due tomorrow.") {
		t.Fatalf("expected content to survive rendering, got %q", out)
	}
}
