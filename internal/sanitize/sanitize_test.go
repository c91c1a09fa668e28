package sanitize

import (
	"strings"
	"testing"
)

func TestRichTextDropsScripts(t *testing.T) {
	out := RichText(`<p onclick="x()">Hi <b>there</b><script>alert(1)</script></p>`)
	if strings.Contains(out, "script") || strings.Contains(out, "onclick") {
		t.Fatalf("unsafe markup survived: %q", out)
	}
	if !strings.Contains(out, "<b>there</b>") {
		t.Fatalf("expected formatting to survive: %q", out)
	}
}

func TestRichTextDropsJavascriptLinks(t *testing.T) {
	out := RichText(`<a href="javascript:alert(1)">x</a>`)
	if strings.Contains(out, "javascript") {
		t.Fatalf("unsafe link survived: %q", out)
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText("<p>Fish &amp; chips</p>\n<ul><li>one</li></ul>")
	if got != "Fish & chips one" {
		t.Fatalf("unexpected plain text: %q", got)
	}
}
