package substack

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text", "hello world", "hello world"},
		{"paragraphs", "<p>One</p><p>Two</p>", "One\nTwo"},
		{"script and style dropped", "<style>p{color:red}</style><p>Hi</p><script>alert('x')</script>", "Hi"},
		{"multiline script", "<SCRIPT type=\"text/javascript\">\nvar a = 1;\n</SCRIPT>text", "text"},
		{"headings", "<h1>Title</h1><h3>Sub</h3>body", "Title\nSub\nbody"},
		{"line breaks", "a<br>b<br/>c<BR />d", "a\nb\nc\nd"},
		{"lists", "<ul><li>one</li><li>two</li></ul>", "one\ntwo"},
		{"blockquote", "<blockquote>quoted</blockquote>after", "quoted\nafter"},
		{"table rows", "<table><tr><td>a</td></tr><tr><td>b</td></tr></table>", "a\nb"},
		{"inline tags stripped", "<p>A <strong>bold</strong> <a href=\"x\">link</a></p>", "A bold link"},
		{"spaces squeezed", "<p>a   \t  b</p>", "a b"},
		{"blank lines collapsed", "<p>a</p>\n\n\n\n<p>b</p>", "a\n\nb"},
		{"lines trimmed", "<div>  padded  </div>", "padded"},
		{"entities", "<p>Tom &amp; Jerry &mdash; &ldquo;hi&rdquo;</p>", "Tom & Jerry — “hi”"},
		{"numeric entities", "&#65;&#x42;&#X43;", "ABC"},
		{"unknown entity kept", "a &bogus; b", "a &bogus; b"},
		{"decode after strip", "&lt;p&gt;", "<p>"},
		{"attributes with gt", "<img alt=\"x\" src=\"y\">caption", "caption"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHTML(tt.in))
		})
	}
}

func TestNormalizeHTML_Idempotent(t *testing.T) {
	inputs := []string{
		"<h2>Intro</h2><p>First   paragraph.</p><p></p><p></p><p>Second &amp; last.</p>",
		"<ul><li>a</li><li>b</li></ul><ol><li>c</li></ol>",
		"<div><div>nested<br>lines</div></div>\n\n\n<p>  tail  </p>",
		"plain\n\n\n\ntext   with\tspaces",
		"<p>caf&eacute; &copy; 2024 &#8212; &#x2026;</p>",
	}
	for i, in := range inputs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			once := NormalizeHTML(in)
			assert.Equal(t, once, NormalizeHTML(once))
		})
	}
}

func TestNormalizeHTML_EscapedMarkupDecodesOnce(t *testing.T) {
	once := NormalizeHTML("<p>Use &lt;b&gt;bold&lt;/b&gt; and &amp;amp;</p>")
	assert.Equal(t, "Use <b>bold</b> and &amp;", once)
	assert.Equal(t, "Use bold and &", NormalizeHTML(once))
}

func TestDecodeEntities_TableRoundTrip(t *testing.T) {
	inverse := make(map[rune]string, len(namedEntities))
	for name, r := range namedEntities {
		_, dup := inverse[r]
		require.Falsef(t, dup, "character %q mapped by more than one name", r)
		inverse[r] = name
	}
	for name, r := range namedEntities {
		decoded := DecodeEntities("&" + name + ";")
		require.Equal(t, string(r), decoded, name)
		assert.Equal(t, name, inverse[[]rune(decoded)[0]], name)
	}
}

func TestDecodeEntities_NumericRoundTrip(t *testing.T) {
	for _, r := range []rune{'A', 'z', '&', '<', 'é', '—', '€', '😀'} {
		assert.Equal(t, string(r), DecodeEntities(fmt.Sprintf("&#%d;", r)))
		assert.Equal(t, string(r), DecodeEntities(fmt.Sprintf("&#x%x;", r)))
		assert.Equal(t, string(r), DecodeEntities(fmt.Sprintf("&#X%X;", r)))
	}
}

func TestDecodeEntities_EdgeCases(t *testing.T) {
	assert.Equal(t, "&lt;", DecodeEntities("&amp;lt;"), "single pass, no double decoding")
	assert.Equal(t, "&#0;", DecodeEntities("&#0;"))
	assert.Equal(t, "&#xD800;", DecodeEntities("&#xD800;"))
	assert.Equal(t, "&#99999999;", DecodeEntities("&#99999999;"))
	assert.Equal(t, "no refs", DecodeEntities("no refs"))
	assert.Equal(t, "a & b", DecodeEntities("a & b"))
}
