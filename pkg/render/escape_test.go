package render

import "testing"

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "plain text", input: "Hello, World!", expected: "Hello, World!"},
		{name: "ampersand", input: "Tom & Jerry", expected: "Tom &amp; Jerry"},
		{name: "angle brackets", input: "a < b > c", expected: "a &lt; b &gt; c"},
		{name: "quotes", input: `say "it's"`, expected: "say &quot;it&#39;s&quot;"},
		{
			name:     "script tag",
			input:    "<script>alert('xss')</script>",
			expected: "&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;",
		},
		{name: "unicode preserved", input: "Hello 世界 🌍", expected: "Hello 世界 🌍"},
		{name: "newline kept in text", input: "a\nb", expected: "a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeHTML(tt.input); got != tt.expected {
				t.Errorf("escapeHTML(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEscapeAttr(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"btn primary", "btn primary"},
		{`" onmouseover="x`, "&quot; onmouseover=&quot;x"},
		{"a\nb\rc\td", "a&#10;b&#13;c&#9;d"},
		{"a&b", "a&amp;b"},
	}

	for _, tt := range tests {
		if got := escapeAttr(tt.input); got != tt.expected {
			t.Errorf("escapeAttr(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
