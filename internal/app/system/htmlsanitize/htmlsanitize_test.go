package htmlsanitize

import (
	"testing"
)

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "plain text unchanged",
			input: "123 Main St, Columbia, MO",
			want:  "123 Main St, Columbia, MO",
		},
		{
			name:  "tags stripped",
			input: "<b>123 Main St</b>",
			want:  "123 Main St",
		},
		{
			name:  "script removed entirely",
			input: "555-0100<script>alert('xss')</script>",
			want:  "555-0100",
		},
		{
			name:  "anchor stripped to text",
			input: `<a href="https://evil.example">123 Main St</a>`,
			want:  "123 Main St",
		},
		{
			name:  "img removed",
			input: `before<img src="x" onerror="alert(1)">after`,
			want:  "beforeafter",
		},
		{
			name:  "entities unescaped after stripping",
			input: "<i>Smith & Sons</i>",
			want:  "Smith & Sons",
		},
		{
			name:  "whitespace trimmed",
			input: "  42 Elm St  ",
			want:  "42 Elm St",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Text(tt.input)
			if got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestContainsMarkup(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", false},
		{"plain text", false},
		{"a < b", false},
		{"a > b", false},
		{"<p>hello</p>", true},
		{"<br>", true},
		{"1 < 2 and 3 > 2", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ContainsMarkup(tt.input); got != tt.want {
				t.Errorf("ContainsMarkup(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
