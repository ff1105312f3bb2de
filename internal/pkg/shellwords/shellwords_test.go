package shellwords

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"ls -la /tmp", []string{"ls", "-la", "/tmp"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{`find . -name "test file.txt"`, []string{"find", ".", "-name", "test file.txt"}},
		{`echo 'single $HOME quoted'`, []string{"echo", "single $HOME quoted"}},
		{`grep "a \"quoted\" word" f`, []string{"grep", `a "quoted" word`, "f"}},
		{`printf a\ b`, []string{"printf", "a b"}},
		{"", nil},
		{"   ", nil},
		{`touch ''`, []string{"touch", ""}},
	}
	for _, tt := range tests {
		got, err := Split(tt.line)
		if err != nil {
			t.Fatalf("Split(%q) error: %v", tt.line, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("Split(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}

func TestSplitUnterminated(t *testing.T) {
	for _, line := range []string{`echo 'open`, `echo "open`, `echo trailing\`} {
		if _, err := Split(line); !errors.Is(err, ErrUnterminatedQuote) {
			t.Fatalf("Split(%q) expected ErrUnterminatedQuote, got %v", line, err)
		}
	}
}
