package clifmt

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	err := Table(&buf, []string{"BARCODE", "LEFT"}, [][]string{
		{"01001010000000001", Grams(662.7)},
		{"x", OptionalGrams(nil)},
	})
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "BARCODE") || !strings.Contains(lines[1], "662.70 g") || !strings.HasSuffix(lines[2], "-") {
		t.Fatalf("table = %q", buf.String())
	}
	if strings.Index(lines[1], "662.70") != strings.Index(lines[0], "LEFT") {
		t.Fatalf("columns not aligned:\n%s", buf.String())
	}
}
