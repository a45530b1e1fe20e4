package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestJoinUnder_Allowed(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	got, err := JoinUnder(root, "http01.fdroid.net", "2025-01-01.json")
	if err != nil {
		t.Fatalf("JoinUnder: %v", err)
	}
	want := filepath.Join(root, "http01.fdroid.net", "2025-01-01.json")
	if got != want {
		t.Errorf("JoinUnder = %q, want %q", got, want)
	}
}

func TestJoinUnder_SkipsEmptyElements(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	got, err := JoinUnder(root, "", "2025-01-01.json")
	if err != nil {
		t.Fatalf("JoinUnder: %v", err)
	}
	if got != filepath.Join(root, "2025-01-01.json") {
		t.Errorf("JoinUnder = %q", got)
	}
}

func TestJoinUnder_RejectsTraversal(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	cases := [][]string{
		{".."},
		{"..", "secrets.json"},
		{"server", "../../etc/passwd"},
		{"a/b"},
		{`a\b`},
		{"."},
	}
	for _, elems := range cases {
		if _, err := JoinUnder(root, elems...); !errors.Is(err, ErrPathOutsideRoot) {
			t.Errorf("JoinUnder(%v) = %v, want ErrPathOutsideRoot", elems, err)
		}
	}
}
