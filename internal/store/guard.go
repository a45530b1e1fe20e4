package store

import (
	"fmt"
	"path/filepath"
	"strings"
)

// JoinUnder joins path elements below root and verifies the result stays
// inside root. Elements containing separators, "..", or other traversal
// artifacts are rejected with ErrPathOutsideRoot. Empty elements are
// skipped so single-origin sources can pass an empty server name.
func JoinUnder(root string, elems ...string) (string, error) {
	parts := make([]string, 0, len(elems)+1)
	parts = append(parts, root)

	for _, elem := range elems {
		if elem == "" {
			continue
		}
		if err := checkElement(elem); err != nil {
			return "", err
		}
		parts = append(parts, elem)
	}

	joined := filepath.Clean(filepath.Join(parts...))

	rel, err := filepath.Rel(root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRoot, joined)
	}

	return joined, nil
}

// checkElement rejects path elements that could traverse out of the root.
func checkElement(elem string) error {
	if elem == "." || elem == ".." {
		return fmt.Errorf("%w: element %q", ErrPathOutsideRoot, elem)
	}
	if strings.ContainsAny(elem, `/\`) {
		return fmt.Errorf("%w: element %q contains separator", ErrPathOutsideRoot, elem)
	}
	if filepath.Base(elem) != elem {
		return fmt.Errorf("%w: element %q", ErrPathOutsideRoot, elem)
	}
	return nil
}
