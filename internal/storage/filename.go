package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client supplied filename to a flat ASCII name that
// is safe to use as the last segment of an object path. It returns "" when
// nothing usable is left. Only "/" separates words; a backslash is dropped
// like any other unsafe character.
func SecureFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var b strings.Builder
	for len(decomposed) > 0 {
		r, size := utf8.DecodeRuneInString(decomposed)
		decomposed = decomposed[size:]
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}

	flat := strings.ReplaceAll(b.String(), "/", " ")
	joined := strings.Join(strings.Fields(flat), "_")
	return strings.Trim(unsafeFilenameChars.ReplaceAllString(joined, ""), "._")
}

// SplitExt splits name into base and extension the way the collision rule
// expects: "a.tar.gz" -> ("a.tar", ".gz"), ".env" -> (".env", "").
func SplitExt(name string) (string, string) {
	dot := strings.LastIndex(name, ".")
	if dot < 0 || strings.Trim(name[:dot], ".") == "" {
		return name, ""
	}
	return name[:dot], name[dot:]
}

// UniqueName returns the first name of the sequence filename, base(1).ext,
// base(2).ext, ... for which dir+name does not exist yet.
//
// The check and the later upload are not atomic: two concurrent uploads of
// the same name may pick the same candidate and the last writer wins.
func UniqueName(ctx context.Context, exists func(context.Context, string) (bool, error), dir, filename string) (string, error) {
	base, ext := SplitExt(filename)
	candidate := filename

	for counter := 1; ; counter++ {
		taken, err := exists(ctx, dir+candidate)
		if err != nil {
			return "", fmt.Errorf("check %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s(%d)%s", base, counter, ext)
	}
}
