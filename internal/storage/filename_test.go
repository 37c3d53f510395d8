package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecureFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{`..\..\windows\system32`, "windowssystem32"},
		{`C:\Users\me\notes.txt`, "CUsersmenotes.txt"},
		{"i contain cool ümläuts.txt", "i_contain_cool_umlauts.txt"},
		{"résumé (final).pdf", "resume_final.pdf"},
		{"a(1).txt", "a1.txt"},
		{"...", ""},
		{"    ", ""},
		{"CON.txt", "CON.txt"},
		{"com1", "com1"},
		{".hidden", "hidden"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, tc.want, SecureFilename(tc.in))
		})
	}
}

func TestSplitExt(t *testing.T) {
	cases := []struct {
		in, base, ext string
	}{
		{"a.txt", "a", ".txt"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"README", "README", ""},
		{".env", ".env", ""},
		{"trailing.", "trailing", "."},
	}

	for _, tc := range cases {
		base, ext := SplitExt(tc.in)
		require.Equal(t, tc.base, base, tc.in)
		require.Equal(t, tc.ext, ext, tc.in)
	}
}

func TestUniqueName(t *testing.T) {
	existing := map[string]bool{}
	exists := func(_ context.Context, path string) (bool, error) {
		return existing[path], nil
	}
	ctx := context.Background()
	dir := "alice_at_example_dot_com/"

	for _, want := range []string{"a.txt", "a(1).txt", "a(2).txt"} {
		name, err := UniqueName(ctx, exists, dir, "a.txt")
		require.NoError(t, err)
		require.Equal(t, want, name)
		existing[dir+name] = true
	}

	name, err := UniqueName(ctx, exists, "bob_at_example_dot_com/", "a.txt")
	require.NoError(t, err)
	require.Equal(t, "a.txt", name, "other namespaces must not influence the choice")

	existing[dir+"README"] = true
	name, err = UniqueName(ctx, exists, dir, "README")
	require.NoError(t, err)
	require.Equal(t, "README(1)", name)
}

func TestUniqueName_ExistsError(t *testing.T) {
	boom := errors.New("backend down")
	_, err := UniqueName(context.Background(), func(context.Context, string) (bool, error) {
		return false, boom
	}, "dir/", "a.txt")
	require.ErrorIs(t, err, boom)
}
