package namespace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrefix(t *testing.T) {
	cases := []struct {
		email string
		want  string
	}{
		{"alice@example.com", "alice_at_example_dot_com/"},
		{"first.last@mail.co.uk", "first_dot_last_at_mail_dot_co_dot_uk/"},
		{"a_b@x.io", "a__b_at_x_dot_io/"},
		{"Alice@Example.com", "Alice_at_Example_dot_com/"},
	}

	for _, tc := range cases {
		t.Run(tc.email, func(t *testing.T) {
			require.Equal(t, tc.want, Prefix(tc.email))
			require.Equal(t, tc.want, Prefix(tc.email), "prefix must be stable")
		})
	}
}

func TestPrefix_Injective(t *testing.T) {
	emails := []string{
		"x.y@z.com",
		"x_dot_y@z.com",
		"x_at_y.com",
		"x@y.com",
		"x__at_y.com",
		"a_b@c.d",
		"a.b@c_d",
		"a@b_dot_c",
		"a@b.c",
		"A@b.c",
		"a_@b.c",
		"a@_b.c",
	}

	seen := make(map[string]string)
	for _, e := range emails {
		p := Prefix(e)
		if other, ok := seen[p]; ok {
			t.Fatalf("emails %q and %q collapse to the same prefix %q", e, other, p)
		}
		seen[p] = e
	}
}

func TestObjectAndRelative(t *testing.T) {
	path := Object("bob@example.org", "report(1).pdf")
	require.Equal(t, "bob_at_example_dot_org/report(1).pdf", path)
	require.Equal(t, "report(1).pdf", Relative(Prefix("bob@example.org"), path))
}
