package cmd

import "testing"

func TestArchiveFileName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"My Shop", "my-shop.zip"},
		{"  Spaced  ", "spaced.zip"},
		{"", "backforge-project.zip"},
	}
	for _, c := range cases {
		if got := archiveFileName(c.in); got != c.want {
			t.Errorf("archiveFileName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
