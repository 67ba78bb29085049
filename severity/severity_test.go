package severity

import "testing"

func TestParseAliases(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"err", Error}, {"ERROR", Error}, {"e", Error}, {"3", Error},
		{"w", Warning}, {"warn", Warning}, {"warning", Warning},
		{"debug", Debug}, {"D", Debug}, {"7", Debug},
		{"emerg", Emergency}, {"0", Emergency},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "8", "-1", "bogus"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", in)
		}
	}
}

func TestAtLeastAsSevereAs(t *testing.T) {
	if !Error.AtLeastAsSevereAs(Warning) {
		t.Fatal("error should be at least as severe as warning ceiling")
	}
	if Info.AtLeastAsSevereAs(Warning) {
		t.Fatal("info should not reach a warning ceiling")
	}
	if !Warning.AtLeastAsSevereAs(Warning) {
		t.Fatal("a line at exactly the ceiling should pass")
	}
}

func TestStringRoundtrip(t *testing.T) {
	for l := Min; l <= Max; l++ {
		s := l.String()
		got, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got != l {
			t.Errorf("roundtrip %v -> %q -> %v", l, s, got)
		}
	}
}
