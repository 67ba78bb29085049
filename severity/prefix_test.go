package severity

import "testing"

func TestScanPrefixSimple(t *testing.T) {
	for d := Min; d <= Max; d++ {
		in := []byte("<" + string(rune('0'+int(d))) + ">hello\n")
		p, more := ScanPrefix(in)
		if more {
			t.Fatalf("%d: unexpected needMore", d)
		}
		if !p.Present || p.Directive {
			t.Fatalf("%d: expected simple prefix, got %+v", d, p)
		}
		if p.Level != d {
			t.Fatalf("%d: level = %v", d, p.Level)
		}
		if p.Consumed != 3 {
			t.Fatalf("%d: consumed = %d, want 3", d, p.Consumed)
		}
	}
}

func TestScanPrefixNone(t *testing.T) {
	p, more := ScanPrefix([]byte("hello\n"))
	if more || p.Present {
		t.Fatalf("expected no prefix, got %+v more=%v", p, more)
	}
}

func TestScanPrefixNeedMore(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("<"),
		[]byte("<3"),
		[]byte("<r"),
		[]byte("<remaining-lines-assume-level"),
		[]byte("<remaining-lines-assume-level="),
		[]byte("<remaining-lines-assume-level=4"),
		[]byte("<remaining-lines-assume-level=4>"),
	}
	for _, c := range cases {
		_, more := ScanPrefix(c)
		if !more {
			t.Errorf("%q: expected needMore", c)
		}
	}
}

func TestScanPrefixDeviations(t *testing.T) {
	cases := []string{
		"<8>x\n",       // digit out of range
		"<3x\n",        // missing '>'
		"<remaining-lines-assume-levelXX\n",
		"<remaining-lines-assume-level=9>\n", // out of range digit
		"<remaining-lines-assume-level=4>X",  // missing trailing \n
	}
	for _, c := range cases {
		p, more := ScanPrefix([]byte(c))
		if more {
			t.Errorf("%q: should not need more data", c)
			continue
		}
		if p.Present {
			t.Errorf("%q: expected no prefix, got %+v", c, p)
		}
	}
}

func TestScanPrefixDirective(t *testing.T) {
	p, more := ScanPrefix([]byte("<remaining-lines-assume-level=4>\nA\n"))
	if more {
		t.Fatal("unexpected needMore")
	}
	if !p.Present || !p.Directive {
		t.Fatalf("expected directive, got %+v", p)
	}
	if p.Level != 4 {
		t.Fatalf("level = %v, want 4", p.Level)
	}
	want := len("<remaining-lines-assume-level=4>\n")
	if p.Consumed != want {
		t.Fatalf("consumed = %d, want %d", p.Consumed, want)
	}
}
