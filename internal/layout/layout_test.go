package layout

import "testing"

func TestConvertLiteralPairs(t *testing.T) {
	cases := []struct {
		name string
		in   string
		from Name
		to   Name
		want string
	}{
		{"hello to cyrillic", "ghbdtn", Latin, Cyrillic, "привет"},
		{"cyrillic to latin", "руддщ", Cyrillic, Latin, "hello"},
		{"mixed case sentence", "Ctqxfc Dkflf tot gjghjie", Latin, Cyrillic, "Сейчас Влада еще попрошу"},
		{"corrupted file name", "зфслфпу", Cyrillic, Latin, "package"},
		{"same layout is identity", "hello", Latin, Latin, "hello"},
		{"all caps preserved", "GHBDTN", Latin, Cyrillic, "ПРИВЕТ"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Convert(c.in, c.from, c.to, false)
			if got != c.want {
				t.Fatalf("Convert(%q, %v, %v) = %q, want %q", c.in, c.from, c.to, got, c.want)
			}
		})
	}
}

func TestConvertShiftedPunctuation(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"?", ","},
		{"&", "?"},
		{"#", "№"},
	}
	for _, c := range cases {
		got := Convert(c.in, Latin, Cyrillic, true)
		if got != c.want {
			t.Fatalf("Convert(%q, Latin, Cyrillic, true) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestConvertCommonPunctuationIsFixedPoint(t *testing.T) {
	for _, r := range commonPunctuationRunes {
		s := string(r)
		got := Convert(s, Latin, Cyrillic, true)
		if got != s {
			t.Fatalf("common punctuation %q should be a fixed point, got %q", s, got)
		}
	}
}

func TestConvertSameLayoutIdentity(t *testing.T) {
	in := "ghbdtn, привет 123!"
	if got := Convert(in, Latin, Latin, true); got != in {
		t.Fatalf("Convert with from==to changed input: %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	words := []string{"ghbdtn", "руддщ", "hello", "gjghjie"}
	for _, w := range words {
		cyr := Convert(w, Latin, Cyrillic, true)
		back := Convert(cyr, Cyrillic, Latin, true)
		if back != w {
			t.Fatalf("round trip failed for %q: got cyr=%q back=%q", w, cyr, back)
		}
	}
}

func TestDetectLayout(t *testing.T) {
	cases := []struct {
		in   string
		want Name
	}{
		{"ghbdtn", Latin},
		{"привет", Cyrillic},
		{"123", None},
		{"", None},
	}
	for _, c := range cases {
		if got := DetectLayout(c.in); got != c.want {
			t.Fatalf("DetectLayout(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIsPureLayout(t *testing.T) {
	if !IsPureLayout("ghbdtn123", Latin) {
		t.Fatal("expected ghbdtn123 to be pure latin (digits don't count)")
	}
	if IsPureLayout("привет", Latin) {
		t.Fatal("привет should not be pure latin")
	}
}

func TestToggleLayout(t *testing.T) {
	got := ToggleLayout("ghbdtn")
	want := Convert("ghbdtn", Latin, Cyrillic, true)
	if got != want {
		t.Fatalf("ToggleLayout(%q) = %q, want %q", "ghbdtn", got, want)
	}
	if len(ToggleLayout("abc")) != len("abc") {
		t.Fatal("toggle should preserve rune count")
	}
}

func TestOppositeIsInvolution(t *testing.T) {
	if Latin.Opposite().Opposite() != Latin {
		t.Fatal("opposite(opposite(Latin)) != Latin")
	}
	if Cyrillic.Opposite().Opposite() != Cyrillic {
		t.Fatal("opposite(opposite(Cyrillic)) != Cyrillic")
	}
}
