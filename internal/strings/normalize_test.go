package strings

import "testing"

func TestCollapseSpace(t *testing.T) {
	cases := map[string]string{
		"":                    "",
		" \n\t ":              "",
		"groceries":           "groceries",
		"  buy   oat    milk": "buy oat milk",
		"call\n\n mum\tback ": "call mum back",
		"café crème": "café crème",
	}
	for input, want := range cases {
		if got := CollapseSpace(input); got != want {
			t.Fatalf("CollapseSpace(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFold(t *testing.T) {
	cases := map[string]string{
		"work":        "work",
		"  Personal ": "personal",
		"WISHLIST":    "wishlist",
		"":            "",
	}
	for input, want := range cases {
		if got := Fold(input); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank(" \t\n") {
		t.Fatal("expected whitespace to be blank")
	}
	if IsBlank(" x ") {
		t.Fatal("expected non-empty value to not be blank")
	}
}

func TestTrimBlock(t *testing.T) {
	cases := map[string]string{
		"line one\r\nline two\r\n\r\n": "line one\nline two",
		"  indented\n\n":                "  indented",
		"old mac\rline":                 "old mac\nline",
		"":                              "",
	}
	for input, want := range cases {
		if got := TrimBlock(input); got != want {
			t.Fatalf("TrimBlock(%q) = %q, want %q", input, got, want)
		}
	}
}
