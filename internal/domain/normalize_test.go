package domain

import "testing"

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"1-415-555-0100", "4155550100"},
		{"4155550100", "4155550100"},
		{"(415) 555-0100", "4155550100"},
		{"+1 (415) 555-0100", "4155550100"},
		{"+44 20 7946 0958", "442079460958"},
		{"21234567890", "21234567890"},
		{"555-0100", "5550100"},
		{"n/a", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Fatalf("NormalizePhone(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  Jane@Example.COM ": "jane@example.com",
		"not an email":        "not an email",
		"   ":                 "",
	}
	for in, want := range cases {
		if got := NormalizeEmail(in); got != want {
			t.Fatalf("NormalizeEmail(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestFoldHeader(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Client Name":       "client name",
		"  CLIENT   NAME  ": "client name",
		"Client Name":       "client name",
		"Client\tName":      "client name",
		"Ｅｍａｉｌ":             "email",
		"E-mail":            "e-mail",
		"":                  "",
	}
	for in, want := range cases {
		if got := FoldHeader(in); got != want {
			t.Fatalf("FoldHeader(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestNormalizeHumanName(t *testing.T) {
	t.Parallel()

	if got := NormalizeHumanName("  Alice   Smith "); got != "Alice Smith" {
		t.Fatalf("NormalizeHumanName=%q", got)
	}
}

func TestMergeLead_KeepsExistingOnBlankAndUnionsLists(t *testing.T) {
	t.Parallel()

	existing := Lead{
		ID:          "l1",
		Owner:       "sub-1",
		Identity:    "a@x.com",
		ClientName:  "Alice",
		CompanyName: "Acme",
		Phone:       "415-555-0100",
		Lists:       []string{"VIP", "Gold"},
	}
	incoming := Lead{
		ClientName:  "Alice Smith",
		CompanyName: "  ",
		Website:     "acme.test",
		Lists:       []string{"gold", "Platinum"},
	}

	got := MergeLead(existing, incoming)
	if got.ID != "l1" || got.Identity != "a@x.com" {
		t.Fatalf("identity fields changed: %+v", got)
	}
	if got.ClientName != "Alice Smith" || got.CompanyName != "Acme" || got.Phone != "415-555-0100" || got.Website != "acme.test" {
		t.Fatalf("merged fields=%+v", got)
	}
	want := []string{"VIP", "Gold", "Platinum"}
	if len(got.Lists) != len(want) {
		t.Fatalf("lists=%v, want %v", got.Lists, want)
	}
	for i := range want {
		if got.Lists[i] != want[i] {
			t.Fatalf("lists=%v, want %v", got.Lists, want)
		}
	}
}
