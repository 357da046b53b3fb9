package serial

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizePrefix(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "skn", want: "SKN"},
		{raw: " SKA ", want: "SKA"},
		{raw: "", want: ""},
		{raw: "AB12", want: "AB12"},
		{raw: "ABCDE", wantErr: true},
		{raw: "SK-", wantErr: true},
		{raw: "S K", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizePrefix(tc.raw)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidPrefix) {
				t.Fatalf("prefix %q want ErrInvalidPrefix got %v", tc.raw, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("prefix %q unexpected error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("prefix %q want %q got %q", tc.raw, tc.want, got)
		}
	}
}

func TestValidateExplicitCode(t *testing.T) {
	if code, err := ValidateExplicitCode(" SKA000001 "); err != nil || code != "SKA000001" {
		t.Fatalf("want SKA000001 got %q err=%v", code, err)
	}
	for _, raw := range []string{"", "   ", "000000", "SKA-01", "SK A1"} {
		if _, err := ValidateExplicitCode(raw); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("code %q want ErrInvalidCode got %v", raw, err)
		}
	}
}

func TestValidateQuantity(t *testing.T) {
	if err := ValidateQuantity(1, 10); err != nil {
		t.Fatalf("quantity 1 should pass: %v", err)
	}
	for _, q := range []int{0, -3, 11} {
		if err := ValidateQuantity(q, 10); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("quantity %d want ErrInvalidQuantity got %v", q, err)
		}
	}
	if err := ValidateQuantity(DefaultMaxQuantity, 0); err != nil {
		t.Fatalf("zero max should fall back to default: %v", err)
	}
}

func TestSequenceContinuesFromLastMax(t *testing.T) {
	line := ProductLine{Name: "standard", Digits: 6}
	existing := []string{"SKN000001", "SKN000004", "SKN000002", "SKNX00009", "SKA000099"}
	state := State("SKN", existing)
	if state.LastNumber != 4 || state.NextNumber != 5 || state.TotalExisting != 3 {
		t.Fatalf("unexpected state: %+v", state)
	}
	got := Sequence("SKN", state.LastNumber, 3, line)
	want := []string{"SKN000005", "SKN000006", "SKN000007"}
	if len(got) != len(want) {
		t.Fatalf("want %d codes got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("code[%d] want %s got %s", i, want[i], got[i])
		}
	}
}

func TestSequenceWithoutExistingStartsAtOne(t *testing.T) {
	line := ProductLine{Name: "gram", Digits: 5}
	state := State("GB", nil)
	got := Sequence("GB", state.LastNumber, 2, line)
	if got[0] != "GB00001" || got[1] != "GB00002" {
		t.Fatalf("unexpected codes: %v", got)
	}
}

func TestMergeStateCombinesAggregateAndCandidates(t *testing.T) {
	state := MergeState("SKN", 40, 40, []string{"SKN000012", "SKNX00099"})
	if state.LastNumber != 40 || state.NextNumber != 41 || state.TotalExisting != 41 {
		t.Fatalf("unexpected state: %+v", state)
	}
	state = MergeState("SKN", 3, 2, []string{"SKN000050"})
	if state.LastNumber != 50 || state.TotalExisting != 3 {
		t.Fatalf("larger candidate should win, got %+v", state)
	}
}

func TestCapacity(t *testing.T) {
	line := ProductLine{Name: "gram", Digits: 5}
	if !Capacity(99990, 9, line) {
		t.Fatalf("99999 should still fit in 5 digits")
	}
	if Capacity(99990, 10, line) {
		t.Fatalf("100000 should overflow 5 digits")
	}
}

func TestLabelProblem(t *testing.T) {
	cases := map[string]string{
		"":          "empty",
		"  ":        "empty",
		"0":         "all_zero",
		"000000":    "all_zero",
		"AB":        "too_short",
		"SKA000001": "",
		"AB1":       "",
	}
	for code, want := range cases {
		if got := LabelProblem(code); got != want {
			t.Fatalf("label %q want %q got %q", code, want, got)
		}
	}
}

func TestResolveQRMode(t *testing.T) {
	cases := []struct {
		weight string
		want   QRMode
	}{
		{weight: "1", want: QRModeSingle},
		{weight: "99.999", want: QRModeSingle},
		{weight: "100", want: QRModePerUnit},
		{weight: "250", want: QRModePerUnit},
	}
	for _, tc := range cases {
		if got := ResolveQRMode(decimal.RequireFromString(tc.weight)); got != tc.want {
			t.Fatalf("weight %s want %s got %s", tc.weight, tc.want, got)
		}
	}
}

func TestBuildLinesIgnoresUnsupportedDigits(t *testing.T) {
	lines := BuildLines(map[string]int{"Coin": 5, "bad": 9})
	if lines["coin"].Digits != 5 {
		t.Fatalf("coin line should be registered with 5 digits, got %+v", lines["coin"])
	}
	if _, ok := lines["bad"]; ok {
		t.Fatalf("line with unsupported digits should be ignored")
	}
	if _, err := ResolveLine(lines, ""); err != nil {
		t.Fatalf("empty line name should resolve to standard: %v", err)
	}
	if _, err := ResolveLine(lines, "platinum"); !errors.Is(err, ErrUnknownProductLine) {
		t.Fatalf("want ErrUnknownProductLine got %v", err)
	}
}
