package phonetic

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildUnits(t *testing.T) {
	seq := []string{"pau", "ネ", "コ", "pau"}
	tests := []struct {
		kind UnitKind
		want []string
	}{
		{Monophones, []string{"pau", "ネ", "コ", "pau"}},
		{Diphones, []string{"pau-ネ", "ネ-コ", "コ-pau"}},
		{Triphones, []string{"pau-ネ-コ", "ネ-コ-pau"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.kind.Build(seq)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNGramsShortInput(t *testing.T) {
	if got := NGrams([]string{"a", "b"}, 3); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := NGrams([]string{"a"}, 0); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestParseUnitKind(t *testing.T) {
	for _, s := range []string{"monophones", "diphones", "triphones"} {
		if _, err := ParseUnitKind(s); err != nil {
			t.Errorf("ParseUnitKind(%q): %v", s, err)
		}
	}
	if _, err := ParseUnitKind("tritones"); err == nil {
		t.Error("expected error for unsupported kind")
	}
}
