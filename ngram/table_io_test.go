package ngram

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
)

func TestWriteTableGolden(t *testing.T) {
	e, err := Build(scenarioCorpus(t), 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteTable(&buf, e); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "scenario_table", buf.Bytes())
}

func TestReadExactRoundTrip(t *testing.T) {
	want, err := Build(randomCorpus(t, 5), 4)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteTable(&buf, want); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	got, err := ReadExact(&buf)
	if err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if got.AlphabetSize() != want.AlphabetSize() || got.MaxLength() != want.MaxLength() {
		t.Errorf("ReadExact: got n=%d maxLength=%d, want %d and %d", got.AlphabetSize(), got.MaxLength(), want.AlphabetSize(), want.MaxLength())
	}
	if got.Root().Count() != want.Root().Count() {
		t.Errorf("ReadExact: root count %d, want %d", got.Root().Count(), want.Root().Count())
	}
	if diff := cmp.Diff(want.Levels(), got.Levels()); diff != "" {
		t.Errorf("ReadExact: Levels() mismatch (-want +got):\n%s", diff)
	}
	err = want.Walk(func(g NGram, count float64) error {
		c, err := got.Count(g)
		if err != nil {
			return err
		}
		if c != count {
			t.Errorf("ReadExact: Count(%v)=%g, want %g", g, c, count)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
}

func TestReadExactErrors(t *testing.T) {
	for _, tc := range []struct {
		desc  string
		input string
	}{
		{"empty input", ""},
		{"bad header", "three 2\n"},
		{"zero alphabet", "0 2\n"},
		{"missing tab", "3 2\n3 1\n"},
		{"fractional count", "3 2\n1.5\t1\n"},
		{"negative count", "3 2\n-1\t1\n"},
		{"symbol outside alphabet", "3 2\n1\t4\n"},
		{"too long", "3 2\n1\t1 1 1\n"},
	} {
		if _, err := ReadExact(strings.NewReader(tc.input)); err == nil {
			t.Errorf("ReadExact: when %s got nil error", tc.desc)
		}
	}
}
