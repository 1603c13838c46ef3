package ngram

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dphcar/dphcar/checks"
	"github.com/dphcar/dphcar/corpus"
)

// WriteTable dumps every tracked n-gram of t, one per line, after a header
// line holding the alphabet size and the maximum length:
//
//	n maxLength
//	count<TAB>s1 s2 ...
//
// Counts are written with the shortest representation that parses back to
// the same float64.
func WriteTable(w io.Writer, t Walker) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", t.AlphabetSize(), t.MaxLength())
	err := t.Walk(func(g NGram, count float64) error {
		bw.WriteString(strconv.FormatFloat(count, 'g', -1, 64))
		bw.WriteByte('\t')
		for i, s := range g {
			if i > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.Itoa(s))
		}
		_, err := bw.WriteString("\n")
		return err
	})
	if err != nil {
		return fmt.Errorf("couldn't write the n-gram table, err = %v", err)
	}
	return bw.Flush()
}

// ReadExact loads an exact table written by WriteTable. Every count must be
// a non-negative integer.
func ReadExact(r io.Reader) (*Exact, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("couldn't read the n-gram table, err = %v", err)
		}
		return nil, fmt.Errorf("the n-gram table has no header")
	}
	var n, maxLength int
	if _, err := fmt.Sscanf(sc.Text(), "%d %d", &n, &maxLength); err != nil {
		return nil, fmt.Errorf("couldn't read the n-gram table header %q, err = %v", sc.Text(), err)
	}
	if err := checks.CheckAlphabetSize(n); err != nil {
		return nil, err
	}
	if err := checks.CheckMaxLength(maxLength); err != nil {
		return nil, err
	}

	e := newExact(n, maxLength)
	lineNo := 1
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		countField, gramField, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d of the n-gram table has no tab separator", lineNo)
		}
		count, err := strconv.ParseInt(countField, 10, 64)
		if err != nil || count < 0 {
			return nil, fmt.Errorf("line %d of the n-gram table: count %q is not a non-negative integer", lineNo, countField)
		}
		var g NGram
		for _, f := range strings.Fields(gramField) {
			s, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d of the n-gram table: symbol %q, err = %v", lineNo, f, err)
			}
			g = append(g, corpus.Symbol(s))
		}
		if err := Validate(g, n, maxLength); err != nil {
			return nil, fmt.Errorf("line %d of the n-gram table: %w", lineNo, err)
		}
		nd := e.root
		for _, s := range g {
			nd = nd.child(s)
		}
		nd.count = count
		if len(g) == 1 {
			e.root.count += count
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read the n-gram table, err = %v", err)
	}
	e.computeLevels()
	return e, nil
}
