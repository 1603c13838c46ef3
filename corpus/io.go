package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/golang/glog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// docSeparator separates the graph section of a corpus file from its documents.
const docSeparator = "--"

// Read parses a corpus in the text format produced by the graph generators:
//
//	n e t
//	x y1 y2 ...     (adjacency lines, optional)
//	--
//	s1 s2 s3 ...    (one document per line)
//
// where n is the alphabet size, e the number of undirected graph edges and t
// the number of documents. Blank lines are ignored everywhere, so empty
// documents do not survive a Write/Read round trip.
func Read(r io.Reader) (*Corpus, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	var header []int
	for header == nil && sc.Scan() {
		lineNo++
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		fields, err := toInts(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("couldn't read the header on line %d, err = %v", lineNo, err)
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("the header on line %d has %d fields, want 3 (n e t)", lineNo, len(fields))
		}
		header = fields
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read the corpus, err = %v", err)
	}
	if header == nil {
		return nil, fmt.Errorf("the corpus has no header")
	}
	n, edges, t := header[0], header[1], header[2]

	graph := make(map[Symbol][]Symbol)
	var docs []Document
	readingDocs := false
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == docSeparator {
			readingDocs = true
			continue
		}
		fields, err := toInts(line)
		if err != nil {
			return nil, fmt.Errorf("couldn't read line %d, err = %v", lineNo, err)
		}
		if readingDocs {
			docs = append(docs, fields)
			continue
		}
		graph[fields[0]] = append(graph[fields[0]], fields[1:]...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read the corpus, err = %v", err)
	}
	if len(docs) != t {
		log.Warningf("corpus header announces %d documents, read %d", t, len(docs))
	}
	if len(graph) == 0 {
		graph = nil
	}
	return newCorpus(n, docs, graph, edges)
}

// ReadFile reads a corpus from the named file. See Read for the format.
func ReadFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open the corpus file = %q, err = %v", path, err)
	}
	defer f.Close()
	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("corpus file = %q: %w", path, err)
	}
	log.Infof("Read corpus %q: n = %d, %d documents, lmax = %d", path, c.n, c.Len(), c.lmax)
	return c, nil
}

// Write writes c in the format accepted by Read. Adjacency lines are written
// in ascending node order.
func (c *Corpus) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d %d\n", c.n, c.edges, len(c.docs))
	nodes := maps.Keys(c.graph)
	slices.Sort(nodes)
	for _, x := range nodes {
		bw.WriteString(strconv.Itoa(x))
		for _, y := range c.graph[x] {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(y))
		}
		bw.WriteByte('\n')
	}
	bw.WriteString(docSeparator + "\n")
	for _, d := range c.docs {
		for i, s := range d {
			if i > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.Itoa(s))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteFile writes c to the named file, creating or truncating it.
func (c *Corpus) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("couldn't create the corpus file = %q, err = %v", path, err)
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("couldn't write to the corpus file = %q, err = %v", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("couldn't close the corpus file = %q, err = %v", path, err)
	}
	return nil
}

func toInts(line string) ([]int, error) {
	fields := strings.Fields(line)
	res := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}
