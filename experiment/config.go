package experiment

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dphcar/dphcar/corpus"
	"github.com/dphcar/dphcar/ngram"
	"github.com/dphcar/dphcar/noise"
	"github.com/dphcar/dphcar/rand"
	"github.com/dphcar/dphcar/sanitize"
	log "github.com/golang/glog"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// Config describes a sweep: every combination of epsilon, rule length and k
// is run once per seed on the same corpus.
type Config struct {
	// Corpus is the path of a corpus file. Relative paths are resolved
	// against the directory of the config file.
	Corpus string `yaml:"corpus,omitempty"`

	// Generate describes a synthetic corpus, used when Corpus is empty.
	Generate *GenerateConfig `yaml:"generate,omitempty"`

	Epsilons    []float64 `yaml:"epsilons"`
	RuleLengths []int     `yaml:"rule_lengths"`
	Ks          []int     `yaml:"ks"`
	Seeds       []int64   `yaml:"seeds"`

	// Allocator is parsed by sanitize.ParseAllocator. Defaults to uniform.
	Allocator string `yaml:"allocator,omitempty"`
	// Noise is "laplace" (default) or "gaussian".
	Noise          string  `yaml:"noise,omitempty"`
	Delta          float64 `yaml:"delta,omitempty"`
	ThresholdDelta float64 `yaml:"threshold_delta,omitempty"`
	Workers        int     `yaml:"workers,omitempty"`
}

// GenerateConfig describes a synthetic corpus.
type GenerateConfig struct {
	Kind      string  `yaml:"kind"` // "ring" or "random"
	N         int     `yaml:"n,omitempty"`
	FillRatio float64 `yaml:"fill_ratio,omitempty"`
	NumDocs   int     `yaml:"num_docs,omitempty"`
	MinDocLen int     `yaml:"min_doc_len,omitempty"`
	MaxDocLen int     `yaml:"max_doc_len,omitempty"`
	Seed      int64   `yaml:"seed,omitempty"`
}

// LoadConfig reads and validates a YAML sweep config. Unknown fields are
// rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("experiment: reading config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("experiment: %s: %w", path, err)
	}
	if cfg.Corpus != "" && !filepath.IsAbs(cfg.Corpus) {
		cfg.Corpus = filepath.Join(filepath.Dir(path), cfg.Corpus)
	}
	return cfg, nil
}

// ParseConfig parses and validates a YAML sweep config.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	switch {
	case cfg.Corpus == "" && cfg.Generate == nil:
		return fmt.Errorf("one of corpus and generate is required")
	case cfg.Corpus != "" && cfg.Generate != nil:
		return fmt.Errorf("corpus and generate are mutually exclusive")
	case len(cfg.Epsilons) == 0:
		return fmt.Errorf("epsilons list is required and must be non-empty")
	case len(cfg.RuleLengths) == 0:
		return fmt.Errorf("rule_lengths list is required and must be non-empty")
	case len(cfg.Ks) == 0:
		return fmt.Errorf("ks list is required and must be non-empty")
	case len(cfg.Seeds) == 0:
		return fmt.Errorf("seeds list is required and must be non-empty")
	}
	if g := cfg.Generate; g != nil {
		if k := strings.ToLower(g.Kind); k != "ring" && k != "random" {
			return fmt.Errorf("generate.kind is %q, must be ring or random", g.Kind)
		}
	}
	if _, err := sanitize.ParseAllocator(cfg.Allocator); err != nil {
		return err
	}
	if _, err := noise.ParseKind(cfg.Noise); err != nil {
		return err
	}
	return nil
}

// LoadCorpus reads or generates the corpus of cfg.
func (cfg *Config) LoadCorpus() (*corpus.Corpus, error) {
	if cfg.Generate == nil {
		return corpus.ReadFile(cfg.Corpus)
	}
	g := cfg.Generate
	opts := corpus.GenerateOptions{
		N:         g.N,
		FillRatio: g.FillRatio,
		NumDocs:   g.NumDocs,
		MinDocLen: g.MinDocLen,
		MaxDocLen: g.MaxDocLen,
	}
	if strings.ToLower(g.Kind) == "ring" {
		return corpus.GenerateRing(opts, rand.New(g.Seed))
	}
	return corpus.GenerateRandomGraph(opts, rand.New(g.Seed))
}

// Summary averages the reports of one parameter combination over all seeds.
type Summary struct {
	Epsilon    float64
	RuleLength int
	K          int
	Runs       int
	Thresholds []float64
	// Mean precision, recall and F1 per threshold.
	Precision []float64
	Recall    []float64
	F1        []float64
}

// Summarize averages reports, which must share Epsilon, RuleLength and K.
func Summarize(reports []*Report) Summary {
	p := reports[0].Params
	s := Summary{Epsilon: p.Epsilon, RuleLength: p.RuleLength, K: p.K, Runs: len(reports)}
	nd := len(reports[0].Deciles)
	prec := make([]float64, len(reports))
	rec := make([]float64, len(reports))
	f1 := make([]float64, len(reports))
	for i := 0; i < nd; i++ {
		for j, r := range reports {
			prec[j], rec[j], f1[j] = r.Deciles[i].Precision, r.Deciles[i].Recall, r.Deciles[i].F1
		}
		s.Thresholds = append(s.Thresholds, reports[0].Deciles[i].Threshold)
		s.Precision = append(s.Precision, stat.Mean(prec, nil))
		s.Recall = append(s.Recall, stat.Mean(rec, nil))
		s.F1 = append(s.F1, stat.Mean(f1, nil))
	}
	return s
}

// Sweep runs every combination of cfg and returns one summary per
// combination, ordered by epsilon, rule length and k.
func Sweep(ctx context.Context, cfg *Config) ([]Summary, error) {
	c, err := cfg.LoadCorpus()
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}
	alloc, err := sanitize.ParseAllocator(cfg.Allocator)
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}
	kind, err := noise.ParseKind(cfg.Noise)
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}
	exact, err := ngram.Build(c, slices.Max(cfg.RuleLengths))
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}

	var res []Summary
	for _, eps := range cfg.Epsilons {
		for _, rl := range cfg.RuleLengths {
			for _, k := range cfg.Ks {
				var reports []*Report
				for _, seed := range cfg.Seeds {
					if err := ctx.Err(); err != nil {
						return res, err
					}
					r, err := Run(ctx, c, exact, Params{
						Epsilon:        eps,
						Delta:          cfg.Delta,
						RuleLength:     rl,
						K:              k,
						Seed:           seed,
						Allocator:      alloc,
						Noise:          noise.ToNoise(kind),
						ThresholdDelta: cfg.ThresholdDelta,
						Workers:        cfg.Workers,
					})
					if err != nil {
						return res, err
					}
					reports = append(reports, r)
				}
				s := Summarize(reports)
				log.Infof("Sweep: epsilon = %g, rule length = %d, k = %d: mean F1 at 0.5 = %.3f", eps, rl, k, meanAt(s, 0.5))
				res = append(res, s)
			}
		}
	}
	return res, nil
}

func meanAt(s Summary, threshold float64) float64 {
	for i, t := range s.Thresholds {
		if t == threshold {
			return s.F1[i]
		}
	}
	return 0
}
