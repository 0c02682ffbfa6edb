// Package config holds the tunable parameters of a clique search and loads
// them from an optional YAML file overlaid with command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"

	"crosswarped.com/cliques"
	"crosswarped.com/cliques/pkg/primitives"
)

// Params defines every option that can be set through the config file.
type Params struct {
	// WordLength is the number of letters in every word (L).
	WordLength int `yaml:"word-length"`
	// WordsPerCombination is the number of words in a combination (N).
	WordsPerCombination int `yaml:"words-per-combination"`
	// AlphabetSize is the number of letters starting at 'a', at most 32.
	AlphabetSize int `yaml:"alphabet-size"`
	// Policy is "exact" or "missing-letter".
	Policy string `yaml:"policy"`
	// Strategy is "flat", "indexed" or "parallel".
	Strategy string `yaml:"strategy"`
	// Workers is the pool size of the parallel strategy.
	Workers int `yaml:"workers"`
	// ChannelBuffer bounds the parallel strategy's result channel.
	ChannelBuffer int `yaml:"channel-buffer"`
}

// Defaults is the classic puzzle: five five-letter words using 25 distinct
// letters.
func Defaults() Params {
	return Params{
		WordLength:          5,
		WordsPerCombination: 5,
		AlphabetSize:        26,
		Policy:              cliques.PolicyMissingLetter.String(),
		Strategy:            cliques.StrategyParallel.String(),
		Workers:             runtime.GOMAXPROCS(0),
		ChannelBuffer:       1024,
	}
}

// Load reads a YAML config file on top of Defaults. Unknown keys are an
// error.
func Load(path string) (Params, error) {
	p := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return p, fmt.Errorf("parse config %s: %w", path, err)
	}
	return p, nil
}

// Validate reports every problem with p at once.
func (p Params) Validate() error {
	var errs []error
	if p.WordLength < 1 {
		errs = append(errs, fmt.Errorf("word-length must be at least 1, got %d", p.WordLength))
	}
	if p.WordsPerCombination < 1 {
		errs = append(errs, fmt.Errorf("words-per-combination must be at least 1, got %d", p.WordsPerCombination))
	}
	if p.AlphabetSize < 1 || p.AlphabetSize > primitives.MaxAlphabetSize {
		errs = append(errs, fmt.Errorf("alphabet-size must be in [1, %d], got %d", primitives.MaxAlphabetSize, p.AlphabetSize))
	} else if p.WordLength > p.AlphabetSize {
		errs = append(errs, fmt.Errorf("word-length %d exceeds alphabet-size %d", p.WordLength, p.AlphabetSize))
	}

	policy, err := cliques.ParsePolicy(p.Policy)
	if err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	} else if policy == cliques.PolicyMissingLetter && p.WordLength*p.WordsPerCombination != p.AlphabetSize-1 {
		errs = append(errs, fmt.Errorf("policy missing-letter needs words-per-combination * word-length = alphabet-size - 1, got %d * %d and %d",
			p.WordsPerCombination, p.WordLength, p.AlphabetSize))
	}

	strategy, err := cliques.ParseStrategy(p.Strategy)
	if err != nil {
		errs = append(errs, fmt.Errorf("strategy: %w", err))
	} else if strategy == cliques.StrategyParallel && p.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1 for the parallel strategy, got %d", p.Workers))
	}
	if p.ChannelBuffer < 0 {
		errs = append(errs, fmt.Errorf("channel-buffer must not be negative, got %d", p.ChannelBuffer))
	}

	return errors.Join(errs...)
}

// SearcherParams validates p and converts it for cliques.CreateSearcher.
func (p Params) SearcherParams() (cliques.SearcherParams, error) {
	if err := p.Validate(); err != nil {
		return cliques.SearcherParams{}, err
	}
	alphabet, err := primitives.NewAlphabet(p.AlphabetSize)
	if err != nil {
		return cliques.SearcherParams{}, err
	}
	policy, _ := cliques.ParsePolicy(p.Policy)
	strategy, _ := cliques.ParseStrategy(p.Strategy)
	return cliques.SearcherParams{
		WordLength:          p.WordLength,
		WordsPerCombination: p.WordsPerCombination,
		Alphabet:            alphabet,
		Policy:              policy,
		Strategy:            strategy,
		Workers:             p.Workers,
		ChannelBuffer:       p.ChannelBuffer,
	}, nil
}

// Flags binds every Params field to a command line flag.
type Flags struct {
	fs     *pflag.FlagSet
	values Params
}

// BindFlags registers the search flags on fs, with Defaults as defaults.
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	d := Defaults()
	fs.IntVarP(&f.values.WordLength, "word-length", "l", d.WordLength, "Number of letters in every word.")
	fs.IntVarP(&f.values.WordsPerCombination, "words", "n", d.WordsPerCombination, "Number of words per combination.")
	fs.IntVar(&f.values.AlphabetSize, "alphabet-size", d.AlphabetSize, "Number of letters in the alphabet, starting at 'a'.")
	fs.StringVar(&f.values.Policy, "policy", d.Policy, `Completion policy: "exact" or "missing-letter".`)
	fs.StringVar(&f.values.Strategy, "strategy", d.Strategy, `Search strategy: "flat", "indexed" or "parallel".`)
	fs.IntVarP(&f.values.Workers, "workers", "j", d.Workers, "Worker pool size for the parallel strategy.")
	fs.IntVar(&f.values.ChannelBuffer, "channel-buffer", d.ChannelBuffer, "Capacity of the parallel result channel.")
	return f
}

// Apply overwrites the fields of p whose flags were set explicitly.
func (f *Flags) Apply(p Params) Params {
	f.fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "word-length":
			p.WordLength = f.values.WordLength
		case "words":
			p.WordsPerCombination = f.values.WordsPerCombination
		case "alphabet-size":
			p.AlphabetSize = f.values.AlphabetSize
		case "policy":
			p.Policy = f.values.Policy
		case "strategy":
			p.Strategy = f.values.Strategy
		case "workers":
			p.Workers = f.values.Workers
		case "channel-buffer":
			p.ChannelBuffer = f.values.ChannelBuffer
		}
	})
	return p
}
