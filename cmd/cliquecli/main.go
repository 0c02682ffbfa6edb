package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"

	"crosswarped.com/cliques"
	"crosswarped.com/cliques/internal/config"
	"crosswarped.com/cliques/internal/logflags"
	"crosswarped.com/cliques/internal/metrics"
	"crosswarped.com/cliques/internal/metrics/prompush"
	"crosswarped.com/cliques/internal/wordsource"
)

type options struct {
	file       string
	configPath string
	output     string
	verbose    bool
	timeout    time.Duration

	bqProject string
	bqTable   string
	bqColumn  string

	pushgatewayURL string
	jobName        string

	profile           bool
	profileFile       string
	memoryProfileFile string

	flags *config.Flags
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "cliquecli [flags]",
		Short: "Find groups of words with pairwise disjoint letters.",
		Long: `Reads a dictionary, one word per line, and prints every group of words whose
letters are pairwise disjoint, one line per group. With the missing-letter policy
the uncovered letter is printed last.

Lines that are not exactly word-length ASCII letters are ignored.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.file, "file", "f", "", "The file to load words from. Defaults to stdin.")
	fs.StringVarP(&opts.configPath, "config", "c", "", "YAML config file; flags override its values.")
	fs.StringVarP(&opts.output, "output", "o", "", "Write results to this file instead of stdout.")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress counters to stderr.")
	fs.DurationVar(&opts.timeout, "timeout", 0, "Abort the search after this long. Zero means no limit.")
	fs.StringVar(&opts.bqProject, "bq-project", "", "Load words from BigQuery in this project instead of a file.")
	fs.StringVar(&opts.bqTable, "bq-table", "", "Fully qualified BigQuery table holding the words.")
	fs.StringVar(&opts.bqColumn, "bq-column", "word", "BigQuery column holding the words.")
	fs.StringVar(&opts.pushgatewayURL, "pushgateway-url", os.Getenv("PUSHGATEWAY_URL"), "Push metrics to this Prometheus Pushgateway when done.")
	fs.StringVar(&opts.jobName, "job", "cliques", "Pushgateway job name.")
	fs.BoolVar(&opts.profile, "profile", false, "Profile the search.")
	fs.StringVar(&opts.profileFile, "profile-file", "cpu.pprof", "The file to write the CPU profile to.")
	fs.StringVar(&opts.memoryProfileFile, "memory-profile-file", "mem.pprof", "The file to write the memory profile to.")
	opts.flags = config.BindFlags(fs)

	return cmd
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout, stderr io.Writer) error {
	logflags.Setup(opts.verbose, stderr)
	log := logflags.SearchLogger()

	params := config.Defaults()
	if opts.configPath != "" {
		var err error
		if params, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	params = opts.flags.Apply(params)
	sp, err := params.SearcherParams()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if opts.pushgatewayURL != "" {
		b, err := prompush.NewBackend(opts.jobName, opts.pushgatewayURL)
		if err != nil {
			log.Warnf("metrics: %v; metrics disabled", err)
		} else {
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Warnf("metrics: flush: %v", err)
				}
			}()
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	words, err := loadWords(ctx, opts, params.WordLength, stdin)
	if err != nil {
		return err
	}

	out := stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if opts.profile {
		stop, err := startProfile(opts)
		if err != nil {
			return err
		}
		defer stop()
	}

	searcher := cliques.CreateSearcher(words, sp)
	stats, err := searcher.Run(ctx, out)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	log.WithField("elapsed", stats.ReduceDuration+stats.IndexDuration+stats.SearchDuration).
		Infof("words %d, fingerprints %d, combinations %d, rows %d",
			stats.Words, stats.Fingerprints, stats.Combinations, stats.Rows)
	return nil
}

func loadWords(ctx context.Context, opts options, length int, stdin io.Reader) ([]string, error) {
	if opts.bqProject != "" || opts.bqTable != "" {
		return wordsource.BigQuerySource{
			ProjectID: opts.bqProject,
			Table:     opts.bqTable,
			Column:    opts.bqColumn,
		}.Words(ctx, length)
	}

	r := stdin
	if opts.file != "" && opts.file != "-" {
		f, err := os.Open(opts.file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return wordsource.ReadWords(ctx, r, length)
}

func startProfile(opts options) (func(), error) {
	f, err := os.Create(opts.profileFile)
	if err != nil {
		return nil, fmt.Errorf("create profile file: %w", err)
	}
	mf, err := os.Create(opts.memoryProfileFile)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create memory profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		mf.Close()
		return nil, fmt.Errorf("start CPU profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
		if err := pprof.WriteHeapProfile(mf); err != nil {
			logflags.SearchLogger().Warnf("profile: write heap profile: %v", err)
		}
		mf.Close()
	}, nil
}
