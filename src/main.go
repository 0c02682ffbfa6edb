package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"

	"crosswarped.com/cliques"
	"crosswarped.com/cliques/internal/config"
	"crosswarped.com/cliques/internal/logflags"
	"crosswarped.com/cliques/internal/wordsource"
)

const (
	defaultMaxRows = 100
	maxMaxRows     = 1000
)

type FindCliquesRequest struct {
	Words               []string `json:"words"`
	WordScope           string   `json:"wordScope"`
	WordLength          int      `json:"wordLength"`
	WordsPerCombination int      `json:"wordsPerCombination"`
	AlphabetSize        int      `json:"alphabetSize"`
	Policy              string   `json:"policy"`
	MaxRows             int      `json:"maxRows"`
}

type FindCliquesResponse struct {
	Success      bool     `json:"success"`
	Rows         []string `json:"rows"`
	Combinations []string `json:"combinations"`
	Truncated    bool     `json:"truncated,omitempty"`
	Error        string   `json:"error,omitempty"`
}

var scopeRE = regexp.MustCompile(`^[\w-]{1,64}$`)

// loadScope fetches the words of a named scope from the table configured in
// BIGQUERY_TABLE. Replaced in tests.
var loadScope = func(ctx context.Context, scope string, length int) ([]string, error) {
	return wordsource.BigQuerySource{
		ProjectID: os.Getenv("BIGQUERY_PROJECT"),
		Table:     os.Getenv("BIGQUERY_TABLE"),
		Scope:     scope,
	}.Words(ctx, length)
}

func (req FindCliquesRequest) params() (config.Params, error) {
	p := config.Defaults()
	if req.WordLength != 0 {
		p.WordLength = req.WordLength
	}
	if req.WordsPerCombination != 0 {
		p.WordsPerCombination = req.WordsPerCombination
	}
	if req.AlphabetSize != 0 {
		p.AlphabetSize = req.AlphabetSize
	}
	if req.Policy != "" {
		p.Policy = req.Policy
	}
	return p, p.Validate()
}

func execute(ctx context.Context, req FindCliquesRequest) (FindCliquesResponse, error) {
	var resp FindCliquesResponse

	if req.MaxRows == 0 {
		req.MaxRows = defaultMaxRows
	}
	if req.MaxRows < 1 {
		return resp, fmt.Errorf("maxRows must be at least 1")
	}
	if req.MaxRows > maxMaxRows {
		return resp, fmt.Errorf("maxRows must be at most %d", maxMaxRows)
	}

	p, err := req.params()
	if err != nil {
		return resp, err
	}
	sp, err := p.SearcherParams()
	if err != nil {
		return resp, err
	}

	var words []string
	for _, w := range req.Words {
		if word, ok := wordsource.Normalize(strings.TrimSpace(w), p.WordLength); ok {
			words = append(words, word)
		}
	}
	if req.WordScope != "" {
		if !scopeRE.MatchString(req.WordScope) {
			return resp, fmt.Errorf("invalid wordScope %q", req.WordScope)
		}
		scoped, err := loadScope(ctx, req.WordScope, p.WordLength)
		if err != nil {
			return resp, fmt.Errorf("loadScope: %w", err)
		}
		words = append(words, scoped...)
	}
	if len(words) == 0 {
		return resp, fmt.Errorf("no candidate words of length %d", p.WordLength)
	}

	timeout := 1 * time.Minute
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline) - 5*time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	searcher := cliques.CreateSearcher(words, sp)
	combinations := searcher.Combinations(ctx)
	if sp.Strategy == cliques.StrategyParallel {
		combinations = searcher.ParallelCombinations(ctx)
	}

	resp.Rows = []string{}
	resp.Combinations = []string{}
search:
	for c := range combinations {
		resp.Combinations = append(resp.Combinations, c.Repr())
		for row := range c.Rows() {
			if len(resp.Rows) >= req.MaxRows {
				resp.Truncated = true
				break search
			}
			resp.Rows = append(resp.Rows, row.Repr())
		}
	}

	logflags.FunctionLogger().Infof("found %d rows from %d words", len(resp.Rows), len(words))
	return resp, ctx.Err()
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Content-Type", "application/json")
}

func findCliques(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprintf(w, `{"success": false, "error": "Method %s not allowed"}`, r.Method)
		return
	}

	var req FindCliquesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logflags.FunctionLogger().Warnf("parse JSON body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(FindCliquesResponse{Error: fmt.Sprintf("Invalid JSON: %v", err)})
		return
	}

	resp, err := execute(r.Context(), req)
	resp.Success = err == nil
	if err != nil {
		resp.Error = err.Error()
		w.WriteHeader(http.StatusBadRequest)
	} else if len(resp.Rows) == 0 {
		resp.Error = "No combinations could be found with the given parameters"
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logflags.FunctionLogger().Errorf("marshal response: %v", err)
	}
}

func main() {
	logflags.Setup(os.Getenv("VERBOSE") == "true", os.Stderr)
	funcframework.RegisterHTTPFunction("/find-cliques", findCliques)

	port := "8080"
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}
	hostname := ""
	if localOnly := os.Getenv("LOCAL_ONLY"); localOnly == "true" {
		hostname = "127.0.0.1"
	}
	if err := funcframework.StartHostPort(hostname, port); err != nil {
		logflags.FunctionLogger().Fatalf("funcframework.StartHostPort: %v", err)
	}
}
