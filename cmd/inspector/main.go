// Command inspector queries the request-log index from the shell,
// without going through the API. Handy when the orchestrator is down
// and the records are not.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/QIRoss/ai-orchestrator/internal/model"
	"github.com/QIRoss/ai-orchestrator/internal/search"
)

func main() {
	var (
		url       = flag.String("url", "http://localhost:9200", "search index base URL")
		index     = flag.String("index", "ai-requests", "index name")
		endpoint  = flag.String("endpoint", "", "filter by endpoint (summarize|translate|analyze_sentiment)")
		modelName = flag.String("model", "", "filter by model")
		status    = flag.String("status", "", "filter by status (ok|error)")
		query     = flag.String("q", "", "full-text match on input/output text")
		limit     = flag.Int("limit", 20, "max records to print")
		stats     = flag.Bool("stats", false, "print aggregations instead of records")
		since     = flag.Duration("since", 0, "only records newer than this (e.g. 24h)")
	)
	flag.Parse()

	store := search.NewStore(search.NewClient(*url, 10*time.Second), *index)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var from *time.Time
	if *since > 0 {
		t := time.Now().Add(-*since).UTC()
		from = &t
	}

	if *stats {
		out, err := store.Aggregate(ctx, from, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "aggregate: %v\n", err)
			os.Exit(1)
		}
		printJSON(out)
		return
	}

	records, err := store.List(ctx, model.LogFilter{
		Endpoint: *endpoint,
		Model:    *modelName,
		Status:   *status,
		Query:    *query,
		From:     from,
		Limit:    *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "list: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("no records")
		return
	}
	for _, rec := range records {
		fmt.Printf("%s  %-5s %-17s %-14s %6dms  %s\n",
			rec.Timestamp.Format(time.RFC3339), rec.Status, rec.Endpoint,
			rec.Model, rec.LatencyMs, snippet(rec.InputText, 60))
	}
}

func snippet(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
