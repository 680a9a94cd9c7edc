// Command requestq inspects a persisted request history document.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dnstools/requestq/item"
	filestore "github.com/dnstools/requestq/persistence/file"
	"github.com/dnstools/requestq/pkg/config"
)

var (
	configPath  = flag.String("config", "", "path to a YAML config file")
	historyPath = flag.String("history", "", "path to the history file (overrides config)")
	status      = flag.String("status", "", "only show entries with this status")
	limit       = flag.Int("limit", 0, "show at most this many entries (0 = all)")
	verbose     = flag.Bool("verbose", false, "include request and response details")
)

func main() {
	flag.Parse()

	path, err := resolvePath()
	if err != nil {
		log.Fatal("Error: ", err)
	}

	entries, err := filestore.NewStore(path).Load()
	if err != nil {
		log.Fatal("Error: ", err)
	}

	entries = filterEntries(entries, item.Status(*status), *limit)
	if len(entries) == 0 {
		fmt.Println("No history entries.")
		return
	}

	printEntries(entries, *verbose)
}

func resolvePath() (string, error) {
	if *historyPath != "" {
		return *historyPath, nil
	}

	if *configPath != "" {
		cfg, err := config.LoadFile(*configPath)
		if err != nil {
			return "", err
		}
		if cfg.Persistence.Type != "file" {
			return "", fmt.Errorf("config uses the %q backend, pass -history for a file path", cfg.Persistence.Type)
		}
		return cfg.Persistence.Path, nil
	}

	return config.DefaultConfig().Persistence.Path, nil
}

func filterEntries(entries []item.Snapshot, status item.Status, limit int) []item.Snapshot {
	if status != "" {
		kept := entries[:0]
		for _, e := range entries {
			if e.Status == status {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func printEntries(entries []item.Snapshot, verbose bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tACTION\tPRIORITY\tSTATUS\tRETRIES\tCREATED\tERROR")
	for _, e := range entries {
		created := ""
		if e.CreatedAt != nil {
			created = e.CreatedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(e.ID), e.Action, item.Priority(e.Priority), e.Status, e.RetryCount, created, e.Error)

		if verbose {
			if len(e.RequestInfo) > 0 {
				fmt.Fprintf(w, "\trequest: %v\n", e.RequestInfo)
			}
			if e.ResponseData != nil {
				fmt.Fprintf(w, "\tresponse: %v\n", e.ResponseData)
			}
		}
	}
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
