// Package requestq is a serialized outbound request queue. It runs a
// single background worker that executes queued API calls one at a
// time, in priority order, honoring server rate limits and keeping a
// bounded, persistent history of everything it has done.
//
// Items carry an operation (the actual call), positional and named
// arguments recorded for the audit trail, an optional completion
// callback, and a priority. The worker retries rate-limited calls
// automatically and lets callers re-enqueue failed or cancelled items
// by hand.
//
// # Example
//
//	package main
//
//	import (
//		"context"
//
//		"github.com/dnstools/requestq/core"
//		"github.com/dnstools/requestq/item"
//		filestore "github.com/dnstools/requestq/persistence/file"
//	)
//
//	func main() {
//		engine := core.NewEngine(
//			core.WithHistoryLimit(200),
//			core.WithPersister(filestore.NewStore("history.json")),
//		)
//
//		engine.Enqueue(item.New("dns/update", updateRecord,
//			item.WithPriority(item.PriorityHigh),
//			item.WithArgs("example.com", "A", "203.0.113.7"),
//		))
//
//		// Run blocks until SIGINT or SIGTERM.
//		if err := engine.Run(context.Background()); err != nil {
//			panic(err)
//		}
//	}
//
// # Operations and outcomes
//
// An operation is a plain function. Returning a nil error marks the
// item completed and stores the returned payload in history. Two error
// types get special treatment:
//
//	// Ordinary failure with a structured payload for the audit trail.
//	return nil, &item.OpError{Message: "zone not found", Raw: resp}
//
//	// The server asked us to back off. The worker sleeps and retries
//	// the same item without losing its queue position.
//	return nil, &item.RateLimitError{RetryAfter: 30 * time.Second}
//
// Any other error is recorded as a failure with the error text as the
// message.
//
// # Package-level interface
//
// For processes that want a single shared queue, the package-level
// functions mirror the engine methods and build the engine from
// configuration:
//
//	func init() {
//		cfg := config.DefaultConfig()
//		cfg.Persistence.Path = "/var/lib/myapp/history.json"
//		requestq.SetConfig(cfg)
//	}
//
//	func main() {
//		requestq.Enqueue("sync/zones", syncZones)
//		if err := requestq.Work(); err != nil {
//			fmt.Println("Error:", err)
//		}
//	}
package requestq
