// Command pruefctl operates on a pruefbuch audit database directly.
//
// Usage:
//
//	pruefctl criteria-import -db db/pruefbuch.db -file kriterien.yaml
//	pruefctl add-bidder -project p -bidder b -name "Firma Alpha"
//	pruefctl sync -project p [-bidder b]
//	pruefctl next -project p -bidder b
//	pruefctl record -project p -bidder b -criterion F1 -kind human_review -outcome ok
//	pruefctl show -project p -bidder b
//	pruefctl entries -project p -bidder b
//	pruefctl ai-review -project p -bidder b -doc angebot.pdf -rules rules.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/pruefbuch/dbopen"
	"github.com/hazyhaar/pruefbuch/docsource"
	"github.com/hazyhaar/pruefbuch/kriterien"
	"github.com/hazyhaar/pruefbuch/pruefung"
	"github.com/hazyhaar/pruefbuch/reviewer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "criteria-import":
		err = runCriteriaImport(ctx, args)
	case "add-bidder":
		err = runAddBidder(ctx, args)
	case "sync":
		err = runSync(ctx, args)
	case "next":
		err = runNext(ctx, args)
	case "record":
		err = runRecord(ctx, args)
	case "show":
		err = runShow(ctx, args)
	case "entries":
		err = runEntries(ctx, args)
	case "ai-review":
		err = runAIReview(ctx, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pruefctl %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pruefctl <criteria-import|add-bidder|sync|next|record|show|entries|ai-review> [flags]")
}

// commonFlags binds the flags every subcommand shares.
func commonFlags(fs *flag.FlagSet) *string {
	return fs.String("db", "db/pruefbuch.db", "audit database path")
}

func openService(dbPath string) (*pruefung.Service, error) {
	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll())
	if err != nil {
		return nil, err
	}
	return pruefung.New(db)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCriteriaImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("criteria-import", flag.ExitOnError)
	dbPath := commonFlags(fs)
	file := fs.String("file", "kriterien.yaml", "criteria YAML file")
	fs.Parse(args)

	f, err := kriterien.Load(*file)
	if err != nil {
		return err
	}
	svc, err := openService(*dbPath)
	if err != nil {
		return err
	}
	if err := svc.PutCriteria(ctx, f.Project, f.Criteria); err != nil {
		return err
	}
	return printJSON(map[string]any{"project": f.Project, "criteria": len(f.Criteria)})
}

func runAddBidder(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-bidder", flag.ExitOnError)
	dbPath := commonFlags(fs)
	project := fs.String("project", "", "project id")
	bidder := fs.String("bidder", "", "bidder id")
	name := fs.String("name", "", "bidder display name")
	fs.Parse(args)

	svc, err := openService(*dbPath)
	if err != nil {
		return err
	}
	if err := svc.AddBidder(ctx, *project, *bidder, *name); err != nil {
		return err
	}
	return printJSON(map[string]string{"project": *project, "bidder": *bidder})
}

func runSync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	dbPath := commonFlags(fs)
	project := fs.String("project", "", "project id")
	bidder := fs.String("bidder", "", "bidder id (empty: all registered bidders)")
	fs.Parse(args)

	svc, err := openService(*dbPath)
	if err != nil {
		return err
	}
	if *bidder != "" {
		res, err := svc.SyncBidder(ctx, *project, *bidder)
		if err != nil {
			return err
		}
		return printJSON(res)
	}
	results, err := svc.SyncProject(ctx, *project)
	if err != nil {
		return err
	}
	return printJSON(results)
}

func runNext(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("next", flag.ExitOnError)
	dbPath := commonFlags(fs)
	project := fs.String("project", "", "project id")
	bidder := fs.String("bidder", "", "bidder id")
	fs.Parse(args)

	svc, err := openService(*dbPath)
	if err != nil {
		return err
	}
	next, err := svc.NextOpen(ctx, *project, *bidder)
	if err != nil {
		return err
	}
	if next == nil {
		return printJSON(map[string]bool{"done": true})
	}
	return printJSON(next)
}

func runRecord(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	dbPath := commonFlags(fs)
	project := fs.String("project", "", "project id")
	bidder := fs.String("bidder", "", "bidder id")
	criterion := fs.String("criterion", "", "criterion id")
	kind := fs.String("kind", "human_review", "ai_review | human_review | approve | reject")
	outcome := fs.String("outcome", "", "review outcome")
	actor := fs.String("actor", "", "automation | human | system")
	note := fs.String("note", "", "free-text note")
	fs.Parse(args)

	svc, err := openService(*dbPath)
	if err != nil {
		return err
	}
	in := pruefung.ReviewInput{
		Kind:  pruefung.EventKind(*kind),
		Actor: pruefung.Actor(*actor),
		Note:  *note,
	}
	if *outcome != "" {
		in.Outcome = outcome
	}
	entry, err := svc.Record(ctx, *project, *bidder, *criterion, in)
	if err != nil {
		return err
	}
	return printJSON(entry)
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	dbPath := commonFlags(fs)
	project := fs.String("project", "", "project id")
	bidder := fs.String("bidder", "", "bidder id")
	fs.Parse(args)

	svc, err := openService(*dbPath)
	if err != nil {
		return err
	}
	rec, err := svc.GetRecord(ctx, *project, *bidder)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func runEntries(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("entries", flag.ExitOnError)
	dbPath := commonFlags(fs)
	project := fs.String("project", "", "project id")
	bidder := fs.String("bidder", "", "bidder id")
	fs.Parse(args)

	svc, err := openService(*dbPath)
	if err != nil {
		return err
	}
	entries, err := svc.ListEntries(ctx, *project, *bidder)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []*pruefung.Entry{}
	}
	return printJSON(entries)
}

// runAIReview extracts a submission document, judges every open
// criterion with the keyword rules, and records ai_review events.
func runAIReview(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ai-review", flag.ExitOnError)
	dbPath := commonFlags(fs)
	project := fs.String("project", "", "project id")
	bidder := fs.String("bidder", "", "bidder id")
	docPath := fs.String("doc", "", "submission document (pdf, docx, html, md, txt)")
	rulesPath := fs.String("rules", "rules.yaml", "review rules YAML file")
	fs.Parse(args)

	rules, err := reviewer.LoadRules(*rulesPath)
	if err != nil {
		return err
	}
	rev, err := reviewer.NewKeywordReviewer(rules)
	if err != nil {
		return err
	}

	doc, err := docsource.New().Extract(ctx, *docPath)
	if err != nil {
		return err
	}

	svc, err := openService(*dbPath)
	if err != nil {
		return err
	}
	rec, err := svc.GetRecord(ctx, *project, *bidder)
	if err != nil {
		return err
	}

	type reviewed struct {
		Criterion string `json:"criterion"`
		Outcome   string `json:"outcome"`
		Note      string `json:"note,omitempty"`
	}
	var out []reviewed
	for _, entry := range pruefung.OpenEntries(rec) {
		res, err := rev.Review(ctx, entry.ID, doc)
		if err != nil {
			return err
		}
		outcome := res.Outcome
		if _, err := svc.Record(ctx, *project, *bidder, entry.ID, pruefung.ReviewInput{
			Kind:    pruefung.KindAIReview,
			Outcome: &outcome,
			Actor:   pruefung.ActorAutomation,
			Note:    res.Note,
		}); err != nil {
			return err
		}
		out = append(out, reviewed{Criterion: entry.ID, Outcome: res.Outcome, Note: res.Note})
	}
	return printJSON(map[string]any{"document": doc.Path, "reviewed": out})
}
