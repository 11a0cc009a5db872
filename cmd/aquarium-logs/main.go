// aquarium-logs prints the aquarium event history, newest first.
//
// Usage:
//
//	aquarium-logs [--db path] [--topic t | --preset name] [--limit n] [--json]
//
// Presets select the topics of one device or concern: pump, lamp, alarms
// and feed. JSON values (sensor readings) are pretty-printed.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/nerrad567/aquarium-core/internal/history"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/config"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/database"
	"github.com/nerrad567/aquarium-core/internal/protocol"
)

const queryTimeout = 10 * time.Second

var topics = protocol.Topics{}

// presets maps a preset name to the topics it shows.
var presets = map[string][]string{
	"pump":   {topics.Command(protocol.DevicePump), topics.Status(protocol.DevicePump)},
	"lamp":   {topics.Command(protocol.DeviceLamp), topics.Status(protocol.DeviceLamp)},
	"alarms": {topics.Alarm()},
	"feed":   {topics.Feed()},
}

type options struct {
	configPath string
	dbPath     string
	topic      string
	preset     string
	limit      int
	asJSON     bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	wanted, err := opts.topics()
	if err != nil {
		return err
	}

	if opts.dbPath == "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return fmt.Errorf("loading config (use --db to skip): %w", err)
		}
		opts.dbPath = cfg.Database.Path
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	db, err := database.Open(ctx, database.Config{Path: opts.dbPath, BusyTimeout: 5, ReadOnly: true})
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // Read-only

	entries, err := query(ctx, history.NewSQLiteLog(db.DB), wanted, opts.limit)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	return printEntries(out, entries)
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("aquarium-logs", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", config.PathFromEnv(), "configuration file used to find the database")
	fs.StringVar(&opts.dbPath, "db", "", "history database (overrides the configuration)")
	fs.StringVarP(&opts.topic, "topic", "t", "", "only show this topic")
	fs.StringVarP(&opts.preset, "preset", "p", "", "only show a preset: pump, lamp, alarms, feed")
	fs.IntVarP(&opts.limit, "limit", "n", history.DefaultLimit, fmt.Sprintf("maximum number of entries (at most %d)", history.MaxLimit))
	fs.BoolVar(&opts.asJSON, "json", false, "print entries as a JSON array")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if opts.limit <= 0 || opts.limit > history.MaxLimit {
		return opts, fmt.Errorf("--limit must be between 1 and %d, got %d", history.MaxLimit, opts.limit)
	}
	return opts, nil
}

// topics resolves --topic and --preset. Nil means every topic.
func (o options) topics() ([]string, error) {
	switch {
	case o.topic != "" && o.preset != "":
		return nil, errors.New("--topic and --preset are mutually exclusive")
	case o.topic != "":
		return []string{o.topic}, nil
	case o.preset != "":
		t, ok := presets[strings.ToLower(o.preset)]
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (want pump, lamp, alarms or feed)", o.preset)
		}
		return t, nil
	}
	return nil, nil
}

// query fetches the newest limit entries across all wanted topics.
func query(ctx context.Context, log *history.SQLiteLog, wanted []string, limit int) ([]history.Entry, error) {
	if len(wanted) == 0 {
		return log.Query(ctx, "", limit)
	}

	var all []history.Entry
	for _, t := range wanted {
		entries, err := log.Query(ctx, t, limit)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].RecordedAt.Equal(all[j].RecordedAt) {
			return all[i].RecordedAt.After(all[j].RecordedAt)
		}
		return all[i].ID > all[j].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func printEntries(out io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "no entries")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(out, "%s  %-22s  %s\n",
			e.RecordedAt.Local().Format("2006-01-02 15:04:05"), e.Topic, prettyValue(e.Value)); err != nil {
			return err
		}
	}
	return nil
}

// prettyValue indents JSON objects; plain text is returned unchanged.
func prettyValue(v string) string {
	trimmed := strings.TrimSpace(v)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return v
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "    ", "  "); err != nil {
		return v
	}
	return buf.String()
}
