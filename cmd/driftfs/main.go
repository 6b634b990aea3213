// Command driftfs is a small client for the configured backends. It resolves
// fully qualified URIs through the backend registry and runs one filesystem
// operation per invocation.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/driftfs/driftfs/internal/logger"
	"github.com/driftfs/driftfs/pkg/config"
	"github.com/driftfs/driftfs/pkg/fs"
)

const usage = `Usage: driftfs [flags] <command> [command flags] <uri>...

Commands:
  ls <uri>             List a directory
  stat <uri>           Print the status of an entry
  cat <uri>            Print a file's contents
  put <uri>            Create a file from stdin
  mkdir [-p] <uri>     Create a directory
  mv [-overwrite] <src> <dst>
                       Rename within one backend
  rm [-r] <uri>        Remove an entry
  stats                Print per-filesystem operation counters

Flags:
  -config <path>       Config file (default: $XDG_CONFIG_HOME/driftfs/config.yaml)
  -log-level <level>   Override the configured log level
  -dump-config         Print the effective configuration and exit
`

func main() {
	configPath := flag.String("config", "", "Path to config file")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	dumpConfig := flag.Bool("dump-config", false, "Print the effective configuration and exit")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(*logLevel)
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	if *dumpConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			log.Fatalf("Failed to render configuration: %v", err)
		}
		fmt.Print(string(out))
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stats := fs.NewStatsRegistry()
	registry, err := config.InitializeRegistry(ctx, cfg, stats)
	if err != nil {
		log.Fatalf("Failed to initialize backends: %v", err)
	}

	if err := run(ctx, registry, args[0], args[1:]); err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

func run(ctx context.Context, registry *fs.Registry, command string, args []string) error {
	switch command {
	case "ls":
		return runList(ctx, registry, args)
	case "stat":
		return runStat(ctx, registry, args)
	case "cat":
		return runCat(ctx, registry, args)
	case "put":
		return runPut(ctx, registry, args)
	case "mkdir":
		return runMkdir(ctx, registry, args)
	case "mv":
		return runRename(ctx, registry, args)
	case "rm":
		return runRemove(ctx, registry, args)
	case "stats":
		return runStats(registry)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// resolve parses a fully qualified URI and resolves its backend.
func resolve(ctx context.Context, registry *fs.Registry, rawURI string) (fs.Backend, fs.Path, error) {
	p, err := fs.ParsePath(rawURI)
	if err != nil {
		return nil, fs.Path{}, err
	}
	b, err := registry.Resolve(ctx, rawURI)
	if err != nil {
		return nil, fs.Path{}, err
	}
	return b, p, nil
}

func runList(ctx context.Context, registry *fs.Registry, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one uri")
	}
	b, p, err := resolve(ctx, registry, args[0])
	if err != nil {
		return err
	}
	entries, err := b.List(ctx, p)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		printStatus(&entry)
	}
	return nil
}

func runStat(ctx context.Context, registry *fs.Registry, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one uri")
	}
	b, p, err := resolve(ctx, registry, args[0])
	if err != nil {
		return err
	}
	st, err := b.Status(ctx, p)
	if err != nil {
		return err
	}
	printStatus(st)
	return nil
}

func runCat(ctx context.Context, registry *fs.Registry, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one uri")
	}
	b, p, err := resolve(ctx, registry, args[0])
	if err != nil {
		return err
	}
	r, err := fs.Open(ctx, b, p)
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(os.Stdout, r)
	return err
}

func runPut(ctx context.Context, registry *fs.Registry, args []string) error {
	flags := flag.NewFlagSet("put", flag.ExitOnError)
	overwrite := flags.Bool("overwrite", false, "Replace an existing file")
	parents := flags.Bool("p", false, "Create missing parent directories")
	_ = flags.Parse(args)
	if flags.NArg() != 1 {
		return fmt.Errorf("expected exactly one uri")
	}

	b, p, err := resolve(ctx, registry, flags.Arg(0))
	if err != nil {
		return err
	}
	createFlags := fs.FlagCreate
	if *overwrite {
		createFlags |= fs.FlagOverwrite
	}
	w, err := fs.Create(ctx, b, p, createFlags,
		fs.Permission(0644),
		fs.CreateParent(*parents),
	)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, os.Stdin); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func runMkdir(ctx context.Context, registry *fs.Registry, args []string) error {
	flags := flag.NewFlagSet("mkdir", flag.ExitOnError)
	parents := flags.Bool("p", false, "Create missing parent directories")
	_ = flags.Parse(args)
	if flags.NArg() != 1 {
		return fmt.Errorf("expected exactly one uri")
	}

	b, p, err := resolve(ctx, registry, flags.Arg(0))
	if err != nil {
		return err
	}
	return b.Mkdir(ctx, p, 0755, *parents)
}

func runRename(ctx context.Context, registry *fs.Registry, args []string) error {
	flags := flag.NewFlagSet("mv", flag.ExitOnError)
	overwrite := flags.Bool("overwrite", false, "Replace the destination if it exists")
	_ = flags.Parse(args)
	if flags.NArg() != 2 {
		return fmt.Errorf("expected source and destination uris")
	}

	b, src, err := resolve(ctx, registry, flags.Arg(0))
	if err != nil {
		return err
	}
	dst, err := fs.ParsePath(flags.Arg(1))
	if err != nil {
		return err
	}
	return fs.Rename(ctx, b, src, dst, *overwrite)
}

func runRemove(ctx context.Context, registry *fs.Registry, args []string) error {
	flags := flag.NewFlagSet("rm", flag.ExitOnError)
	recursive := flags.Bool("r", false, "Remove directories recursively")
	_ = flags.Parse(args)
	if flags.NArg() != 1 {
		return fmt.Errorf("expected exactly one uri")
	}

	b, p, err := resolve(ctx, registry, flags.Arg(0))
	if err != nil {
		return err
	}
	removed, err := b.Delete(ctx, p, *recursive)
	if err != nil {
		return err
	}
	if !removed {
		logger.Warn("Nothing removed at %s", p)
	}
	return nil
}

func runStats(registry *fs.Registry) error {
	snapshots := registry.Stats().SnapshotAll()
	keys := make([]string, 0, len(snapshots))
	for key := range snapshots {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		snap := snapshots[key]
		fmt.Printf("%s: %d bytes read, %d bytes written, %d read ops, %d write ops\n",
			key, snap.BytesRead, snap.BytesWritten, snap.ReadOps, snap.WriteOps)
	}
	return nil
}

func printStatus(st *fs.FileStatus) {
	kind := "-"
	switch {
	case st.IsDir:
		kind = "d"
	case st.IsSymlink():
		kind = "l"
	}
	fmt.Printf("%s %04o %12d %s %s\n",
		kind, st.Mode, st.Size, st.ModTime.Format("2006-01-02 15:04:05"), st.Path)
}
