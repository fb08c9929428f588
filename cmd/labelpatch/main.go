package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/strongdm/labelpatch/internal/config"
	"github.com/strongdm/labelpatch/internal/docstore"
	"github.com/strongdm/labelpatch/internal/logging"
	"github.com/strongdm/labelpatch/internal/patch"
	"github.com/strongdm/labelpatch/internal/topology"
	"github.com/strongdm/labelpatch/internal/validate"
	"github.com/strongdm/labelpatch/internal/version"
	"github.com/strongdm/labelpatch/internal/workflow"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  labelpatch --version")
	fmt.Fprintln(w, "  labelpatch [--topology <file.yaml|file.json>] [--log-level <debug|info|warn|error>] [--log-format <console|json>] [--] [<workflow.json | glob>]")
	fmt.Fprintln(w, "\nValued flags also accept --flag=value. Use -- before a path that starts with -.")
	fmt.Fprintf(w, "The workflow defaults to %s and is rewritten in place.\n", config.DefaultFile)
}

var valuedFlags = map[string]bool{"--topology": true, "--log-level": true, "--log-format": true}

// run returns the process exit code: 0 on success, 1 on failure, 2 on
// usage errors.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		name, value, inline := arg, "", false
		if n, v, ok := strings.Cut(arg, "="); ok && valuedFlags[n] {
			name, value, inline = n, v, true
		}
		switch name {
		case "--version", "-v":
			fmt.Fprintf(stdout, "labelpatch %s\n", version.Version)
			return 0
		case "--help", "-h":
			usage(stdout)
			return 0
		case "--topology", "--log-level", "--log-format":
			if !inline {
				i++
				if i >= len(args) {
					fmt.Fprintf(stderr, "%s requires a value\n", name)
					return 2
				}
				value = args[i]
			}
			switch name {
			case "--topology":
				cfg.TopologyPath = value
			case "--log-level":
				cfg.LogLevel = value
			case "--log-format":
				cfg.LogFormat = value
			}
		default:
			if strings.HasPrefix(arg, "-") {
				fmt.Fprintf(stderr, "unknown arg: %s\n", arg)
				usage(stderr)
				return 2
			}
			positional = append(positional, arg)
		}
	}
	if len(positional) > 1 {
		usage(stderr)
		return 2
	}
	if len(positional) == 1 {
		cfg.File = positional[0]
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	log := logging.New(cfg, stderr)
	defer func() { _ = log.Sync() }()

	if err := patchFiles(cfg, log, stdout, stderr); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

type patchedFile struct {
	path   string
	doc    *workflow.Document
	result *patch.Result
	diags  []validate.Diagnostic
}

// patchFiles loads and patches every matched file before writing any of
// them, so a bad file aborts the whole run with nothing written.
func patchFiles(cfg *config.Config, log *zap.Logger, stdout, stderr io.Writer) error {
	table, err := loadTable(cfg.TopologyPath)
	if err != nil {
		return err
	}
	paths, err := docstore.Expand(cfg.File)
	if err != nil {
		return err
	}
	store, err := docstore.NewFileStore()
	if err != nil {
		return err
	}
	runID, err := docstore.NewRunID()
	if err != nil {
		return err
	}
	log = log.With(zap.String("run_id", runID))

	var done []patchedFile
	for _, path := range paths {
		flog := log.With(zap.String("file", path))
		doc, err := store.Load(path)
		if err != nil {
			return err
		}
		reg, labels := patch.DefaultRegistry(table, flog)
		if err := patch.Prepare(doc, reg); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		done = append(done, patchedFile{
			path:   path,
			doc:    doc,
			result: labels.Last,
			diags:  validate.Validate(doc, table),
		})
	}

	for _, f := range done {
		if err := store.Save(f.path, f.doc); err != nil {
			return err
		}
		for _, d := range f.diags {
			fmt.Fprintf(stderr, "%s: %s\n", f.path, d)
		}
		log.Info("workflow patched",
			zap.String("file", f.path),
			zap.Int("labels", len(f.result.Labels)),
			zap.Strings("skipped", f.result.Skipped),
			zap.Int("warnings", len(f.diags)),
		)
		fmt.Fprintf(stdout, "✅ Added %d label nodes to workflow\n", len(f.result.Labels))
		fmt.Fprintln(stdout, "✅ Updated connections for proper test naming")
	}
	return nil
}

func loadTable(path string) (*topology.Table, error) {
	if path == "" {
		return topology.Default()
	}
	return topology.LoadFile(path)
}
