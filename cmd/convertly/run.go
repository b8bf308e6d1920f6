// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/convertly/internal/archive"
	"github.com/pdiddy/convertly/internal/batch"
	"github.com/pdiddy/convertly/internal/filetype"
	"github.com/pdiddy/convertly/internal/history"
	"github.com/pdiddy/convertly/internal/metrics"
	"github.com/pdiddy/convertly/internal/registry"
	"github.com/pdiddy/convertly/internal/service"
	"github.com/pdiddy/convertly/internal/tui"
	"github.com/pdiddy/convertly/pkg/types"
)

const defaultDownloadDir = "converted"

var runCmd = &cobra.Command{
	Use:   "run <workflow> <files...>",
	Short: "Run a batch of files through a workflow",
	Long: `Run adds the given files to a batch, sends one request per file (or one
combined request for pdf-merge) and shows each item until it settles. Files
the workflow does not accept are skipped. Finished artifacts are downloaded,
listed in a YAML manifest and, when configured, archived to S3 and recorded
in the run history.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runBatch,
}

func init() {
	f := runCmd.Flags()
	f.Int("angle", 90, "rotation in degrees for pdf-rotate (multiple of 90)")
	f.String("pages", "", `page selection for pdf-split, e.g. "1,3-5"`)
	f.Int("target-kb", 0, fmt.Sprintf("target size in KB for compress-pdf (default %d)", batch.DefaultTargetKB))
	f.Int("quality", 0, "JPEG quality 1-95 for compress-image")
	f.Int("max-width", 0, "maximum output width for compress-image")
	f.Int("max-height", 0, "maximum output height for compress-image")
	f.Int("concurrency", 0, "maximum requests in flight (0 sends all at once)")
	f.String("download-dir", defaultDownloadDir, "directory for downloaded artifacts")
	f.String("manifest", "", "manifest path (default <download-dir>/<run-id>.yaml)")
	f.Bool("plain", false, "print status lines instead of the progress view")
	f.Bool("no-download", false, "leave artifacts on the service")
	f.String("history-dir", "", "directory of the run history database")
	f.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")
	f.String("archive-bucket", "", "S3 bucket to archive artifacts to")
	f.String("archive-prefix", "", "key prefix for archived artifacts")

	_ = viper.BindPFlag("batch.concurrency", f.Lookup("concurrency"))
	_ = viper.BindPFlag("history.dir", f.Lookup("history-dir"))
	_ = viper.BindPFlag("metrics.textfile", f.Lookup("metrics-textfile"))
	_ = viper.BindPFlag("archive.bucket", f.Lookup("archive-bucket"))
	_ = viper.BindPFlag("archive.prefix", f.Lookup("archive-prefix"))

	rootCmd.AddCommand(runCmd)
}

func paramsFromFlags(cmd *cobra.Command) batch.Params {
	var p batch.Params
	p.Angle, _ = cmd.Flags().GetInt("angle")
	p.Pages, _ = cmd.Flags().GetString("pages")
	p.TargetKB, _ = cmd.Flags().GetInt("target-kb")
	p.Quality, _ = cmd.Flags().GetInt("quality")
	p.MaxWidth, _ = cmd.Flags().GetInt("max-width")
	p.MaxHeight, _ = cmd.Flags().GetInt("max-height")
	return p
}

func runBatch(cmd *cobra.Command, args []string) error {
	wf, err := batch.Lookup(args[0])
	if err != nil {
		return err
	}
	params := paramsFromFlags(cmd)
	fields, err := wf.Fields(params)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := collect(wf, args[1:], os.Stderr)
	if err != nil {
		return err
	}

	client, err := service.NewClient(cfg.Service)
	if err != nil {
		return err
	}

	downloadDir, _ := cmd.Flags().GetString("download-dir")
	plain, _ := cmd.Flags().GetBool("plain")
	noDownload, _ := cmd.Flags().GetBool("no-download")
	manifestPath, _ := cmd.Flags().GetString("manifest")

	runID := uuid.NewString()
	rec := metrics.New()
	disp := batch.NewDispatcher(client, reg, cfg.Batch,
		batch.WithRecorder(rec),
		batch.WithArtifactDir(downloadDir),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	useTUI := !plain && isatty.IsTerminal(os.Stdout.Fd())
	updates := make(chan batch.Update, 16)
	uiDone := make(chan error, 1)
	if useTUI {
		model := tui.NewModel(wf.Name, reg.Items(), updates).OnInterrupt(cancel)
		go func() {
			uiDone <- followUpdates(func() error {
				_, err := tea.NewProgram(model).Run()
				return err
			}, updates, os.Stdout)
		}()
	} else {
		go func() {
			tui.Plain(os.Stdout, updates)
			uiDone <- nil
		}()
	}

	summary, runErr := disp.RunBatch(ctx, wf, params, updates)
	close(updates)
	if err := <-uiDone; err != nil {
		fmt.Fprintf(os.Stderr, "progress view: %v\n", err)
	}
	if runErr != nil {
		return runErr
	}

	paths := map[string]string{}
	if !noDownload {
		var failed int
		paths, failed = batch.DownloadAll(ctx, client, summary.Items, downloadDir, cfg.Batch.Concurrency, os.Stdout)
		if failed > 0 {
			fmt.Fprintf(os.Stderr, "%d download(s) failed\n", failed)
		}
	}

	m := batch.NewManifest(runID, client.BaseURL(), fields, summary)
	for id, p := range paths {
		if mi := m.Item(id); mi != nil {
			mi.LocalPath = p
		}
	}

	// Bookkeeping still runs after an interrupt.
	bg := context.WithoutCancel(ctx)

	if cfg.Archive.Bucket != "" && len(paths) > 0 {
		if err := archiveRun(bg, cfg.Archive, runID, paths, m); err != nil {
			fmt.Fprintf(os.Stderr, "archive: %v\n", err)
		}
	}

	if manifestPath == "" {
		manifestPath = filepath.Join(downloadDir, runID+".yaml")
	}
	if err := batch.WriteManifest(manifestPath, m); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Manifest: %s\n", manifestPath)

	if cfg.History.Dir != "" {
		if err := recordHistory(bg, cfg.History, m); err != nil {
			fmt.Fprintf(os.Stderr, "history: %v\n", err)
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			fmt.Fprintf(os.Stderr, "metrics: %v\n", err)
		}
	}

	if useTUI {
		fmt.Println(tui.RenderSummary(tui.SummaryRows(runID, summary)))
	} else {
		batch.PrintSummary(os.Stdout, summary)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("run interrupted: %d of %d item(s) settled", summary.Done+summary.Failed, summary.Total())
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d item(s) failed", summary.Failed)
	}
	return nil
}

// followUpdates runs the progress view. If the view fails or exits before
// updates is closed, the remaining updates are printed as plain lines so
// the dispatcher is never left without a reader.
func followUpdates(view func() error, updates <-chan batch.Update, w io.Writer) error {
	err := view()
	tui.Plain(w, updates)
	return err
}

// collect inspects paths and adds them to a registry for wf. Unreadable
// files and files the workflow does not accept are reported on w.
func collect(wf batch.Workflow, paths []string, w io.Writer) (*registry.Registry, error) {
	files := make([]types.SourceFile, 0, len(paths))
	for _, p := range paths {
		f, err := filetype.Inspect(p)
		if err != nil {
			fmt.Fprintf(w, "skipping %s: %v\n", p, err)
			continue
		}
		files = append(files, f)
	}

	reg := wf.NewRegistry()
	added, err := reg.AddFiles(files...)
	if err != nil {
		return nil, err
	}
	accepted := wf.Accept.Filter(files)
	if rejected := len(files) - len(accepted); rejected > 0 {
		fmt.Fprintf(w, "skipped %d file(s): %s\n", rejected, wf.RejectMessage)
	}
	if ignored := len(accepted) - len(added); ignored > 0 && reg.Mode() == registry.ModeReplace {
		fmt.Fprintf(w, "%s takes one file; using %s and ignoring %d other(s)\n", wf.Name, added[0].DisplayName(), ignored)
	}
	return reg, nil
}

func archiveRun(ctx context.Context, cfg types.ArchiveConfig, runID string, paths map[string]string, m *batch.Manifest) error {
	a, err := archive.New(ctx, cfg)
	if err != nil {
		return err
	}
	uris, failed := a.UploadAll(ctx, runID, paths, os.Stdout)
	for id, uri := range uris {
		if mi := m.Item(id); mi != nil {
			mi.ArchiveKey = uri
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d upload(s) failed", failed)
	}
	return nil
}

func recordHistory(ctx context.Context, cfg types.HistoryConfig, m *batch.Manifest) error {
	store, err := history.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, history.FromManifest(m))
}
