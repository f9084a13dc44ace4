// Package workflow drives the scheduled generate/download/process/deliver
// cycle over the report schedule.
package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kidoz/insightvm-workflow-go/internal/config"
	"github.com/kidoz/insightvm-workflow-go/internal/insightvm"
	"github.com/kidoz/insightvm-workflow-go/internal/notify"
	"github.com/kidoz/insightvm-workflow-go/internal/report"
	"github.com/kidoz/insightvm-workflow-go/internal/schedule"
)

// ReportAPI is the slice of the console client the workflow needs.
type ReportAPI interface {
	GetReport(ctx context.Context, reportID int) (*insightvm.Report, error)
	GenerateReport(ctx context.Context, reportID int) error
	DownloadLatest(ctx context.Context, reportID int, destDir string) (string, error)
}

// Processor builds summary artifacts from a downloaded CSV/XML pair.
type Processor interface {
	Build(csvPath, xmlPath string) (*report.Artifacts, error)
}

// Sender delivers outgoing mail.
type Sender interface {
	Send(ctx context.Context, msg *notify.Message) error
}

// Workflow runs one schedule entry per invocation and advances the
// persistent position only when the entry completed end to end.
type Workflow struct {
	cfg     *config.Config
	api     ReportAPI
	proc    Processor
	mailer  Sender
	counter *schedule.Counter
	log     *zap.Logger

	// separate activity logs for generation and download; default to log
	genLog *zap.Logger
	dlLog  *zap.Logger

	// wait is replaced in tests to avoid real sleeping
	wait func(ctx context.Context, d time.Duration) error
}

// New creates a workflow from the application dependencies.
func New(cfg *config.Config, client *insightvm.Client, proc *report.Processor, mailer *notify.Mailer, log *zap.Logger) *Workflow {
	return &Workflow{
		cfg:     cfg,
		api:     client,
		proc:    proc,
		mailer:  mailer,
		counter: schedule.NewCounter(cfg.Workflow.CounterPath),
		log:     log,
		genLog:  log,
		dlLog:   log,
		wait:    sleep,
	}
}

// WithActivityLogs routes generation and download events to their own
// loggers. The original deployment keeps those in separate log files.
func (w *Workflow) WithActivityLogs(generate, download *zap.Logger) *Workflow {
	if generate != nil {
		w.genLog = generate
	}
	if download != nil {
		w.dlLog = download
	}
	return w
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Result describes one finished run.
type Result struct {
	Entry     schedule.FlatEntry
	Position  int
	Total     int
	Files     []string
	Delivered []string
}

// RunAuto executes the schedule entry the counter points at. The counter is
// advanced only after download, processing, and delivery all succeeded; a
// failed run leaves it untouched so the same entry is retried next time.
func (w *Workflow) RunAuto(ctx context.Context) (*Result, error) {
	sched, err := schedule.Load(w.cfg.Workflow.SchedulePath)
	if err != nil {
		return nil, err
	}

	flat := sched.Flatten()
	current, err := w.counter.Read(len(flat))
	if err != nil {
		return nil, err
	}
	entry := flat[current-1]

	w.log.Info("Starting scheduled run",
		zap.Int("position", current),
		zap.Int("total", len(flat)),
		zap.String("group", entry.Group),
		zap.Ints("pair", entry.Pair),
	)

	result, err := w.runEntry(ctx, entry)
	if err != nil {
		w.notifyFailure(ctx, entry, err)
		return nil, err
	}

	if err := w.counter.Write(schedule.Next(current, len(flat))); err != nil {
		return nil, fmt.Errorf("run succeeded but advancing the schedule failed: %w", err)
	}

	result.Position = current
	result.Total = len(flat)
	return result, nil
}

// RunCheck executes an ad-hoc entry outside the schedule. The counter is
// never touched.
func (w *Workflow) RunCheck(ctx context.Context, reportA, reportB int, receiver string) (*Result, error) {
	entry := schedule.FlatEntry{
		Group: "ad-hoc",
		Entry: schedule.Entry{
			Pair:      []int{reportA, reportB},
			Receivers: []string{receiver},
		},
	}
	return w.runEntry(ctx, entry)
}

// runEntry performs the full cycle for one pair: trigger both reports, wait
// for generation, download both, build summaries, deliver by mail.
func (w *Workflow) runEntry(ctx context.Context, entry schedule.FlatEntry) (*Result, error) {
	for _, id := range entry.Pair {
		rpt, err := w.api.GetReport(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("report %d is not accessible: %w", id, err)
		}
		if err := w.api.GenerateReport(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to trigger report %d (%s): %w", id, rpt.Name, err)
		}
		w.genLog.Info("Report generation triggered", zap.Int("report", id), zap.String("name", rpt.Name))
	}

	waitTime := time.Duration(w.cfg.Workflow.WaitTime) * time.Second
	w.log.Info("Waiting for generation", zap.Duration("wait", waitTime))
	if err := w.wait(ctx, waitTime); err != nil {
		return nil, err
	}

	var csvPath, xmlPath string
	var files []string
	for _, id := range entry.Pair {
		path, err := w.api.DownloadLatest(ctx, id, w.cfg.Workflow.DownloadPath)
		if err != nil {
			return nil, fmt.Errorf("failed to download report %d: %w", id, err)
		}
		files = append(files, path)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			csvPath = path
		case ".xml":
			xmlPath = path
		}
		w.dlLog.Info("Report downloaded", zap.Int("report", id), zap.String("file", path))
	}
	if csvPath == "" || xmlPath == "" {
		return nil, fmt.Errorf("pair %v did not yield one CSV and one XML export", entry.Pair)
	}

	artifacts, err := w.proc.Build(csvPath, xmlPath)
	if err != nil {
		return nil, err
	}

	attachments := []string{artifacts.SolutionPath, artifacts.VulnPath}
	msg, err := notify.ReportMessage(artifacts.BaseName, entry.Receivers, entry.CC, attachments)
	if err != nil {
		return nil, err
	}
	if err := w.mailer.Send(ctx, msg); err != nil {
		return nil, err
	}

	return &Result{
		Entry:     entry,
		Files:     append(files, attachments...),
		Delivered: entry.Receivers,
	}, nil
}

// notifyFailure mails the workflow owner about a failed run. Delivery of the
// failure notice is best effort; the original error is what gets returned.
func (w *Workflow) notifyFailure(ctx context.Context, entry schedule.FlatEntry, cause error) {
	owner := w.cfg.Workflow.Owner
	if owner == "" {
		return
	}
	name := fmt.Sprintf("%s %v", entry.Group, entry.Pair)
	msg, err := notify.FailureMessage(owner, name, cause)
	if err != nil {
		w.log.Error("Failed to render failure notice", zap.Error(err))
		return
	}
	if err := w.mailer.Send(ctx, msg); err != nil {
		w.log.Error("Failed to deliver failure notice", zap.Error(err))
	}
}

// Status describes the schedule position without running anything.
type Status struct {
	Position int
	Total    int
	Current  schedule.FlatEntry
}

// Status reads the schedule and counter and reports which entry the next
// auto run will execute.
func (w *Workflow) Status() (*Status, *schedule.Schedule, error) {
	sched, err := schedule.Load(w.cfg.Workflow.SchedulePath)
	if err != nil {
		return nil, nil, err
	}
	flat := sched.Flatten()
	current, err := w.counter.Read(len(flat))
	if err != nil {
		return nil, nil, err
	}
	return &Status{
		Position: current,
		Total:    len(flat),
		Current:  flat[current-1],
	}, sched, nil
}
