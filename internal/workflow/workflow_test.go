package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kidoz/insightvm-workflow-go/internal/config"
	"github.com/kidoz/insightvm-workflow-go/internal/insightvm"
	"github.com/kidoz/insightvm-workflow-go/internal/notify"
	"github.com/kidoz/insightvm-workflow-go/internal/report"
	"github.com/kidoz/insightvm-workflow-go/internal/schedule"
)

// fakeAPI serves report metadata and writes fake downloads to disk.
// Odd report IDs download as CSV, even IDs as XML.
type fakeAPI struct {
	generateCalls []int
	failDownload  map[int]error
}

func (f *fakeAPI) GetReport(ctx context.Context, reportID int) (*insightvm.Report, error) {
	format := "csv-export"
	if reportID%2 == 0 {
		format = "xml-export-v2"
	}
	return &insightvm.Report{ID: reportID, Name: fmt.Sprintf("R%d", reportID), Format: format}, nil
}

func (f *fakeAPI) GenerateReport(ctx context.Context, reportID int) error {
	f.generateCalls = append(f.generateCalls, reportID)
	return nil
}

func (f *fakeAPI) DownloadLatest(ctx context.Context, reportID int, destDir string) (string, error) {
	if err := f.failDownload[reportID]; err != nil {
		return "", err
	}
	ext := "csv"
	if reportID%2 == 0 {
		ext = "xml"
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(destDir, fmt.Sprintf("R%d.%s", reportID, ext))
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeProcessor struct {
	err error
}

func (p *fakeProcessor) Build(csvPath, xmlPath string) (*report.Artifacts, error) {
	if p.err != nil {
		return nil, p.err
	}
	dir := filepath.Dir(csvPath)
	return &report.Artifacts{
		BaseName:     "R",
		SolutionPath: filepath.Join(dir, "R_Solution.csv"),
		VulnPath:     filepath.Join(dir, "R_Vuln.csv"),
	}, nil
}

type fakeSender struct {
	sent []*notify.Message
	err  error
}

func (s *fakeSender) Send(ctx context.Context, msg *notify.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newTestWorkflow(t *testing.T, scheduleYAML string) (*Workflow, *fakeAPI, *fakeSender, string) {
	t.Helper()
	dir := t.TempDir()

	schedulePath := filepath.Join(dir, "workflow_schedule.yaml")
	if err := os.WriteFile(schedulePath, []byte(scheduleYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Workflow.SchedulePath = schedulePath
	cfg.Workflow.CounterPath = filepath.Join(dir, "schedule_process.txt")
	cfg.Workflow.DownloadPath = filepath.Join(dir, "reports")
	cfg.Workflow.WaitTime = 0
	cfg.Workflow.Owner = "secops"

	api := &fakeAPI{failDownload: map[int]error{}}
	sender := &fakeSender{}
	nop := zap.NewNop()
	w := &Workflow{
		cfg:     cfg,
		api:     api,
		proc:    &fakeProcessor{},
		mailer:  sender,
		counter: schedule.NewCounter(cfg.Workflow.CounterPath),
		log:     nop,
		genLog:  nop,
		dlLog:   nop,
		wait:    func(ctx context.Context, d time.Duration) error { return nil },
	}
	return w, api, sender, cfg.Workflow.CounterPath
}

const twoEntrySchedule = `
groups:
  - name: infra
    entries:
      - pair: [101, 102]
        receivers: [alice]
      - pair: [201, 202]
        receivers: [bob]
        cc: [secops]
`

func TestRunAuto_AdvancesCounter(t *testing.T) {
	w, api, sender, counterPath := newTestWorkflow(t, twoEntrySchedule)

	result, err := w.RunAuto(context.Background())
	if err != nil {
		t.Fatalf("RunAuto() error: %v", err)
	}

	if result.Position != 1 || result.Total != 2 {
		t.Errorf("position = %d/%d, want 1/2", result.Position, result.Total)
	}
	if len(api.generateCalls) != 2 || api.generateCalls[0] != 101 || api.generateCalls[1] != 102 {
		t.Errorf("generateCalls = %v", api.generateCalls)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sender.sent))
	}
	if sender.sent[0].To[0] != "alice" {
		t.Errorf("mail went to %v", sender.sent[0].To)
	}

	data, err := os.ReadFile(counterPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "2" {
		t.Errorf("counter = %q, want 2", data)
	}
}

func TestRunAuto_WrapsToFirstEntry(t *testing.T) {
	w, _, sender, counterPath := newTestWorkflow(t, twoEntrySchedule)
	if err := os.WriteFile(counterPath, []byte("2"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := w.RunAuto(context.Background())
	if err != nil {
		t.Fatalf("RunAuto() error: %v", err)
	}
	if result.Entry.Pair[0] != 201 {
		t.Errorf("ran pair %v, want [201 202]", result.Entry.Pair)
	}
	if len(sender.sent[0].CC) != 1 || sender.sent[0].CC[0] != "secops" {
		t.Errorf("CC = %v", sender.sent[0].CC)
	}

	data, _ := os.ReadFile(counterPath)
	if string(data) != "1" {
		t.Errorf("counter = %q, want 1 (wrapped)", data)
	}
}

func TestRunAuto_FailureDoesNotAdvance(t *testing.T) {
	w, api, sender, counterPath := newTestWorkflow(t, twoEntrySchedule)
	if err := os.WriteFile(counterPath, []byte("1"), 0o644); err != nil {
		t.Fatal(err)
	}
	api.failDownload[102] = errors.New("console timed out")

	_, err := w.RunAuto(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	// counter file is untouched, byte for byte
	data, readErr := os.ReadFile(counterPath)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if string(data) != "1" {
		t.Errorf("counter = %q, want unchanged 1", data)
	}

	// a failure notice went to the workflow owner
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d mails, want 1 failure notice", len(sender.sent))
	}
	notice := sender.sent[0]
	if notice.To[0] != "secops" {
		t.Errorf("failure notice went to %v, want secops", notice.To)
	}
}

func TestRunAuto_RetriesSameEntryAfterFailure(t *testing.T) {
	w, api, _, _ := newTestWorkflow(t, twoEntrySchedule)
	api.failDownload[102] = errors.New("boom")

	if _, err := w.RunAuto(context.Background()); err == nil {
		t.Fatal("expected first run to fail")
	}

	delete(api.failDownload, 102)
	result, err := w.RunAuto(context.Background())
	if err != nil {
		t.Fatalf("second RunAuto() error: %v", err)
	}
	if result.Entry.Pair[0] != 101 {
		t.Errorf("retried pair %v, want the failed entry [101 102]", result.Entry.Pair)
	}
}

func TestRunCheck_DoesNotTouchCounter(t *testing.T) {
	w, _, sender, counterPath := newTestWorkflow(t, twoEntrySchedule)

	result, err := w.RunCheck(context.Background(), 101, 102, "carol")
	if err != nil {
		t.Fatalf("RunCheck() error: %v", err)
	}
	if len(result.Delivered) != 1 || result.Delivered[0] != "carol" {
		t.Errorf("Delivered = %v", result.Delivered)
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent %d mails, want 1", len(sender.sent))
	}

	if _, err := os.Stat(counterPath); !os.IsNotExist(err) {
		t.Error("counter file should not exist after a check run")
	}
}

func TestRunEntry_RejectsPairWithoutBothFormats(t *testing.T) {
	w, _, _, _ := newTestWorkflow(t, twoEntrySchedule)

	// both IDs odd → two CSV downloads, no XML
	_, err := w.RunCheck(context.Background(), 101, 103, "carol")
	if err == nil {
		t.Fatal("expected error for a pair without an XML export")
	}
}

func TestStatus(t *testing.T) {
	w, _, _, counterPath := newTestWorkflow(t, twoEntrySchedule)
	if err := os.WriteFile(counterPath, []byte("2"), 0o644); err != nil {
		t.Fatal(err)
	}

	status, sched, err := w.Status()
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if status.Position != 2 || status.Total != 2 {
		t.Errorf("position = %d/%d, want 2/2", status.Position, status.Total)
	}
	if status.Current.Pair[0] != 201 {
		t.Errorf("current pair = %v, want [201 202]", status.Current.Pair)
	}
	if sched.Len() != 2 {
		t.Errorf("schedule Len() = %d, want 2", sched.Len())
	}
}

func TestSleep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("sleep() = %v, want context.Canceled", err)
	}
}
