package insightvm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// reportPageSize is the page size used when walking the reports collection.
const reportPageSize = 100

// formatExtensions maps API report formats to file extensions.
var formatExtensions = map[string]string{
	"csv-export":    "csv",
	"xml-export-v2": "xml",
}

// FormatExtension returns the file extension for an API report format.
// Unmapped formats are used as-is (e.g. "pdf").
func FormatExtension(format string) string {
	if ext, ok := formatExtensions[format]; ok {
		return ext
	}
	return format
}

var reportNameSuffix = regexp.MustCompile(`\s*-\s*`)

// SanitizeReportName strips everything after the first " - " separator.
// Report names on the console carry operator annotations after the dash
// that don't belong in file names.
func SanitizeReportName(name string) string {
	return strings.TrimSpace(reportNameSuffix.Split(name, 2)[0])
}

// ListReports returns report definitions, newest-id first as the console
// returns them. limit <= 0 fetches all pages.
func (c *Client) ListReports(ctx context.Context, limit int) ([]Report, error) {
	var reports []Report
	page := 0

	for {
		var resp struct {
			Resources []Report `json:"resources"`
			Page      Page     `json:"page"`
		}
		if err := c.getJSON(ctx, "/reports", pageQuery(page, reportPageSize), &resp); err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", err)
		}
		if len(resp.Resources) == 0 {
			break
		}

		reports = append(reports, resp.Resources...)
		if limit > 0 && len(reports) >= limit {
			reports = reports[:limit]
			break
		}
		page++
		if resp.Page.TotalPages > 0 && page >= resp.Page.TotalPages {
			break
		}
	}

	c.log.Debug("Fetched reports", zap.Int("count", len(reports)))
	return reports, nil
}

// GetReport returns the report definition metadata for one report ID.
func (c *Client) GetReport(ctx context.Context, reportID int) (*Report, error) {
	var report Report
	if err := c.getJSON(ctx, fmt.Sprintf("/reports/%d", reportID), nil, &report); err != nil {
		return nil, fmt.Errorf("failed to get report %d: %w", reportID, err)
	}
	return &report, nil
}

// LatestInstance returns the most recently generated instance of a report.
func (c *Client) LatestInstance(ctx context.Context, reportID int) (*ReportInstance, error) {
	var resp struct {
		Resources []ReportInstance `json:"resources"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/reports/%d/history", reportID), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get history for report %d: %w", reportID, err)
	}
	if len(resp.Resources) == 0 {
		return nil, fmt.Errorf("no generated instances found for report %d", reportID)
	}

	history := resp.Resources
	sort.Slice(history, func(i, j int) bool {
		return history[i].Generated > history[j].Generated
	})
	return &history[0], nil
}

// GenerateReport triggers generation of a report. The console generates
// asynchronously; callers need to wait before downloading.
func (c *Client) GenerateReport(ctx context.Context, reportID int) error {
	if err := c.postJSON(ctx, fmt.Sprintf("/reports/%d/generate", reportID), nil, nil); err != nil {
		return fmt.Errorf("failed to trigger generation for report %d: %w", reportID, err)
	}
	c.log.Info("Report generation triggered", zap.Int("report_id", reportID))
	return nil
}

// CreateReport creates a new report definition and returns its ID.
func (c *Client) CreateReport(ctx context.Context, def ReportDefinition) (int, error) {
	var resp struct {
		ID int `json:"id"`
	}
	if err := c.postJSON(ctx, "/reports", def, &resp); err != nil {
		return 0, fmt.Errorf("failed to create report %q: %w", def.Name, err)
	}
	if resp.ID == 0 {
		return 0, fmt.Errorf("no report ID in create response for %q", def.Name)
	}
	c.log.Info("Report created", zap.String("name", def.Name), zap.Int("report_id", resp.ID))
	return resp.ID, nil
}

// DownloadReport streams a generated report instance into destDir. The file
// name is derived from the sanitized report name and its format extension.
// Returns the path of the written file.
func (c *Client) DownloadReport(ctx context.Context, reportID, instanceID int, destDir string) (string, error) {
	report, err := c.GetReport(ctx, reportID)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("/reports/%d/history/%d/output", reportID, instanceID)
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return "", fmt.Errorf("failed to download report %d: %w", reportID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	filename := filepath.Join(destDir,
		SanitizeReportName(report.Name)+"."+FormatExtension(report.Format))
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filename)
		return "", fmt.Errorf("failed to write report %d to %s: %w", reportID, filename, err)
	}
	if written == 0 {
		_ = os.Remove(filename)
		return "", fmt.Errorf("report %d instance %d returned an empty payload", reportID, instanceID)
	}

	c.log.Info("Report downloaded",
		zap.Int("report_id", reportID),
		zap.String("file", filename),
		zap.Int64("bytes", written),
	)
	return filename, nil
}

// DownloadLatest resolves the latest instance of a report and downloads it.
func (c *Client) DownloadLatest(ctx context.Context, reportID int, destDir string) (string, error) {
	instance, err := c.LatestInstance(ctx, reportID)
	if err != nil {
		return "", err
	}
	return c.DownloadReport(ctx, reportID, instance.ID, destDir)
}
