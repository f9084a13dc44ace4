// Package report turns the raw CSV/XML exports downloaded from the console
// into the summary artifacts that get mailed out.
package report

import (
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// MalformedReportError indicates a downloaded report file could not be
// parsed. This is corrupted input from the source system, not a transient
// failure — it is surfaced to the operator instead of being retried.
type MalformedReportError struct {
	Path string
	Err  error
}

func (e *MalformedReportError) Error() string {
	return fmt.Sprintf("malformed report file %s: %v", e.Path, e.Err)
}

func (e *MalformedReportError) Unwrap() error {
	return e.Err
}

// Artifacts are the two summary files produced from one CSV/XML report pair.
type Artifacts struct {
	BaseName     string
	SolutionPath string
	VulnPath     string
}

// Processor builds solution and vulnerability summaries from raw exports.
type Processor struct {
	log *zap.Logger
}

// NewProcessor creates a report processor.
func NewProcessor(log *zap.Logger) *Processor {
	return &Processor{log: log}
}

// vulnRow is one row of the vulnerability-check CSV export.
type vulnRow struct {
	IP       string
	VulnID   string
	Severity string
	Title    string
}

// Build parses the CSV and XML exports and writes the two summary CSVs next
// to the CSV input. Returns MalformedReportError when either input cannot
// be parsed.
func (p *Processor) Build(csvPath, xmlPath string) (*Artifacts, error) {
	rows, err := readVulnCSV(csvPath)
	if err != nil {
		return nil, err
	}

	doc, err := readVulnXML(xmlPath)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
	dir := filepath.Dir(csvPath)
	artifacts := &Artifacts{
		BaseName:     base,
		SolutionPath: filepath.Join(dir, base+"_Solution.csv"),
		VulnPath:     filepath.Join(dir, base+"_Vuln.csv"),
	}

	if err := p.writeSolutionSummary(artifacts.SolutionPath, rows, doc); err != nil {
		return nil, err
	}
	if err := p.writeVulnSummary(artifacts.VulnPath, rows, doc); err != nil {
		return nil, err
	}

	p.log.Info("Summary artifacts built",
		zap.String("solution", artifacts.SolutionPath),
		zap.String("vuln", artifacts.VulnPath),
		zap.Int("rows", len(rows)),
	)
	return artifacts, nil
}

// readVulnCSV parses the vulnerability-check export.
func readVulnCSV(path string) ([]vulnRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report CSV: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &MalformedReportError{Path: path, Err: err}
	}
	if len(records) < 1 {
		return nil, &MalformedReportError{Path: path, Err: fmt.Errorf("empty file")}
	}

	col := make(map[string]int)
	for i, name := range records[0] {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Asset IP Address", "Vulnerability ID"} {
		if _, ok := col[required]; !ok {
			return nil, &MalformedReportError{Path: path, Err: fmt.Errorf("missing column %q", required)}
		}
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := make([]vulnRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := vulnRow{
			IP:       field(record, "Asset IP Address"),
			VulnID:   field(record, "Vulnerability ID"),
			Severity: field(record, "Vulnerability Severity Level"),
			Title:    field(record, "Vulnerability Title"),
		}
		if row.IP == "" || row.VulnID == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readVulnXML parses the XML v2 export.
func readVulnXML(path string) (*xmlReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report XML: %w", err)
	}

	var doc xmlReport
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &MalformedReportError{Path: path, Err: err}
	}
	if len(doc.Nodes) == 0 && len(doc.Vulns) == 0 {
		return nil, &MalformedReportError{Path: path, Err: fmt.Errorf("no nodes or vulnerability definitions")}
	}
	return &doc, nil
}

// writeSolutionSummary writes per-asset remediation rows: each asset IP with
// the de-duplicated set of solutions for its vulnerabilities.
func (p *Processor) writeSolutionSummary(path string, rows []vulnRow, doc *xmlReport) error {
	nodes := doc.nodeIndex()
	solutions := doc.solutionIndex()

	type solutionRow struct {
		asset   string
		service string
		details string
	}

	seen := make(map[string]map[string]bool) // ip → solution text
	var out []solutionRow

	for _, row := range rows {
		text := solutions[row.VulnID]
		if text == "" {
			continue
		}
		if seen[row.IP] == nil {
			seen[row.IP] = make(map[string]bool)
		}
		if seen[row.IP][text] {
			continue
		}
		seen[row.IP][text] = true

		service, details := splitSolution(row.VulnID, text)
		out = append(out, solutionRow{
			asset:   assetLabel(row.IP, nodes[row.IP]),
			service: service,
			details: details,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].asset != out[j].asset {
			return out[i].asset < out[j].asset
		}
		return out[i].service < out[j].service
	})

	records := [][]string{{"Asset IP Address", "Services", "Solution Details", "Owner"}}
	for _, r := range out {
		records = append(records, []string{r.asset, r.service, r.details, ""})
	}
	return writeCSV(path, records)
}

// writeVulnSummary writes the full vulnerability detail rows joined with
// descriptions and solutions from the XML definitions.
func (p *Processor) writeVulnSummary(path string, rows []vulnRow, doc *xmlReport) error {
	nodes := doc.nodeIndex()
	defs := make(map[string]xmlVuln, len(doc.Vulns))
	for _, v := range doc.Vulns {
		defs[v.ID] = v
	}

	type detailRow struct {
		os, ip, id, severity, title, description, solution string
	}
	var out []detailRow

	for _, row := range rows {
		def, ok := defs[row.VulnID]
		if !ok {
			continue
		}
		osFamily := "Unknown"
		if node, ok := nodes[row.IP]; ok && node.osFamily() != "" {
			osFamily = node.osFamily()
		}
		out = append(out, detailRow{
			os:          osFamily,
			ip:          row.IP,
			id:          row.VulnID,
			severity:    row.Severity,
			title:       row.Title,
			description: def.Description.text(),
			solution:    def.Solution.text(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].os != out[j].os {
			return out[i].os < out[j].os
		}
		return out[i].ip < out[j].ip
	})

	records := [][]string{{
		"Operating System", "Asset IP Address", "Vulnerability ID",
		"Vulnerability Severity Level", "Vulnerability Title", "Description", "Solution",
	}}
	for _, r := range out {
		records = append(records, []string{r.os, r.ip, r.id, r.severity, r.title, r.description, r.solution})
	}
	return writeCSV(path, records)
}

// splitSolution separates the service identifier from the remediation text.
// Solutions come through as "service => fix instruction"; rows without the
// separator fall back to the vulnerability ID as the service.
func splitSolution(vulnID, text string) (service, details string) {
	if idx := strings.Index(text, "=>"); idx >= 0 {
		return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+2:])
	}
	return vulnID, text
}

// assetLabel builds the display label for an asset: IP plus OS product,
// hostname, and formatted risk score when the XML export knows them.
func assetLabel(ip string, node *xmlNode) string {
	if node == nil {
		return ip
	}
	label := ip
	if product := node.osProduct(); product != "" {
		label += " - " + product
	}
	if name := node.hostname(); name != "" {
		label += " - " + name
	}
	if node.RiskScore > 0 {
		label += fmt.Sprintf(" (Risk: %s)", groupThousands(int64(node.RiskScore)))
	}
	return label
}

// groupThousands formats n with comma separators (666634 → "666,634").
func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	return s + "," + strings.Join(parts, ",")
}

func writeCSV(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}

	writer := csv.NewWriter(file)
	err = writer.WriteAll(records)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write summary file %s: %w", path, err)
	}
	return nil
}
