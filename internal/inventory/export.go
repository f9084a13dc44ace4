package inventory

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ExportCSV writes the aggregated products to a timestamped CSV in dir.
// The file is named "<label>_software_<YYYYMMDD-HHMMSS>.csv" and the
// full path is returned.
func ExportCSV(dir, label string, products []Product) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	name := fmt.Sprintf("%s_software_%s.csv", sanitizeLabel(label), time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}

	writer := csv.NewWriter(file)
	records := [][]string{{"Vendor", "Family", "Software Name", "Version", "Asset Count", "Asset Details"}}
	for _, p := range products {
		records = append(records, []string{
			p.Vendor, p.Family, p.Name, p.Version,
			strconv.Itoa(p.AssetCount),
			strings.Join(p.IPs, ", "),
		})
	}

	err = writer.WriteAll(records)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write export file %s: %w", path, err)
	}
	return path, nil
}

// sanitizeLabel makes a group or site name safe as a file name component.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "inventory"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, label)
}
