package insightvm

import (
	"encoding/json"
	"fmt"
)

// Report represents a report definition on the console
type Report struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Format string `json:"format"`
}

// ReportInstance represents one generated instance of a report
type ReportInstance struct {
	ID        int    `json:"id"`
	Generated string `json:"generated"`
	Status    string `json:"status"`
	Size      struct {
		Bytes float64 `json:"bytes"`
	} `json:"size"`
}

// ReportDefinition is the payload for creating a new report definition
type ReportDefinition struct {
	Format   string        `json:"format"`
	Name     string        `json:"name"`
	Template string        `json:"template,omitempty"`
	Scope    ReportScope   `json:"scope"`
	Filters  ReportFilters `json:"filters,omitempty"`
}

// ReportScope limits a report to sites or individual assets
type ReportScope struct {
	Sites  []int `json:"sites,omitempty"`
	Assets []int `json:"assets,omitempty"`
}

// ReportFilters narrows report contents by severity and vulnerability status
type ReportFilters struct {
	Severity string   `json:"severity,omitempty"`
	Statuses []string `json:"statuses,omitempty"`
}

// AssetGroup represents an asset group on the console
type AssetGroup struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Assets      int    `json:"assets"`
}

// Asset represents a managed asset
type Asset struct {
	ID       int    `json:"id"`
	IP       string `json:"ip"`
	HostName string `json:"hostName"`
	OS       string `json:"os"`
}

// AssetRef is an asset reference as returned by the collection endpoints.
// The API returns either a bare integer ID or an inline asset object; both
// shapes decode into this tagged variant. Inline is non-nil when the full
// object was present.
type AssetRef struct {
	ID     int
	Inline *Asset
}

// UnmarshalJSON accepts both the bare-ID and the inline-object shapes.
func (r *AssetRef) UnmarshalJSON(data []byte) error {
	var id int
	if err := json.Unmarshal(data, &id); err == nil {
		r.ID = id
		r.Inline = nil
		return nil
	}

	var asset Asset
	if err := json.Unmarshal(data, &asset); err != nil {
		return fmt.Errorf("asset reference is neither an ID nor an object: %w", err)
	}
	r.ID = asset.ID
	r.Inline = &asset
	return nil
}

// Software represents one installed software entry on an asset.
// Field names shift between console versions, so several aliases are decoded
// and resolved by the accessor methods.
type Software struct {
	Vendor       string `json:"vendor"`
	Publisher    string `json:"publisher"`
	Manufacturer string `json:"manufacturer"`
	Family       string `json:"family"`
	Category     string `json:"category"`
	Product      string `json:"product"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	Version      string `json:"version"`
	Release      string `json:"release"`
}

const unknown = "Unknown"

// VendorName returns the first non-empty vendor alias.
func (s Software) VendorName() string {
	return firstNonEmpty(s.Vendor, s.Publisher, s.Manufacturer)
}

// FamilyName returns the first non-empty family alias.
func (s Software) FamilyName() string {
	return firstNonEmpty(s.Family, s.Category)
}

// ProductName returns the first non-empty product alias.
func (s Software) ProductName() string {
	return firstNonEmpty(s.Name, s.Product, s.Title)
}

// VersionName returns the first non-empty version alias.
func (s Software) VersionName() string {
	return firstNonEmpty(s.Version, s.Release)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return unknown
}

// Page is the pagination envelope returned by collection endpoints
type Page struct {
	Number         int `json:"number"`
	Size           int `json:"size"`
	TotalResources int `json:"totalResources"`
	TotalPages     int `json:"totalPages"`
}

// APIError represents a non-2xx response from the console API.
// 4xx responses indicate misconfiguration and are not worth retrying;
// 5xx responses may clear on a later invocation.
type APIError struct {
	Status int
	URL    string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("insightvm API error: HTTP %d from %s: %s", e.Status, e.URL, e.Body)
}

// Retryable reports whether a later re-invocation could succeed.
func (e *APIError) Retryable() bool {
	return e.Status >= 500
}
