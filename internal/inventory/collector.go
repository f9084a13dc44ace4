// Package inventory aggregates installed software across assets into
// per-product summaries.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kidoz/insightvm-workflow-go/internal/config"
	"github.com/kidoz/insightvm-workflow-go/internal/insightvm"
)

// API is the slice of the console client the collector needs.
type API interface {
	ListAssetGroupAssets(ctx context.Context, groupID int) ([]insightvm.AssetRef, error)
	ListSiteAssetsPage(ctx context.Context, siteID, page int) ([]insightvm.AssetRef, insightvm.Page, error)
	GetAsset(ctx context.Context, assetID int) (*insightvm.Asset, error)
	ListAssetSoftware(ctx context.Context, assetID int) ([]insightvm.Software, error)
}

// Product is one aggregated software row: a distinct
// vendor/family/name/version combination with the assets carrying it.
type Product struct {
	Vendor  string
	Family  string
	Name    string
	Version string
	// IPs is sorted and de-duplicated; AssetCount counts distinct assets.
	IPs        []string
	AssetCount int
}

// Collector walks assets and builds the aggregated software inventory.
type Collector struct {
	api API
	cfg config.InventoryConfig
	log *zap.Logger
}

// NewCollector creates a collector.
func NewCollector(client *insightvm.Client, cfg *config.Config, log *zap.Logger) *Collector {
	return &Collector{api: client, cfg: cfg.Inventory, log: log}
}

// newCollectorWith is the injection point for tests.
func newCollectorWith(api API, cfg config.InventoryConfig, log *zap.Logger) *Collector {
	return &Collector{api: api, cfg: cfg, log: log}
}

// DefaultSiteID returns the site used when a site-wide export does not name
// one explicitly.
func (c *Collector) DefaultSiteID() int {
	return c.cfg.SiteID
}

// CollectGroup aggregates software over every asset of one asset group.
func (c *Collector) CollectGroup(ctx context.Context, groupID int) ([]Product, error) {
	refs, err := c.api.ListAssetGroupAssets(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets of group %d: %w", groupID, err)
	}
	return c.collect(ctx, refs)
}

// CollectSite aggregates software over every asset of a site. Assets are
// fetched page by page so a large site never has to be resident at once.
func (c *Collector) CollectSite(ctx context.Context, siteID int) ([]Product, error) {
	acc := newAccumulator()
	for page := 0; ; page++ {
		refs, meta, err := c.api.ListSiteAssetsPage(ctx, siteID, page)
		if err != nil {
			return nil, fmt.Errorf("failed to list assets of site %d: %w", siteID, err)
		}
		if err := c.accumulate(ctx, acc, refs); err != nil {
			return nil, err
		}
		c.log.Info("Site page collected",
			zap.Int("site", siteID),
			zap.Int("page", page+1),
			zap.Int("pages", meta.TotalPages),
		)
		if page+1 >= meta.TotalPages {
			break
		}
	}
	return acc.products(), nil
}

// collect aggregates software over a fixed asset list.
func (c *Collector) collect(ctx context.Context, refs []insightvm.AssetRef) ([]Product, error) {
	acc := newAccumulator()
	if err := c.accumulate(ctx, acc, refs); err != nil {
		return nil, err
	}
	return acc.products(), nil
}

func (c *Collector) accumulate(ctx context.Context, acc *accumulator, refs []insightvm.AssetRef) error {
	for _, ref := range refs {
		asset, err := c.resolve(ctx, ref)
		if err != nil {
			return err
		}

		software, err := c.api.ListAssetSoftware(ctx, asset.ID)
		if err != nil {
			return fmt.Errorf("failed to list software of asset %d: %w", asset.ID, err)
		}
		acc.add(asset, software)
	}
	return nil
}

// resolve turns an asset reference into a full asset. Group listings can
// return either inline asset objects or bare IDs; bare IDs need a lookup.
func (c *Collector) resolve(ctx context.Context, ref insightvm.AssetRef) (*insightvm.Asset, error) {
	if ref.Inline != nil {
		return ref.Inline, nil
	}
	asset, err := c.api.GetAsset(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve asset %d: %w", ref.ID, err)
	}
	return asset, nil
}

// accumulator aggregates software rows keyed by the product 4-tuple.
type accumulator struct {
	rows map[string]*Product
	// assets seen per product key, for distinct counting
	seen map[string]map[int]bool
}

func newAccumulator() *accumulator {
	return &accumulator{
		rows: make(map[string]*Product),
		seen: make(map[string]map[int]bool),
	}
}

func (a *accumulator) add(asset *insightvm.Asset, software []insightvm.Software) {
	for _, sw := range software {
		vendor := sw.VendorName()
		family := sw.FamilyName()
		name := sw.ProductName()
		version := sw.VersionName()
		key := strings.Join([]string{vendor, family, name, version}, "|")

		row, ok := a.rows[key]
		if !ok {
			row = &Product{Vendor: vendor, Family: family, Name: name, Version: version}
			a.rows[key] = row
			a.seen[key] = make(map[int]bool)
		}
		if a.seen[key][asset.ID] {
			continue
		}
		a.seen[key][asset.ID] = true
		row.AssetCount++
		if asset.IP != "" && !contains(row.IPs, asset.IP) {
			row.IPs = append(row.IPs, asset.IP)
		}
	}
}

// products returns the aggregated rows sorted by vendor, name, version.
func (a *accumulator) products() []Product {
	out := make([]Product, 0, len(a.rows))
	for _, row := range a.rows {
		sort.Strings(row.IPs)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Vendor != out[j].Vendor {
			return out[i].Vendor < out[j].Vendor
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
