package insightvm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ListAssetGroups returns all asset groups on the console.
func (c *Client) ListAssetGroups(ctx context.Context) ([]AssetGroup, error) {
	var groups []AssetGroup
	page := 0

	for {
		var resp struct {
			Resources []AssetGroup `json:"resources"`
			Page      Page         `json:"page"`
		}
		if err := c.getJSON(ctx, "/asset_groups", pageQuery(page, c.cfg.Inventory.PageSize), &resp); err != nil {
			return nil, fmt.Errorf("failed to list asset groups: %w", err)
		}
		groups = append(groups, resp.Resources...)

		page++
		if resp.Page.TotalPages > 0 && page >= resp.Page.TotalPages {
			break
		}
		if len(resp.Resources) < c.cfg.Inventory.PageSize {
			break
		}
	}

	c.log.Debug("Fetched asset groups", zap.Int("count", len(groups)))
	return groups, nil
}

// ListAssetGroupAssets returns all asset references in an asset group.
func (c *Client) ListAssetGroupAssets(ctx context.Context, groupID int) ([]AssetRef, error) {
	return c.listAssetRefs(ctx, fmt.Sprintf("/asset_groups/%d/assets", groupID))
}

// ListSiteAssetsPage returns one page of asset references for a site, along
// with the pagination envelope. Site exports process page by page to bound
// memory on large sites.
func (c *Client) ListSiteAssetsPage(ctx context.Context, siteID, page int) ([]AssetRef, Page, error) {
	var resp struct {
		Resources []AssetRef `json:"resources"`
		Page      Page       `json:"page"`
	}
	path := fmt.Sprintf("/sites/%d/assets", siteID)
	if err := c.getJSON(ctx, path, pageQuery(page, c.cfg.Inventory.PageSize), &resp); err != nil {
		return nil, Page{}, fmt.Errorf("failed to list assets for site %d: %w", siteID, err)
	}
	return resp.Resources, resp.Page, nil
}

// listAssetRefs walks every page of an asset collection endpoint.
func (c *Client) listAssetRefs(ctx context.Context, path string) ([]AssetRef, error) {
	var refs []AssetRef
	page := 0

	for {
		var resp struct {
			Resources []AssetRef `json:"resources"`
			Page      Page       `json:"page"`
		}
		if err := c.getJSON(ctx, path, pageQuery(page, c.cfg.Inventory.PageSize), &resp); err != nil {
			return nil, fmt.Errorf("failed to list assets at %s: %w", path, err)
		}
		refs = append(refs, resp.Resources...)

		page++
		if resp.Page.TotalPages > 0 && page >= resp.Page.TotalPages {
			break
		}
		if len(resp.Resources) < c.cfg.Inventory.PageSize {
			break
		}
	}

	return refs, nil
}

// GetAsset returns the full asset object, including its IP address.
func (c *Client) GetAsset(ctx context.Context, assetID int) (*Asset, error) {
	var asset Asset
	if err := c.getJSON(ctx, fmt.Sprintf("/assets/%d", assetID), nil, &asset); err != nil {
		return nil, fmt.Errorf("failed to get asset %d: %w", assetID, err)
	}
	return &asset, nil
}

// ListAssetSoftware returns the installed software inventory for an asset.
// The per-asset fetch caps pages (inventory.software_max_pages) so one slow
// asset with a huge inventory cannot stall a whole export.
func (c *Client) ListAssetSoftware(ctx context.Context, assetID int) ([]Software, error) {
	var software []Software
	page := 0
	size := c.cfg.Inventory.SoftwarePageSize
	maxPages := c.cfg.Inventory.SoftwareMaxPages

	for {
		var resp struct {
			Resources []Software `json:"resources"`
			Page      Page       `json:"page"`
		}
		path := fmt.Sprintf("/assets/%d/software", assetID)
		if err := c.getJSON(ctx, path, pageQuery(page, size), &resp); err != nil {
			return nil, fmt.Errorf("failed to list software for asset %d: %w", assetID, err)
		}
		software = append(software, resp.Resources...)

		page++
		if resp.Page.TotalPages > 0 && page >= resp.Page.TotalPages {
			break
		}
		if len(resp.Resources) < size {
			break
		}
		if maxPages > 0 && page >= maxPages {
			c.log.Debug("Software page cap reached",
				zap.Int("asset_id", assetID), zap.Int("pages", page))
			break
		}
	}

	return software, nil
}
