package api

import (
	"context"
	"strconv"
)

// ListSKUs returns one page of the public catalog.
func (c *Client) ListSKUs(ctx context.Context, token string, q PageQuery) (Page[SKU], error) {
	var out Page[SKU]
	err := c.Do(ctx, Request{Path: "/skus", Query: q.values(), Token: token, RequireAuth: true}, &out)
	return out, err
}

// GetSKU returns one catalog entry.
func (c *Client) GetSKU(ctx context.Context, token string, id int64) (SKU, error) {
	var out SKU
	err := c.Do(ctx, Request{Path: "/skus/" + strconv.FormatInt(id, 10), Token: token, RequireAuth: true}, &out)
	return out, err
}

// CategoryTree returns the full category hierarchy.
func (c *Client) CategoryTree(ctx context.Context, token string) ([]Category, error) {
	var out []Category
	err := c.Do(ctx, Request{Path: "/categories/tree", Token: token, RequireAuth: true}, &out)
	return out, err
}

// ListMyApplications returns the caller's own applications.
func (c *Client) ListMyApplications(ctx context.Context, token string, q PageQuery) (Page[Application], error) {
	var out Page[Application]
	err := c.Do(ctx, Request{Path: "/me/applications", Query: q.values(), Token: token, RequireAuth: true}, &out)
	return out, err
}

// ListMyAssets returns the assets held by the caller.
func (c *Client) ListMyAssets(ctx context.Context, token string, q PageQuery) (Page[Asset], error) {
	var out Page[Asset]
	err := c.Do(ctx, Request{Path: "/me/assets", Query: q.values(), Token: token, RequireAuth: true}, &out)
	return out, err
}
