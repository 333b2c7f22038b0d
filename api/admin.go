package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func idPath(base string, id int64, suffix string) string {
	return base + "/" + strconv.FormatInt(id, 10) + suffix
}

// authed builds an authenticated request.
func authed(method, path, token string, body any) Request {
	return Request{Method: method, Path: path, Body: body, Token: token, RequireAuth: true}
}

// Categories.

func (c *Client) ListCategories(ctx context.Context, token string) ([]Category, error) {
	var out []Category
	err := c.Do(ctx, authed(http.MethodGet, "/admin/categories", token, nil), &out)
	return out, err
}

func (c *Client) CreateCategory(ctx context.Context, token string, in CategoryInput) (Category, error) {
	var out Category
	err := c.Do(ctx, authed(http.MethodPost, "/admin/categories", token, in), &out)
	return out, err
}

func (c *Client) UpdateCategory(ctx context.Context, token string, id int64, in CategoryInput) (Category, error) {
	var out Category
	err := c.Do(ctx, authed(http.MethodPut, idPath("/admin/categories", id, ""), token, in), &out)
	return out, err
}

// DeleteCategory requires confirmed to be true.
func (c *Client) DeleteCategory(ctx context.Context, token string, id int64, confirmed bool) error {
	if err := requireConfirmation(confirmed, "delete category"); err != nil {
		return err
	}
	return c.Do(ctx, authed(http.MethodDelete, idPath("/admin/categories", id, ""), token, nil), nil)
}

// SKUs.

func (c *Client) ListAdminSKUs(ctx context.Context, token string, q PageQuery) (Page[SKU], error) {
	var out Page[SKU]
	req := authed(http.MethodGet, "/admin/skus", token, nil)
	req.Query = q.values()
	err := c.Do(ctx, req, &out)
	return out, err
}

func (c *Client) CreateSKU(ctx context.Context, token string, in SKUInput) (SKU, error) {
	var out SKU
	err := c.Do(ctx, authed(http.MethodPost, "/admin/skus", token, in), &out)
	return out, err
}

func (c *Client) UpdateSKU(ctx context.Context, token string, id int64, in SKUInput) (SKU, error) {
	var out SKU
	err := c.Do(ctx, authed(http.MethodPut, idPath("/admin/skus", id, ""), token, in), &out)
	return out, err
}

// DeleteSKU requires confirmed to be true.
func (c *Client) DeleteSKU(ctx context.Context, token string, id int64, confirmed bool) error {
	if err := requireConfirmation(confirmed, "delete sku"); err != nil {
		return err
	}
	return c.Do(ctx, authed(http.MethodDelete, idPath("/admin/skus", id, ""), token, nil), nil)
}

// Assets.

func (c *Client) ListAssets(ctx context.Context, token string, q PageQuery) (Page[Asset], error) {
	var out Page[Asset]
	req := authed(http.MethodGet, "/admin/assets", token, nil)
	req.Query = q.values()
	err := c.Do(ctx, req, &out)
	return out, err
}

func (c *Client) CreateAsset(ctx context.Context, token string, in AssetInput) (Asset, error) {
	var out Asset
	err := c.Do(ctx, authed(http.MethodPost, "/admin/assets", token, in), &out)
	return out, err
}

func (c *Client) UpdateAsset(ctx context.Context, token string, id int64, in AssetInput) (Asset, error) {
	var out Asset
	err := c.Do(ctx, authed(http.MethodPut, idPath("/admin/assets", id, ""), token, in), &out)
	return out, err
}

// DeleteAsset requires confirmed to be true.
func (c *Client) DeleteAsset(ctx context.Context, token string, id int64, confirmed bool) error {
	if err := requireConfirmation(confirmed, "delete asset"); err != nil {
		return err
	}
	return c.Do(ctx, authed(http.MethodDelete, idPath("/admin/assets", id, ""), token, nil), nil)
}

// Stock.

func (c *Client) stockChange(ctx context.Context, token string, skuID int64, kind string, change StockChange) (StockLevel, error) {
	var out StockLevel
	err := c.Do(ctx, authed(http.MethodPost, idPath("/admin/sku-stocks", skuID, "/"+kind), token, change), &out)
	return out, err
}

func (c *Client) StockInbound(ctx context.Context, token string, skuID int64, change StockChange) (StockLevel, error) {
	return c.stockChange(ctx, token, skuID, "inbound", change)
}

func (c *Client) StockOutbound(ctx context.Context, token string, skuID int64, change StockChange) (StockLevel, error) {
	return c.stockChange(ctx, token, skuID, "outbound", change)
}

// StockAdjust applies a signed correction.
func (c *Client) StockAdjust(ctx context.Context, token string, skuID int64, change StockChange) (StockLevel, error) {
	return c.stockChange(ctx, token, skuID, "adjust", change)
}

func (c *Client) StockFlows(ctx context.Context, token string, skuID int64, q PageQuery) (Page[StockFlow], error) {
	var out Page[StockFlow]
	req := authed(http.MethodGet, idPath("/admin/sku-stocks", skuID, "/flows"), token, nil)
	req.Query = q.values()
	err := c.Do(ctx, req, &out)
	return out, err
}

// ExportStockFlows downloads a SKU's stock ledger as an xlsx workbook.
func (c *Client) ExportStockFlows(ctx context.Context, token string, skuID int64) ([]byte, error) {
	req := authed(http.MethodGet, idPath("/admin/sku-stocks", skuID, "/flows/export"), token, nil)
	req.Header = http.Header{"Accept": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, application/json"}}
	body, _, err := c.DoRaw(ctx, req)
	return body, err
}

// RBAC.

func (c *Client) ListRBACRoles(ctx context.Context, token string) ([]RBACRole, error) {
	var out []RBACRole
	err := c.Do(ctx, authed(http.MethodGet, "/admin/rbac/roles", token, nil), &out)
	return out, err
}

func (c *Client) CreateRBACRole(ctx context.Context, token string, role RBACRole) (RBACRole, error) {
	var out RBACRole
	err := c.Do(ctx, authed(http.MethodPost, "/admin/rbac/roles", token, role), &out)
	return out, err
}

func (c *Client) ListRBACPermissions(ctx context.Context, token string) ([]RBACPermission, error) {
	var out []RBACPermission
	err := c.Do(ctx, authed(http.MethodGet, "/admin/rbac/permissions", token, nil), &out)
	return out, err
}

func (c *Client) ListRoleBindings(ctx context.Context, token string) ([]RoleBinding, error) {
	var out []RoleBinding
	err := c.Do(ctx, authed(http.MethodGet, "/admin/rbac/role-bindings", token, nil), &out)
	return out, err
}

// UpdateRoleBindings replaces the permission set of each listed role.
func (c *Client) UpdateRoleBindings(ctx context.Context, token string, bindings []RoleBinding) ([]RoleBinding, error) {
	var out []RoleBinding
	err := c.Do(ctx, authed(http.MethodPut, "/admin/rbac/role-bindings", token, map[string]any{"bindings": bindings}), &out)
	return out, err
}

// SetUserRoles replaces a user's role codes.
func (c *Client) SetUserRoles(ctx context.Context, token string, userID int64, roles []string) (User, error) {
	var out User
	err := c.Do(ctx, authed(http.MethodPut, idPath("/admin/users", userID, "/roles"), token, map[string]any{"roles": roles}), &out)
	return out, err
}

// Generic CRUD over /admin/crud/:resource.

func crudPath(resource string) string {
	return "/admin/crud/" + url.PathEscape(resource)
}

func (c *Client) CrudList(ctx context.Context, token, resource string, q PageQuery) (Page[map[string]any], error) {
	var out Page[map[string]any]
	req := authed(http.MethodGet, crudPath(resource), token, nil)
	req.Query = q.values()
	err := c.Do(ctx, req, &out)
	return out, err
}

func (c *Client) CrudCreate(ctx context.Context, token, resource string, row map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.Do(ctx, authed(http.MethodPost, crudPath(resource), token, row), &out)
	return out, err
}

func (c *Client) CrudUpdate(ctx context.Context, token, resource string, id int64, row map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.Do(ctx, authed(http.MethodPut, idPath(crudPath(resource), id, ""), token, row), &out)
	return out, err
}

// CrudDelete requires confirmed to be true.
func (c *Client) CrudDelete(ctx context.Context, token, resource string, id int64, confirmed bool) error {
	if err := requireConfirmation(confirmed, "delete "+resource); err != nil {
		return err
	}
	return c.Do(ctx, authed(http.MethodDelete, idPath(crudPath(resource), id, ""), token, nil), nil)
}
