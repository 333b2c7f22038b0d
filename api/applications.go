package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

func applicationPath(id int64, suffix string) string {
	return "/applications/" + strconv.FormatInt(id, 10) + suffix
}

// CreateApplication submits a new request.
func (c *Client) CreateApplication(ctx context.Context, token string, req CreateApplicationRequest) (Application, error) {
	if err := validateApplication(req); err != nil {
		return Application{}, err
	}
	var out Application
	err := c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/applications",
		Body:        req,
		Token:       token,
		RequireAuth: true,
	}, &out)
	return out, err
}

func validateApplication(req CreateApplicationRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: application has no items", ErrInvalidInput)
	}
	for _, it := range req.Items {
		if it.SKUID <= 0 || it.Quantity <= 0 {
			return fmt.Errorf("%w: invalid item sku=%d quantity=%d", ErrInvalidInput, it.SKUID, it.Quantity)
		}
	}
	switch req.DeliveryType {
	case DeliveryPickup:
	case DeliveryExpress:
		a := req.ExpressAddress
		if a == nil || strings.TrimSpace(a.ReceiverName) == "" || strings.TrimSpace(a.ReceiverPhone) == "" || strings.TrimSpace(a.Detail) == "" {
			return fmt.Errorf("%w: express delivery requires receiver and address", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown delivery type %q", ErrInvalidInput, req.DeliveryType)
	}
	return nil
}

// GetApplication returns one application.
func (c *Client) GetApplication(ctx context.Context, token string, id int64) (Application, error) {
	var out Application
	err := c.Do(ctx, Request{Path: applicationPath(id, ""), Token: token, RequireAuth: true}, &out)
	return out, err
}

// ApproveApplication approves or rejects an application at the caller's stage.
func (c *Client) ApproveApplication(ctx context.Context, token string, id int64, req ApproveRequest) (Application, error) {
	if req.Action != ApprovalApprove && req.Action != ApprovalReject {
		return Application{}, fmt.Errorf("%w: unknown approval action %q", ErrInvalidInput, req.Action)
	}
	var out Application
	err := c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        applicationPath(id, "/approve"),
		Body:        req,
		Token:       token,
		RequireAuth: true,
	}, &out)
	return out, err
}

// AssignAssets binds concrete assets to an approved application.
func (c *Client) AssignAssets(ctx context.Context, token string, id int64, req AssignAssetsRequest) (Application, error) {
	var out Application
	err := c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        applicationPath(id, "/assign-assets"),
		Body:        req,
		Token:       token,
		RequireAuth: true,
	}, &out)
	return out, err
}

// PickupTicket returns the pickup code and QR payload for an application.
func (c *Client) PickupTicket(ctx context.Context, token string, id int64) (PickupTicket, error) {
	var out PickupTicket
	err := c.Do(ctx, Request{Path: applicationPath(id, "/pickup-ticket"), Token: token, RequireAuth: true}, &out)
	return out, err
}

// VerifyPickup resolves a pickup code or QR payload to its application.
func (c *Client) VerifyPickup(ctx context.Context, token string, req VerifyPickupRequest) (Application, error) {
	if strings.TrimSpace(req.Code) == "" && strings.TrimSpace(req.QRPayload) == "" {
		return Application{}, fmt.Errorf("%w: pickup code or QR payload is required", ErrInvalidInput)
	}
	var out Application
	err := c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/pickup/verify",
		Body:        req,
		Token:       token,
		RequireAuth: true,
	}, &out)
	return out, err
}
