package api

import (
	"context"
	"net/http"
)

// PickupQueue lists applications waiting for in-person collection.
func (c *Client) PickupQueue(ctx context.Context, token string, q PageQuery) (Page[Application], error) {
	var out Page[Application]
	err := c.Do(ctx, Request{Path: "/outbound/pickup-queue", Query: q.values(), Token: token, RequireAuth: true}, &out)
	return out, err
}

// ExpressQueue lists applications waiting to be shipped.
func (c *Client) ExpressQueue(ctx context.Context, token string, q PageQuery) (Page[Application], error) {
	var out Page[Application]
	err := c.Do(ctx, Request{Path: "/outbound/express-queue", Query: q.values(), Token: token, RequireAuth: true}, &out)
	return out, err
}

func (c *Client) ConfirmPickup(ctx context.Context, token string, req ConfirmPickupRequest) (Application, error) {
	var out Application
	err := c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/outbound/confirm-pickup",
		Body:        req,
		Token:       token,
		RequireAuth: true,
	}, &out)
	return out, err
}

func (c *Client) Ship(ctx context.Context, token string, req ShipRequest) (Application, error) {
	var out Application
	err := c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/outbound/ship",
		Body:        req,
		Token:       token,
		RequireAuth: true,
	}, &out)
	return out, err
}
