package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pgcportal/portal"
	"github.com/pgcportal/portal/api"
	"github.com/pgcportal/portal/guard"
	"github.com/pgcportal/portal/metrics/export/prometheus"
)

var errUsage = errors.New("invalid arguments")

type env struct {
	portal   *portal.Portal
	out      io.Writer
	password string
}

type command struct {
	name  string
	usage string
	help  string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{"login", "login <employee_no>", "sign in (password from -password or PORTAL_PASSWORD)", cmdLogin},
	{"logout", "logout", "sign out", cmdLogout},
	{"whoami", "whoami", "show the signed-in user", cmdWhoami},
	{"skus", "skus [keyword]", "search the catalog", cmdSKUs},
	{"cart", "cart", "show the cart", cmdCart},
	{"cart-add", "cart-add <sku_id>", "add one unit of a SKU", cmdCartAdd},
	{"cart-set", "cart-set <sku_id> <quantity>", "set a cart line's quantity", cmdCartSet},
	{"cart-remove", "cart-remove <sku_id>", "drop a cart line", cmdCartRemove},
	{"checkout", "checkout [flags]", "submit the cart as an application", cmdCheckout},
	{"apps", "apps", "list my applications", cmdApps},
	{"nav", "nav <path>", "evaluate a route against the guard", cmdNav},
	{"theme", "theme [light|dark|system]", "show or set the theme preference", cmdTheme},
	{"export-flows", "export-flows <sku_id> <file>", "download a SKU's stock ledger as xlsx", cmdExportFlows},
	{"metrics", "metrics", "print this invocation's metrics", cmdMetrics},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", errUsage, s)
	}
	return id, nil
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: login <employee_no>", errUsage)
	}
	if err := e.portal.Login(ctx, args[0], e.password); err != nil {
		return err
	}
	st := e.portal.Session().State()
	fmt.Fprintf(e.out, "signed in as %s (%s)\n", st.EmployeeNo, strings.Join(st.Roles, ","))
	return nil
}

func cmdLogout(ctx context.Context, e *env, _ []string) error {
	e.portal.Logout(ctx)
	e.portal.Session().Wait()
	fmt.Fprintln(e.out, "signed out")
	return nil
}

func cmdWhoami(_ context.Context, e *env, _ []string) error {
	st := e.portal.Session().State()
	if !st.Authenticated {
		fmt.Fprintln(e.out, "not signed in")
		return nil
	}
	fmt.Fprintf(e.out, "%s id=%d roles=%s permissions=%s\n",
		st.EmployeeNo, st.UserID, strings.Join(st.Roles, ","), strings.Join(st.Permissions, ","))
	return nil
}

func cmdSKUs(ctx context.Context, e *env, args []string) error {
	q := api.PageQuery{Page: 1, PageSize: 50, Keyword: strings.Join(args, " ")}
	page, err := e.portal.Client().ListSKUs(ctx, e.portal.Token(), q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK")
	for _, s := range page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", s.ID, s.DisplayName(), s.ReferencePrice.StringFixed(2), s.AvailableStock)
	}
	return tw.Flush()
}

func cmdCart(_ context.Context, e *env, _ []string) error {
	c := e.portal.Cart()
	if c.Len() == 0 {
		fmt.Fprintln(e.out, "cart is empty")
		return nil
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tSTOCK\tPRICE")
	for _, it := range c.Items() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", it.SKU.ID, it.SKU.DisplayName(), it.Quantity, it.SKU.AvailableStock, it.SKU.ReferencePrice.StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%s\n", c.TotalQuantity(), c.Total().StringFixed(2))
	return tw.Flush()
}

func cmdCartAdd(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: cart-add <sku_id>", errUsage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	sku, err := e.portal.Client().GetSKU(ctx, e.portal.Token(), id)
	if err != nil {
		return err
	}
	if err := e.portal.Cart().Add(ctx, sku); err != nil {
		return err
	}
	entry, _ := e.portal.Cart().Get(id)
	fmt.Fprintf(e.out, "%s x%d\n", sku.DisplayName(), entry.Quantity)
	return nil
}

func cmdCartSet(ctx context.Context, e *env, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: cart-set <sku_id> <quantity>", errUsage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: bad quantity %q", errUsage, args[1])
	}
	return e.portal.Cart().SetQuantity(ctx, id, qty)
}

func cmdCartRemove(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: cart-remove <sku_id>", errUsage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return e.portal.Cart().Remove(ctx, id)
}

func cmdCheckout(ctx context.Context, e *env, args []string) error {
	flags := flag.NewFlagSet("checkout", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	delivery := flags.String("delivery", api.DeliveryPickup, "PICKUP or EXPRESS")
	reason := flags.String("reason", "", "why the items are needed")
	receiver := flags.String("receiver", "", "express receiver name")
	phone := flags.String("phone", "", "express receiver phone")
	address := flags.String("address", "", "express street address")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	req := portal.CheckoutRequest{
		DeliveryType: strings.ToUpper(*delivery),
		Reason:       *reason,
	}
	if req.DeliveryType == api.DeliveryExpress {
		req.ExpressAddress = &api.ExpressAddress{
			ReceiverName:  *receiver,
			ReceiverPhone: *phone,
			Detail:        *address,
		}
	}
	app, err := e.portal.Checkout(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "submitted %s (id %d, %s)\n", app.ApplicationNo, app.ID, app.Status)
	return nil
}

func cmdApps(ctx context.Context, e *env, _ []string) error {
	page, err := e.portal.MyApplications(ctx, api.PageQuery{Page: 1, PageSize: 20})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNO\tSTATUS\tDELIVERY")
	for _, a := range page.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", a.ID, a.ApplicationNo, a.Status, a.DeliveryType)
	}
	return tw.Flush()
}

func cmdNav(_ context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: nav <path>", errUsage)
	}
	d := e.portal.Navigate(args[0])
	switch d.Outcome {
	case guard.OutcomeRedirect:
		fmt.Fprintf(e.out, "redirect %s\n", d.Location)
	case guard.OutcomeForbidden:
		fmt.Fprintf(e.out, "forbidden by %s: required=%s current=%s\n",
			d.Reason, strings.Join(d.Required, ","), strings.Join(d.Current, ","))
	default:
		fmt.Fprintln(e.out, d.Outcome)
	}
	return nil
}

func cmdTheme(ctx context.Context, e *env, args []string) error {
	switch len(args) {
	case 0:
		fmt.Fprintln(e.out, e.portal.ThemeMode(ctx))
		return nil
	case 1:
		mode, err := portal.ParseThemeMode(args[0])
		if err != nil {
			return err
		}
		return e.portal.SetThemeMode(ctx, mode)
	}
	return fmt.Errorf("%w: theme [light|dark|system]", errUsage)
}

func cmdExportFlows(ctx context.Context, e *env, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: export-flows <sku_id> <file>", errUsage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	body, err := e.portal.Client().ExportStockFlows(ctx, e.portal.Token(), id)
	if err != nil {
		return err
	}
	flows, err := api.ParseStockFlowWorkbook(bytes.NewReader(body))
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], body, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "wrote %d flows to %s\n", len(flows), args[1])
	return nil
}

func cmdMetrics(_ context.Context, e *env, _ []string) error {
	_, err := io.WriteString(e.out, prometheus.NewPrometheusExporter(e.portal).Render())
	return err
}
