package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/aussiebroadwan/storefront/internal/app"
	"github.com/aussiebroadwan/storefront/pkg/commerce"
	"github.com/aussiebroadwan/storefront/pkg/storefront"
)

var errUsage = errors.New("usage")

type cli struct {
	app *app.Application
	out io.Writer
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "login":
		if len(args) != 2 {
			return errUsage
		}
		return c.printUser(c.app.Client.Login(ctx, args[0], args[1]))
	case "google":
		if len(args) != 1 {
			return errUsage
		}
		return c.printUser(c.app.Client.GoogleAuth(ctx, args[0]))
	case "callback":
		if len(args) < 1 || len(args) > 2 {
			return errUsage
		}
		refresh := ""
		if len(args) == 2 {
			refresh = args[1]
		}
		return c.printUser(c.app.Client.LoginWithTokens(ctx, args[0], refresh))
	case "logout":
		return c.app.Client.Logout(ctx)
	case "whoami":
		return c.whoami(ctx)
	case "products":
		return c.products(ctx)
	case "product", "recent":
		if cmd == "product" {
			args = append([]string{"view"}, args...)
		}
		return c.recent(ctx, args)
	case "cart":
		return c.cart(ctx, args)
	case "wishlist":
		return c.wishlist(ctx, args)
	case "order":
		method := ""
		if len(args) > 0 {
			method = args[0]
		}
		return c.order(ctx, method)
	case "watch":
		return c.app.Run()
	default:
		return errUsage
	}
}

func (c *cli) printUser(u *storefront.User, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "logged in as %s\n", u.DisplayName())
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	if !c.app.Sessions.IsAuthenticated() {
		fmt.Fprintln(c.out, "not logged in")
		return nil
	}
	u, err := c.app.Client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s <%s> (id %s)\n", u.DisplayName(), u.Email, u.ID)
	return nil
}

func (c *cli) products(ctx context.Context) error {
	products, err := c.app.Client.Products(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRICE\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.ID, p.Title, p.Price.StringFixed(2), p.Stock)
	}
	return w.Flush()
}

func (c *cli) product(ctx context.Context, id string) (commerce.Product, error) {
	p, err := c.app.Client.Product(ctx, commerce.ID(id))
	if err != nil {
		return commerce.Product{}, err
	}
	return *p, nil
}

func (c *cli) cart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cart := c.app.Cart

	switch args[0] {
	case "show":
		w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tQTY\tSUBTOTAL")
		for _, l := range cart.Lines() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", l.ProductID, l.Product.Title, l.Quantity, l.Subtotal().StringFixed(2))
		}
		fmt.Fprintf(w, "\t\t%d\t%s\n", cart.Length(), cart.TotalPrice().StringFixed(2))
		return w.Flush()
	case "clear":
		return cart.Clear(ctx)
	}

	if len(args) != 2 {
		return errUsage
	}
	id := commerce.ID(args[1])
	switch args[0] {
	case "add":
		p, err := c.product(ctx, args[1])
		if err != nil {
			return err
		}
		return cart.Add(ctx, p)
	case "rm":
		return cart.Remove(ctx, id)
	case "inc":
		return cart.Increment(ctx, id)
	case "dec":
		return cart.Decrement(ctx, id)
	default:
		return errUsage
	}
}

func (c *cli) wishlist(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	wl := c.app.Wishlist

	switch args[0] {
	case "show":
		for _, p := range wl.Entries() {
			fmt.Fprintf(c.out, "%s\t%s\n", p.ID, p.Title)
		}
		if pending := wl.Snapshot().Pending; len(pending) > 0 {
			fmt.Fprintf(c.out, "(%d not yet synced)\n", len(pending))
		}
		return nil
	case "sync":
		if !wl.Authenticated() {
			return fmt.Errorf("%w: log in to sync the wishlist", storefront.ErrAuth)
		}
		return wl.Reconcile(ctx)
	}

	if len(args) != 2 {
		return errUsage
	}
	switch args[0] {
	case "add":
		p, err := c.product(ctx, args[1])
		if err != nil {
			return err
		}
		return wl.Add(ctx, p)
	case "rm":
		return wl.Remove(ctx, commerce.ID(args[1]))
	default:
		return errUsage
	}
}

func (c *cli) recent(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "view":
		if len(args) != 2 {
			return errUsage
		}
		p, err := c.product(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s  %s  %s\n%s\n", p.ID, p.Title, p.Price.StringFixed(2), p.Description)
		return c.app.Recent.Add(ctx, p)
	case "show":
		count := commerce.DefaultLastCount
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return errUsage
			}
			count = n
		}
		for _, e := range c.app.Recent.Last(count) {
			fmt.Fprintf(c.out, "%s\t%s\t%s\n", e.Product.ID, e.Product.Title, e.ViewedAt.Local().Format(time.DateTime))
		}
		return nil
	default:
		return errUsage
	}
}

func (c *cli) order(ctx context.Context, method string) error {
	order, err := c.app.Checkout(ctx, storefront.OrderRequest{PaymentMethod: method})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "order %s placed (%s)\n", order.ID, order.Status)
	return nil
}
