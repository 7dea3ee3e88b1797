package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fjod/botstore/internal/cart"
	"github.com/fjod/botstore/internal/catalog"
	"github.com/fjod/botstore/internal/checkout"
	"github.com/fjod/botstore/internal/logger"
	"github.com/fjod/botstore/internal/quote"
	"github.com/fjod/botstore/internal/storage"
	"github.com/urfave/cli/v2"
)

const (
	cartKey       = "cart"
	cartDebounce  = 100 * time.Millisecond
	closeTimeout  = 5 * time.Second
	defaultServer = "http://localhost:8080"
)

var errEmptyCart = errors.New("cart is empty")

// session is what every command works with once Before has run.
type session struct {
	out     io.Writer
	store   *cart.Store
	catalog catalog.Catalog
	gateway *checkout.Gateway
}

func newApp(out, errOut io.Writer) *cli.App {
	s := &session{out: out}

	return &cli.App{
		Name:      "botcart",
		Usage:     "browse trading bots, keep a cart and pay with USDT",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "storefront base URL",
				Value:   defaultServer,
				EnvVars: []string{"BOTCART_SERVER"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "directory holding the local cart (default: <user config dir>/botcart)",
				EnvVars: []string{"BOTCART_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"BOTCART_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			return s.open(c, errOut)
		},
		After: func(c *cli.Context) error {
			return s.close()
		},
		Commands: []*cli.Command{
			{
				Name:   "products",
				Usage:  "list the catalog",
				Action: s.products,
			},
			{
				Name:      "add",
				Usage:     "add one unit of a product to the cart",
				ArgsUsage: "<product-id>",
				Action:    s.add,
			},
			{
				Name:      "update",
				Usage:     "set the quantity of a product already in the cart",
				ArgsUsage: "<product-id> <quantity>",
				Action:    s.update,
			},
			{
				Name:      "remove",
				Usage:     "remove a product from the cart",
				ArgsUsage: "<product-id>",
				Action:    s.remove,
			},
			{
				Name:   "cart",
				Usage:  "show the cart",
				Action: s.show,
			},
			{
				Name:  "checkout",
				Usage: "create a USDT invoice for the cart total",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Value: "Cart Purchase", Usage: "order description sent to the provider"},
				},
				Action: s.checkout,
			},
			{
				Name:  "quote",
				Usage: "write the cart as a PDF quote",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Value: "quote.pdf", Usage: "output file"},
				},
				Action: s.quote,
			},
		},
	}
}

func (s *session) open(c *cli.Context, errOut io.Writer) error {
	log := logger.New(logger.Options{
		Service: "botcart",
		Level:   c.String("log-level"),
		Output:  errOut,
	})

	dir := c.String("data-dir")
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("locate config dir: %w", err)
		}
		dir = filepath.Join(base, "botcart")
	}

	s.store = cart.NewStore(storage.NewFileStorage(dir), cartKey, cart.WithDebounce(cartDebounce), cart.WithLogger(log))
	if err := s.store.Load(c.Context); err != nil {
		return err
	}

	server := c.String("server")
	s.catalog = catalog.NewRemote(server, nil)
	s.gateway = checkout.NewGateway(server, nil)
	return nil
}

func (s *session) close() error {
	if s.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return s.store.Close(ctx)
}

func (s *session) products(c *cli.Context) error {
	products, err := s.catalog.List(c.Context)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tFEATURES")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t$%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), strings.Join(p.Features, ", "))
	}
	return tw.Flush()
}

func (s *session) add(c *cli.Context) error {
	id, err := intArg(c, 0, "product-id")
	if err != nil {
		return err
	}

	p, err := s.catalog.Get(c.Context, id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return fmt.Errorf("product %d not found", id)
	}
	if err != nil {
		return err
	}

	s.store.AddItem(p)
	fmt.Fprintf(s.out, "Added %s. %d item(s) in cart, subtotal $%s\n", p.Name, s.store.ItemCount(), s.store.Subtotal().StringFixed(2))
	return nil
}

func (s *session) update(c *cli.Context) error {
	id, err := intArg(c, 0, "product-id")
	if err != nil {
		return err
	}
	qty, err := intArg(c, 1, "quantity")
	if err != nil {
		return err
	}

	if qty < 1 {
		fmt.Fprintln(s.out, "Quantity must be at least 1; nothing changed. Use remove to drop the item.")
		return nil
	}
	if !s.store.Has(id) {
		return fmt.Errorf("product %d is not in the cart", id)
	}

	s.store.UpdateQuantity(id, int(qty))
	fmt.Fprintf(s.out, "Updated. Subtotal $%s\n", s.store.Subtotal().StringFixed(2))
	return nil
}

func (s *session) remove(c *cli.Context) error {
	id, err := intArg(c, 0, "product-id")
	if err != nil {
		return err
	}

	if !s.store.Has(id) {
		fmt.Fprintf(s.out, "Product %d is not in the cart\n", id)
		return nil
	}
	s.store.RemoveItem(id)
	fmt.Fprintf(s.out, "Removed. Subtotal $%s\n", s.store.Subtotal().StringFixed(2))
	return nil
}

func (s *session) show(c *cli.Context) error {
	lines := s.store.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(s.out, "Your cart is empty")
		return nil
	}

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tQTY\tTOTAL")
	for _, l := range lines {
		fmt.Fprintf(tw, "%d\t%s\t$%s\t%d\t$%s\n", l.ID, l.Name, l.Price.StringFixed(2), l.Quantity, l.LineTotal().StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Items: %d  Subtotal: $%s\n", s.store.ItemCount(), s.store.Subtotal().StringFixed(2))
	return nil
}

// checkout never touches the cart; a paid order is cleared by the user.
func (s *session) checkout(c *cli.Context) error {
	if s.store.Len() == 0 {
		return errEmptyCart
	}

	inv, err := s.gateway.CreateInvoice(c.Context, c.String("description"), s.store.Subtotal())
	var checkoutErr *checkout.Error
	if errors.As(err, &checkoutErr) {
		fmt.Fprintf(s.out, "Payment failed: %s\n", checkoutErr.Error())
		if checkoutErr.Suggestion != "" {
			fmt.Fprintln(s.out, checkoutErr.Suggestion)
		}
		return err
	}
	if err != nil {
		fmt.Fprintln(s.out, "Payment failed.")
		return err
	}

	fmt.Fprintf(s.out, "Invoice %s created. Pay here:\n%s\n", inv.ID, inv.URL)
	return nil
}

func (s *session) quote(c *cli.Context) error {
	lines := s.store.Lines()
	if len(lines) == 0 {
		return errEmptyCart
	}

	path := c.String("out")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create quote file: %w", err)
	}
	if err := quote.Render(f, lines, time.Now()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write quote file: %w", err)
	}

	fmt.Fprintf(s.out, "Quote written to %s\n", path)
	return nil
}

func intArg(c *cli.Context, i int, name string) (int64, error) {
	if c.NArg() <= i {
		return 0, fmt.Errorf("missing <%s>", name)
	}
	n, err := strconv.ParseInt(c.Args().Get(i), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid <%s> %q", name, c.Args().Get(i))
	}
	return n, nil
}
