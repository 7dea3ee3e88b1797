package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsJSON = `[
	{"id":1,"name":"Project Management Pro","price":"99.99","image":"https://via.placeholder.com/1000","features":["Real-time alerts","Custom strategies","24/7 monitoring"]},
	{"id":2,"name":"Trading Algorithm X","price":"149.99","image":"https://via.placeholder.com/1000","features":["AI-powered","Backtesting","Risk management"]},
	{"id":3,"name":"Market Scanner Pro","price":"79.99","image":"https://via.placeholder.com/1000","features":["Real-time data","Custom alerts","Multi-exchange"]}
]`

type storefront struct {
	srv           *httptest.Server
	invoiceCalls  atomic.Int32
	invoiceStatus int
	invoiceBody   string
	lastInvoice   map[string]any
}

func newStorefront(t *testing.T) *storefront {
	sf := &storefront{
		invoiceStatus: http.StatusOK,
		invoiceBody:   `{"id":"4522625843","invoice_url":"https://nowpayments.io/payment/?iid=4522625843"}`,
	}

	var products []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(productsJSON), &products))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/products", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"products":` + productsJSON + `}`))
	})
	mux.HandleFunc("GET /api/v1/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "1":
			w.Write(products[0])
		case "2":
			w.Write(products[1])
		case "3":
			w.Write(products[2])
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"product not found","code":"product_not_found"}`))
		}
	})
	mux.HandleFunc("POST /api/create-now-invoice", func(w http.ResponseWriter, r *http.Request) {
		sf.invoiceCalls.Add(1)
		json.NewDecoder(r.Body).Decode(&sf.lastInvoice)
		w.WriteHeader(sf.invoiceStatus)
		w.Write([]byte(sf.invoiceBody))
	})

	sf.srv = httptest.NewServer(mux)
	t.Cleanup(sf.srv.Close)
	return sf
}

type cliEnv struct {
	server  *storefront
	dataDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	return &cliEnv{server: newStorefront(t), dataDir: t.TempDir()}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	argv := append([]string{"botcart", "--server", e.server.srv.URL, "--data-dir", e.dataDir}, args...)
	err := newApp(&out, &errOut).RunContext(context.Background(), argv)
	return out.String(), err
}

func (e *cliEnv) storedCart(t *testing.T) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.dataDir, "cart.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestProducts(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "products")

	require.NoError(t, err)
	assert.Contains(t, out, "Project Management Pro")
	assert.Contains(t, out, "$149.99")
	assert.Contains(t, out, "Real-time data, Custom alerts, Multi-exchange")
}

func TestAddAndShowCart(t *testing.T) {
	env := newCLIEnv(t)

	for _, id := range []string{"1", "1", "2"} {
		_, err := env.run(t, "add", id)
		require.NoError(t, err)
	}

	out, err := env.run(t, "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Items: 3  Subtotal: $349.97")
	assert.Less(t, strings.Index(out, "Project Management Pro"), strings.Index(out, "Trading Algorithm X"))

	doc := env.storedCart(t)
	assert.Equal(t, 1.0, doc["version"])
	assert.Len(t, doc["items"], 2)
}

func TestAdd_UnknownProduct(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "add", "42")
	assert.EqualError(t, err, "product 42 not found")

	_, err = env.run(t, "add", "abc")
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "add", "3")
	require.NoError(t, err)

	out, err := env.run(t, "update", "3", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing changed")

	_, err = env.run(t, "update", "1", "2")
	assert.EqualError(t, err, "product 1 is not in the cart")

	out, err = env.run(t, "update", "3", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Subtotal $319.96")
}

func TestRemove(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "add", "1")
	require.NoError(t, err)

	out, err := env.run(t, "remove", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Subtotal $0.00")

	out, err = env.run(t, "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty")
}

func TestCheckout(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "add", "1")
	require.NoError(t, err)
	_, err = env.run(t, "add", "2")
	require.NoError(t, err)

	out, err := env.run(t, "checkout")

	require.NoError(t, err)
	assert.Contains(t, out, "https://nowpayments.io/payment/?iid=4522625843")
	assert.Equal(t, "Cart Purchase", env.server.lastInvoice["productName"])
	assert.Equal(t, 249.98, env.server.lastInvoice["amount"])

	out, err = env.run(t, "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Items: 2")
}

func TestCheckout_FailureKeepsCart(t *testing.T) {
	env := newCLIEnv(t)
	env.server.invoiceStatus = http.StatusInternalServerError
	env.server.invoiceBody = `{"error":"Server configuration is incomplete","suggestion":"Please check your server configuration and try again"}`
	_, err := env.run(t, "add", "2")
	require.NoError(t, err)

	out, err := env.run(t, "checkout")

	require.Error(t, err)
	assert.Contains(t, out, "Payment failed: Server configuration is incomplete")
	assert.Contains(t, out, "Please check your server configuration and try again")
	assert.Equal(t, int32(1), env.server.invoiceCalls.Load())

	out, err = env.run(t, "cart")
	require.NoError(t, err)
	assert.Contains(t, out, "Subtotal: $149.99")
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "checkout")

	assert.ErrorIs(t, err, errEmptyCart)
	assert.Equal(t, int32(0), env.server.invoiceCalls.Load())
}

func TestQuote(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "add", "3")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "q.pdf")
	out, err := env.run(t, "quote", "--out", path)

	require.NoError(t, err)
	assert.Contains(t, out, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestCorruptCartFileStartsEmpty(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.dataDir, "cart.json"), []byte("{oops"), 0o600))

	out, err := env.run(t, "cart")

	require.NoError(t, err)
	assert.Contains(t, out, "Your cart is empty")
	_, statErr := os.Stat(filepath.Join(env.dataDir, "cart.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLegacyCartFileLoads(t *testing.T) {
	env := newCLIEnv(t)
	legacy := `[{"id":2,"name":"Trading Algorithm X","price":149.99,"image":"https://via.placeholder.com/1000","quantity":2}]`
	require.NoError(t, os.WriteFile(filepath.Join(env.dataDir, "cart.json"), []byte(legacy), 0o600))

	out, err := env.run(t, "cart")

	require.NoError(t, err)
	assert.Contains(t, out, "Subtotal: $299.98")
}
