package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thomas/mayhem-terminal-go/internal/admin"
	"github.com/thomas/mayhem-terminal-go/internal/auth"
	"github.com/thomas/mayhem-terminal-go/internal/catalog"
	"github.com/thomas/mayhem-terminal-go/internal/checkout"
	"github.com/thomas/mayhem-terminal-go/internal/logging"
	"github.com/thomas/mayhem-terminal-go/internal/pricing"
	"github.com/thomas/mayhem-terminal-go/internal/session"
	"github.com/thomas/mayhem-terminal-go/internal/storage"
)

var testProducts = []catalog.Product{
	{ID: "1", Name: "Sacred Tee", Price: 45, Category: "Tees", Sizes: []string{"S", "M"}, Active: true, StockQuantity: 5},
	{ID: "2", Name: "Mayhem Hoodie", Price: 120, Category: "Hoodies", Active: true, StockQuantity: 0, SoldOut: true},
}

// setupTestModel creates a model backed by a mock Catalog Store.
func setupTestModel(t *testing.T, products []catalog.Product, withAdmin bool) Model {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/rest/v1/"+catalog.TableProducts {
			w.Header().Set("Content-Range", fmt.Sprintf("0-%d/%d", len(products)-1, len(products)))
			json.NewEncoder(w).Encode(products)
			return
		}

		// Every other table is empty.
		w.Header().Set("Content-Range", "*/0")
		w.Write([]byte("[]"))
	}))
	t.Cleanup(server.Close)

	client := catalog.NewClient(server.URL)
	store := catalog.NewStorefront(client, time.Minute)

	var provider auth.Provider
	if withAdmin {
		provider = auth.NewStaticProvider("admin@mayhem.test", "pw", "secret", time.Hour)
	}

	sess, err := session.Open(context.Background(), "SHA256:test", session.Options{
		Store:          storage.NewMemory(),
		Admin:          provider,
		Customers:      client,
		Logger:         logging.Discard(),
		Rates:          pricing.DefaultRates(),
		CurrencySymbol: "$",
		StoreName:      "Sacred Mayhem",
		WhatsAppNumber: "15550100200",
	})
	if err != nil {
		t.Fatalf("opening session: %v", err)
	}
	t.Cleanup(sess.Close)

	deps := Deps{Session: sess, Storefront: store, ExportDir: t.TempDir()}
	if withAdmin {
		deps.Admin = admin.NewService(client, sess.Admin, store.Invalidate, logging.Discard())
	}

	m := NewModel(deps)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

// press sends keys to m one at a time. Named keys are "enter" and "esc";
// anything else is typed as runes.
func press(m Model, keys ...string) Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func loaded(m Model, products []catalog.Product) Model {
	updated, _ := m.Update(productsLoadedMsg{table: catalog.TableProducts, products: products})
	return updated.(Model)
}

func TestNewModel(t *testing.T) {
	m := setupTestModel(t, testProducts, false)

	if m.GetViewState() != ViewProductList {
		t.Errorf("expected initial view state to be ProductList, got %v", m.GetViewState())
	}
	if m.GetSelectedProduct() != nil {
		t.Error("expected no product to be selected initially")
	}
	if !m.loadingProducts {
		t.Error("expected products to be loading initially")
	}
	if m.Init() == nil {
		t.Error("expected Init to return a command")
	}
}

func TestLoadProductsCommand(t *testing.T) {
	m := setupTestModel(t, testProducts, false)

	msg := m.loadProducts()()
	got, ok := msg.(productsLoadedMsg)
	if !ok {
		t.Fatalf("expected productsLoadedMsg, got %T", msg)
	}
	if len(got.products) != 2 {
		t.Errorf("expected 2 products, got %d", len(got.products))
	}
}

func TestProductsLoaded(t *testing.T) {
	m := setupTestModel(t, testProducts, false)

	// A response for another tab is stale and ignored.
	updated, _ := m.Update(productsLoadedMsg{table: catalog.TableNewArrivals, products: testProducts})
	m = updated.(Model)
	if len(m.productList.Items()) != 0 {
		t.Error("expected stale listing to be ignored")
	}

	m = loaded(m, testProducts)
	if m.loadingProducts {
		t.Error("expected loading to finish")
	}
	if len(m.productList.Items()) != 2 {
		t.Errorf("expected 2 list items, got %d", len(m.productList.Items()))
	}
}

func TestViewStateTransitions(t *testing.T) {
	m := loaded(setupTestModel(t, testProducts, false), testProducts)

	m = press(m, "enter")
	if m.GetViewState() != ViewProductDetails {
		t.Fatalf("expected ProductDetails view after enter, got %v", m.GetViewState())
	}
	if p := m.GetSelectedProduct(); p == nil || p.ID != "1" {
		t.Fatalf("expected product 1 to be selected, got %+v", p)
	}

	m = press(m, "esc")
	if m.GetViewState() != ViewProductList {
		t.Error("expected ProductList view after pressing Esc")
	}
	if m.GetSelectedProduct() != nil {
		t.Error("expected selection to be cleared")
	}
}

func TestProductNoLongerAvailable(t *testing.T) {
	m := loaded(setupTestModel(t, testProducts, false), testProducts)
	m = press(m, "enter")

	updated, _ := m.Update(productRefreshedMsg{id: "1", err: fmt.Errorf("products 1: %w", catalog.ErrNotFound)})
	m = updated.(Model)

	if m.GetViewState() != ViewNotFound {
		t.Fatalf("expected NotFound view, got %v", m.GetViewState())
	}
	if !strings.Contains(m.View(), "Sacred Tee is no longer available") {
		t.Error("expected not found view to name the product")
	}

	m = press(m, "esc")
	if m.GetViewState() != ViewProductList {
		t.Errorf("expected to return to the list, got %v", m.GetViewState())
	}
}

func TestRefreshedProductReplacesSelection(t *testing.T) {
	m := loaded(setupTestModel(t, testProducts, false), testProducts)
	m = press(m, "enter")

	fresh := testProducts[0]
	fresh.StockQuantity = 1
	updated, _ := m.Update(productRefreshedMsg{id: "1", product: &fresh})
	m = updated.(Model)

	if m.GetSelectedProduct().StockQuantity != 1 {
		t.Error("expected refreshed stock on the selected product")
	}
}

func TestWishlistToggle(t *testing.T) {
	m := loaded(setupTestModel(t, testProducts, false), testProducts)

	m = press(m, "w")
	if !m.sess.Wishlist.Contains("1") {
		t.Fatal("expected product 1 in the wishlist")
	}
	if !strings.Contains(m.GetNotice(), "saved to your wishlist") {
		t.Errorf("unexpected notice %q", m.GetNotice())
	}
	if title := m.productList.Items()[0].(productItem).Title(); !strings.HasSuffix(title, "♥") {
		t.Errorf("expected wishlisted title, got %q", title)
	}

	m = press(m, "w")
	if m.sess.Wishlist.Contains("1") {
		t.Error("expected product 1 removed from the wishlist")
	}
}

func TestAddToCart(t *testing.T) {
	m := setupTestModel(t, testProducts, false)

	updated, _ := m.Update(cartProductMsg{product: testProducts[0], size: "M"})
	m = updated.(Model)
	if m.sess.Cart.ItemCount() != 1 {
		t.Fatalf("expected 1 item in cart, got %d", m.sess.Cart.ItemCount())
	}

	updated, _ = m.Update(cartProductMsg{product: testProducts[1]})
	m = updated.(Model)
	if m.sess.Cart.ItemCount() != 1 {
		t.Error("expected sold out product to be rejected")
	}
	if !strings.Contains(m.GetNotice(), "sold out") {
		t.Errorf("expected sold out notice, got %q", m.GetNotice())
	}
}

func TestSoldOutBlocksVariantPicker(t *testing.T) {
	m := loaded(setupTestModel(t, testProducts, false), testProducts)
	m.productList.Select(1)

	m = press(m, "enter", "a")
	if m.GetViewState() != ViewProductDetails {
		t.Errorf("expected to stay on details, got %v", m.GetViewState())
	}
	if !strings.Contains(m.GetNotice(), "sold out") {
		t.Errorf("expected sold out notice, got %q", m.GetNotice())
	}
}

func TestVariantPickerOpens(t *testing.T) {
	m := loaded(setupTestModel(t, testProducts, false), testProducts)

	m = press(m, "enter", "a")
	if m.GetViewState() != ViewVariantPicker {
		t.Fatalf("expected VariantPicker view, got %v", m.GetViewState())
	}
	if m.variant.Size != "S" || m.variant.Quantity != 1 {
		t.Errorf("expected first size and quantity 1, got %+v", *m.variant)
	}

	m = press(m, "esc")
	if m.GetViewState() != ViewProductDetails {
		t.Error("expected esc to return to details")
	}
}

func TestCartPromo(t *testing.T) {
	m := setupTestModel(t, testProducts, false)
	updated, _ := m.Update(cartProductMsg{product: testProducts[0]})
	m = updated.(Model)

	m = press(m, "c")
	if m.GetViewState() != ViewCart {
		t.Fatalf("expected Cart view, got %v", m.GetViewState())
	}

	m = press(m, "p")
	if !m.showPromo {
		t.Fatal("expected promo input to open")
	}
	m = press(m, "MAYHEM10", "enter")
	if !m.sess.Promo.Active() {
		t.Fatalf("expected promo to be applied, notice %q", m.GetNotice())
	}
	if !strings.Contains(m.View(), "Discount (MAYHEM10)") {
		t.Error("expected discount line in the cart view")
	}

	m = press(m, "p")
	if m.showPromo {
		t.Error("expected promo input to stay closed while a code is applied")
	}
	if !strings.Contains(m.GetNotice(), "already applied") {
		t.Errorf("unexpected notice %q", m.GetNotice())
	}

	m = press(m, "x")
	if m.sess.Promo.Active() {
		t.Error("expected promo to be removed")
	}
}

func TestUnknownPromo(t *testing.T) {
	m := setupTestModel(t, testProducts, false)
	updated, _ := m.Update(cartProductMsg{product: testProducts[0]})
	m = press(updated.(Model), "c", "p", "NOPE", "enter")

	if m.sess.Promo.Active() {
		t.Error("expected unknown code to be rejected")
	}
	if !strings.Contains(m.GetNotice(), "not a valid promo code") {
		t.Errorf("unexpected notice %q", m.GetNotice())
	}
}

func TestCartQuantityKeys(t *testing.T) {
	m := setupTestModel(t, testProducts, false)
	updated, _ := m.Update(cartProductMsg{product: testProducts[0]})
	m = press(updated.(Model), "c")

	// The quantity never goes below one.
	m = press(m, "-")
	if m.sess.Cart.ItemCount() != 1 {
		t.Errorf("expected quantity to stay 1, got %d", m.sess.Cart.ItemCount())
	}

	m = press(m, "d")
	if !m.sess.Cart.IsEmpty() {
		t.Error("expected line to be removed")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	m := setupTestModel(t, testProducts, false)

	m = press(m, "c", "o")
	if m.GetViewState() != ViewCart {
		t.Errorf("expected to stay on the cart, got %v", m.GetViewState())
	}
	if m.GetNotice() != "Your cart is empty" {
		t.Errorf("unexpected notice %q", m.GetNotice())
	}
}

func TestCheckoutFlow(t *testing.T) {
	m := setupTestModel(t, testProducts, false)
	updated, _ := m.Update(cartProductMsg{product: testProducts[0]})
	m = press(updated.(Model), "c", "o")

	if m.GetViewState() != ViewCheckout {
		t.Fatalf("expected Checkout view, got %v", m.GetViewState())
	}
	if m.checkoutStep != checkout.StepContact || m.checkoutForm == nil {
		t.Fatalf("expected contact form, got step %v", m.checkoutStep)
	}
	if !strings.Contains(m.View(), "Step 1 of 3") {
		t.Error("expected step indicator")
	}

	// Back from the first step returns to the cart and keeps the pipeline.
	m = press(m, "esc")
	if m.GetViewState() != ViewCart {
		t.Errorf("expected Cart view, got %v", m.GetViewState())
	}
	if m.pipeline == nil {
		t.Error("expected the checkout to be kept for later")
	}

	m = press(m, "o")
	if m.GetViewState() != ViewCheckout {
		t.Fatalf("expected Checkout view, got %v", m.GetViewState())
	}

	updated, _ = m.Update(checkoutStepMsg{err: errors.New("the store is down")})
	m = updated.(Model)
	if m.checkoutBusy {
		t.Error("expected busy flag to clear")
	}
	if m.GetNotice() != "The store is down" {
		t.Errorf("unexpected notice %q", m.GetNotice())
	}

	handoff := &checkout.Handoff{
		OrderNumber: "MH-123456",
		URL:         "https://wa.me/15550100200?text=hi",
		Order: checkout.LastOrder{
			OrderNumber: "MH-123456",
			Items:       m.sess.Cart.Items(),
			Summary:     m.sess.Summary(),
			Date:        time.Now(),
		},
	}
	updated, _ = m.Update(checkoutStepMsg{handoff: handoff})
	m = updated.(Model)

	if m.GetViewState() != ViewOrderConfirmation {
		t.Fatalf("expected OrderConfirmation view, got %v", m.GetViewState())
	}
	if m.pipeline != nil {
		t.Error("expected pipeline to be released")
	}
	view := m.View()
	if !strings.Contains(view, "MH-123456") || !strings.Contains(view, handoff.URL) {
		t.Error("expected order number and hand-off link in the confirmation")
	}

	m = press(m, "enter")
	if m.GetViewState() != ViewProductList {
		t.Errorf("expected to return to the shop, got %v", m.GetViewState())
	}
}

func TestLastOrderMissing(t *testing.T) {
	m := setupTestModel(t, testProducts, false)

	msg := m.loadLastOrder()()
	updated, _ := m.Update(msg)
	m = updated.(Model)

	if m.GetNotice() != "You have not placed an order yet" {
		t.Errorf("unexpected notice %q", m.GetNotice())
	}
}

func TestAdminDisabled(t *testing.T) {
	m := setupTestModel(t, testProducts, false)

	m = press(m, "A")
	if m.GetViewState() != ViewProductList {
		t.Errorf("expected to stay on the list, got %v", m.GetViewState())
	}
	if !strings.Contains(m.GetNotice(), "not enabled") {
		t.Errorf("unexpected notice %q", m.GetNotice())
	}
}

func TestAdminRequiresLogin(t *testing.T) {
	m := setupTestModel(t, testProducts, true)

	m = press(m, "A")
	if m.GetViewState() != ViewAdminLogin {
		t.Fatalf("expected AdminLogin view, got %v", m.GetViewState())
	}
	if m.adminLoginForm == nil {
		t.Fatal("expected login form")
	}

	updated, _ := m.Update(errMsg{err: auth.ErrInvalidCredentials})
	m = updated.(Model)
	if m.GetNotice() != "Invalid email or password" {
		t.Errorf("unexpected notice %q", m.GetNotice())
	}

	m = press(m, "esc")
	if m.GetViewState() != ViewProductList {
		t.Errorf("expected esc to leave the login, got %v", m.GetViewState())
	}
}

func TestAdminSignedIn(t *testing.T) {
	m := setupTestModel(t, testProducts, true)
	if _, err := m.sess.Admin.Login(context.Background(), "admin@mayhem.test", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	m = press(m, "A")
	if m.GetViewState() != ViewAdminTables {
		t.Fatalf("expected AdminTables view, got %v", m.GetViewState())
	}

	m = press(m, "enter")
	if m.GetViewState() != ViewAdminList || !m.adminLoading {
		t.Fatalf("expected loading AdminList view, got %v", m.GetViewState())
	}

	msg := m.loadAdminPage(1)()
	page, ok := msg.(adminPageMsg)
	if !ok {
		t.Fatalf("expected adminPageMsg, got %T (%v)", msg, msg)
	}
	if page.page.Total != 2 {
		t.Errorf("expected 2 products, got %d", page.page.Total)
	}

	updated, _ := m.Update(page)
	m = updated.(Model)
	if len(m.adminTable.Rows()) != 2 {
		t.Errorf("expected 2 table rows, got %d", len(m.adminTable.Rows()))
	}

	m = press(m, "e")
	if m.GetViewState() != ViewAdminForm || m.adminEditID != "1" {
		t.Fatalf("expected edit form for row 1, got %v %q", m.GetViewState(), m.adminEditID)
	}
	if got := *m.adminValues["name"]; got != "Sacred Tee" {
		t.Errorf("expected form prefilled with the row, got %q", got)
	}

	m = press(m, "esc")
	if m.GetViewState() != ViewAdminList {
		t.Errorf("expected esc to return to the list, got %v", m.GetViewState())
	}
}

func TestAdminSessionExpired(t *testing.T) {
	m := setupTestModel(t, testProducts, true)
	m.viewState = ViewAdminList

	updated, _ := m.Update(errMsg{err: auth.ErrUnauthorized})
	m = updated.(Model)
	if m.GetViewState() != ViewAdminLogin {
		t.Errorf("expected AdminLogin view, got %v", m.GetViewState())
	}
}

func TestFilterAndSortKeys(t *testing.T) {
	m := loaded(setupTestModel(t, testProducts, false), testProducts)

	m = press(m, "f")
	if m.filter.Category != "Hoodies" && m.filter.Category != "Tees" {
		t.Errorf("expected a category filter, got %q", m.filter.Category)
	}
	if len(m.productList.Items()) != 1 {
		t.Errorf("expected 1 product in category, got %d", len(m.productList.Items()))
	}

	sort := m.filter.Sort
	m = press(m, "s")
	if m.filter.Sort == sort {
		t.Error("expected sort order to change")
	}
}

func TestCategoryKeyFollowsCatalogOrder(t *testing.T) {
	m := setupTestModel(t, testProducts, false)
	updated, _ := m.Update(productsLoadedMsg{
		table:      catalog.TableProducts,
		products:   testProducts,
		categories: []string{"Accessories", "Hoodies", "Tees"},
	})
	m = updated.(Model)

	for _, want := range []string{"Hoodies", "Tees", ""} {
		m = press(m, "f")
		if m.filter.Category != want {
			t.Errorf("expected category %q, got %q", want, m.filter.Category)
		}
	}
}

func TestSearchMode(t *testing.T) {
	m := loaded(setupTestModel(t, testProducts, false), testProducts)

	m = press(m, "/")
	if !m.showSearch {
		t.Fatal("expected showSearch to be true after pressing '/'")
	}

	m = press(m, "hoodie", "enter")
	if m.showSearch {
		t.Error("expected search to close on enter")
	}
	if len(m.productList.Items()) != 1 {
		t.Errorf("expected 1 match, got %d", len(m.productList.Items()))
	}

	m = press(m, "/", "esc")
	if m.filter.Search != "" || len(m.productList.Items()) != 2 {
		t.Error("expected esc to clear the search")
	}
}

func TestTabSwitchesSource(t *testing.T) {
	m := loaded(setupTestModel(t, testProducts, false), testProducts)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.source().Table != catalog.TableNewArrivals {
		t.Errorf("expected new arrivals tab, got %s", m.source().Table)
	}
	if cmd == nil || !m.loadingProducts {
		t.Error("expected a reload of the new tab")
	}
}

func TestProductItemInterface(t *testing.T) {
	money := func(v float64) string { return pricing.FormatMoney("$", v) }

	item := productItem{product: testProducts[0], money: money}
	if item.Title() != "Sacred Tee" {
		t.Errorf("expected title 'Sacred Tee', got '%s'", item.Title())
	}
	if item.FilterValue() != "Sacred Tee" {
		t.Errorf("expected filter value 'Sacred Tee', got '%s'", item.FilterValue())
	}
	if desc := item.Description(); !strings.Contains(desc, "$45.00") || !strings.Contains(desc, "Tees") {
		t.Errorf("unexpected description %q", desc)
	}

	soldOut := productItem{product: testProducts[1], money: money, wishlisted: true}
	if !strings.Contains(soldOut.Description(), "Sold Out") {
		t.Errorf("expected sold out description, got %q", soldOut.Description())
	}
	if soldOut.Title() != "Mayhem Hoodie ♥" {
		t.Errorf("unexpected title %q", soldOut.Title())
	}
}

func TestViewRendering(t *testing.T) {
	m := loaded(setupTestModel(t, testProducts, false), testProducts)

	if view := m.View(); !strings.Contains(view, "SACRED MAYHEM") {
		t.Error("expected store name in the list view")
	}

	m = press(m, "enter")
	if view := m.View(); !strings.Contains(view, "Sacred Tee") {
		t.Error("expected product name in the details view")
	}

	m = press(m, "esc", "c")
	if view := m.View(); !strings.Contains(view, "Your cart is empty") {
		t.Error("expected empty cart view")
	}
}

func TestNoticeExpires(t *testing.T) {
	m := setupTestModel(t, testProducts, false)
	m = press(m, "A")
	id := m.noticeID

	updated, _ := m.Update(noticeExpiredMsg{id: id - 1})
	m = updated.(Model)
	if m.GetNotice() == "" {
		t.Error("expected an older timer to leave the notice alone")
	}

	updated, _ = m.Update(noticeExpiredMsg{id: id})
	m = updated.(Model)
	if m.GetNotice() != "" {
		t.Error("expected notice to clear")
	}
}
