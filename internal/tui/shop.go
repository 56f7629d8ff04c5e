package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/thomas/mayhem-terminal-go/internal/cart"
	"github.com/thomas/mayhem-terminal-go/internal/catalog"
	"github.com/thomas/mayhem-terminal-go/internal/storage"
)

// maxQuantityChoice caps the quantity picker.
const maxQuantityChoice = 10

var errNoOrders = errors.New("you have not placed an order yet")

// variantChoice holds the values bound to the variant picker form.
type variantChoice struct {
	Size     string
	Color    string
	Quantity int
}

func (m Model) source() listingSource {
	return listingSources[m.sourceIdx]
}

// ============================================
// Commands
// ============================================

func (m Model) loadProducts() tea.Cmd {
	table := m.source().Table
	store := m.store
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()

		products, err := store.Listing(ctx, table)
		if err != nil {
			return errMsg{err: fmt.Errorf("loading %s: %w", table, err)}
		}
		// Without the categories table the filter falls back to the
		// categories found in the listing.
		categories, _ := store.CategoryNames(ctx)
		return productsLoadedMsg{table: table, products: products, categories: categories}
	}
}

func (m Model) refreshProduct(table, id string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()

		p, err := store.Product(ctx, table, id)
		return productRefreshedMsg{id: id, product: p, err: err}
	}
}

func (m Model) loadWishlist() tea.Cmd {
	ids := m.sess.Wishlist.IDs()
	store := m.store
	return func() tea.Msg {
		if len(ids) == 0 {
			return wishlistLoadedMsg{}
		}
		ctx, cancel := newContext()
		defer cancel()

		products, err := store.ProductsByID(ctx, ids)
		if err != nil {
			return errMsg{err: fmt.Errorf("loading wishlist: %w", err)}
		}
		return wishlistLoadedMsg{products: products, missing: len(ids) - len(products)}
	}
}

// resolveCartLine fetches the product behind a cart line so an increment
// can be checked against its current stock.
func (m Model) resolveCartLine(item cart.LineItem) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()

		products, err := store.ProductsByID(ctx, []string{item.ID})
		if err != nil {
			return errMsg{err: fmt.Errorf("checking stock: %w", err)}
		}
		if len(products) == 0 {
			return errMsg{err: fmt.Errorf("%s is no longer available", item.Name)}
		}
		return cartProductMsg{product: products[0], size: item.SelectedSize, color: item.SelectedColor}
	}
}

func (m Model) loadLastOrder() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()

		order, err := sess.LastOrder(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return errMsg{err: errNoOrders}
		}
		if err != nil {
			return errMsg{err: fmt.Errorf("loading last order: %w", err)}
		}
		return lastOrderLoadedMsg{order: order}
	}
}

// ============================================
// Mutations
// ============================================

func (m *Model) updateProductList() {
	visible := m.filter.Apply(m.products)
	items := make([]list.Item, len(visible))
	for i, p := range visible {
		items[i] = productItem{
			product:    p,
			wishlisted: m.sess.Wishlist.Contains(string(p.ID)),
			money:      m.sess.FormatMoney,
		}
	}
	m.productList.SetItems(items)
}

// addToCart adds to the session cart and reports the outcome.
func (m *Model) addToCart(p catalog.Product, quantity int, size, color string) tea.Cmd {
	ctx, cancel := newContext()
	defer cancel()

	err := m.sess.Cart.AddItem(ctx, p, quantity, size, color)
	switch {
	case errors.Is(err, cart.ErrSoldOut):
		return m.notify(p.Name+" is sold out", true)
	case errors.Is(err, cart.ErrStockLimit):
		return m.notify(fmt.Sprintf("Only %d of %s in stock", p.StockQuantity, p.Name), true)
	case err != nil:
		m.sess.Logger.Error("adding to cart", "product", p.ID, "err", err)
		return m.notify("Could not save your cart, please try again", true)
	}
	return m.notify(fmt.Sprintf("Added %d × %s to your cart", max(quantity, 1), p.Name), false)
}

func (m *Model) toggleWishlist(p catalog.Product) tea.Cmd {
	ctx, cancel := newContext()
	defer cancel()

	added, err := m.sess.Wishlist.Toggle(ctx, string(p.ID))
	if err != nil {
		m.sess.Logger.Error("updating wishlist", "product", p.ID, "err", err)
		return m.notify("Could not update your wishlist", true)
	}
	m.updateProductList()
	if added {
		return m.notify(p.Name+" saved to your wishlist", false)
	}
	return m.notify(p.Name+" removed from your wishlist", false)
}

// nextCategory cycles "" -> first category -> ... -> last -> "".
func nextCategory(categories []string, current string) string {
	if current == "" {
		if len(categories) == 0 {
			return ""
		}
		return categories[0]
	}
	for i, c := range categories {
		if strings.EqualFold(c, current) && i+1 < len(categories) {
			return categories[i+1]
		}
	}
	return ""
}

// ============================================
// Key handling
// ============================================

func (m Model) handleProductListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.showSearch {
		switch key {
		case "enter":
			m.showSearch = false
			m.searchInput.Blur()
			m.filter.Search = m.searchInput.Value()
			m.updateProductList()
			m.productList.ResetSelected()
			return m, nil
		case "esc":
			m.showSearch = false
			m.searchInput.Blur()
			m.searchInput.SetValue("")
			m.filter.Search = ""
			m.updateProductList()
			return m, nil
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		return m, tea.Quit

	case "tab", "shift+tab":
		step := 1
		if key == "shift+tab" {
			step = len(listingSources) - 1
		}
		m.sourceIdx = (m.sourceIdx + step) % len(listingSources)
		m.filter.Category = ""
		m.products = nil
		m.updateProductList()
		m.productList.ResetSelected()
		m.loadingProducts = true
		return m, m.loadProducts()

	case "/":
		m.showSearch = true
		m.searchInput.Focus()
		return m, textinput.Blink

	case "f":
		m.filter.Category = nextCategory(catalog.CategoryCycle(m.categories, m.products), m.filter.Category)
		m.updateProductList()
		m.productList.ResetSelected()
		return m, nil

	case "s":
		m.filter.Sort = m.filter.Sort.Next()
		m.updateProductList()
		return m, nil

	case "r":
		m.loadingProducts = true
		return m, m.loadProducts()

	case "enter":
		if item, ok := m.productList.SelectedItem().(productItem); ok {
			return m.openDetails(item.product, m.source().Table, ViewProductList)
		}
		return m, nil

	case "w":
		if item, ok := m.productList.SelectedItem().(productItem); ok {
			cmd := m.toggleWishlist(item.product)
			return m, cmd
		}
		return m, nil

	case "W":
		return m.openWishlist()

	case "c":
		m.viewState = ViewCart
		m.cartIdx = 0
		return m, nil

	case "o":
		return m, m.loadLastOrder()

	case "A":
		return m.openAdmin()
	}

	var cmd tea.Cmd
	m.productList, cmd = m.productList.Update(msg)
	return m, cmd
}

func (m Model) openDetails(p catalog.Product, table string, from ViewState) (tea.Model, tea.Cmd) {
	m.selectedProduct = &p
	m.detailsTable = table
	m.detailsFrom = from
	m.viewState = ViewProductDetails
	if table == "" {
		return m, nil
	}
	return m, m.refreshProduct(table, string(p.ID))
}

func (m Model) handleProductRefreshed(msg productRefreshedMsg) (tea.Model, tea.Cmd) {
	if m.selectedProduct == nil || string(m.selectedProduct.ID) != msg.id {
		return m, nil
	}
	switch {
	case catalog.IsNotFound(msg.err):
		if m.viewState != ViewProductDetails {
			return m, nil
		}
		m.notFound = m.selectedProduct.Name + " is no longer available."
		m.notFoundBack = m.detailsFrom
		m.selectedProduct = nil
		m.viewState = ViewNotFound
	case msg.err != nil:
		m.sess.Logger.Debug("refreshing product", "id", msg.id, "err", msg.err)
	default:
		m.selectedProduct = msg.product
	}
	return m, nil
}

func (m Model) handleProductDetailsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.viewState = m.detailsFrom
		m.selectedProduct = nil
		return m, nil

	case "a", "enter":
		return m.openVariantPicker()

	case "w":
		if m.selectedProduct != nil {
			cmd := m.toggleWishlist(*m.selectedProduct)
			return m, cmd
		}

	case "c":
		m.viewState = ViewCart
		m.cartIdx = 0
	}
	return m, nil
}

// ============================================
// Variant picker
// ============================================

func (m Model) openVariantPicker() (tea.Model, tea.Cmd) {
	p := m.selectedProduct
	if p == nil {
		return m, nil
	}
	if !p.IsAvailable() {
		cmd := m.notify(p.Name+" is sold out", true)
		return m, cmd
	}

	m.variant = &variantChoice{Quantity: 1}
	m.variantForm = newVariantForm(*p, m.variant)
	m.viewState = ViewVariantPicker
	return m, m.variantForm.Init()
}

func newVariantForm(p catalog.Product, choice *variantChoice) *huh.Form {
	var fields []huh.Field

	if len(p.Sizes) > 0 {
		choice.Size = p.Sizes[0]
		fields = append(fields, huh.NewSelect[string]().
			Title("Size").
			Options(huh.NewOptions(p.Sizes...)...).
			Value(&choice.Size))
	}
	if len(p.Colors) > 0 {
		choice.Color = p.Colors[0]
		fields = append(fields, huh.NewSelect[string]().
			Title("Color").
			Options(huh.NewOptions(p.Colors...)...).
			Value(&choice.Color))
	}

	var quantities []huh.Option[int]
	for i := 1; i <= min(max(p.StockQuantity, 1), maxQuantityChoice); i++ {
		quantities = append(quantities, huh.NewOption(strconv.Itoa(i), i))
	}
	fields = append(fields, huh.NewSelect[int]().
		Title("Quantity").
		Options(quantities...).
		Value(&choice.Quantity))

	return huh.NewForm(huh.NewGroup(fields...)).
		WithShowHelp(true).
		WithShowErrors(true)
}

func (m Model) handleVariantPickerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.viewState = ViewProductDetails
		m.variantForm = nil
		return m, nil
	}
	return m.updateVariantForm(msg)
}

func (m Model) updateVariantForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.variantForm == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.variantForm, cmd = updateForm(m.variantForm, msg)
	if m.variantForm.State != huh.StateCompleted || m.selectedProduct == nil {
		return m, cmd
	}

	v := m.variant
	added := m.addToCart(*m.selectedProduct, v.Quantity, v.Size, v.Color)
	m.variantForm = nil
	m.viewState = ViewCart
	m.cartIdx = max(m.sess.Cart.Len()-1, 0)
	return m, tea.Batch(cmd, added)
}

// ============================================
// Wishlist
// ============================================

func (m Model) openWishlist() (tea.Model, tea.Cmd) {
	m.viewState = ViewWishlist
	m.loadingWishlist = true
	return m, m.loadWishlist()
}

func (m Model) handleWishlistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace", "q":
		m.viewState = ViewProductList
		m.updateProductList()
		return m, nil

	case "up", "k":
		if m.wishlistIdx > 0 {
			m.wishlistIdx--
		}

	case "down", "j":
		if m.wishlistIdx < len(m.wishlistProducts)-1 {
			m.wishlistIdx++
		}

	case "enter":
		if p, ok := m.selectedWishlistProduct(); ok {
			return m.openDetails(p, "", ViewWishlist)
		}

	case "a":
		if p, ok := m.selectedWishlistProduct(); ok {
			m.selectedProduct = &p
			m.detailsFrom = ViewWishlist
			return m.openVariantPicker()
		}

	case "d", "w":
		if p, ok := m.selectedWishlistProduct(); ok {
			ctx, cancel := newContext()
			defer cancel()
			if err := m.sess.Wishlist.Remove(ctx, string(p.ID)); err != nil {
				cmd := m.notify("Could not update your wishlist", true)
				return m, cmd
			}
			m.wishlistProducts = append(m.wishlistProducts[:m.wishlistIdx:m.wishlistIdx], m.wishlistProducts[m.wishlistIdx+1:]...)
			m.wishlistIdx = min(m.wishlistIdx, max(len(m.wishlistProducts)-1, 0))
			cmd := m.notify(p.Name+" removed from your wishlist", false)
			return m, cmd
		}

	case "c":
		m.viewState = ViewCart
		m.cartIdx = 0
	}
	return m, nil
}

func (m Model) selectedWishlistProduct() (catalog.Product, bool) {
	if m.wishlistIdx < 0 || m.wishlistIdx >= len(m.wishlistProducts) {
		return catalog.Product{}, false
	}
	return m.wishlistProducts[m.wishlistIdx], true
}

func (m Model) handleNotFoundKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace", "enter":
		m.viewState = m.notFoundBack
		m.notFound = ""
		if m.viewState == ViewWishlist {
			return m.openWishlist()
		}
		m.loadingProducts = true
		return m, m.loadProducts()
	}
	return m, nil
}

// ============================================
// Views
// ============================================

func (m Model) viewHeader() string {
	title := m.styles.HeaderTitle.Render(strings.ToUpper(m.sess.StoreName()))
	tabs := make([]string, len(listingSources))
	for i, src := range listingSources {
		if i == m.sourceIdx {
			tabs[i] = m.styles.TabActive.Render(src.Title)
		} else {
			tabs[i] = m.styles.Tab.Render(src.Title)
		}
	}
	return m.styles.Header.Render(title + "  " + strings.Join(tabs, ""))
}

func (m Model) cartInfo() string {
	if m.sess.Cart.IsEmpty() {
		return ""
	}
	return fmt.Sprintf(" • cart: %d items (%s)", m.sess.Cart.ItemCount(), m.money(m.sess.Summary().Subtotal))
}

func (m Model) viewProductList() string {
	var sb strings.Builder

	sb.WriteString(m.viewHeader())
	sb.WriteString("\n")

	var filters []string
	if m.filter.Search != "" {
		filters = append(filters, fmt.Sprintf("search %q", m.filter.Search))
	}
	if m.filter.Category != "" {
		filters = append(filters, "category: "+m.filter.Category)
	}
	filters = append(filters, "sort: "+m.filter.Sort.String())
	sb.WriteString(m.styles.Subtle.Render(strings.Join(filters, " • ")))
	sb.WriteString("\n\n")

	if m.showSearch {
		sb.WriteString("Search: ")
		sb.WriteString(m.searchInput.View())
		sb.WriteString("\n\n")
	}

	switch {
	case m.loadingProducts:
		sb.WriteString(m.spinner.View())
		sb.WriteString(" Loading products...")
	case len(m.productList.Items()) == 0:
		sb.WriteString(m.styles.Subtle.Render("Nothing here yet."))
	default:
		sb.WriteString(m.productList.View())
	}

	help := "tab source • / search • f category • s sort • enter details • w save • W wishlist • c cart • o last order • q quit"
	if m.sess.Admin.Enabled() {
		help += " • A admin"
	}
	sb.WriteString("\n")
	sb.WriteString(m.styles.HelpBar.Render(help + m.cartInfo()))

	return sb.String()
}

func (m Model) viewProductDetails() string {
	if m.selectedProduct == nil {
		return "No product selected"
	}

	var sb strings.Builder
	p := m.selectedProduct

	name := p.Name
	if m.sess.Wishlist.Contains(string(p.ID)) {
		name += " ♥"
	}
	sb.WriteString(m.styles.ProductName.Render(name))
	sb.WriteString("\n")
	sb.WriteString(m.styles.ProductPrice.Render(m.money(p.Price)))
	sb.WriteString("\n")

	switch {
	case !p.IsAvailable():
		sb.WriteString(m.styles.ProductOutOfStock.Render("✗ Sold Out"))
	case p.StockQuantity <= 3:
		sb.WriteString(warningStyle.Render(fmt.Sprintf("! Only %d left", p.StockQuantity)))
	default:
		sb.WriteString(m.styles.ProductInStock.Render("✓ In Stock"))
	}
	sb.WriteString("\n")

	var meta []string
	if p.Category != "" {
		meta = append(meta, p.Category)
	}
	if p.Brand != "" {
		meta = append(meta, p.Brand)
	}
	if len(meta) > 0 {
		sb.WriteString(m.styles.Subtle.Render(strings.Join(meta, " • ")))
		sb.WriteString("\n")
	}

	if desc := StripHTML(p.Description); desc != "" {
		sb.WriteString(m.styles.ProductDescription.Render(desc))
		sb.WriteString("\n")
	}

	if len(p.Sizes) > 0 {
		sb.WriteString(m.styles.ProductAttribute.Render("Sizes: " + strings.Join(p.Sizes, ", ")))
		sb.WriteString("\n")
	}
	if len(p.Colors) > 0 {
		sb.WriteString(m.styles.ProductAttribute.Render("Colors: " + strings.Join(p.Colors, ", ")))
		sb.WriteString("\n")
	}
	if img := p.PrimaryImage(); img != "" {
		sb.WriteString(m.styles.Subtle.Render("Image: " + hyperlink(img, truncate(img, 60))))
		sb.WriteString("\n")
	}

	help := "esc back • w save/unsave • c cart"
	if p.IsAvailable() {
		help = "a/enter add to cart • " + help
	}
	sb.WriteString(m.styles.HelpBar.Render(help))

	return m.styles.Box.Render(sb.String())
}

func (m Model) viewVariantPicker() string {
	if m.selectedProduct == nil || m.variantForm == nil {
		return "No product selected"
	}

	var sb strings.Builder
	sb.WriteString(m.styles.FormTitle.Render("Add to cart: " + m.selectedProduct.Name))
	sb.WriteString("\n")
	sb.WriteString(m.styles.ProductPrice.Render(m.money(m.selectedProduct.Price)))
	sb.WriteString("\n\n")
	sb.WriteString(m.variantForm.View())
	sb.WriteString("\n")
	sb.WriteString(m.styles.HelpBar.Render("esc back • enter/tab next • ↑/↓ choose"))

	return m.styles.Box.Render(sb.String())
}

func (m Model) viewWishlist() string {
	var sb strings.Builder

	sb.WriteString(m.styles.HeaderTitle.Render("♥ Wishlist"))
	sb.WriteString("\n\n")

	if m.loadingWishlist {
		sb.WriteString(m.spinner.View())
		sb.WriteString(" Loading wishlist...")
		return m.styles.Box.Render(sb.String())
	}

	if len(m.wishlistProducts) == 0 {
		sb.WriteString(m.styles.Subtle.Render("Your wishlist is empty"))
	}
	for i, p := range m.wishlistProducts {
		prefix := "  "
		line := fmt.Sprintf("%s  %s", p.Name, m.money(p.Price))
		if !p.IsAvailable() {
			line += "  " + m.styles.ProductOutOfStock.Render("sold out")
		}
		if i == m.wishlistIdx {
			prefix = m.styles.Highlight.Render("▸ ")
			line = m.styles.Highlight.Render(line)
		}
		sb.WriteString(prefix + line + "\n")
	}
	if m.wishlistMissing > 0 {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Subtle.Render(fmt.Sprintf("%d saved items are no longer available", m.wishlistMissing)))
		sb.WriteString("\n")
	}

	sb.WriteString(m.styles.HelpBar.Render("↑/↓ select • enter details • a add to cart • d remove • c cart • esc back"))
	return m.styles.Box.Render(sb.String())
}

func (m Model) viewNotFound() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Error.Render("Not found"))
	sb.WriteString("\n\n")
	sb.WriteString(m.notFound)
	sb.WriteString("\n")
	sb.WriteString(m.styles.HelpBar.Render("esc back"))
	return m.styles.Box.Render(sb.String())
}
