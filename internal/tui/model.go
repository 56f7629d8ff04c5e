package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/thomas/mayhem-terminal-go/internal/admin"
	"github.com/thomas/mayhem-terminal-go/internal/auth"
	"github.com/thomas/mayhem-terminal-go/internal/catalog"
	"github.com/thomas/mayhem-terminal-go/internal/checkout"
	"github.com/thomas/mayhem-terminal-go/internal/session"
)

// ViewState represents the current view in the application.
type ViewState int

const (
	ViewProductList ViewState = iota
	ViewProductDetails
	ViewVariantPicker
	ViewWishlist
	ViewCart
	ViewCheckout
	ViewOrderConfirmation
	ViewNotFound
	ViewAdminLogin
	ViewAdminTables
	ViewAdminList
	ViewAdminForm
)

const (
	requestTimeout = 10 * time.Second
	noticeDuration = 4 * time.Second
)

// listingSource is one storefront tab.
type listingSource struct {
	Table string
	Title string
}

var listingSources = []listingSource{
	{Table: catalog.TableProducts, Title: "Shop"},
	{Table: catalog.TableNewArrivals, Title: "New Arrivals"},
	{Table: catalog.TableFeaturedCollection, Title: "Featured"},
	{Table: catalog.TableCollections, Title: "Collections"},
}

// Deps are the collaborators of one connection's model.
type Deps struct {
	Session    *session.Session
	Storefront *catalog.Storefront
	// Admin may be nil when the admin panel is disabled.
	Admin *admin.Service
	// ExportDir receives admin .xlsx exports.
	ExportDir string
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Dependencies
	sess      *session.Session
	store     *catalog.Storefront
	admin     *admin.Service
	exportDir string

	// View state
	viewState ViewState
	width     int
	height    int
	styles    Styles
	spinner   spinner.Model

	// Product list view
	productList     list.Model
	sourceIdx       int
	products        []catalog.Product
	categories      []string
	filter          catalog.ListFilter
	searchInput     textinput.Model
	showSearch      bool
	loadingProducts bool

	// Product details and variant picker
	selectedProduct *catalog.Product
	detailsTable    string
	detailsFrom     ViewState
	variant         *variantChoice
	variantForm     *huh.Form

	// Wishlist view
	wishlistProducts []catalog.Product
	wishlistMissing  int
	wishlistIdx      int
	loadingWishlist  bool

	// Cart view
	cartIdx    int
	promoInput textinput.Model
	showPromo  bool

	// Checkout
	pipeline     *checkout.Pipeline
	checkoutForm *huh.Form
	checkoutStep checkout.Step
	placeOrder   *bool
	checkoutBusy bool

	// Order confirmation
	lastOrder  *checkout.LastOrder
	handoffURL string

	// Not found view
	notFound     string
	notFoundBack ViewState

	// Admin
	adminLogin         *loginFields
	adminLoginForm     *huh.Form
	adminEntityIdx     int
	adminPage          admin.Page
	adminTable         table.Model
	adminSearch        textinput.Model
	adminSearching     bool
	adminLoading       bool
	adminForm          *huh.Form
	adminValues        map[string]*string
	adminEditID        string
	adminConfirmDelete bool

	// Notifications
	notice      string
	noticeIsErr bool
	noticeID    int
}

// productItem implements list.Item for products.
type productItem struct {
	product    catalog.Product
	wishlisted bool
	money      func(float64) string
}

func (i productItem) Title() string {
	if i.wishlisted {
		return i.product.Name + " ♥"
	}
	return i.product.Name
}

func (i productItem) Description() string {
	stock := "In Stock"
	switch {
	case i.product.SoldOut || i.product.StockQuantity <= 0:
		stock = "Sold Out"
	case i.product.StockQuantity <= 3:
		stock = fmt.Sprintf("Only %d left", i.product.StockQuantity)
	}
	parts := []string{i.money(i.product.Price), stock}
	if i.product.Category != "" {
		parts = append(parts, i.product.Category)
	}
	return strings.Join(parts, " • ")
}

func (i productItem) FilterValue() string {
	return i.product.Name
}

// Messages
type (
	productsLoadedMsg struct {
		table      string
		products   []catalog.Product
		categories []string
	}
	productRefreshedMsg struct {
		id      string
		product *catalog.Product
		err     error
	}
	wishlistLoadedMsg struct {
		products []catalog.Product
		missing  int
	}
	cartProductMsg struct {
		product catalog.Product
		size    string
		color   string
	}
	checkoutStepMsg struct {
		handoff *checkout.Handoff
		err     error
	}
	lastOrderLoadedMsg struct {
		order *checkout.LastOrder
	}
	adminLoggedInMsg struct {
		email string
	}
	adminPageMsg struct {
		page admin.Page
	}
	adminSavedMsg struct {
		action string
		id     string
	}
	adminExportedMsg struct {
		path string
		rows int
	}
	noticeExpiredMsg struct {
		id int
	}
	errMsg struct {
		err error
	}
)

// NewModel creates the model for one connected shopper.
func NewModel(deps Deps) Model {
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorBlood)

	search := textinput.New()
	search.Placeholder = "Search products..."
	search.CharLimit = 50
	search.Width = 30

	promo := textinput.New()
	promo.Placeholder = "Promo code"
	promo.CharLimit = 20
	promo.Width = 20

	adminSearch := textinput.New()
	adminSearch.Placeholder = "Search..."
	adminSearch.CharLimit = 50
	adminSearch.Width = 30

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(colorHighlight).
		BorderLeftForeground(colorHighlight)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(colorSteel).
		BorderLeftForeground(colorHighlight)

	productList := list.New([]list.Item{}, delegate, 0, 0)
	productList.SetShowHelp(false)
	productList.SetShowTitle(false)
	productList.SetFilteringEnabled(false)

	return Model{
		sess:            deps.Session,
		store:           deps.Storefront,
		admin:           deps.Admin,
		exportDir:       deps.ExportDir,
		viewState:       ViewProductList,
		styles:          styles,
		loadingProducts: true,
		spinner:         sp,
		productList:     productList,
		searchInput:     search,
		promoInput:      promo,
		adminSearch:     adminSearch,
		adminTable:      newAdminTable(),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.loadProducts(),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.productList.SetSize(msg.Width-6, max(msg.Height-12, 4))
		m.adminTable.SetWidth(msg.Width - 8)
		m.adminTable.SetHeight(max(msg.Height-14, 3))
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case noticeExpiredMsg:
		if msg.id == m.noticeID {
			m.notice = ""
		}
		return m, nil

	case productsLoadedMsg:
		if msg.table != m.source().Table {
			return m, nil
		}
		m.loadingProducts = false
		m.products = msg.products
		m.categories = msg.categories
		m.updateProductList()
		return m, nil

	case productRefreshedMsg:
		return m.handleProductRefreshed(msg)

	case wishlistLoadedMsg:
		m.loadingWishlist = false
		m.wishlistProducts = msg.products
		m.wishlistMissing = msg.missing
		m.wishlistIdx = min(m.wishlistIdx, max(len(msg.products)-1, 0))
		return m, nil

	case cartProductMsg:
		cmd := m.addToCart(msg.product, 1, msg.size, msg.color)
		return m, cmd

	case checkoutStepMsg:
		return m.handleCheckoutStep(msg)

	case lastOrderLoadedMsg:
		m.lastOrder = msg.order
		m.handoffURL = m.sess.HandoffLink(*msg.order)
		m.viewState = ViewOrderConfirmation
		return m, nil

	case adminLoggedInMsg:
		m.adminLoginForm = nil
		m.viewState = ViewAdminTables
		cmd := m.notify("Signed in as "+msg.email, false)
		return m, cmd

	case adminPageMsg:
		m.adminLoading = false
		m.adminPage = msg.page
		m.fillAdminTable()
		return m, nil

	case adminSavedMsg:
		m.adminForm = nil
		m.adminValues = nil
		m.viewState = ViewAdminList
		m.adminLoading = true
		notice := m.notify(fmt.Sprintf("%s %s #%s", m.adminEntity().Title, msg.action, msg.id), false)
		return m, tea.Batch(notice, m.loadAdminPage(m.adminPage.Page))

	case adminExportedMsg:
		m.adminLoading = false
		cmd := m.notify(fmt.Sprintf("Exported %d rows to %s", msg.rows, msg.path), false)
		return m, cmd

	case errMsg:
		return m.handleError(msg.err)
	}

	return m.updateActiveForm(msg)
}

// handleError routes an async failure to the view that can explain it.
func (m Model) handleError(err error) (tea.Model, tea.Cmd) {
	m.loadingProducts = false
	m.loadingWishlist = false
	m.adminLoading = false

	if errors.Is(err, auth.ErrUnauthorized) {
		m.adminForm = nil
		m.adminValues = nil
		m.viewState = ViewAdminLogin
		form := m.initLoginForm()
		notice := m.notify("Please sign in to the admin panel", true)
		return m, tea.Batch(form, notice)
	}

	text := errorText(err)
	var formErr admin.FormErrors
	if errors.As(err, &formErr) {
		text = capitalize(formErr.Error())
	}

	// A completed huh form would resubmit on the next key.
	var form tea.Cmd
	switch m.viewState {
	case ViewAdminForm:
		form = m.rebuildAdminForm()
	case ViewAdminLogin:
		form = m.initLoginForm()
	}
	notice := m.notify(text, true)
	return m, tea.Batch(form, notice)
}

// errorText turns an error into a shopper-facing sentence.
func errorText(err error) string {
	var apiErr catalog.APIError
	if errors.As(err, &apiErr) {
		return "The store could not complete the request: " + apiErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The store took too long to answer, please try again"
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// notify shows a transient message in the footer.
func (m *Model) notify(text string, isErr bool) tea.Cmd {
	m.noticeID++
	m.notice = text
	m.noticeIsErr = isErr
	id := m.noticeID
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: id}
	})
}

// updateActiveForm forwards non-key messages to the form of the current
// view so huh can run its own commands.
func (m Model) updateActiveForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.viewState {
	case ViewVariantPicker:
		return m.updateVariantForm(msg)
	case ViewCheckout:
		return m.updateCheckoutForm(msg)
	case ViewAdminLogin:
		return m.updateLoginForm(msg)
	case ViewAdminForm:
		return m.updateAdminForm(msg)
	case ViewProductList:
		if m.showSearch {
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.productList, cmd = m.productList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// updateForm forwards msg to f.
func updateForm(f *huh.Form, msg tea.Msg) (*huh.Form, tea.Cmd) {
	model, cmd := f.Update(msg)
	if next, ok := model.(*huh.Form); ok {
		f = next
	}
	return f, cmd
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.viewState {
	case ViewProductList:
		return m.handleProductListKeys(msg)
	case ViewProductDetails:
		return m.handleProductDetailsKeys(msg)
	case ViewVariantPicker:
		return m.handleVariantPickerKeys(msg)
	case ViewWishlist:
		return m.handleWishlistKeys(msg)
	case ViewCart:
		return m.handleCartKeys(msg)
	case ViewCheckout:
		return m.handleCheckoutKeys(msg)
	case ViewOrderConfirmation:
		return m.handleOrderConfirmationKeys(msg)
	case ViewNotFound:
		return m.handleNotFoundKeys(msg)
	case ViewAdminLogin:
		return m.handleAdminLoginKeys(msg)
	case ViewAdminTables:
		return m.handleAdminTablesKeys(msg)
	case ViewAdminList:
		return m.handleAdminListKeys(msg)
	case ViewAdminForm:
		return m.handleAdminFormKeys(msg)
	}
	return m, nil
}

// View renders the current view.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string

	switch m.viewState {
	case ViewProductList:
		content = m.viewProductList()
	case ViewProductDetails:
		content = m.viewProductDetails()
	case ViewVariantPicker:
		content = m.viewVariantPicker()
	case ViewWishlist:
		content = m.viewWishlist()
	case ViewCart:
		content = m.viewCart()
	case ViewCheckout:
		content = m.viewCheckout()
	case ViewOrderConfirmation:
		content = m.viewOrderConfirmation()
	case ViewNotFound:
		content = m.viewNotFound()
	case ViewAdminLogin:
		content = m.viewAdminLogin()
	case ViewAdminTables:
		content = m.viewAdminTables()
	case ViewAdminList:
		content = m.viewAdminList()
	case ViewAdminForm:
		content = m.viewAdminForm()
	}

	if m.notice != "" {
		style := m.styles.Notice
		if m.noticeIsErr {
			style = m.styles.NoticeError
		}
		content += "\n" + style.Render(m.notice)
	}

	return m.styles.App.Render(content)
}

func (m Model) money(v float64) string {
	return m.sess.FormatMoney(v)
}

// hyperlink wraps text in an OSC 8 terminal hyperlink to url.
func hyperlink(url, text string) string {
	return "\x1b]8;;" + url + "\x1b\\" + text + "\x1b]8;;\x1b\\"
}

func newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// GetViewState returns the current view state (for testing).
func (m Model) GetViewState() ViewState {
	return m.viewState
}

// GetSelectedProduct returns the currently selected product (for testing).
func (m Model) GetSelectedProduct() *catalog.Product {
	return m.selectedProduct
}

// GetNotice returns the current notification text (for testing).
func (m Model) GetNotice() string {
	return m.notice
}
