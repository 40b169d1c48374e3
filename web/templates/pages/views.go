package pages

import (
	"github.com/a-h/templ"

	"nightlife-storefront/internal/availability"
	"nightlife-storefront/internal/checkout"
	"nightlife-storefront/internal/models"
)

type HomeData struct {
	Clubs  []models.Club
	Ads    []models.Ad
	Filter models.ClubFilter
	Error  string
}

func HomePage(d HomeData) templ.Component {
	return render("home", "page", "Clubs", d)
}

// ClubResults is the search results fragment swapped into the home page.
func ClubResults(d HomeData) templ.Component {
	return render("home", "results", "", d)
}

type ClubData struct {
	Club       models.Club
	Events     []models.Event
	Calendar   []models.CalendarDay
	// Tickets is the club's ticket catalogue across dates.
	Tickets    []models.Ticket
	Menu       []models.MenuCategory
	Date       string
	MapsURL    string
	EventError string
	MenuError  string
}

func ClubPage(d ClubData) templ.Component {
	return render("club", "page", d.Club.Name, d)
}

type AvailabilityData struct {
	ClubID   string
	Snapshot availability.Snapshot
	Error    string
}

// TicketGroup is one availability bucket as rendered.
type TicketGroup struct {
	Title   string
	ClubID  string
	Date    string
	Tickets []models.Ticket
}

// Groups returns the event, general and free buckets in display order.
func (d AvailabilityData) Groups() []TicketGroup {
	t := d.Snapshot.Tickets
	if t == nil {
		return nil
	}
	return []TicketGroup{
		{Title: "Event tickets", ClubID: d.ClubID, Date: t.Date, Tickets: t.EventTickets},
		{Title: "General admission", ClubID: d.ClubID, Date: t.Date, Tickets: t.GeneralTickets},
		{Title: "Free entry", ClubID: d.ClubID, Date: t.Date, Tickets: t.FreeTickets},
	}
}

func AvailabilityFragment(d AvailabilityData) templ.Component {
	return render("availability", "availability", "", d)
}

type CartData struct {
	Items   []models.CartItem
	Summary models.CartSummary
	Totals  models.CartTotals
	Error   string
}

func CartPage(d CartData) templ.Component {
	return render("cart", "page", "Your cart", d)
}

// CartFragment re-renders the cart contents after an htmx mutation.
func CartFragment(d CartData) templ.Component {
	return render("cart", "cart", "", d)
}

// ConflictData asks the user to confirm replacing the cart contents.
type ConflictData struct {
	Message string
	Form    map[string]string
}

func CartConflict(d ConflictData) templ.Component {
	return render("cart", "conflict", "", d)
}

// Flash is the small confirmation shown after adding to the cart.
func Flash(message string) templ.Component {
	return render("cart", "flash", "", message)
}

type CheckoutData struct {
	Items   []models.CartItem
	Summary models.CartSummary
	Totals  models.CartTotals
	Form    map[string]string
	Errors  map[string][]string
	Error   string
}

func CheckoutPage(d CheckoutData) templ.Component {
	return render("checkout", "page", "Checkout", d)
}

type ProcessingData struct {
	TransactionID string
	Outcome       checkout.Outcome
}

func ProcessingPage(d ProcessingData) templ.Component {
	return render("processing", "page", "Processing payment", d)
}

func ProcessingStatus(d ProcessingData) templ.Component {
	return render("processing", "status", "", d)
}

type ResultData struct {
	Result  string
	Details *models.TransactionDetails
}

func ResultPage(d ResultData) templ.Component {
	return render("result", "page", "Order "+d.Result, d)
}

type AuthData struct {
	Form   map[string]string
	Errors map[string][]string
	Error  string
	Next   string
}

func LoginPage(d AuthData) templ.Component {
	return render("login", "page", "Sign in", d)
}

func RegisterPage(d AuthData) templ.Component {
	return render("register", "page", "Create account", d)
}

// ErrorPage is a full page with a single message.
func ErrorPage(title, message string) templ.Component {
	return render("error", "page", title, message)
}
