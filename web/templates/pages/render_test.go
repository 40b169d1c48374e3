package pages

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nightlife-storefront/internal/availability"
	"nightlife-storefront/internal/checkout"
	"nightlife-storefront/internal/models"
)

func renderString(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

type fixedCart models.CartSummary

func (f fixedCart) Summary() models.CartSummary { return models.CartSummary(f) }

func TestEveryViewParses(t *testing.T) {
	for _, name := range []string{"home", "club", "availability", "cart", "checkout", "processing", "result", "login", "register", "error"} {
		assert.Contains(t, views, name)
	}
}

func TestHomePageListsClubs(t *testing.T) {
	ctx := WithCart(context.Background(), fixedCart{ItemCount: 3})
	out := renderString(t, ctx, HomePage(HomeData{
		Clubs:  []models.Club{{ID: "c1", Name: "Baum", City: "Bogota", MusicTypes: []string{"techno", "house"}}},
		Filter: models.ClubFilter{Day: "Friday"},
	}))

	assert.Contains(t, out, "<title>Clubs - Nightlife</title>")
	assert.Contains(t, out, `href="/clubs/c1"`)
	assert.Contains(t, out, "techno, house")
	assert.Contains(t, out, `<option value="Friday" selected>`)
	assert.Contains(t, out, `id="cart-count">3<`)
}

func TestClubResultsEmptyAndError(t *testing.T) {
	out := renderString(t, context.Background(), ClubResults(HomeData{}))
	assert.Contains(t, out, "No clubs match your search.")
	assert.NotContains(t, out, "<html")

	out = renderString(t, context.Background(), ClubResults(HomeData{Error: "Too many searches <b>"}))
	assert.Contains(t, out, "Too many searches &lt;b&gt;")
	assert.NotContains(t, out, "No clubs match")
}

func TestAvailabilityFragment(t *testing.T) {
	snap := availability.Snapshot{
		Date: "2024-06-01",
		Tickets: &models.AvailableTickets{
			ClubID:         "c1",
			Date:           "2024-06-01",
			GeneralTickets: []models.Ticket{{ID: "t1", Name: "Early bird", Price: decimal.NewFromInt(50000), Available: 10}},
			FreeTickets:    []models.Ticket{{ID: "t2", Name: "Guest list", Available: 0}},
		},
	}
	out := renderString(t, context.Background(), AvailabilityFragment(AvailabilityData{ClubID: "c1", Snapshot: snap}))

	assert.Contains(t, out, "General admission")
	assert.Contains(t, out, "$50,000")
	assert.Contains(t, out, `name="ticket_id" value="t1"`)
	assert.Contains(t, out, `name="date" value="2024-06-01"`)
	assert.Contains(t, out, "Sold out")
	assert.NotContains(t, out, "Event tickets")

	out = renderString(t, context.Background(), AvailabilityFragment(AvailabilityData{
		ClubID:   "c1",
		Snapshot: availability.Snapshot{Date: "2024-06-02", Error: "boom"},
	}))
	assert.Contains(t, out, "boom")

	out = renderString(t, context.Background(), AvailabilityFragment(AvailabilityData{
		ClubID:   "c1",
		Snapshot: availability.Snapshot{Date: "2024-06-03", Tickets: &models.AvailableTickets{Date: "2024-06-03"}},
	}))
	assert.Contains(t, out, "Nothing on sale for Mon, Jun 3.")
}

func TestCartFragment(t *testing.T) {
	items := []models.CartItem{
		{ID: "l1", ItemType: models.ItemTypeTicket, Quantity: 2, Date: "2024-06-01", Subtotal: decimal.NewFromInt(100000), Ticket: &models.Ticket{Name: "VIP"}},
	}
	out := renderString(t, context.Background(), CartFragment(CartData{
		Items:   items,
		Summary: models.Summarize(items),
	}))

	assert.Contains(t, out, `id="cart"`)
	assert.Contains(t, out, "VIP")
	assert.Contains(t, out, `hx-post="/cart/items/l1"`)
	assert.Contains(t, out, `value="3"`)
	assert.Contains(t, out, "$100,000")

	out = renderString(t, context.Background(), CartFragment(CartData{}))
	assert.Contains(t, out, "Your cart is empty.")
}

func TestConflictCarriesForm(t *testing.T) {
	out := renderString(t, context.Background(), CartConflict(ConflictData{
		Message: "Your cart has tickets for another date.",
		Form:    map[string]string{"ticket_id": "t9"},
	}))
	assert.Contains(t, out, `name="ticket_id" value="t9"`)
	assert.Contains(t, out, `name="confirm_replace" value="1"`)
}

func TestProcessingStatusPolls(t *testing.T) {
	out := renderString(t, context.Background(), ProcessingStatus(ProcessingData{
		TransactionID: "tx-1",
		Outcome:       checkout.Outcome{Status: models.TransactionPending, SubscriptionError: "stream closed"},
	}))
	assert.Contains(t, out, `hx-get="/checkout/processing/tx-1/status"`)
	assert.Contains(t, out, "Live updates are unavailable")
}

func TestResultAndErrorPages(t *testing.T) {
	out := renderString(t, context.Background(), ResultPage(ResultData{
		Result:  "success",
		Details: &models.TransactionDetails{TransactionID: "tx-1", Email: "a@b.co", Amount: decimal.NewFromInt(75000), Currency: "COP"},
	}))
	assert.Contains(t, out, "a@b.co")
	assert.Contains(t, out, "$75,000 COP")

	out = renderString(t, context.Background(), ErrorPage("Not found", "No such club"))
	assert.Contains(t, out, "<h1>Not found</h1>")
	assert.Contains(t, out, "No such club")
}

func TestLoginPageShowsFieldErrors(t *testing.T) {
	out := renderString(t, context.Background(), LoginPage(AuthData{
		Form:   map[string]string{"email": "bad"},
		Errors: map[string][]string{"email": {"Please enter a valid email address"}},
	}))
	assert.Contains(t, out, `value="bad"`)
	assert.Contains(t, out, "Please enter a valid email address")
}
