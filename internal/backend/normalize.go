package backend

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"nightlife-storefront/internal/models"
)

// The backend is loose about field names and types: ids arrive as "id" or
// "_id", prices as numbers or strings, lists wrapped in {"data": ...}. These
// helpers read such JSON (decoded with UseNumber) into typed DTOs.

type object = map[string]any

func asObject(v any) object {
	o, _ := v.(map[string]any)
	return o
}

func asArray(v any) []any {
	a, _ := v.([]any)
	return a
}

// unwrap descends into the first wrapper key present.
func unwrap(v any, keys ...string) any {
	o := asObject(v)
	if o == nil {
		return v
	}
	for _, k := range keys {
		if inner, ok := o[k]; ok && inner != nil {
			return inner
		}
	}
	return v
}

// list accepts a bare array or an object wrapping one.
func list(v any, keys ...string) []any {
	if a := asArray(v); a != nil {
		return a
	}
	return asArray(unwrap(v, keys...))
}

func first(o object, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := o[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func str(o object, keys ...string) string {
	v, ok := first(o, keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func num(o object, keys ...string) (decimal.Decimal, bool) {
	v, ok := first(o, keys...)
	if !ok {
		return decimal.Zero, false
	}
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case string:
		clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(t)
		if clean == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(clean)
		return d, err == nil
	}
	return decimal.Zero, false
}

func optNum(o object, keys ...string) *decimal.Decimal {
	if d, ok := num(o, keys...); ok {
		return &d
	}
	return nil
}

func integer(o object, keys ...string) int {
	d, ok := num(o, keys...)
	if !ok {
		return 0
	}
	return int(d.IntPart())
}

func boolOr(o object, def bool, keys ...string) bool {
	v, ok := first(o, keys...)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return b
	case json.Number:
		return t.String() != "0"
	case float64:
		return t != 0
	}
	return def
}

func strList(o object, keys ...string) []string {
	v, ok := first(o, keys...)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		var out []string
		for _, p := range strings.Split(t, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	case []any:
		var out []string
		for _, p := range t {
			if s, ok := p.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

// dateOnly trims ISO timestamps ("2024-06-01T00:00:00.000Z") to the date part.
func dateOnly(s string) string {
	if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
		return s[:10]
	}
	return s
}

func nestedID(o object, key string) string {
	return str(asObject(o[key]), "id", "_id")
}

// NormalizeClub maps a backend club object.
func NormalizeClub(v any) models.Club {
	o := asObject(v)
	return models.Club{
		ID:              str(o, "id", "_id", "clubId"),
		Name:            str(o, "name", "clubName"),
		Description:     str(o, "description"),
		Address:         str(o, "address", "location"),
		City:            str(o, "city"),
		ProfileImageURL: str(o, "profileImageUrl", "profile_image_url", "imageUrl", "image"),
		GoogleMapsURL:   str(o, "googleMaps", "googleMapsUrl", "google_maps_url", "mapsUrl"),
		MusicTypes:      strList(o, "musicType", "musicTypes", "music_type"),
		OpenDays:        strList(o, "openDays", "open_days"),
		OpenHours:       str(o, "openHours", "open_hours"),
		DressCode:       str(o, "dressCode", "dress_code"),
		MinimumAge:      integer(o, "minimumAge", "minimum_age", "minAge"),
		Priority:        integer(o, "priority"),
		IsActive:        boolOr(o, true, "isActive", "is_active", "active"),
	}
}

func NormalizeClubs(v any) []models.Club {
	raw := list(v, "clubs", "data", "items", "results")
	out := make([]models.Club, 0, len(raw))
	for _, r := range raw {
		if c := NormalizeClub(r); c.ID != "" {
			out = append(out, c)
		}
	}
	return out
}

func NormalizeEvent(v any) models.Event {
	o := asObject(v)
	return models.Event{
		ID:            str(o, "id", "_id", "eventId"),
		ClubID:        firstNonEmpty(str(o, "clubId", "club_id"), nestedID(o, "club")),
		Name:          str(o, "name", "title"),
		Description:   str(o, "description"),
		BannerURL:     str(o, "bannerUrl", "banner_url", "imageUrl", "image"),
		AvailableDate: dateOnly(str(o, "availableDate", "available_date", "date")),
		OpenHours:     str(o, "openHours", "open_hours"),
	}
}

func NormalizeEvents(v any) []models.Event {
	raw := list(v, "events", "data", "items")
	out := make([]models.Event, 0, len(raw))
	for _, r := range raw {
		if e := NormalizeEvent(r); e.ID != "" {
			out = append(out, e)
		}
	}
	return out
}

func NormalizeTicket(v any) models.Ticket {
	o := asObject(v)
	price, _ := num(o, "price", "basePrice", "base_price")
	t := models.Ticket{
		ID:           str(o, "id", "_id", "ticketId"),
		ClubID:       firstNonEmpty(str(o, "clubId", "club_id"), nestedID(o, "club")),
		EventID:      firstNonEmpty(str(o, "eventId", "event_id"), nestedID(o, "event")),
		Name:         str(o, "name", "title"),
		Description:  str(o, "description"),
		Category:     models.TicketCategory(strings.ToLower(str(o, "category", "type", "ticketType"))),
		Price:        price,
		DynamicPrice: optNum(o, "dynamicPrice", "dynamic_price", "currentPrice"),
		Available:    integer(o, "available", "availableQuantity", "available_quantity", "quantity", "stock"),
		MaxPerPerson: integer(o, "maxPerPerson", "max_per_person", "maxPerUser"),
		Date:         dateOnly(str(o, "availableDate", "available_date", "date")),
		IsActive:     boolOr(o, true, "isActive", "is_active", "active"),
		IncludesMenu: boolOr(o, false, "includesMenuItem", "includes_menu_item"),
	}
	if t.Category == "" {
		switch {
		case t.EventID != "":
			t.Category = models.TicketEvent
		case price.IsZero():
			t.Category = models.TicketFree
		default:
			t.Category = models.TicketGeneral
		}
	}
	return t
}

func NormalizeTickets(v any) []models.Ticket {
	raw := list(v, "tickets", "data", "items")
	out := make([]models.Ticket, 0, len(raw))
	for _, r := range raw {
		if t := NormalizeTicket(r); t.ID != "" {
			out = append(out, t)
		}
	}
	return out
}

func NormalizeVariant(v any) models.MenuVariant {
	o := asObject(v)
	price, _ := num(o, "price")
	return models.MenuVariant{
		ID:           str(o, "id", "_id", "variantId"),
		Name:         str(o, "name", "label"),
		Price:        price,
		DynamicPrice: optNum(o, "dynamicPrice", "dynamic_price"),
	}
}

func NormalizeMenuItem(v any) models.MenuItem {
	o := asObject(v)
	price, _ := num(o, "price", "basePrice")
	item := models.MenuItem{
		ID:           str(o, "id", "_id", "menuItemId"),
		ClubID:       firstNonEmpty(str(o, "clubId", "club_id"), nestedID(o, "club")),
		Name:         str(o, "name"),
		Description:  str(o, "description"),
		CategoryName: firstNonEmpty(str(o, "categoryName", "category_name"), str(asObject(o["category"]), "name"), str(o, "category")),
		ImageURL:     str(o, "imageUrl", "image_url", "image"),
		Price:        price,
		DynamicPrice: optNum(o, "dynamicPrice", "dynamic_price"),
		IsActive:     boolOr(o, true, "isActive", "is_active"),
	}
	for _, raw := range list(o["variants"], "data") {
		if variant := NormalizeVariant(raw); variant.ID != "" {
			item.Variants = append(item.Variants, variant)
		}
	}
	item.HasVariants = boolOr(o, len(item.Variants) > 0, "hasVariants", "has_variants")
	return item
}

func NormalizeMenu(v any) []models.MenuItem {
	raw := list(v, "menuItems", "items", "menu", "data")
	out := make([]models.MenuItem, 0, len(raw))
	for _, r := range raw {
		if m := NormalizeMenuItem(r); m.ID != "" {
			out = append(out, m)
		}
	}
	return out
}

func normalizeItemType(s string, o object) models.ItemType {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "ticket":
		return models.ItemTypeTicket
	case "menu", "menuitem":
		return models.ItemTypeMenu
	}
	if _, ok := first(o, "ticket", "ticketId"); ok {
		return models.ItemTypeTicket
	}
	if _, ok := first(o, "menuItem", "menu_item", "menuItemId"); ok {
		return models.ItemTypeMenu
	}
	return ""
}

// NormalizeCartItem maps one unified-cart line. Missing prices fall back to
// the payload's price, and a missing subtotal is effective price × quantity.
func NormalizeCartItem(v any) models.CartItem {
	o := asObject(v)
	item := models.CartItem{
		ID:       str(o, "id", "_id", "lineId", "cartItemId"),
		ItemType: normalizeItemType(str(o, "itemType", "item_type", "type"), o),
		Quantity: integer(o, "quantity", "qty"),
		Date:     dateOnly(str(o, "date", "selectedDate", "eventDate")),
		ClubID:   str(o, "clubId", "club_id"),
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	if raw, ok := first(o, "ticket"); ok {
		t := NormalizeTicket(raw)
		item.Ticket = &t
	}
	if raw, ok := first(o, "menuItem", "menu_item", "menu"); ok {
		m := NormalizeMenuItem(raw)
		item.MenuItem = &m
	}
	if raw, ok := first(o, "variant", "menuItemVariant"); ok {
		variant := NormalizeVariant(raw)
		item.Variant = &variant
	} else if item.MenuItem != nil {
		if id := str(o, "variantId", "variant_id"); id != "" {
			if variant, ok := item.MenuItem.Variant(id); ok {
				item.Variant = &variant
			}
		}
	}

	if item.ClubID == "" {
		switch {
		case item.Ticket != nil:
			item.ClubID = item.Ticket.ClubID
		case item.MenuItem != nil:
			item.ClubID = item.MenuItem.ClubID
		}
	}
	if item.Date == "" && item.Ticket != nil {
		item.Date = item.Ticket.Date
	}

	unit, ok := num(o, "unitPrice", "unit_price", "priceAtPurchase", "price")
	if !ok {
		unit = payloadPrice(item)
	}
	item.UnitPrice = unit
	item.DynamicPrice = optNum(o, "dynamicPrice", "dynamic_price")
	if item.DynamicPrice == nil {
		item.DynamicPrice = payloadDynamicPrice(item)
	}

	if subtotal, ok := num(o, "subtotal", "lineTotal", "line_total", "total"); ok {
		item.Subtotal = subtotal
	} else {
		item.Subtotal = item.EffectivePrice().Mul(decimal.NewFromInt(int64(item.Quantity)))
	}
	return item
}

func payloadPrice(item models.CartItem) decimal.Decimal {
	switch {
	case item.Variant != nil:
		return item.Variant.Price
	case item.MenuItem != nil:
		return item.MenuItem.Price
	case item.Ticket != nil:
		return item.Ticket.Price
	}
	return decimal.Zero
}

func payloadDynamicPrice(item models.CartItem) *decimal.Decimal {
	switch {
	case item.Variant != nil:
		return item.Variant.DynamicPrice
	case item.MenuItem != nil:
		return item.MenuItem.DynamicPrice
	case item.Ticket != nil:
		return item.Ticket.DynamicPrice
	}
	return nil
}

func NormalizeCartItems(v any) []models.CartItem {
	raw := list(v, "items", "cart", "data", "lines")
	out := make([]models.CartItem, 0, len(raw))
	for _, r := range raw {
		if item := NormalizeCartItem(r); item.ID != "" && item.ItemType != "" {
			out = append(out, item)
		}
	}
	return out
}

func NormalizeCartTotals(v any) models.CartTotals {
	o := asObject(unwrap(v, "summary", "data"))
	subtotal, _ := num(o, "subtotal", "subTotal")
	fee, _ := num(o, "serviceFee", "service_fee", "operationalCosts", "fees")
	discount, _ := num(o, "discount", "discounts")
	total, ok := num(o, "total", "grandTotal", "total_amount")
	if !ok {
		total = subtotal.Add(fee).Sub(discount)
	}
	return models.CartTotals{
		Subtotal:   subtotal,
		ServiceFee: fee,
		Discount:   discount,
		Total:      total,
		ItemCount:  integer(o, "itemCount", "item_count", "count"),
	}
}

// NormalizeAvailableTickets maps the per-date availability snapshot. When the
// backend sends a flat ticket list instead of buckets, tickets are bucketed by
// category.
func NormalizeAvailableTickets(v any, clubID, date string) *models.AvailableTickets {
	o := asObject(unwrap(v, "data"))
	out := &models.AvailableTickets{
		ClubID: clubID,
		Date:   firstNonEmpty(dateOnly(str(o, "dateSelected", "date", "selectedDate")), date),
	}
	if raw, ok := first(o, "event"); ok {
		if e := NormalizeEvent(raw); e.ID != "" {
			out.Event = &e
		}
	}

	_, hasBuckets := first(o, "eventTickets", "ticketsForEvent", "generalTickets", "general", "freeTickets", "free")
	if hasBuckets {
		out.EventTickets = NormalizeTickets(firstValue(o, "eventTickets", "ticketsForEvent"))
		out.GeneralTickets = NormalizeTickets(firstValue(o, "generalTickets", "general"))
		out.FreeTickets = NormalizeTickets(firstValue(o, "freeTickets", "free"))
		return out
	}

	for _, t := range NormalizeTickets(firstValue(o, "tickets", "availableTickets")) {
		switch t.Category {
		case models.TicketEvent:
			out.EventTickets = append(out.EventTickets, t)
		case models.TicketFree:
			out.FreeTickets = append(out.FreeTickets, t)
		default:
			out.GeneralTickets = append(out.GeneralTickets, t)
		}
	}
	return out
}

func NormalizeCalendar(v any) []models.CalendarDay {
	raw := list(v, "dates", "calendar", "data", "events")
	out := make([]models.CalendarDay, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, models.CalendarDay{Date: dateOnly(s)})
			continue
		}
		o := asObject(r)
		day := models.CalendarDay{
			Date:    dateOnly(str(o, "date", "availableDate")),
			EventID: firstNonEmpty(str(o, "eventId", "event_id"), nestedID(o, "event")),
			Name:    str(o, "name", "eventName"),
		}
		day.HasEvent = boolOr(o, day.EventID != "", "hasEvent", "has_event")
		if day.Date != "" {
			out = append(out, day)
		}
	}
	return out
}

func NormalizeAds(v any) []models.Ad {
	raw := list(v, "ads", "data", "items")
	out := make([]models.Ad, 0, len(raw))
	for _, r := range raw {
		o := asObject(r)
		ad := models.Ad{
			ID:        str(o, "id", "_id"),
			ImageURL:  str(o, "imageUrl", "image_url", "image"),
			TargetURL: str(o, "targetUrl", "target_url", "link"),
			ClubID:    firstNonEmpty(str(o, "clubId", "club_id"), nestedID(o, "club")),
			Priority:  integer(o, "priority"),
		}
		if ad.ImageURL != "" {
			out = append(out, ad)
		}
	}
	return out
}

func NormalizeStatusUpdate(v any) models.StatusUpdate {
	o := asObject(unwrap(v, "data", "transaction"))
	return models.StatusUpdate{
		TransactionID: str(o, "transactionId", "transaction_id", "id"),
		Status:        models.TransactionStatus(strings.ToUpper(str(o, "status", "state"))),
		Message:       str(o, "message", "statusMessage", "status_message"),
		Reference:     str(o, "reference", "paymentReference"),
		Amount:        optNum(o, "amount", "totalPaid"),
	}
}

func NormalizeCheckoutSession(v any) models.CheckoutSession {
	o := asObject(unwrap(v, "data"))
	amount, _ := num(o, "amount", "total")
	status := models.TransactionStatus(strings.ToUpper(str(o, "status")))
	if status == "" {
		status = models.TransactionPending
	}
	return models.CheckoutSession{
		TransactionID: str(o, "transactionId", "transaction_id", "id"),
		RedirectURL:   str(o, "redirectUrl", "redirect_url", "checkoutUrl", "paymentUrl"),
		Status:        status,
		Amount:        amount,
		Currency:      firstNonEmpty(str(o, "currency"), "COP"),
		Reference:     str(o, "reference"),
	}
}

func NormalizeUser(v any) *models.User {
	o := asObject(unwrap(v, "user", "data"))
	u := &models.User{
		ID:        str(o, "id", "_id", "userId"),
		Email:     str(o, "email"),
		FirstName: str(o, "firstName", "first_name", "name"),
		LastName:  str(o, "lastName", "last_name"),
		Role:      str(o, "role"),
	}
	if u.ID == "" && u.Email == "" {
		return nil
	}
	return u
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstValue(o object, keys ...string) any {
	v, _ := first(o, keys...)
	return v
}
