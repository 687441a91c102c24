package filter

import (
	"sort"
	"strconv"

	"musa/models"
)

func Products(items []models.Product, term, packaging string) []models.Product {
	return Apply(items, term, func(p models.Product) []string {
		return []string{p.Name, p.Description}
	}, Compact(Equals(packaging, func(p models.Product) string { return p.Packaging }))...)
}

func Orders(items []models.Order, term, status string) []models.Order {
	return Apply(items, term, func(o models.Order) []string {
		return []string{strconv.Itoa(o.ID), o.UserName, string(o.Status)}
	}, Compact(Equals(status, func(o models.Order) models.OrderStatus { return o.Status }))...)
}

func Users(items []models.User, term, status, role string) []models.User {
	return Apply(items, term, func(u models.User) []string {
		return []string{u.Name, u.Email, u.Phone, u.BusinessName}
	}, Compact(
		Equals(status, func(u models.User) models.ApprovalStatus { return u.Status }),
		Equals(role, func(u models.User) string { return u.Role }),
	)...)
}

func Inquiries(items []models.Inquiry, term, status string) []models.Inquiry {
	return Apply(items, term, func(i models.Inquiry) []string {
		return []string{i.UserName, i.ProductName, i.Message}
	}, Compact(Equals(status, func(i models.Inquiry) models.InquiryStatus { return i.Status }))...)
}

func Prices(items []models.Price, term string) []models.Price {
	return Apply(items, term, func(p models.Price) []string {
		return []string{p.ProductName, p.Price.String()}
	})
}

// SortPricesByDate returns a sorted copy; newest first when newestFirst is
// set. Entries with unparseable dates sort as the oldest.
func SortPricesByDate(prices []models.Price, newestFirst bool) []models.Price {
	out := make([]models.Price, len(prices))
	copy(out, prices)
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := models.ParseDate(out[i].Date)
		b, _ := models.ParseDate(out[j].Date)
		if newestFirst {
			return a.After(b)
		}
		return a.Before(b)
	})
	return out
}

// CurrentPrice is the most recent entry of a price series.
func CurrentPrice(prices []models.Price) (models.Price, bool) {
	if len(prices) == 0 {
		return models.Price{}, false
	}
	return SortPricesByDate(prices, true)[0], true
}
