package polygon

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/signalist/signalist/pkg/models"
)

// validArticle reports whether a raw article has the fields a NewsArticle needs.
func validArticle(a newsArticle) bool {
	return a.Title != "" && a.ArticleURL != "" && a.Publisher.Name != ""
}

// formatArticle converts a validated provider article. index is its position
// in the output list and becomes the id when the provider id is not a
// positive integer.
func formatArticle(a newsArticle, index int) models.NewsArticle {
	id, err := strconv.Atoi(strings.TrimSpace(a.ID))
	if err != nil || id <= 0 {
		id = index
	}

	var datetime int64
	if ts, err := time.Parse(time.RFC3339, a.PublishedUTC); err == nil {
		datetime = ts.Unix()
	}

	category := models.CategoryGeneral
	if len(a.Tickers) > 0 && a.Tickers[0] != "" {
		category = a.Tickers[0]
	}

	return models.NewsArticle{
		ID:       id,
		Headline: a.Title,
		Summary:  cleanHTML(a.Description),
		Source:   a.Publisher.Name,
		URL:      a.ArticleURL,
		Datetime: datetime,
		Category: category,
		Related:  strings.Join(a.Tickers, ","),
		Image:    a.ImageURL,
	}
}

// formatArticles validates, caps and converts a page of provider articles.
func formatArticles(raw []newsArticle, limit int) []models.NewsArticle {
	out := make([]models.NewsArticle, 0, min(len(raw), limit))
	for _, a := range raw {
		if len(out) == limit {
			break
		}
		if !validArticle(a) {
			continue
		}
		out = append(out, formatArticle(a, len(out)))
	}
	return out
}

// searchResult maps a ticker record. isInWatchlist is always false here.
func searchResult(t ticker) models.StockSearchResult {
	return models.StockSearchResult{
		Symbol:   strings.ToUpper(t.Ticker),
		Name:     coalesce(t.Name, t.Ticker),
		Exchange: coalesce(t.PrimaryExchange, "US"),
		Type:     coalesce(t.Type, "Stock"),
	}
}

// snapshotFrom picks today's close, else the previous close, else 0.
func snapshotFrom(t *snapshotTicker) *models.PriceSnapshot {
	if t == nil {
		return nil
	}
	price := 0.0
	switch {
	case t.Day != nil && t.Day.C != 0:
		price = t.Day.C
	case t.PrevDay != nil && t.PrevDay.C != 0:
		price = t.PrevDay.C
	}
	return &models.PriceSnapshot{
		Price:         price,
		Change:        t.TodaysChange,
		ChangePercent: t.TodaysChangePerc,
	}
}

func barsFrom(raw []aggBar) []models.OHLCBar {
	bars := make([]models.OHLCBar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, models.OHLCBar{
			Timestamp: b.T,
			Open:      b.O,
			High:      b.H,
			Low:       b.L,
			Close:     b.C,
			Volume:    b.V,
		})
	}
	return bars
}

func detailsFrom(d *tickerDetails) *models.CompanyDetails {
	if d == nil {
		return nil
	}
	out := &models.CompanyDetails{
		Name:        d.Name,
		Description: d.Description,
		Homepage:    d.HomepageURL,
		MarketCap:   d.MarketCap,
		Employees:   d.TotalEmployees,
		ListDate:    d.ListDate,
	}
	if d.Branding != nil {
		out.Logo = d.Branding.LogoURL
	}
	return out
}

// cleanHTML strips markup some publishers leave in descriptions.
func cleanHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
