package polygon

// Raw provider payloads. Only the fields the app reads are declared.

type newsResponse struct {
	Results []newsArticle `json:"results"`
	Status  string        `json:"status"`
	Count   int           `json:"count"`
	NextURL string        `json:"next_url,omitempty"`
}

type newsArticle struct {
	ID           string        `json:"id"`
	Publisher    newsPublisher `json:"publisher"`
	Title        string        `json:"title"`
	Author       string        `json:"author,omitempty"`
	PublishedUTC string        `json:"published_utc"`
	ArticleURL   string        `json:"article_url"`
	Tickers      []string      `json:"tickers,omitempty"`
	ImageURL     string        `json:"image_url,omitempty"`
	Description  string        `json:"description,omitempty"`
	Keywords     []string      `json:"keywords,omitempty"`
}

type newsPublisher struct {
	Name        string `json:"name"`
	HomepageURL string `json:"homepage_url"`
	LogoURL     string `json:"logo_url,omitempty"`
}

type tickerSearchResponse struct {
	Results []ticker `json:"results"`
	Status  string   `json:"status"`
	Count   int      `json:"count"`
}

type ticker struct {
	Ticker          string `json:"ticker"`
	Name            string `json:"name"`
	Market          string `json:"market"`
	Locale          string `json:"locale"`
	PrimaryExchange string `json:"primary_exchange,omitempty"`
	Type            string `json:"type,omitempty"`
	Active          bool   `json:"active"`
	CurrencyName    string `json:"currency_name,omitempty"`
}

type tickerDetailsResponse struct {
	Results *tickerDetails `json:"results"`
	Status  string         `json:"status"`
}

type tickerDetails struct {
	ticker
	MarketCap      float64   `json:"market_cap,omitempty"`
	Description    string    `json:"description,omitempty"`
	HomepageURL    string    `json:"homepage_url,omitempty"`
	TotalEmployees int64     `json:"total_employees,omitempty"`
	ListDate       string    `json:"list_date,omitempty"`
	Branding       *branding `json:"branding,omitempty"`
}

type branding struct {
	LogoURL string `json:"logo_url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type snapshotResponse struct {
	Ticker *snapshotTicker `json:"ticker"`
	Status string          `json:"status"`
}

type snapshotTicker struct {
	Ticker           string  `json:"ticker"`
	TodaysChange     float64 `json:"todaysChange"`
	TodaysChangePerc float64 `json:"todaysChangePerc"`
	Day              *dayBar `json:"day,omitempty"`
	PrevDay          *dayBar `json:"prevDay,omitempty"`
}

type dayBar struct {
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

type aggregatesResponse struct {
	Results []aggBar `json:"results"`
	Status  string   `json:"status"`
}

type aggBar struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}
