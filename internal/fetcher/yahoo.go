package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"ValueSentinel/internal/model"
)

const quoteSummaryURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary/"

// Yahoo exchange codes for over-the-counter venues.
var otcExchanges = map[string]bool{
	"PNK": true, // pink sheets
	"OTC": true,
	"OQB": true, // OTCQB
	"OQX": true, // OTCQX
	"OEM": true,
}

// YahooFetcher retrieves fundamentals from the Yahoo Finance quoteSummary
// API and the three-year price history from the chart API.
type YahooFetcher struct {
	Client  *resty.Client
	Timeout time.Duration
}

// NewYahooFetcher creates a Yahoo Finance fetcher with the given per-call timeout.
func NewYahooFetcher(timeout time.Duration) *YahooFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YahooFetcher{
		Client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "Mozilla/5.0"),
		Timeout: timeout,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooNum is Yahoo's numeric envelope; raw is null when the metric is
// not reported.
type yahooNum struct {
	Raw *float64 `json:"raw"`
}

// quoteSummaryResp covers the quoteSummary modules this fetcher requests.
type quoteSummaryResp struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Industry string `json:"industry"`
				Sector   string `json:"sector"`
			} `json:"assetProfile"`
			Price struct {
				RegularMarketPrice yahooNum `json:"regularMarketPrice"`
				MarketCap          yahooNum `json:"marketCap"`
				Exchange           string   `json:"exchange"`
				ExchangeName       string   `json:"exchangeName"`
				QuoteType          string   `json:"quoteType"`
			} `json:"price"`
			DefaultKeyStatistics struct {
				BookValue yahooNum `json:"bookValue"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				ProfitMargins yahooNum `json:"profitMargins"`
				TotalDebt     yahooNum `json:"totalDebt"`
			} `json:"financialData"`
			BalanceSheetHistory struct {
				BalanceSheetStatements []struct {
					TotalStockholderEquity yahooNum `json:"totalStockholderEquity"`
				} `json:"balanceSheetStatements"`
			} `json:"balanceSheetHistory"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// Fetch retrieves fundamentals and the three-year low for one ticker.
// The record is either fully populated or the error is a *model.FetchError.
func (f *YahooFetcher) Fetch(ctx context.Context, symbol string) (*model.FundamentalsRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	var body quoteSummaryResp
	resp, err := f.Client.R().
		SetContext(callCtx).
		SetQueryParam("modules", "assetProfile,price,defaultKeyStatistics,financialData,balanceSheetHistory").
		SetResult(&body).
		Get(quoteSummaryURL + symbol)
	if err != nil {
		return nil, f.wrap(symbol, classifyTransport(err), err)
	}
	switch resp.StatusCode() {
	case 200:
	case 404:
		return nil, f.wrap(symbol, model.FetchNotFound, fmt.Errorf("status 404"))
	case 401, 429:
		return nil, f.wrap(symbol, model.FetchRateLimited, fmt.Errorf("status %d", resp.StatusCode()))
	default:
		return nil, f.wrap(symbol, model.FetchUnknown, fmt.Errorf("status %d", resp.StatusCode()))
	}
	if e := body.QuoteSummary.Error; e != nil {
		if strings.Contains(strings.ToLower(e.Description), "not found") || e.Code == "Not Found" {
			return nil, f.wrap(symbol, model.FetchNotFound, fmt.Errorf("%s: %s", e.Code, e.Description))
		}
		return nil, f.wrap(symbol, model.FetchMalformed, fmt.Errorf("%s: %s", e.Code, e.Description))
	}
	if len(body.QuoteSummary.Result) == 0 {
		return nil, f.wrap(symbol, model.FetchNotFound, fmt.Errorf("empty quoteSummary result"))
	}

	res := body.QuoteSummary.Result[0]

	// Required numeric fields. Missing any of them means the record cannot
	// be evaluated and must not reach the engine as if complete.
	price := res.Price.RegularMarketPrice.Raw
	book := res.DefaultKeyStatistics.BookValue.Raw
	margins := res.FinancialData.ProfitMargins.Raw
	if price == nil || book == nil || margins == nil {
		return nil, f.wrap(symbol, model.FetchMalformed,
			fmt.Errorf("missing required fields (price=%v book=%v margins=%v)",
				price != nil, book != nil, margins != nil))
	}

	var totalDebt, totalEquity float64
	if res.FinancialData.TotalDebt.Raw != nil {
		totalDebt = *res.FinancialData.TotalDebt.Raw
	}
	if st := res.BalanceSheetHistory.BalanceSheetStatements; len(st) > 0 && st[0].TotalStockholderEquity.Raw != nil {
		totalEquity = *st[0].TotalStockholderEquity.Raw
	}

	low, err := f.threeYearLow(callCtx, symbol)
	if err != nil {
		return nil, err
	}

	rec := &model.FundamentalsRecord{
		Symbol:            symbol,
		Industry:          res.AssetProfile.Industry,
		MarketCap:         res.Price.MarketCap.Raw,
		TotalDebt:         totalDebt,
		TotalEquity:       totalEquity,
		BookValuePerShare: *book,
		NetMargin:         *margins,
		CurrentPrice:      *price,
		ThreeYearLow:      low,
		IsOTC:             isOTC(res.Price.Exchange, res.Price.ExchangeName),
		FetchedAt:         time.Now(),
	}
	return rec, nil
}

// threeYearLow scans three years of daily bars for the lowest low.
func (f *YahooFetcher) threeYearLow(ctx context.Context, symbol string) (float64, error) {
	end := time.Now()
	start := end.AddDate(-3, 0, 0)
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	low := decimal.Decimal{}
	seen := false
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return 0, f.wrap(symbol, model.FetchTimeout, err)
		}
		bar := iter.Bar()
		if bar.Low.IsZero() {
			continue // null bars on holidays
		}
		if !seen || bar.Low.LessThan(low) {
			low = bar.Low
			seen = true
		}
	}
	if err := iter.Err(); err != nil {
		return 0, f.wrap(symbol, classifyTransport(err), err)
	}
	if !seen {
		return 0, f.wrap(symbol, model.FetchMalformed, fmt.Errorf("no price history returned"))
	}
	return low.InexactFloat64(), nil
}

func (f *YahooFetcher) wrap(symbol string, kind model.FetchErrorKind, err error) error {
	return &model.FetchError{Symbol: symbol, Kind: kind, Err: err}
}

// classifyTransport maps transport-level failures to a fetch error kind.
func classifyTransport(err error) model.FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.FetchTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return model.FetchTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too many requests") || strings.Contains(msg, "401"):
		return model.FetchRateLimited
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return model.FetchTimeout
	case strings.Contains(msg, "not found") || strings.Contains(msg, "404"):
		return model.FetchNotFound
	case strings.Contains(msg, "json") || strings.Contains(msg, "unmarshal") || strings.Contains(msg, "decode"):
		return model.FetchMalformed
	}
	return model.FetchUnknown
}

func isOTC(exchange, exchangeName string) bool {
	if otcExchanges[strings.ToUpper(exchange)] {
		return true
	}
	return strings.Contains(strings.ToLower(exchangeName), "otc")
}
