package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Yahoo reads the last price from the Yahoo Finance chart API.
type Yahoo struct {
	baseURL string
	client  *http.Client
}

// NewYahoo returns a Yahoo source. The client's timeout bounds every request.
func NewYahoo(baseURL string, client *http.Client) *Yahoo {
	return &Yahoo{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string          `json:"symbol"`
				LongName           string          `json:"longName"`
				ShortName          string          `json:"shortName"`
				RegularMarketPrice decimal.Decimal `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) Quote(ctx context.Context, symbol string) (Quote, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", y.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	var body chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Quote{}, fmt.Errorf("failed to decode quote for %s (status %d): %w", symbol, resp.StatusCode, err)
	}
	if body.Chart.Error != nil {
		return Quote{}, fmt.Errorf("%w: %s: %s", ErrUnknownSymbol, symbol, body.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote for %s returned status %d", symbol, resp.StatusCode)
	}
	if len(body.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	meta := body.Chart.Result[0].Meta
	if !meta.RegularMarketPrice.IsPositive() {
		return Quote{}, fmt.Errorf("quote for %s has no price", symbol)
	}
	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	if name == "" {
		name = symbol
	}
	return Quote{Symbol: symbol, Name: name, Price: meta.RegularMarketPrice}, nil
}
