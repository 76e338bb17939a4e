package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cardpot/potsync/internal/domain"
)

// TrueLayerClient implements BalanceSource for the Open Banking card
// providers reached through TrueLayer. All card balances for the account are
// summed into one normalized minor-unit figure; for provider families whose
// reported balance excludes pending transactions, the pending feed is fetched
// and added so the engine always sees total outstanding spend.
type TrueLayerClient struct {
	BaseURL string
	Client  *http.Client
}

func NewTrueLayerClient(baseURL string, timeout time.Duration) *TrueLayerClient {
	return &TrueLayerClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *TrueLayerClient) Name() string { return "truelayer" }

type tlCard struct {
	AccountID string `json:"account_id"`
}

type tlBalance struct {
	Current float64 `json:"current"`
}

type tlTransaction struct {
	Amount float64 `json:"amount"`
}

func (c *TrueLayerClient) GetBalance(ctx context.Context, acc *domain.MonitoredAccount) (domain.Money, error) {
	var cards struct {
		Results []tlCard `json:"results"`
	}
	if err := c.get(ctx, "/data/v1/cards", acc.AccessToken, &cards); err != nil {
		return 0, fmt.Errorf("list cards: %w", err)
	}

	var total domain.Money
	for _, card := range cards.Results {
		var bal struct {
			Results []tlBalance `json:"results"`
		}
		path := "/data/v1/cards/" + card.AccountID + "/balance"
		if err := c.get(ctx, path, acc.AccessToken, &bal); err != nil {
			return 0, fmt.Errorf("card balance %s: %w", card.AccountID, err)
		}
		if len(bal.Results) == 0 {
			return 0, fmt.Errorf("card balance %s: empty result: %w", card.AccountID, domain.ErrTransientFetch)
		}
		total += toMinorUnits(bal.Results[0].Current)

		if !acc.Provider.IncludesPending() {
			pending, err := c.pendingTotal(ctx, acc.AccessToken, card.AccountID)
			if err != nil {
				return 0, fmt.Errorf("pending transactions %s: %w", card.AccountID, err)
			}
			total += pending
		}
	}
	return total, nil
}

func (c *TrueLayerClient) pendingTotal(ctx context.Context, token, cardID string) (domain.Money, error) {
	var txns struct {
		Results []tlTransaction `json:"results"`
	}
	path := "/data/v1/cards/" + cardID + "/transactions/pending"
	if err := c.get(ctx, path, token, &txns); err != nil {
		return 0, err
	}
	var total domain.Money
	for _, t := range txns.Results {
		total += toMinorUnits(t.Amount)
	}
	return total, nil
}

func (c *TrueLayerClient) get(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %v: %w", path, err, domain.ErrTransientFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return classifyStatus(path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %v: %w", path, err, domain.ErrTransientFetch)
	}
	return nil
}

// toMinorUnits converts a major-unit figure from the API into pence,
// rounding to absorb float representation error.
func toMinorUnits(major float64) domain.Money {
	return domain.Money(math.Round(major * 100))
}
