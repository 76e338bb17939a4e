package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cardpot/potsync/internal/domain"
)

// MonzoClient implements PotSource against the Monzo API.
type MonzoClient struct {
	BaseURL     string
	AccessToken string
	Client      *http.Client

	accountID string
}

func NewMonzoClient(baseURL, accessToken string, timeout time.Duration) *MonzoClient {
	return &MonzoClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		AccessToken: accessToken,
		Client:      &http.Client{Timeout: timeout},
	}
}

// Ping verifies the connection is healthy and the token is accepted.
func (c *MonzoClient) Ping(ctx context.Context) error {
	var out struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := c.get(ctx, "/ping/whoami", nil, &out); err != nil {
		return err
	}
	if !out.Authenticated {
		return fmt.Errorf("ping: not authenticated: %w", domain.ErrAuth)
	}
	return nil
}

func (c *MonzoClient) GetAccountBalance(ctx context.Context) (domain.Money, error) {
	accountID, err := c.getAccountID(ctx)
	if err != nil {
		return 0, err
	}
	var out struct {
		Balance int64 `json:"balance"`
	}
	if err := c.get(ctx, "/balance", url.Values{"account_id": {accountID}}, &out); err != nil {
		return 0, fmt.Errorf("account balance: %w", err)
	}
	return domain.Money(out.Balance), nil
}

func (c *MonzoClient) GetPotBalance(ctx context.Context, potID string) (domain.Money, error) {
	pot, err := c.findPot(ctx, potID)
	if err != nil {
		return 0, err
	}
	return pot.Balance, nil
}

// ListPots returns the account's live pots.
func (c *MonzoClient) ListPots(ctx context.Context) ([]domain.Pot, error) {
	accountID, err := c.getAccountID(ctx)
	if err != nil {
		return nil, err
	}
	var out struct {
		Pots []domain.Pot `json:"pots"`
	}
	if err := c.get(ctx, "/pots", url.Values{"current_account_id": {accountID}}, &out); err != nil {
		return nil, fmt.Errorf("list pots: %w", err)
	}
	live := out.Pots[:0]
	for _, p := range out.Pots {
		if !p.Deleted {
			live = append(live, p)
		}
	}
	return live, nil
}

func (c *MonzoClient) Deposit(ctx context.Context, potID string, amount domain.Money) error {
	accountID, err := c.getAccountID(ctx)
	if err != nil {
		return err
	}
	form := url.Values{
		"source_account_id": {accountID},
		"amount":            {strconv.FormatInt(int64(amount), 10)},
		"dedupe_id":         {dedupeID(potID)},
	}
	if err := c.putForm(ctx, "/pots/"+potID+"/deposit", form); err != nil {
		return fmt.Errorf("deposit %s to pot %s: %w", amount.Pounds(), potID, err)
	}
	return nil
}

func (c *MonzoClient) Withdraw(ctx context.Context, potID string, amount domain.Money) error {
	accountID, err := c.getAccountID(ctx)
	if err != nil {
		return err
	}
	form := url.Values{
		"destination_account_id": {accountID},
		"amount":                 {strconv.FormatInt(int64(amount), 10)},
		"dedupe_id":              {dedupeID(potID)},
	}
	if err := c.putForm(ctx, "/pots/"+potID+"/withdraw", form); err != nil {
		return fmt.Errorf("withdraw %s from pot %s: %w", amount.Pounds(), potID, err)
	}
	return nil
}

func (c *MonzoClient) Notify(ctx context.Context, title, body string) error {
	accountID, err := c.getAccountID(ctx)
	if err != nil {
		return err
	}
	form := url.Values{
		"account_id":    {accountID},
		"type":          {"basic"},
		"params[title]": {title},
		"params[body]":  {body},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/feed", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, nil)
}

func (c *MonzoClient) findPot(ctx context.Context, potID string) (*domain.Pot, error) {
	pots, err := c.ListPots(ctx)
	if err != nil {
		return nil, err
	}
	for i := range pots {
		if pots[i].ID == potID {
			return &pots[i], nil
		}
	}
	return nil, fmt.Errorf("pot %s not found: %w", potID, domain.ErrConsistency)
}

// getAccountID resolves and caches the first open current account.
func (c *MonzoClient) getAccountID(ctx context.Context) (string, error) {
	if c.accountID != "" {
		return c.accountID, nil
	}
	var out struct {
		Accounts []struct {
			ID     string `json:"id"`
			Closed bool   `json:"closed"`
		} `json:"accounts"`
	}
	if err := c.get(ctx, "/accounts", nil, &out); err != nil {
		return "", fmt.Errorf("list accounts: %w", err)
	}
	for _, acc := range out.Accounts {
		if !acc.Closed {
			c.accountID = acc.ID
			return acc.ID, nil
		}
	}
	return "", fmt.Errorf("no open accounts: %w", domain.ErrAuth)
}

func (c *MonzoClient) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *MonzoClient) putForm(ctx context.Context, path string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, nil)
}

func (c *MonzoClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", req.Method, req.URL.Path, err, domain.ErrTransientFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return classifyStatus(req.URL.Path, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %v: %w", req.URL.Path, err, domain.ErrTransientFetch)
	}
	return nil
}

// dedupeID makes deposits/withdrawals idempotent within a one-second window,
// so a retried call after a network error cannot move money twice.
func dedupeID(potID string) string {
	return fmt.Sprintf("potsync-%s-%d", potID, time.Now().Unix())
}
