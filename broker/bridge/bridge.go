// Package bridge implements broker.Gateway against the terminal bridge,
// a small REST sidecar that fronts the trading terminal. One Client is
// shared by the signal and manage cycles, so every call passes through
// a common rate limiter before touching the wire.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"fxpilot/broker"
	"fxpilot/market"
)

// Client talks to the bridge's v1 API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every bridge call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSec float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

// NewClient creates a bridge client. The token is sent as a bearer
// credential on every request.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type accountResponse struct {
	ID       string  `json:"id"`
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
}

type instrumentResponse struct {
	Name            string  `json:"name"`
	PipSize         float64 `json:"pip_size"`
	Digits          int     `json:"digits"`
	VolumeMin       float64 `json:"volume_min"`
	VolumeMax       float64 `json:"volume_max"`
	VolumeStep      float64 `json:"volume_step"`
	MinStopDistance float64 `json:"min_stop_distance"`
}

type instrumentsResponse struct {
	Instruments []string `json:"instruments"`
}

type apiCandle struct {
	Time   string  `json:"time"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"volume"`
}

type candlesResponse struct {
	Instrument string      `json:"instrument"`
	Candles    []apiCandle `json:"candles"`
}

type tickResponse struct {
	Time float64 `json:"time"` // unix seconds
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
}

type orderRequest struct {
	Instrument string  `json:"instrument"`
	Side       string  `json:"side"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Comment    string  `json:"comment,omitempty"`
}

type ticketResponse struct {
	OrderID string  `json:"order_id"`
	Retcode int     `json:"retcode"`
	Reason  string  `json:"reason,omitempty"`
	Price   float64 `json:"price"`
}

type apiPosition struct {
	Ticket     string  `json:"ticket"`
	Instrument string  `json:"instrument"`
	Side       string  `json:"side"`
	Volume     float64 `json:"volume"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	OpenTime   string  `json:"open_time"`
}

type positionsResponse struct {
	Positions []apiPosition `json:"positions"`
}

func (c *Client) Account(ctx context.Context) (broker.Account, error) {
	var resp accountResponse
	if err := c.get(ctx, "/v1/account", nil, &resp); err != nil {
		return broker.Account{}, err
	}
	return broker.Account{
		ID:       resp.ID,
		Currency: resp.Currency,
		Balance:  resp.Balance,
		Equity:   resp.Equity,
	}, nil
}

func (c *Client) ActiveInstruments(ctx context.Context) ([]string, error) {
	var resp instrumentsResponse
	if err := c.get(ctx, "/v1/instruments", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Instruments, nil
}

func (c *Client) Instrument(ctx context.Context, name string) (market.InstrumentMeta, error) {
	var resp instrumentResponse
	err := c.get(ctx, "/v1/instruments/"+name, nil, &resp)
	if isNotFound(err) {
		return market.InstrumentMeta{}, fmt.Errorf("%s: %w", name, broker.ErrNoInstrument)
	}
	if err != nil {
		return market.InstrumentMeta{}, err
	}
	return market.InstrumentMeta{
		Name:            resp.Name,
		PipSize:         resp.PipSize,
		Digits:          resp.Digits,
		VolumeMin:       resp.VolumeMin,
		VolumeMax:       resp.VolumeMax,
		VolumeStep:      resp.VolumeStep,
		MinStopDistance: resp.MinStopDistance,
	}, nil
}

func (c *Client) Candles(ctx context.Context, instrument string, count int) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("count", fmt.Sprintf("%d", count))

	var resp candlesResponse
	if err := c.get(ctx, "/v1/instruments/"+instrument+"/candles", params, &resp); err != nil {
		return nil, err
	}

	candles := make([]market.Candle, 0, len(resp.Candles))
	for _, ac := range resp.Candles {
		t, err := time.Parse(time.RFC3339, ac.Time)
		if err != nil {
			return nil, fmt.Errorf("parse candle time %s: %w", ac.Time, err)
		}
		candles = append(candles, market.Candle{
			Time:   t,
			Open:   ac.Open,
			High:   ac.High,
			Low:    ac.Low,
			Close:  ac.Close,
			Volume: ac.Volume,
		})
	}
	return candles, nil
}

func (c *Client) Tick(ctx context.Context, instrument string) (market.Tick, error) {
	var resp tickResponse
	err := c.get(ctx, "/v1/instruments/"+instrument+"/tick", nil, &resp)
	if isNotFound(err) {
		return market.Tick{}, fmt.Errorf("%s: %w", instrument, broker.ErrNoTick)
	}
	if err != nil {
		return market.Tick{}, err
	}
	sec, frac := int64(resp.Time), resp.Time-float64(int64(resp.Time))
	return market.Tick{
		Instrument: instrument,
		Time:       time.Unix(sec, int64(frac*1e9)),
		Bid:        resp.Bid,
		Ask:        resp.Ask,
	}, nil
}

func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderTicket, error) {
	body := orderRequest{
		Instrument: req.Instrument,
		Side:       string(req.Side),
		Volume:     req.Volume,
		Price:      req.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Comment:    req.Comment,
	}
	var resp ticketResponse
	if err := c.post(ctx, "/v1/orders", body, &resp); err != nil {
		return broker.OrderTicket{}, err
	}
	return toTicket(resp), nil
}

func (c *Client) OpenPositions(ctx context.Context, instrument string) ([]broker.Position, error) {
	params := url.Values{}
	if instrument != "" {
		params.Set("instrument", instrument)
	}

	var resp positionsResponse
	if err := c.get(ctx, "/v1/positions", params, &resp); err != nil {
		return nil, err
	}

	positions := make([]broker.Position, 0, len(resp.Positions))
	for _, ap := range resp.Positions {
		t, err := time.Parse(time.RFC3339, ap.OpenTime)
		if err != nil {
			return nil, fmt.Errorf("parse open time %s: %w", ap.OpenTime, err)
		}
		positions = append(positions, broker.Position{
			Ticket:     ap.Ticket,
			Instrument: ap.Instrument,
			Side:       broker.Side(ap.Side),
			Volume:     ap.Volume,
			EntryPrice: ap.EntryPrice,
			StopLoss:   ap.StopLoss,
			TakeProfit: ap.TakeProfit,
			OpenTime:   t,
		})
	}
	return positions, nil
}

func (c *Client) ModifyPosition(ctx context.Context, ticket string, stop, target float64) (broker.OrderTicket, error) {
	body := map[string]float64{
		"stop_loss":   stop,
		"take_profit": target,
	}
	var resp ticketResponse
	if err := c.post(ctx, "/v1/positions/"+ticket+"/modify", body, &resp); err != nil {
		return broker.OrderTicket{}, err
	}
	return toTicket(resp), nil
}

func (c *Client) ClosePosition(ctx context.Context, ticket, reason string) (broker.OrderTicket, error) {
	body := map[string]string{"reason": reason}
	var resp ticketResponse
	if err := c.post(ctx, "/v1/positions/"+ticket+"/close", body, &resp); err != nil {
		return broker.OrderTicket{}, err
	}
	return toTicket(resp), nil
}

func toTicket(r ticketResponse) broker.OrderTicket {
	return broker.OrderTicket{
		OrderID: r.OrderID,
		Retcode: broker.Retcode(r.Retcode),
		Reason:  r.Reason,
		Price:   r.Price,
	}
}

// statusError preserves the HTTP status so callers can branch on 404.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("bridge error (status %d): %s", e.status, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	apiURL := c.baseURL + path
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, apiURL, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+path, payload, out)
}

func (c *Client) do(ctx context.Context, method, apiURL string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return &statusError{status: resp.StatusCode, body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
