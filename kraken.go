package cryptotax

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/ederavini/cryptotax/date"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	krakenBaseURL = "https://api.kraken.com"
	// Kraken serves private Ledgers pages of 50 rows.
	krakenPageSize = 50
)

// krakenPairs maps a canonical asset symbol to the EUR pair name used by the
// public OHLC endpoint.
var krakenPairs = map[string]string{
	"XXBT":  "XXBTZEUR",
	"XETH":  "XETHZEUR",
	"XXRP":  "XXRPZEUR",
	"XXLM":  "XXLMZEUR",
	"XLTC":  "XLTCZEUR",
	"XXDG":  "XDGEUR",
	"SOL":   "SOLEUR",
	"DOT":   "DOTEUR",
	"ADA":   "ADAEUR",
	"ATOM":  "ATOMEUR",
	"KSM":   "KSMEUR",
	"MATIC": "MATICEUR",
	"POL":   "POLEUR",
	"AAVE":  "AAVEEUR",
	"UNI":   "UNIEUR",
	"ALGO":  "ALGOEUR",
	"EOS":   "EOSEUR",
	"ENA":   "ENAEUR",
	"1INCH": "1INCHEUR",
}

// Kraken implements ActivitySource and PriceSource against the Kraken REST
// API. Authentication, signing and rate limiting live here; the engine only
// ever sees the normalized output.
type Kraken struct {
	key    string
	secret string
	base   string
	client *http.Client
	// The private call counter refills slowly on the starter tier; one call
	// every 4 seconds keeps it full. Public endpoints tolerate one per second.
	private *rate.Limiter
	public  *rate.Limiter
	log     *logrus.Entry
}

// NewKraken returns a client for the given API key pair.
func NewKraken(key, secret string) *Kraken {
	return &Kraken{
		key:     key,
		secret:  secret,
		base:    krakenBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		private: rate.NewLimiter(rate.Every(4*time.Second), 1),
		public:  rate.NewLimiter(rate.Every(time.Second), 1),
		log:     logrus.WithField("source", "kraken"),
	}
}

// KrakenFromEnv builds a client from the KRAKEN_API_KEY and KRAKEN_API_SECRET
// environment variables, loading a local .env file when present.
func KrakenFromEnv() (*Kraken, error) {
	_ = godotenv.Load() // a .env file is optional
	key := os.Getenv("KRAKEN_API_KEY")
	secret := os.Getenv("KRAKEN_API_SECRET")
	if key == "" || secret == "" {
		return nil, errors.New("KRAKEN_API_KEY and KRAKEN_API_SECRET must be set")
	}
	return NewKraken(key, secret), nil
}

func (k *Kraken) Name() string { return "kraken" }

// sign builds the API-Sign header: HMAC-SHA512 of the URI path concatenated
// with SHA256(nonce + postdata), keyed with the base64-decoded secret.
func (k *Kraken) sign(path string, data url.Values) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(k.secret)
	if err != nil {
		return "", fmt.Errorf("invalid API secret: %w", err)
	}
	digest := sha256.Sum256([]byte(data.Get("nonce") + data.Encode()))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// krakenResponse is the envelope of every Kraken API answer.
type krakenResponse struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (k *Kraken) decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot reach %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var envelope krakenResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if len(envelope.Error) > 0 {
		return fmt.Errorf("API error: %s", strings.Join(envelope.Error, "; "))
	}
	return json.Unmarshal(envelope.Result, out)
}

// post performs a signed private call and unmarshals the result into out.
func (k *Kraken) post(path string, data url.Values, out any) error {
	if err := k.private.Wait(context.Background()); err != nil {
		return err
	}
	data.Set("nonce", strconv.FormatInt(time.Now().UnixMicro(), 10))
	sig, err := k.sign(path, data)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, k.base+path, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", k.key)
	req.Header.Set("API-Sign", sig)
	resp, err := k.client.Do(req)
	if err != nil {
		return err
	}
	return k.decode(resp, out)
}

// get performs a public call and unmarshals the result into out.
func (k *Kraken) get(path string, out any) error {
	if err := k.public.Wait(context.Background()); err != nil {
		return err
	}
	resp, err := k.client.Get(k.base + path)
	if err != nil {
		return err
	}
	return k.decode(resp, out)
}

// krakenLedgerRow is one row of the private Ledgers endpoint.
type krakenLedgerRow struct {
	RefID  string          `json:"refid"`
	Time   float64         `json:"time"` // unix seconds with fraction
	Type   string          `json:"type"`
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
	Fee    decimal.Decimal `json:"fee"`
}

func (r krakenLedgerRow) raw(id string) RawEntry {
	sec, frac := math.Modf(r.Time)
	return RawEntry{
		ID:     id,
		RefID:  r.RefID,
		Time:   time.Unix(int64(sec), int64(frac*1e9)).UTC(),
		Type:   r.Type,
		Asset:  r.Asset,
		Amount: r.Amount,
		Fee:    r.Fee,
	}
}

// FetchActivity pages through the account ledger from the given instant. The
// first page carries the total row count; later pages skip it, as recounting
// on every page is expensive on Kraken's side.
func (k *Kraken) FetchActivity(since time.Time) ([]RawEntry, error) {
	var raws []RawEntry
	total := -1
	for ofs := 0; ; ofs += krakenPageSize {
		data := url.Values{}
		data.Set("ofs", strconv.Itoa(ofs))
		if !since.IsZero() {
			data.Set("start", strconv.FormatInt(since.Unix(), 10))
		}
		if total >= 0 {
			data.Set("without_count", "true")
		}

		var page struct {
			Ledger map[string]krakenLedgerRow `json:"ledger"`
			Count  int                        `json:"count"`
		}
		if err := k.post("/0/private/Ledgers", data, &page); err != nil {
			return nil, &TransportError{Source: k.Name(), Op: "fetch activity", Err: err}
		}
		if total < 0 {
			total = page.Count
		}
		for id, row := range page.Ledger {
			raws = append(raws, row.raw(id))
		}
		k.log.WithFields(logrus.Fields{"offset": ofs, "rows": len(page.Ledger), "total": total}).
			Info("ledger page fetched")
		if len(raws) >= total || len(page.Ledger) == 0 {
			break
		}
	}
	return raws, nil
}

// FetchBalance returns the current balance snapshot with canonical symbols.
// Staked variants of the same asset are folded together.
func (k *Kraken) FetchBalance() (map[string]Quantity, error) {
	var result map[string]decimal.Decimal
	if err := k.post("/0/private/Balance", url.Values{}, &result); err != nil {
		return nil, &TransportError{Source: k.Name(), Op: "fetch balance", Err: err}
	}
	balance := make(map[string]Quantity, len(result))
	for code, amount := range result {
		symbol, _ := Normalize(code)
		balance[symbol] = balance[symbol].Add(Q(amount))
	}
	return balance, nil
}

// FetchDailyCloses returns the daily EUR closes of an asset strictly after
// the given instant.
//
// The OHLC endpoint returns, next to the candles, a `last` marker: the latest
// timestamp whose interval is complete. Samples after it are not final and
// are discarded rather than stored.
func (k *Kraken) FetchDailyCloses(asset string, since time.Time) ([]PricePoint, error) {
	pair, ok := krakenPairs[asset]
	if !ok {
		return nil, fmt.Errorf("no EUR pair known for asset %s", asset)
	}
	path := "/0/public/OHLC?pair=" + url.QueryEscape(pair) + "&interval=1440"
	if !since.IsZero() {
		path += "&since=" + strconv.FormatInt(since.Unix(), 10)
	}

	var jobj map[string]any
	if err := k.get(path, &jobj); err != nil {
		return nil, &TransportError{Source: k.Name(), Op: "fetch prices", Err: err}
	}

	// The candle list is keyed by a pair alias that does not always match
	// the requested name, so pluck `last` by path and take the one list.
	jlast, err := jsonpath.Get("$.last", jobj)
	if err != nil {
		return nil, fmt.Errorf("OHLC response for %s has no last marker: %w", pair, err)
	}
	last, ok := jlast.(float64)
	if !ok {
		return nil, fmt.Errorf("OHLC response for %s: last marker is not a number", pair)
	}

	var rows []any
	for key, val := range jobj {
		if key == "last" {
			continue
		}
		if list, ok := val.([]any); ok {
			rows = list
			break
		}
	}

	var points []PricePoint
	discarded := 0
	for _, jrow := range rows {
		row, ok := jrow.([]any)
		if !ok || len(row) < 5 {
			continue
		}
		ts, ok := row[0].(float64)
		if !ok {
			continue
		}
		if ts > last {
			// Incomplete trailing interval.
			discarded++
			continue
		}
		closeStr, ok := row[4].(string)
		if !ok {
			continue
		}
		close, err := decimal.NewFromString(closeStr)
		if err != nil {
			continue
		}
		points = append(points, PricePoint{
			Asset: asset,
			Day:   date.FromTime(time.Unix(int64(ts), 0)),
			Close: close,
		})
	}
	k.log.WithFields(logrus.Fields{"asset": asset, "points": len(points), "discarded": discarded}).
		Info("daily closes fetched")
	return points, nil
}

var (
	_ ActivitySource = (*Kraken)(nil)
	_ PriceSource    = (*Kraken)(nil)
)
