package fundtrade

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/fundtrade/date"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// Catalog is a local fund catalog with a dated NAV history per fund class.
// It serves as a NavSource when no backend is configured.
type Catalog struct {
	currency string
	funds    map[FundID]*catalogEntry
	order    []FundID
}

type catalogEntry struct {
	fund Fund
	navs date.History[decimal.Decimal]
}

// tomlCatalog is the file layout. Amounts are strings so they are read
// exactly rather than through float64.
type tomlCatalog struct {
	Currency string     `toml:"currency"`
	Funds    []tomlFund `toml:"fund"`
}

type tomlFund struct {
	Code      string    `toml:"code"`
	FundCode  string    `toml:"fund_code"`
	ClassCode string    `toml:"class_code"`
	Name      string    `toml:"name"`
	Currency  string    `toml:"currency"`
	Active    *bool     `toml:"active"`
	OnSale    *bool     `toml:"on_sale"`
	Fees      tomlFees  `toml:"fees"`
	Rules     tomlRules `toml:"rules"`
	NAV       []tomlNAV `toml:"nav"`
}

type tomlFees struct {
	SalesBps         string `toml:"sales_bps"`
	ManagementBps    string `toml:"management_bps"`
	TrusteeBps       string `toml:"trustee_bps"`
	AdminBps         string `toml:"admin_bps"`
	TotalBps         string `toml:"total_bps"`
	FrontLoadPct     string `toml:"front_load_pct"`
	RedemptionFeePct string `toml:"redemption_fee_pct"`
	RedemptionDays   int    `toml:"redemption_days"`
}

type tomlRules struct {
	MinInitial    string `toml:"min_initial"`
	MinAdditional string `toml:"min_additional"`
	PurchaseLag   int    `toml:"purchase_lag"`
	RedemptionLag int    `toml:"redemption_lag"`
}

type tomlNAV struct {
	Date  string `toml:"date"`
	Value string `toml:"value"`
}

// LoadCatalog reads a TOML fund catalog from a file.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open catalog: %w", err)
	}
	defer f.Close()
	c, err := DecodeCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// DecodeCatalog reads a TOML fund catalog. Every invalid fund is reported.
func DecodeCatalog(r io.Reader) (*Catalog, error) {
	var raw tomlCatalog
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&raw); err != nil {
		return nil, fmt.Errorf("cannot decode catalog: %w", err)
	}
	c := &Catalog{
		currency: strings.ToUpper(raw.Currency),
		funds:    make(map[FundID]*catalogEntry),
	}
	if c.currency == "" {
		c.currency = DefaultCurrency
	}
	var errs error
	for i, tf := range raw.Funds {
		e, err := c.decodeFund(tf)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("fund #%d %q: %w", i+1, tf.Code, err))
			continue
		}
		if _, dup := c.funds[e.fund.ID()]; dup {
			errs = errors.Join(errs, invalid("catalog", ErrInvalidCatalog, "fund #%d: duplicate code %q", i+1, tf.Code))
			continue
		}
		c.funds[e.fund.ID()] = e
		c.order = append(c.order, e.fund.ID())
	}
	if errs != nil {
		return nil, errs
	}
	return c, nil
}

func (c *Catalog) decodeFund(tf tomlFund) (*catalogEntry, error) {
	var errs error
	dec := func(field, s string) decimal.Decimal {
		if s == "" {
			return decimal.Zero
		}
		d, ok := ParseAmount(s)
		if !ok {
			errs = errors.Join(errs, invalid("catalog", ErrInvalidCatalog, "%s: invalid number %q", field, s))
		}
		return d
	}
	optRate := func(field, s string) *Rate {
		if s == "" {
			return nil
		}
		r := RateFromPercent(dec(field, s))
		return &r
	}
	cur := strings.ToUpper(tf.Currency)
	if cur == "" {
		cur = c.currency
	}
	e := &catalogEntry{}
	e.fund = Fund{
		Class: FundClass{
			ID:        FundID(tf.Code),
			FundCode:  tf.FundCode,
			ClassCode: tf.ClassCode,
			Name:      tf.Name,
			Currency:  cur,
			Active:    tf.Active == nil || *tf.Active,
			OnSale:    tf.OnSale == nil || *tf.OnSale,
		},
		Fees: FeeSchedule{
			SalesBps:       dec("sales_bps", tf.Fees.SalesBps),
			ManagementBps:  dec("management_bps", tf.Fees.ManagementBps),
			TrusteeBps:     dec("trustee_bps", tf.Fees.TrusteeBps),
			AdminBps:       dec("admin_bps", tf.Fees.AdminBps),
			TotalBps:       dec("total_bps", tf.Fees.TotalBps),
			FrontLoad:      optRate("front_load_pct", tf.Fees.FrontLoadPct),
			RedemptionFee:  optRate("redemption_fee_pct", tf.Fees.RedemptionFeePct),
			RedemptionDays: tf.Fees.RedemptionDays,
		},
		Rules: TradeRules{
			MinInitial:    M(dec("min_initial", tf.Rules.MinInitial), cur),
			MinAdditional: M(dec("min_additional", tf.Rules.MinAdditional), cur),
			PurchaseLag:   tf.Rules.PurchaseLag,
			RedemptionLag: tf.Rules.RedemptionLag,
		},
	}
	for _, n := range tf.NAV {
		on, err := date.Parse(n.Date)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		v := dec("nav "+n.Date, n.Value)
		if !v.IsPositive() {
			errs = errors.Join(errs, invalid("catalog", ErrInvalidCatalog, "nav %s: must be positive, got %s", n.Date, n.Value))
			continue
		}
		e.navs.Append(on, v)
	}
	if on, v, ok := e.navs.Latest(); ok {
		e.fund.Class.NAV = NAV{Value: M(v, cur), AsOf: on}
	}
	if err := e.fund.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}
	return e, errs
}

// Currency returns the catalog's default currency.
func (c *Catalog) Currency() string { return c.currency }

// Funds returns every fund in file order, priced at its latest NAV.
func (c *Catalog) Funds() []Fund {
	res := make([]Fund, 0, len(c.order))
	for _, id := range c.order {
		res = append(res, c.funds[id].fund)
	}
	return res
}

// Fund returns a fund priced at its latest NAV.
func (c *Catalog) Fund(id FundID) (Fund, error) {
	e, ok := c.funds[id]
	if !ok {
		return Fund{}, notFound("catalog", ErrFundNotFound, "unknown fund %q", id)
	}
	return e.fund, nil
}

// FundClass returns a fund priced at its latest NAV, as the backend does.
func (c *Catalog) FundClass(_ context.Context, id FundID) (Fund, error) { return c.Fund(id) }

// FundAsOf returns a fund priced at the NAV in force on day.
func (c *Catalog) FundAsOf(id FundID, day date.Date) (Fund, error) {
	f, err := c.Fund(id)
	if err != nil {
		return Fund{}, err
	}
	nav, err := c.NAVAsOf(id, day)
	if err != nil {
		return Fund{}, err
	}
	f.Class.NAV = nav
	return f, nil
}

// LatestNAV implements NavSource.
func (c *Catalog) LatestNAV(_ context.Context, id FundID) (NAV, error) {
	f, err := c.Fund(id)
	if err != nil {
		return NAV{}, err
	}
	if !f.Class.NAV.Available() {
		return NAV{}, notFound("catalog", ErrNavUnavailable, "no NAV published for %s", id)
	}
	return f.Class.NAV, nil
}

// NAVAsOf returns the NAV published on day or the last one before it.
func (c *Catalog) NAVAsOf(id FundID, day date.Date) (NAV, error) {
	e, ok := c.funds[id]
	if !ok {
		return NAV{}, notFound("catalog", ErrFundNotFound, "unknown fund %q", id)
	}
	on, v, ok := e.navs.ValueAsOf(day)
	if !ok {
		return NAV{}, notFound("catalog", ErrNavUnavailable, "no NAV for %s on or before %s", id, day)
	}
	return NAV{Value: M(v, e.fund.Currency()), AsOf: on}, nil
}
