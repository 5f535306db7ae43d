package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/etnz/fundtrade"
)

// FundClasses lists the fund classes on offer. Entries that fail validation
// are reported together, after the valid ones.
func (c *Client) FundClasses(ctx context.Context) ([]fundtrade.Fund, error) {
	var details []FundClassDetail
	if err := c.get(ctx, "list funds", Session{}, "/fund-classes", &details); err != nil {
		return nil, err
	}
	funds := make([]fundtrade.Fund, 0, len(details))
	var errs error
	for _, d := range details {
		f, err := d.Decode()
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		funds = append(funds, f)
	}
	return funds, errs
}

// FundClass fetches one fund class by its child fund code.
func (c *Client) FundClass(ctx context.Context, id fundtrade.FundID) (fundtrade.Fund, error) {
	var d FundClassDetail
	path := fmt.Sprintf("/fund-classes/%s", url.PathEscape(string(id)))
	if err := c.get(ctx, "fetch fund", Session{}, path, &d); err != nil {
		return fundtrade.Fund{}, err
	}
	return d.Decode()
}

// LatestNAV implements fundtrade.NavSource.
func (c *Client) LatestNAV(ctx context.Context, id fundtrade.FundID) (fundtrade.NAV, error) {
	f, err := c.FundClass(ctx, id)
	if err != nil {
		return fundtrade.NAV{}, err
	}
	if !f.Class.NAV.Available() {
		return fundtrade.NAV{}, &fundtrade.Error{Kind: fundtrade.KindNotFound, Op: "nav", Msg: fmt.Sprintf("no NAV published for %s", id), Err: fundtrade.ErrNavUnavailable}
	}
	return f.Class.NAV, nil
}
