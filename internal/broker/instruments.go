package broker

import (
	"context"
	"fmt"
	"strings"

	"github.com/camuig/rus-portfolio/internal/quotes"
)

func (bc *BrokerClient) resolveInstrumentUID(uid string) (string, error) {
	if cached, ok := bc.tickers.Load(uid); ok {
		return cached.(string), nil
	}

	instruments := bc.Client.NewInstrumentsServiceClient()
	resp, err := instruments.InstrumentByUid(uid)
	if err != nil {
		return "", fmt.Errorf("instrument by uid %s: %w", uid, err)
	}

	ticker := resp.GetInstrument().GetTicker()
	bc.remember(ticker, uid)
	return ticker, nil
}

// ResolveTickerToUID resolves a ticker to its instrument UID, preferring an
// exact ticker match among the search results.
func (bc *BrokerClient) ResolveTickerToUID(ticker string) (string, error) {
	ticker = quotes.NormalizeTicker(ticker)
	if cached, ok := bc.uids.Load(ticker); ok {
		return cached.(string), nil
	}

	instruments := bc.Client.NewInstrumentsServiceClient()
	resp, err := instruments.FindInstrument(ticker)
	if err != nil {
		return "", fmt.Errorf("find instrument %s: %w", ticker, err)
	}

	for _, inst := range resp.GetInstruments() {
		if strings.EqualFold(inst.GetTicker(), ticker) {
			uid := inst.GetUid()
			bc.remember(ticker, uid)
			return uid, nil
		}
	}

	return "", fmt.Errorf("instrument not found: %s", ticker)
}

func (bc *BrokerClient) remember(ticker, uid string) {
	bc.uids.Store(ticker, uid)
	bc.tickers.Store(uid, ticker)
}

// Sector returns the issuer sector reported for a share.
func (bc *BrokerClient) Sector(_ context.Context, ticker string) (string, error) {
	uid, err := bc.ResolveTickerToUID(ticker)
	if err != nil {
		return "", err
	}

	instruments := bc.Client.NewInstrumentsServiceClient()
	resp, err := instruments.ShareByUid(uid)
	if err != nil {
		return "", fmt.Errorf("share by uid %s: %w", uid, err)
	}

	sector := resp.GetInstrument().GetSector()
	if sector == "" {
		return quotes.UnknownSector, nil
	}
	return sector, nil
}
