package broker

import (
	"fmt"

	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/shopspring/decimal"
)

// PositionInfo is one security position held on the broker account.
type PositionInfo struct {
	Ticker        string
	InstrumentUID string
	Quantity      decimal.Decimal
	AvgPrice      decimal.Decimal
}

type portfolioResponse interface {
	GetPositions() []*pb.PortfolioPosition
}

// Positions lists the non-currency positions of the configured account.
func (bc *BrokerClient) Positions() ([]PositionInfo, error) {
	accountID := bc.AccountID()
	currency := pb.PortfolioRequest_RUB

	var resp portfolioResponse
	if bc.sandbox {
		sandbox := bc.Client.NewSandboxServiceClient()
		r, err := sandbox.GetSandboxPortfolio(accountID, currency)
		if err != nil {
			return nil, fmt.Errorf("get sandbox portfolio: %w", err)
		}
		resp = r.PortfolioResponse
	} else {
		ops := bc.Client.NewOperationsServiceClient()
		r, err := ops.GetPortfolio(accountID, currency)
		if err != nil {
			return nil, fmt.Errorf("get portfolio: %w", err)
		}
		resp = r.PortfolioResponse
	}

	return bc.convertPositions(resp.GetPositions()), nil
}

func (bc *BrokerClient) convertPositions(positions []*pb.PortfolioPosition) []PositionInfo {
	var out []PositionInfo
	for _, pos := range positions {
		if pos.GetInstrumentType() == "currency" {
			continue
		}
		pi := PositionInfo{
			InstrumentUID: pos.GetInstrumentUid(),
			Quantity:      quotationToDecimal(pos.GetQuantity()),
			AvgPrice:      moneyToDecimal(pos.GetAveragePositionPrice()),
		}
		ticker, err := bc.resolveInstrumentUID(pi.InstrumentUID)
		if err != nil {
			bc.Logger.Warn("skip position with unknown instrument", "uid", pi.InstrumentUID, "error", err)
			continue
		}
		pi.Ticker = ticker
		if !pi.Quantity.IsPositive() {
			continue
		}
		out = append(out, pi)
	}
	return out
}

func moneyToDecimal(m *pb.MoneyValue) decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	return decimal.NewFromInt(m.GetUnits()).Add(decimal.New(int64(m.GetNano()), -9))
}
