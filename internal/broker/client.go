// Package broker is a quote service backed by the T-Invest (Tinkoff) gRPC
// API. It also reads the broker account's positions so they can be imported
// into the ledger.
package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/russianinvestments/invest-api-go-sdk/investgo"

	"github.com/camuig/rus-portfolio/internal/config"
	"github.com/camuig/rus-portfolio/internal/logger"
)

const (
	sandboxEndpoint = "sandbox-invest-public-api.tinkoff.ru:443"
	liveEndpoint    = "invest-public-api.tinkoff.ru:443"
)

// BrokerClient wraps the investgo client. The SDK binds every call to the
// context given at construction, so per-call deadlines are enforced by
// quotes.WithTimeout around this client.
type BrokerClient struct {
	Client  *investgo.Client
	Logger  *logger.Logger
	sandbox bool

	uids    sync.Map // ticker -> instrument uid
	tickers sync.Map // instrument uid -> ticker
}

func NewBrokerClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (*BrokerClient, error) {
	endpoint := liveEndpoint
	if cfg.IsSandbox() {
		endpoint = sandboxEndpoint
	}

	investCfg := investgo.Config{
		EndPoint:  endpoint,
		Token:     cfg.Tinkoff.Token,
		AccountId: cfg.Tinkoff.AccountID,
		AppName:   "rus-portfolio",
	}

	client, err := investgo.NewClient(ctx, investCfg, log)
	if err != nil {
		return nil, fmt.Errorf("create investgo client: %w", err)
	}

	return &BrokerClient{
		Client:  client,
		Logger:  log,
		sandbox: cfg.IsSandbox(),
	}, nil
}

func (bc *BrokerClient) AccountID() string {
	return bc.Client.Config.AccountId
}

func (bc *BrokerClient) Stop() error {
	return bc.Client.Stop()
}
