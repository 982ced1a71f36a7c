package factory

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/cew/auth"
	"github.com/kilianp07/cew/connectors"
	wholesalemarket "github.com/kilianp07/cew/connectors/wholesalemarket"
	corefactory "github.com/kilianp07/cew/core/factory"
)

const (
	IDWholesaleMarket = "wholesale_market"
)

var registry = corefactory.NewRegistry[connectors.PriceSource]()

type wholesaleConf struct {
	ClientID     string        `json:"client_id"`
	ClientSecret string        `json:"client_secret"`
	AuthURL      string        `json:"auth_url"`
	BaseURL      string        `json:"base_url"`
	Timeout      time.Duration `json:"timeout"`
}

func init() {
	registry.MustRegister(IDWholesaleMarket, func(conf map[string]any) (connectors.PriceSource, error) {
		var c wholesaleConf
		if err := corefactory.Decode(conf, &c); err != nil {
			return nil, err
		}
		creds := auth.Conf{ClientID: c.ClientID, ClientSecret: c.ClientSecret, AuthURL: c.AuthURL}
		if err := creds.Validate(); err != nil {
			return nil, err
		}
		opts := []wholesalemarket.Option{wholesalemarket.WithBaseURL(c.BaseURL)}
		if c.Timeout > 0 {
			opts = append(opts, wholesalemarket.WithHTTPClient(&http.Client{Timeout: c.Timeout}))
		}
		return wholesalemarket.New(auth.NewClientCred(creds), opts...), nil
	})
}

// NewPriceSource builds the price source selected by cfg.Type.
func NewPriceSource(cfg corefactory.ModuleConfig) (connectors.PriceSource, error) {
	src, err := registry.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("price source: %w", err)
	}
	return src, nil
}

// SourceTypes lists the registered price sources.
func SourceTypes() []string { return registry.Types() }
