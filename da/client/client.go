package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/airchains-network/da-dispatcher/config"
	"github.com/airchains-network/da-dispatcher/da"
	"github.com/airchains-network/da-dispatcher/da/avail"
	"github.com/airchains-network/da-dispatcher/da/celestia"
	"github.com/airchains-network/da-dispatcher/da/near"
	"github.com/airchains-network/da-dispatcher/da/objectstore"
	"github.com/airchains-network/da-dispatcher/db"
	"github.com/airchains-network/da-dispatcher/dispatch"
	"github.com/airchains-network/da-dispatcher/eth"
	"github.com/sirupsen/logrus"
)

// Client is a configured backend pipeline together with the connections it owns.
type Client struct {
	da.Client
	closers []func()
}

// Close releases the backend connections.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// New builds the pipeline for the backend selected in cfg. observer may be nil.
func New(ctx context.Context, cfg config.Config, log *logrus.Logger, observer dispatch.Observer) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, _ := cfg.DA.TimeoutDuration()
	poll, _ := cfg.DA.PollIntervalDuration()
	pcfg := dispatch.Config{MaxRetries: cfg.DA.MaxRetries, PollInterval: poll, Timeout: timeout}
	httpClient := &http.Client{Timeout: timeout}

	c := &Client{}
	switch cfg.DA.Backend {
	case avail.Name:
		var chain avail.Chain
		if !cfg.Avail.GasRelayMode {
			sdkChain, err := avail.NewSDKChain(cfg.Avail.APINodeURL, cfg.Avail.Seed, cfg.Avail.AppID, log)
			if err != nil {
				return nil, err
			}
			chain = sdkChain
		}
		adapter, err := avail.NewAdapter(cfg.Avail, chain, httpClient, log)
		if err != nil {
			return nil, err
		}
		c.Client = dispatch.NewPipeline[avail.BlobID, *avail.BridgeProof](adapter, avail.Transcode, pcfg, log).WithObserver(observer)

	case celestia.Name:
		node, err := celestia.NewRPCNode(ctx, cfg.Celestia.NodeURL, cfg.Celestia.AuthToken, cfg.Celestia.Namespace, log)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, node.Close)
		adapter := celestia.NewAdapter(node, log)
		c.Client = dispatch.NewPipeline[celestia.BlobID, *celestia.RawProof](adapter, celestia.Transcode, pcfg, log).WithObserver(observer)

	case near.Name:
		endpoint, err := cfg.Near.Endpoint()
		if err != nil {
			return nil, err
		}
		evm, err := eth.NewClient(ctx, cfg.Near.EVMProviderURL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, evm.Close)
		bridge, err := eth.NewNearX(evm, cfg.Near.BridgeContract)
		if err != nil {
			c.Close()
			return nil, err
		}
		adapter, err := near.NewAdapter(cfg.Near, near.NewRPCClient(endpoint, httpClient), bridge, log)
		if err != nil {
			c.Close()
			return nil, err
		}
		log.Infof("Initialized NEAR client for %s, bridge %s", endpoint, bridge.Address.Hex())
		c.Client = dispatch.NewPipeline[near.CryptoHash, *near.RawProof](adapter, near.Transcode, pcfg, log).WithObserver(observer)

	case objectstore.Name:
		store, err := db.NewLevelDB(cfg.ObjectStore.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open object store: %v", err)
		}
		c.closers = append(c.closers, func() { store.Close() })
		adapter := objectstore.NewAdapter(store, cfg.ObjectStore.MaxBlobSize, log)
		c.Client = dispatch.NewPipeline[objectstore.BlobID, *objectstore.RawProof](adapter, objectstore.Transcode, pcfg, log).WithObserver(observer)
	}

	log.WithFields(logrus.Fields{
		"backend":       c.Name(),
		"max_blob_size": c.MaxBlobSize(),
		"max_retries":   pcfg.MaxRetries,
	}).Info("DA client ready")
	return c, nil
}
