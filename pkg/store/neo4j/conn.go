package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	n4j "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	n4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"github.com/getzep/graphrag/config"
	"github.com/getzep/graphrag/internal"
)

var log = internal.GetLogger()

// NewNeo4jConn creates a driver for cfg and waits until the server is
// reachable. Connectivity failures are retried with backoff.
func NewNeo4jConn(ctx context.Context, cfg *config.Neo4jConfig) (n4j.DriverWithContext, error) {
	driver, err := n4j.NewDriverWithContext(
		cfg.URI,
		n4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *n4jconfig.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
			if cfg.ConnectionTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.ConnectionTimeout
				c.SocketConnectTimeout = cfg.ConnectionTimeout
			}
			if cfg.MaxTransactionRetryTime > 0 {
				c.MaxTransactionRetryTime = cfg.MaxTransactionRetryTime
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error creating neo4j driver: %w", err)
	}

	connectRetryPolicy := retrypolicy.Builder[any]().
		HandleIf(func(_ any, err error) bool {
			return err != nil && ctx.Err() == nil
		}).
		WithBackoff(500*time.Millisecond, 10*time.Second).
		WithMaxRetries(max(cfg.ConnectMaxRetries, 0)).
		Build()

	attempt := 0
	_, err = failsafe.Get(func() (any, error) {
		attempt++
		err := driver.VerifyConnectivity(ctx)
		if err != nil && attempt <= cfg.ConnectMaxRetries {
			log.WithField("attempt", attempt).Warnf("neo4j not reachable: %v", err)
		}
		return nil, err
	}, connectRetryPolicy)
	if err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("unable to connect to neo4j at %s: %w", cfg.URI, err)
	}

	log.WithField("uri", cfg.URI).Info("connected to neo4j")

	return driver, nil
}
