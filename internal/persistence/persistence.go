// Package persistence selects the storage backend an index is written to
// and read from. The builder never depends on a backend's format; it only
// sees the Adapter contract.
package persistence

import (
	"context"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/persistence/redisstore"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/internal/persistence/sqlstore"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/resilience"
)

// Adapter stores and loads whole indexes. Failures match ErrIO, and Load
// reports undecodable data as ErrFormat.
type Adapter interface {
	Store(ctx context.Context, x *index.Index, destination string) error
	Load(ctx context.Context, source string) (*index.Index, error)
}

var (
	_ Adapter = segment.Store{}
	_ Adapter = (*sqlstore.Store)(nil)
	_ Adapter = (*redisstore.Store)(nil)
)

// Backend is an Adapter holding connections that must be released.
type Backend interface {
	Adapter
	io.Closer
}

type backend struct {
	Adapter
	close func() error
}

func (b backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open connects to the backend named by cfg.Storage.Backend. Connecting and
// storing on remote backends are retried per cfg.Storage.Retry.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	retry := cfg.Storage.Retry
	switch cfg.Storage.Backend {
	case "file":
		return backend{Adapter: segment.Store{}}, nil

	case "sql":
		var client *database.Client
		err := resilience.Retry(ctx, "connect "+cfg.Database.Driver, retry, func() error {
			var err error
			client, err = database.New(ctx, cfg.Database)
			return err
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrIO, err, "connecting to %s", cfg.Database.Driver)
		}
		store, err := sqlstore.New(ctx, client)
		if err != nil {
			client.Close()
			return nil, err
		}
		return backend{Adapter: retrying{Adapter: store, cfg: retry, name: "sql"}, close: client.Close}, nil

	case "redis":
		var client *pkgredis.Client
		err := resilience.Retry(ctx, "connect redis", retry, func() error {
			var err error
			client, err = pkgredis.NewClient(ctx, cfg.Redis)
			return err
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrIO, err, "connecting to redis at %s", cfg.Redis.Addr)
		}
		store := redisstore.New(client, cfg.Redis.KeyPrefix)
		return backend{Adapter: retrying{Adapter: store, cfg: retry, name: "redis"}, close: client.Close}, nil

	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "unknown storage backend %q", cfg.Storage.Backend)
	}
}

// retrying retries Store. Load is not retried: a missing or malformed
// source does not heal by asking again.
type retrying struct {
	Adapter
	cfg  config.RetryConfig
	name string
}

func (r retrying) Store(ctx context.Context, x *index.Index, destination string) error {
	return resilience.Retry(ctx, fmt.Sprintf("%s store %s", r.name, destination), r.cfg, func() error {
		return r.Adapter.Store(ctx, x, destination)
	})
}
