package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/whiskeyshelf/apiserver/config"
	"github.com/whiskeyshelf/apiserver/internal/db"
	"github.com/whiskeyshelf/apiserver/internal/mq"
	"github.com/whiskeyshelf/apiserver/internal/services"
	"github.com/whiskeyshelf/apiserver/internal/storage"
	"github.com/whiskeyshelf/apiserver/internal/store"
	"github.com/whiskeyshelf/apiserver/internal/store/memstore"
)

// Deps holds the wired services and the connections backing them.
type Deps struct {
	Users    *services.UserService
	Tags     *services.AttributeService
	Places   *services.AttributeService
	Whiskeys *services.WhiskeyService

	db      *sql.DB
	storage *storage.Storage
	broker  *mq.MQ
}

type repositories struct {
	users    services.UserRepository
	tags     services.AttributeRepository
	places   services.AttributeRepository
	whiskeys services.WhiskeyRepository
}

// OpenDeps connects the store, object storage and broker selected by cfg
// and builds the services on top of them.
func OpenDeps(ctx context.Context, cfg config.Config) (*Deps, error) {
	d := &Deps{}

	repos, err := d.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	d.storage, err = storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	d.broker, err = mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("open broker: %w", err)
	}

	// A nil *mq.MQ must not become a non-nil interface value.
	var events services.EventPublisher
	if d.broker != nil {
		events = d.broker
	}

	d.Users = services.NewUserService(repos.users)
	d.Tags = services.NewAttributeService(repos.tags)
	d.Places = services.NewAttributeService(repos.places)
	d.Whiskeys = services.NewWhiskeyService(repos.whiskeys, repos.tags, repos.places, d.storage, events)
	return d, nil
}

// OpenUsers connects only the store and builds the account service, for
// commands that never touch images or events.
func OpenUsers(ctx context.Context, cfg config.Config) (*Deps, error) {
	d := &Deps{}
	repos, err := d.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.Users = services.NewUserService(repos.users)
	return d, nil
}

func (d *Deps) openStore(ctx context.Context, cfg config.Config) (repositories, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		s := memstore.New()
		return repositories{
			users:    s.Users(),
			tags:     s.Tags(),
			places:   s.Places(),
			whiskeys: s.Whiskeys(),
		}, nil
	case config.StoreBackendPostgres, "":
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return repositories{}, err
		}
		d.db = conn
		return repositories{
			users:    store.NewUserRepository(conn),
			tags:     store.NewTagRepository(conn),
			places:   store.NewPlaceRepository(conn),
			whiskeys: store.NewWhiskeyRepository(conn),
		}, nil
	default:
		return repositories{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Close releases the database and broker connections.
func (d *Deps) Close() error {
	var errs []error
	if d.broker != nil {
		errs = append(errs, d.broker.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	return errors.Join(errs...)
}
