package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/weiwei-tsao/complaint-portal/internal/business/stats"
	"github.com/weiwei-tsao/complaint-portal/internal/platform/config"
	firestoreclient "github.com/weiwei-tsao/complaint-portal/internal/platform/firestore"
	mongoclient "github.com/weiwei-tsao/complaint-portal/internal/platform/mongo"
	"github.com/weiwei-tsao/complaint-portal/internal/repository"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend bundles the repositories of the configured document store.
type Backend struct {
	Reports      stats.ReportStore
	Satisfaction stats.SatisfactionStore
	Pinger       Pinger
	close        func() error
}

// Close releases the underlying client.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open connects to the backend selected by cfg.StoreBackend and verifies it
// is reachable. The connection is reused for every request.
func Open(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		client, credsSource, err := firestoreclient.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("firestore init: %w", err)
		}
		if err := firestoreclient.Ping(ctx, client); err != nil {
			client.Close()
			return nil, fmt.Errorf("firestore ping: %w", err)
		}
		log.WithFields(logrus.Fields{
			"project":     cfg.FirebaseProjectID,
			"credentials": credsSource,
		}).Info("connected to Firestore")

		collections := repository.NewFirestoreCollections(client)
		reports := repository.NewFirestoreReportRepository(collections, cfg.ReportsCollection)
		return &Backend{
			Reports:      reports,
			Satisfaction: repository.NewFirestoreSatisfactionRepository(collections, cfg.SatisfactionCollection),
			Pinger:       reports,
			close:        client.Close,
		}, nil

	case config.BackendMongo:
		client, err := mongoclient.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.WithField("database", cfg.MongoDatabase).Info("connected to MongoDB")

		collections := repository.NewMongoCollections(client.Database(cfg.MongoDatabase))
		reports := repository.NewMongoReportRepository(collections, cfg.ReportsCollection)
		return &Backend{
			Reports:      reports,
			Satisfaction: repository.NewMongoSatisfactionRepository(collections, cfg.SatisfactionCollection),
			Pinger:       reports,
			close:        func() error { return mongoclient.Close(client) },
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// NewStatsService builds the aggregator over b using cfg's statuses and time zone.
func NewStatsService(cfg config.Config, b *Backend, log logrus.FieldLogger) (*stats.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return stats.NewService(b.Reports, b.Satisfaction,
		stats.Statuses{InProgress: cfg.StatusInProgress, Completed: cfg.StatusCompleted},
		stats.WithLocation(loc),
		stats.WithLogger(log),
	), nil
}
