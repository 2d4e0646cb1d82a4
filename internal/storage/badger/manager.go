package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/common"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	ticker    interfaces.TickerStorage
	price     interfaces.PriceStorage
	news      interfaces.NewsStorage
	aggregate interfaces.AggregateStorage
	jobRun    interfaces.JobRunStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:        db,
		ticker:    NewTickerStorage(db, logger),
		price:     NewPriceStorage(db, logger),
		news:      NewNewsStorage(db, logger),
		aggregate: NewAggregateStorage(db, logger),
		jobRun:    NewJobRunStorage(db, logger),
		logger:    logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// TickerStorage returns the Ticker storage interface
func (m *Manager) TickerStorage() interfaces.TickerStorage {
	return m.ticker
}

// PriceStorage returns the PricePoint storage interface
func (m *Manager) PriceStorage() interfaces.PriceStorage {
	return m.price
}

// NewsStorage returns the NewsArticle storage interface
func (m *Manager) NewsStorage() interfaces.NewsStorage {
	return m.news
}

// AggregateStorage returns the AggregateRecord storage interface
func (m *Manager) AggregateStorage() interfaces.AggregateStorage {
	return m.aggregate
}

// JobRunStorage returns the JobRun storage interface
func (m *Manager) JobRunStorage() interfaces.JobRunStorage {
	return m.jobRun
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
