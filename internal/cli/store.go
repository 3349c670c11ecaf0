package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"memorial-narrator/internal/domain"
	"memorial-narrator/internal/ratelimit"
	"memorial-narrator/internal/repository"
	"memorial-narrator/internal/repository/sqlite"
	"memorial-narrator/internal/usecase"
)

// Store is the backend every command runs against: the local SQLite file or,
// with --table, the deployed DynamoDB table.
type Store interface {
	usecase.MemorialStore
	usecase.MemoryStore
	ratelimit.Store
	CreateMemorial(ctx context.Context, m domain.Memorial) (domain.Memorial, error)
	AddMemory(ctx context.Context, m domain.Memory) (domain.Memory, error)
}

// memorialLister is only implemented by the local store.
type memorialLister interface {
	ListMemorials(ctx context.Context, ownerID string) ([]domain.Memorial, error)
}

func (a *app) tableName() string {
	if a.table != "" {
		return strings.TrimSpace(a.table)
	}
	return strings.TrimSpace(os.Getenv("MEMORIAL_TABLE"))
}

// withStore opens the configured backend for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(Store) error) error {
	var (
		store Store
		err   error
	)
	if table := a.tableName(); table != "" {
		store, err = a.openTable(ctx, table)
	} else {
		store, err = sqlite.Open(a.getDBPath())
	}
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}
	return fn(store)
}

func (a *app) openDynamo(ctx context.Context, table string) (Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return repository.New(awsdynamodb.NewFromConfig(cfg), table,
		repository.WithRateLimitTTL(a.window))
}
