package newsletter

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Subscriber{}))
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel})
	return NewService(NewRepository(db), logg)
}

func TestSubscribe(t *testing.T) {
	svc := newTestService(t)

	sub, err := svc.Subscribe(context.Background(), "  Visitor@Example.COM ")
	require.NoError(t, err)
	require.NotEmpty(t, sub.ID)
	require.Equal(t, "visitor@example.com", sub.Email)
}

func TestSubscribeDuplicate(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Subscribe(context.Background(), "visitor@example.com")
	require.NoError(t, err)

	_, err = svc.Subscribe(context.Background(), "VISITOR@example.com")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	require.Equal(t, "email is already subscribed", typed.Message())
}

func TestSubscribeInvalidEmail(t *testing.T) {
	svc := newTestService(t)
	for _, email := range []string{"", "plain", "a@b", "a b@c.com", "@example.com"} {
		_, err := svc.Subscribe(context.Background(), email)
		require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code(), email)
	}
}
