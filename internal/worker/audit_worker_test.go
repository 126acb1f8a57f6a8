package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/folio-labs/auth-service/internal/events"
	"github.com/folio-labs/auth-service/internal/observability"
	"github.com/folio-labs/auth-service/internal/service"
)

func TestStartAuditWorker(t *testing.T) {
	StartAuditWorker(nil)

	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	StartAuditWorker(service.NewAuditService(dispatcher, zap.New(core), metrics))

	err := dispatcher.Publish(context.Background(), events.NewEvent(events.EventLoggedOut, "acc-1", "", events.LoggedOutPayload{WasActive: true}))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("auth event").Len())
	assert.EqualValues(t, 1, metrics.Snapshot().Auth["logged_out"])
}
