package observability

import (
	"context"
	"errors"
	"testing"

	"clanhub/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, models.CodePermissionDenied, Outcome(models.NewPermissionDeniedError("no")))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(WorkflowTransitions.WithLabelValues("join_request", "accept", "ok"))
	RecordTransition("join_request", "accept", nil)
	after := testutil.ToFloat64(WorkflowTransitions.WithLabelValues("join_request", "accept", "ok"))
	assert.Equal(t, before+1, after)
}

func TestRegisterGormMetrics(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, RegisterGormMetrics(db))
	require.NoError(t, db.AutoMigrate(&models.Report{}))

	require.NoError(t, db.Create(&models.Report{SubjectType: models.ReportSubjectUser, SubjectID: 1, ReportedByID: 2, Reason: "spam"}).Error)
	var reports []models.Report
	require.NoError(t, db.Find(&reports).Error)

	// one series for the insert and one for the select
	assert.GreaterOrEqual(t, testutil.CollectAndCount(DatabaseQueryLatency), 2)
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "clanhub-test", Enabled: false})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	span, ctx := StartWorkflowSpan(context.Background(), "ban", "ban_user", 7)
	assert.NotNil(t, ctx)
	err = errors.New("denied")
	assert.Equal(t, err, span.Finish(err))
}

func TestSpanFinish_ClassifiesErrors(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := Tracer
	Tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)).Tracer("clanhub-test")
	t.Cleanup(func() { Tracer = prev })

	refusal := models.NewConflictError(models.ReasonAlreadyBanned, "already banned")
	for _, err := range []error{nil, refusal, models.NewStoreUnavailableError(errors.New("conn reset"))} {
		span, _ := StartWorkflowSpan(context.Background(), "ban", "ban_user", 3)
		_ = span.Finish(err)
	}

	spans := rec.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "ban.ban_user", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
	assert.Equal(t, codes.Error, spans[2].Status().Code)

	var reason string
	for _, kv := range spans[1].Attributes() {
		if kv.Key == "workflow.reason" {
			reason = kv.Value.AsString()
		}
	}
	assert.Equal(t, models.ReasonAlreadyBanned, reason)
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{ServiceName: "clanhub-test", Enabled: true, Exporter: "zipkin"})
	assert.ErrorContains(t, err, "unknown tracing exporter")
}
