package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordQuery(t *testing.T) {
	before := testutil.ToFloat64(QueryErrors.WithLabelValues("sessions/*"))

	RecordQuery("sessions/*", 2*time.Millisecond, nil)
	RecordQuery("sessions/*", 3*time.Millisecond, errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(QueryErrors.WithLabelValues("sessions/*")))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(QueryDuration), 1)
}

func TestRecordMutation(t *testing.T) {
	c := Mutations.WithLabelValues("insert", "sessions")
	before := testutil.ToFloat64(c)

	RecordMutation("insert", "sessions")
	RecordMutation("insert", "sessions")

	assert.Equal(t, before+2, testutil.ToFloat64(c))
}

func TestRecordBatch(t *testing.T) {
	committed := testutil.ToFloat64(Batches.WithLabelValues(OutcomeCommitted))
	rolledBack := testutil.ToFloat64(Batches.WithLabelValues(OutcomeRolledBack))

	RecordBatch(true)
	RecordBatch(false)
	RecordBatch(false)

	assert.Equal(t, committed+1, testutil.ToFloat64(Batches.WithLabelValues(OutcomeCommitted)))
	assert.Equal(t, rolledBack+2, testutil.ToFloat64(Batches.WithLabelValues(OutcomeRolledBack)))
}

func TestRecordMigrationAndRebuild(t *testing.T) {
	recreate := testutil.ToFloat64(Migrations.WithLabelValues(KindRecreate))
	rebuilds := testutil.ToFloat64(SearchIndexRebuilds)

	RecordMigration(KindRecreate)
	RecordSearchIndexRebuild()

	assert.Equal(t, recreate+1, testutil.ToFloat64(Migrations.WithLabelValues(KindRecreate)))
	assert.Equal(t, rebuilds+1, testutil.ToFloat64(SearchIndexRebuilds))
}

func TestRecordNotification(t *testing.T) {
	before := testutil.ToFloat64(Notifications.WithLabelValues("schedule.changes"))
	RecordNotification("schedule.changes")
	assert.Equal(t, before+1, testutil.ToFloat64(Notifications.WithLabelValues("schedule.changes")))
}
