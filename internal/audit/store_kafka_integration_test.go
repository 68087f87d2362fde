//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"sealproof/internal/audit"
	"sealproof/pkg/testutil/containers"
)

func TestKafkaStoreIntegration(t *testing.T) {
	ctx := context.Background()
	rp := containers.NewRedpandaContainer(t)

	const topic = "sealproof.audit.test"
	producer := rp.NewClient(t, kgo.AllowAutoTopicCreation())
	store := audit.NewKafkaStore(producer, topic)

	checkItemID := uuid.NewString()
	events := []audit.Event{
		{
			Category:    audit.CategoryCompliance,
			Timestamp:   time.Now().UTC().Truncate(time.Millisecond),
			Action:      audit.EventDecisionSealed,
			CheckItemID: checkItemID,
			DecisionID:  uuid.NewString(),
			Outcome:     "sealed",
		},
		{
			Category:    audit.CategorySecurity,
			Timestamp:   time.Now().UTC().Truncate(time.Millisecond),
			Action:      audit.EventReplayDetected,
			CheckItemID: checkItemID,
			Subject:     "img-connector",
			Reason:      "jti already used",
		},
	}
	for _, e := range events {
		require.NoError(t, store.Append(ctx, e))
	}

	consumer := rp.NewClient(t,
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)

	var got []audit.Event
	deadline := time.Now().Add(15 * time.Second)
	for len(got) < len(events) && time.Now().Before(deadline) {
		fetchCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		fetches := consumer.PollFetches(fetchCtx)
		cancel()
		fetches.EachRecord(func(r *kgo.Record) {
			assert.Equal(t, checkItemID, string(r.Key), "events for one item share a partition key")
			var e audit.Event
			require.NoError(t, json.Unmarshal(r.Value, &e))
			got = append(got, e)
		})
	}

	require.Len(t, got, len(events))
	assert.Equal(t, events[0].Action, got[0].Action)
	assert.Equal(t, events[1].Action, got[1].Action)
	assert.Equal(t, events[1].Category, got[1].Category)
	assert.Equal(t, events[0].DecisionID, got[0].DecisionID)
}
