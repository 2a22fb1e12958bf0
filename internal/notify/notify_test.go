package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"activity-signups/internal/common/logger"
	"activity-signups/internal/common/metrics"
	"activity-signups/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

type funcNotifier struct {
	name string
	fn   func(ctx context.Context, event models.RosterEvent) error
}

func (f *funcNotifier) Name() string { return f.name }

func (f *funcNotifier) Notify(ctx context.Context, event models.RosterEvent) error {
	return f.fn(ctx, event)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestEvent(eventType models.RosterEventType) models.RosterEvent {
	return models.RosterEvent{
		ID:         "6f1c2a7e-0b0e-4c2f-9a57-3f8e7f6f2d11",
		Type:       eventType,
		Activity:   "Chess Club",
		Email:      "test.user@example.com",
		OccurredAt: time.Date(2024, 9, 6, 15, 30, 0, 0, time.UTC),
	}
}

func mustEncode(t *testing.T, event models.RosterEvent) string {
	t.Helper()
	b, err := json.Marshal(event)
	require.NoError(t, err)
	return string(b)
}

// ==========================
// Fanout
// ==========================

func TestFanout_DeliversToEverySink(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	record := func(name string) Notifier {
		return &funcNotifier{name: name, fn: func(_ context.Context, e models.RosterEvent) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, name+":"+e.Email)
			return nil
		}}
	}

	f := NewFanout(logger.NewTestLogger(t), time.Second, record("a"), record("b"), record("c"))
	assert.Equal(t, 3, f.Len())

	f.Dispatch(context.Background(), createTestEvent(models.RosterEventSignedUp))

	assert.ElementsMatch(t, []string{
		"a:test.user@example.com",
		"b:test.user@example.com",
		"c:test.user@example.com",
	}, seen)
}

func TestFanout_FailureIsCountedNotPropagated(t *testing.T) {
	before := testutil.ToFloat64(metrics.NotificationsFailed.WithLabelValues("broken"))

	delivered := false
	f := NewFanout(logger.NewTestLogger(t), time.Second,
		&funcNotifier{name: "broken", fn: func(context.Context, models.RosterEvent) error {
			return errors.New("downstream unavailable")
		}},
		&funcNotifier{name: "healthy", fn: func(context.Context, models.RosterEvent) error {
			delivered = true
			return nil
		}},
	)

	f.Dispatch(context.Background(), createTestEvent(models.RosterEventSignedUp))

	assert.True(t, delivered)
	after := testutil.ToFloat64(metrics.NotificationsFailed.WithLabelValues("broken"))
	assert.Equal(t, before+1, after)
}

func TestFanout_SinkTimeout(t *testing.T) {
	f := NewFanout(logger.NewTestLogger(t), 20*time.Millisecond,
		&funcNotifier{name: "slow", fn: func(ctx context.Context, _ models.RosterEvent) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	)

	start := time.Now()
	f.Dispatch(context.Background(), createTestEvent(models.RosterEventSignedUp))
	assert.Less(t, time.Since(start), time.Second)
}

func TestFanout_IgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got error
	f := NewFanout(logger.NewTestLogger(t), time.Second,
		&funcNotifier{name: "probe", fn: func(ctx context.Context, _ models.RosterEvent) error {
			got = ctx.Err()
			return nil
		}},
	)
	f.Dispatch(ctx, createTestEvent(models.RosterEventSignedUp))
	assert.NoError(t, got)
}

func TestFanout_NilAndEmpty(t *testing.T) {
	var f *Fanout
	assert.Equal(t, 0, f.Len())
	f.Dispatch(context.Background(), createTestEvent(models.RosterEventSignedUp))

	NewFanout(logger.NewNoOpLogger(), 0).Dispatch(context.Background(), createTestEvent(models.RosterEventSignedUp))
}

// ==========================
// Redis
// ==========================

func TestRedisPublisher_Notify(t *testing.T) {
	event := createTestEvent(models.RosterEventSignedUp)

	tests := []struct {
		name    string
		setup   func(mock redismock.ClientMock)
		wantErr bool
	}{
		{
			name: "published",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectPublish("activities:roster", mustEncode(t, event)).SetVal(1)
			},
		},
		{
			name: "redis error",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectPublish("activities:roster", mustEncode(t, event)).SetErr(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			tt.setup(mock)

			err := NewRedisPublisher(client, "activities:roster").Notify(context.Background(), event)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRedisPublisher_Subscriber(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "activities:roster")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	event := createTestEvent(models.RosterEventUnregistered)
	require.NoError(t, NewRedisPublisher(client, "activities:roster").Notify(ctx, event))

	select {
	case msg := <-sub.Channel():
		var got models.RosterEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, event, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

// ==========================
// Postgres audit
// ==========================

func TestNewAuditLog_RejectsBadTableName(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewAuditLog(db, "roster; DROP TABLE users")
	assert.Error(t, err)
}

func TestAuditLog_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS roster_events")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	audit, err := NewAuditLog(db, "roster_events")
	require.NoError(t, err)
	assert.NoError(t, audit.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLog_Notify(t *testing.T) {
	event := createTestEvent(models.RosterEventSignedUp)
	insert := regexp.QuoteMeta("INSERT INTO roster_events (id, event_type, activity, email, occurred_at)")

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr bool
	}{
		{
			name: "row inserted",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(insert).
					WithArgs(event.ID, "signed_up", "Chess Club", "test.user@example.com", event.OccurredAt).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name: "database error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(insert).WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(mock)

			audit, err := NewAuditLog(db, "roster_events")
			require.NoError(t, err)

			err = audit.Notify(context.Background(), event)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// ==========================
// Elasticsearch
// ==========================

func newTestSearchClient(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestSearchIndexer_Notify(t *testing.T) {
	event := createTestEvent(models.RosterEventSignedUp)

	var (
		gotMethod string
		gotPath   string
		gotBody   models.RosterEvent
	)
	client := newTestSearchClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	err := NewSearchIndexer(client, "roster-events").Notify(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/roster-events/_doc/"+event.ID, gotPath)
	assert.Equal(t, event, gotBody)
}

func TestSearchIndexer_ErrorStatus(t *testing.T) {
	client := newTestSearchClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})

	err := NewSearchIndexer(client, "roster-events").Notify(context.Background(), createTestEvent(models.RosterEventSignedUp))
	assert.Error(t, err)
}

// ==========================
// SES / SNS
// ==========================

func TestEmailConfirmer_Notify(t *testing.T) {
	tests := []struct {
		name        string
		eventType   models.RosterEventType
		sendErr     error
		wantSubject string
		wantErr     bool
	}{
		{name: "signup confirmation", eventType: models.RosterEventSignedUp, wantSubject: "Signed up for Chess Club"},
		{name: "unregister confirmation", eventType: models.RosterEventUnregistered, wantSubject: "Unregistered from Chess Club"},
		{name: "ses failure", eventType: models.RosterEventSignedUp, sendErr: errors.New("throttled"), wantSubject: "Signed up for Chess Club", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *ses.SendEmailInput
			mock := &MockSESService{
				SendEmailFunc: func(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
					captured = params
					if tt.sendErr != nil {
						return nil, tt.sendErr
					}
					return &ses.SendEmailOutput{}, nil
				},
			}

			err := NewEmailConfirmer(mock, "activities@mergington.edu").Notify(context.Background(), createTestEvent(tt.eventType))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			require.NotNil(t, captured)
			assert.Equal(t, []string{"test.user@example.com"}, captured.Destination.ToAddresses)
			assert.Equal(t, "activities@mergington.edu", *captured.Source)
			assert.Equal(t, tt.wantSubject, *captured.Message.Subject.Data)
		})
	}
}

func TestTopicPublisher_Notify(t *testing.T) {
	event := createTestEvent(models.RosterEventUnregistered)

	var captured *sns.PublishInput
	mock := &MockSNSService{
		PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			captured = params
			return &sns.PublishOutput{}, nil
		},
	}

	arn := "arn:aws:sns:us-east-1:123456789012:roster-events"
	require.NoError(t, NewTopicPublisher(mock, arn).Notify(context.Background(), event))

	require.NotNil(t, captured)
	assert.Equal(t, arn, *captured.TopicArn)
	assert.JSONEq(t, mustEncode(t, event), *captured.Message)
	assert.Equal(t, "unregistered", *captured.MessageAttributes["event_type"].StringValue)

	mock.PublishFunc = func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
		return nil, errors.New("topic not found")
	}
	assert.Error(t, NewTopicPublisher(mock, arn).Notify(context.Background(), event))
}
