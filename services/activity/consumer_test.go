package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
)

// fakeReader hands out queued messages and blocks once they run out
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	onCommit  func(n int)
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	n := len(r.committed)
	r.mu.Unlock()
	if r.onCommit != nil {
		r.onCommit(n)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func message(t *testing.T, ev events.Event, offset int64) kafka.Message {
	t.Helper()
	msg, err := ev.Message("property-events")
	require.NoError(t, err)
	msg.Offset = offset
	return msg
}

func newEvent(t *testing.T, typ events.Type, orgID uuid.UUID, summary string) events.Event {
	t.Helper()
	ev, err := events.New(typ, orgID, uuid.NewString(), "user-1", summary, map[string]string{"k": "v"})
	require.NoError(t, err)
	return ev
}

func TestStore_IgnoresReplays(t *testing.T) {
	db := setupDB(t)
	c := &Consumer{db: db, log: logrus.NewEntry(logrus.New())}
	orgID := uuid.New()
	ev := newEvent(t, events.PaymentRecorded, orgID, "Payment of 100.00 recorded")

	require.NoError(t, c.Store(context.Background(), message(t, ev, 1)))
	require.NoError(t, c.Store(context.Background(), message(t, ev, 1)))

	var rows []models.Activity
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, ev.ID.String(), rows[0].EventID)
	assert.Equal(t, orgID, rows[0].OrgID)
	assert.Equal(t, string(events.PaymentRecorded), rows[0].EventType)
	assert.Equal(t, "Payment of 100.00 recorded", rows[0].Summary)
	assert.Equal(t, "user-1", rows[0].Actor)
}

func TestStore_RejectsMalformed(t *testing.T) {
	c := &Consumer{db: setupDB(t), log: logrus.NewEntry(logrus.New())}

	err := c.Store(context.Background(), kafka.Message{Value: []byte(`{"type":"x"}`)})
	var poison *poisonError
	assert.ErrorAs(t, err, &poison)
}

func TestRun_StoresAndCommitsEveryMessage(t *testing.T) {
	db := setupDB(t)
	orgID := uuid.New()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reader := &fakeReader{
		queue: []kafka.Message{
			message(t, newEvent(t, events.TenancyCreated, orgID, "Tenancy created"), 10),
			{Offset: 11, Value: []byte("not json")},
			message(t, newEvent(t, events.ExpenseCreated, orgID, "Expense created"), 12),
		},
	}
	reader.onCommit = func(n int) {
		if n == 3 {
			cancel()
		}
	}
	c := &Consumer{reader: reader, db: db, log: logrus.NewEntry(logrus.New())}

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	<-done

	assert.Equal(t, []int64{10, 11, 12}, reader.committed)
	var count int64
	require.NoError(t, db.Model(&models.Activity{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestListActivity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupDB(t)
	orgID := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := []models.Activity{
		{EventID: "e1", OrgID: orgID, EventType: string(events.TenancyCreated), OccurredAt: base},
		{EventID: "e2", OrgID: orgID, EventType: string(events.PaymentRecorded), OccurredAt: base.Add(time.Hour)},
		{EventID: "e3", OrgID: orgID, EventType: string(events.PaymentRecorded), OccurredAt: base.Add(2 * time.Hour)},
		{EventID: "e4", OrgID: uuid.New(), EventType: string(events.PaymentRecorded), OccurredAt: base},
	}
	require.NoError(t, db.Create(&rows).Error)
	router := setupRouter(db, logrus.NewEntry(logrus.New()))

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(middleware.HeaderOrgID, orgID.String())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}
	eventIDs := func(w *httptest.ResponseRecorder) []string {
		var envelope struct {
			Data []models.Activity `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		ids := make([]string, len(envelope.Data))
		for i, a := range envelope.Data {
			ids[i] = a.EventID
		}
		return ids
	}

	w := get("/activity")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"e3", "e2", "e1"}, eventIDs(w))

	w = get("/activity?limit=1&type=payment.recorded")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"e3"}, eventIDs(w))

	assert.Equal(t, http.StatusBadRequest, get("/activity?limit=abc").Code)

	req := httptest.NewRequest(http.MethodGet, "/activity", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
