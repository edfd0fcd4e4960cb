package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	pub    *events.Recorder
	router *gin.Engine
	orgID  uuid.UUID
	role   models.UserRole
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))

	pub := &events.Recorder{}
	return &testEnv{
		t:      t,
		db:     db,
		pub:    pub,
		router: setupRouter(db, pub, logrus.NewEntry(logrus.New())),
		orgID:  uuid.New(),
		role:   models.RoleManager,
	}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderOrgID, e.orgID.String())
	req.Header.Set(middleware.HeaderUserID, "user-1")
	req.Header.Set(middleware.HeaderUserRole, string(e.role))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func (e *testEnv) createProperty(name string) models.Property {
	e.t.Helper()
	w := e.do(http.MethodPost, "/properties", map[string]interface{}{"name": name, "type": "apartment", "units": 2})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var p models.Property
	decodeData(e.t, w, &p)
	return p
}

func (e *testEnv) createContractor(name string) models.Contractor {
	e.t.Helper()
	w := e.do(http.MethodPost, "/contractors", map[string]interface{}{"name": name, "trade": "plumbing"})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var ct models.Contractor
	decodeData(e.t, w, &ct)
	return ct
}

func TestPropertyCRUD(t *testing.T) {
	env := setup(t)
	p := env.createProperty("Flat 3, Mill Lane")
	assert.Equal(t, models.PropertyTypeApartment, p.Type)
	assert.Equal(t, env.orgID, p.OrgID)

	w := env.do(http.MethodPut, "/properties/"+p.ID.String(), map[string]interface{}{"postcode": "M1 2AB", "purchase_price": "185000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/properties/"+p.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail PropertyDetail
	decodeData(t, w, &detail)
	assert.Equal(t, "M1 2AB", detail.Postcode)
	require.NotNil(t, detail.PurchasePrice)
	assert.True(t, detail.PurchasePrice.Equal(decimal.NewFromInt(185000)))
	assert.Zero(t, detail.Tenancies)

	w = env.do(http.MethodGet, "/properties", nil)
	var list []models.Property
	decodeData(t, w, &list)
	assert.Len(t, list, 1)

	w = env.do(http.MethodDelete, "/properties/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/properties/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPropertyValidation(t *testing.T) {
	env := setup(t)

	w := env.do(http.MethodPost, "/properties", map[string]interface{}{"type": "castle", "name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPost, "/properties", map[string]interface{}{"units": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPost, "/properties", map[string]interface{}{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.role = models.RoleViewer
	w = env.do(http.MethodPost, "/properties", map[string]interface{}{"name": "Read only"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteProperty_RefusedWithTenancies(t *testing.T) {
	env := setup(t)
	p := env.createProperty("4 Dock Road")
	require.NoError(t, env.db.Create(&models.Tenancy{
		OrgID:       env.orgID,
		PropertyID:  p.ID,
		TenantName:  "Ada Byron",
		StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		MonthlyRent: decimal.NewFromInt(900),
		DueDay:      1,
	}).Error)

	w := env.do(http.MethodDelete, "/properties/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPropertiesAreOrgScoped(t *testing.T) {
	env := setup(t)
	p := env.createProperty("Private")

	env.orgID = uuid.New()
	w := env.do(http.MethodGet, "/properties/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/properties", nil)
	var list []models.Property
	decodeData(t, w, &list)
	assert.Empty(t, list)
}

func TestMaintenanceLifecycle_CompletionBooksExpense(t *testing.T) {
	env := setup(t)
	p := env.createProperty("9 Canal Side")
	ct := env.createContractor("Pipes & Co")

	w := env.do(http.MethodPost, "/maintenance", map[string]interface{}{
		"property_id":   p.ID.String(),
		"contractor_id": ct.ID.String(),
		"title":         "Leaking boiler",
		"priority":      "urgent",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var job models.MaintenanceRequest
	decodeData(t, w, &job)
	assert.Equal(t, models.MaintenanceOpen, job.Status)
	path := "/maintenance/" + job.ID.String() + "/status"

	// open -> completed skips in_progress
	w = env.do(http.MethodPatch, path, map[string]interface{}{"status": "completed"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPatch, path, map[string]interface{}{"status": "in_progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPatch, path, map[string]interface{}{"status": "completed", "cost": "420.00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeData(t, w, &job)
	assert.Equal(t, models.MaintenanceCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
	require.NotNil(t, job.ExpenseID)

	var expense models.Expense
	require.NoError(t, env.db.First(&expense, "id = ?", *job.ExpenseID).Error)
	assert.Equal(t, CategoryMaintenance, expense.Category)
	assert.True(t, expense.Amount.Equal(decimal.NewFromInt(420)))
	require.NotNil(t, expense.PropertyID)
	assert.Equal(t, p.ID, *expense.PropertyID)

	w = env.do(http.MethodPatch, path, map[string]interface{}{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = env.do(http.MethodPut, "/maintenance/"+job.ID.String(), map[string]interface{}{"title": "Too late"})
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, []events.Type{
		events.MaintenanceStatusChanged,
		events.MaintenanceStatusChanged,
		events.ExpenseCreated,
	}, env.pub.Types())
}

func TestMaintenance_RejectsUnknownReferences(t *testing.T) {
	env := setup(t)
	p := env.createProperty("1 High Street")

	w := env.do(http.MethodPost, "/maintenance", map[string]interface{}{"property_id": uuid.NewString(), "title": "Roof"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(http.MethodPost, "/maintenance", map[string]interface{}{
		"property_id": p.ID.String(), "contractor_id": uuid.NewString(), "title": "Roof",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(http.MethodPost, "/maintenance", map[string]interface{}{"property_id": p.ID.String(), "title": "Roof", "priority": "whenever"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContractorDelete_BlockedWhileWorking(t *testing.T) {
	env := setup(t)
	p := env.createProperty("2 High Street")
	ct := env.createContractor("Sparks Ltd")

	w := env.do(http.MethodPost, "/maintenance", map[string]interface{}{
		"property_id": p.ID.String(), "contractor_id": ct.ID.String(), "title": "Rewire",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var job models.MaintenanceRequest
	decodeData(t, w, &job)
	w = env.do(http.MethodPatch, "/maintenance/"+job.ID.String()+"/status", map[string]interface{}{"status": "in_progress"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, "/contractors/"+ct.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestExpenses_CreateAndFilter(t *testing.T) {
	env := setup(t)
	p := env.createProperty("7 Harbour View")

	bodies := []map[string]interface{}{
		{"amount": "120.00", "date": "2025-01-10", "category": "Insurance", "frequency": "monthly", "property_id": p.ID.String()},
		{"amount": "75.50", "date": "2025-02-03", "category": "repairs"},
		{"amount": "900", "date": "2025-03-20", "category": "repairs", "property_id": p.ID.String()},
	}
	for _, b := range bodies {
		w := env.do(http.MethodPost, "/expenses", b)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	tests := []struct {
		query string
		count int
		total string
	}{
		{"", 3, "1095.5"},
		{"?category=REPAIRS", 2, "975.5"},
		{"?property_id=" + p.ID.String(), 2, "1020"},
		{"?from=2025-02-01&to=2025-02-28", 1, "75.5"},
	}
	for _, tt := range tests {
		w := env.do(http.MethodGet, "/expenses"+tt.query, nil)
		require.Equal(t, http.StatusOK, w.Code, tt.query)
		var body struct {
			Expenses []models.Expense `json:"expenses"`
			Total    decimal.Decimal  `json:"total"`
		}
		decodeData(t, w, &body)
		assert.Len(t, body.Expenses, tt.count, tt.query)
		assert.True(t, body.Total.Equal(decimal.RequireFromString(tt.total)), "%s: %s", tt.query, body.Total)
	}

	assert.Len(t, env.pub.Types(), 3)
}

func TestExpenses_Validation(t *testing.T) {
	env := setup(t)

	tests := []map[string]interface{}{
		{"category": "repairs"},
		{"amount": "0", "category": "repairs"},
		{"amount": "10", "category": "repairs", "frequency": "weekly"},
		{"amount": "10", "category": "repairs", "date": "03/02/2025"},
		{"amount": "10", "category": "repairs", "property_id": uuid.NewString()},
	}
	for _, body := range tests {
		w := env.do(http.MethodPost, "/expenses", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}
