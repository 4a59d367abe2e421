package adminapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/bikeshop/config"
	"github.com/talkincode/bikeshop/internal/app"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/internal/store/storetest"
	"github.com/talkincode/bikeshop/internal/webserver"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type apiFixture struct {
	t     *testing.T
	app   *app.Application
	e     *echo.Echo
	token string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	application := app.NewApplication(config.DefaultAppConfig())
	require.NoError(t, application.Setup(storetest.NewDB(t)))
	t.Cleanup(func() { application.Auditor().Close() })

	Init()
	f := &apiFixture{t: t, app: application, e: webserver.NewAdminServer(application).Echo()}

	rec := f.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    app.SuperEmail,
		"password": app.SuperDefaultPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result struct {
		User  domain.SysOpr `json:"user"`
		Token string        `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotEmpty(t, result.Token)
	f.token = result.Token
	return f
}

func (f *apiFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if f.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the envelope and its data into data.
func (f *apiFixture) decode(rec *httptest.ResponseRecorder, data interface{}) Response {
	f.t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	if data != nil && len(raw.Data) > 0 {
		require.NoError(f.t, json.Unmarshal(raw.Data, data), string(raw.Data))
	}
	return raw.Response
}

func (f *apiFixture) addBike(model string, stock int, price float64) domain.Bike {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/bikes", map[string]interface{}{
		"model":        model,
		"color":        "Red",
		"engineCC":     110,
		"sellingPrice": price,
		"stock":        stock,
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	var bike domain.Bike
	f.decode(rec, &bike)
	return bike
}

func (f *apiFixture) addCustomer(name, phone string) domain.Customer {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/customers", map[string]string{"name": name, "phone": phone})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	var customer domain.Customer
	f.decode(rec, &customer)
	return customer
}

func (f *apiFixture) sell(bike domain.Bike, customer domain.Customer, qty int) *httptest.ResponseRecorder {
	return f.do(http.MethodPost, "/api/sales", map[string]interface{}{
		"bikeId":        jsonID(bike.ID),
		"customerId":    customer.ID,
		"quantity":      qty,
		"paymentMethod": "upi",
	})
}

func jsonID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestProtectRejectsMissingToken(t *testing.T) {
	f := newAPIFixture(t)
	f.token = ""
	rec := f.do(http.MethodGet, "/api/bikes", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not authorized")

	f.token = "not-a-token"
	rec = f.do(http.MethodGet, "/api/bikes", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t)
	f.token = ""

	rec := f.do(http.MethodPost, "/api/auth/login", map[string]string{"email": app.SuperEmail})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/auth/login", map[string]string{"email": app.SuperEmail, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")

	rec = f.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    app.SuperEmail,
		"password": app.SuperDefaultPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestLoginSurvivesLastLoginWriteFailure(t *testing.T) {
	f := newAPIFixture(t)
	f.token = ""

	core, logs := observer.New(zap.WarnLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))
	require.NoError(t, f.app.DB().Callback().Update().Before("gorm:update").
		Register("test:fail_last_login", func(tx *gorm.DB) {
			if tx.Statement.Table == (domain.SysOpr{}).TableName() {
				_ = tx.AddError(errors.New("disk full"))
			}
		}))

	rec := f.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    app.SuperEmail,
		"password": app.SuperDefaultPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entries := logs.FilterMessage("record last login failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "disk full")
}

func TestProfile(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodGet, "/api/auth/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var opr domain.SysOpr
	f.decode(rec, &opr)
	assert.Equal(t, app.SuperEmail, opr.Email)
	assert.Equal(t, domain.OprLevelSuper, opr.Level)
}

func TestBikeCrud(t *testing.T) {
	f := newAPIFixture(t)
	bike := f.addBike("Jupiter", 3, 75000)
	assert.Equal(t, "TVS", bike.Brand)
	assert.Equal(t, domain.BikeStatusInStock, bike.Status)

	rec := f.do(http.MethodPost, "/api/bikes", map[string]interface{}{"color": "Blue"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/bikes/"+jsonID(bike.ID), map[string]interface{}{"sellingPrice": "80000", "color": "Black"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.Bike
	f.decode(rec, &updated)
	assert.Equal(t, 80000.0, updated.SellingPrice)
	assert.Equal(t, "Black", updated.Color)
	assert.Equal(t, "Jupiter", updated.Model)
	assert.Equal(t, 3, updated.Stock)

	rec = f.do(http.MethodPut, "/api/bikes/"+jsonID(bike.ID), map[string]interface{}{"status": "broken"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/bikes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bikes []domain.Bike
	f.decode(rec, &bikes)
	assert.Len(t, bikes, 1)

	rec = f.do(http.MethodGet, "/api/bikes/stock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary []domain.StockSummary
	f.decode(rec, &summary)
	require.Len(t, summary, 1)
	assert.EqualValues(t, 1, summary[0].Total)
	assert.EqualValues(t, 1, summary[0].InStock)

	rec = f.do(http.MethodDelete, "/api/bikes/"+jsonID(bike.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodGet, "/api/bikes/"+jsonID(bike.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSoldBikeRejected(t *testing.T) {
	f := newAPIFixture(t)
	bike := f.addBike("Apache", 1, 120000)
	customer := f.addCustomer("Ravi", "9000000001")
	require.Equal(t, http.StatusCreated, f.sell(bike, customer, 1).Code)

	rec := f.do(http.MethodDelete, "/api/bikes/"+jsonID(bike.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := f.decode(rec, nil)
	assert.Equal(t, domain.ErrBikeSold.Code, resp.Code)
}

func TestBikePriceEditKeepsSoldStock(t *testing.T) {
	f := newAPIFixture(t)
	bike := f.addBike("Ronin", 2, 150000)
	customer := f.addCustomer("Irfan", "9000000011")
	require.Equal(t, http.StatusCreated, f.sell(bike, customer, 2).Code)

	rec := f.do(http.MethodPut, "/api/bikes/"+jsonID(bike.ID), map[string]interface{}{"sellingPrice": 155000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.Bike
	f.decode(rec, &updated)
	assert.Equal(t, 155000.0, updated.SellingPrice)
	assert.Equal(t, 0, updated.Stock)
	assert.Equal(t, domain.BikeStatusSold, updated.Status)

	rec = f.do(http.MethodPut, "/api/bikes/"+jsonID(bike.ID), map[string]interface{}{"model": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(http.MethodPut, "/api/bikes/4242", map[string]interface{}{"color": "Red"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomerCrud(t *testing.T) {
	f := newAPIFixture(t)
	customer := f.addCustomer("Asha", "9000000002")

	rec := f.do(http.MethodPost, "/api/customers", map[string]string{"name": "Other", "phone": "9000000002"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPut, "/api/customers/"+jsonID(customer.ID), map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/customers/"+jsonID(customer.ID), map[string]string{"address": "MG Road"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated domain.Customer
	f.decode(rec, &updated)
	assert.Equal(t, "MG Road", updated.Address)
	assert.Equal(t, "Asha", updated.Name)

	rec = f.do(http.MethodPut, "/api/customers/"+jsonID(customer.ID), map[string]string{"address": "", "email": "asha@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f.decode(rec, &updated)
	assert.Empty(t, updated.Address)
	assert.Equal(t, "asha@example.com", updated.Email)

	rec = f.do(http.MethodPut, "/api/customers/"+jsonID(customer.ID), map[string]string{"email": ""})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f.decode(rec, &updated)
	assert.Empty(t, updated.Email)

	rec = f.do(http.MethodPut, "/api/customers/"+jsonID(customer.ID), map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodDelete, "/api/customers/"+jsonID(customer.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(http.MethodGet, "/api/customers/"+jsonID(customer.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaleLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	bike := f.addBike("Ntorq", 2, 90000)
	customer := f.addCustomer("Kiran", "9000000003")

	rec := f.sell(bike, customer, 3)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Available: 2, Requested: 3")

	rec = f.sell(bike, customer, 2)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sale domain.SaleDetail
	f.decode(rec, &sale)
	assert.Equal(t, 180000.0, sale.TotalAmount)
	assert.Equal(t, domain.PaymentUPI, sale.PaymentMethod)
	require.NotNil(t, sale.Bike)
	assert.Equal(t, "Ntorq", sale.Bike.Model)
	require.NotNil(t, sale.Customer)
	assert.Equal(t, "Kiran", sale.Customer.Name)

	rec = f.do(http.MethodGet, "/api/bikes/"+jsonID(bike.ID), nil)
	var sold domain.Bike
	f.decode(rec, &sold)
	assert.Equal(t, 0, sold.Stock)
	assert.Equal(t, domain.BikeStatusSold, sold.Status)

	rec = f.do(http.MethodPut, "/api/sales/"+jsonID(sale.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(http.MethodPut, "/api/sales/"+jsonID(sale.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/bikes/"+jsonID(bike.ID), nil)
	var restored domain.Bike
	f.decode(rec, &restored)
	assert.Equal(t, 2, restored.Stock)
	assert.Equal(t, domain.BikeStatusInStock, restored.Status)
}

func TestSaleUnknownReferences(t *testing.T) {
	f := newAPIFixture(t)
	customer := f.addCustomer("Meena", "9000000004")

	rec := f.sell(domain.Bike{ID: 42}, customer, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ErrBikeNotFound.Code, f.decode(rec, nil).Code)

	rec = f.do(http.MethodPost, "/api/sales", map[string]interface{}{"customerId": jsonID(customer.ID), "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSalesPaged(t *testing.T) {
	f := newAPIFixture(t)
	bike := f.addBike("Raider", 10, 95000)
	a := f.addCustomer("A", "9000000005")
	b := f.addCustomer("B", "9000000006")
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, f.sell(bike, a, 1).Code)
	}
	require.Equal(t, http.StatusCreated, f.sell(bike, b, 1).Code)

	rec := f.do(http.MethodGet, "/api/sales?page=1&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []domain.SaleDetail
	resp := f.decode(rec, &rows)
	assert.Len(t, rows, 2)
	require.NotNil(t, resp.Pagination)
	assert.EqualValues(t, 4, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.Pages)

	rec = f.do(http.MethodGet, "/api/sales?customerId="+jsonID(a.ID), nil)
	f.decode(rec, &rows)
	assert.Len(t, rows, 3)

	rec = f.do(http.MethodGet, "/api/sales/"+jsonID(b.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f.decode(rec, &rows)
	assert.Len(t, rows, 1)

	rec = f.do(http.MethodGet, "/api/sales?startDate=not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSalesDashboardRoute(t *testing.T) {
	f := newAPIFixture(t)
	bike := f.addBike("XL100", 5, 50000)
	customer := f.addCustomer("Dev", "9000000007")
	require.Equal(t, http.StatusCreated, f.sell(bike, customer, 2).Code)

	rec := f.do(http.MethodGet, "/api/sales/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"today"`)
	assert.Contains(t, rec.Body.String(), "100000")
}

func TestReportsAndDashboard(t *testing.T) {
	f := newAPIFixture(t)
	bike := f.addBike("Sport", 4, 60000)
	customer := f.addCustomer("Lata", "9000000008")
	require.Equal(t, http.StatusCreated, f.sell(bike, customer, 1).Code)
	require.Equal(t, http.StatusCreated, f.sell(bike, customer, 2).Code)

	for _, path := range []string{
		"/api/reports/sales",
		"/api/reports/daily",
		"/api/reports/customer/" + jsonID(customer.ID),
		"/api/reports/bike/" + jsonID(bike.ID),
		"/api/reports/revenue",
		"/api/dashboard/stats",
		"/api/dashboard/sales-overview?period=monthly",
		"/api/dashboard/top-bikes?limit=3",
		"/api/dashboard/revenue",
	} {
		rec := f.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path+": "+rec.Body.String())
	}

	rec := f.do(http.MethodGet, "/api/reports/revenue", nil)
	var summary struct {
		TotalRevenue float64 `json:"totalRevenue"`
		TotalSales   int64   `json:"totalSales"`
	}
	f.decode(rec, &summary)
	assert.Equal(t, 180000.0, summary.TotalRevenue)
	assert.EqualValues(t, 2, summary.TotalSales)

	rec = f.do(http.MethodGet, "/api/dashboard/top-bikes", nil)
	var top []struct {
		TotalSold int `json:"totalSold"`
	}
	f.decode(rec, &top)
	require.Len(t, top, 1)
	assert.Equal(t, 3, top[0].TotalSold)
}

func TestExportSales(t *testing.T) {
	f := newAPIFixture(t)
	bike := f.addBike("Star", 2, 45000)
	customer := f.addCustomer("Nila", "9000000009")
	require.Equal(t, http.StatusCreated, f.sell(bike, customer, 1).Code)

	rec := f.do(http.MethodGet, "/api/reports/sales/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Nila")

	rec = f.do(http.MethodGet, "/api/reports/sales/export?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = f.do(http.MethodGet, "/api/reports/sales/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperationLogs(t *testing.T) {
	f := newAPIFixture(t)
	bike := f.addBike("Zest", 2, 55000)
	customer := f.addCustomer("Om", "9000000010")
	rec := f.sell(bike, customer, 1)
	require.Equal(t, http.StatusCreated, rec.Code)
	var sale domain.SaleDetail
	f.decode(rec, &sale)
	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/api/sales/"+jsonID(sale.ID), nil).Code)
	f.app.Auditor().Flush()

	rec = f.do(http.MethodGet, "/api/system/oprlogs?limit=50", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []domain.SysOprLog
	f.decode(rec, &logs)
	actions := make(map[string]domain.SysOprLog)
	for _, l := range logs {
		actions[l.OptAction] = l
	}
	for _, want := range []string{"login", "sale_create", "sale_cancel"} {
		assert.Contains(t, actions, want)
	}
	assert.Equal(t, app.SuperEmail, actions["sale_create"].OprName)
	assert.Contains(t, actions["sale_create"].OptDesc, sale.InvoiceNumber)

	rec = f.do(http.MethodGet, "/api/system/oprlogs?action=sale_cancel", nil)
	f.decode(rec, &logs)
	assert.Len(t, logs, 1)
}
