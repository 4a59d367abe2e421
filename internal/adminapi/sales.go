package adminapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/bikeshop/internal/sales"
	"github.com/talkincode/bikeshop/internal/store"
	"github.com/talkincode/bikeshop/internal/webserver"
)

// flexID accepts an id sent either as a JSON string or as a JSON number.
type flexID int64

func (id *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*id = flexID(v)
	return nil
}

type salePayload struct {
	BikeID             flexID  `json:"bikeId" validate:"required"`
	CustomerID         flexID  `json:"customerId" validate:"required"`
	Quantity           int     `json:"quantity" validate:"required,min=1"`
	DiscountPercentage float64 `json:"discountPercentage" validate:"gte=0,lte=100"`
	DiscountAmount     float64 `json:"discountAmount" validate:"gte=0"`
	PaymentMethod      string  `json:"paymentMethod"`
	SaleDate           string  `json:"saleDate"`
}

// registerSaleRoutes registers sale transaction endpoints
func registerSaleRoutes() {
	webserver.ApiPOST("/sales", createSale)
	webserver.ApiGET("/sales", listSales)
	webserver.ApiGET("/sales/dashboard", salesDashboard)
	webserver.ApiGET("/sales/:customerId", customerSales)
	webserver.ApiPUT("/sales/:id", cancelSale)
}

// parseDateParam parses a free form date query value; empty yields nil.
func parseDateParam(c echo.Context, name string) (*time.Time, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	t, err := dateparse.ParseLocal(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func createSale(c echo.Context) error {
	var payload salePayload
	if valid, err := bindPayload(c, &payload); !valid {
		return err
	}
	req := sales.SellRequest{
		BikeID:             int64(payload.BikeID),
		CustomerID:         int64(payload.CustomerID),
		Quantity:           payload.Quantity,
		DiscountPercentage: payload.DiscountPercentage,
		DiscountAmount:     payload.DiscountAmount,
		PaymentMethod:      payload.PaymentMethod,
	}
	if strings.TrimSpace(payload.SaleDate) != "" {
		t, err := dateparse.ParseLocal(payload.SaleDate)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid saleDate", err.Error())
		}
		req.SaleDate = &t
	}

	ctx := sales.WithOperator(c.Request().Context(), currentOperator(c))
	detail, err := GetAppContext(c).Sales().Sell(ctx, req)
	if err != nil {
		return failErr(c, err, true)
	}
	return created(c, detail, "Sale completed successfully")
}

func listSales(c echo.Context) error {
	page, pageSize := parsePagination(c)
	filter := store.SaleFilter{
		OrderBy: "sale_date",
		Page:    store.Page{Page: page, Limit: pageSize},
	}
	var err error
	if filter.StartDate, err = parseDateParam(c, "startDate"); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid startDate", err.Error())
	}
	if filter.EndDate, err = parseDateParam(c, "endDate"); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid endDate", err.Error())
	}
	if v := c.QueryParam("customerId"); v != "" {
		if filter.CustomerID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid customerId", nil)
		}
	}

	rows, total, err := store.New(GetDB(c)).Sales.ListDetails(c.Request().Context(), filter)
	if err != nil {
		return failErr(c, err, false)
	}
	return paged(c, rows, total, page, pageSize)
}

func customerSales(c echo.Context) error {
	id, err := parseIDParam(c, "customerId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid customer ID", nil)
	}
	rows, _, err := store.New(GetDB(c)).Sales.ListDetails(c.Request().Context(), store.SaleFilter{
		CustomerID: id,
		OrderBy:    "sale_date",
	})
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, rows)
}

func cancelSale(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid sale ID", nil)
	}
	ctx := sales.WithOperator(c.Request().Context(), currentOperator(c))
	sale, err := GetAppContext(c).Sales().Cancel(ctx, id)
	if err != nil {
		return failErr(c, err, true)
	}
	return okMsg(c, sale, "Sale cancelled successfully")
}

func salesDashboard(c echo.Context) error {
	stats, err := GetAppContext(c).Reports().SalesStatistics(c.Request().Context())
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, stats)
}
