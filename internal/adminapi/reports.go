package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/bikeshop/internal/reporting"
	"github.com/talkincode/bikeshop/internal/webserver"
)

// registerReportRoutes registers ledger report endpoints
func registerReportRoutes() {
	webserver.ApiGET("/reports/sales", reportAllSales)
	webserver.ApiGET("/reports/sales/export", reportExportSales)
	webserver.ApiGET("/reports/daily", reportDailySales)
	webserver.ApiGET("/reports/customer/:customerId", reportCustomerSales)
	webserver.ApiGET("/reports/bike/:bikeId", reportBikeSales)
	webserver.ApiGET("/reports/revenue", reportRevenue)
}

// registerDashboardRoutes registers home page endpoints
func registerDashboardRoutes() {
	webserver.ApiGET("/dashboard/stats", dashboardStats)
	webserver.ApiGET("/dashboard/sales-overview", dashboardSalesOverview)
	webserver.ApiGET("/dashboard/top-bikes", dashboardTopBikes)
	webserver.ApiGET("/dashboard/revenue", dashboardRevenue)
}

func reportAllSales(c echo.Context) error {
	rows, err := GetAppContext(c).Reports().AllSales(c.Request().Context())
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, rows)
}

func reportDailySales(c echo.Context) error {
	day, err := parseDateParam(c, "date")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid date", err.Error())
	}
	var date time.Time
	if day != nil {
		date = *day
	}
	report, err := GetAppContext(c).Reports().DailySales(c.Request().Context(), date)
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, report)
}

func reportCustomerSales(c echo.Context) error {
	id, err := parseIDParam(c, "customerId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid customer ID", nil)
	}
	rows, err := GetAppContext(c).Reports().SalesByCustomer(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, rows)
}

func reportBikeSales(c echo.Context) error {
	id, err := parseIDParam(c, "bikeId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid bike ID", nil)
	}
	rows, err := GetAppContext(c).Reports().SalesByBike(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, rows)
}

func reportRevenue(c echo.Context) error {
	summary, err := GetAppContext(c).Reports().RevenueSummary(c.Request().Context())
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, summary)
}

// reportExportSales streams the whole ledger as csv (default) or xlsx.
func reportExportSales(c echo.Context) error {
	format := strings.ToLower(c.QueryParam("format"))
	if format == "" {
		format = reporting.ExportCSV
	}
	if format != reporting.ExportCSV && format != reporting.ExportXLSX {
		return fail(c, http.StatusBadRequest, "INVALID_FORMAT", "Format must be csv or xlsx", nil)
	}
	rows, err := GetAppContext(c).Reports().AllSales(c.Request().Context())
	if err != nil {
		return failErr(c, err, false)
	}

	filename := fmt.Sprintf("sales-%s.%s", time.Now().Format("20060102"), format)
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	if format == reporting.ExportXLSX {
		resp.Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		resp.WriteHeader(http.StatusOK)
		return reporting.WriteXLSX(resp, rows)
	}
	resp.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	resp.WriteHeader(http.StatusOK)
	return reporting.WriteCSV(resp, rows)
}

func dashboardStats(c echo.Context) error {
	d, err := GetAppContext(c).Reports().Dashboard(c.Request().Context())
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, d)
}

func dashboardSalesOverview(c echo.Context) error {
	points, err := GetAppContext(c).Reports().SalesOverview(c.Request().Context(), c.QueryParam("period"))
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, points)
}

func dashboardTopBikes(c echo.Context) error {
	limit := reporting.DefaultTopBikesLimit
	if v := c.QueryParam("limit"); v != "" {
		limit = cast.ToInt(v)
	}
	rows, err := GetAppContext(c).Reports().TopSellingBikes(c.Request().Context(), limit)
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, rows)
}

func dashboardRevenue(c echo.Context) error {
	stats, err := GetAppContext(c).Reports().RevenueGrowth(c.Request().Context())
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, stats)
}
