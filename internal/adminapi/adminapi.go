// Package adminapi holds the JSON handlers of the admin HTTP surface.
package adminapi

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/talkincode/bikeshop/internal/app"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/internal/sales"
	"github.com/talkincode/bikeshop/internal/webserver"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 500
)

var initOnce sync.Once

// Init registers every admin route with the web server route table.
func Init() {
	initOnce.Do(func() {
		registerAuthRoutes()
		registerBikeRoutes()
		registerCustomerRoutes()
		registerSaleRoutes()
		registerReportRoutes()
		registerDashboardRoutes()
		registerSystemRoutes()
	})
}

// Response is the envelope of every JSON reply.
type Response struct {
	Success    bool        `json:"success"`
	Code       string      `json:"code,omitempty"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Details    interface{} `json:"details,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func okMsg(c echo.Context, data interface{}, msg string) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data, Message: msg})
}

func created(c echo.Context, data interface{}, msg string) error {
	return c.JSON(http.StatusCreated, Response{Success: true, Data: data, Message: msg})
}

func fail(c echo.Context, status int, code, msg string, details interface{}) error {
	return c.JSON(status, Response{Success: false, Code: code, Message: msg, Details: details})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Pagination: &Pagination{
			Page:  page,
			Limit: pageSize,
			Total: total,
			Pages: int(math.Ceil(float64(total) / float64(pageSize))),
		},
	})
}

// parsePagination reads page and limit, falling back to page 1 and defaultPageSize.
func parsePagination(c echo.Context) (page, pageSize int) {
	page = cast.ToInt(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize = cast.ToInt(c.QueryParam("limit"))
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

// bindPayload binds the request body into payload and runs its validate tags.
// On failure the error reply is already written and valid is false.
func bindPayload(c echo.Context, payload interface{}) (valid bool, err error) {
	if err := c.Bind(payload); err != nil {
		msg := "Unable to parse request"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg = cast.ToString(he.Message)
		}
		return false, fail(c, http.StatusBadRequest, "INVALID_REQUEST", msg, nil)
	}
	if err := c.Validate(payload); err != nil {
		return false, handleValidationError(c, err)
	}
	return true, nil
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", verrs[0].Field()+" is invalid", fields)
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
}

// failErr maps a store or coordinator error onto the HTTP reply. Inside the sale
// transactions every business failure is reported as 400.
func failErr(c echo.Context, err error, inTx bool) error {
	derr, isDomain := domain.AsError(err)
	if !isDomain {
		zap.L().Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
	status := http.StatusBadRequest
	switch {
	case inTx:
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrCustomerExists):
		status = http.StatusConflict
	}
	return fail(c, status, derr.Code, derr.Message, nil)
}

// currentOperator describes the resolved admin for event publishers.
func currentOperator(c echo.Context) sales.Operator {
	op := sales.Operator{IP: c.RealIP()}
	if opr := webserver.GetOperator(c); opr != nil {
		op.ID = opr.ID
		op.Name = opr.Email
	}
	return op
}

// audit publishes an operation log entry for the audit recorder.
func audit(c echo.Context, action, desc string) {
	op := currentOperator(c)
	GetAppContext(c).Bus().Publish(app.TopicOprLog, domain.SysOprLog{
		OprName:   op.Name,
		OprIp:     op.IP,
		OptAction: action,
		OptDesc:   desc,
	})
}
