package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/internal/store"
	"github.com/talkincode/bikeshop/internal/webserver"
	"go.uber.org/zap"
)

type bikePayload struct {
	Brand         string  `json:"brand" validate:"omitempty,max=64"`
	Model         string  `json:"model" validate:"required,max=128"`
	Color         string  `json:"color" validate:"required,max=64"`
	EngineCC      float64 `json:"engineCC" validate:"gte=0"`
	PurchasePrice float64 `json:"purchasePrice" validate:"gte=0"`
	SellingPrice  float64 `json:"sellingPrice" validate:"gte=0"`
	Stock         int     `json:"stock" validate:"gte=0"`
}

// bikePatch holds the fields present in an update body; nil means absent.
type bikePatch struct {
	Brand         *string  `json:"brand"`
	Model         *string  `json:"model"`
	Color         *string  `json:"color"`
	EngineCC      *float64 `json:"engineCC"`
	PurchasePrice *float64 `json:"purchasePrice"`
	SellingPrice  *float64 `json:"sellingPrice"`
	Stock         *int     `json:"stock"`
	Status        *string  `json:"status"`
}

// columns validates the patch and maps it onto bike table columns.
func (p *bikePatch) columns() (map[string]interface{}, string) {
	cols := make(map[string]interface{})
	text := func(col string, v *string, required bool) string {
		if v == nil {
			return ""
		}
		s := strings.TrimSpace(*v)
		if required && s == "" {
			return col + " cannot be empty"
		}
		cols[col] = s
		return ""
	}
	for _, msg := range []string{
		text("brand", p.Brand, true),
		text("model", p.Model, true),
		text("color", p.Color, true),
	} {
		if msg != "" {
			return nil, msg
		}
	}
	for col, v := range map[string]*float64{
		"engine_cc":      p.EngineCC,
		"purchase_price": p.PurchasePrice,
		"selling_price":  p.SellingPrice,
	} {
		if v == nil {
			continue
		}
		if *v < 0 {
			return nil, "Prices cannot be negative"
		}
		cols[col] = *v
	}
	if p.Stock != nil {
		if *p.Stock < 0 {
			return nil, "Stock cannot be negative"
		}
		cols["stock"] = *p.Stock
	}
	if p.Status != nil {
		s := strings.ToUpper(strings.TrimSpace(*p.Status))
		if s != domain.BikeStatusInStock && s != domain.BikeStatusSold {
			return nil, "Status must be IN_STOCK or SOLD"
		}
		cols["status"] = s
	}
	return cols, ""
}

// registerBikeRoutes registers inventory endpoints
func registerBikeRoutes() {
	webserver.ApiGET("/bikes", listBikes)
	webserver.ApiGET("/bikes/stock", stockSummary)
	webserver.ApiGET("/bikes/:id", getBike)
	webserver.ApiPOST("/bikes", createBike)
	webserver.ApiPUT("/bikes/:id", updateBike)
	webserver.ApiDELETE("/bikes/:id", deleteBike)
}

func listBikes(c echo.Context) error {
	bikes, err := store.New(GetDB(c)).Bikes.List(c.Request().Context())
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, bikes)
}

func getBike(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid bike ID", nil)
	}
	bike, err := store.New(GetDB(c)).Bikes.GetByID(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, bike)
}

func createBike(c echo.Context) error {
	var payload bikePayload
	if valid, err := bindPayload(c, &payload); !valid {
		return err
	}

	brand := strings.TrimSpace(payload.Brand)
	if brand == "" {
		brand = GetAppContext(c).Config().Shop.DefaultBrand
	}
	bike := &domain.Bike{
		Brand:         brand,
		Model:         strings.TrimSpace(payload.Model),
		Color:         strings.TrimSpace(payload.Color),
		EngineCC:      payload.EngineCC,
		PurchasePrice: payload.PurchasePrice,
		SellingPrice:  payload.SellingPrice,
		Stock:         payload.Stock,
	}
	if err := store.New(GetDB(c)).Bikes.Create(c.Request().Context(), bike); err != nil {
		return failErr(c, err, false)
	}
	zap.L().Info("bike added", zap.Int64("bike_id", bike.ID), zap.String("model", bike.Model), zap.Int("stock", bike.Stock))
	return created(c, bike, "Bike added successfully")
}

// updateBike writes only the fields present in the body.
func updateBike(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid bike ID", nil)
	}

	fields := make(map[string]interface{})
	if err := c.Echo().JSONSerializer.Deserialize(c, &fields); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse bike", err.Error())
	}
	var patch bikePatch
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &patch,
	})
	if err != nil {
		return failErr(c, err, false)
	}
	if err := decoder.Decode(fields); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse bike", err.Error())
	}
	cols, msg := patch.columns()
	if msg != "" {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", msg, nil)
	}

	bike, err := store.New(GetDB(c)).Bikes.Update(c.Request().Context(), id, cols)
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, bike)
}

func deleteBike(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid bike ID", nil)
	}
	if err := store.New(GetDB(c)).Bikes.Delete(c.Request().Context(), id); err != nil {
		return failErr(c, err, false)
	}
	audit(c, "bike_delete", fmt.Sprintf("bike %d removed", id))
	return okMsg(c, nil, "Bike removed successfully")
}

func stockSummary(c echo.Context) error {
	rows, err := store.New(GetDB(c)).Bikes.StockSummary(c.Request().Context())
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, rows)
}
