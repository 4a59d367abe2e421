package adminapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/internal/store"
	"github.com/talkincode/bikeshop/internal/webserver"
	"go.uber.org/zap"
)

type customerPayload struct {
	Name    string `json:"name" validate:"required,max=128"`
	Phone   string `json:"phone" validate:"required,max=32"`
	Email   string `json:"email" validate:"omitempty,email,max=128"`
	Address string `json:"address" validate:"omitempty,max=512"`
}

// customerPatchPayload leaves absent fields nil; "" clears email or address.
type customerPatchPayload struct {
	Name    *string `json:"name" validate:"omitempty,max=128"`
	Phone   *string `json:"phone" validate:"omitempty,max=32"`
	Email   *string `json:"email" validate:"omitempty,email,max=128"`
	Address *string `json:"address" validate:"omitempty,max=512"`
}

// registerCustomerRoutes registers customer endpoints
func registerCustomerRoutes() {
	webserver.ApiGET("/customers", listCustomers)
	webserver.ApiGET("/customers/:id", getCustomer)
	webserver.ApiPOST("/customers", createCustomer)
	webserver.ApiPUT("/customers/:id", updateCustomer)
	webserver.ApiDELETE("/customers/:id", deleteCustomer)
}

func listCustomers(c echo.Context) error {
	customers, err := store.New(GetDB(c)).Customers.List(c.Request().Context())
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, customers)
}

func getCustomer(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Customer ID is required", nil)
	}
	customer, err := store.New(GetDB(c)).Customers.GetByID(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, false)
	}
	return ok(c, customer)
}

func createCustomer(c echo.Context) error {
	var payload customerPayload
	if valid, err := bindPayload(c, &payload); !valid {
		return err
	}
	customer := &domain.Customer{
		Name:    payload.Name,
		Phone:   payload.Phone,
		Email:   strings.TrimSpace(payload.Email),
		Address: strings.TrimSpace(payload.Address),
	}
	if err := store.New(GetDB(c)).Customers.Create(c.Request().Context(), customer); err != nil {
		return failErr(c, err, false)
	}
	zap.L().Info("customer registered", zap.Int64("customer_id", customer.ID), zap.String("name", customer.Name))
	return created(c, customer, "Customer added successfully")
}

func updateCustomer(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Customer ID is required", nil)
	}
	var payload customerPatchPayload
	if valid, err := bindPayload(c, &payload); !valid {
		return err
	}
	patch := store.CustomerPatch{
		Name:    payload.Name,
		Phone:   payload.Phone,
		Email:   payload.Email,
		Address: payload.Address,
	}
	if patch.IsEmpty() {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "At least one field is required to update", nil)
	}
	customer, err := store.New(GetDB(c)).Customers.Update(c.Request().Context(), id, patch)
	if err != nil {
		return failErr(c, err, false)
	}
	return okMsg(c, customer, "Customer updated successfully")
}

func deleteCustomer(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid data", nil)
	}
	if err := store.New(GetDB(c)).Customers.Delete(c.Request().Context(), id); err != nil {
		return failErr(c, err, false)
	}
	audit(c, "customer_delete", fmt.Sprintf("customer %d removed", id))
	return okMsg(c, nil, "Customer deleted successfully")
}
