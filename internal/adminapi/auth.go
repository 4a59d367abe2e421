package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/internal/webserver"
	"github.com/talkincode/bikeshop/pkg/common"
	"go.uber.org/zap"
)

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResult is returned bare, without the response envelope.
type loginResult struct {
	User  *domain.SysOpr `json:"user"`
	Token string         `json:"token"`
}

// registerAuthRoutes registers the login and profile endpoints
func registerAuthRoutes() {
	webserver.PublicPOST("/auth/login", login)
	webserver.ApiGET("/auth/profile", profile)
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" || payload.Password == "" {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "All fields required", nil)
	}

	var opr domain.SysOpr
	err := GetDB(c).Where("email = ?", email).First(&opr).Error
	if err != nil || !common.CheckPassword(opr.Password, payload.Password) {
		zap.L().Warn("login failed", zap.String("email", email), zap.String("ip", c.RealIP()))
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
	}
	if opr.Status != common.ENABLED {
		return fail(c, http.StatusUnauthorized, "ACCOUNT_DISABLED", "Account disabled", nil)
	}

	cfg := GetAppContext(c).Config()
	token, err := webserver.CreateToken(cfg.Web.Secret, &opr, time.Duration(cfg.Web.TokenExpireHours)*time.Hour)
	if err != nil {
		return failErr(c, err, false)
	}
	opr.LastLogin = time.Now()
	if err := GetDB(c).Model(&opr).Update("last_login", opr.LastLogin).Error; err != nil {
		zap.L().Warn("record last login failed", zap.Int64("opr_id", opr.ID), zap.Error(err))
	}

	c.Set(webserver.OperatorKey, &opr)
	audit(c, "login", "operator signed in")
	return c.JSON(http.StatusOK, loginResult{User: &opr, Token: token})
}

func profile(c echo.Context) error {
	return ok(c, webserver.GetOperator(c))
}
