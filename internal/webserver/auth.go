package webserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/bikeshop/internal/app"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/pkg/common"
	"go.uber.org/zap"
)

const OperatorKey = "operator"

// OprClaims is the payload of an admin bearer token. The subject carries the operator id.
type OprClaims struct {
	Name  string `json:"name"`
	Level string `json:"level"`
	jwt.RegisteredClaims
}

// CreateToken signs a bearer token for opr valid for expire.
func CreateToken(secret string, opr *domain.SysOpr, expire time.Duration) (string, error) {
	now := time.Now()
	claims := &OprClaims{
		Name:  opr.Name,
		Level: opr.Level,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(opr.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, map[string]interface{}{"success": false, "message": msg})
}

// resolveOperator loads the enabled operator named by the verified token.
func resolveOperator(public map[string]bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if public[c.Request().Method+" "+c.Path()] {
				return next(c)
			}
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return unauthorized(c, "Not authorized, no token")
			}
			claims, ok := token.Claims.(*OprClaims)
			if !ok {
				return unauthorized(c, "Not authorized, token failed")
			}
			id, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				return unauthorized(c, "Not authorized, token failed")
			}

			appCtx := c.Get(AppContextKey).(app.AppContext)
			var opr domain.SysOpr
			if err := appCtx.DB().WithContext(c.Request().Context()).Where("id = ?", id).First(&opr).Error; err != nil {
				zap.L().Warn("token operator not found", zap.Int64("opr_id", id))
				return unauthorized(c, "Not authorized, token failed")
			}
			if opr.Status != common.ENABLED {
				return unauthorized(c, "Not authorized, account disabled")
			}
			c.Set(OperatorKey, &opr)
			return next(c)
		}
	}
}

// GetOperator returns the admin resolved by the protect middleware, nil on public routes.
func GetOperator(c echo.Context) *domain.SysOpr {
	opr, _ := c.Get(OperatorKey).(*domain.SysOpr)
	return opr
}
