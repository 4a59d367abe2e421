package webserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	jsoniter "github.com/json-iterator/go"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/talkincode/bikeshop/internal/app"
	"go.uber.org/zap"
)

const (
	ApiPrefix     = "/api"
	AppContextKey = "appctx"
)

// WebHandler is one route collected before the server is built.
type WebHandler struct {
	Method  string
	Path    string
	Handler echo.HandlerFunc
	Public  bool
}

var routes []WebHandler

func addRoute(method, path string, h echo.HandlerFunc, public bool) {
	routes = append(routes, WebHandler{Method: method, Path: path, Handler: h, Public: public})
}

func ApiGET(path string, h echo.HandlerFunc)    { addRoute(http.MethodGet, path, h, false) }
func ApiPOST(path string, h echo.HandlerFunc)   { addRoute(http.MethodPost, path, h, false) }
func ApiPUT(path string, h echo.HandlerFunc)    { addRoute(http.MethodPut, path, h, false) }
func ApiDELETE(path string, h echo.HandlerFunc) { addRoute(http.MethodDelete, path, h, false) }

// PublicPOST registers a route that skips the protect middleware.
func PublicPOST(path string, h echo.HandlerFunc) { addRoute(http.MethodPost, path, h, true) }

// AdminServer is the HTTP front of the application.
type AdminServer struct {
	root   *echo.Echo
	appCtx app.AppContext
}

// NewAdminServer builds the echo instance and mounts every registered route under /api.
func NewAdminServer(appCtx app.AppContext) *AdminServer {
	cfg := appCtx.Config()
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = &JSONSerializer{}
	e.Validator = NewValidator()
	e.HTTPErrorHandler = httpErrorHandler
	e.Logger.SetLevel(log.INFO)
	if cfg.System.Debug {
		e.Logger.SetLevel(log.DEBUG)
	}

	e.Use(middleware.Recover())
	e.Use(accessLog())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	public := make(map[string]bool)
	for _, r := range routes {
		if r.Public {
			public[r.Method+" "+ApiPrefix+r.Path] = true
		}
	}

	api := e.Group(ApiPrefix)
	api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.Web.Secret),
		Skipper: func(c echo.Context) bool {
			return public[c.Request().Method+" "+c.Path()]
		},
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return new(OprClaims) },
		ErrorHandler: func(c echo.Context, err error) error {
			return unauthorized(c, "Not authorized, token failed")
		},
	}))
	api.Use(resolveOperator(public))

	for _, r := range routes {
		api.Add(r.Method, r.Path, r.Handler)
	}
	return &AdminServer{root: e, appCtx: appCtx}
}

// Echo exposes the underlying instance, mainly for httptest.
func (s *AdminServer) Echo() *echo.Echo {
	return s.root
}

// Start blocks serving HTTP until the server is shut down.
func (s *AdminServer) Start() error {
	cfg := s.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	zap.S().Infof("Start admin server %s", addr)
	err := s.root.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *AdminServer) Close() error {
	return s.root.Close()
}

func accessLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			zap.L().Info("http request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.String("ip", c.RealIP()),
				zap.Duration("latency", time.Since(start)))
			return nil
		}
	}
}

func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		zap.L().Error("unhandled request error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]interface{}{"success": false, "message": msg})
}

// JSONSerializer encodes echo responses with json-iterator.
type JSONSerializer struct{}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func (JSONSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := jsonAPI.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (JSONSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := jsonAPI.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body: "+strings.TrimSpace(err.Error())).SetInternal(err)
	}
	return nil
}

// Validator runs go-playground validate tags on bound payloads.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
