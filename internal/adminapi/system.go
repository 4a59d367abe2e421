package adminapi

import (
	"github.com/labstack/echo/v4"
	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/internal/webserver"
)

// registerSystemRoutes registers the operation log endpoints
func registerSystemRoutes() {
	webserver.ApiGET("/system/oprlogs", listOprLogs)
}

// listOprLogs pages the audit trail, newest first, optionally filtered by action.
func listOprLogs(c echo.Context) error {
	page, pageSize := parsePagination(c)
	query := GetDB(c).Model(&domain.SysOprLog{})
	if action := c.QueryParam("action"); action != "" {
		query = query.Where("opt_action = ?", action)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return failErr(c, err, false)
	}
	var rows []domain.SysOprLog
	err := query.Order("opt_time desc").Order("id desc").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return failErr(c, err, false)
	}
	return paged(c, rows, total, page, pageSize)
}
