package app

import (
	"errors"
	"strings"
	"time"

	"github.com/talkincode/bikeshop/internal/domain"
	"github.com/talkincode/bikeshop/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	SuperEmail           = "admin@bikeshop.local"
	SuperDefaultPassword = "bikeshop"
)

// checkSuper creates the default admin, or repairs it when it lost its password,
// level or enabled status.
func (a *Application) checkSuper() {
	var operator domain.SysOpr
	err := a.gormDB.Where("email = ?", SuperEmail).First(&operator).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hashedPassword, err := common.HashPassword(SuperDefaultPassword)
		if err != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(err))
			return
		}
		if err := a.gormDB.Create(&domain.SysOpr{
			ID:        common.UUIDint64(),
			Name:      "administrator",
			Email:     SuperEmail,
			Password:  hashedPassword,
			Level:     domain.OprLevelSuper,
			Status:    common.ENABLED,
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("email", SuperEmail))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(operator.Password) == ""
	resetLevel := !strings.EqualFold(operator.Level, domain.OprLevelSuper)
	resetStatus := !strings.EqualFold(operator.Status, common.ENABLED)

	if !resetPassword && !resetLevel && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		hashedPassword, err := common.HashPassword(SuperDefaultPassword)
		if err != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(err))
			return
		}
		updates["password"] = hashedPassword
	}
	if resetLevel {
		updates["level"] = domain.OprLevelSuper
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}

	if err := a.gormDB.Model(&domain.SysOpr{}).Where("id = ?", operator.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair super admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default super admin account",
		zap.String("email", SuperEmail),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("levelReset", resetLevel),
		zap.Bool("statusEnabled", resetStatus))
}
