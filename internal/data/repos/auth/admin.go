package auth

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	types "github.com/quiltline/patternvault-backend/internal/domain"
	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
	"github.com/quiltline/patternvault-backend/internal/platform/dbctx"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
)

type AdminUserRepo interface {
	Create(dbc dbctx.Context, user *types.AdminUser) (*types.AdminUser, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.AdminUser, error)
}

type adminUserRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdminUserRepo(db *gorm.DB, baseLog *logger.Logger) AdminUserRepo {
	repoLog := baseLog.With("repo", "AdminUserRepo")
	return &adminUserRepo{db: db, log: repoLog}
}

func (r *adminUserRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *adminUserRepo) Create(dbc dbctx.Context, user *types.AdminUser) (*types.AdminUser, error) {
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *adminUserRepo) GetByEmail(dbc dbctx.Context, email string) (*types.AdminUser, error) {
	var user types.AdminUser
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
