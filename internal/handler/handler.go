package handler

import (
	"github.com/badgeforge/badgeforge/internal/config"
	"github.com/badgeforge/badgeforge/internal/database"
	"github.com/badgeforge/badgeforge/internal/logger"
	"github.com/badgeforge/badgeforge/internal/repository"
	"github.com/badgeforge/badgeforge/internal/service"
)

// Handler holds all HTTP handlers
type Handler struct {
	db          *database.Postgres
	rdb         *database.Redis
	log         *logger.Logger
	cfg         *config.Config
	keySvc      *service.KeyService
	issuanceSvc *service.IssuanceService
	verifySvc   *service.VerificationService
	issuers     *repository.IssuerRepository
	badges      *repository.BadgeClassRepository
	assertions  *repository.AssertionRepository
}

// New creates a new Handler instance
func New(db *database.Postgres, rdb *database.Redis, log *logger.Logger, cfg *config.Config, keySvc *service.KeyService, issuanceSvc *service.IssuanceService, verifySvc *service.VerificationService, issuers *repository.IssuerRepository, badges *repository.BadgeClassRepository, assertions *repository.AssertionRepository) *Handler {
	return &Handler{
		db:          db,
		rdb:         rdb,
		log:         log,
		cfg:         cfg,
		keySvc:      keySvc,
		issuanceSvc: issuanceSvc,
		verifySvc:   verifySvc,
		issuers:     issuers,
		badges:      badges,
		assertions:  assertions,
	}
}
