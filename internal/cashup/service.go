// Package cashup is the entry point for every till closure and organisation
// operation. It applies permissions, validation and scoping before handing
// work to the stores.
package cashup

import (
	"context"
	"time"

	"cashup-backend/internal/audit"
	"cashup-backend/internal/closure"
	"cashup-backend/internal/directory"
	"cashup-backend/internal/locks"
	"cashup-backend/internal/models"
	"cashup-backend/internal/rules"
	"cashup-backend/internal/scope"

	"go.uber.org/zap"
)

type Deps struct {
	Closures  closure.Store
	Directory directory.Directory
	Scope     *scope.Resolver
	Rules     *rules.Registry
	Locker    locks.Locker
	Activity  audit.Log
	Logger    *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	closures closure.Store
	dir      directory.Directory
	scope    *scope.Resolver
	rules    *rules.Registry
	locker   locks.Locker
	activity audit.Log
	log      *zap.Logger
	now      func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		closures: d.Closures,
		dir:      d.Directory,
		scope:    d.Scope,
		rules:    d.Rules,
		locker:   d.Locker,
		activity: d.Activity,
		log:      d.Logger,
		now:      d.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.locker == nil {
		s.locker = locks.NewLocalLocker()
	}
	return s
}

// CheckPermission evaluates a named permission for actor on target.
func (s *Service) CheckPermission(ctx context.Context, name string, actor *models.Personnel, target any) (bool, error) {
	return s.rules.Check(ctx, name, actor, target)
}

func (s *Service) require(ctx context.Context, name string, actor *models.Personnel, target any) error {
	ok, err := s.rules.Check(ctx, name, actor, target)
	if err != nil {
		return translate(err)
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}

// record writes an activity entry. A failed write is logged and does not
// fail the change it describes.
func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.activity == nil {
		return
	}
	if e.Actor != nil && e.BusinessID == 0 {
		e.BusinessID = e.Actor.BusinessID
	}
	if err := s.activity.Write(ctx, e); err != nil {
		s.log.Error("write activity log",
			zap.String("entity_type", e.EntityType),
			zap.String("entity_id", e.EntityID),
			zap.Error(err))
	}
}

// Actor loads the personnel record an authenticated request acts as.
func (s *Service) Actor(ctx context.Context, personnelID uint) (*models.Personnel, error) {
	p, err := s.dir.GetPersonnel(ctx, personnelID)
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}
