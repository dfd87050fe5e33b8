package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectDailyMetric   = "daily_metric"
	ObjectForecastCache = "forecast_cache"
	ObjectAnalytics     = "analytics"
)

const (
	ActionDailyMetricIngest = "daily_metric.ingest"
	ActionDailyMetricDelete = "daily_metric.delete"

	ActionForecastCacheInvalidate    = "forecast_cache.invalidate"
	ActionForecastCacheInvalidateAny = "forecast_cache.invalidate_any"

	ActionAnalyticsView = "analytics.view"
)

const (
	RoleAdmin = "role:admin"
	RoleUser  = "role:user"
)

// defaultPolicies are stored once. Admins inherit every user permission
// through the role link.
var (
	defaultPolicies = [][]string{
		{RoleUser, ObjectAnalytics, ActionAnalyticsView},
		{RoleUser, ObjectDailyMetric, ActionDailyMetricIngest},
		{RoleUser, ObjectForecastCache, ActionForecastCacheInvalidate},

		{RoleAdmin, ObjectDailyMetric, ActionDailyMetricDelete},
		{RoleAdmin, ObjectForecastCache, ActionForecastCacheInvalidateAny},
	}
	defaultRoleLinks = [][]string{
		{RoleAdmin, RoleUser},
	}
)

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from the casbin_rule table and adds any
// missing defaults.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}

	for _, p := range defaultPolicies {
		if err := ensure(enforcer.HasPolicy, enforcer.AddPolicy, p); err != nil {
			return nil, err
		}
	}
	for _, g := range defaultRoleLinks {
		if err := ensure(enforcer.HasGroupingPolicy, enforcer.AddGroupingPolicy, g); err != nil {
			return nil, err
		}
	}
	return enforcer, enforcer.BuildRoleLinks()
}

func ensure(has func(...interface{}) (bool, error), add func(...interface{}) (bool, error), rule []string) error {
	params := make([]interface{}, len(rule))
	for i, v := range rule {
		params[i] = v
	}
	exists, err := has(params...)
	if err != nil || exists {
		return err
	}
	_, err = add(params...)
	return err
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

// Authorize resolves the actor to its role and checks the role's
// permission. Per-user ownership is enforced by the caller scoping every
// query to the authenticated user.
func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)

	role, err := roleFor(actor)
	if err != nil {
		return err
	}
	if object == "" {
		return ErrInvalidObject
	}
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(role, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("actor", actor),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func roleFor(actor string) (string, error) {
	switch {
	case hasSubject(actor, ActorAdminPrefix):
		return RoleAdmin, nil
	case hasSubject(actor, ActorUserPrefix):
		return RoleUser, nil
	default:
		return "", ErrInvalidActor
	}
}

func hasSubject(actor, prefix string) bool {
	return strings.HasPrefix(actor, prefix) && strings.TrimSpace(strings.TrimPrefix(actor, prefix)) != ""
}
