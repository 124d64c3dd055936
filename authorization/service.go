package authorization

import (
	"context"
	"errors"
	"fmt"

	authcontext "github.com/dailytribune/tribune/authentication/context"
)

// Provider enforces policies. Subjects are user ids or group names, domains
// are service names, objects are resource ids ("" means any).
type Provider interface {
	CheckAccess(ctx context.Context, req CheckAccessRequest) (res *CheckAccessResponse, err error)
	AddPolicy(ctx context.Context, reqs ...PolicyRequest) (err error)
	RemovePolicy(ctx context.Context, reqs ...PolicyRequest) (err error)
	AddToGroup(ctx context.Context, sub string, groups ...string) (err error)
	RemoveFromGroup(ctx context.Context, sub string, groups ...string) (err error)
	GroupsOf(ctx context.Context, sub string) (groups []string, err error)
}

type Service struct {
	provider Provider
}

var ErrNilProvider = errors.New("authorization provider is nil")

func NewService(provider Provider) (*Service, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}

	return &Service{provider: provider}, nil
}

type CheckAccessRequest struct {
	Subject string
	Domain  string
	Object  string
	Action  string
}

type CheckAccessResponse struct {
	Allowed bool
	// Reason is optional and only informative.
	Reason string
}

type PolicyRequest struct {
	Subject string
	Domain  string
	Object  string
	Action  string
}

type AccessDeniedError struct {
	Subject string
	Domain  string
	Object  string
	Action  string
}

func (err AccessDeniedError) Error() string {
	if err.Object != "" {
		return fmt.Sprintf(
			"access denied for subject '%s' on '%s' object '%s' action '%s'",
			err.Subject,
			err.Domain,
			err.Object,
			err.Action,
		)
	}

	return fmt.Sprintf("access denied for subject '%s' on '%s' action '%s'", err.Subject, err.Domain, err.Action)
}

// Anonymous reports whether the denied caller had no identity at all.
func (err AccessDeniedError) Anonymous() bool {
	return err.Subject == authcontext.Anonymous
}

func (svc *Service) CheckAccess(ctx context.Context, req CheckAccessRequest) (*CheckAccessResponse, error) {
	res, err := svc.provider.CheckAccess(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to check permission: %w", err)
	}

	return res, nil
}

func (svc *Service) AddPolicy(ctx context.Context, reqs ...PolicyRequest) error {
	err := svc.provider.AddPolicy(ctx, reqs...)
	if err != nil {
		return fmt.Errorf("failed to add policies: %w", err)
	}

	return nil
}

func (svc *Service) RemovePolicy(ctx context.Context, reqs ...PolicyRequest) error {
	err := svc.provider.RemovePolicy(ctx, reqs...)
	if err != nil {
		return fmt.Errorf("failed to remove policies: %w", err)
	}

	return nil
}

func (svc *Service) AddToGroup(ctx context.Context, sub string, groups ...string) error {
	err := svc.provider.AddToGroup(ctx, sub, groups...)
	if err != nil {
		return fmt.Errorf("failed to add grouping policies: %w", err)
	}

	return nil
}

func (svc *Service) RemoveFromGroup(ctx context.Context, sub string, groups ...string) error {
	err := svc.provider.RemoveFromGroup(ctx, sub, groups...)
	if err != nil {
		return fmt.Errorf("failed to remove grouping policies: %w", err)
	}

	return nil
}

func (svc *Service) GroupsOf(ctx context.Context, sub string) ([]string, error) {
	groups, err := svc.provider.GroupsOf(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	return groups, nil
}
