package authorization

import (
	"context"
	"fmt"
	"log/slog"

	authcontext "github.com/dailytribune/tribune/authentication/context"
)

// Client answers access questions for the subject carried by a context.
type Client struct {
	authzSvc *Service
}

func NewClient(authzSvc *Service) *Client {
	return &Client{authzSvc: authzSvc}
}

// CheckAccess returns an AccessDeniedError when the context subject may not
// perform action on object within domain.
func (c *Client) CheckAccess(ctx context.Context, domain, object, action string) error {
	subject := authcontext.GetSubject(ctx)

	res, err := c.authzSvc.CheckAccess(ctx, CheckAccessRequest{
		Subject: subject,
		Domain:  domain,
		Object:  object,
		Action:  action,
	})
	if err != nil {
		return fmt.Errorf("failed to check permission: %w", err)
	}

	if !res.Allowed {
		return AccessDeniedError{
			Subject: subject,
			Domain:  domain,
			Object:  object,
			Action:  action,
		}
	}

	return nil
}

func (c *Client) CanI(ctx context.Context, domain, object, action string) bool {
	return c.Can(ctx, authcontext.GetSubject(ctx), domain, object, action)
}

// Can treats provider failures as a denial.
func (c *Client) Can(ctx context.Context, subject, domain, object, action string) bool {
	res, err := c.authzSvc.CheckAccess(ctx, CheckAccessRequest{
		Subject: subject,
		Domain:  domain,
		Object:  object,
		Action:  action,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to check permission", "subject", subject, "action", action, "error", err)

		return false
	}

	return res.Allowed
}

func (c *Client) AddPolicyForSubject(ctx context.Context, subject, domain, object string, actions ...string) error {
	err := c.authzSvc.AddPolicy(ctx, policyRequests(subject, domain, object, actions)...)
	if err != nil {
		return fmt.Errorf("failed to add policy for subject %q: %w", subject, err)
	}

	return nil
}

func (c *Client) RemovePolicyForSubject(ctx context.Context, subject, domain, object string, actions ...string) error {
	err := c.authzSvc.RemovePolicy(ctx, policyRequests(subject, domain, object, actions)...)
	if err != nil {
		return fmt.Errorf("failed to remove policy for subject %q: %w", subject, err)
	}

	return nil
}

func policyRequests(subject, domain, object string, actions []string) []PolicyRequest {
	reqs := make([]PolicyRequest, 0, len(actions))

	for _, action := range actions {
		reqs = append(reqs, PolicyRequest{
			Subject: subject,
			Domain:  domain,
			Object:  object,
			Action:  action,
		})
	}

	return reqs
}

func (c *Client) AddToGroup(ctx context.Context, sub string, groups ...string) error {
	err := c.authzSvc.AddToGroup(ctx, sub, groups...)
	if err != nil {
		return fmt.Errorf("failed to add %q to groups: %w", sub, err)
	}

	return nil
}

func (c *Client) RemoveFromGroup(ctx context.Context, sub string, groups ...string) error {
	err := c.authzSvc.RemoveFromGroup(ctx, sub, groups...)
	if err != nil {
		return fmt.Errorf("failed to remove %q from groups: %w", sub, err)
	}

	return nil
}

func (c *Client) GroupsOf(ctx context.Context, sub string) ([]string, error) {
	groups, err := c.authzSvc.GroupsOf(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups of %q: %w", sub, err)
	}

	return groups, nil
}
