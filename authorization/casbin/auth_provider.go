package casbin

import (
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/dailytribune/tribune/authorization"
)

// ObjectAny is stored for policies that are not bound to a single object.
const ObjectAny = "*"

//go:embed model.conf
var casbinModelContent string

type AuthorizationProvider struct {
	enforcer *casbin.Enforcer
}

var _ authorization.Provider = (*AuthorizationProvider)(nil)

func NewAuthorizationProvider(persistAdapter persist.Adapter) (*AuthorizationProvider, error) {
	casbinModel, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(casbinModel, persistAdapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)

	err = enforcer.LoadPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	return &AuthorizationProvider{enforcer: enforcer}, nil
}

func objectOrAny(object string) string {
	if object == "" {
		return ObjectAny
	}

	return object
}

func (ap *AuthorizationProvider) CheckAccess(
	_ context.Context,
	req authorization.CheckAccessRequest,
) (*authorization.CheckAccessResponse, error) {
	allowed, err := ap.enforcer.Enforce(req.Subject, req.Domain, objectOrAny(req.Object), req.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to enforce: %w", err)
	}

	return &authorization.CheckAccessResponse{Allowed: allowed}, nil
}

func policyRules(reqs []authorization.PolicyRequest) [][]string {
	rules := make([][]string, 0, len(reqs))

	for _, req := range reqs {
		rules = append(rules, []string{req.Subject, req.Domain, objectOrAny(req.Object), req.Action})
	}

	return rules
}

func groupingRules(sub string, groups []string) [][]string {
	rules := make([][]string, 0, len(groups))

	for _, group := range groups {
		rules = append(rules, []string{sub, group})
	}

	return rules
}

func (ap *AuthorizationProvider) AddPolicy(_ context.Context, reqs ...authorization.PolicyRequest) error {
	_, err := ap.enforcer.AddPolicies(policyRules(reqs))
	if err != nil {
		return fmt.Errorf("failed to add policies: %w", err)
	}

	return nil
}

func (ap *AuthorizationProvider) RemovePolicy(_ context.Context, reqs ...authorization.PolicyRequest) error {
	_, err := ap.enforcer.RemovePolicies(policyRules(reqs))
	if err != nil {
		return fmt.Errorf("failed to remove policies: %w", err)
	}

	return nil
}

func (ap *AuthorizationProvider) AddToGroup(_ context.Context, sub string, groups ...string) error {
	_, err := ap.enforcer.AddGroupingPolicies(groupingRules(sub, groups))
	if err != nil {
		return fmt.Errorf("failed to add grouping policies: %w", err)
	}

	return nil
}

func (ap *AuthorizationProvider) RemoveFromGroup(_ context.Context, sub string, groups ...string) error {
	_, err := ap.enforcer.RemoveGroupingPolicies(groupingRules(sub, groups))
	if err != nil {
		return fmt.Errorf("failed to remove grouping policies: %w", err)
	}

	return nil
}

func (ap *AuthorizationProvider) GroupsOf(_ context.Context, sub string) ([]string, error) {
	groups, err := ap.enforcer.GetRolesForUser(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles for user: %w", err)
	}

	return groups, nil
}

// AddPolicyFromCSV seeds "p" and "g" lines that are not stored yet, so it is
// safe to call on every start.
func (ap *AuthorizationProvider) AddPolicyFromCSV(_ context.Context, content string) error {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read policy content: %w", err)
	}

	for _, record := range records {
		record = trimRecord(record)
		if len(record) == 0 || record[0] == "" {
			continue
		}

		err = ap.addRecord(record)
		if err != nil {
			return fmt.Errorf("failed to add policy record: %w", err)
		}
	}

	return nil
}

func trimRecord(record []string) []string {
	out := make([]string, len(record))
	for i := range record {
		out[i] = strings.TrimSpace(record[i])
	}

	return out
}

func (ap *AuthorizationProvider) addRecord(record []string) error {
	switch record[0] {
	case "p":
		if len(record) != 5 {
			return MalformedPolicyRecordError{Record: record, Want: 5}
		}

		return addIfMissing(ap.enforcer.HasPolicy, ap.enforcer.AddPolicy, record[1:])
	case "g":
		if len(record) != 3 {
			return MalformedPolicyRecordError{Record: record, Want: 3}
		}

		return addIfMissing(ap.enforcer.HasGroupingPolicy, ap.enforcer.AddGroupingPolicy, record[1:])
	default:
		return UnknownPolicyTypeError{PolicyType: record[0]}
	}
}

func addIfMissing(
	has func(params ...interface{}) (bool, error),
	add func(params ...interface{}) (bool, error),
	fields []string,
) error {
	args := make([]interface{}, len(fields))
	for i := range fields {
		args[i] = fields[i]
	}

	exists, err := has(args...)
	if err != nil {
		return fmt.Errorf("failed to check policy: %w", err)
	}

	if exists {
		return nil
	}

	_, err = add(args...)
	if err != nil {
		return fmt.Errorf("failed to add policy: %w", err)
	}

	return nil
}
