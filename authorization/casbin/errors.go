package casbin

import (
	"fmt"
	"strings"
)

type UnknownPolicyTypeError struct {
	PolicyType string
}

func (err UnknownPolicyTypeError) Error() string {
	return "unknown policy type: " + err.PolicyType
}

// MalformedPolicyRecordError is returned for policy lines with the wrong
// number of fields.
type MalformedPolicyRecordError struct {
	Record []string
	Want   int
}

func (err MalformedPolicyRecordError) Error() string {
	return fmt.Sprintf("malformed policy record %q: want %d fields", strings.Join(err.Record, ", "), err.Want)
}
