package models

import "github.com/google/uuid"

// KeyReason records why a column qualifies as a candidate key.
type KeyReason string

const (
	// KeyReasonUnique: distinct value count equals row count.
	KeyReasonUnique KeyReason = "unique"
	// KeyReasonNameSuffix: column name ends with "id" (case-sensitive).
	KeyReasonNameSuffix KeyReason = "name_suffix"
)

// CandidateKey references one column of one table that may be a primary key.
type CandidateKey struct {
	Table  string    `json:"table" yaml:"table"`
	Column string    `json:"column" yaml:"column"`
	Reason KeyReason `json:"reason" yaml:"reason"`
}

// TableKeys holds the two independent candidate sets of a table.
// The sets are not de-duplicated against each other.
type TableKeys struct {
	Table  string   `json:"table" yaml:"table"`
	Unique []string `json:"unique" yaml:"unique"`
	Suffix []string `json:"suffix" yaml:"suffix"`
}

// Candidates flattens both sets, uniqueness-based keys first.
func (k TableKeys) Candidates() []CandidateKey {
	keys := make([]CandidateKey, 0, len(k.Unique)+len(k.Suffix))
	for _, c := range k.Unique {
		keys = append(keys, CandidateKey{Table: k.Table, Column: c, Reason: KeyReasonUnique})
	}
	for _, c := range k.Suffix {
		keys = append(keys, CandidateKey{Table: k.Table, Column: c, Reason: KeyReasonNameSuffix})
	}
	return keys
}

// Relationship links a uniqueness-based key of KeyTable to a column of the
// same name in OtherTable.
type Relationship struct {
	KeyTable   string `json:"key_table" yaml:"key_table"`
	OtherTable string `json:"other_table" yaml:"other_table"`
	Column     string `json:"column" yaml:"column"`
}

// TableRole is the classification assigned to a table.
// A table whose key is shared by some relationship is Fact; otherwise Dimension.
type TableRole string

const (
	TableRoleFact      TableRole = "Fact"
	TableRoleDimension TableRole = "Dimension"
)

// RoleAssignment pairs a table with its role.
type RoleAssignment struct {
	Table string    `json:"table" yaml:"table"`
	Role  TableRole `json:"role" yaml:"role"`
}

// Connectivity summarizes the relationship graph.
type Connectivity struct {
	Components [][]string `json:"components" yaml:"components"`
	Islands    []string   `json:"islands" yaml:"islands"`
}

// InferenceResult is the output of one inference run. It is built once and
// not mutated afterwards.
type InferenceResult struct {
	RunID         uuid.UUID        `json:"run_id" yaml:"run_id"`
	Tables        []TableSummary   `json:"tables" yaml:"tables"`
	Keys          []TableKeys      `json:"keys" yaml:"keys"`
	Relationships []Relationship   `json:"relationships" yaml:"relationships"`
	Roles         []RoleAssignment `json:"roles" yaml:"roles"`
	Connectivity  Connectivity     `json:"connectivity" yaml:"connectivity"`
}

// UniqueKeysByTable returns table name -> uniqueness-based candidate keys.
func (r *InferenceResult) UniqueKeysByTable() map[string][]string {
	out := make(map[string][]string, len(r.Keys))
	for _, k := range r.Keys {
		out[k.Table] = nonNil(k.Unique)
	}
	return out
}

// SuffixKeysByTable returns table name -> name-suffix candidate keys.
func (r *InferenceResult) SuffixKeysByTable() map[string][]string {
	out := make(map[string][]string, len(r.Keys))
	for _, k := range r.Keys {
		out[k.Table] = nonNil(k.Suffix)
	}
	return out
}

// RolesByTable returns table name -> role.
func (r *InferenceResult) RolesByTable() map[string]TableRole {
	out := make(map[string]TableRole, len(r.Roles))
	for _, a := range r.Roles {
		out[a.Table] = a.Role
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
