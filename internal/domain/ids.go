package domain

// SubjectID identifies the user who owns an import (set by the upstream gateway).
// We model it as an opaque identifier: its format is controlled by the identity provider.
type SubjectID string

// LeadID is an internal identifier for a persisted lead record.
type LeadID string
