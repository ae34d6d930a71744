package domain

import (
	"bytes"
	"encoding/json/v2"
	"fmt"
	"strconv"
	"strings"
)

// Assignment is the per-member record of labels this engine created.
// It never references a label the engine did not create.
type Assignment struct {
	// SyncLabelID is the remote label kept equal to the member's display
	// name. Empty means no sync label has been provisioned yet (or the
	// remote label vanished and the record is awaiting repair).
	SyncLabelID string `json:"sync_label_id,omitempty"`

	// CustomLabels are admin-policy-gated handles the member asked for,
	// oldest first.
	CustomLabels []CustomLabel `json:"custom_labels,omitempty"`
}

// CustomLabel is one engine-created handle label.
type CustomLabel struct {
	LabelID string `json:"label_id"`
	Name    string `json:"name"`
}

// Empty reports whether the record tracks nothing. Empty records are
// pruned from storage rather than persisted.
func (a *Assignment) Empty() bool {
	return a.SyncLabelID == "" && len(a.CustomLabels) == 0
}

// CustomLabelNamed returns the tracked custom label with the exact given
// name, or nil.
func (a *Assignment) CustomLabelNamed(name string) *CustomLabel {
	for i := range a.CustomLabels {
		if a.CustomLabels[i].Name == name {
			return &a.CustomLabels[i]
		}
	}
	return nil
}

// HasCustomNamed reports whether any tracked custom label matches name
// case-insensitively.
func (a *Assignment) HasCustomNamed(name string) bool {
	for i := range a.CustomLabels {
		if strings.EqualFold(a.CustomLabels[i].Name, name) {
			return true
		}
	}
	return false
}

// RemoveCustomLabel drops the tracked entry with the exact given name.
// Returns the removed entry, or nil if the name was not tracked.
func (a *Assignment) RemoveCustomLabel(name string) *CustomLabel {
	for i := range a.CustomLabels {
		if a.CustomLabels[i].Name == name {
			removed := a.CustomLabels[i]
			a.CustomLabels = append(a.CustomLabels[:i:i], a.CustomLabels[i+1:]...)
			return &removed
		}
	}
	return nil
}

// labelID tolerates both the current string form and the numeric IDs
// found in records persisted by old deployments.
type labelID string

func (id *labelID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = labelID(s)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("label id is neither string nor integer: %w", err)
	}
	*id = labelID(strconv.FormatInt(n, 10))
	return nil
}

// storedAssignment is the superset of every on-disk shape:
// the current shape, the legacy dual shape (sync_role_id /
// custom_role_id / custom_name), and the legacy merged shape
// (role_id + custom_name).
type storedAssignment struct {
	SyncLabelID  labelID       `json:"sync_label_id"`
	CustomLabels []CustomLabel `json:"custom_labels"`

	SyncRoleID   labelID `json:"sync_role_id"`
	CustomRoleID labelID `json:"custom_role_id"`
	CustomName   string  `json:"custom_name"`

	RoleID labelID `json:"role_id"`
}

// DecodeAssignment parses a persisted record, normalizing any legacy
// shape into the current one. Missing keys never fail; decoding an
// already-current record is a no-op.
func DecodeAssignment(data []byte) (*Assignment, error) {
	var stored storedAssignment
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode assignment: %w", err)
	}
	return normalizeAssignment(&stored), nil
}

func normalizeAssignment(stored *storedAssignment) *Assignment {
	out := &Assignment{
		SyncLabelID:  string(stored.SyncLabelID),
		CustomLabels: stored.CustomLabels,
	}

	// Legacy dual shape: one optional sync role plus at most one custom
	// role with its name.
	if out.SyncLabelID == "" {
		out.SyncLabelID = string(stored.SyncRoleID)
	}
	if len(out.CustomLabels) == 0 && stored.CustomRoleID != "" {
		name := stored.CustomName
		out.CustomLabels = []CustomLabel{{LabelID: string(stored.CustomRoleID), Name: name}}
	}

	// Legacy merged shape: a single role_id that was the custom handle
	// when custom_name was set, the sync role otherwise.
	if stored.RoleID != "" && stored.SyncRoleID == "" && stored.CustomRoleID == "" && out.SyncLabelID == "" && len(out.CustomLabels) == 0 {
		if stored.CustomName != "" {
			out.CustomLabels = []CustomLabel{{LabelID: string(stored.RoleID), Name: stored.CustomName}}
		} else {
			out.SyncLabelID = string(stored.RoleID)
		}
	}

	return out
}
