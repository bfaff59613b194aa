package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type FileKind string

const (
	KindFolder FileKind = "folder"
	KindFile   FileKind = "file"
	KindImage  FileKind = "image"
)

// Valid reports whether k is one of the kinds accepted on upload.
func (k FileKind) Valid() bool {
	switch k {
	case KindFolder, KindFile, KindImage:
		return true
	}
	return false
}

// HasContent is true for kinds backed by a blob.
func (k FileKind) HasContent() bool {
	return k == KindFile || k == KindImage
}

// ParentRef is either the root of a user's tree or a reference to a folder record.
// The zero value is the root.
type ParentRef struct {
	id string
}

func Root() ParentRef { return ParentRef{} }

func ParentID(id string) ParentRef { return ParentRef{id: id} }

func (p ParentRef) IsRoot() bool { return p.id == "" }

// ID returns the referenced folder id, or "" for the root.
func (p ParentRef) ID() string { return p.id }

func (p ParentRef) String() string {
	if p.IsRoot() {
		return "0"
	}
	return p.id
}

// MarshalJSON encodes the root as 0 so existing clients keep working.
func (p ParentRef) MarshalJSON() ([]byte, error) {
	if p.IsRoot() {
		return []byte("0"), nil
	}
	return json.Marshal(p.id)
}

// UnmarshalJSON accepts 0, "0", "" and null as the root; any other string is a folder id.
func (p *ParentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", "0", `"0"`, `""`:
		*p = Root()
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parentId must be 0 or a folder id: %w", err)
	}
	*p = ParseParentRef(s)
	return nil
}

// ParseParentRef converts a query or form value into a ParentRef.
func ParseParentRef(s string) ParentRef {
	if s == "" || s == "0" {
		return Root()
	}
	return ParentID(s)
}

type FileRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Kind      FileKind  `json:"type"`
	IsPublic  bool      `json:"isPublic"`
	Parent    ParentRef `json:"parentId"`
	LocalPath string    `json:"-"`
}

// OwnedBy reports whether userID owns the record.
func (f *FileRecord) OwnedBy(userID string) bool {
	return userID != "" && f.UserID == userID
}

// VariantSizes are the widths generated for every image, largest first.
var VariantSizes = []int{500, 250, 100}

// ValidVariantSize reports whether size is one of VariantSizes.
func ValidVariantSize(size int) bool {
	for _, s := range VariantSizes {
		if s == size {
			return true
		}
	}
	return false
}
