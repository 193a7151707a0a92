package database

import (
	"fmt"
	"strconv"
	"strings"
)

// MemoryFragment represents the per-block metadata attached by the block
// constructor. The chain treats the fragment as opaque. Only the remote
// URL participates in the block hash; it is bound at construction and
// immutable afterwards.
type MemoryFragment struct {
	Type        string `json:"type"`
	LocalPath   string `json:"local_path"`
	RemoteURL   string `json:"remote_url"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	LockTime    int64  `json:"lock_time"`
}

// NewMemoryFragment constructs a memory fragment and validates its
// invariants.
func NewMemoryFragment(fragType string, localPath string, description string, owner string, lockTime int64) (MemoryFragment, error) {
	mf := MemoryFragment{
		Type:        fragType,
		LocalPath:   localPath,
		Description: description,
		Owner:       owner,
		LockTime:    lockTime,
	}

	if err := mf.Validate(); err != nil {
		return MemoryFragment{}, err
	}

	return mf, nil
}

// Validate checks the fragment invariants.
func (mf MemoryFragment) Validate() error {
	if mf.LockTime < 0 {
		return fmt.Errorf("%w: fragment lock time is negative", ErrInvalidEntity)
	}

	return nil
}

// serialize renders the fragment in its wire form.
func (mf MemoryFragment) serialize() string {
	fields := []string{
		escapeField(mf.Type),
		escapeField(mf.RemoteURL),
		escapeField(mf.Description),
		escapeField(mf.Owner),
		strconv.FormatInt(mf.LockTime, 10),
	}

	return strings.Join(fields, ",")
}

// parseFragment consumes the wire form of a fragment.
func parseFragment(s string) (MemoryFragment, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 5 {
		return MemoryFragment{}, fmt.Errorf("%w: fragment has %d fields, expected 5", ErrInvalidEntity, len(fields))
	}

	lockTime, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return MemoryFragment{}, fmt.Errorf("%w: fragment lock time: %v", ErrInvalidEntity, err)
	}

	mf := MemoryFragment{
		Type:        unescapeField(fields[0]),
		RemoteURL:   unescapeField(fields[1]),
		Description: unescapeField(fields[2]),
		Owner:       unescapeField(fields[3]),
		LockTime:    lockTime,
	}

	if err := mf.Validate(); err != nil {
		return MemoryFragment{}, err
	}

	return mf, nil
}
