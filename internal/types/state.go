package types

import "time"

// Enum values for the vault lock lifecycle
type VaultState string

const (
	StateLocked    VaultState = "LOCKED"
	StateUnlocking VaultState = "UNLOCKING"
	StateUnlocked  VaultState = "UNLOCKED"
)

func (s VaultState) String() string {
	return string(s)
}

// VaultStatus is the persisted lifecycle record of a vault. InitiatedAt is set
// only while the vault is unlocking.
type VaultStatus struct {
	State       VaultState `json:"state"`
	InitiatedAt *time.Time `json:"initiated_at,omitempty"`
}

func LockedStatus() VaultStatus {
	return VaultStatus{State: StateLocked}
}

func UnlockingStatus(initiatedAt time.Time) VaultStatus {
	at := initiatedAt.UTC()
	return VaultStatus{State: StateUnlocking, InitiatedAt: &at}
}

func UnlockedStatus() VaultStatus {
	return VaultStatus{State: StateUnlocked}
}

func (s VaultStatus) Is(state VaultState) bool {
	return s.State == state
}

func (s VaultStatus) String() string {
	if s.State == StateUnlocking && s.InitiatedAt != nil {
		return s.State.String() + "@" + s.InitiatedAt.Format(time.RFC3339Nano)
	}
	return s.State.String()
}
