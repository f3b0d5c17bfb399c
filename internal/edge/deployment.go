// Package edge implements the field device: the capture executor, the
// profile deployment manager, and the local state store that lets the
// device operate with no brain present.
package edge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/your-org/skycam/internal/models"
)

// Mode is the edge's operating mode. Exactly one holds at a time;
// transitions happen only through Deploy and Clear.
type Mode int

const (
	// ModeLiveOrchestration trusts every caller-supplied setting
	// verbatim. Default when no profile is resident.
	ModeLiveOrchestration Mode = iota
	// ModeDeployedProfile resolves settings locally from the resident
	// profile.
	ModeDeployedProfile
)

func (m Mode) String() string {
	switch m {
	case ModeDeployedProfile:
		return "deployed-profile"
	default:
		return "live-orchestration"
	}
}

// OperationalState is the tagged variant over the two modes. Profile is
// non-nil exactly when Mode is ModeDeployedProfile.
type OperationalState struct {
	Mode      Mode
	Profile   *models.CaptureProfile
	Schedules []string
}

// ErrNoProfile is returned for deployed-profile requests while the edge
// is in live-orchestration mode. Never a silent fallback.
var ErrNoProfile = errors.New("no profile deployed")

// ErrProfileMismatch is returned when a deployed-profile request names a
// profile other than the resident one.
var ErrProfileMismatch = errors.New("requested profile is not the resident profile")

// DeploymentManager owns the single resident-profile slot. The slot is
// replaced atomically as a whole record, never patched.
type DeploymentManager struct {
	mu    sync.RWMutex
	state OperationalState
	store *StateStore
}

// NewDeploymentManager restores any persisted resident profile from the
// store (which may be nil for ephemeral setups).
func NewDeploymentManager(store *StateStore) (*DeploymentManager, error) {
	m := &DeploymentManager{store: store}
	if store != nil {
		profile, schedules, err := store.LoadProfile()
		if err != nil {
			return nil, fmt.Errorf("restore resident profile: %w", err)
		}
		if profile != nil {
			m.state = OperationalState{Mode: ModeDeployedProfile, Profile: profile, Schedules: schedules}
			slog.Info("restored resident profile",
				"profile_id", profile.ID, "version", profile.Version,
				"deployed_at", profile.DeployedAt)
		}
	}
	return m, nil
}

// Deploy replaces the resident profile wholesale. Redeploying the same
// id+version is idempotent: content is untouched, only the deployed-at
// stamp refreshes. Returns true when the call was such a refresh.
func (m *DeploymentManager) Deploy(p *models.CaptureProfile, schedules []string) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, fmt.Errorf("deploy rejected: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	refresh := m.state.Profile.SameVersion(p.ID, p.Version)
	now := time.Now()

	next := m.state
	if refresh {
		// Keep the resident content, restamp it.
		resident := *m.state.Profile
		resident.DeployedAt = now
		next.Profile = &resident
	} else {
		fresh := *p
		fresh.DeployedAt = now
		next = OperationalState{Mode: ModeDeployedProfile, Profile: &fresh, Schedules: schedules}
	}

	// Persist before swapping the slot so a store failure leaves the
	// resident state and its on-disk copy in agreement.
	if m.store != nil {
		if err := m.store.SaveProfile(next.Profile, next.Schedules); err != nil {
			return refresh, fmt.Errorf("persist resident profile: %w", err)
		}
	}
	m.state = next

	slog.Info("profile deployed",
		"profile_id", m.state.Profile.ID,
		"version", m.state.Profile.Version,
		"refresh", refresh,
		"schedules", m.state.Schedules)
	return refresh, nil
}

// Clear removes the resident profile, reverting to live orchestration.
func (m *DeploymentManager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		if err := m.store.ClearProfile(); err != nil {
			return fmt.Errorf("clear persisted profile: %w", err)
		}
	}
	m.state = OperationalState{Mode: ModeLiveOrchestration}
	slog.Info("profile cleared, edge in live-orchestration mode")
	return nil
}

// State returns a copy of the current operational state.
func (m *DeploymentManager) State() OperationalState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Resident returns the resident profile or ErrNoProfile.
func (m *DeploymentManager) Resident() (*models.CaptureProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state.Mode != ModeDeployedProfile || m.state.Profile == nil {
		return nil, ErrNoProfile
	}
	return m.state.Profile, nil
}
