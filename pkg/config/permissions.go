package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// SectionIDPermissions is the identifier for the permission settings section
	SectionIDPermissions = "permissions"

	defaultNotificationTTL   = 5 * time.Second
	defaultRecentGrantWindow = 30 * time.Second
)

// PermissionsSection holds the permission tracker settings. An empty
// StorePath means ~/.tabsweep/permissions.json.
type PermissionsSection struct {
	NotificationTTL   time.Duration `json:"notification_ttl"`
	RecentGrantWindow time.Duration `json:"recent_grant_window"`
	StorePath         string        `json:"store_path"`
	mu                sync.RWMutex
}

// NewPermissionsSection creates the section with defaults.
func NewPermissionsSection() *PermissionsSection {
	s := &PermissionsSection{}
	s.Reset()
	return s
}

func (s *PermissionsSection) ID() string { return SectionIDPermissions }

func (s *PermissionsSection) Title() string { return "Permissions" }

func (s *PermissionsSection) Description() string {
	return "Grant notification lifetime, recently-granted window and where permission records are kept."
}

// Data returns the current configuration data.
func (s *PermissionsSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"notification_ttl":    s.NotificationTTL.String(),
		"recent_grant_window": s.RecentGrantWindow.String(),
		"store_path":          s.StorePath,
	}
}

// SetData updates the configuration from the provided data.
func (s *PermissionsSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "notification_ttl":
			s.NotificationTTL, err = durationValue(key, value)
		case "recent_grant_window":
			s.RecentGrantWindow, err = durationValue(key, value)
		case "store_path":
			path, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for store_path: expected string, got %T", value)
			}
			s.StorePath = path
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *PermissionsSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.NotificationTTL <= 0 {
		return fmt.Errorf("notification_ttl must be positive, got %v", s.NotificationTTL)
	}
	if s.RecentGrantWindow <= 0 {
		return fmt.Errorf("recent_grant_window must be positive, got %v", s.RecentGrantWindow)
	}
	if s.StorePath != "" && !filepath.IsAbs(expandHome(s.StorePath)) {
		return fmt.Errorf("store_path must be absolute, got %q", s.StorePath)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *PermissionsSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NotificationTTL = defaultNotificationTTL
	s.RecentGrantWindow = defaultRecentGrantWindow
	s.StorePath = ""
}

// Timing returns the notification lifetime and the recently-granted window.
func (s *PermissionsSection) Timing() (notificationTTL, recentGrantWindow time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NotificationTTL, s.RecentGrantWindow
}

// ResolvedStorePath returns StorePath with a leading ~ expanded, or "" when
// the default location should be used.
func (s *PermissionsSection) ResolvedStorePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return expandHome(s.StorePath)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}
