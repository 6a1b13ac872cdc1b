package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
)

const (
	// SectionIDEngine is the identifier for the engine settings section
	SectionIDEngine = "engine"

	defaultMaxPerDomain    = 3
	defaultRefreshInterval = 5 * time.Second
	defaultWorkers         = 1
)

// DefaultHeavyDomains are sites whose tabs tend to hold a lot of memory.
var DefaultHeavyDomains = []string{
	"youtube.com",
	"netflix.com",
	"twitch.tv",
	"figma.com",
	"docs.google.com",
	"mail.google.com",
	"meet.google.com",
	"slack.com",
	"discord.com",
	"notion.so",
	"*.atlassian.net",
	"miro.com",
}

// EngineSection holds the automation engine settings.
type EngineSection struct {
	HeavyDomains    []string      `json:"heavy_domains"`
	MaxPerDomain    int           `json:"max_per_domain"`
	RefreshInterval time.Duration `json:"refresh_interval"`
	Workers         int           `json:"workers"`
	mu              sync.RWMutex
}

// NewEngineSection creates the section with defaults.
func NewEngineSection() *EngineSection {
	s := &EngineSection{}
	s.Reset()
	return s
}

func (s *EngineSection) ID() string { return SectionIDEngine }

func (s *EngineSection) Title() string { return "Engine" }

func (s *EngineSection) Description() string {
	return "Heavy-site patterns, consolidation limit, watch refresh interval and script worker count."
}

// Data returns the current configuration data.
func (s *EngineSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"heavy_domains":    append([]string(nil), s.HeavyDomains...),
		"max_per_domain":   s.MaxPerDomain,
		"refresh_interval": s.RefreshInterval.String(),
		"workers":          s.Workers,
	}
}

// SetData updates the configuration from the provided data.
func (s *EngineSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "heavy_domains":
			s.HeavyDomains, err = stringsValue(key, value)
		case "max_per_domain":
			s.MaxPerDomain, err = intValue(key, value)
		case "refresh_interval":
			s.RefreshInterval, err = durationValue(key, value)
		case "workers":
			s.Workers, err = intValue(key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *EngineSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.MaxPerDomain < 1 {
		return fmt.Errorf("max_per_domain must be at least 1, got %d", s.MaxPerDomain)
	}
	if s.RefreshInterval < time.Second || s.RefreshInterval > time.Hour {
		return fmt.Errorf("refresh_interval must be between 1s and 1h, got %v", s.RefreshInterval)
	}
	if s.Workers < 1 || s.Workers > 16 {
		return fmt.Errorf("workers must be between 1 and 16, got %d", s.Workers)
	}
	for _, pattern := range s.HeavyDomains {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("heavy_domains contains an empty pattern")
		}
		if _, err := glob.Compile(pattern, '.'); err != nil {
			return fmt.Errorf("invalid heavy domain pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *EngineSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HeavyDomains = append([]string(nil), DefaultHeavyDomains...)
	s.MaxPerDomain = defaultMaxPerDomain
	s.RefreshInterval = defaultRefreshInterval
	s.Workers = defaultWorkers
}

// Settings returns a consistent copy of every value.
func (s *EngineSection) Settings() (heavy []string, maxPerDomain int, refresh time.Duration, workers int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.HeavyDomains...), s.MaxPerDomain, s.RefreshInterval, s.Workers
}

// AddHeavyDomain appends a pattern unless it is already present.
func (s *EngineSection) AddHeavyDomain(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.HeavyDomains {
		if p == pattern {
			return
		}
	}
	s.HeavyDomains = append(s.HeavyDomains, pattern)
}

// RemoveHeavyDomain deletes a pattern. It reports whether it was present.
func (s *EngineSection) RemoveHeavyDomain(pattern string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.HeavyDomains {
		if p == pattern {
			s.HeavyDomains = append(s.HeavyDomains[:i], s.HeavyDomains[i+1:]...)
			return true
		}
	}
	return false
}
