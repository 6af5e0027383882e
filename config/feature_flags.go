package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Feature flag names. The monitor serves one student, so there is no
// per-user rollout machinery; a flag is simply on or off.
const (
	// FeatureDetailEnhancement enriches attendance with per-subject
	// lecture/tutorial/practical breakdowns. Costs one extra portal call
	// per subject per cycle.
	FeatureDetailEnhancement = "monitor.detail_enhancement"

	// FeaturePDFFallback scrapes the grade-card PDF when the marks API
	// omits subject rows.
	FeaturePDFFallback = "monitor.pdf_fallback"

	// FeatureRedisCache uses Redis instead of the in-memory cache for
	// marks data.
	FeatureRedisCache = "monitor.redis_cache"

	// FeaturePollHistory records each poll cycle outcome in PostgreSQL.
	FeaturePollHistory = "monitor.poll_history"

	// FeatureNoticeAlerts includes new notice-board entries in change
	// alerts.
	FeatureNoticeAlerts = "notify.notices"

	// FeatureDailyDigest sends the evening attendance and marks summary.
	FeatureDailyDigest = "notify.daily_digest"
)

// ErrFeatureNotFound is returned when toggling an unknown flag.
var ErrFeatureNotFound = errors.New("feature not found")

// Feature describes one flag and its current state.
type Feature struct {
	Name        string
	Description string
	Enabled     bool
}

var featureDefaults = []Feature{
	{FeatureDetailEnhancement, "Per-subject attendance component breakdown", true},
	{FeaturePDFFallback, "Grade-card PDF fallback for missing marks", true},
	{FeatureRedisCache, "Redis-backed marks cache", false},
	{FeaturePollHistory, "Poll cycle audit trail in PostgreSQL", true},
	{FeatureNoticeAlerts, "Notice-board entries in change alerts", true},
	{FeatureDailyDigest, "Evening attendance and marks digest", true},
}

// FeatureFlags holds the flag table. Safe for concurrent use.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
}

// LoadFeatureFlags builds the flag table from the defaults, then applies
// environment overrides of the form FEATURE_<NAME>=true|false, where NAME
// is the flag name upper-cased with dots turned into underscores
// (e.g. FEATURE_MONITOR_PDF_FALLBACK=false).
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{features: make(map[string]*Feature, len(featureDefaults))}

	for _, def := range featureDefaults {
		f := def
		if raw := os.Getenv(envKeyFor(f.Name)); raw != "" {
			if b, err := strconv.ParseBool(raw); err == nil {
				f.Enabled = b
			}
		}
		ff.features[f.Name] = &f
	}
	return ff
}

// envKeyFor maps "monitor.pdf_fallback" to "FEATURE_MONITOR_PDF_FALLBACK".
func envKeyFor(name string) string {
	return "FEATURE_" + strings.ReplaceAll(strings.ToUpper(name), ".", "_")
}

// IsEnabled reports whether the named feature is on. Unknown names are off.
func (ff *FeatureFlags) IsEnabled(name string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	f, ok := ff.features[name]
	return ok && f.Enabled
}

// SetEnabled flips a feature at runtime.
func (ff *FeatureFlags) SetEnabled(name string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	f, ok := ff.features[name]
	if !ok {
		return ErrFeatureNotFound
	}
	f.Enabled = enabled
	return nil
}

// GetAllFeatures returns a copy of the flag table.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	out := make(map[string]*Feature, len(ff.features))
	for name, f := range ff.features {
		copied := *f
		out[name] = &copied
	}
	return out
}
