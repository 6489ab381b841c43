package delivery

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"nashidona/logger"

	"github.com/fsnotify/fsnotify"
)

// HostFamily classifies how an upstream host must be handled.
type HostFamily int

const (
	// FamilyDefault hosts can be fetched server-side.
	FamilyDefault HostFamily = iota
	// FamilyBrowserOnly hosts serve correctly only to an end user's own
	// browser session; the proxy must redirect, never fetch.
	FamilyBrowserOnly
	// FamilyStrictEncoding hosts reject paths that are not percent-encoded
	// exactly; the resolver adds a re-encoded candidate for them.
	FamilyStrictEncoding
)

// Defaults observed in the catalog's third-party sources.
var (
	defaultBrowserOnly = []string{
		"top4top.net",
		"top4top.io",
		"up-4ever.org",
		"up-4ever.com",
	}
	defaultStrictEncoding = []string{
		"archive.org",
		"islamway.net",
	}
)

// hostRulesFile is the on-disk override shape.
type hostRulesFile struct {
	BrowserOnly    []string `json:"browser_only"`
	StrictEncoding []string `json:"strict_encoding"`
}

// HostRules maps host names to families. The rule set can be replaced at
// runtime from a watched file, so reads go through a mutex.
type HostRules struct {
	mu             sync.RWMutex
	browserOnly    []string
	strictEncoding []string
	watcher        *fsnotify.Watcher
}

// NewHostRules returns the built-in rule set.
func NewHostRules() *HostRules {
	return &HostRules{
		browserOnly:    defaultBrowserOnly,
		strictEncoding: defaultStrictEncoding,
	}
}

// LoadFile merges overrides from a JSON rules file into the defaults.
func (h *HostRules) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f hostRulesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	h.mu.Lock()
	h.browserOnly = append(append([]string{}, defaultBrowserOnly...), f.BrowserOnly...)
	h.strictEncoding = append(append([]string{}, defaultStrictEncoding...), f.StrictEncoding...)
	h.mu.Unlock()

	logger.Info("host rules loaded",
		logger.String("path", path),
		logger.Int("browserOnly", len(f.BrowserOnly)),
		logger.Int("strictEncoding", len(f.StrictEncoding)))
	return nil
}

// Watch reloads the rules file whenever it changes on disk. The watcher runs
// until Close.
func (h *HostRules) Watch(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return err
	}
	h.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := h.LoadFile(path); err != nil {
						logger.Warn("host rules reload failed",
							logger.String("path", path),
							logger.ErrorField(err))
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("host rules watcher error", logger.ErrorField(err))
			}
		}
	}()

	return nil
}

// Close stops the file watcher if one is running.
func (h *HostRules) Close() error {
	if h.watcher != nil {
		return h.watcher.Close()
	}
	return nil
}

// Classify returns the family of a host name.
func (h *HostRules) Classify(host string) HostFamily {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if matchesAny(host, h.browserOnly) {
		return FamilyBrowserOnly
	}
	if matchesAny(host, h.strictEncoding) {
		return FamilyStrictEncoding
	}
	return FamilyDefault
}

// matchesAny reports whether host equals or is a subdomain of any entry.
func matchesAny(host string, families []string) bool {
	host = strings.ToLower(host)
	for _, f := range families {
		if host == f || strings.HasSuffix(host, "."+f) {
			return true
		}
	}
	return false
}
