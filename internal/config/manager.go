package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	logx "watchpost/pkg/logx"
)

const (
	// DefaultPath is used when WATCHPOST_CONFIG is unset.
	DefaultPath = "config"
	PathEnv     = "WATCHPOST_CONFIG"
)

// PathFromEnv returns the config path to use.
func PathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv(PathEnv)); p != "" {
		return p
	}
	return DefaultPath
}

// ConfigManager owns the committed Config for one file and fans reloads out
// to subscribers.
type ConfigManager struct {
	path     string
	log      logx.Logger
	debounce time.Duration

	mu     sync.RWMutex
	cfg    *Config
	digest uint64

	// subsMu is held while sending so Unsubscribe never closes a channel
	// mid-send.
	subsMu sync.Mutex
	subs   map[chan *Config]struct{}
}

func NewConfigManager(path string) *ConfigManager {
	return &ConfigManager{
		path:     path,
		log:      logx.Nop(),
		debounce: 250 * time.Millisecond,
		subs:     make(map[chan *Config]struct{}),
	}
}

func (m *ConfigManager) SetLogger(log logx.Logger) {
	if !log.IsZero() {
		m.log = log
	}
}

// Load reads, validates and commits the file.
func (m *ConfigManager) Load() (*Config, error) {
	cfg, digest, err := m.read()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cfg, m.digest = cfg, digest
	m.mu.Unlock()
	return cfg, nil
}

// Get returns the last committed config, or nil before the first Load.
func (m *ConfigManager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *ConfigManager) read() (*Config, uint64, error) {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return nil, 0, fmt.Errorf("read config: %w", err)
	}
	f, err := decodeFile(m.path, raw)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrInvalid, m.path, err)
	}
	cfg, err := Resolve(f)
	if err != nil {
		return nil, 0, err
	}
	return cfg, digestOf(f), nil
}

// decodeFile turns any supported format into File, rejecting unknown keys.
func decodeFile(path string, raw []byte) (File, error) {
	var f File
	jb, _, err := coerceToJSONBytes(path, raw)
	if err != nil {
		return f, err
	}
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return f, err
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return f, errors.New("trailing data")
	}
	return f, nil
}

// digestOf fingerprints the decoded keys so whitespace or comment edits do
// not count as changes.
func digestOf(f File) uint64 {
	b, err := json.Marshal(f)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// Subscribe returns a channel that receives every committed reload.
func (m *ConfigManager) Subscribe(buffer int) chan *Config {
	ch := make(chan *Config, max(buffer, 1))
	m.subsMu.Lock()
	m.subs[ch] = struct{}{}
	m.subsMu.Unlock()
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (m *ConfigManager) Unsubscribe(ch chan *Config) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if _, ok := m.subs[ch]; ok {
		delete(m.subs, ch)
		close(ch)
	}
}

// broadcast never blocks. A subscriber that has not drained its buffer loses
// the stale entry so the newest config is always the one waiting.
func (m *ConfigManager) broadcast(cfg *Config) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for ch := range m.subs {
		for {
			select {
			case ch <- cfg:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// reload re-reads the file and commits it only if it is valid and differs
// from what is already committed.
func (m *ConfigManager) reload() {
	cfg, digest, err := m.read()
	if err != nil {
		m.log.Warn("config reload rejected; keeping previous", logx.String("path", m.path), logx.Err(err))
		return
	}
	m.mu.Lock()
	if digest != 0 && digest == m.digest {
		m.mu.Unlock()
		m.log.Debug("config unchanged", logx.String("path", m.path))
		return
	}
	prev := m.cfg
	m.cfg, m.digest = cfg, digest
	m.mu.Unlock()

	m.broadcast(cfg)
	m.log.Info("config reloaded", logx.String("path", m.path), logx.Any("changed", SummarizeChange(prev, cfg)))
}
