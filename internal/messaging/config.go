package messaging

import (
	"fmt"
	"strconv"
	"strings"

	"wordclock-service/internal/logger"
	"wordclock-service/internal/types"
)

// Hash key holding the persisted appliance configuration.
const configHashKey = "wordclock:config"

// ConfigStore keeps the working configuration in memory and persists it
// into a Redis hash. Load runs once at startup; Save is driven by the
// core's debounced persistence path.
type ConfigStore struct {
	client *RedisClient
	logger *logger.Logger
	cfg    *types.Config
}

func NewConfigStore(client *RedisClient, l *logger.Logger) *ConfigStore {
	return &ConfigStore{
		client: client,
		logger: l.WithTag("config"),
		cfg:    types.DefaultConfig(),
	}
}

// Config returns the mutable working configuration.
func (c *ConfigStore) Config() *types.Config {
	return c.cfg
}

// Load reads the persisted fields over the defaults. Missing fields keep
// their default value; a malformed field is logged and skipped, never
// fatal.
func (c *ConfigStore) Load() error {
	fields, err := c.client.client.HGetAll(c.client.ctx, configHashKey).Result()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if len(fields) == 0 {
		c.logger.Infof("No persisted configuration, using defaults")
		return nil
	}

	for field, value := range fields {
		if err := c.applyField(field, value); err != nil {
			c.logger.Warnf("Skipping bad config field %s=%q: %v", field, value, err)
		}
	}
	c.logger.Infof("Configuration loaded: base=%s windows=%d", c.cfg.BaseMode, len(c.cfg.Windows))
	return nil
}

func (c *ConfigStore) applyField(field, value string) error {
	switch field {
	case "base-mode":
		c.cfg.BaseMode = types.Mode(value)
	case "pulse-layer":
		c.cfg.PulseLayer = value == "true"
	case "brightness":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.cfg.Brightness = v
	case "pulse-interval":
		v, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		c.cfg.PulseInterval = v
	case "auto-off-preview":
		c.cfg.AutoOffPreview = value == "true"
	case "windows":
		windows, err := ParseWindows(value)
		if err != nil {
			return err
		}
		c.cfg.Windows = windows
	case "ir-address":
		v, err := strconv.ParseUint(value, 16, 16)
		if err != nil {
			return err
		}
		c.cfg.IrAddress = uint16(v)
	case "ir-codes":
		codes, err := parseIrCodes(value)
		if err != nil {
			return err
		}
		c.cfg.IrCodes = codes
	}
	return nil
}

// Save writes every field back into the hash in one HSET.
func (c *ConfigStore) Save() error {
	fields := map[string]any{
		"base-mode":        string(c.cfg.BaseMode),
		"pulse-layer":      strconv.FormatBool(c.cfg.PulseLayer),
		"brightness":       strconv.Itoa(c.cfg.Brightness),
		"pulse-interval":   strconv.Itoa(c.cfg.PulseInterval),
		"auto-off-preview": strconv.FormatBool(c.cfg.AutoOffPreview),
		"windows":          FormatWindows(c.cfg.Windows),
		"ir-address":       fmt.Sprintf("%04x", c.cfg.IrAddress),
		"ir-codes":         formatIrCodes(c.cfg.IrCodes),
	}
	if err := c.client.client.HSet(c.client.ctx, configHashKey, fields).Err(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	c.logger.Debugf("Configuration saved")
	return nil
}

// FormatWindows renders windows as "HH:MM-HH:MM,HH:MM-HH:MM".
func FormatWindows(windows []types.Window) string {
	parts := make([]string, 0, len(windows))
	for _, w := range windows {
		parts = append(parts, fmt.Sprintf("%s-%s", w.Start, w.End))
	}
	return strings.Join(parts, ",")
}

// ParseWindows is the inverse of FormatWindows.
func ParseWindows(s string) ([]types.Window, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	windows := make([]types.Window, 0, len(parts))
	for _, part := range parts {
		var w types.Window
		if _, err := fmt.Sscanf(part, "%d:%d-%d:%d",
			&w.Start.Hour, &w.Start.Minute, &w.End.Hour, &w.End.Minute); err != nil {
			return nil, fmt.Errorf("invalid window %q: %w", part, err)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// formatIrCodes renders the trained table as "code=command,..." with hex codes.
func formatIrCodes(codes map[uint32]types.Command) string {
	parts := make([]string, 0, len(codes))
	for code, cmd := range codes {
		parts = append(parts, fmt.Sprintf("%08x=%s", code, cmd))
	}
	return strings.Join(parts, ",")
}

func parseIrCodes(s string) (map[uint32]types.Command, error) {
	codes := make(map[uint32]types.Command)
	if s == "" {
		return codes, nil
	}
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid IR code entry %q", part)
		}
		code, err := strconv.ParseUint(kv[0], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid IR code %q: %w", kv[0], err)
		}
		codes[uint32(code)] = types.Command(kv[1])
	}
	return codes, nil
}
