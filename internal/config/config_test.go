package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldMigrate(t *testing.T) {
	tests := []struct {
		name         string
		mode         string
		forceMigrate bool
		want         bool
	}{
		{"debug 模式默认迁移", "debug", false, true},
		{"release 模式默认不迁移", "release", false, false},
		{"release 模式带 -migrate 标志时迁移", "release", true, true},
		{"debug 模式带标志照常迁移", "debug", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:       ServerConfig{Mode: tt.mode},
				ForceMigrate: tt.forceMigrate,
			}
			assert.Equal(t, tt.want, cfg.ShouldMigrate())
		})
	}
}

func TestApplyEngineDefaults(t *testing.T) {
	var e EngineConfig
	ApplyEngineDefaults(&e)

	assert.Equal(t, 0.85, e.MasteryThreshold)
	assert.Equal(t, 0.50, e.StruggleThreshold)
	assert.Equal(t, 1, e.MaxLOsPerSegment)
	assert.Equal(t, 2, e.MaxItemsPerLO)
	assert.Equal(t, 300, e.SegmentCacheTTL)

	// 已设置的值不被默认值覆盖
	custom := EngineConfig{MasteryThreshold: 0.9, StruggleThreshold: 0.4}
	ApplyEngineDefaults(&custom)
	assert.Equal(t, 0.9, custom.MasteryThreshold)
	assert.Equal(t, 0.4, custom.StruggleThreshold)
}
