package zseek

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		wantKnd Kind
	}{
		{name: "all defaults", cfg: Config{}, wantErr: false},
		{name: "valid explicit window", cfg: Config{Spacing: 2048, WindowSize: 65536, ReadBufSize: 4096}, wantErr: false},
		{name: "window too small", cfg: Config{WindowSize: 16384}, wantErr: true, wantKnd: ConfigInvalid},
		{name: "negative spacing treated as invalid", cfg: Config{Spacing: -1}, wantErr: true, wantKnd: ConfigInvalid},
		{name: "negative readbuf invalid", cfg: Config{ReadBufSize: -1}, wantErr: true, wantKnd: ConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, ix)
				kind, ok := KindOf(err)
				assert.True(t, ok)
				assert.Equal(t, tt.wantKnd, kind)
				return
			}
			assert.NoError(t, err)
			if assert.NotNil(t, ix) {
				assert.Equal(t, 0, ix.Len())
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	ix, err := New(Config{})
	assert.NoError(t, err)
	cfg := ix.Config()
	assert.Equal(t, int64(defaultSpacing), cfg.Spacing)
	assert.Equal(t, defaultWindowSize, cfg.WindowSize)
	assert.Equal(t, defaultReadBufSize, cfg.ReadBufSize)
}

func TestKindString(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{ConfigInvalid, "config invalid"},
		{OutOfMemory, "out of memory"},
		{IoError, "io error"},
		{DataError, "data error"},
		{InvalidArg, "invalid argument"},
		{NotBuilt, "index not built"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.k.String())
	}
}

func TestSeekBeforeBuildFailsNotBuilt(t *testing.T) {
	ix, err := New(Config{})
	assert.NoError(t, err)

	_, err = Seek(ix, nil, 0, 0)
	assert.Error(t, err)
	assert.True(t, NotBuilt.Is(err))
}
