package cache

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/derby/config"
)

func TestLoadOnce(t *testing.T) {
	is := is.New(t)
	cfg := config.DefaultConfig()
	calls := 0
	load := func(cfg *config.Config, key string) (string, error) {
		calls++
		return "value-of-" + key, nil
	}
	defer Forget("k1")

	v, err := Load(&cfg, "k1", load)
	is.NoErr(err)
	is.Equal(v, "value-of-k1")
	v, err = Load(&cfg, "k1", load)
	is.NoErr(err)
	is.Equal(v, "value-of-k1")
	is.Equal(calls, 1)
}

func TestLoadErrorNotCached(t *testing.T) {
	is := is.New(t)
	cfg := config.DefaultConfig()
	boom := errors.New("boom")
	_, err := Load(&cfg, "k2", func(*config.Config, string) (int, error) { return 0, boom })
	is.True(errors.Is(err, boom))
	v, err := Load(&cfg, "k2", func(*config.Config, string) (int, error) { return 7, nil })
	is.NoErr(err)
	is.Equal(v, 7)
	Forget("k2")
}

func TestLoadWrongType(t *testing.T) {
	is := is.New(t)
	cfg := config.DefaultConfig()
	defer Forget("k3")
	_, err := Load(&cfg, "k3", func(*config.Config, string) (int, error) { return 1, nil })
	is.NoErr(err)
	_, err = Load(&cfg, "k3", func(*config.Config, string) (string, error) { return "", nil })
	is.True(err != nil)
}
