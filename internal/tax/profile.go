package tax

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Profile is the seller-side tax configuration. It is supplied by company
// configuration, not stored with invoices; lines snapshot their rate at
// order time.
type Profile struct {
	SellerState string  `mapstructure:"sellerState"`
	DefaultRate float64 `mapstructure:"defaultRate"`
	Label       string  `mapstructure:"label"`
	Enabled     bool    `mapstructure:"enabled"`
}

func DefaultProfile() Profile {
	return Profile{
		SellerState: "MH",
		DefaultRate: 5,
		Label:       "GST",
		Enabled:     true,
	}
}

// ProfileHolder hands out the current tax profile and hot-reloads it when
// the config file changes.
type ProfileHolder struct {
	current atomic.Value // holds Profile
}

// NewProfileHolder reads tax.yml and watches it for changes. A missing file
// falls back to defaults.
func NewProfileHolder() (*ProfileHolder, error) {
	v := viper.New()

	v.SetConfigName("tax")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/masaladesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MASALADESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultProfile()
		v.SetDefault("tax.sellerState", defaults.SellerState)
		v.SetDefault("tax.defaultRate", defaults.DefaultRate)
		v.SetDefault("tax.label", defaults.Label)
		v.SetDefault("tax.enabled", defaults.Enabled)
	}

	var profile Profile
	if err := v.UnmarshalKey("tax", &profile); err != nil {
		return nil, err
	}
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	holder := &ProfileHolder{}
	holder.current.Store(profile)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Profile
		if err := v.UnmarshalKey("tax", &updated); err != nil {
			log.Printf("[tax-profile] reload failed: %v", err)
			return
		}
		if err := validateProfile(updated); err != nil {
			log.Printf("[tax-profile] invalid profile ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[tax-profile] reloaded from %s", e.Name)
	})

	return holder, nil
}

// StaticProfileHolder wraps a fixed profile. Used by tests and embedding
// callers that manage configuration themselves.
func StaticProfileHolder(p Profile) *ProfileHolder {
	holder := &ProfileHolder{}
	holder.current.Store(p)
	return holder
}

func (h *ProfileHolder) Get() Profile {
	return h.current.Load().(Profile)
}

func validateProfile(p Profile) error {
	if strings.TrimSpace(p.SellerState) == "" {
		return errors.New("tax.sellerState cannot be empty")
	}
	if p.DefaultRate < 0 {
		return errors.New("tax.defaultRate cannot be negative")
	}
	return nil
}
