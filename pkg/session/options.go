package session

import (
	"regexp"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultMaxContentLength = 4096
	DefaultConfirmTimeout   = 10 * time.Second
	DefaultPageSize         = 50
	DefaultSeenCapacity     = 2048
)

type Options struct {
	MaxContentLength int
	ConfirmTimeout   time.Duration
	RateLimit        int
	RateWindow       time.Duration
	PageSize         int
	SeenCapacity     int
	BlockedPatterns  []*regexp.Regexp
}

func (o Options) withDefaults() Options {
	if o.MaxContentLength <= 0 {
		o.MaxContentLength = DefaultMaxContentLength
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = DefaultConfirmTimeout
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.SeenCapacity <= 0 {
		o.SeenCapacity = DefaultSeenCapacity
	}
	if o.BlockedPatterns == nil {
		o.BlockedPatterns = defaultBlockedPatterns
	}
	return o
}

// OptionsFromViper builds options from the loaded settings file; unset keys
// fall back to the defaults above.
func OptionsFromViper() Options {
	return Options{
		MaxContentLength: viper.GetInt("chatkit.max_content_length"),
		ConfirmTimeout:   viper.GetDuration("chatkit.confirm_timeout"),
		RateLimit:        viper.GetInt("chatkit.rate_limit"),
		RateWindow:       viper.GetDuration("chatkit.rate_window"),
		PageSize:         viper.GetInt("chatkit.page_size"),
	}.withDefaults()
}
