package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlags binds config keys to flags so explicitly set flags override the config file and environment.
func bindFlags(lookup func(name string) *pflag.Flag, keys map[string]string) error {
	for key, name := range keys {
		flag := lookup(name)
		if flag == nil {
			return fmt.Errorf("flag %q not defined", name)
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("error binding flag %q: %w", name, err)
		}
	}
	return nil
}
