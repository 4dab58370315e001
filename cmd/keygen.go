package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli"

	"github.com/daylog/daylog/internal/keystore"
)

func keygen(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var where string
	var gen func(bool) ([]byte, error)
	if cfg.SecretKeyKeyring != "" {
		kr := keystore.NewKeyring(cfg.SecretKeyKeyring)
		where = fmt.Sprintf("keyring entry %s/%s", kr.Service, kr.User)
		gen = kr.Generate
	} else {
		where = cfg.SecretKey
		gen = keystore.NewFileKeyStore(appFs, cfg.SecretKey).Generate
	}
	if _, err := gen(forceKeygen); err != nil {
		if errors.Is(err, keystore.ErrKeyExists) {
			return fmt.Errorf("%s already holds a key; use --force to replace it", where)
		}
		return err
	}
	fmt.Fprintf(stdout, "Wrote new secret key to %s.\n", where)
	return nil
}
