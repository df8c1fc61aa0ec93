package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/devpin-sh/devpin/internal/core"
	"github.com/devpin-sh/devpin/pkgs/fcrypt"
)

type EncryptCmd struct {
	coreFlags *core.Flags
}

func NewEncryptCmd(coreFlags *core.Flags) *EncryptCmd {
	return &EncryptCmd{coreFlags: coreFlags}
}

func (ec *EncryptCmd) Register(app *cli.Command) *cli.Command {
	cmds := []*cli.Command{
		{
			Name:  "encrypt",
			Usage: "encrypt the manifest's secret fragment files",
			Description: `Encrypts the plaintext counterparts of every .age fragment referenced by
the manifest's imports, using the age recipient configured under
age.recipients.

The plaintext files are left in place and should be gitignored; the .age
copies are the ones committed. Fragments whose .age copy already exists
are skipped.`,
			Action: ec.encrypt,
		},
		{
			Name:  "decrypt",
			Usage: "decrypt the manifest's secret fragment files",
			Description: `Decrypts every .age fragment referenced by the manifest's imports using the
age identity configured under age.identity_file, writing the plaintext
alongside the encrypted copy. Fragments whose plaintext already exists are
skipped.

Note that devpin commands read .age fragments in memory; decrypting is only
needed to edit a fragment.`,
			Action: ec.decrypt,
		},
	}

	app.Commands = append(app.Commands, cmds...)
	return app
}

func (ec *EncryptCmd) encrypt(ctx context.Context, cmd *cli.Command) error {
	cfg, err := core.SetupFile(ec.coreFlags.ConfigFilePath)
	if err != nil {
		return err
	}

	if len(cfg.Age.Recipients) == 0 {
		return fmt.Errorf("no age recipients configured in %s", cfg.Path())
	}

	recipient, err := fcrypt.LoadPublicKey(cfg.Age.Recipients[0])
	if err != nil {
		return fmt.Errorf("failed to load public key: %w", err)
	}

	files := cfg.EncryptedFiles()
	if len(files) == 0 {
		log.Info().Msg("no encrypted fragments referenced by imports")
		return nil
	}

	encrypted := 0
	for _, target := range files {
		source := strings.TrimSuffix(target, ".age")

		if _, err := os.Stat(source); os.IsNotExist(err) {
			log.Debug().Str("file", source).Msg("plaintext fragment doesn't exist, skipping")
			continue
		}

		if _, err := os.Stat(target); err == nil {
			log.Debug().Str("file", target).Msg("encrypted fragment already exists, skipping")
			continue
		}

		log.Info().Str("source", source).Str("target", target).Msg("encrypting fragment")
		if err := fcrypt.EncryptFile(source, target, recipient); err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", source, err)
		}
		encrypted++
	}

	log.Info().Int("count", encrypted).Msg("fragments encrypted")
	return nil
}

func (ec *EncryptCmd) decrypt(ctx context.Context, cmd *cli.Command) error {
	cfg, err := core.SetupFile(ec.coreFlags.ConfigFilePath)
	if err != nil {
		return err
	}

	identity, err := cfg.Age.ReadIdentity()
	if err != nil {
		return err
	}

	files := cfg.EncryptedFiles()
	if len(files) == 0 {
		log.Info().Msg("no encrypted fragments referenced by imports")
		return nil
	}

	decrypted := 0
	for _, source := range files {
		target := strings.TrimSuffix(source, ".age")

		if _, err := os.Stat(source); os.IsNotExist(err) {
			log.Debug().Str("file", source).Msg("encrypted fragment doesn't exist, skipping")
			continue
		}

		if _, err := os.Stat(target); err == nil {
			log.Debug().Str("file", target).Msg("plaintext fragment already exists, skipping")
			continue
		}

		log.Info().Str("source", source).Str("target", target).Msg("decrypting fragment")
		if err := fcrypt.DecryptFile(source, target, identity); err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", source, err)
		}
		decrypted++
	}

	log.Info().Int("count", decrypted).Msg("fragments decrypted")
	return nil
}
