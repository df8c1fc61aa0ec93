// Package fcrypt wraps age encryption for manifest fragment files. All
// encrypted output is ASCII armored so fragments stay diffable in git.
package fcrypt

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// EncryptReader encrypts data from an io.Reader and writes the armored result to an io.Writer
func EncryptReader(r io.Reader, w io.Writer, recipient age.Recipient) error {
	armorWriter := armor.NewWriter(w)

	encryptor, err := age.Encrypt(armorWriter, recipient)
	if err != nil {
		return fmt.Errorf("failed to create encryptor: %w", err)
	}

	if _, err = io.Copy(encryptor, r); err != nil {
		return fmt.Errorf("failed to encrypt: %w", err)
	}

	// Close in reverse order to ensure proper finalization
	if err = encryptor.Close(); err != nil {
		_ = armorWriter.Close()
		return fmt.Errorf("failed to finalize encryption: %w", err)
	}
	if err = armorWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize armor: %w", err)
	}

	return nil
}

// DecryptReader decrypts armored data from an io.Reader and writes the plaintext to an io.Writer
func DecryptReader(r io.Reader, w io.Writer, identity age.Identity) error {
	armorReader := armor.NewReader(r)

	decryptor, err := age.Decrypt(armorReader, identity)
	if err != nil {
		return fmt.Errorf("failed to create decryptor: %w", err)
	}

	if _, err = io.Copy(w, decryptor); err != nil {
		return fmt.Errorf("failed to decrypt: %w", err)
	}

	return nil
}

// DecryptBytes decrypts an armored ciphertext held in memory. Used for
// encrypted manifest fragments that are parsed without touching disk.
func DecryptBytes(data []byte, identity age.Identity) ([]byte, error) {
	var buf bytes.Buffer
	if err := DecryptReader(bytes.NewReader(data), &buf, identity); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
