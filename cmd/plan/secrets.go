package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"golang.org/x/term"
)

var (
	errEmptyPassphrase = errors.New("passphrase must not be empty")

	// stdin is shared so consecutive prompts do not lose buffered input.
	stdin = bufio.NewReader(os.Stdin)
)

// readPassphrase prompts for a passphrase without echo when stdin is a
// terminal, and reads a single line otherwise.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd()) // #nosec G115
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return checkPassphrase(string(b))
	}

	line, err := stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return checkPassphrase(strings.TrimRight(line, "\r\n"))
}

func checkPassphrase(s string) (string, error) {
	if s == "" {
		return "", errEmptyPassphrase
	}
	return s, nil
}

// loadIdentities reads age identities from a key file, or derives one from a
// prompted passphrase.
func loadIdentities(identityFile string, passphrase bool) ([]age.Identity, error) {
	var identities []age.Identity

	if identityFile != "" {
		f, err := os.Open(identityFile) // #nosec G304
		if err != nil {
			return nil, fmt.Errorf("failed to open identity file: %w", err)
		}
		defer func() { _ = f.Close() }()

		parsed, err := age.ParseIdentities(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse identity file: %w", err)
		}
		identities = append(identities, parsed...)
	}

	if passphrase {
		pass, err := readPassphrase("Snapshot passphrase: ")
		if err != nil {
			return nil, err
		}
		identity, err := age.NewScryptIdentity(pass)
		if err != nil {
			return nil, fmt.Errorf("failed to derive identity: %w", err)
		}
		identities = append(identities, identity)
	}

	return identities, nil
}

// parseRecipients turns age public keys into recipients, adding a passphrase
// recipient when asked to.
func parseRecipients(keys []string, passphrase bool) ([]age.Recipient, error) {
	recipients := make([]age.Recipient, 0, len(keys)+1)
	for _, key := range keys {
		r, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", key, err)
		}
		recipients = append(recipients, r)
	}

	if passphrase {
		pass, err := readPassphrase("New snapshot passphrase: ")
		if err != nil {
			return nil, err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return nil, err
		}
		if pass != confirm {
			return nil, errors.New("passphrases do not match")
		}
		r, err := age.NewScryptRecipient(pass)
		if err != nil {
			return nil, fmt.Errorf("failed to create passphrase recipient: %w", err)
		}
		recipients = append(recipients, r)
	}

	return recipients, nil
}
