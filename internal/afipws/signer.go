package afipws

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"padron/internal/ticket"
)

// OpenSSLSigner shells out to openssl to produce the CMS envelope the
// authority's login service expects. Keeping the CMS construction in an
// external, battle-tested tool avoids reimplementing PKCS#7 here.
type OpenSSLSigner struct {
	// Binary overrides the openssl executable path; empty uses $PATH.
	Binary string
}

func NewOpenSSLSigner() *OpenSSLSigner {
	return &OpenSSLSigner{}
}

// Sign writes credential material to short-lived temp files, invokes
// `openssl smime -sign` and returns the DER envelope. Temp files are
// removed before returning, on every path.
func (s *OpenSSLSigner) Sign(request []byte, cred ticket.Credential) ([]byte, error) {
	binary := s.Binary
	if binary == "" {
		binary = "openssl"
	}

	certFile, err := writeTemp("padron-cert-*", cred.Certificate)
	if err != nil {
		return nil, err
	}
	defer os.Remove(certFile)

	keyFile, err := writeTemp("padron-key-*", cred.PrivateKey)
	if err != nil {
		return nil, err
	}
	defer os.Remove(keyFile)

	cmd := exec.Command(binary, "smime", "-sign",
		"-signer", certFile,
		"-inkey", keyFile,
		"-outform", "DER",
		"-nodetach")
	cmd.Stdin = bytes.NewReader(request)

	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("openssl smime: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("openssl smime: %w", err)
	}
	return out, nil
}

func writeTemp(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}
