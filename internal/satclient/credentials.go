package satclient

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// credentialStage copies FIEL material into uniquely named files that live
// only for the duration of one request.
type credentialStage struct {
	dir string
}

type stagedCredential struct {
	cerPath string
	keyPath string
}

func (s *credentialStage) place(cred Credential) (*stagedCredential, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	staged := &stagedCredential{
		cerPath: filepath.Join(s.dir, "fiel_"+id+".cer"),
		keyPath: filepath.Join(s.dir, "fiel_"+id+".key"),
	}

	if err := copyFile(cred.CerPath, staged.cerPath); err != nil {
		staged.cleanup()
		return nil, fmt.Errorf("copying certificate: %w", err)
	}
	if err := copyFile(cred.KeyPath, staged.keyPath); err != nil {
		staged.cleanup()
		return nil, fmt.Errorf("copying private key: %w", err)
	}
	return staged, nil
}

// cleanup must run on every exit path; the key material is sensitive.
func (s *stagedCredential) cleanup() {
	os.Remove(s.cerPath)
	os.Remove(s.keyPath)
}

func (s *stagedCredential) attach(writer *multipart.Writer) error {
	if err := attachFile(writer, "certificado_cer", s.cerPath); err != nil {
		return err
	}
	return attachFile(writer, "certificado_key", s.keyPath)
}

func attachFile(writer *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
