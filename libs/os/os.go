package os

import (
	"fmt"
	"os"
	"path/filepath"
)

// Exit prints s and exits the process with status 1.
func Exit(s string) {
	fmt.Println(s)
	os.Exit(1)
}

// EnsureDir creates dir and its parents if it does not exist.
func EnsureDir(dir string, mode os.FileMode) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err := os.MkdirAll(dir, mode)
		if err != nil {
			return fmt.Errorf("could not create directory %v: %w", dir, err)
		}
	}
	return nil
}

func FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return !os.IsNotExist(err)
}

// WriteFileAtomic writes contents to a temporary file in the same directory
// and renames it over filePath, so readers never see a partial file.
func WriteFileAtomic(filePath string, contents []byte, mode os.FileMode) (err error) {
	f, err := os.CreateTemp(filepath.Dir(filePath), "."+filepath.Base(filePath)+".tmp-")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(contents); err != nil {
		f.Close()
		return err
	}
	if err = f.Chmod(mode); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), filePath)
}

func MustWriteFile(filePath string, contents []byte, mode os.FileMode) {
	if err := WriteFileAtomic(filePath, contents, mode); err != nil {
		Exit(fmt.Sprintf("MustWriteFile failed: %v", err))
	}
}
