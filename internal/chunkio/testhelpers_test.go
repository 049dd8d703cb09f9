package chunkio

import "os"

func corruptFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteAt([]byte{0xFF}, 0); err != nil {
		return err
	}
	return nil
}

func truncateFile(path string, size int64) error {
	return os.Truncate(path, size)
}
