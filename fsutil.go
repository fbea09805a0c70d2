package fbvector

import "os"

// fileExists reports whether path names an existing file, distinguishing
// "does not exist" from other stat failures the way the teacher's
// verifyOrWriteConfig does before deciding whether to create or load.
func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// statSize returns the current size in bytes of an existing file.
func statSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
