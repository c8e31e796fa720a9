package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveWorker находит исполняемый файл worker'а.
//
// override — директория с исполняемым файлом или путь к самому файлу;
// пустой override означает поиск в PATH. На Windows к имени добавляется ".exe".
func ResolveWorker(override, name string) (string, error) {
	exe := ExecutableName(name)

	if override == "" {
		path, err := exec.LookPath(exe)
		if err != nil {
			return "", fmt.Errorf("%w: %s is not in PATH", ErrWorkerNotFound, exe)
		}
		return path, nil
	}

	info, err := os.Stat(override)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrWorkerNotFound, override)
	}
	path := override
	if info.IsDir() {
		path = filepath.Join(override, exe)
		if info, err = os.Stat(path); err != nil || info.IsDir() {
			return "", fmt.Errorf("%w: %s", ErrWorkerNotFound, path)
		}
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%w: %s is not executable", ErrWorkerNotFound, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}

// ExecutableName добавляет ".exe" на Windows.
func ExecutableName(name string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}
