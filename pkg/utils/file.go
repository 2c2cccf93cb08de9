package utils

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ExtractNatives unpacks every entry of a native archive into destDir,
// skipping entries whose name starts with one of the exclude prefixes.
func ExtractNatives(archive, destDir string, exclude []string) (int, error) {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return 0, fmt.Errorf("failed to open native archive: %w", err)
	}
	defer reader.Close()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return 0, err
	}

	extracted := 0
	for _, file := range reader.File {
		if isExcluded(file.Name, exclude) {
			continue
		}

		destPath := filepath.Join(root, filepath.FromSlash(file.Name))
		if destPath != root && !strings.HasPrefix(destPath, root+string(os.PathSeparator)) {
			return extracted, fmt.Errorf("archive entry %q escapes %s", file.Name, destDir)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return extracted, fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		if err := extractFile(file, destPath); err != nil {
			return extracted, err
		}
		extracted++
	}

	return extracted, nil
}

func extractFile(file *zip.File, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file in zip: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to extract %s: %w", file.Name, err)
	}
	return dst.Close()
}

func isExcluded(name string, exclude []string) bool {
	for _, prefix := range exclude {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// MavenPath turns group:artifact:version[:classifier][@ext] into the
// repository-relative path, e.g. org/ow2/asm/asm/9.8/asm-9.8.jar.
func MavenPath(coord string) (string, error) {
	ext := "jar"
	if i := strings.LastIndex(coord, "@"); i != -1 {
		ext = coord[i+1:]
		coord = coord[:i]
	}

	parts := strings.Split(coord, ":")
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("invalid maven coordinate format: %s (expected groupId:artifactId:version)", coord)
	}

	groupID := strings.ReplaceAll(parts[0], ".", "/")
	artifactID := parts[1]
	version := parts[2]

	fileName := artifactID + "-" + version
	if len(parts) > 3 && parts[3] != "" {
		fileName += "-" + parts[3]
	}

	return fmt.Sprintf("%s/%s/%s/%s.%s", groupID, artifactID, version, fileName, ext), nil
}

func BuildDownloadURLFromMavenPath(base, coord string) (string, string, error) {
	// base = https://maven.fabricmc.net/ and coord = org.ow2.asm:asm:9.8
	// -> https://maven.fabricmc.net/org/ow2/asm/asm/9.8/asm-9.8.jar
	path, err := MavenPath(coord)
	if err != nil {
		return "", "", err
	}

	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	return base + path, path, nil
}
