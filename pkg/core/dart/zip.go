package dart

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
)

// readZipEntry extracts one named file from an in-memory ZIP archive.
func readZipEntry(raw []byte, name string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("entry %s not found in archive", name)
}

// ArchiveEntry describes one file inside a filing archive.
type ArchiveEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// listZipEntries inventories an in-memory ZIP archive, largest first.
func listZipEntries(raw []byte) ([]ArchiveEntry, error) {
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	entries := make([]ArchiveEntry, 0, len(reader.File))
	for _, file := range reader.File {
		entries = append(entries, ArchiveEntry{
			Name: file.Name,
			Size: int64(file.UncompressedSize64),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Size > entries[j].Size })
	return entries, nil
}

// extractZipTexts pulls the XML/HTML parts out of a filing archive,
// largest first. Binary attachments (images, PDFs) are skipped.
func extractZipTexts(raw []byte) ([]namedText, error) {
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	var parts []namedText
	for _, file := range reader.File {
		lower := strings.ToLower(file.Name)
		if !strings.HasSuffix(lower, ".xml") && !strings.HasSuffix(lower, ".html") &&
			!strings.HasSuffix(lower, ".htm") && !strings.HasSuffix(lower, ".xhtml") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		parts = append(parts, namedText{name: file.Name, body: body})
	}
	sort.Slice(parts, func(i, j int) bool { return len(parts[i].body) > len(parts[j].body) })
	return parts, nil
}

type namedText struct {
	name string
	body []byte
}
